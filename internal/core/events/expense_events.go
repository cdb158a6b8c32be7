package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseStatusChanged = "expense.status_changed"
	EventTypeExpenseLevelAdvanced = "expense.level_advanced"
	EventTypeExpenseRejected      = "expense.rejected"
)

type ExpenseStatusChangedEvent struct {
	BaseEvent
	ExpenseID   int64  `json:"expense_id"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
	ActorID     string `json:"actor_id"`
	ActorName   string `json:"actor_name"`
	ExpenseKind string `json:"expense_kind"`
}

func NewExpenseStatusChangedEvent(expenseID int64, oldStatus, newStatus, actorID, actorName, kind string) *ExpenseStatusChangedEvent {
	return &ExpenseStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseStatusChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id": expenseID,
				"old_status": oldStatus,
				"new_status": newStatus,
				"actor_id":   actorID,
				"actor_name": actorName,
				"kind":       kind,
			},
		},
		ExpenseID:   expenseID,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		ActorID:     actorID,
		ActorName:   actorName,
		ExpenseKind: kind,
	}
}

// ExpenseLevelAdvancedEvent notifies the authorizers of the next level that an
// expense is waiting for their decision.
type ExpenseLevelAdvancedEvent struct {
	BaseEvent
	ExpenseID           int64    `json:"expense_id"`
	NewLevel            int      `json:"new_level"`
	NextAuthorizerNames []string `json:"next_authorizer_names"`
}

func NewExpenseLevelAdvancedEvent(expenseID int64, newLevel int, nextAuthorizerNames []string) *ExpenseLevelAdvancedEvent {
	return &ExpenseLevelAdvancedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseLevelAdvanced,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id":            expenseID,
				"new_level":             newLevel,
				"next_authorizer_names": nextAuthorizerNames,
			},
		},
		ExpenseID:           expenseID,
		NewLevel:            newLevel,
		NextAuthorizerNames: nextAuthorizerNames,
	}
}

type ExpenseRejectedEvent struct {
	BaseEvent
	ExpenseID      int64  `json:"expense_id"`
	Level          int    `json:"level"`
	Reason         string `json:"reason"`
	RejectionCount int    `json:"rejection_count"`
}

func NewExpenseRejectedEvent(expenseID int64, level int, reason string, rejectionCount int) *ExpenseRejectedEvent {
	return &ExpenseRejectedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseRejected,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id":      expenseID,
				"level":           level,
				"reason":          reason,
				"rejection_count": rejectionCount,
			},
		},
		ExpenseID:      expenseID,
		Level:          level,
		Reason:         reason,
		RejectionCount: rejectionCount,
	}
}
