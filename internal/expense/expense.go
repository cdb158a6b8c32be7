package expense

import (
	"encoding/json"
	"time"

	"github.com/finadmin/expense-authorization/internal/authtree"
	expenseDatamodel "github.com/finadmin/expense-authorization/internal/core/datamodel/expense"
)

const (
	StatusOpen            = "open"
	StatusInAuthorization = "in_authorization"
	StatusAuthorized      = "authorized"
	StatusRejected        = "rejected"
	StatusPendingPayment  = "pending_payment"
	StatusPaid            = "paid"
	StatusRefunding       = "refunding"
	StatusFinished        = "finished"
	StatusCancelled       = "cancelled"
)

const (
	OutcomeApprove = "approve"
	OutcomeReject  = "reject"
)

// Expense is the workflow projection of an expense: where it sits in the
// approval chain and how it got there. CurrentLevel is 0 while the expense is
// not in authorization.
type Expense struct {
	ID                  int64         `json:"id"`
	CompanyID           int64         `json:"company_id"`
	PositionID          int64         `json:"position_id"`
	SubmitterID         string        `json:"submitter_id"`
	SubmitterName       string        `json:"submitter_name"`
	Kind                authtree.Kind `json:"kind"`
	AmountCents         int64         `json:"amount_cents"`
	Description         string        `json:"description"`
	Status              string        `json:"status"`
	CurrentLevel        int           `json:"current_level"`
	MaxLevelReached     bool          `json:"max_level_reached"`
	RejectionCount      int           `json:"rejection_count"`
	IsFirstRound        bool          `json:"is_first_round"`
	LastAuthorizerName  string        `json:"last_authorizer_name,omitempty"`
	NextAuthorizerNames []string      `json:"next_authorizer_names"`
	PendingPayment      bool          `json:"pending_payment"`
	RemainderCents      *int64        `json:"remainder_cents,omitempty"`
	SubmittedAt         *time.Time    `json:"submitted_at,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// IsTerminal reports whether no further transition can leave this status.
// Paid is terminal only for exercised-kind expenses; an advance still owes a
// remainder settlement.
func (e *Expense) IsTerminal() bool {
	switch e.Status {
	case StatusFinished, StatusCancelled:
		return true
	case StatusPaid:
		return e.Kind == authtree.KindExercised
	}
	return false
}

// CanBeCancelled is true for every state that has not yet passed the point of
// no return. Once money moved (paid and beyond) cancellation is off the table.
func (e *Expense) CanBeCancelled() bool {
	switch e.Status {
	case StatusOpen, StatusInAuthorization, StatusAuthorized, StatusRejected, StatusPendingPayment:
		return true
	}
	return false
}

// ApprovalDecision is one authorizer's recorded verdict at one level. Rows are
// append-only: a resubmission produces new rows instead of rewriting history.
type ApprovalDecision struct {
	ID             string    `json:"id"`
	ExpenseID      int64     `json:"expense_id"`
	AuthorizerID   string    `json:"authorizer_id"`
	AuthorizerName string    `json:"authorizer_name"`
	Level          int       `json:"level"`
	Outcome        string    `json:"outcome"`
	Reason         *string   `json:"reason,omitempty"`
	DecidedAt      time.Time `json:"decided_at"`
}

// RejectionRecord ties a rejection reason to the round it ended.
type RejectionRecord struct {
	ID        int64     `json:"id"`
	ExpenseID int64     `json:"expense_id"`
	Level     int       `json:"level"`
	Round     int       `json:"round"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func encodeNames(names []string) string {
	if len(names) == 0 {
		return "[]"
	}
	b, err := json.Marshal(names)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeNames(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return []string{}
	}
	return names
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:                  e.ID,
		CompanyID:           e.CompanyID,
		PositionID:          e.PositionID,
		SubmitterID:         e.SubmitterID,
		SubmitterName:       e.SubmitterName,
		Kind:                string(e.Kind),
		AmountCents:         e.AmountCents,
		Description:         e.Description,
		Status:              e.Status,
		CurrentLevel:        e.CurrentLevel,
		MaxLevelReached:     e.MaxLevelReached,
		RejectionCount:      e.RejectionCount,
		IsFirstRound:        e.IsFirstRound,
		LastAuthorizerName:  e.LastAuthorizerName,
		NextAuthorizerNames: encodeNames(e.NextAuthorizerNames),
		PendingPayment:      e.PendingPayment,
		RemainderCents:      e.RemainderCents,
		SubmittedAt:         e.SubmittedAt,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}

func FromDataModel(dm *expenseDatamodel.Expense) *Expense {
	return &Expense{
		ID:                  dm.ID,
		CompanyID:           dm.CompanyID,
		PositionID:          dm.PositionID,
		SubmitterID:         dm.SubmitterID,
		SubmitterName:       dm.SubmitterName,
		Kind:                authtree.Kind(dm.Kind),
		AmountCents:         dm.AmountCents,
		Description:         dm.Description,
		Status:              dm.Status,
		CurrentLevel:        dm.CurrentLevel,
		MaxLevelReached:     dm.MaxLevelReached,
		RejectionCount:      dm.RejectionCount,
		IsFirstRound:        dm.IsFirstRound,
		LastAuthorizerName:  dm.LastAuthorizerName,
		NextAuthorizerNames: decodeNames(dm.NextAuthorizerNames),
		PendingPayment:      dm.PendingPayment,
		RemainderCents:      dm.RemainderCents,
		SubmittedAt:         dm.SubmittedAt,
		CreatedAt:           dm.CreatedAt,
		UpdatedAt:           dm.UpdatedAt,
	}
}

func DecisionFromDataModel(dm *expenseDatamodel.ApprovalDecision) *ApprovalDecision {
	return &ApprovalDecision{
		ID:             dm.ID,
		ExpenseID:      dm.ExpenseID,
		AuthorizerID:   dm.AuthorizerID,
		AuthorizerName: dm.AuthorizerName,
		Level:          dm.Level,
		Outcome:        dm.Outcome,
		Reason:         dm.Reason,
		DecidedAt:      dm.DecidedAt,
	}
}

func RejectionFromDataModel(dm *expenseDatamodel.RejectionRecord) *RejectionRecord {
	return &RejectionRecord{
		ID:        dm.ID,
		ExpenseID: dm.ExpenseID,
		Level:     dm.Level,
		Round:     dm.Round,
		Reason:    dm.Reason,
		CreatedAt: dm.CreatedAt,
	}
}
