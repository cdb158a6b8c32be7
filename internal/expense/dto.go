package expense

import (
	"github.com/finadmin/expense-authorization/internal"
	"github.com/finadmin/expense-authorization/internal/authtree"
)

// CreateExpenseDTO carries a new draft expense. Kind decides which
// authorization tree the submission will walk.
type CreateExpenseDTO struct {
	PositionID  int64  `json:"position_id"`
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
}

func (dto CreateExpenseDTO) Validate() *internal.AppError {
	var violations []internal.ValidationError

	if _, ok := authtree.ParseKind(dto.Kind); !ok {
		violations = append(violations, internal.ValidationError{
			Field:   "kind",
			Message: "kind must be exercised or advance",
			Code:    string(internal.ErrCodeInvalidExpenseKind),
		})
	}
	if dto.AmountCents <= 0 {
		violations = append(violations, internal.ValidationError{
			Field:   "amount_cents",
			Message: "amount must be greater than zero",
			Code:    string(internal.ErrCodeInvalidAmount),
		})
	}
	if dto.Description == "" {
		violations = append(violations, internal.ValidationError{
			Field:   "description",
			Message: "description is required",
			Code:    string(internal.ErrCodeInvalidDescription),
		})
	}
	if dto.PositionID <= 0 {
		violations = append(violations, internal.ValidationError{
			Field:   "position_id",
			Message: "position id is required",
			Code:    string(internal.ErrCodeValidationFailed),
		})
	}

	if len(violations) > 0 {
		return internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
			WithDetails(internal.ValidationErrors{Errors: violations})
	}
	return nil
}

// DecisionDTO is the approve payload. ObservedLevel is the level the
// authorizer was looking at when they clicked; a mismatch with the stored
// current level means somebody else decided first.
type DecisionDTO struct {
	ObservedLevel int `json:"observed_level"`
}

// RejectDTO additionally requires the reason shown to the submitter.
type RejectDTO struct {
	ObservedLevel int    `json:"observed_level"`
	Reason        string `json:"reason"`
}

// RemainderDTO settles an advance after payment: how much of the advanced
// amount was not spent and has to flow back.
type RemainderDTO struct {
	RemainderCents int64 `json:"remainder_cents"`
}

func (dto RemainderDTO) Validate() *internal.AppError {
	if dto.RemainderCents < 0 {
		return internal.NewValidationError("remainder must not be negative", internal.ErrCodeInvalidAmount)
	}
	return nil
}

// HistoryResponse bundles an expense with its decision trail.
type HistoryResponse struct {
	Expense    *Expense            `json:"expense"`
	Decisions  []*ApprovalDecision `json:"decisions"`
	Rejections []*RejectionRecord  `json:"rejections"`
}
