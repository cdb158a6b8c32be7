package authtree

import (
	"fmt"

	"github.com/finadmin/expense-authorization/internal"
)

// AuthorizerRefDTO identifies one authorizer inside a level of a tree edit.
type AuthorizerRefDTO struct {
	PersonID    string `json:"person_id"`
	DisplayName string `json:"display_name"`
}

// ReplaceLevelsDTO is the whole-tree replacement payload. Levels are taken in
// array order and re-ranked 1..N on write; partial edits are not supported.
type ReplaceLevelsDTO struct {
	Levels [][]AuthorizerRefDTO `json:"levels"`
}

// Validate checks the replacement before any write happens. All violations
// are collected so the editor UI can mark every failing level at once.
func (dto ReplaceLevelsDTO) Validate() *internal.AppError {
	if len(dto.Levels) == 0 {
		return internal.NewValidationError("a tree must have at least one level", internal.ErrCodeEmptyLevelSet)
	}

	var violations []internal.ValidationError
	for i, level := range dto.Levels {
		rank := i + 1

		if len(level) == 0 {
			violations = append(violations, internal.ValidationError{
				Field:   "levels",
				Level:   rank,
				Message: fmt.Sprintf("level %d has no authorizers", rank),
				Code:    string(internal.ErrCodeEmptyLevel),
			})
			continue
		}

		seen := make(map[string]bool, len(level))
		for _, ref := range level {
			if ref.PersonID == "" {
				violations = append(violations, internal.ValidationError{
					Field:   "levels",
					Level:   rank,
					Message: fmt.Sprintf("level %d contains an authorizer without a person id", rank),
					Code:    string(internal.ErrCodeValidationFailed),
				})
				continue
			}
			if seen[ref.PersonID] {
				violations = append(violations, internal.ValidationError{
					Field:   "levels",
					Level:   rank,
					Message: fmt.Sprintf("level %d contains authorizer %s more than once", rank, ref.PersonID),
					Code:    string(internal.ErrCodeDuplicateAuthorizer),
				})
			}
			seen[ref.PersonID] = true
		}
	}

	if len(violations) > 0 {
		return internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
			WithDetails(internal.ValidationErrors{Errors: violations})
	}
	return nil
}

// TreeResponse is the handler-facing view of a tree.
type TreeResponse struct {
	ID         int64   `json:"id"`
	PositionID int64   `json:"position_id"`
	Kind       string  `json:"kind"`
	Levels     []Level `json:"levels"`
}

func (t *Tree) ToResponse() TreeResponse {
	levels := t.Levels
	if levels == nil {
		levels = []Level{}
	}
	return TreeResponse{
		ID:         t.ID,
		PositionID: t.PositionID,
		Kind:       string(t.Kind),
		Levels:     levels,
	}
}
