package authtree

import (
	"time"

	treeDatamodel "github.com/finadmin/expense-authorization/internal/core/datamodel/authtree"
)

// Kind distinguishes the two approval chains a position can carry: one for
// already-spent funds, one for cash advances.
type Kind string

const (
	KindExercised Kind = "exercised"
	KindAdvance   Kind = "advance"
)

func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindExercised, KindAdvance:
		return Kind(s), true
	}
	return "", false
}

// Authorizer references a person occupying an authorizing-capable position.
// DisplayName is for UI rendering only and never drives eligibility.
type Authorizer struct {
	PersonID    string `json:"person_id"`
	DisplayName string `json:"display_name"`
}

// Level holds the set of authorizers any one of whom may approve to advance
// an expense past this rank.
type Level struct {
	Rank        int          `json:"rank"`
	Authorizers []Authorizer `json:"authorizers"`
}

// Tree is the ordered approval chain configured per (company, position, kind).
// Level ranks are contiguous 1..N; a freshly created tree has zero levels.
type Tree struct {
	ID         int64     `json:"id"`
	CompanyID  int64     `json:"company_id"`
	PositionID int64     `json:"position_id"`
	Kind       Kind      `json:"kind"`
	Levels     []Level   `json:"levels"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (t *Tree) HasLevels() bool {
	return len(t.Levels) > 0
}

func (t *Tree) LastLevelRank() int {
	return len(t.Levels)
}

func (t *Tree) LevelAt(rank int) (*Level, bool) {
	for i := range t.Levels {
		if t.Levels[i].Rank == rank {
			return &t.Levels[i], true
		}
	}
	return nil, false
}

// EligibleAt returns the authorizer set at the given rank. A zero-level tree
// or an out-of-range rank yields an empty set, never an error.
func (t *Tree) EligibleAt(rank int) []Authorizer {
	level, ok := t.LevelAt(rank)
	if !ok {
		return nil
	}
	return level.Authorizers
}

func (t *Tree) IsEligible(personID string, rank int) bool {
	for _, a := range t.EligibleAt(rank) {
		if a.PersonID == personID {
			return true
		}
	}
	return false
}

// AuthorizerNamesAt returns the display names at a rank, for the
// next-authorizer fields shown to submitters.
func (t *Tree) AuthorizerNamesAt(rank int) []string {
	eligible := t.EligibleAt(rank)
	names := make([]string, 0, len(eligible))
	for _, a := range eligible {
		names = append(names, a.DisplayName)
	}
	return names
}

func ToDataModel(t *Tree) *treeDatamodel.AuthorizationTree {
	dm := &treeDatamodel.AuthorizationTree{
		ID:         t.ID,
		CompanyID:  t.CompanyID,
		PositionID: t.PositionID,
		Kind:       string(t.Kind),
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	for _, level := range t.Levels {
		dmLevel := treeDatamodel.TreeLevel{
			TreeID: t.ID,
			Rank:   level.Rank,
		}
		for _, a := range level.Authorizers {
			dmLevel.Authorizers = append(dmLevel.Authorizers, treeDatamodel.LevelAuthorizer{
				PersonID:    a.PersonID,
				DisplayName: a.DisplayName,
			})
		}
		dm.Levels = append(dm.Levels, dmLevel)
	}
	return dm
}

func FromDataModel(dm *treeDatamodel.AuthorizationTree) *Tree {
	t := &Tree{
		ID:         dm.ID,
		CompanyID:  dm.CompanyID,
		PositionID: dm.PositionID,
		Kind:       Kind(dm.Kind),
		CreatedAt:  dm.CreatedAt,
		UpdatedAt:  dm.UpdatedAt,
	}
	for _, dmLevel := range dm.Levels {
		level := Level{Rank: dmLevel.Rank}
		for _, a := range dmLevel.Authorizers {
			level.Authorizers = append(level.Authorizers, Authorizer{
				PersonID:    a.PersonID,
				DisplayName: a.DisplayName,
			})
		}
		t.Levels = append(t.Levels, level)
	}
	return t
}
