package authtree

import (
	"log/slog"

	"github.com/finadmin/expense-authorization/internal"
	treeDatamodel "github.com/finadmin/expense-authorization/internal/core/datamodel/authtree"
)

// RepositoryAPI is the storage contract for authorization trees. ReplaceLevels
// must swap the whole level set in a single transaction: a concurrent reader
// sees either the previous tree or the new one, never a mix.
type RepositoryAPI interface {
	GetByIdentity(companyID, positionID int64, kind string) (*treeDatamodel.AuthorizationTree, error)
	Create(tree *treeDatamodel.AuthorizationTree) error
	ReplaceLevels(treeID int64, levels []treeDatamodel.TreeLevel) error
	ListByCompany(companyID int64) ([]*treeDatamodel.AuthorizationTree, error)
	IsAuthorizerForAnyTree(personID string, companyID int64) (bool, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// GetTree returns the configured tree for a position and kind. A missing tree
// is a normal empty result surfaced as ErrTreeNotFound, not a failure.
func (s *Service) GetTree(companyID, positionID int64, kind Kind) (*Tree, error) {
	dm, err := s.repo.GetByIdentity(companyID, positionID, string(kind))
	if err != nil {
		return nil, err
	}
	return FromDataModel(dm), nil
}

// GetOrCreate returns the tree for a position and kind, lazily persisting an
// empty zero-level tree on first access so subsequent reads are stable.
func (s *Service) GetOrCreate(companyID, positionID int64, kind Kind) (*Tree, error) {
	dm, err := s.repo.GetByIdentity(companyID, positionID, string(kind))
	if err == nil {
		return FromDataModel(dm), nil
	}
	if err != internal.ErrTreeNotFound {
		s.logger.Error("failed to load authorization tree",
			"error", err,
			"company_id", companyID,
			"position_id", positionID,
			"kind", kind)
		return nil, err
	}

	created := &treeDatamodel.AuthorizationTree{
		CompanyID:  companyID,
		PositionID: positionID,
		Kind:       string(kind),
	}
	if err := s.repo.Create(created); err != nil {
		s.logger.Error("failed to create authorization tree",
			"error", err,
			"company_id", companyID,
			"position_id", positionID,
			"kind", kind)
		return nil, err
	}

	s.logger.Info("authorization tree created",
		"tree_id", created.ID,
		"company_id", companyID,
		"position_id", positionID,
		"kind", kind)

	return FromDataModel(created), nil
}

// ReplaceLevels validates and atomically rewrites a tree's whole level set.
// On validation failure the existing tree is left untouched and the error
// lists every offending level rank.
func (s *Service) ReplaceLevels(companyID, positionID int64, kind Kind, dto ReplaceLevelsDTO) (*Tree, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("tree edit rejected",
			"company_id", companyID,
			"position_id", positionID,
			"kind", kind,
			"error", err.GetDetailedMessage())
		return nil, err
	}

	tree, err := s.GetOrCreate(companyID, positionID, kind)
	if err != nil {
		return nil, err
	}

	levels := make([]treeDatamodel.TreeLevel, 0, len(dto.Levels))
	for i, refs := range dto.Levels {
		level := treeDatamodel.TreeLevel{
			TreeID: tree.ID,
			Rank:   i + 1,
		}
		for _, ref := range refs {
			level.Authorizers = append(level.Authorizers, treeDatamodel.LevelAuthorizer{
				PersonID:    ref.PersonID,
				DisplayName: ref.DisplayName,
			})
		}
		levels = append(levels, level)
	}

	if err := s.repo.ReplaceLevels(tree.ID, levels); err != nil {
		s.logger.Error("failed to replace tree levels", "error", err, "tree_id", tree.ID)
		return nil, err
	}

	s.logger.Info("tree levels replaced",
		"tree_id", tree.ID,
		"position_id", positionID,
		"kind", kind,
		"level_count", len(levels))

	return s.GetTree(companyID, positionID, kind)
}

// ListTrees returns every configured tree in a company for the admin screen.
func (s *Service) ListTrees(companyID int64) ([]*Tree, error) {
	dms, err := s.repo.ListByCompany(companyID)
	if err != nil {
		s.logger.Error("failed to list authorization trees", "error", err, "company_id", companyID)
		return nil, err
	}

	trees := make([]*Tree, len(dms))
	for i, dm := range dms {
		trees[i] = FromDataModel(dm)
	}
	return trees, nil
}

// IsAuthorizerForAnyTree reports whether the person appears at any level of
// any tree in the company. Used to gate the authorization screens.
func (s *Service) IsAuthorizerForAnyTree(personID string, companyID int64) (bool, error) {
	ok, err := s.repo.IsAuthorizerForAnyTree(personID, companyID)
	if err != nil {
		s.logger.Error("failed to resolve authorizer membership",
			"error", err,
			"person_id", personID,
			"company_id", companyID)
		return false, err
	}
	return ok, nil
}

// EligibleAt exposes the level membership read used by the transition engine.
func (s *Service) EligibleAt(tree *Tree, rank int) []Authorizer {
	return tree.EligibleAt(rank)
}
