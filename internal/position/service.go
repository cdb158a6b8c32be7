package position

import (
	"log/slog"

	"github.com/finadmin/expense-authorization/internal"
	positionDatamodel "github.com/finadmin/expense-authorization/internal/core/datamodel/position"
)

type RepositoryAPI interface {
	GetAll(companyID int64) ([]*positionDatamodel.Position, error)
	GetByID(id int64) (*positionDatamodel.Position, error)
	Create(position *positionDatamodel.Position) error
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

// ListPositions returns active positions in the company; authorizersOnly
// restricts the list to roles that may appear in a tree.
func (s *Service) ListPositions(companyID int64, authorizersOnly bool) ([]PositionResponse, error) {
	dms, err := s.repo.GetAll(companyID)
	if err != nil {
		s.logger.Error("failed to get positions from repository", "error", err, "company_id", companyID)
		return nil, err
	}

	var responses []PositionResponse
	for _, dm := range dms {
		pos := FromDataModel(dm)
		if !pos.IsActive {
			continue
		}
		if authorizersOnly && !pos.CanAuthorize {
			continue
		}
		responses = append(responses, pos.ToResponse())
	}

	return responses, nil
}

// GetPosition returns one position; inactive or missing rows both surface as
// not found.
func (s *Service) GetPosition(companyID, id int64) (*Position, error) {
	dm, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get position", "error", err, "position_id", id)
		return nil, err
	}
	if dm == nil || dm.CompanyID != companyID {
		return nil, internal.ErrPositionNotFound
	}

	pos := FromDataModel(dm)
	if !pos.IsActive {
		return nil, internal.ErrPositionNotFound
	}
	return pos, nil
}

// CanAuthorize reports whether the position may be placed at a tree level.
func (s *Service) CanAuthorize(companyID, id int64) (bool, error) {
	pos, err := s.GetPosition(companyID, id)
	if err != nil {
		if err == internal.ErrPositionNotFound {
			return false, nil
		}
		return false, err
	}
	return pos.CanAuthorize, nil
}
