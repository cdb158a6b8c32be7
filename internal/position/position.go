package position

import (
	"time"

	positionDatamodel "github.com/finadmin/expense-authorization/internal/core/datamodel/position"
)

// Position is a company role. CanAuthorize marks the roles the tree editor
// may place at a level.
type Position struct {
	ID           int64     `json:"id"`
	CompanyID    int64     `json:"company_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	CanAuthorize bool      `json:"can_authorize"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Position) ToResponse() PositionResponse {
	return PositionResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		CanAuthorize: p.CanAuthorize,
	}
}

func NewPosition(companyID int64, name, description string, canAuthorize bool) *Position {
	now := time.Now()
	return &Position{
		CompanyID:    companyID,
		Name:         name,
		Description:  description,
		CanAuthorize: canAuthorize,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func ToDataModel(p *Position) *positionDatamodel.Position {
	return &positionDatamodel.Position{
		ID:           p.ID,
		CompanyID:    p.CompanyID,
		Name:         p.Name,
		Description:  p.Description,
		CanAuthorize: p.CanAuthorize,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func FromDataModel(dm *positionDatamodel.Position) *Position {
	return &Position{
		ID:           dm.ID,
		CompanyID:    dm.CompanyID,
		Name:         dm.Name,
		Description:  dm.Description,
		CanAuthorize: dm.CanAuthorize,
		IsActive:     dm.IsActive,
		CreatedAt:    dm.CreatedAt,
		UpdatedAt:    dm.UpdatedAt,
	}
}
