package postgres

import (
	positionDatamodel "github.com/finadmin/expense-authorization/internal/core/datamodel/position"
	"github.com/finadmin/expense-authorization/internal/position"
	"gorm.io/gorm"
)

type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepository(db *gorm.DB) position.RepositoryAPI {
	return &PositionRepository{db: db}
}

func (r *PositionRepository) GetAll(companyID int64) ([]*positionDatamodel.Position, error) {
	var positions []*positionDatamodel.Position
	err := r.db.Where("company_id = ?", companyID).Order("name ASC").Find(&positions).Error
	return positions, err
}

func (r *PositionRepository) GetByID(id int64) (*positionDatamodel.Position, error) {
	var pos positionDatamodel.Position
	err := r.db.Where("id = ?", id).First(&pos).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &pos, nil
}

func (r *PositionRepository) Create(pos *positionDatamodel.Position) error {
	return r.db.Create(pos).Error
}
