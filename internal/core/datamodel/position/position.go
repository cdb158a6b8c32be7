package position

import "time"

// Position is a job slot an employee occupies; trees attach to positions.
type Position struct {
	ID           int64     `gorm:"primaryKey"`
	CompanyID    int64     `gorm:"column:company_id;not null;index"`
	Name         string    `gorm:"column:name;not null"`
	Description  string    `gorm:"column:description"`
	CanAuthorize bool      `gorm:"column:can_authorize;default:false"`
	IsActive     bool      `gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (Position) TableName() string {
	return "positions"
}
