package authtree

import "time"

// AuthorizationTree is the persistence model for one approval chain, keyed by
// (company, position, expense kind). Levels are always loaded with the tree.
type AuthorizationTree struct {
	ID         int64       `gorm:"primaryKey"`
	CompanyID  int64       `gorm:"column:company_id;not null;uniqueIndex:idx_tree_identity,priority:1"`
	PositionID int64       `gorm:"column:position_id;not null;uniqueIndex:idx_tree_identity,priority:2"`
	Kind       string      `gorm:"column:kind;not null;uniqueIndex:idx_tree_identity,priority:3"`
	Levels     []TreeLevel `gorm:"foreignKey:TreeID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time   `gorm:"column:created_at"`
	UpdatedAt  time.Time   `gorm:"column:updated_at"`
}

func (AuthorizationTree) TableName() string {
	return "authorization_trees"
}

// TreeLevel carries an explicit rank instead of relying on slice position, so
// reordering or deleting levels cannot desync rank from identity.
type TreeLevel struct {
	ID          int64             `gorm:"primaryKey"`
	TreeID      int64             `gorm:"column:tree_id;not null;index"`
	Rank        int               `gorm:"column:rank;not null"`
	Authorizers []LevelAuthorizer `gorm:"foreignKey:LevelID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at"`
}

func (TreeLevel) TableName() string {
	return "tree_levels"
}

// LevelAuthorizer references a person by id; the display name is a snapshot
// for UI rendering and plays no part in eligibility checks.
type LevelAuthorizer struct {
	ID          int64     `gorm:"primaryKey"`
	LevelID     int64     `gorm:"column:level_id;not null;index"`
	PersonID    string    `gorm:"column:person_id;not null"`
	DisplayName string    `gorm:"column:display_name"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (LevelAuthorizer) TableName() string {
	return "level_authorizers"
}
