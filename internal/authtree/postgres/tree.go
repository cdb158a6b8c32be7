package postgres

import (
	"time"

	"github.com/finadmin/expense-authorization/internal"
	"github.com/finadmin/expense-authorization/internal/authtree"
	treeDatamodel "github.com/finadmin/expense-authorization/internal/core/datamodel/authtree"
	"gorm.io/gorm"
)

// TreeRepository implements authtree.RepositoryAPI using GORM.
type TreeRepository struct {
	db *gorm.DB
}

func NewTreeRepository(db *gorm.DB) authtree.RepositoryAPI {
	return &TreeRepository{db: db}
}

func (r *TreeRepository) GetByIdentity(companyID, positionID int64, kind string) (*treeDatamodel.AuthorizationTree, error) {
	var tree treeDatamodel.AuthorizationTree
	err := r.db.
		Preload("Levels", func(db *gorm.DB) *gorm.DB {
			return db.Order("tree_levels.rank ASC")
		}).
		Preload("Levels.Authorizers").
		Where("company_id = ? AND position_id = ? AND kind = ?", companyID, positionID, kind).
		First(&tree).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrTreeNotFound
		}
		return nil, err
	}
	return &tree, nil
}

func (r *TreeRepository) Create(tree *treeDatamodel.AuthorizationTree) error {
	tree.CreatedAt = time.Now()
	tree.UpdatedAt = time.Now()
	return r.db.Create(tree).Error
}

// ReplaceLevels swaps the whole level set in one transaction so readers see
// either the old tree or the new one, never a partial mix.
func (r *TreeRepository) ReplaceLevels(treeID int64, levels []treeDatamodel.TreeLevel) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var levelIDs []int64
		if err := tx.Model(&treeDatamodel.TreeLevel{}).
			Where("tree_id = ?", treeID).
			Pluck("id", &levelIDs).Error; err != nil {
			return err
		}

		if len(levelIDs) > 0 {
			if err := tx.Where("level_id IN ?", levelIDs).
				Delete(&treeDatamodel.LevelAuthorizer{}).Error; err != nil {
				return err
			}
			if err := tx.Where("tree_id = ?", treeID).
				Delete(&treeDatamodel.TreeLevel{}).Error; err != nil {
				return err
			}
		}

		for i := range levels {
			levels[i].ID = 0
			levels[i].TreeID = treeID
			levels[i].CreatedAt = time.Now()
			for j := range levels[i].Authorizers {
				levels[i].Authorizers[j].ID = 0
				levels[i].Authorizers[j].CreatedAt = time.Now()
			}
			if err := tx.Create(&levels[i]).Error; err != nil {
				return err
			}
		}

		return tx.Model(&treeDatamodel.AuthorizationTree{}).
			Where("id = ?", treeID).
			Update("updated_at", time.Now()).Error
	})
}

func (r *TreeRepository) ListByCompany(companyID int64) ([]*treeDatamodel.AuthorizationTree, error) {
	var trees []*treeDatamodel.AuthorizationTree
	err := r.db.
		Preload("Levels", func(db *gorm.DB) *gorm.DB {
			return db.Order("tree_levels.rank ASC")
		}).
		Preload("Levels.Authorizers").
		Where("company_id = ?", companyID).
		Order("position_id ASC, kind ASC").
		Find(&trees).Error
	return trees, err
}

func (r *TreeRepository) IsAuthorizerForAnyTree(personID string, companyID int64) (bool, error) {
	var count int64
	err := r.db.Model(&treeDatamodel.LevelAuthorizer{}).
		Joins("JOIN tree_levels ON tree_levels.id = level_authorizers.level_id").
		Joins("JOIN authorization_trees ON authorization_trees.id = tree_levels.tree_id").
		Where("level_authorizers.person_id = ? AND authorization_trees.company_id = ?", personID, companyID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
