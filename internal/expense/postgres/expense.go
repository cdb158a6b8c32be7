package postgres

import (
	"github.com/finadmin/expense-authorization/internal"
	expenseDomain "github.com/finadmin/expense-authorization/internal/expense"

	expenseDatamodel "github.com/finadmin/expense-authorization/internal/core/datamodel/expense"
	"gorm.io/gorm"
)

// ExpenseRepository implements the expense.Repository interface using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expenseDomain.Repository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(exp *expenseDatamodel.Expense) error {
	return r.db.Create(exp).Error
}

func (r *ExpenseRepository) GetByID(id int64) (*expenseDatamodel.Expense, error) {
	var exp expenseDatamodel.Expense
	err := r.db.Where("id = ?", id).First(&exp).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, err
	}
	return &exp, nil
}

func (r *ExpenseRepository) ListBySubmitter(companyID int64, submitterID string, limit, offset int) ([]*expenseDatamodel.Expense, error) {
	var expenses []*expenseDatamodel.Expense
	err := r.db.Where("company_id = ? AND submitter_id = ?", companyID, submitterID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&expenses).Error
	return expenses, err
}

func (r *ExpenseRepository) ListInAuthorization(companyID int64, limit, offset int) ([]*expenseDatamodel.Expense, error) {
	var expenses []*expenseDatamodel.Expense
	err := r.db.Where("company_id = ? AND status = ?", companyID, expenseDomain.StatusInAuthorization).
		Order("submitted_at ASC"). // FIFO for the inbox
		Limit(limit).
		Offset(offset).
		Find(&expenses).Error
	return expenses, err
}

// ApplyTransition is the engine's compare-and-swap. The conditional UPDATE
// only matches while the row still carries the status and level the caller
// observed; when a concurrent decision got there first, zero rows match and
// the caller gets ErrLevelAlreadyDecided.
func (r *ExpenseRepository) ApplyTransition(id int64, expectedStatus string, expectedLevel int, updates map[string]interface{}) error {
	result := r.db.Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND status = ? AND current_level = ?", id, expectedStatus, expectedLevel).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&expenseDatamodel.Expense{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return internal.ErrExpenseNotFound
		}
		return internal.ErrLevelAlreadyDecided
	}
	return nil
}

func (r *ExpenseRepository) AppendDecision(dec *expenseDatamodel.ApprovalDecision) error {
	return r.db.Create(dec).Error
}

func (r *ExpenseRepository) CreateRejection(rec *expenseDatamodel.RejectionRecord) error {
	return r.db.Create(rec).Error
}

func (r *ExpenseRepository) ListDecisions(expenseID int64) ([]*expenseDatamodel.ApprovalDecision, error) {
	var decisions []*expenseDatamodel.ApprovalDecision
	err := r.db.Where("expense_id = ?", expenseID).
		Order("decided_at ASC").
		Find(&decisions).Error
	return decisions, err
}

func (r *ExpenseRepository) ListRejections(expenseID int64) ([]*expenseDatamodel.RejectionRecord, error) {
	var rejections []*expenseDatamodel.RejectionRecord
	err := r.db.Where("expense_id = ?", expenseID).
		Order("created_at ASC").
		Find(&rejections).Error
	return rejections, err
}
