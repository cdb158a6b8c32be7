package expense

import "time"

// Expense is the persistence model for the workflow-relevant projection of an
// expense. NextAuthorizerNames is stored as a JSON-encoded array.
type Expense struct {
	ID                  int64      `gorm:"primaryKey"`
	CompanyID           int64      `gorm:"column:company_id;not null;index"`
	PositionID          int64      `gorm:"column:position_id;not null"`
	SubmitterID         string     `gorm:"column:submitter_id;not null;index"`
	SubmitterName       string     `gorm:"column:submitter_name"`
	Kind                string     `gorm:"column:kind;not null"`
	AmountCents         int64      `gorm:"column:amount_cents;not null"`
	Description         string     `gorm:"column:description;not null"`
	Status              string     `gorm:"column:status;default:'open';index"`
	CurrentLevel        int        `gorm:"column:current_level;default:0"`
	MaxLevelReached     bool       `gorm:"column:max_level_reached;default:false"`
	RejectionCount      int        `gorm:"column:rejection_count;default:0"`
	IsFirstRound        bool       `gorm:"column:is_first_round;default:true"`
	LastAuthorizerName  string     `gorm:"column:last_authorizer_name"`
	NextAuthorizerNames string     `gorm:"column:next_authorizer_names"`
	PendingPayment      bool       `gorm:"column:pending_payment;default:false"`
	RemainderCents      *int64     `gorm:"column:remainder_cents"`
	SubmittedAt         *time.Time `gorm:"column:submitted_at"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

// ApprovalDecision rows are append-only; they are never updated or deleted.
type ApprovalDecision struct {
	ID             string    `gorm:"primaryKey"`
	ExpenseID      int64     `gorm:"column:expense_id;not null;index"`
	AuthorizerID   string    `gorm:"column:authorizer_id;not null"`
	AuthorizerName string    `gorm:"column:authorizer_name"`
	Level          int       `gorm:"column:level;not null"`
	Outcome        string    `gorm:"column:outcome;not null"`
	Reason         *string   `gorm:"column:reason"`
	DecidedAt      time.Time `gorm:"column:decided_at"`
}

func (ApprovalDecision) TableName() string {
	return "approval_decisions"
}

// RejectionRecord stores the reason against the rejection round it ended.
type RejectionRecord struct {
	ID        int64     `gorm:"primaryKey"`
	ExpenseID int64     `gorm:"column:expense_id;not null;index"`
	Level     int       `gorm:"column:level;not null"`
	Round     int       `gorm:"column:round;not null"`
	Reason    string    `gorm:"column:reason;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (RejectionRecord) TableName() string {
	return "rejection_records"
}
