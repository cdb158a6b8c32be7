package expense

import (
	"context"
	"log/slog"
	"time"

	"github.com/finadmin/expense-authorization/internal"
	"github.com/finadmin/expense-authorization/internal/auth"
	"github.com/finadmin/expense-authorization/internal/authtree"
	expenseDatamodel "github.com/finadmin/expense-authorization/internal/core/datamodel/expense"
	"github.com/finadmin/expense-authorization/internal/core/events"
	"github.com/google/uuid"
)

// Repository is the storage contract for the transition engine. ApplyTransition
// is a compare-and-swap: the update only lands when the stored status and
// current level still match what the caller observed, otherwise it returns
// ErrLevelAlreadyDecided and writes nothing.
type Repository interface {
	Create(exp *expenseDatamodel.Expense) error
	GetByID(id int64) (*expenseDatamodel.Expense, error)
	ListBySubmitter(companyID int64, submitterID string, limit, offset int) ([]*expenseDatamodel.Expense, error)
	ListInAuthorization(companyID int64, limit, offset int) ([]*expenseDatamodel.Expense, error)
	ApplyTransition(id int64, expectedStatus string, expectedLevel int, updates map[string]interface{}) error
	AppendDecision(dec *expenseDatamodel.ApprovalDecision) error
	CreateRejection(rec *expenseDatamodel.RejectionRecord) error
	ListDecisions(expenseID int64) ([]*expenseDatamodel.ApprovalDecision, error)
	ListRejections(expenseID int64) ([]*expenseDatamodel.RejectionRecord, error)
}

// TreeResolver resolves the authorization tree an expense walks. Trees are
// re-read on every decision so edits made mid-flight take effect immediately.
type TreeResolver interface {
	GetTree(companyID, positionID int64, kind authtree.Kind) (*authtree.Tree, error)
}

// Service drives the approval state machine.
type Service struct {
	repo     Repository
	trees    TreeResolver
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo Repository, trees TreeResolver, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		trees:    trees,
		eventBus: eventBus,
		logger:   logger,
	}
}

// CreateExpense records a draft. Drafts do not touch the authorization tree;
// Submit does.
func (s *Service) CreateExpense(dto CreateExpenseDTO, caller *auth.User) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("expense validation failed", "error", err, "person_id", caller.PersonID)
		return nil, err
	}

	kind, _ := authtree.ParseKind(dto.Kind)

	now := time.Now()
	dm := &expenseDatamodel.Expense{
		CompanyID:           caller.CompanyID,
		PositionID:          dto.PositionID,
		SubmitterID:         caller.PersonID,
		SubmitterName:       caller.Name,
		Kind:                string(kind),
		AmountCents:         dto.AmountCents,
		Description:         dto.Description,
		Status:              StatusOpen,
		IsFirstRound:        true,
		NextAuthorizerNames: "[]",
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.Create(dm); err != nil {
		s.logger.Error("failed to create expense", "error", err, "person_id", caller.PersonID)
		return nil, err
	}

	s.logger.Info("expense created",
		"expense_id", dm.ID,
		"person_id", caller.PersonID,
		"kind", kind,
		"amount_cents", dto.AmountCents)

	return FromDataModel(dm), nil
}

// Submit moves an open expense into authorization at level 1. A tree with zero
// levels blocks submission; the expense stays open and the submitter is told
// to get the tree configured first.
func (s *Service) Submit(ctx context.Context, expenseID int64, caller *auth.User) (*Expense, error) {
	exp, err := s.getOwned(expenseID, caller)
	if err != nil {
		return nil, err
	}

	if exp.Status != StatusOpen {
		s.logger.Warn("submit on non-open expense", "expense_id", expenseID, "status", exp.Status)
		return nil, internal.ErrInvalidExpenseStatus
	}

	tree, err := s.resolveTree(exp)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":                StatusInAuthorization,
		"current_level":         1,
		"next_authorizer_names": encodeNames(tree.AuthorizerNamesAt(1)),
		"submitted_at":          now,
		"updated_at":            now,
	}
	if err := s.repo.ApplyTransition(expenseID, StatusOpen, exp.CurrentLevel, updates); err != nil {
		return nil, err
	}

	s.logger.Info("expense submitted",
		"expense_id", expenseID,
		"person_id", caller.PersonID,
		"level_count", tree.LastLevelRank())

	s.publishStatusChanged(ctx, exp, StatusInAuthorization, caller)

	return s.reload(expenseID)
}

// Approve records the caller's approval at the level they observed. The last
// level flips the expense to authorized; any earlier level advances the
// pointer. Concurrent deciders race on the compare-and-swap and exactly one
// wins.
func (s *Service) Approve(ctx context.Context, expenseID int64, caller *auth.User, observedLevel int) (*Expense, error) {
	exp, tree, err := s.decisionPreflight(expenseID, caller, observedLevel)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lastLevel := exp.CurrentLevel == tree.LastLevelRank()

	updates := map[string]interface{}{
		"last_authorizer_name": caller.Name,
		"updated_at":           now,
	}
	if lastLevel {
		updates["status"] = StatusAuthorized
		updates["max_level_reached"] = true
		updates["next_authorizer_names"] = "[]"
	} else {
		updates["current_level"] = exp.CurrentLevel + 1
		updates["next_authorizer_names"] = encodeNames(tree.AuthorizerNamesAt(exp.CurrentLevel + 1))
	}

	if err := s.repo.ApplyTransition(expenseID, StatusInAuthorization, observedLevel, updates); err != nil {
		s.logger.Warn("approve lost the transition race",
			"expense_id", expenseID,
			"person_id", caller.PersonID,
			"observed_level", observedLevel,
			"error", err)
		return nil, err
	}

	s.appendDecision(exp.ID, caller, exp.CurrentLevel, OutcomeApprove, nil, now)

	if lastLevel {
		s.logger.Info("expense fully authorized",
			"expense_id", expenseID,
			"person_id", caller.PersonID,
			"level", exp.CurrentLevel)
		s.publishStatusChanged(ctx, exp, StatusAuthorized, caller)
	} else {
		s.logger.Info("expense advanced a level",
			"expense_id", expenseID,
			"person_id", caller.PersonID,
			"new_level", exp.CurrentLevel+1)
		s.eventBus.Publish(ctx, events.NewExpenseLevelAdvancedEvent(
			expenseID, exp.CurrentLevel+1, tree.AuthorizerNamesAt(exp.CurrentLevel+1)))
	}

	return s.reload(expenseID)
}

// Reject ends the current round. The reason is mandatory; it is what the
// submitter sees when deciding whether to fix and resubmit.
func (s *Service) Reject(ctx context.Context, expenseID int64, caller *auth.User, observedLevel int, reason string) (*Expense, error) {
	if reason == "" {
		return nil, internal.ErrReasonRequired
	}

	exp, _, err := s.decisionPreflight(expenseID, caller, observedLevel)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":                StatusRejected,
		"rejection_count":       exp.RejectionCount + 1,
		"is_first_round":        false,
		"last_authorizer_name":  caller.Name,
		"next_authorizer_names": "[]",
		"updated_at":            now,
	}

	if err := s.repo.ApplyTransition(expenseID, StatusInAuthorization, observedLevel, updates); err != nil {
		s.logger.Warn("reject lost the transition race",
			"expense_id", expenseID,
			"person_id", caller.PersonID,
			"observed_level", observedLevel,
			"error", err)
		return nil, err
	}

	s.appendDecision(exp.ID, caller, exp.CurrentLevel, OutcomeReject, &reason, now)

	if err := s.repo.CreateRejection(&expenseDatamodel.RejectionRecord{
		ExpenseID: expenseID,
		Level:     exp.CurrentLevel,
		Round:     exp.RejectionCount + 1,
		Reason:    reason,
		CreatedAt: now,
	}); err != nil {
		s.logger.Error("failed to record rejection", "error", err, "expense_id", expenseID)
	}

	s.logger.Info("expense rejected",
		"expense_id", expenseID,
		"person_id", caller.PersonID,
		"level", exp.CurrentLevel,
		"rejection_count", exp.RejectionCount+1)

	s.eventBus.Publish(ctx, events.NewExpenseRejectedEvent(
		expenseID, exp.CurrentLevel, reason, exp.RejectionCount+1))
	s.publishStatusChanged(ctx, exp, StatusRejected, caller)

	return s.reload(expenseID)
}

// Resubmit restarts a rejected expense at level 1. The rejection count and the
// first-round flag carry over so the history stays honest.
func (s *Service) Resubmit(ctx context.Context, expenseID int64, caller *auth.User) (*Expense, error) {
	exp, err := s.getOwned(expenseID, caller)
	if err != nil {
		return nil, err
	}

	if exp.Status != StatusRejected {
		s.logger.Warn("resubmit on non-rejected expense", "expense_id", expenseID, "status", exp.Status)
		return nil, internal.ErrInvalidExpenseStatus
	}

	tree, err := s.resolveTree(exp)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":                StatusInAuthorization,
		"current_level":         1,
		"max_level_reached":     false,
		"next_authorizer_names": encodeNames(tree.AuthorizerNamesAt(1)),
		"submitted_at":          now,
		"updated_at":            now,
	}
	if err := s.repo.ApplyTransition(expenseID, StatusRejected, exp.CurrentLevel, updates); err != nil {
		return nil, err
	}

	s.logger.Info("expense resubmitted",
		"expense_id", expenseID,
		"person_id", caller.PersonID,
		"round", exp.RejectionCount+1)

	s.publishStatusChanged(ctx, exp, StatusInAuthorization, caller)

	return s.reload(expenseID)
}

// Cancel withdraws an expense from any state before money moved. Cancelling an
// already-cancelled expense is a no-op, not an error.
func (s *Service) Cancel(ctx context.Context, expenseID int64, caller *auth.User) (*Expense, error) {
	exp, err := s.getOwned(expenseID, caller)
	if err != nil {
		return nil, err
	}

	if exp.Status == StatusCancelled {
		return exp, nil
	}
	if !exp.CanBeCancelled() {
		s.logger.Warn("cancel on non-cancellable expense", "expense_id", expenseID, "status", exp.Status)
		return nil, internal.ErrInvalidExpenseStatus
	}

	updates := map[string]interface{}{
		"status":                StatusCancelled,
		"pending_payment":       false,
		"next_authorizer_names": "[]",
		"updated_at":            time.Now(),
	}
	if err := s.repo.ApplyTransition(expenseID, exp.Status, exp.CurrentLevel, updates); err != nil {
		return nil, err
	}

	s.logger.Info("expense cancelled", "expense_id", expenseID, "person_id", caller.PersonID)
	s.publishStatusChanged(ctx, exp, StatusCancelled, caller)

	return s.reload(expenseID)
}

// QueueForPayment hands a fully authorized expense to the payment queue.
func (s *Service) QueueForPayment(ctx context.Context, expenseID int64, caller *auth.User) (*Expense, error) {
	return s.paymentTransition(ctx, expenseID, caller, StatusAuthorized, map[string]interface{}{
		"status":          StatusPendingPayment,
		"pending_payment": true,
	})
}

// MarkPaid records that the payout happened. For exercised expenses this is
// the end of the road; an advance still owes a remainder settlement.
func (s *Service) MarkPaid(ctx context.Context, expenseID int64, caller *auth.User) (*Expense, error) {
	return s.paymentTransition(ctx, expenseID, caller, StatusPendingPayment, map[string]interface{}{
		"status":          StatusPaid,
		"pending_payment": false,
	})
}

// RecordRemainder settles a paid advance: a positive remainder starts the
// refund leg, zero closes the expense outright.
func (s *Service) RecordRemainder(ctx context.Context, expenseID int64, caller *auth.User, dto RemainderDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exp, err := s.get(expenseID, caller)
	if err != nil {
		return nil, err
	}
	if exp.Kind != authtree.KindAdvance {
		s.logger.Warn("remainder on non-advance expense", "expense_id", expenseID, "kind", exp.Kind)
		return nil, internal.ErrInvalidExpenseStatus
	}

	next := StatusFinished
	if dto.RemainderCents > 0 {
		next = StatusRefunding
	}

	return s.paymentTransition(ctx, expenseID, caller, StatusPaid, map[string]interface{}{
		"status":          next,
		"remainder_cents": dto.RemainderCents,
	})
}

// ConfirmRefund closes the refund leg of an advance.
func (s *Service) ConfirmRefund(ctx context.Context, expenseID int64, caller *auth.User) (*Expense, error) {
	return s.paymentTransition(ctx, expenseID, caller, StatusRefunding, map[string]interface{}{
		"status": StatusFinished,
	})
}

// GetExpense returns an expense the caller may see: their own, or any expense
// in their company when they hold the decide or payment capability.
func (s *Service) GetExpense(expenseID int64, caller *auth.User, checker auth.PermissionChecker) (*Expense, error) {
	exp, err := s.get(expenseID, caller)
	if err != nil {
		return nil, err
	}

	if exp.SubmitterID != caller.PersonID &&
		!checker.CanDecideExpenses(caller.Permissions) &&
		!checker.CanManagePayments(caller.Permissions) {
		s.logger.Warn("unauthorized expense access",
			"expense_id", expenseID,
			"person_id", caller.PersonID,
			"submitter_id", exp.SubmitterID)
		return nil, internal.ErrUnauthorizedAccess
	}

	return exp, nil
}

// GetHistory returns the expense with its full decision and rejection trail.
func (s *Service) GetHistory(expenseID int64, caller *auth.User, checker auth.PermissionChecker) (*HistoryResponse, error) {
	exp, err := s.GetExpense(expenseID, caller, checker)
	if err != nil {
		return nil, err
	}

	decisionDMs, err := s.repo.ListDecisions(expenseID)
	if err != nil {
		s.logger.Error("failed to list decisions", "error", err, "expense_id", expenseID)
		return nil, err
	}
	rejectionDMs, err := s.repo.ListRejections(expenseID)
	if err != nil {
		s.logger.Error("failed to list rejections", "error", err, "expense_id", expenseID)
		return nil, err
	}

	decisions := make([]*ApprovalDecision, len(decisionDMs))
	for i, dm := range decisionDMs {
		decisions[i] = DecisionFromDataModel(dm)
	}
	rejections := make([]*RejectionRecord, len(rejectionDMs))
	for i, dm := range rejectionDMs {
		rejections[i] = RejectionFromDataModel(dm)
	}

	return &HistoryResponse{
		Expense:    exp,
		Decisions:  decisions,
		Rejections: rejections,
	}, nil
}

// ListForSubmitter returns the caller's own expenses, newest first.
func (s *Service) ListForSubmitter(caller *auth.User, limit, offset int) ([]*Expense, error) {
	dms, err := s.repo.ListBySubmitter(caller.CompanyID, caller.PersonID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err, "person_id", caller.PersonID)
		return nil, err
	}
	return fromDataModels(dms), nil
}

// ListPendingForAuthorizer returns the caller's inbox: every in-authorization
// expense in the company whose current level the caller is eligible to decide.
// Trees are resolved per (position, kind) pair once per call.
func (s *Service) ListPendingForAuthorizer(caller *auth.User, limit, offset int) ([]*Expense, error) {
	dms, err := s.repo.ListInAuthorization(caller.CompanyID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list pending expenses", "error", err, "company_id", caller.CompanyID)
		return nil, err
	}

	type treeKey struct {
		positionID int64
		kind       string
	}
	trees := make(map[treeKey]*authtree.Tree)

	var inbox []*Expense
	for _, dm := range dms {
		key := treeKey{positionID: dm.PositionID, kind: dm.Kind}
		tree, ok := trees[key]
		if !ok {
			tree, err = s.trees.GetTree(dm.CompanyID, dm.PositionID, authtree.Kind(dm.Kind))
			if err != nil {
				if err == internal.ErrTreeNotFound {
					trees[key] = nil
					continue
				}
				return nil, err
			}
			trees[key] = tree
		}
		if tree == nil {
			continue
		}
		if tree.IsEligible(caller.PersonID, dm.CurrentLevel) {
			inbox = append(inbox, FromDataModel(dm))
		}
	}

	return inbox, nil
}

func (s *Service) get(expenseID int64, caller *auth.User) (*Expense, error) {
	dm, err := s.repo.GetByID(expenseID)
	if err != nil {
		return nil, err
	}
	exp := FromDataModel(dm)
	if exp.CompanyID != caller.CompanyID {
		return nil, internal.ErrExpenseNotFound
	}
	return exp, nil
}

// getOwned loads an expense and checks the caller is its submitter. Used by
// the operations only the submitter may perform.
func (s *Service) getOwned(expenseID int64, caller *auth.User) (*Expense, error) {
	exp, err := s.get(expenseID, caller)
	if err != nil {
		return nil, err
	}
	if exp.SubmitterID != caller.PersonID {
		s.logger.Warn("caller is not the submitter",
			"expense_id", expenseID,
			"person_id", caller.PersonID,
			"submitter_id", exp.SubmitterID)
		return nil, internal.ErrUnauthorizedAccess
	}
	return exp, nil
}

// decisionPreflight runs the shared guards for Approve and Reject: status,
// observed level, tree presence and caller eligibility. The compare-and-swap
// afterwards still protects against races the preflight cannot see.
func (s *Service) decisionPreflight(expenseID int64, caller *auth.User, observedLevel int) (*Expense, *authtree.Tree, error) {
	exp, err := s.get(expenseID, caller)
	if err != nil {
		return nil, nil, err
	}

	if exp.Status != StatusInAuthorization {
		return nil, nil, internal.ErrInvalidExpenseStatus
	}
	if observedLevel != exp.CurrentLevel {
		return nil, nil, internal.ErrLevelAlreadyDecided
	}

	tree, err := s.resolveTree(exp)
	if err != nil {
		return nil, nil, err
	}
	if !tree.IsEligible(caller.PersonID, exp.CurrentLevel) {
		return nil, nil, internal.ErrNotEligibleAuthorizer
	}

	return exp, tree, nil
}

func (s *Service) resolveTree(exp *Expense) (*authtree.Tree, error) {
	tree, err := s.trees.GetTree(exp.CompanyID, exp.PositionID, exp.Kind)
	if err != nil {
		if err == internal.ErrTreeNotFound {
			return nil, internal.ErrNoAuthorizationTree
		}
		return nil, err
	}
	if !tree.HasLevels() {
		return nil, internal.ErrNoAuthorizationTree
	}
	return tree, nil
}

func (s *Service) paymentTransition(ctx context.Context, expenseID int64, caller *auth.User, expectedStatus string, updates map[string]interface{}) (*Expense, error) {
	exp, err := s.get(expenseID, caller)
	if err != nil {
		return nil, err
	}
	if exp.Status != expectedStatus {
		s.logger.Warn("payment transition from wrong status",
			"expense_id", expenseID,
			"status", exp.Status,
			"expected", expectedStatus)
		return nil, internal.ErrInvalidExpenseStatus
	}

	updates["updated_at"] = time.Now()
	if err := s.repo.ApplyTransition(expenseID, expectedStatus, exp.CurrentLevel, updates); err != nil {
		return nil, err
	}

	newStatus, _ := updates["status"].(string)
	s.logger.Info("payment status changed",
		"expense_id", expenseID,
		"old_status", expectedStatus,
		"new_status", newStatus)
	s.publishStatusChanged(ctx, exp, newStatus, caller)

	return s.reload(expenseID)
}

func (s *Service) appendDecision(expenseID int64, caller *auth.User, level int, outcome string, reason *string, decidedAt time.Time) {
	if err := s.repo.AppendDecision(&expenseDatamodel.ApprovalDecision{
		ID:             uuid.New().String(),
		ExpenseID:      expenseID,
		AuthorizerID:   caller.PersonID,
		AuthorizerName: caller.Name,
		Level:          level,
		Outcome:        outcome,
		Reason:         reason,
		DecidedAt:      decidedAt,
	}); err != nil {
		// the transition already landed; a missing trail row is logged, not rolled back
		s.logger.Error("failed to append decision",
			"error", err,
			"expense_id", expenseID,
			"outcome", outcome)
	}
}

func (s *Service) publishStatusChanged(ctx context.Context, exp *Expense, newStatus string, caller *auth.User) {
	s.eventBus.Publish(ctx, events.NewExpenseStatusChangedEvent(
		exp.ID, exp.Status, newStatus, caller.PersonID, caller.Name, string(exp.Kind)))
}

func (s *Service) reload(expenseID int64) (*Expense, error) {
	dm, err := s.repo.GetByID(expenseID)
	if err != nil {
		return nil, err
	}
	return FromDataModel(dm), nil
}

func fromDataModels(dms []*expenseDatamodel.Expense) []*Expense {
	out := make([]*Expense, len(dms))
	for i, dm := range dms {
		out[i] = FromDataModel(dm)
	}
	return out
}
