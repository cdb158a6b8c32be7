package expense_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/finadmin/expense-authorization/internal"
	"github.com/finadmin/expense-authorization/internal/auth"
	"github.com/finadmin/expense-authorization/internal/authtree"
	expenseDatamodel "github.com/finadmin/expense-authorization/internal/core/datamodel/expense"
	"github.com/finadmin/expense-authorization/internal/core/events"
	"github.com/finadmin/expense-authorization/internal/expense"
)

// Mock repository for testing. ApplyTransition holds the same
// compare-and-swap contract as the real repository, under a mutex so the
// concurrency specs exercise a genuine race.
type mockExpenseRepository struct {
	mu         sync.Mutex
	expenses   map[int64]*expenseDatamodel.Expense
	decisions  []*expenseDatamodel.ApprovalDecision
	rejections []*expenseDatamodel.RejectionRecord
	nextID     int64

	createError     error
	getError        error
	transitionError error
}

func newMockExpenseRepository() *mockExpenseRepository {
	return &mockExpenseRepository{
		expenses: make(map[int64]*expenseDatamodel.Expense),
		nextID:   1,
	}
}

func (m *mockExpenseRepository) Create(exp *expenseDatamodel.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createError != nil {
		return m.createError
	}
	exp.ID = m.nextID
	m.nextID++
	m.expenses[exp.ID] = exp
	return nil
}

func (m *mockExpenseRepository) GetByID(id int64) (*expenseDatamodel.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	exp, exists := m.expenses[id]
	if !exists {
		return nil, internal.ErrExpenseNotFound
	}
	copied := *exp
	return &copied, nil
}

func (m *mockExpenseRepository) ListBySubmitter(companyID int64, submitterID string, limit, offset int) ([]*expenseDatamodel.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*expenseDatamodel.Expense
	for _, exp := range m.expenses {
		if exp.CompanyID == companyID && exp.SubmitterID == submitterID {
			copied := *exp
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockExpenseRepository) ListInAuthorization(companyID int64, limit, offset int) ([]*expenseDatamodel.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*expenseDatamodel.Expense
	for _, exp := range m.expenses {
		if exp.CompanyID == companyID && exp.Status == expense.StatusInAuthorization {
			copied := *exp
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockExpenseRepository) ApplyTransition(id int64, expectedStatus string, expectedLevel int, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transitionError != nil {
		return m.transitionError
	}

	exp, exists := m.expenses[id]
	if !exists {
		return internal.ErrExpenseNotFound
	}
	if exp.Status != expectedStatus || exp.CurrentLevel != expectedLevel {
		return internal.ErrLevelAlreadyDecided
	}

	for key, value := range updates {
		switch key {
		case "status":
			exp.Status = value.(string)
		case "current_level":
			exp.CurrentLevel = value.(int)
		case "max_level_reached":
			exp.MaxLevelReached = value.(bool)
		case "rejection_count":
			exp.RejectionCount = value.(int)
		case "is_first_round":
			exp.IsFirstRound = value.(bool)
		case "last_authorizer_name":
			exp.LastAuthorizerName = value.(string)
		case "next_authorizer_names":
			exp.NextAuthorizerNames = value.(string)
		case "pending_payment":
			exp.PendingPayment = value.(bool)
		case "remainder_cents":
			cents := value.(int64)
			exp.RemainderCents = &cents
		case "submitted_at":
			at := value.(time.Time)
			exp.SubmittedAt = &at
		case "updated_at":
			exp.UpdatedAt = value.(time.Time)
		}
	}
	return nil
}

func (m *mockExpenseRepository) AppendDecision(dec *expenseDatamodel.ApprovalDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, dec)
	return nil
}

func (m *mockExpenseRepository) CreateRejection(rec *expenseDatamodel.RejectionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections = append(m.rejections, rec)
	return nil
}

func (m *mockExpenseRepository) ListDecisions(expenseID int64) ([]*expenseDatamodel.ApprovalDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*expenseDatamodel.ApprovalDecision
	for _, dec := range m.decisions {
		if dec.ExpenseID == expenseID {
			out = append(out, dec)
		}
	}
	return out, nil
}

func (m *mockExpenseRepository) ListRejections(expenseID int64) ([]*expenseDatamodel.RejectionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*expenseDatamodel.RejectionRecord
	for _, rec := range m.rejections {
		if rec.ExpenseID == expenseID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Mock tree resolver serving configured trees per (position, kind)
type mockTreeResolver struct {
	trees map[string]*authtree.Tree
}

func newMockTreeResolver() *mockTreeResolver {
	return &mockTreeResolver{trees: make(map[string]*authtree.Tree)}
}

func treeResolverKey(positionID int64, kind authtree.Kind) string {
	return fmt.Sprintf("%d/%s", positionID, kind)
}

func (m *mockTreeResolver) setTree(positionID int64, kind authtree.Kind, levels ...[]authtree.Authorizer) {
	tree := &authtree.Tree{
		ID:         positionID,
		CompanyID:  1,
		PositionID: positionID,
		Kind:       kind,
	}
	for i, authorizers := range levels {
		tree.Levels = append(tree.Levels, authtree.Level{
			Rank:        i + 1,
			Authorizers: authorizers,
		})
	}
	m.trees[treeResolverKey(positionID, kind)] = tree
}

func (m *mockTreeResolver) GetTree(companyID, positionID int64, kind authtree.Kind) (*authtree.Tree, error) {
	tree, ok := m.trees[treeResolverKey(positionID, kind)]
	if !ok {
		return nil, internal.ErrTreeNotFound
	}
	return tree, nil
}

var _ = Describe("ExpenseService", func() {
	var (
		service   *expense.Service
		mockRepo  *mockExpenseRepository
		resolver  *mockTreeResolver
		ctx       context.Context
		submitter *auth.User
		alice     *auth.User
		bob       *auth.User
		carol     *auth.User
		outsider  *auth.User
	)

	const positionID = int64(7)

	BeforeEach(func() {
		mockRepo = newMockExpenseRepository()
		resolver = newMockTreeResolver()
		quiet := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus := events.NewEventBus(quiet)
		service = expense.NewService(mockRepo, resolver, bus, quiet)
		ctx = context.Background()

		submitter = &auth.User{ID: "u-1", PersonID: "person-sub", Name: "Sam Submitter", CompanyID: 1, Permissions: []string{"submit_expenses"}}
		alice = &auth.User{ID: "u-2", PersonID: "person-a", Name: "Alice", CompanyID: 1, Permissions: []string{"decide_expenses"}}
		bob = &auth.User{ID: "u-3", PersonID: "person-b", Name: "Bob", CompanyID: 1, Permissions: []string{"decide_expenses"}}
		carol = &auth.User{ID: "u-4", PersonID: "person-c", Name: "Carol", CompanyID: 1, Permissions: []string{"decide_expenses"}}
		outsider = &auth.User{ID: "u-5", PersonID: "person-x", Name: "Xavier", CompanyID: 1, Permissions: []string{"decide_expenses"}}

		// level 1: Alice or Bob; level 2: Carol
		resolver.setTree(positionID, authtree.KindExercised,
			[]authtree.Authorizer{{PersonID: "person-a", DisplayName: "Alice"}, {PersonID: "person-b", DisplayName: "Bob"}},
			[]authtree.Authorizer{{PersonID: "person-c", DisplayName: "Carol"}},
		)
	})

	createDraft := func(kind string) *expense.Expense {
		exp, err := service.CreateExpense(expense.CreateExpenseDTO{
			PositionID:  positionID,
			Kind:        kind,
			AmountCents: 125_000,
			Description: "team offsite travel",
		}, submitter)
		Expect(err).NotTo(HaveOccurred())
		return exp
	}

	submitDraft := func(kind string) *expense.Expense {
		exp := createDraft(kind)
		submitted, err := service.Submit(ctx, exp.ID, submitter)
		Expect(err).NotTo(HaveOccurred())
		return submitted
	}

	Describe("CreateExpense", func() {
		It("should create an open draft", func() {
			// Given a valid payload
			// When the submitter creates an expense
			exp := createDraft("exercised")

			// Then it starts open and outside the authorization chain
			Expect(exp.Status).To(Equal(expense.StatusOpen))
			Expect(exp.CurrentLevel).To(Equal(0))
			Expect(exp.IsFirstRound).To(BeTrue())
			Expect(exp.RejectionCount).To(Equal(0))
		})

		It("should collect every validation violation", func() {
			_, err := service.CreateExpense(expense.CreateExpenseDTO{
				Kind:        "neither",
				AmountCents: 0,
			}, submitter)

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			details, ok := appErr.Details.(internal.ValidationErrors)
			Expect(ok).To(BeTrue())
			Expect(len(details.Errors)).To(Equal(4))
		})
	})

	Describe("Submit", func() {
		It("should enter authorization at level 1", func() {
			exp := submitDraft("exercised")

			Expect(exp.Status).To(Equal(expense.StatusInAuthorization))
			Expect(exp.CurrentLevel).To(Equal(1))
			Expect(exp.NextAuthorizerNames).To(ConsistOf("Alice", "Bob"))
			Expect(exp.SubmittedAt).NotTo(BeNil())
		})

		It("should refuse when no tree is configured and leave the expense open", func() {
			exp, err := service.CreateExpense(expense.CreateExpenseDTO{
				PositionID:  99,
				Kind:        "exercised",
				AmountCents: 5000,
				Description: "no tree here",
			}, submitter)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Submit(ctx, exp.ID, submitter)
			Expect(err).To(Equal(internal.ErrNoAuthorizationTree))

			reloaded, err := service.GetExpense(exp.ID, submitter, auth.NewPermissionChecker())
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Status).To(Equal(expense.StatusOpen))
		})

		It("should refuse a tree with zero levels", func() {
			resolver.setTree(42, authtree.KindAdvance)
			exp, err := service.CreateExpense(expense.CreateExpenseDTO{
				PositionID:  42,
				Kind:        "advance",
				AmountCents: 5000,
				Description: "zero level tree",
			}, submitter)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Submit(ctx, exp.ID, submitter)
			Expect(err).To(Equal(internal.ErrNoAuthorizationTree))
		})

		It("should refuse callers other than the submitter", func() {
			exp := createDraft("exercised")
			_, err := service.Submit(ctx, exp.ID, alice)
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})

		It("should refuse a second submit", func() {
			exp := submitDraft("exercised")
			_, err := service.Submit(ctx, exp.ID, submitter)
			Expect(err).To(Equal(internal.ErrInvalidExpenseStatus))
		})
	})

	Describe("Approve", func() {
		It("should advance past level 1 when either eligible authorizer approves", func() {
			exp := submitDraft("exercised")

			advanced, err := service.Approve(ctx, exp.ID, bob, 1)
			Expect(err).NotTo(HaveOccurred())

			Expect(advanced.Status).To(Equal(expense.StatusInAuthorization))
			Expect(advanced.CurrentLevel).To(Equal(2))
			Expect(advanced.NextAuthorizerNames).To(ConsistOf("Carol"))
			Expect(advanced.LastAuthorizerName).To(Equal("Bob"))
		})

		It("should authorize after the last level approves", func() {
			exp := submitDraft("exercised")

			_, err := service.Approve(ctx, exp.ID, alice, 1)
			Expect(err).NotTo(HaveOccurred())

			final, err := service.Approve(ctx, exp.ID, carol, 2)
			Expect(err).NotTo(HaveOccurred())

			Expect(final.Status).To(Equal(expense.StatusAuthorized))
			Expect(final.MaxLevelReached).To(BeTrue())
			Expect(final.NextAuthorizerNames).To(BeEmpty())
		})

		It("should record an append-only decision per approval", func() {
			exp := submitDraft("exercised")

			_, err := service.Approve(ctx, exp.ID, alice, 1)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Approve(ctx, exp.ID, carol, 2)
			Expect(err).NotTo(HaveOccurred())

			history, err := service.GetHistory(exp.ID, submitter, auth.NewPermissionChecker())
			Expect(err).NotTo(HaveOccurred())
			Expect(history.Decisions).To(HaveLen(2))
			Expect(history.Decisions[0].Outcome).To(Equal(expense.OutcomeApprove))
			Expect(history.Decisions[0].Level).To(Equal(1))
			Expect(history.Decisions[1].Level).To(Equal(2))
		})

		It("should refuse a non-eligible authorizer", func() {
			exp := submitDraft("exercised")
			_, err := service.Approve(ctx, exp.ID, outsider, 1)
			Expect(err).To(Equal(internal.ErrNotEligibleAuthorizer))
		})

		It("should refuse an authorizer eligible only at a later level", func() {
			exp := submitDraft("exercised")
			_, err := service.Approve(ctx, exp.ID, carol, 1)
			Expect(err).To(Equal(internal.ErrNotEligibleAuthorizer))
		})

		It("should conflict when the observed level is stale", func() {
			exp := submitDraft("exercised")

			_, err := service.Approve(ctx, exp.ID, alice, 1)
			Expect(err).NotTo(HaveOccurred())

			// Bob still has the level-1 screen open
			_, err = service.Approve(ctx, exp.ID, bob, 1)
			Expect(err).To(Equal(internal.ErrLevelAlreadyDecided))
		})

		It("should authorize immediately on a single-level tree", func() {
			resolver.setTree(11, authtree.KindExercised,
				[]authtree.Authorizer{{PersonID: "person-a", DisplayName: "Alice"}})

			exp, err := service.CreateExpense(expense.CreateExpenseDTO{
				PositionID:  11,
				Kind:        "exercised",
				AmountCents: 900,
				Description: "single level",
			}, submitter)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Submit(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())

			final, err := service.Approve(ctx, exp.ID, alice, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(final.Status).To(Equal(expense.StatusAuthorized))
		})

		It("should let exactly one of two concurrent approvers win", func() {
			exp := submitDraft("exercised")

			var wg sync.WaitGroup
			errs := make([]error, 2)
			deciders := []*auth.User{alice, bob}
			for i := range deciders {
				wg.Add(1)
				go func(idx int) {
					defer wg.Done()
					_, errs[idx] = service.Approve(ctx, exp.ID, deciders[idx], 1)
				}(i)
			}
			wg.Wait()

			winners := 0
			losers := 0
			for _, err := range errs {
				switch err {
				case nil:
					winners++
				case internal.ErrLevelAlreadyDecided:
					losers++
				default:
					Fail("unexpected error: " + err.Error())
				}
			}
			Expect(winners).To(Equal(1))
			Expect(losers).To(Equal(1))

			reloaded, err := service.GetExpense(exp.ID, submitter, auth.NewPermissionChecker())
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.CurrentLevel).To(Equal(2))

			history, err := service.GetHistory(exp.ID, submitter, auth.NewPermissionChecker())
			Expect(err).NotTo(HaveOccurred())
			Expect(history.Decisions).To(HaveLen(1))
		})
	})

	Describe("Reject", func() {
		It("should require a reason", func() {
			exp := submitDraft("exercised")
			_, err := service.Reject(ctx, exp.ID, alice, 1, "")
			Expect(err).To(Equal(internal.ErrReasonRequired))
		})

		It("should reject with a recorded reason and count the round", func() {
			exp := submitDraft("exercised")

			_, err := service.Approve(ctx, exp.ID, alice, 1)
			Expect(err).NotTo(HaveOccurred())

			rejected, err := service.Reject(ctx, exp.ID, carol, 2, "missing receipts")
			Expect(err).NotTo(HaveOccurred())

			Expect(rejected.Status).To(Equal(expense.StatusRejected))
			Expect(rejected.RejectionCount).To(Equal(1))
			Expect(rejected.IsFirstRound).To(BeFalse())

			history, err := service.GetHistory(exp.ID, submitter, auth.NewPermissionChecker())
			Expect(err).NotTo(HaveOccurred())
			Expect(history.Rejections).To(HaveLen(1))
			Expect(history.Rejections[0].Reason).To(Equal("missing receipts"))
			Expect(history.Rejections[0].Level).To(Equal(2))
			Expect(history.Rejections[0].Round).To(Equal(1))
		})

		It("should conflict when the observed level is stale", func() {
			exp := submitDraft("exercised")

			_, err := service.Approve(ctx, exp.ID, alice, 1)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Reject(ctx, exp.ID, bob, 1, "too expensive")
			Expect(err).To(Equal(internal.ErrLevelAlreadyDecided))
		})
	})

	Describe("Resubmit", func() {
		rejectOnce := func() *expense.Expense {
			exp := submitDraft("exercised")
			_, err := service.Reject(ctx, exp.ID, alice, 1, "fix the description")
			Expect(err).NotTo(HaveOccurred())
			reloaded, err := service.GetExpense(exp.ID, submitter, auth.NewPermissionChecker())
			Expect(err).NotTo(HaveOccurred())
			return reloaded
		}

		It("should restart at level 1 and carry the rejection history", func() {
			exp := rejectOnce()

			resubmitted, err := service.Resubmit(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())

			Expect(resubmitted.Status).To(Equal(expense.StatusInAuthorization))
			Expect(resubmitted.CurrentLevel).To(Equal(1))
			Expect(resubmitted.RejectionCount).To(Equal(1))
			Expect(resubmitted.IsFirstRound).To(BeFalse())
		})

		It("should count a second rejection round", func() {
			exp := rejectOnce()

			_, err := service.Resubmit(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())

			rejected, err := service.Reject(ctx, exp.ID, bob, 1, "still wrong")
			Expect(err).NotTo(HaveOccurred())
			Expect(rejected.RejectionCount).To(Equal(2))

			history, err := service.GetHistory(exp.ID, submitter, auth.NewPermissionChecker())
			Expect(err).NotTo(HaveOccurred())
			Expect(history.Rejections).To(HaveLen(2))
			Expect(history.Rejections[1].Round).To(Equal(2))
		})

		It("should refuse callers other than the submitter", func() {
			exp := rejectOnce()
			_, err := service.Resubmit(ctx, exp.ID, alice)
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})

		It("should refuse when the expense is not rejected", func() {
			exp := submitDraft("exercised")
			_, err := service.Resubmit(ctx, exp.ID, submitter)
			Expect(err).To(Equal(internal.ErrInvalidExpenseStatus))
		})
	})

	Describe("Cancel", func() {
		It("should cancel an open draft", func() {
			exp := createDraft("exercised")
			cancelled, err := service.Cancel(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())
			Expect(cancelled.Status).To(Equal(expense.StatusCancelled))
		})

		It("should cancel mid-authorization", func() {
			exp := submitDraft("exercised")
			cancelled, err := service.Cancel(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())
			Expect(cancelled.Status).To(Equal(expense.StatusCancelled))
		})

		It("should treat a repeated cancel as a no-op", func() {
			exp := createDraft("exercised")
			_, err := service.Cancel(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())

			again, err := service.Cancel(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Status).To(Equal(expense.StatusCancelled))
		})

		It("should refuse once the expense is paid", func() {
			exp := authorizeFully(ctx, service, submitDraft("exercised"), alice, carol)
			_, err := service.QueueForPayment(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.MarkPaid(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Cancel(ctx, exp.ID, submitter)
			Expect(err).To(Equal(internal.ErrInvalidExpenseStatus))
		})
	})

	Describe("payment edge", func() {
		It("should walk authorized through pending_payment to paid", func() {
			exp := authorizeFully(ctx, service, submitDraft("exercised"), alice, carol)

			queued, err := service.QueueForPayment(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())
			Expect(queued.Status).To(Equal(expense.StatusPendingPayment))
			Expect(queued.PendingPayment).To(BeTrue())

			paid, err := service.MarkPaid(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())
			Expect(paid.Status).To(Equal(expense.StatusPaid))
			Expect(paid.PendingPayment).To(BeFalse())
		})

		It("should start the refund leg for a positive advance remainder", func() {
			resolver.setTree(positionID, authtree.KindAdvance,
				[]authtree.Authorizer{{PersonID: "person-a", DisplayName: "Alice"}},
				[]authtree.Authorizer{{PersonID: "person-c", DisplayName: "Carol"}},
			)
			exp := authorizeFully(ctx, service, submitDraft("advance"), alice, carol)

			_, err := service.QueueForPayment(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.MarkPaid(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())

			refunding, err := service.RecordRemainder(ctx, exp.ID, submitter, expense.RemainderDTO{RemainderCents: 3_000})
			Expect(err).NotTo(HaveOccurred())
			Expect(refunding.Status).To(Equal(expense.StatusRefunding))
			Expect(*refunding.RemainderCents).To(Equal(int64(3_000)))

			finished, err := service.ConfirmRefund(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())
			Expect(finished.Status).To(Equal(expense.StatusFinished))
		})

		It("should finish outright on a zero remainder", func() {
			resolver.setTree(positionID, authtree.KindAdvance,
				[]authtree.Authorizer{{PersonID: "person-a", DisplayName: "Alice"}},
				[]authtree.Authorizer{{PersonID: "person-c", DisplayName: "Carol"}},
			)
			exp := authorizeFully(ctx, service, submitDraft("advance"), alice, carol)

			_, err := service.QueueForPayment(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.MarkPaid(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())

			finished, err := service.RecordRemainder(ctx, exp.ID, submitter, expense.RemainderDTO{RemainderCents: 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(finished.Status).To(Equal(expense.StatusFinished))
		})

		It("should refuse a remainder on an exercised expense", func() {
			exp := authorizeFully(ctx, service, submitDraft("exercised"), alice, carol)
			_, err := service.QueueForPayment(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.MarkPaid(ctx, exp.ID, submitter)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RecordRemainder(ctx, exp.ID, submitter, expense.RemainderDTO{RemainderCents: 100})
			Expect(err).To(Equal(internal.ErrInvalidExpenseStatus))
		})
	})

	Describe("ListPendingForAuthorizer", func() {
		It("should only show expenses waiting at a level the caller sits on", func() {
			first := submitDraft("exercised")
			second := submitDraft("exercised")

			// advance the second expense to level 2 where only Carol decides
			_, err := service.Approve(ctx, second.ID, alice, 1)
			Expect(err).NotTo(HaveOccurred())

			aliceInbox, err := service.ListPendingForAuthorizer(alice, 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(aliceInbox).To(HaveLen(1))
			Expect(aliceInbox[0].ID).To(Equal(first.ID))

			carolInbox, err := service.ListPendingForAuthorizer(carol, 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(carolInbox).To(HaveLen(1))
			Expect(carolInbox[0].ID).To(Equal(second.ID))
		})
	})

	Describe("GetExpense", func() {
		It("should hide other people's expenses from plain submitters", func() {
			exp := createDraft("exercised")

			nosy := &auth.User{ID: "u-9", PersonID: "person-nosy", CompanyID: 1, Permissions: []string{"submit_expenses"}}
			_, err := service.GetExpense(exp.ID, nosy, auth.NewPermissionChecker())
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})

		It("should show any expense to deciders", func() {
			exp := createDraft("exercised")
			got, err := service.GetExpense(exp.ID, alice, auth.NewPermissionChecker())
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(exp.ID))
		})
	})
})

func authorizeFully(ctx context.Context, service *expense.Service, exp *expense.Expense, levelOne, levelTwo *auth.User) *expense.Expense {
	_, err := service.Approve(ctx, exp.ID, levelOne, 1)
	Expect(err).NotTo(HaveOccurred())
	final, err := service.Approve(ctx, exp.ID, levelTwo, 2)
	Expect(err).NotTo(HaveOccurred())
	Expect(final.Status).To(Equal(expense.StatusAuthorized))
	return final
}
