package notification_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/finadmin/expense-authorization/internal/core/events"
	"github.com/finadmin/expense-authorization/internal/notification"
)

type recordingNotifier struct {
	mu       sync.Mutex
	subjects []string
	failWith error
}

func (n *recordingNotifier) Notify(_ context.Context, subject string, _ map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	n.subjects = append(n.subjects, subject)
	return nil
}

var _ = Describe("Dispatcher", func() {
	var (
		bus      *events.EventBus
		notifier *recordingNotifier
		ctx      context.Context
	)

	BeforeEach(func() {
		quiet := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(quiet)
		notifier = &recordingNotifier{}
		notification.NewDispatcher(notifier, quiet).Register(bus)
		ctx = context.Background()
	})

	It("should forward status changes to the notifier", func() {
		event := events.NewExpenseStatusChangedEvent(42, "open", "in_authorization", "person-sub", "Sam", "exercised")
		Expect(bus.PublishSync(ctx, event)).To(Succeed())

		Expect(notifier.subjects).To(HaveLen(1))
		Expect(notifier.subjects[0]).To(ContainSubstring("expense 42"))
		Expect(notifier.subjects[0]).To(ContainSubstring("in_authorization"))
	})

	It("should forward level advances with the new level", func() {
		event := events.NewExpenseLevelAdvancedEvent(42, 2, []string{"Carol"})
		Expect(bus.PublishSync(ctx, event)).To(Succeed())

		Expect(notifier.subjects).To(HaveLen(1))
		Expect(notifier.subjects[0]).To(ContainSubstring("level 2"))
	})

	It("should forward rejections", func() {
		event := events.NewExpenseRejectedEvent(42, 1, "missing receipts", 1)
		Expect(bus.PublishSync(ctx, event)).To(Succeed())

		Expect(notifier.subjects).To(HaveLen(1))
		Expect(notifier.subjects[0]).To(ContainSubstring("rejected"))
	})

	It("should surface delivery failures to the bus, not panic", func() {
		notifier.failWith = errors.New("webhook down")
		event := events.NewExpenseRejectedEvent(42, 1, "missing receipts", 1)
		Expect(bus.PublishSync(ctx, event)).NotTo(Succeed())
	})
})
