package kot_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shield "github.com/it22317094/posguard-brylix-shield"
	"github.com/it22317094/posguard-brylix-shield/kot"
	"github.com/it22317094/posguard-brylix-shield/storage/memory"
)

type recordingSink struct {
	records []shield.ActivityRecord
}

func (s *recordingSink) Record(_ context.Context, record shield.ActivityRecord) error {
	s.records = append(s.records, record)
	return nil
}

func newTestService(t *testing.T) (*kot.Service, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	svc := kot.NewService(memory.New(), kot.WithActivitySink(sink))
	return svc, sink
}

func TestServiceCreate(t *testing.T) {
	svc, sink := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, "cashier@posguard.com", "14", []kot.Item{
		{Name: "Fish Curry", Quantity: 2},
		{Name: "Rice", Quantity: 2, Notes: "extra portion"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, "14", ticket.TableNumber)
	assert.Equal(t, kot.StatusPending, ticket.Status)
	require.Len(t, ticket.Items, 2)
	assert.NotEmpty(t, ticket.Items[0].ID)

	require.Len(t, sink.records, 1)
	assert.Equal(t, "kot_created", sink.records[0].Action)
	assert.Equal(t, "cashier@posguard.com", sink.records[0].Identifier)
}

func TestServiceCreateNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "cashier@posguard.com", "1", []kot.Item{{Name: "Tea", Quantity: 1}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "cashier@posguard.com", "2", []kot.Item{{Name: "Coffee", Quantity: 1}})
	require.NoError(t, err)

	tickets, err := svc.List(ctx, kot.Filter{})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "2", tickets[0].TableNumber)
	assert.Equal(t, "1", tickets[1].TableNumber)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "cashier@posguard.com", "", []kot.Item{{Name: "Tea", Quantity: 1}})
	assert.Error(t, err)

	_, err = svc.Create(ctx, "cashier@posguard.com", "3", nil)
	assert.Error(t, err)
}

func TestServiceLifecycle(t *testing.T) {
	svc, sink := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, "cashier@posguard.com", "7", []kot.Item{{Name: "Kottu", Quantity: 1}})
	require.NoError(t, err)

	for _, target := range []kot.Status{kot.StatusPreparing, kot.StatusReady, kot.StatusCompleted} {
		ticket, err = svc.SetStatus(ctx, "darkatomhacker@gmail.com", ticket.ID, target)
		require.NoError(t, err)
		assert.Equal(t, target, ticket.Status)
	}

	// reopening sends the ticket back to the kitchen queue
	ticket, err = svc.Reopen(ctx, "cashier@posguard.com", ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, kot.StatusPending, ticket.Status)

	statusChanges := 0
	for _, r := range sink.records {
		if r.Action == "kot_status_changed" {
			statusChanges++
		}
	}
	assert.Equal(t, 4, statusChanges)
}

func TestServiceSetStatusInvalidTransition(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, "cashier@posguard.com", "9", []kot.Item{{Name: "Soup", Quantity: 1}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		target kot.Status
	}{
		{"pending to ready skips preparing", kot.StatusReady},
		{"pending to completed skips the queue", kot.StatusCompleted},
		{"unknown status", kot.Status("cancelled")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetStatus(ctx, "cashier@posguard.com", ticket.ID, tt.target)
			assert.ErrorIs(t, err, kot.ErrInvalidTransition)
		})
	}
}

func TestServiceSetStatusSameStateIsNoop(t *testing.T) {
	svc, sink := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, "cashier@posguard.com", "4", []kot.Item{{Name: "Roti", Quantity: 3}})
	require.NoError(t, err)

	before := len(sink.records)
	got, err := svc.SetStatus(ctx, "cashier@posguard.com", ticket.ID, kot.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, kot.StatusPending, got.Status)
	assert.Len(t, sink.records, before)
}

func TestServiceSetStatusUnknownTicket(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SetStatus(context.Background(), "cashier@posguard.com", "missing", kot.StatusPreparing)
	assert.ErrorIs(t, err, kot.ErrTicketNotFound)
}

func TestServiceListFilter(t *testing.T) {
	svc := kot.NewService(memory.New(), kot.WithClock(func() time.Time {
		return time.Date(2025, 4, 12, 19, 0, 0, 0, time.UTC)
	}))
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx))

	t.Run("all", func(t *testing.T) {
		tickets, err := svc.List(ctx, kot.Filter{})
		require.NoError(t, err)
		assert.Len(t, tickets, 3)
	})

	t.Run("by status", func(t *testing.T) {
		tickets, err := svc.List(ctx, kot.Filter{Status: kot.StatusPreparing})
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, "5", tickets[0].TableNumber)
	})

	t.Run("by table search", func(t *testing.T) {
		tickets, err := svc.List(ctx, kot.Filter{Search: "12"})
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, "12", tickets[0].TableNumber)
	})

	t.Run("no match", func(t *testing.T) {
		tickets, err := svc.List(ctx, kot.Filter{Search: "99"})
		require.NoError(t, err)
		assert.Empty(t, tickets)
	})
}

func TestServiceSeedIsIdempotent(t *testing.T) {
	store := memory.New()
	svc := kot.NewService(store)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx))

	_, err := svc.Create(ctx, "cashier@posguard.com", "20", []kot.Item{{Name: "Juice", Quantity: 1}})
	require.NoError(t, err)

	// a second seed must not clobber live tickets
	require.NoError(t, svc.Seed(ctx))

	tickets, err := svc.List(ctx, kot.Filter{})
	require.NoError(t, err)
	assert.Len(t, tickets, 4)
}

func TestServiceGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "cashier@posguard.com", "11", []kot.Item{{Name: "Salad", Quantity: 1}})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, kot.ErrTicketNotFound)
}
