// Package kot manages kitchen order tickets: the dashboard's quick
// creator, the board listing and the status lifecycle.
package kot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	shield "github.com/it22317094/posguard-brylix-shield"
)

const storageKey = "posguard_kots"

const (
	textCodeTicketNotFound    = "KOT_NOT_FOUND"
	textCodeInvalidTransition = "INVALID_KOT_TRANSITION"
)

// ErrTicketNotFound is returned for unknown ticket IDs.
var ErrTicketNotFound = goerrors.New("kitchen order ticket not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeTicketNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid ticket status transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// Status is a ticket's kitchen state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
)

// AllStatuses lists every ticket status.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusPreparing, StatusReady, StatusCompleted}
}

// IsValidStatus reports whether s is a known status.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted:
		return true
	}
	return false
}

// Item is one line on a ticket.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

// Ticket is a kitchen order ticket.
type Ticket struct {
	ID          string    `json:"id"`
	TableNumber string    `json:"tableNumber"`
	Items       []Item    `json:"items"`
	Status      Status    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// Filter narrows List results.
type Filter struct {
	// Search matches against the table number.
	Search string
	// Status keeps only tickets in the given state. Empty keeps all.
	Status Status
}

// ServiceOption customizes the ticket service.
type ServiceOption func(*Service)

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithActivitySink publishes ticket lifecycle events to the audit log.
func WithActivitySink(sink shield.ActivitySink) ServiceOption {
	return func(s *Service) {
		if sink != nil {
			s.activity = sink
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger shield.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service persists tickets on the store and guards the status lifecycle.
type Service struct {
	store       shield.Store
	transitions map[Status]map[Status]struct{}
	activity    shield.ActivitySink
	logger      shield.Logger
	now         func() time.Time
}

// NewService creates the ticket service over the given store.
func NewService(store shield.Store, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		transitions: map[Status]map[Status]struct{}{
			StatusPending: {
				StatusPreparing: {},
			},
			StatusPreparing: {
				StatusReady: {},
			},
			StatusReady: {
				StatusCompleted: {},
			},
			// reopen sends a completed ticket back to the kitchen
			StatusCompleted: {
				StatusPending: {},
			},
		},
		activity: shield.ActivitySinkFunc(func(context.Context, shield.ActivityRecord) error { return nil }),
		logger:   shield.NewDefaultLogger(),
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// List returns tickets matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Ticket, error) {
	tickets, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		if filter.Search != "" && !strings.Contains(
			strings.ToLower(t.TableNumber),
			strings.ToLower(filter.Search),
		) {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, t)
	}

	return out, nil
}

// Get returns one ticket by ID.
func (s *Service) Get(ctx context.Context, id string) (*Ticket, error) {
	tickets, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range tickets {
		if tickets[i].ID == id {
			return &tickets[i], nil
		}
	}

	return nil, ErrTicketNotFound
}

// Create opens a new pending ticket at the top of the board.
func (s *Service) Create(ctx context.Context, actor string, tableNumber string, items []Item) (*Ticket, error) {
	if tableNumber == "" {
		return nil, goerrors.New("table number is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	if len(items) == 0 {
		return nil, goerrors.New("a ticket needs at least one item", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.New().String()
		}
		if items[i].Quantity <= 0 {
			items[i].Quantity = 1
		}
	}

	ticket := Ticket{
		ID:          uuid.New().String(),
		TableNumber: tableNumber,
		Items:       items,
		Status:      StatusPending,
		Timestamp:   s.now(),
	}

	tickets, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	tickets = append([]Ticket{ticket}, tickets...)
	if err := s.save(ctx, tickets); err != nil {
		return nil, err
	}

	s.record(ctx, actor, "kot_created",
		fmt.Sprintf("KOT created for table %s with %d items", tableNumber, len(items)))

	return &ticket, nil
}

// SetStatus moves a ticket to target, enforcing the kitchen lifecycle.
func (s *Service) SetStatus(ctx context.Context, actor, id string, target Status) (*Ticket, error) {
	if !IsValidStatus(target) {
		return nil, ErrInvalidTransition
	}

	tickets, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range tickets {
		if tickets[i].ID != id {
			continue
		}

		from := tickets[i].Status
		if from == target {
			return &tickets[i], nil
		}

		if allowed, ok := s.transitions[from]; ok {
			if _, ok := allowed[target]; !ok {
				return nil, ErrInvalidTransition
			}
		} else {
			return nil, ErrInvalidTransition
		}

		tickets[i].Status = target
		if err := s.save(ctx, tickets); err != nil {
			return nil, err
		}

		s.record(ctx, actor, "kot_status_changed",
			fmt.Sprintf("KOT for table %s moved from %s to %s", tickets[i].TableNumber, from, target))

		return &tickets[i], nil
	}

	return nil, ErrTicketNotFound
}

// Reopen sends a completed ticket back to pending.
func (s *Service) Reopen(ctx context.Context, actor, id string) (*Ticket, error) {
	return s.SetStatus(ctx, actor, id, StatusPending)
}

// Seed initializes the board with demo tickets when the store is empty.
func (s *Service) Seed(ctx context.Context) error {
	_, err := s.store.Get(ctx, storageKey)
	if err == nil {
		return nil
	}
	if !shield.IsKeyNotFound(err) {
		return err
	}

	now := s.now()
	demo := []Ticket{
		{
			ID:          "kot1",
			TableNumber: "12",
			Items: []Item{
				{ID: "i1", Name: "Chicken Pasta", Quantity: 2},
				{ID: "i2", Name: "Garlic Bread", Quantity: 1},
				{ID: "i3", Name: "Cola", Quantity: 2},
			},
			Status:    StatusPending,
			Timestamp: now,
		},
		{
			ID:          "kot2",
			TableNumber: "5",
			Items: []Item{
				{ID: "i4", Name: "Margherita Pizza", Quantity: 1},
				{ID: "i5", Name: "Garden Salad", Quantity: 1},
			},
			Status:    StatusPreparing,
			Timestamp: now.Add(-15 * time.Minute),
		},
		{
			ID:          "kot3",
			TableNumber: "8",
			Items: []Item{
				{ID: "i6", Name: "Beef Burger", Quantity: 2},
				{ID: "i7", Name: "French Fries", Quantity: 2},
				{ID: "i8", Name: "Chocolate Shake", Quantity: 2},
			},
			Status:    StatusReady,
			Timestamp: now.Add(-25 * time.Minute),
		},
	}

	return s.save(ctx, demo)
}

func (s *Service) load(ctx context.Context) ([]Ticket, error) {
	raw, err := s.store.Get(ctx, storageKey)
	if err != nil {
		if shield.IsKeyNotFound(err) {
			return []Ticket{}, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read tickets")
	}

	tickets := []Ticket{}
	if err := json.Unmarshal(raw, &tickets); err != nil {
		s.logger.Warn("ticket blob corrupt, resetting board")
		if rerr := s.store.Remove(ctx, storageKey); rerr != nil {
			s.logger.Warn("ticket blob purge failed: %v", rerr)
		}
		return []Ticket{}, nil
	}

	return tickets, nil
}

func (s *Service) save(ctx context.Context, tickets []Ticket) error {
	raw, err := json.Marshal(tickets)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode tickets")
	}
	if err := s.store.Set(ctx, storageKey, raw); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist tickets")
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor, action, details string) {
	if err := s.activity.Record(ctx, shield.ActivityRecord{
		Identifier: actor,
		Action:     action,
		Details:    details,
	}); err != nil {
		s.logger.Warn("activity record error: %v", err)
	}
}
