// Package alertfeed stores the suspicious-activity alerts surfaced to
// admins and cashiers.
package alertfeed

import (
	"context"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"

	shield "github.com/it22317094/posguard-brylix-shield"
)

const storageKey = "posguard_alerts"

const textCodeAlertNotFound = "ALERT_NOT_FOUND"

// ErrAlertNotFound is returned for unknown alert IDs.
var ErrAlertNotFound = goerrors.New("alert not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeAlertNotFound).
	WithCode(goerrors.CodeNotFound)

// Severity ranks an alert.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Alert is one entry in the feed.
type Alert struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Severity     Severity  `json:"severity"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
	Category     string    `json:"category"`
	Details      string    `json:"details,omitempty"`
}

// FeedOption customizes the feed.
type FeedOption func(*Feed)

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) FeedOption {
	return func(f *Feed) {
		if clock != nil {
			f.now = clock
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger shield.Logger) FeedOption {
	return func(f *Feed) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Feed persists alerts on the store.
type Feed struct {
	store  shield.Store
	logger shield.Logger
	now    func() time.Time
}

// NewFeed creates the alert feed over the given store.
func NewFeed(store shield.Store, opts ...FeedOption) *Feed {
	f := &Feed{
		store:  store,
		logger: shield.NewDefaultLogger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return f
}

// List returns every alert in the feed.
func (f *Feed) List(ctx context.Context) ([]Alert, error) {
	return f.load(ctx)
}

// Add appends an alert, assigning the next numeric ID.
func (f *Feed) Add(ctx context.Context, alert Alert) (*Alert, error) {
	alerts, err := f.load(ctx)
	if err != nil {
		return nil, err
	}

	maxID := 0
	for _, a := range alerts {
		if a.ID > maxID {
			maxID = a.ID
		}
	}
	alert.ID = maxID + 1

	if alert.Timestamp.IsZero() {
		alert.Timestamp = f.now()
	}

	alerts = append(alerts, alert)
	if err := f.save(ctx, alerts); err != nil {
		return nil, err
	}

	return &alert, nil
}

// Acknowledge marks an alert as seen.
func (f *Feed) Acknowledge(ctx context.Context, id int) (*Alert, error) {
	alerts, err := f.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range alerts {
		if alerts[i].ID == id {
			alerts[i].Acknowledged = true
			if err := f.save(ctx, alerts); err != nil {
				return nil, err
			}
			return &alerts[i], nil
		}
	}

	return nil, ErrAlertNotFound
}

// Delete removes an alert from the feed.
func (f *Feed) Delete(ctx context.Context, id int) error {
	alerts, err := f.load(ctx)
	if err != nil {
		return err
	}

	out := alerts[:0]
	found := false
	for _, a := range alerts {
		if a.ID == id {
			found = true
			continue
		}
		out = append(out, a)
	}

	if !found {
		return ErrAlertNotFound
	}

	return f.save(ctx, out)
}

// Seed initializes the feed with demo alerts when the store is empty.
func (f *Feed) Seed(ctx context.Context) error {
	_, err := f.store.Get(ctx, storageKey)
	if err == nil {
		return nil
	}
	if !shield.IsKeyNotFound(err) {
		return err
	}

	now := f.now()
	demo := []Alert{
		{
			ID:          1,
			Title:       "High-value bill voided",
			Description: "Bill #3845 for $156.75 was voided by John Cashier without manager approval.",
			Severity:    SeverityHigh,
			Timestamp:   now.Add(-30 * time.Minute),
			Category:    "billing",
			Details:     "This transaction was voided at 3:45 PM by user John Cashier (Station: POS-01). The bill contained 8 items totaling $156.75. This exceeds the $100 threshold for cashier-level void permissions. No manager override code was used.",
		},
		{
			ID:          2,
			Title:       "Multiple login failures detected",
			Description: "5 failed login attempts from IP 192.168.1.45 within 10 minutes.",
			Severity:    SeverityHigh,
			Timestamp:   now.Add(-3 * time.Hour),
			Category:    "security",
			Details:     "Login attempts occurred between 10:15 AM and 10:25 AM from IP address 192.168.1.45. The attempts were made against user accounts: manager@brylix.com, admin@brylix.com, and support@brylix.com. The IP has been temporarily blocked for 30 minutes.",
		},
		{
			ID:          3,
			Title:       "KOT #1082 unacknowledged for 15 minutes",
			Description: "Table 7 order has not been picked up by kitchen staff.",
			Severity:    SeverityMedium,
			Timestamp:   now.Add(-15 * time.Minute),
			Category:    "operations",
			Details:     "KOT #1082 for Table 7 was created at 7:30 PM by Sarah Cashier. The order contains 4 items (2 appetizers, 2 main courses). Kitchen staff has not acknowledged receipt of this order. Average acknowledgement time is 2-3 minutes.",
		},
		{
			ID:          4,
			Title:       "Printer error on Station 2",
			Description: "Thermal printer on cashier station 2 reporting paper jam.",
			Severity:    SeverityLow,
			Timestamp:   now.Add(-2 * time.Hour),
			Category:    "hardware",
			Details:     "Epson TM-T88VI printer on Station 2 reported error code E-01 (paper jam) at 1:45 PM. The printer has been offline for 2 hours. Last maintenance was performed 45 days ago. Station 2 is currently routing print jobs to Station 1.",
		},
		{
			ID:           5,
			Title:        "Unauthorized menu change attempted",
			Description:  "User 'john.cashier' attempted to modify menu prices without permission.",
			Severity:     SeverityHigh,
			Timestamp:    now.Add(-5 * time.Hour),
			Acknowledged: true,
			Category:     "security",
			Details:      "At 11:23 AM, user john.cashier attempted to modify the price of 'Grilled Salmon' from $24.99 to $19.99. This action requires manager-level permissions. The attempt was blocked and logged. This is the second such attempt from this user in the past 7 days.",
		},
		{
			ID:          6,
			Title:       "Excessive drawer opens detected",
			Description: "Cash drawer on Station 1 opened 12 times in one hour.",
			Severity:    SeverityMedium,
			Timestamp:   now.Add(-4 * time.Hour),
			Category:    "operations",
			Details:     "Between 12:00 PM and 1:00 PM, the cash drawer on Station 1 was opened 12 times by user mary.cashier. Normal frequency is 4-6 times per hour. Only 5 cash transactions were processed during this period. 7 drawer opens were not associated with transactions.",
		},
		{
			ID:           7,
			Title:        "Multiple discounts applied",
			Description:  "Bill #3952 received 3 different discount types. Possible discount abuse.",
			Severity:     SeverityMedium,
			Timestamp:    now.Add(-90 * time.Minute),
			Acknowledged: true,
			Category:     "billing",
			Details:      "Bill #3952 for Table 12 ($78.50 subtotal) received multiple discount applications: 10% Senior discount, 15% Happy Hour discount, and 5% Loyalty Program discount. Total discount amount: $23.55 (30%). This exceeds the maximum allowed combined discount of 20%. Cashier: john.cashier",
		},
	}

	return f.save(ctx, demo)
}

func (f *Feed) load(ctx context.Context) ([]Alert, error) {
	raw, err := f.store.Get(ctx, storageKey)
	if err != nil {
		if shield.IsKeyNotFound(err) {
			return []Alert{}, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read alerts")
	}

	alerts := []Alert{}
	if err := json.Unmarshal(raw, &alerts); err != nil {
		f.logger.Warn("alert blob corrupt, resetting feed")
		if rerr := f.store.Remove(ctx, storageKey); rerr != nil {
			f.logger.Warn("alert blob purge failed: %v", rerr)
		}
		return []Alert{}, nil
	}

	return alerts, nil
}

func (f *Feed) save(ctx context.Context, alerts []Alert) error {
	raw, err := json.Marshal(alerts)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode alerts")
	}
	if err := f.store.Set(ctx, storageKey, raw); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist alerts")
	}
	return nil
}
