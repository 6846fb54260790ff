package shield

import (
	"context"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ActivitySink consumes audit records. Sinks are best-effort: callers
// swallow sink errors so auditing never blocks authentication.
type ActivitySink interface {
	Record(ctx context.Context, record ActivityRecord) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, record ActivityRecord) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, record ActivityRecord) error {
	if f == nil {
		return nil
	}
	return f(ctx, record)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityRecord) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// ActivityLog is a Store-backed sink keeping the persisted audit trail as
// an ordered sequence. The sequence is capped at limit records, newest
// kept; a corrupt blob is purged and the log restarts empty.
type ActivityLog struct {
	store  Store
	key    string
	limit  int
	logger Logger
	now    func() time.Time
}

// ActivityLogOption customizes the activity log.
type ActivityLogOption func(*ActivityLog)

// WithActivityLimit caps the number of retained records.
func WithActivityLimit(limit int) ActivityLogOption {
	return func(l *ActivityLog) {
		if limit > 0 {
			l.limit = limit
		}
	}
}

// WithActivityClock injects a custom clock (useful for tests).
func WithActivityClock(clock func() time.Time) ActivityLogOption {
	return func(l *ActivityLog) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithActivityLogger overrides the logger used for storage failures.
func WithActivityLogger(logger Logger) ActivityLogOption {
	return func(l *ActivityLog) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewActivityLog returns a persisted activity log over the given store.
func NewActivityLog(store Store, opts ...ActivityLogOption) *ActivityLog {
	l := &ActivityLog{
		store:  store,
		key:    StorageKeyActivity,
		limit:  DefaultActivityLimit,
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	return l
}

var _ ActivitySink = (*ActivityLog)(nil)

// Record appends one entry to the persisted sequence.
func (l *ActivityLog) Record(ctx context.Context, record ActivityRecord) error {
	records, err := l.load(ctx)
	if err != nil {
		return err
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = l.now()
	}

	records = append(records, record)
	if len(records) > l.limit {
		records = records[len(records)-l.limit:]
	}

	return l.save(ctx, records)
}

// Recent returns up to n records, newest last. n <= 0 returns everything.
func (l *ActivityLog) Recent(ctx context.Context, n int) ([]ActivityRecord, error) {
	records, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}

func (l *ActivityLog) load(ctx context.Context) ([]ActivityRecord, error) {
	raw, err := l.store.Get(ctx, l.key)
	if err != nil {
		if IsKeyNotFound(err) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read activity log")
	}

	var records []ActivityRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		// corrupt blob: purge and restart empty rather than fail auditing
		l.logger.Warn("activity log corrupt, purging: %v", err)
		if rerr := l.store.Remove(ctx, l.key); rerr != nil {
			l.logger.Warn("activity log purge failed: %v", rerr)
		}
		return nil, nil
	}

	return records, nil
}

func (l *ActivityLog) save(ctx context.Context, records []ActivityRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode activity log")
	}
	if err := l.store.Set(ctx, l.key, raw); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write activity log")
	}
	return nil
}
