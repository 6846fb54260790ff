package shield

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SessionState is the supervisor's lifecycle state.
type SessionState string

const (
	StateLoggedOut SessionState = "logged_out"
	StateLoggedIn  SessionState = "logged_in"
)

// Supervisor holds the authenticated identity for one browser context,
// mirrors it to the store so it survives reloads, and force-ends the
// session after a period without activity. State transitions are guarded
// by a mutex: the watchdog callback and activity events share
// lastActivity, which must not interleave on a multi-threaded runtime.
type Supervisor struct {
	mu           sync.Mutex
	identity     *Identity
	lastActivity time.Time
	watchdog     *time.Timer

	store    Store
	timeout  time.Duration
	notifier Notifier
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// SupervisorOption customizes the session supervisor.
type SupervisorOption func(*Supervisor)

// WithInactivityTimeout overrides the auto-logout timeout. The 60s
// default suits the demo profile and is too short for production.
func WithInactivityTimeout(timeout time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithSupervisorNotifier sets the surface receiving logout notices.
func WithSupervisorNotifier(n Notifier) SupervisorOption {
	return func(s *Supervisor) {
		s.notifier = normalizeNotifier(n)
	}
}

// WithSupervisorActivitySink sets the audit sink.
func WithSupervisorActivitySink(sink ActivitySink) SupervisorOption {
	return func(s *Supervisor) {
		s.activity = normalizeActivitySink(sink)
	}
}

// WithSupervisorClock injects a custom clock (useful for tests).
func WithSupervisorClock(clock func() time.Time) SupervisorOption {
	return func(s *Supervisor) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithSupervisorLogger overrides the logger.
func WithSupervisorLogger(logger Logger) SupervisorOption {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSupervisor returns a session supervisor over the given store.
func NewSupervisor(store Store, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		store:    store,
		timeout:  DefaultInactivityTimeout,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Start restores the persisted session mirror. A missing mirror starts
// LoggedOut; a corrupt mirror is purged and also starts LoggedOut; a
// valid mirror starts LoggedIn with a fresh activity timestamp.
func (s *Supervisor) Start(ctx context.Context) error {
	raw, err := s.store.Get(ctx, StorageKeySession)
	if err != nil {
		if IsKeyNotFound(err) {
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read session mirror")
	}

	identity := &Identity{}
	if uerr := json.Unmarshal(raw, identity); uerr != nil || identity.Identifier == "" {
		s.logger.Warn("session mirror corrupt, purging")
		if rerr := s.store.Remove(ctx, StorageKeySession); rerr != nil {
			s.logger.Warn("session mirror purge failed: %v", rerr)
		}
		return nil
	}

	s.mu.Lock()
	s.identity = identity
	s.lastActivity = s.now()
	s.armWatchdogLocked()
	s.mu.Unlock()

	return nil
}

// BeginSession transitions to LoggedIn for identity, persists the mirror
// and starts the inactivity watchdog.
func (s *Supervisor) BeginSession(ctx context.Context, identity *Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode session mirror")
	}
	if err := s.store.Set(ctx, StorageKeySession, raw); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist session mirror")
	}

	s.mu.Lock()
	s.identity = identity
	s.lastActivity = s.now()
	s.armWatchdogLocked()
	s.mu.Unlock()

	return nil
}

// Touch records a qualifying user-interaction signal: it refreshes
// lastActivity and re-arms the watchdog. No-op while LoggedOut.
func (s *Supervisor) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		return
	}

	s.lastActivity = s.now()
	s.armWatchdogLocked()
}

// EndSession performs an explicit logout: records the audit entry, clears
// the mirror, cancels the watchdog and notifies.
func (s *Supervisor) EndSession(ctx context.Context) error {
	s.mu.Lock()
	identity := s.identity
	s.identity = nil
	s.stopWatchdogLocked()
	s.mu.Unlock()

	if identity == nil {
		return nil
	}

	if err := s.activity.Record(ctx, ActivityRecord{
		Identifier: identity.Identifier,
		Action:     ActionLogout,
		Details:    fmt.Sprintf("%s logged out", identity.DisplayName),
	}); err != nil {
		s.logger.Warn("logout activity record error: %v", err)
	}

	if err := s.store.Remove(ctx, StorageKeySession); err != nil && !IsKeyNotFound(err) {
		s.logger.Warn("session mirror remove failed: %v", err)
	}

	s.notifier.Notify(ctx, Notice{
		Code:    NoticeLoggedOut,
		Title:   "Logged out",
		Message: "You have been logged out successfully.",
	})

	return nil
}

// Stop cancels the watchdog without ending the session. Used on shutdown
// so the persisted mirror survives for the next start.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.stopWatchdogLocked()
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *Supervisor) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return StateLoggedOut
	}
	return StateLoggedIn
}

// Current returns the authenticated identity, if any.
func (s *Supervisor) Current() (*Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil, false
	}
	id := *s.identity
	return &id, true
}

// IsAuthenticated reports whether a session is live.
func (s *Supervisor) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

// LastActivity returns the activity timestamp of the live session.
func (s *Supervisor) LastActivity() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return time.Time{}, false
	}
	return s.lastActivity, true
}

func (s *Supervisor) armWatchdogLocked() {
	s.stopWatchdogLocked()
	s.watchdog = time.AfterFunc(s.timeout, s.expire)
}

func (s *Supervisor) stopWatchdogLocked() {
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
}

// expire is the watchdog callback. A timer that fires after Touch re-armed
// it finds the elapsed window short and re-arms for the remainder instead
// of logging out.
func (s *Supervisor) expire() {
	ctx := context.Background()

	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return
	}

	elapsed := s.now().Sub(s.lastActivity)
	if elapsed < s.timeout {
		s.watchdog = time.AfterFunc(s.timeout-elapsed, s.expire)
		s.mu.Unlock()
		return
	}

	identity := s.identity
	s.identity = nil
	s.stopWatchdogLocked()
	s.mu.Unlock()

	s.logger.Info("session for %s ended after %s of inactivity", identity.Identifier, s.timeout)

	if err := s.store.Remove(ctx, StorageKeySession); err != nil && !IsKeyNotFound(err) {
		s.logger.Warn("session mirror remove failed: %v", err)
	}

	s.notifier.Notify(ctx, Notice{
		Code:    NoticeAutoLogout,
		Title:   "Session expired",
		Message: "You have been logged out due to inactivity.",
	})
}
