package shield

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// Auther is the facade implementing Authenticator. Everything the routes
// and pages need goes through here; the passcode service, fallback
// resolver and session supervisor are composed internally.
type Auther struct {
	creds      *CredentialStore
	store      Store
	passcodes  *Passcodes
	fallback   *FallbackResolver
	supervisor *Supervisor
	activity   *ActivityLog
	dispatcher PasscodeDispatcher
	notifier   Notifier
	logger     Logger

	passcodeTTL       time.Duration
	inactivityTimeout time.Duration
	fallbackMode      bool
	generator         CodeGenerator
	now               func() time.Time
}

var _ Authenticator = (*Auther)(nil)

// AuthOption customizes the authenticator facade.
type AuthOption func(*Auther)

// WithDispatcher sets the passcode delivery channel.
func WithDispatcher(d PasscodeDispatcher) AuthOption {
	return func(a *Auther) {
		if d != nil {
			a.dispatcher = d
		}
	}
}

// WithNotifier sets the surface receiving auth notices.
func WithNotifier(n Notifier) AuthOption {
	return func(a *Auther) {
		a.notifier = normalizeNotifier(n)
	}
}

// WithAuthLogger overrides the logger on the facade and every component
// it builds.
func WithAuthLogger(logger Logger) AuthOption {
	return func(a *Auther) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAuthPasscodeTTL overrides the passcode lifetime.
func WithAuthPasscodeTTL(ttl time.Duration) AuthOption {
	return func(a *Auther) {
		if ttl > 0 {
			a.passcodeTTL = ttl
		}
	}
}

// WithAuthInactivityTimeout overrides the session idle timeout.
func WithAuthInactivityTimeout(timeout time.Duration) AuthOption {
	return func(a *Auther) {
		if timeout > 0 {
			a.inactivityTimeout = timeout
		}
	}
}

// WithAuthFallbackMode toggles silent fallback resolution.
func WithAuthFallbackMode(enabled bool) AuthOption {
	return func(a *Auther) {
		a.fallbackMode = enabled
	}
}

// WithAuthCodeGenerator sets the passcode generator. The demo profile
// pins FixedCodeGenerator so operators can log in without a mailbox.
func WithAuthCodeGenerator(gen CodeGenerator) AuthOption {
	return func(a *Auther) {
		if gen != nil {
			a.generator = gen
		}
	}
}

// WithAuthClock injects a custom clock across the facade's components.
func WithAuthClock(clock func() time.Time) AuthOption {
	return func(a *Auther) {
		if clock != nil {
			a.now = clock
		}
	}
}

// logDispatcher writes the passcode to the log instead of delivering it.
type logDispatcher struct {
	logger Logger
}

func (d logDispatcher) Dispatch(_ context.Context, identity *Identity, record *PasscodeRecord) error {
	d.logger.Info("passcode for %s: %s", identity.Identifier, record.Code)
	return nil
}

// NewAuthenticator builds the facade over the given directory and store.
func NewAuthenticator(creds *CredentialStore, store Store, opts ...AuthOption) *Auther {
	a := &Auther{
		creds:             creds,
		store:             store,
		notifier:          noopNotifier{},
		logger:            defLogger{},
		passcodeTTL:       DefaultPasscodeTTL,
		inactivityTimeout: DefaultInactivityTimeout,
		fallbackMode:      true,
		generator:         RandomCodeGenerator{Length: 6},
		now:               time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.dispatcher == nil {
		a.dispatcher = logDispatcher{logger: a.logger}
	}

	a.activity = NewActivityLog(store,
		WithActivityClock(a.now),
		WithActivityLogger(a.logger),
	)

	a.passcodes = NewPasscodes(store,
		WithPasscodeTTL(a.passcodeTTL),
		WithCodeGenerator(a.generator),
		WithPasscodeClock(a.now),
		WithPasscodeLogger(a.logger),
	)

	a.fallback = NewFallbackResolver(creds,
		WithFallbackMode(a.fallbackMode),
		WithFallbackActivitySink(a.activity),
		WithFallbackLogger(a.logger),
	)

	a.supervisor = NewSupervisor(store,
		WithInactivityTimeout(a.inactivityTimeout),
		WithSupervisorNotifier(a.notifier),
		WithSupervisorActivitySink(a.activity),
		WithSupervisorClock(a.now),
		WithSupervisorLogger(a.logger),
	)

	return a
}

// Activity exposes the audit log for read surfaces.
func (a *Auther) Activity() *ActivityLog {
	return a.activity
}

// Sessions exposes the session supervisor for wiring activity signals.
func (a *Auther) Sessions() *Supervisor {
	return a.supervisor
}

// Start restores any persisted session.
func (a *Auther) Start(ctx context.Context) error {
	return a.supervisor.Start(ctx)
}

// Stop cancels the inactivity watchdog without ending the session.
func (a *Auther) Stop() {
	a.supervisor.Stop()
}

// RequestPasscode validates credentials and issues a passcode. When
// dispatch fails for a primary identity with fallback enabled, the
// failure is swallowed and the request reports success; the pending
// record is cleared, so the later confirm resolves the fallback through
// the no-record path. Nothing discloses the substitution to the caller.
func (a *Auther) RequestPasscode(ctx context.Context, identifier, secret string) error {
	if err := validateIdentifier(identifier); err != nil {
		return err
	}

	identity, err := a.creds.Lookup(identifier)
	if err != nil {
		return err
	}

	if err := a.checkSecret(identity, secret); err != nil {
		return err
	}

	record, err := a.passcodes.Issue(ctx, identifier)
	if err != nil {
		return err
	}

	if err := a.dispatcher.Dispatch(ctx, identity, record); err != nil {
		a.logger.Warn("passcode dispatch for %s failed: %v", identifier, err)

		if cerr := a.passcodes.Clear(ctx); cerr != nil {
			a.logger.Warn("pending passcode clear failed: %v", cerr)
		}

		if a.fallback.Eligible(identifier) {
			if rerr := a.activity.Record(ctx, ActivityRecord{
				Identifier: identifier,
				Action:     ActionFallbackTriggered,
				Details:    fmt.Sprintf("Fallback login triggered for %s", identifier),
			}); rerr != nil {
				a.logger.Warn("activity record error: %v", rerr)
			}

			a.notifier.Notify(ctx, Notice{
				Code:    NoticePasscodeSent,
				Title:   "OTP sent",
				Message: fmt.Sprintf("A verification code has been sent to %s.", identifier),
			})

			return nil
		}

		return goerrors.Wrap(err, ErrDispatchFailed.Category, ErrDispatchFailed.Message).
			WithTextCode(ErrDispatchFailed.TextCode).
			WithCode(ErrDispatchFailed.Code)
	}

	if rerr := a.activity.Record(ctx, ActivityRecord{
		Identifier: identifier,
		Action:     ActionOTPSent,
		Details:    fmt.Sprintf("OTP sent to %s", identifier),
	}); rerr != nil {
		a.logger.Warn("activity record error: %v", rerr)
	}

	a.notifier.Notify(ctx, Notice{
		Code:    NoticePasscodeSent,
		Title:   "OTP sent",
		Message: fmt.Sprintf("A verification code has been sent to %s.", identifier),
	})

	return nil
}

// ConfirmPasscode checks the submitted code against the pending record
// and opens a session on success. A failed check for a primary identity
// with fallback enabled resolves the mapped demo account instead of
// surfacing the failure, except when the pending record belongs to a
// different identifier.
func (a *Auther) ConfirmPasscode(ctx context.Context, identifier, code string) (*Identity, error) {
	if err := validateIdentifier(identifier); err != nil {
		return nil, err
	}
	if err := validateCode(code); err != nil {
		return nil, err
	}

	outcome, err := a.passcodes.Verify(ctx, identifier, code)
	if err != nil {
		return nil, err
	}
	if outcome != OutcomeValid {
		if outcome != OutcomeIdentifierMismatch && a.fallback.Eligible(identifier) {
			if identity, ok := a.fallback.Resolve(ctx, identifier); ok {
				if err := a.supervisor.BeginSession(ctx, identity); err != nil {
					return nil, err
				}

				if rerr := a.activity.Record(ctx, ActivityRecord{
					Identifier: identity.Identifier,
					Action:     ActionLogin,
					Details:    fmt.Sprintf("%s logged in", identity.DisplayName),
				}); rerr != nil {
					a.logger.Warn("activity record error: %v", rerr)
				}

				a.notifier.Notify(ctx, Notice{
					Code:    NoticeLoginSuccess,
					Title:   "Welcome back",
					Message: fmt.Sprintf("Logged in as %s.", identity.DisplayName),
				})

				return identity, nil
			}
		}

		a.notifier.Notify(ctx, Notice{
			Code:    NoticeAuthFailed,
			Title:   "Verification failed",
			Message: "The code could not be verified. Please try again.",
		})
		return nil, outcome.Err()
	}

	identity, err := a.creds.Lookup(identifier)
	if err != nil {
		return nil, err
	}

	if err := a.supervisor.BeginSession(ctx, identity); err != nil {
		return nil, err
	}

	if rerr := a.activity.Record(ctx, ActivityRecord{
		Identifier: identifier,
		Action:     ActionLogin,
		Details:    fmt.Sprintf("%s logged in", identity.DisplayName),
	}); rerr != nil {
		a.logger.Warn("activity record error: %v", rerr)
	}

	a.notifier.Notify(ctx, Notice{
		Code:    NoticeLoginSuccess,
		Title:   "Welcome back",
		Message: fmt.Sprintf("Logged in as %s.", identity.DisplayName),
	})

	return identity, nil
}

// Logout ends the current session.
func (a *Auther) Logout(ctx context.Context) error {
	return a.supervisor.EndSession(ctx)
}

// CurrentIdentity returns the authenticated identity, if any.
func (a *Auther) CurrentIdentity() (*Identity, bool) {
	return a.supervisor.Current()
}

// IsAuthenticated reports whether a session is live.
func (a *Auther) IsAuthenticated() bool {
	return a.supervisor.IsAuthenticated()
}

// checkSecret compares against the stored hash when the directory
// carries one. Without a hash the secret is optional; when supplied it
// must meet the minimum length.
func (a *Auther) checkSecret(identity *Identity, secret string) error {
	if identity.SecretHash != "" {
		return CompareSecretAndHash(secret, identity.SecretHash)
	}

	if secret != "" && len(secret) < 6 {
		return ErrWeakSecret
	}

	return nil
}

func validateIdentifier(identifier string) error {
	if err := validation.Validate(identifier, validation.Required, is.Email); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid email address").
			WithTextCode(TextCodeInvalidCreds).
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}

func validateCode(code string) error {
	if err := validation.Validate(code,
		validation.Required,
		validation.Length(6, 6),
		is.Digit,
	); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid verification code").
			WithTextCode(TextCodePasscodeMismatch).
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}
