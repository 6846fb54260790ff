package shield

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Store is the key/value persistence port. Implementations must return
// ErrKeyNotFound for absent keys and treat Set as last-writer-wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Authenticator is the only interface route guards and pages should call.
type Authenticator interface {
	RequestPasscode(ctx context.Context, identifier, secret string) error
	ConfirmPasscode(ctx context.Context, identifier, code string) (*Identity, error)
	Logout(ctx context.Context) error
	CurrentIdentity() (*Identity, bool)
	IsAuthenticated() bool
}

// CodeGenerator produces the numeric passcode for an issuance.
type CodeGenerator interface {
	Generate() (string, error)
}

// PasscodeDispatcher delivers an issued passcode to the identity's
// address. The demo profile logs it; a real deployment would send mail.
type PasscodeDispatcher interface {
	Dispatch(ctx context.Context, identity *Identity, record *PasscodeRecord) error
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetPasscodeTTL() time.Duration
	GetInactivityTimeout() time.Duration
	GetFallbackMode() bool
	GetDemoMode() bool
}

// NewDefaultLogger returns the stdout fallback logger used when no
// logger is configured.
func NewDefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SHIELD "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SHIELD "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SHIELD "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SHIELD "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
