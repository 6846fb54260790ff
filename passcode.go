package shield

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// VerifyOutcome is the result of a passcode check. Every non-valid
// outcome maps to its own error so the causes stay distinguishable.
type VerifyOutcome string

const (
	OutcomeValid              VerifyOutcome = "valid"
	OutcomeNoRecord           VerifyOutcome = "no_record"
	OutcomeIdentifierMismatch VerifyOutcome = "identifier_mismatch"
	OutcomeExpired            VerifyOutcome = "expired"
	OutcomeConsumed           VerifyOutcome = "already_consumed"
	OutcomeCodeMismatch       VerifyOutcome = "code_mismatch"
)

// Err maps the outcome to its taxonomy error; Valid maps to nil.
func (o VerifyOutcome) Err() error {
	switch o {
	case OutcomeValid:
		return nil
	case OutcomeNoRecord:
		return ErrNoOutstandingPasscode
	case OutcomeIdentifierMismatch:
		return ErrIdentifierMismatch
	case OutcomeExpired:
		return ErrPasscodeExpired
	case OutcomeConsumed:
		return ErrPasscodeConsumed
	case OutcomeCodeMismatch:
		return ErrPasscodeMismatch
	default:
		return goerrors.New("unknown verify outcome", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"outcome": string(o)})
	}
}

// RandomCodeGenerator draws each digit from crypto/rand.
type RandomCodeGenerator struct {
	Length int
}

// Generate implements CodeGenerator.
func (g RandomCodeGenerator) Generate() (string, error) {
	length := g.Length
	if length <= 0 {
		length = 6
	}

	var sb strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate passcode")
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}

// FixedCodeGenerator always issues the same code. Demo profile only; the
// production default is RandomCodeGenerator.
type FixedCodeGenerator string

// Generate implements CodeGenerator.
func (g FixedCodeGenerator) Generate() (string, error) {
	return string(g), nil
}

// Passcodes issues and verifies the single outstanding one-time passcode.
type Passcodes struct {
	store  Store
	gen    CodeGenerator
	ttl    time.Duration
	logger Logger
	now    func() time.Time
}

// PasscodesOption customizes the issuer/verifier.
type PasscodesOption func(*Passcodes)

// WithPasscodeTTL overrides the record lifetime.
func WithPasscodeTTL(ttl time.Duration) PasscodesOption {
	return func(p *Passcodes) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithCodeGenerator overrides the code source.
func WithCodeGenerator(gen CodeGenerator) PasscodesOption {
	return func(p *Passcodes) {
		if gen != nil {
			p.gen = gen
		}
	}
}

// WithPasscodeClock injects a custom clock (useful for tests).
func WithPasscodeClock(clock func() time.Time) PasscodesOption {
	return func(p *Passcodes) {
		if clock != nil {
			p.now = clock
		}
	}
}

// WithPasscodeLogger overrides the logger.
func WithPasscodeLogger(logger Logger) PasscodesOption {
	return func(p *Passcodes) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPasscodes returns a passcode issuer/verifier over the given store.
func NewPasscodes(store Store, opts ...PasscodesOption) *Passcodes {
	p := &Passcodes{
		store:  store,
		gen:    RandomCodeGenerator{Length: 6},
		ttl:    DefaultPasscodeTTL,
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// Issue creates and persists a new record for identifier, overwriting any
// outstanding record regardless of owner or state.
func (p *Passcodes) Issue(ctx context.Context, identifier string) (*PasscodeRecord, error) {
	code, err := p.gen.Generate()
	if err != nil {
		return nil, err
	}

	now := p.now()
	record := &PasscodeRecord{
		Identifier: identifier,
		Code:       code,
		IssuedAt:   now,
		ExpiresAt:  now.Add(p.ttl),
		Consumed:   false,
	}

	if err := p.save(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// Clear removes the outstanding record, if any.
func (p *Passcodes) Clear(ctx context.Context) error {
	if err := p.store.Remove(ctx, StorageKeyPasscode); err != nil && !IsKeyNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear pending passcode")
	}
	return nil
}

// Pending returns the outstanding record. A corrupt persisted record is
// purged and reported as absent.
func (p *Passcodes) Pending(ctx context.Context) (*PasscodeRecord, error) {
	raw, err := p.store.Get(ctx, StorageKeyPasscode)
	if err != nil {
		if IsKeyNotFound(err) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read pending passcode")
	}

	record := &PasscodeRecord{}
	if err := json.Unmarshal(raw, record); err != nil {
		p.logger.Warn("pending passcode corrupt, purging: %v", err)
		if rerr := p.store.Remove(ctx, StorageKeyPasscode); rerr != nil {
			p.logger.Warn("pending passcode purge failed: %v", rerr)
		}
		return nil, nil
	}

	return record, nil
}

// Verify checks code against the outstanding record. The checks run in a
// fixed order so each failure reports its true cause: missing record,
// wrong identifier, expiry, prior consumption, then code comparison. A
// valid check marks the record consumed and persists it.
func (p *Passcodes) Verify(ctx context.Context, identifier, code string) (VerifyOutcome, error) {
	record, err := p.Pending(ctx)
	if err != nil {
		return OutcomeNoRecord, err
	}

	if record == nil {
		return OutcomeNoRecord, nil
	}

	if record.Identifier != identifier {
		return OutcomeIdentifierMismatch, nil
	}

	if p.now().After(record.ExpiresAt) {
		return OutcomeExpired, nil
	}

	if record.Consumed {
		return OutcomeConsumed, nil
	}

	if record.Code != code {
		return OutcomeCodeMismatch, nil
	}

	record.Consumed = true
	if err := p.save(ctx, record); err != nil {
		return OutcomeValid, err
	}

	return OutcomeValid, nil
}

func (p *Passcodes) save(ctx context.Context, record *PasscodeRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode passcode record")
	}
	if err := p.store.Set(ctx, StorageKeyPasscode, raw); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist passcode record")
	}
	return nil
}
