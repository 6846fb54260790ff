package shield_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shield "github.com/it22317094/posguard-brylix-shield"
	"github.com/it22317094/posguard-brylix-shield/storage/memory"
)

type captureDispatcher struct {
	err     error
	records []*shield.PasscodeRecord
}

func (d *captureDispatcher) Dispatch(_ context.Context, _ *shield.Identity, record *shield.PasscodeRecord) error {
	if d.err != nil {
		return d.err
	}
	d.records = append(d.records, record)
	return nil
}

func newTestAuther(t *testing.T, opts ...shield.AuthOption) (*shield.Auther, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	base := []shield.AuthOption{
		shield.WithNotifier(notifier),
		shield.WithAuthCodeGenerator(shield.FixedCodeGenerator("123456")),
	}
	auther := shield.NewAuthenticator(
		shield.DefaultDirectory(),
		memory.New(),
		append(base, opts...)...,
	)
	t.Cleanup(auther.Stop)
	return auther, notifier
}

func actions(t *testing.T, auther *shield.Auther) []string {
	t.Helper()
	records, err := auther.Activity().Recent(context.Background(), 0)
	require.NoError(t, err)
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Action
	}
	return out
}

func TestAutherPasscodeLoginFlow(t *testing.T) {
	dispatcher := &captureDispatcher{}
	auther, notifier := newTestAuther(t, shield.WithDispatcher(dispatcher))
	ctx := context.Background()

	err := auther.RequestPasscode(ctx, "admin@posguard.com", "password123")
	require.NoError(t, err)
	assert.False(t, auther.IsAuthenticated())

	require.Len(t, dispatcher.records, 1)
	assert.Equal(t, "123456", dispatcher.records[0].Code)
	assert.Contains(t, notifier.Codes(), shield.NoticePasscodeSent)

	identity, err := auther.ConfirmPasscode(ctx, "admin@posguard.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "admin@posguard.com", identity.Identifier)
	assert.Equal(t, shield.RoleAdmin, identity.Role)

	assert.True(t, auther.IsAuthenticated())
	current, ok := auther.CurrentIdentity()
	require.True(t, ok)
	assert.Equal(t, "Admin User", current.DisplayName)

	assert.Contains(t, notifier.Codes(), shield.NoticeLoginSuccess)
	assert.Equal(t, []string{shield.ActionOTPSent, shield.ActionLogin}, actions(t, auther))
}

func TestAutherDispatchFailureFallsBack(t *testing.T) {
	dispatcher := &captureDispatcher{err: errors.New("smtp unreachable")}
	auther, notifier := newTestAuther(t, shield.WithDispatcher(dispatcher))
	ctx := context.Background()

	err := auther.RequestPasscode(ctx, "it22317094@my.sliit.lk", "password123")
	require.NoError(t, err)

	// the failure is swallowed without opening a session; the caller sees
	// a normal passcode prompt
	assert.False(t, auther.IsAuthenticated())
	assert.NotContains(t, notifier.Codes(), shield.NoticeLoginSuccess)
	assert.Contains(t, notifier.Codes(), shield.NoticePasscodeSent)
	assert.Equal(t, []string{shield.ActionFallbackTriggered}, actions(t, auther))

	// no stale passcode survives the failed dispatch; the confirm with
	// any code takes the no-record path straight into fallback resolution
	identity, err := auther.ConfirmPasscode(ctx, "it22317094@my.sliit.lk", "123456")
	require.NoError(t, err)
	assert.Equal(t, "it22317094@my.sliit.lk", identity.Identifier)
	assert.Equal(t, "Hanthanapitiya", identity.DisplayName)
	assert.Equal(t, shield.RoleAdmin, identity.Role)

	assert.True(t, auther.IsAuthenticated())
	assert.Contains(t, notifier.Codes(), shield.NoticeLoginSuccess)
	assert.Equal(t, []string{
		shield.ActionFallbackTriggered,
		shield.ActionFallbackLogin,
		shield.ActionLogin,
	}, actions(t, auther))
}

func TestAutherConfirmWrongCodeFallsBack(t *testing.T) {
	auther, notifier := newTestAuther(t)
	ctx := context.Background()

	require.NoError(t, auther.RequestPasscode(ctx, "dinupahanthanapitiya@gmail.com", "password123"))

	// a primary identity never sees the mismatch; the mapped demo account
	// takes over with its own role
	identity, err := auther.ConfirmPasscode(ctx, "dinupahanthanapitiya@gmail.com", "999999")
	require.NoError(t, err)
	assert.Equal(t, "dinupahanthanapitiya@gmail.com", identity.Identifier)
	assert.Equal(t, "Dinupa", identity.DisplayName)
	assert.Equal(t, shield.RoleCashier, identity.Role)

	assert.True(t, auther.IsAuthenticated())
	assert.NotContains(t, notifier.Codes(), shield.NoticeAuthFailed)

	// the trail carries both the substitution and the resulting login
	got := actions(t, auther)
	assert.Contains(t, got, shield.ActionFallbackLogin)
	assert.Contains(t, got, shield.ActionLogin)
}

func TestAutherConfirmIdentifierMismatchNeverFallsBack(t *testing.T) {
	auther, _ := newTestAuther(t)
	ctx := context.Background()

	// the pending record belongs to the cashier; the admin primary cannot
	// ride it into a fallback session
	require.NoError(t, auther.RequestPasscode(ctx, "dinupahanthanapitiya@gmail.com", "password123"))

	_, err := auther.ConfirmPasscode(ctx, "it22317094@my.sliit.lk", "123456")
	assert.ErrorIs(t, err, shield.ErrIdentifierMismatch)
	assert.False(t, auther.IsAuthenticated())
}

func TestAutherDispatchFailureWithoutFallback(t *testing.T) {
	dispatcher := &captureDispatcher{err: errors.New("smtp unreachable")}
	auther, notifier := newTestAuther(t, shield.WithDispatcher(dispatcher))
	ctx := context.Background()

	// fallback accounts have no further fallback, so the failure surfaces
	err := auther.RequestPasscode(ctx, "admin@posguard.com", "password123")
	require.Error(t, err)
	assert.False(t, auther.IsAuthenticated())
	assert.NotContains(t, notifier.Codes(), shield.NoticeLoginSuccess)

	_, err = auther.ConfirmPasscode(ctx, "admin@posguard.com", "123456")
	assert.ErrorIs(t, err, shield.ErrNoOutstandingPasscode)
}

func TestAutherDispatchFailureFallbackDisabled(t *testing.T) {
	dispatcher := &captureDispatcher{err: errors.New("smtp unreachable")}
	auther, _ := newTestAuther(t,
		shield.WithDispatcher(dispatcher),
		shield.WithAuthFallbackMode(false),
	)

	err := auther.RequestPasscode(context.Background(), "it22317094@my.sliit.lk", "password123")
	require.Error(t, err)
	assert.False(t, auther.IsAuthenticated())
}

func TestAutherRequestPasscodeValidation(t *testing.T) {
	auther, _ := newTestAuther(t)
	ctx := context.Background()

	t.Run("malformed email", func(t *testing.T) {
		err := auther.RequestPasscode(ctx, "not-an-email", "password123")
		assert.Error(t, err)
	})

	t.Run("unknown identity", func(t *testing.T) {
		err := auther.RequestPasscode(ctx, "stranger@example.com", "password123")
		assert.ErrorIs(t, err, shield.ErrIdentityNotFound)
	})

	t.Run("short secret", func(t *testing.T) {
		err := auther.RequestPasscode(ctx, "admin@posguard.com", "nope")
		assert.ErrorIs(t, err, shield.ErrWeakSecret)
	})

	t.Run("omitted secret", func(t *testing.T) {
		err := auther.RequestPasscode(ctx, "admin@posguard.com", "")
		assert.NoError(t, err)
	})
}

func TestAutherConfirmPasscodeWrongCode(t *testing.T) {
	auther, notifier := newTestAuther(t)
	ctx := context.Background()

	require.NoError(t, auther.RequestPasscode(ctx, "admin@posguard.com", "password123"))

	_, err := auther.ConfirmPasscode(ctx, "admin@posguard.com", "999999")
	assert.ErrorIs(t, err, shield.ErrPasscodeMismatch)
	assert.False(t, auther.IsAuthenticated())
	assert.Contains(t, notifier.Codes(), shield.NoticeAuthFailed)

	// the record survives a failed attempt
	identity, err := auther.ConfirmPasscode(ctx, "admin@posguard.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "admin@posguard.com", identity.Identifier)
}

func TestAutherConfirmPasscodeIdentifierMismatch(t *testing.T) {
	auther, _ := newTestAuther(t)
	ctx := context.Background()

	require.NoError(t, auther.RequestPasscode(ctx, "admin@posguard.com", "password123"))

	_, err := auther.ConfirmPasscode(ctx, "cashier@posguard.com", "123456")
	assert.ErrorIs(t, err, shield.ErrIdentifierMismatch)
}

func TestAutherLogout(t *testing.T) {
	auther, notifier := newTestAuther(t)
	ctx := context.Background()

	require.NoError(t, auther.RequestPasscode(ctx, "admin@posguard.com", "password123"))
	_, err := auther.ConfirmPasscode(ctx, "admin@posguard.com", "123456")
	require.NoError(t, err)

	require.NoError(t, auther.Logout(ctx))
	assert.False(t, auther.IsAuthenticated())
	assert.Contains(t, notifier.Codes(), shield.NoticeLoggedOut)
	assert.Contains(t, actions(t, auther), shield.ActionLogout)
}

func TestAutherSecretHashComparison(t *testing.T) {
	hash, err := shield.HashSecret("correct horse battery")
	require.NoError(t, err)

	primary := []shield.Identity{
		{Identifier: "owner@example.com", DisplayName: "Owner", Role: shield.RoleAdmin, SecretHash: hash},
	}
	fallback := []shield.Identity{
		{Identifier: "demo@example.com", DisplayName: "Demo", Role: shield.RoleAdmin},
	}
	creds, err := shield.NewCredentialStore(primary, fallback, map[string]string{
		"owner@example.com": "demo@example.com",
	})
	require.NoError(t, err)

	auther := shield.NewAuthenticator(creds, memory.New(),
		shield.WithAuthCodeGenerator(shield.FixedCodeGenerator("123456")),
	)
	t.Cleanup(auther.Stop)
	ctx := context.Background()

	err = auther.RequestPasscode(ctx, "owner@example.com", "wrong password")
	assert.ErrorIs(t, err, shield.ErrMismatchedSecret)

	err = auther.RequestPasscode(ctx, "owner@example.com", "correct horse battery")
	assert.NoError(t, err)
}

func TestAutherStartRestoresSession(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	first := shield.NewAuthenticator(shield.DefaultDirectory(), store,
		shield.WithAuthCodeGenerator(shield.FixedCodeGenerator("123456")),
	)
	require.NoError(t, first.RequestPasscode(ctx, "admin@posguard.com", "password123"))
	_, err := first.ConfirmPasscode(ctx, "admin@posguard.com", "123456")
	require.NoError(t, err)
	first.Stop()

	second := shield.NewAuthenticator(shield.DefaultDirectory(), store)
	t.Cleanup(second.Stop)
	require.NoError(t, second.Start(ctx))

	assert.True(t, second.IsAuthenticated())
	identity, ok := second.CurrentIdentity()
	require.True(t, ok)
	assert.Equal(t, "admin@posguard.com", identity.Identifier)
}
