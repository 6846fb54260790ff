package shield

import "context"

// NoticeCode identifies the cause category of a user-facing message.
// Auto-logout and explicit logout carry distinct codes on purpose.
type NoticeCode string

const (
	NoticePasscodeSent NoticeCode = "passcode_sent"
	NoticeLoginSuccess NoticeCode = "login_success"
	NoticeLoggedOut    NoticeCode = "logged_out"
	NoticeAutoLogout   NoticeCode = "auto_logout"
	NoticeAuthFailed   NoticeCode = "auth_failed"
)

// Notice is a user-facing message. The core never renders UI; the
// embedding surface decides how a notice is shown.
type Notice struct {
	Code    NoticeCode
	Title   string
	Message string
}

// Notifier consumes notices emitted by the auth flow.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, notice Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, notice Notice) {
	if f == nil {
		return
	}
	f(ctx, notice)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notice) {}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
