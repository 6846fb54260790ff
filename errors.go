package shield

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to clients so failure causes stay distinguishable.
const (
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeWeakSecret         = "WEAK_SECRET"
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeNoPendingPasscode  = "NO_PENDING_PASSCODE"
	TextCodePasscodeExpired    = "PASSCODE_EXPIRED"
	TextCodePasscodeConsumed   = "PASSCODE_CONSUMED"
	TextCodePasscodeMismatch   = "PASSCODE_MISMATCH"
	TextCodeIdentifierMismatch = "IDENTIFIER_MISMATCH"
	TextCodeDispatchFailed     = "PASSCODE_DISPATCH_FAILED"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeKeyNotFound        = "KEY_NOT_FOUND"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeForbidden          = "FORBIDDEN"
)

// ErrIdentityNotFound is returned for identifiers absent from the
// credential directory.
var ErrIdentityNotFound = goerrors.New("identity not recognized", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrWeakSecret is returned when a supplied secret fails the minimum
// length rule.
var ErrWeakSecret = goerrors.New("password must be at least 6 characters long", goerrors.CategoryValidation).
	WithTextCode(TextCodeWeakSecret).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedSecret is returned when a supplied secret does not match
// the identity's stored hash.
var ErrMismatchedSecret = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoOutstandingPasscode means verify ran with no pending record.
var ErrNoOutstandingPasscode = goerrors.New("no pending verification found, request a new passcode", goerrors.CategoryAuth).
	WithTextCode(TextCodeNoPendingPasscode).
	WithCode(goerrors.CodeUnauthorized)

// ErrPasscodeExpired means the pending record outlived its TTL.
var ErrPasscodeExpired = goerrors.New("verification code has expired, request a new code", goerrors.CategoryAuth).
	WithTextCode(TextCodePasscodeExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrPasscodeConsumed means the pending record was already used once.
var ErrPasscodeConsumed = goerrors.New("this code has already been used, request a new code", goerrors.CategoryAuth).
	WithTextCode(TextCodePasscodeConsumed).
	WithCode(goerrors.CodeUnauthorized)

// ErrPasscodeMismatch means the supplied code differs from the record's.
var ErrPasscodeMismatch = goerrors.New("invalid verification code", goerrors.CategoryAuth).
	WithTextCode(TextCodePasscodeMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentifierMismatch means the pending record belongs to a different
// identifier than the one confirming.
var ErrIdentifierMismatch = goerrors.New("email address does not match the verification request", goerrors.CategoryAuth).
	WithTextCode(TextCodeIdentifierMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrDispatchFailed means the passcode could not be delivered and no
// fallback path applied.
var ErrDispatchFailed = goerrors.New("failed to send verification code", goerrors.CategoryOperation).
	WithTextCode(TextCodeDispatchFailed).
	WithCode(goerrors.CodeInternal)

// ErrKeyNotFound is the Store sentinel for absent keys.
var ErrKeyNotFound = goerrors.New("key not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeKeyNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnableToFindSession is returned when a request carries no session token.
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens past their expiry claim.
var ErrTokenExpired = goerrors.New("session token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail to parse or verify.
var ErrTokenMalformed = goerrors.New("session token malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrRoleNotAllowed is returned when a valid session lacks the role a
// route demands.
var ErrRoleNotAllowed = goerrors.New("access denied for this role", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrNoEmptyString rejects empty input to the secret hasher.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// IsKeyNotFound will check for the Store's missing-key sentinel
func IsKeyNotFound(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == TextCodeKeyNotFound
	}
	return false
}
