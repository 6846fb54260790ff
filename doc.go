// Package shield implements the authentication and session core of the
// POSGuard point-of-sale companion: passcode (OTP) issuance and
// verification, fallback identity resolution for demo accounts, an
// inactivity-supervised session, and an audit activity log.
//
// The package is transport agnostic. State is persisted through the Store
// port, user-facing messages go through the Notifier port, and the HTTP
// surface in http.go / http_controller.go is one consumer among others.
package shield
