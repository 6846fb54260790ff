package shield

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleAdmin has access to every dashboard including settings
	RoleAdmin UserRole = "admin"
	// RoleCashier covers billing, KOT creation and the alert feed
	RoleCashier UserRole = "cashier"
	// RoleKitchen covers the kitchen order ticket board
	RoleKitchen UserRole = "kitchen"
)

// Identity is a known user of the system. Fallback (demo) identities carry
// a fixed role and stand in for primary identities when a login cannot
// complete normally.
type Identity struct {
	Identifier  string   `json:"email"`
	DisplayName string   `json:"name"`
	Role        UserRole `json:"role"`
	SecretHash  string   `json:"-"`
}

// PasscodeRecord is the single outstanding one-time passcode. A new
// issuance overwrites the previous record; there is no queue.
type PasscodeRecord struct {
	Identifier string    `json:"email"`
	Code       string    `json:"code"`
	IssuedAt   time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Consumed   bool      `json:"verified"`
}

// ActivityRecord is one entry of the append-only audit log.
type ActivityRecord struct {
	ID         uuid.UUID `json:"id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Identifier string    `json:"email"`
	Action     string    `json:"action"`
	Details    string    `json:"details"`
}

// Audit actions recorded by the auth flow.
const (
	ActionOTPSent           = "otp_sent"
	ActionFallbackTriggered = "fallback_triggered"
	ActionFallbackLogin     = "fallback_login"
	ActionLogin             = "login"
	ActionLogout            = "logout"
)

// Storage keys, one subsystem per key. The names match the web client's
// local-storage keys so exported data stays readable by its tooling.
const (
	StorageKeySession  = "posguard_user"
	StorageKeyPasscode = "posguard_pending_otp"
	StorageKeyActivity = "posguard_activities"
)

// Timing defaults. The 60s inactivity timeout is a demo value; production
// configs should override it on the session supervisor.
const (
	DefaultPasscodeTTL       = 5 * time.Minute
	DefaultInactivityTimeout = 60 * time.Second
	DefaultActivityLimit     = 500
)
