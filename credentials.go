package shield

import (
	goerrors "github.com/goliatone/go-errors"
)

// CredentialStore is the static directory of known identities: primary
// identities for the intended real users and one fallback (demo) identity
// per role, plus the primary to fallback mapping. Pure lookup, no side
// effects.
type CredentialStore struct {
	identities map[string]Identity
	primaries  map[string]struct{}
	fallbacks  map[string]string
}

// NewCredentialStore builds a directory from the given identity sets. The
// mapping must be total over primary identities and every target must be a
// known fallback identity; the fallback's role is what a substituted login
// adopts, so the mapping is deliberately not required to preserve roles.
func NewCredentialStore(primary, fallback []Identity, mapping map[string]string) (*CredentialStore, error) {
	s := &CredentialStore{
		identities: make(map[string]Identity, len(primary)+len(fallback)),
		primaries:  make(map[string]struct{}, len(primary)),
		fallbacks:  make(map[string]string, len(mapping)),
	}

	fallbackSet := make(map[string]struct{}, len(fallback))
	for _, id := range fallback {
		if !IsValidRole(id.Role) {
			return nil, invalidDirectory("fallback identity has unknown role", id)
		}
		s.identities[id.Identifier] = id
		fallbackSet[id.Identifier] = struct{}{}
	}

	for _, id := range primary {
		if !IsValidRole(id.Role) {
			return nil, invalidDirectory("primary identity has unknown role", id)
		}
		s.identities[id.Identifier] = id
		s.primaries[id.Identifier] = struct{}{}

		target, ok := mapping[id.Identifier]
		if !ok {
			return nil, invalidDirectory("primary identity has no fallback mapping", id)
		}
		if _, ok := fallbackSet[target]; !ok {
			return nil, invalidDirectory("fallback mapping targets unknown identity", id)
		}
		s.fallbacks[id.Identifier] = target
	}

	return s, nil
}

func invalidDirectory(msg string, id Identity) error {
	return goerrors.New(msg, goerrors.CategoryValidation).
		WithMetadata(map[string]any{
			"identifier": id.Identifier,
			"role":       id.Role,
		})
}

// Lookup returns the identity registered under identifier.
func (s *CredentialStore) Lookup(identifier string) (*Identity, error) {
	id, ok := s.identities[identifier]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return &id, nil
}

// IsPrimary reports whether identifier belongs to a primary identity.
func (s *CredentialStore) IsPrimary(identifier string) bool {
	_, ok := s.primaries[identifier]
	return ok
}

// FallbackFor returns the fallback identity mapped to a primary
// identifier. Fallback identities themselves have no further mapping.
func (s *CredentialStore) FallbackFor(identifier string) (*Identity, error) {
	target, ok := s.fallbacks[identifier]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return s.Lookup(target)
}

// DefaultDirectory is the POSGuard demo directory: three primary accounts
// and one demo account per role.
func DefaultDirectory() *CredentialStore {
	primary := []Identity{
		{Identifier: "it22317094@my.sliit.lk", DisplayName: "Hanthanapitiya", Role: RoleAdmin},
		{Identifier: "dinupahanthanapitiya@gmail.com", DisplayName: "Dinupa", Role: RoleCashier},
		{Identifier: "darkatomhacker@gmail.com", DisplayName: "Atom", Role: RoleKitchen},
	}

	fallback := []Identity{
		{Identifier: "admin@posguard.com", DisplayName: "Admin User", Role: RoleAdmin},
		{Identifier: "cashier@posguard.com", DisplayName: "John Cashier", Role: RoleCashier},
		{Identifier: "kitchen@posguard.com", DisplayName: "Kitchen Staff", Role: RoleKitchen},
	}

	mapping := map[string]string{
		"it22317094@my.sliit.lk":         "admin@posguard.com",
		"dinupahanthanapitiya@gmail.com": "cashier@posguard.com",
		"darkatomhacker@gmail.com":       "kitchen@posguard.com",
	}

	s, err := NewCredentialStore(primary, fallback, mapping)
	if err != nil {
		panic(err)
	}
	return s
}
