package shield_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shield "github.com/it22317094/posguard-brylix-shield"
)

func TestTokenServiceMintAndValidate(t *testing.T) {
	svc := shield.NewTokenService([]byte("test-signing-key"), 24, "posguard", []string{"posguard"}, nil)

	token, err := svc.Mint(&shield.Identity{
		Identifier:  "admin@posguard.com",
		DisplayName: "Admin User",
		Role:        shield.RoleAdmin,
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, "admin@posguard.com", claims.Subject())
	assert.Equal(t, "admin@posguard.com", claims.UserID())
	assert.Equal(t, "Admin User", claims.DisplayName())
	assert.Equal(t, string(shield.RoleAdmin), claims.Role())
	assert.True(t, claims.HasRole(string(shield.RoleAdmin)))
	assert.False(t, claims.HasRole(string(shield.RoleKitchen)))
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.Expires(), time.Minute)
}

func TestTokenServiceMintNilIdentity(t *testing.T) {
	svc := shield.NewTokenService([]byte("test-signing-key"), 24, "posguard", nil, nil)

	_, err := svc.Mint(nil)
	assert.Error(t, err)
}

func TestTokenServiceValidateWrongKey(t *testing.T) {
	minter := shield.NewTokenService([]byte("key-one"), 24, "posguard", nil, nil)
	checker := shield.NewTokenService([]byte("key-two"), 24, "posguard", nil, nil)

	token, err := minter.Mint(&shield.Identity{
		Identifier: "admin@posguard.com",
		Role:       shield.RoleAdmin,
	})
	require.NoError(t, err)

	_, err = checker.Validate(token)
	assert.Error(t, err)
}

func TestTokenServiceValidateGarbage(t *testing.T) {
	svc := shield.NewTokenService([]byte("test-signing-key"), 24, "posguard", nil, nil)

	_, err := svc.Validate("not.a.token")
	assert.Error(t, err)
}

func TestTokenServiceValidateWrongIssuer(t *testing.T) {
	minter := shield.NewTokenService([]byte("test-signing-key"), 24, "someone-else", nil, nil)
	checker := shield.NewTokenService([]byte("test-signing-key"), 24, "posguard", nil, nil)

	token, err := minter.Mint(&shield.Identity{
		Identifier: "admin@posguard.com",
		Role:       shield.RoleAdmin,
	})
	require.NoError(t, err)

	_, err = checker.Validate(token)
	assert.Error(t, err)
}

func TestTokenServiceValidateWrongAudience(t *testing.T) {
	minter := shield.NewTokenService([]byte("test-signing-key"), 24, "posguard", []string{"somewhere-else"}, nil)
	checker := shield.NewTokenService([]byte("test-signing-key"), 24, "posguard", []string{"posguard"}, nil)

	token, err := minter.Mint(&shield.Identity{
		Identifier: "admin@posguard.com",
		Role:       shield.RoleAdmin,
	})
	require.NoError(t, err)

	_, err = checker.Validate(token)
	assert.Error(t, err)

	// a token carrying the expected audience still validates
	own, err := checker.Mint(&shield.Identity{
		Identifier: "admin@posguard.com",
		Role:       shield.RoleAdmin,
	})
	require.NoError(t, err)

	_, err = checker.Validate(own)
	assert.NoError(t, err)
}

func TestTokenServiceRejectsUnknownRole(t *testing.T) {
	svc := shield.NewTokenService([]byte("test-signing-key"), 24, "posguard", nil, nil)

	token, err := svc.Mint(&shield.Identity{
		Identifier: "admin@posguard.com",
		Role:       "superuser",
	})
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, shield.ErrTokenMalformed)
}

func TestJWTClaimsIdentity(t *testing.T) {
	svc := shield.NewTokenService([]byte("test-signing-key"), 24, "posguard", nil, nil)

	token, err := svc.Mint(&shield.Identity{
		Identifier:  "cashier@posguard.com",
		DisplayName: "John Cashier",
		Role:        shield.RoleCashier,
	})
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	jwtClaims, ok := claims.(*shield.JWTClaims)
	require.True(t, ok)

	identity := jwtClaims.Identity()
	assert.Equal(t, "cashier@posguard.com", identity.Identifier)
	assert.Equal(t, "John Cashier", identity.DisplayName)
	assert.Equal(t, shield.RoleCashier, identity.Role)
}
