package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderResolver(t *testing.T) {
	r := NewHeaderResolver()

	t.Run("normalizes the email", func(t *testing.T) {
		p, err := r.Resolve(context.Background(), "  Editor@Example.ORG ")
		require.NoError(t, err)
		assert.Equal(t, "editor@example.org", p.Email)
		assert.Equal(t, "editor@example.org", p.Subject)
		assert.Empty(t, p.Roles)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "   ")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	for _, bad := range []string{"nobody", "@example.org", "someone@"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), bad)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPrincipalFromClaims(t *testing.T) {
	verified, unverified := true, false

	t.Run("maps claims", func(t *testing.T) {
		claims := UserClaims{Sub: "abc-123", Email: "Admin@Example.org", EmailVerified: &verified}
		claims.RealmAccess.Roles = []string{"offline_access", "fern-admin"}

		p, err := principalFromClaims(claims)
		require.NoError(t, err)
		assert.Equal(t, "admin@example.org", p.Email)
		assert.Equal(t, "abc-123", p.Subject)
		assert.True(t, p.HasRole("fern-admin"))
		assert.False(t, p.HasRole("admin"))
	})

	t.Run("no roles is an empty slice", func(t *testing.T) {
		p, err := principalFromClaims(UserClaims{Sub: "s", Email: "a@b.c"})
		require.NoError(t, err)
		assert.NotNil(t, p.Roles)
	})

	t.Run("email required", func(t *testing.T) {
		_, err := principalFromClaims(UserClaims{Sub: "s"})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unverified email rejected", func(t *testing.T) {
		_, err := principalFromClaims(UserClaims{Sub: "s", Email: "a@b.c", EmailVerified: &unverified})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestOIDCResolverEmptyToken(t *testing.T) {
	r := &OIDCResolver{}
	_, err := r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}
