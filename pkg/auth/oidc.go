package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/coreos/go-oidc/v3/oidc"
)

const verifyTimeout = 5 * time.Second

// UserClaims is the subset of ID token claims the service reads.
type UserClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	RealmAccess   struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

type tokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// OIDCResolver verifies bearer ID tokens against an OIDC issuer.
type OIDCResolver struct {
	verifier tokenVerifier
}

// NewOIDCResolver discovers the issuer's keys. It fails when the issuer cannot be reached.
func NewOIDCResolver(ctx context.Context, issuer, clientID string) (*OIDCResolver, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}

	return &OIDCResolver{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// NewOIDCResolverWithKeys builds a resolver over a fixed key set, for issuers without discovery.
func NewOIDCResolverWithKeys(issuer, clientID string, keys oidc.KeySet) *OIDCResolver {
	return &OIDCResolver{
		verifier: oidc.NewVerifier(issuer, keys, &oidc.Config{ClientID: clientID}),
	}
}

func (r *OIDCResolver) Resolve(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrMissingToken
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	idToken, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims UserClaims
	if err := idToken.Claims(&claims); err != nil {
		return Principal{}, fmt.Errorf("%w: cannot parse claims: %v", ErrInvalidToken, err)
	}

	return principalFromClaims(claims)
}

func principalFromClaims(claims UserClaims) (Principal, error) {
	email := normalizers.NormalizeEmail(claims.Email)
	if email == "" {
		return Principal{}, fmt.Errorf("%w: token has no email claim", ErrInvalidToken)
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return Principal{}, fmt.Errorf("%w: email is not verified", ErrInvalidToken)
	}

	roles := claims.RealmAccess.Roles
	if roles == nil {
		roles = []string{}
	}

	return Principal{
		Email:   email,
		Subject: claims.Sub,
		Roles:   roles,
	}, nil
}
