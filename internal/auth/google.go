package auth

import (
	"context"
	"fmt"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"

	"dopamine-dashboard/internal/domain"
)

// GoogleIdentity is the subset of a verified Google ID token we keep.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

// GoogleVerifier checks a Google ID token and returns the identity it asserts.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (GoogleIdentity, error)
}

// IDTokenVerifier verifies tokens against Google's published certificates.
type IDTokenVerifier struct {
	clientID string
	verifier googleAuthIDTokenVerifier.Verifier
}

// NewIDTokenVerifier returns a verifier accepting tokens issued for clientID.
func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{clientID: clientID}
}

// Verify validates idToken and decodes its claims.
func (v *IDTokenVerifier) Verify(_ context.Context, idToken string) (GoogleIdentity, error) {
	if v.clientID == "" {
		return GoogleIdentity{}, fmt.Errorf("%w: google login is not configured", domain.ErrUnauthorized)
	}
	if err := v.verifier.VerifyIDToken(idToken, []string{v.clientID}); err != nil {
		return GoogleIdentity{}, fmt.Errorf("%w: invalid google id token", domain.ErrUnauthorized)
	}
	claimSet, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("decode google id token: %w", err)
	}
	if claimSet.Sub == "" || claimSet.Email == "" {
		return GoogleIdentity{}, fmt.Errorf("%w: google id token lacks identity", domain.ErrUnauthorized)
	}
	return GoogleIdentity{Subject: claimSet.Sub, Email: claimSet.Email, Name: claimSet.Name}, nil
}
