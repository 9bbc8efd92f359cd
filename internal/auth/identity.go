package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mscandco/distribution-api/internal/model"
)

var (
	// ErrNoToken means the request carried no usable bearer token.
	ErrNoToken = errors.New("missing or malformed bearer token")
	// ErrInvalidToken means no configured verifier accepted the token.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrNoRole means the token verified but names no known role.
	ErrNoRole = errors.New("token carries no recognised role")
	// ErrNotConfigured means neither JWKS nor a legacy secret is set up.
	ErrNotConfigured = errors.New("authentication not configured")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID  string
	Email   string
	Name    string
	Role    model.Role
	LabelID string
}

// Actor converts the identity into the workflow actor.
func (i *Identity) Actor() model.Actor {
	return model.Actor{Role: i.Role, UserID: i.UserID, LabelScope: i.LabelID}
}

// newIdentity picks the first recognised role among candidates.
func newIdentity(userID, email, name, labelID string, roles ...string) (*Identity, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: subject is empty", ErrInvalidToken)
	}
	for _, candidate := range roles {
		if role, ok := model.ParseRole(candidate); ok {
			return &Identity{
				UserID:  userID,
				Email:   email,
				Name:    name,
				Role:    role,
				LabelID: labelID,
			}, nil
		}
	}
	return nil, ErrNoRole
}

// Authenticator resolves bearer tokens, trying JWKS first and the legacy
// HMAC secret second.
type Authenticator struct {
	verifier  TokenVerifier
	jwtSecret string
}

// NewAuthenticator creates an authenticator. Either argument may be empty.
func NewAuthenticator(verifier TokenVerifier, jwtSecret string) *Authenticator {
	return &Authenticator{verifier: verifier, jwtSecret: jwtSecret}
}

// Configured reports whether any verification method is available.
func (a *Authenticator) Configured() bool {
	return a.verifier != nil || a.jwtSecret != ""
}

// FromHeader parses an Authorization header value.
func (a *Authenticator) FromHeader(header string) (*Identity, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return nil, ErrNoToken
	}
	return a.Authenticate(parts[1])
}

// Authenticate verifies tokenString and returns the caller identity.
func (a *Authenticator) Authenticate(tokenString string) (*Identity, error) {
	if !a.Configured() {
		return nil, ErrNotConfigured
	}

	if a.verifier != nil {
		claims, err := a.verifier.Validate(tokenString)
		if err == nil {
			return claims.Identity()
		}
		if a.jwtSecret == "" {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	claims, err := ValidateLegacyToken(tokenString, a.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.Identity()
}
