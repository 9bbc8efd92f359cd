package auth

import (
	"errors"
	"testing"

	"github.com/mscandco/distribution-api/internal/model"
)

const testSecret = "test-secret"

type stubVerifier struct {
	claims *Claims
	err    error
}

func (s *stubVerifier) Validate(string) (*Claims, error) { return s.claims, s.err }
func (s *stubVerifier) Close() error                     { return nil }

func TestLegacyTokenIdentity(t *testing.T) {
	token, err := SignLegacyToken(testSecret, Identity{UserID: "u1", Email: "u1@example.com", Role: model.RoleLabelAdmin, LabelID: "l1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	id, err := NewAuthenticator(nil, testSecret).FromHeader("Bearer " + token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	actor := id.Actor()
	if actor.Role != model.RoleLabelAdmin || actor.UserID != "u1" || actor.LabelScope != "l1" {
		t.Errorf("unexpected actor %+v", actor)
	}
}

func TestLegacyTokenWithoutRole(t *testing.T) {
	token, err := SignLegacyToken(testSecret, Identity{UserID: "u1", Role: "producer"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = NewAuthenticator(nil, testSecret).Authenticate(token)
	if !errors.Is(err, ErrNoRole) {
		t.Errorf("expected ErrNoRole, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	token, _ := SignLegacyToken("other-secret", Identity{UserID: "u1", Role: model.RoleArtist})
	_, err := NewAuthenticator(nil, testSecret).Authenticate(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestMalformedHeader(t *testing.T) {
	a := NewAuthenticator(nil, testSecret)
	for _, h := range []string{"", "Bearer", "Basic abc", "Bearer "} {
		if _, err := a.FromHeader(h); !errors.Is(err, ErrNoToken) {
			t.Errorf("%q: expected ErrNoToken, got %v", h, err)
		}
	}
}

func TestNotConfigured(t *testing.T) {
	_, err := NewAuthenticator(nil, "").Authenticate("anything")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestJWKSClaimsPreferred(t *testing.T) {
	v := &stubVerifier{claims: &Claims{UserID: "zitadel-1", Roles: []string{"unknown", "distribution_partner"}}}
	id, err := NewAuthenticator(v, testSecret).Authenticate("opaque")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.Role != model.RoleDistributionPartner || id.UserID != "zitadel-1" {
		t.Errorf("unexpected identity %+v", id)
	}
}

func TestJWKSProjectRoles(t *testing.T) {
	c := &Claims{
		UserID: "zitadel-2",
		ProjectRoles: map[string]map[string]string{
			"company_admin": {"org-1": "mscandco.example"},
		},
	}
	id, err := c.Identity()
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if id.Role != model.RoleCompanyAdmin {
		t.Errorf("expected company_admin, got %s", id.Role)
	}
}

func TestJWKSFailureFallsBackToLegacy(t *testing.T) {
	v := &stubVerifier{err: errors.New("unknown kid")}
	token, _ := SignLegacyToken(testSecret, Identity{UserID: "u1", Role: model.RoleArtist})

	id, err := NewAuthenticator(v, testSecret).Authenticate(token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.Role != model.RoleArtist {
		t.Errorf("expected artist, got %s", id.Role)
	}

	if _, err := NewAuthenticator(v, "").Authenticate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken without fallback, got %v", err)
	}
}
