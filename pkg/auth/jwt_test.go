package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

const testSecret = "test-secret-key-must-be-at-least-32-characters-long"

func newManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testSecret, 30*time.Minute, nil)
	if err != nil {
		t.Fatalf("Failed to create JWT manager: %v", err)
	}
	return m
}

func TestNewJWTManager_ShortSecret(t *testing.T) {
	if _, err := NewJWTManager("short", time.Minute, nil); !errors.Is(err, ErrShortSecret) {
		t.Errorf("Expected ErrShortSecret, got %v", err)
	}
}

func TestJWTManager_GenerateToken(t *testing.T) {
	m := newManager(t)

	tests := []struct {
		name      string
		username  string
		role      string
		wantError bool
	}{
		{"Analyst token", "alice", schema.RoleAnalyst, false},
		{"Admin token", "admin", schema.RoleAdmin, false},
		{"Empty username should fail", "", schema.RoleAnalyst, true},
		{"Unknown role should fail", "bob", "viewer", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, claims, err := m.GenerateToken(tt.username, tt.role)
			if tt.wantError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if token == "" || claims.ID == "" {
				t.Error("Expected a token with a jti")
			}
			if claims.Username() != tt.username || claims.Role != tt.role {
				t.Errorf("Unexpected claims %+v", claims)
			}
		})
	}
}

func TestJWTManager_ValidateToken(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	token, issued, err := m.GenerateToken("alice", schema.RoleAnalyst)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := m.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != "alice" || claims.ID != issued.ID || claims.IsAdmin() {
		t.Errorf("Unexpected claims %+v", claims)
	}

	if _, err := m.ValidateToken(ctx, ""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Empty token: expected ErrInvalidToken, got %v", err)
	}
	if _, err := m.ValidateToken(ctx, token+"x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Tampered token: expected ErrInvalidToken, got %v", err)
	}

	other, _ := NewJWTManager(strings.Repeat("z", 32), time.Minute, nil)
	if _, err := other.ValidateToken(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Wrong secret: expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTManager_Expired(t *testing.T) {
	m := newManager(t)
	issuedAt := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issuedAt }

	token, _, err := m.GenerateToken("alice", schema.RoleAnalyst)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	m.now = time.Now
	if _, err := m.ValidateToken(context.Background(), token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTManager_RejectsMissingClaims(t *testing.T) {
	m := newManager(t)
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		claims Claims
	}{
		{"Missing sub", Claims{Role: "analyst", RegisteredClaims: jwt.RegisteredClaims{ID: "x", ExpiresAt: exp}}},
		{"Missing jti", Claims{Role: "analyst", RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", ExpiresAt: exp}}},
		{"Missing exp", Claims{Role: "analyst", RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", ID: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &tt.claims).SignedString([]byte(testSecret))
			if err != nil {
				t.Fatalf("Failed to sign: %v", err)
			}
			if _, err := m.ValidateToken(context.Background(), signed); err == nil {
				t.Error("Expected validation to fail")
			}
		})
	}
}

func TestJWTManager_RejectsOtherAlgorithms(t *testing.T) {
	m := newManager(t)
	claims := &Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
		Subject: "mallory", ID: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign: %v", err)
	}
	if _, err := m.ValidateToken(context.Background(), signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected HS512 to be rejected, got %v", err)
	}
}

func TestJWTManager_Revoke(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	token, claims, _ := m.GenerateToken("alice", schema.RoleAnalyst)
	keep, _, _ := m.GenerateToken("alice", schema.RoleAnalyst)

	if err := m.Revoke(ctx, claims); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := m.ValidateToken(ctx, token); !errors.Is(err, ErrRevokedToken) {
		t.Errorf("Expected ErrRevokedToken, got %v", err)
	}
	if _, err := m.ValidateToken(ctx, keep); err != nil {
		t.Errorf("Other tokens of the same user stay valid, got %v", err)
	}

	if err := m.Revoke(ctx, &Claims{}); !errors.Is(err, ErrInvalidClaims) {
		t.Errorf("Expected ErrInvalidClaims for claims without jti, got %v", err)
	}
}

func TestClaimsContext(t *testing.T) {
	if _, ok := ClaimsFromContext(context.Background()); ok {
		t.Error("Expected no claims on a bare context")
	}

	claims := &Claims{Role: schema.RoleAnalyst}
	claims.Subject = "alice"
	got, ok := ClaimsFromContext(WithClaims(context.Background(), claims))
	if !ok || got.Username() != "alice" {
		t.Errorf("Expected alice, got %+v", got)
	}
}
