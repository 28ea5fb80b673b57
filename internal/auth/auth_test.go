package auth

import (
	"testing"

	"inventar-backend/internal/config"
	"inventar-backend/internal/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "inventar-test"
	cfg.JWT.ExpirationHours = 1
	return cfg
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(testConfig())
	user := &models.User{ID: 42, Name: "Jo", Email: "jo@example.org", Role: models.RoleAdmin, IsActive: true}

	token, err := m.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 || claims.Role != models.RoleAdmin || claims.Name != "Jo" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokenWithOtherSecretIsRejected(t *testing.T) {
	token, err := NewJWTManager(testConfig()).GenerateToken(&models.User{ID: 1})
	if err != nil {
		t.Fatal(err)
	}
	other := testConfig()
	other.JWT.Secret = "different"
	if _, err := NewJWTManager(other).ValidateToken(token); err == nil {
		t.Fatal("expected validation failure")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(hash, "correct horse") {
		t.Fatal("password should verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatal("wrong password should not verify")
	}
}
