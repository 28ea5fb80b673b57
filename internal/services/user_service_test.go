package services

import (
	"context"
	"errors"
	"testing"

	"inventar-backend/internal/auth"
	"inventar-backend/internal/config"
	"inventar-backend/internal/models"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "inventar-test"
	cfg.JWT.ExpirationHours = 1
	return NewUserService(newTestStore(t).Users(), auth.NewJWTManager(cfg))
}

func TestSignupOnlyForFirstUser(t *testing.T) {
	s := newUserService(t)
	ctx := context.Background()

	resp, err := s.Signup(ctx, &models.SignupRequest{Name: "Alex", Email: "Alex@Example.org", Password: "geheim123"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if resp.Token == "" || resp.User.Role != models.RoleAdmin || resp.User.Email != "alex@example.org" {
		t.Fatalf("unexpected response %+v", resp.User)
	}

	claims, err := s.JWTManager.ValidateToken(resp.Token)
	if err != nil || claims.UserID != resp.User.ID {
		t.Fatalf("token invalid: %+v %v", claims, err)
	}

	_, err = s.Signup(ctx, &models.SignupRequest{Name: "Sam", Email: "sam@example.org", Password: "geheim123"})
	if !errors.Is(err, ErrSignupClosed) {
		t.Fatalf("expected signup closed, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	s := newUserService(t)
	ctx := context.Background()

	cases := []*models.SignupRequest{
		{Name: "", Email: "a@example.org", Password: "geheim123"},
		{Name: "A", Email: "not-an-address", Password: "geheim123"},
		{Name: "A", Email: "a@example.org", Password: "kurz"},
	}
	for _, req := range cases {
		if _, err := s.CreateUser(ctx, req, models.RoleMember); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}

	if _, err := s.CreateUser(ctx, &models.SignupRequest{Name: "A", Email: "a@example.org", Password: "geheim123"}, models.RoleMember); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser(ctx, &models.SignupRequest{Name: "B", Email: "A@example.org", Password: "geheim123"}, models.RoleMember); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected duplicate email to be rejected, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	s := newUserService(t)
	ctx := context.Background()
	if _, err := s.CreateUser(ctx, &models.SignupRequest{Name: "Robin", Email: "robin@example.org", Password: "geheim123"}, models.RoleMember); err != nil {
		t.Fatalf("create: %v", err)
	}

	resp, err := s.Login(ctx, &models.LoginRequest{Email: "ROBIN@example.org", Password: "geheim123"})
	if err != nil || resp.Token == "" {
		t.Fatalf("login: %v", err)
	}
	if _, err := s.Login(ctx, &models.LoginRequest{Email: "robin@example.org", Password: "falsch123"}); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := s.Login(ctx, &models.LoginRequest{Email: "nobody@example.org", Password: "geheim123"}); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	s := newUserService(t)
	ctx := context.Background()
	hash, err := auth.HashPassword("geheim123")
	if err != nil {
		t.Fatal(err)
	}
	user := &models.User{Name: "Alex", Email: "alex@example.org", PasswordHash: hash, Role: models.RoleMember, IsActive: false}
	if err := s.Repo.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.Login(ctx, &models.LoginRequest{Email: "alex@example.org", Password: "geheim123"}); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("inactive user logged in, err = %v", err)
	}
}
