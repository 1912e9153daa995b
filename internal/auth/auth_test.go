package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stocktrack/backend/internal/auth"
	"github.com/stocktrack/backend/internal/repository"
	"github.com/stocktrack/backend/internal/testutil"
)

func newService(t *testing.T) *auth.Service {
	t.Helper()
	pool := testutil.SetupPool(t)
	return auth.NewService(
		repository.NewUserRepo(pool),
		repository.NewSessionRepo(pool),
		time.Hour,
	)
}

func testEmail() string {
	return uuid.NewString() + "@test.local"
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	email := testEmail()

	user, session, err := svc.Register(ctx, email, "correct-horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != email {
		t.Fatalf("email = %q", user.Email)
	}
	if session.Token == "" {
		t.Fatal("registration must auto-login")
	}

	got, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got == nil || got.ID != user.ID {
		t.Fatalf("expected user %s, got %+v", user.ID, got)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "not-an-email", "correct-horse"); !errors.Is(err, auth.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, _, err := svc.Register(ctx, testEmail(), "short"); !errors.Is(err, auth.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	email := testEmail()
	if _, _, err := svc.Register(ctx, email, "correct-horse"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, err := svc.Register(ctx, email, "correct-horse"); !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	email := testEmail()

	if _, _, err := svc.Register(ctx, email, "correct-horse"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, session, err := svc.Login(ctx, email, "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user == nil || session == nil {
		t.Fatal("expected user and session")
	}

	if _, _, err := svc.Login(ctx, email, "wrong-password"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, testEmail(), "correct-horse"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("unknown email must look like bad credentials, got %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, session, err := svc.Register(ctx, testEmail(), "correct-horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	got, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got != nil {
		t.Fatal("logged-out token must not authenticate")
	}
}
