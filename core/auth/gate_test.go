package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"incident-desk/config"
)

func TestLoginCorrectCredentialsOpensSession(t *testing.T) {
	f := newFixture(t, "s3cret")
	ctx := context.Background()
	sess, err := f.gate.Login(ctx, Credentials{Username: "admin", Password: "s3cret"}, ClientInfo{IP: "10.0.0.1", UserAgent: "test"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.ID == "" || sess.CSRFToken == "" {
		t.Fatalf("expected session id and csrf token, got %+v", sess)
	}
	if !f.gate.IsAuthenticated(ctx, sess.ID) {
		t.Fatalf("expected session to be authenticated")
	}
	if want := sess.CreatedAt.Add(time.Hour); !sess.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, sess.ExpiresAt)
	}
}

func TestLoginUsernameIsCaseInsensitive(t *testing.T) {
	f := newFixture(t, "s3cret")
	for _, name := range []string{"  Admin ", "ADMIN"} {
		sess, err := f.gate.Login(context.Background(), Credentials{Username: name, Password: "s3cret"}, ClientInfo{})
		if err != nil {
			t.Fatalf("login %q: %v", name, err)
		}
		if sess.Username != config.DefaultAdminUsername {
			t.Fatalf("login %q: expected session for %q, got %q", name, config.DefaultAdminUsername, sess.Username)
		}
	}
}

func TestLoginWrongPasswordAndUnknownUserAreIndistinguishable(t *testing.T) {
	f := newFixture(t, "s3cret")
	ctx := context.Background()
	_, errWrong := f.gate.Login(ctx, Credentials{Username: "admin", Password: "nope"}, ClientInfo{})
	_, errUnknown := f.gate.Login(ctx, Credentials{Username: "root", Password: "s3cret"}, ClientInfo{})
	if !errors.Is(errWrong, ErrInvalidCredentials) || !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", errWrong, errUnknown)
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Fatalf("messages differ: %q vs %q", errWrong, errUnknown)
	}
}

func TestLoginPasswordIsCaseSensitive(t *testing.T) {
	f := newFixture(t, "s3cret")
	if _, err := f.gate.Login(context.Background(), Credentials{Username: "admin", Password: "S3CRET"}, ClientInfo{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogoutClosesSessionAndIsIdempotent(t *testing.T) {
	f := newFixture(t, "s3cret")
	ctx := context.Background()
	sess, err := f.gate.Login(ctx, Credentials{Username: "admin", Password: "s3cret"}, ClientInfo{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := f.gate.Logout(ctx, sess.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if f.gate.IsAuthenticated(ctx, sess.ID) {
		t.Fatalf("session still authenticated after logout")
	}
	if err := f.gate.Logout(ctx, sess.ID); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if err := f.gate.Logout(ctx, ""); err != nil {
		t.Fatalf("logout without token: %v", err)
	}
}

func TestIsAuthenticatedRejectsUnknownAndEmptyTokens(t *testing.T) {
	f := newFixture(t, "s3cret")
	ctx := context.Background()
	if f.gate.IsAuthenticated(ctx, "") {
		t.Fatalf("empty token authenticated")
	}
	if f.gate.IsAuthenticated(ctx, "00000000-0000-0000-0000-000000000000") {
		t.Fatalf("unknown token authenticated")
	}
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	f := newFixture(t, "s3cret")
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.sessions.SetClock(func() time.Time { return now })
	sess, err := f.gate.Login(ctx, Credentials{Username: "admin", Password: "s3cret"}, ClientInfo{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	now = now.Add(59 * time.Minute)
	if !f.gate.IsAuthenticated(ctx, sess.ID) {
		t.Fatalf("expected session alive before ttl")
	}
	now = now.Add(2 * time.Minute)
	if f.gate.IsAuthenticated(ctx, sess.ID) {
		t.Fatalf("expected session expired after ttl")
	}
}

func TestRefreshSlidesExpiry(t *testing.T) {
	f := newFixture(t, "s3cret")
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.sessions.SetClock(func() time.Time { return now })
	sess, err := f.gate.Login(ctx, Credentials{Username: "admin", Password: "s3cret"}, ClientInfo{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	now = now.Add(45 * time.Minute)
	if err := f.sessions.Refresh(ctx, sess.ID); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	now = now.Add(45 * time.Minute)
	if !f.gate.IsAuthenticated(ctx, sess.ID) {
		t.Fatalf("expected refreshed session to be alive")
	}
}
