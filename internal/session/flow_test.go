package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ekorkmaz/voxboard/internal/gateway"
	"github.com/ekorkmaz/voxboard/internal/model/user"
)

type fakeAuthGateway struct {
	loginResult gateway.LoginResult
	loginErr    error
	me          user.User
	meErr       error

	// tokenAt records the store's token when Me is called, to verify the
	// token is persisted before the user fetch.
	store   *Store
	tokenAt string
}

func (g *fakeAuthGateway) Login(ctx context.Context, email, password string) (gateway.LoginResult, error) {
	return g.loginResult, g.loginErr
}

func (g *fakeAuthGateway) Me(ctx context.Context) (user.User, error) {
	if g.store != nil {
		g.tokenAt = g.store.Token()
	}
	return g.me, g.meErr
}

func tokenPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "token")
}

func TestLoginPersistsTokenBeforeUserFetch(t *testing.T) {
	store := NewStore(tokenPath(t))
	gw := &fakeAuthGateway{
		loginResult: gateway.LoginResult{AccessToken: "tok123", TokenType: "bearer"},
		me:          user.User{ID: 1, Email: "u@x.com", FullName: "U Ser"},
		store:       store,
	}
	flow := NewFlow(store, gw)

	me, err := flow.Login(context.Background(), "u@x.com", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if me.Email != "u@x.com" || me.FullName != "U Ser" {
		t.Fatalf("unexpected user record: %+v", me)
	}
	if gw.tokenAt != "tok123" {
		t.Fatalf("expected token available to the /me call, saw %q", gw.tokenAt)
	}

	current, ok := store.User()
	if !ok || current.ID != 1 {
		t.Fatalf("expected authenticated session, got %+v ok=%v", current, ok)
	}
}

func TestLoginFailureLeavesStoreEmpty(t *testing.T) {
	store := NewStore(tokenPath(t))
	gw := &fakeAuthGateway{loginErr: errors.New("incorrect email or password")}
	flow := NewFlow(store, gw)

	if _, err := flow.Login(context.Background(), "u@x.com", "wrong"); err == nil {
		t.Fatal("expected login error to surface")
	}
	if store.HasToken() {
		t.Fatal("expected no token after failed login")
	}
}

func TestLoginClearsTokenWhenUserFetchRejected(t *testing.T) {
	path := tokenPath(t)
	store := NewStore(path)
	gw := &fakeAuthGateway{
		loginResult: gateway.LoginResult{AccessToken: "tok123", TokenType: "bearer"},
		meErr:       fmt.Errorf("token revoked: %w", gateway.ErrUnauthorized),
		store:       store,
	}
	flow := NewFlow(store, gw)

	if _, err := flow.Login(context.Background(), "u@x.com", "pw"); !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if store.HasToken() {
		t.Fatal("expected rejected token cleared from the store")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected token file removed after rejection")
	}
	if _, ok := store.User(); ok {
		t.Fatal("expected unauthenticated state after rejection")
	}
}

func TestLoginTransientUserFetchErrorKeepsToken(t *testing.T) {
	store := NewStore(tokenPath(t))
	gw := &fakeAuthGateway{
		loginResult: gateway.LoginResult{AccessToken: "tok123"},
		meErr:       errors.New("connection refused"),
		store:       store,
	}
	flow := NewFlow(store, gw)

	if _, err := flow.Login(context.Background(), "u@x.com", "pw"); err == nil {
		t.Fatal("expected transient error to surface")
	}
	if !store.HasToken() {
		t.Fatal("a transient failure must not clear the fresh token")
	}
}

func TestRefreshWithoutTokenIsUnauthorized(t *testing.T) {
	store := NewStore(tokenPath(t))
	flow := NewFlow(store, &fakeAuthGateway{})

	if _, err := flow.Refresh(context.Background()); !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRefreshClearsPersistedTokenOnRejection(t *testing.T) {
	path := tokenPath(t)
	if err := os.WriteFile(path, []byte("stale-token\n"), 0o600); err != nil {
		t.Fatalf("failed to seed token file: %v", err)
	}

	store := NewStore(path)
	if !store.HasToken() {
		t.Fatal("expected persisted token loaded")
	}

	gw := &fakeAuthGateway{meErr: fmt.Errorf("session expired: %w", gateway.ErrUnauthorized)}
	flow := NewFlow(store, gw)

	if _, err := flow.Refresh(context.Background()); !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if store.HasToken() {
		t.Fatal("expected token cleared after rejection")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected token file removed after rejection")
	}
}

func TestRefreshTransientErrorKeepsToken(t *testing.T) {
	path := tokenPath(t)
	if err := os.WriteFile(path, []byte("tok"), 0o600); err != nil {
		t.Fatalf("failed to seed token file: %v", err)
	}

	store := NewStore(path)
	flow := NewFlow(store, &fakeAuthGateway{meErr: errors.New("connection refused")})

	if _, err := flow.Refresh(context.Background()); err == nil {
		t.Fatal("expected transient error to surface")
	}
	if !store.HasToken() {
		t.Fatal("a transient failure must not clear the token")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	path := tokenPath(t)
	store := NewStore(path)
	gw := &fakeAuthGateway{
		loginResult: gateway.LoginResult{AccessToken: "tok"},
		me:          user.User{ID: 2, Email: "a@b.c"},
		store:       store,
	}
	flow := NewFlow(store, gw)

	if _, err := flow.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}
	if err := flow.Logout(); err != nil {
		t.Fatalf("unexpected logout error: %v", err)
	}
	if store.HasToken() {
		t.Fatal("expected token gone after logout")
	}
	if _, ok := store.User(); ok {
		t.Fatal("expected unauthenticated state after logout")
	}
}
