package session

import (
	"context"
	"errors"

	"github.com/ekorkmaz/voxboard/internal/gateway"
	"github.com/ekorkmaz/voxboard/internal/model/user"
)

// Gateway is the slice of the backend API the auth flow needs.
type Gateway interface {
	Login(ctx context.Context, email, password string) (gateway.LoginResult, error)
	Me(ctx context.Context) (user.User, error)
}

// Flow orchestrates login, startup validation, and logout against the store.
type Flow struct {
	store *Store
	gw    Gateway
}

// NewFlow wires the auth flow to its token store and backend gateway.
func NewFlow(store *Store, gw Gateway) *Flow {
	return &Flow{store: store, gw: gw}
}

// Login exchanges credentials for a token, persists it, then fetches the
// user record to complete the session.
func (f *Flow) Login(ctx context.Context, email, password string) (user.User, error) {
	result, err := f.gw.Login(ctx, email, password)
	if err != nil {
		return user.User{}, err
	}

	// Persist the token first so the /me call can attach it.
	if err := f.store.SetSession(result.AccessToken, user.User{}); err != nil {
		return user.User{}, err
	}

	me, err := f.gw.Me(ctx)
	if err != nil {
		// A rejection of the freshly minted token must not leave it on disk.
		if errors.Is(err, gateway.ErrUnauthorized) {
			_ = f.store.Clear()
		}
		return user.User{}, err
	}
	f.store.SetUser(me)
	return me, nil
}

// Refresh validates a persisted token by re-fetching the user record. A
// backend rejection clears the token and forces the unauthenticated state.
func (f *Flow) Refresh(ctx context.Context) (user.User, error) {
	if !f.store.HasToken() {
		return user.User{}, gateway.ErrUnauthorized
	}

	me, err := f.gw.Me(ctx)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			_ = f.store.Clear()
		}
		return user.User{}, err
	}

	f.store.SetUser(me)
	return me, nil
}

// Logout drops the session and the persisted token.
func (f *Flow) Logout() error {
	return f.store.Clear()
}
