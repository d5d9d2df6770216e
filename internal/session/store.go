package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ekorkmaz/voxboard/internal/model/user"
)

// Store holds the one live session per client instance: the bearer token and
// the current user record. The token survives restarts through a file under
// a fixed path; the user record is re-fetched on startup to validate it.
type Store struct {
	path string

	mu     sync.RWMutex
	token  string
	user   user.User
	authed bool
}

// NewStore opens the token store at path, loading a previously persisted
// token if one exists.
func NewStore(path string) *Store {
	s := &Store{path: path}
	if raw, err := os.ReadFile(path); err == nil {
		s.token = strings.TrimSpace(string(raw))
	}
	return s
}

// Token returns the current bearer token, or empty when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// HasToken reports whether a token is held, persisted or fresh.
func (s *Store) HasToken() bool {
	return s.Token() != ""
}

// SetSession stores the token and user record and persists the token.
func (s *Store) SetSession(token string, u user.User) error {
	s.mu.Lock()
	s.token = token
	s.user = u
	s.authed = true
	s.mu.Unlock()

	return s.persist(token)
}

// SetUser records the validated user for a token loaded from disk.
func (s *Store) SetUser(u user.User) {
	s.mu.Lock()
	s.user = u
	s.authed = true
	s.mu.Unlock()
}

// User returns the current user record when the session is authenticated.
func (s *Store) User() (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.authed
}

// Clear wipes the session and removes the persisted token.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.user = user.User{}
	s.authed = false
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

func (s *Store) persist(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}
