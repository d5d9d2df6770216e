package stubserver

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	filemodel "github.com/ekorkmaz/voxboard/internal/model/file"
	"github.com/ekorkmaz/voxboard/internal/model/user"
)

type account struct {
	user         user.User
	passwordHash []byte
}

// Store is the in-memory state behind the stub backend: accounts keyed by
// email, bearer tokens, and per-user file records.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]int64
	files    map[int64][]filemodel.UploadedFile

	nextUserID int64
	nextFileID int64
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*account),
		tokens:   make(map[string]int64),
		files:    make(map[int64][]filemodel.UploadedFile),
	}
}

// CreateAccount registers a new user. Duplicate emails are rejected.
func (s *Store) CreateAccount(email, password, fullName string) (user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[email]; exists {
		return user.User{}, ErrEmailTaken
	}

	s.nextUserID++
	acct := &account{
		user:         user.User{ID: s.nextUserID, Email: email, FullName: fullName},
		passwordHash: hash,
	}
	s.accounts[email] = acct
	return acct.user, nil
}

// Authenticate checks credentials and issues a fresh bearer token.
func (s *Store) Authenticate(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	acct, ok := s.accounts[email]
	s.mu.Unlock()

	if !ok {
		return "", ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)) != nil {
		return "", ErrBadCredentials
	}

	token := uuid.NewString()

	s.mu.Lock()
	s.tokens[token] = acct.user.ID
	s.mu.Unlock()

	return token, nil
}

// UserForToken resolves a bearer token to its account.
func (s *Store) UserForToken(token string) (user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.tokens[token]
	if !ok {
		return user.User{}, false
	}
	for _, acct := range s.accounts {
		if acct.user.ID == userID {
			return acct.user, true
		}
	}
	return user.User{}, false
}

// AddFile records an uploaded file for the user and returns the record.
func (s *Store) AddFile(userID int64, name, fileType string, size int64) filemodel.UploadedFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextFileID++
	record := filemodel.UploadedFile{
		ID:         s.nextFileID,
		Name:       name,
		Size:       size,
		Type:       fileType,
		UploadedAt: time.Now().UTC(),
	}
	s.files[userID] = append(s.files[userID], record)
	return record
}

// Files lists the user's records, newest first.
func (s *Store) Files(userID int64) []filemodel.UploadedFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.files[userID]
	out := make([]filemodel.UploadedFile, len(records))
	for i, record := range records {
		out[len(records)-1-i] = record
	}
	return out
}

// RemoveFile deletes one of the user's records by id.
func (s *Store) RemoveFile(userID, fileID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.files[userID]
	for i, record := range records {
		if record.ID == fileID {
			s.files[userID] = append(records[:i], records[i+1:]...)
			return true
		}
	}
	return false
}
