package chat

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SessionStore maps opaque session tokens to registered users. Tokens are
// UUIDv4 strings, so they are unique at any realistic scale and unguessable.
type SessionStore struct {
	mu    sync.RWMutex
	users map[string]User
	log   *slog.Logger
}

// NewSessionStore creates an empty session store.
func NewSessionStore(log *slog.Logger) *SessionStore {
	if log == nil {
		log = slog.Default()
	}
	return &SessionStore{
		users: make(map[string]User),
		log:   log,
	}
}

// Register creates a user for the given display name and issues a fresh
// session token for it. The name must not be empty or whitespace-only.
func (s *SessionStore) Register(name string) (User, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, "", fmt.Errorf("register: empty name: %w", ErrValidation)
	}

	user := User{ID: newUserID(), Name: name}
	token := uuid.NewString()

	s.mu.Lock()
	s.users[token] = user
	s.mu.Unlock()

	s.log.Info("user registered", "name", user.Name, "userId", user.ID)
	return user, token, nil
}

// Authenticate resolves a token to its user. It never mutates the store.
func (s *SessionStore) Authenticate(token string) (User, error) {
	s.mu.RLock()
	user, ok := s.users[token]
	s.mu.RUnlock()

	if !ok {
		return User{}, fmt.Errorf("authenticate: unknown token: %w", ErrNotFound)
	}
	return user, nil
}

// Invalidate ends the session for the given token. Unknown tokens are a
// no-op; a token that was invalidated no longer authenticates.
func (s *SessionStore) Invalidate(token string) {
	s.mu.Lock()
	delete(s.users, token)
	s.mu.Unlock()
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
