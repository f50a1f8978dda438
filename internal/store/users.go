package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/owasp-blt/blt-gateway/internal/util"
)

// User is a locally registered account.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	VerifyToken   string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserStore is the persistence boundary for accounts.
type UserStore interface {
	// CreateUser persists a new account. Returns an error satisfying
	// errors.Is(err, util.ErrInvalidInput) when the username or email
	// is already taken.
	CreateUser(ctx context.Context, username, email, passwordHash, verifyToken string) (*User, error)

	// GetUserByLogin looks an account up by username or email.
	GetUserByLogin(ctx context.Context, login string) (*User, error)

	// VerifyEmail marks the account holding the token as verified and
	// consumes the token.
	VerifyEmail(ctx context.Context, token string) (*User, error)
}

// MemoryUserStore is an in-process UserStore.
type MemoryUserStore struct {
	mu     sync.RWMutex
	users  map[int64]*User
	nextID int64
	now    func() time.Time
}

// NewMemoryUserStore creates an empty MemoryUserStore.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:  make(map[int64]*User),
		nextID: 1,
		now:    time.Now,
	}
}

// CreateUser implements UserStore.
func (s *MemoryUserStore) CreateUser(_ context.Context, username, email, passwordHash, verifyToken string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" {
		return nil, util.WrapError(util.ErrInvalidInput, "username and email are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return nil, util.WrapError(util.ErrInvalidInput, "username already taken")
		}
		if u.Email == email {
			return nil, util.WrapError(util.ErrInvalidInput, "email already registered")
		}
	}

	u := &User{
		ID:           s.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		VerifyToken:  verifyToken,
		CreatedAt:    s.now(),
	}
	s.nextID++
	s.users[u.ID] = u

	out := *u
	return &out, nil
}

// GetUserByLogin implements UserStore.
func (s *MemoryUserStore) GetUserByLogin(_ context.Context, login string) (*User, error) {
	login = strings.TrimSpace(login)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, login) || strings.EqualFold(u.Email, login) {
			out := *u
			return &out, nil
		}
	}
	return nil, util.WrapError(util.ErrNotFound, "user")
}

// VerifyEmail implements UserStore.
func (s *MemoryUserStore) VerifyEmail(_ context.Context, token string) (*User, error) {
	if token == "" {
		return nil, util.WrapError(util.ErrInvalidInput, "token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.VerifyToken == token {
			u.EmailVerified = true
			u.VerifyToken = ""
			out := *u
			return &out, nil
		}
	}
	return nil, util.WrapError(util.ErrNotFound, "verification token")
}
