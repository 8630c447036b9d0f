package session

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// CredentialStore maps usernames to bcrypt password hashes.
type CredentialStore struct {
	mu    sync.RWMutex
	users map[string][]byte
}

// NewCredentialStore builds a store from username -> bcrypt hash pairs.
func NewCredentialStore(hashes map[string]string) (*CredentialStore, error) {
	cs := &CredentialStore{users: make(map[string][]byte, len(hashes))}
	for user, h := range hashes {
		if err := cs.AddHash(user, h); err != nil {
			return nil, err
		}
	}
	return cs, nil
}

// HashPassword returns the bcrypt hash of password at the default cost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Add hashes password and stores it for user.
func (c *CredentialStore) Add(user, password string) error {
	h, err := HashPassword(password)
	if err != nil {
		return err
	}
	return c.AddHash(user, h)
}

// AddHash stores an existing bcrypt hash for user.
func (c *CredentialStore) AddHash(user, hash string) error {
	if user == "" {
		return errors.New("username must not be empty")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("user %q: invalid bcrypt hash: %w", user, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[user] = []byte(hash)
	return nil
}

// Len returns the number of configured users.
func (c *CredentialStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}

// Verify checks password against the stored hash for user.
func (c *CredentialStore) Verify(user, password string) error {
	c.mu.RLock()
	h, ok := c.users[user]
	c.mu.RUnlock()
	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(h, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
