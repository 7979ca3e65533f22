package auth

import (
	"errors"
	"sync"
)

// ErrAccountNotFound is returned by stores when no account matches.
var ErrAccountNotFound = errors.New("account not found")

// CredentialStore persists accounts keyed by email.
type CredentialStore interface {
	Create(a Account) error
	Get(email string) (Account, error)
}

// MemoryStore is an in-memory CredentialStore.
type MemoryStore struct {
	accounts map[string]Account
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]Account)}
}

func (s *MemoryStore) Create(a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.Email]; ok {
		return ErrEmailTaken
	}
	s.accounts[a.Email] = a
	return nil
}

func (s *MemoryStore) Get(email string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[email]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}
