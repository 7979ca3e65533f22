package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when no profile exists for an email.
var ErrNotFound = errors.New("profile not found")

// Store persists profiles keyed by email.
type Store interface {
	Get(email string) (*Profile, error)
	Save(p *Profile) error
	List() ([]Profile, error)
}

// NormalizeEmail lower-cases and trims an email so it can be used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryStore is an in-memory implementation of Store. Profiles are copied on
// the way in and out so callers never share state.
type MemoryStore struct {
	profiles map[string][]byte
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string][]byte),
	}
}

func (s *MemoryStore) Get(email string) (*Profile, error) {
	s.mu.RLock()
	data, ok := s.profiles[NormalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

func (s *MemoryStore) Save(p *Profile) error {
	if p == nil || p.Email == "" {
		return fmt.Errorf("email is required")
	}
	p.Email = NormalizeEmail(p.Email)
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	s.mu.Lock()
	s.profiles[p.Email] = data
	s.mu.Unlock()
	return nil
}

// List returns all profiles ordered by email.
func (s *MemoryStore) List() ([]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emails := make([]string, 0, len(s.profiles))
	for email := range s.profiles {
		emails = append(emails, email)
	}
	slices.Sort(emails)

	out := make([]Profile, 0, len(emails))
	for _, email := range emails {
		var p Profile
		if err := json.Unmarshal(s.profiles[email], &p); err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", email, err)
		}
		out = append(out, p)
	}
	return out, nil
}
