// Package auth manages student accounts and access tokens.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Roles.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Account is a login identity. Passwords are stored only as bcrypt hashes.
type Account struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Service registers and authenticates accounts.
type Service struct {
	store       CredentialStore
	cost        int
	adminEmails []string
}

// NewService creates an auth service. Accounts registered with an email in
// adminEmails get the admin role.
func NewService(store CredentialStore, bcryptCost int, adminEmails []string) *Service {
	admins := make([]string, 0, len(adminEmails))
	for _, e := range adminEmails {
		admins = append(admins, normalizeEmail(e))
	}
	return &Service{store: store, cost: bcryptCost, adminEmails: admins}
}

// Register creates an account.
func (s *Service) Register(email, password string) (Account, error) {
	email = normalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Account{}, fmt.Errorf("hashing password: %w", err)
	}

	a := Account{
		Email:        email,
		PasswordHash: string(hash),
		Role:         s.roleFor(email),
		CreatedAt:    time.Now(),
	}
	if err := s.store.Create(a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Login checks a password against the stored hash.
func (s *Service) Login(email, password string) (Account, error) {
	a, err := s.store.Get(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}

	// Admin lists change with config, so refresh the role on every login.
	a.Role = s.roleFor(a.Email)
	return a, nil
}

func (s *Service) roleFor(email string) string {
	if slices.Contains(s.adminEmails, email) {
		return RoleAdmin
	}
	return RoleStudent
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
