// Package memory is an in-process authcore.UserStore for tests, local
// development and single-instance deployments.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/google/uuid"
)

// Store keeps identities in two maps guarded by one RWMutex. The email
// index makes Create's uniqueness check atomic with the insert.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]authcore.Identity
	byEmail map[string]string
	now     func() time.Time
}

func New() *Store {
	return &Store{
		byID:    make(map[string]authcore.Identity),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// WithClock replaces the clock used for CreatedAt and UpdatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) GetByEmail(_ context.Context, email string) (authcore.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return authcore.Identity{}, authcore.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *Store) GetByID(_ context.Context, id string) (authcore.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byID[id]
	if !ok {
		return authcore.Identity{}, authcore.ErrUserNotFound
	}
	return identity, nil
}

func (s *Store) Create(_ context.Context, input authcore.CreateIdentityInput) (authcore.Identity, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; taken {
		return authcore.Identity{}, authcore.ErrEmailTaken
	}

	now := s.now().UTC()
	identity := authcore.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  input.DisplayName,
		PasswordHash: input.PasswordHash,
		Status:       input.Status,
		Roles:        input.Roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[identity.ID] = identity
	s.byEmail[email] = identity.ID
	return identity, nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, status authcore.AccountStatus) error {
	return s.update(id, func(identity *authcore.Identity) { identity.Status = status })
}

func (s *Store) UpdatePasswordHash(_ context.Context, id string, passwordHash string) error {
	return s.update(id, func(identity *authcore.Identity) { identity.PasswordHash = passwordHash })
}

func (s *Store) UpdateRoles(_ context.Context, id string, roles string) error {
	return s.update(id, func(identity *authcore.Identity) { identity.Roles = roles })
}

// Len returns the number of stored identities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Store) update(id string, apply func(*authcore.Identity)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.byID[id]
	if !ok {
		return authcore.ErrUserNotFound
	}
	apply(&identity)
	identity.UpdatedAt = s.now().UTC()
	s.byID[id] = identity
	return nil
}

var _ authcore.UserStore = (*Store)(nil)
