package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/salescrm/crm-portal/internal/domain"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// ErrEmailTaken is returned when creating an account for a registered email.
var ErrEmailTaken = errors.New("email already registered")

// Account is a CRM user together with its credential.
type Account struct {
	User         domain.User
	PasswordHash string
}

// UserRepository defines persistence access for stub API accounts.
type UserRepository interface {
	Create(ctx context.Context, account *Account) error
	Update(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
}

type userRepository struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string
}

// NewUserRepository returns an in-memory implementation.
func NewUserRepository() UserRepository {
	return &userRepository{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

func (r *userRepository) Create(_ context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(account.User.Email)
	if _, ok := r.byEmail[email]; ok {
		return ErrEmailTaken
	}

	now := time.Now().UTC().Format(time.RFC3339)
	account.User.ID = uuid.NewString()
	account.User.Email = email
	account.User.CreatedAt = now
	account.User.UpdatedAt = now

	stored := *account
	r.byID[stored.User.ID] = &stored
	r.byEmail[email] = stored.User.ID
	return nil
}

func (r *userRepository) Update(_ context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[account.User.ID]
	if !ok {
		return ErrNotFound
	}
	account.User.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	delete(r.byEmail, normalizeEmail(current.User.Email))

	stored := *account
	r.byID[stored.User.ID] = &stored
	r.byEmail[normalizeEmail(stored.User.Email)] = stored.User.ID
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *account
	return &out, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	r.mu.RLock()
	id, ok := r.byEmail[normalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
