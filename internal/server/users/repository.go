package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetUserByLogin(ctx context.Context, login string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
}

// MemoryRepository keeps users in process memory, keyed by lower-cased
// email.
type MemoryRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*User
	byID    map[string]*User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byEmail: map[string]*User{}, byID: map[string]*User{}}
}

func (r *MemoryRepository) Create(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, ok := r.byEmail[key]; ok {
		return nil, common.ErrorAlreadyExists
	}

	u := *user
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	r.byEmail[key] = &u
	r.byID[u.ID] = &u

	cp := u
	return &cp, nil
}

func (r *MemoryRepository) GetUserByLogin(ctx context.Context, login string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[strings.ToLower(login)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}
