package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

type MemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]*RefreshToken), now: time.Now}
}

func (r *MemoryRepository) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token] = &RefreshToken{Token: token, UserID: userID, ExpiresAt: r.now().Add(validity)}
	return nil
}

// Find returns common.ErrorNotFound for unknown and expired tokens.
func (r *MemoryRepository) Find(ctx context.Context, token string) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok || !r.now().Before(t.ExpiresAt) {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) MarkUsed(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok {
		return common.ErrorNotFound
	}
	t.Used = true
	return nil
}

func (r *MemoryRepository) DeleteByUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, k)
		}
	}
	return nil
}
