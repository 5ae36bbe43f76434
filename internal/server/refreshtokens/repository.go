// Package refreshtokens stores the opaque refresh tokens the development
// server hands out.
package refreshtokens

import (
	"context"
	"time"
)

type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	// Used is set once the token was exchanged under rotation.
	Used bool
}

type Repository interface {
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	Find(ctx context.Context, token string) (*RefreshToken, error)
	MarkUsed(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) error
}
