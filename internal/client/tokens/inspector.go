// Package tokens reads bearer token claims locally, without network access
// and without verifying signatures, to decide whether a token is still usable.
package tokens

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims of an access token.
type Claims struct {
	jwt.RegisteredClaims
}

// Inspector decides token expiry against a clock. The zero value is not
// usable; build it with NewInspector.
type Inspector struct {
	parser *jwt.Parser
	now    func() time.Time
	leeway time.Duration
}

type Option func(*Inspector)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *Inspector) { i.now = now }
}

// WithLeeway treats tokens expiring within d as already expired, so they are
// refreshed before the server starts rejecting them.
func WithLeeway(d time.Duration) Option {
	return func(i *Inspector) { i.leeway = d }
}

func NewInspector(opts ...Option) *Inspector {
	i := &Inspector{
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
		now:    time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Claims decodes the token payload. The signature is not checked: the
// server is the authority, this is only a hint for when to refresh.
func (i *Inspector) Claims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := i.parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp claim", common.ErrInvalidToken)
	}
	return claims, nil
}

// Expired reports whether token must be refreshed before use. Malformed
// tokens and tokens without exp count as expired.
func (i *Inspector) Expired(token string) bool {
	return i.Check(token) != nil
}

// Check returns nil for a usable token, ErrTokenExpired for an expired one
// and ErrInvalidToken (wrapped) for one that cannot be read.
func (i *Inspector) Check(token string) error {
	claims, err := i.Claims(token)
	if err != nil {
		return err
	}
	deadline := i.now().Add(i.leeway).Unix()
	if claims.ExpiresAt.Unix() < deadline {
		return common.ErrTokenExpired
	}
	return nil
}

// ExpiresAt returns the exp claim, or the zero time for unreadable tokens.
func (i *Inspector) ExpiresAt(token string) time.Time {
	claims, err := i.Claims(token)
	if err != nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
