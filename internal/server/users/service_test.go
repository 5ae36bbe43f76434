package users

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/refreshtokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	passwordCost = bcrypt.MinCost
}

func newService(t *testing.T, mutate func(*config.Config)) (*Service, *User) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	if mutate != nil {
		mutate(cfg)
	}
	s := NewService(NewMemoryRepository(), refreshtokens.NewMemoryRepository(), cfg)
	u, err := s.Register(context.Background(), "ann@example.com", "pw", MembershipPremium, true)
	require.NoError(t, err)
	return s, u
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s, _ := newService(t, nil)
	_, err := s.Register(context.Background(), "ANN@example.com", "x", MembershipBasic, true)
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestLogin(t *testing.T) {
	s, u := newService(t, nil)
	ctx := context.Background()

	pair, err := s.Login(ctx, "ann@example.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Len(t, pair.RefreshToken, 64)

	got, err := s.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Login(ctx, "ann@example.com", "wrong")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = s.Login(ctx, "nobody@example.com", "pw")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRefresh_WithRotation(t *testing.T) {
	s, _ := newService(t, nil)
	ctx := context.Background()

	first, err := s.Login(ctx, "ann@example.com", "pw")
	require.NoError(t, err)

	second, err := s.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, second.AccessToken)
	require.NotEmpty(t, second.RefreshToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// replaying the spent token revokes the whole family
	_, err = s.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = s.Refresh(ctx, second.RefreshToken)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRefresh_WithoutRotation(t *testing.T) {
	s, _ := newService(t, func(c *config.Config) { c.RotateRefreshTokens = false })
	ctx := context.Background()

	pair, err := s.Login(ctx, "ann@example.com", "pw")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		next, err := s.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.Empty(t, next.RefreshToken)
	}
}

func TestLogin_SingleSessionInvalidatesOtherDevice(t *testing.T) {
	s, _ := newService(t, func(c *config.Config) { c.SingleSession = true })
	ctx := context.Background()

	laptop, err := s.Login(ctx, "ann@example.com", "pw")
	require.NoError(t, err)
	_, err = s.Login(ctx, "ann@example.com", "pw")
	require.NoError(t, err)

	_, err = s.Refresh(ctx, laptop.RefreshToken)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestAuthenticate_ExpiredAccessToken(t *testing.T) {
	s, _ := newService(t, func(c *config.Config) { c.AccessTokenValidityDuration = -time.Second })

	pair, err := s.Login(context.Background(), "ann@example.com", "pw")
	require.NoError(t, err)

	_, err = s.Authenticate(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestRevokeSessions(t *testing.T) {
	s, u := newService(t, nil)
	ctx := context.Background()

	pair, err := s.Login(ctx, "ann@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, s.RevokeSessions(ctx, u.ID))

	_, err = s.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestSeed(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	s := NewService(NewMemoryRepository(), refreshtokens.NewMemoryRepository(), cfg)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx))

	for _, email := range []string{DemoPremiumEmail, DemoBasicEmail, DemoLapsedEmail} {
		_, err := s.Login(ctx, email, DemoPassword)
		require.NoError(t, err, email)
	}

	// a restarted server against a persistent database seeds again
	require.NoError(t, s.Seed(ctx))
}
