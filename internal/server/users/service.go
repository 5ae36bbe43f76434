// Package users implements accounts and token issuance for the development
// server.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/refreshtokens"
	"golang.org/x/crypto/bcrypt"
)

// passwordCost is a test seam for the bcrypt work factor.
var passwordCost = bcrypt.DefaultCost

// TokenPair is what login and refresh hand out. RefreshToken is empty on a
// refresh without rotation.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Service struct {
	repo                         Repository
	refreshTokenRepo             refreshtokens.Repository
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	rotateRefreshTokens          bool
	singleSession                bool
	now                          func() time.Time
}

func NewService(repo Repository, refreshTokenRepo refreshtokens.Repository, cfg *config.Config) *Service {
	return &Service{
		repo:                         repo,
		refreshTokenRepo:             refreshTokenRepo,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		rotateRefreshTokens:          cfg.RotateRefreshTokens,
		singleSession:                cfg.SingleSession,
		now:                          time.Now,
	}
}

// SetClock replaces the time source used to issue and verify access tokens.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Register(ctx context.Context, email, password string, membership Membership, billingActive bool) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &User{
		Email:         email,
		PasswordHash:  hash,
		Membership:    membership,
		BillingActive: billingActive,
	}

	user, err = s.repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

func (s *Service) generateAccessToken(user *User) (string, error) {
	return auth.GenerateTokenAt(user.ID, s.jwtSecret, s.accessTokenValidityDuration, s.now())
}

func (s *Service) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *Service) issueRefreshToken(ctx context.Context, userID string) (string, error) {
	token, err := s.generateRefreshToken()
	if err != nil {
		return "", err
	}
	if err := s.refreshTokenRepo.Create(ctx, userID, token, s.refreshTokenValidityDuration); err != nil {
		return "", err
	}
	return token, nil
}

// Login checks the password and issues a token pair. With single-session
// enabled every earlier refresh token of the user stops working, which is
// what another device signing in looks like to the first one.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repo.GetUserByLogin(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, common.ErrorUnauthorized
	}

	if s.singleSession {
		if err := s.refreshTokenRepo.DeleteByUser(ctx, user.ID); err != nil {
			return nil, common.ErrorInternal
		}
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refreshToken, err := s.issueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a refresh token for a new access token. Under rotation a
// new refresh token is issued and the presented one is spent; presenting a
// spent token again revokes every token of that user.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	rt, err := s.refreshTokenRepo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if rt.Used {
		_ = s.refreshTokenRepo.DeleteByUser(ctx, rt.UserID)
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repo.GetUserByID(ctx, rt.UserID)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}

	pair := &TokenPair{AccessToken: accessToken}
	if !s.rotateRefreshTokens {
		return pair, nil
	}

	if err := s.refreshTokenRepo.MarkUsed(ctx, refreshToken); err != nil {
		return nil, common.ErrorInternal
	}
	pair.RefreshToken, err = s.issueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return pair, nil
}

// Authenticate resolves a bearer access token to its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*User, error) {
	userID, err := auth.GetUserIDFromTokenAt(accessToken, s.jwtSecret, s.now())
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	return user, nil
}

// RevokeSessions drops every refresh token of the user.
func (s *Service) RevokeSessions(ctx context.Context, userID string) error {
	return s.refreshTokenRepo.DeleteByUser(ctx, userID)
}
