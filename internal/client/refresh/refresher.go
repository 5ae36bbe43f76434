package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/session"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"golang.org/x/sync/singleflight"
)

const DefaultTimeout = 15 * time.Second

// flightKey is shared by every caller: the exchange always uses the stored
// refresh token, so there is at most one exchange in flight per store.
const flightKey = "refresh"

// Terminator ends the session after the server rejects the refresh token.
type Terminator interface {
	Terminate(ctx context.Context, reason session.Reason) error
}

type Refresher struct {
	store      credentials.Store
	exchanger  Exchanger
	inspector  *tokens.Inspector
	terminator Terminator
	timeout    time.Duration
	log        logging.Logger
	metrics    *metrics.Collectors
	group      singleflight.Group
}

type Option func(*Refresher)

// WithTimeout bounds a single exchange, independent of any caller's context.
func WithTimeout(d time.Duration) Option {
	return func(r *Refresher) { r.timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(r *Refresher) { r.log = l }
}

func WithMetrics(m *metrics.Collectors) Option {
	return func(r *Refresher) { r.metrics = m }
}

func NewRefresher(store credentials.Store, ex Exchanger, in *tokens.Inspector, term Terminator, opts ...Option) *Refresher {
	r := &Refresher{
		store:      store,
		exchanger:  ex,
		inspector:  in,
		terminator: term,
		timeout:    DefaultTimeout,
		log:        logging.Discard(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Refresh replaces stale, the pair a caller found unusable, and returns the
// pair now stored. Concurrent callers share one exchange whatever pair they
// started from. If ctx ends first the caller gets ctx.Err() while the exchange
// runs to completion for the others.
//
// A rejected refresh token ends the session; the error then matches both
// common.ErrRefreshRejected and common.ErrSessionTerminated.
func (r *Refresher) Refresh(ctx context.Context, stale credentials.Pair) (credentials.Pair, error) {
	if stale.RefreshToken == "" {
		return credentials.Pair{}, common.ErrSessionTerminated
	}

	var led bool
	ch := r.group.DoChan(flightKey, func() (any, error) {
		led = true
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.refresh(fctx, stale)
	})

	select {
	case <-ctx.Done():
		return credentials.Pair{}, ctx.Err()
	case res := <-ch:
		if !led {
			r.metrics.Coalesced()
			r.log.Debug(ctx, "joined refresh in flight")
		}
		if res.Err != nil {
			return credentials.Pair{}, res.Err
		}
		return res.Val.(credentials.Pair), nil
	}
}

func (r *Refresher) refresh(ctx context.Context, stale credentials.Pair) (credentials.Pair, error) {
	current, err := credentials.Load(ctx, r.store)
	if err != nil {
		r.metrics.Refresh(metrics.RefreshError)
		return credentials.Pair{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	if !current.Present() {
		return credentials.Pair{}, common.ErrSessionTerminated
	}

	// someone refreshed since the caller looked
	if current.AccessToken != stale.AccessToken && !r.inspector.Expired(current.AccessToken) {
		r.metrics.Refresh(metrics.RefreshReused)
		r.log.Debug(ctx, "stored token already fresh")
		return current, nil
	}

	r.log.Debug(ctx, "refreshing access token")
	res, err := r.exchanger.Exchange(ctx, current.RefreshToken)
	switch {
	case errors.Is(err, common.ErrRefreshRejected):
		r.metrics.Refresh(metrics.RefreshRejected)
		r.log.Warn(ctx, "refresh token rejected, ending session")
		r.endSession(ctx)
		return credentials.Pair{}, fmt.Errorf("%w: %w", common.ErrSessionTerminated, err)
	case err != nil:
		r.metrics.Refresh(metrics.RefreshError)
		r.log.Error(ctx, "refresh failed", "error", err)
		return credentials.Pair{}, fmt.Errorf("refresh failed: %w", err)
	}

	next := credentials.Pair{AccessToken: res.AccessToken, RefreshToken: current.RefreshToken}
	if res.RefreshToken != "" {
		next.RefreshToken = res.RefreshToken
	}

	// a logout or a new login during the exchange wins over its result
	latest, err := credentials.Load(ctx, r.store)
	if err != nil {
		r.metrics.Refresh(metrics.RefreshError)
		return credentials.Pair{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	switch {
	case !latest.Present():
		r.metrics.Refresh(metrics.RefreshDiscarded)
		r.log.Info(ctx, "session ended during refresh, result dropped")
		return credentials.Pair{}, common.ErrSessionTerminated
	case latest.RefreshToken != current.RefreshToken:
		r.metrics.Refresh(metrics.RefreshDiscarded)
		r.log.Info(ctx, "credentials replaced during refresh, result dropped")
		return latest, nil
	}

	if err := credentials.Save(ctx, r.store, next); err != nil {
		r.metrics.Refresh(metrics.RefreshError)
		return credentials.Pair{}, fmt.Errorf("failed to save refreshed credentials: %w", err)
	}

	r.metrics.Refresh(metrics.RefreshSuccess)
	r.log.Info(ctx, "access token refreshed", "rotated", res.RefreshToken != "")
	return next, nil
}

func (r *Refresher) endSession(ctx context.Context) {
	if r.terminator == nil {
		if err := credentials.Clear(ctx, r.store); err != nil {
			r.log.Error(ctx, "failed to clear credentials", "error", err)
		}
		return
	}
	if err := r.terminator.Terminate(ctx, session.ReasonSessionInvalid); err != nil {
		r.log.Error(ctx, "failed to terminate session", "error", err)
	}
}
