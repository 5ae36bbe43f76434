// Package transport wires the token lifecycle into net/http as a
// RoundTripper: authenticate before sending, classify failures after.
package transport

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/faults"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

type Authenticator interface {
	Authenticate(req *http.Request) (*http.Request, credentials.Pair, error)
	Apply(req *http.Request, accessToken string) *http.Request
}

type Refresher interface {
	Refresh(ctx context.Context, stale credentials.Pair) (credentials.Pair, error)
}

type FaultHandler interface {
	Handle(ctx context.Context, outcome faults.Outcome, status int) error
}

type Transport struct {
	base      http.RoundTripper
	auth      Authenticator
	refresher Refresher
	handler   FaultHandler
	tier      faults.Tier
	log       logging.Logger
	metrics   *metrics.Collectors
}

type Option func(*Transport)

// WithBase sets the RoundTripper that does the actual sending.
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) { t.base = rt }
}

// WithDefaultTier applies when the request context carries no tier.
func WithDefaultTier(tier faults.Tier) Option {
	return func(t *Transport) { t.tier = tier }
}

func WithLogger(l logging.Logger) Option {
	return func(t *Transport) { t.log = l }
}

func WithMetrics(m *metrics.Collectors) Option {
	return func(t *Transport) { t.metrics = m }
}

func New(a Authenticator, r Refresher, h FaultHandler, opts ...Option) *Transport {
	t := &Transport{
		base:      http.DefaultTransport,
		auth:      a,
		refresher: r,
		handler:   h,
		tier:      faults.TierAuthenticated,
		log:       logging.Discard(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// RoundTrip sends req. Handled outcomes (notices, session teardown) come
// back as a nil response and a *faults.FaultError.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	prepared, err := prepare(req)
	if err != nil {
		return nil, err
	}

	tier := t.tier
	if v, ok := faults.TierFromContext(ctx); ok {
		tier = v
	}
	log := t.log.With("request_id", prepared.Header.Get(common.RequestIDHeaderName), "tier", tier.String())

	sent := prepared
	var used credentials.Pair
	if tier != faults.TierNone {
		sent, used, err = t.auth.Authenticate(prepared)
		if err != nil {
			closeBody(prepared)
			log.Warn(ctx, "failed to authenticate request", "error", err)
			return nil, err
		}
	}

	resp, err := t.base.RoundTrip(sent)
	if err != nil {
		return nil, err
	}
	return t.afterResponse(ctx, log, prepared, resp, tier, used, true)
}

func (t *Transport) afterResponse(ctx context.Context, log logging.Logger, req *http.Request, resp *http.Response,
	tier faults.Tier, used credentials.Pair, canRetry bool) (*http.Response, error) {

	if resp.StatusCode < 400 {
		return resp, nil
	}

	var nonJSON bool
	if resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusGatewayTimeout {
		nonJSON = faults.InspectBody(resp)
	}

	outcome := faults.Classify(tier, resp.StatusCode, nonJSON)
	if outcome == faults.OutcomeRetryOnce {
		switch {
		case !used.Present():
			// nothing was sent that a refresh could fix
			outcome = faults.OutcomeContinue
		case !canRetry:
			outcome = faults.OutcomeTerminate
		}
	}

	t.metrics.Outcome(outcome.String())
	log.Debug(ctx, "classified failed response", "status", resp.StatusCode, "outcome", outcome.String())

	switch outcome {
	case faults.OutcomeContinue:
		return resp, nil
	case faults.OutcomeRetryOnce:
		drain(resp)
		return t.retry(ctx, log, req, tier, used)
	default:
		drain(resp)
		return nil, t.handler.Handle(ctx, outcome, resp.StatusCode)
	}
}

func (t *Transport) retry(ctx context.Context, log logging.Logger, req *http.Request, tier faults.Tier, used credentials.Pair) (*http.Response, error) {
	fresh, err := t.refresher.Refresh(ctx, used)
	if err != nil {
		closeBody(req)
		log.Warn(ctx, "refresh after 401 failed", "error", err)
		return nil, err
	}

	replay, err := rewind(req)
	if err != nil {
		return nil, err
	}

	log.Debug(ctx, "replaying request with refreshed token")
	resp, err := t.base.RoundTrip(t.auth.Apply(replay, fresh.AccessToken))
	if err != nil {
		return nil, err
	}
	return t.afterResponse(ctx, log, req, resp, tier, fresh, false)
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
