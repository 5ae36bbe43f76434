// Package auth attaches bearer tokens to outbound requests, refreshing the
// access token first when it has expired.
package auth

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

type Refresher interface {
	Refresh(ctx context.Context, stale credentials.Pair) (credentials.Pair, error)
}

type Authenticator struct {
	store     credentials.Store
	inspector *tokens.Inspector
	refresher Refresher
	log       logging.Logger
}

func NewAuthenticator(store credentials.Store, in *tokens.Inspector, r Refresher, log logging.Logger) *Authenticator {
	if log == nil {
		log = logging.Discard()
	}
	return &Authenticator{store: store, inspector: in, refresher: r, log: log}
}

// Credentials returns the pair to send. An empty pair means the request goes
// out anonymous. An expired access token is refreshed first and a refresh
// failure is returned as is.
func (a *Authenticator) Credentials(ctx context.Context) (credentials.Pair, error) {
	p, err := credentials.Load(ctx, a.store)
	if err != nil {
		return credentials.Pair{}, err
	}
	if !p.Present() {
		return credentials.Pair{}, nil
	}
	if !a.inspector.Expired(p.AccessToken) {
		return p, nil
	}

	a.log.Debug(ctx, "access token expired")
	return a.refresher.Refresh(ctx, p)
}

// Apply returns a copy of req carrying accessToken. req itself is left
// untouched.
func (a *Authenticator) Apply(req *http.Request, accessToken string) *http.Request {
	r := req.Clone(req.Context())
	r.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+accessToken)
	return r
}

// Authenticate prepares req for sending and reports the pair it used. With
// no stored session req is returned unmodified together with an empty pair.
func (a *Authenticator) Authenticate(req *http.Request) (*http.Request, credentials.Pair, error) {
	p, err := a.Credentials(req.Context())
	if err != nil {
		return nil, credentials.Pair{}, err
	}
	if !p.Present() {
		return req, p, nil
	}
	return a.Apply(req, p.AccessToken), p, nil
}
