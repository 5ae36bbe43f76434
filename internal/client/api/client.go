// Package api is the entry point for applications: it assembles the token
// lifecycle components around one credential store and exposes ready HTTP
// and gRPC clients plus login, logout and status.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/faults"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/grpcauth"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/refresh"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/session"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/transport"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const maxErrorBody = 4 << 10

// Options configures New. Zero durations fall back to the component
// defaults; Navigator and Notifier may be nil.
type Options struct {
	BaseURL     string
	LoginPath   string
	RefreshPath string
	LandingURL  string
	AccountURL  string

	RequestTimeout time.Duration
	RefreshTimeout time.Duration
	TokenLeeway    time.Duration

	// Clock replaces time.Now when deciding token expiry.
	Clock func() time.Time

	Navigator session.Navigator
	Notifier  session.Notifier
	Logger    logging.Logger
	Metrics   *metrics.Collectors

	// Base is the RoundTripper under the token layer; http.DefaultTransport
	// when nil.
	Base http.RoundTripper
}

type Client struct {
	baseURL    string
	loginURL   string
	store      credentials.Store
	inspector  *tokens.Inspector
	terminator *session.Terminator
	refresher  *refresh.Refresher
	auth       *auth.Authenticator
	handler    *faults.Handler
	public     *http.Client
	private    *http.Client
	log        logging.Logger
	metrics    *metrics.Collectors
}

// HTTPError is a failed response the token layer let through unchanged.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

func New(store credentials.Store, opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")

	inspectorOpts := []tokens.Option{tokens.WithLeeway(opts.TokenLeeway)}
	if opts.Clock != nil {
		inspectorOpts = append(inspectorOpts, tokens.WithClock(opts.Clock))
	}
	inspector := tokens.NewInspector(inspectorOpts...)

	terminator := session.NewTerminator(store, opts.Navigator, opts.LandingURL,
		session.WithNotifier(opts.Notifier),
		session.WithLogger(log.With("component", "terminator")),
		session.WithMetrics(opts.Metrics),
	)

	// the exchange bypasses the token layer
	exchanger := refresh.NewHTTPExchanger(&http.Client{Transport: base}, baseURL+opts.RefreshPath)

	refreshOpts := []refresh.Option{
		refresh.WithLogger(log.With("component", "refresher")),
		refresh.WithMetrics(opts.Metrics),
	}
	if opts.RefreshTimeout > 0 {
		refreshOpts = append(refreshOpts, refresh.WithTimeout(opts.RefreshTimeout))
	}
	refresher := refresh.NewRefresher(store, exchanger, inspector, terminator, refreshOpts...)

	authenticator := auth.NewAuthenticator(store, inspector, refresher, log.With("component", "authenticator"))
	handler := faults.NewHandler(opts.Notifier, opts.Navigator, terminator, opts.AccountURL, log.With("component", "faults"))

	newTransport := func(tier faults.Tier) *transport.Transport {
		return transport.New(authenticator, refresher, handler,
			transport.WithBase(base),
			transport.WithDefaultTier(tier),
			transport.WithLogger(log.With("component", "transport")),
			transport.WithMetrics(opts.Metrics),
		)
	}

	return &Client{
		baseURL:    baseURL,
		loginURL:   baseURL + opts.LoginPath,
		store:      store,
		inspector:  inspector,
		terminator: terminator,
		refresher:  refresher,
		auth:       authenticator,
		handler:    handler,
		public:     &http.Client{Transport: newTransport(faults.TierNone), Timeout: opts.RequestTimeout},
		private:    &http.Client{Transport: newTransport(faults.TierAuthenticated), Timeout: opts.RequestTimeout},
		log:        log,
		metrics:    opts.Metrics,
	}
}

// HTTPClient returns the authenticated client. The tier can be overridden
// per request with faults.WithTier.
func (c *Client) HTTPClient() *http.Client {
	return c.private
}

// PublicHTTPClient returns the client that never sends credentials.
func (c *Client) PublicHTTPClient() *http.Client {
	return c.public
}

// Login exchanges email and password for a token pair and stores it.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.public.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return common.ErrorUnauthorized
	}
	if err := checkStatus(resp); err != nil {
		return err
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("malformed login response: %w", err)
	}
	if out.IDToken == "" || out.RefreshToken == "" {
		return fmt.Errorf("malformed login response: token missing")
	}

	if err := credentials.Save(ctx, c.store, credentials.Pair{AccessToken: out.IDToken, RefreshToken: out.RefreshToken}); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	c.log.Info(ctx, "logged in", "email", email)
	return nil
}

// Logout clears the stored credentials and navigates to the landing URL.
func (c *Client) Logout(ctx context.Context) error {
	return c.terminator.Logout(ctx)
}

// Do sends req through the authenticated client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.private.Do(req)
}

// GetJSON fetches path (relative to the base URL) at the given tier and
// decodes the body into out, which may be nil. A status of 400 or above that
// the token layer passed through comes back as *HTTPError.
func (c *Client) GetJSON(ctx context.Context, tier faults.Tier, path string, out any) error {
	req, err := http.NewRequestWithContext(faults.WithTier(ctx, tier), http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.private.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// PostJSON is GetJSON for POST requests with a JSON body.
func (c *Client) PostJSON(ctx context.Context, tier faults.Tier, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(faults.WithTier(ctx, tier), http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.private.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// UnaryInterceptor applies the token lifecycle to gRPC calls. The default
// tier is authenticated; faults.WithTier on the call context overrides it.
func (c *Client) UnaryInterceptor() grpc.UnaryClientInterceptor {
	return grpcauth.New(c.auth, c.refresher, c.handler, faults.TierAuthenticated, c.log.With("component", "grpcauth"), c.metrics).Unary
}

// DialGRPC opens a plaintext connection to target with UnaryInterceptor
// installed. Extra options are appended.
func (c *Client) DialGRPC(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.UnaryInterceptor()),
	}, opts...)
	return grpc.NewClient(target, opts...)
}
