package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/faults"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/refresh"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/session"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mint(t *testing.T, ttl time.Duration) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		ID:        uuid.NewString(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

// api is a fake backend: /refresh issues tokens, everything else checks
// them against the accepted set.
type api struct {
	t *testing.T

	mu         sync.Mutex
	accepted   map[string]bool
	lastAuth   []string
	requestIDs []string
	bodies     []string

	refreshCalls  atomic.Int32
	rejectRefresh bool
	refreshGate   chan struct{}
	acceptIssued  bool
}

func (a *api) accept(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accepted[token] = true
}

func (a *api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/refresh" {
		a.refreshCalls.Add(1)
		if a.refreshGate != nil {
			<-a.refreshGate
		}
		if a.rejectRefresh {
			http.Error(w, `{"error":"invalid refresh token"}`, http.StatusUnauthorized)
			return
		}
		tok := mint(a.t, time.Hour)
		if a.acceptIssued {
			a.accept(tok)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id_token":"`+tok+`"}`)
		return
	}

	body, _ := io.ReadAll(r.Body)
	header := r.Header.Get("Authorization")

	a.mu.Lock()
	a.lastAuth = append(a.lastAuth, header)
	a.requestIDs = append(a.requestIDs, r.Header.Get(common.RequestIDHeaderName))
	a.bodies = append(a.bodies, string(body))
	ok := a.accepted[strings.TrimPrefix(header, "Bearer ")]
	a.mu.Unlock()

	switch r.URL.Path {
	case "/public-401":
		w.WriteHeader(http.StatusUnauthorized)
		return
	case "/billing":
		w.WriteHeader(http.StatusPaymentRequired)
		return
	case "/upgrade":
		w.WriteHeader(http.StatusForbidden)
		return
	case "/overload":
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html><body>502 Bad Gateway</body></html>")
		return
	case "/gateway-json":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = io.WriteString(w, `{"detail":"report generation timed out"}`)
		return
	}

	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	_, _ = w.Write(body)
}

type harness struct {
	api    *api
	srv    *httptest.Server
	store  *credentials.MemoryStore
	ui     *ui
	client *http.Client
}

type ui struct {
	mu      sync.Mutex
	targets []string
	notices []session.Notice
}

func (u *ui) Navigate(_ context.Context, target string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.targets = append(u.targets, target)
}

func (u *ui) Notify(_ context.Context, n session.Notice) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.notices = append(u.notices, n)
}

func (u *ui) Confirm(ctx context.Context, n session.Notice) bool {
	u.Notify(ctx, n)
	return false
}

func (u *ui) navigations() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.targets...)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	a := &api{t: t, accepted: map[string]bool{}, acceptIssued: true}
	srv := httptest.NewServer(a)
	t.Cleanup(srv.Close)

	store := credentials.NewMemoryStore()
	u := &ui{}
	in := tokens.NewInspector()
	term := session.NewTerminator(store, u, "/", session.WithNotifier(u))
	ref := refresh.NewRefresher(store, refresh.NewHTTPExchanger(srv.Client(), srv.URL+"/refresh"), in, term)
	tr := New(
		auth.NewAuthenticator(store, in, ref, nil),
		ref,
		faults.NewHandler(u, u, term, "/account", nil),
		WithBase(srv.Client().Transport),
	)

	return &harness{api: a, srv: srv, store: store, ui: u, client: &http.Client{Transport: tr}}
}

func (h *harness) login(t *testing.T, access string) {
	t.Helper()
	require.NoError(t, credentials.Save(context.Background(), h.store, credentials.Pair{AccessToken: access, RefreshToken: "R1"}))
}

func (h *harness) stored(t *testing.T) credentials.Pair {
	t.Helper()
	p, err := credentials.Load(context.Background(), h.store)
	require.NoError(t, err)
	return p
}

func (h *harness) get(t *testing.T, ctx context.Context, path string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.srv.URL+path, nil)
	require.NoError(t, err)
	return h.client.Do(req)
}

func TestRoundTrip_AnonymousRequestUntouched(t *testing.T) {
	h := newHarness(t)

	resp, err := h.get(t, context.Background(), "/public-401")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []string{""}, h.api.lastAuth)
	assert.EqualValues(t, 0, h.api.refreshCalls.Load())
	assert.Empty(t, h.ui.navigations())
}

func TestRoundTrip_PublicTierSkipsAuthentication(t *testing.T) {
	h := newHarness(t)
	valid := mint(t, time.Hour)
	h.login(t, valid)

	ctx := faults.WithTier(context.Background(), faults.TierNone)
	resp, err := h.get(t, ctx, "/public-401")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []string{""}, h.api.lastAuth)
	assert.Equal(t, valid, h.stored(t).AccessToken)
}

func TestRoundTrip_ExpiredTokenRefreshedBeforeSending(t *testing.T) {
	h := newHarness(t)
	h.login(t, mint(t, -time.Minute))

	resp, err := h.get(t, context.Background(), "/data")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, h.api.refreshCalls.Load())

	fresh := h.stored(t).AccessToken
	assert.Equal(t, []string{"Bearer " + fresh}, h.api.lastAuth)
}

func TestRoundTrip_ConcurrentExpiredRequestsRefreshOnce(t *testing.T) {
	h := newHarness(t)
	h.login(t, mint(t, -time.Minute))
	h.api.refreshGate = make(chan struct{})

	const n = 12
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := h.get(t, context.Background(), "/data")
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusOK, resp.StatusCode)
				resp.Body.Close()
			}
		}()
	}

	require.Eventually(t, func() bool { return h.api.refreshCalls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(h.api.refreshGate)
	wg.Wait()

	assert.EqualValues(t, 1, h.api.refreshCalls.Load())
	fresh := "Bearer " + h.stored(t).AccessToken
	require.Len(t, h.api.lastAuth, n)
	for _, got := range h.api.lastAuth {
		assert.Equal(t, fresh, got)
	}
}

func TestRoundTrip_401RefreshesAndReplaysBody(t *testing.T) {
	h := newHarness(t)
	// valid by clock, unknown to the server
	h.login(t, mint(t, time.Hour))

	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/echo", io.NopCloser(strings.NewReader(`{"series":"CPI"}`)))
	require.NoError(t, err)
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"series":"CPI"}`, string(got))

	assert.EqualValues(t, 1, h.api.refreshCalls.Load())
	assert.Equal(t, []string{`{"series":"CPI"}`, `{"series":"CPI"}`}, h.api.bodies)
	require.Len(t, h.api.requestIDs, 2)
	assert.NotEmpty(t, h.api.requestIDs[0])
	assert.Equal(t, h.api.requestIDs[0], h.api.requestIDs[1])
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Empty(t, h.ui.navigations())
}

func TestRoundTrip_Second401TerminatesSession(t *testing.T) {
	h := newHarness(t)
	h.api.acceptIssued = false
	h.login(t, mint(t, time.Hour))

	_, err := h.get(t, context.Background(), "/data")
	require.ErrorIs(t, err, common.ErrSessionTerminated)

	var fe *faults.FaultError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, faults.OutcomeTerminate, fe.Outcome)

	assert.EqualValues(t, 1, h.api.refreshCalls.Load())
	assert.Len(t, h.api.lastAuth, 2)
	assert.False(t, h.stored(t).Present())
	assert.Equal(t, []string{"/"}, h.ui.navigations())
}

func TestRoundTrip_RejectedRefreshTerminatesOnce(t *testing.T) {
	h := newHarness(t)
	h.api.rejectRefresh = true
	h.api.refreshGate = make(chan struct{})
	h.login(t, mint(t, -time.Minute))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.get(t, context.Background(), "/data")
			assert.ErrorIs(t, err, common.ErrSessionTerminated)
		}()
	}
	require.Eventually(t, func() bool { return h.api.refreshCalls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(h.api.refreshGate)
	wg.Wait()

	assert.EqualValues(t, 1, h.api.refreshCalls.Load())

	p, err := credentials.Load(context.Background(), h.store)
	require.NoError(t, err)
	assert.False(t, p.Present())
	access, err := h.store.Get(context.Background(), common.AccessTokenKey)
	require.NoError(t, err)
	assert.Nil(t, access)
	assert.Equal(t, []string{"/"}, h.ui.navigations())
	assert.Empty(t, h.api.lastAuth, "no protected request may go out with a stale token")
}

func TestRoundTrip_BillingNoticeKeepsCredentials(t *testing.T) {
	h := newHarness(t)
	valid := mint(t, time.Hour)
	h.api.accept(valid)
	h.login(t, valid)

	ctx := faults.WithTier(context.Background(), faults.TierPermission)
	_, err := h.get(t, ctx, "/billing")
	require.ErrorIs(t, err, common.ErrBillingRequired)

	assert.Equal(t, valid, h.stored(t).AccessToken)
	assert.EqualValues(t, 0, h.api.refreshCalls.Load())
	assert.Equal(t, []string{"/account"}, h.ui.navigations())
	require.Len(t, h.ui.notices, 1)
	assert.Equal(t, session.NoticeBillingRequired, h.ui.notices[0].Kind)
}

func TestRoundTrip_BusinessErrorsOutsidePermissionTierPassThrough(t *testing.T) {
	h := newHarness(t)
	valid := mint(t, time.Hour)
	h.login(t, valid)

	for _, path := range []string{"/billing", "/upgrade"} {
		resp, err := h.get(t, context.Background(), path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Contains(t, []int{402, 403}, resp.StatusCode)
	}
	assert.Empty(t, h.ui.navigations())
	assert.EqualValues(t, 0, h.api.refreshCalls.Load())
}

func TestRoundTrip_UpgradeNoticeDeclined(t *testing.T) {
	h := newHarness(t)
	h.login(t, mint(t, time.Hour))

	_, err := h.get(t, faults.WithTier(context.Background(), faults.TierPermission), "/upgrade")
	require.ErrorIs(t, err, common.ErrUpgradeRequired)

	assert.True(t, h.stored(t).Present())
	assert.Empty(t, h.ui.navigations())
}

func TestRoundTrip_OverloadIsNotAuthFailure(t *testing.T) {
	h := newHarness(t)
	valid := mint(t, time.Hour)
	h.login(t, valid)

	_, err := h.get(t, context.Background(), "/overload")
	require.ErrorIs(t, err, common.ErrServerOverloaded)
	assert.NotErrorIs(t, err, common.ErrSessionTerminated)

	assert.Equal(t, valid, h.stored(t).AccessToken)
	assert.EqualValues(t, 0, h.api.refreshCalls.Load())
	assert.Equal(t, []string{"/account"}, h.ui.navigations())
}

func TestRoundTrip_GatewayErrorWithJSONBodyPassesThrough(t *testing.T) {
	h := newHarness(t)

	resp, err := h.get(t, context.Background(), "/gateway-json")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"report generation timed out"}`, string(body))
}

type failingBase struct{}

func (failingBase) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestRoundTrip_NetworkErrorPropagates(t *testing.T) {
	h := newHarness(t)
	h.login(t, mint(t, time.Hour))
	h.client.Transport.(*Transport).base = failingBase{}

	_, err := h.get(t, context.Background(), "/data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, h.stored(t).Present())
}
