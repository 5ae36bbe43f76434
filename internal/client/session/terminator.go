package session

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"golang.org/x/sync/singleflight"
)

// Reason says why a session ended.
type Reason int

const (
	// ReasonSessionInvalid: the server rejected the refresh token or the
	// token issued by a refresh.
	ReasonSessionInvalid Reason = iota
	// ReasonLoginRequired: a protected action found no session.
	ReasonLoginRequired
	// ReasonLogout: the user asked to sign out.
	ReasonLogout
)

func (r Reason) String() string {
	switch r {
	case ReasonSessionInvalid:
		return "session_invalid"
	case ReasonLoginRequired:
		return "login_required"
	case ReasonLogout:
		return "logout"
	default:
		return "unknown"
	}
}

func (r Reason) notice() (NoticeKind, bool) {
	switch r {
	case ReasonSessionInvalid:
		return NoticeSessionInvalid, true
	case ReasonLoginRequired:
		return NoticeLoginRequired, true
	default:
		return 0, false
	}
}

// Terminator clears credentials and navigates to the landing URL.
// Concurrent terminations share one clear and one navigation.
type Terminator struct {
	store      credentials.Store
	navigator  Navigator
	notifier   Notifier
	landingURL string
	log        logging.Logger
	metrics    *metrics.Collectors
	group      singleflight.Group
}

type Option func(*Terminator)

func WithNotifier(n Notifier) Option {
	return func(t *Terminator) { t.notifier = n }
}

func WithLogger(l logging.Logger) Option {
	return func(t *Terminator) { t.log = l }
}

func WithMetrics(m *metrics.Collectors) Option {
	return func(t *Terminator) { t.metrics = m }
}

func NewTerminator(store credentials.Store, nav Navigator, landingURL string, opts ...Option) *Terminator {
	t := &Terminator{
		store:      store,
		navigator:  nav,
		landingURL: landingURL,
		log:        logging.Discard(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Terminate ends the session. It returns once the clear step completes; a
// cancelled ctx releases the caller but not the teardown itself.
func (t *Terminator) Terminate(ctx context.Context, reason Reason) error {
	ch := t.group.DoChan("terminate", func() (any, error) {
		return nil, t.teardown(context.WithoutCancel(ctx), reason)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// Logout is the user-initiated variant: no notice is shown.
func (t *Terminator) Logout(ctx context.Context) error {
	return t.Terminate(ctx, ReasonLogout)
}

func (t *Terminator) teardown(ctx context.Context, reason Reason) error {
	err := credentials.Clear(ctx, t.store)
	if err != nil {
		// still navigate; the next login overwrites whatever is left
		t.log.Error(ctx, "failed to clear credentials", "reason", reason.String(), "error", err)
		err = fmt.Errorf("failed to clear credentials: %w", err)
	}

	t.metrics.Termination(reason.String())
	t.log.Info(ctx, "session terminated", "reason", reason.String())

	if kind, ok := reason.notice(); ok && t.notifier != nil {
		t.notifier.Notify(ctx, NewNotice(kind, t.landingURL))
	}
	if t.navigator != nil {
		t.navigator.Navigate(ctx, t.landingURL)
	}
	return err
}
