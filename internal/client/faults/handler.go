package faults

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/session"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

// FaultError is returned instead of a response when an outcome was handled
// on the caller's behalf.
type FaultError struct {
	Outcome    Outcome
	StatusCode int
	Err        error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s (status %d): %v", e.Outcome, e.StatusCode, e.Err)
}

func (e *FaultError) Unwrap() error { return e.Err }

type Terminator interface {
	Terminate(ctx context.Context, reason session.Reason) error
}

// Handler performs notices, redirects and teardown for notice and terminate
// outcomes. Credentials are only touched for OutcomeTerminate.
type Handler struct {
	notifier   session.Notifier
	navigator  session.Navigator
	terminator Terminator
	accountURL string
	log        logging.Logger
}

func NewHandler(notifier session.Notifier, nav session.Navigator, term Terminator, accountURL string, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{
		notifier:   notifier,
		navigator:  nav,
		terminator: term,
		accountURL: accountURL,
		log:        log,
	}
}

// Handle returns nil for outcomes it does not own (Continue, RetryOnce).
func (h *Handler) Handle(ctx context.Context, outcome Outcome, status int) error {
	var sentinel error

	switch outcome {
	case OutcomeTerminate:
		sentinel = common.ErrSessionTerminated
		if err := h.terminator.Terminate(ctx, session.ReasonSessionInvalid); err != nil {
			h.log.Error(ctx, "failed to terminate session", "error", err)
		}
	case OutcomeBillingNotice:
		sentinel = common.ErrBillingRequired
		h.notify(ctx, session.NoticeBillingRequired)
		h.navigate(ctx)
	case OutcomePermissionNotice:
		sentinel = common.ErrUpgradeRequired
		n := session.NewNotice(session.NoticeUpgradeRequired, h.accountURL)
		if h.notifier != nil && h.notifier.Confirm(ctx, n) {
			h.navigate(ctx)
		}
	case OutcomeOverloadNotice:
		sentinel = common.ErrServerOverloaded
		h.notify(ctx, session.NoticeServerOverloaded)
		h.navigate(ctx)
	default:
		return nil
	}

	h.log.Info(ctx, "response fault handled", "outcome", outcome.String(), "status", status)
	return &FaultError{Outcome: outcome, StatusCode: status, Err: sentinel}
}

func (h *Handler) notify(ctx context.Context, kind session.NoticeKind) {
	if h.notifier != nil {
		h.notifier.Notify(ctx, session.NewNotice(kind, h.accountURL))
	}
}

func (h *Handler) navigate(ctx context.Context) {
	if h.navigator != nil {
		h.navigator.Navigate(ctx, h.accountURL)
	}
}
