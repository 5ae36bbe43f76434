package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/users"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const userKey ctxKey = "user"

func userFrom(ctx context.Context) *users.User {
	u, _ := ctx.Value(userKey).(*users.User)
	return u
}

func (h *Handlers) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Header().Set(common.RequestIDHeaderName, middleware.GetReqID(r.Context()))
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// overloadGate answers 502 with an HTML page while the overload switch is on.
func (h *Handlers) overloadGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.overload.Load() {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html><head><title>502 Bad Gateway</title></head><body><h1>502 Bad Gateway</h1></body></html>\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}

		user, err := h.users.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = common.ErrTokenExpired.Error()
			}
			writeError(w, http.StatusUnauthorized, msg)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// requirePaidMembership: 402 while billing is inactive, 403 for basic
// members.
func (h *Handlers) requirePaidMembership(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := userFrom(r.Context())
		switch {
		case !u.BillingActive:
			writeError(w, http.StatusPaymentRequired, common.ErrBillingRequired.Error())
		case u.Membership != users.MembershipPremium:
			writeError(w, http.StatusForbidden, common.ErrUpgradeRequired.Error())
		default:
			next.ServeHTTP(w, r)
		}
	})
}
