// Package httpapi is the HTTP surface of the development server: token
// issuance plus public, authenticated and permission-checked routes.
package httpapi

import (
	"net/http"
	"sync/atomic"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/users"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const BasePath = "/api"

type Handlers struct {
	users    *users.Service
	log      logging.Logger
	overload atomic.Bool
}

func New(svc *users.Service, log logging.Logger) *Handlers {
	if log == nil {
		log = logging.Discard()
	}
	return &Handlers{users: svc, log: log}
}

// Overloaded reports the overload switch.
func (h *Handlers) Overloaded() bool {
	return h.overload.Load()
}

// SetOverloaded makes data routes answer like a saturated gateway.
func (h *Handlers) SetOverloaded(on bool) {
	h.overload.Store(on)
}

// Router mounts every route under BasePath.
func (h *Handlers) Router() http.Handler {
	root := chi.NewRouter()
	root.Use(
		middleware.Recoverer,
		middleware.RequestID,
		h.logRequests,
	)

	api := chi.NewRouter()
	registerRoutes(api, h)
	root.Mount(BasePath, api)
	return root
}

func registerRoutes(r chi.Router, h *Handlers) {
	// auth
	r.Post("/auth/user", h.Login)
	r.Post("/auth/refresh-token", h.RefreshToken)

	// dev switches
	r.Post("/dev/overload", h.Overload)

	r.Group(func(r chi.Router) {
		r.Use(h.overloadGate)

		r.Get("/public/ping", h.Ping)

		r.Group(func(r chi.Router) {
			r.Use(h.requireUser)

			r.Get("/me", h.Me)
			r.Post("/me/revoke-sessions", h.RevokeSessions)

			r.With(h.requirePaidMembership).Get("/reports", h.Reports)
		})
	})
}
