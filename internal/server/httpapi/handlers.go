package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type profileResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Membership    string `json:"membership"`
	BillingActive bool   `json:"billing_active"`
}

type overloadRequest struct {
	Enabled bool `json:"enabled"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument")
		return
	}

	pair, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, common.ErrorInternal.Error())
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{IDToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeStrict(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid argument")
		return
	}

	pair, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		writeError(w, http.StatusInternalServerError, common.ErrorInternal.Error())
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{IDToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	writeJSON(w, http.StatusOK, profileResponse{
		ID:            u.ID,
		Email:         u.Email,
		Membership:    string(u.Membership),
		BillingActive: u.BillingActive,
	})
}

func (h *Handlers) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	if err := h.users.RevokeSessions(r.Context(), userFrom(r.Context()).ID); err != nil {
		writeError(w, http.StatusInternalServerError, common.ErrorInternal.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Reports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"reports": []map[string]string{
			{"id": "cpi-yoy", "title": "CPI year over year"},
			{"id": "m2-growth", "title": "M2 money supply growth"},
		},
	})
}

func (h *Handlers) Overload(w http.ResponseWriter, r *http.Request) {
	var req overloadRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument")
		return
	}
	h.SetOverloaded(req.Enabled)
	h.log.Warn(r.Context(), "overload switch changed", "enabled", req.Enabled)
	w.WriteHeader(http.StatusNoContent)
}
