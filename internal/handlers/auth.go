package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/example/watchdeck/internal/accounts"
	"github.com/example/watchdeck/internal/platform/analytics"
	"github.com/example/watchdeck/internal/platform/api"
	"github.com/example/watchdeck/internal/platform/httpserver"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func Register(svc *accounts.Service, ap *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req registerRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}

		res, err := svc.Register(r.Context(), req.Email, req.Username, req.Password, r.UserAgent())
		if err != nil {
			writeAccountsError(w, rid, err)
			return
		}

		ap.Publish(analytics.SubjectAuthRegistered, "user_registered", res.User.ID, map[string]any{
			"username": res.User.Username,
		})
		api.WriteJSON(w, http.StatusCreated, res)
	}
}

func Login(svc *accounts.Service, ap *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req loginRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}

		res, err := svc.Login(r.Context(), req.Login, req.Password, r.UserAgent())
		if err != nil {
			writeAccountsError(w, rid, err)
			return
		}

		ap.Publish(analytics.SubjectAuthLoggedIn, "user_logged_in", res.User.ID, nil)
		api.WriteJSON(w, http.StatusOK, res)
	}
}

func Refresh(svc *accounts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req refreshRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}

		res, err := svc.Refresh(r.Context(), strings.TrimSpace(req.RefreshToken), r.UserAgent())
		if err != nil {
			writeAccountsError(w, rid, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}
}

func Logout(svc *accounts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req refreshRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}

		if err := svc.Logout(r.Context(), strings.TrimSpace(req.RefreshToken)); err != nil {
			api.Internal(w, rid)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeAccountsError maps accounts package errors onto the HTTP envelope.
func writeAccountsError(w http.ResponseWriter, rid string, err error) {
	var verr *accounts.ValidationError
	switch {
	case errors.As(err, &verr):
		api.BadRequest(w, "VALIDATION", verr.Message, rid, map[string]any{"field": verr.Field})
	case errors.Is(err, accounts.ErrConflict):
		api.Conflict(w, "ALREADY_EXISTS", "email or username already taken", rid, nil)
	case errors.Is(err, accounts.ErrInvalidCredentials):
		api.Unauthorized(w, "INVALID_CREDENTIALS", "invalid login or password", rid)
	case errors.Is(err, accounts.ErrInvalidRefresh):
		api.Unauthorized(w, "INVALID_REFRESH", "refresh token is expired or revoked", rid)
	default:
		api.Internal(w, rid)
	}
}
