package handlers

import (
	"net/http"

	"github.com/example/watchdeck/internal/accounts"
	"github.com/example/watchdeck/internal/platform/api"
	"github.com/example/watchdeck/internal/platform/auth"
	"github.com/example/watchdeck/internal/platform/httpserver"
)

// Me handles GET /v1/me and returns the authenticated user's profile.
func Me(store accounts.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "AUTH_MISSING", "authentication required", rid)
			return
		}

		u, err := store.GetUserByID(r.Context(), uid)
		if err != nil {
			// The token outlived the account.
			api.NotFound(w, "USER_NOT_FOUND", "user no longer exists", rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, u)
	}
}
