package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// UUIDParams answers 404 for any named URL parameter that is not a UUID, so
// malformed ids never reach the store.
func UUIDParams(names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, name := range names {
				if v := chi.URLParam(r, name); v != "" && !validator.IsValidUUID(v) {
					response.NotFound(w, name+" not found")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
