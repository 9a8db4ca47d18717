package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	staffContextKey contextKey = "staff"
	shopContextKey  contextKey = "shop"
)

// StaffRequired accepts only staff tokens issued for the shop in the URL.
// It must run after jwtauth.Verifier.
func StaffRequired(jwtService jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}
			if token == nil {
				response.Unauthorized(w, jwt.ErrInvalidToken.Error())
				return
			}

			if raw := jwtauth.TokenFromHeader(r); raw != "" && jwtService.IsTokenRevoked(raw) {
				response.Unauthorized(w, "Token revoked")
				return
			}

			staff, err := jwtService.StaffClaimsFromMap(claims)
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if shopID := chi.URLParam(r, "shopID"); shopID != "" && shopID != staff.ShopID {
				response.Forbidden(w, "WRONG_SHOP", "Token was issued for another shop", nil)
				return
			}

			ctx := context.WithValue(r.Context(), staffContextKey, staff)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}

// StaffFromContext returns the claims stored by StaffRequired.
func StaffFromContext(ctx context.Context) (jwt.StaffClaims, bool) {
	staff, ok := ctx.Value(staffContextKey).(jwt.StaffClaims)
	return staff, ok
}

// WithStaff stores staff in ctx the way StaffRequired does.
func WithStaff(ctx context.Context, staff jwt.StaffClaims) context.Context {
	return context.WithValue(ctx, staffContextKey, staff)
}
