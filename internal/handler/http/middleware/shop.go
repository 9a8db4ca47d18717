package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// ShopMiddleware loads the shop named in the URL once per request so handlers
// can pass its settings explicitly into the engines.
type ShopMiddleware struct {
	shopService shop.ShopService
}

func NewShopMiddleware(shopService shop.ShopService) *ShopMiddleware {
	return &ShopMiddleware{shopService: shopService}
}

func (m *ShopMiddleware) LoadShop(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		shopID := chi.URLParam(r, "shopID")
		if !validator.IsValidUUID(shopID) {
			response.NotFound(w, "Shop not found")
			return
		}

		s, err := m.shopService.GetShop(r.Context(), shopID)
		if err != nil {
			response.HandleError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), shopContextKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ShopFromContext returns the shop stored by LoadShop.
func ShopFromContext(ctx context.Context) (shop.Shop, bool) {
	s, ok := ctx.Value(shopContextKey).(shop.Shop)
	return s, ok
}

// WithShop stores s in ctx the way LoadShop does.
func WithShop(ctx context.Context, s shop.Shop) context.Context {
	return context.WithValue(ctx, shopContextKey, s)
}
