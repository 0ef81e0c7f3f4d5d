// Package handler exposes the pricing engine over HTTP with jx-encoded JSON.
package handler

import (
	"net/http"
	"time"

	"github.com/xenking/promo-engine/internal/domain/coupon"
	"github.com/xenking/promo-engine/internal/domain/pricing"
	"github.com/xenking/promo-engine/internal/domain/promo"
)

// maxBodyBytes bounds request bodies; carts are small.
const maxBodyBytes = 1 << 20

// timeNow is swapped out in tests.
var timeNow = time.Now

// Handler serves the pricing, coupon, and promotion listing endpoints.
type Handler struct {
	engine  *pricing.Engine
	coupons *coupon.Service
	rules   promo.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(engine *pricing.Engine, coupons *coupon.Service, rules promo.Repository) *Handler {
	return &Handler{engine: engine, coupons: coupons, rules: rules}
}

// Register mounts all API routes on mux. The redeem route is wrapped with
// redeemAuth: committing a redemption is a service-to-service call and
// requires an API key, while quoting and validation are open.
func (h *Handler) Register(mux *http.ServeMux, redeemAuth func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/promotions", h.listPromotions)
	mux.HandleFunc("POST /api/pricing/quote", h.quote)
	mux.HandleFunc("POST /api/coupons/validate", h.validateCoupon)
	mux.Handle("POST /api/coupons/redeem", redeemAuth(http.HandlerFunc(h.redeemCoupon)))
}
