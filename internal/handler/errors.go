package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/promo-engine/internal/domain/coupon"
	"github.com/xenking/promo-engine/internal/domain/pricing"
)

func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, &e)
}

// writeDomainError maps domain errors to user-facing, distinguishable HTTP
// responses. Anything unrecognized is logged and answered with an opaque 500.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var validationErr *pricing.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Error())
		return
	}

	var minOrderErr *coupon.MinOrderNotMetError
	if errors.As(err, &minOrderErr) {
		var e jx.Encoder
		e.ObjStart()
		e.FieldStart("code")
		e.Int(http.StatusUnprocessableEntity)
		e.FieldStart("message")
		e.Str(minOrderErr.Error())
		e.FieldStart("minOrderAmount")
		encodeDecimal(&e, minOrderErr.MinOrderAmount)
		e.FieldStart("shortfall")
		encodeDecimal(&e, minOrderErr.Shortfall)
		e.ObjEnd()
		writeJSON(w, http.StatusUnprocessableEntity, &e)
		return
	}

	switch {
	case errors.Is(err, coupon.ErrNotFound):
		writeError(w, http.StatusNotFound, "coupon not found")
	case errors.Is(err, coupon.ErrExpired):
		writeError(w, http.StatusUnprocessableEntity, "coupon expired")
	case errors.Is(err, coupon.ErrUsageLimitExceeded):
		writeError(w, http.StatusConflict, "coupon usage limit exceeded")
	case errors.Is(err, coupon.ErrAlreadyRedeemed):
		writeError(w, http.StatusConflict, "coupon already redeemed")
	case errors.Is(err, coupon.ErrUserRequired), errors.Is(err, coupon.ErrOrderRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		zctx.From(ctx).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
