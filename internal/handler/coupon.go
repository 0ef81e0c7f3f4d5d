package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/coupon"
)

// couponRequest is the shared wire shape of validate and redeem calls;
// orderId is only meaningful for redeem.
type couponRequest struct {
	Code        string
	OrderAmount decimal.Decimal
	OrderID     string
	UserID      string
}

// validateCoupon quotes a coupon code against an order amount without
// consuming it.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCouponRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	if req.OrderAmount.IsNegative() {
		writeError(w, http.StatusBadRequest, "orderAmount must not be negative")
		return
	}

	quote, err := h.coupons.Validate(r.Context(), req.Code, req.OrderAmount, req.UserID)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, encodeCouponQuote(quote))
}

// redeemCoupon commits a redemption at checkout. Callers must treat retries
// as requiring the same orderId: a replay is rejected rather than counted
// twice against the usage limit.
func (h *Handler) redeemCoupon(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCouponRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	if req.OrderAmount.IsNegative() {
		writeError(w, http.StatusBadRequest, "orderAmount must not be negative")
		return
	}

	quote, err := h.coupons.Redeem(r.Context(), req.Code, req.OrderAmount, req.OrderID, req.UserID)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, encodeCouponQuote(quote))
}

func decodeCouponRequest(w http.ResponseWriter, r *http.Request) (couponRequest, error) {
	var req couponRequest
	body, err := readBody(w, r)
	if err != nil {
		return req, err
	}

	d := jx.DecodeBytes(body)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			req.Code, err = d.Str()
		case "orderAmount":
			req.OrderAmount, err = decodeDecimal(d)
		case "orderId":
			req.OrderID, err = d.Str()
		case "userId":
			req.UserID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func encodeCouponQuote(q *coupon.Quote) *jx.Encoder {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Str(q.Code)
	e.FieldStart("type")
	e.Str(string(q.Type))
	e.FieldStart("discountAmount")
	encodeDecimal(&e, q.Discount)
	e.FieldStart("finalAmount")
	encodeDecimal(&e, q.Total)
	e.ObjEnd()
	return &e
}
