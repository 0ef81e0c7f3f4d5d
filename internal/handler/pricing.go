package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-engine/internal/domain/pricing"
	"github.com/xenking/promo-engine/internal/domain/promo"
)

// quote prices a cart against the active automatic promotion catalog.
func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	lines, err := decodeQuoteRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}

	result, err := h.engine.EvaluateAutomaticPromotions(r.Context(), lines)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, encodeQuoteResponse(result))
}

// listPromotions returns the currently active automatic rules.
func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.ActiveAutomatic(r.Context(), timeNow())
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for _, rule := range rules {
		info := rule.Info()
		e.ObjStart()
		e.FieldStart("id")
		e.Str(info.ID)
		e.FieldStart("name")
		e.Str(info.Name)
		e.FieldStart("type")
		e.Str(string(info.Kind))
		e.FieldStart("discountPercent")
		encodeDecimal(&e, rulePercent(rule))
		e.ObjEnd()
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func decodeQuoteRequest(body []byte) ([]pricing.CartLine, error) {
	var lines []pricing.CartLine
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "lines" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			line, err := decodeCartLine(d)
			if err != nil {
				return err
			}
			lines = append(lines, line)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return lines, nil
}

func decodeCartLine(d *jx.Decoder) (pricing.CartLine, error) {
	var line pricing.CartLine
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			line.ProductID, err = d.Str()
		case "quantity":
			line.Quantity, err = d.Int()
		case "unitPrice":
			line.UnitPrice, err = decodeDecimal(d)
		case "categoryId":
			line.CategoryID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return line, err
}

func encodeQuoteResponse(result *pricing.Result) *jx.Encoder {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("subtotal")
	encodeDecimal(&e, result.Subtotal)
	e.FieldStart("discountAmount")
	encodeDecimal(&e, result.Discount)
	e.FieldStart("finalTotal")
	encodeDecimal(&e, result.Total)
	e.FieldStart("appliedRules")
	e.ArrStart()
	for _, applied := range result.Applied {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(applied.ID)
		e.FieldStart("name")
		e.Str(applied.Name)
		e.FieldStart("type")
		e.Str(string(applied.Kind))
		e.FieldStart("discount")
		encodeDecimal(&e, applied.Discount)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return &e
}

// rulePercent extracts the discount percentage from a rule variant for
// listing purposes.
func rulePercent(rule promo.Rule) decimal.Decimal {
	switch r := rule.(type) {
	case promo.Threshold:
		return r.Percent
	case promo.FlashSale:
		return r.Percent
	case promo.CategoryBundle:
		return r.Percent
	case promo.Combo:
		return r.Percent
	default:
		return decimal.Zero
	}
}
