//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
)

const testAPIKey = "integration-test-key"

// Seeded coupons: WELCOME10 (10%, cap 100000), TAKE20PC (20%, min order
// 100000, cap 30000), SAVE50K (fixed 50000, min order 200000), LASTONE
// (30%, single use).

func TestValidateCoupon_Percentage(t *testing.T) {
	resp := doPost(t, "/api/coupons/validate", couponRequest{
		Code:        "WELCOME10",
		OrderAmount: 500000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[couponQuoteResponse](t, resp)
	if quote.Code != "WELCOME10" {
		t.Errorf("code: got %q", quote.Code)
	}
	if quote.Type != "percentage" {
		t.Errorf("type: got %q", quote.Type)
	}
	if quote.DiscountAmount != 50000 {
		t.Errorf("discount: got %v, want 50000", quote.DiscountAmount)
	}
	if quote.FinalAmount != 450000 {
		t.Errorf("final: got %v, want 450000", quote.FinalAmount)
	}
}

func TestValidateCoupon_MaxDiscountCap(t *testing.T) {
	resp := doPost(t, "/api/coupons/validate", couponRequest{
		Code:        "TAKE20PC",
		OrderAmount: 500000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[couponQuoteResponse](t, resp)
	// 20% of 500000 is 100000, capped at 30000.
	if quote.DiscountAmount != 30000 {
		t.Errorf("discount: got %v, want 30000", quote.DiscountAmount)
	}
	if quote.FinalAmount != 470000 {
		t.Errorf("final: got %v, want 470000", quote.FinalAmount)
	}
}

func TestValidateCoupon_Fixed(t *testing.T) {
	resp := doPost(t, "/api/coupons/validate", couponRequest{
		Code:        "SAVE50K",
		OrderAmount: 200000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[couponQuoteResponse](t, resp)
	if quote.DiscountAmount != 50000 {
		t.Errorf("discount: got %v, want 50000", quote.DiscountAmount)
	}
	if quote.FinalAmount != 150000 {
		t.Errorf("final: got %v, want 150000", quote.FinalAmount)
	}
}

func TestValidateCoupon_MinOrderNotMet(t *testing.T) {
	resp := doPost(t, "/api/coupons/validate", couponRequest{
		Code:        "TAKE20PC",
		OrderAmount: 50000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	body := decodeJSON[couponQuoteResponse](t, resp)
	if body.MinOrderAmount != 100000 {
		t.Errorf("minOrderAmount: got %v, want 100000", body.MinOrderAmount)
	}
	if body.Shortfall != 50000 {
		t.Errorf("shortfall: got %v, want 50000", body.Shortfall)
	}
}

func TestValidateCoupon_Unknown(t *testing.T) {
	resp := doPost(t, "/api/coupons/validate", couponRequest{
		Code:        "NOPE1234",
		OrderAmount: 100000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestValidateCoupon_NormalizesCode(t *testing.T) {
	resp := doPost(t, "/api/coupons/validate", couponRequest{
		Code:        "  welcome10  ",
		OrderAmount: 100000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	quote := decodeJSON[couponQuoteResponse](t, resp)
	if quote.Code != "WELCOME10" {
		t.Errorf("code: got %q, want WELCOME10", quote.Code)
	}
}

func TestRedeemCoupon_NoAuth(t *testing.T) {
	resp := doPost(t, "/api/coupons/redeem", couponRequest{
		Code: "WELCOME10", OrderAmount: 100000, OrderID: "o-noauth", UserID: "u-noauth",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRedeemCoupon_WrongKey(t *testing.T) {
	resp := doPostWithAuth(t, "/api/coupons/redeem", couponRequest{
		Code: "WELCOME10", OrderAmount: 100000, OrderID: "o-wrongkey", UserID: "u-wrongkey",
	}, "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRedeemCoupon_MissingUser(t *testing.T) {
	resp := doPostWithAuth(t, "/api/coupons/redeem", couponRequest{
		Code: "WELCOME10", OrderAmount: 100000, OrderID: "o-nouser",
	}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRedeemCoupon_SucceedsOncePerUser(t *testing.T) {
	first := doPostWithAuth(t, "/api/coupons/redeem", couponRequest{
		Code: "WELCOME10", OrderAmount: 300000, OrderID: "o-redeem-1", UserID: "u-redeem",
	}, testAPIKey)
	defer first.Body.Close()

	if first.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.StatusCode)
	}

	quote := decodeJSON[couponQuoteResponse](t, first)
	if quote.DiscountAmount != 30000 {
		t.Errorf("discount: got %v, want 30000", quote.DiscountAmount)
	}

	// A replay by the same user is rejected, even against a fresh order.
	second := doPostWithAuth(t, "/api/coupons/redeem", couponRequest{
		Code: "WELCOME10", OrderAmount: 300000, OrderID: "o-redeem-2", UserID: "u-redeem",
	}, testAPIKey)
	defer second.Body.Close()

	if second.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", second.StatusCode)
	}
}

func TestRedeemCoupon_ConcurrentSingleUse(t *testing.T) {
	// LASTONE allows exactly one redemption in total. Ten users race for it;
	// the database must let exactly one through.
	const workers = 10

	codes := make([]int, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := json.Marshal(couponRequest{
				Code:        "LASTONE",
				OrderAmount: 100000,
				OrderID:     fmt.Sprintf("o-race-%d", i),
				UserID:      fmt.Sprintf("u-race-%d", i),
			})
			req, err := http.NewRequestWithContext(context.Background(),
				http.MethodPost, baseURL+"/api/coupons/redeem", bytes.NewReader(body))
			if err != nil {
				errs[i] = err
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("api_key", testAPIKey)

			resp, err := httpClient.Do(req)
			if err != nil {
				errs[i] = err
				return
			}
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}

	var succeeded, conflicted int
	for i, code := range codes {
		switch code {
		case http.StatusOK:
			succeeded++
		case http.StatusConflict:
			conflicted++
		default:
			t.Errorf("worker %d: unexpected status %d", i, code)
		}
	}

	if succeeded != 1 {
		t.Errorf("succeeded: got %d, want exactly 1", succeeded)
	}
	if conflicted != workers-1 {
		t.Errorf("conflicted: got %d, want %d", conflicted, workers-1)
	}
}
