package promo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func cartWith(subtotal string) Cart {
	return Cart{
		Subtotal:          dec(subtotal),
		CategorySubtotals: map[string]decimal.Decimal{},
		ProductQuantities: map[string]int{},
	}
}

func TestThreshold_Discount(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	rule := Threshold{
		RuleInfo:      RuleInfo{ID: "r1", Kind: KindThreshold},
		MinOrderValue: dec("500000"),
		Percent:       dec("10"),
	}

	tests := []struct {
		name     string
		subtotal string
		want     string
	}{
		{name: "at threshold", subtotal: "500000", want: "50000"},
		{name: "above threshold", subtotal: "600000", want: "60000"},
		{name: "below threshold", subtotal: "499999", want: "0"},
		{name: "fractional result floored", subtotal: "500005", want: "50000"},
		{name: "empty cart", subtotal: "0", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rule.Discount(cartWith(tt.subtotal), now)
			assert.True(t, dec(tt.want).Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestFlashSale_Discount(t *testing.T) {
	window := &DailyWindow{Start: 18 * 60, End: 21 * 60}
	rule := FlashSale{
		RuleInfo: RuleInfo{ID: "r2", Kind: KindFlashSale},
		Percent:  dec("5"),
		Window:   window,
	}
	cart := cartWith("100000")

	at := func(hour, minute int) time.Time {
		return time.Date(2025, 6, 15, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{name: "inside window", now: at(19, 30), want: "5000"},
		{name: "window start inclusive", now: at(18, 0), want: "5000"},
		{name: "window end inclusive", now: at(21, 0), want: "5000"},
		{name: "one minute before start", now: at(17, 59), want: "0"},
		{name: "one minute after end", now: at(21, 1), want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rule.Discount(cart, tt.now)
			assert.True(t, dec(tt.want).Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestFlashSale_NoWindowAlwaysOn(t *testing.T) {
	rule := FlashSale{
		RuleInfo: RuleInfo{ID: "r2", Kind: KindFlashSale},
		Percent:  dec("5"),
	}

	got := rule.Discount(cartWith("100000"), time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC))
	assert.True(t, dec("5000").Equal(got))
}

func TestFlashSale_InvertedWindowNeverMatches(t *testing.T) {
	rule := FlashSale{
		RuleInfo: RuleInfo{ID: "r2", Kind: KindFlashSale},
		Percent:  dec("5"),
		Window:   &DailyWindow{Start: 22 * 60, End: 2 * 60},
	}

	for _, hour := range []int{0, 1, 12, 22, 23} {
		got := rule.Discount(cartWith("100000"), time.Date(2025, 6, 15, hour, 30, 0, 0, time.UTC))
		assert.True(t, got.IsZero(), "hour %d: expected zero, got %s", hour, got)
	}
}

func TestCategoryBundle_Discount(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	rule := CategoryBundle{
		RuleInfo:   RuleInfo{ID: "r3", Kind: KindCategoryBundle},
		CategoryID: "coffee",
		Percent:    dec("15"),
	}

	t.Run("only matching category counted", func(t *testing.T) {
		cart := Cart{
			Subtotal: dec("300000"),
			CategorySubtotals: map[string]decimal.Decimal{
				"coffee":     dec("100000"),
				"appliances": dec("200000"),
			},
			ProductQuantities: map[string]int{},
		}

		got := rule.Discount(cart, now)
		assert.True(t, dec("15000").Equal(got), "expected 15000, got %s", got)
	})

	t.Run("category absent from cart", func(t *testing.T) {
		cart := Cart{
			Subtotal:          dec("300000"),
			CategorySubtotals: map[string]decimal.Decimal{"appliances": dec("300000")},
			ProductQuantities: map[string]int{},
		}

		got := rule.Discount(cart, now)
		assert.True(t, got.IsZero())
	})

	t.Run("empty category id never applies", func(t *testing.T) {
		blank := CategoryBundle{RuleInfo: RuleInfo{ID: "r3"}, Percent: dec("15")}
		cart := Cart{
			Subtotal:          dec("300000"),
			CategorySubtotals: map[string]decimal.Decimal{"": dec("300000")},
			ProductQuantities: map[string]int{},
		}

		got := blank.Discount(cart, now)
		assert.True(t, got.IsZero())
	})
}

func TestCombo_Discount(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	rule := Combo{
		RuleInfo: RuleInfo{ID: "r4", Kind: KindCombo},
		Percent:  dec("12"),
		Requirements: []Requirement{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 2},
		},
	}

	tests := []struct {
		name       string
		quantities map[string]int
		want       string
	}{
		{
			name:       "all requirements met",
			quantities: map[string]int{"p1": 1, "p2": 2},
			want:       "12000",
		},
		{
			name:       "surplus quantities still fire",
			quantities: map[string]int{"p1": 5, "p2": 3},
			want:       "12000",
		},
		{
			name:       "one unit short disables the rule",
			quantities: map[string]int{"p1": 1, "p2": 1},
			want:       "0",
		},
		{
			name:       "missing product disables the rule",
			quantities: map[string]int{"p2": 2},
			want:       "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := Cart{
				Subtotal:          dec("100000"),
				CategorySubtotals: map[string]decimal.Decimal{},
				ProductQuantities: tt.quantities,
			}

			got := rule.Discount(cart, now)
			assert.True(t, dec(tt.want).Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestCombo_DiscountsWholeSubtotal(t *testing.T) {
	// The discount base is the full cart, including items outside the combo.
	rule := Combo{
		RuleInfo:     RuleInfo{ID: "r4", Kind: KindCombo},
		Percent:      dec("10"),
		Requirements: []Requirement{{ProductID: "p1", Quantity: 1}},
	}
	cart := Cart{
		Subtotal:          dec("500000"),
		CategorySubtotals: map[string]decimal.Decimal{},
		ProductQuantities: map[string]int{"p1": 1, "unrelated": 3},
	}

	got := rule.Discount(cart, time.Now())
	assert.True(t, dec("50000").Equal(got), "expected 50000, got %s", got)
}

func TestCombo_NoRequirementsNeverFires(t *testing.T) {
	rule := Combo{RuleInfo: RuleInfo{ID: "r4"}, Percent: dec("10")}

	require.False(t, rule.Satisfied(map[string]int{"p1": 100}))
	assert.True(t, rule.Discount(cartWith("100000"), time.Now()).IsZero())
}
