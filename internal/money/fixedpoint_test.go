package money_test

import (
	"TourneyLedger/internal/money"
	"testing"
)

func TestApplyBasisPoints_PlatformFee(t *testing.T) {
	// 110.00 at 500 bps (5%) -> 5.50
	fee := money.ApplyBasisPoints(11_000, 500)
	if fee != 550 {
		t.Errorf("got %d, want 550", fee)
	}
}

func TestApplyBasisPoints_TruncatesTowardZero(t *testing.T) {
	// 33 * 3333 / 10000 = 10.99... -> 10
	got := money.ApplyBasisPoints(33, 3333)
	if got != 10 {
		t.Errorf("got %d, want 10", got)
	}
}

func TestApplyBasisPoints_LargeAmountNoOverflow(t *testing.T) {
	// Close to int64 max: intermediate product must not wrap.
	amount := int64(9_000_000_000_000_000_000) / money.BasisPointDenominator * money.BasisPointDenominator
	got := money.ApplyBasisPoints(amount, money.BasisPointDenominator)
	if got != amount {
		t.Errorf("10000 bps should be identity: got %d, want %d", got, amount)
	}
}

func TestSplitEvenly(t *testing.T) {
	if got := money.SplitEvenly(1000, 3); got != 333 {
		t.Errorf("got %d, want 333", got)
	}
	if got := money.SplitEvenly(1000, 0); got != 0 {
		t.Errorf("zero parts: got %d, want 0", got)
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		amount int64
		want   string
	}{
		{10450, "104.50"},
		{500, "5.00"},
		{1, "0.01"},
		{-550, "-5.50"},
	}
	for _, c := range cases {
		if got := money.Format(c.amount); got != c.want {
			t.Errorf("Format(%d) = %q, want %q", c.amount, got, c.want)
		}
	}
}
