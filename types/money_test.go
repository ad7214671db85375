package types

import (
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
	}{
		{"USD", USD(4900), 4900, "usd"},
		{"EUR", EUR(19900), 19900, "eur"},
		{"New base", New(2000, "base"), 2000, "base"},
		{"New uppercase", New(100, "TOKEN"), 100, "token"},
		{"Zero USD", Zero("USD"), 0, "usd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return USD(100).Add(USD(200)) }, USD(300)},
		{"Subtract", func() Money { return USD(500).Subtract(USD(200)) }, USD(300)},
		{"Multiply", func() Money { return USD(100).Multiply(3) }, USD(300)},
		{"Negate", func() Money { return USD(100).Negate() }, USD(-100)},
		{"Complex", func() Money {
			return USD(1000).Add(USD(500)).Multiply(2).Subtract(USD(1000))
		}, USD(2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	// This should panic
	_ = USD(100).Add(EUR(100))
}

func TestMoneySplitFee(t *testing.T) {
	tests := []struct {
		name   string
		amount Money
		bps    int
		fee    int64
		net    int64
	}{
		{"5 percent of 0.1", New(100000, "base"), 500, 5000, 95000},
		{"zero fee", New(100000, "base"), 0, 0, 100000},
		{"full fee", New(100000, "base"), 10000, 100000, 0},
		{"floors the fee", New(999, "base"), 250, 24, 975},
		{"tiny amount rounds to zero fee", New(3, "base"), 250, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, net := tt.amount.SplitFee(tt.bps)
			if fee.Amount != tt.fee {
				t.Errorf("fee: got %d, want %d", fee.Amount, tt.fee)
			}
			if net.Amount != tt.net {
				t.Errorf("net: got %d, want %d", net.Amount, tt.net)
			}
			// Conservation: fee + net must always equal the original amount.
			if !fee.Add(net).Equal(tt.amount) {
				t.Errorf("leakage: %v + %v != %v", fee, net, tt.amount)
			}
		})
	}
}

func TestMoneySplitFeeOutOfRange(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for bps out of range")
		}
	}()

	_, _ = USD(100).SplitFee(10001)
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", USD(100), USD(100), false, false, true},
		{"Less", USD(50), USD(100), true, false, false},
		{"Greater", USD(200), USD(100), false, true, false},
		{"Zero equal", USD(0), Zero("usd"), false, false, true},
		{"Negative less", USD(-100), USD(100), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		decimals int
		want     string
	}{
		{"two decimals", USD(4900), 2, "49.00"},
		{"zero decimals", New(100, "jpy"), 0, "100"},
		{"minor only", USD(5), 2, "0.05"},
		{"negative", USD(-4950), 2, "-49.50"},
		{"six decimals", New(2000, "base"), 6, "0.002000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.FormatMajor(tt.decimals); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSum(t *testing.T) {
	total := Sum(USD(100), USD(200), USD(300))
	if !total.Equal(USD(600)) {
		t.Errorf("got %v, want %v", total, USD(600))
	}
}

func TestPredicates(t *testing.T) {
	if !USD(0).IsZero() || USD(1).IsZero() {
		t.Error("IsZero misbehaved")
	}
	if !USD(1).IsPositive() || USD(-1).IsPositive() {
		t.Error("IsPositive misbehaved")
	}
	if !USD(-1).IsNegative() || USD(1).IsNegative() {
		t.Error("IsNegative misbehaved")
	}
}
