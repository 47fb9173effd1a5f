package extract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFindsQualifiedAmounts(t *testing.T) {
	n := NewAmountNormalizer("INR")

	tests := []struct {
		name     string
		text     string
		amount   string
		currency string
	}{
		{name: "marker before number", text: "INR 3,450 debited for your order", amount: "3450", currency: "INR"},
		{name: "indian grouping", text: "Rs.1,23,456.78 debited from account", amount: "123456.78", currency: "INR"},
		{name: "number before marker", text: "500 INR credited to your account", amount: "500", currency: "INR"},
		{name: "rupee symbol", text: "You paid ₹235.00 for your trip", amount: "235", currency: "INR"},
		{name: "dollar", text: "Your payment of USD 9.99 was charged", amount: "9.99", currency: "USD"},
		{name: "ungrouped digits", text: "Rs 1250 withdrawn from ATM", amount: "1250", currency: "INR"},
		{name: "bare number with keyword", text: "Payment of 1500 received from tenant", amount: "1500", currency: "INR"},
		{name: "decimal amount", text: "Total paid: Rs. 349.50 for your order", amount: "349.5", currency: "INR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.text)
			require.True(t, got.Found)
			want, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)
			assert.True(t, got.Amount.Equal(want), "got %s want %s", got.Amount, want)
			assert.Equal(t, tt.currency, got.Currency)
			assert.True(t, got.KeywordAdjacent)
			assert.False(t, got.Ambiguous)
		})
	}
}

func TestNormalizeRejectsUnqualifiedNumbers(t *testing.T) {
	n := NewAmountNormalizer("INR")

	tests := []struct {
		name string
		text string
	}{
		{name: "no digits at all", text: "Your statement is ready for download"},
		{name: "bare number without keyword", text: "Your reference number is 482915"},
		{name: "date fragments only", text: "Transaction debited on 05-Dec-23"},
		{name: "zero amount", text: "Rs 0 charged to your card"},
		{name: "reference-length digit run", text: "Rs 1234567890 paid"},
		{name: "plural tail is not a rupee marker", text: "Special offers 500 bonus points on your next purchase"},
		{name: "loyalty points near a keyword", text: "In recent years 500 reward points were credited to you"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.text)
			assert.False(t, got.Found)
		})
	}
}

func TestNormalizePrefersKeywordAdjacentMatch(t *testing.T) {
	n := NewAmountNormalizer("INR")

	// The invoice number is far from any monetary keyword; the total is not.
	got := n.Normalize("Invoice number 999 for your records. Thanks for shopping with us. Total amount Rs 450 paid")
	require.True(t, got.Found)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(450)))
	assert.True(t, got.KeywordAdjacent)
	assert.False(t, got.Ambiguous)
}

func TestNormalizeFlagsCompetingValues(t *testing.T) {
	n := NewAmountNormalizer("INR")

	got := n.Normalize("Payment received: Rs 2,000 and Rs 3,000 credited to your account")
	require.True(t, got.Found)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(2000)), "first qualified match wins")
	assert.True(t, got.Ambiguous)
}

func TestNormalizeEqualRepeatsAreNotAmbiguous(t *testing.T) {
	n := NewAmountNormalizer("INR")

	got := n.Normalize("Amount Rs 499 debited. Total: Rs 499")
	require.True(t, got.Found)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(499)))
	assert.False(t, got.Ambiguous)
}

func TestNormalizeDefaultCurrency(t *testing.T) {
	n := NewAmountNormalizer("USD")

	got := n.Normalize("Payment of 1500 received")
	require.True(t, got.Found)
	assert.Equal(t, "USD", got.Currency)

	// Explicit markers always win over the default.
	got = n.Normalize("INR 200 debited")
	require.True(t, got.Found)
	assert.Equal(t, "INR", got.Currency)
}
