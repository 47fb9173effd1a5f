package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mailledger/backend/internal/model"
)

func TestResolveSenderRule(t *testing.T) {
	r := NewVendorResolver()

	got := r.Resolve("noreply@swiggy.in", "Order delivered", "Your order is on its way")
	assert.Equal(t, "Swiggy", got.Vendor)
	assert.Equal(t, model.CategoryFood, got.Category)
	assert.True(t, got.Known)
}

func TestResolveSenderRuleBeatsBodyToken(t *testing.T) {
	r := NewVendorResolver()

	// The sender identity is stronger evidence than a brand mention in text.
	got := r.Resolve("noreply@swiggy.in", "Order update", "Better than zomato, right?")
	assert.Equal(t, "Swiggy", got.Vendor)
	assert.True(t, got.Known)
}

func TestResolveBodyToken(t *testing.T) {
	r := NewVendorResolver()

	got := r.Resolve("alerts@hdfcbank.net", "Transaction alert", "INR 3,450 debited for BigBasket order")
	assert.Equal(t, "BigBasket", got.Vendor)
	assert.Equal(t, model.CategoryGroceries, got.Category)
	assert.True(t, got.Known)
}

func TestResolveRecognizedNonBrand(t *testing.T) {
	r := NewVendorResolver()

	got := r.Resolve("payroll@acmecorp.com", "Salary credited", "Net Salary for November credited")
	assert.Equal(t, "Salary", got.Vendor)
	assert.Equal(t, model.CategorySalary, got.Category)
	assert.True(t, got.Known)
}

func TestResolveContextLabel(t *testing.T) {
	r := NewVendorResolver()

	tests := []struct {
		name     string
		body     string
		vendor   string
		category model.Category
	}{
		{name: "atm", body: "Rs 1250 withdrawn from ATM", vendor: "ATM", category: model.CategoryCash},
		{name: "upi", body: "Rs 560 sent via UPI", vendor: "UPI Transfer", category: model.CategoryTransfer},
		{name: "neft", body: "NEFT of Rs 10,000 processed", vendor: "Bank Transfer", category: model.CategoryTransfer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve("alerts@icicibank.com", "Alert", tt.body)
			assert.Equal(t, tt.vendor, got.Vendor)
			assert.Equal(t, tt.category, got.Category)
			assert.False(t, got.Known, "context labels are best-effort, not recognized vendors")
		})
	}
}

func TestResolveSenderFallback(t *testing.T) {
	r := NewVendorResolver()

	got := r.Resolve("alerts@hdfcbank.net", "Debit alert", "Rs 300 debited")
	assert.Equal(t, "Hdfcbank", got.Vendor)
	assert.Equal(t, model.CategoryOther, got.Category)
	assert.False(t, got.Known)
}

func TestResolveUnknown(t *testing.T) {
	r := NewVendorResolver()

	got := r.Resolve("not-an-address", "Alert", "Rs 300 debited")
	assert.Equal(t, "Unknown", got.Vendor)
	assert.Equal(t, model.CategoryOther, got.Category)
	assert.False(t, got.Known)
}

func TestResolveCustomRules(t *testing.T) {
	rules := []VendorRule{
		{Pattern: "corner store", Vendor: "Corner Store", Category: model.CategoryGroceries},
	}
	r := NewVendorResolverWithRules(rules)

	got := r.Resolve("alerts@bank.example.com", "Alert", "Paid at Corner Store")
	assert.Equal(t, "Corner Store", got.Vendor)
	assert.True(t, got.Known)
}
