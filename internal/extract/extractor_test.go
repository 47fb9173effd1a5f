package extract

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailledger/backend/internal/model"
)

func msg(sender, subject, body string) model.RawMessage {
	return model.RawMessage{
		ID:        "msg-1",
		ArrivedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Sender:    sender,
		Subject:   subject,
		Body:      body,
	}
}

func TestExtractGroceryDebit(t *testing.T) {
	ex := New("INR")

	got := ex.Extract(msg("alerts@hdfcbank.net", "Transaction alert",
		"INR 3,450 debited for BigBasket order on 05-Dec-23"))
	require.NotNil(t, got)

	assert.Equal(t, "msg-1", got.SourceMessageID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(3450)))
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, model.DirectionDebit, got.Direction)
	assert.Equal(t, "BigBasket", got.Vendor)
	assert.Equal(t, model.CategoryGroceries, got.Category)
	assert.Equal(t, model.ConfidenceHigh, got.Confidence)
	assert.Equal(t, time.Date(2023, 12, 5, 0, 0, 0, 0, time.UTC), got.OccurredAt)
}

func TestExtractSalaryCredit(t *testing.T) {
	ex := New("INR")

	got := ex.Extract(msg("payroll@acmecorp.com", "Salary credited",
		"Rs.75,000.00 credited to your account - Net Salary for November"))
	require.NotNil(t, got)

	assert.True(t, got.Amount.Equal(decimal.NewFromInt(75000)))
	assert.Equal(t, model.DirectionCredit, got.Direction)
	assert.Equal(t, "Salary", got.Vendor)
	assert.Equal(t, model.CategorySalary, got.Category)
	assert.Equal(t, model.ConfidenceHigh, got.Confidence)
}

func TestExtractATMWithdrawal(t *testing.T) {
	ex := New("INR")

	got := ex.Extract(msg("alerts@icicibank.com", "Cash withdrawal",
		"Rs 1250 withdrawn from ATM on 12/01/2024"))
	require.NotNil(t, got)

	assert.True(t, got.Amount.Equal(decimal.NewFromInt(1250)))
	assert.Equal(t, model.DirectionDebit, got.Direction)
	assert.Equal(t, "ATM", got.Vendor)
	assert.Equal(t, model.CategoryCash, got.Category)
	assert.Equal(t, model.ConfidenceMedium, got.Confidence)
	assert.Equal(t, time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), got.OccurredAt)
}

func TestExtractNoAmountYieldsNothing(t *testing.T) {
	ex := New("INR")

	got := ex.Extract(msg("statements@hdfcbank.net", "Your statement is ready",
		"Your monthly account statement is now available for download."))
	assert.Nil(t, got)
}

func TestExtractDateFallsBackToArrival(t *testing.T) {
	ex := New("INR")

	got := ex.Extract(msg("noreply@swiggy.in", "Order delivered",
		"Total paid: Rs. 349.50 for your order"))
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), got.OccurredAt)
}

func TestExtractSnippetIsBounded(t *testing.T) {
	ex := New("INR")

	long := "Dear customer, this is a long notification with plenty of boilerplate before the figure. " +
		"INR 760 debited for your purchase. " +
		"Please do not reply to this automated message. Contact support through the app for help."
	got := ex.Extract(msg("alerts@hdfcbank.net", "Debit alert", long))
	require.NotNil(t, got)

	assert.Contains(t, got.Snippet, "760")
	assert.Less(t, len(got.Snippet), len(long), "snippet must not retain the full body")
}

func TestSnippetStaysValidUTF8(t *testing.T) {
	// Rupee symbols every few bytes make sure both window edges land inside
	// a multibyte rune at some offset.
	text := strings.Repeat("₹99 paid ", 40)
	for offset := 0; offset <= len(text); offset++ {
		got := snippet(text, offset)
		require.True(t, utf8.ValidString(got), "offset %d: %q", offset, got)
	}
}

func TestExtractSubjectOnlyAmount(t *testing.T) {
	ex := New("INR")

	got := ex.Extract(msg("alerts@axisbank.com", "INR 900 debited from your account", ""))
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(900)))
	assert.Equal(t, model.DirectionDebit, got.Direction)
}
