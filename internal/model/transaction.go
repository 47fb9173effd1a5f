// Package model defines the core data structures for the mail-to-ledger pipeline.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction says which way money moved.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Confidence is the discrete reliability label attached to a candidate.
// The three levels form a total order: low < medium < high.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank maps a confidence level onto its position in the total order.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// Category is a spending or income category assigned to a transaction.
type Category string

const (
	CategoryGroceries     Category = "Groceries"
	CategoryFood          Category = "Food & Dining"
	CategoryTransport     Category = "Transportation"
	CategoryShopping      Category = "Shopping"
	CategoryEntertainment Category = "Entertainment"
	CategoryUtilities     Category = "Utilities"
	CategoryTravel        Category = "Travel"
	CategoryHealthcare    Category = "Healthcare"
	CategoryHousing       Category = "Housing"
	CategoryEducation     Category = "Education"
	CategorySalary        Category = "Salary"
	CategoryInterest      Category = "Interest"
	CategoryCash          Category = "Cash"
	CategoryTransfer      Category = "Transfer"
	CategoryOther         Category = "Other"
)

// RawMessage is one fetched mailbox item. It is transient: the body is
// consumed by the extractor and must never be persisted.
type RawMessage struct {
	ID        string
	ArrivedAt time.Time
	Sender    string
	Subject   string
	Body      string
}

// ExtractedTransaction is a parsed-but-unreviewed transaction guess produced
// by the extractor. Amount is always positive; Direction and Confidence are
// always set, even when extraction partially failed.
type ExtractedTransaction struct {
	SourceMessageID string          `json:"source_message_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Direction       Direction       `json:"direction"`
	Vendor          string          `json:"vendor"`
	Category        Category        `json:"category"`
	OccurredAt      time.Time       `json:"occurred_at"`
	Confidence      Confidence      `json:"confidence"`
	Snippet         string          `json:"snippet"`
}

// PendingState is the lifecycle state of a staged transaction.
type PendingState string

const (
	PendingStatePending   PendingState = "pending"
	PendingStateConfirmed PendingState = "confirmed"
	PendingStateDeleted   PendingState = "deleted"
)

// FieldEdit records one manual correction applied during review.
type FieldEdit struct {
	Field    string    `json:"field"`
	OldValue string    `json:"old_value"`
	NewValue string    `json:"new_value"`
	EditedAt time.Time `json:"edited_at"`
}

// PendingTransaction is a stored, user-visible projection of an extracted
// candidate awaiting review. Vendor, category, amount, date and description
// may be corrected while the record is pending; confidence and the source
// message id are immutable.
type PendingTransaction struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	SourceMessageID string          `json:"source_message_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Direction       Direction       `json:"direction"`
	Vendor          string          `json:"vendor"`
	Category        Category        `json:"category"`
	Description     string          `json:"description"`
	OccurredAt      time.Time       `json:"occurred_at"`
	Confidence      Confidence      `json:"confidence"`
	Snippet         string          `json:"snippet"`
	State           PendingState    `json:"state"`
	Edits           []FieldEdit     `json:"edits,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// LedgerEntry is a finalized transaction handed to the permanent ledger on
// confirmation.
type LedgerEntry struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Direction       Direction       `json:"direction"`
	Vendor          string          `json:"vendor"`
	Category        Category        `json:"category"`
	Description     string          `json:"description"`
	OccurredAt      time.Time       `json:"occurred_at"`
	SourcePendingID string          `json:"source_pending_id"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ConnectionState tracks a user's mailbox consent and fetch bookkeeping.
type ConnectionState struct {
	UserID      string     `json:"user_id"`
	Connected   bool       `json:"connected"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	LastFetchAt *time.Time `json:"last_fetch_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// MailGrant holds the delegated, revocable OAuth grant for a user's mailbox.
// Token is the serialized oauth2 token; State is the nonce binding the
// consent round trip.
type MailGrant struct {
	UserID    string    `json:"user_id"`
	Token     []byte    `json:"token,omitempty"`
	State     string    `json:"state,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
