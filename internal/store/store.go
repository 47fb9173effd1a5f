// Package store persists staged transactions, connection state, mail grants
// and finalized ledger entries.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mailledger/backend/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNotPending is returned by TransitionPending when the record is no
	// longer in the expected state; the first writer won the race.
	ErrNotPending = errors.New("record not in pending state")
)

// Store defines the database operations used by the sync and review
// services.
type Store interface {
	// Pending transaction operations
	CreatePending(ctx context.Context, p *model.PendingTransaction) error
	GetPending(ctx context.Context, pendingID string) (*model.PendingTransaction, error)
	UpdatePending(ctx context.Context, p *model.PendingTransaction) error
	// ListPending returns a user's pending-state records, most recent
	// occurred-at first.
	ListPending(ctx context.Context, userID string) ([]*model.PendingTransaction, error)
	// TransitionPending moves a record from one state to another as a single
	// compare-and-swap; it returns ErrNotPending when the record is not in
	// the from state.
	TransitionPending(ctx context.Context, pendingID string, from, to model.PendingState) (*model.PendingTransaction, error)
	// FindBySourceMessage locates a live (pending or confirmed) record for a
	// provider message id, or ErrNotFound.
	FindBySourceMessage(ctx context.Context, userID, messageID string) (*model.PendingTransaction, error)
	// FindByAmountOnDay returns live records for the user with the exact
	// amount and direction whose occurred-at falls on the given UTC calendar
	// day.
	FindByAmountOnDay(ctx context.Context, userID string, amount decimal.Decimal, currency string, direction model.Direction, day time.Time) ([]*model.PendingTransaction, error)
	// PurgePending hard-deletes every pending-state record for the user and
	// reports how many were removed. Confirmed tombstones are untouched.
	PurgePending(ctx context.Context, userID string) (int, error)

	// Connection lifecycle
	GetConnection(ctx context.Context, userID string) (*model.ConnectionState, error)
	UpsertConnection(ctx context.Context, state *model.ConnectionState) error

	// Mail grant operations
	SaveGrant(ctx context.Context, grant *model.MailGrant) error
	GetGrant(ctx context.Context, userID string) (*model.MailGrant, error)
	DeleteGrant(ctx context.Context, userID string) error

	// Ledger collaborator
	CreateLedgerEntries(ctx context.Context, entries []*model.LedgerEntry) error
}

// sameDay reports whether two instants fall on the same UTC calendar day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
