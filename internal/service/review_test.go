package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailledger/backend/internal/model"
	"github.com/mailledger/backend/internal/store"
)

func stagePending(t *testing.T, st *store.MemoryStore, userID, messageID string, amount int64) *model.PendingTransaction {
	t.Helper()
	now := time.Now().UTC()
	p := &model.PendingTransaction{
		UserID:          userID,
		SourceMessageID: messageID,
		Amount:          decimal.NewFromInt(amount),
		Currency:        "INR",
		Direction:       model.DirectionDebit,
		Vendor:          "BigBasket",
		Category:        model.CategoryGroceries,
		Description:     "BigBasket",
		OccurredAt:      now,
		Confidence:      model.ConfidenceHigh,
		State:           model.PendingStatePending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, st.CreatePending(context.Background(), p))
	return p
}

func TestUpdatePendingAppliesEdits(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(&fakeProvider{})
	p := stagePending(t, st, "user-1", "msg-1", 3450)

	vendor := "Local Grocer"
	category := model.CategoryFood
	amount := decimal.NewFromInt(3400)
	got, err := svc.UpdatePending(ctx, "user-1", p.ID, UpdatePendingFields{
		Vendor:   &vendor,
		Category: &category,
		Amount:   &amount,
	})
	require.NoError(t, err)

	assert.Equal(t, "Local Grocer", got.Vendor)
	assert.Equal(t, model.CategoryFood, got.Category)
	assert.True(t, got.Amount.Equal(amount))
	assert.Len(t, got.Edits, 3, "each changed field is logged")

	// Confidence and source message are untouched by edits.
	assert.Equal(t, model.ConfidenceHigh, got.Confidence)
	assert.Equal(t, "msg-1", got.SourceMessageID)
}

func TestUpdatePendingNoOpFieldsAreNotLogged(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(&fakeProvider{})
	p := stagePending(t, st, "user-1", "msg-1", 3450)

	sameVendor := "BigBasket"
	got, err := svc.UpdatePending(ctx, "user-1", p.ID, UpdatePendingFields{Vendor: &sameVendor})
	require.NoError(t, err)
	assert.Empty(t, got.Edits)
}

func TestUpdatePendingRejectsNonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(&fakeProvider{})
	p := stagePending(t, st, "user-1", "msg-1", 3450)

	zero := decimal.Zero
	_, err := svc.UpdatePending(ctx, "user-1", p.ID, UpdatePendingFields{Amount: &zero})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	negative := decimal.NewFromInt(-5)
	_, err = svc.UpdatePending(ctx, "user-1", p.ID, UpdatePendingFields{Amount: &negative})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestUpdatePendingOwnership(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(&fakeProvider{})
	p := stagePending(t, st, "user-1", "msg-1", 3450)

	vendor := "X"
	_, err := svc.UpdatePending(ctx, "user-2", p.ID, UpdatePendingFields{Vendor: &vendor})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.UpdatePending(ctx, "user-1", "missing", UpdatePendingFields{Vendor: &vendor})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdatePendingOnlyWhilePending(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(&fakeProvider{})
	p := stagePending(t, st, "user-1", "msg-1", 3450)

	_, err := st.TransitionPending(ctx, p.ID, model.PendingStatePending, model.PendingStateConfirmed)
	require.NoError(t, err)

	vendor := "X"
	_, err = svc.UpdatePending(ctx, "user-1", p.ID, UpdatePendingFields{Vendor: &vendor})
	assert.ErrorIs(t, err, store.ErrNotPending)
}

func TestDeletePending(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(&fakeProvider{})
	p := stagePending(t, st, "user-1", "msg-1", 3450)

	require.NoError(t, svc.DeletePending(ctx, "user-1", p.ID))

	pending, err := svc.ListPending(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Deleting twice loses the race against itself.
	err = svc.DeletePending(ctx, "user-1", p.ID)
	assert.ErrorIs(t, err, store.ErrNotPending)
}

func TestDeletePendingOwnership(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(&fakeProvider{})
	p := stagePending(t, st, "user-1", "msg-1", 3450)

	err := svc.DeletePending(ctx, "user-2", p.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestConfirmPendingBatch(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(&fakeProvider{})

	valid := stagePending(t, st, "user-1", "msg-1", 3450)
	foreign := stagePending(t, st, "user-2", "msg-2", 900)
	deleted := stagePending(t, st, "user-1", "msg-3", 120)
	require.NoError(t, svc.DeletePending(ctx, "user-1", deleted.ID))

	result, err := svc.ConfirmPending(ctx, "user-1", []string{valid.ID, foreign.ID, deleted.ID, "missing"})
	require.NoError(t, err)

	assert.Equal(t, []string{valid.ID}, result.Confirmed)
	require.Len(t, result.Skipped, 3)

	reasons := map[string]string{}
	for _, s := range result.Skipped {
		reasons[s.ID] = s.Reason
	}
	assert.Equal(t, "permission denied", reasons[foreign.ID])
	assert.Equal(t, "not pending", reasons[deleted.ID])
	assert.Equal(t, "not found", reasons["missing"])

	// The confirmed record became a ledger entry and left the review queue.
	entries := st.LedgerEntries("user-1")
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(3450)))
	assert.Equal(t, valid.ID, entries[0].SourcePendingID)

	pending, err := svc.ListPending(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	// The foreign record was untouched.
	got, err := st.GetPending(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PendingStatePending, got.State)
}

func TestConfirmThenDeleteRaceIsDeterministic(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(&fakeProvider{})
	p := stagePending(t, st, "user-1", "msg-1", 3450)

	result, err := svc.ConfirmPending(ctx, "user-1", []string{p.ID})
	require.NoError(t, err)
	require.Equal(t, []string{p.ID}, result.Confirmed)

	// The delete arrives second and loses cleanly.
	err = svc.DeletePending(ctx, "user-1", p.ID)
	assert.ErrorIs(t, err, store.ErrNotPending)

	// Exactly one ledger entry exists.
	assert.Len(t, st.LedgerEntries("user-1"), 1)
}

func TestConfirmPendingIsSingleUse(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(&fakeProvider{})
	p := stagePending(t, st, "user-1", "msg-1", 3450)

	first, err := svc.ConfirmPending(ctx, "user-1", []string{p.ID})
	require.NoError(t, err)
	require.Len(t, first.Confirmed, 1)

	second, err := svc.ConfirmPending(ctx, "user-1", []string{p.ID})
	require.NoError(t, err)
	assert.Empty(t, second.Confirmed)
	require.Len(t, second.Skipped, 1)
	assert.Equal(t, "not pending", second.Skipped[0].Reason)

	assert.Len(t, st.LedgerEntries("user-1"), 1, "no duplicate ledger entries")
}

func TestConfirmedRecordStillBlocksRestaging(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{messages: []*model.RawMessage{
		bankMessage("msg-1", "INR 3,450 debited for BigBasket order on 05-Dec-23"),
	}}
	svc, st := newTestService(provider)
	connectUser(t, st, "user-1")

	_, err := svc.Fetch(ctx, "user-1", FetchOptions{})
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.ConfirmPending(ctx, "user-1", []string{pending[0].ID})
	require.NoError(t, err)

	// Refetching the same message must not resurrect it for review.
	stats, err := svc.Fetch(ctx, "user-1", FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.New)
	assert.Equal(t, 1, stats.DedupedAway)
}
