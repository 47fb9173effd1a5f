package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mailledger/backend/internal/model"
	"github.com/mailledger/backend/internal/store"
)

// ListPending returns the user's transactions awaiting review, most recent
// first.
func (s *SyncService) ListPending(ctx context.Context, userID string) ([]*model.PendingTransaction, error) {
	return s.store.ListPending(ctx, userID)
}

// UpdatePendingFields carries the review corrections a user may apply. Nil
// fields are left unchanged. Confidence, direction and the source message id
// are not correctable.
type UpdatePendingFields struct {
	Vendor      *string
	Category    *model.Category
	Amount      *decimal.Decimal
	OccurredAt  *time.Time
	Description *string
}

// UpdatePending applies review corrections to a pending record. Every changed
// field is appended to the record's edit log.
func (s *SyncService) UpdatePending(ctx context.Context, userID, pendingID string, fields UpdatePendingFields) (*model.PendingTransaction, error) {
	p, err := s.store.GetPending(ctx, pendingID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrPermissionDenied
	}
	if p.State != model.PendingStatePending {
		return nil, store.ErrNotPending
	}

	now := time.Now().UTC()
	edit := func(field, oldVal, newVal string) {
		p.Edits = append(p.Edits, model.FieldEdit{
			Field:    field,
			OldValue: oldVal,
			NewValue: newVal,
			EditedAt: now,
		})
	}

	if fields.Amount != nil {
		if fields.Amount.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
		if !p.Amount.Equal(*fields.Amount) {
			edit("amount", p.Amount.String(), fields.Amount.String())
			p.Amount = *fields.Amount
		}
	}
	if fields.Vendor != nil && *fields.Vendor != p.Vendor {
		edit("vendor", p.Vendor, *fields.Vendor)
		p.Vendor = *fields.Vendor
	}
	if fields.Category != nil && *fields.Category != p.Category {
		edit("category", string(p.Category), string(*fields.Category))
		p.Category = *fields.Category
	}
	if fields.OccurredAt != nil && !fields.OccurredAt.Equal(p.OccurredAt) {
		edit("occurred_at", p.OccurredAt.Format(time.RFC3339), fields.OccurredAt.UTC().Format(time.RFC3339))
		p.OccurredAt = fields.OccurredAt.UTC()
	}
	if fields.Description != nil && *fields.Description != p.Description {
		edit("description", p.Description, *fields.Description)
		p.Description = *fields.Description
	}

	p.UpdatedAt = now
	if err := s.store.UpdatePending(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePending discards a staged transaction. The record moves to the
// deleted state rather than being removed, so a later fetch of the same
// message id can stage it again without resurrecting the dismissed copy.
func (s *SyncService) DeletePending(ctx context.Context, userID, pendingID string) error {
	p, err := s.store.GetPending(ctx, pendingID)
	if err != nil {
		return err
	}
	if p.UserID != userID {
		return ErrPermissionDenied
	}
	_, err = s.store.TransitionPending(ctx, pendingID, model.PendingStatePending, model.PendingStateDeleted)
	return err
}

// SkippedConfirmation names one record a confirmation batch could not
// process and why.
type SkippedConfirmation struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ConfirmResult reports the outcome of a confirmation batch.
type ConfirmResult struct {
	Confirmed []string              `json:"confirmed"`
	Skipped   []SkippedConfirmation `json:"skipped,omitempty"`
}

// ConfirmPending promotes a batch of pending records into the permanent
// ledger. The batch succeeds partially: each invalid id is skipped with a
// reason and the rest proceed. Confirming a record that a concurrent request
// already confirmed or deleted skips it; exactly one winner writes the
// ledger entry.
func (s *SyncService) ConfirmPending(ctx context.Context, userID string, pendingIDs []string) (*ConfirmResult, error) {
	result := &ConfirmResult{}
	skip := func(id, reason string) {
		result.Skipped = append(result.Skipped, SkippedConfirmation{ID: id, Reason: reason})
	}

	for _, id := range pendingIDs {
		p, err := s.store.GetPending(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			skip(id, "not found")
			continue
		}
		if err != nil {
			return nil, err
		}
		if p.UserID != userID {
			skip(id, "permission denied")
			continue
		}

		p, err = s.store.TransitionPending(ctx, id, model.PendingStatePending, model.PendingStateConfirmed)
		if errors.Is(err, store.ErrNotPending) {
			skip(id, "not pending")
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			skip(id, "not found")
			continue
		}
		if err != nil {
			return nil, err
		}

		entry := &model.LedgerEntry{
			ID:              uuid.New().String(),
			UserID:          p.UserID,
			Amount:          p.Amount,
			Currency:        p.Currency,
			Direction:       p.Direction,
			Vendor:          p.Vendor,
			Category:        p.Category,
			Description:     p.Description,
			OccurredAt:      p.OccurredAt,
			SourcePendingID: p.ID,
			CreatedAt:       time.Now().UTC(),
		}
		if err := s.ledger.CreateLedgerEntries(ctx, []*model.LedgerEntry{entry}); err != nil {
			// Roll the state back so the record is not confirmed without a
			// ledger entry; a retry can pick it up again.
			if _, rerr := s.store.TransitionPending(ctx, id, model.PendingStateConfirmed, model.PendingStatePending); rerr != nil {
				s.log.Error().Err(rerr).Str("pending_id", id).Msg("revert confirmation after ledger failure")
			}
			return nil, fmt.Errorf("write ledger entry for %s: %w", id, err)
		}
		result.Confirmed = append(result.Confirmed, id)
	}
	return result, nil
}
