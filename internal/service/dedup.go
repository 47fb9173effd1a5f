package service

import (
	"context"
	"errors"

	"github.com/mailledger/backend/internal/model"
	"github.com/mailledger/backend/internal/store"
)

// isDuplicate reports whether a candidate is already represented in the
// user's staged or confirmed records.
//
// Two gates run in order. The primary gate matches on the provider message
// id, which makes refetches over overlapping windows idempotent. The
// secondary gate catches the same real-world transaction arriving through
// different notification emails: an exact amount and currency match, same
// direction, on the same UTC calendar day. Deleted records do not block a
// re-stage; confirmed ones do.
func (s *SyncService) isDuplicate(ctx context.Context, userID string, candidate *model.ExtractedTransaction) (bool, error) {
	_, err := s.store.FindBySourceMessage(ctx, userID, candidate.SourceMessageID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	matches, err := s.store.FindByAmountOnDay(ctx, userID, candidate.Amount, candidate.Currency, candidate.Direction, candidate.OccurredAt)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}
