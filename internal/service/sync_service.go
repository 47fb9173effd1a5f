// Package service implements the mail-to-ledger pipeline: fetch
// coordination, deduplication, the review workflow and the connection
// lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mailledger/backend/internal/extract"
	"github.com/mailledger/backend/internal/mailbox"
	"github.com/mailledger/backend/internal/model"
	"github.com/mailledger/backend/internal/store"
)

const (
	defaultMaxResults = 50
	defaultWindowDays = 30
	maxWindowDays     = 365

	defaultFetchTimeout   = 2 * time.Minute
	defaultExtractWorkers = 8
)

// Ledger accepts finalized transaction records for permanent storage. The
// pipeline only ever writes to it; dedup reads go through the staging store.
type Ledger interface {
	CreateLedgerEntries(ctx context.Context, entries []*model.LedgerEntry) error
}

// SyncService coordinates mailbox fetches and owns the staged-transaction
// review surface.
type SyncService struct {
	store     store.Store
	ledger    Ledger
	provider  mailbox.Provider
	extractor *extract.Extractor
	log       zerolog.Logger

	// fetchGroup coalesces concurrent fetches per user; two racing fetches
	// for one user would race on dedup checks against the same pending set.
	fetchGroup singleflight.Group

	fetchTimeout   time.Duration
	extractWorkers int
}

// NewSyncService wires the pipeline together.
func NewSyncService(st store.Store, ledger Ledger, provider mailbox.Provider, extractor *extract.Extractor, log zerolog.Logger) *SyncService {
	return &SyncService{
		store:          st,
		ledger:         ledger,
		provider:       provider,
		extractor:      extractor,
		log:            log,
		fetchTimeout:   defaultFetchTimeout,
		extractWorkers: defaultExtractWorkers,
	}
}

// FetchOptions bounds one fetch attempt.
type FetchOptions struct {
	MaxResults int
	WindowDays int
}

func (o FetchOptions) withDefaults() FetchOptions {
	if o.MaxResults <= 0 {
		o.MaxResults = defaultMaxResults
	}
	if o.WindowDays <= 0 {
		o.WindowDays = defaultWindowDays
	}
	if o.WindowDays > maxWindowDays {
		o.WindowDays = maxWindowDays
	}
	return o
}

// FetchStats reports what one fetch attempt did, with enough detail to
// distinguish "nothing new found" from "the operation failed".
type FetchStats struct {
	Fetched     int `json:"fetched"`
	Parsed      int `json:"parsed"`
	New         int `json:"new"`
	DedupedAway int `json:"deduped_away"`
}

// GetConnectionStatus returns the user's connection state; a user with no
// record is simply disconnected, not an error.
func (s *SyncService) GetConnectionStatus(ctx context.Context, userID string) (*model.ConnectionState, error) {
	cs, err := s.store.GetConnection(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &model.ConnectionState{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// BeginConsent issues an authorization URL for the delegated read-only
// grant. The state nonce is persisted so the callback can be verified.
func (s *SyncService) BeginConsent(ctx context.Context, userID string) (string, error) {
	state := uuid.New().String()
	grant := &model.MailGrant{
		UserID:    userID,
		State:     state,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveGrant(ctx, grant); err != nil {
		return "", fmt.Errorf("save consent state: %w", err)
	}
	return s.provider.AuthCodeURL(state), nil
}

// CompleteConsent exchanges the authorization code, persists the grant and
// transitions the connection to connected.
func (s *SyncService) CompleteConsent(ctx context.Context, userID, state, code string) error {
	grant, err := s.store.GetGrant(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidConsent
	}
	if err != nil {
		return err
	}
	if grant.State == "" || grant.State != state {
		return ErrInvalidConsent
	}

	token, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("complete consent: %w", err)
	}

	grant.Token = token
	grant.State = ""
	if err := s.store.SaveGrant(ctx, grant); err != nil {
		return fmt.Errorf("save grant: %w", err)
	}

	now := time.Now().UTC()
	return s.store.UpsertConnection(ctx, &model.ConnectionState{
		UserID:      userID,
		Connected:   true,
		ConnectedAt: &now,
	})
}

// Fetch pulls recent messages, extracts candidates, dedups and stages them.
// Concurrent calls for the same user coalesce onto the in-flight attempt.
// Repeated fetches over overlapping windows are safe: staged records are
// keyed by source message id and re-checked through the dedup gate.
func (s *SyncService) Fetch(ctx context.Context, userID string, opts FetchOptions) (*FetchStats, error) {
	v, err, _ := s.fetchGroup.Do(userID, func() (interface{}, error) {
		return s.fetch(ctx, userID, opts.withDefaults())
	})
	if err != nil {
		return nil, err
	}
	return v.(*FetchStats), nil
}

func (s *SyncService) fetch(ctx context.Context, userID string, opts FetchOptions) (*FetchStats, error) {
	cs, err := s.store.GetConnection(ctx, userID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !cs.Connected) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}

	grant, err := s.store.GetGrant(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	after := time.Now().UTC().AddDate(0, 0, -opts.WindowDays)
	ids, err := s.provider.List(ctx, grant, after, int64(opts.MaxResults))
	if err != nil {
		return nil, s.failFetch(userID, cs, err)
	}

	// Retrieve the whole batch before anything is stored so a provider
	// failure mid-way fails the attempt atomically and leaves the pending
	// set untouched.
	messages := make([]*model.RawMessage, 0, len(ids))
	for _, id := range ids {
		msg, err := s.provider.Fetch(ctx, grant, id)
		if err != nil {
			return nil, s.failFetch(userID, cs, err)
		}
		messages = append(messages, msg)
	}

	// Extraction is pure, so messages parse in parallel. Bodies do not
	// survive this step.
	candidates := make([]*model.ExtractedTransaction, len(messages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.extractWorkers)
	for i, msg := range messages {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			candidates[i] = s.extractor.Extract(*msg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.failFetch(userID, cs, err)
	}

	stats := &FetchStats{Fetched: len(messages)}
	now := time.Now().UTC()
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		stats.Parsed++

		dup, err := s.isDuplicate(ctx, userID, candidate)
		if err != nil {
			return nil, s.failFetch(userID, cs, err)
		}
		if dup {
			stats.DedupedAway++
			continue
		}

		p := &model.PendingTransaction{
			ID:              uuid.New().String(),
			UserID:          userID,
			SourceMessageID: candidate.SourceMessageID,
			Amount:          candidate.Amount,
			Currency:        candidate.Currency,
			Direction:       candidate.Direction,
			Vendor:          candidate.Vendor,
			Category:        candidate.Category,
			Description:     candidate.Vendor,
			OccurredAt:      candidate.OccurredAt,
			Confidence:      candidate.Confidence,
			Snippet:         candidate.Snippet,
			State:           model.PendingStatePending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.store.CreatePending(ctx, p); err != nil {
			// Already-staged records are idempotent on re-run; fail the
			// attempt and let the caller retry.
			return nil, s.failFetch(userID, cs, fmt.Errorf("stage candidate: %w", err))
		}
		stats.New++
	}

	cs.LastFetchAt = &now
	cs.LastError = ""
	if err := s.store.UpsertConnection(ctx, cs); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID).
		Int("fetched", stats.Fetched).
		Int("parsed", stats.Parsed).
		Int("new", stats.New).
		Int("deduped", stats.DedupedAway).
		Msg("mailbox fetch complete")
	return stats, nil
}

// failFetch records the error on the connection state and returns it. The
// prior pending set is untouched. Recording uses a fresh context so that a
// timed-out fetch can still report why it failed.
func (s *SyncService) failFetch(userID string, cs *model.ConnectionState, err error) error {
	cs.LastError = err.Error()
	recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if uerr := s.store.UpsertConnection(recordCtx, cs); uerr != nil {
		s.log.Error().Err(uerr).Str("user_id", userID).Msg("record fetch error")
	}
	return fmt.Errorf("fetch for %s: %w", userID, err)
}

// Revoke withdraws mailbox access and purges the user's staged data. The
// local purge is unconditional: a failed provider-side revocation surfaces
// as an error after the purge rather than leaving stale pending data behind.
// Revoking an already-disconnected user is a no-op.
func (s *SyncService) Revoke(ctx context.Context, userID string) error {
	_, csErr := s.store.GetConnection(ctx, userID)
	grant, grantErr := s.store.GetGrant(ctx, userID)

	if errors.Is(csErr, store.ErrNotFound) && errors.Is(grantErr, store.ErrNotFound) {
		return nil
	}
	if csErr != nil && !errors.Is(csErr, store.ErrNotFound) {
		return csErr
	}
	if grantErr != nil && !errors.Is(grantErr, store.ErrNotFound) {
		return grantErr
	}

	var revokeErr error
	if grant != nil && len(grant.Token) > 0 {
		revokeErr = s.provider.Revoke(ctx, grant)
	}

	purged, err := s.store.PurgePending(ctx, userID)
	if err != nil {
		return fmt.Errorf("purge pending records: %w", err)
	}
	if err := s.store.DeleteGrant(ctx, userID); err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}

	disconnected := &model.ConnectionState{UserID: userID}
	if revokeErr != nil {
		disconnected.LastError = revokeErr.Error()
	}
	if err := s.store.UpsertConnection(ctx, disconnected); err != nil {
		return err
	}

	s.log.Info().
		Str("user_id", userID).
		Int("purged", purged).
		Bool("provider_revoked", revokeErr == nil).
		Msg("mailbox access revoked")

	if revokeErr != nil {
		return fmt.Errorf("local data purged but provider revocation failed: %w", revokeErr)
	}
	return nil
}
