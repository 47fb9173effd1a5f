package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mailledger/backend/internal/model"
)

// MemoryStore implements Store with in-memory storage for local development
// and tests. All methods return copies so callers cannot mutate stored
// records behind the lock.
type MemoryStore struct {
	mu sync.RWMutex

	pending     map[string]*model.PendingTransaction
	connections map[string]*model.ConnectionState
	grants      map[string]*model.MailGrant
	ledger      map[string]*model.LedgerEntry
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pending:     make(map[string]*model.PendingTransaction),
		connections: make(map[string]*model.ConnectionState),
		grants:      make(map[string]*model.MailGrant),
		ledger:      make(map[string]*model.LedgerEntry),
	}
}

func copyPending(p *model.PendingTransaction) *model.PendingTransaction {
	cp := *p
	cp.Edits = append([]model.FieldEdit(nil), p.Edits...)
	return &cp
}

func (m *MemoryStore) CreatePending(ctx context.Context, p *model.PendingTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	m.pending[p.ID] = copyPending(p)
	return nil
}

func (m *MemoryStore) GetPending(ctx context.Context, pendingID string) (*model.PendingTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pending[pendingID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPending(p), nil
}

func (m *MemoryStore) UpdatePending(ctx context.Context, p *model.PendingTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pending[p.ID]; !ok {
		return ErrNotFound
	}
	m.pending[p.ID] = copyPending(p)
	return nil
}

func (m *MemoryStore) ListPending(ctx context.Context, userID string) ([]*model.PendingTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.PendingTransaction
	for _, p := range m.pending {
		if p.UserID == userID && p.State == model.PendingStatePending {
			out = append(out, copyPending(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return out, nil
}

func (m *MemoryStore) TransitionPending(ctx context.Context, pendingID string, from, to model.PendingState) (*model.PendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pending[pendingID]
	if !ok {
		return nil, ErrNotFound
	}
	if p.State != from {
		return nil, ErrNotPending
	}
	p.State = to
	p.UpdatedAt = time.Now().UTC()
	return copyPending(p), nil
}

func (m *MemoryStore) FindBySourceMessage(ctx context.Context, userID, messageID string) (*model.PendingTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.pending {
		if p.UserID != userID || p.SourceMessageID != messageID {
			continue
		}
		if p.State == model.PendingStatePending || p.State == model.PendingStateConfirmed {
			return copyPending(p), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) FindByAmountOnDay(ctx context.Context, userID string, amount decimal.Decimal, currency string, direction model.Direction, day time.Time) ([]*model.PendingTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.PendingTransaction
	for _, p := range m.pending {
		if p.UserID != userID || p.Direction != direction || p.Currency != currency {
			continue
		}
		if p.State != model.PendingStatePending && p.State != model.PendingStateConfirmed {
			continue
		}
		if !p.Amount.Equal(amount) || !sameDay(p.OccurredAt, day) {
			continue
		}
		out = append(out, copyPending(p))
	}
	return out, nil
}

func (m *MemoryStore) PurgePending(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for id, p := range m.pending {
		if p.UserID == userID && p.State == model.PendingStatePending {
			delete(m.pending, id)
			purged++
		}
	}
	return purged, nil
}

func (m *MemoryStore) GetConnection(ctx context.Context, userID string) (*model.ConnectionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cs, ok := m.connections[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cs
	return &cp, nil
}

func (m *MemoryStore) UpsertConnection(ctx context.Context, state *model.ConnectionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *state
	m.connections[state.UserID] = &cp
	return nil
}

func (m *MemoryStore) SaveGrant(ctx context.Context, grant *model.MailGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *grant
	cp.Token = append([]byte(nil), grant.Token...)
	m.grants[grant.UserID] = &cp
	return nil
}

func (m *MemoryStore) GetGrant(ctx context.Context, userID string) (*model.MailGrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.grants[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	cp.Token = append([]byte(nil), g.Token...)
	return &cp, nil
}

func (m *MemoryStore) DeleteGrant(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.grants, userID)
	return nil
}

func (m *MemoryStore) CreateLedgerEntries(ctx context.Context, entries []*model.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		cp := *e
		m.ledger[e.ID] = &cp
	}
	return nil
}

// LedgerEntries returns the confirmed entries for a user, for tests.
func (m *MemoryStore) LedgerEntries(userID string) []*model.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.LedgerEntry
	for _, e := range m.ledger {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
