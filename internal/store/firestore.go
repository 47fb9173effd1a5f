package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mailledger/backend/internal/model"
)

const (
	pendingCollection    = "pendingTransactions"
	connectionCollection = "connections"
	grantCollection      = "mailGrants"
	ledgerCollection     = "ledgerEntries"
)

// FirestoreStore implements the Store interface using Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) Store {
	return &FirestoreStore{client: client}
}

// pendingDoc is the Firestore representation of a PendingTransaction.
// Amounts are stored as strings: Firestore has no decimal type and floats
// would reintroduce the rounding problems decimals exist to avoid.
type pendingDoc struct {
	ID              string            `firestore:"id"`
	UserID          string            `firestore:"userId"`
	SourceMessageID string            `firestore:"sourceMessageId"`
	Amount          string            `firestore:"amount"`
	Currency        string            `firestore:"currency"`
	Direction       string            `firestore:"direction"`
	Vendor          string            `firestore:"vendor"`
	Category        string            `firestore:"category"`
	Description     string            `firestore:"description"`
	OccurredAt      time.Time         `firestore:"occurredAt"`
	Confidence      string            `firestore:"confidence"`
	Snippet         string            `firestore:"snippet"`
	State           string            `firestore:"state"`
	Edits           []fieldEditDoc    `firestore:"edits,omitempty"`
	CreatedAt       time.Time         `firestore:"createdAt"`
	UpdatedAt       time.Time         `firestore:"updatedAt"`
}

type fieldEditDoc struct {
	Field    string    `firestore:"field"`
	OldValue string    `firestore:"oldValue"`
	NewValue string    `firestore:"newValue"`
	EditedAt time.Time `firestore:"editedAt"`
}

type ledgerDoc struct {
	ID              string    `firestore:"id"`
	UserID          string    `firestore:"userId"`
	Amount          string    `firestore:"amount"`
	Currency        string    `firestore:"currency"`
	Direction       string    `firestore:"direction"`
	Vendor          string    `firestore:"vendor"`
	Category        string    `firestore:"category"`
	Description     string    `firestore:"description"`
	OccurredAt      time.Time `firestore:"occurredAt"`
	SourcePendingID string    `firestore:"sourcePendingId"`
	CreatedAt       time.Time `firestore:"createdAt"`
}

func toPendingDoc(p *model.PendingTransaction) pendingDoc {
	doc := pendingDoc{
		ID:              p.ID,
		UserID:          p.UserID,
		SourceMessageID: p.SourceMessageID,
		Amount:          p.Amount.String(),
		Currency:        p.Currency,
		Direction:       string(p.Direction),
		Vendor:          p.Vendor,
		Category:        string(p.Category),
		Description:     p.Description,
		OccurredAt:      p.OccurredAt,
		Confidence:      string(p.Confidence),
		Snippet:         p.Snippet,
		State:           string(p.State),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	for _, e := range p.Edits {
		doc.Edits = append(doc.Edits, fieldEditDoc(e))
	}
	return doc
}

func fromPendingDoc(doc *pendingDoc) (*model.PendingTransaction, error) {
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse stored amount %q: %w", doc.Amount, err)
	}
	p := &model.PendingTransaction{
		ID:              doc.ID,
		UserID:          doc.UserID,
		SourceMessageID: doc.SourceMessageID,
		Amount:          amount,
		Currency:        doc.Currency,
		Direction:       model.Direction(doc.Direction),
		Vendor:          doc.Vendor,
		Category:        model.Category(doc.Category),
		Description:     doc.Description,
		OccurredAt:      doc.OccurredAt,
		Confidence:      model.Confidence(doc.Confidence),
		Snippet:         doc.Snippet,
		State:           model.PendingState(doc.State),
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
	for _, e := range doc.Edits {
		p.Edits = append(p.Edits, model.FieldEdit(e))
	}
	return p, nil
}

func (s *FirestoreStore) CreatePending(ctx context.Context, p *model.PendingTransaction) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := s.client.Collection(pendingCollection).Doc(p.ID).Set(ctx, toPendingDoc(p))
	return err
}

func (s *FirestoreStore) GetPending(ctx context.Context, pendingID string) (*model.PendingTransaction, error) {
	snap, err := s.client.Collection(pendingCollection).Doc(pendingID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc pendingDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("parse pending transaction: %w", err)
	}
	return fromPendingDoc(&doc)
}

func (s *FirestoreStore) UpdatePending(ctx context.Context, p *model.PendingTransaction) error {
	ref := s.client.Collection(pendingCollection).Doc(p.ID)
	if _, err := ref.Get(ctx); status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	_, err := ref.Set(ctx, toPendingDoc(p))
	return err
}

func (s *FirestoreStore) ListPending(ctx context.Context, userID string) ([]*model.PendingTransaction, error) {
	docs, err := s.client.Collection(pendingCollection).
		Where("userId", "==", userID).
		Where("state", "==", string(model.PendingStatePending)).
		OrderBy("occurredAt", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	out := make([]*model.PendingTransaction, 0, len(docs))
	for _, snap := range docs {
		var doc pendingDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("parse pending transaction: %w", err)
		}
		p, err := fromPendingDoc(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *FirestoreStore) TransitionPending(ctx context.Context, pendingID string, from, to model.PendingState) (*model.PendingTransaction, error) {
	ref := s.client.Collection(pendingCollection).Doc(pendingID)

	var result *model.PendingTransaction
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var doc pendingDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("parse pending transaction: %w", err)
		}
		if doc.State != string(from) {
			return ErrNotPending
		}
		doc.State = string(to)
		doc.UpdatedAt = time.Now().UTC()
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		result, err = fromPendingDoc(&doc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *FirestoreStore) FindBySourceMessage(ctx context.Context, userID, messageID string) (*model.PendingTransaction, error) {
	docs, err := s.client.Collection(pendingCollection).
		Where("userId", "==", userID).
		Where("sourceMessageId", "==", messageID).
		Where("state", "in", []string{
			string(model.PendingStatePending),
			string(model.PendingStateConfirmed),
		}).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	var doc pendingDoc
	if err := docs[0].DataTo(&doc); err != nil {
		return nil, fmt.Errorf("parse pending transaction: %w", err)
	}
	return fromPendingDoc(&doc)
}

func (s *FirestoreStore) FindByAmountOnDay(ctx context.Context, userID string, amount decimal.Decimal, currency string, direction model.Direction, day time.Time) ([]*model.PendingTransaction, error) {
	dayStart := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	docs, err := s.client.Collection(pendingCollection).
		Where("userId", "==", userID).
		Where("direction", "==", string(direction)).
		Where("occurredAt", ">=", dayStart).
		Where("occurredAt", "<", dayEnd).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	// Amount equality is decided in code: stored strings are not canonical
	// across trailing zeros.
	var out []*model.PendingTransaction
	for _, snap := range docs {
		var doc pendingDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("parse pending transaction: %w", err)
		}
		p, err := fromPendingDoc(&doc)
		if err != nil {
			return nil, err
		}
		if p.State != model.PendingStatePending && p.State != model.PendingStateConfirmed {
			continue
		}
		if p.Currency != currency || !p.Amount.Equal(amount) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *FirestoreStore) PurgePending(ctx context.Context, userID string) (int, error) {
	docs, err := s.client.Collection(pendingCollection).
		Where("userId", "==", userID).
		Where("state", "==", string(model.PendingStatePending)).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}

	bw := s.client.BulkWriter(ctx)
	for _, snap := range docs {
		if _, err := bw.Delete(snap.Ref); err != nil {
			return 0, err
		}
	}
	bw.End()
	return len(docs), nil
}

func (s *FirestoreStore) GetConnection(ctx context.Context, userID string) (*model.ConnectionState, error) {
	snap, err := s.client.Collection(connectionCollection).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cs model.ConnectionState
	if err := snap.DataTo(&cs); err != nil {
		return nil, fmt.Errorf("parse connection state: %w", err)
	}
	return &cs, nil
}

func (s *FirestoreStore) UpsertConnection(ctx context.Context, state *model.ConnectionState) error {
	_, err := s.client.Collection(connectionCollection).Doc(state.UserID).Set(ctx, state)
	return err
}

func (s *FirestoreStore) SaveGrant(ctx context.Context, grant *model.MailGrant) error {
	_, err := s.client.Collection(grantCollection).Doc(grant.UserID).Set(ctx, grant)
	return err
}

func (s *FirestoreStore) GetGrant(ctx context.Context, userID string) (*model.MailGrant, error) {
	snap, err := s.client.Collection(grantCollection).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var g model.MailGrant
	if err := snap.DataTo(&g); err != nil {
		return nil, fmt.Errorf("parse mail grant: %w", err)
	}
	return &g, nil
}

func (s *FirestoreStore) DeleteGrant(ctx context.Context, userID string) error {
	_, err := s.client.Collection(grantCollection).Doc(userID).Delete(ctx)
	return err
}

func (s *FirestoreStore) CreateLedgerEntries(ctx context.Context, entries []*model.LedgerEntry) error {
	bw := s.client.BulkWriter(ctx)
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		doc := ledgerDoc{
			ID:              e.ID,
			UserID:          e.UserID,
			Amount:          e.Amount.String(),
			Currency:        e.Currency,
			Direction:       string(e.Direction),
			Vendor:          e.Vendor,
			Category:        string(e.Category),
			Description:     e.Description,
			OccurredAt:      e.OccurredAt,
			SourcePendingID: e.SourcePendingID,
			CreatedAt:       e.CreatedAt,
		}
		if _, err := bw.Create(s.client.Collection(ledgerCollection).Doc(e.ID), doc); err != nil {
			return err
		}
	}
	bw.End()
	return nil
}
