// Package mailbox is the read-only collaborator boundary to the user's
// mail provider.
package mailbox

import (
	"context"
	"errors"
	"time"

	"github.com/mailledger/backend/internal/model"
)

// ErrAuthExpired marks provider failures caused by an expired or externally
// revoked grant. Callers surface it distinctly from transient network
// failure so the user can be prompted to re-consent instead of retrying.
var ErrAuthExpired = errors.New("mailbox authorization expired or revoked")

// Provider is the delegated, revocable, read-only mailbox boundary. The core
// never requests write, send or delete scopes.
type Provider interface {
	// AuthCodeURL returns the URL the user visits to grant read-only access.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for a serialized token.
	Exchange(ctx context.Context, code string) ([]byte, error)
	// List returns provider message ids arriving after the given time,
	// newest first, capped at max.
	List(ctx context.Context, grant *model.MailGrant, after time.Time, max int64) ([]string, error)
	// Fetch retrieves one message with its decoded plain-text body.
	Fetch(ctx context.Context, grant *model.MailGrant, id string) (*model.RawMessage, error)
	// Revoke invalidates the grant with the provider.
	Revoke(ctx context.Context, grant *model.MailGrant) error
}
