package mailbox

import (
	"context"
	"errors"
	"time"

	"github.com/mailledger/backend/internal/model"
)

// ErrProviderDisabled is returned by Disabled for every operation.
var ErrProviderDisabled = errors.New("mail provider not configured")

// Disabled is a Provider used when no mail credentials are configured. The
// server stays up; connection operations fail with a clear error.
type Disabled struct{}

func (Disabled) AuthCodeURL(string) string { return "" }

func (Disabled) Exchange(context.Context, string) ([]byte, error) {
	return nil, ErrProviderDisabled
}

func (Disabled) List(context.Context, *model.MailGrant, time.Time, int64) ([]string, error) {
	return nil, ErrProviderDisabled
}

func (Disabled) Fetch(context.Context, *model.MailGrant, string) (*model.RawMessage, error) {
	return nil, ErrProviderDisabled
}

func (Disabled) Revoke(context.Context, *model.MailGrant) error {
	return ErrProviderDisabled
}

var _ Provider = Disabled{}
