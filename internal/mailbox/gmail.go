package mailbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/mailledger/backend/internal/model"
)

const (
	gmailUser       = "me"
	googleRevokeURL = "https://oauth2.googleapis.com/revoke"
)

// GmailProvider implements Provider against the Gmail API with an OAuth
// client configured for the read-only scope.
type GmailProvider struct {
	config *oauth2.Config
}

// NewGmailProvider builds a provider from Google client credentials JSON.
// A non-empty redirectURL overrides the one in the credentials file.
func NewGmailProvider(credentialsJSON []byte, redirectURL string) (*GmailProvider, error) {
	cfg, err := google.ConfigFromJSON(credentialsJSON, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse client credentials: %w", err)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return &GmailProvider{config: cfg}, nil
}

func (p *GmailProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *GmailProvider) Exchange(ctx context.Context, code string) ([]byte, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return nil, fmt.Errorf("serialize token: %w", err)
	}
	return raw, nil
}

// service builds a per-grant Gmail client. Tokens refreshed by the oauth2
// transport stay in memory only; the stored grant is the source of truth for
// the refresh token.
func (p *GmailProvider) service(ctx context.Context, grant *model.MailGrant) (*gmail.Service, error) {
	tok := &oauth2.Token{}
	if err := json.Unmarshal(grant.Token, tok); err != nil {
		return nil, fmt.Errorf("decode stored token: %w", err)
	}
	client := p.config.Client(ctx, tok)
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return srv, nil
}

func (p *GmailProvider) List(ctx context.Context, grant *model.MailGrant, after time.Time, max int64) ([]string, error) {
	srv, err := p.service(ctx, grant)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("in:inbox after:%d", after.Unix())
	resp, err := srv.Users.Messages.List(gmailUser).
		Q(query).
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, translateErr("list messages", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

func (p *GmailProvider) Fetch(ctx context.Context, grant *model.MailGrant, id string) (*model.RawMessage, error) {
	srv, err := p.service(ctx, grant)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, translateErr("get message", err)
	}
	return rawMessage(msg), nil
}

// rawMessage maps a Gmail message onto the transport-neutral form. Messages
// without an internal timestamp (InternalDate zero, not a 1970 epoch value)
// fall back to the Date header.
func rawMessage(msg *gmail.Message) *model.RawMessage {
	raw := &model.RawMessage{ID: msg.Id}
	if msg.InternalDate != 0 {
		raw.ArrivedAt = time.UnixMilli(msg.InternalDate).UTC()
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "Subject":
				raw.Subject = h.Value
			case "From":
				raw.Sender = h.Value
			case "Date":
				if raw.ArrivedAt.IsZero() {
					raw.ArrivedAt = parseHeaderDate(h.Value)
				}
			}
		}
		raw.Body = plainTextBody(msg.Payload)
	}
	return raw
}

// Revoke invalidates the token with Google. The refresh token is preferred;
// revoking either member of the pair invalidates both.
func (p *GmailProvider) Revoke(ctx context.Context, grant *model.MailGrant) error {
	tok := &oauth2.Token{}
	if err := json.Unmarshal(grant.Token, tok); err != nil {
		return fmt.Errorf("decode stored token: %w", err)
	}
	value := tok.RefreshToken
	if value == "" {
		value = tok.AccessToken
	}

	form := url.Values{"token": {value}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleRevokeURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()

	// Google returns 400 for already-revoked tokens; treat that as success
	// since the goal state holds.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("revoke token: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// translateErr maps provider auth failures onto ErrAuthExpired and wraps
// everything else as-is.
func translateErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
		return fmt.Errorf("%s: %w", op, ErrAuthExpired)
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%s: %w", op, ErrAuthExpired)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// plainTextBody walks MIME parts depth-first for the first decodable
// text/plain payload.
func plainTextBody(payload *gmail.MessagePart) string {
	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, part := range payload.Parts {
		mime := strings.ToLower(part.MimeType)
		if strings.HasPrefix(mime, "text/") || strings.HasPrefix(mime, "multipart/") {
			if body := plainTextBody(part); body != "" {
				return body
			}
		}
	}
	return ""
}

var headerDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

func parseHeaderDate(value string) time.Time {
	for _, format := range headerDateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
