package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"contact-relay-go/internal/config"
	"contact-relay-go/internal/models"
)

// ErrNotAuthorized is returned when no credential set has been stored yet.
// The operator has to complete the /auth flow before mail can be sent.
var ErrNotAuthorized = errors.New("no stored credential: complete the authorization flow first")

// CredentialStore reads and replaces the single stored credential set.
type CredentialStore interface {
	GetCredential(ctx context.Context) (*models.OAuthCredential, error)
	ReplaceCredential(ctx context.Context, cred *models.OAuthCredential) error
}

// Dispatcher sends HTML mail through the Gmail API on behalf of the
// authorized user. The credential set is loaded fresh from the store on
// every call; there is no shared mutable client state between requests.
type Dispatcher struct {
	oauth *oauth2.Config
	store CredentialStore
	opts  []option.ClientOption // extra Gmail client options, set by tests
}

// NewDispatcher creates a new mail dispatcher
func NewDispatcher(cfg *config.GoogleConfig, store CredentialStore) *Dispatcher {
	return &Dispatcher{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{gmail.GmailSendScope},
			Endpoint:     google.Endpoint,
		},
		store: store,
	}
}

// Send relays exactly one HTML email to the given recipient through the
// Gmail API. Failures are terminal: there is no retry and no idempotency
// key, so calling twice sends twice.
func (d *Dispatcher) Send(ctx context.Context, to, subject, htmlBody string) error {
	cred, err := d.store.GetCredential(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		return ErrNotAuthorized
	}

	stored := cred.Token()
	tokenSource := d.oauth.TokenSource(ctx, stored)

	opts := append([]option.ClientOption{option.WithTokenSource(tokenSource)}, d.opts...)
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create Gmail service: %w", err)
	}

	raw := EncodeRaw(BuildMessage(to, subject, htmlBody))
	if _, err := service.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Do(); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	logrus.Infof("Relayed submission email to %s", to)
	d.persistRefreshedToken(ctx, cred, stored, tokenSource)
	return nil
}

// persistRefreshedToken writes back an access token the token source
// refreshed during the send, so the stored credential set does not go stale.
func (d *Dispatcher) persistRefreshedToken(ctx context.Context, cred *models.OAuthCredential, stored *oauth2.Token, ts oauth2.TokenSource) {
	latest, err := ts.Token()
	if err != nil || latest.AccessToken == stored.AccessToken {
		return
	}

	updated := models.CredentialFromToken(latest)
	if updated.RefreshToken == "" {
		// The provider only reissues a refresh token on consent.
		updated.RefreshToken = cred.RefreshToken
	}
	if updated.Scope == "" {
		updated.Scope = cred.Scope
	}

	if err := d.store.ReplaceCredential(ctx, updated); err != nil {
		logrus.Warnf("Failed to persist refreshed access token: %v", err)
		return
	}
	logrus.Info("Persisted refreshed access token")
}

// BuildMessage assembles the raw RFC 2822 message for one relayed submission.
func BuildMessage(to, subject, htmlBody string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return b.String()
}

// EncodeRaw encodes a message the way the Gmail API expects raw messages:
// URL-safe base64 of the UTF-8 bytes with the trailing padding stripped.
func EncodeRaw(msg string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(msg))
}

// SubmissionBody renders the HTML body for one contact-form submission.
// User-supplied fields are escaped before being embedded.
func SubmissionBody(name, email, message string) string {
	return fmt.Sprintf(
		"<h2>New Contact Form Submission</h2>\r\n"+
			"<p><strong>Name:</strong> %s</p>\r\n"+
			"<p><strong>Email:</strong> %s</p>\r\n"+
			"<p><strong>Message:</strong> %s</p>",
		html.EscapeString(name),
		html.EscapeString(email),
		html.EscapeString(message),
	)
}
