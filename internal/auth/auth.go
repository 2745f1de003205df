package auth

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"

	"contact-relay-go/internal/config"
	"contact-relay-go/internal/models"
)

// CredentialStore persists the exchanged credential set.
type CredentialStore interface {
	ReplaceCredential(ctx context.Context, cred *models.OAuthCredential) error
}

// Flow drives the one-time, operator-driven Gmail authorization:
// build the consent URL, then exchange the returned code for tokens.
type Flow struct {
	oauth *oauth2.Config
	store CredentialStore
}

// NewFlow creates a new authorization flow
func NewFlow(cfg *config.GoogleConfig, store CredentialStore) *Flow {
	return &Flow{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{gmail.GmailSendScope},
			Endpoint:     google.Endpoint,
		},
		store: store,
	}
}

// AuthURL builds the provider consent URL. Offline access plus a forced
// consent prompt, so a refresh token is issued on every authorization.
func (f *Flow) AuthURL() string {
	return f.oauth.AuthCodeURL("state",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for a credential set and replaces
// any previously stored set with it. Exchange failures are returned to the
// caller, never retried.
func (f *Flow) Exchange(ctx context.Context, code string) (*models.OAuthCredential, error) {
	tok, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	cred := models.CredentialFromToken(tok)
	if err := f.store.ReplaceCredential(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	logrus.Info("Gmail authorization completed, credential stored")
	return cred, nil
}
