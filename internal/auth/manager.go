// Package auth exchanges a long-lived refresh token for a short-lived access
// token against an OAuth2 identity provider.
package auth

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/errors"
)

// Credential is the result of one token exchange.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	// Rotated is set when the provider issued a refresh token different
	// from the one that was presented.
	Rotated bool
}

// Options configure a Manager.
type Options struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
	Scopes       []string
	Timeout      time.Duration
	// OnRotate is called with the new refresh token when the provider rotates it.
	OnRotate func(refreshToken string) error
}

// Manager performs the non-interactive refresh-token grant.
type Manager struct {
	opts   Options
	client *http.Client
}

func NewManager(opts Options) *Manager {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Manager{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// Refresh exchanges the stored refresh token for an access token.
func (m *Manager) Refresh(ctx context.Context) (*Credential, error) {
	if m.opts.RefreshToken == "" {
		return nil, errors.NewConfiguration([]string{"identity.refresh_token"})
	}

	// clientcredentials lets grant_type be overridden, which gives us a
	// refresh-token grant that still sends client credentials and scopes in
	// the form body, the way the Microsoft identity platform expects them.
	conf := &clientcredentials.Config{
		ClientID:     m.opts.ClientID,
		ClientSecret: m.opts.ClientSecret,
		TokenURL:     m.opts.TokenURL,
		Scopes:       m.opts.Scopes,
		EndpointParams: url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {m.opts.RefreshToken},
		},
		AuthStyle: oauth2.AuthStyleInParams,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client)

	slog.Info("requesting access token", "scopes", m.opts.Scopes)
	tok, err := conf.Token(ctx)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if stderrors.As(err, &rErr) && rErr.ErrorCode != "" {
			return nil, errors.NewProviderAuth(rErr.ErrorCode, rErr.ErrorDescription, err)
		}
		return nil, errors.NewAuth("token request failed", err)
	}

	cred := &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: m.opts.RefreshToken,
		Expiry:       tok.Expiry,
	}

	if tok.RefreshToken != "" && tok.RefreshToken != m.opts.RefreshToken {
		cred.RefreshToken = tok.RefreshToken
		cred.Rotated = true
		m.rotate(tok.RefreshToken)
	}

	slog.Info("access token obtained", "expiry", cred.Expiry, "rotated", cred.Rotated)
	return cred, nil
}

// rotate hands the new refresh token to the OnRotate hook. The current run
// already holds a valid access token, so a failed save is reported but not
// fatal; the next run will fail with invalid_grant if nobody acts on it.
func (m *Manager) rotate(refreshToken string) {
	m.opts.RefreshToken = refreshToken

	if m.opts.OnRotate == nil {
		slog.Warn("refresh token rotated but no store is configured; update REFRESH_TOKEN before the next run")
		return
	}
	if err := m.opts.OnRotate(refreshToken); err != nil {
		slog.Error("refresh token rotated but could not be persisted; the next run will fail until REFRESH_TOKEN is updated", "err", err)
		return
	}
	slog.Warn("refresh token rotated by the identity provider and persisted for the next run")
}
