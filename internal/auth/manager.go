package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/vaultdrive/vaultdrive/internal/utils"
)

// BundledClientID and BundledClientSecret can be set at build time via
// -ldflags. If unset, a custom OAuth client is required.
var (
	BundledClientID     string
	BundledClientSecret string
)

// Manager owns the OAuth configuration and token storage.
type Manager struct {
	store  TokenStore
	config *oauth2.Config
}

// NewManager creates a manager storing tokens under the default config
// directory (or the keyring when available).
func NewManager() *Manager {
	return &Manager{store: NewStore(ConfigDir())}
}

// ConfigDir is where vaultdrive keeps host-level state (tokens, logs).
// Distinct from the per-vault settings directory.
func ConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "vaultdrive")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "vaultdrive")
}

// SetClient configures the OAuth client. Empty arguments fall back to
// the bundled client when one was compiled in.
func (m *Manager) SetClient(clientID, clientSecret string) error {
	if clientID == "" {
		clientID, clientSecret = BundledClientID, BundledClientSecret
	}
	if clientID == "" {
		return fmt.Errorf("no OAuth client configured; pass --client-id or use a build with a bundled client")
	}
	m.config = &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{utils.ScopeFile},
		Endpoint:     google.Endpoint,
	}
	return nil
}

// HasToken reports whether a stored token exists.
func (m *Manager) HasToken() bool {
	_, err := m.store.Load()
	return err == nil
}

// Logout removes the stored token.
func (m *Manager) Logout() error {
	return m.store.Delete()
}

// StoreName names the active token storage backend.
func (m *Manager) StoreName() string {
	return m.store.Name()
}

// tokenSource wraps the refreshing source so refreshed tokens are
// persisted; otherwise the refresh token dies with the process on
// providers that rotate it.
type persistingSource struct {
	inner oauth2.TokenSource
	store TokenStore
	last  string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	token, err := s.inner.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if saveErr := s.store.Save(token); saveErr != nil {
			return nil, fmt.Errorf("failed to persist refreshed token: %w", saveErr)
		}
	}
	return token, nil
}

// Service builds an authenticated Drive service plus the HTTP client it
// rides on (the batch endpoint needs the raw client). Fails with
// AUTH_REQUIRED when no token is stored.
func (m *Manager) Service(ctx context.Context) (*drive.Service, *http.Client, error) {
	if m.config == nil {
		if err := m.SetClient("", ""); err != nil {
			return nil, nil, err
		}
	}
	token, err := m.store.Load()
	if err != nil {
		return nil, nil, utils.NewCLIError(utils.ErrCodeAuthRequired, "not authenticated; run `vaultdrive auth login`").Build()
	}

	source := &persistingSource{
		inner: m.config.TokenSource(ctx, token),
		store: m.store,
		last:  token.AccessToken,
	}
	httpClient := oauth2.NewClient(ctx, source)

	service, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build Drive service: %w", err)
	}
	return service, httpClient, nil
}
