package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

const keyringService = "vaultdrive"

// TokenStore persists OAuth tokens between runs.
type TokenStore interface {
	Save(token *oauth2.Token) error
	Load() (*oauth2.Token, error)
	Delete() error
	Name() string
}

// NewStore returns the system keyring when it is usable, otherwise a
// file store under configDir.
func NewStore(configDir string) TokenStore {
	if keyringAvailable() {
		return &KeyringStore{account: "token"}
	}
	return &FileStore{path: filepath.Join(configDir, "token.json")}
}

func keyringAvailable() bool {
	if err := keyring.Set(keyringService, "healthcheck", "ok"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, "healthcheck")
	return true
}

// KeyringStore keeps the token in the system keyring.
type KeyringStore struct {
	account string
}

func (s *KeyringStore) Save(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return keyring.Set(keyringService, s.account, string(data))
}

func (s *KeyringStore) Load() (*oauth2.Token, error) {
	data, err := keyring.Get(keyringService, s.account)
	if err != nil {
		return nil, fmt.Errorf("no stored token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("stored token is corrupt: %w", err)
	}
	return &token, nil
}

func (s *KeyringStore) Delete() error {
	err := keyring.Delete(keyringService, s.account)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}

func (s *KeyringStore) Name() string { return "system-keyring" }

// FileStore keeps the token in a mode-0600 JSON file. Used where no
// keyring is available (headless hosts, containers).
type FileStore struct {
	path string
}

func (s *FileStore) Save(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("no stored token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("stored token is corrupt: %w", err)
	}
	return &token, nil
}

func (s *FileStore) Delete() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileStore) Name() string { return "file" }
