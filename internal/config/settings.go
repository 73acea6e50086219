package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vaultdrive/vaultdrive/internal/types"
	"github.com/vaultdrive/vaultdrive/internal/utils"
)

// Settings is the engine's durable state. It is serialized as
// .vaultdrive/settings.json inside the vault and is itself uploaded as
// one of the synced configuration files, so the sync log's storage is
// recursively a file the engine synchronizes.
type Settings struct {
	// Operations maps a vault-relative path to its pending operation.
	// At most one entry per path.
	Operations map[string]types.Op `json:"operations"`

	// DriveIDToPath maps remote object ids to vault-relative paths.
	// The inverse is derived, never persisted.
	DriveIDToPath map[string]string `json:"driveIdToPath"`

	// RootFolderID is the id of the remote sync root container.
	RootFolderID string `json:"rootFolderId"`

	// ConfigPaths are vault-relative directories whose contents are
	// synced as configuration objects in addition to the vault tree.
	ConfigPaths []string `json:"configPaths"`

	// RemoteModified maps remote object ids to the modifiedTime the
	// engine last wrote or downloaded for them. Pulls skip objects whose
	// remote time has not moved past this, so the engine's own uploads
	// are not echoed back as downloads.
	RemoteModified map[string]string `json:"remoteModified"`

	// LastSyncTime is the RFC 3339 instant of the last successful sync.
	LastSyncTime string `json:"lastSyncTime"`

	Concurrency int   `json:"concurrency"`
	PageSize    int64 `json:"pageSize"`
}

// DefaultSettings returns a settings document with empty state and
// default tuning values.
func DefaultSettings() *Settings {
	return &Settings{
		Operations:     make(map[string]types.Op),
		DriveIDToPath:  make(map[string]string),
		RemoteModified: make(map[string]string),
		Concurrency:    utils.DefaultConcurrency,
		PageSize:       utils.DefaultPageSize,
	}
}

// SettingsPath returns the settings file location for a vault root.
func SettingsPath(vaultRoot string) string {
	return filepath.Join(vaultRoot, utils.SettingsDirName, utils.SettingsFileName)
}

// Load reads settings from path. A missing file yields defaults, not an
// error, so first runs need no setup step.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if settings.Operations == nil {
		settings.Operations = make(map[string]types.Op)
	}
	if settings.DriveIDToPath == nil {
		settings.DriveIDToPath = make(map[string]string)
	}
	if settings.RemoteModified == nil {
		settings.RemoteModified = make(map[string]string)
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = utils.DefaultConcurrency
	}
	if settings.PageSize <= 0 {
		settings.PageSize = utils.DefaultPageSize
	}
	return settings, nil
}

// Save writes settings atomically. Callers flush after a mutation
// batch, not per entry.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize settings: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
