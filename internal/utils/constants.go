package utils

// OAuth scope: per-file access to objects created by this app.
const ScopeFile = "https://www.googleapis.com/auth/drive.file"

// Drive batch endpoint for grouped deletes.
const BatchEndpoint = "https://www.googleapis.com/batch/drive/v3"

// Listing and batching defaults.
const (
	// DefaultPageSize is large to minimize round trips; callers never
	// observe pagination.
	DefaultPageSize = 1000

	// DefaultConcurrency bounds in-flight remote calls per wave.
	DefaultConcurrency = 5
)

// Retry policy for remote calls.
const (
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
	MaxRetryDelayMs     = 30000
)

// SettingsDirName is the vault-relative directory holding the engine's
// own state. SettingsFileName is itself one of the synced config files.
const (
	SettingsDirName  = ".vaultdrive"
	SettingsFileName = "settings.json"
)
