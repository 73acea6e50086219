package cli

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/vaultdrive/vaultdrive/internal/auth"
	"github.com/vaultdrive/vaultdrive/internal/config"
	"github.com/vaultdrive/vaultdrive/internal/drive"
	"github.com/vaultdrive/vaultdrive/internal/sync"
	"github.com/vaultdrive/vaultdrive/internal/types"
	"github.com/vaultdrive/vaultdrive/internal/vault"
)

// workspace bundles everything a sync command needs.
type workspace struct {
	vault        *vault.Vault
	settings     *config.Settings
	settingsPath string
	engine       *sync.Engine
}

// openWorkspace wires the vault, settings, authenticated Drive client,
// and sync engine. On first use the remote root container is located or
// created and its id persisted.
func openWorkspace(ctx context.Context) (*workspace, error) {
	v, err := vault.Open(flagVault)
	if err != nil {
		return nil, err
	}
	settingsPath := config.SettingsPath(v.Root())
	settings, err := config.Load(settingsPath)
	if err != nil {
		return nil, err
	}

	manager := auth.NewManager()
	service, httpClient, err := manager.Service(ctx)
	if err != nil {
		return nil, err
	}
	client := drive.NewClient(service, httpClient, drive.ClientConfig{
		PageSize: settings.PageSize,
		Logger:   logger,
	})

	if settings.RootFolderID == "" {
		reqCtx := drive.NewRequestContext("fetching", types.RequestTypeSearch)
		rootID, err := client.FindRoot(ctx, reqCtx, filepath.Base(v.Root()))
		if err != nil {
			return nil, fmt.Errorf("failed to locate sync root: %w", err)
		}
		settings.RootFolderID = rootID
		if err := settings.Save(settingsPath); err != nil {
			return nil, err
		}
	}

	engine := sync.New(client, v, settings, settingsPath, sync.Options{
		Logger:   logger,
		Progress: printProgress,
		Notify:   printNotice,
	})
	return &workspace{
		vault:        v,
		settings:     settings,
		settingsPath: settingsPath,
		engine:       engine,
	}, nil
}

func printProgress(percent int, message string) {
	if flagQuiet {
		return
	}
	fmt.Printf("[%3d%%] %s\n", percent, message)
}

func printNotice(message string) {
	fmt.Println(message)
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
