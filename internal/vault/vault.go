package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vaultdrive/vaultdrive/internal/utils"
)

// Kind selects files or folders in listings.
type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

// Vault is the local file tree being synchronized. All paths crossing
// its boundary are vault-relative and slash-separated.
type Vault struct {
	root string
}

// Open validates the root directory and returns a Vault.
func Open(root string) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", abs)
	}
	return &Vault{root: abs}, nil
}

// Root returns the absolute vault root.
func (v *Vault) Root() string {
	return v.root
}

func (v *Vault) abs(rel string) string {
	return filepath.Join(v.root, filepath.FromSlash(rel))
}

// List returns vault-relative paths of the given kind at or under
// "under" ("" for the whole vault). The engine's own state directory is
// skipped; it is synced through the configuration phase instead.
func (v *Vault) List(kind Kind, under string) ([]string, error) {
	start := v.abs(under)
	// Listing inside the state directory itself is allowed; the config
	// sync phase walks it explicitly.
	skipSettings := under != utils.SettingsDirName && !strings.HasPrefix(under, utils.SettingsDirName+"/")
	var paths []string
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(v.root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		// The walk root itself is not part of the listing.
		if rel == "." || p == start {
			return nil
		}
		if d.IsDir() && rel == utils.SettingsDirName && skipSettings {
			return filepath.SkipDir
		}
		if d.IsDir() == (kind == KindFolder) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// ReadBinary reads a file's content.
func (v *Vault) ReadBinary(rel string) ([]byte, error) {
	return os.ReadFile(v.abs(rel))
}

// WriteBinary writes a file, creating parent folders as needed.
func (v *Vault) WriteBinary(rel string, data []byte) error {
	target := v.abs(rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o600)
}

// Mkdir creates a folder (and parents).
func (v *Vault) Mkdir(rel string) error {
	return os.MkdirAll(v.abs(rel), 0o700)
}

// Remove deletes a file or a whole folder subtree. Missing targets are
// not an error; the deletion already happened.
func (v *Vault) Remove(rel string) error {
	err := os.RemoveAll(v.abs(rel))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether the path exists.
func (v *Vault) Exists(rel string) bool {
	_, err := os.Stat(v.abs(rel))
	return err == nil
}

// IsDir reports whether the path exists and is a folder.
func (v *Vault) IsDir(rel string) bool {
	info, err := os.Stat(v.abs(rel))
	return err == nil && info.IsDir()
}

// ModTime returns a file's modification time.
func (v *Vault) ModTime(rel string) (time.Time, error) {
	info, err := os.Stat(v.abs(rel))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Depth is the path-segment count of a vault-relative path. It is
// computed purely from the string: "a/b/c" is depth 3 whether or not
// "a" exists yet.
func Depth(rel string) int {
	if rel == "" {
		return 0
	}
	return strings.Count(rel, "/") + 1
}

// Parent returns the vault-relative parent path, "" at the top level.
func Parent(rel string) string {
	idx := strings.LastIndex(rel, "/")
	if idx < 0 {
		return ""
	}
	return rel[:idx]
}

// Base returns the final path segment.
func Base(rel string) string {
	idx := strings.LastIndex(rel, "/")
	if idx < 0 {
		return rel
	}
	return rel[idx+1:]
}
