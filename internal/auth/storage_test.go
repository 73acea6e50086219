package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := &FileStore{path: filepath.Join(t.TempDir(), "token.json")}

	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}
	if err := store.Save(token); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.AccessToken != token.AccessToken || loaded.RefreshToken != token.RefreshToken {
		t.Errorf("loaded token = %+v, want %+v", loaded, token)
	}

	info, err := os.Stat(store.path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := &FileStore{path: filepath.Join(t.TempDir(), "token.json")}
	if _, err := store.Load(); err == nil {
		t.Error("expected error for missing token")
	}
}

func TestFileStoreDelete(t *testing.T) {
	store := &FileStore{path: filepath.Join(t.TempDir(), "token.json")}
	if err := store.Save(&oauth2.Token{AccessToken: "x"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Load(); err == nil {
		t.Error("token survived delete")
	}
	// Deleting again is a no-op.
	if err := store.Delete(); err != nil {
		t.Errorf("second delete failed: %v", err)
	}
}
