package vault

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vaultdrive/vaultdrive/internal/types"
)

type recordingLog struct {
	mu  sync.Mutex
	ops map[string]types.Op
}

func (r *recordingLog) Mark(path string, op types.Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[path] = op
}

func (r *recordingLog) get(path string) (types.Op, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.ops[path]
	return op, ok
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcher_RecordsOperations(t *testing.T) {
	root := t.TempDir()
	v, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	rec := &recordingLog{ops: make(map[string]types.Op)}

	w, err := NewWatcher(v, rec, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	if err := os.WriteFile(filepath.Join(root, "a.md"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		op, ok := rec.get("a.md")
		return ok && (op == types.OpCreate || op == types.OpModify)
	})

	if err := os.Remove(filepath.Join(root, "a.md")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		op, _ := rec.get("a.md")
		return op == types.OpDelete
	})

	cancel()
	<-done
}

func TestWatcher_IgnoresSettingsDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".vaultdrive"), 0o700); err != nil {
		t.Fatal(err)
	}
	v, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	rec := &recordingLog{ops: make(map[string]types.Op)}

	w, err := NewWatcher(v, rec, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	if err := os.WriteFile(filepath.Join(root, "real.md"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		_, ok := rec.get("real.md")
		return ok
	})

	if _, ok := rec.get(".vaultdrive"); ok {
		t.Fatal("settings dir events must be ignored")
	}
}
