package sync

import (
	"sync"

	"github.com/vaultdrive/vaultdrive/internal/config"
	"github.com/vaultdrive/vaultdrive/internal/types"
)

// OpLog is the durable record of pending local changes keyed by
// vault-relative path: at most one entry per path. It mutates its
// backing map in place so the settings document persists it naturally.
//
// The watcher appends from its own goroutine while the engine consumes,
// hence the lock.
type OpLog struct {
	mu    sync.RWMutex
	ops   map[string]types.Op
	dirty bool
}

// NewOpLog wraps a backing map (usually Settings.Operations).
func NewOpLog(backing map[string]types.Op) *OpLog {
	if backing == nil {
		backing = make(map[string]types.Op)
	}
	return &OpLog{ops: backing}
}

// Mark records an operation for a path, collapsing it against any
// pending entry:
//
//   - create then delete cancels out: the remote never saw the path
//   - create then modify stays create: the first push still creates it
//   - delete then create becomes modify: the remote object still
//     exists, only its content is replaced
//
// Everything else is a plain overwrite.
func (l *OpLog) Mark(path string, op types.Op) {
	if path == "" || !op.Valid() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.dirty = true
	existing, ok := l.ops[path]
	if !ok {
		l.ops[path] = op
		return
	}
	switch {
	case existing == types.OpCreate && op == types.OpDelete:
		delete(l.ops, path)
	case existing == types.OpCreate && op == types.OpModify:
		// keep create
	case existing == types.OpDelete && op == types.OpCreate:
		l.ops[path] = types.OpModify
	default:
		l.ops[path] = op
	}
}

// Clear removes a path's entry after its remote mutation is confirmed.
func (l *OpLog) Clear(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.ops[path]; ok {
		delete(l.ops, path)
		l.dirty = true
	}
}

// Get returns the pending operation for a path.
func (l *OpLog) Get(path string) (types.Op, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	op, ok := l.ops[path]
	return op, ok
}

// Snapshot copies the log for a push cycle to iterate over.
func (l *OpLog) Snapshot() map[string]types.Op {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snapshot := make(map[string]types.Op, len(l.ops))
	for path, op := range l.ops {
		snapshot[path] = op
	}
	return snapshot
}

// Len returns the number of pending entries.
func (l *OpLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ops)
}

// Dirty reports whether the log changed since the last Flush. A Mark
// that collapses an entry away counts: the persisted map is stale even
// though the entry count is back where it was.
func (l *OpLog) Dirty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dirty
}

// Flush persists the settings document that backs this log. The log's
// lock is held across the serialization so a concurrent Mark cannot
// mutate the backing map mid-marshal.
func (l *OpLog) Flush(settings *config.Settings, path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := settings.Save(path); err != nil {
		return err
	}
	l.dirty = false
	return nil
}
