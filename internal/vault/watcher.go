package vault

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/vaultdrive/vaultdrive/internal/logging"
	"github.com/vaultdrive/vaultdrive/internal/types"
	"github.com/vaultdrive/vaultdrive/internal/utils"
)

// Recorder receives local change operations as they happen. The sync
// engine's operation log satisfies this.
type Recorder interface {
	Mark(path string, op types.Op)
}

// Watcher records vault changes into a Recorder so an explicit push can
// apply them later. It never talks to the remote.
type Watcher struct {
	vault    *Vault
	recorder Recorder
	fsw      *fsnotify.Watcher
	logger   logging.Logger
}

// NewWatcher creates a watcher over the whole vault.
func NewWatcher(v *Vault, recorder Recorder, logger logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		vault:    v,
		recorder: recorder,
		fsw:      fsw,
		logger:   logger,
	}
	if err := w.addRecursive(v.Root()); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	if filepath.Base(dir) == utils.SettingsDirName {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	folders, err := w.vaultFoldersUnder(dir)
	if err != nil {
		return err
	}
	for _, folder := range folders {
		if err := w.fsw.Add(folder); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) vaultFoldersUnder(dir string) ([]string, error) {
	rel, err := filepath.Rel(w.vault.Root(), dir)
	if err != nil {
		return nil, err
	}
	if rel == "." {
		rel = ""
	}
	relFolders, err := w.vault.List(KindFolder, filepath.ToSlash(rel))
	if err != nil {
		return nil, err
	}
	abs := make([]string, 0, len(relFolders))
	for _, f := range relFolders {
		abs = append(abs, filepath.Join(w.vault.Root(), filepath.FromSlash(f)))
	}
	return abs, nil
}

// Run consumes filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logging.F("error", err.Error()))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.vault.Root(), event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || w.ignored(rel) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		w.recorder.Mark(rel, types.OpCreate)
		if w.vault.IsDir(rel) {
			// New folders need their own watch, and any contents that
			// landed before the watch was added need recording.
			if err := w.fsw.Add(event.Name); err != nil {
				w.logger.Warn("failed to watch new folder", logging.F("path", rel))
			}
			w.recordSubtree(rel)
		}
		w.logger.Debug("recorded create", logging.F("path", rel))
	case event.Has(fsnotify.Write):
		w.recorder.Mark(rel, types.OpModify)
		w.logger.Debug("recorded modify", logging.F("path", rel))
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.recorder.Mark(rel, types.OpDelete)
		w.logger.Debug("recorded delete", logging.F("path", rel))
	}
}

func (w *Watcher) recordSubtree(rel string) {
	folders, err := w.vault.List(KindFolder, rel)
	if err == nil {
		for _, f := range folders {
			w.recorder.Mark(f, types.OpCreate)
			_ = w.fsw.Add(filepath.Join(w.vault.Root(), filepath.FromSlash(f)))
		}
	}
	files, err := w.vault.List(KindFile, rel)
	if err == nil {
		for _, f := range files {
			w.recorder.Mark(f, types.OpCreate)
		}
	}
}

func (w *Watcher) ignored(rel string) bool {
	return rel == utils.SettingsDirName || strings.HasPrefix(rel, utils.SettingsDirName+"/")
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
