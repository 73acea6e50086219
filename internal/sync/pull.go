package sync

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vaultdrive/vaultdrive/internal/drive"
	"github.com/vaultdrive/vaultdrive/internal/logging"
	"github.com/vaultdrive/vaultdrive/internal/types"
	"github.com/vaultdrive/vaultdrive/internal/utils"
	"github.com/vaultdrive/vaultdrive/internal/vault"
)

// Pull runs a standalone full reconcile of remote state into the vault:
// new and changed objects are written locally, and local files whose
// remote counterpart is gone are removed. Returns whether anything
// changed locally.
func (e *Engine) Pull(ctx context.Context) (bool, error) {
	if !e.mu.TryLock() {
		return false, ErrSyncInProgress
	}
	defer e.mu.Unlock()

	trace := uuid.New().String()
	logger := e.logger.WithTraceID(trace)

	changed, downloadFailures, err := e.pull(ctx, trace, logger, false)
	if err != nil {
		e.notify("Sync error while fetching Drive files.")
		return changed, err
	}
	if saveErr := e.log.Flush(e.settings, e.settingsPath); saveErr != nil {
		return changed, saveErr
	}
	if downloadFailures > 0 {
		e.notify("Sync error while fetching Drive files.")
		return changed, ErrPullIncomplete
	}
	return changed, nil
}

// ErrPullIncomplete reports that some objects could not be downloaded;
// the rest of the pull was applied.
var ErrPullIncomplete = &types.CLIError{
	Code:    utils.ErrCodeNetworkError,
	Message: "some Drive files could not be downloaded",
	Phase:   phaseFetching,
}

// pull reconciles remote changes into the local tree. In silent mode
// (the pull-before-push step) the query is limited to objects modified
// since the last successful sync; in full mode everything is listed and
// local files with no surviving remote are removed.
//
// Local operations made stale by a pulled object are aborted: the log
// entry is dropped and the remote content wins. Returns whether the
// local tree changed, plus a count of failed downloads (per-object
// failures never abort siblings).
func (e *Engine) pull(ctx context.Context, trace string, logger logging.Logger, silent bool) (bool, int, error) {
	reqCtx := &types.RequestContext{TraceID: trace, Phase: phaseFetching, RequestType: types.RequestTypeSearch}
	queryStart := now().UTC()

	var matches []drive.Match
	if silent && e.settings.LastSyncTime != "" {
		if since, err := time.Parse(time.RFC3339, e.settings.LastSyncTime); err == nil {
			matches = []drive.Match{{ModifiedAfter: since}}
		}
	}

	objects, err := e.remote.Search(ctx, reqCtx, matches, nil)
	if err != nil {
		return false, 0, err
	}

	// Folders shallow-to-deep before files, so every file write has its
	// folder indexed and on disk.
	sort.SliceStable(objects, func(i, j int) bool {
		fi, fj := objects[i].IsFolder(), objects[j].IsFolder()
		if fi != fj {
			return fi
		}
		return vault.Depth(objects[i].Path) < vault.Depth(objects[j].Path)
	})

	changed := false
	seen := make(map[string]bool, len(objects))

	type downloadJob struct {
		id       string
		path     string
		modified string
	}
	var jobs []downloadJob

	for _, obj := range objects {
		if obj.Tag == types.TagConfig {
			// Configuration objects are owned by the config sync phase.
			seen[obj.ID] = true
			continue
		}
		if obj.Path == "" {
			logger.Warn("remote object without path property", logging.F("id", obj.ID), logging.F("name", obj.Name))
			continue
		}
		seen[obj.ID] = true

		// A remote rename shows up as the same id under a new path.
		if oldPath, ok := e.index.PathFor(obj.ID); ok && oldPath != obj.Path {
			if err := e.vault.Remove(oldPath); err == nil {
				e.log.Clear(oldPath)
				changed = true
			}
		}

		if obj.IsFolder() {
			if !e.vault.IsDir(obj.Path) {
				if err := e.vault.Mkdir(obj.Path); err != nil {
					logger.Error("failed to create pulled folder", logging.F("path", obj.Path), logging.F("error", err.Error()))
					continue
				}
				changed = true
			}
			e.index.Record(obj.ID, obj.Path)
			continue
		}

		if e.shouldDownload(obj) {
			jobs = append(jobs, downloadJob{id: obj.ID, path: obj.Path, modified: obj.ModifiedTime})
		}
		e.index.Record(obj.ID, obj.Path)
	}

	failures := 0
	if len(jobs) > 0 {
		actions := make([]func(context.Context) ([]byte, error), len(jobs))
		for i, job := range jobs {
			actions[i] = func(ctx context.Context) ([]byte, error) {
				return e.remote.GetContent(ctx, reqCtx, job.id)
			}
		}
		results := drive.RunWaves(ctx, e.settings.Concurrency, actions)
		for i, r := range results {
			if r.Err != nil {
				logger.Error("download failed", logging.F("path", jobs[i].path), logging.F("error", r.Err.Error()))
				failures++
				continue
			}
			if err := e.vault.WriteBinary(jobs[i].path, r.Value); err != nil {
				logger.Error("failed to write pulled file", logging.F("path", jobs[i].path), logging.F("error", err.Error()))
				failures++
				continue
			}
			// The pulled content supersedes any pending local edit.
			e.log.Clear(jobs[i].path)
			if jobs[i].modified != "" {
				e.settings.RemoteModified[jobs[i].id] = jobs[i].modified
			}
			changed = true
		}
	}

	if !silent {
		for _, id := range e.index.IDs() {
			if seen[id] {
				continue
			}
			path, ok := e.index.PathFor(id)
			if !ok {
				continue
			}
			if err := e.vault.Remove(path); err != nil {
				logger.Error("failed to remove vanished file", logging.F("path", path), logging.F("error", err.Error()))
				continue
			}
			e.forgetRemote(id)
			e.log.Clear(path)
			changed = true
			logger.Info("removed local file deleted remotely", logging.F("path", path))
		}
	}

	if failures == 0 {
		e.settings.LastSyncTime = queryStart.Format(time.RFC3339)
	}
	logger.Info("pull complete",
		logging.F("objects", len(objects)),
		logging.F("downloads", len(jobs)),
		logging.F("failures", failures),
		logging.F("changed", changed),
	)
	return changed, failures, nil
}

// shouldDownload decides whether a remote file's content must be
// fetched. Objects the engine itself wrote or previously downloaded
// carry a recorded modified time; anything at or before it is the
// engine's own write echoed back, not a foreign change. Objects of
// unknown provenance are always fetched.
func (e *Engine) shouldDownload(obj types.DriveObject) bool {
	if !e.vault.Exists(obj.Path) {
		return true
	}
	recorded, ok := e.settings.RemoteModified[obj.ID]
	if !ok {
		return true
	}
	known, err := time.Parse(time.RFC3339, recorded)
	if err != nil {
		return true
	}
	remote, err := time.Parse(time.RFC3339, obj.ModifiedTime)
	if err != nil {
		return true
	}
	return remote.After(known)
}
