package sync

import (
	"context"
	"sort"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/vaultdrive/vaultdrive/internal/config"
	"github.com/vaultdrive/vaultdrive/internal/drive"
	"github.com/vaultdrive/vaultdrive/internal/logging"
	"github.com/vaultdrive/vaultdrive/internal/types"
	"github.com/vaultdrive/vaultdrive/internal/utils"
	"github.com/vaultdrive/vaultdrive/internal/vault"
)

// Phase names surfaced to the user. Every externally observable failure
// produces exactly one notice naming one of these.
const (
	phaseFetching  = "fetching"
	phaseDeleting  = "deleting"
	phaseCreating  = "creating"
	phaseModifying = "modifying"
)

var phaseOrder = []string{phaseFetching, phaseDeleting, phaseCreating, phaseModifying}

// ErrSyncInProgress is returned when the single-flight guard rejects a
// second sync cycle. The request is a no-op, not queued.
var ErrSyncInProgress = utils.NewCLIError(utils.ErrCodeSyncInProgress, "a sync cycle is already running").Build()

// Progress receives percentage-complete milestones.
type Progress func(percent int, message string)

// Notifier receives terminal and failure notices.
type Notifier func(message string)

// Engine reconciles the operation log against the remote tree. It is
// the sole writer of the operation log, the path/id index, and the
// settings document during a cycle.
type Engine struct {
	remote       Remote
	vault        *vault.Vault
	settings     *config.Settings
	settingsPath string
	log          *OpLog
	index        *Index
	logger       logging.Logger
	progress     Progress
	notify       Notifier

	// single-flight guard
	mu stdsync.Mutex
}

// Options configures an Engine.
type Options struct {
	Logger   logging.Logger
	Progress Progress
	Notify   Notifier
}

// New creates an engine over the given settings document. The operation
// log and index mutate the settings maps in place, so saving the
// settings persists both.
func New(remote Remote, v *vault.Vault, settings *config.Settings, settingsPath string, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(int, string) {}
	}
	notify := opts.Notify
	if notify == nil {
		notify = func(string) {}
	}
	return &Engine{
		remote:       remote,
		vault:        v,
		settings:     settings,
		settingsPath: settingsPath,
		log:          NewOpLog(settings.Operations),
		index:        NewIndex(settings.DriveIDToPath),
		logger:       logger,
		progress:     progress,
		notify:       notify,
	}
}

// Log exposes the operation log for the watcher to append to.
func (e *Engine) Log() *OpLog {
	return e.log
}

// Index exposes the path/id index (read-only use outside a cycle).
func (e *Engine) Index() *Index {
	return e.index
}

// plan is one cycle's partitioned operation snapshot.
type plan struct {
	deletes  []string
	folders  []string
	files    []string
	modifies []string
	stale    []string // entries whose local counterpart vanished
}

func buildPlan(snapshot map[string]types.Op, v *vault.Vault) plan {
	var p plan
	for path, op := range snapshot {
		switch op {
		case types.OpDelete:
			p.deletes = append(p.deletes, path)
		case types.OpCreate:
			switch {
			case !v.Exists(path):
				p.stale = append(p.stale, path)
			case v.IsDir(path):
				p.folders = append(p.folders, path)
			default:
				p.files = append(p.files, path)
			}
		case types.OpModify:
			if v.Exists(path) && !v.IsDir(path) {
				p.modifies = append(p.modifies, path)
			} else {
				p.stale = append(p.stale, path)
			}
		}
	}
	sort.Strings(p.deletes)
	sort.Strings(p.folders)
	sort.Strings(p.files)
	sort.Strings(p.modifies)
	return p
}

// phaseSet tracks which phases reported failures during a cycle.
type phaseSet map[string]bool

func (s phaseSet) add(phase string) { s[phase] = true }

// Push runs one full sync cycle: pull check, delete, create, modify,
// config sync, commit. The operation log is cleared per path only after
// the corresponding remote mutation is confirmed.
func (e *Engine) Push(ctx context.Context) error {
	if !e.mu.TryLock() {
		return ErrSyncInProgress
	}
	defer e.mu.Unlock()

	trace := uuid.New().String()
	logger := e.logger.WithTraceID(trace)
	logger.Info("push cycle starting", logging.F("pending", e.log.Len()))

	// Pull before push: detect remote changes that would make local
	// operations stale. The engine proceeds even when objects were
	// pulled, but the user is told afterward to reload local state.
	pulled, downloadFailures, err := e.pull(ctx, trace, logger, true)
	if err != nil {
		e.notify("Sync error while fetching Drive files.")
		return err
	}

	failed := make(phaseSet)
	if downloadFailures > 0 {
		failed.add(phaseFetching)
	}

	p := buildPlan(e.log.Snapshot(), e.vault)
	for _, path := range p.stale {
		logger.Warn("dropping stale operation", logging.F("path", path))
		e.log.Clear(path)
	}

	e.runDeletePhase(ctx, trace, logger, p.deletes, failed)
	e.progress(33, "Deleted removed files from Drive")

	e.runCreatePhase(ctx, trace, logger, p.folders, p.files, failed)
	e.progress(66, "Created new files on Drive")

	e.runModifyPhase(ctx, trace, logger, p.modifies, failed)
	e.progress(90, "Updated modified files on Drive")

	e.syncConfig(ctx, trace, logger, failed)

	// Committing: the settings document already reflects every
	// confirmed mutation (cleared log entries, index updates); entries
	// for failed operations are retained for the next cycle.
	if err := e.log.Flush(e.settings, e.settingsPath); err != nil {
		logger.Error("failed to persist settings", logging.F("error", err.Error()))
		return err
	}
	e.progress(100, "Sync complete")

	if pulled {
		e.notify("Remote changes were pulled during sync; reload local state.")
	}
	if len(failed) == 0 {
		logger.Info("push cycle complete")
		e.notify("Sync complete.")
		return nil
	}
	var firstPhase string
	for _, phase := range phaseOrder {
		if failed[phase] {
			if firstPhase == "" {
				firstPhase = phase
			}
			e.notify("Sync error while " + phase + " Drive files.")
		}
	}
	return utils.NewCLIError(utils.ErrCodeNetworkError, "sync cycle completed with failures").
		WithPhase(firstPhase).
		Build()
}

// runDeletePhase resolves every pending delete and issues one grouped
// remote delete. Resolution is all-or-nothing: if any path cannot be
// mapped to an id the phase aborts before any remote call, because
// deleting with incomplete resolution risks the wrong remote state.
func (e *Engine) runDeletePhase(ctx context.Context, trace string, logger logging.Logger, deletes []string, failed phaseSet) {
	if len(deletes) == 0 {
		return
	}
	reqCtx := &types.RequestContext{TraceID: trace, Phase: phaseDeleting, RequestType: types.RequestTypeDelete}

	ids := make([]string, 0, len(deletes))
	for _, path := range deletes {
		id, ok := e.index.IDFor(path)
		if !ok {
			logger.Error("delete resolution failed", logging.F("path", path))
			failed.add(phaseDeleting)
			return
		}
		ids = append(ids, id)
	}

	if err := e.remote.DeleteBatch(ctx, reqCtx, ids); err != nil {
		logger.Error("grouped delete failed", logging.F("error", err.Error()), logging.F("count", len(ids)))
		failed.add(phaseDeleting)
		return
	}
	for i, path := range deletes {
		e.forgetRemote(ids[i])
		e.log.Clear(path)
	}
	logger.Info("delete phase complete", logging.F("deleted", len(ids)))
}

// runCreatePhase creates folders in depth-ordered batches, then files.
// Batch k holds every folder whose path has exactly k segments, so a
// child's create request can carry the id its parent was just assigned.
// Files have no ordering dependency on each other but always follow the
// folder batches.
func (e *Engine) runCreatePhase(ctx context.Context, trace string, logger logging.Logger, folders, files []string, failed phaseSet) {
	if len(folders) == 0 && len(files) == 0 {
		return
	}
	reqCtx := &types.RequestContext{TraceID: trace, Phase: phaseCreating, RequestType: types.RequestTypeCreate}

	byDepth := make(map[int][]string)
	for _, path := range folders {
		d := vault.Depth(path)
		byDepth[d] = append(byDepth[d], path)
	}
	depths := make([]int, 0, len(byDepth))
	for d := range byDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)

	for _, d := range depths {
		batch := byDepth[d]
		actions := make([]func(context.Context) (*types.DriveObject, error), len(batch))
		for i, path := range batch {
			actions[i] = func(ctx context.Context) (*types.DriveObject, error) {
				parentID, err := e.parentID(path, phaseCreating)
				if err != nil {
					return nil, err
				}
				return e.remote.CreateFolder(ctx, reqCtx, vault.Base(path), parentID, drive.Properties{Path: path})
			}
		}
		results := drive.RunWaves(ctx, e.settings.Concurrency, actions)
		for i, r := range results {
			if r.Err != nil {
				logger.Error("folder create failed", logging.F("path", batch[i]), logging.F("error", r.Err.Error()))
				failed.add(phaseCreating)
				continue
			}
			e.recordWrite(r.Value, batch[i])
			e.log.Clear(batch[i])
		}
	}

	actions := make([]func(context.Context) (*types.DriveObject, error), len(files))
	for i, path := range files {
		actions[i] = func(ctx context.Context) (*types.DriveObject, error) {
			parentID, err := e.parentID(path, phaseCreating)
			if err != nil {
				return nil, err
			}
			content, err := e.vault.ReadBinary(path)
			if err != nil {
				return nil, err
			}
			return e.remote.UploadFile(ctx, reqCtx, content, vault.Base(path), parentID, drive.Properties{Path: path})
		}
	}
	results := drive.RunWaves(ctx, e.settings.Concurrency, actions)
	for i, r := range results {
		if r.Err != nil {
			logger.Error("file create failed", logging.F("path", files[i]), logging.F("error", r.Err.Error()))
			failed.add(phaseCreating)
			continue
		}
		e.recordWrite(r.Value, files[i])
		e.log.Clear(files[i])
	}
	logger.Info("create phase complete",
		logging.F("folders", len(folders)),
		logging.F("files", len(files)),
	)
}

// runModifyPhase replaces content wholesale for each pending modify.
// Failures are isolated: one file failing does not block its siblings,
// and its log entry is retained for the next cycle.
func (e *Engine) runModifyPhase(ctx context.Context, trace string, logger logging.Logger, modifies []string, failed phaseSet) {
	if len(modifies) == 0 {
		return
	}
	reqCtx := &types.RequestContext{TraceID: trace, Phase: phaseModifying, RequestType: types.RequestTypeUpdate}

	actions := make([]func(context.Context) (*types.DriveObject, error), len(modifies))
	for i, path := range modifies {
		actions[i] = func(ctx context.Context) (*types.DriveObject, error) {
			id, ok := e.index.IDFor(path)
			if !ok {
				return nil, utils.NewCLIError(utils.ErrCodeResolutionFailed, "no remote id for "+path).
					WithPhase(phaseModifying).
					Build()
			}
			content, err := e.vault.ReadBinary(path)
			if err != nil {
				return nil, err
			}
			return e.remote.UpdateFileContent(ctx, reqCtx, id, content, drive.Properties{Path: path})
		}
	}
	results := drive.RunWaves(ctx, e.settings.Concurrency, actions)
	for i, r := range results {
		if r.Err != nil {
			logger.Error("modify failed", logging.F("path", modifies[i]), logging.F("error", r.Err.Error()))
			failed.add(phaseModifying)
			continue
		}
		e.recordWrite(r.Value, modifies[i])
		e.log.Clear(modifies[i])
	}
	logger.Info("modify phase complete", logging.F("modified", len(modifies)))
}

// recordWrite indexes a remote object the engine itself just created
// or updated, and remembers the modified time the remote assigned so a
// later pull does not mistake the engine's own write for a foreign
// change.
func (e *Engine) recordWrite(obj *types.DriveObject, path string) {
	if obj == nil || obj.ID == "" {
		return
	}
	e.index.Record(obj.ID, path)
	if obj.ModifiedTime != "" {
		e.settings.RemoteModified[obj.ID] = obj.ModifiedTime
	}
}

// forgetRemote drops every trace of a remote id.
func (e *Engine) forgetRemote(id string) {
	e.index.Forget(id)
	delete(e.settings.RemoteModified, id)
}

// parentID resolves a path's parent folder to a remote id. Top-level
// paths attach to the sync root container.
func (e *Engine) parentID(path, phase string) (string, error) {
	parent := vault.Parent(path)
	if parent == "" {
		if e.settings.RootFolderID == "" {
			return "", utils.NewCLIError(utils.ErrCodeResolutionFailed, "sync root folder is not configured").
				WithPhase(phase).
				Build()
		}
		return e.settings.RootFolderID, nil
	}
	if id, ok := e.index.IDFor(parent); ok {
		return id, nil
	}
	return "", utils.NewCLIError(utils.ErrCodeResolutionFailed, "parent folder not indexed: "+parent).
		WithPhase(phase).
		Build()
}

// now is stubbed in tests.
var now = time.Now
