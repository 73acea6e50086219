package sync

import (
	"context"
	"sort"
	"time"

	"github.com/vaultdrive/vaultdrive/internal/drive"
	"github.com/vaultdrive/vaultdrive/internal/logging"
	"github.com/vaultdrive/vaultdrive/internal/types"
	"github.com/vaultdrive/vaultdrive/internal/utils"
	"github.com/vaultdrive/vaultdrive/internal/vault"
)

// syncConfig reconciles host-application configuration objects. Unlike
// the vault tree these are identified by the config tag rather than by
// subtree location: the phase computes the set of config paths that
// should exist remotely, diffs it against what the remote has tagged as
// configuration, and deletes/creates/updates accordingly. The engine's
// own settings snapshot is one of the synced files.
func (e *Engine) syncConfig(ctx context.Context, trace string, logger logging.Logger, failed phaseSet) {
	// Flush the settings snapshot first so the uploaded copy reflects
	// every mutation confirmed so far in this cycle.
	if err := e.log.Flush(e.settings, e.settingsPath); err != nil {
		logger.Error("failed to flush settings before config sync", logging.F("error", err.Error()))
		failed.add(phaseModifying)
		return
	}

	localFolders, localFiles := e.localConfigSet(logger)
	localSet := make(map[string]bool, len(localFolders)+len(localFiles))
	for _, p := range localFolders {
		localSet[p] = true
	}
	for _, p := range localFiles {
		localSet[p] = true
	}

	reqCtx := &types.RequestContext{TraceID: trace, Phase: phaseFetching, RequestType: types.RequestTypeSearch}
	remoteCfg, err := e.remote.Search(ctx, reqCtx, []drive.Match{{Tag: types.TagConfig}}, nil)
	if err != nil {
		logger.Error("config listing failed", logging.F("error", err.Error()))
		failed.add(phaseFetching)
		return
	}

	remoteByPath := make(map[string]types.DriveObject, len(remoteCfg))
	var orphanIDs []string
	for _, obj := range remoteCfg {
		if obj.Path == "" {
			continue
		}
		if !localSet[obj.Path] {
			orphanIDs = append(orphanIDs, obj.ID)
			continue
		}
		remoteByPath[obj.Path] = obj
	}

	// Remote config objects whose local counterpart no longer exists.
	if len(orphanIDs) > 0 {
		delCtx := &types.RequestContext{TraceID: trace, Phase: phaseDeleting, RequestType: types.RequestTypeDelete}
		if err := e.remote.DeleteBatch(ctx, delCtx, orphanIDs); err != nil {
			logger.Error("config delete failed", logging.F("error", err.Error()))
			failed.add(phaseDeleting)
		} else {
			for _, id := range orphanIDs {
				e.forgetRemote(id)
			}
		}
	}

	// Missing folders, depth-ordered as in the create phase.
	createCtx := &types.RequestContext{TraceID: trace, Phase: phaseCreating, RequestType: types.RequestTypeCreate}
	byDepth := make(map[int][]string)
	for _, path := range localFolders {
		if _, ok := remoteByPath[path]; ok {
			if id := remoteByPath[path].ID; id != "" {
				e.index.Record(id, path)
			}
			continue
		}
		if _, ok := e.index.IDFor(path); ok {
			continue
		}
		byDepth[vault.Depth(path)] = append(byDepth[vault.Depth(path)], path)
	}
	depths := make([]int, 0, len(byDepth))
	for d := range byDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	for _, d := range depths {
		batch := byDepth[d]
		sort.Strings(batch)
		actions := make([]func(context.Context) (*types.DriveObject, error), len(batch))
		for i, path := range batch {
			actions[i] = func(ctx context.Context) (*types.DriveObject, error) {
				parentID, err := e.parentID(path, phaseCreating)
				if err != nil {
					return nil, err
				}
				return e.remote.CreateFolder(ctx, createCtx, vault.Base(path), parentID, drive.Properties{Path: path, Tag: types.TagConfig})
			}
		}
		results := drive.RunWaves(ctx, e.settings.Concurrency, actions)
		for i, r := range results {
			if r.Err != nil {
				logger.Error("config folder create failed", logging.F("path", batch[i]), logging.F("error", r.Err.Error()))
				failed.add(phaseCreating)
				continue
			}
			e.recordWrite(r.Value, batch[i])
		}
	}

	// Files: upload the missing, update the locally newer.
	var creates, updates []string
	for _, path := range localFiles {
		if _, ok := remoteByPath[path]; !ok {
			creates = append(creates, path)
			continue
		}
		if e.configFileNeedsUpdate(path, remoteByPath[path]) {
			updates = append(updates, path)
		}
	}

	createActions := make([]func(context.Context) (*types.DriveObject, error), len(creates))
	for i, path := range creates {
		createActions[i] = func(ctx context.Context) (*types.DriveObject, error) {
			parentID, err := e.parentID(path, phaseCreating)
			if err != nil {
				return nil, err
			}
			content, err := e.vault.ReadBinary(path)
			if err != nil {
				return nil, err
			}
			return e.remote.UploadFile(ctx, createCtx, content, vault.Base(path), parentID, drive.Properties{Path: path, Tag: types.TagConfig})
		}
	}
	for i, r := range drive.RunWaves(ctx, e.settings.Concurrency, createActions) {
		if r.Err != nil {
			logger.Error("config file create failed", logging.F("path", creates[i]), logging.F("error", r.Err.Error()))
			failed.add(phaseCreating)
			continue
		}
		e.recordWrite(r.Value, creates[i])
	}

	updateCtx := &types.RequestContext{TraceID: trace, Phase: phaseModifying, RequestType: types.RequestTypeUpdate}
	updateActions := make([]func(context.Context) (*types.DriveObject, error), len(updates))
	for i, path := range updates {
		updateActions[i] = func(ctx context.Context) (*types.DriveObject, error) {
			obj := remoteByPath[path]
			content, err := e.vault.ReadBinary(path)
			if err != nil {
				return nil, err
			}
			return e.remote.UpdateFileContent(ctx, updateCtx, obj.ID, content, drive.Properties{Path: path, Tag: types.TagConfig})
		}
	}
	for i, r := range drive.RunWaves(ctx, e.settings.Concurrency, updateActions) {
		if r.Err != nil {
			logger.Error("config file update failed", logging.F("path", updates[i]), logging.F("error", r.Err.Error()))
			failed.add(phaseModifying)
			continue
		}
		e.recordWrite(r.Value, updates[i])
	}

	logger.Info("config sync complete",
		logging.F("orphans", len(orphanIDs)),
		logging.F("creates", len(creates)),
		logging.F("updates", len(updates)),
	)
}

// localConfigSet enumerates the vault-relative config folders and files
// that should exist remotely: the engine's own state directory plus the
// configured host-application directories.
func (e *Engine) localConfigSet(logger logging.Logger) (folders, files []string) {
	dirs := append([]string{utils.SettingsDirName}, e.settings.ConfigPaths...)
	seen := make(map[string]bool)
	for _, dir := range dirs {
		if seen[dir] || !e.vault.IsDir(dir) {
			continue
		}
		seen[dir] = true
		folders = append(folders, dir)

		subFolders, err := e.vault.List(vault.KindFolder, dir)
		if err != nil {
			logger.Warn("failed to list config folder", logging.F("path", dir), logging.F("error", err.Error()))
			continue
		}
		folders = append(folders, subFolders...)

		subFiles, err := e.vault.List(vault.KindFile, dir)
		if err != nil {
			logger.Warn("failed to list config files", logging.F("path", dir), logging.F("error", err.Error()))
			continue
		}
		files = append(files, subFiles...)
	}
	sort.Strings(folders)
	sort.Strings(files)
	return folders, files
}

// configFileNeedsUpdate compares local and remote modification times;
// the local copy wins when it is newer. Unparseable times force an
// update rather than risking a stale remote.
func (e *Engine) configFileNeedsUpdate(path string, obj types.DriveObject) bool {
	localMod, err := e.vault.ModTime(path)
	if err != nil {
		return false
	}
	remoteMod, err := time.Parse(time.RFC3339, obj.ModifiedTime)
	if err != nil {
		return true
	}
	return localMod.After(remoteMod)
}
