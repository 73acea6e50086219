package sync

// Index is the bidirectional mapping between remote object ids and
// vault-relative paths. id→path is the persisted direction (the
// backing map lives in the settings document); path→id is derived and
// rebuilt, never persisted redundantly.
//
// Entries are added and removed exclusively by the push and pull
// reconcilers after a confirmed remote mutation. No remote calls here.
type Index struct {
	idToPath map[string]string
	pathToID map[string]string
}

// NewIndex wraps a backing map (usually Settings.DriveIDToPath) and
// builds the inverse.
func NewIndex(backing map[string]string) *Index {
	if backing == nil {
		backing = make(map[string]string)
	}
	inverse := make(map[string]string, len(backing))
	for id, path := range backing {
		inverse[path] = id
	}
	return &Index{idToPath: backing, pathToID: inverse}
}

// PathFor resolves an id to its path. Absence is not an error.
func (ix *Index) PathFor(id string) (string, bool) {
	path, ok := ix.idToPath[id]
	return path, ok
}

// IDFor resolves a path to its remote id. A path with no remote
// counterpart yet returns absent; this is normal for objects in the
// current push batch whose creation has not happened.
func (ix *Index) IDFor(path string) (string, bool) {
	id, ok := ix.pathToID[path]
	return id, ok
}

// Record stores a confirmed (id, path) pair, displacing any stale
// mapping on either side.
func (ix *Index) Record(id, path string) {
	if id == "" || path == "" {
		return
	}
	if oldPath, ok := ix.idToPath[id]; ok && oldPath != path {
		delete(ix.pathToID, oldPath)
	}
	if oldID, ok := ix.pathToID[path]; ok && oldID != id {
		delete(ix.idToPath, oldID)
	}
	ix.idToPath[id] = path
	ix.pathToID[path] = id
}

// Forget drops an id after its object was deleted remotely.
func (ix *Index) Forget(id string) {
	if path, ok := ix.idToPath[id]; ok {
		delete(ix.pathToID, path)
	}
	delete(ix.idToPath, id)
}

// Len returns the number of indexed objects.
func (ix *Index) Len() int {
	return len(ix.idToPath)
}

// IDs returns every indexed id.
func (ix *Index) IDs() []string {
	ids := make([]string, 0, len(ix.idToPath))
	for id := range ix.idToPath {
		ids = append(ids, id)
	}
	return ids
}
