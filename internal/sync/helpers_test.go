package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/vaultdrive/vaultdrive/internal/config"
	"github.com/vaultdrive/vaultdrive/internal/drive"
	"github.com/vaultdrive/vaultdrive/internal/types"
	"github.com/vaultdrive/vaultdrive/internal/vault"
)

// fakeRemote is an in-memory Remote. It keeps real object state so
// tests can assert on outcomes rather than call scripts; individual
// operations can be failed through the error hooks.
type fakeRemote struct {
	mu      stdsync.Mutex
	nextID  int
	objects map[string]*fakeObject
	content map[string][]byte

	// mutatedPaths records every path touched by a create or update
	// call, in call order.
	mutatedPaths []string
	deleteCalls  [][]string
	searchCalls  int
	getCalls     int

	// clock stamps modified times on writes; tests override it to
	// control the remote's notion of time.
	clock func() time.Time

	searchErr error
	deleteErr error
	folderErr func(path string) error
	uploadErr func(path string) error
	updateErr func(path string) error
	getErr    func(id string) error
}

type fakeObject struct {
	obj      types.DriveObject
	parentID string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		objects: make(map[string]*fakeObject),
		content: make(map[string][]byte),
		clock:   time.Now,
	}
}

// seed installs a remote object directly, bypassing the call hooks.
func (f *fakeRemote) seed(id, path, parentID string, folder bool, content []byte, tag types.Tag, modified time.Time) {
	mime := "text/plain"
	if folder {
		mime = types.MimeTypeFolder
	}
	f.objects[id] = &fakeObject{
		obj: types.DriveObject{
			ID:           id,
			Name:         vault.Base(path),
			MimeType:     mime,
			Path:         path,
			Tag:          tag,
			ModifiedTime: modified.UTC().Format(time.RFC3339),
		},
		parentID: parentID,
	}
	if !folder {
		f.content[id] = content
	}
}

func (f *fakeRemote) allocID() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func matchObject(matches []drive.Match, o *fakeObject) bool {
	if len(matches) == 0 {
		return true
	}
	for _, m := range matches {
		if m.Tag != types.TagNone && o.obj.Tag != m.Tag {
			continue
		}
		if m.Path != "" && o.obj.Path != m.Path {
			continue
		}
		if !m.ModifiedAfter.IsZero() {
			mod, err := time.Parse(time.RFC3339, o.obj.ModifiedTime)
			if err != nil || !mod.After(m.ModifiedAfter) {
				continue
			}
		}
		return true
	}
	return false
}

func (f *fakeRemote) Search(ctx context.Context, reqCtx *types.RequestContext, matches []drive.Match, include []string) ([]types.DriveObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []types.DriveObject
	for _, o := range f.objects {
		if o.obj.Tag == types.TagRoot {
			continue
		}
		if matchObject(matches, o) {
			out = append(out, o.obj)
		}
	}
	return out, nil
}

func (f *fakeRemote) CreateFolder(ctx context.Context, reqCtx *types.RequestContext, name, parentID string, props drive.Properties) (*types.DriveObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.folderErr != nil {
		if err := f.folderErr(props.Path); err != nil {
			return nil, err
		}
	}
	id := f.allocID()
	f.objects[id] = &fakeObject{
		obj: types.DriveObject{
			ID:           id,
			Name:         name,
			MimeType:     types.MimeTypeFolder,
			Path:         props.Path,
			Tag:          props.Tag,
			ModifiedTime: f.clock().UTC().Format(time.RFC3339),
		},
		parentID: parentID,
	}
	f.mutatedPaths = append(f.mutatedPaths, props.Path)
	obj := f.objects[id].obj
	return &obj, nil
}

func (f *fakeRemote) UploadFile(ctx context.Context, reqCtx *types.RequestContext, content []byte, name, parentID string, props drive.Properties) (*types.DriveObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		if err := f.uploadErr(props.Path); err != nil {
			return nil, err
		}
	}
	id := f.allocID()
	f.objects[id] = &fakeObject{
		obj: types.DriveObject{
			ID:           id,
			Name:         name,
			MimeType:     "text/plain",
			Path:         props.Path,
			Tag:          props.Tag,
			ModifiedTime: f.clock().UTC().Format(time.RFC3339),
		},
		parentID: parentID,
	}
	f.content[id] = append([]byte(nil), content...)
	f.mutatedPaths = append(f.mutatedPaths, props.Path)
	obj := f.objects[id].obj
	return &obj, nil
}

func (f *fakeRemote) UpdateFileContent(ctx context.Context, reqCtx *types.RequestContext, id string, content []byte, props drive.Properties) (*types.DriveObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[id]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", id)
	}
	if f.updateErr != nil {
		if err := f.updateErr(o.obj.Path); err != nil {
			return nil, err
		}
	}
	f.content[id] = append([]byte(nil), content...)
	o.obj.ModifiedTime = f.clock().UTC().Format(time.RFC3339)
	if props.Path != "" {
		o.obj.Path = props.Path
	}
	f.mutatedPaths = append(f.mutatedPaths, o.obj.Path)
	obj := o.obj
	return &obj, nil
}

func (f *fakeRemote) UpdateMetadata(ctx context.Context, reqCtx *types.RequestContext, id string, props drive.Properties) (*types.DriveObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[id]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", id)
	}
	if props.Path != "" {
		o.obj.Path = props.Path
	}
	if props.Tag != types.TagNone {
		o.obj.Tag = props.Tag
	}
	f.mutatedPaths = append(f.mutatedPaths, o.obj.Path)
	obj := o.obj
	return &obj, nil
}

func (f *fakeRemote) DeleteBatch(ctx context.Context, reqCtx *types.RequestContext, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, append([]string(nil), ids...))
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, id := range ids {
		delete(f.objects, id)
		delete(f.content, id)
	}
	return nil
}

func (f *fakeRemote) GetContent(ctx context.Context, reqCtx *types.RequestContext, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		if err := f.getErr(id); err != nil {
			return nil, err
		}
	}
	content, ok := f.content[id]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", id)
	}
	return append([]byte(nil), content...), nil
}

func (f *fakeRemote) GetMetadata(ctx context.Context, reqCtx *types.RequestContext, id string) (*types.DriveObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[id]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", id)
	}
	obj := o.obj
	return &obj, nil
}

// findByPath returns the live remote object carrying the given path
// property, or nil.
func (f *fakeRemote) findByPath(path string) *fakeObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.objects {
		if o.obj.Path == path {
			return o
		}
	}
	return nil
}

func (f *fakeRemote) contentByPath(path string) []byte {
	o := f.findByPath(path)
	if o == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content[o.obj.ID]
}

// testEnv bundles an engine over a temp vault and a fake remote.
type testEnv struct {
	eng      *Engine
	fake     *fakeRemote
	v        *vault.Vault
	settings *config.Settings
	notices  []string
	progress []int
}

// newTestEnv builds the environment. setup runs before the engine is
// constructed, so it may seed the settings maps, the vault tree, and
// the fake remote.
func newTestEnv(t *testing.T, setup func(env *testEnv)) *testEnv {
	t.Helper()
	root := t.TempDir()
	v, err := vault.Open(root)
	if err != nil {
		t.Fatalf("failed to open vault: %v", err)
	}

	settings := config.DefaultSettings()
	settings.RootFolderID = "root-id"

	env := &testEnv{
		fake:     newFakeRemote(),
		v:        v,
		settings: settings,
	}
	if setup != nil {
		setup(env)
	}

	env.eng = New(env.fake, v, settings, config.SettingsPath(root), Options{
		Notify:   func(msg string) { env.notices = append(env.notices, msg) },
		Progress: func(pct int, _ string) { env.progress = append(env.progress, pct) },
	})
	return env
}

func (env *testEnv) writeFile(t *testing.T, rel, content string) {
	t.Helper()
	if err := env.v.WriteBinary(rel, []byte(content)); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
}

func (env *testEnv) mkdir(t *testing.T, rel string) {
	t.Helper()
	if err := env.v.Mkdir(rel); err != nil {
		t.Fatalf("failed to mkdir %s: %v", rel, err)
	}
}

func (env *testEnv) localExists(rel string) bool {
	_, err := os.Stat(filepath.Join(env.v.Root(), filepath.FromSlash(rel)))
	return err == nil
}

func (env *testEnv) hasNotice(msg string) bool {
	for _, n := range env.notices {
		if n == msg {
			return true
		}
	}
	return false
}

// pastSync sets the last-sync marker so the pull-before-push step runs
// incrementally; objects seeded with an older modified time are
// invisible to it.
func (env *testEnv) pastSync() time.Time {
	since := time.Now().Add(-time.Hour).UTC()
	env.settings.LastSyncTime = since.Format(time.RFC3339)
	return since.Add(-time.Hour)
}
