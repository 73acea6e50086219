package sync

import (
	"context"
	"testing"
	"time"

	"github.com/vaultdrive/vaultdrive/internal/logging"
	"github.com/vaultdrive/vaultdrive/internal/types"
)

func TestConfigSyncUploadsStateDirectory(t *testing.T) {
	env := newTestEnv(t, nil)

	failed := make(phaseSet)
	env.eng.syncConfig(context.Background(), "trace", logging.NewNoOpLogger(), failed)
	if len(failed) != 0 {
		t.Fatalf("failed phases: %v", failed)
	}

	dir := env.fake.findByPath(".vaultdrive")
	if dir == nil {
		t.Fatal("state directory not created remotely")
	}
	if dir.obj.Tag != types.TagConfig {
		t.Errorf("state directory tag = %q, want config", dir.obj.Tag)
	}
	if dir.parentID != "root-id" {
		t.Errorf("state directory parent = %q, want root-id", dir.parentID)
	}

	file := env.fake.findByPath(".vaultdrive/settings.json")
	if file == nil {
		t.Fatal("settings file not uploaded")
	}
	if file.obj.Tag != types.TagConfig {
		t.Errorf("settings file tag = %q, want config", file.obj.Tag)
	}
	if file.parentID != dir.obj.ID {
		t.Errorf("settings file parent = %q, want %q", file.parentID, dir.obj.ID)
	}
	if _, ok := env.eng.Index().IDFor(".vaultdrive/settings.json"); !ok {
		t.Error("uploaded config file missing from index")
	}
}

func TestConfigSyncDeletesOrphans(t *testing.T) {
	env := newTestEnv(t, func(env *testEnv) {
		env.fake.seed("f-orphan", ".obsidian/old.json", "root-id", false, []byte("{}"), types.TagConfig, time.Now())
		env.settings.DriveIDToPath["f-orphan"] = ".obsidian/old.json"
	})

	failed := make(phaseSet)
	env.eng.syncConfig(context.Background(), "trace", logging.NewNoOpLogger(), failed)
	if len(failed) != 0 {
		t.Fatalf("failed phases: %v", failed)
	}

	found := false
	for _, call := range env.fake.deleteCalls {
		for _, id := range call {
			if id == "f-orphan" {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("delete calls = %v, want f-orphan removed", env.fake.deleteCalls)
	}
	if _, ok := env.eng.Index().PathFor("f-orphan"); ok {
		t.Error("orphan still indexed after deletion")
	}
}

func TestConfigSyncUpdatesNewerLocalFile(t *testing.T) {
	env := newTestEnv(t, func(env *testEnv) {
		old := time.Now().Add(-2 * time.Hour)
		env.fake.seed("f-dir", ".vaultdrive", "root-id", true, nil, types.TagConfig, old)
		env.fake.seed("f-cfg", ".vaultdrive/settings.json", "f-dir", false, []byte("stale"), types.TagConfig, old)
	})

	failed := make(phaseSet)
	env.eng.syncConfig(context.Background(), "trace", logging.NewNoOpLogger(), failed)
	if len(failed) != 0 {
		t.Fatalf("failed phases: %v", failed)
	}

	got := env.fake.contentByPath(".vaultdrive/settings.json")
	want, err := env.v.ReadBinary(".vaultdrive/settings.json")
	if err != nil {
		t.Fatalf("failed to read local settings: %v", err)
	}
	if string(got) != string(want) {
		t.Error("remote settings file was not refreshed from the newer local copy")
	}

	// The folder already exists remotely; no second copy allowed.
	count := 0
	for _, path := range env.fake.mutatedPaths {
		if path == ".vaultdrive" {
			count++
		}
	}
	if count != 0 {
		t.Errorf("existing state directory was recreated %d times", count)
	}
}

func TestConfigSyncCoversConfiguredPaths(t *testing.T) {
	env := newTestEnv(t, func(env *testEnv) {
		env.settings.ConfigPaths = []string{".obsidian"}
	})
	env.mkdir(t, ".obsidian/themes")
	env.writeFile(t, ".obsidian/app.json", `{"theme":"dark"}`)

	failed := make(phaseSet)
	env.eng.syncConfig(context.Background(), "trace", logging.NewNoOpLogger(), failed)
	if len(failed) != 0 {
		t.Fatalf("failed phases: %v", failed)
	}

	root := env.fake.findByPath(".obsidian")
	themes := env.fake.findByPath(".obsidian/themes")
	app := env.fake.findByPath(".obsidian/app.json")
	if root == nil || themes == nil || app == nil {
		t.Fatal("expected the configured directory tree uploaded")
	}
	if themes.parentID != root.obj.ID {
		t.Errorf("nested folder parent = %q, want %q", themes.parentID, root.obj.ID)
	}
	if app.parentID != root.obj.ID {
		t.Errorf("config file parent = %q, want %q", app.parentID, root.obj.ID)
	}
	if root.obj.Tag != types.TagConfig || app.obj.Tag != types.TagConfig {
		t.Error("config objects must carry the config tag")
	}
}
