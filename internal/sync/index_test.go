package sync

import "testing"

func TestIndexBuildsInverse(t *testing.T) {
	ix := NewIndex(map[string]string{"id-1": "a.md", "id-2": "b.md"})

	if path, ok := ix.PathFor("id-1"); !ok || path != "a.md" {
		t.Errorf("PathFor(id-1) = %q, %v", path, ok)
	}
	if id, ok := ix.IDFor("b.md"); !ok || id != "id-2" {
		t.Errorf("IDFor(b.md) = %q, %v", id, ok)
	}
	if _, ok := ix.IDFor("missing.md"); ok {
		t.Error("expected absent path to resolve to nothing")
	}
}

func TestIndexRecordDisplacesBothSides(t *testing.T) {
	ix := NewIndex(nil)
	ix.Record("id-1", "a.md")

	// Same id moves to a new path: the old path mapping must go.
	ix.Record("id-1", "renamed.md")
	if _, ok := ix.IDFor("a.md"); ok {
		t.Error("stale path mapping survived a rename")
	}
	if path, _ := ix.PathFor("id-1"); path != "renamed.md" {
		t.Errorf("PathFor(id-1) = %q, want renamed.md", path)
	}

	// Same path gets a new id: the old id mapping must go.
	ix.Record("id-2", "renamed.md")
	if _, ok := ix.PathFor("id-1"); ok {
		t.Error("stale id mapping survived replacement")
	}
	if ix.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", ix.Len())
	}
}

func TestIndexForget(t *testing.T) {
	ix := NewIndex(nil)
	ix.Record("id-1", "a.md")
	ix.Forget("id-1")

	if _, ok := ix.PathFor("id-1"); ok {
		t.Error("id survived Forget")
	}
	if _, ok := ix.IDFor("a.md"); ok {
		t.Error("path survived Forget")
	}
	// Forgetting an unknown id is a no-op.
	ix.Forget("id-1")
}

func TestIndexBackingMapShared(t *testing.T) {
	backing := make(map[string]string)
	ix := NewIndex(backing)
	ix.Record("id-1", "a.md")

	if backing["id-1"] != "a.md" {
		t.Error("expected record to reach the backing map")
	}
	ix.Forget("id-1")
	if _, ok := backing["id-1"]; ok {
		t.Error("expected forget to reach the backing map")
	}
}
