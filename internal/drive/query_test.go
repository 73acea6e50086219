package drive

import (
	"testing"
	"time"

	"github.com/vaultdrive/vaultdrive/internal/types"
)

func TestCompileQuery(t *testing.T) {
	modified := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		matches []Match
		want    string
	}{
		{
			"empty match list",
			nil,
			"trashed = false",
		},
		{
			"single name match",
			[]Match{{Name: "a.md"}},
			"trashed = false and ((name = 'a.md'))",
		},
		{
			"escaped quote and backslash",
			[]Match{{Name: `it's a\file`}},
			`trashed = false and ((name = 'it\'s a\\file'))`,
		},
		{
			"clauses AND-combined within a match",
			[]Match{{MimeType: types.MimeTypeFolder, InParent: "parent-1", Starred: true}},
			"trashed = false and ((mimeType = 'application/vnd.google-apps.folder' and 'parent-1' in parents and starred = true))",
		},
		{
			"matches OR-combined",
			[]Match{{Path: "notes/a.md"}, {Tag: types.TagConfig}},
			"trashed = false and ((appProperties has { key='path' and value='notes/a.md' }) or (appProperties has { key='tag' and value='config' }))",
		},
		{
			"full text and modified time",
			[]Match{{FullText: "meeting notes", ModifiedAfter: modified}},
			"trashed = false and ((fullText contains 'meeting notes' and modifiedTime > '2026-01-02T15:04:05Z'))",
		},
		{
			"empty match contributes nothing",
			[]Match{{}},
			"trashed = false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompileQuery(tt.matches); got != tt.want {
				t.Fatalf("CompileQuery() =\n  %s\nwant\n  %s", got, tt.want)
			}
		})
	}
}

func TestHasFullText(t *testing.T) {
	if hasFullText([]Match{{Name: "x"}}) {
		t.Error("name-only match must not trigger full-text ordering")
	}
	if !hasFullText([]Match{{Name: "x"}, {FullText: "y"}}) {
		t.Error("any full-text match switches to relevance ordering")
	}
}

func TestConvertObject_Properties(t *testing.T) {
	props := Properties{Path: "notes/a.md", Tag: types.TagConfig}.AppProperties()
	if props[types.PropPath] != "notes/a.md" {
		t.Errorf("path property = %q", props[types.PropPath])
	}
	if props[types.PropTag] != "config" {
		t.Errorf("tag property = %q", props[types.PropTag])
	}
	if _, ok := (Properties{Path: "x"}).AppProperties()[types.PropTag]; ok {
		t.Error("untagged object must not carry a tag property")
	}
}
