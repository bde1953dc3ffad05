package app

import (
	"strings"
	"testing"

	"github.com/ExplainThisPR/explain-this-pr/app/models"
)

func TestFilterFiles(t *testing.T) {
	files := []models.ChangedFile{
		{Filename: "src/App.tsx", Status: "modified", Changes: 12, Patch: "@@ app"},
		{Filename: "src/App.test.ts", Status: "modified", Changes: 40, Patch: "@@ test"},
		{Filename: "package-lock.json", Status: "modified", Changes: 900, Patch: "@@ lock"},
		{Filename: "assets/icon-192.png", Status: "added", Changes: 1, Patch: ""},
		{Filename: "README.md", Status: "modified", Changes: 3, Patch: "@@ docs"},
		{Filename: "server/main.go", Status: "removed", Changes: 5, Patch: ""},
		{Filename: "empty.go", Status: "modified", Changes: 0, Patch: ""},
	}

	got := FilterFiles(files)

	want := []string{"src/App.tsx", "server/main.go"}
	if len(got) != len(want) {
		t.Fatalf("expected %d files, got %d: %+v", len(want), len(got), got)
	}
	for i, name := range want {
		if got[i].Filename != name {
			t.Fatalf("file %d: got %q want %q", i, got[i].Filename, name)
		}
	}
	if got[1].Patch != "File deleted" {
		t.Fatalf("removed file patch: got %q", got[1].Patch)
	}
	// The input slice must not be mutated.
	if files[5].Patch != "" {
		t.Fatalf("input slice was mutated: %q", files[5].Patch)
	}
}

func TestFilterFilesSkipSubstringsAreCaseInsensitive(t *testing.T) {
	files := []models.ChangedFile{
		{Filename: "src/Fixtures/Data.ts", Status: "modified", Changes: 2, Patch: "x"},
		{Filename: "src/MockServer.ts", Status: "modified", Changes: 2, Patch: "x"},
		{Filename: "SRC/Button.Spec.tsx", Status: "modified", Changes: 2, Patch: "x"},
	}
	if got := FilterFiles(files); len(got) != 0 {
		t.Fatalf("expected everything filtered, got %+v", got)
	}
}

func TestFilterFilesExtensionAllowList(t *testing.T) {
	cases := []struct {
		filename string
		keep     bool
	}{
		{"main.go", true},
		{"schema.sql", true},
		{"styles/theme.scss", true},
		{"Dockerfile", false},
		{"notes.md", false},
		{"go.sum", false},
	}
	for _, tc := range cases {
		files := []models.ChangedFile{{Filename: tc.filename, Status: "modified", Changes: 1, Patch: "x"}}
		got := FilterFiles(files)
		if kept := len(got) == 1; kept != tc.keep {
			t.Fatalf("%s: kept=%t want %t", tc.filename, kept, tc.keep)
		}
	}
}

func TestChunkFilesBoundaries(t *testing.T) {
	files := []models.ChangedFile{
		{Filename: "a.go", Patch: strings.Repeat("a", 40)},
		{Filename: "b.go", Patch: strings.Repeat("b", 40)},
		{Filename: "c.go", Patch: strings.Repeat("c", 40)},
	}

	batches := ChunkFiles(files, 100)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0]) != 2 || batches[0][0].Filename != "a.go" || batches[0][1].Filename != "b.go" {
		t.Fatalf("first batch wrong: %+v", batches[0])
	}
	// The file that opens a fresh batch lands in it, never in limbo.
	if len(batches[1]) != 1 || batches[1][0].Filename != "c.go" {
		t.Fatalf("second batch wrong: %+v", batches[1])
	}
}

func TestChunkFilesOversizedFileGetsOwnBatch(t *testing.T) {
	files := []models.ChangedFile{
		{Filename: "small.go", Patch: "tiny"},
		{Filename: "huge.go", Patch: strings.Repeat("x", 500)},
		{Filename: "after.go", Patch: "tiny"},
	}

	batches := ChunkFiles(files, 100)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if batches[1][0].Filename != "huge.go" || len(batches[1]) != 1 {
		t.Fatalf("oversized file not isolated: %+v", batches[1])
	}
}

func TestChunkFilesNoSplitBelowLimit(t *testing.T) {
	files := []models.ChangedFile{
		{Filename: "a.go", Patch: "aaa"},
		{Filename: "b.go", Patch: "bbb"},
	}
	batches := ChunkFiles(files, chunkCharLimit)
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %+v", batches)
	}
}

func TestChunkFilesPreservesEveryFileInOrder(t *testing.T) {
	var files []models.ChangedFile
	for i := 0; i < 25; i++ {
		files = append(files, models.ChangedFile{
			Filename: string(rune('a'+i)) + ".go",
			Patch:    strings.Repeat("p", 7*(i%5+1)),
		})
	}

	batches := ChunkFiles(files, 50)

	var flattened []string
	for _, batch := range batches {
		for _, f := range batch {
			flattened = append(flattened, f.Filename)
		}
	}
	if len(flattened) != len(files) {
		t.Fatalf("chunking dropped files: %d != %d", len(flattened), len(files))
	}
	for i, f := range files {
		if flattened[i] != f.Filename {
			t.Fatalf("order broken at %d: got %q want %q", i, flattened[i], f.Filename)
		}
	}
}

func TestSumChanges(t *testing.T) {
	files := []models.ChangedFile{
		{Filename: "a.go", Changes: 10},
		{Filename: "b.go", Changes: 32},
	}
	if got := sumChanges(files); got != 42 {
		t.Fatalf("sumChanges: got %d want 42", got)
	}
	if got := sumChanges(nil); got != 0 {
		t.Fatalf("sumChanges(nil): got %d want 0", got)
	}
}
