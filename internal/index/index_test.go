package index

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/now/internal/graph"
	"github.com/starford/now/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "now-test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"notes", "edges", "contexts"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndAllChecksums(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		ID:        "hello.md",
		Title:     "Hello World",
		Checksum:  "abc123",
		Metadata:  map[string]string{"type": "task"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row, "This is a hello world note."); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	all, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if all["hello.md"] != "abc123" {
		t.Errorf("checksum = %q, want %q", all["hello.md"], "abc123")
	}
	if _, ok := all["nonexistent.md"]; ok {
		t.Error("unindexed note has a checksum")
	}
}

func TestListNotes(t *testing.T) {
	db := testDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a.md", "b.md", "c.md"} {
		row := NoteRow{ID: id, Title: id, Checksum: id, Metadata: map[string]string{"n": id}, UpdatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := db.UpsertNote(row, ""); err != nil {
			t.Fatal(err)
		}
	}

	rows, total, err := db.ListNotes(2, 0)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 3 || len(rows) != 2 {
		t.Fatalf("total = %d, rows = %+v", total, rows)
	}
	if rows[0].ID != "c.md" || rows[0].Metadata["n"] != "c.md" {
		t.Errorf("first row = %+v, want newest c.md", rows[0])
	}

	rows, _, _ = db.ListNotes(2, 2)
	if len(rows) != 1 || rows[0].ID != "a.md" {
		t.Errorf("second page = %+v", rows)
	}
}

func TestReplaceGraphAndBacklinks(t *testing.T) {
	db := testDB(t)
	idx := graph.Build([]models.Note{
		{ID: "a.md", Title: "A", Content: "@C #proj/x"},
		{ID: "b.md", Title: "B", Content: "@C #proj"},
		{ID: "c.md", Title: "C", Content: "#home"},
	})
	if err := db.ReplaceGraph(idx); err != nil {
		t.Fatalf("ReplaceGraph: %v", err)
	}

	bl, err := db.Backlinks("c.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 || bl[0].From != "a.md" || bl[0].Type != models.EdgeExplicit {
		t.Errorf("backlinks = %+v", bl)
	}

	ids, err := db.NotesInContext("proj")
	if err != nil {
		t.Fatalf("NotesInContext: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a.md" || ids[1] != "b.md" {
		t.Errorf("proj notes = %v", ids)
	}
	if ids, _ := db.NotesInContext("proj/x"); len(ids) != 1 {
		t.Errorf("proj/x notes = %v", ids)
	}

	// A second replace drops what the new graph no longer has.
	if err := db.ReplaceGraph(graph.Build([]models.Note{{ID: "c.md", Title: "C"}})); err != nil {
		t.Fatal(err)
	}
	if bl, _ := db.Backlinks("c.md"); len(bl) != 0 {
		t.Errorf("stale backlinks = %+v", bl)
	}
	if ids, _ := db.NotesInContext("proj"); len(ids) != 0 {
		t.Errorf("stale contexts = %v", ids)
	}
}

func TestNotesInContext_LikeWildcardsAreLiteral(t *testing.T) {
	db := testDB(t)
	idx := graph.Build([]models.Note{
		{ID: "a.md", Title: "A", Content: "#a_b/x"},
		{ID: "b.md", Title: "B", Content: "#axb/x"},
	})
	if err := db.ReplaceGraph(idx); err != nil {
		t.Fatal(err)
	}
	ids, _ := db.NotesInContext("a_b")
	if len(ids) != 1 || ids[0] != "a.md" {
		t.Errorf("ids = %v, want [a.md]", ids)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "del.md", Checksum: "x"}, "body")
	_ = db.ReplaceGraph(&models.GraphIndex{
		Edges:    []models.Edge{{From: "del.md", To: "t.md", Type: models.EdgeExplicit}},
		Contexts: models.TagTree{"t": {Notes: []string{"del.md"}, Children: models.TagTree{}}},
	})

	if err := db.DeleteNote("del.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if all, _ := db.AllChecksums(); len(all) != 0 {
		t.Errorf("deleted note still indexed: %v", all)
	}
	if bl, _ := db.Backlinks("t.md"); len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
	if ids, _ := db.NotesInContext("t"); len(ids) != 0 {
		t.Errorf("context membership survived delete: %v", ids)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "up.md", Title: "Old", Checksum: "1"}, "old body")
	_ = db.UpsertNote(NoteRow{ID: "up.md", Title: "New", Checksum: "2"}, "new body")

	all, _ := db.AllChecksums()
	if all["up.md"] != "2" {
		t.Errorf("checksum = %q, want %q", all["up.md"], "2")
	}
	if len(all) != 1 {
		t.Errorf("all checksums = %v", all)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "s.md", Title: "Search Me", Checksum: "1"}, "uniqueword appears here")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	logger := quietLogger()
	_ = db.UpsertNote(NoteRow{ID: "stale.md", Checksum: "s"}, "")
	_ = db.UpsertNote(NoteRow{ID: "same.md", Title: "Same", Checksum: "same"}, "")

	docs := []Document{
		DocumentOf(&models.Note{ID: "same.md", Title: "Same"}, "same"),
		DocumentOf(&models.Note{ID: "new.md", Title: "New", Content: "fresh"}, "n1"),
	}
	stats, err := Sync(db, docs, logger)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.Upserted != 1 || stats.Removed != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}

	all, _ := db.AllChecksums()
	if len(all) != 2 || all["new.md"] != "n1" {
		t.Errorf("checksums = %v", all)
	}
	if _, ok := all["stale.md"]; ok {
		t.Error("stale note not removed")
	}
}
