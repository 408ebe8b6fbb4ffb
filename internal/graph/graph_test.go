package graph

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/starford/now/internal/models"
)

func note(id, title, content string) models.Note {
	return models.Note{ID: id, Title: title, Content: content, Metadata: map[string]string{}}
}

func TestBuild_Scenario(t *testing.T) {
	notes := []models.Note{
		note("a.md", "A", "see @B"),
		note("b.md", "B", "#proj/x"),
	}
	idx := Build(notes)

	if len(idx.Edges) != 1 {
		t.Fatalf("edges = %+v, want 1", idx.Edges)
	}
	want := models.Edge{From: "a.md", To: "b.md", Type: models.EdgeExplicit}
	if idx.Edges[0] != want {
		t.Errorf("edge = %+v, want %+v", idx.Edges[0], want)
	}

	got, err := json.Marshal(idx.Contexts)
	if err != nil {
		t.Fatal(err)
	}
	wantJSON := `{"proj":{"notes":[],"children":{"x":{"notes":["b.md"],"children":{}}}}}`
	if string(got) != wantJSON {
		t.Errorf("contexts = %s, want %s", got, wantJSON)
	}
}

func TestBuild_UnresolvedReferenceDropped(t *testing.T) {
	idx := Build([]models.Note{note("a.md", "A", "@Nobody and @A")})
	if len(idx.Edges) != 0 {
		t.Errorf("edges = %+v, want none", idx.Edges)
	}
}

func TestBuild_CaseInsensitiveResolution(t *testing.T) {
	idx := Build([]models.Note{
		note("a.md", "Alpha", "@BETA"),
		note("b.md", "beta", ""),
	})
	if len(idx.Edges) != 1 || idx.Edges[0].To != "b.md" {
		t.Errorf("edges = %+v", idx.Edges)
	}
}

func TestBuild_DuplicateTitleSmallestIDWins(t *testing.T) {
	idx := Build([]models.Note{
		note("c.md", "Source", "@Dup"),
		note("z.md", "Dup", ""),
		note("m.md", "dup", ""),
	})
	if len(idx.Edges) != 1 || idx.Edges[0].To != "m.md" {
		t.Errorf("edges = %+v, want single edge to m.md", idx.Edges)
	}
}

func TestBuild_EdgesDeduplicated(t *testing.T) {
	idx := Build([]models.Note{
		note("a.md", "A", "@B @B @b"),
		note("b.md", "B", ""),
	})
	if len(idx.Edges) != 1 {
		t.Errorf("edges = %+v, want 1", idx.Edges)
	}
}

func TestBuild_TagLeafNoDuplicates(t *testing.T) {
	idx := Build([]models.Note{note("a.md", "A", "#t/u #t/u and again #t/u")})
	leaf, ok := Lookup(idx.Contexts, "t/u")
	if !ok {
		t.Fatal("leaf t/u missing")
	}
	if len(leaf.Notes) != 1 || leaf.Notes[0] != "a.md" {
		t.Errorf("leaf notes = %v", leaf.Notes)
	}
	parent, _ := Lookup(idx.Contexts, "t")
	if len(parent.Notes) != 0 {
		t.Errorf("intermediate node notes = %v, want none", parent.Notes)
	}
}

func TestBuild_NodeGroups(t *testing.T) {
	task := note("t.md", "T", "")
	task.Metadata["type"] = "task"
	legacy := note("l.md", "L", "")
	legacy.Metadata["typ"] = "Aufgabe"
	idx := Build([]models.Note{task, legacy, note("n.md", "N", "")}, WithDefaultGroup("Notiz"))

	want := map[string]string{"t.md": "task", "l.md": "Aufgabe", "n.md": "Notiz"}
	for _, n := range idx.Nodes {
		if n.Group != want[n.ID] {
			t.Errorf("group of %s = %q, want %q", n.ID, n.Group, want[n.ID])
		}
	}
}

func TestBuild_ContextEdges(t *testing.T) {
	notes := []models.Note{
		note("a.md", "A", "#shared"),
		note("b.md", "B", "#shared"),
		note("c.md", "C", "#shared #other"),
	}
	if idx := Build(notes); len(idx.Edges) != 0 {
		t.Fatalf("context edges must be opt-in, got %+v", idx.Edges)
	}
	idx := Build(notes, WithContextEdges())
	if len(idx.Edges) != 2 {
		t.Fatalf("edges = %+v, want 2", idx.Edges)
	}
	for _, e := range idx.Edges {
		if e.To != "a.md" || e.Type != models.EdgeContext {
			t.Errorf("unexpected edge %+v", e)
		}
	}
}

func TestBuild_EdgesOnlyBetweenKnownNotes(t *testing.T) {
	var notes []models.Note
	for i := 0; i < 20; i++ {
		content := fmt.Sprintf("@N%d @N%d @Missing%d #g/%d", (i+1)%25, (i*7)%30, i, i%3)
		notes = append(notes, note(fmt.Sprintf("%02d.md", i), fmt.Sprintf("N%d", i), content))
	}
	idx := Build(notes, WithContextEdges())

	ids := map[string]bool{}
	for _, n := range notes {
		ids[n.ID] = true
	}
	for _, e := range idx.Edges {
		if !ids[e.From] || !ids[e.To] {
			t.Errorf("edge %+v references unknown note", e)
		}
		if e.From == e.To {
			t.Errorf("self edge %+v", e)
		}
	}
}

func TestOrphans(t *testing.T) {
	idx := Build([]models.Note{
		note("a.md", "A", "@B"),
		note("b.md", "B", "@A"),
		note("c.md", "C", "@A"),
	})
	orphans := Orphans(idx)
	if len(orphans) != 1 || orphans[0].ID != "c.md" {
		t.Errorf("orphans = %+v, want [c.md]", orphans)
	}

	incoming := map[string]bool{}
	for _, e := range idx.Edges {
		incoming[e.To] = true
	}
	orphanSet := map[string]bool{}
	for _, o := range orphans {
		orphanSet[o.ID] = true
	}
	for _, n := range idx.Nodes {
		if orphanSet[n.ID] == incoming[n.ID] {
			t.Errorf("node %s: orphan=%v incoming=%v", n.ID, orphanSet[n.ID], incoming[n.ID])
		}
	}
}

func TestBacklinks(t *testing.T) {
	idx := Build([]models.Note{
		note("a.md", "A", "@C"),
		note("b.md", "B", "@C"),
		note("c.md", "C", ""),
	})
	if got := Backlinks(idx, "c.md"); len(got) != 2 {
		t.Errorf("incoming = %+v, want 2", got)
	}
}

func TestResolver_SkipsEmptyTitles(t *testing.T) {
	r := NewResolver([]models.Note{note("a.md", "  ", "")})
	if _, ok := r.Resolve(""); ok {
		t.Error("empty title must not resolve")
	}
}
