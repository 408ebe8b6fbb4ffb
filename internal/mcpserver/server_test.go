package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/now/internal/noteservice"
	"github.com/starford/now/internal/testutil"
	"github.com/starford/now/internal/views"
)

func testServer(t *testing.T) (*Server, *noteservice.Service) {
	t.Helper()
	_, store := testutil.TestVault(t)
	svc := noteservice.New(store, testutil.TestDB(t), testutil.Logger(), noteservice.Options{})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return New(svc, "test"), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions by name.
	handlers := map[string]server.ToolHandlerFunc{
		"search_notes":          srv.searchNotes,
		"read_note":             srv.readNote,
		"create_note":           srv.createNote,
		"open_reference":        srv.openReference,
		"list_notes":            srv.listNotes,
		"get_backlinks":         srv.getBacklinks,
		"get_graph":             srv.getGraph,
		"get_toc":               srv.getTOC,
		"get_contexts":          srv.getContexts,
		"get_annotation_syntax": srv.getAnnotationSyntax,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadNote(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "create_note", map[string]any{
		"title":   "Test",
		"content": "Hello #greeting",
	})
	text := resultText(r)
	id, ok := strings.CutPrefix(text, "created: ")
	if !ok || !strings.HasSuffix(id, ".md") {
		t.Fatalf("create result = %q", text)
	}
	if _, found := svc.Resolve("test"); !found {
		t.Error("created note does not resolve")
	}

	r = callTool(t, srv, "read_note", map[string]any{"id": id})
	var got noteservice.NoteDetail
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "Test" || got.Content != "Hello #greeting" || len(got.Contexts) != 1 {
		t.Errorf("read result = %+v", got)
	}
}

func TestCreateNote_MissingTitle(t *testing.T) {
	srv, _ := testServer(t)
	if r := callTool(t, srv, "create_note", map[string]any{"content": "x"}); !r.IsError {
		t.Error("expected error for missing title")
	}
}

func TestListNotes(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"title": "A"})
	callTool(t, srv, "create_note", map[string]any{"title": "B"})

	text := resultText(callTool(t, srv, "list_notes", map[string]any{"limit": float64(1)}))
	if !strings.Contains(text, "(1 of 2)") {
		t.Errorf("list = %q", text)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]any{"id": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, svc := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"title": "B"})
	callTool(t, srv, "create_note", map[string]any{"title": "A", "content": "links to @B"})
	a, _ := svc.Resolve("A")
	b, _ := svc.Resolve("B")

	text := resultText(callTool(t, srv, "get_backlinks", map[string]any{"id": b}))
	if text != views.MarkerExplicit+" "+a+"\tA" {
		t.Errorf("backlinks = %q", text)
	}
	text = resultText(callTool(t, srv, "get_backlinks", map[string]any{"id": a}))
	if text != "no backlinks found" {
		t.Errorf("backlinks = %q", text)
	}
}

func TestOpenReference(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "open_reference", map[string]any{"name": "Fresh"})
	var got struct {
		Created bool                   `json:"created"`
		Note    noteservice.NoteDetail `json:"note"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if !got.Created || got.Note.Title != "Fresh" {
		t.Errorf("open = %+v", got)
	}
}

func TestGraphTools(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"title": "B"})
	callTool(t, srv, "create_note", map[string]any{"title": "A", "content": "@B #proj/x"})

	if text := resultText(callTool(t, srv, "get_graph", nil)); !strings.Contains(text, `"type": "explicit"`) {
		t.Errorf("graph = %s", text)
	}
	var toc views.TOCView
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "get_toc", nil))), &toc); err != nil {
		t.Fatal(err)
	}
	if len(toc.All) != 2 || toc.All[0].Title != "A" {
		t.Errorf("toc = %+v", toc)
	}
	if text := resultText(callTool(t, srv, "get_contexts", nil)); !strings.Contains(text, `"path": "proj/x"`) {
		t.Errorf("contexts = %s", text)
	}
}

func TestSearchNotes(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"title": "Golang", "content": "channels"})
	if text := resultText(callTool(t, srv, "search_notes", map[string]any{"query": "channels"})); !strings.Contains(text, "Golang") {
		t.Errorf("search = %s", text)
	}
}

func TestAnnotationSyntax(t *testing.T) {
	srv, _ := testServer(t)
	if text := resultText(callTool(t, srv, "get_annotation_syntax", nil)); text != AnnotationSyntax {
		t.Error("tool does not return the syntax document")
	}
	contents, err := srv.readSyntaxResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc := contents[0].(mcp.TextResourceContents); tc.URI != "now://annotation-syntax" {
		t.Errorf("uri = %q", tc.URI)
	}
}
