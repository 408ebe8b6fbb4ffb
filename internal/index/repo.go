package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/starford/now/internal/models"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	ID        string
	Title     string
	Checksum  string
	Metadata  map[string]string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertNote inserts or replaces a note and its FTS entry within a transaction.
func (db *DB) UpsertNote(n NoteRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	meta := n.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("index: encode metadata: %w", err)
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO notes (id, title, checksum, metadata, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			metadata   = excluded.metadata,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.ID, n.Title, n.Checksum, string(metaJSON), body, n.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if err := ftsUpsert(tx, n.ID, n.Title, body); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNote removes a note, its FTS entry, its edges in both directions and
// its context memberships.
func (db *DB) DeleteNote(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM edges WHERE source = ? OR target = ?`, id, id); err != nil {
		return fmt.Errorf("index: delete edges: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM contexts WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("index: delete contexts: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// AllChecksums returns the checksum of every indexed note keyed by id.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// ListNotes returns a page of notes ordered by most recent update, plus the
// total number of notes.
func (db *DB) ListNotes(limit, offset int) ([]NoteRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, title, checksum, metadata, updated_at
		FROM notes
		ORDER BY updated_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var (
			r    NoteRow
			meta string
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Checksum, &meta, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			r.Metadata = map[string]string{}
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// ReplaceGraph swaps the stored edges and context memberships for those of idx.
func (db *DB) ReplaceGraph(idx *models.GraphIndex) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM edges`); err != nil {
		return fmt.Errorf("index: clear edges: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM contexts`); err != nil {
		return fmt.Errorf("index: clear contexts: %w", err)
	}

	edgeStmt, err := tx.Prepare(`INSERT OR IGNORE INTO edges (source, target, type) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()
	for _, e := range idx.Edges {
		if _, err := edgeStmt.Exec(e.From, e.To, string(e.Type)); err != nil {
			return fmt.Errorf("index: insert edge: %w", err)
		}
	}

	ctxStmt, err := tx.Prepare(`INSERT OR IGNORE INTO contexts (path, note_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare context insert: %w", err)
	}
	defer ctxStmt.Close()
	if err := insertContexts(ctxStmt, idx.Contexts, ""); err != nil {
		return err
	}

	return tx.Commit()
}

func insertContexts(stmt *sql.Stmt, tree models.TagTree, prefix string) error {
	for name, node := range tree {
		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}
		for _, id := range node.Notes {
			if _, err := stmt.Exec(path, id); err != nil {
				return fmt.Errorf("index: insert context: %w", err)
			}
		}
		if err := insertContexts(stmt, node.Children, path); err != nil {
			return err
		}
	}
	return nil
}

// Backlinks returns every stored edge pointing at target.
func (db *DB) Backlinks(target string) ([]models.Edge, error) {
	rows, err := db.conn.Query(`SELECT source, target, type FROM edges WHERE target = ? ORDER BY source, type`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []models.Edge
	for rows.Next() {
		var (
			e   models.Edge
			typ string
		)
		if err := rows.Scan(&e.From, &e.To, &typ); err != nil {
			return nil, err
		}
		e.Type = models.EdgeType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

// NotesInContext returns the ids tagged with path or any path below it.
func (db *DB) NotesInContext(path string) ([]string, error) {
	path = strings.Trim(path, "/")
	rows, err := db.conn.Query(`
		SELECT DISTINCT note_id FROM contexts
		WHERE path = ? OR path LIKE ? ESCAPE '\'
		ORDER BY note_id
	`, path, likeEscape(path)+"/%")
	if err != nil {
		return nil, fmt.Errorf("index: notes in context: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likeEscape(s string) string {
	return likeEscaper.Replace(s)
}
