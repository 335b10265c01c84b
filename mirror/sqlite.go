package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteManifest stores entries in a SQLite table, one row per slug, with
// content images as a JSON column.
type SQLiteManifest struct {
	db *sql.DB
}

// NewSQLiteManifest opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteManifest(path string) (*SQLiteManifest, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the server read while a CLI sync writes; busy_timeout makes
	// the writer wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	m := &SQLiteManifest{db: db}
	if err := m.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func (m *SQLiteManifest) Close() error {
	return m.db.Close()
}

func (m *SQLiteManifest) ensureSchema() error {
	_, err := m.db.Exec(`
CREATE TABLE IF NOT EXISTS mirror_entries (
    slug TEXT PRIMARY KEY,
    notion_url TEXT NOT NULL,
    blob_url TEXT NOT NULL,
    uploaded_at TEXT NOT NULL,
    content_images TEXT NOT NULL DEFAULT '[]'
);
`)
	return err
}

func scanEntry(scan func(...any) error) (Entry, error) {
	var e Entry
	var images string
	if err := scan(&e.ProjectSlug, &e.NotionURL, &e.BlobURL, &e.UploadedAt, &images); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(images), &e.ContentImages); err != nil {
		return Entry{}, fmt.Errorf("decode content images of %s: %w", e.ProjectSlug, err)
	}
	if len(e.ContentImages) == 0 {
		e.ContentImages = nil
	}
	return e, nil
}

func (m *SQLiteManifest) Get(ctx context.Context, slug string) (Entry, bool, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT slug, notion_url, blob_url, uploaded_at, content_images FROM mirror_entries WHERE slug = ?`, slug)
	e, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (m *SQLiteManifest) Put(ctx context.Context, e Entry) error {
	images := e.ContentImages
	if images == nil {
		images = []ContentImage{}
	}
	data, err := json.Marshal(images)
	if err != nil {
		return err
	}
	_, err = m.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO mirror_entries (slug, notion_url, blob_url, uploaded_at, content_images) VALUES (?, ?, ?, ?, ?)`,
		e.ProjectSlug, e.NotionURL, e.BlobURL, e.UploadedAt, string(data))
	return err
}

func (m *SQLiteManifest) Delete(ctx context.Context, slug string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM mirror_entries WHERE slug = ?`, slug)
	return err
}

// List returns entries ordered by slug.
func (m *SQLiteManifest) List(ctx context.Context) ([]Entry, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT slug, notion_url, blob_url, uploaded_at, content_images FROM mirror_entries ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
