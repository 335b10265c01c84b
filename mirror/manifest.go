package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry records what was mirrored for one project slug.
type Entry struct {
	NotionURL     string         `json:"notionUrl"`
	BlobURL       string         `json:"blobUrl"`
	UploadedAt    string         `json:"uploadedAt"`
	ProjectSlug   string         `json:"projectSlug"`
	ContentImages []ContentImage `json:"contentImages,omitempty"`
}

// ContentImage is one mirrored image of a project body.
type ContentImage struct {
	NotionURL  string `json:"notionUrl"`
	BlobURL    string `json:"blobUrl"`
	UploadedAt string `json:"uploadedAt"`
}

// contentImage returns the durable URL already recorded for src, matching
// re-signed variants of the same URL.
func (e Entry) contentImage(src string) (string, bool) {
	key := sourceKey(src)
	for _, ci := range e.ContentImages {
		if sourceKey(ci.NotionURL) == key {
			return ci.BlobURL, true
		}
	}
	return "", false
}

// Manifest persists entries keyed by slug. Implementations need not be safe
// for concurrent writers; the Mirror serializes access.
type Manifest interface {
	Get(ctx context.Context, slug string) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	Delete(ctx context.Context, slug string) error
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

// OpenManifest opens the manifest at path: SQLite for a .db path, a JSON
// file otherwise.
func OpenManifest(path string) (Manifest, error) {
	if strings.HasSuffix(path, ".db") {
		return NewSQLiteManifest(path)
	}
	return NewJSONManifest(path)
}

// JSONManifest keeps every entry in one JSON object keyed by slug. The file
// is reread on each call so edits made by other tools are picked up.
type JSONManifest struct {
	path string
}

func NewJSONManifest(path string) (*JSONManifest, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	return &JSONManifest{path: path}, nil
}

func (m *JSONManifest) load() (map[string]Entry, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	entries := map[string]Entry{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", m.path, err)
	}
	return entries, nil
}

// save writes through a temp file and rename so readers never see a torn
// file.
func (m *JSONManifest) save(entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func (m *JSONManifest) Get(_ context.Context, slug string) (Entry, bool, error) {
	entries, err := m.load()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := entries[slug]
	return e, ok, nil
}

func (m *JSONManifest) Put(_ context.Context, e Entry) error {
	entries, err := m.load()
	if err != nil {
		return err
	}
	entries[e.ProjectSlug] = e
	return m.save(entries)
}

func (m *JSONManifest) Delete(_ context.Context, slug string) error {
	entries, err := m.load()
	if err != nil {
		return err
	}
	if _, ok := entries[slug]; !ok {
		return nil
	}
	delete(entries, slug)
	return m.save(entries)
}

// List returns entries ordered by slug.
func (m *JSONManifest) List(_ context.Context) ([]Entry, error) {
	entries, err := m.load()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectSlug < out[j].ProjectSlug })
	return out, nil
}

func (m *JSONManifest) Close() error { return nil }
