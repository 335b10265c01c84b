package mirror

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	s3A = "https://prod-files-secure.s3.us-west-2.amazonaws.com/ws/a.png?X-Amz-Signature=abc&X-Amz-Expires=3600"
	s3B = "https://prod-files-secure.s3.us-west-2.amazonaws.com/ws/b.jpg"
	s3C = "https://prod-files-secure.s3.us-west-2.amazonaws.com/ws/c.png"
)

// fakeRemote answers every download without touching the network.
type fakeRemote struct {
	mu   sync.Mutex
	hits map[string]int
}

func (f *fakeRemote) RoundTrip(r *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.hits[r.URL.String()]++
	f.mu.Unlock()

	resp := &http.Response{Header: http.Header{}, Request: r, Body: io.NopCloser(strings.NewReader("img:" + r.URL.Path))}
	switch {
	case strings.Contains(r.URL.Path, "missing"):
		resp.StatusCode = http.StatusNotFound
	case strings.HasSuffix(r.URL.Path, ".jpg"):
		resp.StatusCode = http.StatusOK
		resp.Header.Set("Content-Type", "image/jpeg; charset=binary")
	case strings.HasSuffix(r.URL.Path, ".bin"):
		resp.StatusCode = http.StatusOK
	default:
		resp.StatusCode = http.StatusOK
		resp.Header.Set("Content-Type", "image/png")
	}
	return resp, nil
}

func (f *fakeRemote) downloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, h := range f.hits {
		n += h
	}
	return n
}

type memStore struct {
	mu         sync.Mutex
	puts       []string
	deleted    []string
	failDelete bool
}

func (s *memStore) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, key)
	return "https://blob.test/" + key, nil
}

func (s *memStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, url)
	if s.failDelete {
		return errors.New("storage down")
	}
	return nil
}

func newTestMirror(t *testing.T, manifest Manifest) (*Mirror, *fakeRemote, *memStore) {
	t.Helper()
	if manifest == nil {
		var err error
		manifest, err = NewJSONManifest(filepath.Join(t.TempDir(), "blob-cache.json"))
		require.NoError(t, err)
	}
	remote := &fakeRemote{hits: map[string]int{}}
	store := &memStore{}
	clock := func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	m := New(manifest, store, zerolog.Nop(), WithClock(clock), WithTransport(remote))
	return m, remote, store
}

func TestThumbnailMirroredOnce(t *testing.T) {
	m, remote, store := newTestMirror(t, nil)
	ctx := context.Background()

	first, ok := m.Thumbnail(ctx, "demo", s3A)
	require.True(t, ok)
	second, ok := m.Thumbnail(ctx, "demo", s3A)
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, "https://blob.test/portfolio/demo.png", first)
	assert.Equal(t, 1, remote.downloads())
	assert.Equal(t, []string{"portfolio/demo.png"}, store.puts)

	entries, err := m.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{
		NotionURL:   s3A,
		BlobURL:     first,
		UploadedAt:  "2024-06-01T12:00:00.000Z",
		ProjectSlug: "demo",
	}, entries[0])
}

func TestThumbnailPerSlug(t *testing.T) {
	m, remote, store := newTestMirror(t, nil)
	ctx := context.Background()

	a, ok := m.Thumbnail(ctx, "alpha", s3B)
	require.True(t, ok)
	b, ok := m.Thumbnail(ctx, "beta", s3B)
	require.True(t, ok)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, remote.downloads())
	assert.Equal(t, []string{"portfolio/alpha.jpeg", "portfolio/beta.jpeg"}, store.puts)

	u, ok := m.URL(ctx, "beta")
	assert.True(t, ok)
	assert.Equal(t, b, u)
	_, ok = m.URL(ctx, "gamma")
	assert.False(t, ok)
}

func TestThumbnailFailures(t *testing.T) {
	m, _, store := newTestMirror(t, nil)
	ctx := context.Background()

	_, err := m.SyncThumbnail(ctx, "demo", "ftp://files.example.com/a.png")
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = m.SyncThumbnail(ctx, "demo", "https://prod-files-secure.s3.us-west-2.amazonaws.com/missing.png")
	assert.ErrorIs(t, err, ErrDownload)

	_, ok := m.Thumbnail(ctx, "demo", "")
	assert.False(t, ok)

	assert.Empty(t, store.puts)
	entries, err := m.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestThumbnailDefaultExtension(t *testing.T) {
	m, _, store := newTestMirror(t, nil)

	_, ok := m.Thumbnail(context.Background(), "raw", "https://www.notion.so/image/raw.bin")
	require.True(t, ok)
	assert.Equal(t, []string{"portfolio/raw.jpg"}, store.puts)
}

func TestBodyImages(t *testing.T) {
	m, remote, store := newTestMirror(t, nil)
	ctx := context.Background()

	md := "Intro\n\n![a](" + s3A + ")\n\n![ext](https://example.com/x.png)\n\n![b](" + s3B + ")\n\nAgain ![a](" + s3A + ")"
	out := m.BodyImages(ctx, "demo", md)

	want := "Intro\n\n![a](https://blob.test/portfolio/demo/content-1.png)\n\n" +
		"![ext](https://example.com/x.png)\n\n" +
		"![b](https://blob.test/portfolio/demo/content-2.jpeg)\n\n" +
		"Again ![a](https://blob.test/portfolio/demo/content-1.png)"
	assert.Equal(t, want, out)
	assert.Equal(t, 2, remote.downloads())

	// Known images come from the manifest; a new one takes the next index.
	out, uploaded, err := m.SyncBodyImages(ctx, "demo", md+"\n\n![c]("+s3C+")")
	require.NoError(t, err)
	assert.Equal(t, 1, uploaded)
	assert.Contains(t, out, "https://blob.test/portfolio/demo/content-3.png")
	assert.Equal(t, 3, remote.downloads())
	assert.Equal(t, []string{
		"portfolio/demo/content-1.png",
		"portfolio/demo/content-2.jpeg",
		"portfolio/demo/content-3.png",
	}, store.puts)

	// Body images alone do not count as a mirrored thumbnail.
	_, ok := m.URL(ctx, "demo")
	assert.False(t, ok)
}

func TestBodyImagesPartialFailure(t *testing.T) {
	m, _, _ := newTestMirror(t, nil)
	missing := "https://prod-files-secure.s3.us-west-2.amazonaws.com/ws/missing.png"

	out, uploaded, err := m.SyncBodyImages(context.Background(), "demo", "![m]("+missing+") ![a]("+s3C+")")
	assert.ErrorIs(t, err, ErrDownload)
	assert.Equal(t, 1, uploaded)
	assert.Equal(t, "![m]("+missing+") ![a](https://blob.test/portfolio/demo/content-1.png)", out)
}

func TestBodyImagesMatchResignedURLs(t *testing.T) {
	m, remote, _ := newTestMirror(t, nil)
	ctx := context.Background()
	base := "https://prod-files-secure.s3.us-west-2.amazonaws.com/ws/d.png"

	for _, sig := range []string{"one", "two", "three"} {
		out, _, err := m.SyncBodyImages(ctx, "demo", "![d]("+base+"?X-Amz-Signature="+sig+"&X-Amz-Expires=3600)")
		require.NoError(t, err)
		assert.Equal(t, "![d](https://blob.test/portfolio/demo/content-1.png)", out)
	}
	assert.Equal(t, 1, remote.downloads())

	entries, err := m.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].ContentImages, 1)
}

func TestBodyImagesSourceThatPrefixesAnother(t *testing.T) {
	m, _, store := newTestMirror(t, nil)
	short := "https://prod-files-secure.s3.us-west-2.amazonaws.com/ws/p.png"
	long := short + "?v=2"

	out, uploaded, err := m.SyncBodyImages(context.Background(), "p", "![x]("+short+") ![y]("+long+")")
	require.NoError(t, err)
	assert.Equal(t, 2, uploaded)
	assert.Equal(t, "![x](https://blob.test/portfolio/p/content-1.png) ![y](https://blob.test/portfolio/p/content-2.png)", out)
	assert.Equal(t, []string{"portfolio/p/content-1.png", "portfolio/p/content-2.png"}, store.puts)
}

func TestMirroredBodyNeverDownloads(t *testing.T) {
	m, remote, _ := newTestMirror(t, nil)
	ctx := context.Background()
	md := "![b](" + s3B + ") ![c](" + s3C + ")"

	assert.Equal(t, md, m.MirroredBody(ctx, "demo", md))
	assert.Zero(t, remote.downloads())

	_, _, err := m.SyncBodyImages(ctx, "demo", "![b]("+s3B+")")
	require.NoError(t, err)
	assert.Equal(t, "![b](https://blob.test/portfolio/demo/content-1.jpeg) ![c]("+s3C+")", m.MirroredBody(ctx, "demo", md))
	assert.Equal(t, 1, remote.downloads())
}

// gateRemote holds every download until release is closed.
type gateRemote struct {
	started chan struct{}
	release chan struct{}
}

func (g *gateRemote) RoundTrip(r *http.Request) (*http.Response, error) {
	g.started <- struct{}{}
	<-g.release
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"image/png"}},
		Body:       io.NopCloser(strings.NewReader("img")),
		Request:    r,
	}, nil
}

func TestManifestReadsDoNotWaitForDownloads(t *testing.T) {
	manifest, err := NewJSONManifest(filepath.Join(t.TempDir(), "blob-cache.json"))
	require.NoError(t, err)
	gate := &gateRemote{started: make(chan struct{}, 1), release: make(chan struct{})}
	m := New(manifest, &memStore{}, zerolog.Nop(), WithTransport(gate))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, _, err := m.SyncBodyImages(ctx, "slow", "![c]("+s3C+")")
		done <- err
	}()
	<-gate.started

	read := make(chan struct{})
	go func() {
		m.URL(ctx, "other")
		m.Entries(ctx)
		m.MirroredBody(ctx, "other", "![c]("+s3C+")")
		close(read)
	}()
	select {
	case <-read:
	case <-time.After(time.Second):
		t.Fatal("manifest reads waited for an in-flight download")
	}

	close(gate.release)
	require.NoError(t, <-done)
	entries, err := m.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "slow", entries[0].ProjectSlug)
}

func TestClear(t *testing.T) {
	m, _, store := newTestMirror(t, nil)
	ctx := context.Background()

	_, ok := m.Thumbnail(ctx, "demo", s3A)
	require.True(t, ok)
	m.BodyImages(ctx, "demo", "![b]("+s3B+") ![c]("+s3C+")")

	store.failDelete = true
	require.NoError(t, m.Clear(ctx, "demo"))
	assert.Equal(t, []string{
		"https://blob.test/portfolio/demo.png",
		"https://blob.test/portfolio/demo/content-1.jpeg",
		"https://blob.test/portfolio/demo/content-2.png",
	}, store.deleted)

	entries, err := m.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.NoError(t, m.Clear(ctx, "unknown"))
}

func TestExtractImageURLs(t *testing.T) {
	got := ExtractImageURLs("![x](https://prod-files-secure.s3.us-west-2.amazonaws.com/a.png) ![y](https://example.com/b.png)")
	assert.Equal(t, []string{"https://prod-files-secure.s3.us-west-2.amazonaws.com/a.png"}, got)

	md := `![one](https://www.notion.so/image/one.png "title")
![dup](https://www.notion.so/image/one.png)
[not an image](https://prod-files-secure.s3.us-west-2.amazonaws.com/link.png)
![evil](https://notion.so.evil.example.com/x.png)
![root](https://notion.so/x.png)
![other bucket](https://other.s3.us-west-2.amazonaws.com/x.png)`
	assert.Equal(t, []string{
		"https://www.notion.so/image/one.png",
		"https://notion.so/x.png",
	}, ExtractImageURLs(md))

	assert.Empty(t, ExtractImageURLs("no images here"))
}

func TestExtension(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"image/png", "png"},
		{"image/jpeg", "jpeg"},
		{"image/webp; charset=binary", "webp"},
		{"image/svg+xml", "svg"},
		{"IMAGE/GIF", "gif"},
		{"", "jpg"},
		{"garbage", "jpg"},
		{"image/", "jpg"},
		{"image/we b", "jpg"},
	}
	for _, tt := range tests {
		if got := extension(tt.in); got != tt.want {
			t.Errorf("extension(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDownscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 6), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	out, ct, err := downscale(buf.Bytes(), "image/png", 10)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 5, cfg.Height)

	same, ct, err := downscale(buf.Bytes(), "image/png", 100)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), same)
	assert.Equal(t, "image/png", ct)

	notImage, ct, err := downscale([]byte("svg"), "image/svg+xml", 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("svg"), notImage)
	assert.Equal(t, "image/svg+xml", ct)
}

func testManifest(t *testing.T, m Manifest) {
	t.Helper()
	ctx := context.Background()
	defer m.Close()

	_, ok, err := m.Get(ctx, "demo")
	require.NoError(t, err)
	assert.False(t, ok)

	e := Entry{
		NotionURL:   s3A,
		BlobURL:     "https://blob.test/portfolio/demo.png",
		UploadedAt:  "2024-06-01T12:00:00.000Z",
		ProjectSlug: "demo",
		ContentImages: []ContentImage{
			{NotionURL: s3B, BlobURL: "https://blob.test/portfolio/demo/content-1.jpeg", UploadedAt: "2024-06-01T12:00:01.000Z"},
		},
	}
	require.NoError(t, m.Put(ctx, e))
	require.NoError(t, m.Put(ctx, Entry{ProjectSlug: "alpha", BlobURL: "https://blob.test/portfolio/alpha.png"}))

	got, ok, err := m.Get(ctx, "demo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e, got)

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].ProjectSlug)
	assert.Nil(t, list[0].ContentImages)

	require.NoError(t, m.Delete(ctx, "demo"))
	require.NoError(t, m.Delete(ctx, "demo"))
	_, ok, err = m.Get(ctx, "demo")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJSONManifest(t *testing.T) {
	m, err := OpenManifest(filepath.Join(t.TempDir(), "data", "blob-cache.json"))
	require.NoError(t, err)
	require.IsType(t, &JSONManifest{}, m)
	testManifest(t, m)
}

func TestSQLiteManifest(t *testing.T) {
	m, err := OpenManifest(filepath.Join(t.TempDir(), "blob-cache.db"))
	require.NoError(t, err)
	require.IsType(t, &SQLiteManifest{}, m)
	testManifest(t, m)
}

func TestMirrorOverSQLite(t *testing.T) {
	manifest, err := NewSQLiteManifest(filepath.Join(t.TempDir(), "blob-cache.db"))
	require.NoError(t, err)
	defer manifest.Close()
	m, remote, _ := newTestMirror(t, manifest)
	ctx := context.Background()

	m.BodyImages(ctx, "demo", "![a]("+s3A+")")
	m.BodyImages(ctx, "demo", "![a]("+s3A+")")
	assert.Equal(t, 1, remote.downloads())
}
