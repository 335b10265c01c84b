// Package mirror copies expiring workspace-hosted images into durable blob
// storage and remembers, per project slug, where each copy lives.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/folio-site/folio/blob"
)

var (
	ErrInvalidSource = errors.New("mirror: source is not an http url")
	ErrDownload      = errors.New("mirror: download failed")
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Mirror uploads project thumbnails and body images to a blob store.
// Uploads for one slug run one at a time; the manifest lock is held only
// around each read-modify-write, never across a download.
type Mirror struct {
	mu       sync.Mutex
	slugs    sync.Map // slug -> *sync.Mutex
	manifest Manifest
	store    blob.Store
	http     *resty.Client
	maxWidth int
	now      func() time.Time
	log      zerolog.Logger
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithMaxWidth downscales images wider than px before upload. Zero keeps the
// downloaded bytes.
func WithMaxWidth(px int) Option {
	return func(m *Mirror) { m.maxWidth = px }
}

// WithTimeout bounds each image download.
func WithTimeout(d time.Duration) Option {
	return func(m *Mirror) { m.http.SetTimeout(d) }
}

// WithTransport replaces the HTTP transport used for downloads.
func WithTransport(rt http.RoundTripper) Option {
	return func(m *Mirror) { m.http.SetTransport(rt) }
}

// WithClock replaces time.Now for upload timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Mirror) { m.now = now }
}

func New(manifest Manifest, store blob.Store, log zerolog.Logger, opts ...Option) *Mirror {
	m := &Mirror{
		manifest: manifest,
		store:    store,
		http:     resty.New().SetTimeout(30 * time.Second),
		now:      time.Now,
		log:      log.With().Str("component", "mirror").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Thumbnail returns the durable URL of a project's thumbnail, mirroring it
// on first use. A recorded entry is trusted as is, even when the source has
// changed since. Failures are logged and reported as ok=false.
func (m *Mirror) Thumbnail(ctx context.Context, slug, source string) (string, bool) {
	u, err := m.SyncThumbnail(ctx, slug, source)
	if err != nil {
		m.log.Error().Err(err).Str("slug", slug).Msg("mirror thumbnail")
		return "", false
	}
	return u, true
}

// SyncThumbnail is Thumbnail with the failure reason.
func (m *Mirror) SyncThumbnail(ctx context.Context, slug, source string) (string, error) {
	defer m.lockSlug(slug)()

	entry, ok, err := m.entry(ctx, slug)
	if err != nil {
		return "", err
	}
	if ok && entry.BlobURL != "" {
		m.log.Debug().Str("slug", slug).Msg("thumbnail served from manifest")
		return entry.BlobURL, nil
	}

	u, err := m.copy(ctx, source, "portfolio/"+slug)
	if err != nil {
		return "", err
	}
	err = m.update(ctx, slug, func(e *Entry) {
		e.NotionURL = source
		e.BlobURL = u
		e.UploadedAt = m.timestamp()
	})
	if err != nil {
		return "", fmt.Errorf("record thumbnail of %s: %w", slug, err)
	}
	m.log.Info().Str("slug", slug).Str("url", u).Msg("mirrored thumbnail")
	return u, nil
}

// BodyImages mirrors every expiring image referenced by md and returns md
// with each such URL replaced by its durable copy. Images that fail keep
// their original URL.
func (m *Mirror) BodyImages(ctx context.Context, slug, md string) string {
	out, _, err := m.SyncBodyImages(ctx, slug, md)
	if err != nil {
		m.log.Error().Err(err).Str("slug", slug).Msg("mirror body images")
	}
	return out
}

// SyncBodyImages is BodyImages that also reports how many images were
// uploaded by this call and the first failure, if any.
func (m *Mirror) SyncBodyImages(ctx context.Context, slug, md string) (string, int, error) {
	urls := ExtractImageURLs(md)
	if len(urls) == 0 {
		return md, 0, nil
	}
	defer m.lockSlug(slug)()

	entry, _, err := m.entry(ctx, slug)
	if err != nil {
		return md, 0, err
	}

	var (
		added    []ContentImage
		firstErr error
	)
	durable := make(map[string]string, len(urls))
	for _, src := range urls {
		if u, ok := entry.contentImage(src); ok {
			durable[src] = u
			continue
		}
		key := fmt.Sprintf("portfolio/%s/content-%d", slug, len(entry.ContentImages)+1)
		u, err := m.copy(ctx, src, key)
		if err != nil {
			m.log.Warn().Err(err).Str("slug", slug).Msg("skip body image")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		durable[src] = u
		ci := ContentImage{NotionURL: src, BlobURL: u, UploadedAt: m.timestamp()}
		entry.ContentImages = append(entry.ContentImages, ci)
		added = append(added, ci)
	}

	if len(added) > 0 {
		err := m.update(ctx, slug, func(e *Entry) {
			e.ContentImages = append(e.ContentImages, added...)
		})
		if err != nil {
			return replaceImages(md, durable), len(added), fmt.Errorf("record body images of %s: %w", slug, err)
		}
		m.log.Info().Str("slug", slug).Int("uploaded", len(added)).Msg("mirrored body images")
	}
	return replaceImages(md, durable), len(added), firstErr
}

// MirroredBody replaces the images of md that already have a durable copy
// for slug. It never downloads; images not yet mirrored keep their URL.
func (m *Mirror) MirroredBody(ctx context.Context, slug, md string) string {
	urls := ExtractImageURLs(md)
	if len(urls) == 0 {
		return md
	}
	entry, ok, err := m.entry(ctx, slug)
	if err != nil {
		m.log.Error().Err(err).Str("slug", slug).Msg("read manifest")
		return md
	}
	if !ok {
		return md
	}
	durable := make(map[string]string, len(urls))
	for _, src := range urls {
		if u, ok := entry.contentImage(src); ok {
			durable[src] = u
		}
	}
	return replaceImages(md, durable)
}

// Clear deletes every durable object recorded for slug and then the entry
// itself. Object deletion failures are logged and do not stop the clear.
func (m *Mirror) Clear(ctx context.Context, slug string) error {
	defer m.lockSlug(slug)()

	entry, ok, err := m.entry(ctx, slug)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	urls := make([]string, 0, len(entry.ContentImages)+1)
	if entry.BlobURL != "" {
		urls = append(urls, entry.BlobURL)
	}
	for _, ci := range entry.ContentImages {
		urls = append(urls, ci.BlobURL)
	}
	for _, u := range urls {
		if err := m.store.Delete(ctx, u); err != nil {
			m.log.Warn().Err(err).Str("slug", slug).Str("url", u).Msg("delete blob")
		}
	}

	m.mu.Lock()
	err = m.manifest.Delete(ctx, slug)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("clear %s: %w", slug, err)
	}
	m.log.Info().Str("slug", slug).Int("objects", len(urls)).Msg("cleared mirror")
	return nil
}

// Entries lists the manifest.
func (m *Mirror) Entries(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manifest.List(ctx)
}

// URL returns the mirrored thumbnail URL for slug without mirroring.
func (m *Mirror) URL(ctx context.Context, slug string) (string, bool) {
	entry, ok, err := m.entry(ctx, slug)
	if err != nil {
		m.log.Error().Err(err).Str("slug", slug).Msg("read manifest")
		return "", false
	}
	return entry.BlobURL, ok && entry.BlobURL != ""
}

// lockSlug serializes uploads for one slug and returns the unlock func.
func (m *Mirror) lockSlug(slug string) func() {
	v, _ := m.slugs.LoadOrStore(slug, new(sync.Mutex))
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (m *Mirror) entry(ctx context.Context, slug string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manifest.Get(ctx, slug)
}

// update applies fn to the stored entry of slug and writes it back.
func (m *Mirror) update(ctx context.Context, slug string, fn func(*Entry)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, _, err := m.manifest.Get(ctx, slug)
	if err != nil {
		return err
	}
	e.ProjectSlug = slug
	fn(&e)
	return m.manifest.Put(ctx, e)
}

// copy downloads source and uploads it under key plus an extension taken from
// the response content type.
func (m *Mirror) copy(ctx context.Context, source, key string) (string, error) {
	if !strings.HasPrefix(source, "http") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	resp, err := m.http.R().SetContext(ctx).Get(source)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: status %d", ErrDownload, resp.StatusCode())
	}

	contentType := resp.Header().Get("Content-Type")
	data, contentType, err := downscale(resp.Body(), contentType, m.maxWidth)
	if err != nil {
		return "", err
	}
	ext := extension(contentType)
	if contentType == "" {
		contentType = "image/jpeg"
	}

	u, err := m.store.Put(ctx, key+"."+ext, data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return u, nil
}

func (m *Mirror) timestamp() string {
	return m.now().UTC().Format(timestampLayout)
}
