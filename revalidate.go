package folio

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const pageCacheHeader = "X-Page-Cache"

type cachedPage struct {
	contentType string
	body        []byte
	stored      time.Time
}

// maxPages bounds the number of cached pages.
const maxPages = 1024

// pageQueryParams lists the query parameters pages render differently for.
// Any other parameter shares the page of the bare path.
var pageQueryParams = []string{"tag"}

// PageCache keeps rendered HTML pages in memory until they expire or are
// revalidated. Keys are request paths plus the query parameters pages use.
// Expired pages are dropped on read, and once maxPages is reached the
// oldest page makes room.
type PageCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	max   int
	pages map[string]cachedPage
}

func NewPageCache(ttl time.Duration, now func() time.Time) *PageCache {
	if now == nil {
		now = time.Now
	}
	return &PageCache{ttl: ttl, now: now, max: maxPages, pages: make(map[string]cachedPage)}
}

func pageKey(r *http.Request) string {
	key := normalizePath(r.URL.Path)
	q := r.URL.Query()
	kept := url.Values{}
	for _, name := range pageQueryParams {
		if v := q.Get(name); v != "" {
			kept.Set(name, v)
		}
	}
	if len(kept) > 0 {
		key += "?" + kept.Encode()
	}
	return key
}

func normalizePath(p string) string {
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

func (pc *PageCache) expired(p cachedPage, now time.Time) bool {
	return now.Sub(p.stored) >= pc.ttl
}

func (pc *PageCache) get(key string) (cachedPage, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	p, ok := pc.pages[key]
	if !ok {
		return cachedPage{}, false
	}
	if pc.expired(p, pc.now()) {
		delete(pc.pages, key)
		return cachedPage{}, false
	}
	return p, true
}

func (pc *PageCache) put(key string, p cachedPage) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if _, ok := pc.pages[key]; !ok && len(pc.pages) >= pc.max {
		pc.makeRoom()
	}
	pc.pages[key] = p
}

// makeRoom drops expired pages, or the oldest one if none has expired.
// Callers hold mu.
func (pc *PageCache) makeRoom() {
	now := pc.now()
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, p := range pc.pages {
		if pc.expired(p, now) {
			delete(pc.pages, k)
			continue
		}
		if oldestKey == "" || p.stored.Before(oldest) {
			oldestKey, oldest = k, p.stored
		}
	}
	if len(pc.pages) >= pc.max && oldestKey != "" {
		delete(pc.pages, oldestKey)
	}
}

// Revalidate evicts every cached page for path. A path with a bracketed
// segment such as "/blog/[slug]" evicts every page below the part before
// the bracket. It returns the number of pages evicted.
func (pc *PageCache) Revalidate(path string) int {
	prefix, _, dynamic := strings.Cut(path, "[")
	path = normalizePath(path)

	pc.mu.Lock()
	defer pc.mu.Unlock()
	n := 0
	for key := range pc.pages {
		p, _, _ := strings.Cut(key, "?")
		var match bool
		if dynamic {
			match = strings.HasPrefix(p, prefix) && len(p) > len(prefix)
		} else {
			match = p == path
		}
		if match {
			delete(pc.pages, key)
			n++
		}
	}
	return n
}

// RevalidateAll evicts every cached page.
func (pc *PageCache) RevalidateAll() {
	pc.mu.Lock()
	pc.pages = make(map[string]cachedPage)
	pc.mu.Unlock()
}

// Len returns the number of cached pages, fresh or not.
func (pc *PageCache) Len() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.pages)
}

// Middleware serves GET requests from the cache and stores successful HTML
// responses. Requests matched by skip bypass the cache entirely.
func (pc *PageCache) Middleware(skip func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet || (skip != nil && skip(c)) {
				return next(c)
			}
			key := pageKey(req)
			if p, ok := pc.get(key); ok {
				res := c.Response()
				res.Header().Set(echo.HeaderContentType, p.contentType)
				res.Header().Set(pageCacheHeader, "HIT")
				res.WriteHeader(http.StatusOK)
				_, err := res.Write(p.body)
				return err
			}

			res := c.Response()
			res.Header().Set(pageCacheHeader, "MISS")
			capture := &captureWriter{ResponseWriter: res.Writer}
			res.Writer = capture
			err := next(c)
			res.Writer = capture.ResponseWriter
			if err != nil || res.Status != http.StatusOK {
				return err
			}
			ct := res.Header().Get(echo.HeaderContentType)
			if !strings.HasPrefix(ct, echo.MIMETextHTML) {
				return nil
			}
			pc.put(key, cachedPage{
				contentType: ct,
				body:        bytes.Clone(capture.buf.Bytes()),
				stored:      pc.now(),
			})
			return nil
		}
	}
}

// captureWriter copies everything written to the response.
type captureWriter struct {
	http.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
