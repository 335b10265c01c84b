package blob

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	// VercelBaseURL is the Vercel Blob API endpoint.
	VercelBaseURL = "https://blob.vercel-storage.com"

	vercelAPIVersion = "7"
)

// Vercel stores objects in Vercel Blob with public access and without a
// random suffix, so a key always maps to the same URL.
type Vercel struct {
	http *resty.Client
	log  zerolog.Logger
}

// VercelOption configures a Vercel store.
type VercelOption func(*Vercel)

// WithVercelBaseURL points the store at another endpoint (tests).
func WithVercelBaseURL(base string) VercelOption {
	return func(v *Vercel) { v.http.SetBaseURL(base) }
}

// WithVercelTimeout bounds every request.
func WithVercelTimeout(d time.Duration) VercelOption {
	return func(v *Vercel) { v.http.SetTimeout(d) }
}

func NewVercel(token string, log zerolog.Logger, opts ...VercelOption) *Vercel {
	v := &Vercel{
		http: resty.New().
			SetBaseURL(VercelBaseURL).
			SetAuthToken(token).
			SetHeader("x-api-version", vercelAPIVersion).
			SetTimeout(30 * time.Second),
		log: log.With().Str("component", "blob").Logger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type putResult struct {
	URL         string `json:"url"`
	DownloadURL string `json:"downloadUrl"`
	Pathname    string `json:"pathname"`
	ContentType string `json:"contentType"`
}

type vercelError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (v *Vercel) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	var out putResult
	var apiErr vercelError
	resp, err := v.http.R().
		SetContext(ctx).
		SetHeader("x-content-type", contentType).
		SetHeader("x-add-random-suffix", "0").
		SetHeader("x-allow-overwrite", "1").
		SetBody(data).
		SetResult(&out).
		SetError(&apiErr).
		Put("/" + key)
	if err != nil {
		return "", fmt.Errorf("put blob %s: %w", key, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("put blob %s: status %d: %s", key, resp.StatusCode(), apiErr.Error.Message)
	}
	if out.URL == "" {
		return "", fmt.Errorf("put blob %s: empty url in response", key)
	}
	v.log.Debug().Str("key", key).Str("url", out.URL).Int("bytes", len(data)).Msg("uploaded blob")
	return out.URL, nil
}

func (v *Vercel) Delete(ctx context.Context, url string) error {
	var apiErr vercelError
	resp, err := v.http.R().
		SetContext(ctx).
		SetBody(map[string][]string{"urls": {url}}).
		SetError(&apiErr).
		Post("/delete")
	if err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("delete blob: status %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}
	return nil
}
