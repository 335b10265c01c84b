package mirror

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"mime"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	defaultExt  = "jpg"
	jpegQuality = 80
)

var (
	reMarkdownImage = regexp.MustCompile(`!\[[^\]]*\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)
	reS3Host        = regexp.MustCompile(`^prod-files-secure\.s3\.[a-z0-9-]+\.amazonaws\.com$`)
)

// IsRemoteImage reports whether u is hosted by the workspace and will
// therefore expire: its file bucket or its own domain.
func IsRemoteImage(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return reS3Host.MatchString(host) || host == "notion.so" || strings.HasSuffix(host, ".notion.so")
}

// ExtractImageURLs returns the distinct expiring image URLs referenced by
// markdown image syntax in md, in order of first appearance.
func ExtractImageURLs(md string) []string {
	var urls []string
	seen := map[string]bool{}
	for _, m := range reMarkdownImage.FindAllStringSubmatch(md, -1) {
		u := m[1]
		if seen[u] || !IsRemoteImage(u) {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

// sourceKey identifies an image across re-signed URLs: the bucket's
// X-Amz-* signing parameters change on every fetch and are dropped.
func sourceKey(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.RawQuery == "" {
		return u
	}
	q := parsed.Query()
	for k := range q {
		if strings.HasPrefix(strings.ToLower(k), "x-amz-") {
			q.Del(k)
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

// replaceImages rewrites the URL inside every markdown image whose source
// is a key of durable. Nothing outside image syntax is touched, so one
// source that prefixes another cannot corrupt it.
func replaceImages(md string, durable map[string]string) string {
	if len(durable) == 0 {
		return md
	}
	var b strings.Builder
	last := 0
	for _, loc := range reMarkdownImage.FindAllStringSubmatchIndex(md, -1) {
		start, end := loc[2], loc[3]
		u, ok := durable[md[start:end]]
		if !ok {
			continue
		}
		b.WriteString(md[last:start])
		b.WriteString(u)
		last = end
	}
	if last == 0 {
		return md
	}
	b.WriteString(md[last:])
	return b.String()
}

// extension derives a file extension from a Content-Type header:
// "image/png" gives "png", "image/svg+xml" gives "svg". Anything missing or
// unparsable gives "jpg".
func extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	_, sub, ok := strings.Cut(strings.TrimSpace(mediaType), "/")
	if !ok {
		return defaultExt
	}
	sub, _, _ = strings.Cut(sub, "+")
	sub = strings.ToLower(strings.TrimSpace(sub))
	if sub == "" {
		return defaultExt
	}
	for _, r := range sub {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '.' {
			return defaultExt
		}
	}
	return sub
}

// downscale shrinks raster images wider than maxWidth, keeping the aspect
// ratio. PNG stays PNG; every other decodable format is re-encoded as JPEG.
// Images that are small enough or cannot be decoded are returned unchanged.
func downscale(data []byte, contentType string, maxWidth int) ([]byte, string, error) {
	if maxWidth <= 0 {
		return data, contentType, nil
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, contentType, nil
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth {
		return data, contentType, nil
	}

	newH := max(1, h*maxWidth/w)
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if format == "png" {
		if err := png.Encode(&buf, dst); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	}
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
