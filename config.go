package folio

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/folio-site/folio/content"
	"github.com/folio-site/folio/mirror"
)

// SiteConfig holds all configuration for a folio site. LoadConfig fills it
// from the environment; zero values fall back to defaults.
type SiteConfig struct {
	Name        string `envconfig:"SITE_NAME"`        // default "Portfolio"
	URL         string `envconfig:"SITE_URL"`         // public base URL (default "http://localhost:3000")
	Description string `envconfig:"SITE_DESCRIPTION"` // feed description
	Addr        string `envconfig:"ADDR"`             // default ":3000"

	// The blog and the portfolio live in separate workspaces. An empty
	// portfolio token reuses the blog token.
	NotionToken               string `envconfig:"NOTION_TOKEN"`
	NotionDatabaseID          string `envconfig:"NOTION_DATABASE_ID"`
	NotionPortfolioToken      string `envconfig:"NOTION_PORTFOLIO_TOKEN"`
	NotionPortfolioDatabaseID string `envconfig:"NOTION_PORTFOLIO_DATABASE_ID"`
	BlogSortProperty          string `envconfig:"BLOG_SORT_PROPERTY"` // default "Published Date"

	// Optional bearer secrets. An empty secret leaves its endpoints open.
	PortfolioRefreshSecret string `envconfig:"PORTFOLIO_REFRESH_SECRET"`
	RevalidationSecret     string `envconfig:"REVALIDATION_SECRET"`

	// Operator console. Enabled only when both are set.
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
	SessionSecret string `envconfig:"SESSION_SECRET"`
	CookieSecure  bool   `envconfig:"COOKIE_SECURE"`

	PostCacheTTL    time.Duration `envconfig:"POST_CACHE_TTL"`    // default 60s
	ProjectCacheTTL time.Duration `envconfig:"PROJECT_CACHE_TTL"` // default 30m
	PageCacheTTL    time.Duration `envconfig:"PAGE_CACHE_TTL"`    // default 1h
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT"`      // default 30s

	AssetCachePath string `envconfig:"ASSET_CACHE_PATH"` // default "data/blob-cache.json"; a .db path selects SQLite
	BlobDriver     string `envconfig:"BLOB_DRIVER"`      // "fs" (default) or "vercel"
	BlobDir        string `envconfig:"BLOB_DIR"`         // default "data/blob"
	BlobToken      string `envconfig:"BLOB_READ_WRITE_TOKEN"`
	ImageMaxWidth  int    `envconfig:"IMAGE_MAX_WIDTH"` // 0 keeps original bytes

	LogLevel string `envconfig:"LOG_LEVEL"` // default "info"
}

// LoadConfig reads SiteConfig from the environment and applies defaults.
func LoadConfig() (SiteConfig, error) {
	var cfg SiteConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return SiteConfig{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Portfolio"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.NotionPortfolioToken == "" {
		c.NotionPortfolioToken = c.NotionToken
	}
	if c.BlogSortProperty == "" {
		c.BlogSortProperty = "Published Date"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 60 * time.Second
	}
	if c.ProjectCacheTTL == 0 {
		c.ProjectCacheTTL = 30 * time.Minute
	}
	if c.PageCacheTTL == 0 {
		c.PageCacheTTL = time.Hour
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.AssetCachePath == "" {
		c.AssetCachePath = "data/blob-cache.json"
	}
	if c.BlobDriver == "" {
		c.BlobDriver = "fs"
	}
	if c.BlobDir == "" {
		c.BlobDir = "data/blob"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// AdminEnabled reports whether the operator console is configured.
func (c SiteConfig) AdminEnabled() bool {
	return c.AdminPassword != "" && c.SessionSecret != ""
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger replaces the default logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *App) {
		a.log = log
	}
}

// WithClock replaces time.Now for cache freshness and response timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// WithBlog replaces the workspace-backed blog source.
func WithBlog(src BlogSource) Option {
	return func(a *App) {
		a.blog = src
	}
}

// WithPortfolio replaces the workspace-backed portfolio source.
func WithPortfolio(src PortfolioSource) Option {
	return func(a *App) {
		a.portfolio = src
	}
}

// WithMirror replaces the asset mirror built from the blob settings.
func WithMirror(m *mirror.Mirror) Option {
	return func(a *App) {
		a.mirror = m
	}
}

var (
	_ BlogSource      = (*content.Blog)(nil)
	_ PortfolioSource = (*content.Portfolio)(nil)
)
