// Package folio serves a personal site (home, blog and portfolio) whose
// records live in a remote page/database workspace. It provides TTL-cached
// record collections, a durable mirror for expiring workspace images,
// cache-busting endpoints, RSS and sitemap.
//
// Users provide their own templ templates via the ViewFuncs struct,
// and folio handles the handler logic, middleware, and content plumbing.
package folio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/folio-site/folio/blob"
	"github.com/folio-site/folio/content"
	"github.com/folio-site/folio/markdown"
	"github.com/folio-site/folio/mirror"
	"github.com/folio-site/folio/notion"
)

// ViewFuncs holds user-provided templ components that the framework calls
// when rendering pages. A nil view leaves its route unregistered.
type ViewFuncs struct {
	Home           func(posts []content.Post, projects []content.Project, siteURL string) templ.Component
	Blog           func(posts []content.Post, activeTag string, tags []string) templ.Component
	Post           func(post content.Post, body templ.Component, related []content.Post, siteURL string) templ.Component
	Portfolio      func(projects []content.Project, technologies []string) templ.Component
	Project        func(project content.Project, body templ.Component) templ.Component
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(entries []mirror.Entry, projects []content.Project, message string, csrfToken string) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// BlogSource lists posts and fetches their bodies.
type BlogSource interface {
	Posts(ctx context.Context) ([]content.Post, error)
	Body(ctx context.Context, pageID string) (markdown.Document, error)
}

// PortfolioSource lists projects and fetches their bodies.
type PortfolioSource interface {
	Projects(ctx context.Context) ([]content.Project, error)
	Body(ctx context.Context, pageID string) (markdown.Document, error)
}

// App is the central folio application. It wires together the content
// sources, caches, asset mirror, handlers, middleware, and user-provided
// templates.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Views    ViewFuncs
	Posts    *RecordCache[content.Post]
	Projects *RecordCache[content.Project]
	Pages    *PageCache

	blog         BlogSource
	portfolio    PortfolioSource
	mirror       *mirror.Mirror
	blobDir      string
	log          zerolog.Logger
	now          func() time.Time
	authLimiter  *AuthLimiter
	customRoutes []func(*App)
	staticDir    string
	closers      []io.Closer
	ready        bool
}

// New creates a new folio App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config:    cfg,
		Echo:      e,
		Views:     views,
		log:       zerolog.New(os.Stderr).With().Timestamp().Logger(),
		now:       time.Now,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init builds every component not supplied through options, then sets up
// middleware and routes. Start calls it when needed.
func (a *App) Init() error {
	if a.ready {
		return nil
	}

	if a.blog == nil {
		client := notion.NewClient(a.Config.NotionToken, notion.WithTimeout(a.Config.HTTPTimeout))
		a.blog = content.NewBlog(client, content.BlogConfig{
			DatabaseID:   a.Config.NotionDatabaseID,
			SortProperty: a.Config.BlogSortProperty,
		}, a.log)
	}
	if a.portfolio == nil {
		client := notion.NewClient(a.Config.NotionPortfolioToken, notion.WithTimeout(a.Config.HTTPTimeout))
		a.portfolio = content.NewPortfolio(client, content.PortfolioConfig{
			DatabaseID: a.Config.NotionPortfolioDatabaseID,
		}, a.log)
	}
	if a.mirror == nil {
		m, err := a.newMirror()
		if err != nil {
			return fmt.Errorf("folio: init mirror: %w", err)
		}
		a.mirror = m
	}

	a.Posts = NewRecordCache[content.Post]("posts", a.Config.PostCacheTTL, a.blog.Posts,
		func(p content.Post) string { return p.Slug })
	a.Posts.SetClock(a.now)
	a.Posts.SetLogger(a.log)

	a.Projects = NewRecordCache[content.Project]("projects", a.Config.ProjectCacheTTL, a.portfolio.Projects,
		func(p content.Project) string { return p.Slug })
	a.Projects.SetClock(a.now)
	a.Projects.SetLogger(a.log)

	a.Pages = NewPageCache(a.Config.PageCacheTTL, a.now)

	a.authLimiter = NewAuthLimiter(10, time.Minute)
	a.closers = append(a.closers, a.authLimiter)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.ready = true
	return nil
}

func (a *App) newMirror() (*mirror.Mirror, error) {
	manifest, err := mirror.OpenManifest(a.Config.AssetCachePath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, manifest)

	var store blob.Store
	switch a.Config.BlobDriver {
	case "fs":
		fs, err := blob.NewFS(a.Config.BlobDir, "/blob")
		if err != nil {
			return nil, err
		}
		a.blobDir = fs.Dir()
		store = fs
	case "vercel":
		if a.Config.BlobToken == "" {
			return nil, errors.New("BLOB_READ_WRITE_TOKEN is required for the vercel driver")
		}
		store = blob.NewVercel(a.Config.BlobToken, a.log, blob.WithVercelTimeout(a.Config.HTTPTimeout))
	default:
		return nil, fmt.Errorf("unknown blob driver %q", a.Config.BlobDriver)
	}

	return mirror.New(manifest, store, a.log,
		mirror.WithMaxWidth(a.Config.ImageMaxWidth),
		mirror.WithTimeout(a.Config.HTTPTimeout),
		mirror.WithClock(a.now),
	), nil
}

// Mirror returns the asset mirror. It is nil before Init.
func (a *App) Mirror() *mirror.Mirror {
	return a.mirror
}

// Logger returns the application logger.
func (a *App) Logger() zerolog.Logger {
	return a.log
}

// Start initializes the app if needed and starts the server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	a.log.Info().Str("addr", a.Config.Addr).Str("site", a.Config.URL).Msg("listening")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// User's static assets
	e.Static("/public", a.staticDir)
	if a.blobDir != "" {
		e.Static("/blob", a.blobDir)
	}
	e.GET("/robots.txt", a.handleRobots)

	// Public routes
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	if a.Views.Home != nil {
		e.GET("/", a.handleHome)
	}
	if a.Views.Blog != nil {
		e.GET("/blog", a.handleBlog)
	}
	if a.Views.Post != nil {
		e.GET("/blog/:slug", a.handlePost)
	}
	if a.Views.Portfolio != nil {
		e.GET("/portfolio", a.handlePortfolio)
	}
	if a.Views.Project != nil {
		e.GET("/portfolio/:slug", a.handleProject)
	}

	// JSON API
	api := e.Group("/api")
	api.GET("/blog", a.handleAPIPosts)
	api.GET("/blog/:slug", a.handleAPIPost)
	api.GET("/tags", a.handleAPITags)
	api.GET("/portfolio", a.handleAPIProjects)
	api.GET("/technologies", a.handleAPITechnologies)
	api.GET("/portfolio/:slug", a.handleProjectContent)

	// Cache busting
	portfolioAuth := a.requireSecret(a.Config.PortfolioRefreshSecret, false)
	revalidateAuth := a.requireSecret(a.Config.RevalidationSecret, true)
	api.GET("/portfolio/refresh", a.handleRefresh)
	api.POST("/portfolio/refresh", a.handleRefresh, portfolioAuth)
	api.GET("/portfolio/sync-images", a.handleSyncStatus)
	api.POST("/portfolio/sync-images", a.handleSyncImages, portfolioAuth)
	api.GET("/revalidate", a.handleRevalidate, revalidateAuth)
	api.POST("/revalidate", a.handleRevalidate, revalidateAuth)

	// Operator console
	if a.Config.AdminEnabled() && a.Views.AdminLogin != nil && a.Views.AdminDashboard != nil {
		e.GET("/admin", a.handleAdmin)
		e.POST("/admin/login", a.handleAdminLogin)
		e.POST("/admin/logout", handleAdminLogout)
		e.POST("/admin/sync", a.handleAdminSync, operatorOnly)
		e.POST("/admin/refresh", a.handleAdminRefresh, operatorOnly)
		e.POST("/admin/clear/:slug", a.handleAdminClear, operatorOnly)
	}
}

// Shutdown stops the server gracefully and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	return errors.Join(err, a.Close())
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
