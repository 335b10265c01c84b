package folio

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

func isAdminPath(path string) bool {
	return path == "/admin" || strings.HasPrefix(path, "/admin/")
}

// isAssetPath matches files served straight from disk.
func isAssetPath(path string) bool {
	return strings.HasPrefix(path, "/public/") || strings.HasPrefix(path, "/blob/")
}

func pathSkipper(match ...func(string) bool) middleware.Skipper {
	return func(c echo.Context) bool {
		p := c.Request().URL.Path
		for _, m := range match {
			if m(p) {
				return true
			}
		}
		return false
	}
}

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)
	e.HTTPErrorHandler = a.httpErrorHandler

	e.Pre(middleware.NonWWWRedirect())
	e.Pre(middleware.RemoveTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper:      pathSkipper(isAPIPath),
	}))

	e.Use(a.requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:   5,
		Skipper: pathSkipper(isAssetPath),
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline'; " +
			"style-src 'self' 'unsafe-inline'; img-src 'self' https: data:; font-src 'self'; " +
			"connect-src 'self'; frame-src https://open.spotify.com https://www.youtube.com https:; " +
			"media-src 'self' https:",
		HSTSMaxAge: 31536000,
	}))

	if a.Config.AdminEnabled() {
		a.useOperatorSession()
	}

	e.Use(cacheControlMiddleware)
	e.Use(a.Pages.Middleware(pathSkipper(isAPIPath, isAdminPath, isAssetPath)))
}

func (a *App) requestLogger() echo.MiddlewareFunc {
	log := a.log.With().Str("component", "http").Logger()
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("ip", v.RemoteIP).
				Str("cache", c.Response().Header().Get(pageCacheHeader)).
				Msg("request")
			return nil
		},
	})
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p := c.Request().URL.Path
		policy := "public, max-age=60, stale-while-revalidate=600"
		switch {
		case isAssetPath(p):
			policy = "public, max-age=31536000, immutable"
		case p == "/sitemap.xml", p == "/feed.xml", p == "/robots.txt":
			policy = "public, max-age=3600"
		case isAdminPath(p), isAPIPath(p):
			policy = "no-store"
		}
		c.Response().Header().Set("Cache-Control", policy)
		return next(c)
	}
}
