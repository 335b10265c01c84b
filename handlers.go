package folio

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/folio-site/folio/content"
	"github.com/folio-site/folio/markdown"
)

const relatedPosts = 3

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	posts := a.Posts.Get(ctx)
	projects := content.Featured(a.Projects.Get(ctx))
	if len(projects) == 0 {
		projects = a.Projects.Get(ctx)
	}
	projects = a.durableThumbnails(ctx, projects)
	return Render(c, a.Views.Home(posts, projects, a.Config.URL))
}

func (a *App) handleBlog(c echo.Context) error {
	posts := a.Posts.Get(c.Request().Context())
	tags := content.Tags(posts)
	tag := strings.TrimSpace(c.QueryParam("tag"))
	if tag != "" {
		posts = content.WithTag(posts, tag)
	}
	return Render(c, a.Views.Blog(posts, tag, tags))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Posts.Lookup(ctx, c.Param("slug"))
	if errors.Is(err, ErrNotFound) {
		return a.renderNotFound(c)
	}
	doc, err := a.blog.Body(ctx, post.ID)
	if err != nil {
		return err
	}
	related := content.Related(a.Posts.Get(ctx), post, relatedPosts)
	return Render(c, a.Views.Post(post, markdown.Component(doc), related, a.Config.URL))
}

func (a *App) handlePortfolio(c echo.Context) error {
	ctx := c.Request().Context()
	projects := a.Projects.Get(ctx)
	return Render(c, a.Views.Portfolio(a.durableThumbnails(ctx, projects), content.Technologies(projects)))
}

func (a *App) handleProject(c echo.Context) error {
	ctx := c.Request().Context()
	project, err := a.Projects.Lookup(ctx, c.Param("slug"))
	if errors.Is(err, ErrNotFound) {
		return a.renderNotFound(c)
	}
	body, err := a.ProjectBody(ctx, project)
	if err != nil {
		return err
	}
	project = a.durableThumbnails(ctx, []content.Project{project})[0]
	return Render(c, a.Views.Project(project, markdown.Markdown(body)))
}

// ProjectBody returns the markdown body of project with each image that
// SyncImages already mirrored pointing at its durable copy. Serving a body
// never downloads anything.
func (a *App) ProjectBody(ctx context.Context, project content.Project) (string, error) {
	doc, err := a.portfolio.Body(ctx, project.ID)
	if err != nil {
		return "", err
	}
	return a.mirror.MirroredBody(ctx, project.Slug, doc.String()), nil
}

// durableThumbnails returns a copy of projects whose thumbnails point at
// their mirrored copies where the manifest has one. Nothing is downloaded.
func (a *App) durableThumbnails(ctx context.Context, projects []content.Project) []content.Project {
	out := make([]content.Project, len(projects))
	copy(out, projects)
	for i := range out {
		if out[i].Thumbnail == "" {
			continue
		}
		if u, ok := a.mirror.URL(ctx, out[i].Slug); ok {
			out[i].Thumbnail = u
		}
	}
	return out
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	return a.renderSitemap(c, a.Posts.Get(ctx), a.Projects.Get(ctx))
}

func (a *App) handleFeed(c echo.Context) error {
	return a.renderRSS(c, a.Posts.Get(c.Request().Context()))
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nAllow: /\nDisallow: /admin\nDisallow: /api/\n\nSitemap: " +
		strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) renderNotFound(c echo.Context) error {
	if a.Views.NotFound == nil {
		return echo.ErrNotFound
	}
	return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}
	if code >= 500 {
		a.log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("server error")
	}

	if isAPIPath(c.Request().URL.Path) {
		msg := http.StatusText(code)
		if he != nil && code < 500 {
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		}
		_ = c.JSON(code, errorBody{Error: msg})
		return
	}
	switch {
	case code == http.StatusNotFound && a.Views.NotFound != nil:
		_ = RenderStatus(c, code, a.Views.NotFound())
	case code >= 500 && a.Views.ServerError != nil:
		_ = RenderStatus(c, code, a.Views.ServerError())
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
