package folio

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/folio-site/folio/content"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

type contentBody struct {
	Content string `json:"content"`
}

type postBody struct {
	content.Post
	Content string `json:"content"`
}

type refreshBody struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type revalidateBody struct {
	Revalidated bool   `json:"revalidated"`
	Now         int64  `json:"now"`
	Message     string `json:"message,omitempty"`
}

type cacheEntryBody struct {
	ProjectSlug   string `json:"projectSlug"`
	BlobURL       string `json:"blobUrl"`
	UploadedAt    string `json:"uploadedAt"`
	ContentImages int    `json:"contentImages"`
}

type syncStatusBody struct {
	Success      bool             `json:"success"`
	CachedImages int              `json:"cachedImages"`
	Cache        []cacheEntryBody `json:"cache"`
}

func (a *App) handleAPIPosts(c echo.Context) error {
	posts := a.Posts.Get(c.Request().Context())
	if tag := strings.TrimSpace(c.QueryParam("tag")); tag != "" {
		posts = content.WithTag(posts, tag)
	}
	if posts == nil {
		posts = []content.Post{}
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleAPIPost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Posts.Lookup(ctx, c.Param("slug"))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorBody{Error: "Post not found"})
	}
	doc, err := a.blog.Body(ctx, post.ID)
	if err != nil {
		a.log.Error().Err(err).Str("slug", post.Slug).Msg("fetch post body")
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "Failed to fetch post"})
	}
	return c.JSON(http.StatusOK, postBody{Post: post, Content: doc.String()})
}

func (a *App) handleAPITags(c echo.Context) error {
	return c.JSON(http.StatusOK, content.Tags(a.Posts.Get(c.Request().Context())))
}

func (a *App) handleAPIProjects(c echo.Context) error {
	ctx := c.Request().Context()
	projects := a.Projects.Get(ctx)
	if c.QueryParam("featured") == "true" {
		projects = content.Featured(projects)
	}
	return c.JSON(http.StatusOK, a.durableThumbnails(ctx, projects))
}

func (a *App) handleAPITechnologies(c echo.Context) error {
	return c.JSON(http.StatusOK, content.Technologies(a.Projects.Get(c.Request().Context())))
}

func (a *App) handleProjectContent(c echo.Context) error {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "Slug is required"})
	}
	ctx := c.Request().Context()
	project, err := a.Projects.Lookup(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorBody{Error: "Project not found"})
	}
	body, err := a.ProjectBody(ctx, project)
	if err != nil {
		a.log.Error().Err(err).Str("slug", slug).Msg("fetch project body")
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "Failed to fetch project"})
	}
	return c.JSON(http.StatusOK, contentBody{Content: body})
}

// RefreshPortfolio clears the project cache and revalidates the pages that
// show projects.
func (a *App) RefreshPortfolio() {
	a.Projects.Invalidate()
	a.Pages.Revalidate("/")
	a.Pages.Revalidate("/portfolio")
	a.Pages.Revalidate("/portfolio/[slug]")
	a.log.Info().Msg("portfolio cache cleared and pages revalidated")
}

func (a *App) handleRefresh(c echo.Context) error {
	a.RefreshPortfolio()
	msg := "Portfolio cache cleared and pages revalidated"
	if c.Request().Method == http.MethodGet {
		msg = "Portfolio cache cleared (public endpoint - use POST with auth for production)"
	}
	return c.JSON(http.StatusOK, refreshBody{
		Success:   true,
		Message:   msg,
		Timestamp: isoTime(a.now()),
	})
}

func (a *App) handleSyncImages(c echo.Context) error {
	opts := SyncOptions{
		Force:   c.QueryParam("force") == "true",
		Project: c.QueryParam("project"),
	}
	report, err := a.SyncImages(c.Request().Context(), opts)
	if errors.Is(err, ErrNotFound) {
		msg := "No projects found"
		if opts.Project != "" {
			msg = fmt.Sprintf("Project %q not found", opts.Project)
		}
		return c.JSON(http.StatusNotFound, errorBody{Error: msg})
	}
	if err != nil {
		a.log.Error().Err(err).Msg("sync portfolio images")
		return c.JSON(http.StatusInternalServerError, errorBody{
			Error:   "Failed to sync portfolio images",
			Details: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, report)
}

func (a *App) handleSyncStatus(c echo.Context) error {
	entries, err := a.mirror.Entries(c.Request().Context())
	if err != nil {
		a.log.Error().Err(err).Msg("load asset manifest")
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "Failed to load cache"})
	}
	cache := make([]cacheEntryBody, 0, len(entries))
	for _, e := range entries {
		cache = append(cache, cacheEntryBody{
			ProjectSlug:   e.ProjectSlug,
			BlobURL:       e.BlobURL,
			UploadedAt:    e.UploadedAt,
			ContentImages: len(e.ContentImages),
		})
	}
	return c.JSON(http.StatusOK, syncStatusBody{
		Success:      true,
		CachedImages: len(entries),
		Cache:        cache,
	})
}

// RevalidateBlog clears the post cache and evicts the rendered pages for
// one post, one path, or every blog page when both are empty.
func (a *App) RevalidateBlog(slug, path string) {
	a.Posts.Invalidate()
	switch {
	case slug != "":
		a.Pages.Revalidate("/blog/" + slug)
		a.log.Info().Str("path", "/blog/"+slug).Msg("revalidated")
	case path != "":
		a.Pages.Revalidate(path)
		a.log.Info().Str("path", path).Msg("revalidated")
	default:
		a.Pages.Revalidate("/blog")
		a.Pages.Revalidate("/blog/[slug]")
		a.Pages.Revalidate("/")
		a.log.Info().Msg("revalidated all blog paths")
	}
}

func (a *App) handleRevalidate(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		a.RevalidateBlog("", "")
		return c.JSON(http.StatusOK, revalidateBody{Revalidated: true, Now: a.now().UnixMilli()})
	}

	// The body is optional; anything unparsable means "everything".
	var body struct {
		Path string `json:"path"`
		Slug string `json:"slug"`
	}
	if c.Request().Body != nil {
		_ = json.NewDecoder(c.Request().Body).Decode(&body)
	}
	a.RevalidateBlog(strings.TrimSpace(body.Slug), strings.TrimSpace(body.Path))
	return c.JSON(http.StatusOK, revalidateBody{
		Revalidated: true,
		Now:         a.now().UnixMilli(),
		Message:     "Cache cleared and pages revalidated",
	})
}
