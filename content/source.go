package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/folio-site/folio/markdown"
	"github.com/folio-site/folio/notion"
)

// ErrNotConfigured is returned when a source has no database to read from.
var ErrNotConfigured = errors.New("content: database not configured")

// Querier lists the pages of a database.
type Querier interface {
	QueryDatabase(ctx context.Context, databaseID string, q notion.Query) ([]notion.Page, error)
}

// BlockLister lists the direct children of a block.
type BlockLister interface {
	BlockChildren(ctx context.Context, blockID string) ([]notion.Block, error)
}

// Workspace is everything a source needs from the remote workspace.
// *notion.Client satisfies it.
type Workspace interface {
	Querier
	BlockLister
}

// BlogConfig selects the blog database and how its pages are read.
type BlogConfig struct {
	DatabaseID string
	Schema     PostSchema
	// SortProperty is a date property the query sorts on, newest first.
	// Empty means no remote sort.
	SortProperty string
}

// Blog reads posts from the blog database.
type Blog struct {
	ws   Workspace
	cfg  BlogConfig
	conv *Converter
	log  zerolog.Logger
}

func NewBlog(ws Workspace, cfg BlogConfig, log zerolog.Logger) *Blog {
	if len(cfg.Schema.Title) == 0 {
		cfg.Schema = DefaultPostSchema
	}
	return &Blog{
		ws:   ws,
		cfg:  cfg,
		conv: NewConverter(ws),
		log:  log.With().Str("component", "blog").Logger(),
	}
}

// Posts returns every published post with a usable slug, newest first.
func (b *Blog) Posts(ctx context.Context) ([]Post, error) {
	if b.cfg.DatabaseID == "" {
		return nil, ErrNotConfigured
	}
	var q notion.Query
	if b.cfg.SortProperty != "" {
		q.Sorts = []notion.Sort{{Property: b.cfg.SortProperty, Direction: "descending"}}
	}
	pages, err := b.ws.QueryDatabase(ctx, b.cfg.DatabaseID, q)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	posts := make([]Post, 0, len(pages))
	for _, p := range pages {
		post := TransformPost(p, b.cfg.Schema)
		if post.Published {
			posts = append(posts, post)
		}
	}
	posts = resolveSlugs(posts, func(p *Post) *string { return &p.Slug })
	SortPostsByDate(posts)

	b.log.Debug().Int("pages", len(pages)).Int("posts", len(posts)).Msg("fetched posts")
	return posts, nil
}

// Body returns the converted body of a post page.
func (b *Blog) Body(ctx context.Context, pageID string) (markdown.Document, error) {
	doc, err := b.conv.Document(ctx, pageID)
	if err != nil {
		return markdown.Document{}, fmt.Errorf("post body %s: %w", pageID, err)
	}
	return doc, nil
}

// PortfolioConfig selects the portfolio database.
type PortfolioConfig struct {
	DatabaseID string
	Schema     ProjectSchema
}

// Portfolio reads projects from the portfolio database, which lives in a
// workspace of its own.
type Portfolio struct {
	ws   Workspace
	cfg  PortfolioConfig
	conv *Converter
	log  zerolog.Logger
}

func NewPortfolio(ws Workspace, cfg PortfolioConfig, log zerolog.Logger) *Portfolio {
	if len(cfg.Schema.Title) == 0 {
		cfg.Schema = DefaultProjectSchema
	}
	return &Portfolio{
		ws:   ws,
		cfg:  cfg,
		conv: NewConverter(ws),
		log:  log.With().Str("component", "portfolio").Logger(),
	}
}

// Projects returns every project with a usable slug in display order. The
// query is unsorted so that databases without an Order column still work.
func (p *Portfolio) Projects(ctx context.Context) ([]Project, error) {
	if p.cfg.DatabaseID == "" {
		return nil, ErrNotConfigured
	}
	pages, err := p.ws.QueryDatabase(ctx, p.cfg.DatabaseID, notion.Query{})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]Project, 0, len(pages))
	for _, page := range pages {
		projects = append(projects, TransformProject(page, p.cfg.Schema))
	}
	projects = resolveSlugs(projects, func(pr *Project) *string { return &pr.Slug })
	SortProjects(projects)

	p.log.Debug().Int("projects", len(projects)).Msg("fetched projects")
	return projects, nil
}

// Body returns the converted body of a project page.
func (p *Portfolio) Body(ctx context.Context, pageID string) (markdown.Document, error) {
	doc, err := p.conv.Document(ctx, pageID)
	if err != nil {
		return markdown.Document{}, fmt.Errorf("project body %s: %w", pageID, err)
	}
	return doc, nil
}
