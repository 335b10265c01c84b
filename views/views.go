// Package views provides plain, dependency-free default pages for a folio
// site. Sites that want their own look replace them with templ templates.
package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/folio-site/folio"
	"github.com/folio-site/folio/content"
	"github.com/folio-site/folio/mirror"
)

// Default returns ViewFuncs that render every page with the built-in layout.
func Default(site Site) folio.ViewFuncs {
	v := defaults{site: site}
	return folio.ViewFuncs{
		Home:           v.home,
		Blog:           v.blog,
		Post:           v.post,
		Portfolio:      v.portfolio,
		Project:        v.project,
		AdminLogin:     v.adminLogin,
		AdminDashboard: v.adminDashboard,
		NotFound:       v.notFound,
		ServerError:    v.serverError,
	}
}

type defaults struct {
	site Site
}

func (v defaults) layout(meta PageMeta, body func(ctx context.Context, p *page) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &page{w: w}
		title := v.site.Name
		if meta.Title != "" {
			title = meta.Title + " | " + v.site.Name
		}
		desc := meta.Description
		if desc == "" {
			desc = v.site.Description
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}

		p.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw("<title>")
		p.text(title)
		p.raw("</title>")
		p.raw(`<meta name="description"`)
		p.attr("content", desc)
		p.raw(`><meta property="og:title"`)
		p.attr("content", title)
		p.raw(`><meta property="og:type"`)
		p.attr("content", ogType)
		p.raw(">")
		if meta.URL != "" {
			p.raw(`<link rel="canonical"`)
			p.href(meta.URL)
			p.raw(`><meta property="og:url"`)
			p.attr("content", meta.URL)
			p.raw(">")
		}
		if meta.Image != "" {
			p.raw(`<meta property="og:image"`)
			p.attr("content", meta.Image)
			p.raw(">")
		}
		p.raw(`<link rel="alternate" type="application/rss+xml" title="RSS" href="/feed.xml">`,
			`<link rel="stylesheet" href="/public/site.css"></head><body>`)

		p.raw(`<header><nav><a href="/" class="brand">`)
		p.text(v.site.Name)
		p.raw(`</a> <a href="/blog">Blog</a> <a href="/portfolio">Portfolio</a></nav></header><main>`)
		if p.err != nil {
			return p.err
		}
		if err := body(ctx, p); err != nil {
			return err
		}
		p.raw(`</main><footer>&copy; `)
		p.text(v.site.Name)
		p.raw(`</footer></body></html>`)
		return p.err
	})
}

func (v defaults) postList(p *page, posts []content.Post) {
	p.raw(`<ul class="posts">`)
	for _, post := range posts {
		p.raw("<li><a")
		p.href(post.Link())
		p.raw(">")
		p.text(post.Title)
		p.raw("</a>")
		if post.Date != "" {
			p.raw(` <time>`)
			p.text(post.Date)
			p.raw("</time>")
		}
		if post.Description != "" {
			p.raw("<p>")
			p.text(post.Description)
			p.raw("</p>")
		}
		p.raw("</li>")
	}
	p.raw("</ul>")
}

func (v defaults) projectCards(p *page, projects []content.Project) {
	p.raw(`<div class="projects">`)
	for _, pr := range projects {
		p.raw(`<article class="project"><a`)
		p.href(pr.Href())
		p.raw(">")
		if pr.Thumbnail != "" {
			p.raw(`<img loading="lazy" src="`, templ.EscapeString(pr.Thumbnail), `"`)
			p.attr("alt", pr.Title)
			p.raw(">")
		}
		p.raw("<h3>")
		p.text(pr.Title)
		p.raw("</h3></a>")
		if pr.Description != "" {
			p.raw("<p>")
			p.text(pr.Description)
			p.raw("</p>")
		}
		if len(pr.Technologies) > 0 {
			p.raw(`<p class="tech">`)
			p.text(folio.JoinTags(pr.Technologies))
			p.raw("</p>")
		}
		p.raw("</article>")
	}
	p.raw("</div>")
}

func (v defaults) home(posts []content.Post, projects []content.Project, siteURL string) templ.Component {
	return v.layout(PageMeta{URL: folio.BuildURL(siteURL)}, func(_ context.Context, p *page) error {
		p.raw("<h1>")
		p.text(v.site.Name)
		p.raw("</h1>")
		if v.site.Description != "" {
			p.raw(`<p class="lead">`)
			p.text(v.site.Description)
			p.raw("</p>")
		}
		if len(projects) > 0 {
			p.raw(`<section><h2>Projects</h2>`)
			v.projectCards(p, projects)
			p.raw(`</section>`)
		}
		if len(posts) > 0 {
			p.raw(`<section><h2>Latest posts</h2>`)
			v.postList(p, posts[:min(5, len(posts))])
			p.raw(`</section>`)
		}
		return p.err
	})
}

func (v defaults) blog(posts []content.Post, activeTag string, tags []string) templ.Component {
	title := "Blog"
	if activeTag != "" {
		title = "Posts tagged " + activeTag
	}
	return v.layout(PageMeta{Title: title, URL: folio.BuildURL(v.site.URL, "blog")}, func(_ context.Context, p *page) error {
		p.raw("<h1>")
		p.text(title)
		p.raw("</h1>")
		p.tags(tags, activeTag)
		if len(posts) == 0 {
			p.raw(`<p class="empty">No posts yet.</p>`)
			return p.err
		}
		v.postList(p, posts)
		return p.err
	})
}

func (v defaults) post(post content.Post, body templ.Component, related []content.Post, siteURL string) templ.Component {
	meta := PageMeta{
		Title:       post.Title,
		Description: post.Description,
		URL:         folio.BuildURL(siteURL, "blog", post.Slug),
		OGType:      "article",
		Image:       post.Thumbnail,
	}
	return v.layout(meta, func(ctx context.Context, p *page) error {
		p.raw("<article><header><h1>")
		p.text(post.Title)
		p.raw("</h1>")
		if post.Date != "" {
			p.raw("<time>")
			p.text(post.Date)
			p.raw("</time>")
		}
		if post.Author != "" {
			p.raw(` <span class="author">`)
			p.text(post.Author)
			p.raw("</span>")
		}
		if post.ReadTime != "" {
			p.raw(` <span class="read-time">`)
			p.text(post.ReadTime)
			p.raw("</span>")
		}
		p.tags(post.Tags, "")
		p.raw(`</header><div class="prose">`)
		if p.err != nil {
			return p.err
		}
		if err := body.Render(ctx, p.w); err != nil {
			return err
		}
		p.raw("</div></article>")
		if len(related) > 0 {
			p.raw(`<aside><h2>Related</h2>`)
			v.postList(p, related)
			p.raw("</aside>")
		}
		return p.err
	})
}

func (v defaults) portfolio(projects []content.Project, technologies []string) templ.Component {
	return v.layout(PageMeta{Title: "Portfolio", URL: folio.BuildURL(v.site.URL, "portfolio")}, func(_ context.Context, p *page) error {
		p.raw("<h1>Portfolio</h1>")
		if len(technologies) > 0 {
			p.raw(`<p class="tech">`)
			p.text(folio.JoinTags(technologies))
			p.raw("</p>")
		}
		v.projectCards(p, projects)
		return p.err
	})
}

func (v defaults) project(project content.Project, body templ.Component) templ.Component {
	meta := PageMeta{
		Title:       project.Title,
		Description: project.Description,
		URL:         folio.BuildURL(v.site.URL, "portfolio", project.Slug),
		OGType:      "article",
		Image:       project.Thumbnail,
	}
	return v.layout(meta, func(ctx context.Context, p *page) error {
		p.raw("<article><header><h1>")
		p.text(project.Title)
		p.raw("</h1>")
		if project.Role != "" {
			p.raw(`<p class="role">`)
			p.text(project.Role)
			p.raw("</p>")
		}
		if project.Dates != "" {
			p.raw("<time>")
			p.text(project.Dates)
			p.raw("</time>")
		}
		if len(project.Links) > 0 {
			p.raw(`<ul class="links">`)
			for _, l := range project.Links {
				p.raw(`<li><a rel="noopener"`)
				p.href(l.URL)
				p.raw(">")
				p.text(l.Type)
				p.raw("</a></li>")
			}
			p.raw("</ul>")
		}
		p.raw(`</header><div class="prose">`)
		if p.err != nil {
			return p.err
		}
		if err := body.Render(ctx, p.w); err != nil {
			return err
		}
		p.raw("</div></article>")
		return p.err
	})
}

func (v defaults) adminLogin(showError bool, csrfToken string) templ.Component {
	return v.layout(PageMeta{Title: "Operator"}, func(_ context.Context, p *page) error {
		p.raw(`<h1>Operator login</h1>`)
		if showError {
			p.raw(`<p class="error">Wrong password.</p>`)
		}
		p.raw(`<form method="post" action="/admin/login"><input type="hidden" name="_csrf"`)
		p.attr("value", csrfToken)
		p.raw(`><input type="password" name="password" autofocus required><button>Log in</button></form>`)
		return p.err
	})
}

func (v defaults) adminDashboard(entries []mirror.Entry, projects []content.Project, message string, csrfToken string) templ.Component {
	return v.layout(PageMeta{Title: "Operator"}, func(_ context.Context, p *page) error {
		csrf := func() {
			p.raw(`<input type="hidden" name="_csrf"`)
			p.attr("value", csrfToken)
			p.raw(">")
		}
		p.raw(`<h1>Operator</h1>`)
		if message != "" {
			p.raw(`<p class="message">`)
			p.text(message)
			p.raw("</p>")
		}
		p.raw(`<form method="post" action="/admin/sync">`)
		csrf()
		p.raw(`<label><input type="checkbox" name="force" value="1"> force</label> <button>Sync images</button></form>`)
		p.raw(`<form method="post" action="/admin/refresh">`)
		csrf()
		p.raw(`<button>Clear caches</button></form>`)

		mirrored := make(map[string]mirror.Entry, len(entries))
		for _, e := range entries {
			mirrored[e.ProjectSlug] = e
		}
		p.raw(`<table><thead><tr><th>Project</th><th>Thumbnail</th><th>Body images</th><th>Uploaded</th><th></th></tr></thead><tbody>`)
		for _, pr := range projects {
			e, ok := mirrored[pr.Slug]
			p.raw("<tr><td>")
			p.text(pr.Slug)
			p.raw("</td><td>")
			if ok && e.BlobURL != "" {
				p.raw("<a")
				p.href(e.BlobURL)
				p.raw(">mirrored</a>")
			} else {
				p.raw("-")
			}
			p.raw("</td><td>")
			p.text(strconv.Itoa(len(e.ContentImages)))
			p.raw("</td><td>")
			p.text(e.UploadedAt)
			p.raw("</td><td>")
			if ok {
				p.raw(`<form method="post" action="/admin/clear/`, templ.EscapeString(folio.PathEscape(pr.Slug)), `">`)
				csrf()
				p.raw(`<button>Clear</button></form>`)
			}
			p.raw("</td></tr>")
		}
		p.raw(`</tbody></table><form method="post" action="/admin/logout">`)
		csrf()
		p.raw(`<button>Log out</button></form>`)
		return p.err
	})
}

func (v defaults) notFound() templ.Component {
	return v.layout(PageMeta{Title: "Not found"}, func(_ context.Context, p *page) error {
		p.raw(`<h1>Not found</h1><p>The page you are looking for does not exist.</p><p><a href="/">Home</a></p>`)
		return p.err
	})
}

func (v defaults) serverError() templ.Component {
	return v.layout(PageMeta{Title: "Error"}, func(_ context.Context, p *page) error {
		p.raw(`<h1>Something went wrong</h1><p>Please try again in a moment.</p>`)
		return p.err
	})
}
