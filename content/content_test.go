package content

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-site/folio/markdown"
	"github.com/folio-site/folio/notion"
)

func runs(s string) []notion.RichText { return []notion.RichText{{PlainText: s}} }

func titleProp(s string) notion.Property {
	return notion.Property{Type: "title", Title: runs(s)}
}

func textProp(s string) notion.Property {
	return notion.Property{Type: "rich_text", RichText: runs(s)}
}

func statusProp(s string) notion.Property {
	return notion.Property{Type: "status", Status: &notion.Option{Name: s}}
}

func selectProp(s string) notion.Property {
	return notion.Property{Type: "select", Select: &notion.Option{Name: s}}
}

func multiProp(names ...string) notion.Property {
	p := notion.Property{Type: "multi_select"}
	for _, n := range names {
		p.MultiSelect = append(p.MultiSelect, notion.Option{Name: n})
	}
	return p
}

func checkboxProp(v bool) notion.Property {
	return notion.Property{Type: "checkbox", Checkbox: v}
}

func urlProp(s string) notion.Property {
	return notion.Property{Type: "url", URL: &s}
}

func dateProp(s string) notion.Property {
	return notion.Property{Type: "date", Date: &notion.DateValue{Start: s}}
}

func numberProp(n float64) notion.Property {
	return notion.Property{Type: "number", Number: &n}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World!", "hello-world"},
		{"  Go & Rust: 2024 ", "go-rust-2024"},
		{"already-a-slug", "already-a-slug"},
		{"--Leading and trailing--", "leading-and-trailing"},
		{"C++ / C#", "c-c"},
		{"---", ""},
		{"", ""},
		{"Привет мир", "privet-mir"},
	}
	for _, tt := range tests {
		got := Slugify(tt.in)
		if got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := Slugify(got); again != got {
			t.Errorf("Slugify not idempotent for %q: %q then %q", tt.in, got, again)
		}
	}
}

func TestResolveSlugs(t *testing.T) {
	posts := []Post{
		{ID: "1", Slug: "notes"},
		{ID: "2", Slug: ""},
		{ID: "3", Slug: "notes"},
		{ID: "4", Slug: "other"},
		{ID: "5", Slug: "notes"},
	}
	got := resolveSlugs(posts, func(p *Post) *string { return &p.Slug })

	var slugs []string
	for _, p := range got {
		slugs = append(slugs, p.ID+":"+p.Slug)
	}
	assert.Equal(t, []string{"1:notes", "3:notes-2", "4:other", "5:notes-3"}, slugs)
}

func TestTransformProjectHelloWorld(t *testing.T) {
	page := notion.Page{
		ID: "p1",
		Properties: notion.Properties{
			"Name":         titleProp("Hello World!"),
			"Description":  textProp("A test."),
			"Technologies": multiProp("Go", "Rust"),
			"Active":       checkboxProp(true),
		},
	}
	got := TransformProject(page, DefaultProjectSchema)

	assert.Equal(t, "hello-world", got.Slug)
	assert.Equal(t, "Hello World!", got.Title)
	assert.Equal(t, "A test.", got.Description)
	assert.Equal(t, []string{"Go", "Rust"}, got.Technologies)
	assert.True(t, got.Active)
	assert.False(t, got.Featured)
	assert.Equal(t, 0, got.Order)
	assert.Empty(t, got.Links)
	assert.Equal(t, "/portfolio/hello-world", got.Href())
}

func TestTransformProjectFallbacks(t *testing.T) {
	page := notion.Page{
		ID:   "p2",
		Icon: &notion.Icon{Type: "emoji", Emoji: "🚀"},
		Properties: notion.Properties{
			"Title":        titleProp("Second Try"),
			"Technologies": multiProp(),
			"Tech Stack":   multiProp("Go", "Go", "SQLite"),
			"Status":       selectProp("Active"),
			"Image": {Type: "files", Files: []notion.File{{
				Type:     "external",
				External: &notion.FileURL{URL: "https://img.example.com/t.png"},
			}}},
			"My Role": selectProp("Lead"),
			"Links":   textProp("Demo: https://demo.example.com\nhttps://bare.example.com\nnot a link"),
			"Website": urlProp("https://site.example.com"),
			"GitHub":  urlProp("https://github.com/x/y"),
			"Order":   numberProp(0),
			"Sort":    numberProp(4),
		},
	}
	got := TransformProject(page, DefaultProjectSchema)

	assert.Equal(t, "second-try", got.Slug)
	assert.True(t, got.Active)
	assert.Equal(t, []string{"Go", "SQLite"}, got.Technologies)
	assert.Equal(t, "https://img.example.com/t.png", got.Thumbnail)
	assert.Equal(t, "Lead", got.Role)
	assert.Equal(t, 4, got.Order)
	assert.Equal(t, []Link{
		{Type: "Demo", URL: "https://demo.example.com"},
		{Type: "Link", URL: "https://bare.example.com"},
		{Type: "Website", URL: "https://site.example.com"},
		{Type: "Source", URL: "https://github.com/x/y"},
	}, got.Links)
}

func TestTransformProjectCoverWins(t *testing.T) {
	page := notion.Page{
		Cover: &notion.File{Type: "file", File: &notion.FileURL{URL: "https://prod-files-secure.s3.us-west-2.amazonaws.com/c.png"}},
		Icon:  &notion.Icon{Type: "external", External: &notion.FileURL{URL: "https://icons.example.com/i.png"}},
		Properties: notion.Properties{
			"Name":      titleProp("Covered"),
			"Thumbnail": urlProp("https://img.example.com/t.png"),
		},
	}
	got := TransformProject(page, DefaultProjectSchema)
	assert.Equal(t, "https://prod-files-secure.s3.us-west-2.amazonaws.com/c.png", got.Thumbnail)

	page.Cover = nil
	got = TransformProject(page, DefaultProjectSchema)
	assert.Equal(t, "https://icons.example.com/i.png", got.Thumbnail)
}

func TestTransformPostPublished(t *testing.T) {
	tests := []struct {
		name   string
		status *notion.Property
		want   bool
	}{
		{"no status property", nil, true},
		{"draft", ptr(statusProp("Draft")), false},
		{"live", ptr(statusProp("Live")), true},
		{"lowercase done as select", ptr(selectProp("done")), true},
		{"status with no value", ptr(notion.Property{Type: "status"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := notion.Properties{"Title": titleProp("Post")}
			if tt.status != nil {
				ps["Status"] = *tt.status
			}
			got := TransformPost(notion.Page{ID: "x", Properties: ps}, DefaultPostSchema)
			if got.Published != tt.want {
				t.Errorf("Published = %v, want %v", got.Published, tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestTransformPostFields(t *testing.T) {
	page := notion.Page{
		ID:          "post-1",
		CreatedTime: "2024-05-01T08:00:00.000Z",
		Properties: notion.Properties{
			"Name":           titleProp("Why Go?"),
			"Slug":           textProp("Custom Slug"),
			"Summary":        textProp("Short answer: yes."),
			"Tags":           multiProp("go", "opinion"),
			"Category":       selectProp("go"),
			"Featured":       checkboxProp(true),
			"Featured Image": urlProp("https://img.example.com/f.png"),
			"Created by":     {Type: "created_by", CreatedBy: &notion.User{Name: "Grace"}},
			"Read Time":      textProp("4 min"),
		},
	}
	got := TransformPost(page, DefaultPostSchema)

	assert.Equal(t, "post-1", got.ID)
	assert.Equal(t, "custom-slug", got.Slug)
	assert.Equal(t, "Why Go?", got.Title)
	assert.Equal(t, "Short answer: yes.", got.Description)
	assert.Equal(t, []string{"go", "opinion"}, got.Tags)
	assert.Equal(t, "2024-05-01T08:00:00.000Z", got.Date)
	assert.True(t, got.Published)
	assert.True(t, got.Featured)
	assert.Equal(t, "https://img.example.com/f.png", got.Thumbnail)
	assert.Equal(t, "Grace", got.Author)
	assert.Equal(t, "4 min", got.ReadTime)
	assert.Equal(t, "/blog/custom-slug", got.Link())
}

func TestTransformPostEmptyTitle(t *testing.T) {
	got := TransformPost(notion.Page{Properties: notion.Properties{}}, DefaultPostSchema)
	assert.Equal(t, "", got.Slug)
	assert.NotNil(t, got.Tags)
}

func TestSortProjects(t *testing.T) {
	projects := []Project{
		{Title: "zeta"},
		{Title: "Alpha"},
		{Title: "Beta", Featured: true},
		{Title: "Ordered Two", Order: 2},
		{Title: "Ordered One", Order: 1},
	}
	SortProjects(projects)

	var titles []string
	for _, p := range projects {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"Beta", "Alpha", "Ordered One", "Ordered Two", "zeta"}, titles)
}

func TestPostHelpers(t *testing.T) {
	posts := []Post{
		{ID: "1", Date: "2024-01-01", Tags: []string{"go", "web"}},
		{ID: "2", Date: "2024-03-01", Tags: []string{"rust"}},
		{ID: "3", Date: "2024-02-01", Tags: []string{"go"}},
		{ID: "4", Date: "2024-02-15", Tags: []string{"go", "web"}},
	}
	assert.Equal(t, []string{"go", "rust", "web"}, Tags(posts))
	assert.Len(t, WithTag(posts, "go"), 3)

	related := Related(posts, posts[0], 2)
	require.Len(t, related, 2)
	assert.Equal(t, "4", related[0].ID)
	assert.Equal(t, "3", related[1].ID)

	SortPostsByDate(posts)
	assert.Equal(t, "2", posts[0].ID)
	assert.Equal(t, "1", posts[3].ID)
}

func TestClassifyEmbed(t *testing.T) {
	tests := []struct {
		in   string
		kind markdown.EmbedKind
		want string
	}{
		{"https://open.spotify.com/track/123", markdown.EmbedSpotify, "https://open.spotify.com/embed/track/123"},
		{"https://open.spotify.com/embed/playlist/9", markdown.EmbedSpotify, "https://open.spotify.com/embed/playlist/9"},
		{"https://www.youtube.com/watch?v=abc123&t=10", markdown.EmbedYouTube, "https://www.youtube.com/embed/abc123"},
		{"https://youtu.be/xyz?si=share", markdown.EmbedYouTube, "https://www.youtube.com/embed/xyz"},
		{"https://www.youtube.com/embed/keep", markdown.EmbedYouTube, "https://www.youtube.com/embed/keep"},
		{"https://www.youtube.com/@channel", markdown.EmbedGeneric, "https://www.youtube.com/@channel"},
		{"https://codepen.io/pen/1", markdown.EmbedGeneric, "https://codepen.io/pen/1"},
	}
	for _, tt := range tests {
		got := ClassifyEmbed(tt.in)
		if got.Kind != tt.kind || got.URL != tt.want {
			t.Errorf("ClassifyEmbed(%q) = %v %q, want %v %q", tt.in, got.Kind, got.URL, tt.kind, tt.want)
		}
	}
}

func block(typ string, c notion.BlockContent, children ...notion.Block) notion.Block {
	return notion.Block{Type: typ, Content: c, Children: children, HasChildren: len(children) > 0}
}

func TestConvert(t *testing.T) {
	blocks := []notion.Block{
		block("heading_2", notion.BlockContent{RichText: runs("Intro")}),
		block("paragraph", notion.BlockContent{RichText: []notion.RichText{
			{PlainText: "Use "},
			{PlainText: "go test", Annotations: notion.Annotations{Code: true}},
			{PlainText: " now, "},
			{PlainText: "bold ", Annotations: notion.Annotations{Bold: true}},
			{PlainText: "end"},
		}}),
		block("bulleted_list_item", notion.BlockContent{RichText: runs("a")}),
		block("bulleted_list_item", notion.BlockContent{RichText: runs("b")},
			block("bulleted_list_item", notion.BlockContent{RichText: runs("b1")})),
		block("code", notion.BlockContent{Language: "Go Lang", RichText: runs("fmt.Println(\"```\")")}),
		block("embed", notion.BlockContent{URL: "https://open.spotify.com/track/123"}),
		block("paragraph", notion.BlockContent{}),
		block("divider", notion.BlockContent{}),
	}
	doc := Convert(blocks)

	require.Len(t, doc.Blocks, 6)
	assert.IsType(t, markdown.Code{}, doc.Blocks[3])
	assert.Equal(t, markdown.Embed{Kind: markdown.EmbedSpotify, URL: "https://open.spotify.com/embed/track/123"}, doc.Blocks[4])

	want := "## Intro\n\n" +
		"Use `go test` now, **bold** end\n\n" +
		"- a\n- b\n    - b1\n\n" +
		"````GoLang\nfmt.Println(\"```\")\n````\n\n" +
		"[spotify-embed](https://open.spotify.com/embed/track/123)\n\n" +
		"---"
	assert.Equal(t, want, doc.String())
}

func TestConvertMedia(t *testing.T) {
	ext := func(u string) notion.BlockContent {
		return notion.BlockContent{Type: "external", External: &notion.FileURL{URL: u}}
	}
	doc := Convert([]notion.Block{
		block("video", ext("https://youtu.be/v1")),
		block("video", ext("https://cdn.example.com/v.mp4")),
		block("image", notion.BlockContent{Type: "file", File: &notion.FileURL{URL: "https://prod-files-secure.s3.us-west-2.amazonaws.com/a.png"}, Caption: runs("diagram")}),
		block("toggle", notion.BlockContent{RichText: runs("More")},
			block("code", notion.BlockContent{RichText: runs("x := 1")})),
	})

	require.Len(t, doc.Blocks, 5)
	assert.Equal(t, markdown.Embed{Kind: markdown.EmbedYouTube, URL: "https://www.youtube.com/embed/v1"}, doc.Blocks[0])
	assert.Equal(t, markdown.Text{Markdown: "[video](https://cdn.example.com/v.mp4)"}, doc.Blocks[1])
	assert.Equal(t, markdown.Text{Markdown: "![diagram](https://prod-files-secure.s3.us-west-2.amazonaws.com/a.png)"}, doc.Blocks[2])
	assert.Equal(t, markdown.Text{Markdown: "**More**"}, doc.Blocks[3])
	assert.Equal(t, markdown.Code{Source: "x := 1"}, doc.Blocks[4])
}

func TestConvertTable(t *testing.T) {
	row := func(cells ...string) notion.Block {
		c := notion.BlockContent{}
		for _, s := range cells {
			c.Cells = append(c.Cells, runs(s))
		}
		return block("table_row", c)
	}
	doc := Convert([]notion.Block{
		block("table", notion.BlockContent{HasColumnHeader: true}, row("Name", "Lang"), row("folio", "Go|templ")),
	})
	assert.Equal(t, "| Name | Lang |\n| --- | --- |\n| folio | Go\\|templ |", doc.String())
}

type fakeWorkspace struct {
	pages    []notion.Page
	children map[string][]notion.Block
	err      error

	queries []notion.Query
	listed  []string
}

func (f *fakeWorkspace) QueryDatabase(_ context.Context, _ string, q notion.Query) ([]notion.Page, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

func (f *fakeWorkspace) BlockChildren(_ context.Context, id string) ([]notion.Block, error) {
	f.listed = append(f.listed, id)
	if f.err != nil {
		return nil, f.err
	}
	return f.children[id], nil
}

func postPage(id, title, status, date string) notion.Page {
	return notion.Page{ID: id, Properties: notion.Properties{
		"Title":          titleProp(title),
		"Status":         statusProp(status),
		"Published Date": dateProp(date),
	}}
}

func TestBlogPosts(t *testing.T) {
	ws := &fakeWorkspace{pages: []notion.Page{
		postPage("p1", "First Post", "Published", "2024-01-01"),
		postPage("p2", "Second", "Draft", "2024-02-01"),
		postPage("p3", "First Post", "Live", "2024-03-01"),
		postPage("p4", "", "Published", "2024-04-01"),
	}}
	blog := NewBlog(ws, BlogConfig{DatabaseID: "db", SortProperty: "Published Date"}, zerolog.Nop())

	posts, err := blog.Posts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p3", posts[0].ID)
	assert.Equal(t, "first-post-2", posts[0].Slug)
	assert.Equal(t, "p1", posts[1].ID)
	assert.Equal(t, "first-post", posts[1].Slug)

	require.Len(t, ws.queries, 1)
	assert.Equal(t, []notion.Sort{{Property: "Published Date", Direction: "descending"}}, ws.queries[0].Sorts)
}

func TestSourcesErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewBlog(&fakeWorkspace{}, BlogConfig{}, zerolog.Nop()).Posts(ctx)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewPortfolio(&fakeWorkspace{}, PortfolioConfig{}, zerolog.Nop()).Projects(ctx)
	assert.ErrorIs(t, err, ErrNotConfigured)

	boom := errors.New("boom")
	_, err = NewPortfolio(&fakeWorkspace{err: boom}, PortfolioConfig{DatabaseID: "db"}, zerolog.Nop()).Projects(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = NewBlog(&fakeWorkspace{err: boom}, BlogConfig{DatabaseID: "db"}, zerolog.Nop()).Body(ctx, "page")
	assert.ErrorIs(t, err, boom)
}

func TestPortfolioProjects(t *testing.T) {
	ws := &fakeWorkspace{pages: []notion.Page{
		{ID: "a", Properties: notion.Properties{"Name": titleProp("Zed")}},
		{ID: "b", Properties: notion.Properties{"Name": titleProp("Atlas"), "Featured": checkboxProp(true)}},
		{ID: "c", Properties: notion.Properties{"Name": titleProp("Zed")}},
	}}
	projects, err := NewPortfolio(ws, PortfolioConfig{DatabaseID: "db"}, zerolog.Nop()).Projects(context.Background())
	require.NoError(t, err)

	var got []string
	for _, p := range projects {
		got = append(got, p.ID+":"+p.Slug)
	}
	assert.Equal(t, []string{"b:atlas", "a:zed", "c:zed-2"}, got)
	assert.Empty(t, ws.queries[0].Sorts)
}

func TestConverterSkipsChildPages(t *testing.T) {
	ws := &fakeWorkspace{children: map[string][]notion.Block{
		"page": {
			{ID: "b1", Type: "bulleted_list_item", HasChildren: true, Content: notion.BlockContent{RichText: runs("top")}},
			{ID: "cp", Type: "child_page", HasChildren: true, Content: notion.BlockContent{Title: "Sub"}},
		},
		"b1": {
			{ID: "b2", Type: "bulleted_list_item", Content: notion.BlockContent{RichText: runs("inner")}},
		},
	}}
	doc, err := NewConverter(ws).Document(context.Background(), "page")
	require.NoError(t, err)

	assert.Equal(t, []string{"page", "b1"}, ws.listed)
	assert.Equal(t, "- top\n    - inner", doc.String())
}
