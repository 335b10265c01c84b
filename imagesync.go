package folio

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/folio-site/folio/content"
)

// SyncOptions controls a batch image sync.
type SyncOptions struct {
	// Force clears each project's mirror before syncing it.
	Force bool
	// Project limits the sync to one slug. Empty syncs every project.
	Project string
}

// SyncResult is the outcome for one project.
type SyncResult struct {
	ProjectSlug   string `json:"projectSlug"`
	Success       bool   `json:"success"`
	BlobURL       string `json:"blobUrl,omitempty"`
	ContentImages int    `json:"contentImages"`
	Error         string `json:"error,omitempty"`
}

type SyncStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// SyncReport summarizes a batch image sync.
type SyncReport struct {
	Success   bool         `json:"success"`
	RunID     string       `json:"runId"`
	Message   string       `json:"message"`
	Results   []SyncResult `json:"results"`
	Stats     SyncStats    `json:"stats"`
	Timestamp string       `json:"timestamp"`
}

// SyncImages mirrors the thumbnail and body images of every project, one
// project at a time. Projects are read straight from the workspace so that
// image URLs are freshly signed. It returns ErrNotFound when the filter
// matches nothing or there are no projects.
func (a *App) SyncImages(ctx context.Context, opts SyncOptions) (SyncReport, error) {
	runID := ulid.Make().String()
	log := a.log.With().Str("run", runID).Logger()
	log.Info().Bool("force", opts.Force).Str("project", opts.Project).Msg("starting image sync")

	projects, err := a.portfolio.Projects(ctx)
	if err != nil {
		return SyncReport{}, fmt.Errorf("list projects: %w", err)
	}
	if opts.Project != "" {
		var filtered []content.Project
		for _, p := range projects {
			if p.Slug == opts.Project {
				filtered = append(filtered, p)
			}
		}
		projects = filtered
	}
	if len(projects) == 0 {
		if opts.Project != "" {
			return SyncReport{}, fmt.Errorf("project %q: %w", opts.Project, ErrNotFound)
		}
		return SyncReport{}, fmt.Errorf("no projects: %w", ErrNotFound)
	}

	report := SyncReport{
		Success: true,
		RunID:   runID,
		Results: make([]SyncResult, 0, len(projects)),
	}
	for _, p := range projects {
		res := a.syncProject(ctx, p, opts.Force)
		if res.Success {
			report.Stats.Success++
		} else {
			report.Stats.Failed++
			log.Warn().Str("slug", p.Slug).Str("error", res.Error).Msg("project sync failed")
		}
		report.Results = append(report.Results, res)
	}
	report.Stats.Total = len(projects)
	report.Message = fmt.Sprintf("Synced %d/%d images", report.Stats.Success, report.Stats.Total)
	report.Timestamp = isoTime(a.now())

	a.Pages.Revalidate("/")
	a.Pages.Revalidate("/portfolio")
	a.Pages.Revalidate("/portfolio/[slug]")

	log.Info().Int("success", report.Stats.Success).Int("failed", report.Stats.Failed).Msg("image sync complete")
	return report, nil
}

func (a *App) syncProject(ctx context.Context, p content.Project, force bool) SyncResult {
	res := SyncResult{ProjectSlug: p.Slug, Success: true}
	if force {
		if err := a.mirror.Clear(ctx, p.Slug); err != nil {
			return SyncResult{ProjectSlug: p.Slug, Error: err.Error()}
		}
	}

	if p.Thumbnail == "" {
		res.Error = "No thumbnail"
	} else if u, err := a.mirror.SyncThumbnail(ctx, p.Slug, p.Thumbnail); err != nil {
		res.Success = false
		res.Error = err.Error()
	} else {
		res.BlobURL = u
	}

	doc, err := a.portfolio.Body(ctx, p.ID)
	if err != nil {
		res.Success = false
		res.Error = err.Error()
		return res
	}
	_, n, err := a.mirror.SyncBodyImages(ctx, p.Slug, doc.String())
	res.ContentImages = n
	if err != nil && res.Success {
		res.Success = false
		res.Error = err.Error()
	}
	return res
}
