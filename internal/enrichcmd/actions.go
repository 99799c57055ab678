// Package enrichcmd implements the enrich command: fetch content for
// bookmarks, consult the curated index and the model, and write improved
// metadata back to the store.
package enrichcmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/bszwed/linkmark/internal/common"
	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/content"
	"github.com/bszwed/linkmark/pkg/enrich"
	"github.com/bszwed/linkmark/pkg/index"
	"github.com/bszwed/linkmark/pkg/llm"
	"github.com/bszwed/linkmark/pkg/readable"
	"github.com/bszwed/linkmark/pkg/store"
)

func EnrichAction(c *cli.Context) error {
	rt, err := common.InitRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	client, err := rt.Store()
	if err != nil {
		rt.Logger.Error("store not configured", "error", err)
		os.Exit(2)
	}

	ctx := c.Context
	collections, err := client.Collections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	links, err := selectLinks(ctx, client, collections, c.String("collection"), c.String("url"))
	if err != nil {
		return err
	}
	limit := c.Int("limit")
	if limit > 0 && limit < len(links) {
		links = links[:limit]
	}
	if len(links) == 0 {
		fmt.Println("Nothing to enrich")
		return nil
	}

	e := newEnricher(rt, client, collections, c.Bool("dry-run"), c.Bool("force"))

	workers := c.Int("workers")
	if workers < 1 {
		workers = rt.Config.WorkerCount
	}

	runID, err := rt.DB.StartRun("enrich", len(links), e.dryRun)
	if err != nil {
		rt.Logger.Warn("failed to record run", "error", err)
	}

	results := runBatch(ctx, e.processOne, links, workers)
	summary := report(results, e.dryRun)

	if runID != 0 {
		if err := rt.DB.FinishRun(runID, summary.updated+summary.skipped, summary.failed); err != nil {
			rt.Logger.Warn("failed to finish run", "error", err)
		}
	}

	if summary.rateLimited {
		fmt.Printf("\nStopped early: transcript host rate limited after %d of %d bookmarks\n",
			summary.processed, len(links))
		os.Exit(1)
	}
	if summary.failed > 0 {
		os.Exit(1)
	}
	return nil
}

// selectLinks narrows the working set by collection name or exact URL.
func selectLinks(ctx context.Context, client *store.Client, collections []models.Collection, collectionName, exactURL string) ([]models.Bookmark, error) {
	if collectionName != "" {
		matched, ok := enrich.MatchCollection(collectionName, collections)
		if !ok {
			return nil, fmt.Errorf("no collection named %q", collectionName)
		}
		links, err := client.CollectionLinks(ctx, matched.ID)
		if err != nil {
			return nil, err
		}
		for i := range links {
			links[i].CollectionName = matched.Name
		}
		return filterByURL(links, exactURL), nil
	}

	links, err := client.AllLinks(ctx)
	if err != nil {
		return nil, err
	}
	return filterByURL(links, exactURL), nil
}

func filterByURL(links []models.Bookmark, exactURL string) []models.Bookmark {
	if exactURL == "" {
		return links
	}
	var out []models.Bookmark
	for _, l := range links {
		if strings.TrimSpace(l.URL) == strings.TrimSpace(exactURL) {
			out = append(out, l)
		}
	}
	return out
}

// enricher carries everything one batch needs.
type enricher struct {
	rt          *common.Runtime
	client      *store.Client
	collections []models.Collection
	pipeline    *content.Pipeline
	extractor   *readable.Extractor
	modelSide   *enrich.Enricher // nil when no API key is configured
	idx         *index.Index     // nil when no index file is configured
	dryRun      bool
	force       bool
}

func newEnricher(rt *common.Runtime, client *store.Client, collections []models.Collection, dryRun, force bool) *enricher {
	cfg := rt.Config
	pipeline := rt.Pipeline()

	var modelSide *enrich.Enricher
	if model, err := llm.New(cfg.ModelAPIKey, cfg.ModelBaseURL, cfg.ModelName); err == nil {
		modelSide = enrich.NewEnricher(model, rt.Cache, cfg.PromptPath, rt.Logger)
	} else {
		rt.Logger.Warn("model not configured, running static-only enrichment", "error", err)
	}

	var idx *index.Index
	if cfg.IndexPath != "" {
		loaded, err := index.Load(cfg.IndexPath)
		if err != nil {
			rt.Logger.Warn("failed to load curated index", "path", cfg.IndexPath, "error", err)
		} else {
			idx = loaded
			rt.Logger.Info("curated index loaded", "urls", idx.Len())
		}
	}

	return &enricher{
		rt:          rt,
		client:      client,
		collections: collections,
		pipeline:    pipeline,
		extractor:   readable.NewExtractor(),
		modelSide:   modelSide,
		idx:         idx,
		dryRun:      dryRun,
		force:       force,
	}
}

// processOne runs the full enrichment flow for a single bookmark.
func (e *enricher) processOne(ctx context.Context, bm models.Bookmark) itemResult {
	res := itemResult{Bookmark: bm}

	needs := enrich.AnalyzeNeeds(bm, e.force)
	if !needs.Any() {
		res.Skipped = true
		res.SkipReason = "already complete"
		return res
	}

	outcome := e.pipeline.Fetch(ctx, bm.URL)
	res.Outcome = outcome
	e.recordTelemetry(bm, outcome)

	if outcome.Kind == models.OutcomeRateLimited {
		// The metadata record is still usable; the batch stops after this
		// item.
		res.RateLimited = true
	}

	result := e.staticResult(bm)
	record := outcome.Record

	if record == nil {
		// The live fetch produced nothing; the store may still hold an
		// archived copy from when the page was reachable.
		if fallback := e.archiveFallback(ctx, bm); fallback != nil {
			record = fallback
			e.rt.Logger.Info("using archived content", "url", bm.URL, "method", fallback.FetchMethod)
		}
	}

	if record == nil && result == nil {
		res.Skipped = true
		res.SkipReason = outcome.String()
		return res
	}

	if e.modelSide != nil && modelStillNeeded(needs, result, record) {
		modelResult, err := e.modelSide.Enrich(ctx, bm, record, e.collections)
		if err != nil {
			e.rt.Logger.Warn("model enrichment failed", "url", bm.URL, "error", err)
		} else {
			result = mergeResults(result, modelResult)
		}
	}

	update := enrich.Propose(bm, record, result, e.collections, enrich.Options{Force: e.force})
	res.Update = update

	if update.Empty() {
		res.Skipped = true
		res.SkipReason = "no changes"
		return res
	}

	if !e.dryRun {
		if err := e.client.UpdateLink(ctx, bm, update); err != nil {
			res.Err = err
		}
	}
	return res
}

// staticResult turns a curated index hit into an enrichment result. Curated
// wording always beats model output.
func (e *enricher) staticResult(bm models.Bookmark) *models.EnrichmentResult {
	if e.idx == nil {
		return nil
	}
	entry, ok := e.idx.Lookup(bm.URL)
	if !ok {
		return nil
	}
	return &models.EnrichmentResult{
		Title:       entry.Title,
		Description: entry.Description,
	}
}

// modelStillNeeded reports whether any needed field remains unfilled by the
// static sources.
func modelStillNeeded(needs models.FieldNeeds, static *models.EnrichmentResult, record *models.ContentRecord) bool {
	if needs.Tags {
		return true
	}
	titleCovered := (static != nil && static.Title != "") || (record != nil && record.Title != "")
	if needs.Title && !titleCovered {
		return true
	}
	descriptionCovered := static != nil && static.Description != ""
	return needs.Description && !descriptionCovered
}

// mergeResults overlays a model result under the static one: static fields
// win, the model fills the gaps.
func mergeResults(static, model *models.EnrichmentResult) *models.EnrichmentResult {
	if static == nil {
		return model
	}
	if model == nil || model.Skipped {
		return static
	}
	merged := *static
	if merged.Title == "" {
		merged.Title = model.Title
	}
	if merged.Description == "" {
		merged.Description = model.Description
	}
	merged.Tags = model.Tags
	merged.Category = model.Category
	merged.SuggestedCategory = model.SuggestedCategory
	return &merged
}

func (e *enricher) recordTelemetry(bm models.Bookmark, outcome models.FetchOutcome) {
	contentType := ""
	fetchMethod := ""
	if outcome.Record != nil {
		contentType = string(outcome.Record.ContentType)
		fetchMethod = outcome.Record.FetchMethod
	}
	urlID, err := e.rt.DB.InsertURL(bm.URL, contentType)
	if err != nil {
		e.rt.Logger.Debug("failed to register URL", "url", bm.URL, "error", err)
		return
	}
	if err := e.rt.DB.RecordAccess(urlID, outcome.String(), outcome.StatusCode, fetchMethod, outcome.OK()); err != nil {
		e.rt.Logger.Debug("failed to record access", "url", bm.URL, "error", err)
	}
}
