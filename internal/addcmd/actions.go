// Package addcmd implements the add command: sanitize a pasted URL, enrich it
// from the curated index or the model, and create the bookmark.
package addcmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/bszwed/linkmark/internal/common"
	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/enrich"
	"github.com/bszwed/linkmark/pkg/index"
	"github.com/bszwed/linkmark/pkg/llm"
	"github.com/bszwed/linkmark/pkg/urlkey"
)

func AddAction(c *cli.Context) error {
	rt, err := common.InitRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	urls, invalid := common.SanitizeAndValidateURLs(c.Args().Slice())
	for _, u := range invalid {
		fmt.Fprintf(os.Stderr, "Error: invalid URL skipped: %s\n", u)
	}
	if len(urls) == 0 {
		return fmt.Errorf("usage: linkmark add <url> [<url>...]")
	}

	client, err := rt.Store()
	if err != nil {
		rt.Logger.Error("store not configured", "error", err)
		os.Exit(2)
	}

	ctx := c.Context
	collections, err := client.Collections(ctx)
	if err != nil {
		return err
	}

	var collectionID int64
	if name := c.String("collection"); name != "" {
		matched, ok := enrich.MatchCollection(name, collections)
		if !ok {
			return fmt.Errorf("no collection named %q", name)
		}
		collectionID = matched.ID
	}

	var idx *index.Index
	if rt.Config.IndexPath != "" {
		if loaded, err := index.Load(rt.Config.IndexPath); err != nil {
			rt.Logger.Warn("failed to load curated index", "path", rt.Config.IndexPath, "error", err)
		} else {
			idx = loaded
		}
	}

	var modelSide *enrich.Enricher
	if model, err := llm.New(rt.Config.ModelAPIKey, rt.Config.ModelBaseURL, rt.Config.ModelName); err == nil {
		modelSide = enrich.NewEnricher(model, rt.Cache, rt.Config.PromptPath, rt.Logger)
	} else {
		rt.Logger.Warn("model not configured, using index and fetched metadata only", "error", err)
	}

	// Exact-duplicate check against everything already stored.
	existing := make(map[string]int64)
	links, err := client.AllLinks(ctx)
	if err != nil {
		return err
	}
	for _, l := range links {
		if key := urlkey.Canonicalize(l.URL); key != "" {
			existing[key] = l.ID
		}
	}

	dryRun := c.Bool("dry-run")
	unread := c.Bool("unread")
	var created, skipped, failed int

	for _, rawURL := range urls {
		canonical := urlkey.Canonicalize(rawURL)
		if id, ok := existing[canonical]; ok {
			fmt.Printf("%s -> already stored as [%d]\n", rawURL, id)
			skipped++
			continue
		}

		draft := buildDraft(ctx, rt, idx, modelSide, collections, canonical)
		if unread && !contains(draft.tags, "unread") {
			draft.tags = append(draft.tags, "unread")
		}
		targetCollection := collectionID
		if draft.category != "" {
			if matched, ok := enrich.MatchCollection(draft.category, collections); ok {
				targetCollection = matched.ID
			}
		}

		fmt.Printf("%s\n  source: %s\n  title: %s\n  tags: %v\n", canonical, draft.source, draft.title, draft.tags)
		if dryRun {
			fmt.Printf("  would add to collection #%d\n", targetCollection)
			created++
			continue
		}

		bm, err := client.CreateLink(ctx, draft.title, canonical, draft.description, draft.tags, targetCollection)
		if err != nil {
			rt.Logger.Error("create failed", "url", rawURL, "error", err)
			failed++
			continue
		}
		existing[canonical] = bm.ID
		fmt.Printf("  created [%d]\n", bm.ID)
		created++
	}

	verb := "created"
	if dryRun {
		verb = "would create"
	}
	fmt.Printf("\n%s %d, skipped %d, failed %d\n", verb, created, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
	return nil
}

// draft is the metadata assembled for one new bookmark.
type draft struct {
	title       string
	description string
	tags        []string
	category    string
	source      string
}

// buildDraft fills new-link metadata from the curated index first, then the
// model, then whatever the fetch itself produced.
func buildDraft(ctx context.Context, rt *common.Runtime, idx *index.Index, modelSide *enrich.Enricher, collections []models.Collection, canonical string) draft {
	today := time.Now().Format("2006-01-02")

	if idx != nil {
		if entry, ok := idx.Lookup(canonical); ok {
			tags := []string{"unknow"}
			if entry.Date != "" {
				tags = append(tags, entry.Date)
			} else {
				tags = append(tags, today)
			}
			return draft{
				title:       entry.Title,
				description: entry.Description,
				tags:        tags,
				source:      "index",
			}
		}
	}

	d := draft{title: canonical, tags: []string{"unknow", today}, source: "fetched"}
	outcome := rt.Pipeline().Fetch(ctx, canonical)
	if !outcome.OK() {
		rt.Logger.Warn("could not fetch content for new link", "url", canonical, "outcome", outcome.String())
		return d
	}
	if outcome.Record.Title != "" {
		d.title = outcome.Record.Title
	}
	d.description = outcome.Record.Metadata["description"]

	if modelSide == nil {
		return d
	}
	result, err := modelSide.Enrich(ctx, models.Bookmark{URL: canonical}, outcome.Record, collections)
	if err != nil {
		rt.Logger.Warn("model enrichment failed", "url", canonical, "error", err)
		return d
	}
	if result.Skipped {
		rt.Logger.Warn("model declined to enrich", "url", canonical, "reason", result.Reason)
		return d
	}
	if result.Title != "" {
		d.title = result.Title
	}
	if result.Description != "" {
		d.description = result.Description
	}
	d.tags = append(d.tags, result.Tags...)
	d.category = result.Category
	d.source = "model"
	return d
}

func contains(tags []string, name string) bool {
	for _, t := range tags {
		if t == name {
			return true
		}
	}
	return false
}
