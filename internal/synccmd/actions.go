// Package synccmd implements the sync command: push curated titles and
// descriptions from the newsletter index onto matching store bookmarks. No
// content fetching and no model involved; this is the cheap bulk path.
package synccmd

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/bszwed/linkmark/internal/common"
	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/enrich"
	"github.com/bszwed/linkmark/pkg/index"
	"github.com/bszwed/linkmark/pkg/urlkey"
)

func SyncAction(c *cli.Context) error {
	rt, err := common.InitRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	indexPath := c.String("index")
	if indexPath == "" {
		indexPath = rt.Config.IndexPath
	}
	if indexPath == "" {
		fmt.Fprintln(os.Stderr, "Error: no index file configured (use --index or index_path in config.yaml)")
		os.Exit(1)
	}

	idx, err := index.Load(indexPath)
	if err != nil {
		return err
	}

	client, err := rt.Store()
	if err != nil {
		rt.Logger.Error("store not configured", "error", err)
		os.Exit(2)
	}

	ctx := c.Context
	var links []models.Bookmark
	if name := c.String("collection"); name != "" {
		collections, err := client.Collections(ctx)
		if err != nil {
			return err
		}
		matched, ok := enrich.MatchCollection(name, collections)
		if !ok {
			return fmt.Errorf("no collection named %q", name)
		}
		links, err = client.CollectionLinks(ctx, matched.ID)
		if err != nil {
			return err
		}
	} else {
		links, err = client.AllLinks(ctx)
		if err != nil {
			return err
		}
	}

	fmt.Printf("%d links, %d indexed\n", len(links), idx.Len())

	dryRun := c.Bool("dry-run")
	limit := c.Int("limit")
	showUnmatched := c.Bool("show-unmatched")
	today := time.Now()

	var matched, updated, skipped, failed int
	var unmatched []string

	for _, bm := range links {
		entry, ok := idx.Lookup(bm.URL)
		if !ok {
			unmatched = append(unmatched, bm.URL)
			continue
		}
		matched++

		update := proposeFromEntry(bm, entry, today)
		if update.Empty() {
			skipped++
			continue
		}
		if limit > 0 && updated >= limit {
			break
		}

		if dryRun {
			fmt.Printf("[%d] %s -> would update (%s)\n", bm.ID, bm.URL, entry.Title)
			updated++
			continue
		}
		if err := client.UpdateLink(ctx, bm, update); err != nil {
			rt.Logger.Error("update failed", "id", bm.ID, "error", err)
			failed++
			continue
		}
		fmt.Printf("[%d] %s -> updated (%s)\n", bm.ID, bm.URL, entry.Title)
		updated++
	}

	fmt.Printf("\nmatched %d, updated %d, skipped %d, failed %d, unmatched %d\n",
		matched, updated, skipped, failed, len(unmatched))
	if showUnmatched {
		for _, u := range unmatched {
			fmt.Printf("  unmatched: %s\n", u)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
	return nil
}

// proposeFromEntry builds the update for one curated match, reusing the
// standard merge rules.
func proposeFromEntry(bm models.Bookmark, entry index.Entry, today time.Time) models.ProposedUpdate {
	update := models.ProposedUpdate{
		BookmarkID:  bm.ID,
		Name:        bm.Name,
		URL:         bm.URL,
		Description: bm.Description,
	}

	if canonical := urlkey.Canonicalize(bm.URL); canonical != "" && canonical != bm.URL {
		update.URL = canonical
		update.URLChanged = true
	}
	if merged := enrich.MergeTitle(bm.Name, entry.Title); merged != bm.Name {
		update.Name = merged
		update.NameChanged = true
	}
	if merged := enrich.MergeDescription(bm.Description, entry.Description); merged != bm.Description {
		update.Description = merged
		update.DescriptionChanged = true
	}

	existing := make(map[string]struct{}, len(bm.Tags))
	for _, t := range bm.Tags {
		existing[t.Name] = struct{}{}
	}
	wanted := []string{"unknow"}
	if entry.Date != "" {
		wanted = append(wanted, entry.Date)
	} else {
		wanted = append(wanted, today.Format("2006-01-02"))
	}
	for _, tag := range wanted {
		if _, ok := existing[tag]; !ok {
			update.AddTags = append(update.AddTags, tag)
		}
	}
	return update
}
