// Package cachecmd implements cache maintenance: show entry counts, clear
// categories, and evict single URLs.
package cachecmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/bszwed/linkmark/internal/common"
	"github.com/bszwed/linkmark/pkg/cachestore"
	"github.com/bszwed/linkmark/pkg/urlkey"
)

var categories = []string{
	cachestore.CategoryArticles,
	cachestore.CategoryVideos,
	cachestore.CategoryLLM,
	cachestore.CategorySummary,
	cachestore.CategoryCollections,
}

func StatsAction(c *cli.Context) error {
	rt, err := common.InitRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Printf("Cache at %s:\n", rt.Config.CacheDir)
	total := 0
	for _, category := range categories {
		n := rt.Cache.Len(category)
		total += n
		fmt.Printf("  %-12s %d entries\n", category, n)
	}
	fmt.Printf("  %-12s %d entries\n", "total", total)
	return nil
}

func ClearAction(c *cli.Context) error {
	rt, err := common.InitRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	category := c.String("category")
	if category == "" {
		for _, cat := range categories {
			if err := rt.Cache.Clear(cat); err != nil {
				return err
			}
		}
		fmt.Println("Cleared all cache categories")
		return nil
	}
	if !validCategory(category) {
		return fmt.Errorf("unknown cache category %q", category)
	}
	if err := rt.Cache.Clear(category); err != nil {
		return err
	}
	fmt.Printf("Cleared %s cache\n", category)
	return nil
}

// RemoveAction evicts a single URL from one category, so a bad fetch or model
// result can be redone without dropping the whole cache.
func RemoveAction(c *cli.Context) error {
	rt, err := common.InitRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	rawURL := c.Args().First()
	if rawURL == "" {
		return fmt.Errorf("usage: linkmark cache remove --category <name> <url>")
	}
	category := c.String("category")
	if !validCategory(category) {
		return fmt.Errorf("unknown cache category %q", category)
	}

	key := urlkey.Canonicalize(rawURL)
	if key == "" {
		key = rawURL
	}
	if err := rt.Cache.Remove(category, key); err != nil {
		return err
	}
	if category == cachestore.CategoryVideos {
		// Transcripts live under a derived key next to the metadata.
		if err := rt.Cache.Remove(category, key+"#transcript"); err != nil {
			return err
		}
	}
	fmt.Printf("Removed %s from %s cache\n", rawURL, category)
	return nil
}

func validCategory(category string) bool {
	for _, cat := range categories {
		if cat == category {
			return true
		}
	}
	return false
}
