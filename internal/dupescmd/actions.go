// Package dupescmd implements the dupes command: find bookmarks pointing at
// the same resource and optionally delete the redundant copies.
package dupescmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/bszwed/linkmark/internal/common"
	"github.com/bszwed/linkmark/pkg/urlkey"
)

func DupesAction(c *cli.Context) error {
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
	links, err := client.AllLinks(ctx)
	if err != nil {
		return err
	}

	members := make([]urlkey.Member, 0, len(links))
	for _, l := range links {
		members = append(members, urlkey.Member{ID: l.ID, URL: l.URL, Name: l.Name})
	}
	exact, fuzzy := urlkey.FindDuplicates(members)

	if len(exact) == 0 && len(fuzzy) == 0 {
		fmt.Printf("%d links, no duplicates\n", len(links))
		return rt.DB.RecordDupScan(len(links), 0, 0, 0)
	}

	printGroups("Exact duplicates", exact)
	printGroups("Near duplicates", fuzzy)

	removed := 0
	if c.Bool("remove") {
		// Near-duplicate removal is opt-in on top: fuzzy keys can collapse
		// distinct pages on aggressive sites.
		targets := exact
		if c.Bool("fuzzy") {
			targets = append(targets, fuzzy...)
		}
		for _, group := range targets {
			for _, m := range group.Members[1:] {
				if c.Bool("dry-run") {
					fmt.Printf("would delete [%d] %s\n", m.ID, m.URL)
					continue
				}
				if err := client.DeleteLink(ctx, m.ID); err != nil {
					rt.Logger.Error("delete failed", "id", m.ID, "error", err)
					continue
				}
				fmt.Printf("deleted [%d] %s\n", m.ID, m.URL)
				removed++
			}
		}
	}

	fmt.Printf("\n%d links, %d exact groups, %d fuzzy groups, %d removed\n",
		len(links), len(exact), len(fuzzy), removed)
	return rt.DB.RecordDupScan(len(links), len(exact), len(fuzzy), removed)
}

func printGroups(header string, groups []urlkey.Group) {
	if len(groups) == 0 {
		return
	}
	fmt.Printf("%s:\n", header)
	for _, group := range groups {
		fmt.Printf("  %s\n", group.Key)
		for i, m := range group.Members {
			marker := "keep"
			if i > 0 {
				marker = "dup"
			}
			fmt.Printf("    %-4s [%d] %s (%s)\n", marker, m.ID, m.Name, m.URL)
		}
	}
}
