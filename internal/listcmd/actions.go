// Package listcmd implements the list command: show collections, the links
// inside one, and fetch-failure telemetry.
package listcmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/bszwed/linkmark/internal/common"
	"github.com/bszwed/linkmark/pkg/enrich"
)

func ListAction(c *cli.Context) error {
	rt, err := common.InitRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	if c.Bool("failing") {
		return listFailingDomains(rt, c.Int("limit"))
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

	if name := c.String("collection"); name != "" {
		matched, ok := enrich.MatchCollection(name, collections)
		if !ok {
			return fmt.Errorf("no collection named %q", name)
		}
		links, err := client.CollectionLinks(ctx, matched.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d links)\n", matched.Name, len(links))
		for _, l := range links {
			fmt.Printf("  [%d] %s\n      %s\n", l.ID, l.Name, l.URL)
		}
		return nil
	}

	fmt.Printf("%d collections:\n", len(collections))
	for _, col := range collections {
		links, err := client.CollectionLinks(ctx, col.ID)
		if err != nil {
			rt.Logger.Warn("failed to count links", "collection", col.Name, "error", err)
			fmt.Printf("  [%d] %s\n", col.ID, col.Name)
			continue
		}
		fmt.Printf("  [%d] %s (%d links)\n", col.ID, col.Name, len(links))
	}
	return nil
}

func listFailingDomains(rt *common.Runtime, limit int) error {
	if limit < 1 {
		limit = 20
	}
	domains, err := rt.DB.FailingDomains(limit)
	if err != nil {
		return err
	}
	if len(domains) == 0 {
		fmt.Println("No recorded fetch failures")
		return nil
	}
	fmt.Println("Domains by fetch failures:")
	for _, d := range domains {
		fmt.Printf("  %-40s %d of %d attempts failed\n", d.Domain, d.Failures, d.Total)
	}
	return nil
}
