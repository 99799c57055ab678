// Package statscmd exposes the telemetry database: past runs, per-URL fetch
// history, outcome totals, and duplicate-scan history.
package statscmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/bszwed/linkmark/internal/common"
)

func RunsAction(c *cli.Context) error {
	rt, err := common.InitRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	runs, err := rt.DB.ListRuns(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	fmt.Printf("%-6s %-20s %-10s %-8s %-8s %-8s %s\n",
		"ID", "Started", "Command", "URLs", "Success", "Failed", "Mode")
	fmt.Println(strings.Repeat("-", 72))
	for _, r := range runs {
		mode := "live"
		if r.DryRun {
			mode = "dry-run"
		}
		fmt.Printf("%-6d %-20s %-10s %-8d %-8d %-8d %s\n",
			r.RunID, r.CreatedAt, r.Command, r.URLCount, r.SuccessCount, r.FailedCount, mode)
	}
	fmt.Printf("\nTotal: %d runs\n", len(runs))
	return nil
}

// URLAction shows the full fetch history for one URL.
func URLAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("URL required\nUsage: linkmark stats url <url>")
	}

	rt, err := common.InitRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	rawURL := c.Args().First()
	urlID, accesses, err := rt.DB.URLHistory(rawURL)
	if err != nil {
		return err
	}
	if urlID == 0 {
		return fmt.Errorf("URL not tracked: %s\nNote: only fetched URLs are recorded", rawURL)
	}

	fmt.Printf("[#%d] %s\n\n", urlID, rawURL)
	if len(accesses) == 0 {
		fmt.Println("No accesses recorded")
		return nil
	}
	fmt.Printf("%-20s %-14s %-8s %-12s %s\n", "When", "Outcome", "Status", "Method", "OK")
	fmt.Println(strings.Repeat("-", 64))
	for _, a := range accesses {
		ok := "no"
		if a.Success {
			ok = "yes"
		}
		fmt.Printf("%-20s %-14s %-8d %-12s %s\n", a.AccessedAt, a.Outcome, a.StatusCode, a.FetchMethod, ok)
	}
	return nil
}

func OutcomesAction(c *cli.Context) error {
	rt, err := common.InitRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	counts, err := rt.DB.OutcomeCounts()
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Println("No accesses recorded")
		return nil
	}

	outcomes := make([]string, 0, len(counts))
	for outcome := range counts {
		outcomes = append(outcomes, outcome)
	}
	sort.Slice(outcomes, func(i, j int) bool { return counts[outcomes[i]] > counts[outcomes[j]] })

	total := 0
	for _, outcome := range outcomes {
		total += counts[outcome]
	}
	fmt.Println("Fetch outcomes:")
	for _, outcome := range outcomes {
		fmt.Printf("  %-14s %6d\n", outcome, counts[outcome])
	}
	fmt.Printf("  %-14s %6d\n", "total", total)
	return nil
}

func ScansAction(c *cli.Context) error {
	rt, err := common.InitRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	scans, err := rt.DB.ListDupScans(c.Int("limit"))
	if err != nil {
		return err
	}
	if len(scans) == 0 {
		fmt.Println("No duplicate scans recorded")
		return nil
	}

	fmt.Printf("%-6s %-20s %-8s %-8s %-8s %s\n",
		"ID", "Scanned", "Links", "Exact", "Fuzzy", "Removed")
	fmt.Println(strings.Repeat("-", 60))
	for _, s := range scans {
		fmt.Printf("%-6d %-20s %-8d %-8d %-8d %d\n",
			s.ScanID, s.ScannedAt, s.TotalLinks, s.ExactGroups, s.FuzzyGroups, s.RemovedCount)
	}
	return nil
}
