// Package fetchcmd implements the fetch command: run ad-hoc URLs through the
// acquisition pipeline and print the resulting records.
package fetchcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/bszwed/linkmark/internal/common"
	"github.com/bszwed/linkmark/models"
)

func FetchAction(c *cli.Context) error {
	rt, err := common.InitRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	var rawURLs []string
	if raw := c.String("urls"); raw != "" {
		rawURLs = strings.Split(raw, ",")
	} else {
		rawURLs = c.Args().Slice()
	}
	urls, invalid := common.SanitizeAndValidateURLs(rawURLs)
	for _, u := range invalid {
		fmt.Fprintf(os.Stderr, "Error: invalid URL skipped: %s\n", u)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no valid URLs given (use --urls or positional arguments)")
	}

	workers := c.Int("workers")
	if workers < 1 {
		workers = rt.Config.WorkerCount
	}

	runID, err := rt.DB.StartRun("fetch", len(urls), false)
	if err != nil {
		rt.Logger.Warn("failed to record run", "error", err)
	}

	outcomes := fetchAll(c.Context, rt, urls, workers, c.Bool("force"))

	var records []*models.ContentRecord
	var failed int
	for i, outcome := range outcomes {
		recordTelemetry(rt, urls[i], outcome)
		if outcome.OK() {
			records = append(records, outcome.Record)
			continue
		}
		failed++
		rt.Logger.Error("fetch failed", "url", urls[i], "outcome", outcome.String(), "status", outcome.StatusCode)
	}

	if runID != 0 {
		if err := rt.DB.FinishRun(runID, len(records), failed); err != nil {
			rt.Logger.Warn("failed to finish run", "error", err)
		}
	}

	if len(records) > 0 {
		if err := printRecords(records, c.String("format")); err != nil {
			return err
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
	return nil
}

// fetchAll runs the pipeline over every URL with a bounded worker pool,
// preserving input order in the result slice.
func fetchAll(ctx context.Context, rt *common.Runtime, urls []string, workers int, force bool) []models.FetchOutcome {
	pipeline := rt.Pipeline()
	fetch := pipeline.Fetch
	if force {
		fetch = pipeline.Refresh
	}
	outcomes := make([]models.FetchOutcome, len(urls))

	if workers <= 1 {
		for i, u := range urls {
			outcomes[i] = fetch(ctx, u)
		}
		return outcomes
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = fetch(ctx, urls[i])
			}
		}()
	}
	for i := range urls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

func printRecords(records []*models.ContentRecord, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "", "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(records)
	case "raw":
		// Text content only, transcripts first for videos.
		for i, r := range records {
			if i > 0 {
				fmt.Println("\n---")
			}
			text := r.TextContent
			if r.Transcript != "" {
				text = r.Transcript
			}
			fmt.Println(text)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want yaml, json, or raw)", format)
	}
}

func recordTelemetry(rt *common.Runtime, rawURL string, outcome models.FetchOutcome) {
	contentType := ""
	fetchMethod := ""
	if outcome.Record != nil {
		contentType = string(outcome.Record.ContentType)
		fetchMethod = outcome.Record.FetchMethod
	}
	urlID, err := rt.DB.InsertURL(rawURL, contentType)
	if err != nil {
		rt.Logger.Debug("failed to register URL", "url", rawURL, "error", err)
		return
	}
	if err := rt.DB.RecordAccess(urlID, outcome.String(), outcome.StatusCode, fetchMethod, outcome.OK()); err != nil {
		rt.Logger.Debug("failed to record access", "url", rawURL, "error", err)
	}
}
