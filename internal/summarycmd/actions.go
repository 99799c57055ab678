// Package summarycmd implements the summary command: fetch one URL through
// the acquisition pipeline and ask the model for a markdown summary.
package summarycmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/bszwed/linkmark/internal/common"
	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/cachestore"
	"github.com/bszwed/linkmark/pkg/llm"
	"github.com/bszwed/linkmark/pkg/textutil"
	"github.com/bszwed/linkmark/pkg/urlkey"
)

const defaultSummaryPrompt = `Summarize the following web content as markdown.
Start with a one-line TL;DR, then 3-7 bullet points covering the main ideas.
For videos, follow the chapter structure when chapters are present.
Output markdown only, no preamble.`

const maxSummaryInput = 16000

func SummaryAction(c *cli.Context) error {
	rt, err := common.InitRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	rawURL := c.Args().First()
	if rawURL == "" {
		return fmt.Errorf("usage: linkmark summary <url>")
	}
	key := urlkey.Canonicalize(rawURL)
	if key == "" {
		return fmt.Errorf("invalid URL: %s", rawURL)
	}

	force := c.Bool("force")
	if !force {
		var cached string
		if rt.Cache.Get(cachestore.CategorySummary, key, cachestore.NoExpiry, &cached) {
			fmt.Println(cached)
			return nil
		}
	}

	model, err := llm.New(rt.Config.ModelAPIKey, rt.Config.ModelBaseURL, rt.Config.ModelName)
	if err != nil {
		rt.Logger.Error("model not configured", "error", err)
		os.Exit(2)
	}

	ctx := c.Context
	pipeline := rt.Pipeline()
	fetch := pipeline.Fetch
	if force {
		fetch = pipeline.Refresh
	}
	outcome := fetch(ctx, rawURL)
	recordTelemetry(rt, rawURL, outcome)
	if !outcome.OK() {
		fmt.Fprintf(os.Stderr, "Error: could not fetch %s (%s)\n", rawURL, outcome.String())
		os.Exit(1)
	}

	summary, err := summarize(c, rt, model, outcome.Record)
	if err != nil {
		return err
	}

	if err := rt.Cache.Set(cachestore.CategorySummary, key, summary, cachestore.NoExpiry); err != nil {
		rt.Logger.Warn("failed to cache summary", "url", rawURL, "error", err)
	}
	fmt.Println(summary)
	return nil
}

func summarize(c *cli.Context, rt *common.Runtime, model *llm.Client, record *models.ContentRecord) (string, error) {
	prompt := defaultSummaryPrompt
	if path := c.String("prompt"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file: %w", err)
		}
		prompt = string(data)
	}

	text := record.TextContent
	if record.Transcript != "" {
		text = record.Transcript
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text content to summarize")
	}
	text, truncated := textutil.Truncate(text, maxSummaryInput)
	if truncated {
		rt.Logger.Debug("summary input truncated", "url", record.URL, "chars", maxSummaryInput)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nURL: %s\n", record.Title, record.URL)
	if len(record.Chapters) > 0 {
		b.WriteString("Chapters:\n")
		for _, ch := range record.Chapters {
			fmt.Fprintf(&b, "  - [%s] %s\n", textutil.FormatDuration(int(ch.StartTime)), ch.Title)
		}
	}
	b.WriteString("\n")
	b.WriteString(text)

	summary, err := model.Complete(c.Context, prompt, b.String(), false)
	if err != nil {
		return "", fmt.Errorf("summary request failed: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("model returned an empty summary")
	}
	return summary, nil
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
