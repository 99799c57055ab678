package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/cachestore"
	"github.com/bszwed/linkmark/pkg/textutil"
	"github.com/bszwed/linkmark/pkg/urlkey"
)

// LLMTTL is how long a cached model result stays valid. Kept long on
// purpose: model output for the same content rarely needs refreshing.
const LLMTTL = 30 * 24 * time.Hour

const defaultSystemPrompt = `You improve bookmark metadata. Given a bookmark and the page content,
respond with a JSON object containing:
  "title": a concise descriptive title (max 80 chars),
  "description": a 1-3 sentence summary of the content,
  "tags": up to 5 lowercase topic tags,
  "category": the best matching collection name from the provided list, or "" if none fits.
Respond with the literal null instead of an object if the content is too
thin to say anything useful. Output JSON only, no commentary.`

// Completer is the model call surface, satisfied by llm.Client.
type Completer interface {
	Complete(ctx context.Context, system, user string, jsonMode bool) (string, error)
}

// Enricher asks the model for metadata proposals, caching results per URL.
type Enricher struct {
	model        Completer
	cache        *cachestore.Store
	logger       *slog.Logger
	systemPrompt string
}

// NewEnricher builds an Enricher. promptPath may point at a file overriding
// the built-in system prompt; a missing file falls back silently.
func NewEnricher(model Completer, cache *cachestore.Store, promptPath string, logger *slog.Logger) *Enricher {
	prompt := defaultSystemPrompt
	if promptPath != "" {
		if data, err := os.ReadFile(promptPath); err == nil && strings.TrimSpace(string(data)) != "" {
			prompt = string(data)
		}
	}
	return &Enricher{model: model, cache: cache, logger: logger, systemPrompt: prompt}
}

// Enrich returns the model's proposal for one bookmark. Skipped results are
// returned but never cached, so a later run with better content retries.
func (e *Enricher) Enrich(ctx context.Context, bm models.Bookmark, record *models.ContentRecord, collections []models.Collection) (*models.EnrichmentResult, error) {
	key := urlkey.Canonicalize(bm.URL)
	if key == "" {
		key = bm.URL
	}

	var cached models.EnrichmentResult
	if e.cache.Get(cachestore.CategoryLLM, key, LLMTTL, &cached) {
		return &cached, nil
	}

	prompt := FormatForModel(bm, record, collections)
	raw, err := e.model.Complete(ctx, e.systemPrompt, prompt, true)
	if err != nil {
		return nil, err
	}

	result, err := ParseModelResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("unusable model response for %s: %w", bm.URL, err)
	}
	result.OriginalTitle = bm.Name

	if result.Skipped {
		return result, nil
	}
	if err := e.cache.Set(cachestore.CategoryLLM, key, result, LLMTTL); err != nil {
		e.logger.Warn("failed to cache model result", "url", bm.URL, "error", err)
	}
	return result, nil
}

// ClearCached drops the cached model result for one URL.
func (e *Enricher) ClearCached(bookmarkURL string) error {
	key := urlkey.Canonicalize(bookmarkURL)
	if key == "" {
		key = bookmarkURL
	}
	return e.cache.Remove(cachestore.CategoryLLM, key)
}

// FormatForModel renders the bookmark, its fetched content, and the
// available collections as a tagged prompt block.
func FormatForModel(bm models.Bookmark, record *models.ContentRecord, collections []models.Collection) string {
	var b strings.Builder

	b.WriteString("<bookmark>\n")
	fmt.Fprintf(&b, "<url>%s</url>\n", bm.URL)
	fmt.Fprintf(&b, "<title>%s</title>\n", bm.Name)
	if strings.TrimSpace(bm.Description) != "" {
		fmt.Fprintf(&b, "<description>%s</description>\n", bm.Description)
	}
	if names := bm.TagNames(); len(names) > 0 {
		fmt.Fprintf(&b, "<tags>%s</tags>\n", strings.Join(names, ", "))
	}
	b.WriteString("</bookmark>\n")

	if record != nil {
		text := record.TextContent
		if record.Transcript != "" {
			text = record.Transcript
		}
		text, _ = textutil.Truncate(text, maxContentChars)
		if text != "" {
			fmt.Fprintf(&b, "<content type=%q>\n%s\n</content>\n", string(record.ContentType), text)
		}
	}

	if len(collections) > 0 {
		names := make([]string, 0, len(collections))
		for _, c := range collections {
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, "<collections>%s</collections>\n", strings.Join(names, ", "))
	}
	return b.String()
}

// ParseModelResponse decodes the model's JSON reply. Markdown code fences
// are tolerated; a literal null means the model declined, reported as a
// Skipped result rather than an error.
func ParseModelResponse(raw string) (*models.EnrichmentResult, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	if text == "null" || text == "" {
		return &models.EnrichmentResult{Skipped: true, Reason: "model declined"}, nil
	}

	var result models.EnrichmentResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return &result, nil
}
