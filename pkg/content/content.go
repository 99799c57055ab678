// Package content is the fetch pipeline: given a URL it decides whether the
// target is a video, a document, or an article, runs the right acquisition
// path, and returns a terminal outcome. Successful article fetches are
// cached; challenge pages are detected and retried through a real browser.
package content

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/cachestore"
	"github.com/bszwed/linkmark/pkg/docconv"
	"github.com/bszwed/linkmark/pkg/fetcher"
	"github.com/bszwed/linkmark/pkg/readable"
	"github.com/bszwed/linkmark/pkg/urlkey"
	"github.com/bszwed/linkmark/pkg/video"
)

// ArticleTTL is how long a cached article stays fresh.
const ArticleTTL = 7 * 24 * time.Hour

// HTTPFetcher is the plain HTTP layer.
type HTTPFetcher interface {
	Probe(ctx context.Context, url string) fetcher.ProbeResult
	GetBytes(ctx context.Context, url string) ([]byte, string, error)
}

// Renderer is the headless browser fallback. May be nil when no browser is
// available.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// VideoFetcher handles video metadata and transcripts.
type VideoFetcher interface {
	Fetch(ctx context.Context, url string) (*models.ContentRecord, error)
}

// DocConverter turns binary documents into text.
type DocConverter interface {
	Convert(ctx context.Context, url, contentType string, body []byte) (*models.ContentRecord, error)
}

type Pipeline struct {
	http      HTTPFetcher
	renderer  Renderer
	videos    VideoFetcher
	converter DocConverter
	extractor *readable.Extractor
	cache     *cachestore.Store
	logger    *slog.Logger
}

func NewPipeline(
	http HTTPFetcher,
	renderer Renderer,
	videos VideoFetcher,
	converter DocConverter,
	cache *cachestore.Store,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		http:      http,
		renderer:  renderer,
		videos:    videos,
		converter: converter,
		extractor: readable.NewExtractor(),
		cache:     cache,
		logger:    logger,
	}
}

// Fetch resolves a URL to a terminal outcome. It never returns an error;
// every failure mode maps to an outcome kind the caller can report.
func (p *Pipeline) Fetch(ctx context.Context, rawURL string) models.FetchOutcome {
	if video.IsVideoURL(rawURL) {
		return p.fetchVideo(ctx, rawURL)
	}
	return p.fetchPage(ctx, rawURL)
}

// Refresh drops any cached article for the URL before fetching, forcing the
// full chain to run again. Video metadata keeps its cache; it does not go
// stale the way articles do.
func (p *Pipeline) Refresh(ctx context.Context, rawURL string) models.FetchOutcome {
	if !video.IsVideoURL(rawURL) {
		_ = p.cache.Remove(cachestore.CategoryArticles, urlkey.Canonicalize(rawURL))
	}
	return p.Fetch(ctx, rawURL)
}

func (p *Pipeline) fetchVideo(ctx context.Context, rawURL string) models.FetchOutcome {
	record, err := p.videos.Fetch(ctx, rawURL)
	switch {
	case errors.Is(err, video.ErrRateLimited):
		// Metadata survived; the transcript host is throttling us.
		return models.FetchOutcome{Kind: models.OutcomeRateLimited, Record: record, Reason: err.Error()}
	case err != nil:
		p.logger.Warn("video fetch failed", "url", rawURL, "error", err)
		return models.FetchOutcome{Kind: models.OutcomeNoContent, Reason: err.Error()}
	}
	return models.FetchOutcome{Kind: models.OutcomeOK, Record: record}
}

func (p *Pipeline) fetchPage(ctx context.Context, rawURL string) models.FetchOutcome {
	cacheKey := urlkey.Canonicalize(rawURL)

	var cached models.ContentRecord
	if p.cache.Get(cachestore.CategoryArticles, cacheKey, ArticleTTL, &cached) {
		if readable.IsChallengePage(cached.Title, cached.TextContent) {
			// A cached challenge page is worthless; drop it and refetch
			// through the browser path.
			_ = p.cache.Remove(cachestore.CategoryArticles, cacheKey)
		} else {
			cached.FetchMethod = "cache"
			return models.FetchOutcome{Kind: models.OutcomeOK, Record: &cached}
		}
	}

	probe := p.http.Probe(ctx, rawURL)
	if !probe.Reachable {
		return models.FetchOutcome{Kind: models.OutcomeUnreachable, StatusCode: probe.StatusCode}
	}

	if docconv.IsDocument(rawURL, probe.ContentType) {
		return p.fetchDocument(ctx, rawURL, probe.ContentType)
	}

	if probe.ContentType != "" && !isHTMLType(probe.ContentType) {
		return models.FetchOutcome{Kind: models.OutcomeNonHTML, ContentType: probe.ContentType}
	}

	record := p.fetchArticle(ctx, rawURL)
	if record == nil || record.TextContent == "" {
		return models.FetchOutcome{Kind: models.OutcomeNoContent}
	}

	if err := p.cache.Set(cachestore.CategoryArticles, cacheKey, record, ArticleTTL); err != nil {
		p.logger.Warn("failed to cache article", "url", rawURL, "error", err)
	}
	return models.FetchOutcome{Kind: models.OutcomeOK, Record: record}
}

func (p *Pipeline) fetchDocument(ctx context.Context, rawURL, contentType string) models.FetchOutcome {
	body, bodyType, err := p.http.GetBytes(ctx, rawURL)
	if err != nil {
		p.logger.Warn("document download failed", "url", rawURL, "error", err)
		return models.FetchOutcome{Kind: models.OutcomeNoContent, Reason: err.Error()}
	}
	if bodyType != "" {
		contentType = bodyType
	}

	record, err := p.converter.Convert(ctx, rawURL, contentType, body)
	if err != nil {
		p.logger.Warn("document conversion failed", "url", rawURL, "error", err)
		return models.FetchOutcome{Kind: models.OutcomeNoContent, Reason: err.Error()}
	}
	return models.FetchOutcome{Kind: models.OutcomeOK, Record: record}
}

// fetchArticle tries the plain HTTP path first, then the headless browser
// when the result looks like a JavaScript wall or the plain path failed.
func (p *Pipeline) fetchArticle(ctx context.Context, rawURL string) *models.ContentRecord {
	var record *models.ContentRecord

	body, _, err := p.http.GetBytes(ctx, rawURL)
	if err == nil {
		record, err = p.extractor.Extract(rawURL, body)
		if err != nil {
			p.logger.Debug("plain extraction failed", "url", rawURL, "error", err)
			record = nil
		}
	}

	needsBrowser := record == nil ||
		record.TextContent == "" ||
		readable.IsChallengePage(record.Title, record.TextContent)

	if needsBrowser && p.renderer != nil {
		if rendered := p.renderHeadless(ctx, rawURL); rendered != nil {
			return rendered
		}
	}

	if record != nil {
		if readable.IsChallengePage(record.Title, record.TextContent) {
			// The browser could not get past the interstitial (or there is
			// no browser); a challenge page is not content.
			p.logger.Warn("challenge page not bypassed", "url", rawURL)
			return nil
		}
		record.FetchMethod = "http"
	}
	return record
}

func (p *Pipeline) renderHeadless(ctx context.Context, rawURL string) *models.ContentRecord {
	html, err := p.renderer.Render(ctx, rawURL)
	if err != nil {
		p.logger.Warn("headless render failed", "url", rawURL, "error", err)
		return nil
	}
	record, err := p.extractor.Extract(rawURL, []byte(html))
	if err != nil || record.TextContent == "" {
		return nil
	}
	if readable.IsChallengePage(record.Title, record.TextContent) {
		return nil
	}
	record.FetchMethod = "headless"
	return record
}

func isHTMLType(contentType string) bool {
	return strings.HasPrefix(contentType, "text/html") ||
		strings.HasPrefix(contentType, "application/xhtml")
}
