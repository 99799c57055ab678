package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/cachestore"
	"github.com/bszwed/linkmark/pkg/fetcher"
	"github.com/bszwed/linkmark/pkg/urlkey"
	"github.com/bszwed/linkmark/pkg/video"
)

const articleHTML = `<html><head><title>Test Article</title></head><body><article>
<p>This is a perfectly normal article with enough prose to pass extraction.
It talks about systems, and then it talks about them some more, sentence
after sentence, until the extractor is satisfied that real content exists
on this page and not merely navigation chrome or an interstitial.</p>
<p>Another paragraph keeps the body comfortably above any length heuristics
so the pipeline takes the happy path through plain HTTP extraction without
ever reaching for the browser fallback during this test.</p>
</article></body></html>`

const challengeHTML = `<html><head><title>Just a moment...</title></head>
<body><p>Checking your browser before accessing.</p></body></html>`

type stubHTTP struct {
	probe    fetcher.ProbeResult
	body     []byte
	bodyType string
	bodyErr  error
}

func (s *stubHTTP) Probe(ctx context.Context, url string) fetcher.ProbeResult { return s.probe }
func (s *stubHTTP) GetBytes(ctx context.Context, url string) ([]byte, string, error) {
	return s.body, s.bodyType, s.bodyErr
}

type stubRenderer struct {
	html string
	err  error
}

func (s *stubRenderer) Render(ctx context.Context, url string) (string, error) {
	return s.html, s.err
}

type stubVideos struct {
	record *models.ContentRecord
	err    error
}

func (s *stubVideos) Fetch(ctx context.Context, url string) (*models.ContentRecord, error) {
	return s.record, s.err
}

type stubConverter struct {
	record *models.ContentRecord
	err    error
}

func (s *stubConverter) Convert(ctx context.Context, url, contentType string, body []byte) (*models.ContentRecord, error) {
	return s.record, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, http HTTPFetcher, r Renderer, v VideoFetcher, c DocConverter) *Pipeline {
	t.Helper()
	return NewPipeline(http, r, v, c, cachestore.New(t.TempDir()), testLogger())
}

func TestFetch_Article(t *testing.T) {
	http := &stubHTTP{
		probe: fetcher.ProbeResult{StatusCode: 200, ContentType: "text/html", Reachable: true},
		body:  []byte(articleHTML),
	}
	p := newTestPipeline(t, http, nil, &stubVideos{}, &stubConverter{})

	got := p.Fetch(context.Background(), "https://example.com/post")
	if got.Kind != models.OutcomeOK {
		t.Fatalf("outcome = %v, want OK", got.Kind)
	}
	if got.Record.Title != "Test Article" {
		t.Errorf("title = %q, want Test Article", got.Record.Title)
	}
	if got.Record.FetchMethod != "http" {
		t.Errorf("fetch method = %q, want http", got.Record.FetchMethod)
	}
}

func TestFetch_ArticleCachedOnSuccess(t *testing.T) {
	http := &stubHTTP{
		probe: fetcher.ProbeResult{StatusCode: 200, ContentType: "text/html", Reachable: true},
		body:  []byte(articleHTML),
	}
	cache := cachestore.New(t.TempDir())
	p := NewPipeline(http, nil, &stubVideos{}, &stubConverter{}, cache, testLogger())

	first := p.Fetch(context.Background(), "https://example.com/post")
	if first.Kind != models.OutcomeOK {
		t.Fatalf("first outcome = %v, want OK", first.Kind)
	}

	// Break the network; the second fetch must come from cache.
	http.bodyErr = errors.New("network down")
	http.probe = fetcher.ProbeResult{Reachable: false, StatusCode: 503}

	second := p.Fetch(context.Background(), "https://example.com/post")
	if second.Kind != models.OutcomeOK {
		t.Fatalf("second outcome = %v, want OK from cache", second.Kind)
	}
	if second.Record.FetchMethod != "cache" {
		t.Errorf("fetch method = %q, want cache", second.Record.FetchMethod)
	}
}

func TestFetch_Unreachable(t *testing.T) {
	http := &stubHTTP{probe: fetcher.ProbeResult{StatusCode: 404, Reachable: false}}
	p := newTestPipeline(t, http, nil, &stubVideos{}, &stubConverter{})

	got := p.Fetch(context.Background(), "https://example.com/gone")
	if got.Kind != models.OutcomeUnreachable || got.StatusCode != 404 {
		t.Errorf("outcome = %+v, want unreachable 404", got)
	}
}

func TestFetch_NonHTML(t *testing.T) {
	http := &stubHTTP{probe: fetcher.ProbeResult{StatusCode: 200, ContentType: "image/png", Reachable: true}}
	p := newTestPipeline(t, http, nil, &stubVideos{}, &stubConverter{})

	got := p.Fetch(context.Background(), "https://example.com/pic.png")
	if got.Kind != models.OutcomeNonHTML || got.ContentType != "image/png" {
		t.Errorf("outcome = %+v, want non-HTML image/png", got)
	}
}

func TestFetch_ChallengeFallsBackToHeadless(t *testing.T) {
	http := &stubHTTP{
		probe: fetcher.ProbeResult{StatusCode: 200, ContentType: "text/html", Reachable: true},
		body:  []byte(challengeHTML),
	}
	renderer := &stubRenderer{html: articleHTML}
	p := newTestPipeline(t, http, renderer, &stubVideos{}, &stubConverter{})

	got := p.Fetch(context.Background(), "https://example.com/walled")
	if got.Kind != models.OutcomeOK {
		t.Fatalf("outcome = %v, want OK via headless", got.Kind)
	}
	if got.Record.FetchMethod != "headless" {
		t.Errorf("fetch method = %q, want headless", got.Record.FetchMethod)
	}
}

func TestFetch_CachedChallengeInvalidated(t *testing.T) {
	http := &stubHTTP{
		probe: fetcher.ProbeResult{StatusCode: 200, ContentType: "text/html", Reachable: true},
		body:  []byte(challengeHTML),
	}
	cache := cachestore.New(t.TempDir())

	// A challenge page left behind by an older cache (nothing writes these
	// anymore) must not be served; the browser path runs instead.
	stale := models.ContentRecord{
		Title:       "Just a moment...",
		TextContent: "Checking your browser before accessing.",
	}
	if err := cache.Set(cachestore.CategoryArticles, urlkey.Canonicalize("https://example.com/walled"), stale, ArticleTTL); err != nil {
		t.Fatal(err)
	}

	withBrowser := NewPipeline(http, &stubRenderer{html: articleHTML}, &stubVideos{}, &stubConverter{}, cache, testLogger())
	got := withBrowser.Fetch(context.Background(), "https://example.com/walled")
	if got.Kind != models.OutcomeOK {
		t.Fatalf("outcome = %v, want OK", got.Kind)
	}
	if got.Record.FetchMethod != "headless" {
		t.Errorf("fetch method = %q, want headless after cache invalidation", got.Record.FetchMethod)
	}
}

func TestFetch_ChallengeWithoutBrowserIsNoContent(t *testing.T) {
	http := &stubHTTP{
		probe: fetcher.ProbeResult{StatusCode: 200, ContentType: "text/html", Reachable: true},
		body:  []byte(challengeHTML),
	}
	cache := cachestore.New(t.TempDir())

	for name, renderer := range map[string]Renderer{
		"no renderer":      nil,
		"render failure":   &stubRenderer{err: errors.New("browser crashed")},
		"render is walled": &stubRenderer{html: challengeHTML},
	} {
		p := NewPipeline(http, renderer, &stubVideos{}, &stubConverter{}, cache, testLogger())
		got := p.Fetch(context.Background(), "https://example.com/walled")
		if got.Kind != models.OutcomeNoContent {
			t.Errorf("%s: outcome = %v, want no content", name, got.Kind)
		}
	}

	// The interstitial must never land in the article cache.
	var cached models.ContentRecord
	if cache.Get(cachestore.CategoryArticles, urlkey.Canonicalize("https://example.com/walled"), ArticleTTL, &cached) {
		t.Errorf("challenge page cached: %+v", cached)
	}
}

func TestFetch_Video(t *testing.T) {
	record := &models.ContentRecord{
		ContentType: models.ContentTypeVideo,
		Title:       "Some Talk",
		Transcript:  "hello everyone",
	}
	p := newTestPipeline(t, &stubHTTP{}, nil, &stubVideos{record: record}, &stubConverter{})

	got := p.Fetch(context.Background(), "https://www.youtube.com/watch?v=abc")
	if got.Kind != models.OutcomeOK {
		t.Fatalf("outcome = %v, want OK", got.Kind)
	}
	if got.Record.Title != "Some Talk" {
		t.Errorf("title = %q", got.Record.Title)
	}
}

func TestFetch_VideoRateLimited(t *testing.T) {
	record := &models.ContentRecord{ContentType: models.ContentTypeVideo, Title: "Talk"}
	videos := &stubVideos{record: record, err: fmt.Errorf("transcript: %w", video.ErrRateLimited)}
	p := newTestPipeline(t, &stubHTTP{}, nil, videos, &stubConverter{})

	got := p.Fetch(context.Background(), "https://youtu.be/abc")
	if got.Kind != models.OutcomeRateLimited {
		t.Fatalf("outcome = %v, want rate limited", got.Kind)
	}
	if got.Record == nil || got.Record.Title != "Talk" {
		t.Error("rate-limited outcome should keep the metadata record")
	}
}

func TestFetch_VideoFailure(t *testing.T) {
	videos := &stubVideos{err: errors.New("yt-dlp exploded")}
	p := newTestPipeline(t, &stubHTTP{}, nil, videos, &stubConverter{})

	got := p.Fetch(context.Background(), "https://youtu.be/abc")
	if got.Kind != models.OutcomeNoContent {
		t.Errorf("outcome = %v, want no content", got.Kind)
	}
}

func TestFetch_Document(t *testing.T) {
	http := &stubHTTP{
		probe:    fetcher.ProbeResult{StatusCode: 200, ContentType: "application/pdf", Reachable: true},
		body:     []byte("%PDF-1.4 fake"),
		bodyType: "application/pdf",
	}
	converter := &stubConverter{record: &models.ContentRecord{
		ContentType: models.ContentTypeDocument,
		Title:       "paper",
		TextContent: "converted text",
	}}
	p := newTestPipeline(t, http, nil, &stubVideos{}, converter)

	got := p.Fetch(context.Background(), "https://example.com/paper.pdf")
	if got.Kind != models.OutcomeOK {
		t.Fatalf("outcome = %v, want OK", got.Kind)
	}
	if got.Record.ContentType != models.ContentTypeDocument {
		t.Errorf("content type = %q, want document", got.Record.ContentType)
	}
}

func TestFetch_DocumentConversionFailure(t *testing.T) {
	http := &stubHTTP{
		probe:    fetcher.ProbeResult{StatusCode: 200, ContentType: "application/pdf", Reachable: true},
		body:     []byte("%PDF"),
		bodyType: "application/pdf",
	}
	converter := &stubConverter{err: errors.New("converter missing")}
	p := newTestPipeline(t, http, nil, &stubVideos{}, converter)

	got := p.Fetch(context.Background(), "https://example.com/paper.pdf")
	if got.Kind != models.OutcomeNoContent {
		t.Errorf("outcome = %v, want no content (no fallback for documents)", got.Kind)
	}
}

func TestFetch_NoContent(t *testing.T) {
	http := &stubHTTP{
		probe: fetcher.ProbeResult{StatusCode: 200, ContentType: "text/html", Reachable: true},
		body:  []byte("<html><body></body></html>"),
	}
	p := newTestPipeline(t, http, nil, &stubVideos{}, &stubConverter{})

	got := p.Fetch(context.Background(), "https://example.com/empty")
	if got.Kind != models.OutcomeNoContent {
		t.Errorf("outcome = %v, want no content", got.Kind)
	}
}
