package enrich

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/cachestore"
)

type fakeModel struct {
	response string
	err      error
	calls    int
}

func (f *fakeModel) Complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	f.calls++
	return f.response, f.err
}

func newTestEnricher(t *testing.T, model *fakeModel) *Enricher {
	t.Helper()
	return NewEnricher(model, cachestore.New(t.TempDir()), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseModelResponse(t *testing.T) {
	raw := `{"title":"A Title","description":"Desc.","tags":["go","web"],"category":"Programming"}`
	result, err := ParseModelResponse(raw)
	if err != nil {
		t.Fatalf("ParseModelResponse() error = %v", err)
	}
	if result.Title != "A Title" || len(result.Tags) != 2 {
		t.Errorf("result = %+v", result)
	}
}

func TestParseModelResponse_Fenced(t *testing.T) {
	raw := "```json\n{\"title\":\"Fenced\"}\n```"
	result, err := ParseModelResponse(raw)
	if err != nil {
		t.Fatalf("ParseModelResponse() error = %v", err)
	}
	if result.Title != "Fenced" {
		t.Errorf("title = %q, want Fenced", result.Title)
	}
}

func TestParseModelResponse_NullIsSkipped(t *testing.T) {
	result, err := ParseModelResponse("null")
	if err != nil {
		t.Fatalf("ParseModelResponse(null) error = %v, want skipped sentinel", err)
	}
	if !result.Skipped {
		t.Error("result.Skipped = false, want true")
	}
}

func TestParseModelResponse_Garbage(t *testing.T) {
	if _, err := ParseModelResponse("I think this page is about cats."); err == nil {
		t.Error("ParseModelResponse(prose) error = nil, want error")
	}
}

func TestFormatForModel(t *testing.T) {
	bm := models.Bookmark{
		Name:        "old title",
		URL:         "https://example.com/post",
		Description: "old desc",
		Tags:        []models.Tag{{Name: "golang"}},
	}
	record := &models.ContentRecord{ContentType: models.ContentTypeArticle, TextContent: "the page text"}
	collections := []models.Collection{{Name: "Programming"}, {Name: "Science"}}

	got := FormatForModel(bm, record, collections)
	for _, want := range []string{
		"<url>https://example.com/post</url>",
		"<title>old title</title>",
		"<tags>golang</tags>",
		"the page text",
		"<collections>Programming, Science</collections>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatForModel() missing %q in:\n%s", want, got)
		}
	}
}

func TestFormatForModel_TranscriptPreferred(t *testing.T) {
	record := &models.ContentRecord{
		ContentType: models.ContentTypeVideo,
		TextContent: "video description",
		Transcript:  "what was actually said",
	}
	got := FormatForModel(models.Bookmark{URL: "https://youtu.be/x"}, record, nil)
	if !strings.Contains(got, "what was actually said") {
		t.Error("FormatForModel() did not use the transcript")
	}
}

func TestEnrich_CachesResult(t *testing.T) {
	model := &fakeModel{response: `{"title":"Cached Title"}`}
	e := newTestEnricher(t, model)
	bm := models.Bookmark{ID: 1, Name: "x", URL: "https://example.com/a"}

	first, err := e.Enrich(context.Background(), bm, nil, nil)
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	second, err := e.Enrich(context.Background(), bm, nil, nil)
	if err != nil {
		t.Fatalf("Enrich() second call error = %v", err)
	}
	if model.calls != 1 {
		t.Errorf("model calls = %d, want 1 (second served from cache)", model.calls)
	}
	if first.Title != second.Title {
		t.Errorf("cached result differs: %q vs %q", first.Title, second.Title)
	}
}

func TestEnrich_SkippedNotCached(t *testing.T) {
	model := &fakeModel{response: "null"}
	e := newTestEnricher(t, model)
	bm := models.Bookmark{ID: 1, URL: "https://example.com/a"}

	for i := 0; i < 2; i++ {
		result, err := e.Enrich(context.Background(), bm, nil, nil)
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}
		if !result.Skipped {
			t.Fatal("result.Skipped = false, want true")
		}
	}
	if model.calls != 2 {
		t.Errorf("model calls = %d, want 2 (skipped results must not be cached)", model.calls)
	}
}
