// Package readable turns raw article HTML into clean text plus page
// metadata. Extraction is readability-based; metadata comes from the usual
// meta tags and the language is detected from the extracted text itself,
// since declared page languages are frequently wrong.
package readable

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"

	"github.com/bszwed/linkmark/models"
)

// challengeMarkers appear in bot-interstitial pages served instead of the
// real article. Matching is case-insensitive against title and body.
var challengeMarkers = []string{
	"just a moment",
	"checking your browser",
	"verifying you are human",
	"enable javascript",
	"attention required",
	"access denied",
	"cloudflare",
}

// minArticleChars is the body length below which a page is suspected of
// being a challenge wall rather than real content.
const minArticleChars = 500

type Extractor struct {
	detector lingua.LanguageDetector
}

func NewExtractor() *Extractor {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English,
			lingua.Polish,
			lingua.German,
			lingua.French,
			lingua.Spanish,
		).
		Build()
	return &Extractor{detector: detector}
}

// Extract runs readability over html and assembles a content record. The
// record's FetchMethod is left for the caller to set.
func (e *Extractor) Extract(pageURL string, html []byte) (*models.ContentRecord, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", pageURL, err)
	}

	article, err := readability.FromReader(bytes.NewReader(html), parsed)
	if err != nil {
		return nil, fmt.Errorf("readability extraction failed: %w", err)
	}

	record := &models.ContentRecord{
		ContentType: models.ContentTypeArticle,
		URL:         pageURL,
		Title:       strings.TrimSpace(article.Title),
		TextContent: strings.TrimSpace(article.TextContent),
		Metadata:    map[string]string{},
	}

	if article.Byline != "" {
		record.Metadata["author"] = article.Byline
	}
	if article.SiteName != "" {
		record.Metadata["site_name"] = article.SiteName
	}
	if article.Excerpt != "" {
		record.Metadata["description"] = strings.TrimSpace(article.Excerpt)
	}
	if article.PublishedTime != nil {
		record.Metadata["published"] = article.PublishedTime.Format("2006-01-02")
	}

	e.fillFromMetaTags(record, html)

	if lang := e.DetectLanguage(record.TextContent); lang != "" {
		record.Metadata["language"] = lang
	}
	return record, nil
}

// fillFromMetaTags backfills title and description from OpenGraph tags when
// readability came up empty.
func (e *Extractor) fillFromMetaTags(record *models.ContentRecord, html []byte) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return
	}

	if record.Title == "" {
		if v, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
			record.Title = strings.TrimSpace(v)
		}
	}
	if record.Title == "" {
		record.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if record.Metadata["description"] == "" {
		for _, sel := range []string{`meta[property="og:description"]`, `meta[name="description"]`} {
			if v, ok := doc.Find(sel).Attr("content"); ok && strings.TrimSpace(v) != "" {
				record.Metadata["description"] = strings.TrimSpace(v)
				break
			}
		}
	}
	if record.Metadata["author"] == "" {
		if v, ok := doc.Find(`meta[name="author"]`).Attr("content"); ok {
			record.Metadata["author"] = strings.TrimSpace(v)
		}
	}
}

// DetectLanguage returns the ISO 639-1 code of text, or "" when the text is
// too short or the detector is unsure.
func (e *Extractor) DetectLanguage(text string) string {
	if len(text) < 40 {
		return ""
	}
	lang, ok := e.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// IsChallengePage reports whether an extraction result looks like a bot
// interstitial: a suspiciously short body combined with a known challenge
// phrase in the title or text.
func IsChallengePage(title, text string) bool {
	if len(text) >= minArticleChars {
		return false
	}
	haystack := strings.ToLower(title + " " + text)
	for _, marker := range challengeMarkers {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return false
}
