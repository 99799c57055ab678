package readable

import (
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <title>How Compilers Work</title>
  <meta property="og:description" content="A walk through lexing and parsing.">
  <meta name="author" content="Jan Kowalski">
</head>
<body>
  <article>
    <h1>How Compilers Work</h1>
    <p>Compilers translate source code into machine code through several
    well-defined phases. The first phase is lexical analysis, which splits
    the raw character stream into tokens that carry meaning on their own.</p>
    <p>The parser then consumes those tokens and builds a syntax tree. Each
    node of the tree corresponds to a construct in the language grammar, and
    later phases walk this tree to generate intermediate representations.</p>
    <p>Optimization passes rewrite the intermediate form to run faster while
    preserving behavior. Finally the backend emits instructions for the
    target architecture, completing the journey from text to executable.</p>
  </article>
</body>
</html>`

func TestExtract(t *testing.T) {
	e := NewExtractor()
	record, err := e.Extract("https://example.com/compilers", []byte(samplePage))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if record.Title != "How Compilers Work" {
		t.Errorf("title = %q, want %q", record.Title, "How Compilers Work")
	}
	if !strings.Contains(record.TextContent, "lexical analysis") {
		t.Errorf("text content missing article body: %q", record.TextContent)
	}
	if record.Metadata["language"] != "en" {
		t.Errorf("language = %q, want en", record.Metadata["language"])
	}
	if record.Metadata["description"] == "" {
		t.Error("description metadata not extracted")
	}
}

func TestExtract_InvalidURL(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract("::not a url::", []byte(samplePage)); err == nil {
		t.Error("Extract() error = nil for invalid URL, want error")
	}
}

func TestDetectLanguage(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		text string
		want string
	}{
		{"The quick brown fox jumps over the lazy dog near the riverbank every single morning.", "en"},
		{"Wszyscy ludzie rodzą się wolni i równi pod względem swej godności i swych praw.", "pl"},
		{"short", ""},
	}
	for _, tt := range tests {
		if got := e.DetectLanguage(tt.text); got != tt.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestIsChallengePage(t *testing.T) {
	tests := []struct {
		name  string
		title string
		text  string
		want  bool
	}{
		{"cloudflare wall", "Just a moment...", "Checking your browser before accessing the site.", true},
		{"js wall", "Site", "Please enable JavaScript to continue.", true},
		{"short but legit", "Haiku", "An old silent pond. A frog jumps into the pond. Splash! Silence again.", false},
		{"long real article", "Just a moment of your time", strings.Repeat("Real content here. ", 50), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsChallengePage(tt.title, tt.text); got != tt.want {
				t.Errorf("IsChallengePage() = %v, want %v", got, tt.want)
			}
		})
	}
}
