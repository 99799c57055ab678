package docconv

import "testing"

func TestIsDocument(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		want        bool
	}{
		{"pdf by content type", "https://example.com/paper", "application/pdf", true},
		{"pdf by extension", "https://example.com/paper.pdf", "", true},
		{"docx by extension", "https://example.com/report.DOCX", "", true},
		{"html page", "https://example.com/post", "text/html", false},
		{"extension with query", "https://example.com/slides.pptx?dl=1", "", true},
		{"plain text", "https://example.com/notes.txt", "text/plain", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDocument(tt.url, tt.contentType); got != tt.want {
				t.Errorf("IsDocument(%q, %q) = %v, want %v", tt.url, tt.contentType, got, tt.want)
			}
		})
	}
}

func TestTitleFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/annual-report_2024.pdf", "annual report 2024"},
		{"https://example.com/deep/path/slides.pptx", "slides"},
		{"https://example.com/", "https://example.com/"},
	}
	for _, tt := range tests {
		if got := titleFromURL(tt.url); got != tt.want {
			t.Errorf("titleFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
