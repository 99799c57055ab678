// Package docconv converts binary documents (PDF, Office formats, EPUB) to
// text by shelling out to a converter command. There is no fallback chain: a
// conversion either works or the URL is skipped.
package docconv

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bszwed/linkmark/models"
)

// documentTypes maps MIME types to the extension the converter expects.
var documentTypes = map[string]string{
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.ms-powerpoint":                                           ".ppt",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"application/vnd.ms-excel": ".xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
	"application/epub+zip": ".epub",
}

var documentExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".ppt": {}, ".pptx": {},
	".xls": {}, ".xlsx": {}, ".epub": {},
}

var execCommand = exec.CommandContext

// IsDocument reports whether a URL points at a convertible document, judged
// by content type first and URL extension second.
func IsDocument(rawURL, contentType string) bool {
	if _, ok := documentTypes[contentType]; ok {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(filepath.Ext(parsed.Path))
	_, ok := documentExtensions[ext]
	return ok
}

type Converter struct {
	command string
}

// NewConverter wraps a converter command that takes a file path argument and
// writes markdown or plain text to stdout.
func NewConverter(command string) *Converter {
	return &Converter{command: command}
}

// Convert writes body to a temp file with the right extension and runs the
// converter over it.
func (c *Converter) Convert(ctx context.Context, docURL, contentType string, body []byte) (*models.ContentRecord, error) {
	ext := documentTypes[contentType]
	if ext == "" {
		if parsed, err := url.Parse(docURL); err == nil {
			ext = strings.ToLower(filepath.Ext(parsed.Path))
		}
	}
	if ext == "" {
		ext = ".bin"
	}

	tmp, err := os.CreateTemp("", "linkmark-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	tmp.Close()

	cmd := execCommand(ctx, c.command, tmp.Name())
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s failed for %s: %w", c.command, docURL, err)
	}

	text := strings.TrimSpace(string(output))
	if text == "" {
		return nil, fmt.Errorf("%s produced no text for %s", c.command, docURL)
	}

	record := &models.ContentRecord{
		ContentType: models.ContentTypeDocument,
		URL:         docURL,
		Title:       titleFromURL(docURL),
		TextContent: text,
		FetchMethod: c.command,
		Metadata:    map[string]string{"format": strings.TrimPrefix(ext, ".")},
	}
	return record, nil
}

// titleFromURL derives a readable title from the file name.
func titleFromURL(docURL string) string {
	parsed, err := url.Parse(docURL)
	if err != nil {
		return docURL
	}
	base := filepath.Base(parsed.Path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	if base == "" || base == "." || base == "/" {
		return docURL
	}
	return base
}
