// Package fetcher is the plain HTTP layer: a cheap HEAD probe to decide
// whether a URL is worth fetching, and a GET that returns the raw body.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// userAgent mirrors a desktop browser so fewer sites refuse the request
// outright.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

const maxBodyBytes = 10 << 20

// ProbeResult is the outcome of a HEAD request.
type ProbeResult struct {
	StatusCode  int
	ContentType string
	// Reachable is true for 2xx/3xx, and also when the probe itself failed
	// at the network level: some hosts reject HEAD but serve GET fine, so
	// a transport error is treated optimistically.
	Reachable bool
}

type Fetcher struct {
	client *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Probe issues a HEAD request. Only a definitive error status marks the URL
// unreachable; transport failures leave Reachable true with StatusCode 0.
func (f *Fetcher) Probe(ctx context.Context, url string) ProbeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return ProbeResult{Reachable: false}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return ProbeResult{Reachable: true}
	}
	defer resp.Body.Close()

	return ProbeResult{
		StatusCode:  resp.StatusCode,
		ContentType: mediaType(resp.Header.Get("Content-Type")),
		Reachable:   resp.StatusCode >= 200 && resp.StatusCode < 400,
	}
}

// GetHTML fetches url and parses the body as a goquery document.
func (f *Fetcher) GetHTML(ctx context.Context, url string) (*goquery.Document, error) {
	bodyBytes, _, err := f.GetBytes(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(bodyBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// GetBytes fetches url and returns the body plus the response content type
// with any charset parameter stripped.
func (f *Fetcher) GetBytes(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch content, status code: %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	return bodyBytes, mediaType(resp.Header.Get("Content-Type")), nil
}

func mediaType(header string) string {
	if idx := strings.Index(header, ";"); idx >= 0 {
		header = header[:idx]
	}
	return strings.TrimSpace(strings.ToLower(header))
}
