// Package video fetches video metadata and transcripts. Metadata comes from
// yt-dlp's JSON dump; transcripts are downloaded from the caption track URLs
// it reports, preferring human-made captions over auto-generated ones.
package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/cachestore"
	"github.com/bszwed/linkmark/pkg/textutil"
	"github.com/bszwed/linkmark/pkg/urlkey"
)

// ErrRateLimited signals an HTTP 429 from the caption host. It is never
// retried; the caller decides whether to halt a batch.
var ErrRateLimited = errors.New("caption host rate limited")

// videoHosts is the allow-list of hosts treated as video pages.
var videoHosts = map[string]struct{}{
	"youtube.com":     {},
	"youtu.be":        {},
	"vimeo.com":       {},
	"dailymotion.com": {},
	"twitch.tv":       {},
}

// fallbackLanguages are tried after the video's own declared language.
var fallbackLanguages = []string{"en", "pl"}

const (
	transcriptRetries = 3
	retryBaseDelay    = time.Second
	repeatWindow      = 10
)

// execCommand is swapped out in tests.
var execCommand = exec.CommandContext

// IsVideoURL reports whether raw points at a known video host.
func IsVideoURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	_, ok := videoHosts[host]
	return ok
}

// captionTrack is one subtitle format entry in yt-dlp output.
type captionTrack struct {
	URL string `json:"url"`
	Ext string `json:"ext"`
}

// metadata is the subset of yt-dlp's JSON dump the pipeline uses.
type metadata struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    float64  `json:"duration"`
	Channel     string   `json:"channel"`
	Uploader    string   `json:"uploader"`
	UploadDate  string   `json:"upload_date"`
	Language    string   `json:"language"`
	Tags        []string `json:"tags"`
	Chapters    []struct {
		StartTime float64 `json:"start_time"`
		Title     string  `json:"title"`
	} `json:"chapters"`
	Subtitles         map[string][]captionTrack `json:"subtitles"`
	AutomaticCaptions map[string][]captionTrack `json:"automatic_captions"`
}

type Fetcher struct {
	cache  *cachestore.Store
	client *http.Client
	logger *slog.Logger
}

func NewFetcher(cache *cachestore.Store, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		cache:  cache,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Fetch builds a content record for a video URL. A metadata failure is fatal
// for the URL; a transcript failure is not, except rate limiting, which is
// reported to the caller alongside the metadata-only record.
func (f *Fetcher) Fetch(ctx context.Context, videoURL string) (*models.ContentRecord, error) {
	meta, err := f.fetchMetadata(ctx, videoURL)
	if err != nil {
		return nil, err
	}

	record := &models.ContentRecord{
		ContentType: models.ContentTypeVideo,
		URL:         videoURL,
		Title:       meta.Title,
		TextContent: strings.TrimSpace(meta.Description),
		FetchMethod: "yt-dlp",
		Metadata:    map[string]string{},
	}
	if meta.Channel != "" {
		record.Metadata["channel"] = meta.Channel
	} else if meta.Uploader != "" {
		record.Metadata["channel"] = meta.Uploader
	}
	if meta.Duration > 0 {
		record.Metadata["duration"] = textutil.FormatDuration(int(meta.Duration))
	}
	if meta.UploadDate != "" {
		record.Metadata["upload_date"] = meta.UploadDate
	}
	if meta.Language != "" {
		record.Metadata["language"] = meta.Language
	}
	record.Tags = meta.Tags
	for _, ch := range meta.Chapters {
		record.Chapters = append(record.Chapters, models.Chapter{
			StartTime: ch.StartTime,
			Title:     ch.Title,
		})
	}

	transcript, err := f.fetchTranscript(ctx, videoURL, meta)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			return record, err
		}
		f.logger.Warn("transcript unavailable", "url", videoURL, "error", err)
		return record, nil
	}
	record.Transcript = transcript
	return record, nil
}

// fetchMetadata runs yt-dlp, caching the raw dump forever: video metadata
// does not go stale the way article pages do.
func (f *Fetcher) fetchMetadata(ctx context.Context, videoURL string) (*metadata, error) {
	key := urlkey.Canonicalize(videoURL)

	var meta metadata
	if f.cache.Get(cachestore.CategoryVideos, key, cachestore.NoExpiry, &meta) {
		return &meta, nil
	}

	cmd := execCommand(ctx, "yt-dlp", "-J", "--skip-download", videoURL)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp failed for %s: %w", videoURL, err)
	}
	if err := json.Unmarshal(output, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	if err := f.cache.Set(cachestore.CategoryVideos, key, &meta, 0); err != nil {
		f.logger.Warn("failed to cache video metadata", "url", videoURL, "error", err)
	}
	return &meta, nil
}

// fetchTranscript picks the best caption track and downloads it. The cached
// transcript lives under its own key so a caption failure never invalidates
// the metadata entry.
func (f *Fetcher) fetchTranscript(ctx context.Context, videoURL string, meta *metadata) (string, error) {
	key := urlkey.Canonicalize(videoURL) + "#transcript"

	var cached string
	if f.cache.Get(cachestore.CategoryVideos, key, cachestore.NoExpiry, &cached) {
		return cached, nil
	}

	track := pickTrack(meta)
	if track == nil {
		return "", fmt.Errorf("no caption track in any preferred language")
	}

	raw, err := f.download(ctx, track.URL)
	if err != nil {
		return "", err
	}

	var text string
	switch track.Ext {
	case "json3":
		text = parseJSON3(raw)
	default:
		text = parseVTT(string(raw))
	}
	text = textutil.CollapseRepeats(textutil.JoinCaptionLines(text), repeatWindow)
	if text == "" {
		return "", fmt.Errorf("caption track %s yielded no text", track.Ext)
	}

	if err := f.cache.Set(cachestore.CategoryVideos, key, text, 0); err != nil {
		f.logger.Warn("failed to cache transcript", "url", videoURL, "error", err)
	}
	return text, nil
}

// pickTrack walks languages in priority order, taking human captions over
// auto-generated ones within each language and json3 over other formats.
func pickTrack(meta *metadata) *captionTrack {
	languages := make([]string, 0, 3)
	if meta.Language != "" {
		languages = append(languages, strings.ToLower(meta.Language))
	}
	for _, lang := range fallbackLanguages {
		if len(languages) == 0 || languages[0] != lang {
			languages = append(languages, lang)
		}
	}

	for _, lang := range languages {
		for _, tracks := range []map[string][]captionTrack{meta.Subtitles, meta.AutomaticCaptions} {
			if t := bestFormat(tracks[lang]); t != nil {
				return t
			}
		}
	}
	return nil
}

func bestFormat(tracks []captionTrack) *captionTrack {
	for i := range tracks {
		if tracks[i].Ext == "json3" {
			return &tracks[i]
		}
	}
	for i := range tracks {
		if tracks[i].Ext == "vtt" {
			return &tracks[i]
		}
	}
	return nil
}

// download fetches a caption URL with retries for transient failures. A 429
// aborts immediately with ErrRateLimited.
func (f *Fetcher) download(ctx context.Context, captionURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < transcriptRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBaseDelay << (attempt - 1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, captionURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			return nil, ErrRateLimited
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("caption host returned %d", resp.StatusCode)
			continue
		case resp.StatusCode != http.StatusOK:
			resp.Body.Close()
			return nil, fmt.Errorf("caption host returned %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("caption download failed after %d attempts: %w", transcriptRetries, lastErr)
}

// json3Events is YouTube's timed-text JSON layout.
type json3Events struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func parseJSON3(data []byte) string {
	var payload json3Events
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	var b strings.Builder
	for _, event := range payload.Events {
		for _, seg := range event.Segs {
			b.WriteString(seg.UTF8)
		}
	}
	return strings.TrimSpace(b.String())
}

func parseVTT(data string) string {
	var lines []string
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "WEBVTT" {
			continue
		}
		if strings.Contains(line, "-->") || strings.HasPrefix(line, "NOTE") ||
			strings.HasPrefix(line, "Kind:") || strings.HasPrefix(line, "Language:") {
			continue
		}
		line = stripCueTags(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// stripCueTags removes inline <c>, <00:00:01.000> and similar cue markup.
func stripCueTags(line string) string {
	var b strings.Builder
	inTag := false
	for _, r := range line {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
