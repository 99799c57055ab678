package enrichcmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/store"
	"github.com/bszwed/linkmark/pkg/textutil"
)

const archiveMaxChars = 64_000

// archiveFallback builds a content record from the store's own archived data
// when the live fetch produced nothing. Tries the link's extracted text, then
// the readability archive, then the monolith snapshot.
func (e *enricher) archiveFallback(ctx context.Context, bm models.Bookmark) *models.ContentRecord {
	if text := strings.TrimSpace(bm.TextContent); text != "" {
		text, _ = textutil.Truncate(text, archiveMaxChars)
		return &models.ContentRecord{
			ContentType: models.ContentTypeArticle,
			URL:         bm.URL,
			Title:       bm.Name,
			TextContent: text,
			FetchMethod: "store-text",
		}
	}

	if bm.Readable != "" && bm.Readable != "unavailable" {
		if record := e.readableArchive(ctx, bm); record != nil {
			return record
		}
	}

	if bm.Monolith != "" && bm.Monolith != "unavailable" {
		if record := e.monolithArchive(ctx, bm); record != nil {
			return record
		}
	}
	return nil
}

func (e *enricher) readableArchive(ctx context.Context, bm models.Bookmark) *models.ContentRecord {
	raw, err := e.client.Archive(ctx, bm.ID, store.ArchiveReadable)
	if err != nil || len(raw) == 0 {
		if err != nil {
			e.rt.Logger.Debug("readable archive fetch failed", "id", bm.ID, "error", err)
		}
		return nil
	}

	var parsed struct {
		Title       string `json:"title"`
		TextContent string `json:"textContent"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		e.rt.Logger.Debug("readable archive is not valid JSON", "id", bm.ID, "error", err)
		return nil
	}
	text := strings.TrimSpace(parsed.TextContent)
	if text == "" {
		return nil
	}
	text, _ = textutil.Truncate(text, archiveMaxChars)

	title := parsed.Title
	if title == "" {
		title = bm.Name
	}
	return &models.ContentRecord{
		ContentType: models.ContentTypeArticle,
		URL:         bm.URL,
		Title:       title,
		TextContent: text,
		FetchMethod: "store-readable",
	}
}

func (e *enricher) monolithArchive(ctx context.Context, bm models.Bookmark) *models.ContentRecord {
	raw, err := e.client.Archive(ctx, bm.ID, store.ArchiveMonolith)
	if err != nil || len(raw) == 0 {
		if err != nil {
			e.rt.Logger.Debug("monolith archive fetch failed", "id", bm.ID, "error", err)
		}
		return nil
	}

	record, err := e.extractor.Extract(bm.URL, raw)
	if err != nil || record == nil || strings.TrimSpace(record.TextContent) == "" {
		return nil
	}
	if record.Title == "" {
		record.Title = bm.Name
	}
	record.TextContent, _ = textutil.Truncate(record.TextContent, archiveMaxChars)
	record.FetchMethod = "store-monolith"
	return record
}
