// Package store is the REST client for the bookmark service. All calls use
// bearer auth; collection listings are cached briefly because nearly every
// command starts by resolving collection names.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/cachestore"
)

// CollectionsTTL is the cache lifetime for the collections listing.
const CollectionsTTL = 24 * time.Hour

// ArchiveFormat selects which stored artifact of a link to download.
type ArchiveFormat int

const (
	ArchiveReadable ArchiveFormat = 3 // readability JSON
	ArchiveMonolith ArchiveFormat = 4 // self-contained HTML snapshot
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	cache   *cachestore.Store
	logger  *slog.Logger
}

func NewClient(baseURL, token string, cache *cachestore.Store, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
		cache:   cache,
		logger:  logger,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	return resp, nil
}

func apiError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("store API %d: %s", resp.StatusCode, string(b))
}

// Collections lists all collections, serving from cache when fresh.
func (c *Client) Collections(ctx context.Context) ([]models.Collection, error) {
	var cached []models.Collection
	if c.cache.Get(cachestore.CategoryCollections, "all", CollectionsTTL, &cached) {
		return cached, nil
	}

	resp, err := c.do(ctx, http.MethodGet, "/api/v1/collections", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var payload struct {
		Response []models.Collection `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode collections: %w", err)
	}

	if err := c.cache.Set(cachestore.CategoryCollections, "all", payload.Response, CollectionsTTL); err != nil {
		c.logger.Warn("failed to cache collections", "error", err)
	}
	return payload.Response, nil
}

// InvalidateCollections drops the cached collection listing.
func (c *Client) InvalidateCollections() error {
	return c.cache.Remove(cachestore.CategoryCollections, "all")
}

// CollectionLinks pages through one collection via the search API.
func (c *Client) CollectionLinks(ctx context.Context, collectionID int64) ([]models.Bookmark, error) {
	var all []models.Bookmark
	cursor := int64(0)

	for {
		path := "/api/v1/search?collectionId=" + strconv.FormatInt(collectionID, 10)
		if cursor > 0 {
			path += "&cursor=" + strconv.FormatInt(cursor, 10)
		}

		resp, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return nil, apiError(resp)
		}

		var payload struct {
			Data struct {
				Links      []models.Bookmark `json:"links"`
				NextCursor int64             `json:"nextCursor"`
			} `json:"data"`
		}
		err = json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode links page: %w", err)
		}

		if len(payload.Data.Links) == 0 {
			break
		}
		all = append(all, payload.Data.Links...)

		if payload.Data.NextCursor == 0 {
			break
		}
		cursor = payload.Data.NextCursor
	}
	return all, nil
}

// AllLinks fetches every bookmark across all collections, stamping each with
// its collection name.
func (c *Client) AllLinks(ctx context.Context) ([]models.Bookmark, error) {
	collections, err := c.Collections(ctx)
	if err != nil {
		return nil, err
	}

	var all []models.Bookmark
	for _, collection := range collections {
		links, err := c.CollectionLinks(ctx, collection.ID)
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", collection.Name, err)
		}
		for i := range links {
			links[i].CollectionName = collection.Name
		}
		c.logger.Debug("fetched collection", "name", collection.Name, "links", len(links))
		all = append(all, links...)
	}
	return all, nil
}

// UpdateLink applies a proposed update. Tags are merged by name with the
// bookmark's existing tags, never replaced wholesale.
func (c *Client) UpdateLink(ctx context.Context, bm models.Bookmark, update models.ProposedUpdate) error {
	existing := make(map[string]struct{}, len(bm.Tags))
	tags := make([]models.Tag, 0, len(bm.Tags)+len(update.AddTags))
	for _, t := range bm.Tags {
		existing[t.Name] = struct{}{}
		tags = append(tags, t)
	}
	for _, name := range update.AddTags {
		if _, ok := existing[name]; !ok {
			tags = append(tags, models.Tag{Name: name})
		}
	}

	collectionID := bm.CollectionID
	if update.CollectionID != 0 {
		collectionID = update.CollectionID
	}

	payload := map[string]any{
		"id":           bm.ID,
		"name":         update.Name,
		"url":          update.URL,
		"description":  update.Description,
		"collectionId": collectionID,
		"collection":   map[string]any{"id": collectionID},
		"tags":         tags,
	}

	resp, err := c.do(ctx, http.MethodPut, "/api/v1/links/"+strconv.FormatInt(bm.ID, 10), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

// CreateLink adds a new bookmark.
func (c *Client) CreateLink(ctx context.Context, name, linkURL, description string, tags []string, collectionID int64) (*models.Bookmark, error) {
	tagObjs := make([]models.Tag, 0, len(tags))
	for _, t := range tags {
		tagObjs = append(tagObjs, models.Tag{Name: t})
	}
	payload := map[string]any{
		"name":         name,
		"url":          linkURL,
		"description":  description,
		"collectionId": collectionID,
		"tags":         tagObjs,
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/links", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp)
	}

	var created struct {
		Response models.Bookmark `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode created link: %w", err)
	}
	return &created.Response, nil
}

// DeleteLink removes a bookmark.
func (c *Client) DeleteLink(ctx context.Context, linkID int64) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/v1/links/"+strconv.FormatInt(linkID, 10), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

// Archive downloads a stored artifact of a link. Returns nil without error
// when the artifact does not exist.
func (c *Client) Archive(ctx context.Context, linkID int64, format ArchiveFormat) ([]byte, error) {
	path := fmt.Sprintf("/api/v1/archives/%d?format=%d", linkID, format)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	return io.ReadAll(resp.Body)
}
