package models

// Tag is a named label attached to a bookmark.
type Tag struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// Collection groups bookmarks in the store.
type Collection struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Bookmark is a stored link as returned by the bookmark-store API.
type Bookmark struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	Description  string `json:"description"`
	Tags         []Tag  `json:"tags"`
	CollectionID int64  `json:"collectionId"`

	// Archive availability markers ("unavailable" when missing).
	Readable string `json:"readable,omitempty"`
	Monolith string `json:"monolith,omitempty"`

	// TextContent is the store's own extracted text, when archived.
	TextContent string `json:"textContent,omitempty"`

	// CollectionName is resolved client-side for display.
	CollectionName string `json:"-"`
}

// TagNames returns the bookmark's tag names in order.
func (b *Bookmark) TagNames() []string {
	names := make([]string, len(b.Tags))
	for i, t := range b.Tags {
		names[i] = t.Name
	}
	return names
}
