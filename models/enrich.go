package models

// EnrichmentResult is the parsed output of one model call.
type EnrichmentResult struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Tags              []string `json:"tags"`
	Category          string   `json:"category,omitempty"`
	SuggestedCategory string   `json:"suggested_category,omitempty"`

	// OriginalTitle is the title the content fetcher saw, kept so the
	// bracket convention can be applied later.
	OriginalTitle string `json:"_original_title,omitempty"`

	// Skipped marks an in-band "could not access content" sentinel. A
	// skipped result carries no usable fields and is never written back.
	Skipped bool   `json:"_skipped,omitempty"`
	Reason  string `json:"_reason,omitempty"`
}

// FieldNeeds records which bookmark fields the needs-analysis considers
// missing or placeholder.
type FieldNeeds struct {
	Title       bool
	Description bool
	Tags        bool
}

// Any reports whether at least one field needs enrichment.
func (n FieldNeeds) Any() bool { return n.Title || n.Description || n.Tags }

// ProposedUpdate is an immutable "would change to" value computed from a
// bookmark plus enrichment sources. The same value drives both the dry-run
// preview and the real update, so the two can never diverge.
type ProposedUpdate struct {
	BookmarkID   int64
	Name         string
	URL          string
	Description  string
	AddTags      []string // tag names to merge into the existing set
	CollectionID int64    // 0 means keep current

	// What changed relative to the original, for display.
	NameChanged        bool
	URLChanged         bool
	DescriptionChanged bool
}

// Empty reports whether the proposal would change nothing.
func (p ProposedUpdate) Empty() bool {
	return !p.NameChanged && !p.URLChanged && !p.DescriptionChanged &&
		len(p.AddTags) == 0 && p.CollectionID == 0
}
