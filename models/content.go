package models

// ContentType classifies what kind of resource a URL points at.
type ContentType string

const (
	ContentTypeArticle  ContentType = "article"
	ContentTypeVideo    ContentType = "video"
	ContentTypeDocument ContentType = "document"
)

// Chapter is a named offset into a video.
type Chapter struct {
	StartTime float64 `json:"start_time"`
	Title     string  `json:"title"`
}

// ContentRecord is the uniform output of the acquisition pipeline.
// Records are immutable once returned; enrichment builds new values.
type ContentRecord struct {
	ContentType ContentType       `json:"content_type"`
	URL         string            `json:"url"`
	Title       string            `json:"title,omitempty"`
	TextContent string            `json:"text_content,omitempty"`
	Transcript  string            `json:"transcript,omitempty"`
	Chapters    []Chapter         `json:"chapters,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	FetchMethod string            `json:"fetch_method"`
}

// OutcomeKind is the terminal state of one URL's fallback chain.
type OutcomeKind int

const (
	// OutcomeOK means a ContentRecord was produced.
	OutcomeOK OutcomeKind = iota
	// OutcomeUnreachable means the HEAD probe got a non-2xx/3xx status.
	OutcomeUnreachable
	// OutcomeNonHTML means the resource is neither HTML nor a convertible document.
	OutcomeNonHTML
	// OutcomeNoContent means every applicable stage ran and produced nothing.
	OutcomeNoContent
	// OutcomeRateLimited means a third party returned 429; batch operations
	// must stop scheduling work when they see this.
	OutcomeRateLimited
)

// FetchOutcome is the typed result of the acquisition pipeline. Exactly one
// of Record (for OutcomeOK) or the diagnostic fields is meaningful.
type FetchOutcome struct {
	Kind        OutcomeKind
	Record      *ContentRecord
	StatusCode  int    // OutcomeUnreachable
	ContentType string // OutcomeNonHTML
	Reason      string
}

// OK reports whether the outcome carries a usable record.
func (o FetchOutcome) OK() bool { return o.Kind == OutcomeOK && o.Record != nil }

func (o FetchOutcome) String() string {
	switch o.Kind {
	case OutcomeOK:
		return "ok"
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeNonHTML:
		return "non-html"
	case OutcomeNoContent:
		return "no-content"
	case OutcomeRateLimited:
		return "rate-limited"
	}
	return "unknown"
}
