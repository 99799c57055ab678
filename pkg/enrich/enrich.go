// Package enrich decides which bookmark fields need improvement, asks a
// language model for proposals, and merges fetched content plus model output
// into a single update. The merge rules never destroy user data: existing
// titles are kept in brackets and existing descriptions are preserved below
// a separator.
package enrich

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/urlkey"
)

// bogusTitles are placeholder titles that carry no information.
var bogusTitles = map[string]struct{}{
	"just a moment...":    {},
	"attention required!": {},
	"access denied":       {},
	"untitled":            {},
	"unknown":             {},
}

// systemTags are bookkeeping tags that do not count as real categorization.
var systemTags = map[string]struct{}{
	"unknow": {},
	"unread": {},
}

var dateTagPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// descriptionSeparator sits between a new description and the preserved
// original.
const descriptionSeparator = "\n\n---\n"

// maxContentChars bounds how much page text goes into the model prompt.
const maxContentChars = 8000

// enrichedTagName marks bookmarks touched by automated enrichment.
const enrichedTagName = "unknow"

// IsSystemTag reports whether a tag is bookkeeping rather than content.
// Date tags (2024-06-01) count as bookkeeping too.
func IsSystemTag(name string) bool {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if _, ok := systemTags[lowered]; ok {
		return true
	}
	return dateTagPattern.MatchString(lowered)
}

// isJunkTitle covers titles that carry no information regardless of shape:
// empty, a known placeholder, or the bare domain of the URL itself.
func isJunkTitle(title, bookmarkURL string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(title))
	if trimmed == "" {
		return true
	}
	if _, ok := bogusTitles[trimmed]; ok {
		return true
	}
	if parsed, err := url.Parse(bookmarkURL); err == nil {
		host := strings.ToLower(parsed.Hostname())
		if trimmed == host || trimmed == strings.TrimPrefix(host, "www.") {
			return true
		}
	}
	return false
}

// IsBogusTitle reports whether a bookmark title needs replacing: junk, or
// missing the bracketed-original format enrichment produces.
func IsBogusTitle(title, bookmarkURL string) bool {
	if isJunkTitle(title, bookmarkURL) {
		return true
	}
	return !hasBracketedOriginal(title)
}

// hasBracketedOriginal matches the "Readable Title [original]" shape.
func hasBracketedOriginal(title string) bool {
	return strings.HasSuffix(strings.TrimSpace(title), "]") && strings.Contains(title, " [")
}

// AnalyzeNeeds inspects a bookmark and reports which fields enrichment
// should fill. With force every field is marked.
func AnalyzeNeeds(bm models.Bookmark, force bool) models.FieldNeeds {
	if force {
		return models.FieldNeeds{Title: true, Description: true, Tags: true}
	}

	needs := models.FieldNeeds{
		Title:       IsBogusTitle(bm.Name, bm.URL),
		Description: strings.TrimSpace(bm.Description) == "",
		Tags:        true,
	}
	for _, tag := range bm.Tags {
		if !IsSystemTag(tag.Name) {
			needs.Tags = false
			break
		}
	}
	return needs
}

// MergeTitle combines a proposed title with the existing one. The existing
// title survives in brackets unless it already starts with the proposal.
func MergeTitle(existing, proposed string) string {
	existing = strings.TrimSpace(existing)
	proposed = strings.TrimSpace(proposed)
	if proposed == "" {
		return existing
	}
	if existing == "" {
		return proposed
	}
	if strings.HasPrefix(strings.ToLower(existing), strings.ToLower(proposed)) {
		return existing
	}
	return fmt.Sprintf("%s [%s]", proposed, existing)
}

// MergeDescription prepends a new description to the existing one. When the
// existing text already contains the addition nothing changes.
func MergeDescription(existing, addition string) string {
	existing = strings.TrimSpace(existing)
	addition = strings.TrimSpace(addition)
	if addition == "" {
		return existing
	}
	if existing == "" {
		return addition
	}
	if strings.Contains(existing, addition) {
		return existing
	}
	return addition + descriptionSeparator + existing
}

// MatchCollection resolves a category name to a collection, ignoring case.
func MatchCollection(name string, collections []models.Collection) (models.Collection, bool) {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if lowered == "" {
		return models.Collection{}, false
	}
	for _, c := range collections {
		if strings.ToLower(c.Name) == lowered {
			return c, true
		}
	}
	return models.Collection{}, false
}

// Options controls Propose.
type Options struct {
	Force bool
	// Today overrides the date tag, for tests. Zero means time.Now.
	Today time.Time
}

// Propose computes the full update for one bookmark from fetched content and
// an optional model result. It is pure: no I/O, safe to call for dry runs
// and real runs alike.
func Propose(bm models.Bookmark, record *models.ContentRecord, result *models.EnrichmentResult, collections []models.Collection, opts Options) models.ProposedUpdate {
	needs := AnalyzeNeeds(bm, opts.Force)
	update := models.ProposedUpdate{
		BookmarkID:  bm.ID,
		Name:        bm.Name,
		URL:         bm.URL,
		Description: bm.Description,
	}

	if canonical := urlkey.Canonicalize(bm.URL); canonical != "" && canonical != bm.URL {
		update.URL = canonical
		update.URLChanged = true
	}

	titleFilled := false
	if needs.Title && record != nil && record.Title != "" && !isJunkTitle(record.Title, bm.URL) {
		merged := MergeTitle(bm.Name, record.Title)
		if merged != bm.Name {
			update.Name = merged
			update.NameChanged = true
		}
		titleFilled = true
	}

	if result != nil && !result.Skipped {
		if needs.Title && !titleFilled && result.Title != "" {
			merged := MergeTitle(bm.Name, result.Title)
			if merged != bm.Name {
				update.Name = merged
				update.NameChanged = true
			}
		}
		if needs.Description && result.Description != "" {
			merged := MergeDescription(bm.Description, result.Description)
			if merged != bm.Description {
				update.Description = merged
				update.DescriptionChanged = true
			}
		}
		if needs.Tags {
			existing := make(map[string]struct{}, len(bm.Tags))
			for _, t := range bm.Tags {
				existing[strings.ToLower(t.Name)] = struct{}{}
			}
			for _, tag := range result.Tags {
				tag = strings.TrimSpace(tag)
				if tag == "" {
					continue
				}
				if _, ok := existing[strings.ToLower(tag)]; !ok {
					update.AddTags = append(update.AddTags, tag)
					existing[strings.ToLower(tag)] = struct{}{}
				}
			}
		}
		category := result.Category
		if category == "" {
			category = result.SuggestedCategory
		}
		if c, ok := MatchCollection(category, collections); ok && c.ID != bm.CollectionID {
			update.CollectionID = c.ID
		}
	}

	if update.NameChanged || update.DescriptionChanged || len(update.AddTags) > 0 {
		update.AddTags = appendBookkeepingTags(update.AddTags, bm.Tags, opts.Today)
	}
	return update
}

// appendBookkeepingTags adds the enrichment marker and a date tag unless the
// bookmark already carries them.
func appendBookkeepingTags(addTags []string, existing []models.Tag, today time.Time) []string {
	if today.IsZero() {
		today = time.Now()
	}
	have := make(map[string]struct{}, len(existing)+len(addTags))
	for _, t := range existing {
		have[strings.ToLower(t.Name)] = struct{}{}
	}
	for _, t := range addTags {
		have[strings.ToLower(t)] = struct{}{}
	}

	if _, ok := have[enrichedTagName]; !ok {
		addTags = append(addTags, enrichedTagName)
	}
	dateTag := today.Format("2006-01-02")
	hasDate := false
	for name := range have {
		if dateTagPattern.MatchString(name) {
			hasDate = true
			break
		}
	}
	if !hasDate {
		addTags = append(addTags, dateTag)
	}
	return addTags
}
