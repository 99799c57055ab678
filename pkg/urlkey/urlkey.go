// Package urlkey canonicalizes URLs and derives the coarser fuzzy keys used
// for duplicate matching and cache addressing.
package urlkey

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are stripped from every URL regardless of domain.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"ref":          {},
	"source":       {},
	"fbclid":       {},
	"gclid":        {},
	"mc_cid":       {},
	"mc_eid":       {},
	"si":           {},
}

// domainIDParams maps hosts to the query parameters that identify a resource
// there. An empty set means the ID lives in the path.
var domainIDParams = map[string]map[string]struct{}{
	"youtube.com":      {"v": {}, "list": {}},
	"www.youtube.com":  {"v": {}, "list": {}},
	"youtu.be":         {},
	"vimeo.com":        {},
	"open.spotify.com": {},
	"github.com":       {},
}

// genericIDParams is the allow-list for unknown domains.
var genericIDParams = map[string]struct{}{
	"v": {}, "id": {}, "p": {}, "pid": {}, "vid": {},
	"article": {}, "story": {}, "post": {},
}

// filterQuery rebuilds a raw query string without tracking params. When keep
// is non-nil only parameters in that set survive. Parameter order and casing
// are preserved for survivors.
func filterQuery(query string, keep map[string]struct{}) string {
	if query == "" {
		return ""
	}
	var filtered []string
	for _, param := range strings.Split(query, "&") {
		key := param
		if idx := strings.Index(param, "="); idx >= 0 {
			key = param[:idx]
		}
		key = strings.ToLower(key)
		if _, tracking := trackingParams[key]; tracking {
			continue
		}
		if keep != nil {
			if _, ok := keep[key]; !ok {
				continue
			}
		}
		filtered = append(filtered, param)
	}
	return strings.Join(filtered, "&")
}

// Canonicalize normalizes a URL for exact matching: http becomes https,
// the fragment is dropped, and tracking parameters are removed. Malformed
// or empty input yields an empty key, never an error.
func Canonicalize(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return ""
	}

	scheme := parsed.Scheme
	if scheme == "http" || scheme == "https" {
		scheme = "https"
	}

	out := scheme + "://" + strings.ToLower(parsed.Host) + parsed.Path
	if q := filterQuery(parsed.RawQuery, nil); q != "" {
		out += "?" + q
	}
	return out
}

// FuzzyKey derives the coarse near-duplicate key: lower-cased host and path
// with the trailing slash stripped, plus only the allow-listed identifying
// parameters for that host, sorted so parameter order is irrelevant.
func FuzzyKey(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return ""
	}

	host := strings.ToLower(parsed.Host)
	path := strings.TrimRight(parsed.Path, "/")

	keep, known := domainIDParams[host]
	if !known {
		keep = genericIDParams
	}

	key := host + path
	if q := filterQuery(parsed.RawQuery, keep); q != "" {
		params := strings.Split(strings.ToLower(q), "&")
		sort.Strings(params)
		key += "?" + strings.Join(params, "&")
	}
	return strings.ToLower(key)
}

// MatchKind distinguishes how a duplicate group was formed.
type MatchKind string

const (
	MatchExact MatchKind = "exact"
	MatchFuzzy MatchKind = "fuzzy"
)

// Member identifies one bookmark inside a duplicate group.
type Member struct {
	ID   int64
	URL  string
	Name string
}

// Group is a set of bookmarks sharing a key. Members are sorted by ascending
// ID; the first one is kept, the rest are delete candidates.
type Group struct {
	Kind    MatchKind
	Key     string
	Members []Member
}

// FindDuplicates partitions bookmarks into exact groups (same canonical key)
// and fuzzy groups (same fuzzy key among the remainder). A bookmark never
// appears in both. Unparsable URLs are skipped, never fatal.
func FindDuplicates(members []Member) (exact, fuzzy []Group) {
	exactIndex := make(map[string][]Member)
	for _, m := range members {
		if key := Canonicalize(m.URL); key != "" {
			exactIndex[key] = append(exactIndex[key], m)
		}
	}

	inExact := make(map[int64]struct{})
	for key, group := range exactIndex {
		if len(group) < 2 {
			continue
		}
		sortMembers(group)
		exact = append(exact, Group{Kind: MatchExact, Key: key, Members: group})
		for _, m := range group {
			inExact[m.ID] = struct{}{}
		}
	}

	fuzzyIndex := make(map[string][]Member)
	for _, m := range members {
		if _, taken := inExact[m.ID]; taken {
			continue
		}
		if key := FuzzyKey(m.URL); key != "" {
			fuzzyIndex[key] = append(fuzzyIndex[key], m)
		}
	}
	for key, group := range fuzzyIndex {
		if len(group) < 2 {
			continue
		}
		sortMembers(group)
		fuzzy = append(fuzzy, Group{Kind: MatchFuzzy, Key: key, Members: group})
	}

	sortGroups(exact)
	sortGroups(fuzzy)
	return exact, fuzzy
}

func sortMembers(members []Member) {
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
}

func sortGroups(groups []Group) {
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
}
