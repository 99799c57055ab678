// Package textutil provides text shaping helpers for fetched content:
// sentence-aware truncation, transcript cleanup, and duration formatting.
package textutil

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Ellipsis marks truncated content.
const Ellipsis = " ..."

var sentenceEndings = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// Truncate shortens text to at most maxChars, preferring a sentence boundary.
// The boundary search runs backward from the limit; a boundary before the
// midpoint is rejected in favor of the last whitespace break so the result
// is never absurdly short. Returns the (possibly shortened) text and whether
// truncation happened.
func Truncate(text string, maxChars int) (string, bool) {
	if len(text) <= maxChars {
		return text, false
	}

	// Back the limit off to a rune start so the cut never splits a
	// multi-byte character.
	for maxChars > 0 && !utf8.RuneStart(text[maxChars]) {
		maxChars--
	}
	cut := text[:maxChars]

	lastBoundary := -1
	for _, ending := range sentenceEndings {
		if pos := strings.LastIndex(cut, ending); pos > lastBoundary {
			lastBoundary = pos + len(ending) - 1 // keep the punctuation
		}
	}
	if lastBoundary > maxChars/2 {
		return cut[:lastBoundary+1] + Ellipsis, true
	}

	if lastSpace := strings.LastIndex(cut, " "); lastSpace > 0 {
		return cut[:lastSpace] + Ellipsis, true
	}
	return cut + Ellipsis, true
}

// CollapseRepeats removes consecutive duplicated token runs from text.
// Caption-derived transcripts repeat phrases across overlapping timed cues;
// a sliding window of 1..maxWindow tokens collapses each repeated run to a
// single occurrence.
func CollapseRepeats(text string, maxWindow int) string {
	tokens := strings.Fields(text)
	if len(tokens) < 2 {
		return text
	}

	for window := 1; window <= maxWindow; window++ {
		tokens = collapseWindow(tokens, window)
	}
	return strings.Join(tokens, " ")
}

func collapseWindow(tokens []string, window int) []string {
	if len(tokens) < window*2 {
		return tokens
	}
	out := make([]string, 0, len(tokens))
	i := 0
	for i < len(tokens) {
		out = append(out, tokens[i:min(i+window, len(tokens))]...)
		j := i + window
		for j+window <= len(tokens) && equalRun(tokens, i, j, window) {
			j += window
		}
		i = j
	}
	return out
}

func equalRun(tokens []string, a, b, n int) bool {
	for k := 0; k < n; k++ {
		if tokens[a+k] != tokens[b+k] {
			return false
		}
	}
	return true
}

// JoinCaptionLines merges caption lines into sentence-terminated paragraphs.
func JoinCaptionLines(text string) string {
	var paragraphs []string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		current = append(current, line)
		if strings.HasSuffix(line, ".") {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, " "))
	}
	return strings.Join(paragraphs, "\n")
}

// FormatDuration renders seconds as "1h 5m 30s", omitting zero components.
func FormatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes, secs := seconds/60, seconds%60
	if minutes < 60 {
		if secs > 0 {
			return fmt.Sprintf("%dm %ds", minutes, secs)
		}
		return fmt.Sprintf("%dm", minutes)
	}
	hours, mins := minutes/60, minutes%60
	parts := []string{fmt.Sprintf("%dh", hours)}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	if secs > 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

// FormatDurationShort renders seconds as "1:05:30" or "5:30".
func FormatDurationShort(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
