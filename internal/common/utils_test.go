package common

import (
	"reflect"
	"testing"
)

func TestSanitizeURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://example.com/post", "https://example.com/post"},
		{"  https://example.com/post  ", "https://example.com/post"},
		{"https://example.com/post,", "https://example.com/post"},
		{"(https://example.com/post)", "https://example.com/post"},
		{"[read this](https://example.com/post)", "https://example.com/post"},
		{"<https://example.com/post>", "https://example.com/post"},
		{"\"https://example.com/post\"", "https://example.com/post"},
	}
	for _, tc := range cases {
		if got := SanitizeURL(tc.in); got != tc.want {
			t.Errorf("SanitizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeAndValidateURLs(t *testing.T) {
	valid, invalid := SanitizeAndValidateURLs([]string{
		"https://example.com/a",
		"http://example.com/b,",
		"ftp://example.com/c",
		"https://example.com/with space",
		"not a url",
		"",
	})

	wantValid := []string{"https://example.com/a", "http://example.com/b"}
	if !reflect.DeepEqual(valid, wantValid) {
		t.Errorf("valid = %v, want %v", valid, wantValid)
	}
	if len(invalid) != 4 {
		t.Errorf("invalid = %v, want 4 entries", invalid)
	}
}
