package synccmd

import (
	"reflect"
	"testing"
	"time"

	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/index"
)

var fixedDay = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func TestProposeFromEntry_FullUpdate(t *testing.T) {
	bm := models.Bookmark{
		ID:          42,
		Name:        "untitled",
		URL:         "http://example.com/post?utm_source=rss",
		Description: "",
	}
	entry := index.Entry{
		Title:       "A Better Title",
		Description: "Curated summary.",
		Date:        "2026-08-20",
	}

	update := proposeFromEntry(bm, entry, fixedDay)

	if !update.URLChanged || update.URL != "https://example.com/post" {
		t.Errorf("URL = %q (changed=%v), want canonical https URL", update.URL, update.URLChanged)
	}
	if !update.NameChanged || update.Name != "A Better Title [untitled]" {
		t.Errorf("Name = %q, want bracketed merge", update.Name)
	}
	if !update.DescriptionChanged || update.Description != "Curated summary." {
		t.Errorf("Description = %q", update.Description)
	}
	if want := []string{"unknow", "2026-08-20"}; !reflect.DeepEqual(update.AddTags, want) {
		t.Errorf("AddTags = %v, want %v", update.AddTags, want)
	}
}

func TestProposeFromEntry_AlreadySynced(t *testing.T) {
	bm := models.Bookmark{
		ID:          7,
		Name:        "A Better Title [untitled]",
		URL:         "https://example.com/post",
		Description: "Curated summary.",
		Tags: []models.Tag{
			{ID: 1, Name: "unknow"},
			{ID: 2, Name: "2026-08-20"},
		},
	}
	entry := index.Entry{
		Title:       "A Better Title",
		Description: "Curated summary.",
		Date:        "2026-08-20",
	}

	update := proposeFromEntry(bm, entry, fixedDay)
	if !update.Empty() {
		t.Errorf("expected empty update, got %+v", update)
	}
}

func TestProposeFromEntry_DatelessEntryUsesToday(t *testing.T) {
	bm := models.Bookmark{ID: 1, Name: "x", URL: "https://example.com/a"}
	entry := index.Entry{Title: "New"}

	update := proposeFromEntry(bm, entry, fixedDay)
	if want := []string{"unknow", "2026-08-25"}; !reflect.DeepEqual(update.AddTags, want) {
		t.Errorf("AddTags = %v, want %v", update.AddTags, want)
	}
}

func TestProposeFromEntry_TitlePrefixKept(t *testing.T) {
	bm := models.Bookmark{
		ID:   3,
		Name: "Go Generics Explained - a deep dive",
		URL:  "https://example.com/generics",
		Tags: []models.Tag{{Name: "unknow"}, {Name: "2026-08-20"}},
	}
	entry := index.Entry{Title: "Go Generics Explained", Date: "2026-08-20"}

	update := proposeFromEntry(bm, entry, fixedDay)
	if update.NameChanged {
		t.Errorf("name should stay when it already starts with the curated title, got %q", update.Name)
	}
}
