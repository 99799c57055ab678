package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		case "/pdf":
			w.Header().Set("Content-Type", "application/pdf")
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := NewFetcher()
	ctx := context.Background()

	if got := f.Probe(ctx, srv.URL+"/ok"); !got.Reachable || got.ContentType != "text/html" {
		t.Errorf("Probe(/ok) = %+v, want reachable text/html", got)
	}
	if got := f.Probe(ctx, srv.URL+"/pdf"); got.ContentType != "application/pdf" {
		t.Errorf("Probe(/pdf) content type = %q, want application/pdf", got.ContentType)
	}
	if got := f.Probe(ctx, srv.URL+"/gone"); got.Reachable || got.StatusCode != 404 {
		t.Errorf("Probe(/gone) = %+v, want unreachable 404", got)
	}
}

func TestProbe_NetworkErrorIsOptimistic(t *testing.T) {
	f := NewFetcher()
	got := f.Probe(context.Background(), "http://127.0.0.1:1/nothing")
	if !got.Reachable {
		t.Error("Probe() transport failure marked unreachable, want optimistic")
	}
	if got.StatusCode != 0 {
		t.Errorf("Probe() status = %d, want 0", got.StatusCode)
	}
}

func TestGetBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><p>hello</p></body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher()
	body, contentType, err := f.GetBytes(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetBytes() error = %v", err)
	}
	if contentType != "text/html" {
		t.Errorf("content type = %q, want text/html", contentType)
	}
	if len(body) == 0 {
		t.Error("GetBytes() returned empty body")
	}
}

func TestGetHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head><title>T</title></head><body></body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher()
	doc, err := f.GetHTML(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetHTML() error = %v", err)
	}
	if got := doc.Find("title").Text(); got != "T" {
		t.Errorf("title = %q, want T", got)
	}
}

func TestGetBytes_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher()
	if _, _, err := f.GetBytes(context.Background(), srv.URL); err == nil {
		t.Error("GetBytes() error = nil for 403, want error")
	}
}
