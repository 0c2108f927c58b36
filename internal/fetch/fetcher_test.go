package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetcherReturnsBody(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html><title>T</title></html>"))
	}))
	t.Cleanup(srv.Close)

	res, err := NewFetcher().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Status)
	}
	if res.HTML != "<html><title>T</title></html>" {
		t.Fatalf("unexpected body %q", res.HTML)
	}
	if gotUA != "news-crawler/0.1" {
		t.Fatalf("expected stable user agent, got %q", gotUA)
	}
}

func TestFetcherBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	res, err := NewFetcher().Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus, got %v", err)
	}
	if res.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected status recorded, got %d", res.Status)
	}
	if res.HTML != "" {
		t.Fatalf("expected empty body on non-200")
	}
}

func TestFetcherTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewFetcher().Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if errors.Is(err, ErrBadStatus) {
		t.Fatalf("transport failure must not classify as bad status")
	}
}
