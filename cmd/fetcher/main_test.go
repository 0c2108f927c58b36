package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"newswire/internal/fetch"
	"newswire/internal/queue"
)

type stubLimiter struct {
	hosts []string
}

func (s *stubLimiter) Wait(_ context.Context, host string) error {
	s.hosts = append(s.hosts, host)
	return nil
}

type stubFetcher struct {
	results []fetchOutcome
	calls   int
}

type fetchOutcome struct {
	res fetch.Result
	err error
}

func (s *stubFetcher) Fetch(context.Context, string) (fetch.Result, error) {
	out := s.results[s.calls]
	s.calls++
	return out.res, out.err
}

type stubPublisher struct {
	pages []queue.RawPage
	err   error
}

func (s *stubPublisher) PublishRawPage(_ context.Context, page queue.RawPage) error {
	if s.err != nil {
		return s.err
	}
	s.pages = append(s.pages, page)
	return nil
}

func fastBackoff(t *testing.T) {
	t.Helper()
	prev := backoffDelay
	backoffDelay = func(int) time.Duration { return time.Millisecond }
	t.Cleanup(func() { backoffDelay = prev })
}

func TestFetchAndPublishSuccess(t *testing.T) {
	limiter := &stubLimiter{}
	fetcher := &stubFetcher{results: []fetchOutcome{
		{res: fetch.Result{Status: 200, HTML: "<html><title>T</title><body>B</body></html>"}},
	}}
	publisher := &stubPublisher{}

	err := fetchAndPublish(context.Background(), "test", limiter, fetcher, publisher, "https://a.example/x")
	if err != nil {
		t.Fatalf("fetchAndPublish: %v", err)
	}

	if len(publisher.pages) != 1 {
		t.Fatalf("expected 1 published page, got %d", len(publisher.pages))
	}
	page := publisher.pages[0]
	if page.URL != "https://a.example/x" {
		t.Fatalf("published url %q", page.URL)
	}
	if page.HTML == "" {
		t.Fatalf("published page missing html")
	}
	if _, err := time.Parse(time.RFC3339, page.FetchedTime); err != nil {
		t.Fatalf("fetched_time %q not RFC3339: %v", page.FetchedTime, err)
	}
	if len(limiter.hosts) != 1 || limiter.hosts[0] != "a.example" {
		t.Fatalf("expected one throttle on a.example, got %v", limiter.hosts)
	}
}

func TestFetchAndPublishDropsNon200WithoutRetry(t *testing.T) {
	limiter := &stubLimiter{}
	fetcher := &stubFetcher{results: []fetchOutcome{
		{res: fetch.Result{Status: 404}, err: fmt.Errorf("%w: 404", fetch.ErrBadStatus)},
	}}
	publisher := &stubPublisher{}

	err := fetchAndPublish(context.Background(), "test", limiter, fetcher, publisher, "https://a.example/missing")
	if !errors.Is(err, fetch.ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus, got %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", fetcher.calls)
	}
	if len(publisher.pages) != 0 {
		t.Fatalf("non-200 must not publish")
	}
}

func TestFetchAndPublishRetriesTransportErrors(t *testing.T) {
	fastBackoff(t)

	boom := errors.New("connection reset")
	limiter := &stubLimiter{}
	fetcher := &stubFetcher{results: []fetchOutcome{
		{err: boom},
		{err: boom},
		{res: fetch.Result{Status: 200, HTML: "<html></html>"}},
	}}
	publisher := &stubPublisher{}

	err := fetchAndPublish(context.Background(), "test", limiter, fetcher, publisher, "https://a.example/x")
	if err != nil {
		t.Fatalf("expected recovery on third attempt: %v", err)
	}
	if fetcher.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", fetcher.calls)
	}
	// every attempt re-acquires the host slot
	if len(limiter.hosts) != 3 {
		t.Fatalf("expected 3 throttles, got %d", len(limiter.hosts))
	}
}

func TestFetchAndPublishExhaustsRetries(t *testing.T) {
	fastBackoff(t)

	boom := errors.New("timeout")
	fetcher := &stubFetcher{results: []fetchOutcome{{err: boom}, {err: boom}, {err: boom}}}
	publisher := &stubPublisher{}

	err := fetchAndPublish(context.Background(), "test", &stubLimiter{}, fetcher, publisher, "https://a.example/x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	if fetcher.calls != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, fetcher.calls)
	}
	if len(publisher.pages) != 0 {
		t.Fatalf("exhausted retries must not publish")
	}
}

func TestFetchAndPublishPublishFailureIsFatalForURL(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchOutcome{
		{res: fetch.Result{Status: 200, HTML: "<html></html>"}},
	}}
	publisher := &stubPublisher{err: errors.New("broker gone")}

	err := fetchAndPublish(context.Background(), "test", &stubLimiter{}, fetcher, publisher, "https://a.example/x")
	if err == nil {
		t.Fatalf("expected publish failure to surface")
	}
	if fetcher.calls != 1 {
		t.Fatalf("publish failure must not refetch, got %d attempts", fetcher.calls)
	}
}

func TestHostOfFallsBackToRawURL(t *testing.T) {
	t.Parallel()

	if got := hostOf("https://a.example/x"); got != "a.example" {
		t.Fatalf("hostOf url: %q", got)
	}
	if got := hostOf("not a url"); got != "not a url" {
		t.Fatalf("hostOf fallback: %q", got)
	}
}
