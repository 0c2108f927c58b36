package article

import (
	"crypto/md5"
	"encoding/hex"
	"testing"
	"time"

	"newswire/internal/queue"
)

func TestFromRawPage(t *testing.T) {
	t.Parallel()

	page := queue.RawPage{
		URL:         "https://News.example/world/quake?utm_source=feed",
		HTML:        samplePage,
		FetchedTime: "2026-08-20T10:00:00Z",
	}
	now := time.Date(2026, 8, 20, 10, 0, 1, 0, time.UTC)

	rec, err := FromRawPage(page, now)
	if err != nil {
		t.Fatalf("from raw page: %v", err)
	}

	if rec.URL != page.URL {
		t.Fatalf("url %q", rec.URL)
	}
	if rec.CanonicalURL != "https://news.example/world/quake" {
		t.Fatalf("canonical %q", rec.CanonicalURL)
	}
	if rec.Source != "news.example" {
		t.Fatalf("source %q", rec.Source)
	}
	if rec.Title != "Quake Strikes Coast" {
		t.Fatalf("title %q", rec.Title)
	}
	if rec.FetchedAt != page.FetchedTime {
		t.Fatalf("fetched_at %q", rec.FetchedAt)
	}
	if rec.Updated != "2026-08-20T10:00:01.000000000Z" {
		t.Fatalf("updated %q", rec.Updated)
	}

	sum := md5.Sum([]byte(rec.Body))
	if rec.Hash != hex.EncodeToString(sum[:]) {
		t.Fatalf("hash is not md5 of body")
	}
}

func TestFromRawPageCanonicalFallsBackToPageURL(t *testing.T) {
	t.Parallel()

	page := queue.RawPage{
		URL:  "https://a.example/x",
		HTML: "<html><body><p>text</p></body></html>",
	}
	rec, err := FromRawPage(page, time.Now())
	if err != nil {
		t.Fatalf("from raw page: %v", err)
	}
	if rec.CanonicalURL != "https://a.example/x" {
		t.Fatalf("canonical %q", rec.CanonicalURL)
	}
}

func TestHashBodyStable(t *testing.T) {
	t.Parallel()

	if HashBody("hello") != HashBody("hello") {
		t.Fatalf("hash not deterministic")
	}
	if HashBody("hello") == HashBody("hello!") {
		t.Fatalf("distinct bodies collided")
	}
	if got := HashBody(""); len(got) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", got)
	}
}

func TestTimestampOrdersLexicographically(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(5 * time.Nanosecond),
		base.Add(time.Millisecond),
		base.Add(time.Second),
		base.AddDate(0, 0, 1),
	}
	for i := 1; i < len(times); i++ {
		a, b := Timestamp(times[i-1]), Timestamp(times[i])
		if !(a < b) {
			t.Fatalf("timestamps out of order: %q !< %q", a, b)
		}
	}
}

func TestPublishedEpoch(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC).Unix()
	if got := PublishedEpoch("2026-08-20T09:30:00.000000000Z"); got != want {
		t.Fatalf("epoch %d, want %d", got, want)
	}
	if got := PublishedEpoch(""); got != 0 {
		t.Fatalf("empty published_at should map to 0, got %d", got)
	}
	if got := PublishedEpoch("nonsense"); got != 0 {
		t.Fatalf("unparseable published_at should map to 0, got %d", got)
	}
}
