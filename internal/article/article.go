package article

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	"newswire/internal/article/urlcanon"
	"newswire/internal/queue"
)

// timeLayout is RFC3339 UTC with fixed-width nanoseconds so that stored
// timestamps order lexicographically; the indexer's watermark comparison
// depends on it.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Timestamp renders a time in the store's canonical string form.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Record is one deduplicated article version as persisted in the document
// store. Identity is the (canonical_url, hash) pair; a new body hash for the
// same canonical URL is a new record.
type Record struct {
	ID           string   `bson:"-" json:"id"`
	URL          string   `bson:"url" json:"url"`
	CanonicalURL string   `bson:"canonical_url" json:"canonical_url"`
	Source       string   `bson:"source" json:"source"`
	Title        string   `bson:"title" json:"title"`
	Body         string   `bson:"body" json:"body"`
	Author       string   `bson:"author,omitempty" json:"author,omitempty"`
	Tags         []string `bson:"tags" json:"tags"`
	PublishedAt  string   `bson:"published_at,omitempty" json:"published_at,omitempty"`
	FetchedAt    string   `bson:"fetched_at" json:"fetched_at"`
	Hash         string   `bson:"hash" json:"hash"`
	Updated      string   `bson:"updated" json:"updated"`
}

// HashBody computes the dedup content hash: hex MD5 of the extracted body's
// UTF-8 bytes.
func HashBody(body string) string {
	sum := md5.Sum([]byte(body))
	return hex.EncodeToString(sum[:])
}

// FromRawPage turns one queue message into a store-ready record. now stamps
// the record's updated field.
func FromRawPage(page queue.RawPage, now time.Time) (Record, error) {
	fields, err := Extract(page.HTML, page.URL)
	if err != nil {
		return Record{}, err
	}

	canonical := urlcanon.Normalize(fields.CanonicalURL)
	if canonical == "" {
		canonical = page.URL
	}

	return Record{
		URL:          page.URL,
		CanonicalURL: canonical,
		Source:       urlcanon.Host(canonical),
		Title:        fields.Title,
		Body:         fields.Body,
		Author:       fields.Author,
		Tags:         fields.Tags,
		PublishedAt:  fields.PublishedAt,
		FetchedAt:    page.FetchedTime,
		Hash:         HashBody(fields.Body),
		Updated:      Timestamp(now),
	}, nil
}

// PublishedEpoch converts a stored published_at string into epoch seconds for
// the search engine's int64 sort field. Empty or unparseable values become 0.
func PublishedEpoch(publishedAt string) int64 {
	if publishedAt == "" {
		return 0
	}
	if t, ok := parseTimestamp(publishedAt); ok {
		return t.Unix()
	}
	return 0
}
