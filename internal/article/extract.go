package article

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fields is the structured output of main-content extraction for one page.
type Fields struct {
	CanonicalURL string
	Title        string
	Body         string
	Author       string
	Tags         []string
	PublishedAt  string
}

// Extract pulls canonical article fields out of a raw HTML page. The
// canonical URL falls back to the request URL; published timestamps are
// normalized to RFC3339 UTC with a trailing Z, or left empty when
// unparseable.
func Extract(rawHTML, url string) (Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Fields{}, err
	}

	fields := Fields{CanonicalURL: url}

	if href, ok := doc.Find("link[rel='canonical']").First().Attr("href"); ok {
		if trimmed := strings.TrimSpace(href); trimmed != "" {
			fields.CanonicalURL = trimmed
		}
	}

	fields.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if fields.Title == "" {
		if og, ok := doc.Find("meta[property='og:title']").First().Attr("content"); ok {
			fields.Title = strings.TrimSpace(og)
		}
	}

	fields.Body = mainContent(doc)

	fields.Author = firstMeta(doc,
		"meta[name='author']",
		"meta[property='article:author']",
		"meta[name='byl']",
	)

	fields.Tags = collectTags(doc)

	if ts := firstMeta(doc,
		"meta[property='article:published_time']",
		"meta[name='pubdate']",
		"meta[name='publication_date']",
		"meta[itemprop='datePublished']",
	); ts != "" {
		if parsed, ok := parseTimestamp(ts); ok {
			fields.PublishedAt = Timestamp(parsed)
		}
	}

	return fields, nil
}

// mainContent returns the HTML snippet of the page's main content: the first
// <article>, else <main>, else the <div> with the most paragraphs, else the
// whole <body>.
func mainContent(doc *goquery.Document) string {
	for _, sel := range []string{"article", "main"} {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if html, err := node.Html(); err == nil && strings.TrimSpace(html) != "" {
				return strings.TrimSpace(html)
			}
		}
	}

	var best *goquery.Selection
	bestCount := 0
	doc.Find("div").Each(func(_ int, div *goquery.Selection) {
		if count := div.ChildrenFiltered("p").Length(); count > bestCount {
			best = div
			bestCount = count
		}
	})
	if best != nil {
		if html, err := best.Html(); err == nil && strings.TrimSpace(html) != "" {
			return strings.TrimSpace(html)
		}
	}

	if html, err := doc.Find("body").First().Html(); err == nil {
		return strings.TrimSpace(html)
	}
	return ""
}

func firstMeta(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if trimmed := strings.TrimSpace(content); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func collectTags(doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	var tags []string

	add := func(raw string) {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			return
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}

	doc.Find("meta[property='article:tag']").Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			add(content)
		}
	})
	if keywords, ok := doc.Find("meta[name='keywords']").First().Attr("content"); ok {
		for _, part := range strings.Split(keywords, ",") {
			add(part)
		}
	}

	if tags == nil {
		tags = []string{}
	}
	return tags
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
