package seed

import (
	"context"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// Expander resolves RSS seed URLs into per-article links. Sitemap and section
// URLs are left as direct fetch targets.
type Expander struct {
	parser *gofeed.Parser
}

func NewExpander() *Expander {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 20 * time.Second}
	return &Expander{parser: parser}
}

// ExpandFlatten behaves like Flatten but replaces each RSS seed URL with the
// links of the feed's items. Feeds that fail to fetch or parse contribute
// their own URL instead so the pipeline still attempts them directly.
func (e *Expander) ExpandFlatten(ctx context.Context, seeds Set, max int) []string {
	expanded := make(Set, len(seeds))
	for name, entry := range seeds {
		if entry.RSS == "" {
			expanded[name] = entry
			continue
		}

		feed, err := e.parser.ParseURLWithContext(entry.RSS, ctx)
		if err != nil || feed == nil || len(feed.Items) == 0 {
			expanded[name] = entry
			continue
		}

		links := make([]string, 0, len(feed.Items)+len(entry.Sections))
		for _, item := range feed.Items {
			if item != nil && item.Link != "" {
				links = append(links, item.Link)
			}
		}
		links = append(links, entry.Sections...)
		expanded[name] = Entry{Sitemap: entry.Sitemap, Sections: links}
	}
	return Flatten(expanded, max)
}
