package seed

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Entry is one named source in the seeds file. A seed carries any mix of an
// RSS feed URL, a sitemap URL, and flat section URLs.
type Entry struct {
	RSS      string   `yaml:"rss,omitempty"`
	Sitemap  string   `yaml:"sitemap,omitempty"`
	Sections []string `yaml:"sections,omitempty"`
}

// Set is the full seeds.yml mapping, keyed by unique source name.
type Set map[string]Entry

var ErrNotMapping = errors.New("seeds file must contain a top-level mapping")

func (e Entry) Empty() bool {
	return e.RSS == "" && e.Sitemap == "" && len(e.Sections) == 0
}

// Load reads the seeds file. A missing file is an empty set, not an error.
func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Set{}, nil
		}
		return nil, err
	}

	var seeds Set
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotMapping, err)
	}
	if seeds == nil {
		seeds = Set{}
	}
	return seeds, nil
}

func Save(path string, seeds Set) error {
	data, err := yaml.Marshal(seeds)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Names returns the seed names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Flatten collapses every seed into one ordered URL list (rss, sitemap, then
// sections per entry; entries in name order) truncated to max. A max <= 0
// means no limit.
func Flatten(seeds Set, max int) []string {
	var urls []string
	for _, name := range seeds.Names() {
		entry := seeds[name]
		if entry.RSS != "" {
			urls = append(urls, entry.RSS)
		}
		if entry.Sitemap != "" {
			urls = append(urls, entry.Sitemap)
		}
		urls = append(urls, entry.Sections...)
	}

	if max > 0 && len(urls) > max {
		urls = urls[:max]
	}
	return urls
}
