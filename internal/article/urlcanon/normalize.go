package urlcanon

import (
	"net/url"
	pathpkg "path"
	"strings"
)

var trackingParameters = map[string]struct{}{
	"fbclid": {},
	"gclid":  {},
	"gclsrc": {},
	"mc_cid": {},
	"mc_eid": {},
}

// Normalize canonicalizes a URL string for storage and dedup comparison.
// It lowercases the scheme and host, strips a leading "www.", removes default
// ports, fragments, utm_* and common click-tracking parameters, and trims a
// trailing slash while keeping the root path. Invalid URLs pass through
// unchanged.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return raw
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)

	host := strings.ToLower(parsed.Hostname())
	if strings.HasPrefix(host, "www.") && len(host) > len("www.") {
		host = strings.TrimPrefix(host, "www.")
	}

	port := parsed.Port()
	if (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		parsed.Host = host + ":" + port
	} else {
		parsed.Host = host
	}

	if parsed.Path != "" {
		cleaned := pathpkg.Clean(parsed.Path)
		if cleaned == "." {
			cleaned = ""
		}
		if cleaned != "/" {
			cleaned = strings.TrimSuffix(cleaned, "/")
		}
		parsed.Path = cleaned
	}

	if parsed.RawQuery != "" {
		values := parsed.Query()
		for key := range values {
			if _, tracked := trackingParameters[strings.ToLower(key)]; tracked || strings.HasPrefix(strings.ToLower(key), "utm_") {
				values.Del(key)
			}
		}
		parsed.RawQuery = values.Encode()
	}

	parsed.Fragment = ""

	return parsed.String()
}

// Host returns the normalized host part of a URL, or "" when it cannot be
// parsed. Used to derive the article source facet.
func Host(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}
