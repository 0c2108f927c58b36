package urlcanon

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://News.Example/World", "https://news.example/World"},
		{"strips www", "https://www.example.com/a", "https://example.com/a"},
		{"strips default https port", "https://example.com:443/a", "https://example.com/a"},
		{"strips default http port", "http://example.com:80/a", "http://example.com/a"},
		{"keeps explicit port", "https://example.com:8443/a", "https://example.com:8443/a"},
		{"strips fragment", "https://example.com/a#section", "https://example.com/a"},
		{"strips utm params", "https://example.com/a?utm_source=x&utm_medium=y&id=7", "https://example.com/a?id=7"},
		{"strips click trackers", "https://example.com/a?fbclid=abc&gclid=def", "https://example.com/a"},
		{"trims trailing slash", "https://example.com/a/b/", "https://example.com/a/b"},
		{"keeps root slash", "https://example.com/", "https://example.com/"},
		{"empty stays empty", "", ""},
		{"schemeless passes through", "example.com/a", "example.com/a"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestHost(t *testing.T) {
	t.Parallel()

	if got := Host("https://News.Example:8080/a"); got != "news.example:8080" {
		t.Fatalf("host %q", got)
	}
	if got := Host("://bad"); got != "" {
		t.Fatalf("expected empty host for invalid url, got %q", got)
	}
}
