package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"newswire/internal/seed"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAddAndList(t *testing.T) {
	t.Setenv("SEED_FILE", filepath.Join(t.TempDir(), "seeds.yml"))

	out, err := runCmd(t, "add", "example", "--rss", "https://a.example/rss.xml", "--section", "https://a.example/world")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, `added seed "example"`) {
		t.Fatalf("add output %q", out)
	}

	seeds, err := seed.Load(seedFile())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	entry, ok := seeds["example"]
	if !ok || entry.RSS != "https://a.example/rss.xml" || len(entry.Sections) != 1 {
		t.Fatalf("saved entry %+v", entry)
	}

	out, err = runCmd(t, "ls")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if !strings.Contains(out, "example") || !strings.Contains(out, "rss: https://a.example/rss.xml") {
		t.Fatalf("ls output %q", out)
	}
}

func TestAddRejectsDuplicateName(t *testing.T) {
	t.Setenv("SEED_FILE", filepath.Join(t.TempDir(), "seeds.yml"))

	if _, err := runCmd(t, "add", "example", "--rss", "https://a.example/rss.xml"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := runCmd(t, "add", "example", "--rss", "https://b.example/rss.xml"); err == nil {
		t.Fatalf("expected duplicate-name error")
	}
}

func TestAddRequiresAtLeastOneURL(t *testing.T) {
	t.Setenv("SEED_FILE", filepath.Join(t.TempDir(), "seeds.yml"))

	if _, err := runCmd(t, "add", "empty"); err == nil {
		t.Fatalf("expected error for empty entry")
	}
}

func TestRemove(t *testing.T) {
	t.Setenv("SEED_FILE", filepath.Join(t.TempDir(), "seeds.yml"))

	if _, err := runCmd(t, "add", "example", "--sitemap", "https://a.example/sitemap.xml"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := runCmd(t, "rm", "example"); err != nil {
		t.Fatalf("rm: %v", err)
	}

	seeds, err := seed.Load(seedFile())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(seeds) != 0 {
		t.Fatalf("seed not removed: %v", seeds)
	}

	if _, err := runCmd(t, "rm", "example"); err == nil {
		t.Fatalf("expected not-found error")
	}
}

func TestListEmpty(t *testing.T) {
	t.Setenv("SEED_FILE", filepath.Join(t.TempDir(), "seeds.yml"))

	out, err := runCmd(t, "ls")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if !strings.Contains(out, "no seeds defined") {
		t.Fatalf("ls output %q", out)
	}
}
