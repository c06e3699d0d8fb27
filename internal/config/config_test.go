package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse([]byte(""))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Limits.MaxArticles != 20 {
		t.Errorf("MaxArticles = %d, want 20", cfg.Limits.MaxArticles)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("Provider = %q, want ollama", cfg.LLM.Provider)
	}
	if !cfg.Digest.Tiered {
		t.Error("expected tiered digest by default")
	}
	if cfg.Schedule != "0 6 * * *" {
		t.Errorf("Schedule = %q", cfg.Schedule)
	}
}

func TestParseEmbeddedDefault(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}
	if cfg.Interests.Len() == 0 {
		t.Error("default config has no interests")
	}
	if len(cfg.FeedURLs()) == 0 {
		t.Error("default config has no feeds")
	}
}

func TestParseInterestsKeepOrder(t *testing.T) {
	cfg, err := parse([]byte(`
interests:
  zebra:
    keywords: ["stripes"]
  aardvark:
    keywords: ["ants"]
`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	names := cfg.Interests.Names()
	if len(names) != 2 || names[0] != "zebra" || names[1] != "aardvark" {
		t.Errorf("interest order = %v, want [zebra aardvark]", names)
	}
}

func TestParseMalformedInterestsNotFatal(t *testing.T) {
	cfg, err := parse([]byte(`
interests: "just a string"
feeds:
  - https://example.com/feed
`))
	if err != nil {
		t.Fatalf("malformed interests should not fail config load: %v", err)
	}
	if cfg.Interests.Len() != 0 {
		t.Errorf("expected empty interests, got %d", cfg.Interests.Len())
	}
	if len(cfg.Feeds) != 1 {
		t.Errorf("rest of config lost: feeds = %v", cfg.Feeds)
	}
}

func TestFeedURLsMergesTopicFeeds(t *testing.T) {
	cfg, err := parse([]byte(`
feeds:
  - https://a.example/feed
interests:
  go:
    keywords: ["golang"]
    feeds:
      - https://go.dev/blog/feed.atom
      - https://a.example/feed
`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	urls := cfg.FeedURLs()
	if len(urls) != 2 {
		t.Fatalf("FeedURLs = %v, want 2 deduplicated entries", urls)
	}
	if urls[0] != "https://a.example/feed" || urls[1] != "https://go.dev/blog/feed.atom" {
		t.Errorf("FeedURLs order = %v", urls)
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Email.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want 587", cfg.Email.SMTPPort)
	}
}
