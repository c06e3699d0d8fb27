package digest

import (
	"testing"
	"time"

	"github.com/arnevogt/kindledigest/internal/database"
	"github.com/arnevogt/kindledigest/internal/interest"
)

func ptr(s string) *string { return &s }

func TestNormalizeTier(t *testing.T) {
	cases := map[string]Tier{
		"critical":  TierCritical,
		"notable":   TierNotable,
		"related":   TierRelated,
		"IMPORTANT": TierNotable,
		"":          TierNotable,
	}
	for in, want := range cases {
		if got := NormalizeTier(in); got != want {
			t.Errorf("NormalizeTier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildCandidates(t *testing.T) {
	saved := []database.Article{
		{ID: 1, Title: "Saved One", URL: "https://example.com/saved", Excerpt: ptr("An excerpt")},
	}
	selected := []interest.ScoredItem{
		{
			Item:          interest.FeedItem{Title: "Feed One", Link: "https://example.com/feed", FeedTitle: "Some Feed"},
			MatchedTopics: []string{"ai"},
		},
		{
			Item:          interest.FeedItem{Title: "Feed One again", Link: "https://example.com/feed"},
			MatchedTopics: []string{"tech"},
		},
	}

	candidates := BuildCandidates(saved, selected)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates after dedup, got %d", len(candidates))
	}
	if candidates[0].ID != "saved-1" || !candidates[0].ManualSave {
		t.Errorf("saved article candidate wrong: %+v", candidates[0])
	}
	if candidates[1].ID != "https://example.com/feed" || candidates[1].ManualSave {
		t.Errorf("feed candidate wrong: %+v", candidates[1])
	}
	if len(candidates[1].Topics) != 1 || candidates[1].Topics[0] != "ai" {
		t.Errorf("feed candidate topics wrong: %v", candidates[1].Topics)
	}
}

func TestAssembleJoinsTierAndSummary(t *testing.T) {
	candidates := []ArticleForRanking{
		{ID: "a", Title: "A", URL: "https://example.com/a", Source: "Feed"},
		{ID: "b", Title: "B", URL: "https://example.com/b", Excerpt: "B excerpt"},
	}
	tiers := map[string]Tier{"a": TierCritical}
	summaries := map[string]Summary{"a": {Summary: "A summary", OneLiner: ptr("A in one line")}}
	extras := map[string]Extras{"a": {Author: ptr("Jane"), ContentHTML: ptr("<p>body</p>")}}

	articles := Assemble(candidates, tiers, summaries, extras)
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[0].Tier != TierCritical || articles[0].Summary != "A summary" {
		t.Errorf("joined article wrong: %+v", articles[0])
	}
	if articles[0].Author == nil || *articles[0].Author != "Jane" {
		t.Errorf("extras not joined: %+v", articles[0])
	}
	// Unranked/unsummarized articles still appear with safe defaults.
	if articles[1].Tier != TierNotable || articles[1].Summary != "B excerpt" {
		t.Errorf("defaults not applied: %+v", articles[1])
	}
}

func TestPartitionAndStats(t *testing.T) {
	articles := []TieredDigestArticle{
		{ID: "1", Tier: TierCritical, ContentHTML: ptr("<p>x</p>")},
		{ID: "2", Tier: TierCritical},
		{ID: "3", Tier: TierNotable},
		{ID: "4", Tier: TierRelated},
	}

	critical, notable, related := Partition(articles)
	if len(critical) != 2 || len(notable) != 1 || len(related) != 1 {
		t.Errorf("partition counts: %d/%d/%d", len(critical), len(notable), len(related))
	}

	stats := ComputeStats(articles)
	if stats.Critical != 2 || stats.Notable != 1 || stats.Related != 1 {
		t.Errorf("stats wrong: %+v", stats)
	}
	if stats.FullArticles != 1 {
		t.Errorf("FullArticles = %d, want 1", stats.FullArticles)
	}
}

func TestFilenames(t *testing.T) {
	date := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	if got := SummaryFilename(date); got != "kindle-digest-summary-2026-03-01.epub" {
		t.Errorf("SummaryFilename = %q", got)
	}
	if got := FullFilename(date); got != "kindle-digest-full-2026-03-01.epub" {
		t.Errorf("FullFilename = %q", got)
	}
	if got := LegacyFilename(date); got != "kindle-digest-2026-03-01.epub" {
		t.Errorf("LegacyFilename = %q", got)
	}
}
