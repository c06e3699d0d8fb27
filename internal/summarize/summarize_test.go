package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/arnevogt/kindledigest/internal/digest"
)

type mockProvider struct {
	response string
	err      error
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ int) (string, error) {
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func TestFallbackSummaryLengths(t *testing.T) {
	excerpt := strings.Repeat("x", 500)
	article := digest.ArticleForRanking{Title: "A Title", Excerpt: excerpt}

	critical := FallbackSummary(article, digest.TierCritical)
	if len(critical.Summary) > 404 {
		t.Errorf("critical summary length = %d, want <= 404", len(critical.Summary))
	}
	if !strings.HasSuffix(critical.Summary, "...") {
		t.Error("truncated summary should end with ellipsis")
	}

	notable := FallbackSummary(article, digest.TierNotable)
	if len(notable.Summary) > 154 {
		t.Errorf("notable summary length = %d, want <= 154", len(notable.Summary))
	}

	if critical.OneLiner == nil || *critical.OneLiner != "A Title" {
		t.Errorf("one-liner should default to the title, got %v", critical.OneLiner)
	}
}

func TestFallbackSummaryKeepsMultibyteRunesIntact(t *testing.T) {
	article := digest.ArticleForRanking{Title: "T", Excerpt: strings.Repeat("ä", 500)}
	got := FallbackSummary(article, digest.TierCritical)
	if !utf8.ValidString(got.Summary) {
		t.Error("truncation split a multibyte character")
	}
	if !strings.HasSuffix(got.Summary, "...") {
		t.Error("truncated summary should end with ellipsis")
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(got.Summary, "...")); n != 400 {
		t.Errorf("truncated to %d characters, want 400", n)
	}
}

func TestFallbackSummaryShortExcerptUntouched(t *testing.T) {
	article := digest.ArticleForRanking{Title: "T", Excerpt: "Short excerpt."}
	got := FallbackSummary(article, digest.TierCritical)
	if got.Summary != "Short excerpt." {
		t.Errorf("short excerpt should pass through, got %q", got.Summary)
	}
}

func TestFallbackSummarizerCoversAll(t *testing.T) {
	articles := []digest.ArticleForRanking{
		{ID: "a", Title: "A", Excerpt: "aaa"},
		{ID: "b", Title: "B", Excerpt: "bbb"},
	}
	results := NewFallbackSummarizer().SummarizeAll(context.Background(), articles, nil, nil)
	if len(results) != 2 {
		t.Errorf("expected summary for every article, got %d", len(results))
	}
}

func TestLLMSummarizerParsesResponse(t *testing.T) {
	provider := &mockProvider{response: `{"summary": "A fine summary.", "one_liner": "Short take"}`}
	articles := []digest.ArticleForRanking{{ID: "a", Title: "A", Excerpt: "content"}}

	results := NewLLMSummarizer(provider).SummarizeAll(context.Background(), articles,
		map[string]string{"a": "full text"}, map[string]digest.Tier{"a": digest.TierCritical})

	got, ok := results["a"]
	if !ok {
		t.Fatal("expected a summary result")
	}
	if got.Summary != "A fine summary." || got.OneLiner == nil || *got.OneLiner != "Short take" {
		t.Errorf("unexpected summary: %+v", got)
	}
}

func TestLLMSummarizerOmitsFailures(t *testing.T) {
	provider := &mockProvider{err: errors.New("backend down")}
	articles := []digest.ArticleForRanking{{ID: "a", Title: "A", Excerpt: "content"}}

	results := NewLLMSummarizer(provider).SummarizeAll(context.Background(), articles, nil, nil)
	if len(results) != 0 {
		t.Errorf("failed articles must be omitted, got %d results", len(results))
	}
}

func TestBackfillCompletesCoverage(t *testing.T) {
	articles := []digest.ArticleForRanking{
		{ID: "a", Title: "A", Excerpt: "from the backend"},
		{ID: "b", Title: "B", Excerpt: "needs backfill"},
	}
	results := map[string]digest.Summary{"a": {Summary: "backend summary"}}

	Backfill(articles, map[string]digest.Tier{"b": digest.TierNotable}, results)
	if len(results) != 2 {
		t.Fatalf("expected full coverage after backfill, got %d", len(results))
	}
	if results["a"].Summary != "backend summary" {
		t.Error("backfill must not overwrite backend results")
	}
	if results["b"].Summary != "needs backfill" {
		t.Errorf("backfilled summary wrong: %+v", results["b"])
	}
}
