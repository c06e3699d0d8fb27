package summarize

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/arnevogt/kindledigest/internal/digest"
	"github.com/arnevogt/kindledigest/internal/llm"
)

const (
	contentBudget       = 6000
	summaryConcurrency  = 3
	summaryMaxTokens    = 512
	criticalExcerptMax  = 400
	secondaryExcerptMax = 150
)

const summaryPrompt = `You are writing digest copy for a daily reading digest.

Article title: %s
Content:
%s

%s

Respond with ONLY this JSON:
{"summary": "the summary text", "one_liner": "the article in at most 15 words"}`

var tierInstructions = map[digest.Tier]string{
	digest.TierCritical: "Write a 3-5 sentence summary covering the key developments and why they matter.",
	digest.TierNotable:  "Write a 1-2 sentence summary of the main point.",
	digest.TierRelated:  "Write a single line of at most 15 words.",
}

// Summarizer produces prose for candidate articles. Articles missing from
// the result failed and must be backfilled by the caller.
type Summarizer interface {
	SummarizeAll(ctx context.Context, articles []digest.ArticleForRanking, content map[string]string, tiers map[string]digest.Tier) map[string]digest.Summary
}

// LLMSummarizer summarizes each article with a tier-specific prompt, running
// a bounded number of requests concurrently.
type LLMSummarizer struct {
	provider llm.Provider
}

// NewLLMSummarizer creates an LLM-backed summarizer.
func NewLLMSummarizer(provider llm.Provider) *LLMSummarizer {
	return &LLMSummarizer{provider: provider}
}

// SummarizeAll fans out summary requests with bounded concurrency. Failed
// articles are logged and omitted from the result map.
func (s *LLMSummarizer) SummarizeAll(ctx context.Context, articles []digest.ArticleForRanking, content map[string]string, tiers map[string]digest.Tier) map[string]digest.Summary {
	results := make(map[string]digest.Summary, len(articles))

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, summaryConcurrency)

	for _, article := range articles {
		wg.Add(1)
		sem <- struct{}{}
		go func(a digest.ArticleForRanking) {
			defer wg.Done()
			defer func() { <-sem }()

			summary, err := s.summarizeOne(ctx, a, content[a.ID], tiers[a.ID])
			if err != nil {
				log.Printf("Summarization failed for %s: %v", a.ID, err)
				return
			}
			mu.Lock()
			results[a.ID] = summary
			mu.Unlock()
		}(article)
	}
	wg.Wait()
	return results
}

func (s *LLMSummarizer) summarizeOne(ctx context.Context, article digest.ArticleForRanking, fullText string, tier digest.Tier) (digest.Summary, error) {
	text := fullText
	if text == "" {
		text = article.Snippet
	}
	if text == "" {
		text = article.Excerpt
	}
	text = truncateRunes(text, contentBudget)

	instructions, ok := tierInstructions[tier]
	if !ok {
		instructions = tierInstructions[digest.TierNotable]
	}

	response, err := s.provider.Generate(ctx, fmt.Sprintf(summaryPrompt, article.Title, text, instructions), summaryMaxTokens)
	if err != nil {
		return digest.Summary{}, err
	}

	var parsed struct {
		Summary  string `json:"summary"`
		OneLiner string `json:"one_liner"`
	}
	if err := llm.ParseJSONResponse(response, &parsed); err != nil {
		return digest.Summary{}, err
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return digest.Summary{}, fmt.Errorf("empty summary in response")
	}

	summary := digest.Summary{Summary: strings.TrimSpace(parsed.Summary)}
	if oneLiner := strings.TrimSpace(parsed.OneLiner); oneLiner != "" {
		summary.OneLiner = &oneLiner
	}
	return summary, nil
}

// FallbackSummarizer derives summaries from the article excerpt without any
// backend. Always produces a result for every article.
type FallbackSummarizer struct{}

// NewFallbackSummarizer creates the deterministic summarizer.
func NewFallbackSummarizer() *FallbackSummarizer {
	return &FallbackSummarizer{}
}

// SummarizeAll summarizes every article deterministically.
func (s *FallbackSummarizer) SummarizeAll(_ context.Context, articles []digest.ArticleForRanking, _ map[string]string, tiers map[string]digest.Tier) map[string]digest.Summary {
	results := make(map[string]digest.Summary, len(articles))
	for _, a := range articles {
		results[a.ID] = FallbackSummary(a, tiers[a.ID])
	}
	return results
}

// FallbackSummary truncates the excerpt to a tier-dependent length and uses
// the title as the one-liner.
func FallbackSummary(article digest.ArticleForRanking, tier digest.Tier) digest.Summary {
	limit := secondaryExcerptMax
	if tier == digest.TierCritical {
		limit = criticalExcerptMax
	}

	text := strings.TrimSpace(article.Excerpt)
	if text == "" {
		text = strings.TrimSpace(article.Snippet)
	}
	if truncated := truncateRunes(text, limit); truncated != text {
		text = truncated + "..."
	}

	title := article.Title
	return digest.Summary{Summary: text, OneLiner: &title}
}

// truncateRunes cuts text at a rune boundary so multibyte characters are
// never split mid-sequence.
func truncateRunes(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// Backfill fills in a fallback summary for every article missing from the
// results, guaranteeing total coverage before assembly.
func Backfill(articles []digest.ArticleForRanking, tiers map[string]digest.Tier, results map[string]digest.Summary) {
	for _, a := range articles {
		if _, ok := results[a.ID]; !ok {
			results[a.ID] = FallbackSummary(a, tiers[a.ID])
		}
	}
}
