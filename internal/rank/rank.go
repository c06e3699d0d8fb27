package rank

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/arnevogt/kindledigest/internal/digest"
	"github.com/arnevogt/kindledigest/internal/llm"
)

const (
	batchSize        = 10
	excerptPromptMax = 300
	rankMaxTokens    = 1024
)

const rankPrompt = `You are an editor ranking articles for a daily reading digest.

Assign each article exactly one tier:
- "critical": breaking news, major developments, urgent reads for today
- "notable": important follow-ups and solid reads that are not urgent
- "related": tangential or minor items worth a one-line mention

The reader's interest topics, most important first:
%s

Articles:
%s

Respond with ONLY a JSON array, one entry per article:
[{"id": "<article id>", "tier": "critical" | "notable" | "related", "reason": "one short sentence"}]`

// Assignment is the ranking verdict for one article.
type Assignment struct {
	Tier   digest.Tier
	Reason string
}

// Ranker assigns an importance tier to every candidate article. Every input
// ID appears in the result.
type Ranker interface {
	Rank(ctx context.Context, articles []digest.ArticleForRanking, topicNames []string) map[string]Assignment
}

// LLMRanker ranks articles in batches via an LLM provider. Batch failures
// degrade that batch to notable instead of failing the run.
type LLMRanker struct {
	provider llm.Provider
}

// NewLLMRanker creates an LLM-backed ranker.
func NewLLMRanker(provider llm.Provider) *LLMRanker {
	return &LLMRanker{provider: provider}
}

// Rank processes articles in fixed-size batches, sequentially.
func (r *LLMRanker) Rank(ctx context.Context, articles []digest.ArticleForRanking, topicNames []string) map[string]Assignment {
	assignments := make(map[string]Assignment, len(articles))
	topics := formatTopics(topicNames)

	for start := 0; start < len(articles); start += batchSize {
		end := start + batchSize
		if end > len(articles) {
			end = len(articles)
		}
		batch := articles[start:end]

		if err := r.rankBatch(ctx, batch, topics, assignments); err != nil {
			log.Printf("Ranking batch %d-%d failed: %v", start, end-1, err)
			for _, a := range batch {
				assignments[a.ID] = Assignment{Tier: digest.TierNotable, Reason: "ranking failed"}
			}
		}
	}

	// Articles the model skipped still need a tier.
	for _, a := range articles {
		if _, ok := assignments[a.ID]; !ok {
			assignments[a.ID] = Assignment{Tier: digest.TierNotable, Reason: "ranking failed"}
		}
	}
	return assignments
}

func (r *LLMRanker) rankBatch(ctx context.Context, batch []digest.ArticleForRanking, topics string, assignments map[string]Assignment) error {
	response, err := r.provider.Generate(ctx, fmt.Sprintf(rankPrompt, topics, formatArticles(batch)), rankMaxTokens)
	if err != nil {
		return err
	}

	var parsed []struct {
		ID     string `json:"id"`
		Tier   string `json:"tier"`
		Reason string `json:"reason"`
	}
	if err := llm.ParseJSONResponse(response, &parsed); err != nil {
		return err
	}

	valid := make(map[string]struct{}, len(batch))
	for _, a := range batch {
		valid[a.ID] = struct{}{}
	}
	for _, p := range parsed {
		if _, ok := valid[p.ID]; !ok {
			continue
		}
		assignments[p.ID] = Assignment{Tier: digest.NormalizeTier(p.Tier), Reason: p.Reason}
	}
	return nil
}

func formatTopics(topicNames []string) string {
	if len(topicNames) == 0 {
		return "(none configured)"
	}
	return strings.Join(topicNames, ", ")
}

func formatArticles(batch []digest.ArticleForRanking) string {
	var b strings.Builder
	for i, a := range batch {
		excerpt := a.Excerpt
		if runes := []rune(excerpt); len(runes) > excerptPromptMax {
			excerpt = string(runes[:excerptPromptMax])
		}
		fmt.Fprintf(&b, "%d. id: %s\n   title: %s\n", i+1, a.ID, a.Title)
		if a.Source != "" {
			fmt.Fprintf(&b, "   source: %s\n", a.Source)
		}
		if a.ManualSave {
			b.WriteString("   saved by the reader\n")
		}
		if len(a.Topics) > 0 {
			fmt.Fprintf(&b, "   topics: %s\n", strings.Join(a.Topics, ", "))
		}
		if excerpt != "" {
			fmt.Fprintf(&b, "   excerpt: %s\n", excerpt)
		}
	}
	return b.String()
}

// FallbackRanker assigns tiers deterministically when no LLM is available:
// manual saves first, then by matched-topic count, split into fixed tier
// quotas.
type FallbackRanker struct{}

// NewFallbackRanker creates the deterministic ranker.
func NewFallbackRanker() *FallbackRanker {
	return &FallbackRanker{}
}

// Rank orders articles by (manual save, topic count) and cuts the list into
// critical/notable/related quotas. A single article is always critical.
func (r *FallbackRanker) Rank(_ context.Context, articles []digest.ArticleForRanking, _ []string) map[string]Assignment {
	n := len(articles)
	assignments := make(map[string]Assignment, n)
	if n == 0 {
		return assignments
	}

	ordered := make([]digest.ArticleForRanking, n)
	copy(ordered, articles)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].ManualSave != ordered[j].ManualSave {
			return ordered[i].ManualSave
		}
		return len(ordered[i].Topics) > len(ordered[j].Topics)
	})

	criticalCount := n * 2 / 10
	if criticalCount < 1 {
		criticalCount = 1
	}
	notableCount := n * 3 / 10
	if notableCount < 2 {
		notableCount = 2
	}

	for i, a := range ordered {
		switch {
		case i < criticalCount:
			assignments[a.ID] = Assignment{Tier: digest.TierCritical, Reason: "top pick"}
		case i < criticalCount+notableCount:
			assignments[a.ID] = Assignment{Tier: digest.TierNotable, Reason: "worth a read"}
		default:
			assignments[a.ID] = Assignment{Tier: digest.TierRelated, Reason: "related coverage"}
		}
	}
	return assignments
}
