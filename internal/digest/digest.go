package digest

import (
	"strconv"
	"time"

	"github.com/arnevogt/kindledigest/internal/database"
	"github.com/arnevogt/kindledigest/internal/interest"
)

// Tier classifies how prominently an article appears in the digest.
type Tier string

const (
	TierCritical Tier = "critical"
	TierNotable  Tier = "notable"
	TierRelated  Tier = "related"
)

// NormalizeTier maps an arbitrary tier string to a known tier. Unrecognized
// values become notable.
func NormalizeTier(s string) Tier {
	switch Tier(s) {
	case TierCritical, TierNotable, TierRelated:
		return Tier(s)
	default:
		return TierNotable
	}
}

// ArticleForRanking is the unified candidate representation fed to the tier
// ranker and summarizer. Its ID is the join key across both stages.
type ArticleForRanking struct {
	ID         string
	Title      string
	Source     string
	Published  *time.Time
	Excerpt    string
	Snippet    string
	URL        string
	ManualSave bool
	Topics     []string
}

// Summary is the prose produced for one article.
type Summary struct {
	Summary  string
	OneLiner *string
}

// Extras carries per-article detail that only some candidates have, keyed by
// candidate ID: author and full HTML for saved or extracted articles.
type Extras struct {
	Author         *string
	ContentHTML    *string
	ReadingMinutes *int
}

// TieredDigestArticle is the final per-article record consumed by the EPUB
// renderer.
type TieredDigestArticle struct {
	ID             string
	Title          string
	Author         *string
	Source         *string
	URL            string
	Tier           Tier
	Summary        string
	OneLiner       *string
	ContentHTML    *string
	ReadingMinutes *int
}

// Stats summarizes a run for logging and the persisted run record.
type Stats struct {
	Critical     int
	Notable      int
	Related      int
	FullArticles int
}

// FromSavedArticle converts a saved article into a ranking candidate.
func FromSavedArticle(a *database.Article) ArticleForRanking {
	candidate := ArticleForRanking{
		ID:         "saved-" + strconv.FormatInt(a.ID, 10),
		Title:      a.Title,
		URL:        a.URL,
		ManualSave: true,
		Topics:     a.Tags,
	}
	if a.Source != nil {
		candidate.Source = *a.Source
	}
	if a.PublishedDate != nil {
		candidate.Published = parseStoredTime(*a.PublishedDate)
	}
	if a.Excerpt != nil {
		candidate.Excerpt = *a.Excerpt
	}
	if a.ContentText != nil {
		candidate.Snippet = *a.ContentText
	}
	return candidate
}

// FromScoredItem converts a selected feed item into a ranking candidate. The
// feed link serves as the candidate ID.
func FromScoredItem(item interest.ScoredItem) ArticleForRanking {
	return ArticleForRanking{
		ID:        item.Item.Link,
		Title:     item.Item.Title,
		Source:    item.Item.FeedTitle,
		Published: item.Item.Published,
		Excerpt:   item.Item.Snippet,
		Snippet:   item.Item.Content,
		URL:       item.Item.Link,
		Topics:    item.MatchedTopics,
	}
}

// parseStoredTime parses the timestamp formats the database stores.
func parseStoredTime(s string) *time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// BuildCandidates merges saved articles and selected feed items into one
// candidate list with unique IDs. Saved articles come first.
func BuildCandidates(saved []database.Article, selected []interest.ScoredItem) []ArticleForRanking {
	seen := make(map[string]struct{})
	candidates := make([]ArticleForRanking, 0, len(saved)+len(selected))
	for i := range saved {
		c := FromSavedArticle(&saved[i])
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		candidates = append(candidates, c)
	}
	for _, item := range selected {
		c := FromScoredItem(item)
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		candidates = append(candidates, c)
	}
	return candidates
}

// Assemble joins candidates with their tier and summary into final digest
// records. Missing tiers default to notable; missing summaries fall back to
// the excerpt so no article is ever dropped at this stage.
func Assemble(candidates []ArticleForRanking, tiers map[string]Tier, summaries map[string]Summary, extras map[string]Extras) []TieredDigestArticle {
	articles := make([]TieredDigestArticle, 0, len(candidates))
	for _, c := range candidates {
		article := TieredDigestArticle{
			ID:    c.ID,
			Title: c.Title,
			URL:   c.URL,
			Tier:  TierNotable,
		}
		if c.Source != "" {
			source := c.Source
			article.Source = &source
		}
		if tier, ok := tiers[c.ID]; ok {
			article.Tier = tier
		}
		if summary, ok := summaries[c.ID]; ok {
			article.Summary = summary.Summary
			article.OneLiner = summary.OneLiner
		} else {
			article.Summary = c.Excerpt
		}
		if extra, ok := extras[c.ID]; ok {
			article.Author = extra.Author
			article.ContentHTML = extra.ContentHTML
			article.ReadingMinutes = extra.ReadingMinutes
		}
		articles = append(articles, article)
	}
	return articles
}

// Partition splits assembled articles by tier, preserving order within each.
func Partition(articles []TieredDigestArticle) (critical, notable, related []TieredDigestArticle) {
	for _, a := range articles {
		switch a.Tier {
		case TierCritical:
			critical = append(critical, a)
		case TierRelated:
			related = append(related, a)
		default:
			notable = append(notable, a)
		}
	}
	return critical, notable, related
}

// ComputeStats counts assembled articles per tier. FullArticles counts the
// critical articles carrying full HTML, which populate the full-article EPUB.
func ComputeStats(articles []TieredDigestArticle) Stats {
	var stats Stats
	for _, a := range articles {
		switch a.Tier {
		case TierCritical:
			stats.Critical++
			if a.ContentHTML != nil && *a.ContentHTML != "" {
				stats.FullArticles++
			}
		case TierRelated:
			stats.Related++
		default:
			stats.Notable++
		}
	}
	return stats
}

// SummaryFilename returns the filename for the summary digest of a run date.
func SummaryFilename(date time.Time) string {
	return "kindle-digest-summary-" + date.Format("2006-01-02") + ".epub"
}

// FullFilename returns the filename for the full-article digest of a run date.
func FullFilename(date time.Time) string {
	return "kindle-digest-full-" + date.Format("2006-01-02") + ".epub"
}

// LegacyFilename returns the single-document filename used in non-tiered mode.
func LegacyFilename(date time.Time) string {
	return "kindle-digest-" + date.Format("2006-01-02") + ".epub"
}
