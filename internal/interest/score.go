package interest

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// FeedItem is a raw item from the feed collaborator.
type FeedItem struct {
	Title     string
	Link      string
	Published *time.Time
	Content   string
	Snippet   string
	Author    string
	FeedTitle string
	FeedURL   string
}

// ScoredItem is a FeedItem with its relevance assessment attached.
type ScoredItem struct {
	Item            FeedItem
	Score           float64
	MatchedTopics   []string
	MatchedKeywords []string
	RecencyScore    float64
}

const (
	maxKeywordScore = 10
	recencyWeight   = 0.2
	freshHours      = 6
	staleHours      = 72
)

var nonWordChars = regexp.MustCompile(`[^a-z0-9-]+`)

// normalizeForMatch lowercases text and flattens everything that is not a
// letter, digit or hyphen into single spaces.
func normalizeForMatch(s string) string {
	s = nonWordChars.ReplaceAllString(strings.ToLower(s), " ")
	return strings.TrimSpace(s)
}

// ScoreKeyword counts word-boundary occurrences of keyword in text and maps
// them to a score of 2 per occurrence, capped at 10. Multi-word keywords match
// as a phrase.
func ScoreKeyword(keyword, text string) int {
	phrase := strings.Fields(normalizeForMatch(keyword))
	if len(phrase) == 0 {
		return 0
	}
	words := strings.Fields(normalizeForMatch(text))

	occurrences := 0
	for i := 0; i+len(phrase) <= len(words); {
		if phraseAt(words, phrase, i) {
			occurrences++
			i += len(phrase)
		} else {
			i++
		}
	}

	score := occurrences * 2
	if score > maxKeywordScore {
		score = maxKeywordScore
	}
	return score
}

func phraseAt(words, phrase []string, i int) bool {
	for j, p := range phrase {
		if words[i+j] != p {
			return false
		}
	}
	return true
}

// RecencyScore maps item age to 0-100: anything up to 6 hours old scores 100,
// anything 72 hours or older scores 0, linear in between. Items without a
// publish date score 0.
func RecencyScore(published *time.Time, now time.Time) float64 {
	if published == nil {
		return 0
	}
	ageHours := now.Sub(*published).Hours()
	switch {
	case ageHours <= freshHours:
		return 100
	case ageHours >= staleHours:
		return 0
	default:
		return 100 - (ageHours-freshHours)*(100.0/(staleHours-freshHours))
	}
}

// ScoreFeedItem scores one item against the interest map. Matched topics keep
// first-match order, matched keywords are deduplicated across topics. Items
// with no matched topic still get a ScoredItem; callers filter them out.
func ScoreFeedItem(item FeedItem, interests Interests, now time.Time) ScoredItem {
	blob := item.Title + " " + item.Snippet + " " + item.Content

	scored := ScoredItem{Item: item}
	seenKeywords := make(map[string]struct{})

	var keywordTotal int
	for _, name := range interests.Names() {
		topic, _ := interests.Topic(name)
		topicScore := 0
		var topicKeywords []string
		for _, kw := range topic.Keywords {
			s := ScoreKeyword(kw, blob)
			if s > 0 {
				topicScore += s
				topicKeywords = append(topicKeywords, kw)
			}
		}
		if topicScore > 0 {
			keywordTotal += topicScore
			scored.MatchedTopics = append(scored.MatchedTopics, name)
			for _, kw := range topicKeywords {
				if _, seen := seenKeywords[kw]; !seen {
					seenKeywords[kw] = struct{}{}
					scored.MatchedKeywords = append(scored.MatchedKeywords, kw)
				}
			}
		}
	}

	scored.RecencyScore = RecencyScore(item.Published, now)
	scored.Score = float64(keywordTotal) + recencyWeight*scored.RecencyScore
	return scored
}

// ScoreAndRank scores every item, drops items that matched no topic, and
// returns the rest sorted by score descending. The sort is stable so ties
// keep feed order.
func ScoreAndRank(items []FeedItem, interests Interests, now time.Time) []ScoredItem {
	var ranked []ScoredItem
	for _, item := range items {
		s := ScoreFeedItem(item, interests, now)
		if len(s.MatchedTopics) > 0 {
			ranked = append(ranked, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
