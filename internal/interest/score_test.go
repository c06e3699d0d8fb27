package interest

import (
	"strings"
	"testing"
	"time"
)

func testInterests() Interests {
	var in Interests
	in.Add("ai", Topic{Keywords: []string{"machine learning", "llm"}})
	in.Add("tech", Topic{Keywords: []string{"apple", "iphone"}})
	return in
}

func timePtr(t time.Time) *time.Time { return &t }

func TestScoreKeywordSingleOccurrence(t *testing.T) {
	if got := ScoreKeyword("apple", "Apple announces iPhone"); got != 2 {
		t.Errorf("ScoreKeyword = %d, want 2", got)
	}
}

func TestScoreKeywordCapsAtTen(t *testing.T) {
	text := strings.Repeat("apple pie ", 6)
	if got := ScoreKeyword("apple", text); got != 10 {
		t.Errorf("ScoreKeyword = %d, want 10 (capped)", got)
	}
}

func TestScoreKeywordWordBoundary(t *testing.T) {
	if got := ScoreKeyword("apple", "pineapple and applesauce"); got != 0 {
		t.Errorf("ScoreKeyword matched inside words, got %d", got)
	}
}

func TestScoreKeywordMultiWordPhrase(t *testing.T) {
	if got := ScoreKeyword("machine learning", "Machine learning, at scale!"); got != 2 {
		t.Errorf("ScoreKeyword = %d, want 2", got)
	}
	if got := ScoreKeyword("machine learning", "machine-driven learning"); got != 0 {
		t.Errorf("ScoreKeyword matched broken phrase, got %d", got)
	}
}

func TestRecencyScore(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		age  time.Duration
		want float64
	}{
		{1 * time.Hour, 100},
		{6 * time.Hour, 100},
		{72 * time.Hour, 0},
		{100 * time.Hour, 0},
	}
	for _, tt := range tests {
		pub := now.Add(-tt.age)
		if got := RecencyScore(&pub, now); got != tt.want {
			t.Errorf("RecencyScore(age=%v) = %v, want %v", tt.age, got, tt.want)
		}
	}

	// Midpoint of the decay window: 39h old -> 50.
	mid := now.Add(-39 * time.Hour)
	if got := RecencyScore(&mid, now); got < 49.9 || got > 50.1 {
		t.Errorf("RecencyScore(age=39h) = %v, want ~50", got)
	}

	if got := RecencyScore(nil, now); got != 0 {
		t.Errorf("RecencyScore(nil) = %v, want 0", got)
	}
}

func TestScoreFeedItemMatchesTopicsInOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := FeedItem{
		Title:     "Apple ships on-device LLM",
		Content:   "The iPhone gains a local llm runtime.",
		Published: timePtr(now.Add(-2 * time.Hour)),
	}

	s := ScoreFeedItem(item, testInterests(), now)

	if len(s.MatchedTopics) != 2 || s.MatchedTopics[0] != "ai" || s.MatchedTopics[1] != "tech" {
		t.Fatalf("MatchedTopics = %v, want [ai tech]", s.MatchedTopics)
	}
	// llm twice (4) + apple (2) + iphone (2) = 8 keyword points, fresh item.
	want := 8 + 0.2*100
	if s.Score != want {
		t.Errorf("Score = %v, want %v", s.Score, want)
	}
	if s.RecencyScore != 100 {
		t.Errorf("RecencyScore = %v, want 100", s.RecencyScore)
	}
}

func TestScoreFeedItemNoMatches(t *testing.T) {
	s := ScoreFeedItem(FeedItem{Title: "gardening tips"}, testInterests(), time.Now())
	if len(s.MatchedTopics) != 0 {
		t.Errorf("expected no matched topics, got %v", s.MatchedTopics)
	}
	if s.Score != 0 {
		t.Errorf("expected zero score without publish date, got %v", s.Score)
	}
}

func TestScoreFeedItemDeduplicatesKeywords(t *testing.T) {
	var in Interests
	in.Add("a", Topic{Keywords: []string{"rust"}})
	in.Add("b", Topic{Keywords: []string{"rust", "cargo"}})

	s := ScoreFeedItem(FeedItem{Title: "rust and cargo"}, in, time.Now())
	if len(s.MatchedKeywords) != 2 {
		t.Errorf("MatchedKeywords = %v, want [rust cargo]", s.MatchedKeywords)
	}
}

func TestScoreAndRankFiltersAndSorts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []FeedItem{
		{Title: "nothing relevant here", Link: "https://a.example/1"},
		{Title: "apple apple apple", Link: "https://a.example/2"},
		{Title: "iphone", Link: "https://a.example/3"},
	}

	ranked := ScoreAndRank(items, testInterests(), now)

	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked items, got %d", len(ranked))
	}
	if ranked[0].Item.Link != "https://a.example/2" {
		t.Errorf("expected highest-scored item first, got %s", ranked[0].Item.Link)
	}
	for _, r := range ranked {
		if len(r.MatchedTopics) == 0 {
			t.Error("ranked item with zero matched topics")
		}
	}
}

func TestScoreAndRankStableOnTies(t *testing.T) {
	now := time.Now()
	items := []FeedItem{
		{Title: "iphone first", Link: "https://a.example/1"},
		{Title: "iphone second", Link: "https://a.example/2"},
	}

	ranked := ScoreAndRank(items, testInterests(), now)
	if len(ranked) != 2 || ranked[0].Item.Link != "https://a.example/1" {
		t.Errorf("tie broke feed order: %+v", ranked)
	}
}
