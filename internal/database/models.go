package database

// StatusSaved marks a manually saved article; StatusArchived marks a feed item
// persisted after inclusion in a digest.
const (
	StatusSaved    = "saved"
	StatusArchived = "archived"
)

// Run statuses.
const (
	RunSuccess = "SUCCESS"
	RunFailed  = "FAILED"
)

// Article is a stored article (manual save or archived feed item).
type Article struct {
	ID             int64
	URL            string
	CanonicalURL   string
	Title          string
	Author         *string
	Source         *string
	PublishedDate  *string
	Excerpt        *string
	ContentText    *string
	ContentHTML    *string
	ContentHash    *string
	WordCount      int
	ReadingMinutes int
	Status         string
	Favorited      bool
	Tags           []string
	SavedAt        *string
	SentAt         *string
}

// RunFeedItem records one feed item included in a digest run.
type RunFeedItem struct {
	Link   string   `json:"link"`
	Title  string   `json:"title"`
	Score  float64  `json:"score"`
	Tier   string   `json:"tier"`
	Topics []string `json:"topics,omitempty"`
}

// DigestRun is one pipeline invocation record.
type DigestRun struct {
	ID         int64
	RunID      string
	RunDate    string // YYYY-MM-DD
	Status     string
	StartedAt  string
	FinishedAt *string
	ArticleIDs []int64
	FeedItems  []RunFeedItem
	Filenames  []string
	MessageID  *string
	Error      *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	SavedArticles    int
	ArchivedArticles int
	SentArticles     int
	TotalRuns        int
	SuccessfulRuns   int
}
