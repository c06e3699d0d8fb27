package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arnevogt/kindledigest/internal/config"
	"github.com/arnevogt/kindledigest/internal/database"
	"github.com/arnevogt/kindledigest/internal/dedup"
	"github.com/arnevogt/kindledigest/internal/deliver"
	"github.com/arnevogt/kindledigest/internal/digest"
	"github.com/arnevogt/kindledigest/internal/epub"
	"github.com/arnevogt/kindledigest/internal/extract"
	"github.com/arnevogt/kindledigest/internal/feeds"
	"github.com/arnevogt/kindledigest/internal/interest"
	"github.com/arnevogt/kindledigest/internal/llm"
	"github.com/arnevogt/kindledigest/internal/rank"
	"github.com/arnevogt/kindledigest/internal/summarize"
)

const (
	extractWorkers = 4
	timeFormat     = "2006-01-02 15:04:05"

	noArticlesMessage = "No articles available"
)

// Fetcher retrieves flattened feed items.
type Fetcher interface {
	FetchAll(ctx context.Context, urls []string) []interest.FeedItem
}

// Extractor pulls readable content from a URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (*extract.Content, error)
}

// Sender delivers the digest email.
type Sender interface {
	Send(to []string, subject string, attachments []deliver.Attachment) (string, error)
}

// Strategies bundles the ranking and summarization implementations chosen
// for a run. Selected once at construction, never re-checked mid-pipeline.
type Strategies struct {
	Ranker     rank.Ranker
	Summarizer summarize.Summarizer
}

// BuildStrategies picks the LLM-backed strategies when a provider is
// available and the deterministic fallbacks otherwise.
func BuildStrategies(provider llm.Provider) Strategies {
	if provider == nil {
		return Strategies{
			Ranker:     rank.NewFallbackRanker(),
			Summarizer: summarize.NewFallbackSummarizer(),
		}
	}
	return Strategies{
		Ranker:     rank.NewLLMRanker(provider),
		Summarizer: summarize.NewLLMSummarizer(provider),
	}
}

// Pipeline runs the end-to-end digest assembly.
type Pipeline struct {
	cfg        *config.Config
	db         *database.DB
	fetcher    Fetcher
	extractor  Extractor
	renderer   *epub.Renderer
	sender     Sender
	strategies Strategies
	now        func() time.Time
}

// New wires a pipeline from configuration.
func New(cfg *config.Config, db *database.DB, provider llm.Provider) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		db:         db,
		fetcher:    feeds.NewFetcher(),
		extractor:  extract.NewExtractor(0),
		renderer:   epub.NewRenderer(),
		sender:     deliver.NewMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.Username, cfg.Email.Password, cfg.Email.From),
		strategies: BuildStrategies(provider),
		now:        time.Now,
	}
}

// Result summarizes one digest run for the caller.
type Result struct {
	Skipped   bool
	Delivered bool
	Stats     digest.Stats
	Articles  int
	Filenames []string
	MessageID string
}

// Run executes one digest run. Item-level failures are absorbed; a returned
// error means the run failed fatally and was recorded as such.
func (p *Pipeline) Run(ctx context.Context, force bool) (*Result, error) {
	runDate := p.now().Format("2006-01-02")

	if !force {
		existing, err := p.db.GetSuccessfulRunForDate(runDate)
		if err != nil {
			return nil, fmt.Errorf("checking run history: %w", err)
		}
		if existing != nil {
			log.Printf("Digest for %s already delivered, skipping (use --force to rerun)", runDate)
			return &Result{Skipped: true}, nil
		}
	}

	run := &database.DigestRun{
		RunID:     uuid.NewString(),
		RunDate:   runDate,
		Status:    database.RunFailed,
		StartedAt: p.now().Format(timeFormat),
	}
	if _, err := p.db.InsertDigestRun(run); err != nil {
		return nil, fmt.Errorf("recording run start: %w", err)
	}

	result, err := p.execute(ctx, run)
	if err != nil {
		msg := err.Error()
		run.Status = database.RunFailed
		run.Error = &msg
		p.finishRun(run)
		return nil, err
	}
	run.Status = database.RunSuccess
	p.finishRun(run)
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, run *database.DigestRun) (*Result, error) {
	if len(p.cfg.Email.To) == 0 {
		return nil, fmt.Errorf("no recipients configured")
	}

	saved, err := p.db.GetUnsentSaved(p.cfg.Limits.MaxSaved)
	if err != nil {
		return nil, fmt.Errorf("loading saved articles: %w", err)
	}
	log.Printf("Loaded %d unsent saved articles", len(saved))

	selected := p.collectFeedItems(ctx)

	if max := p.cfg.Limits.MaxArticles; len(saved)+len(selected) > max {
		keep := max - len(saved)
		if keep < 0 {
			keep = 0
		}
		selected = selected[:keep]
	}

	if len(saved) == 0 && len(selected) == 0 {
		log.Println("Nothing to deliver today")
		msg := noArticlesMessage
		run.Error = &msg
		return &Result{}, nil
	}

	extracted := p.extractSelected(ctx, selected)
	selected = p.dropFailedExtractions(selected, extracted)
	if p.cfg.Digest.ArchiveFeedItems {
		p.archiveFeedItems(selected, extracted)
	}

	candidates := digest.BuildCandidates(saved, selected)
	content, extras := p.buildLookups(saved, extracted)

	assignments := p.strategies.Ranker.Rank(ctx, candidates, p.cfg.Interests.Names())
	tiers := make(map[string]digest.Tier, len(assignments))
	for id, a := range assignments {
		tiers[id] = a.Tier
	}

	summaries := p.strategies.Summarizer.SummarizeAll(ctx, candidates, content, tiers)
	summarize.Backfill(candidates, tiers, summaries)

	articles := digest.Assemble(candidates, tiers, summaries, extras)
	stats := digest.ComputeStats(articles)
	log.Printf("Assembled %d articles: %d critical, %d notable, %d related",
		len(articles), stats.Critical, stats.Notable, stats.Related)

	date := p.now()
	attachments, err := p.render(articles, date)
	if err != nil {
		return nil, err
	}

	subject := "Daily Digest " + date.Format("2006-01-02")
	messageID, err := p.sender.Send(p.cfg.Email.To, subject, attachments)
	if err != nil {
		return nil, fmt.Errorf("delivering digest: %w", err)
	}

	p.recordDelivery(run, saved, selected, tiers, attachments, messageID)

	filenames := make([]string, len(attachments))
	for i, a := range attachments {
		filenames[i] = a.Filename
	}
	return &Result{
		Delivered: true,
		Stats:     stats,
		Articles:  len(articles),
		Filenames: filenames,
		MessageID: messageID,
	}, nil
}

// collectFeedItems fetches, dedupes against history, scores and selects feed
// items. Every failure in here degrades to fewer items, never to a run error.
func (p *Pipeline) collectFeedItems(ctx context.Context) []interest.ScoredItem {
	items := p.fetcher.FetchAll(ctx, p.cfg.FeedURLs())
	if len(items) == 0 {
		return nil
	}

	sentLinks, err := p.db.SentFeedLinks()
	if err != nil {
		log.Printf("Could not load sent feed links: %v", err)
		sentLinks = map[string]struct{}{}
	}

	fresh := items[:0]
	for _, item := range items {
		canonical := dedup.CanonicalURL(item.Link)
		if _, sent := sentLinks[canonical]; sent {
			continue
		}
		if known, _ := p.db.HasCanonicalURL(canonical); known {
			continue
		}
		fresh = append(fresh, item)
	}

	scored := interest.ScoreAndRank(fresh, p.cfg.Interests, p.now())
	selected := interest.SelectDiverse(scored, p.cfg.Limits.MaxFeedItems, p.cfg.Limits.MaxPerTopic)
	log.Printf("Selected %d of %d scored feed items", len(selected), len(scored))
	return selected
}

// extractSelected runs content extraction for the selected items with a
// bounded worker pool. Failed items are absent from the result map.
func (p *Pipeline) extractSelected(ctx context.Context, selected []interest.ScoredItem) map[string]*extract.Content {
	results := make(map[string]*extract.Content, len(selected))
	if len(selected) == 0 {
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, extractWorkers)

	for _, item := range selected {
		wg.Add(1)
		sem <- struct{}{}
		go func(link string) {
			defer wg.Done()
			defer func() { <-sem }()

			content, err := p.extractor.Extract(ctx, link)
			if err != nil {
				log.Printf("Extraction failed for %s: %v", link, err)
				return
			}
			if known, _ := p.db.HasContentHash(content.ContentHash); known {
				log.Printf("Skipping %s: content already seen", link)
				return
			}
			mu.Lock()
			results[link] = content
			mu.Unlock()
		}(item.Item.Link)
	}
	wg.Wait()
	return results
}

func (p *Pipeline) dropFailedExtractions(selected []interest.ScoredItem, extracted map[string]*extract.Content) []interest.ScoredItem {
	kept := selected[:0]
	for _, item := range selected {
		if _, ok := extracted[item.Item.Link]; ok {
			kept = append(kept, item)
		}
	}
	return kept
}

func (p *Pipeline) archiveFeedItems(selected []interest.ScoredItem, extracted map[string]*extract.Content) {
	for _, item := range selected {
		content := extracted[item.Item.Link]
		if content == nil {
			continue
		}
		article := &database.Article{
			URL:            item.Item.Link,
			CanonicalURL:   content.CanonicalURL,
			Title:          content.Title,
			Author:         content.Author,
			Excerpt:        content.Excerpt,
			ContentText:    &content.ContentText,
			ContentHTML:    &content.ContentHTML,
			ContentHash:    &content.ContentHash,
			WordCount:      content.WordCount,
			ReadingMinutes: content.ReadingMinutes,
			Status:         database.StatusArchived,
			Tags:           item.MatchedTopics,
		}
		if item.Item.FeedTitle != "" {
			source := item.Item.FeedTitle
			article.Source = &source
		}
		if item.Item.Published != nil {
			published := item.Item.Published.Format(timeFormat)
			article.PublishedDate = &published
		}
		if _, err := p.db.InsertArticle(article); err != nil {
			log.Printf("Could not archive %s: %v", item.Item.Link, err)
		}
	}
}

// buildLookups prepares the per-candidate content and extras maps keyed by
// candidate ID, from both saved articles and extracted feed items.
func (p *Pipeline) buildLookups(saved []database.Article, extracted map[string]*extract.Content) (map[string]string, map[string]digest.Extras) {
	content := make(map[string]string)
	extras := make(map[string]digest.Extras)

	for i := range saved {
		a := &saved[i]
		id := digest.FromSavedArticle(a).ID
		if a.ContentText != nil {
			content[id] = *a.ContentText
		}
		extra := digest.Extras{Author: a.Author, ContentHTML: a.ContentHTML}
		if a.ReadingMinutes > 0 {
			minutes := a.ReadingMinutes
			extra.ReadingMinutes = &minutes
		}
		extras[id] = extra
	}
	for link, c := range extracted {
		content[link] = c.ContentText
		html := c.ContentHTML
		minutes := c.ReadingMinutes
		extras[link] = digest.Extras{
			Author:         c.Author,
			ContentHTML:    &html,
			ReadingMinutes: &minutes,
		}
	}
	return content, extras
}

func (p *Pipeline) render(articles []digest.TieredDigestArticle, date time.Time) ([]deliver.Attachment, error) {
	if !p.cfg.Digest.Tiered {
		data, err := p.renderer.RenderLegacy(articles, date)
		if err != nil {
			return nil, fmt.Errorf("rendering digest: %w", err)
		}
		return []deliver.Attachment{{Filename: digest.LegacyFilename(date), Data: data}}, nil
	}

	summaryData, err := p.renderer.RenderSummary(articles, date)
	if err != nil {
		return nil, fmt.Errorf("rendering summary digest: %w", err)
	}
	attachments := []deliver.Attachment{{Filename: digest.SummaryFilename(date), Data: summaryData}}

	critical, _, _ := digest.Partition(articles)
	fullData, err := p.renderer.RenderFull(critical, date)
	if err != nil {
		return nil, fmt.Errorf("rendering full digest: %w", err)
	}
	attachments = append(attachments, deliver.Attachment{Filename: digest.FullFilename(date), Data: fullData})
	return attachments, nil
}

func (p *Pipeline) recordDelivery(run *database.DigestRun, saved []database.Article, selected []interest.ScoredItem, tiers map[string]digest.Tier, attachments []deliver.Attachment, messageID string) {
	sentAt := p.now().Format(timeFormat)

	ids := make([]int64, len(saved))
	for i, a := range saved {
		ids[i] = a.ID
	}
	if len(ids) > 0 {
		if err := p.db.MarkArticlesSent(ids, sentAt); err != nil {
			log.Printf("Could not mark articles sent: %v", err)
		}
	}

	run.ArticleIDs = ids
	run.FeedItems = make([]database.RunFeedItem, len(selected))
	for i, item := range selected {
		run.FeedItems[i] = database.RunFeedItem{
			Link:   item.Item.Link,
			Title:  item.Item.Title,
			Score:  item.Score,
			Tier:   string(tiers[item.Item.Link]),
			Topics: item.MatchedTopics,
		}
	}
	run.Filenames = make([]string, len(attachments))
	for i, a := range attachments {
		run.Filenames[i] = a.Filename
	}
	run.MessageID = &messageID
	finished := sentAt
	run.FinishedAt = &finished
}

// SaveArticle extracts a URL and stores it for inclusion in the next digest.
func (p *Pipeline) SaveArticle(ctx context.Context, rawURL string, tags []string) (int64, error) {
	content, err := p.extractor.Extract(ctx, rawURL)
	if err != nil {
		return 0, err
	}

	if known, _ := p.db.HasCanonicalURL(content.CanonicalURL); known {
		return 0, fmt.Errorf("already saved: %s", content.CanonicalURL)
	}
	if known, _ := p.db.HasContentHash(content.ContentHash); known {
		return 0, fmt.Errorf("an article with the same content is already saved")
	}

	article := &database.Article{
		URL:            rawURL,
		CanonicalURL:   content.CanonicalURL,
		Title:          content.Title,
		Author:         content.Author,
		Source:         content.SiteName,
		Excerpt:        content.Excerpt,
		ContentText:    &content.ContentText,
		ContentHTML:    &content.ContentHTML,
		ContentHash:    &content.ContentHash,
		WordCount:      content.WordCount,
		ReadingMinutes: content.ReadingMinutes,
		Status:         database.StatusSaved,
		Tags:           tags,
	}
	if content.PublishedAt != nil {
		published := content.PublishedAt.Format(timeFormat)
		article.PublishedDate = &published
	}

	id, err := p.db.InsertArticle(article)
	if err != nil {
		return 0, fmt.Errorf("storing article: %w", err)
	}
	if id == 0 {
		return 0, fmt.Errorf("already saved: %s", content.CanonicalURL)
	}
	return id, nil
}

// SendSingle delivers one saved article immediately, outside the daily run.
// Errors surface directly to the caller.
func (p *Pipeline) SendSingle(ctx context.Context, id int64) (string, error) {
	if len(p.cfg.Email.To) == 0 {
		return "", fmt.Errorf("no recipients configured")
	}

	a, err := p.db.GetArticleByID(id)
	if err != nil {
		return "", fmt.Errorf("loading article %d: %w", id, err)
	}
	if a == nil {
		return "", fmt.Errorf("article %d not found", id)
	}

	candidate := digest.FromSavedArticle(a)
	tiers := map[string]digest.Tier{candidate.ID: digest.TierCritical}
	summaries := make(map[string]digest.Summary)
	summarize.Backfill([]digest.ArticleForRanking{candidate}, tiers, summaries)

	extras := map[string]digest.Extras{candidate.ID: {Author: a.Author, ContentHTML: a.ContentHTML}}
	if a.ReadingMinutes > 0 {
		minutes := a.ReadingMinutes
		extras[candidate.ID] = digest.Extras{Author: a.Author, ContentHTML: a.ContentHTML, ReadingMinutes: &minutes}
	}
	articles := digest.Assemble([]digest.ArticleForRanking{candidate}, tiers, summaries, extras)

	date := p.now()
	data, err := p.renderer.RenderLegacy(articles, date)
	if err != nil {
		return "", fmt.Errorf("rendering article: %w", err)
	}

	messageID, err := p.sender.Send(p.cfg.Email.To, "Saved Article: "+a.Title,
		[]deliver.Attachment{{Filename: digest.LegacyFilename(date), Data: data}})
	if err != nil {
		return "", err
	}

	if err := p.db.MarkArticlesSent([]int64{a.ID}, date.Format(timeFormat)); err != nil {
		log.Printf("Could not mark article %d sent: %v", a.ID, err)
	}
	return messageID, nil
}

func (p *Pipeline) finishRun(run *database.DigestRun) {
	if run.FinishedAt == nil {
		finished := p.now().Format(timeFormat)
		run.FinishedAt = &finished
	}
	if err := p.db.FinishDigestRun(run); err != nil {
		log.Printf("Could not record run outcome: %v", err)
	}
}
