package feeds

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/arnevogt/kindledigest/internal/interest"
)

const fetchTimeout = 30 * time.Second

// Fetcher retrieves and flattens RSS/Atom feeds.
type Fetcher struct {
	parser *gofeed.Parser
}

// NewFetcher creates a feed fetcher.
func NewFetcher() *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = "kindledigest/1.0"
	return &Fetcher{parser: parser}
}

// FetchAll fetches every feed URL and returns the flattened items, newest
// first. A failing feed is logged and skipped; the others still contribute.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []interest.FeedItem {
	var items []interest.FeedItem
	for _, url := range urls {
		fetched, err := f.fetchOne(ctx, url)
		if err != nil {
			log.Printf("Skipping feed %s: %v", url, err)
			continue
		}
		items = append(items, fetched...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].Published, items[j].Published
		if ti == nil {
			return false
		}
		if tj == nil {
			return true
		}
		return ti.After(*tj)
	})
	return items
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]interest.FeedItem, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, err
	}

	items := make([]interest.FeedItem, 0, len(feed.Items))
	for _, raw := range feed.Items {
		if raw == nil || raw.Link == "" {
			continue
		}
		items = append(items, flatten(raw, feed.Title, url))
	}
	return items, nil
}

func flatten(raw *gofeed.Item, feedTitle, feedURL string) interest.FeedItem {
	item := interest.FeedItem{
		Title:     raw.Title,
		Link:      raw.Link,
		Content:   raw.Content,
		Snippet:   raw.Description,
		FeedTitle: feedTitle,
		FeedURL:   feedURL,
	}
	if raw.PublishedParsed != nil {
		item.Published = raw.PublishedParsed
	} else if raw.UpdatedParsed != nil {
		item.Published = raw.UpdatedParsed
	}
	if len(raw.Authors) > 0 && raw.Authors[0] != nil {
		item.Author = raw.Authors[0].Name
	}
	return item
}
