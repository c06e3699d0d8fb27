package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/arnevogt/kindledigest/internal/dedup"
)

const (
	maxBodyBytes   = 4 << 20
	wordsPerMinute = 200
)

// Content is the extracted representation of a web page.
type Content struct {
	Title          string
	Author         *string
	SiteName       *string
	PublishedAt    *time.Time
	Excerpt        *string
	ContentHTML    string
	ContentText    string
	WordCount      int
	ReadingMinutes int
	CanonicalURL   string
	ContentHash    string
}

// Extractor fetches a URL and distills it into readable article content.
type Extractor struct {
	client *http.Client
}

// NewExtractor creates a content extractor.
func NewExtractor(timeout time.Duration) *Extractor {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Extract fetches and parses a page. Errors are returned to the caller so it
// can decide how to degrade for that item.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*Content, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "kindledigest/1.0 (reading digest)")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pageURL, err)
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", pageURL, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("no extractable content from %s", pageURL)
	}

	words := len(strings.Fields(text))
	content := &Content{
		Title:          strings.TrimSpace(article.Title),
		ContentHTML:    article.Content,
		ContentText:    text,
		WordCount:      words,
		ReadingMinutes: readingMinutes(words),
		CanonicalURL:   dedup.CanonicalURL(pageURL),
		ContentHash:    dedup.Fingerprint(text),
	}
	if content.Title == "" {
		content.Title = pageURL
	}
	if article.Byline != "" {
		byline := article.Byline
		content.Author = &byline
	}
	if article.SiteName != "" {
		site := article.SiteName
		content.SiteName = &site
	}
	if article.PublishedTime != nil {
		content.PublishedAt = article.PublishedTime
	}
	if excerpt := strings.TrimSpace(article.Excerpt); excerpt != "" {
		content.Excerpt = &excerpt
	}
	return content, nil
}

func readingMinutes(words int) int {
	if words <= 0 {
		return 0
	}
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
