package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>%s</title>
<item>
	<title>First</title>
	<link>https://example.com/first</link>
	<description>Older item</description>
	<pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
</item>
<item>
	<title>Second</title>
	<link>https://example.com/second</link>
	<description>Newer item</description>
	<pubDate>Tue, 03 Jan 2006 15:04:05 GMT</pubDate>
</item>
</channel>
</rss>`

func TestFetchAllFlattensAndSorts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, rssTemplate, "Test Feed")
	}))
	defer server.Close()

	items := NewFetcher().FetchAll(context.Background(), []string{server.URL})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Title != "Second" {
		t.Errorf("expected newest item first, got %q", items[0].Title)
	}
	if items[0].FeedTitle != "Test Feed" || items[0].FeedURL != server.URL {
		t.Errorf("feed attribution missing: %+v", items[0])
	}
	if items[0].Published == nil {
		t.Error("expected parsed publish date")
	}
}

func TestFetchAllSkipsFailingFeed(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, rssTemplate, "Good Feed")
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	items := NewFetcher().FetchAll(context.Background(), []string{bad.URL, good.URL})
	if len(items) != 2 {
		t.Errorf("expected items from good feed despite bad feed, got %d", len(items))
	}
}

func TestFetchAllEmptyURLs(t *testing.T) {
	if items := NewFetcher().FetchAll(context.Background(), nil); len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}
