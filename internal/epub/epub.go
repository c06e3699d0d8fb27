package epub

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	epub "github.com/go-shiori/go-epub"
	"github.com/yuin/goldmark"

	"github.com/arnevogt/kindledigest/internal/digest"
)

var md = goldmark.New()

// Renderer builds the digest EPUB documents.
type Renderer struct{}

// NewRenderer creates an EPUB renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderSummary builds the summary digest: a cover followed by one section
// per tier. Critical articles get their full summary paragraph, notable get
// blurbs, related become a one-liner list.
func (r *Renderer) RenderSummary(articles []digest.TieredDigestArticle, date time.Time) ([]byte, error) {
	book, err := newBook("Daily Digest (Summary) "+date.Format("2006-01-02"), date)
	if err != nil {
		return nil, err
	}

	critical, notable, related := digest.Partition(articles)
	stats := digest.ComputeStats(articles)

	cover := fmt.Sprintf("# Daily Digest\n\n%s\n\n%d critical, %d notable, %d related\n",
		date.Format("Monday, January 2, 2006"), stats.Critical, stats.Notable, stats.Related)
	if err := addMarkdownSection(book, cover, "Overview"); err != nil {
		return nil, err
	}

	if len(critical) > 0 {
		if err := addMarkdownSection(book, tierSection("Critical", critical), "Critical"); err != nil {
			return nil, err
		}
	}
	if len(notable) > 0 {
		if err := addMarkdownSection(book, tierSection("Notable", notable), "Notable"); err != nil {
			return nil, err
		}
	}
	if len(related) > 0 {
		if err := addMarkdownSection(book, oneLinerSection("Related", related), "Related"); err != nil {
			return nil, err
		}
	}

	return writeBook(book)
}

// RenderFull builds the full-article digest: a cover, a table of contents,
// and one chapter per critical article with its complete extracted body.
func (r *Renderer) RenderFull(critical []digest.TieredDigestArticle, date time.Time) ([]byte, error) {
	book, err := newBook("Daily Digest (Full Articles) "+date.Format("2006-01-02"), date)
	if err != nil {
		return nil, err
	}

	cover := fmt.Sprintf("# Daily Digest: Full Articles\n\n%s\n\n%d articles\n",
		date.Format("Monday, January 2, 2006"), len(critical))
	if err := addMarkdownSection(book, cover, "Overview"); err != nil {
		return nil, err
	}

	var toc strings.Builder
	toc.WriteString("# In This Digest\n\n")
	for i, a := range critical {
		fmt.Fprintf(&toc, "%d. %s", i+1, a.Title)
		if a.ReadingMinutes != nil {
			fmt.Fprintf(&toc, " (%d min)", *a.ReadingMinutes)
		}
		toc.WriteString("\n")
	}
	if err := addMarkdownSection(book, toc.String(), "Contents"); err != nil {
		return nil, err
	}

	for _, a := range critical {
		if err := addArticleChapter(book, a); err != nil {
			return nil, err
		}
	}

	return writeBook(book)
}

// RenderLegacy builds the single non-tiered document: cover plus one chapter
// per article, full body where available, summary otherwise.
func (r *Renderer) RenderLegacy(articles []digest.TieredDigestArticle, date time.Time) ([]byte, error) {
	book, err := newBook("Daily Digest "+date.Format("2006-01-02"), date)
	if err != nil {
		return nil, err
	}

	cover := fmt.Sprintf("# Daily Digest\n\n%s\n\n%d articles\n",
		date.Format("Monday, January 2, 2006"), len(articles))
	if err := addMarkdownSection(book, cover, "Overview"); err != nil {
		return nil, err
	}

	for _, a := range articles {
		if a.ContentHTML != nil && *a.ContentHTML != "" {
			if err := addArticleChapter(book, a); err != nil {
				return nil, err
			}
			continue
		}
		section := fmt.Sprintf("# %s\n\n%s\n\n%s\n", a.Title, articleByline(a), a.Summary)
		if err := addMarkdownSection(book, section, a.Title); err != nil {
			return nil, err
		}
	}

	return writeBook(book)
}

func newBook(title string, date time.Time) (*epub.Epub, error) {
	book, err := epub.NewEpub(title)
	if err != nil {
		return nil, fmt.Errorf("creating epub: %w", err)
	}
	book.SetAuthor("kindledigest")
	book.SetDescription("Personalized reading digest for " + date.Format("2006-01-02"))
	return book, nil
}

func addMarkdownSection(book *epub.Epub, markdown, title string) error {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return fmt.Errorf("rendering section %q: %w", title, err)
	}
	if _, err := book.AddSection(buf.String(), title, "", ""); err != nil {
		return fmt.Errorf("adding section %q: %w", title, err)
	}
	return nil
}

func addArticleChapter(book *epub.Epub, a digest.TieredDigestArticle) error {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(a.Title))
	if byline := articleByline(a); byline != "" {
		fmt.Fprintf(&b, "<p><em>%s</em></p>\n", html.EscapeString(byline))
	}
	if a.ContentHTML != nil {
		b.WriteString(SanitizeHTML(*a.ContentHTML))
	} else {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(a.Summary))
	}

	if _, err := book.AddSection(b.String(), a.Title, "", ""); err != nil {
		return fmt.Errorf("adding article %q: %w", a.Title, err)
	}
	return nil
}

func tierSection(heading string, articles []digest.TieredDigestArticle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", heading)
	for _, a := range articles {
		fmt.Fprintf(&b, "## %s\n\n", a.Title)
		if byline := articleByline(a); byline != "" {
			fmt.Fprintf(&b, "*%s*\n\n", byline)
		}
		if a.Summary != "" {
			b.WriteString(a.Summary)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func oneLinerSection(heading string, articles []digest.TieredDigestArticle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", heading)
	for _, a := range articles {
		line := a.Title
		if a.OneLiner != nil && *a.OneLiner != "" {
			line = *a.OneLiner
		}
		if a.Source != nil {
			fmt.Fprintf(&b, "- %s (%s)\n", line, *a.Source)
		} else {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	return b.String()
}

func articleByline(a digest.TieredDigestArticle) string {
	var parts []string
	if a.Author != nil && *a.Author != "" {
		parts = append(parts, *a.Author)
	}
	if a.Source != nil && *a.Source != "" {
		parts = append(parts, *a.Source)
	}
	if a.ReadingMinutes != nil {
		parts = append(parts, fmt.Sprintf("%d min read", *a.ReadingMinutes))
	}
	return strings.Join(parts, " | ")
}

func writeBook(book *epub.Epub) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := book.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing epub: %w", err)
	}
	return buf.Bytes(), nil
}
