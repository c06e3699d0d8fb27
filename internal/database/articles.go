package database

import (
	"database/sql"
	"encoding/json"
)

// InsertArticle inserts an article. Returns the new ID, or 0 when an article
// with the same canonical URL already exists.
func (db *DB) InsertArticle(a *Article) (int64, error) {
	tags, err := marshalTags(a.Tags)
	if err != nil {
		return 0, err
	}

	result, err := db.conn.Exec(
		`INSERT INTO articles (url, canonical_url, title, author, source, published_date,
			excerpt, content_text, content_html, content_hash, word_count, reading_minutes,
			status, favorited, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.URL, a.CanonicalURL, a.Title, a.Author, a.Source, a.PublishedDate,
		a.Excerpt, a.ContentText, a.ContentHTML, a.ContentHash, a.WordCount, a.ReadingMinutes,
		a.Status, a.Favorited, tags,
	)
	if err != nil {
		// Duplicate canonical URL constraint
		return 0, nil //nolint: nilerr
	}
	return result.LastInsertId()
}

// GetArticleByID returns a single article by ID, or nil when absent.
func (db *DB) GetArticleByID(id int64) (*Article, error) {
	row := db.conn.QueryRow(selectArticle+` WHERE id = ?`, id)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetUnsentSaved returns saved articles that have not been delivered yet,
// newest first, capped at limit (0 means no cap).
func (db *DB) GetUnsentSaved(limit int) ([]Article, error) {
	query := selectArticle + ` WHERE status = ? AND sent_at IS NULL ORDER BY saved_at DESC`
	args := []any{StatusSaved}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// ListArticles returns all articles with the given status, newest first.
func (db *DB) ListArticles(status string) ([]Article, error) {
	rows, err := db.conn.Query(selectArticle+` WHERE status = ? ORDER BY saved_at DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// HasCanonicalURL reports whether any stored article carries this canonical URL.
func (db *DB) HasCanonicalURL(canonicalURL string) (bool, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM articles WHERE canonical_url = ?`, canonicalURL).Scan(&n)
	return n > 0, err
}

// HasContentHash reports whether any stored article carries this fingerprint.
func (db *DB) HasContentHash(hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM articles WHERE content_hash = ?`, hash).Scan(&n)
	return n > 0, err
}

// MarkArticlesSent stamps sent_at on the given article ids.
func (db *DB) MarkArticlesSent(ids []int64, sentAt string) error {
	for _, id := range ids {
		if _, err := db.conn.Exec(`UPDATE articles SET sent_at = ? WHERE id = ?`, sentAt, id); err != nil {
			return err
		}
	}
	return nil
}

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	queries := []struct {
		dest  *int
		query string
	}{
		{&s.SavedArticles, `SELECT COUNT(*) FROM articles WHERE status = 'saved'`},
		{&s.ArchivedArticles, `SELECT COUNT(*) FROM articles WHERE status = 'archived'`},
		{&s.SentArticles, `SELECT COUNT(*) FROM articles WHERE sent_at IS NOT NULL`},
		{&s.TotalRuns, `SELECT COUNT(*) FROM digest_runs`},
		{&s.SuccessfulRuns, `SELECT COUNT(*) FROM digest_runs WHERE status = 'SUCCESS'`},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}

const selectArticle = `SELECT id, url, canonical_url, title, author, source, published_date,
	excerpt, content_text, content_html, content_hash, word_count, reading_minutes,
	status, favorited, tags, saved_at, sent_at FROM articles`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*Article, error) {
	var a Article
	var favorited int
	var tags *string
	err := row.Scan(
		&a.ID, &a.URL, &a.CanonicalURL, &a.Title, &a.Author, &a.Source, &a.PublishedDate,
		&a.Excerpt, &a.ContentText, &a.ContentHTML, &a.ContentHash, &a.WordCount, &a.ReadingMinutes,
		&a.Status, &favorited, &tags, &a.SavedAt, &a.SentAt,
	)
	if err != nil {
		return nil, err
	}
	a.Favorited = favorited != 0
	if tags != nil && *tags != "" {
		if err := json.Unmarshal([]byte(*tags), &a.Tags); err != nil {
			a.Tags = nil
		}
	}
	return &a, nil
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

func marshalTags(tags []string) (*string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}
