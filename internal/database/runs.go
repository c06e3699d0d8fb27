package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/arnevogt/kindledigest/internal/dedup"
)

// InsertDigestRun records a new run row. The run is created at start time with
// its final status filled in by FinishDigestRun.
func (db *DB) InsertDigestRun(run *DigestRun) (int64, error) {
	articleIDs, feedItems, filenames, err := marshalRunFields(run)
	if err != nil {
		return 0, err
	}

	result, err := db.conn.Exec(
		`INSERT INTO digest_runs (run_id, run_date, status, started_at, finished_at,
			article_ids, feed_items, filenames, message_id, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.RunDate, run.Status, run.StartedAt, run.FinishedAt,
		articleIDs, feedItems, filenames, run.MessageID, run.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting digest run: %w", err)
	}
	return result.LastInsertId()
}

// FinishDigestRun updates the mutable fields of a run record.
func (db *DB) FinishDigestRun(run *DigestRun) error {
	articleIDs, feedItems, filenames, err := marshalRunFields(run)
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(
		`UPDATE digest_runs SET status = ?, finished_at = ?, article_ids = ?,
			feed_items = ?, filenames = ?, message_id = ?, error = ?
		WHERE run_id = ?`,
		run.Status, run.FinishedAt, articleIDs, feedItems, filenames,
		run.MessageID, run.Error, run.RunID,
	)
	if err != nil {
		return fmt.Errorf("finishing digest run: %w", err)
	}
	return nil
}

// GetSuccessfulRunForDate returns the successful run for a date, or nil.
func (db *DB) GetSuccessfulRunForDate(runDate string) (*DigestRun, error) {
	row := db.conn.QueryRow(selectRun+` WHERE run_date = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		runDate, RunSuccess)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRecentRuns returns the most recent runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]DigestRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query(selectRun+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []DigestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// SentFeedLinks returns the links of feed items included in prior successful
// runs, canonicalized on read so tracking-parameter variants of an already
// delivered page still match.
func (db *DB) SentFeedLinks() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT feed_items FROM digest_runs WHERE status = ?`, RunSuccess)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[string]struct{})
	for rows.Next() {
		var raw *string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		if raw == nil || *raw == "" {
			continue
		}
		var items []RunFeedItem
		if err := json.Unmarshal([]byte(*raw), &items); err != nil {
			continue
		}
		for _, item := range items {
			links[dedup.CanonicalURL(item.Link)] = struct{}{}
		}
	}
	return links, rows.Err()
}

const selectRun = `SELECT id, run_id, run_date, status, started_at, finished_at,
	article_ids, feed_items, filenames, message_id, error FROM digest_runs`

func scanRun(row rowScanner) (*DigestRun, error) {
	var run DigestRun
	var articleIDs, feedItems, filenames *string
	err := row.Scan(
		&run.ID, &run.RunID, &run.RunDate, &run.Status, &run.StartedAt, &run.FinishedAt,
		&articleIDs, &feedItems, &filenames, &run.MessageID, &run.Error,
	)
	if err != nil {
		return nil, err
	}
	unmarshalInto(articleIDs, &run.ArticleIDs)
	unmarshalInto(feedItems, &run.FeedItems)
	unmarshalInto(filenames, &run.Filenames)
	return &run, nil
}

func marshalRunFields(run *DigestRun) (articleIDs, feedItems, filenames *string, err error) {
	if articleIDs, err = marshalJSON(run.ArticleIDs); err != nil {
		return nil, nil, nil, err
	}
	if feedItems, err = marshalJSON(run.FeedItems); err != nil {
		return nil, nil, nil, err
	}
	if filenames, err = marshalJSON(run.Filenames); err != nil {
		return nil, nil, nil, err
	}
	return articleIDs, feedItems, filenames, nil
}

func marshalJSON[T any](v []T) (*string, error) {
	if len(v) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func unmarshalInto[T any](raw *string, dest *[]T) {
	if raw == nil || *raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(*raw), dest); err != nil {
		*dest = nil
	}
}
