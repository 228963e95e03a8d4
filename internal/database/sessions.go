package database

import (
	"database/sql"
	"fmt"
	"time"

	"sentiboard/internal/result"
)

// SaveBatch mirrors a persisted batch into the cache. Re-saving the same
// session replaces its header and comments.
func (db *DB) SaveBatch(b *result.Batch) error {
	if b == nil || b.SessionID == "" {
		return fmt.Errorf("batch has no session id")
	}

	var positives, negatives, neutrals int
	var avgScore float64
	if b.Stats != nil {
		positives = b.Stats.Positives
		negatives = b.Stats.Negatives
		neutrals = b.Stats.Neutrals
		avgScore = b.Stats.AvgScore
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (session_id, date, total, positives, negatives, neutrals, avg_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			total = excluded.total,
			positives = excluded.positives,
			negatives = excluded.negatives,
			neutrals = excluded.neutrals,
			avg_score = excluded.avg_score,
			cached_at = datetime('now')`,
		b.SessionID, time.Now().UTC().Format(time.RFC3339),
		b.TotalAnalyzed, positives, negatives, neutrals, avgScore)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM session_comments WHERE session_id = ?", b.SessionID); err != nil {
		return fmt.Errorf("clearing comments: %w", err)
	}
	for _, item := range b.Items {
		_, err := tx.Exec(`
			INSERT INTO session_comments (session_id, text, sentiment, score, product)
			VALUES (?, ?, ?, ?, ?)`,
			b.SessionID, item.Text, item.Sentiment, item.Score, item.Product)
		if err != nil {
			return fmt.Errorf("inserting comment: %w", err)
		}
	}

	return tx.Commit()
}

// GetSessions lists cached sessions newest first, without their comments.
func (db *DB) GetSessions() ([]result.Session, error) {
	rows, err := db.conn.Query(`
		SELECT session_id, date, total, positives, negatives, neutrals, avg_score
		FROM sessions ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []result.Session
	for rows.Next() {
		var s result.Session
		var date sql.NullString
		if err := rows.Scan(&s.SessionID, &date, &s.Total,
			&s.Positives, &s.Negatives, &s.Neutrals, &s.AvgScore); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		s.Date = date.String
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetSession loads one cached session with its comments. Returns nil when the
// session is not cached.
func (db *DB) GetSession(sessionID string) (*result.Session, error) {
	var s result.Session
	var date sql.NullString
	err := db.conn.QueryRow(`
		SELECT session_id, date, total, positives, negatives, neutrals, avg_score
		FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&s.SessionID, &date, &s.Total, &s.Positives, &s.Negatives, &s.Neutrals, &s.AvgScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	s.Date = date.String

	rows, err := db.conn.Query(`
		SELECT text, sentiment, score, product
		FROM session_comments WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item result.Item
		var sentiment, product sql.NullString
		if err := rows.Scan(&item.Text, &sentiment, &item.Score, &product); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		item.Sentiment = sentiment.String
		item.Product = product.String
		s.Comments = append(s.Comments, item)
	}
	return &s, rows.Err()
}

// Stats contains aggregate cache statistics for the status command.
type Stats struct {
	Sessions     int
	Comments     int
	Positives    int
	Negatives    int
	Neutrals     int
	LastCachedAt string
}

// GetStats summarizes the cache contents.
func (db *DB) GetStats() (*Stats, error) {
	var stats Stats
	var last sql.NullString
	err := db.conn.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(positives), 0),
		       COALESCE(SUM(negatives), 0),
		       COALESCE(SUM(neutrals), 0),
		       MAX(cached_at)
		FROM sessions`).
		Scan(&stats.Sessions, &stats.Positives, &stats.Negatives, &stats.Neutrals, &last)
	if err != nil {
		return nil, fmt.Errorf("reading session stats: %w", err)
	}
	stats.LastCachedAt = last.String

	if err := db.conn.QueryRow("SELECT COUNT(*) FROM session_comments").Scan(&stats.Comments); err != nil {
		return nil, fmt.Errorf("counting comments: %w", err)
	}
	return &stats, nil
}
