package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type usedTopicRepository struct {
	db *DB
}

// NewUsedTopicRepository creates a new used topic repository
func NewUsedTopicRepository(db *DB) UsedTopicRepository {
	return &usedTopicRepository{db: db}
}

func (r *usedTopicRepository) Append(t *UsedTopic) error {
	keywords, err := json.Marshal(t.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO used_topics (keywords_hash, keywords, content_id, post_count, source_type, used_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.KeywordsHash, string(keywords), t.ContentID, t.PostCount, t.SourceType,
		t.UsedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to append used topic: %w", err)
	}
	return nil
}

// IsUsedWithin reports whether the keyword hash appears in the usage log
// at or after the given time.
func (r *usedTopicRepository) IsUsedWithin(keywordsHash string, since time.Time) (bool, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM used_topics
		WHERE keywords_hash = ? AND used_at >= ?
	`, keywordsHash, since.UTC().Format(timeLayout)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check used topic: %w", err)
	}
	return count > 0, nil
}

func (r *usedTopicRepository) Recent(limit int) ([]*UsedTopic, error) {
	rows, err := r.db.Query(`
		SELECT id, keywords_hash, keywords, content_id, post_count, source_type, used_at
		FROM used_topics
		ORDER BY used_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query used topics: %w", err)
	}
	defer rows.Close()

	var topics []*UsedTopic
	for rows.Next() {
		var t UsedTopic
		var keywords, usedAt string
		if err := rows.Scan(&t.ID, &t.KeywordsHash, &keywords, &t.ContentID,
			&t.PostCount, &t.SourceType, &usedAt); err != nil {
			return nil, fmt.Errorf("failed to scan used topic: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &t.Keywords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
		}
		if t.UsedAt, err = time.Parse(timeLayout, usedAt); err != nil {
			return nil, fmt.Errorf("failed to parse used_at: %w", err)
		}
		topics = append(topics, &t)
	}

	return topics, rows.Err()
}

func (r *usedTopicRepository) CountUsedSince(since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM used_topics WHERE used_at >= ?
	`, since.UTC().Format(timeLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count used topics: %w", err)
	}
	return count, nil
}

func (r *usedTopicRepository) LastUsedAt() (*time.Time, error) {
	var usedAt string
	err := r.db.QueryRow(`
		SELECT used_at FROM used_topics ORDER BY used_at DESC LIMIT 1
	`).Scan(&usedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last used topic: %w", err)
	}

	t, err := time.Parse(timeLayout, usedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse used_at: %w", err)
	}
	return &t, nil
}

func (r *usedTopicRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`
		DELETE FROM used_topics WHERE used_at < ?
	`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old used topics: %w", err)
	}
	return res.RowsAffected()
}
