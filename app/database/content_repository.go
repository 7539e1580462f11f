package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type contentRepository struct {
	db *DB
}

// NewContentRepository creates a new generated content repository
func NewContentRepository(db *DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) Create(c *GeneratedContent) error {
	hashtags, err := json.Marshal(c.Hashtags)
	if err != nil {
		return fmt.Errorf("failed to marshal hashtags: %w", err)
	}
	keyPoints, err := json.Marshal(c.KeyPoints)
	if err != nil {
		return fmt.Errorf("failed to marshal key points: %w", err)
	}
	sourcePosts, err := json.Marshal(c.SourcePosts)
	if err != nil {
		return fmt.Errorf("failed to marshal source posts: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO generated_content (id, title, body, hashtags, key_points,
			word_count, source_type, source_description, source_posts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Title, c.Body, string(hashtags), string(keyPoints),
		c.WordCount, c.SourceType, c.SourceDescription, string(sourcePosts),
		c.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to create generated content: %w", err)
	}
	return nil
}

func (r *contentRepository) Get(id string) (*GeneratedContent, error) {
	row := r.db.QueryRow(`
		SELECT id, title, body, hashtags, key_points, word_count, source_type,
			source_description, source_posts, is_published, published_at,
			platform, message_id, created_at
		FROM generated_content WHERE id = ?
	`, id)

	content, err := scanContent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generated content: %w", err)
	}
	return content, nil
}

func (r *contentRepository) List(limit int) ([]*GeneratedContent, error) {
	rows, err := r.db.Query(`
		SELECT id, title, body, hashtags, key_points, word_count, source_type,
			source_description, source_posts, is_published, published_at,
			platform, message_id, created_at
		FROM generated_content
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query generated content: %w", err)
	}
	defer rows.Close()

	var contents []*GeneratedContent
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generated content: %w", err)
		}
		contents = append(contents, content)
	}

	return contents, rows.Err()
}

func (r *contentRepository) MarkPublished(id string, platform string, messageID int64, publishedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE generated_content
		SET is_published = 1, platform = ?, message_id = ?, published_at = ?
		WHERE id = ?
	`, platform, messageID, publishedAt.UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("failed to mark content published: %w", err)
	}
	return nil
}

func (r *contentRepository) CountContent() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM generated_content`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count generated content: %w", err)
	}
	return count, nil
}

func scanContent(row rowScanner) (*GeneratedContent, error) {
	var c GeneratedContent
	var hashtags, keyPoints, sourcePosts, createdAt string
	var publishedAt sql.NullString
	var messageID sql.NullInt64

	err := row.Scan(&c.ID, &c.Title, &c.Body, &hashtags, &keyPoints,
		&c.WordCount, &c.SourceType, &c.SourceDescription, &sourcePosts,
		&c.IsPublished, &publishedAt, &c.Platform, &messageID, &createdAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(hashtags), &c.Hashtags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hashtags: %w", err)
	}
	if err := json.Unmarshal([]byte(keyPoints), &c.KeyPoints); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key points: %w", err)
	}
	if err := json.Unmarshal([]byte(sourcePosts), &c.SourcePosts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source posts: %w", err)
	}
	if c.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if publishedAt.Valid {
		t, err := time.Parse(timeLayout, publishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse published_at: %w", err)
		}
		c.PublishedAt = &t
	}
	if messageID.Valid {
		c.MessageID = &messageID.Int64
	}

	return &c, nil
}
