package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type postRepository struct {
	db *DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, source, source_id, source_url, title, content, author,
	score, comments_count, post_type, created_at, fetched_at, content_hash,
	importance_score, duplicate_group_id, content_extracted_at, ai_analyzed_at, metadata`

// UpsertPost inserts a post or refreshes the mutable fields of an existing
// one, keyed on (source, source_id). Returns the post id and whether the
// row was newly created.
func (r *postRepository) UpsertPost(p *Post) (int64, bool, error) {
	var existingID int64
	err := r.db.QueryRow(`
		SELECT id FROM posts WHERE source = ? AND source_id = ?
	`, p.Source, p.SourceID).Scan(&existingID)

	if err != nil && err != sql.ErrNoRows {
		return 0, false, fmt.Errorf("failed to check existing post: %w", err)
	}

	if err == nil {
		_, err = r.db.Exec(`
			UPDATE posts
			SET score = ?, comments_count = ?, fetched_at = ?, importance_score = ?
			WHERE id = ?
		`, p.Score, p.CommentsCount, p.FetchedAt.UTC().Format(timeLayout), p.ImportanceScore, existingID)
		if err != nil {
			return 0, false, fmt.Errorf("failed to update post: %w", err)
		}
		return existingID, false, nil
	}

	res, err := r.db.Exec(`
		INSERT INTO posts (source, source_id, source_url, title, content, author,
			score, comments_count, post_type, created_at, fetched_at, content_hash,
			importance_score, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Source, p.SourceID, p.SourceURL, p.Title, p.Content, p.Author,
		p.Score, p.CommentsCount, p.PostType,
		p.CreatedAt.UTC().Format(timeLayout), p.FetchedAt.UTC().Format(timeLayout),
		p.ContentHash, p.ImportanceScore, metadataOrDefault(p.Metadata))
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get inserted post id: %w", err)
	}

	return id, true, nil
}

func (r *postRepository) GetPost(id int64) (*Post, error) {
	row := r.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (r *postRepository) GetPostsByIDs(ids []int64) ([]*Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.Query(`
		SELECT `+postColumns+` FROM posts
		WHERE id IN (`+placeholders+`)
		ORDER BY created_at ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts by ids: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func (r *postRepository) GetRecentPosts(since time.Time, limit int) ([]*Post, error) {
	rows, err := r.db.Query(`
		SELECT `+postColumns+` FROM posts
		WHERE created_at >= ?
		ORDER BY created_at DESC
		LIMIT ?
	`, since.UTC().Format(timeLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// GetLinkCandidates returns posts from other sources inside the given
// creation window, for duplicate linking.
func (r *postRepository) GetLinkCandidates(excludeSource string, from, to time.Time) ([]*Post, error) {
	rows, err := r.db.Query(`
		SELECT `+postColumns+` FROM posts
		WHERE source != ? AND created_at >= ? AND created_at <= ?
		ORDER BY created_at ASC
	`, excludeSource, from.UTC().Format(timeLayout), to.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query link candidates: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func (r *postRepository) SetDuplicateGroup(postID int64, groupID string) error {
	_, err := r.db.Exec(`
		UPDATE posts SET duplicate_group_id = ? WHERE id = ?
	`, groupID, postID)
	if err != nil {
		return fmt.Errorf("failed to set duplicate group: %w", err)
	}
	return nil
}

// GetPostsForEnrichment returns posts from a source that have no body
// content yet, oldest first.
func (r *postRepository) GetPostsForEnrichment(source string, limit int) ([]*Post, error) {
	rows, err := r.db.Query(`
		SELECT `+postColumns+` FROM posts
		WHERE source = ? AND content = '' AND source_url != ''
		ORDER BY created_at ASC
		LIMIT ?
	`, source, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts for enrichment: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func (r *postRepository) UpdateContent(postID int64, content string, extractedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE posts SET content = ?, content_extracted_at = ? WHERE id = ?
	`, content, extractedAt.UTC().Format(timeLayout), postID)
	if err != nil {
		return fmt.Errorf("failed to update post content: %w", err)
	}
	return nil
}

func (r *postRepository) UpdateImportance(postID int64, score float64) error {
	_, err := r.db.Exec(`
		UPDATE posts SET importance_score = ? WHERE id = ?
	`, score, postID)
	if err != nil {
		return fmt.Errorf("failed to update importance score: %w", err)
	}
	return nil
}

func (r *postRepository) CountPosts() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

func (r *postRepository) CountPostsSince(since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM posts WHERE created_at >= ?
	`, since.UTC().Format(timeLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

func (r *postRepository) GetSourceStats() ([]*SourceStat, error) {
	rows, err := r.db.Query(`
		SELECT source, COUNT(*), MAX(created_at)
		FROM posts
		GROUP BY source
		ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query source stats: %w", err)
	}
	defer rows.Close()

	var stats []*SourceStat
	for rows.Next() {
		var stat SourceStat
		var latest sql.NullString
		if err := rows.Scan(&stat.Source, &stat.PostCount, &latest); err != nil {
			return nil, fmt.Errorf("failed to scan source stat: %w", err)
		}
		if latest.Valid {
			t, err := time.Parse(timeLayout, latest.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse latest post time: %w", err)
			}
			stat.LatestPostAt = &t
		}
		stats = append(stats, &stat)
	}

	return stats, rows.Err()
}

func (r *postRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`
		DELETE FROM posts WHERE created_at < ?
	`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old posts: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var p Post
	var createdAt, fetchedAt string
	var groupID, extractedAt, analyzedAt sql.NullString

	err := row.Scan(&p.ID, &p.Source, &p.SourceID, &p.SourceURL, &p.Title,
		&p.Content, &p.Author, &p.Score, &p.CommentsCount, &p.PostType,
		&createdAt, &fetchedAt, &p.ContentHash, &p.ImportanceScore,
		&groupID, &extractedAt, &analyzedAt, &p.Metadata)
	if err != nil {
		return nil, err
	}

	if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if p.FetchedAt, err = time.Parse(timeLayout, fetchedAt); err != nil {
		return nil, fmt.Errorf("failed to parse fetched_at: %w", err)
	}
	if groupID.Valid {
		p.DuplicateGroupID = &groupID.String
	}
	if extractedAt.Valid {
		t, err := time.Parse(timeLayout, extractedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse content_extracted_at: %w", err)
		}
		p.ContentExtractedAt = &t
	}
	if analyzedAt.Valid {
		t, err := time.Parse(timeLayout, analyzedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ai_analyzed_at: %w", err)
		}
		p.AIAnalyzedAt = &t
	}

	return &p, nil
}

func scanPosts(rows *sql.Rows) ([]*Post, error) {
	var posts []*Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func metadataOrDefault(metadata string) string {
	if metadata == "" {
		return "{}"
	}
	return metadata
}
