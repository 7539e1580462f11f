package database

import (
	"database/sql"
	"fmt"
	"time"
)

type groupRepository struct {
	db *DB
}

// NewGroupRepository creates a new duplicate group repository
func NewGroupRepository(db *DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) CreateGroup(g *DuplicateGroup) error {
	_, err := r.db.Exec(`
		INSERT INTO duplicate_groups (id, canonical_post_id, similarity_score, created_at)
		VALUES (?, ?, ?, ?)
	`, g.ID, g.CanonicalPostID, g.SimilarityScore, g.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to create duplicate group: %w", err)
	}
	return nil
}

func (r *groupRepository) GetGroup(id string) (*DuplicateGroup, error) {
	var g DuplicateGroup
	var createdAt string

	err := r.db.QueryRow(`
		SELECT id, canonical_post_id, similarity_score, created_at
		FROM duplicate_groups WHERE id = ?
	`, id).Scan(&g.ID, &g.CanonicalPostID, &g.SimilarityScore, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get duplicate group: %w", err)
	}

	if g.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &g, nil
}

func (r *groupRepository) CountGroups() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM duplicate_groups`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count duplicate groups: %w", err)
	}
	return count, nil
}

// DeleteOrphanGroups removes groups whose posts were all deleted by
// retention cleanup.
func (r *groupRepository) DeleteOrphanGroups() (int64, error) {
	res, err := r.db.Exec(`
		DELETE FROM duplicate_groups
		WHERE id NOT IN (
			SELECT DISTINCT duplicate_group_id FROM posts
			WHERE duplicate_group_id IS NOT NULL
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan groups: %w", err)
	}
	return res.RowsAffected()
}
