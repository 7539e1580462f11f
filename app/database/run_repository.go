package database

import (
	"database/sql"
	"fmt"
	"time"
)

type runRepository struct {
	db *DB
}

// NewRunRepository creates a new source run repository
func NewRunRepository(db *DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Start(source string, startedAt time.Time) (int64, error) {
	res, err := r.db.Exec(`
		INSERT INTO source_runs (source, started_at, status)
		VALUES (?, ?, 'running')
	`, source, startedAt.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to start source run: %w", err)
	}
	return res.LastInsertId()
}

func (r *runRepository) Finish(id int64, status string, itemsFetched int, errorMessage string, finishedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE source_runs
		SET status = ?, items_fetched = ?, error_message = ?, finished_at = ?
		WHERE id = ?
	`, status, itemsFetched, errorMessage, finishedAt.UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("failed to finish source run: %w", err)
	}
	return nil
}

func (r *runRepository) Recent(limit int) ([]*SourceRun, error) {
	rows, err := r.db.Query(`
		SELECT id, source, started_at, finished_at, status, items_fetched, error_message
		FROM source_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query source runs: %w", err)
	}
	defer rows.Close()

	var runs []*SourceRun
	for rows.Next() {
		var run SourceRun
		var startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(&run.ID, &run.Source, &startedAt, &finishedAt,
			&run.Status, &run.ItemsFetched, &run.ErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan source run: %w", err)
		}
		if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		if finishedAt.Valid {
			t, err := time.Parse(timeLayout, finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse finished_at: %w", err)
			}
			run.FinishedAt = &t
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}
