package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vicraft/backend/internal/models"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const historyColumns = `id, user_id, task_type, model, job_id,
		COALESCE(prompt, ''), params, price, status, result, COALESCE(error_message, ''),
		created_at, updated_at`

// Create inserts an in-progress record at job submission time.
func (r *HistoryRepository) Create(ctx context.Context, rec *models.GenerationRecord) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO generation_history (user_id, task_type, model, job_id, prompt, params, price, status)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?)`,
		rec.UserID, rec.TaskType, rec.Model, rec.JobID, rec.Prompt,
		nullableJSON(rec.Params), rec.Price, models.StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	rec.ID = id
	rec.Status = models.StatusInProgress
	return nil
}

// FinalizeByJobID moves an in-progress record to success or failed. A record
// is finalized at most once: a second caller sees false and must not touch it.
func (r *HistoryRepository) FinalizeByJobID(ctx context.Context, jobID string, status int, result json.RawMessage, errorMessage string) (bool, error) {
	if status != models.StatusSuccess && status != models.StatusFailed {
		return false, fmt.Errorf("finalize job %s: status %d is not terminal", jobID, status)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE generation_history
		SET status = ?, result = ?, error_message = NULLIF(?, '')
		WHERE job_id = ? AND status = ?`,
		status, nullableJSON(result), errorMessage, jobID, models.StatusInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("finalize history record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("finalize history record: %w", err)
	}
	return affected == 1, nil
}

func (r *HistoryRepository) FindByJobID(ctx context.Context, jobID string) (*models.GenerationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+historyColumns+` FROM generation_history WHERE job_id = ?`, jobID)
	return r.scanRecord(row)
}

func (r *HistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+historyColumns+` FROM generation_history
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return r.collectRecords(rows)
}

// ListPending returns in-progress records for the background result sweep.
func (r *HistoryRepository) ListPending(ctx context.Context, limit int) ([]models.GenerationRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+historyColumns+` FROM generation_history
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT ?`, models.StatusInProgress, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending history: %w", err)
	}
	return r.collectRecords(rows)
}

// DeleteFinishedOlderThan removes settled records created before the cutoff.
// In-progress records are kept regardless of age.
func (r *HistoryRepository) DeleteFinishedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM generation_history
		WHERE status <> ? AND created_at < ?`,
		models.StatusInProgress, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup history: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup history: %w", err)
	}
	return affected, nil
}

func (r *HistoryRepository) scanRecord(row *sql.Row) (*models.GenerationRecord, error) {
	var rec models.GenerationRecord
	var params, result sql.NullString
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.TaskType, &rec.Model, &rec.JobID,
		&rec.Prompt, &params, &rec.Price, &rec.Status, &result, &rec.ErrorMessage,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan history record: %w", err)
	}
	if params.Valid {
		rec.Params = json.RawMessage(params.String)
	}
	if result.Valid {
		rec.Result = json.RawMessage(result.String)
	}
	return &rec, nil
}

func (r *HistoryRepository) collectRecords(rows *sql.Rows) ([]models.GenerationRecord, error) {
	defer rows.Close()

	var records []models.GenerationRecord
	for rows.Next() {
		var rec models.GenerationRecord
		var params, result sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.TaskType, &rec.Model, &rec.JobID,
			&rec.Prompt, &params, &rec.Price, &rec.Status, &result, &rec.ErrorMessage,
			&rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		if params.Valid {
			rec.Params = json.RawMessage(params.String)
		}
		if result.Valid {
			rec.Result = json.RawMessage(result.String)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
