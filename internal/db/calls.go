package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tgcalld/internal/models"
)

var ErrCallNotFound = errors.New("call record not found")

// CallLogRepository handles database operations for the call log
type CallLogRepository struct {
	db *sql.DB
}

// NewCallLogRepository creates a new CallLogRepository
func NewCallLogRepository(db *sql.DB) *CallLogRepository {
	return &CallLogRepository{db: db}
}

// Create inserts a new call record at call start
func (r *CallLogRepository) Create(ctx context.Context, rec *models.CallRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO call_log (id, target, peer, topic, language, disposition, error, started_at, ended_at, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Target, rec.Peer, rec.Topic, rec.Language, rec.Disposition, rec.Error, rec.StartedAt, rec.EndedAt, rec.Duration)
	return err
}

// Finish records the outcome of a call
func (r *CallLogRepository) Finish(ctx context.Context, id, peer, disposition, errMsg string, endedAt time.Time, duration int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE call_log SET peer = ?, disposition = ?, error = ?, ended_at = ?, duration = ?
		WHERE id = ?
	`, peer, disposition, errMsg, endedAt, duration, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCallNotFound
	}
	return nil
}

// GetByID retrieves a call record by ID
func (r *CallLogRepository) GetByID(ctx context.Context, id string) (*models.CallRecord, error) {
	rec := &models.CallRecord{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, target, peer, topic, language, disposition, error, started_at, ended_at, duration
		FROM call_log WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Target, &rec.Peer, &rec.Topic, &rec.Language, &rec.Disposition, &rec.Error, &rec.StartedAt, &rec.EndedAt, &rec.Duration)
	if err == sql.ErrNoRows {
		return nil, ErrCallNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List retrieves call records newest first
func (r *CallLogRepository) List(ctx context.Context, limit, offset int) ([]models.CallRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, target, peer, topic, language, disposition, error, started_at, ended_at, duration
		FROM call_log ORDER BY started_at DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.CallRecord
	for rows.Next() {
		var rec models.CallRecord
		if err := rows.Scan(&rec.ID, &rec.Target, &rec.Peer, &rec.Topic, &rec.Language, &rec.Disposition, &rec.Error, &rec.StartedAt, &rec.EndedAt, &rec.Duration); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the total number of call records
func (r *CallLogRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM call_log`).Scan(&count)
	return count, err
}

// Stats summarizes the call log by disposition
func (r *CallLogRepository) Stats(ctx context.Context) (*models.CallStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT disposition, COUNT(*) FROM call_log GROUP BY disposition
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &models.CallStats{}
	for rows.Next() {
		var disposition string
		var count int
		if err := rows.Scan(&disposition, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		switch disposition {
		case models.DispositionCompleted:
			stats.Completed = count
		case models.DispositionFailed:
			stats.Failed = count
		case models.DispositionHungUp:
			stats.HungUp = count
		}
	}
	return stats, rows.Err()
}
