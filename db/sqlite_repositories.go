package db

import (
	"context"
	"database/sql"
	"fmt"

	"travelwatch/internal/util"
	"travelwatch/models"
)

// SQLiteLoginHistoryRepository implements the LoginHistoryRepository interface for SQLite
type SQLiteLoginHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteLoginHistoryRepository creates a new SQLiteLoginHistoryRepository
func NewSQLiteLoginHistoryRepository(db *sql.DB) *SQLiteLoginHistoryRepository {
	return &SQLiteLoginHistoryRepository{db: db}
}

// Close closes the database connection
func (r *SQLiteLoginHistoryRepository) Close() error {
	return r.db.Close()
}

// Append inserts a login record and evicts the oldest records beyond
// maxRecords for the user. The insert, count and eviction run in a single
// transaction so concurrent appends cannot observe a stale count and
// collectively breach the cap.
func (r *SQLiteLoginHistoryRepository) Append(ctx context.Context, record *models.LoginRecord, maxRecords int) error {
	return util.RetryOnLock(func() error {
		return r.appendTx(ctx, record, maxRecords)
	})
}

func (r *SQLiteLoginHistoryRepository) appendTx(ctx context.Context, record *models.LoginRecord, maxRecords int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO login_history (user, ip, country, city, latitude, longitude, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.User, record.IP, record.Country, record.City,
		record.Latitude, record.Longitude, record.Timestamp)
	if err != nil {
		return fmt.Errorf("error inserting login record: %w", err)
	}

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM login_history WHERE user = ?`, record.User).Scan(&count)
	if err != nil {
		return fmt.Errorf("error counting login records: %w", err)
	}

	if count > maxRecords {
		// Evict oldest by event timestamp; equal timestamps go in
		// insertion order (rowid ascending)
		_, err = tx.ExecContext(ctx, `
			DELETE FROM login_history
			WHERE id IN (
				SELECT id FROM login_history
				WHERE user = ?
				ORDER BY timestamp ASC, id ASC
				LIMIT ?
			)`, record.User, count-maxRecords)
		if err != nil {
			return fmt.Errorf("error evicting old login records: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// MostRecent returns the login with the greatest event timestamp for the user
func (r *SQLiteLoginHistoryRepository) MostRecent(ctx context.Context, user string) (*models.LoginRecord, error) {
	logins, err := r.Recent(ctx, user, 1)
	if err != nil {
		return nil, err
	}
	if len(logins) == 0 {
		return nil, ErrNotFound
	}
	return logins[0], nil
}

// Recent returns up to limit logins for the user, newest first
func (r *SQLiteLoginHistoryRepository) Recent(ctx context.Context, user string, limit int) ([]*models.LoginRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user, ip, country, city, latitude, longitude, timestamp, created_at
		FROM login_history
		WHERE user = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, user, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying login history: %w", err)
	}
	defer rows.Close()

	var records []*models.LoginRecord
	for rows.Next() {
		var record models.LoginRecord
		var createdAt sql.NullTime

		err := rows.Scan(&record.User, &record.IP, &record.Country, &record.City,
			&record.Latitude, &record.Longitude, &record.Timestamp, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning login record: %w", err)
		}
		if createdAt.Valid {
			record.CreatedAt = createdAt.Time
		}

		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating login history: %w", err)
	}

	return records, nil
}

// PurgeAll deletes every login record and returns the prior total count
func (r *SQLiteLoginHistoryRepository) PurgeAll(ctx context.Context) (int64, error) {
	return util.RetryOnLockWithResult(func() (int64, error) {
		return r.purgeTx(ctx)
	})
}

func (r *SQLiteLoginHistoryRepository) purgeTx(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var count int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM login_history`).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting login records: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM login_history`); err != nil {
		return 0, fmt.Errorf("error purging login history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing transaction: %w", err)
	}

	return count, nil
}

// Stats reports the total record count and distinct user count
func (r *SQLiteLoginHistoryRepository) Stats(ctx context.Context) (*models.StatsResponse, error) {
	var stats models.StatsResponse

	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM login_history`).Scan(&stats.TotalRecords)
	if err != nil {
		return nil, fmt.Errorf("error counting login records: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT user) FROM login_history`).Scan(&stats.UniqueUsers)
	if err != nil {
		return nil, fmt.Errorf("error counting distinct users: %w", err)
	}

	return &stats, nil
}
