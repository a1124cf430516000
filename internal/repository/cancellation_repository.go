package repository

import (
	"context"
	"database/sql"
)

// CancellationRepo tracks per-user daily cancellation counters backing
// the cancellation cap.  Counters are keyed by (user_id, cancel_date)
// and only ever grow within a day; stale rows are purged by the daily
// cleanup job.
type CancellationRepo struct {
	db *sql.DB
}

// NewCancellationRepo returns a new CancellationRepo bound to the provided database.
func NewCancellationRepo(db *sql.DB) *CancellationRepo { return &CancellationRepo{db: db} }

// CountOnDateTx returns how many cancellations the user has already
// performed on the given calendar day, locking the counter row so that
// concurrent cancellations serialize on the cap check.  Returns 0 when
// no counter exists yet.
func (r *CancellationRepo) CountOnDateTx(ctx context.Context, tx *sql.Tx, userID uint64, date string) (int, error) {
	const q = `SELECT count FROM order_cancellations
	           WHERE user_id = ? AND cancel_date = ?
	           FOR UPDATE`
	var count int
	err := tx.QueryRowContext(ctx, q, userID, date).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// IncrementTx records one more cancellation for the user on the given
// day, creating the counter on first use.
func (r *CancellationRepo) IncrementTx(ctx context.Context, tx *sql.Tx, userID uint64, date string) error {
	const q = `INSERT INTO order_cancellations (user_id, cancel_date, count)
	           VALUES (?, ?, 1)
	           ON DUPLICATE KEY UPDATE count = count + 1`
	_, err := tx.ExecContext(ctx, q, userID, date)
	return err
}

// PurgeBefore deletes counters older than the given date and returns
// how many rows were removed.  The cap only applies within a calendar
// day, so older counters are dead weight.
func (r *CancellationRepo) PurgeBefore(ctx context.Context, date string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM order_cancellations WHERE cancel_date < ?`, date)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
