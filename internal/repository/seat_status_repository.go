package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/model"
)

// SeatStatusRepo provides data access to the seat_status table, the
// inventory of record.  One row tracks one physical seat on one
// adjacent station pair for one departure date.  All mutation happens
// through ...Tx methods inside a caller-owned transaction: the seat
// allocator is the only component allowed to flip rows, and it relies
// on the transaction boundary for correctness under concurrent
// booking.  Timestamps are UTC.
type SeatStatusRepo struct {
	db *sql.DB
}

// NewSeatStatusRepo returns a new SeatStatusRepo bound to the provided database.
func NewSeatStatusRepo(db *sql.DB) *SeatStatusRepo { return &SeatStatusRepo{db: db} }

// segmentPredicate builds the "(from_station = ? AND to_station = ?) OR ..."
// clause matching the rows of an interval, together with its arguments.
// The clause enumerates the interval's adjacent pairs; combined with a
// per-seat row count it expresses "this seat covers the whole interval".
func segmentPredicate(segments []model.Segment) (string, []interface{}) {
	parts := make([]string, 0, len(segments))
	args := make([]interface{}, 0, len(segments)*2)
	for _, s := range segments {
		parts = append(parts, "(from_station = ? AND to_station = ?)")
		args = append(args, s.From, s.To)
	}
	return strings.Join(parts, " OR "), args
}

// CountAvailableForInterval counts the physical seats of one fare class
// that are free across every segment of the interval.  The check is a
// single grouped query: a seat qualifies only when it has exactly one
// available row per interval segment, so a missing or booked row on any
// segment disqualifies it.  Runs outside any transaction and therefore
// reflects committed state at query time.
func (r *SeatStatusRepo) CountAvailableForInterval(ctx context.Context, trainNo, date string, class model.FareClass, segments []model.Segment) (int, error) {
	pred, args := segmentPredicate(segments)
	q := `SELECT COUNT(*)
	      FROM (
	          SELECT seat_no
	          FROM seat_status
	          WHERE train_no = ? AND departure_date = ? AND fare_class = ?
	          AND (` + pred + `)
	          AND status = 'available'
	          GROUP BY seat_no
	          HAVING COUNT(*) = ?
	      ) AS whole_interval`
	qargs := append([]interface{}{trainNo, date, string(class)}, args...)
	qargs = append(qargs, len(segments))
	var count int
	if err := r.db.QueryRowContext(ctx, q, qargs...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CandidateSeatsTx lists, in ascending seat number order, the seats of
// one fare class whose rows are available across the whole interval at
// the time of the read.  The ordering makes allocation a deterministic
// first fit.  The snapshot is not yet protected by locks; callers must
// re-verify each candidate with LockSegmentsTx before booking it.
func (r *SeatStatusRepo) CandidateSeatsTx(ctx context.Context, tx *sql.Tx, trainNo, date string, class model.FareClass, segments []model.Segment) ([]string, error) {
	pred, args := segmentPredicate(segments)
	q := `SELECT seat_no
	      FROM seat_status
	      WHERE train_no = ? AND departure_date = ? AND fare_class = ?
	      AND (` + pred + `)
	      AND status = 'available'
	      GROUP BY seat_no
	      HAVING COUNT(*) = ?
	      ORDER BY seat_no`
	qargs := append([]interface{}{trainNo, date, string(class)}, args...)
	qargs = append(qargs, len(segments))
	rows, err := tx.QueryContext(ctx, q, qargs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []string
	for rows.Next() {
		var seatNo string
		if err := rows.Scan(&seatNo); err != nil {
			return nil, err
		}
		seats = append(seats, seatNo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// LockSegmentsTx takes row locks on one seat's rows for the interval and
// reports whether the seat is still free on every segment.  MySQL
// disallows locking reads combined with GROUP BY, so candidate selection
// and locking are two steps: the allocator picks a candidate from
// CandidateSeatsTx, then calls this to serialize against concurrent
// transactions racing for the same seat.  A false result means another
// transaction won a segment in between; the caller moves to the next
// candidate.
func (r *SeatStatusRepo) LockSegmentsTx(ctx context.Context, tx *sql.Tx, trainNo, date string, class model.FareClass, seatNo string, segments []model.Segment) (bool, error) {
	pred, args := segmentPredicate(segments)
	q := `SELECT status
	      FROM seat_status
	      WHERE train_no = ? AND departure_date = ? AND fare_class = ? AND seat_no = ?
	      AND (` + pred + `)
	      FOR UPDATE`
	qargs := append([]interface{}{trainNo, date, string(class), seatNo}, args...)
	rows, err := tx.QueryContext(ctx, q, qargs...)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	seen := 0
	free := true
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return false, err
		}
		seen++
		if status != model.SeatAvailable {
			free = false
		}
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	// A seat missing rows for part of the interval never qualifies.
	return free && seen == len(segments), nil
}

// BookSegmentsTx flips every interval row of one seat to booked and
// records the holder and hold time.  It returns the number of rows
// updated; callers must verify it equals the segment count and roll
// back otherwise, since fewer rows means another transaction stole a
// segment after the lock check.
func (r *SeatStatusRepo) BookSegmentsTx(ctx context.Context, tx *sql.Tx, trainNo, date string, class model.FareClass, seatNo, holderID string, heldAt time.Time, segments []model.Segment) (int64, error) {
	pred, args := segmentPredicate(segments)
	q := `UPDATE seat_status
	      SET status = 'booked', holder_id = ?, held_at = ?
	      WHERE train_no = ? AND departure_date = ? AND fare_class = ? AND seat_no = ?
	      AND (` + pred + `)
	      AND status = 'available'`
	qargs := append([]interface{}{holderID, heldAt.UTC().Format("2006-01-02 15:04:05"), trainNo, date, string(class), seatNo}, args...)
	res, err := tx.ExecContext(ctx, q, qargs...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReleaseByHolderTx reverts every row held by the given holder back to
// available and clears the holder and hold time.  Releasing a holder
// with no rows is a no-op, which makes release idempotent.  It returns
// the number of rows reverted.
func (r *SeatStatusRepo) ReleaseByHolderTx(ctx context.Context, tx *sql.Tx, holderID string) (int64, error) {
	const q = `UPDATE seat_status
	           SET status = 'available', holder_id = NULL, held_at = NULL
	           WHERE holder_id = ?`
	res, err := tx.ExecContext(ctx, q, holderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
