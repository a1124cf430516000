package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/model"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/repository"
)

// SeatAllocator owns all mutation of the seat ledger.  Allocation is a
// deterministic first fit: candidates are visited in ascending seat
// number order and the first seat whose rows survive a locked re-check
// is booked across every segment of the interval.  Correctness under
// concurrent booking comes from the enclosing transaction and the row
// locks taken before each booking, not from application-level mutexes.
// The allocator never retries a lost race; the caller re-runs the whole
// confirmation if it wants another attempt, because the candidate set
// may have changed.
type SeatAllocator struct {
	db    *sql.DB
	seats *repository.SeatStatusRepo
	clock Clock
}

// NewSeatAllocator constructs a SeatAllocator.
func NewSeatAllocator(db *sql.DB, seats *repository.SeatStatusRepo, clock Clock) *SeatAllocator {
	if db == nil || seats == nil || clock == nil {
		panic("nil dependency passed to NewSeatAllocator")
	}
	return &SeatAllocator{db: db, seats: seats, clock: clock}
}

// AllocateSeatTx selects and books one seat of the given fare class
// across every segment of the interval, inside the caller's
// transaction.  It walks the candidate seats in seat number order,
// locks each candidate's interval rows, re-checks them under the lock,
// and books the first seat that is still fully available.  Candidates
// stolen by a concurrent transaction between the snapshot and the lock
// are skipped.  When no candidate survives, ErrSoldOut is returned for
// the class and the caller is expected to roll back the transaction.
func (a *SeatAllocator) AllocateSeatTx(ctx context.Context, tx *sql.Tx, trainNo, date string, class model.FareClass, segments []model.Segment, holderID string) (string, error) {
	candidates, err := a.seats.CandidateSeatsTx(ctx, tx, trainNo, date, class, segments)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: %s", ErrSoldOut, class)
	}
	heldAt := a.clock.Now()
	for _, seatNo := range candidates {
		free, err := a.seats.LockSegmentsTx(ctx, tx, trainNo, date, class, seatNo, segments)
		if err != nil {
			return "", err
		}
		if !free {
			continue
		}
		affected, err := a.seats.BookSegmentsTx(ctx, tx, trainNo, date, class, seatNo, holderID, heldAt, segments)
		if err != nil {
			return "", err
		}
		if affected != int64(len(segments)) {
			// The locked re-check passed but the update matched fewer
			// rows than the interval has segments; the ledger no longer
			// matches what was locked.  Abort rather than commit a
			// half-booked seat.
			return "", fmt.Errorf("seat %s: booked %d of %d segment rows", seatNo, affected, len(segments))
		}
		return seatNo, nil
	}
	return "", fmt.Errorf("%w: %s", ErrSoldOut, class)
}

// ReleaseTx reverts every ledger row held by the order inside the
// caller's transaction.  Releasing an order that holds nothing is a
// no-op, making release idempotent.  Returns the number of segment rows
// reverted.
func (a *SeatAllocator) ReleaseTx(ctx context.Context, tx *sql.Tx, orderID string) (int64, error) {
	return a.seats.ReleaseByHolderTx(ctx, tx, orderID)
}

// Release reverts an order's seats in its own transaction.  Exposed for
// callers that have no transaction of their own.
func (a *SeatAllocator) Release(ctx context.Context, orderID string) (int64, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	released, err := a.ReleaseTx(ctx, tx, orderID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return released, nil
}
