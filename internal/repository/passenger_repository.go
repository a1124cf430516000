package repository

import (
	"context"
	"database/sql"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/model"
)

// PassengerRepo provides ownership-checked passenger lookups.
// Passenger management lives outside this core; the booking flow only
// needs to verify that each ticket line names a passenger the ordering
// user actually owns.
type PassengerRepo struct {
	db *sql.DB
}

// NewPassengerRepo returns a new PassengerRepo bound to the provided database.
func NewPassengerRepo(db *sql.DB) *PassengerRepo { return &PassengerRepo{db: db} }

// Get returns the passenger only when it exists and belongs to the
// user.  A passenger owned by someone else surfaces as sql.ErrNoRows,
// indistinguishable from a missing one.
func (r *PassengerRepo) Get(ctx context.Context, passengerID, userID uint64) (*model.Passenger, error) {
	const q = `SELECT id, user_id, name FROM passengers WHERE id = ? AND user_id = ?`
	var p model.Passenger
	err := r.db.QueryRowContext(ctx, q, passengerID, userID).Scan(&p.ID, &p.UserID, &p.Name)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
