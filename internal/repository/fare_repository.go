package repository

import (
	"context"
	"database/sql"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/model"
)

// FareRepo provides read access to the train_fares table.  Each row
// prices one adjacent station pair of one train; the per-class prices
// live in dedicated columns mirroring the fare classes.  Fare data is
// read-only reference data to the booking core.
type FareRepo struct {
	db *sql.DB
}

// NewFareRepo returns a new FareRepo bound to the provided database.
func NewFareRepo(db *sql.DB) *FareRepo { return &FareRepo{db: db} }

// GetSegment returns the fare row for one adjacent station pair.  When
// no row exists the segment is not sellable and sql.ErrNoRows is
// returned; callers translate that into a data-integrity error rather
// than falling back to an estimated price.  NULL or zero price columns
// are omitted from the returned map, signalling the class is not
// offered on the segment.
func (r *FareRepo) GetSegment(ctx context.Context, trainNo, from, to string) (*model.FareRow, error) {
	const q = `SELECT distance_km,
	                  business_price, first_class_price, second_class_price,
	                  hard_seat_price, hard_sleeper_price, soft_sleeper_price
	           FROM train_fares
	           WHERE train_no = ? AND from_station = ? AND to_station = ?`
	row := model.FareRow{
		TrainNo:    trainNo,
		From:       from,
		To:         to,
		PriceCents: make(map[model.FareClass]int64),
	}
	var prices [6]sql.NullInt64
	err := r.db.QueryRowContext(ctx, q, trainNo, from, to).Scan(
		&row.DistanceKm,
		&prices[0], &prices[1], &prices[2], &prices[3], &prices[4], &prices[5],
	)
	if err != nil {
		return nil, err
	}
	// Column order matches model.FareClasses.
	for i, class := range model.FareClasses {
		if prices[i].Valid && prices[i].Int64 > 0 {
			row.PriceCents[class] = prices[i].Int64
		}
	}
	return &row, nil
}
