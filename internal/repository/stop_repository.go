package repository

import (
	"context"
	"database/sql"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/model"
)

// StopRepo provides read access to the train_stops table.  Stop
// sequences are immutable reference data; there are no write methods.
type StopRepo struct {
	db *sql.DB
}

// NewStopRepo returns a new StopRepo bound to the provided database.
func NewStopRepo(db *sql.DB) *StopRepo { return &StopRepo{db: db} }

// ListByTrain returns the full stop sequence of a train in travel
// order.  An empty slice means the train is unknown; callers decide
// whether that is an error.
func (r *StopRepo) ListByTrain(ctx context.Context, trainNo string) ([]model.Stop, error) {
	const q = `SELECT train_no, seq, station, arrive_time, depart_time
	           FROM train_stops
	           WHERE train_no = ?
	           ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, q, trainNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stops []model.Stop
	for rows.Next() {
		var s model.Stop
		var arrive, depart sql.NullString
		if err := rows.Scan(&s.TrainNo, &s.Seq, &s.Station, &arrive, &depart); err != nil {
			return nil, err
		}
		s.ArriveTime = arrive.String
		s.DepartTime = depart.String
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stops, nil
}
