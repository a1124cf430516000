package repository

import (
	"context"
	"database/sql"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/model"
)

// TrainRepo provides read access to train metadata.  Train records are
// reference data maintained outside this core.
type TrainRepo struct {
	db *sql.DB
}

// NewTrainRepo returns a new TrainRepo bound to the provided database.
func NewTrainRepo(db *sql.DB) *TrainRepo { return &TrainRepo{db: db} }

// Get returns the metadata of one train.  sql.ErrNoRows is passed
// through when the train number is unknown.
func (r *TrainRepo) Get(ctx context.Context, trainNo string) (*model.Train, error) {
	const q = `SELECT train_no, start_station, end_station, depart_time, arrive_time, direct
	           FROM trains
	           WHERE train_no = ?`
	var t model.Train
	err := r.db.QueryRowContext(ctx, q, trainNo).Scan(
		&t.TrainNo, &t.StartStation, &t.EndStation, &t.DepartTime, &t.ArriveTime, &t.Direct,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
