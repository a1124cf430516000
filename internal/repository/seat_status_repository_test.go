package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/model"
)

func TestSegmentPredicate(t *testing.T) {
	segs := []model.Segment{{From: "A", To: "B"}, {From: "B", To: "C"}}

	pred, args := segmentPredicate(segs)
	assert.Equal(t, "(from_station = ? AND to_station = ?) OR (from_station = ? AND to_station = ?)", pred)
	assert.Equal(t, []interface{}{"A", "B", "B", "C"}, args)
}

func TestCountAvailableForInterval(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSeatStatusRepo(db)
	segs := []model.Segment{{From: "A", To: "B"}, {From: "B", To: "C"}}

	// The grouped query counts seats with one available row per
	// interval segment; the HAVING bound is the segment count.
	mock.ExpectQuery("whole_interval").
		WithArgs("G1", "2026-09-01", "second_class", "A", "B", "B", "C", 2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.CountAvailableForInterval(context.Background(), "G1", "2026-09-01", model.SecondClass, segs)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
