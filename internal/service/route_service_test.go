package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/model"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/repository"
)

func stops(names ...string) []model.Stop {
	out := make([]model.Stop, 0, len(names))
	for i, n := range names {
		out = append(out, model.Stop{TrainNo: "G1", Seq: i + 1, Station: n})
	}
	return out
}

func TestSegmentsBetween(t *testing.T) {
	route := stops("A", "B", "C", "D")

	segs, err := segmentsBetween(route, "A", "D")
	require.NoError(t, err)
	// Three stops apart means exactly three adjacent segments.
	require.Len(t, segs, 3)
	assert.Equal(t, model.Segment{From: "A", To: "B"}, segs[0])
	assert.Equal(t, model.Segment{From: "B", To: "C"}, segs[1])
	assert.Equal(t, model.Segment{From: "C", To: "D"}, segs[2])
	// Segments chain with no gaps or overlaps.
	for i := 1; i < len(segs); i++ {
		assert.Equal(t, segs[i-1].To, segs[i].From)
	}

	segs, err = segmentsBetween(route, "B", "C")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, model.Segment{From: "B", To: "C"}, segs[0])
}

func TestSegmentsBetween_Errors(t *testing.T) {
	route := stops("A", "B", "C")

	_, err := segmentsBetween(route, "X", "C")
	assert.ErrorIs(t, err, ErrStationNotOnRoute)

	_, err = segmentsBetween(route, "A", "X")
	assert.ErrorIs(t, err, ErrStationNotOnRoute)

	_, err = segmentsBetween(route, "C", "A")
	assert.ErrorIs(t, err, ErrInvalidDirection)

	_, err = segmentsBetween(route, "B", "B")
	assert.ErrorIs(t, err, ErrInvalidDirection)
}

func fareRow(from, to string, km int, prices map[model.FareClass]int64) *model.FareRow {
	return &model.FareRow{TrainNo: "G1", From: from, To: to, DistanceKm: km, PriceCents: prices}
}

func TestSumFares(t *testing.T) {
	rows := []*model.FareRow{
		fareRow("A", "B", 120, map[model.FareClass]int64{
			model.SecondClass: 10000,
			model.FirstClass:  18000,
			model.Business:    30000,
		}),
		fareRow("B", "C", 80, map[model.FareClass]int64{
			model.SecondClass: 7000,
			model.FirstClass:  12000,
			// business not offered on this leg
		}),
	}

	quote := sumFares(rows)
	assert.Equal(t, 200, quote.DistanceKm)
	// Interval price is the sum of the per-segment prices.
	assert.Equal(t, int64(17000), quote.Prices[model.SecondClass])
	assert.Equal(t, int64(30000), quote.Prices[model.FirstClass])
	// A class absent from any segment is not sellable on the interval.
	_, ok := quote.Prices[model.Business]
	assert.False(t, ok)
	assert.Len(t, quote.Prices, 2)
}

func TestSumFares_Empty(t *testing.T) {
	quote := sumFares(nil)
	assert.Empty(t, quote.Prices)
	assert.Zero(t, quote.DistanceKm)
}

func newRouteMock(t *testing.T) (*RouteService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	svc := NewRouteService(
		repository.NewStopRepo(db),
		repository.NewFareRepo(db),
		repository.NewSeatStatusRepo(db),
		nil,
	)
	return svc, mock, func() { _ = db.Close() }
}

func stopRows(names ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"train_no", "seq", "station", "arrive_time", "depart_time"})
	for i, n := range names {
		rows.AddRow("G1", i+1, n, "08:00", "08:05")
	}
	return rows
}

func TestResolveInterval(t *testing.T) {
	svc, mock, done := newRouteMock(t)
	defer done()

	mock.ExpectQuery("FROM train_stops").WithArgs("G1").WillReturnRows(stopRows("A", "B", "C"))

	segs, err := svc.ResolveInterval(context.Background(), "G1", "A", "C")
	require.NoError(t, err)
	assert.Len(t, segs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveInterval_UnknownTrain(t *testing.T) {
	svc, mock, done := newRouteMock(t)
	defer done()

	mock.ExpectQuery("FROM train_stops").WithArgs("G9").WillReturnRows(stopRows())

	_, err := svc.ResolveInterval(context.Background(), "G9", "A", "C")
	assert.ErrorIs(t, err, ErrTrainNotFound)
}

var fareCols = []string{
	"distance_km",
	"business_price", "first_class_price", "second_class_price",
	"hard_seat_price", "hard_sleeper_price", "soft_sleeper_price",
}

func TestAggregateFares_MissingSegment(t *testing.T) {
	svc, mock, done := newRouteMock(t)
	defer done()

	mock.ExpectQuery("FROM train_fares").WithArgs("G1", "A", "B").
		WillReturnRows(sqlmock.NewRows(fareCols).AddRow(120, nil, nil, 10000, nil, nil, nil))
	mock.ExpectQuery("FROM train_fares").WithArgs("G1", "B", "C").
		WillReturnError(sql.ErrNoRows)

	segs := []model.Segment{{From: "A", To: "B"}, {From: "B", To: "C"}}
	_, err := svc.AggregateFares(context.Background(), "G1", segs)
	assert.ErrorIs(t, err, ErrFareDataMissing)
	assert.Contains(t, err.Error(), "B->C")
}

func TestGetAvailableFareClasses(t *testing.T) {
	svc, mock, done := newRouteMock(t)
	defer done()

	mock.ExpectQuery("FROM train_stops").WithArgs("G1").WillReturnRows(stopRows("A", "B", "C"))
	// business is priced on only the first leg, so it must not appear.
	mock.ExpectQuery("FROM train_fares").WithArgs("G1", "A", "B").
		WillReturnRows(sqlmock.NewRows(fareCols).AddRow(120, 30000, nil, 10000, nil, nil, nil))
	mock.ExpectQuery("FROM train_fares").WithArgs("G1", "B", "C").
		WillReturnRows(sqlmock.NewRows(fareCols).AddRow(80, nil, nil, 7000, nil, nil, nil))
	mock.ExpectQuery("whole_interval").
		WithArgs("G1", "2026-09-01", "second_class", "A", "B", "B", "C", 2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	classes, err := svc.GetAvailableFareClasses(context.Background(), "G1", "A", "C", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, model.SecondClass, classes[0].FareClass)
	assert.Equal(t, int64(17000), classes[0].PriceCents)
	assert.Equal(t, 5, classes[0].Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}
