package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/model"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/queue"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/repository"
)

// fixedClock returns a constant instant, making deadline logic
// deterministic.
type fixedClock struct {
	t time.Time
}

func (f fixedClock) Now() time.Time { return f.t }

// eventRecorder captures published events instead of touching a broker.
type eventRecorder struct {
	confirmed []queue.OrderConfirmedEvent
	cancelled []queue.OrderCancelledEvent
}

func (r *eventRecorder) OrderConfirmed(_ context.Context, ev queue.OrderConfirmedEvent) error {
	r.confirmed = append(r.confirmed, ev)
	return nil
}

func (r *eventRecorder) OrderCancelled(_ context.Context, ev queue.OrderCancelledEvent) error {
	r.cancelled = append(r.cancelled, ev)
	return nil
}

var testNow = time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)

func newOrderHarness(t *testing.T, clock Clock) (*OrderService, sqlmock.Sqlmock, *eventRecorder, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	seats := repository.NewSeatStatusRepo(db)
	route := NewRouteService(repository.NewStopRepo(db), repository.NewFareRepo(db), seats, nil)
	alloc := NewSeatAllocator(db, seats, clock)
	events := &eventRecorder{}
	svc := NewOrderService(
		db,
		repository.NewOrderRepo(db),
		repository.NewTrainRepo(db),
		repository.NewPassengerRepo(db),
		repository.NewCancellationRepo(db),
		route,
		alloc,
		nil,
		events,
		clock,
		20*time.Minute,
		3,
	)
	return svc, mock, events, func() { _ = db.Close() }
}

var trainCols = []string{"train_no", "start_station", "end_station", "depart_time", "arrive_time", "direct"}

var orderCols = []string{
	"id", "user_id", "train_no", "departure_date", "origin", "destination",
	"status", "total_price_cents", "created_at", "payment_deadline",
}

func orderRow(id string, userID uint64, status string, deadline interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(orderCols).
		AddRow(id, userID, "G1", "2026-09-01", "A", "C", status, 17000, testNow.Add(-time.Hour), deadline)
}

func TestCreateOrder(t *testing.T) {
	svc, mock, _, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	mock.ExpectQuery("FROM trains").WithArgs("G1").
		WillReturnRows(sqlmock.NewRows(trainCols).AddRow("G1", "A", "D", "16:00", "22:00", false))
	mock.ExpectQuery("FROM train_stops").WithArgs("G1").WillReturnRows(stopRows("A", "B", "C"))
	mock.ExpectQuery("FROM train_fares").WithArgs("G1", "A", "B").
		WillReturnRows(sqlmock.NewRows(fareCols).AddRow(120, nil, nil, 10000, nil, nil, nil))
	mock.ExpectQuery("FROM train_fares").WithArgs("G1", "B", "C").
		WillReturnRows(sqlmock.NewRows(fareCols).AddRow(80, nil, nil, 7000, nil, nil, nil))
	mock.ExpectQuery("FROM passengers").WithArgs(uint64(7), uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name"}).AddRow(7, 42, "Wang Lei"))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT created_at FROM orders").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(testNow))
	mock.ExpectExec("INSERT INTO order_details").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.CreateOrder(context.Background(), 42, "G1", "2026-09-01", "A", "C",
		[]PassengerRequest{{PassengerID: 7, FareClass: model.SecondClass}})
	require.NoError(t, err)
	assert.NotEmpty(t, result.OrderID)
	assert.Equal(t, int64(17000), result.TotalPriceCents)
	// Departure is ten hours away, so no advisory.
	assert.Empty(t, result.Advisory)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_ClassNotSoldOnInterval(t *testing.T) {
	svc, mock, _, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	mock.ExpectQuery("FROM trains").WithArgs("G1").
		WillReturnRows(sqlmock.NewRows(trainCols).AddRow("G1", "A", "D", "16:00", "22:00", false))
	mock.ExpectQuery("FROM train_stops").WithArgs("G1").WillReturnRows(stopRows("A", "B", "C"))
	// business is priced on the first leg only.
	mock.ExpectQuery("FROM train_fares").WithArgs("G1", "A", "B").
		WillReturnRows(sqlmock.NewRows(fareCols).AddRow(120, 30000, nil, 10000, nil, nil, nil))
	mock.ExpectQuery("FROM train_fares").WithArgs("G1", "B", "C").
		WillReturnRows(sqlmock.NewRows(fareCols).AddRow(80, nil, nil, 7000, nil, nil, nil))

	_, err := svc.CreateOrder(context.Background(), 42, "G1", "2026-09-01", "A", "C",
		[]PassengerRequest{{PassengerID: 7, FareClass: model.Business}})
	assert.ErrorIs(t, err, ErrUnsupportedFareClass)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmOrder(t *testing.T) {
	svc, mock, events, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").WithArgs("ord-1").
		WillReturnRows(orderRow("ord-1", 42, model.OrderPending, nil))
	mock.ExpectQuery("FROM train_stops").WithArgs("G1").WillReturnRows(stopRows("A", "B", "C"))
	mock.ExpectQuery("FROM order_details").WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "seq", "passenger_id", "fare_class", "seat_no", "price_cents"}).
			AddRow("ord-1", 1, 7, "second_class", nil, 17000))
	mock.ExpectQuery("whole_interval").
		WithArgs("G1", "2026-09-01", "second_class", "A", "B", "B", "C", 1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("ORDER BY seat_no").WillReturnRows(candidateRows("05C"))
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(statusRows("available", "available"))
	mock.ExpectExec("UPDATE seat_status").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE order_details").WithArgs("05C", "ord-1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	deadline := testNow.Add(20 * time.Minute)
	mock.ExpectExec("UPDATE orders").
		WithArgs(model.OrderConfirmedUnpaid, deadline.Format("2006-01-02 15:04:05"), "ord-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.ConfirmOrder(context.Background(), "ord-1", 42)
	require.NoError(t, err)
	assert.Equal(t, deadline, result.PaymentDeadline)
	require.Len(t, result.Tickets, 1)
	assert.Equal(t, "05C", result.Tickets[0].SeatNo)

	require.Len(t, events.confirmed, 1)
	assert.Equal(t, "ord-1", events.confirmed[0].OrderID)
	assert.Equal(t, []string{"05C"}, events.confirmed[0].Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmOrder_SoldOutBeforeLocking(t *testing.T) {
	svc, mock, events, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").WithArgs("ord-1").
		WillReturnRows(orderRow("ord-1", 42, model.OrderPending, nil))
	mock.ExpectQuery("FROM train_stops").WithArgs("G1").WillReturnRows(stopRows("A", "B", "C"))
	mock.ExpectQuery("FROM order_details").WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "seq", "passenger_id", "fare_class", "seat_no", "price_cents"}).
			AddRow("ord-1", 1, 7, "second_class", nil, 17000))
	mock.ExpectQuery("whole_interval").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	_, err := svc.ConfirmOrder(context.Background(), "ord-1", 42)
	assert.ErrorIs(t, err, ErrSoldOut)
	assert.Empty(t, events.confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmOrder_WrongStatus(t *testing.T) {
	svc, mock, _, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").WithArgs("ord-1").
		WillReturnRows(orderRow("ord-1", 42, model.OrderPaid, testNow))
	mock.ExpectRollback()

	_, err := svc.ConfirmOrder(context.Background(), "ord-1", 42)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

func TestConfirmOrder_ForeignOrderHidden(t *testing.T) {
	svc, mock, _, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").WithArgs("ord-1").
		WillReturnRows(orderRow("ord-1", 99, model.OrderPending, nil))
	mock.ExpectRollback()

	// Someone else's order is indistinguishable from a missing one.
	_, err := svc.ConfirmOrder(context.Background(), "ord-1", 42)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPayOrder(t *testing.T) {
	svc, mock, _, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	deadline := testNow.Add(10 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").WithArgs("ord-1").
		WillReturnRows(orderRow("ord-1", 42, model.OrderConfirmedUnpaid, deadline))
	mock.ExpectExec("UPDATE orders").
		WithArgs(model.OrderPaid, deadline.Format("2006-01-02 15:04:05"), "ord-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	receipt, err := svc.PayOrder(context.Background(), "ord-1", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(17000), receipt.AmountCents)
	assert.Equal(t, testNow, receipt.PaidAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayOrder_PastDeadline(t *testing.T) {
	svc, mock, _, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").WithArgs("ord-1").
		WillReturnRows(orderRow("ord-1", 42, model.OrderConfirmedUnpaid, testNow.Add(-time.Minute)))
	mock.ExpectRollback()

	_, err := svc.PayOrder(context.Background(), "ord-1", 42)
	assert.ErrorIs(t, err, ErrOrderExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrder(t *testing.T) {
	svc, mock, events, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").WithArgs("ord-1").
		WillReturnRows(orderRow("ord-1", 42, model.OrderConfirmedUnpaid, testNow.Add(10*time.Minute)))
	mock.ExpectQuery("FROM order_cancellations").WithArgs(uint64(42), "2026-09-01").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("UPDATE seat_status").WithArgs("ord-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO order_cancellations").WithArgs(uint64(42), "2026-09-01").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM order_details").WithArgs("ord-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM orders").WithArgs("ord-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.CancelOrder(context.Background(), "ord-1", 42))
	require.Len(t, events.cancelled, 1)
	assert.Equal(t, "cancelled", events.cancelled[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrder_CapReached(t *testing.T) {
	svc, mock, events, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").WithArgs("ord-1").
		WillReturnRows(orderRow("ord-1", 42, model.OrderConfirmedUnpaid, testNow.Add(10*time.Minute)))
	mock.ExpectQuery("FROM order_cancellations").WithArgs(uint64(42), "2026-09-01").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	// The cap is checked before any seat is released: the rejected
	// order keeps its seats and the ledger is untouched.
	err := svc.CancelOrder(context.Background(), "ord-1", 42)
	assert.ErrorIs(t, err, ErrCancellationLimitExceeded)
	assert.Empty(t, events.cancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrder_PaidNotCancellable(t *testing.T) {
	svc, mock, _, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").WithArgs("ord-1").
		WillReturnRows(orderRow("ord-1", 42, model.OrderPaid, testNow))
	mock.ExpectRollback()

	err := svc.CancelOrder(context.Background(), "ord-1", 42)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

func TestExpireOrder(t *testing.T) {
	svc, mock, events, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").WithArgs("ord-1").
		WillReturnRows(orderRow("ord-1", 42, model.OrderConfirmedUnpaid, testNow.Add(-time.Minute)))
	mock.ExpectExec("UPDATE seat_status").WithArgs("ord-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM order_details").WithArgs("ord-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM orders").WithArgs("ord-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.ExpireOrder(context.Background(), "ord-1"))
	require.Len(t, events.cancelled, 1)
	assert.Equal(t, "expired", events.cancelled[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireOrder_PaidWhileSweeping(t *testing.T) {
	svc, mock, events, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").WithArgs("ord-1").
		WillReturnRows(orderRow("ord-1", 42, model.OrderPaid, testNow))
	mock.ExpectRollback()

	// The user paid between the sweep's scan and this call; the order
	// must be left alone.
	require.NoError(t, svc.ExpireOrder(context.Background(), "ord-1"))
	assert.Empty(t, events.cancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireOrder_AlreadyReclaimed(t *testing.T) {
	svc, mock, _, done := newOrderHarness(t, fixedClock{testNow})
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows(orderCols))
	mock.ExpectRollback()

	require.NoError(t, svc.ExpireOrder(context.Background(), "ord-1"))
}

func TestNearDeparture(t *testing.T) {
	now := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)

	assert.True(t, nearDeparture("2026-09-01", "16:00", now))
	assert.False(t, nearDeparture("2026-09-01", "17:30", now))
	// Already departed.
	assert.False(t, nearDeparture("2026-09-01", "13:00", now))
	// Malformed reference data disables the advisory.
	assert.False(t, nearDeparture("2026-09-01", "soon", now))
}
