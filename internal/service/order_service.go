package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/cache"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/model"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/queue"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/repository"
)

// AdvisoryNearDeparture is attached to order-creation responses when
// the train leaves within three hours, warning travellers to allow
// time for security checks and boarding.
const AdvisoryNearDeparture = "the selected train departs soon; allow around 20 minutes to reach the platform after security and ticket checks"

// EventPublisher publishes order lifecycle events.  Failures must never
// fail the booking operation that triggered them; the orchestrator logs
// and moves on.  A nil publisher disables events.
type EventPublisher interface {
	OrderConfirmed(ctx context.Context, ev queue.OrderConfirmedEvent) error
	OrderCancelled(ctx context.Context, ev queue.OrderCancelledEvent) error
}

// OrderService drives the order lifecycle: create, confirm, pay, cancel
// and reclaim-driven expiry.  It composes the route service and the
// seat allocator, resolving each request's interval exactly once and
// reusing it for fare, availability and allocation so all three operate
// on the identical segment set.  Order and order_details rows are
// mutated only here; seat ledger rows only through the allocator.
type OrderService struct {
	db          *sql.DB
	orders      *repository.OrderRepo
	trains      *repository.TrainRepo
	passengers  *repository.PassengerRepo
	cancels     *repository.CancellationRepo
	route       *RouteService
	alloc       *SeatAllocator
	avail       *cache.AvailabilityCache
	events      EventPublisher
	clock       Clock
	paymentHold time.Duration
	cancelLimit int
}

// NewOrderService constructs an OrderService.  The availability cache
// and event publisher are optional; everything else must be non-nil.
func NewOrderService(
	db *sql.DB,
	orders *repository.OrderRepo,
	trains *repository.TrainRepo,
	passengers *repository.PassengerRepo,
	cancels *repository.CancellationRepo,
	route *RouteService,
	alloc *SeatAllocator,
	avail *cache.AvailabilityCache,
	events EventPublisher,
	clock Clock,
	paymentHold time.Duration,
	cancelLimit int,
) *OrderService {
	if db == nil || orders == nil || trains == nil || passengers == nil || cancels == nil || route == nil || alloc == nil || clock == nil {
		panic("nil dependency passed to NewOrderService")
	}
	return &OrderService{
		db:          db,
		orders:      orders,
		trains:      trains,
		passengers:  passengers,
		cancels:     cancels,
		route:       route,
		alloc:       alloc,
		avail:       avail,
		events:      events,
		clock:       clock,
		paymentHold: paymentHold,
		cancelLimit: cancelLimit,
	}
}

// PassengerRequest is one requested ticket line: a passenger owned by
// the ordering user travelling in one fare class.
type PassengerRequest struct {
	PassengerID uint64          `json:"passenger_id"`
	FareClass   model.FareClass `json:"fare_class"`
}

// CreateOrderResult is returned by CreateOrder.  No seats are held yet;
// the order is pending until confirmed.
type CreateOrderResult struct {
	OrderID         string `json:"order_id"`
	TotalPriceCents int64  `json:"total_price_cents"`
	Advisory        string `json:"advisory,omitempty"`
}

// nearDeparture reports whether a train departing on date at
// departTime ("HH:MM") leaves within three hours of now.  Malformed
// reference data disables the advisory rather than failing the order.
func nearDeparture(date, departTime string, now time.Time) bool {
	dep, err := time.Parse("2006-01-02 15:04", date+" "+departTime)
	if err != nil {
		return false
	}
	diff := dep.Sub(now)
	return diff > 0 && diff < 3*time.Hour
}

// CreateOrder validates the request, prices the interval and persists a
// pending order with one ticket line per passenger.  Seats are not
// assigned: creation reserves price and class, confirmation reserves
// seats.  Fails with ErrTrainNotFound, ErrStationNotOnRoute,
// ErrInvalidDirection, ErrFareDataMissing, ErrUnsupportedFareClass or
// ErrPassengerNotOwned; validation happens before any mutation.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint64, trainNo, departureDate, origin, destination string, passengers []PassengerRequest) (*CreateOrderResult, error) {
	if len(passengers) == 0 {
		return nil, fmt.Errorf("%w: no passengers", ErrPassengerNotOwned)
	}
	train, err := s.trains.Get(ctx, trainNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrTrainNotFound, trainNo)
	}
	if err != nil {
		return nil, err
	}

	segments, err := s.route.ResolveInterval(ctx, trainNo, origin, destination)
	if err != nil {
		return nil, err
	}
	quote, err := s.route.AggregateFares(ctx, trainNo, segments)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		TrainNo:       trainNo,
		DepartureDate: departureDate,
		Origin:        origin,
		Destination:   destination,
		Status:        model.OrderPending,
	}
	details := make([]model.OrderDetail, 0, len(passengers))
	for i, p := range passengers {
		if !p.FareClass.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFareClass, p.FareClass)
		}
		price, ok := quote.Prices[p.FareClass]
		if !ok {
			return nil, fmt.Errorf("%w: %s not sold between %s and %s", ErrUnsupportedFareClass, p.FareClass, origin, destination)
		}
		if _, err := s.passengers.Get(ctx, p.PassengerID, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: passenger %d", ErrPassengerNotOwned, p.PassengerID)
			}
			return nil, err
		}
		order.TotalPriceCents += price
		details = append(details, model.OrderDetail{
			OrderID:     order.ID,
			Seq:         i + 1,
			PassengerID: p.PassengerID,
			FareClass:   p.FareClass,
			PriceCents:  price,
		})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.orders.CreateTx(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := s.orders.CreateDetailsBulkTx(ctx, tx, details); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	result := &CreateOrderResult{OrderID: order.ID, TotalPriceCents: order.TotalPriceCents}
	if nearDeparture(departureDate, train.DepartTime, s.clock.Now()) {
		result.Advisory = AdvisoryNearDeparture
	}
	return result, nil
}

// Ticket is one confirmed ticket line with its assigned physical seat.
type Ticket struct {
	Seq         int             `json:"seq"`
	PassengerID uint64          `json:"passenger_id"`
	FareClass   model.FareClass `json:"fare_class"`
	SeatNo      string          `json:"seat_no"`
	PriceCents  int64           `json:"price_cents"`
}

// ConfirmResult is returned by ConfirmOrder: the payment deadline and
// the allocated tickets.
type ConfirmResult struct {
	PaymentDeadline time.Time `json:"payment_deadline"`
	Tickets         []Ticket  `json:"tickets"`
}

// ConfirmOrder allocates seats for every ticket line of a pending order
// and starts the payment hold.  The interval is re-resolved as a
// defence against stale state, availability is pre-checked per fare
// class before any lock is attempted, and all allocations plus the
// status flip happen in one transaction: any failure rolls everything
// back, so a partially seated order is never committed.  Fails with
// ErrOrderNotFound, ErrInvalidOrderStatus or ErrSoldOut.
func (s *OrderService) ConfirmOrder(ctx context.Context, orderID string, userID uint64) (*ConfirmResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	order, err := s.orders.GetForUpdateTx(ctx, tx, orderID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, repository.ErrForbidden) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.Status != model.OrderPending {
		return nil, fmt.Errorf("%w: cannot confirm %s order", ErrInvalidOrderStatus, order.Status)
	}

	segments, err := s.route.ResolveInterval(ctx, order.TrainNo, order.Origin, order.Destination)
	if err != nil {
		return nil, err
	}
	details, err := s.orders.DetailsTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	// Fail fast: verify each fare class has enough whole-interval seats
	// before taking any locks.  The allocator re-checks under lock, so
	// a stale pre-check can only cause a SoldOut there, never an
	// oversell.
	required := make(map[model.FareClass]int)
	for _, d := range details {
		required[d.FareClass]++
	}
	for class, n := range required {
		free, err := s.route.CountAvailable(ctx, order.TrainNo, order.DepartureDate, class, segments)
		if err != nil {
			return nil, err
		}
		if free < n {
			return nil, fmt.Errorf("%w: %s", ErrSoldOut, class)
		}
	}

	tickets := make([]Ticket, 0, len(details))
	seats := make([]string, 0, len(details))
	for _, d := range details {
		seatNo, err := s.alloc.AllocateSeatTx(ctx, tx, order.TrainNo, order.DepartureDate, d.FareClass, segments, orderID)
		if err != nil {
			return nil, err
		}
		if err := s.orders.SetDetailSeatTx(ctx, tx, orderID, d.Seq, seatNo); err != nil {
			return nil, err
		}
		tickets = append(tickets, Ticket{
			Seq:         d.Seq,
			PassengerID: d.PassengerID,
			FareClass:   d.FareClass,
			SeatNo:      seatNo,
			PriceCents:  d.PriceCents,
		})
		seats = append(seats, seatNo)
	}

	deadline := s.clock.Now().Add(s.paymentHold)
	if err := s.orders.SetStatusTx(ctx, tx, orderID, model.OrderConfirmedUnpaid, &deadline); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	if s.avail != nil {
		s.avail.Invalidate(ctx, order.TrainNo, order.DepartureDate)
	}
	if s.events != nil {
		ev := queue.OrderConfirmedEvent{
			OrderID:         orderID,
			UserID:          order.UserID,
			TrainNo:         order.TrainNo,
			DepartureDate:   order.DepartureDate,
			Origin:          order.Origin,
			Destination:     order.Destination,
			Seats:           seats,
			TotalPriceCents: order.TotalPriceCents,
			PaymentDeadline: deadline.Format(time.RFC3339),
			ConfirmedAt:     s.clock.Now().Format(time.RFC3339),
		}
		if err := s.events.OrderConfirmed(ctx, ev); err != nil {
			log.Printf("order-service: publish confirmed event failed for %s: %v", orderID, err)
		}
	}
	return &ConfirmResult{PaymentDeadline: deadline, Tickets: tickets}, nil
}

// Receipt is returned by PayOrder.  Payment gateway integration is
// mocked: a confirm-state order within its deadline always charges
// successfully.
type Receipt struct {
	OrderID     string    `json:"order_id"`
	AmountCents int64     `json:"amount_cents"`
	PaidAt      time.Time `json:"paid_at"`
}

// PayOrder marks a confirmed order paid.  The order must still be
// within its payment deadline; past it, ErrOrderExpired is returned and
// the reclaimer will release the seats.  Paid seats stay locked for the
// travel date.
func (s *OrderService) PayOrder(ctx context.Context, orderID string, userID uint64) (*Receipt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	order, err := s.orders.GetForUpdateTx(ctx, tx, orderID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, repository.ErrForbidden) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.Status != model.OrderConfirmedUnpaid {
		return nil, fmt.Errorf("%w: cannot pay %s order", ErrInvalidOrderStatus, order.Status)
	}
	now := s.clock.Now()
	if order.PaymentDeadline == nil || now.After(*order.PaymentDeadline) {
		return nil, ErrOrderExpired
	}
	if err := s.orders.SetStatusTx(ctx, tx, orderID, model.OrderPaid, order.PaymentDeadline); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &Receipt{OrderID: orderID, AmountCents: order.TotalPriceCents, PaidAt: now}, nil
}

// CancelOrder releases a not-yet-paid order's seats and removes the
// order, counting the cancellation against the user's daily cap.  The
// cap is checked, under a row lock on the counter, before any seat is
// released: an over-cap attempt leaves the order and its seats intact.
// Paid orders are not cancellable through this path.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string, userID uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	order, err := s.orders.GetForUpdateTx(ctx, tx, orderID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, repository.ErrForbidden) {
			return ErrOrderNotFound
		}
		return err
	}
	if order.Status != model.OrderPending && order.Status != model.OrderConfirmedUnpaid {
		return fmt.Errorf("%w: cannot cancel %s order", ErrInvalidOrderStatus, order.Status)
	}

	today := s.clock.Now().Format("2006-01-02")
	count, err := s.cancels.CountOnDateTx(ctx, tx, userID, today)
	if err != nil {
		return err
	}
	if count >= s.cancelLimit {
		return ErrCancellationLimitExceeded
	}

	if _, err := s.alloc.ReleaseTx(ctx, tx, orderID); err != nil {
		return err
	}
	if err := s.cancels.IncrementTx(ctx, tx, userID, today); err != nil {
		return err
	}
	if err := s.orders.DeleteTx(ctx, tx, orderID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	s.afterRelease(ctx, order, "cancelled")
	return nil
}

// ExpireOrder is the reclaimer's release path.  It has the same effect
// as a cancellation but is system-driven: it never touches the user's
// cancellation counter.  An order that got paid between the sweep's
// scan and this call is left alone.
func (s *OrderService) ExpireOrder(ctx context.Context, orderID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	order, err := s.orders.GetForUpdateTx(ctx, tx, orderID, 0)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil // already reclaimed
		}
		return err
	}
	if order.Status == model.OrderPaid {
		return nil // paid while the sweep was running
	}
	if _, err := s.alloc.ReleaseTx(ctx, tx, orderID); err != nil {
		return err
	}
	if err := s.orders.DeleteTx(ctx, tx, orderID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	s.afterRelease(ctx, order, "expired")
	return nil
}

// afterRelease invalidates cached availability for the order's train
// and date and publishes the cancellation event.  Both are best-effort.
func (s *OrderService) afterRelease(ctx context.Context, order *model.Order, reason string) {
	if s.avail != nil {
		s.avail.Invalidate(ctx, order.TrainNo, order.DepartureDate)
	}
	if s.events != nil {
		ev := queue.OrderCancelledEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			TrainNo:       order.TrainNo,
			DepartureDate: order.DepartureDate,
			Reason:        reason,
			CancelledAt:   s.clock.Now().Format(time.RFC3339),
		}
		if err := s.events.OrderCancelled(ctx, ev); err != nil {
			log.Printf("order-service: publish cancelled event failed for %s: %v", order.ID, err)
		}
	}
}

// GetOrder returns one of the user's orders with its ticket lines.
func (s *OrderService) GetOrder(ctx context.Context, orderID string, userID uint64) (*repository.OrderView, error) {
	view, err := s.orders.GetByIDForUser(ctx, orderID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ListOrders returns all of the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID uint64) ([]repository.OrderView, error) {
	return s.orders.ListByUser(ctx, userID)
}
