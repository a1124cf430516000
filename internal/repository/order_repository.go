package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/model"
)

// OrderRepo provides CRUD operations for orders and their ticket lines.
// Orders group one or more passengers travelling the same interval of
// one train on one date.  All lifecycle mutation happens through ...Tx
// methods so that the order orchestrator can combine them with seat
// ledger updates in a single transaction.  All timestamps are UTC.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// CreateTx inserts a new order within the scope of an existing
// transaction.  The caller supplies the UUID id and must commit or
// roll back the transaction.  CreatedAt is populated from the row the
// database stored.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	const q = `INSERT INTO orders (id, user_id, train_no, departure_date, origin, destination, status, total_price_cents)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q,
		o.ID, o.UserID, o.TrainNo, o.DepartureDate, o.Origin, o.Destination, o.Status, o.TotalPriceCents,
	); err != nil {
		return err
	}
	// Query back the stored row to populate the DB-defaulted timestamp.
	const sel = `SELECT created_at FROM orders WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, o.ID).Scan(&o.CreatedAt)
}

// CreateDetailsBulkTx inserts the order's ticket lines in a single
// statement.  Seat numbers are left NULL; they are assigned at
// confirmation.  Passing an empty slice has no effect and returns nil.
func (r *OrderRepo) CreateDetailsBulkTx(ctx context.Context, tx *sql.Tx, details []model.OrderDetail) error {
	if len(details) == 0 {
		return nil
	}
	query := `INSERT INTO order_details (order_id, seq, passenger_id, fare_class, price_cents) VALUES `
	args := make([]interface{}, 0, len(details)*5)
	for i, d := range details {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, d.OrderID, d.Seq, d.PassengerID, string(d.FareClass), d.PriceCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetForUpdateTx loads an order and takes a row lock on it, serializing
// concurrent lifecycle transitions on the same order.  It returns
// sql.ErrNoRows when the order does not exist and ErrForbidden when it
// belongs to a different user.  Pass userID 0 to skip the ownership
// check (system-driven paths such as the expiry reclaimer).
func (r *OrderRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, orderID string, userID uint64) (*model.Order, error) {
	const q = `SELECT id, user_id, train_no, departure_date, origin, destination, status, total_price_cents, created_at, payment_deadline
	           FROM orders
	           WHERE id = ?
	           FOR UPDATE`
	var o model.Order
	var deadline sql.NullTime
	err := tx.QueryRowContext(ctx, q, orderID).Scan(
		&o.ID, &o.UserID, &o.TrainNo, &o.DepartureDate, &o.Origin, &o.Destination,
		&o.Status, &o.TotalPriceCents, &o.CreatedAt, &deadline,
	)
	if err != nil {
		return nil, err
	}
	if userID != 0 && o.UserID != userID {
		return nil, ErrForbidden
	}
	if deadline.Valid {
		t := deadline.Time
		o.PaymentDeadline = &t
	}
	return &o, nil
}

// DetailsTx returns the order's ticket lines in line order within the
// caller's transaction.
func (r *OrderRepo) DetailsTx(ctx context.Context, tx *sql.Tx, orderID string) ([]model.OrderDetail, error) {
	const q = `SELECT order_id, seq, passenger_id, fare_class, seat_no, price_cents
	           FROM order_details
	           WHERE order_id = ?
	           ORDER BY seq`
	rows, err := tx.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var details []model.OrderDetail
	for rows.Next() {
		var d model.OrderDetail
		var class string
		var seatNo sql.NullString
		if err := rows.Scan(&d.OrderID, &d.Seq, &d.PassengerID, &class, &seatNo, &d.PriceCents); err != nil {
			return nil, err
		}
		d.FareClass = model.FareClass(class)
		if seatNo.Valid {
			s := seatNo.String
			d.SeatNo = &s
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// SetStatusTx updates the order status and payment deadline.  A nil
// deadline clears the column.
func (r *OrderRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, orderID, status string, deadline *time.Time) error {
	const q = `UPDATE orders SET status = ?, payment_deadline = ? WHERE id = ?`
	var dl interface{}
	if deadline != nil {
		dl = deadline.UTC().Format("2006-01-02 15:04:05")
	}
	_, err := tx.ExecContext(ctx, q, status, dl, orderID)
	return err
}

// SetDetailSeatTx records the physical seat the allocator assigned to
// one ticket line.
func (r *OrderRepo) SetDetailSeatTx(ctx context.Context, tx *sql.Tx, orderID string, seq int, seatNo string) error {
	const q = `UPDATE order_details SET seat_no = ? WHERE order_id = ? AND seq = ?`
	_, err := tx.ExecContext(ctx, q, seatNo, orderID, seq)
	return err
}

// DeleteTx removes an order and its ticket lines.  Lines go first to
// satisfy the foreign key.
func (r *OrderRepo) DeleteTx(ctx context.Context, tx *sql.Tx, orderID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_details WHERE order_id = ?`, orderID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID)
	return err
}

// ListExpiredUnpaid returns the ids of confirmed orders whose payment
// deadline has passed.  Used by the expiry reclaimer.
func (r *OrderRepo) ListExpiredUnpaid(ctx context.Context, now time.Time) ([]string, error) {
	const q = `SELECT id FROM orders
	           WHERE status = 'confirmed_unpaid'
	           AND payment_deadline IS NOT NULL
	           AND payment_deadline < ?`
	return r.listIDs(ctx, q, now.UTC().Format("2006-01-02 15:04:05"))
}

// ListStalePending returns the ids of pending orders created before the
// cutoff, i.e. abandoned without confirmation.  They hold prices, not
// seats, but still need cleaning up.
func (r *OrderRepo) ListStalePending(ctx context.Context, cutoff time.Time) ([]string, error) {
	const q = `SELECT id FROM orders
	           WHERE status = 'pending'
	           AND created_at < ?`
	return r.listIDs(ctx, q, cutoff.UTC().Format("2006-01-02 15:04:05"))
}

func (r *OrderRepo) listIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// OrderLine is one ticket line of an order view, joined with the
// passenger's name for display.
type OrderLine struct {
	Seq           int     `json:"seq"`
	PassengerID   uint64  `json:"passenger_id"`
	PassengerName string  `json:"passenger_name"`
	FareClass     string  `json:"fare_class"`
	SeatNo        *string `json:"seat_no,omitempty"`
	PriceCents    int64   `json:"price_cents"`
}

// OrderView is an order with its ticket lines, as returned to the
// owning user.
type OrderView struct {
	ID              string      `json:"id"`
	TrainNo         string      `json:"train_no"`
	DepartureDate   string      `json:"departure_date"`
	Origin          string      `json:"origin"`
	Destination     string      `json:"destination"`
	Status          string      `json:"status"`
	TotalPriceCents int64       `json:"total_price_cents"`
	CreatedAt       time.Time   `json:"created_at"`
	PaymentDeadline *time.Time  `json:"payment_deadline,omitempty"`
	Lines           []OrderLine `json:"tickets"`
}

// GetByIDForUser returns a single order for the given user with its
// ticket lines.  Ownership is enforced in the query: an order belonging
// to another user surfaces as sql.ErrNoRows, the same as a missing one.
func (r *OrderRepo) GetByIDForUser(ctx context.Context, orderID string, userID uint64) (*OrderView, error) {
	const q = `SELECT id, train_no, departure_date, origin, destination, status, total_price_cents, created_at, payment_deadline
	           FROM orders
	           WHERE id = ? AND user_id = ?`
	var v OrderView
	var deadline sql.NullTime
	err := r.db.QueryRowContext(ctx, q, orderID, userID).Scan(
		&v.ID, &v.TrainNo, &v.DepartureDate, &v.Origin, &v.Destination,
		&v.Status, &v.TotalPriceCents, &v.CreatedAt, &deadline,
	)
	if err != nil {
		return nil, err
	}
	if deadline.Valid {
		t := deadline.Time
		v.PaymentDeadline = &t
	}
	v.Lines = []OrderLine{}
	const lineQ = `SELECT d.seq, d.passenger_id, p.name, d.fare_class, d.seat_no, d.price_cents
	               FROM order_details d
	               JOIN passengers p ON p.id = d.passenger_id
	               WHERE d.order_id = ?
	               ORDER BY d.seq`
	rows, err := r.db.QueryContext(ctx, lineQ, v.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l OrderLine
		var seatNo sql.NullString
		if err := rows.Scan(&l.Seq, &l.PassengerID, &l.PassengerName, &l.FareClass, &seatNo, &l.PriceCents); err != nil {
			return nil, err
		}
		if seatNo.Valid {
			s := seatNo.String
			l.SeatNo = &s
		}
		v.Lines = append(v.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByUser returns all orders of a user, newest first, each with its
// ticket lines.  Lines for all orders are fetched in one query to avoid
// one round trip per order.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]OrderView, error) {
	const q = `SELECT id, train_no, departure_date, origin, destination, status, total_price_cents, created_at, payment_deadline
	           FROM orders
	           WHERE user_id = ?
	           ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	views := make([]OrderView, 0)
	index := make(map[string]int)
	for rows.Next() {
		var v OrderView
		var deadline sql.NullTime
		if err := rows.Scan(
			&v.ID, &v.TrainNo, &v.DepartureDate, &v.Origin, &v.Destination,
			&v.Status, &v.TotalPriceCents, &v.CreatedAt, &deadline,
		); err != nil {
			return nil, err
		}
		if deadline.Valid {
			t := deadline.Time
			v.PaymentDeadline = &t
		}
		v.Lines = []OrderLine{}
		index[v.ID] = len(views)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return views, nil
	}
	ids := make([]interface{}, 0, len(views))
	placeholders := make([]string, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
		placeholders = append(placeholders, "?")
	}
	lineQ := `SELECT d.order_id, d.seq, d.passenger_id, p.name, d.fare_class, d.seat_no, d.price_cents
	          FROM order_details d
	          JOIN passengers p ON p.id = d.passenger_id
	          WHERE d.order_id IN (` + strings.Join(placeholders, ",") + `)
	          ORDER BY d.order_id, d.seq`
	lrows, err := r.db.QueryContext(ctx, lineQ, ids...)
	if err != nil {
		return nil, err
	}
	defer lrows.Close()
	for lrows.Next() {
		var orderID string
		var l OrderLine
		var seatNo sql.NullString
		if err := lrows.Scan(&orderID, &l.Seq, &l.PassengerID, &l.PassengerName, &l.FareClass, &seatNo, &l.PriceCents); err != nil {
			return nil, err
		}
		if seatNo.Valid {
			s := seatNo.String
			l.SeatNo = &s
		}
		idx, ok := index[orderID]
		if !ok {
			continue
		}
		views[idx].Lines = append(views[idx].Lines, l)
	}
	if err := lrows.Err(); err != nil {
		return nil, err
	}
	return views, nil
}
