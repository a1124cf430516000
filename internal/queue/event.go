// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names for order lifecycle events.
const (
	OrderConfirmedQueue = "order.confirmed"
	OrderCancelledQueue = "order.cancelled"
)

// OrderConfirmedEvent is published when seats are successfully locked
// for an order.  It contains enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type OrderConfirmedEvent struct {
	OrderID			string	 `json:"order_id"`
	UserID			uint64	 `json:"user_id"`
	TrainNo			string	 `json:"train_no"`
	DepartureDate	string	 `json:"departure_date"`
	Origin			string	 `json:"origin"`
	Destination		string	 `json:"destination"`
	Seats			[]string `json:"seats"`
	TotalPriceCents int64	 `json:"total_price_cents"`
	PaymentDeadline string	 `json:"payment_deadline"`
	ConfirmedAt		string	 `json:"confirmed_at"`
}

// OrderCancelledEvent is published when an order's seats are released,
// whether by the user or by the expiry reclaimer.
type OrderCancelledEvent struct {
	OrderID		  string `json:"order_id"`
	UserID		  uint64 `json:"user_id"`
	TrainNo		  string `json:"train_no"`
	DepartureDate string `json:"departure_date"`
	Reason		  string `json:"reason"` // "cancelled" or "expired"
	CancelledAt	  string `json:"cancelled_at"`
}
