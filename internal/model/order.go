package model

import "time"

// Order status values.	 Lifecycle: pending -> confirmed_unpaid -> paid,
// with pending and confirmed_unpaid also able to end in cancellation
// (user-driven) or expiry (reclaimer-driven, same effect).
const (
	OrderPending		 = "pending"
	OrderConfirmedUnpaid = "confirmed_unpaid"
	OrderPaid			 = "paid"
)

// Order records a user's booking of one train interval for one or more
// passengers.	Seats are not held while the order is pending; the
// allocator assigns them at confirmation and the payment deadline
// starts the 20-minute hold.  TotalPriceCents is fixed at creation
// time and never re-derived.
//
// Fields:
//	ID				– orders.id (UUID v4)
//	UserID			– orders.user_id
//	TrainNo			– orders.train_no
//	DepartureDate	– orders.departure_date ("2006-01-02")
//	Origin			– orders.origin, boarding station
//	Destination		– orders.destination, alighting station
//	Status			– orders.status
//	TotalPriceCents – orders.total_price_cents
//	CreatedAt		– orders.created_at
//	PaymentDeadline – orders.payment_deadline (nullable until confirmed)
type Order struct {
	ID				string	   // orders.id
	UserID			uint64	   // orders.user_id
	TrainNo			string	   // orders.train_no
	DepartureDate	string	   // orders.departure_date
	Origin			string	   // orders.origin
	Destination		string	   // orders.destination
	Status			string	   // orders.status
	TotalPriceCents int64	   // orders.total_price_cents
	CreatedAt		time.Time  // orders.created_at
	PaymentDeadline *time.Time // orders.payment_deadline (nullable)
}

// OrderDetail is one ticket line of an order: one passenger travelling
// in one fare class.  SeatNo stays empty until the allocator assigns a
// physical seat at confirmation; creation reserves price and class only.
//
// Fields:
//	OrderID		– order_details.order_id
//	Seq			– order_details.seq, position of the line within the order
//	PassengerID – order_details.passenger_id
//	FareClass	– order_details.fare_class
//	SeatNo		– order_details.seat_no (nullable until confirmed)
//	PriceCents	– order_details.price_cents
type OrderDetail struct {
	OrderID		string	  // order_details.order_id
	Seq			int		  // order_details.seq
	PassengerID uint64	  // order_details.passenger_id
	FareClass	FareClass // order_details.fare_class
	SeatNo		*string	  // order_details.seat_no (nullable)
	PriceCents	int64	  // order_details.price_cents
}
