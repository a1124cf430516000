package model

import "time"

// Seat status values.	A seat segment row is either free for sale or
// booked by exactly one order.
const (
	SeatAvailable = "available"
	SeatBooked	  = "booked"
)

// SeatStatus is one row of the seat ledger: the occupancy state of one
// physical seat on one adjacent station pair for one departure date.
// For a given (train, date, class, seat) the set of segment rows is
// fixed and mirrors the full stop sequence; a seat is free for an
// interval only when every one of its rows covering that interval is
// available.  Rows are mutated exclusively by the seat allocator.
//
// Fields:
//	TrainNo		  – seat_status.train_no
//	DepartureDate – seat_status.departure_date ("2006-01-02")
//	FareClass	  – seat_status.fare_class
//	SeatNo		  – seat_status.seat_no, e.g. "03A"
//	From		  – seat_status.from_station
//	To			  – seat_status.to_station
//	Status		  – seat_status.status (available|booked)
//	HolderID	  – seat_status.holder_id, order holding the seat (nullable)
//	HeldAt		  – seat_status.held_at, when the hold was taken (nullable)
type SeatStatus struct {
	TrainNo		  string	 // seat_status.train_no
	DepartureDate string	 // seat_status.departure_date
	FareClass	  FareClass	 // seat_status.fare_class
	SeatNo		  string	 // seat_status.seat_no
	From		  string	 // seat_status.from_station
	To			  string	 // seat_status.to_station
	Status		  string	 // seat_status.status
	HolderID	  *string	 // seat_status.holder_id (nullable)
	HeldAt		  *time.Time // seat_status.held_at (nullable)
}
