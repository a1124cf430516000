package model

// FareClass identifies a seat category with its own price and seat pool.
// The values map one-to-one onto the price columns of the train_fares
// table.  Classes never share physical seats.
type FareClass string

const (
	Business	FareClass = "business"
	FirstClass	FareClass = "first_class"
	SecondClass FareClass = "second_class"
	HardSeat	FareClass = "hard_seat"
	HardSleeper FareClass = "hard_sleeper"
	SoftSleeper FareClass = "soft_sleeper"
)

// FareClasses lists every sellable fare class in a stable order.  Code
// iterating over classes must use this slice rather than a map so that
// output ordering is deterministic.
var FareClasses = []FareClass{Business, FirstClass, SecondClass, HardSeat, HardSleeper, SoftSleeper}

// Valid reports whether fc is one of the known fare classes.
func (fc FareClass) Valid() bool {
	for _, c := range FareClasses {
		if c == fc {
			return true
		}
	}
	return false
}

// FareRow holds the fare and distance for one adjacent station pair of a
// train.  There is exactly one row per physical adjacent segment; a
// missing row means the segment is not sellable and fare computation
// over any interval containing it must fail.  Prices are in cents; a
// zero price means the class is not offered on the segment.
//
// Fields:
//	TrainNo		– train_fares.train_no
//	From		– train_fares.from_station
//	To			– train_fares.to_station
//	DistanceKm	– train_fares.distance_km
//	PriceCents	– one entry per fare class with a configured price
type FareRow struct {
	TrainNo	   string			   // train_fares.train_no
	From	   string			   // train_fares.from_station
	To		   string			   // train_fares.to_station
	DistanceKm int				   // train_fares.distance_km
	PriceCents map[FareClass]int64 // per-class price columns, zero omitted
}

// FareQuote is the aggregate of FareRow values over a resolved interval.
// Prices contains only classes priced on every segment of the interval;
// absence of a class signals "not sellable" between the endpoints.
type FareQuote struct {
	DistanceKm int				   `json:"distance_km"`
	Prices	   map[FareClass]int64 `json:"prices"`
}
