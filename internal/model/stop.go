package model

// Stop is one scheduled halt on a train's route.  Stops are immutable
// reference data: once a train is scheduled its stop sequence never
// changes.	 Seq is strictly increasing along the route and unique per
// train.
//
// Fields:
//	TrainNo	   – train_stops.train_no
//	Seq		   – train_stops.seq, position of the stop on the route
//	Station	   – train_stops.station
//	ArriveTime – train_stops.arrive_time ("HH:MM", empty at the origin)
//	DepartTime – train_stops.depart_time ("HH:MM", empty at the terminus)
type Stop struct {
	TrainNo	   string // train_stops.train_no
	Seq		   int	  // train_stops.seq
	Station	   string // train_stops.station
	ArriveTime string // train_stops.arrive_time
	DepartTime string // train_stops.depart_time
}

// Segment is an adjacent station pair on a train's route.	Segments are
// derived from the stop sequence, never stored.  A booked interval
// decomposes into an ordered list of segments in travel order.
type Segment struct {
	From string `json:"from"` // departure station of the adjacent pair
	To	 string `json:"to"`	  // arrival station of the adjacent pair
}
