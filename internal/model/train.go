package model

// Train holds basic metadata for one train number.	 This core treats
// trains as read-only reference data looked up during order creation.
//
// Fields:
//	TrainNo		 – trains.train_no, e.g. "G27"
//	StartStation – trains.start_station, origin of the full route
//	EndStation	 – trains.end_station, terminus of the full route
//	DepartTime	 – trains.depart_time ("HH:MM" at the origin station)
//	ArriveTime	 – trains.arrive_time ("HH:MM" at the terminus)
//	Direct		 – trains.direct, whether the train runs non-stop
type Train struct {
	TrainNo		 string // trains.train_no
	StartStation string // trains.start_station
	EndStation	 string // trains.end_station
	DepartTime	 string // trains.depart_time
	ArriveTime	 string // trains.arrive_time
	Direct		 bool	// trains.direct
}
