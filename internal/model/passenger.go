package model

// Passenger is a person a user may buy tickets for.  Passenger CRUD
// lives outside this core; lookups here only verify existence and
// ownership before an order line is created.
//
// Fields:
//	ID	   – passengers.id
//	UserID – passengers.user_id, owner of the passenger record
//	Name   – passengers.name
type Passenger struct {
	ID	   uint64 // passengers.id
	UserID uint64 // passengers.user_id
	Name   string // passengers.name
}
