// Package authz holds the per-operation access checks. Guards are pure: callers
// load the ownership facts (internal user ids, involvement) and the guard
// decides. External credential subjects never reach this package.
package authz

import (
	"github.com/mimoreirac/pi-tercero/internal/apperr"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

// Decision is the outcome of a guard.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil when allowed, otherwise an error wrapping apperr.ErrForbidden.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.Forbidden(d.Reason)
}

var allow = Decision{Allowed: true}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

func same(a, b types.ID) bool {
	return a != "" && a == b
}

// OwnsTrip allows the trip's driver to update or delete it.
func OwnsTrip(caller, driverID types.ID) Decision {
	if same(caller, driverID) {
		return allow
	}
	return deny("only the trip's driver may modify it")
}

// DecidesReservation allows the driver of the reserved trip to confirm or reject.
func DecidesReservation(caller, driverID types.ID) Decision {
	if same(caller, driverID) {
		return allow
	}
	return deny("only the trip's driver may decide on its reservations")
}

// OwnsReservation allows the passenger to cancel their own reservation.
func OwnsReservation(caller, passengerID types.ID) Decision {
	if same(caller, passengerID) {
		return allow
	}
	return deny("only the passenger may cancel this reservation")
}

// CanViewReservation allows either side of a reservation to read it.
func CanViewReservation(caller, passengerID, driverID types.ID) Decision {
	if same(caller, passengerID) || same(caller, driverID) {
		return allow
	}
	return deny("reservation belongs to another user")
}

// InvolvedInTrip allows the driver, or a passenger holding a confirmed reservation.
func InvolvedInTrip(caller, driverID types.ID, hasConfirmed bool) Decision {
	if same(caller, driverID) || (caller != "" && hasConfirmed) {
		return allow
	}
	return deny("only the driver or a confirmed passenger may report on this trip")
}

// OwnsIncident allows the reporter to edit or remove an incident.
func OwnsIncident(caller, reporterID types.ID) Decision {
	if same(caller, reporterID) {
		return allow
	}
	return deny("only the reporter may modify this incident")
}
