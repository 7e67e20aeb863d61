// Package lifecycle holds the single status transition table consumed by
// every staff view. The legacy portal re-implemented these rules per screen
// with drifting spellings; this package is now the only authority.
package lifecycle

import (
	"errors"
	"strings"
)

// ErrInvalidTransition is returned when the requested target status is not
// reachable from the current one. Seeing it in production means a UI offered
// an action it should not have.
var ErrInvalidTransition = errors.New("lifecycle: transition not permitted from current status")

// ErrUnknownStatus is returned when a status string is not part of the
// machine's vocabulary.
var ErrUnknownStatus = errors.New("lifecycle: unknown status")

// Status is a lifecycle state in one of the two vocabularies.
type Status string

// Clinic appointment vocabulary.
const (
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Mobile service vocabulary.
const (
	MobilePending   Status = "pending"
	MobileConfirmed Status = "confirmed"
	MobileCompleted Status = "completed"
	MobileCancelled Status = "cancelled"
)

// Machine is an immutable transition table. States with no outgoing edges
// are terminal.
type Machine struct {
	name        string
	transitions map[Status][]Status
}

// Clinic returns the clinic-appointment machine:
// Scheduled -> Completed, Scheduled -> Cancelled. Both targets terminal.
func Clinic() Machine {
	return Machine{
		name: "clinic",
		transitions: map[Status][]Status{
			StatusScheduled: {StatusCompleted, StatusCancelled},
			StatusCompleted: {},
			StatusCancelled: {},
		},
	}
}

// Mobile returns the mobile-service machine:
// pending -> confirmed|cancelled, confirmed -> completed|cancelled.
func Mobile() Machine {
	return Machine{
		name: "mobile",
		transitions: map[Status][]Status{
			MobilePending:   {MobileConfirmed, MobileCancelled},
			MobileConfirmed: {MobileCompleted, MobileCancelled},
			MobileCompleted: {},
			MobileCancelled: {},
		},
	}
}

// Name identifies the machine in logs and audit rows.
func (m Machine) Name() string { return m.name }

// Known reports whether the status belongs to this machine's vocabulary.
func (m Machine) Known(s Status) bool {
	_, ok := m.transitions[s]
	return ok
}

// Terminal reports whether no further transition is permitted from s.
func (m Machine) Terminal(s Status) bool {
	next, ok := m.transitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether from -> to is a legal edge.
func (m Machine) CanTransition(from, to Status) bool {
	for _, next := range m.transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to and returns the target status.
func (m Machine) Transition(from, to Status) (Status, error) {
	if !m.Known(from) || !m.Known(to) {
		return "", ErrUnknownStatus
	}
	if !m.CanTransition(from, to) {
		return "", ErrInvalidTransition
	}
	return to, nil
}

// Parse normalizes a status string into this machine's vocabulary.
// Input is matched case-insensitively because the retired role-specific
// screens disagreed on capitalization ("complete" vs "Completed" vs
// "completed"); storage is always canonical.
func (m Machine) Parse(raw string) (Status, error) {
	needle := strings.ToLower(strings.TrimSpace(raw))
	for s := range m.transitions {
		if strings.ToLower(string(s)) == needle {
			return s, nil
		}
	}
	// Legacy alias observed in one staff screen.
	if needle == "complete" {
		for s := range m.transitions {
			if strings.ToLower(string(s)) == "completed" {
				return s, nil
			}
		}
	}
	return "", ErrUnknownStatus
}
