package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Status is the appointment lifecycle state. CANCELLED and COMPLETED are
// terminal; every non-terminal status holds its slot for conflict purposes.
type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusConfirmed   Status = "CONFIRMED"
	StatusRescheduled Status = "RESCHEDULED"
	StatusCheckedIn   Status = "CHECKED_IN"
	StatusCancelled   Status = "CANCELLED"
	StatusCompleted   Status = "COMPLETED"
)

var validStatuses = map[Status]bool{
	StatusScheduled:   true,
	StatusConfirmed:   true,
	StatusRescheduled: true,
	StatusCheckedIn:   true,
	StatusCancelled:   true,
	StatusCompleted:   true,
}

func (s Status) Valid() bool { return validStatuses[s] }

func (s Status) Terminal() bool { return s == StatusCancelled || s == StatusCompleted }

// HoldsSlot reports whether an appointment in this status blocks another
// booking for the same (doctor, date, time_slot).
func (s Status) HoldsSlot() bool { return s.Valid() && !s.Terminal() }

// transitions is the closed transition table. Terminal statuses have no
// outgoing edges. Check-in is only reachable from CONFIRMED; a rescheduled
// appointment must be confirmed again before check-in.
var transitions = map[Status]map[Status]bool{
	StatusScheduled: {
		StatusConfirmed:   true,
		StatusRescheduled: true,
		StatusCancelled:   true,
		StatusCompleted:   true,
	},
	StatusConfirmed: {
		StatusCheckedIn:   true,
		StatusRescheduled: true,
		StatusCancelled:   true,
		StatusCompleted:   true,
	},
	StatusRescheduled: {
		StatusConfirmed:   true,
		StatusRescheduled: true,
		StatusCancelled:   true,
	},
	StatusCheckedIn: {
		StatusRescheduled: true,
		StatusCancelled:   true,
		StatusCompleted:   true,
	},
}

// CanTransition reports whether the table allows moving from one status to
// another.
func CanTransition(from, to Status) bool { return transitions[from][to] }

type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      time.Time `db:"date" json:"date"`
	TimeSlot  string    `db:"time_slot" json:"time_slot"`
	Status    Status    `db:"status" json:"status"`
	Reason    string    `db:"reason" json:"reason"`
	Notes     string    `db:"notes" json:"notes"`
	IsOnsite  bool      `db:"is_onsite" json:"is_onsite"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Slot identifies one bookable unit of a doctor's calendar.
type Slot struct {
	DoctorID uuid.UUID
	Date     time.Time
	TimeSlot string
}

func (a *Appointment) Slot() Slot {
	return Slot{DoctorID: a.DoctorID, Date: a.Date, TimeSlot: a.TimeSlot}
}
