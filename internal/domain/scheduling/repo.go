package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error

	// FindBySlot returns the slot-holding appointment occupying the given
	// (doctor, date, time_slot), excluding excludeID when non-nil. ErrNotFound
	// means the slot is free.
	FindBySlot(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string, excludeID uuid.UUID) (*Appointment, error)

	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error)
	ListByDoctorRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*Appointment, error)
	ListByStatusOnDate(ctx context.Context, status Status, date time.Time) ([]*Appointment, error)
	DeleteCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
