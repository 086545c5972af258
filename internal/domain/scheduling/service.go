package scheduling

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/ehs/ehs/internal/domain/audit"
	"github.com/ehs/ehs/internal/domain/identity"
	"github.com/ehs/ehs/internal/platform/notification"
)

// Authorizer answers role and permission questions about the acting user.
// Implemented by identity.Service.
type Authorizer interface {
	RoleOf(ctx context.Context, userID uuid.UUID) (string, error)
	HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error)
	HasPermission(ctx context.Context, userID uuid.UUID, perm string) (bool, error)
}

// PatientDirectory resolves patient records without coupling the engine to
// the patient package.
type PatientDirectory interface {
	UserIDForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error)
}

// Notifier hands an appointment event to the asynchronous dispatcher.
// Delivery is fire-and-forget; the engine never waits on it.
type Notifier interface {
	Notify(kind notification.Kind, appt *Appointment)
}

// AuditSink receives audit entries from appointment mutations.
type AuditSink interface {
	Record(ctx context.Context, e audit.Entry)
}

var timeSlotPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type Service struct {
	repo     Repository
	authz    Authorizer
	patients PatientDirectory
	notifier Notifier
	audit    AuditSink

	now func() time.Time
}

func NewService(repo Repository, authz Authorizer, patients PatientDirectory, notifier Notifier, sink AuditSink) *Service {
	return &Service{
		repo:     repo,
		authz:    authz,
		patients: patients,
		notifier: notifier,
		audit:    sink,
		now:      time.Now,
	}
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) validateSlotFields(a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor_id is required", ErrValidation)
	}
	if a.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if !timeSlotPattern.MatchString(a.TimeSlot) {
		return fmt.Errorf("%w: time_slot must be HH:MM", ErrValidation)
	}
	return nil
}

// checkSlotFree runs the point lookup on (doctor, date, time_slot) over
// slot-holding statuses. The partial unique index remains the backstop for
// the race two concurrent bookings can still win past this check.
func (s *Service) checkSlotFree(ctx context.Context, doctorID uuid.UUID, date time.Time, slot string, excludeID uuid.UUID) error {
	_, err := s.repo.FindBySlot(ctx, doctorID, date, slot, excludeID)
	if err == nil {
		return ErrSlotConflict
	}
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Create books a new appointment. Online bookings start SCHEDULED; onsite
// bookings are reception-only and start CONFIRMED.
func (s *Service) Create(ctx context.Context, a *Appointment, actor uuid.UUID) error {
	if err := s.validateSlotFields(a); err != nil {
		return err
	}
	a.Date = dateOnly(a.Date)
	if a.Date.Before(dateOnly(s.now())) {
		return ErrPastDate
	}

	doctorRole, err := s.authz.RoleOf(ctx, a.DoctorID)
	if err != nil {
		return fmt.Errorf("%w: unknown doctor", ErrValidation)
	}
	if doctorRole != identity.RoleDoctor {
		return fmt.Errorf("%w: doctor_id must reference a doctor", ErrValidation)
	}

	if a.IsOnsite {
		ok, err := s.authz.HasRole(ctx, actor, identity.RoleReceptionist)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: only reception staff can create onsite bookings", ErrForbidden)
		}
	}

	actorRole, err := s.authz.RoleOf(ctx, actor)
	if err != nil {
		return err
	}
	if actorRole == identity.RoleDoctor {
		patientUser, err := s.patients.UserIDForPatient(ctx, a.PatientID)
		if err != nil {
			return fmt.Errorf("%w: unknown patient", ErrValidation)
		}
		if patientUser == actor {
			return fmt.Errorf("%w: doctors cannot book an appointment for their own patient record", ErrForbidden)
		}
	}

	if err := s.checkSlotFree(ctx, a.DoctorID, a.Date, a.TimeSlot, uuid.Nil); err != nil {
		return err
	}

	if a.IsOnsite {
		a.Status = StatusConfirmed
	} else {
		a.Status = StatusScheduled
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return err
	}

	s.notifier.Notify(notification.KindCreated, a)
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor,
		Action:       audit.ActionAppointmentCreate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		Details: map[string]interface{}{
			"doctor_id": a.DoctorID.String(),
			"date":      a.Date.Format("2006-01-02"),
			"time_slot": a.TimeSlot,
			"status":    string(a.Status),
		},
	})
	return nil
}

// Reschedule moves a non-terminal appointment to a new slot. The status is
// set to RESCHEDULED explicitly, not back to SCHEDULED.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, newSlot string, actor uuid.UUID) (*Appointment, error) {
	if !timeSlotPattern.MatchString(newSlot) {
		return nil, fmt.Errorf("%w: time_slot must be HH:MM", ErrValidation)
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(a.Status, StatusRescheduled) {
		return nil, fmt.Errorf("%w: cannot reschedule a %s appointment", ErrInvalidState, a.Status)
	}

	newDate = dateOnly(newDate)
	if newDate.Before(dateOnly(s.now())) {
		return nil, ErrPastDate
	}
	if err := s.checkSlotFree(ctx, a.DoctorID, newDate, newSlot, a.ID); err != nil {
		return nil, err
	}

	a.Date = newDate
	a.TimeSlot = newSlot
	a.Status = StatusRescheduled
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}

	s.notifier.Notify(notification.KindRescheduled, a)
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor,
		Action:       audit.ActionAppointmentUpdate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		Details: map[string]interface{}{
			"date":      a.Date.Format("2006-01-02"),
			"time_slot": a.TimeSlot,
		},
	})
	return a, nil
}

// Cancel marks the appointment CANCELLED. Cancelling an already cancelled
// appointment is an idempotent no-op and emits no second event.
func (s *Service) Cancel(ctx context.Context, id, actor uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCancelled {
		return a, nil
	}
	if !CanTransition(a.Status, StatusCancelled) {
		return nil, fmt.Errorf("%w: cannot cancel a %s appointment", ErrInvalidState, a.Status)
	}

	a.Status = StatusCancelled
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}

	s.notifier.Notify(notification.KindCancelled, a)
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor,
		Action:       audit.ActionAppointmentCancel,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
	})
	return a, nil
}

// CheckIn marks a confirmed appointment as arrived. Doctor-only.
func (s *Service) CheckIn(ctx context.Context, id, actor uuid.UUID) (*Appointment, error) {
	ok, err := s.authz.HasRole(ctx, actor, identity.RoleDoctor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: only doctors can check in appointments", ErrForbidden)
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: only confirmed appointments can be checked in", ErrInvalidState)
	}

	a.Status = StatusCheckedIn
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor,
		Action:       audit.ActionAppointmentUpdate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		Details:      map[string]interface{}{"status": string(StatusCheckedIn)},
	})
	return a, nil
}

// Complete closes out an appointment. Driven by billing once the invoice is
// fully paid; not exposed as a direct endpoint.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCompleted {
		return a, nil
	}
	if !CanTransition(a.Status, StatusCompleted) {
		return nil, fmt.Errorf("%w: cannot complete a %s appointment", ErrInvalidState, a.Status)
	}
	a.Status = StatusCompleted
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateStatus applies an arbitrary transition through the table. Staff need
// the can_manage_appointments permission; doctors, receptionists and admins
// pass on role alone.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to Status, actor uuid.UUID) (*Appointment, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}

	role, err := s.authz.RoleOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	allowed := role == identity.RoleAdmin || role == identity.RoleDoctor || role == identity.RoleReceptionist
	if !allowed {
		allowed, err = s.authz.HasPermission(ctx, actor, identity.PermManageAppointments)
		if err != nil {
			return nil, err
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: appointment management permission required", ErrForbidden)
	}

	if to == StatusCancelled {
		return s.Cancel(ctx, id, actor)
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == to {
		return a, nil
	}
	if !CanTransition(a.Status, to) {
		return nil, fmt.Errorf("%w: cannot move a %s appointment to %s", ErrInvalidState, a.Status, to)
	}

	a.Status = to
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor,
		Action:       audit.ActionAppointmentUpdate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		Details:      map[string]interface{}{"status": string(to)},
	})
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// DoctorSchedule lists a doctor's appointments in the date range, defaulting
// to the coming week.
func (s *Service) DoctorSchedule(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*Appointment, error) {
	if doctorID == uuid.Nil {
		return nil, fmt.Errorf("%w: doctor_id is required", ErrValidation)
	}
	if start.IsZero() {
		start = dateOnly(s.now())
	}
	if end.IsZero() {
		end = start.AddDate(0, 0, 7)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date before start_date", ErrValidation)
	}
	return s.repo.ListByDoctorRange(ctx, doctorID, dateOnly(start), dateOnly(end))
}

// PurgeCancelled deletes CANCELLED appointments created more than retention
// ago. Re-running is a no-op for already purged rows.
func (s *Service) PurgeCancelled(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteCancelledBefore(ctx, s.now().Add(-retention))
}

// SendReminders notifies every CONFIRMED appointment scheduled for tomorrow.
// Selection is by date, so a re-run targets the same set.
func (s *Service) SendReminders(ctx context.Context) (int, error) {
	tomorrow := dateOnly(s.now()).AddDate(0, 0, 1)
	appts, err := s.repo.ListByStatusOnDate(ctx, StatusConfirmed, tomorrow)
	if err != nil {
		return 0, err
	}
	for _, a := range appts {
		s.notifier.Notify(notification.KindReminder, a)
	}
	return len(appts), nil
}
