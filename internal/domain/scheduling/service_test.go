package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ehs/ehs/internal/domain/audit"
	"github.com/ehs/ehs/internal/domain/identity"
	"github.com/ehs/ehs/internal/platform/notification"
)

type mockRepo struct {
	appointments map[uuid.UUID]*Appointment
	createErr    error

	purgeCutoff   time.Time
	reminderDate  time.Time
	scheduleStart time.Time
	scheduleEnd   time.Time
}

func newMockRepo() *mockRepo {
	return &mockRepo{appointments: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(ctx context.Context, a *Appointment) error {
	if m.createErr != nil {
		return m.createErr
	}
	a.ID = uuid.New()
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) Update(ctx context.Context, a *Appointment) error {
	if _, ok := m.appointments[a.ID]; !ok {
		return ErrNotFound
	}
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *mockRepo) FindBySlot(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string, excludeID uuid.UUID) (*Appointment, error) {
	for _, a := range m.appointments {
		if a.ID == excludeID {
			continue
		}
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.TimeSlot == timeSlot && a.Status.HoldsSlot() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	var items []*Appointment
	for _, a := range m.appointments {
		items = append(items, a)
	}
	return items, len(items), nil
}

func (m *mockRepo) ListByDoctorRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*Appointment, error) {
	m.scheduleStart, m.scheduleEnd = start, end
	var items []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && !a.Date.Before(start) && !a.Date.After(end) {
			items = append(items, a)
		}
	}
	return items, nil
}

func (m *mockRepo) ListByStatusOnDate(ctx context.Context, status Status, date time.Time) ([]*Appointment, error) {
	m.reminderDate = date
	var items []*Appointment
	for _, a := range m.appointments {
		if a.Status == status && a.Date.Equal(date) {
			items = append(items, a)
		}
	}
	return items, nil
}

func (m *mockRepo) DeleteCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.purgeCutoff = cutoff
	var n int64
	for id, a := range m.appointments {
		if a.Status == StatusCancelled && a.CreatedAt.Before(cutoff) {
			delete(m.appointments, id)
			n++
		}
	}
	return n, nil
}

type mockAuthz struct {
	roles map[uuid.UUID]string
	perms map[uuid.UUID][]string
}

func (m *mockAuthz) RoleOf(ctx context.Context, userID uuid.UUID) (string, error) {
	role, ok := m.roles[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	return role, nil
}

func (m *mockAuthz) HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	actual, ok := m.roles[userID]
	if !ok {
		return false, errors.New("user not found")
	}
	return actual == identity.RoleAdmin || actual == role, nil
}

func (m *mockAuthz) HasPermission(ctx context.Context, userID uuid.UUID, perm string) (bool, error) {
	if m.roles[userID] == identity.RoleAdmin {
		return true, nil
	}
	for _, p := range m.perms[userID] {
		if p == perm {
			return true, nil
		}
	}
	return false, nil
}

type mockDirectory struct {
	owners map[uuid.UUID]uuid.UUID // patientID -> userID
}

func (m *mockDirectory) UserIDForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	owner, ok := m.owners[patientID]
	if !ok {
		return uuid.Nil, errors.New("patient not found")
	}
	return owner, nil
}

type mockNotifier struct {
	counts map[notification.Kind]int
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{counts: make(map[notification.Kind]int)}
}

func (m *mockNotifier) Notify(kind notification.Kind, appt *Appointment) {
	m.counts[kind]++
}

type captureSink struct {
	entries []audit.Entry
}

func (s *captureSink) Record(ctx context.Context, e audit.Entry) {
	s.entries = append(s.entries, e)
}

type fixture struct {
	svc      *Service
	repo     *mockRepo
	notifier *mockNotifier
	sink     *captureSink

	doctor       uuid.UUID
	doctorUser   uuid.UUID // second doctor used as acting user
	patient      uuid.UUID // acting patient user
	receptionist uuid.UUID
	staff        uuid.UUID
	admin        uuid.UUID
	patientRec   uuid.UUID // patient record owned by h.patient
	doctorRec    uuid.UUID // patient record owned by h.doctor
	today        time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:         newMockRepo(),
		notifier:     newMockNotifier(),
		sink:         &captureSink{},
		doctor:       uuid.New(),
		doctorUser:   uuid.New(),
		patient:      uuid.New(),
		receptionist: uuid.New(),
		staff:        uuid.New(),
		admin:        uuid.New(),
		patientRec:   uuid.New(),
		doctorRec:    uuid.New(),
		today:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	authz := &mockAuthz{
		roles: map[uuid.UUID]string{
			f.doctor:       identity.RoleDoctor,
			f.doctorUser:   identity.RoleDoctor,
			f.patient:      identity.RolePatient,
			f.receptionist: identity.RoleReceptionist,
			f.staff:        identity.RoleStaff,
			f.admin:        identity.RoleAdmin,
		},
		perms: map[uuid.UUID][]string{},
	}
	dir := &mockDirectory{owners: map[uuid.UUID]uuid.UUID{
		f.patientRec: f.patient,
		f.doctorRec:  f.doctor,
	}}
	f.svc = NewService(f.repo, authz, dir, f.notifier, f.sink)
	f.svc.now = func() time.Time { return f.today.Add(9 * time.Hour) }
	return f
}

func (f *fixture) appointment(daysAhead int, slot string) *Appointment {
	return &Appointment{
		PatientID: f.patientRec,
		DoctorID:  f.doctor,
		Date:      f.today.AddDate(0, 0, daysAhead),
		TimeSlot:  slot,
		Reason:    "checkup",
	}
}

func (f *fixture) create(t *testing.T, daysAhead int, slot string) *Appointment {
	t.Helper()
	a := f.appointment(daysAhead, slot)
	if err := f.svc.Create(context.Background(), a, f.patient); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	return a
}

func TestCreate_Online(t *testing.T) {
	f := newFixture()

	a := f.create(t, 1, "10:00")

	if a.Status != StatusScheduled {
		t.Errorf("expected status %s, got %s", StatusScheduled, a.Status)
	}
	if a.ID == uuid.Nil {
		t.Error("expected appointment to receive an id")
	}
	if f.notifier.counts[notification.KindCreated] != 1 {
		t.Errorf("expected 1 created notification, got %d", f.notifier.counts[notification.KindCreated])
	}
	if len(f.sink.entries) != 1 || f.sink.entries[0].Action != audit.ActionAppointmentCreate {
		t.Error("expected an APPOINTMENT_CREATE audit entry")
	}
}

func TestCreate_SameDayAllowed(t *testing.T) {
	f := newFixture()
	a := f.appointment(0, "10:00")
	if err := f.svc.Create(context.Background(), a, f.patient); err != nil {
		t.Fatalf("Create() on today's date error: %v", err)
	}
}

func TestCreate_PastDate(t *testing.T) {
	f := newFixture()
	a := f.appointment(-1, "10:00")
	if err := f.svc.Create(context.Background(), a, f.patient); !errors.Is(err, ErrPastDate) {
		t.Errorf("expected ErrPastDate, got %v", err)
	}
	if len(f.repo.appointments) != 0 {
		t.Error("expected no mutation on past-date failure")
	}
}

func TestCreate_SlotConflict(t *testing.T) {
	f := newFixture()
	f.create(t, 1, "10:00")

	b := f.appointment(1, "10:00")
	if err := f.svc.Create(context.Background(), b, f.patient); !errors.Is(err, ErrSlotConflict) {
		t.Errorf("expected ErrSlotConflict, got %v", err)
	}
	if len(f.repo.appointments) != 1 {
		t.Errorf("expected 1 stored appointment, got %d", len(f.repo.appointments))
	}
	if f.notifier.counts[notification.KindCreated] != 1 {
		t.Error("expected no notification for the losing booking")
	}
}

func TestCreate_ConstraintBackstop(t *testing.T) {
	// Two concurrent bookings can both pass the point lookup; the losing
	// insert gets the unique violation, already translated by the repo.
	f := newFixture()
	f.repo.createErr = ErrSlotConflict

	a := f.appointment(1, "10:00")
	if err := f.svc.Create(context.Background(), a, f.patient); !errors.Is(err, ErrSlotConflict) {
		t.Errorf("expected ErrSlotConflict from constraint backstop, got %v", err)
	}
}

func TestCreate_FreedSlotRebookable(t *testing.T) {
	f := newFixture()
	a := f.create(t, 1, "10:00")
	if _, err := f.svc.Cancel(context.Background(), a.ID, f.patient); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	b := f.appointment(1, "10:00")
	if err := f.svc.Create(context.Background(), b, f.patient); err != nil {
		t.Errorf("expected cancelled slot to be rebookable, got %v", err)
	}
}

func TestCreate_Onsite(t *testing.T) {
	f := newFixture()

	a := f.appointment(1, "10:00")
	a.IsOnsite = true
	if err := f.svc.Create(context.Background(), a, f.patient); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for patient onsite booking, got %v", err)
	}

	b := f.appointment(1, "10:00")
	b.IsOnsite = true
	if err := f.svc.Create(context.Background(), b, f.receptionist); err != nil {
		t.Fatalf("Create() onsite by receptionist error: %v", err)
	}
	if b.Status != StatusConfirmed {
		t.Errorf("expected onsite booking to start %s, got %s", StatusConfirmed, b.Status)
	}

	// Admins pass every role gate.
	c := f.appointment(1, "11:00")
	c.IsOnsite = true
	if err := f.svc.Create(context.Background(), c, f.admin); err != nil {
		t.Errorf("Create() onsite by admin error: %v", err)
	}
}

func TestCreate_DoctorSelfBook(t *testing.T) {
	f := newFixture()

	a := f.appointment(1, "10:00")
	a.PatientID = f.doctorRec
	a.DoctorID = f.doctorUser
	if err := f.svc.Create(context.Background(), a, f.doctor); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for doctor self-booking, got %v", err)
	}

	// Booking for someone else's record is fine.
	b := f.appointment(1, "10:00")
	b.DoctorID = f.doctorUser
	if err := f.svc.Create(context.Background(), b, f.doctor); err != nil {
		t.Errorf("Create() by doctor for another patient error: %v", err)
	}
}

func TestCreate_DoctorIDMustBeDoctor(t *testing.T) {
	f := newFixture()
	a := f.appointment(1, "10:00")
	a.DoctorID = f.receptionist
	if err := f.svc.Create(context.Background(), a, f.patient); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestCreate_FieldValidation(t *testing.T) {
	f := newFixture()

	cases := []struct {
		name   string
		mutate func(a *Appointment)
	}{
		{"missing patient", func(a *Appointment) { a.PatientID = uuid.Nil }},
		{"missing doctor", func(a *Appointment) { a.DoctorID = uuid.Nil }},
		{"missing date", func(a *Appointment) { a.Date = time.Time{} }},
		{"bad slot", func(a *Appointment) { a.TimeSlot = "10am" }},
		{"out of range slot", func(a *Appointment) { a.TimeSlot = "25:00" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := f.appointment(1, "10:00")
			tc.mutate(a)
			if err := f.svc.Create(context.Background(), a, f.patient); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture()
	a := f.create(t, 1, "10:00")

	newDate := f.today.AddDate(0, 0, 2)
	got, err := f.svc.Reschedule(context.Background(), a.ID, newDate, "11:00", f.patient)
	if err != nil {
		t.Fatalf("Reschedule() error: %v", err)
	}
	if got.Status != StatusRescheduled {
		t.Errorf("expected status %s, got %s", StatusRescheduled, got.Status)
	}
	if !got.Date.Equal(newDate) || got.TimeSlot != "11:00" {
		t.Errorf("expected new slot applied, got %s %s", got.Date, got.TimeSlot)
	}
	if f.notifier.counts[notification.KindRescheduled] != 1 {
		t.Errorf("expected 1 rescheduled notification, got %d", f.notifier.counts[notification.KindRescheduled])
	}
}

func TestReschedule_OwnSlotExcluded(t *testing.T) {
	f := newFixture()
	a := f.create(t, 1, "10:00")

	// Moving an appointment onto its own current slot must succeed.
	got, err := f.svc.Reschedule(context.Background(), a.ID, a.Date, a.TimeSlot, f.patient)
	if err != nil {
		t.Fatalf("Reschedule() onto own slot error: %v", err)
	}
	if got.Status != StatusRescheduled {
		t.Errorf("expected status %s, got %s", StatusRescheduled, got.Status)
	}
}

func TestReschedule_Conflict(t *testing.T) {
	f := newFixture()
	a := f.create(t, 1, "10:00")
	f.create(t, 2, "11:00")

	_, err := f.svc.Reschedule(context.Background(), a.ID, f.today.AddDate(0, 0, 2), "11:00", f.patient)
	if !errors.Is(err, ErrSlotConflict) {
		t.Errorf("expected ErrSlotConflict, got %v", err)
	}
}

func TestReschedule_Invalid(t *testing.T) {
	f := newFixture()
	a := f.create(t, 1, "10:00")
	if _, err := f.svc.Cancel(context.Background(), a.ID, f.patient); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	if _, err := f.svc.Reschedule(context.Background(), a.ID, f.today.AddDate(0, 0, 2), "11:00", f.patient); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for cancelled appointment, got %v", err)
	}

	b := f.create(t, 1, "12:00")
	if _, err := f.svc.Reschedule(context.Background(), b.ID, f.today.AddDate(0, 0, -3), "11:00", f.patient); !errors.Is(err, ErrPastDate) {
		t.Errorf("expected ErrPastDate, got %v", err)
	}

	if _, err := f.svc.Reschedule(context.Background(), uuid.New(), f.today.AddDate(0, 0, 2), "11:00", f.patient); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCancel_Idempotent(t *testing.T) {
	f := newFixture()
	a := f.create(t, 1, "10:00")

	first, err := f.svc.Cancel(context.Background(), a.ID, f.patient)
	if err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if first.Status != StatusCancelled {
		t.Errorf("expected status %s, got %s", StatusCancelled, first.Status)
	}

	second, err := f.svc.Cancel(context.Background(), a.ID, f.patient)
	if err != nil {
		t.Fatalf("second Cancel() error: %v", err)
	}
	if second.Status != StatusCancelled {
		t.Errorf("expected status to remain %s, got %s", StatusCancelled, second.Status)
	}
	if f.notifier.counts[notification.KindCancelled] != 1 {
		t.Errorf("expected exactly 1 cancelled notification, got %d", f.notifier.counts[notification.KindCancelled])
	}
}

func TestCancel_Completed(t *testing.T) {
	f := newFixture()
	a := f.create(t, 1, "10:00")
	if _, err := f.svc.Complete(context.Background(), a.ID); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if _, err := f.svc.Cancel(context.Background(), a.ID, f.patient); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for completed appointment, got %v", err)
	}
}

func TestCheckIn(t *testing.T) {
	f := newFixture()
	a := f.appointment(1, "10:00")
	a.IsOnsite = true
	if err := f.svc.Create(context.Background(), a, f.receptionist); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := f.svc.CheckIn(context.Background(), a.ID, f.doctor)
	if err != nil {
		t.Fatalf("CheckIn() error: %v", err)
	}
	if got.Status != StatusCheckedIn {
		t.Errorf("expected status %s, got %s", StatusCheckedIn, got.Status)
	}
}

func TestCheckIn_RequiresConfirmed(t *testing.T) {
	f := newFixture()
	a := f.create(t, 1, "10:00") // SCHEDULED

	_, err := f.svc.CheckIn(context.Background(), a.ID, f.doctor)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if want := "only confirmed appointments can be checked in"; !errors.Is(err, ErrInvalidState) || err.Error() != ErrInvalidState.Error()+": "+want {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestCheckIn_DoctorOnly(t *testing.T) {
	f := newFixture()
	a := f.appointment(1, "10:00")
	a.IsOnsite = true
	if err := f.svc.Create(context.Background(), a, f.receptionist); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := f.svc.CheckIn(context.Background(), a.ID, f.patient); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for patient actor, got %v", err)
	}
	if _, err := f.svc.CheckIn(context.Background(), a.ID, f.receptionist); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for receptionist actor, got %v", err)
	}
	// Admin passes the role gate.
	if _, err := f.svc.CheckIn(context.Background(), a.ID, f.admin); err != nil {
		t.Errorf("CheckIn() by admin error: %v", err)
	}
}

func TestComplete(t *testing.T) {
	f := newFixture()

	for _, status := range []Status{StatusScheduled, StatusConfirmed, StatusCheckedIn} {
		a := f.create(t, 1, "10:00")
		stored := f.repo.appointments[a.ID]
		stored.Status = status

		got, err := f.svc.Complete(context.Background(), a.ID)
		if err != nil {
			t.Errorf("Complete() from %s error: %v", status, err)
			continue
		}
		if got.Status != StatusCompleted {
			t.Errorf("expected %s, got %s", StatusCompleted, got.Status)
		}
		delete(f.repo.appointments, a.ID)
	}
}

func TestComplete_Invalid(t *testing.T) {
	f := newFixture()
	a := f.create(t, 1, "10:00")
	if _, err := f.svc.Cancel(context.Background(), a.ID, f.patient); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	if _, err := f.svc.Complete(context.Background(), a.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture()
	a := f.create(t, 1, "10:00")

	got, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusConfirmed, f.receptionist)
	if err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}
	if got.Status != StatusConfirmed {
		t.Errorf("expected %s, got %s", StatusConfirmed, got.Status)
	}
}

func TestUpdateStatus_IllegalTransition(t *testing.T) {
	f := newFixture()
	a := f.create(t, 1, "10:00")

	if _, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusCheckedIn, f.receptionist); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for SCHEDULED -> CHECKED_IN, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), a.ID, "ARCHIVED", f.receptionist); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown status, got %v", err)
	}
}

func TestUpdateStatus_Permission(t *testing.T) {
	f := newFixture()
	a := f.create(t, 1, "10:00")

	// Plain staff are denied without the permission.
	if _, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusConfirmed, f.staff); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for staff, got %v", err)
	}

	// Granting can_manage_appointments through a group opens the gate.
	authz := f.svc.authz.(*mockAuthz)
	authz.perms[f.staff] = []string{identity.PermManageAppointments}
	if _, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusConfirmed, f.staff); err != nil {
		t.Errorf("UpdateStatus() with permission error: %v", err)
	}
}

func TestUpdateStatus_CancelRoute(t *testing.T) {
	f := newFixture()
	a := f.create(t, 1, "10:00")

	got, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusCancelled, f.receptionist)
	if err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("expected %s, got %s", StatusCancelled, got.Status)
	}
	if f.notifier.counts[notification.KindCancelled] != 1 {
		t.Errorf("expected 1 cancelled notification, got %d", f.notifier.counts[notification.KindCancelled])
	}
}

func TestDoctorSchedule_Defaults(t *testing.T) {
	f := newFixture()
	f.create(t, 1, "10:00")
	f.create(t, 3, "11:00")

	items, err := f.svc.DoctorSchedule(context.Background(), f.doctor, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("DoctorSchedule() error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 appointments, got %d", len(items))
	}
	if !f.repo.scheduleStart.Equal(f.today) {
		t.Errorf("expected default start %s, got %s", f.today, f.repo.scheduleStart)
	}
	if !f.repo.scheduleEnd.Equal(f.today.AddDate(0, 0, 7)) {
		t.Errorf("expected default end +7d, got %s", f.repo.scheduleEnd)
	}
}

func TestDoctorSchedule_BadRange(t *testing.T) {
	f := newFixture()
	_, err := f.svc.DoctorSchedule(context.Background(), f.doctor, f.today.AddDate(0, 0, 5), f.today)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestPurgeCancelled(t *testing.T) {
	f := newFixture()

	old := f.create(t, 1, "10:00")
	if _, err := f.svc.Cancel(context.Background(), old.ID, f.patient); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	f.repo.appointments[old.ID].CreatedAt = f.today.AddDate(0, 0, -45)

	recent := f.create(t, 1, "11:00")
	if _, err := f.svc.Cancel(context.Background(), recent.ID, f.patient); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	f.repo.appointments[recent.ID].CreatedAt = f.today.AddDate(0, 0, -5)

	n, err := f.svc.PurgeCancelled(context.Background(), 30*24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeCancelled() error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged appointment, got %d", n)
	}
	if _, ok := f.repo.appointments[recent.ID]; !ok {
		t.Error("expected recent cancellation to survive the purge")
	}

	// Re-running finds nothing left to purge.
	n, err = f.svc.PurgeCancelled(context.Background(), 30*24*time.Hour)
	if err != nil || n != 0 {
		t.Errorf("expected idempotent re-run, got n=%d err=%v", n, err)
	}
}

func TestSendReminders(t *testing.T) {
	f := newFixture()

	tomorrow := f.appointment(1, "10:00")
	tomorrow.IsOnsite = true
	if err := f.svc.Create(context.Background(), tomorrow, f.receptionist); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	// Tomorrow but not confirmed: no reminder.
	f.create(t, 1, "11:00")
	// Confirmed but later in the week: no reminder.
	later := f.appointment(3, "10:00")
	later.IsOnsite = true
	if err := f.svc.Create(context.Background(), later, f.receptionist); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	n, err := f.svc.SendReminders(context.Background())
	if err != nil {
		t.Fatalf("SendReminders() error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 reminder, got %d", n)
	}
	if f.notifier.counts[notification.KindReminder] != 1 {
		t.Errorf("expected 1 reminder notification, got %d", f.notifier.counts[notification.KindReminder])
	}
	if !f.repo.reminderDate.Equal(f.today.AddDate(0, 0, 1)) {
		t.Errorf("expected reminder query for tomorrow, got %s", f.repo.reminderDate)
	}
}

// Full lifecycle walkthrough: book, lose a conflicting booking, reschedule,
// cancel once.
func TestLifecycleScenario(t *testing.T) {
	f := newFixture()

	a := f.appointment(0, "10:00")
	if err := f.svc.Create(context.Background(), a, f.patient); err != nil {
		t.Fatalf("create A: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Fatalf("A status = %s", a.Status)
	}

	b := f.appointment(0, "10:00")
	if err := f.svc.Create(context.Background(), b, f.patient); !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("create B: expected ErrSlotConflict, got %v", err)
	}

	moved, err := f.svc.Reschedule(context.Background(), a.ID, f.today.AddDate(0, 0, 1), "11:00", f.patient)
	if err != nil {
		t.Fatalf("reschedule A: %v", err)
	}
	if moved.Status != StatusRescheduled || moved.TimeSlot != "11:00" {
		t.Fatalf("A after reschedule: %s %s", moved.Status, moved.TimeSlot)
	}

	cancelled, err := f.svc.Cancel(context.Background(), a.ID, f.patient)
	if err != nil {
		t.Fatalf("cancel A: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("A after cancel: %s", cancelled.Status)
	}
	if f.notifier.counts[notification.KindCancelled] != 1 {
		t.Errorf("expected exactly 1 cancelled notification, got %d", f.notifier.counts[notification.KindCancelled])
	}
}
