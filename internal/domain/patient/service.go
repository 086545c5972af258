package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehs/ehs/internal/domain/audit"
	"github.com/ehs/ehs/internal/domain/identity"
)

var ErrForbidden = errors.New("access to patient records denied")

// Authorizer answers role and permission questions about the acting user.
// Implemented by identity.Service.
type Authorizer interface {
	RoleOf(ctx context.Context, userID uuid.UUID) (string, error)
	HasPermission(ctx context.Context, userID uuid.UUID, perm string) (bool, error)
}

type AuditSink interface {
	Record(ctx context.Context, e audit.Entry)
}

type Service struct {
	repo  Repository
	authz Authorizer
	audit AuditSink
}

func NewService(repo Repository, authz Authorizer, sink AuditSink) *Service {
	return &Service{repo: repo, authz: authz, audit: sink}
}

func newMRN() string {
	return "MRN-" + strings.ToUpper(uuid.NewString()[:8])
}

func validateRecord(p *Patient) error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if p.BloodGroup != "" && !ValidBloodGroup(p.BloodGroup) {
		return fmt.Errorf("blood_group must match A/B/AB/O with +/-")
	}
	if p.EmergencyContact != "" && !ValidPhone(p.EmergencyContact) {
		return fmt.Errorf("emergency_contact must be a phone number")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := validateRecord(p); err != nil {
		return err
	}
	if p.PatientID == "" {
		p.PatientID = newMRN()
	}
	return s.repo.Create(ctx, p)
}

// canView: owners see their own record; doctors and admins see all; others
// need can_view_patient_records through a group.
func (s *Service) canView(ctx context.Context, actor uuid.UUID, p *Patient) (bool, error) {
	if p.UserID == actor {
		return true, nil
	}
	role, err := s.authz.RoleOf(ctx, actor)
	if err != nil {
		return false, err
	}
	if role == identity.RoleAdmin || role == identity.RoleDoctor {
		return true, nil
	}
	return s.authz.HasPermission(ctx, actor, identity.PermViewPatientRecords)
}

func (s *Service) canEdit(ctx context.Context, actor uuid.UUID) (bool, error) {
	role, err := s.authz.RoleOf(ctx, actor)
	if err != nil {
		return false, err
	}
	if role == identity.RoleAdmin || role == identity.RoleDoctor {
		return true, nil
	}
	return s.authz.HasPermission(ctx, actor, identity.PermEditPatientRecords)
}

// Get returns a record after a view-permission check, recording the access.
// An actor who may not view the record gets ErrNotFound, the same answer a
// missing id gives, so lookups cannot confirm that a record exists.
func (s *Service) Get(ctx context.Context, id, actor uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.canView(ctx, actor, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor,
		Action:       audit.ActionRecordView,
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
	})
	return p, nil
}

// GetByMRN looks a record up by its medical record number. The access rules
// match Get, including the ErrNotFound answer for denied lookups.
func (s *Service) GetByMRN(ctx context.Context, mrn string, actor uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByMRN(ctx, mrn)
	if err != nil {
		return nil, err
	}
	ok, err := s.canView(ctx, actor, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor,
		Action:       audit.ActionRecordView,
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
	})
	return p, nil
}

func (s *Service) GetOwn(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int, actor uuid.UUID) ([]*Patient, int, error) {
	role, err := s.authz.RoleOf(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	if role != identity.RoleAdmin && role != identity.RoleDoctor {
		ok, err := s.authz.HasPermission(ctx, actor, identity.PermViewPatientRecords)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			return nil, 0, ErrForbidden
		}
	}
	return s.repo.Search(ctx, params, limit, offset)
}

func (s *Service) Update(ctx context.Context, p *Patient, actor uuid.UUID) error {
	ok, err := s.canEdit(ctx, actor)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	if err := validateRecord(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// ScheduleFollowUp sets the next follow-up date on a record. Doctor action.
func (s *Service) ScheduleFollowUp(ctx context.Context, id uuid.UUID, date time.Time, actor uuid.UUID) (*Patient, error) {
	ok, err := s.canEdit(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.NextFollowUp = &date
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) FollowUpsDue(ctx context.Context, by time.Time) ([]*Patient, error) {
	return s.repo.ListFollowUpsDue(ctx, by)
}

// UserIDForPatient resolves the owning account for a record. Used by the
// appointment engine's self-booking check.
func (s *Service) UserIDForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.UserID, nil
}
