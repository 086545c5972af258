package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehs/ehs/internal/domain/audit"
	"github.com/ehs/ehs/internal/domain/identity"
)

type Authorizer interface {
	RoleOf(ctx context.Context, userID uuid.UUID) (string, error)
	HasPermission(ctx context.Context, userID uuid.UUID, perm string) (bool, error)
}

type AuditSink interface {
	Record(ctx context.Context, e audit.Entry)
}

// AppointmentCompleter closes out the appointment attached to an invoice
// once the invoice is settled.
type AppointmentCompleter interface {
	Complete(ctx context.Context, appointmentID uuid.UUID) error
}

type Service struct {
	invoices     InvoiceRepository
	payments     PaymentRepository
	authz        Authorizer
	audit        AuditSink
	appointments AppointmentCompleter
	logger       zerolog.Logger

	now func() time.Time
}

func NewService(invoices InvoiceRepository, payments PaymentRepository, authz Authorizer, sink AuditSink, appointments AppointmentCompleter, logger zerolog.Logger) *Service {
	return &Service{
		invoices:     invoices,
		payments:     payments,
		authz:        authz,
		audit:        sink,
		appointments: appointments,
		logger:       logger,
		now:          time.Now,
	}
}

func newInvoiceNumber() string {
	return "INV-" + strings.ToUpper(uuid.NewString()[:8])
}

// canAccess: admins and receptionists handle billing by role, everyone else
// needs can_view_billing through a group.
func (s *Service) canAccess(ctx context.Context, actor uuid.UUID) (bool, error) {
	role, err := s.authz.RoleOf(ctx, actor)
	if err != nil {
		return false, err
	}
	if role == identity.RoleAdmin || role == identity.RoleReceptionist {
		return true, nil
	}
	return s.authz.HasPermission(ctx, actor, identity.PermViewBilling)
}

func (s *Service) requireAccess(ctx context.Context, actor uuid.UUID) error {
	ok, err := s.canAccess(ctx, actor)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *Service) CreateInvoice(ctx context.Context, inv *Invoice, actor uuid.UUID) error {
	if err := s.requireAccess(ctx, actor); err != nil {
		return err
	}
	if inv.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if inv.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	inv.Amount = round2(inv.Amount)
	inv.Tax = round2(inv.Amount * TaxRate)
	inv.TotalAmount = round2(inv.Amount + inv.Tax)
	inv.Status = InvoicePending
	inv.InvoiceNumber = newInvoiceNumber()
	if inv.DueDate.IsZero() {
		inv.DueDate = s.now().AddDate(0, 0, 14)
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor,
		Action:       audit.ActionInvoiceCreate,
		ResourceType: "invoice",
		ResourceID:   inv.ID.String(),
		Details:      map[string]interface{}{"invoice_number": inv.InvoiceNumber, "total_amount": inv.TotalAmount},
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id, actor uuid.UUID) (*Invoice, error) {
	if err := s.requireAccess(ctx, actor); err != nil {
		return nil, err
	}
	return s.invoices.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int, actor uuid.UUID) ([]*Invoice, int, error) {
	if err := s.requireAccess(ctx, actor); err != nil {
		return nil, 0, err
	}
	return s.invoices.Search(ctx, params, limit, offset)
}

func (s *Service) Payments(ctx context.Context, invoiceID, actor uuid.UUID) ([]*Payment, error) {
	if err := s.requireAccess(ctx, actor); err != nil {
		return nil, err
	}
	if _, err := s.invoices.GetByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.payments.ListByInvoice(ctx, invoiceID)
}

// RecordPayment stores a payment and, when the cumulative SUCCESS total
// reaches the invoice total, marks the invoice PAID and completes the
// attached appointment. A completion failure does not roll back the
// payment; it is logged and the invoice stays PAID.
func (s *Service) RecordPayment(ctx context.Context, p *Payment, actor uuid.UUID) error {
	if err := s.requireAccess(ctx, actor); err != nil {
		return err
	}
	if p.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	switch p.Status {
	case PaymentSuccess, PaymentPending, PaymentFailed:
	case "":
		p.Status = PaymentSuccess
	default:
		return fmt.Errorf("%w: unknown payment status %q", ErrValidation, p.Status)
	}
	inv, err := s.invoices.GetByID(ctx, p.InvoiceID)
	if err != nil {
		return err
	}
	if !inv.Open() {
		return ErrInvoiceClosed
	}
	p.Amount = round2(p.Amount)
	if err := s.payments.Create(ctx, p); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &actor,
		Action:       audit.ActionPaymentRecord,
		ResourceType: "payment",
		ResourceID:   p.ID.String(),
		Details:      map[string]interface{}{"invoice_id": inv.ID.String(), "amount": p.Amount, "status": p.Status},
	})
	if p.Status != PaymentSuccess {
		return nil
	}
	total, err := s.payments.SumSuccessful(ctx, inv.ID)
	if err != nil {
		return err
	}
	if round2(total) < inv.TotalAmount {
		return nil
	}
	inv.Status = InvoicePaid
	if err := s.invoices.Update(ctx, inv); err != nil {
		return err
	}
	if inv.AppointmentID != nil && s.appointments != nil {
		if err := s.appointments.Complete(ctx, *inv.AppointmentID); err != nil {
			s.logger.Warn().Err(err).
				Str("invoice_id", inv.ID.String()).
				Str("appointment_id", inv.AppointmentID.String()).
				Msg("paid invoice could not complete appointment")
		}
	}
	return nil
}
