package billing

import (
	"context"

	"github.com/google/uuid"
)

type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Invoice, int, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error)
	// SumSuccessful returns the total of SUCCESS payments against an invoice.
	SumSuccessful(ctx context.Context, invoiceID uuid.UUID) (float64, error)
}
