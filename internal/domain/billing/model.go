package billing

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "PENDING"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
	InvoiceRefunded  InvoiceStatus = "REFUNDED"
)

// TaxRate is the GST fraction applied to every invoice amount.
const TaxRate = 0.18

// round2 keeps monetary values at two decimal places, matching the
// NUMERIC(10,2) columns.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type Invoice struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	PatientID     uuid.UUID     `db:"patient_id" json:"patient_id"`
	AppointmentID *uuid.UUID    `db:"appointment_id" json:"appointment_id,omitempty"`
	InvoiceNumber string        `db:"invoice_number" json:"invoice_number"`
	Amount        float64       `db:"amount" json:"amount"`
	Tax           float64       `db:"tax" json:"tax"`
	TotalAmount   float64       `db:"total_amount" json:"total_amount"`
	Status        InvoiceStatus `db:"status" json:"status"`
	DueDate       time.Time     `db:"due_date" json:"due_date"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Open reports whether the invoice can still accept payments.
func (i *Invoice) Open() bool {
	return i.Status == InvoicePending
}

const (
	PaymentSuccess = "SUCCESS"
	PaymentPending = "PENDING"
	PaymentFailed  = "FAILED"
)

type Payment struct {
	ID            uuid.UUID `db:"id" json:"id"`
	InvoiceID     uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Amount        float64   `db:"amount" json:"amount"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	TransactionID string    `db:"transaction_id" json:"transaction_id"`
	Status        string    `db:"status" json:"status"`
	PaymentDate   time.Time `db:"payment_date" json:"payment_date"`
}
