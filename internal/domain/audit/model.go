package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the application. The log is append-only; entries are
// never updated or deleted.
const (
	ActionLogin             = "LOGIN"
	ActionUserCreate        = "USER_CREATE"
	ActionUserUpdate        = "USER_UPDATE"
	ActionUserDeactivate    = "USER_DEACTIVATE"
	ActionMFAEnable         = "MFA_ENABLE"
	ActionGroupAssign       = "GROUP_ASSIGN"
	ActionGroupRemove       = "GROUP_REMOVE"
	ActionAppointmentCreate = "APPOINTMENT_CREATE"
	ActionAppointmentUpdate = "APPOINTMENT_UPDATE"
	ActionAppointmentCancel = "APPOINTMENT_CANCEL"
	ActionInvoiceCreate     = "INVOICE_CREATE"
	ActionPaymentRecord     = "PAYMENT_RECORD"
	ActionRecordView        = "RECORD_VIEW"
)

type Entry struct {
	ID           uuid.UUID              `db:"id" json:"id"`
	UserID       *uuid.UUID             `db:"user_id" json:"user_id,omitempty"`
	Action       string                 `db:"action" json:"action"`
	ResourceType string                 `db:"resource_type" json:"resource_type"`
	ResourceID   string                 `db:"resource_id" json:"resource_id"`
	IPAddress    string                 `db:"ip_address" json:"ip_address"`
	Details      map[string]interface{} `db:"details" json:"details,omitempty"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at"`
}
