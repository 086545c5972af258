package billing

import "errors"

var (
	ErrNotFound        = errors.New("invoice not found")
	ErrDuplicateNumber = errors.New("invoice number already exists")
	ErrValidation      = errors.New("invalid billing request")
	ErrForbidden       = errors.New("access to billing records denied")
	ErrInvoiceClosed   = errors.New("invoice is not open for payment")
)
