package analytics

// Demographics summarises the patient population.
type Demographics struct {
	AgeDistribution map[string]int `json:"age_distribution"`
	BloodGroups     map[string]int `json:"blood_groups"`
	TotalPatients   int            `json:"total_patients"`
}

// FinancialSummary aggregates invoices created inside a reporting window.
type FinancialSummary struct {
	TotalRevenue         float64 `json:"total_revenue"`
	PaidAmount           float64 `json:"paid_amount"`
	PendingAmount        float64 `json:"pending_amount"`
	InvoiceCount         int     `json:"invoice_count"`
	AverageInvoiceAmount float64 `json:"average_invoice_amount"`
}

type DoctorCount struct {
	DoctorID   string `json:"doctor_id"`
	DoctorName string `json:"doctor_name"`
	Count      int    `json:"count"`
}

// AppointmentStatistics aggregates appointments dated inside a reporting
// window. Daily counts are keyed by YYYY-MM-DD.
type AppointmentStatistics struct {
	TotalAppointments  int            `json:"total_appointments"`
	StatusDistribution map[string]int `json:"status_distribution"`
	DailyDistribution  map[string]int `json:"daily_distribution"`
	DoctorDistribution []DoctorCount  `json:"doctor_distribution"`
}
