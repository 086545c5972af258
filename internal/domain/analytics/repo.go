package analytics

import (
	"context"
	"time"
)

// Repository runs the aggregate queries behind the reports. Age buckets are
// selected by birth-date cutoffs computed by the service so the SQL stays
// free of date arithmetic.
type Repository interface {
	PatientCount(ctx context.Context) (int, error)
	PatientAgeBuckets(ctx context.Context, born19, born31, born51 time.Time) (map[string]int, error)
	BloodGroupCounts(ctx context.Context) (map[string]int, error)
	FinancialSummary(ctx context.Context, from, to time.Time) (*FinancialSummary, error)
	AppointmentCountsByStatus(ctx context.Context, from, to time.Time) (map[string]int, error)
	AppointmentCountsByDay(ctx context.Context, from, to time.Time) (map[string]int, error)
	AppointmentCountsByDoctor(ctx context.Context, from, to time.Time) ([]DoctorCount, error)
}
