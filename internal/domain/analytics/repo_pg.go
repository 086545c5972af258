package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) PatientCount(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&n)
	return n, err
}

func (r *repoPG) PatientAgeBuckets(ctx context.Context, born19, born31, born51 time.Time) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT CASE
			WHEN date_of_birth > $1 THEN '0-18'
			WHEN date_of_birth > $2 THEN '19-30'
			WHEN date_of_birth > $3 THEN '31-50'
			ELSE '51+'
		END AS bucket, COUNT(*)
		FROM patient
		WHERE date_of_birth IS NOT NULL
		GROUP BY bucket`, born19, born31, born51)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := map[string]int{}
	for rows.Next() {
		var bucket string
		var count int
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, err
		}
		buckets[bucket] = count
	}
	return buckets, rows.Err()
}

func (r *repoPG) BloodGroupCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT blood_group, COUNT(*)
		FROM patient
		WHERE blood_group <> ''
		GROUP BY blood_group`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := map[string]int{}
	for rows.Next() {
		var group string
		var count int
		if err := rows.Scan(&group, &count); err != nil {
			return nil, err
		}
		groups[group] = count
	}
	return groups, rows.Err()
}

func (r *repoPG) FinancialSummary(ctx context.Context, from, to time.Time) (*FinancialSummary, error) {
	var s FinancialSummary
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'PAID'), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'PENDING'), 0),
			COUNT(*),
			COALESCE(AVG(total_amount), 0)
		FROM invoice
		WHERE created_at >= $1 AND created_at <= $2`, from, to).
		Scan(&s.TotalRevenue, &s.PaidAmount, &s.PendingAmount, &s.InvoiceCount, &s.AverageInvoiceAmount)
	return &s, err
}

func (r *repoPG) AppointmentCountsByStatus(ctx context.Context, from, to time.Time) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM appointment
		WHERE date >= $1 AND date <= $2
		GROUP BY status`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *repoPG) AppointmentCountsByDay(ctx context.Context, from, to time.Time) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date, COUNT(*)
		FROM appointment
		WHERE date >= $1 AND date <= $2
		GROUP BY date
		ORDER BY date`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var day time.Time
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		counts[day.Format("2006-01-02")] = count
	}
	return counts, rows.Err()
}

func (r *repoPG) AppointmentCountsByDoctor(ctx context.Context, from, to time.Time) ([]DoctorCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.doctor_id, u.first_name || ' ' || u.last_name, COUNT(*)
		FROM appointment a
		JOIN app_user u ON u.id = a.doctor_id
		WHERE a.date >= $1 AND a.date <= $2
		GROUP BY a.doctor_id, u.first_name, u.last_name
		ORDER BY COUNT(*) DESC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []DoctorCount
	for rows.Next() {
		var dc DoctorCount
		if err := rows.Scan(&dc.DoctorID, &dc.DoctorName, &dc.Count); err != nil {
			return nil, err
		}
		items = append(items, dc)
	}
	return items, rows.Err()
}
