package analytics

import (
	"context"
	"time"
)

type Service struct {
	repo Repository

	now func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// windowFor translates a report period name into a start time. Unknown
// periods fall back to a week.
func (s *Service) windowFor(period string) (time.Time, time.Time) {
	end := s.now()
	switch period {
	case "month":
		return end.AddDate(0, 0, -30), end
	case "year":
		return end.AddDate(0, 0, -365), end
	default:
		return end.AddDate(0, 0, -7), end
	}
}

func (s *Service) PatientDemographics(ctx context.Context) (*Demographics, error) {
	now := s.now()
	ages, err := s.repo.PatientAgeBuckets(ctx,
		now.AddDate(-19, 0, 0), now.AddDate(-31, 0, 0), now.AddDate(-51, 0, 0))
	if err != nil {
		return nil, err
	}
	for _, bucket := range []string{"0-18", "19-30", "31-50", "51+"} {
		if _, ok := ages[bucket]; !ok {
			ages[bucket] = 0
		}
	}
	groups, err := s.repo.BloodGroupCounts(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.PatientCount(ctx)
	if err != nil {
		return nil, err
	}
	return &Demographics{
		AgeDistribution: ages,
		BloodGroups:     groups,
		TotalPatients:   total,
	}, nil
}

func (s *Service) FinancialSummary(ctx context.Context, period string) (*FinancialSummary, error) {
	from, to := s.windowFor(period)
	return s.repo.FinancialSummary(ctx, from, to)
}

func (s *Service) AppointmentStatistics(ctx context.Context, period string) (*AppointmentStatistics, error) {
	from, to := s.windowFor(period)
	byStatus, err := s.repo.AppointmentCountsByStatus(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byDay, err := s.repo.AppointmentCountsByDay(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byDoctor, err := s.repo.AppointmentCountsByDoctor(ctx, from, to)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range byStatus {
		total += n
	}
	return &AppointmentStatistics{
		TotalAppointments:  total,
		StatusDistribution: byStatus,
		DailyDistribution:  byDay,
		DoctorDistribution: byDoctor,
	}, nil
}
