package scheduling

import "testing"

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusScheduled, StatusConfirmed, StatusRescheduled, StatusCheckedIn, StatusCancelled, StatusCompleted} {
		if !s.Valid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	for _, s := range []Status{"", "scheduled", "ARCHIVED"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusScheduled:   false,
		StatusConfirmed:   false,
		StatusRescheduled: false,
		StatusCheckedIn:   false,
		StatusCancelled:   true,
		StatusCompleted:   true,
	}
	for s, want := range terminal {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
		// Every non-terminal status holds its slot.
		if got := s.HoldsSlot(); got != !want {
			t.Errorf("%s.HoldsSlot() = %v, want %v", s, got, !want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusScheduled, StatusConfirmed},
		{StatusScheduled, StatusRescheduled},
		{StatusScheduled, StatusCancelled},
		{StatusScheduled, StatusCompleted},
		{StatusConfirmed, StatusCheckedIn},
		{StatusConfirmed, StatusRescheduled},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusCompleted},
		{StatusRescheduled, StatusConfirmed},
		{StatusRescheduled, StatusRescheduled},
		{StatusRescheduled, StatusCancelled},
		{StatusCheckedIn, StatusRescheduled},
		{StatusCheckedIn, StatusCancelled},
		{StatusCheckedIn, StatusCompleted},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusScheduled, StatusCheckedIn},
		{StatusRescheduled, StatusCheckedIn},
		{StatusRescheduled, StatusCompleted},
		{StatusCancelled, StatusScheduled},
		{StatusCancelled, StatusCancelled},
		{StatusCompleted, StatusCancelled},
		{StatusCompleted, StatusScheduled},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}
