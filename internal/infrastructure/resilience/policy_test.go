package resilience

import (
	"testing"
	"time"
)

func TestRetryPolicyWaits(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:    4,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     300 * time.Millisecond,
		Multiplier:     2,
	}
	got := policy.Waits()
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}
	if len(got) != len(want) {
		t.Fatalf("Waits() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Waits() = %v, want %v", got, want)
		}
	}
}

func TestFitBudgetKeepsBackoffWithinHalfTheBudget(t *testing.T) {
	base := DefaultConfig().RetryPolicy()

	tests := []struct {
		name   string
		budget time.Duration
	}{
		{name: "roomy", budget: 10 * time.Second},
		{name: "tight", budget: 200 * time.Millisecond},
		{name: "tiny", budget: time.Millisecond},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fitted := base.FitBudget(tc.budget)
			if fitted.MaxAttempts < 1 {
				t.Fatalf("expected at least one attempt, got %+v", fitted)
			}
			var total time.Duration
			for _, wait := range fitted.Waits() {
				total += wait
			}
			if total > tc.budget/2 {
				t.Fatalf("backoff %s exceeds half of budget %s (%+v)", total, tc.budget, fitted)
			}
		})
	}

	if got := base.FitBudget(10 * time.Second); got.MaxAttempts != base.MaxAttempts {
		t.Fatalf("roomy budget should keep %d attempts, got %d", base.MaxAttempts, got.MaxAttempts)
	}
	if got := base.FitBudget(time.Millisecond); got.MaxAttempts != 1 {
		t.Fatalf("tiny budget should leave a single attempt, got %d", got.MaxAttempts)
	}
	if got := base.FitBudget(0); got != base {
		t.Fatalf("zero budget should not change the policy, got %+v", got)
	}
}
