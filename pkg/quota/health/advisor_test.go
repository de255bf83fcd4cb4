package health

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRecommendations_Deterministic(t *testing.T) {
	obs := Observation{
		Status:                StatusWarning,
		UtilizationPercent:    82,
		Remaining:             900,
		ResetIn:               40 * time.Minute,
		TimeToExhaustion:      25 * time.Minute,
		HasExhaustionEstimate: true,
	}

	first := Recommendations(obs)
	for i := 0; i < 10; i++ {
		if got := Recommendations(obs); !reflect.DeepEqual(got, first) {
			t.Fatalf("identical input produced different output:\n%v\n%v", first, got)
		}
	}
}

func TestRecommendations_Selection(t *testing.T) {
	tests := []struct {
		name string
		obs  Observation
		want int // minimum advisory count
		top  string
	}{
		{
			name: "healthy",
			obs:  Observation{Status: StatusHealthy, UtilizationPercent: 10},
			want: 1,
			top:  "within normal bounds",
		},
		{
			name: "warning",
			obs:  Observation{Status: StatusWarning, UtilizationPercent: 80},
			want: 1,
			top:  "slow down",
		},
		{
			name: "critical",
			obs:  Observation{Status: StatusCritical, UtilizationPercent: 95},
			want: 2,
			top:  "pause",
		},
		{
			name: "blocked",
			obs:  Observation{Status: StatusBlocked, UtilizationPercent: 100, ResetIn: 10 * time.Minute},
			want: 2,
			top:  "stop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recommendations(tt.obs)
			if len(got) < tt.want {
				t.Fatalf("expected at least %d advisories, got %v", tt.want, got)
			}
			if !strings.Contains(got[0], tt.top) {
				t.Errorf("expected first advisory to contain %q, got %q", tt.top, got[0])
			}
		})
	}
}

func TestRecommendations_ExhaustionBeforeReset(t *testing.T) {
	obs := Observation{
		Status:                StatusWarning,
		UtilizationPercent:    80,
		ResetIn:               time.Hour,
		TimeToExhaustion:      20 * time.Minute,
		HasExhaustionEstimate: true,
	}

	got := Recommendations(obs)
	found := false
	for _, s := range got {
		if strings.Contains(s, "runs out") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an exhaustion advisory, got %v", got)
	}

	// No advisory when exhaustion lands after the reset.
	obs.TimeToExhaustion = 2 * time.Hour
	for _, s := range Recommendations(obs) {
		if strings.Contains(s, "runs out") {
			t.Errorf("unexpected exhaustion advisory: %q", s)
		}
	}
}
