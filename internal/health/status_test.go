package health

import "testing"

func TestCombine_Empty(t *testing.T) {
	if got := Combine(); got != StatusHealthy {
		t.Errorf("expected healthy for empty input, got %s", got)
	}
}

func TestCombine_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"warning wins over healthy", []Status{StatusHealthy, StatusWarning}, StatusWarning},
		{"error wins over warning", []Status{StatusWarning, StatusError}, StatusError},
		{"error wins over everything", []Status{StatusHealthy, StatusError, StatusWarning}, StatusError},
		{"single error", []Status{StatusError}, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Combine(tt.statuses...); got != tt.want {
				t.Errorf("Combine(%v) = %s, want %s", tt.statuses, got, tt.want)
			}
		})
	}
}

func TestCombine_Commutative(t *testing.T) {
	all := []Status{StatusHealthy, StatusWarning, StatusError}
	for _, a := range all {
		for _, b := range all {
			if Combine(a, b) != Combine(b, a) {
				t.Errorf("Combine(%s, %s) != Combine(%s, %s)", a, b, b, a)
			}
		}
	}
}

func TestCombine_IdempotentOverDuplicates(t *testing.T) {
	for _, s := range []Status{StatusHealthy, StatusWarning, StatusError} {
		if got := Combine(s, s, s); got != s {
			t.Errorf("Combine(%s x3) = %s, want %s", s, got, s)
		}
	}
}
