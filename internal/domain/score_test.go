package domain

import "testing"

func TestFormScore(t *testing.T) {
	tests := []struct {
		name string
		errs []FormError
		want int
	}{
		{"no errors", nil, 100},
		{"one high", []FormError{{Severity: SeverityHigh}}, 80},
		{"one medium", []FormError{{Severity: SeverityMedium}}, 90},
		{"one low", []FormError{{Severity: SeverityLow}}, 95},
		{"mixed", []FormError{{Severity: SeverityHigh}, {Severity: SeverityMedium}, {Severity: SeverityLow}}, 65},
		{"warning ignored", []FormError{{Severity: SeverityWarning}}, 100},
		{"error severity ignored", []FormError{{Severity: SeverityError}}, 100},
		{
			"clamped at zero",
			[]FormError{
				{Severity: SeverityHigh}, {Severity: SeverityHigh}, {Severity: SeverityHigh},
				{Severity: SeverityHigh}, {Severity: SeverityHigh}, {Severity: SeverityHigh},
			},
			0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormScore(tt.errs); got != tt.want {
				t.Errorf("FormScore() = %d, want %d", got, tt.want)
			}
		})
	}
}
