package core

import (
	"testing"
)

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name      string
		date      Date
		frequency Frequency
		want      Date
	}{
		{"daily", NewDate(2024, 3, 15), Daily, NewDate(2024, 3, 16)},
		{"daily across month end", NewDate(2024, 1, 31), Daily, NewDate(2024, 2, 1)},
		{"weekly", NewDate(2024, 3, 15), Weekly, NewDate(2024, 3, 22)},
		{"weekly across year end", NewDate(2024, 12, 27), Weekly, NewDate(2025, 1, 3)},
		{"biweekly", NewDate(2024, 3, 15), Biweekly, NewDate(2024, 3, 29)},
		{"monthly", NewDate(2024, 3, 15), Monthly, NewDate(2024, 4, 15)},
		{"monthly clamps to leap february", NewDate(2024, 1, 31), Monthly, NewDate(2024, 2, 29)},
		{"monthly clamps to short february", NewDate(2025, 1, 31), Monthly, NewDate(2025, 2, 28)},
		{"monthly clamps 31st to 30-day month", NewDate(2024, 3, 31), Monthly, NewDate(2024, 4, 30)},
		{"monthly keeps day after clamp source", NewDate(2024, 4, 30), Monthly, NewDate(2024, 5, 30)},
		{"quarterly", NewDate(2024, 1, 15), Quarterly, NewDate(2024, 4, 15)},
		{"quarterly clamps", NewDate(2024, 11, 30), Quarterly, NewDate(2025, 2, 28)},
		{"semi-annual", NewDate(2024, 2, 29), SemiAnnual, NewDate(2024, 8, 29)},
		{"annual", NewDate(2024, 6, 1), Annual, NewDate(2025, 6, 1)},
		{"annual from leap day clamps", NewDate(2024, 2, 29), Annual, NewDate(2025, 2, 28)},
		{"unknown frequency falls back to monthly", NewDate(2024, 1, 31), Frequency("lunar"), NewDate(2024, 2, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOccurrence(tt.date, tt.frequency)
			if !got.Equal(tt.want.Time) {
				t.Errorf("NextOccurrence(%s, %s) = %s, want %s", tt.date, tt.frequency, got, tt.want)
			}
		})
	}
}

func TestNextOccurrenceAlwaysAdvances(t *testing.T) {
	frequencies := []Frequency{Daily, Weekly, Biweekly, Monthly, Quarterly, SemiAnnual, Annual}
	start := NewDate(2024, 1, 31)
	for _, f := range frequencies {
		cursor := start
		for i := 0; i < 50; i++ {
			next := NextOccurrence(cursor, f)
			if !next.After(cursor.Time) {
				t.Fatalf("%s: cursor did not advance from %s (got %s)", f, cursor, next)
			}
			cursor = next
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Errorf("round trip = %s, want 2024-02-29", d)
	}

	if _, err := ParseDate("29/02/2024"); err == nil {
		t.Error("expected error for malformed date")
	}
}
