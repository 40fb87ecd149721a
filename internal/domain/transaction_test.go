package domain

import "testing"

func TestParsePaymentStatus(t *testing.T) {
	cases := []struct {
		raw    string
		want   PaymentStatus
		wantOK bool
	}{
		{"SUCCESS", StatusSuccess, true},
		{"successful", StatusSuccess, true},
		{"Completed", StatusSuccess, true},
		{" pending ", StatusPending, true},
		{"PROCESSING", StatusInProgress, true},
		{"in_progress", StatusInProgress, true},
		{"FAILED", StatusFailed, true},
		{"failure", StatusFailed, true},
		{"CANCELLED", StatusCancelled, true},
		{"canceled", StatusCancelled, true},
		{"EXPLODED", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := ParsePaymentStatus(tc.raw)
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("ParsePaymentStatus(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.wantOK)
		}
	}
}
