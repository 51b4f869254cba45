package domain

import (
	"errors"
	"testing"
)

func TestParseVacationType(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    VacationType
		wantErr bool
	}{
		{name: "minutes", input: "minutes", want: VacationMinutes},
		{name: "days with spaces", input: " days ", want: VacationDays},
		{name: "unknown", input: "weeks", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseVacationType(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrUnknownVacationType) {
					t.Fatalf("expected ErrUnknownVacationType, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ParseVacationType(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestLeaveRequest_Validate(t *testing.T) {
	valid := LeaveRequest{
		UserID:       "U1",
		RoleID:       "Member",
		Duration:     3,
		Reason:       "travel",
		VacationType: VacationDays,
		Status:       StatusPending,
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}

	zero := valid
	zero.Duration = 0
	if err := zero.Validate(); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("expected ErrInvalidDuration, got %v", err)
	}

	blank := valid
	blank.Reason = "   "
	if err := blank.Validate(); !errors.Is(err, ErrEmptyReason) {
		t.Errorf("expected ErrEmptyReason, got %v", err)
	}

	noRole := valid
	noRole.RoleID = ""
	if err := noRole.Validate(); err == nil {
		t.Error("expected error for missing role")
	}
}
