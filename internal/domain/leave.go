// Package domain holds the leave request records shared across the bot.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// VacationType is the unit a leave duration is measured in.
type VacationType string

const (
	VacationMinutes VacationType = "minutes"
	VacationDays    VacationType = "days"
)

// Status tracks where a submitted request is in its lifecycle.
type Status string

// StatusPending is assigned to every newly submitted request.
const StatusPending Status = "pending"

var (
	// ErrUnknownVacationType is returned for values other than minutes or days.
	ErrUnknownVacationType = errors.New("unknown vacation type")
	// ErrInvalidDuration is returned when the duration is not a positive integer.
	ErrInvalidDuration = errors.New("duration must be a positive integer")
	// ErrEmptyReason is returned when the reason is blank.
	ErrEmptyReason = errors.New("reason must not be empty")
)

// ParseVacationType converts a menu value into a VacationType.
func ParseVacationType(value string) (VacationType, error) {
	switch vt := VacationType(strings.TrimSpace(value)); vt {
	case VacationMinutes, VacationDays:
		return vt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVacationType, value)
	}
}

// Valid reports whether vt is one of the known vacation types.
func (vt VacationType) Valid() bool {
	return vt == VacationMinutes || vt == VacationDays
}

// Role is a role a member may submit a request under.
type Role struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// LeaveRequest is a completed request persisted per user.
type LeaveRequest struct {
	UserID       string       `json:"userId"`
	RoleID       string       `json:"roleId"`
	Duration     int          `json:"duration"`
	Reason       string       `json:"reason"`
	VacationType VacationType `json:"vacationType"`
	Status       Status       `json:"status"`
}

// Validate checks the record invariants before it reaches the store.
func (r LeaveRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.UserID) == "":
		return errors.New("user id is required")
	case strings.TrimSpace(r.RoleID) == "":
		return errors.New("role id is required")
	case r.Duration <= 0:
		return ErrInvalidDuration
	case strings.TrimSpace(r.Reason) == "":
		return ErrEmptyReason
	case !r.VacationType.Valid():
		return fmt.Errorf("%w: %q", ErrUnknownVacationType, r.VacationType)
	}

	return nil
}
