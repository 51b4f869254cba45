package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Proton-105/leave-bot/internal/domain"
)

// State is the workflow position of a user. StateIdle is never stored: a user without a
// pending request is idle.
type State string

const (
	// StateIdle indicates that the user has no leave request in progress.
	StateIdle State = "idle"
	// StateAwaitingRole indicates that the vacation type is chosen and the role menu is shown.
	StateAwaitingRole State = "awaiting_role"
	// StateAwaitingForm indicates that the role is chosen and the duration/reason form is shown.
	StateAwaitingForm State = "awaiting_form"
)

var (
	// ErrStateNotFound indicates that no pending request exists for the user.
	ErrStateNotFound = errors.New("pending request not found")
	// ErrInvalidTransition indicates that a requested transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrIncomplete indicates that a pending request lacks fields its state requires.
	ErrIncomplete = errors.New("pending request is incomplete")
)

// PendingRequest is the partially built leave request of one user.
type PendingRequest struct {
	UserID       string              `json:"user_id"`
	State        State               `json:"state"`
	VacationType domain.VacationType `json:"vacation_type,omitempty"`
	RoleID       string              `json:"role_id,omitempty"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NewAwaitingRole starts a pending request once the vacation type is known.
func NewAwaitingRole(userID string, vt domain.VacationType) (*PendingRequest, error) {
	p := &PendingRequest{
		UserID:       userID,
		State:        StateAwaitingRole,
		VacationType: vt,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// WithRole returns a copy of p advanced to StateAwaitingForm with the chosen role.
func (p *PendingRequest) WithRole(roleID string) (*PendingRequest, error) {
	if p == nil {
		return nil, ErrStateNotFound
	}
	if !IsTransitionAllowed(p.State, StateAwaitingForm) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.State, StateAwaitingForm)
	}

	next := *p
	next.State = StateAwaitingForm
	next.RoleID = strings.TrimSpace(roleID)
	if err := next.Validate(); err != nil {
		return nil, err
	}

	return &next, nil
}

// Validate checks that the fields required by the current state are present.
func (p *PendingRequest) Validate() error {
	if p == nil {
		return ErrStateNotFound
	}
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: user id is empty", ErrIncomplete)
	}

	switch p.State {
	case StateAwaitingRole:
		if !p.VacationType.Valid() {
			return fmt.Errorf("%w: vacation type is not set", ErrIncomplete)
		}
	case StateAwaitingForm:
		if !p.VacationType.Valid() {
			return fmt.Errorf("%w: vacation type is not set", ErrIncomplete)
		}
		if p.RoleID == "" {
			return fmt.Errorf("%w: role is not set", ErrIncomplete)
		}
	default:
		return fmt.Errorf("%w: unexpected state %q", ErrIncomplete, p.State)
	}

	return nil
}

// Expired reports whether the request was last touched more than ttl before now.
// A non-positive ttl disables expiry.
func (p *PendingRequest) Expired(ttl time.Duration, now time.Time) bool {
	if p == nil || ttl <= 0 || p.UpdatedAt.IsZero() {
		return false
	}

	return now.Sub(p.UpdatedAt) > ttl
}

func (p *PendingRequest) clone() *PendingRequest {
	if p == nil {
		return nil
	}

	copied := *p
	return &copied
}
