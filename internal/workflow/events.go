// Package workflow turns independent chat events into one leave request per user.
package workflow

import "github.com/Proton-105/leave-bot/internal/domain"

// Step identifiers carried by inbound events.
const (
	StepStart              = "start"
	StepCancel             = "cancel"
	StepRequestLeave       = "request_leave"
	StepSelectVacationType = "select_vacation_type"
	StepSelectRole         = "select_role"
	StepVacationForm       = "vacation_form"
)

// Form field identifiers of the vacation form.
const (
	FieldDurationMinutes = "vacation_duration_minutes"
	FieldDurationDays    = "vacation_duration_days"
	FieldReason          = "vacation_reason"
)

// DurationField returns the form field that carries the duration for vt.
func DurationField(vt domain.VacationType) string {
	if vt == domain.VacationMinutes {
		return FieldDurationMinutes
	}
	return FieldDurationDays
}

// Event is an inbound user action. Lang selects the catalogue used for the reply.
type Event interface {
	userID() string
	step() string
	lang() string
}

// StartCommand asks for the entry prompt.
type StartCommand struct {
	UserID string
	Lang   string
}

// CancelCommand abandons the user's pending request.
type CancelCommand struct {
	UserID string
	Lang   string
}

// ButtonActivated is a press on a prompt button.
type ButtonActivated struct {
	UserID   string
	ButtonID string
	Lang     string
}

// MenuSelected is a choice made in one of the workflow menus.
type MenuSelected struct {
	UserID string
	MenuID string
	Value  string
	Lang   string
}

// FormSubmitted carries the vacation form fields keyed by field identifier.
type FormSubmitted struct {
	UserID string
	FormID string
	Fields map[string]string
	Lang   string
}

func (e StartCommand) userID() string { return e.UserID }
func (e StartCommand) step() string   { return StepStart }
func (e StartCommand) lang() string   { return e.Lang }

func (e CancelCommand) userID() string { return e.UserID }
func (e CancelCommand) step() string   { return StepCancel }
func (e CancelCommand) lang() string   { return e.Lang }

func (e ButtonActivated) userID() string { return e.UserID }
func (e ButtonActivated) step() string   { return e.ButtonID }
func (e ButtonActivated) lang() string   { return e.Lang }

func (e MenuSelected) userID() string { return e.UserID }
func (e MenuSelected) step() string   { return e.MenuID }
func (e MenuSelected) lang() string   { return e.Lang }

func (e FormSubmitted) userID() string { return e.UserID }
func (e FormSubmitted) step() string   { return e.FormID }
func (e FormSubmitted) lang() string   { return e.Lang }

// StepOf returns the step identifier carried by ev.
func StepOf(ev Event) string {
	if ev == nil {
		return ""
	}
	return ev.step()
}
