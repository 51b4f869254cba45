package workflow

import "github.com/Proton-105/leave-bot/internal/domain"

// Prompt is the single instruction produced for each handled event. Texts are already localized.
type Prompt interface {
	prompt()
}

// ShowEntryPrompt offers the button that starts a leave request.
type ShowEntryPrompt struct {
	Title       string
	Description string
	ButtonID    string
	ButtonLabel string
}

// MenuOption is one selectable value of a menu.
type MenuOption struct {
	Value string
	Label string
}

// ShowTypeMenu asks for the vacation type.
type ShowTypeMenu struct {
	MenuID      string
	Title       string
	Description string
	Placeholder string
	Options     []MenuOption
}

// ShowRoleMenu asks for the role the request is submitted under.
type ShowRoleMenu struct {
	MenuID      string
	Title       string
	Description string
	Roles       []domain.Role
}

// ShowForm asks for the duration and the reason.
type ShowForm struct {
	FormID        string
	Title         string
	VacationType  domain.VacationType
	DurationField string
	DurationLabel string
	ReasonField   string
	ReasonLabel   string
	Hint          string
}

// ShowEphemeralMessage is a private notice to the requesting user.
type ShowEphemeralMessage struct {
	Text string
}

func (ShowEntryPrompt) prompt()      {}
func (ShowTypeMenu) prompt()         {}
func (ShowRoleMenu) prompt()         {}
func (ShowForm) prompt()             {}
func (ShowEphemeralMessage) prompt() {}
