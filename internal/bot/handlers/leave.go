package handlers

import (
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/bot/keyboard"
	"github.com/Proton-105/leave-bot/internal/domain"
	"github.com/Proton-105/leave-bot/internal/roles"
	"github.com/Proton-105/leave-bot/internal/workflow"
)

// LeaveHandler turns leave workflow callbacks and form replies into workflow events.
type LeaveHandler struct {
	engine    Processor
	responder *Responder
	roles     roles.Provider
	log       *slog.Logger
}

func NewLeaveHandler(engine Processor, responder *Responder, roleProvider roles.Provider, log *slog.Logger) *LeaveHandler {
	if log == nil {
		log = slog.Default()
	}

	return &LeaveHandler{
		engine:    engine,
		responder: responder,
		roles:     roleProvider,
		log:       log,
	}
}

// Callback handles the entry button and both workflow menus.
func (h *LeaveHandler) Callback(c telebot.Context) error {
	cb := c.Callback()
	userID := UserID(c)
	if cb == nil || userID == "" {
		return nil
	}

	unique, data, err := keyboard.DecodeCallback(cb.Data)
	if err != nil {
		h.log.Warn("invalid callback data", slog.String("user_id", userID), slog.Any("error", err))
		return h.responder.Render(c, nil)
	}

	var ev workflow.Event
	switch unique {
	case workflow.StepSelectVacationType, workflow.StepSelectRole:
		ev = workflow.MenuSelected{UserID: userID, MenuID: unique, Value: data, Lang: Lang(c)}
	default:
		ev = workflow.ButtonActivated{UserID: userID, ButtonID: unique, Lang: Lang(c)}
	}

	return h.responder.Render(c, h.engine.Process(Context(c), ev))
}

// RolesPage switches the role menu to another page.
func (h *LeaveHandler) RolesPage(c telebot.Context) error {
	cb := c.Callback()
	userID := UserID(c)
	if cb == nil || userID == "" {
		return nil
	}

	_, data, _ := keyboard.DecodeCallback(cb.Data)
	page, err := strconv.Atoi(data)
	if err != nil {
		return h.responder.Render(c, nil)
	}

	assignable, err := h.roles.AssignableRoles(Context(c), userID)
	if err != nil {
		h.log.Error("failed to load roles for pagination", slog.String("user_id", userID), slog.Any("error", err))
		return h.responder.Render(c, nil)
	}

	return h.responder.EditRoleMenu(c, workflow.ShowRoleMenu{MenuID: workflow.StepSelectRole, Roles: assignable}, page)
}

// Form handles the free-text answer to the vacation form while the user is awaiting_form.
// Only private messages and replies to the bot's form prompt count as answers; other chatter
// produces no event.
func (h *LeaveHandler) Form(c telebot.Context) error {
	userID := UserID(c)
	if userID == "" {
		return nil
	}
	if !DirectedAtBot(c) {
		h.log.Debug("ignoring text outside the form conversation", slog.String("user_id", userID))
		return nil
	}

	vt := domain.VacationDays
	if p := Pending(c); p != nil {
		vt = p.VacationType
	}

	ev := workflow.FormSubmitted{
		UserID: userID,
		FormID: workflow.StepVacationForm,
		Fields: ParseFormText(c.Text(), vt),
		Lang:   Lang(c),
	}

	prompt := h.engine.Process(Context(c), ev)
	if msg, ok := prompt.(workflow.ShowEphemeralMessage); ok {
		return h.responder.sendPrivate(c, msg.Text, keyboard.RemoveReply())
	}

	return h.responder.Render(c, prompt)
}

// DirectedAtBot reports whether a text message was written to the bot: it arrived in a private
// chat or replies to one of the bot's messages.
func DirectedAtBot(c telebot.Context) bool {
	if chat := c.Chat(); chat == nil || chat.Type == telebot.ChatPrivate {
		return true
	}

	msg := c.Message()
	return msg != nil && msg.ReplyTo != nil && msg.ReplyTo.Sender != nil && msg.ReplyTo.Sender.IsBot
}

// ParseFormText splits a form reply into its fields: the first line is the duration and the
// remaining lines are the reason. A single-line reply is split at the first space.
func ParseFormText(text string, vt domain.VacationType) map[string]string {
	text = strings.TrimSpace(text)

	duration, reason, found := strings.Cut(text, "\n")
	if !found {
		duration, reason, _ = strings.Cut(text, " ")
	}

	return map[string]string{
		workflow.DurationField(vt): strings.TrimSpace(duration),
		workflow.FieldReason:       strings.TrimSpace(reason),
	}
}
