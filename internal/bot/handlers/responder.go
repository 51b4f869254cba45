package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/bot/keyboard"
	"github.com/Proton-105/leave-bot/internal/i18n"
	"github.com/Proton-105/leave-bot/internal/workflow"
)

// Messenger is the part of *telebot.Bot the responder needs to reach a user directly.
type Messenger interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	EditReplyMarkup(msg telebot.Editable, markup *telebot.ReplyMarkup) (*telebot.Message, error)
}

// Responder renders workflow prompts as Telegram messages.
type Responder struct {
	messenger Messenger
	keyboard  *keyboard.Builder
	texts     *i18n.Manager
	log       *slog.Logger
}

func NewResponder(messenger Messenger, kb *keyboard.Builder, texts *i18n.Manager, log *slog.Logger) *Responder {
	if log == nil {
		log = slog.Default()
	}
	if kb == nil {
		kb = keyboard.NewBuilder(log)
	}

	return &Responder{
		messenger: messenger,
		keyboard:  kb,
		texts:     texts,
		log:       log,
	}
}

// Render delivers prompt to the user behind c. The entry prompt goes to the originating chat;
// everything else is addressed to the user privately. Callback queries are always answered.
func (r *Responder) Render(c telebot.Context, prompt workflow.Prompt) error {
	var err error

	switch p := prompt.(type) {
	case nil:
	case workflow.ShowEntryPrompt:
		err = r.sendEntry(c, p)
	case workflow.ShowTypeMenu:
		err = r.sendTypeMenu(c, p)
	case workflow.ShowRoleMenu:
		err = r.sendRoleMenu(c, p)
	case workflow.ShowForm:
		err = r.sendForm(c, p)
	case workflow.ShowEphemeralMessage:
		err = r.Notify(c, p.Text)
	default:
		err = fmt.Errorf("unsupported prompt %T", prompt)
	}

	if ackErr := r.ack(c); ackErr != nil {
		err = errors.Join(err, ackErr)
	}

	return err
}

// Notify shows text to the requesting user only. On a callback that has not been answered yet
// the text becomes the callback alert; otherwise a separate private message is sent.
func (r *Responder) Notify(c telebot.Context, text string) error {
	if c.Callback() != nil && !Responded(c) {
		MarkResponded(c)
		return c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: true})
	}

	return r.sendPrivate(c, text)
}

// EditRoleMenu replaces the keyboard of the message behind a pagination callback.
func (r *Responder) EditRoleMenu(c telebot.Context, p workflow.ShowRoleMenu, page int) error {
	markup, err := r.keyboard.RoleMenu(r.texts.Translator(Lang(c)), p.MenuID, p.Roles, page)
	if err != nil {
		return err
	}

	if msg := c.Message(); msg != nil && r.messenger != nil {
		if _, err := r.messenger.EditReplyMarkup(msg, markup); err != nil {
			return fmt.Errorf("edit role menu: %w", err)
		}
	}

	return r.ack(c)
}

func (r *Responder) sendEntry(c telebot.Context, p workflow.ShowEntryPrompt) error {
	markup, err := r.keyboard.Entry(p)
	if err != nil {
		return err
	}
	return c.Send(joinLines(p.Title, p.Description), markup)
}

func (r *Responder) sendTypeMenu(c telebot.Context, p workflow.ShowTypeMenu) error {
	markup, err := r.keyboard.TypeMenu(p)
	if err != nil {
		return err
	}
	return r.sendPrivate(c, joinLines(p.Title, p.Description), markup)
}

func (r *Responder) sendRoleMenu(c telebot.Context, p workflow.ShowRoleMenu) error {
	markup, err := r.keyboard.RoleMenu(r.texts.Translator(Lang(c)), p.MenuID, p.Roles, 1)
	if err != nil {
		return err
	}
	return r.sendPrivate(c, joinLines(p.Title, p.Description), markup)
}

func (r *Responder) sendForm(c telebot.Context, p workflow.ShowForm) error {
	text := joinLines(p.Title, "1. "+p.DurationLabel+"\n2. "+p.ReasonLabel, p.Hint)
	return r.sendPrivate(c, text, keyboard.FormReply(p.DurationLabel))
}

func (r *Responder) sendPrivate(c telebot.Context, what string, opts ...interface{}) error {
	if chat := c.Chat(); chat == nil || chat.Type == telebot.ChatPrivate || r.messenger == nil || c.Sender() == nil {
		return c.Send(what, opts...)
	}

	if _, err := r.messenger.Send(c.Sender(), what, opts...); err != nil {
		r.log.Warn("failed to message user privately", slog.Int64("user_id", c.Sender().ID), slog.Any("error", err))
		return err
	}
	return nil
}

func (r *Responder) ack(c telebot.Context) error {
	if c.Callback() == nil || Responded(c) {
		return nil
	}

	MarkResponded(c)
	return c.Respond()
}

func joinLines(parts ...string) string {
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			lines = append(lines, part)
		}
	}
	return strings.Join(lines, "\n\n")
}
