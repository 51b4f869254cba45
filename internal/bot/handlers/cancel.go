package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/bot/keyboard"
	"github.com/Proton-105/leave-bot/internal/workflow"
)

// NewCancelHandler abandons the user's pending leave request.
func NewCancelHandler(engine Processor, responder *Responder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		userID := UserID(c)
		if userID == "" {
			log.Warn("cancel handler invoked without sender context")
			return nil
		}

		prompt := engine.Process(Context(c), workflow.CancelCommand{UserID: userID, Lang: Lang(c)})
		if msg, ok := prompt.(workflow.ShowEphemeralMessage); ok && c.Callback() == nil {
			return responder.sendPrivate(c, msg.Text, keyboard.RemoveReply())
		}

		return responder.Render(c, prompt)
	}
}
