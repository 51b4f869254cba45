package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/workflow"
)

// NewStartHandler shows the leave request entry prompt.
func NewStartHandler(engine Processor, responder *Responder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		userID := UserID(c)
		if userID == "" {
			log.Warn("start handler invoked without sender")
			return nil
		}

		prompt := engine.Process(Context(c), workflow.StartCommand{UserID: userID, Lang: Lang(c)})
		return responder.Render(c, prompt)
	}
}
