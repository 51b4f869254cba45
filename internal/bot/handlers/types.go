package handlers

import (
	"context"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/state"
	"github.com/Proton-105/leave-bot/internal/workflow"
)

// Handler processes a routed update.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Notifier shows a short notice to the user behind an update without posting it to a shared chat.
type Notifier interface {
	Notify(c telebot.Context, text string) error
}

// Processor runs one workflow event and returns the prompt to render.
type Processor interface {
	Process(ctx context.Context, ev workflow.Event) workflow.Prompt
}

const (
	contextKey   = "request_context"
	pendingKey   = "pending_request"
	respondedKey = "callback_responded"
)

// SetContext attaches the per-update context to c.
func SetContext(c telebot.Context, ctx context.Context) {
	c.Set(contextKey, ctx)
}

// Context returns the per-update context, or context.Background when none was attached.
func Context(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(contextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// SetPending attaches the user's pending request looked up during dispatch.
func SetPending(c telebot.Context, p *state.PendingRequest) {
	c.Set(pendingKey, p)
}

// Pending returns the pending request attached by the dispatcher, if any.
func Pending(c telebot.Context) *state.PendingRequest {
	p, _ := c.Get(pendingKey).(*state.PendingRequest)
	return p
}

// MarkResponded records that the callback query of c has been answered.
func MarkResponded(c telebot.Context) {
	c.Set(respondedKey, true)
}

// Responded reports whether the callback query of c has already been answered.
func Responded(c telebot.Context) bool {
	responded, _ := c.Get(respondedKey).(bool)
	return responded
}

// UserID returns the sender's id in the form used by the workflow.
func UserID(c telebot.Context) string {
	if c == nil || c.Sender() == nil {
		return ""
	}
	return strconv.FormatInt(c.Sender().ID, 10)
}

// Lang returns the sender's client language.
func Lang(c telebot.Context) string {
	if c == nil || c.Sender() == nil {
		return ""
	}
	return c.Sender().LanguageCode
}
