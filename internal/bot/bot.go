package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/bot/handlers"
	"github.com/Proton-105/leave-bot/internal/bot/keyboard"
	errors "github.com/Proton-105/leave-bot/internal/errors"
	"github.com/Proton-105/leave-bot/internal/i18n"
	"github.com/Proton-105/leave-bot/internal/idempotency"
	"github.com/Proton-105/leave-bot/internal/middleware"
	"github.com/Proton-105/leave-bot/internal/roles"
	"github.com/Proton-105/leave-bot/internal/state"
	"github.com/Proton-105/leave-bot/internal/workflow"
	"github.com/Proton-105/leave-bot/pkg/config"
)

// Deps groups the collaborators the bot routes updates to.
type Deps struct {
	Engine      handlers.Processor
	Pending     state.Storage
	Roles       roles.Provider
	Texts       *i18n.Manager
	ErrHandler  *errors.Handler
	Idempotency *idempotency.Manager
	RateLimit   *middleware.RateLimitMiddleware
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	cfg        config.Config
	deps       Deps
	router     *Router
	dispatcher *Dispatcher
	keyboard   *keyboard.Builder
	responder  *handlers.Responder
}

// New builds a telegram bot instance configured according to the application settings.
func New(cfg config.Config, log *slog.Logger, deps Deps) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token:   cfg.Bot.Token,
		OnError: onError(log),
	}

	if cfg.Bot.Mode == "webhook" {
		webhook := &telebot.Webhook{Listen: cfg.Bot.Webhook.Listen}
		if cfg.Bot.Webhook.PublicURL != "" {
			webhook.Endpoint = &telebot.WebhookEndpoint{PublicURL: cfg.Bot.Webhook.PublicURL}
		}
		settings.Poller = webhook
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	return newBot(tb, cfg, log, deps), nil
}

func newBot(tb *telebot.Bot, cfg config.Config, log *slog.Logger, deps Deps) *Bot {
	kb := keyboard.NewBuilder(log)
	dispatcher := NewDispatcher(deps.Pending, log)

	var messenger handlers.Messenger
	if tb != nil {
		messenger = tb
	}

	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        cfg,
		deps:       deps,
		router:     NewRouter(dispatcher, log),
		dispatcher: dispatcher,
		keyboard:   kb,
		responder:  handlers.NewResponder(messenger, kb, deps.Texts, log),
	}

	b.setupRouter()
	b.registerTelebotHandlers()

	return b
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.log.Info("telegram bot started", slog.String("username", b.telebot.Me.Username))
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// Router exposes the update router.
func (b *Bot) Router() *Router {
	return b.router
}

func (b *Bot) setupRouter() {
	b.router.Use(ContextMiddleware(0))
	b.router.Use(RecoveryMiddleware(b.log, b.deps.ErrHandler, b.deps.Texts, b.responder))
	b.router.Use(ErrorHandlingMiddleware(b.deps.ErrHandler, b.deps.Texts, b.responder))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Metrics)
	b.router.Use(middleware.Idempotency(b.deps.Idempotency, b.log))
	if b.deps.RateLimit != nil {
		b.router.UseResolved(b.deps.RateLimit.Handle(b.responder))
	}

	start := handlers.NewStartHandler(b.deps.Engine, b.responder, b.log)
	b.router.RegisterCommand(CommandStart, start)
	b.router.RegisterCommand(CommandVacation, start)
	b.router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(b.deps.Engine, b.responder, b.log))

	leave := handlers.NewLeaveHandler(b.deps.Engine, b.responder, b.deps.Roles, b.log)
	b.router.RegisterCallback(workflow.StepRequestLeave, leave.Callback)
	b.router.RegisterCallback(workflow.StepSelectVacationType, leave.Callback)
	b.router.RegisterCallback(workflow.StepSelectRole, leave.Callback)
	b.router.RegisterCallback(keyboard.CallbackRolesPage, leave.RolesPage)
	b.router.SetDefaultCallback(leave.Callback)

	b.dispatcher.RegisterStateHandler(state.StateAwaitingForm, leave.Form)
}

func (b *Bot) registerTelebotHandlers() {
	if b.telebot == nil {
		return
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}

func onError(log *slog.Logger) func(error, telebot.Context) {
	return func(err error, c telebot.Context) {
		attrs := []any{slog.Any("error", err)}
		if c != nil && c.Sender() != nil {
			attrs = append(attrs, slog.Int64("user_id", c.Sender().ID))
		}
		log.Error("telebot error", attrs...)
	}
}
