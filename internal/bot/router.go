package bot

import (
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/bot/handlers"
	"github.com/Proton-105/leave-bot/internal/bot/keyboard"
)

// Router dispatches commands, callbacks, and state-aware updates.
type Router struct {
	mu              sync.RWMutex
	commands        map[string]handlers.Handler
	callbacks       map[string]handlers.Handler
	dispatcher      *Dispatcher
	defaultCallback handlers.Handler
	middlewares     []handlers.Middleware
	resolved        []handlers.Middleware
	log             *slog.Logger
}

// NewRouter builds a Router with empty registries.
func NewRouter(dispatcher *Dispatcher, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:    make(map[string]handlers.Handler),
		callbacks:   make(map[string]handlers.Handler),
		dispatcher:  dispatcher,
		middlewares: make([]handlers.Middleware, 0),
		log:         log,
	}
}

// RegisterCommand registers a handler for a bot command.
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[strings.ToLower(cmd)] = h
}

// RegisterCallback registers a handler for callbacks whose unique identifier equals unique.
func (r *Router) RegisterCallback(unique string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[unique] = h
}

// SetDefaultCallback sets the handler for callbacks with no registered unique identifier.
func (r *Router) SetDefaultCallback(h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultCallback = h
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// UseResolved appends a middleware that only wraps updates matched to a registered handler.
// Ignored chatter and unknown callbacks bypass it.
func (r *Router) UseResolved(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, mw)
}

// Route directs the incoming update to the appropriate handler. The whole middleware chain
// wraps resolution so state lookups share the update's context.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	wrapped := r.applyMiddlewares(r.resolve)
	return wrapped(c)
}

func (r *Router) resolve(c telebot.Context) error {
	if callback := c.Callback(); callback != nil {
		return r.handleCallback(c, callback.Data)
	}

	return r.handleMessage(c)
}

func (r *Router) handleCallback(c telebot.Context, data string) error {
	handler := r.findCallbackHandler(data)
	if handler == nil {
		r.log.Info("no callback handler found", slog.String("data", data))
		return c.Respond()
	}

	return r.wrapResolved(handler)(c)
}

func (r *Router) handleMessage(c telebot.Context) error {
	text := c.Text()

	if strings.HasPrefix(text, "/") {
		if handler := r.getCommandHandler(normalizeCommand(text)); handler != nil {
			return r.wrapResolved(handler)(c)
		}
	}

	if r.dispatcher == nil {
		return nil
	}

	handler, err := r.dispatcher.Resolve(c)
	if err != nil || handler == nil {
		return err
	}

	return r.wrapResolved(handler)(c)
}

func (r *Router) findCallbackHandler(data string) handlers.Handler {
	unique, _, err := keyboard.DecodeCallback(data)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if err == nil {
		if handler, ok := r.callbacks[unique]; ok {
			return handler
		}
	}

	return r.defaultCallback
}

func (r *Router) getCommandHandler(cmd string) handlers.Handler {
	r.mu.RLock()
	handler := r.commands[cmd]
	r.mu.RUnlock()
	return handler
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	return chain(h, r.snapshot(&r.middlewares))
}

func (r *Router) wrapResolved(h handlers.Handler) handlers.Handler {
	return chain(h, r.snapshot(&r.resolved))
}

func chain(h handlers.Handler, middlewares []handlers.Middleware) handlers.Handler {
	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

func (r *Router) snapshot(list *[]handlers.Middleware) []handlers.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(*list) == 0 {
		return nil
	}

	snapshot := make([]handlers.Middleware, len(*list))
	copy(snapshot, *list)
	return snapshot
}
