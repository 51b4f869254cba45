package bot

import (
	"errors"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/bot/handlers"
	"github.com/Proton-105/leave-bot/internal/state"
)

// Dispatcher routes free-text updates to the handler registered for the user's pending state.
type Dispatcher struct {
	storage       state.Storage
	stateHandlers map[state.State]handlers.Handler
	log           *slog.Logger
	mu            sync.RWMutex
}

// NewDispatcher creates a Dispatcher with an empty handlers registry.
func NewDispatcher(storage state.Storage, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		storage:       storage,
		stateHandlers: make(map[state.State]handlers.Handler),
		log:           log,
	}
}

// RegisterStateHandler registers a handler for the provided state.
func (d *Dispatcher) RegisterStateHandler(s state.State, h handlers.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateHandlers[s] = h
}

// Resolve looks up the user's pending request and returns the handler for its state, or nil.
// The pending request is attached to c for the handler. Group messages that do not reply to
// the bot never resolve.
func (d *Dispatcher) Resolve(c telebot.Context) (handlers.Handler, error) {
	userID := handlers.UserID(c)
	if userID == "" || d.storage == nil || !handlers.DirectedAtBot(c) {
		return nil, nil
	}

	current := state.StateIdle
	pending, err := d.storage.Get(handlers.Context(c), userID)
	switch {
	case err == nil:
		current = pending.State
		handlers.SetPending(c, pending)
	case !errors.Is(err, state.ErrStateNotFound):
		return nil, err
	}

	handler := d.getHandler(current)
	if handler == nil {
		d.log.Debug("no handler registered for state", slog.String("state", string(current)), slog.String("user_id", userID))
	}
	return handler, nil
}

func (d *Dispatcher) getHandler(s state.State) handlers.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stateHandlers[s]
}
