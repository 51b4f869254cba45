package workflow

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/Proton-105/leave-bot/internal/domain"
	errors "github.com/Proton-105/leave-bot/internal/errors"
	"github.com/Proton-105/leave-bot/internal/i18n"
	"github.com/Proton-105/leave-bot/internal/roles"
	"github.com/Proton-105/leave-bot/internal/state"
	"github.com/Proton-105/leave-bot/pkg/metrics"
)

// ErrUnknownStep is returned for events whose step identifier the engine does not handle.
var ErrUnknownStep = stdErrors.New("unknown workflow step")

const defaultLockWait = 5 * time.Second

// RequestStore persists completed requests.
type RequestStore interface {
	Put(ctx context.Context, userID string, record domain.LeaveRequest) error
}

// Engine advances each user's pending request one event at a time.
type Engine struct {
	pending    state.Storage
	locker     state.Locker
	store      RequestStore
	roles      roles.Provider
	texts      *i18n.Manager
	errHandler *errors.Handler
	log        *slog.Logger
	lockWait   time.Duration
}

func NewEngine(
	pending state.Storage,
	locker state.Locker,
	store RequestStore,
	roleProvider roles.Provider,
	texts *i18n.Manager,
	errHandler *errors.Handler,
	log *slog.Logger,
) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if locker == nil {
		locker = state.NewMemoryLocker()
	}
	if errHandler == nil {
		errHandler = errors.NewHandler(log, false)
	}

	return &Engine{
		pending:    pending,
		locker:     locker,
		store:      store,
		roles:      roleProvider,
		texts:      texts,
		errHandler: errHandler,
		log:        log,
		lockWait:   defaultLockWait,
	}
}

// Process handles ev and never fails: errors and panics become a private message to the user.
// It returns nil only for events with an unknown step.
func (e *Engine) Process(ctx context.Context, ev Event) (prompt Prompt) {
	started := time.Now()
	step := StepOf(ev)
	status := "ok"

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("panic while handling workflow event",
				slog.String("step", step),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			status = "panic"
			prompt = e.failure(ctx, ev, errors.NewInternalError(fmt.Errorf("panic: %v", r)))
		}
		metrics.RecordEvent(step, status, time.Since(started))
	}()

	prompt, err := e.Handle(ctx, ev)
	switch {
	case err == nil:
		return prompt
	case stdErrors.Is(err, ErrUnknownStep):
		status = "ignored"
		e.log.Warn("ignoring event with unknown step", slog.String("step", step))
		return nil
	default:
		status = "error"
		return e.failure(ctx, ev, err)
	}
}

// Handle runs ev under the user's lock and returns the prompt to render.
func (e *Engine) Handle(ctx context.Context, ev Event) (Prompt, error) {
	if ev == nil {
		return nil, ErrUnknownStep
	}

	userID := strings.TrimSpace(ev.userID())
	if userID == "" {
		return nil, errors.NewInternalError(stdErrors.New("event without user id"))
	}

	lockCtx, cancel := context.WithTimeout(ctx, e.lockWait)
	unlock, err := e.locker.Lock(lockCtx, userID)
	cancel()
	if err != nil {
		return nil, errors.NewLockedError(err)
	}
	defer unlock()

	tr := e.texts.Translator(ev.lang())
	log := e.log.With(slog.String("user_id", userID), slog.String("step", ev.step()))

	switch ev := ev.(type) {
	case StartCommand:
		return e.entryPrompt(tr), nil
	case CancelCommand:
		return e.cancel(ctx, log, tr, userID)
	case ButtonActivated:
		if ev.ButtonID != StepRequestLeave {
			return nil, fmt.Errorf("%w: button %q", ErrUnknownStep, ev.ButtonID)
		}
		return e.typeMenu(tr), nil
	case MenuSelected:
		switch ev.MenuID {
		case StepSelectVacationType:
			return e.selectVacationType(ctx, log, tr, userID, ev.Value)
		case StepSelectRole:
			return e.selectRole(ctx, log, tr, userID, ev.Value)
		}
		return nil, fmt.Errorf("%w: menu %q", ErrUnknownStep, ev.MenuID)
	case FormSubmitted:
		if ev.FormID != StepVacationForm {
			return nil, fmt.Errorf("%w: form %q", ErrUnknownStep, ev.FormID)
		}
		return e.submitForm(ctx, log, tr, userID, ev.Fields)
	}

	return nil, fmt.Errorf("%w: %T", ErrUnknownStep, ev)
}

func (e *Engine) selectVacationType(ctx context.Context, log *slog.Logger, tr i18n.Translator, userID, value string) (Prompt, error) {
	vt, err := domain.ParseVacationType(value)
	if err != nil {
		return nil, errors.NewUnknownOptionError(err.Error())
	}

	assignable, err := e.roles.AssignableRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("enumerate roles: %w", err)
	}
	if len(assignable) == 0 {
		return nil, errors.NewNoRolesError(userID)
	}

	previous := state.StateIdle
	if current, err := e.pending.Get(ctx, userID); err == nil {
		previous = current.State
	} else if !stdErrors.Is(err, state.ErrStateNotFound) {
		return nil, errors.NewStorageError(err)
	}

	next, err := state.NewAwaitingRole(userID, vt)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if err := e.pending.Set(ctx, next); err != nil {
		return nil, errors.NewStorageError(err)
	}
	state.RecordTransition(previous, next.State)
	log.Debug("vacation type selected", slog.String("vacation_type", string(vt)))

	return ShowRoleMenu{
		MenuID:      StepSelectRole,
		Title:       tr.T("leave.role_menu.title"),
		Description: tr.T("leave.role_menu.description"),
		Roles:       assignable,
	}, nil
}

func (e *Engine) selectRole(ctx context.Context, log *slog.Logger, tr i18n.Translator, userID, roleID string) (Prompt, error) {
	current, err := e.pending.Get(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, state.ErrStateNotFound) {
			return nil, errors.NewIncompleteRequestError("role selected without pending request")
		}
		return nil, errors.NewStorageError(err)
	}
	if !current.VacationType.Valid() {
		return nil, errors.NewTypeNotSelectedError()
	}

	assignable, err := e.roles.AssignableRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("enumerate roles: %w", err)
	}
	if !containsRole(assignable, roleID) {
		return nil, errors.NewUnknownOptionError(fmt.Sprintf("role %q is not assignable", roleID))
	}

	next, err := current.WithRole(roleID)
	if err != nil {
		return nil, errors.NewIncompleteRequestError(err.Error())
	}
	if err := e.pending.Set(ctx, next); err != nil {
		return nil, errors.NewStorageError(err)
	}
	state.RecordTransition(current.State, next.State)
	log.Debug("role selected", slog.String("role_id", next.RoleID))

	return e.form(tr, next.VacationType), nil
}

func (e *Engine) submitForm(ctx context.Context, log *slog.Logger, tr i18n.Translator, userID string, fields map[string]string) (Prompt, error) {
	current, err := e.pending.Get(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, state.ErrStateNotFound) {
			return nil, errors.NewIncompleteRequestError("form submitted without pending request")
		}
		return nil, errors.NewStorageError(err)
	}
	if current.State != state.StateAwaitingForm {
		return nil, errors.NewIncompleteRequestError(fmt.Sprintf("form submitted in state %s", current.State))
	}
	if err := current.Validate(); err != nil {
		return nil, errors.NewIncompleteRequestError(err.Error())
	}

	duration, err := ParseDuration(fields[DurationField(current.VacationType)])
	if err != nil {
		return nil, errors.NewValidationError(err.Error(), err)
	}

	reason := strings.TrimSpace(fields[FieldReason])
	if reason == "" {
		return nil, errors.NewEmptyReasonError()
	}

	record := domain.LeaveRequest{
		UserID:       userID,
		RoleID:       current.RoleID,
		Duration:     duration,
		Reason:       reason,
		VacationType: current.VacationType,
		Status:       domain.StatusPending,
	}
	if err := e.store.Put(ctx, userID, record); err != nil {
		return nil, err
	}

	if err := e.pending.Delete(ctx, userID); err != nil {
		log.Warn("failed to clear pending request after submit", slog.Any("error", err))
	}
	state.RecordTransition(current.State, state.StateIdle)
	log.Info("leave request submitted",
		slog.String("vacation_type", string(record.VacationType)),
		slog.Int("duration", record.Duration),
		slog.String("role_id", record.RoleID),
	)

	return ShowEphemeralMessage{Text: tr.T("leave.submitted")}, nil
}

func (e *Engine) cancel(ctx context.Context, log *slog.Logger, tr i18n.Translator, userID string) (Prompt, error) {
	current, err := e.pending.Get(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, state.ErrStateNotFound) {
			return ShowEphemeralMessage{Text: tr.T("leave.nothing_to_cancel")}, nil
		}
		return nil, errors.NewStorageError(err)
	}

	if err := e.pending.Delete(ctx, userID); err != nil {
		return nil, errors.NewStorageError(err)
	}
	state.RecordTransition(current.State, state.StateIdle)
	log.Info("leave request cancelled", slog.String("state", string(current.State)))

	return ShowEphemeralMessage{Text: tr.T("leave.cancelled")}, nil
}

// ParseDuration accepts a base-10 integer greater than zero, surrounded by optional whitespace.
func ParseDuration(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidDuration, raw)
	}
	return value, nil
}

func (e *Engine) entryPrompt(tr i18n.Translator) Prompt {
	return ShowEntryPrompt{
		Title:       tr.T("leave.entry.title"),
		Description: tr.T("leave.entry.description"),
		ButtonID:    StepRequestLeave,
		ButtonLabel: tr.T("leave.entry.button"),
	}
}

func (e *Engine) typeMenu(tr i18n.Translator) Prompt {
	return ShowTypeMenu{
		MenuID:      StepSelectVacationType,
		Title:       tr.T("leave.type_menu.title"),
		Description: tr.T("leave.type_menu.description"),
		Placeholder: tr.T("leave.type_menu.placeholder"),
		Options: []MenuOption{
			{Value: string(domain.VacationMinutes), Label: tr.T("leave.type.minutes")},
			{Value: string(domain.VacationDays), Label: tr.T("leave.type.days")},
		},
	}
}

func (e *Engine) form(tr i18n.Translator, vt domain.VacationType) Prompt {
	durationLabel := tr.T("leave.form.duration_days")
	if vt == domain.VacationMinutes {
		durationLabel = tr.T("leave.form.duration_minutes")
	}

	return ShowForm{
		FormID:        StepVacationForm,
		Title:         tr.T("leave.form.title"),
		VacationType:  vt,
		DurationField: DurationField(vt),
		DurationLabel: durationLabel,
		ReasonField:   FieldReason,
		ReasonLabel:   tr.T("leave.form.reason"),
		Hint:          tr.T("leave.form.hint"),
	}
}

func (e *Engine) failure(ctx context.Context, ev Event, err error) Prompt {
	appErr := e.errHandler.Handle(ctx, err)

	lang := ""
	if ev != nil {
		lang = ev.lang()
	}
	tr := e.texts.Translator(lang)

	text := appErr.UserMessage
	if appErr.Key != "" {
		if translated := tr.Tf(appErr.Key, appErr.Params...); translated != appErr.Key {
			text = translated
		}
	}

	return ShowEphemeralMessage{Text: text}
}

func containsRole(list []domain.Role, roleID string) bool {
	roleID = strings.TrimSpace(roleID)
	for _, role := range list {
		if role.ID == roleID {
			return true
		}
	}
	return false
}
