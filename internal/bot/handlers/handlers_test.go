package handlers

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/bot/keyboard"
	"github.com/Proton-105/leave-bot/internal/domain"
	"github.com/Proton-105/leave-bot/internal/i18n"
	"github.com/Proton-105/leave-bot/internal/roles"
	"github.com/Proton-105/leave-bot/internal/state"
	"github.com/Proton-105/leave-bot/internal/workflow"
	"github.com/Proton-105/leave-bot/pkg/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMessage struct {
	what interface{}
	opts []interface{}
}

// fakeContext implements the parts of telebot.Context the handlers touch.
type fakeContext struct {
	telebot.Context

	sender    *telebot.User
	chat      *telebot.Chat
	callback  *telebot.Callback
	message   *telebot.Message
	text      string
	store     map[string]interface{}
	sent      []sentMessage
	responses []*telebot.CallbackResponse
}

func newPrivateContext(userID int64) *fakeContext {
	return &fakeContext{
		sender: &telebot.User{ID: userID, LanguageCode: "en"},
		chat:   &telebot.Chat{ID: userID, Type: telebot.ChatPrivate},
		store:  make(map[string]interface{}),
	}
}

func (c *fakeContext) withCallback(data string) *fakeContext {
	c.callback = &telebot.Callback{ID: "cb-1", Data: data}
	c.message = &telebot.Message{ID: 10, Chat: c.chat}
	return c
}

func (c *fakeContext) Sender() *telebot.User         { return c.sender }
func (c *fakeContext) Chat() *telebot.Chat           { return c.chat }
func (c *fakeContext) Callback() *telebot.Callback   { return c.callback }
func (c *fakeContext) Message() *telebot.Message     { return c.message }
func (c *fakeContext) Text() string                  { return c.text }
func (c *fakeContext) Get(key string) interface{}    { return c.store[key] }
func (c *fakeContext) Set(key string, v interface{}) { c.store[key] = v }

func (c *fakeContext) Send(what interface{}, opts ...interface{}) error {
	c.sent = append(c.sent, sentMessage{what: what, opts: opts})
	return nil
}

func (c *fakeContext) Respond(resp ...*telebot.CallbackResponse) error {
	var r *telebot.CallbackResponse
	if len(resp) > 0 {
		r = resp[0]
	}
	c.responses = append(c.responses, r)
	return nil
}

type fakeMessenger struct {
	sent   []telebot.Recipient
	edited []*telebot.ReplyMarkup
}

func (m *fakeMessenger) Send(to telebot.Recipient, _ interface{}, _ ...interface{}) (*telebot.Message, error) {
	m.sent = append(m.sent, to)
	return &telebot.Message{}, nil
}

func (m *fakeMessenger) EditReplyMarkup(_ telebot.Editable, markup *telebot.ReplyMarkup) (*telebot.Message, error) {
	m.edited = append(m.edited, markup)
	return &telebot.Message{}, nil
}

type recordingProcessor struct {
	mu     sync.Mutex
	events []workflow.Event
	prompt workflow.Prompt
}

func (p *recordingProcessor) Process(_ context.Context, ev workflow.Event) workflow.Prompt {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.prompt
}

func newResponder(t *testing.T, messenger Messenger) *Responder {
	t.Helper()

	texts, err := i18n.Load("en")
	require.NoError(t, err)
	return NewResponder(messenger, nil, texts, testLogger())
}

func TestParseFormText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		vt       domain.VacationType
		duration string
		reason   string
	}{
		{name: "two lines", text: "3\nfamily trip", vt: domain.VacationDays, duration: "3", reason: "family trip"},
		{name: "multi-line reason", text: "45\ndoctor\nappointment", vt: domain.VacationMinutes, duration: "45", reason: "doctor\nappointment"},
		{name: "single line", text: "2 moving house", vt: domain.VacationDays, duration: "2", reason: "moving house"},
		{name: "duration only", text: " 5 ", vt: domain.VacationDays, duration: "5", reason: ""},
		{name: "empty", text: "", vt: domain.VacationMinutes, duration: "", reason: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := ParseFormText(tt.text, tt.vt)
			assert.Equal(t, tt.duration, fields[workflow.DurationField(tt.vt)])
			assert.Equal(t, tt.reason, fields[workflow.FieldReason])
			assert.Len(t, fields, 2)
		})
	}
}

func TestResponder_EntryPromptGoesToOriginatingChat(t *testing.T) {
	messenger := &fakeMessenger{}
	r := newResponder(t, messenger)

	c := newPrivateContext(1)
	c.chat = &telebot.Chat{ID: -100, Type: telebot.ChatGroup}

	err := r.Render(c, workflow.ShowEntryPrompt{Title: "Leave", Description: "Press", ButtonID: workflow.StepRequestLeave, ButtonLabel: "Request"})
	require.NoError(t, err)

	require.Len(t, c.sent, 1)
	assert.Equal(t, "Leave\n\nPress", c.sent[0].what)
	markup, ok := c.sent[0].opts[0].(*telebot.ReplyMarkup)
	require.True(t, ok)
	assert.Equal(t, "request_leave", markup.InlineKeyboard[0][0].Data)
	assert.Empty(t, messenger.sent)
}

func TestResponder_MenusArePrivateInGroups(t *testing.T) {
	messenger := &fakeMessenger{}
	r := newResponder(t, messenger)

	c := newPrivateContext(7).withCallback("request_leave")
	c.chat = &telebot.Chat{ID: -100, Type: telebot.ChatSuperGroup}

	err := r.Render(c, workflow.ShowTypeMenu{MenuID: workflow.StepSelectVacationType, Title: "Choose", Options: []workflow.MenuOption{{Value: "days", Label: "Days"}}})
	require.NoError(t, err)

	assert.Empty(t, c.sent)
	require.Len(t, messenger.sent, 1)
	assert.Equal(t, "7", messenger.sent[0].Recipient())
	require.Len(t, c.responses, 1, "callback must be answered once")
	assert.Nil(t, c.responses[0])
}

func TestResponder_EphemeralMessage(t *testing.T) {
	t.Run("callback alert", func(t *testing.T) {
		r := newResponder(t, nil)
		c := newPrivateContext(1).withCallback("select_role:Lead")

		require.NoError(t, r.Render(c, workflow.ShowEphemeralMessage{Text: "❌ nope"}))

		require.Len(t, c.responses, 1)
		require.NotNil(t, c.responses[0])
		assert.Equal(t, "❌ nope", c.responses[0].Text)
		assert.True(t, c.responses[0].ShowAlert)
		assert.Empty(t, c.sent)
	})

	t.Run("follow-up after callback was answered", func(t *testing.T) {
		r := newResponder(t, nil)
		c := newPrivateContext(1).withCallback("select_role:Lead")
		MarkResponded(c)

		require.NoError(t, r.Render(c, workflow.ShowEphemeralMessage{Text: "❌ nope"}))

		assert.Empty(t, c.responses)
		require.Len(t, c.sent, 1)
		assert.Equal(t, "❌ nope", c.sent[0].what)
	})

	t.Run("message update", func(t *testing.T) {
		r := newResponder(t, nil)
		c := newPrivateContext(1)

		require.NoError(t, r.Render(c, workflow.ShowEphemeralMessage{Text: "done"}))
		require.Len(t, c.sent, 1)
		assert.Empty(t, c.responses)
	})
}

func TestResponder_FormUsesForceReply(t *testing.T) {
	r := newResponder(t, nil)
	c := newPrivateContext(1).withCallback("select_role:Lead")

	err := r.Render(c, workflow.ShowForm{Title: "Leave request", DurationLabel: "Duration (days)", ReasonLabel: "Reason"})
	require.NoError(t, err)

	require.Len(t, c.sent, 1)
	assert.Contains(t, c.sent[0].what, "Duration (days)")
	markup, ok := c.sent[0].opts[0].(*telebot.ReplyMarkup)
	require.True(t, ok)
	assert.True(t, markup.ForceReply)
}

func TestLeaveHandler_CallbackEvents(t *testing.T) {
	tests := []struct {
		data string
		want workflow.Event
	}{
		{data: "request_leave", want: workflow.ButtonActivated{UserID: "5", ButtonID: workflow.StepRequestLeave, Lang: "en"}},
		{data: "select_vacation_type:minutes", want: workflow.MenuSelected{UserID: "5", MenuID: workflow.StepSelectVacationType, Value: "minutes", Lang: "en"}},
		{data: "select_role:Team:Lead", want: workflow.MenuSelected{UserID: "5", MenuID: workflow.StepSelectRole, Value: "Team:Lead", Lang: "en"}},
		{data: "\fsomething_else", want: workflow.ButtonActivated{UserID: "5", ButtonID: "something_else", Lang: "en"}},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			processor := &recordingProcessor{}
			h := NewLeaveHandler(processor, newResponder(t, nil), nil, testLogger())
			c := newPrivateContext(5).withCallback(tt.data)

			require.NoError(t, h.Callback(c))
			require.Len(t, processor.events, 1)
			assert.Equal(t, tt.want, processor.events[0])
			assert.Len(t, c.responses, 1)
		})
	}
}

func TestLeaveHandler_FormUsesPendingVacationType(t *testing.T) {
	processor := &recordingProcessor{prompt: workflow.ShowEphemeralMessage{Text: "✅"}}
	h := NewLeaveHandler(processor, newResponder(t, nil), nil, testLogger())

	pending, err := state.NewAwaitingRole("5", domain.VacationMinutes)
	require.NoError(t, err)
	pending, err = pending.WithRole("Lead")
	require.NoError(t, err)

	c := newPrivateContext(5)
	c.text = "30\nbank"
	SetPending(c, pending)

	require.NoError(t, h.Form(c))

	require.Len(t, processor.events, 1)
	ev, ok := processor.events[0].(workflow.FormSubmitted)
	require.True(t, ok)
	assert.Equal(t, workflow.StepVacationForm, ev.FormID)
	assert.Equal(t, "30", ev.Fields[workflow.FieldDurationMinutes])
	assert.Equal(t, "bank", ev.Fields[workflow.FieldReason])

	require.Len(t, c.sent, 1)
	markup, ok := c.sent[0].opts[0].(*telebot.ReplyMarkup)
	require.True(t, ok)
	assert.True(t, markup.RemoveKeyboard)
}

func TestLeaveHandler_FormIgnoresGroupChatter(t *testing.T) {
	pending, err := state.NewAwaitingRole("5", domain.VacationMinutes)
	require.NoError(t, err)
	pending, err = pending.WithRole("Member")
	require.NoError(t, err)

	group := &telebot.Chat{ID: -100, Type: telebot.ChatSuperGroup}

	t.Run("plain group message", func(t *testing.T) {
		processor := &recordingProcessor{}
		h := NewLeaveHandler(processor, newResponder(t, &fakeMessenger{}), nil, testLogger())

		c := newPrivateContext(5)
		c.chat = group
		c.text = "5 minutes late sorry everyone"
		c.message = &telebot.Message{ID: 3, Chat: group, Text: c.text}
		SetPending(c, pending)

		require.NoError(t, h.Form(c))
		assert.Empty(t, processor.events)
		assert.Empty(t, c.sent)
	})

	t.Run("reply to the bot in a group", func(t *testing.T) {
		processor := &recordingProcessor{prompt: workflow.ShowEphemeralMessage{Text: "✅"}}
		messenger := &fakeMessenger{}
		h := NewLeaveHandler(processor, newResponder(t, messenger), nil, testLogger())

		c := newPrivateContext(5)
		c.chat = group
		c.text = "15\ndentist"
		c.message = &telebot.Message{
			ID:      4,
			Chat:    group,
			Text:    c.text,
			ReplyTo: &telebot.Message{ID: 2, Sender: &telebot.User{ID: 99, IsBot: true}},
		}
		SetPending(c, pending)

		require.NoError(t, h.Form(c))
		require.Len(t, processor.events, 1)
		assert.Empty(t, c.sent)
		require.Len(t, messenger.sent, 1)
	})
}

func TestLeaveHandler_RolesPageEditsMarkup(t *testing.T) {
	entries := make([]config.RoleEntry, 0, keyboard.RolesPerPage+2)
	for i := 0; i < keyboard.RolesPerPage+2; i++ {
		entries = append(entries, config.RoleEntry{ID: string(rune('a' + i))})
	}
	provider := roles.NewStaticProvider(config.RolesConfig{Source: "static", Default: entries})

	messenger := &fakeMessenger{}
	h := NewLeaveHandler(&recordingProcessor{}, newResponder(t, messenger), provider, testLogger())
	c := newPrivateContext(5).withCallback("roles_page:2")

	require.NoError(t, h.RolesPage(c))

	require.Len(t, messenger.edited, 1)
	markup := messenger.edited[0]
	require.Len(t, markup.InlineKeyboard, 3)
	assert.Equal(t, "select_role:i", markup.InlineKeyboard[0][0].Data)
	assert.Len(t, c.responses, 1)
}
