// Package keyboard renders the workflow menus as Telegram inline keyboards.
package keyboard

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/leave-bot/internal/domain"
	"github.com/Proton-105/leave-bot/internal/i18n"
	"github.com/Proton-105/leave-bot/internal/workflow"
)

const (
	// RolesPerPage is how many role buttons fit on one page of the role menu.
	RolesPerPage = 8
	// CallbackRolesPage navigates between role menu pages.
	CallbackRolesPage = "roles_page"
)

// Builder creates the inline keyboards for each workflow prompt.
type Builder struct {
	log *slog.Logger
}

func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// Entry builds the single "request leave" button.
func (b *Builder) Entry(p workflow.ShowEntryPrompt) (*telebot.ReplyMarkup, error) {
	return NewInlineKeyboard().
		AddRow(InlineButton{Text: p.ButtonLabel, Unique: p.ButtonID}).
		Build()
}

// TypeMenu builds one button per vacation type on a single row.
func (b *Builder) TypeMenu(p workflow.ShowTypeMenu) (*telebot.ReplyMarkup, error) {
	row := make([]InlineButton, 0, len(p.Options))
	for _, option := range p.Options {
		row = append(row, InlineButton{Text: option.Label, Unique: p.MenuID, Data: option.Value})
	}

	return NewInlineKeyboard().AddRow(row...).Build()
}

// RoleMenu builds one role per row for the requested page, followed by navigation when needed.
func (b *Builder) RoleMenu(t i18n.Translator, menuID string, roles []domain.Role, page int) (*telebot.ReplyMarkup, error) {
	totalPages := PageCount(len(roles), RolesPerPage)
	page = clampPage(page, totalPages)

	start := (page - 1) * RolesPerPage
	end := start + RolesPerPage
	if end > len(roles) {
		end = len(roles)
	}

	kb := NewInlineKeyboard()
	for _, role := range roles[start:end] {
		kb.AddRow(InlineButton{Text: role.Label, Unique: menuID, Data: role.ID})
	}
	if totalPages > 1 {
		kb.AddRow(PaginationButtons(t, CallbackRolesPage, page, totalPages)...)
	}

	markup, err := kb.Build()
	if err != nil {
		b.log.Error("failed to build role menu", slog.Int("roles", len(roles)), slog.Any("error", err))
		return nil, fmt.Errorf("build role menu: %w", err)
	}

	return markup, nil
}
