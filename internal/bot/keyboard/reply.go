package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// FormReply forces the client to answer the form message, showing placeholder in the input field.
func FormReply(placeholder string) *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{
		ForceReply:  true,
		Selective:   true,
		Placeholder: placeholder,
	}
}

// RemoveReply clears a previously forced reply.
func RemoveReply() *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{RemoveKeyboard: true}
}
