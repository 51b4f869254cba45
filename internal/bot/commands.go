package bot

import "strings"

// Command constants for Telegram bot commands.
const (
	CommandStart    = "/start"
	CommandVacation = "/vacation"
	CommandCancel   = "/cancel"
)

// normalizeCommand strips arguments and the @botname suffix from a command message.
func normalizeCommand(text string) string {
	cmd, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd)
}
