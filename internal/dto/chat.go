package dto

import "encoding/json"

// SaveChatIDRequest registers a student's messaging chat id. The chat id
// arrives as a number from the bot and as a string from older clients.
type SaveChatIDRequest struct {
	TelegramUsername string      `json:"telegram_username" validate:"required"`
	ChatID           json.Number `json:"chat_id" validate:"required"`
	FirstName        string      `json:"first_name"`
	LastName         string      `json:"last_name"`
}
