package models

import (
	"strings"
	"time"
)

// Student represents a customer identified by a Telegram handle.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	GroupName string    `db:"group_name" json:"group"`
	Telegram  string    `db:"telegram" json:"telegram"`
	ChatID    *string   `db:"chat_id" json:"chat_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NormalizeHandle strips the leading "@" marker from a Telegram handle.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}
