package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender delivers messages and documents to a chat target.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	SendDocument(ctx context.Context, doc Document) error
}

// NewAPIClient builds the HTTP client for outbound bot API calls. tgbotapi
// has no context support, so the send timeout lives on the client itself.
func NewAPIClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// TelegramSender delivers messages through the Telegram Bot API.
type TelegramSender struct {
	api       *tgbotapi.BotAPI
	webAppURL string
}

// NewTelegramSender wraps an authorized bot client.
func NewTelegramSender(api *tgbotapi.BotAPI, webAppURL string) *TelegramSender {
	return &TelegramSender{api: api, webAppURL: webAppURL}
}

// Send delivers one message, attaching the standard reply keyboard for
// user-bound notifications.
func (s *TelegramSender) Send(ctx context.Context, msg Message) error {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse chat id %q: %w", msg.ChatID, err)
	}

	out := tgbotapi.NewMessage(chatID, msg.Text)
	out.ParseMode = tgbotapi.ModeHTML
	if msg.WithKeyboard {
		out.ReplyMarkup = MenuKeyboard(s.webAppURL, msg.Handle)
	}

	if _, err := s.api.Send(out); err != nil {
		return fmt.Errorf("telegram send to %s: %w", msg.ChatID, err)
	}
	return nil
}

// SendDocument uploads one stored file to the chat.
func (s *TelegramSender) SendDocument(_ context.Context, doc Document) error {
	chatID, err := strconv.ParseInt(doc.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse chat id %q: %w", doc.ChatID, err)
	}

	out := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(doc.Path))
	if _, err := s.api.Send(out); err != nil {
		return fmt.Errorf("telegram document %s to %s: %w", doc.Filename, doc.ChatID, err)
	}
	return nil
}

// MenuKeyboard builds the persistent reply keyboard attached to user
// notifications and bot menus.
func MenuKeyboard(webAppURL, handle string) tgbotapi.ReplyKeyboardMarkup {
	appButton := tgbotapi.KeyboardButton{
		Text:   "📱 Открыть приложение",
		WebApp: &tgbotapi.WebAppInfo{URL: fmt.Sprintf("%s?telegram=%s", webAppURL, handle)},
	}
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(appButton),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("💬 Техподдержка"),
			tgbotapi.NewKeyboardButton("📥 Скачать файлы"),
		),
	)
	keyboard.ResizeKeyboard = true
	keyboard.InputFieldPlaceholder = "Выберите действие из меню ниже"
	return keyboard
}

// LogSender writes notifications to the log instead of delivering them.
// Used when no bot token is configured, mirroring console-only mode.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a console-only sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message body.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Sugar().Infow("notification (console only)", "chat_id", msg.ChatID, "text", msg.Text)
	return nil
}

// SendDocument logs the would-be file delivery.
func (s *LogSender) SendDocument(_ context.Context, doc Document) error {
	s.logger.Sugar().Infow("document delivery (console only)", "chat_id", doc.ChatID, "file", doc.Filename)
	return nil
}
