package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Config carries bot wiring.
type Config struct {
	WebAppURL      string
	AdminChatID    string
	APIBaseURL     string
	APIPrefix      string
	SupportContact string
	PollTimeout    int
}

// apiURL joins the base URL, the service's API prefix and an endpoint path.
func (c Config) apiURL(path string) string {
	base := strings.TrimRight(c.APIBaseURL, "/")
	prefix := strings.Trim(c.APIPrefix, "/")
	if prefix != "" {
		base += "/" + prefix
	}
	return base + path
}

// Bot is the student-facing Telegram front-end. It greets users, shows the
// service rules, forwards support requests to the admin chat, and registers
// each user's chat id with the API so status notifications can reach them.
type Bot struct {
	api    *tgbotapi.BotAPI
	cfg    Config
	client *http.Client
	logger *zap.Logger

	mu              sync.RWMutex
	awaitingSupport map[int64]bool
}

// New constructs the bot around an authorized API client.
func New(api *tgbotapi.BotAPI, cfg Config, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60
	}
	return &Bot{
		api:             api,
		cfg:             cfg,
		client:          &http.Client{Timeout: 10 * time.Second},
		logger:          logger,
		awaitingSupport: make(map[int64]bool),
	}
}

// Run polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Sugar().Infow("bot started", "username", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.registerChat(ctx, message.From, message.Chat.ID)
			b.sendWelcome(message)
		case "help":
			b.sendHelp(message.Chat.ID, message.From)
		case "rules":
			b.sendRules(message.Chat.ID, 0)
		case "support":
			b.promptSupport(message.Chat.ID, message.From, 0)
		default:
			b.send(message.Chat.ID, "Неизвестная команда. Используйте /help для справки.", b.mainKeyboard(message.From))
		}
		return
	}

	if message.Text == "" {
		return
	}

	if b.isAwaitingSupport(message.From.ID) {
		b.forwardToSupport(message)
		return
	}

	// Reply-keyboard buttons arrive as plain text.
	switch message.Text {
	case "💬 Техподдержка":
		b.promptSupport(message.Chat.ID, message.From, 0)
	case "📥 Скачать файлы":
		b.sendCompletedOrders(ctx, message.Chat.ID, message.From)
	default:
		b.send(message.Chat.ID, "Используйте кнопки ниже для навигации:", b.mainKeyboard(message.From))
	}
}

// sendCompletedOrders lists the user's completed orders that have files and
// points at the web app for the actual download.
func (b *Bot) sendCompletedOrders(ctx context.Context, chatID int64, user *tgbotapi.User) {
	if b.cfg.APIBaseURL == "" || user.UserName == "" {
		b.send(chatID, "📥 Готовые файлы доступны в приложении.", b.mainKeyboard(user))
		return
	}

	text, err := b.completedOrdersText(ctx, user.UserName)
	if err != nil {
		b.logger.Sugar().Warnw("order lookup failed", "username", user.UserName, "error", err)
		b.send(chatID, "⚠️ Не удалось получить список заказов. Попробуйте позже.", b.mainKeyboard(user))
		return
	}
	if text == "" {
		b.send(chatID, "📭 У вас пока нет готовых работ.\n\nКак только заказ будет выполнен, файлы появятся здесь.", b.mainKeyboard(user))
		return
	}
	b.send(chatID, "📥 <b>Готовые работы:</b>\n\n"+text+"\nСкачать файлы можно в приложении 👇", b.mainKeyboard(user))
}

// completedOrdersText fetches the user's orders from the API and renders the
// completed ones that carry files; empty string means nothing to show.
func (b *Bot) completedOrdersText(ctx context.Context, handle string) (string, error) {
	url := b.cfg.apiURL("/orders?limit=50&telegram=" + handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("order lookup status %d", resp.StatusCode)
	}

	var envelope struct {
		Data struct {
			Orders []struct {
				ID     string   `json:"id"`
				Title  string   `json:"title"`
				Status string   `json:"status"`
				Files  []string `json:"files"`
			} `json:"orders"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, order := range envelope.Data.Orders {
		if order.Status != "completed" || len(order.Files) == 0 {
			continue
		}
		id := order.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(&sb, "📝 Заказ #%s: %s — файлов: %d\n", id, order.Title, len(order.Files))
	}
	return sb.String(), nil
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.logger.Sugar().Warnw("callback ack failed", "error", err)
	}
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	switch cq.Data {
	case "rules":
		b.sendRules(chatID, cq.Message.MessageID)
	case "support":
		b.promptSupport(chatID, cq.From, cq.Message.MessageID)
	case "help":
		b.sendHelp(chatID, cq.From)
	case "back_to_menu":
		b.backToMenu(chatID, cq.Message.MessageID, cq.From)
	}
}

func (b *Bot) sendWelcome(message *tgbotapi.Message) {
	text := fmt.Sprintf(`👋 Привет, %s!

Добро пожаловать в <b>BBI Father</b> - сервис для заказа практических работ!

🎓 Здесь вы можете:
• Заказать выполнение лабораторных работ
• Отслеживать статус ваших заказов
• Получать готовые работы прямо в Telegram

Выберите действие из меню ниже:`, message.From.FirstName)

	b.send(message.Chat.ID, text, b.mainKeyboard(message.From))
}

func (b *Bot) sendHelp(chatID int64, user *tgbotapi.User) {
	text := `📖 <b>Справка по боту BBI Father</b>

<b>Основные команды:</b>
/start - Главное меню
/help - Эта справка
/rules - Правила использования
/support - Техническая поддержка

<b>Как пользоваться:</b>
1️⃣ Нажмите "📱 Открыть приложение" для создания заказа
2️⃣ Заполните форму с деталями работы
3️⃣ Получите уведомления о статусе заказа
4️⃣ Скачайте готовую работу через приложение

<b>Нужна помощь?</b>
Нажмите "💬 Техподдержка" для связи с администратором`

	b.send(chatID, text, b.mainKeyboard(user))
}

func (b *Bot) sendRules(chatID int64, editMessageID int) {
	text := `📋 <b>Правила использования BBI Father</b>

<b>🎯 Что мы делаем:</b>
✅ Лабораторные работы по программированию
✅ Курсовые проекты
✅ Практические задания
✅ Консультации по коду

<b>⏰ Сроки выполнения:</b>
• Стандартная лаба: 1-3 дня
• Курсовая работа: 5-7 дней
• Срочные заказы: +50% к стоимости

<b>💰 Оплата:</b>
• Предоплата 100%
• Оплата на карту
• Чек отправляем в боте

<b>📝 Гарантии:</b>
• Бесплатные правки в течение 14 дней
• Проверка на плагиат
• Подробные комментарии в коде

<b>🚫 Не выполняем:</b>
❌ Экзамены и зачеты онлайн
❌ Написание дипломных работ
❌ Нарушение академических правил

<b>📞 Поддержка:</b>
Техподдержка работает ежедневно с 9:00 до 21:00 MSK`

	b.sendOrEdit(chatID, editMessageID, text, b.backKeyboard())
}

func (b *Bot) promptSupport(chatID int64, user *tgbotapi.User, editMessageID int) {
	text := fmt.Sprintf(`💬 <b>Техническая поддержка</b>

Привет, %s!

Если у вас возникли вопросы или проблемы, опишите их в следующем сообщении.

<b>Наша команда поможет с:</b>
• Техническими проблемами
• Вопросами по заказам
• Изменением требований
• Возвратом средств

<b>⏰ Время ответа:</b> обычно до 1 часа в рабочее время

Просто напишите ваш вопрос следующим сообщением 👇`, user.FirstName)
	if b.cfg.SupportContact != "" {
		text += fmt.Sprintf("\n\nИли напишите напрямую: %s", b.cfg.SupportContact)
	}

	b.setAwaitingSupport(user.ID, true)
	b.sendOrEdit(chatID, editMessageID, text, b.backKeyboard())
}

func (b *Bot) forwardToSupport(message *tgbotapi.Message) {
	user := message.From
	b.setAwaitingSupport(user.ID, false)

	b.send(message.Chat.ID,
		"✅ Ваше сообщение отправлено в техподдержку!\n\nМы ответим вам в ближайшее время.",
		b.mainKeyboard(user))

	if b.cfg.AdminChatID == "" {
		return
	}
	username := user.UserName
	if username == "" {
		username = "не указан"
	}
	text := fmt.Sprintf(`🆘 <b>Новое обращение в техподдержку</b>

👤 <b>Пользователь:</b> %s %s
🆔 <b>Username:</b> @%s
📱 <b>Telegram ID:</b> <code>%d</code>
🕐 <b>Время:</b> %s

💬 <b>Сообщение:</b>
%s`, user.FirstName, user.LastName, username, user.ID, time.Now().Format("02.01.2006 15:04"), message.Text)

	var adminID int64
	if _, err := fmt.Sscanf(b.cfg.AdminChatID, "%d", &adminID); err != nil {
		b.logger.Sugar().Warnw("invalid admin chat id", "value", b.cfg.AdminChatID)
		return
	}
	msg := tgbotapi.NewMessage(adminID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Sugar().Warnw("failed to forward support message", "error", err)
	}
}

func (b *Bot) backToMenu(chatID int64, messageID int, user *tgbotapi.User) {
	text := fmt.Sprintf(`🏠 <b>Главное меню BBI Father</b>

Привет, %s! Выберите действие:

📱 <b>Открыть приложение</b> - создать заказ и отслеживать статус
📋 <b>Правила</b> - ознакомиться с условиями работы
💬 <b>Техподдержка</b> - связаться с администратором`, user.FirstName)

	b.sendOrEdit(chatID, messageID, text, b.mainKeyboard(user))
}

// registerChat links the user's chat id with the API so the service can
// deliver status notifications later.
func (b *Bot) registerChat(ctx context.Context, user *tgbotapi.User, chatID int64) {
	if b.cfg.APIBaseURL == "" || user.UserName == "" {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"telegram_username": user.UserName,
		"chat_id":           chatID,
		"first_name":        user.FirstName,
		"last_name":         user.LastName,
	})
	if err != nil {
		return
	}

	url := b.cfg.apiURL("/save-chat-id")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		b.logger.Sugar().Warnw("failed to build chat registration request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Sugar().Warnw("chat registration failed", "username", user.UserName, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		b.logger.Sugar().Warnw("chat registration rejected", "username", user.UserName, "status", resp.StatusCode)
		return
	}
	b.logger.Sugar().Infow("chat registered", "username", user.UserName, "chat_id", chatID)
}

func (b *Bot) mainKeyboard(user *tgbotapi.User) tgbotapi.InlineKeyboardMarkup {
	handle := "user"
	if user != nil && user.UserName != "" {
		handle = user.UserName
	}
	webApp := tgbotapi.WebAppInfo{URL: fmt.Sprintf("%s?telegram=%s", b.cfg.WebAppURL, handle)}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.InlineKeyboardButton{Text: "📱 Открыть приложение", WebApp: &webApp},
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Правила", "rules"),
			tgbotapi.NewInlineKeyboardButtonData("💬 Техподдержка", "support"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Справка", "help"),
		),
	)
}

func (b *Bot) backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Главное меню", "back_to_menu"),
		),
	)
}

func (b *Bot) send(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Sugar().Warnw("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendOrEdit(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if messageID == 0 {
		b.send(chatID, text, keyboard)
		return
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Sugar().Warnw("failed to edit message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) isAwaitingSupport(userID int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.awaitingSupport[userID]
}

func (b *Bot) setAwaitingSupport(userID int64, awaiting bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if awaiting {
		b.awaitingSupport[userID] = true
	} else {
		delete(b.awaitingSupport, userID)
	}
}
