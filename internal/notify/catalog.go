package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/bbifather/student-orders-api/internal/models"
)

// StatusMessage is a canned notification for a known workflow status.
type StatusMessage struct {
	Emoji   string
	Title   string
	Message string
}

// statusCatalog maps workflow statuses to user-facing notifications. An
// unknown status falls back to a generic "status changed" message.
var statusCatalog = map[string]StatusMessage{
	models.StatusNew: {
		Emoji:   "🆕",
		Title:   "Новый заказ создан",
		Message: "Ваш заказ принят в систему. Ожидается оплата.",
	},
	models.StatusWaitingPayment: {
		Emoji:   "💳",
		Title:   "Ожидается оплата",
		Message: "Пожалуйста, произведите оплату согласно указанным реквизитам.",
	},
	models.StatusPendingPayment: {
		Emoji:   "💳",
		Title:   "Ожидается оплата",
		Message: "Пожалуйста, произведите оплату согласно указанным реквизитам.",
	},
	models.StatusPaid: {
		Emoji:   "✅",
		Title:   "Оплата подтверждена",
		Message: "Спасибо за оплату! Ваш заказ принят в работу.",
	},
	models.StatusInProgress: {
		Emoji:   "⚙️",
		Title:   "Работа началась",
		Message: "Мы приступили к выполнению вашего заказа!",
	},
	models.StatusCompleted: {
		Emoji:   "🎉",
		Title:   "Работа выполнена",
		Message: "Ваш заказ готов! Файлы доступны для скачивания.",
	},
	models.StatusNeedsRevision: {
		Emoji:   "🔄",
		Title:   "Требуются исправления",
		Message: "Необходимы небольшие правки. Проверьте комментарии.",
	},
	models.StatusCancelled: {
		Emoji:   "❌",
		Title:   "Заказ отменен",
		Message: "Заказ был отменен. Если есть вопросы - обращайтесь в поддержку.",
	},
}

// StatusMessageFor resolves the canned message for a status.
func StatusMessageFor(status string) StatusMessage {
	if msg, ok := statusCatalog[status]; ok {
		return msg
	}
	return StatusMessage{
		Emoji:   "📝",
		Title:   "Статус обновлен",
		Message: fmt.Sprintf("Статус вашего заказа изменен на: %s", status),
	}
}

// StatusText renders the full user notification for a status change.
func StatusText(order models.OrderDetail, status string) string {
	info := StatusMessageFor(status)

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", info.Emoji, info.Title)
	fmt.Fprintf(&b, "📝 <b>Заказ #%s:</b> %s\n", shortID(order.ID), order.Title)
	fmt.Fprintf(&b, "📚 <b>Предмет:</b> %s\n", order.Subject.Name)
	fmt.Fprintf(&b, "⏰ <b>Дедлайн:</b> %s\n\n", order.Deadline)
	fmt.Fprintf(&b, "💬 <b>Сообщение:</b>\n%s", info.Message)

	switch status {
	case models.StatusCompleted:
		b.WriteString("\n\n📱 Откройте приложение или воспользуйтесь кнопкой '📥 Скачать файлы' в меню бота для получения готовых файлов.")
	case models.StatusNeedsRevision:
		if order.RevisionComment != nil && *order.RevisionComment != "" {
			fmt.Fprintf(&b, "\n\n📋 <b>Комментарий:</b>\n%s", *order.RevisionComment)
		}
	}

	b.WriteString("\n\n💬 Используйте меню бота для управления заказами")
	return b.String()
}

// OrderCreatedText renders the admin summary for a freshly created order.
func OrderCreatedText(order models.OrderDetail, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 Новый заказ #%s\n\n", shortID(order.ID))
	fmt.Fprintf(&b, "👤 Студент: %s\n", order.Student.Name)
	fmt.Fprintf(&b, "👥 Группа: %s\n", order.Student.GroupName)
	fmt.Fprintf(&b, "📱 Telegram: @%s\n\n", order.Student.Telegram)
	fmt.Fprintf(&b, "📚 Предмет: %s\n", order.Subject.Name)
	fmt.Fprintf(&b, "📝 Название: %s\n", order.Title)
	fmt.Fprintf(&b, "📄 Описание: %s\n\n", truncate(order.Description, 200))
	fmt.Fprintf(&b, "⏰ Дедлайн: %s\n", order.Deadline)
	fmt.Fprintf(&b, "💰 Стоимость: %.0f ₽\n\n", order.ActualPrice)
	fmt.Fprintf(&b, "Создан: %s", now.Format("02.01.2006 15:04"))
	appendExtras(&b, order)
	return b.String()
}

// PaymentClaimedText renders the admin notice that a student marked payment.
func PaymentClaimedText(order models.OrderDetail, now time.Time) string {
	price := order.ActualPrice
	if price == 0 {
		price = order.Subject.Price
	}

	var b strings.Builder
	b.WriteString("💰 Студент отметил оплату!\n\n")
	fmt.Fprintf(&b, "📝 Заказ #%s: %s\n", shortID(order.ID), order.Title)
	fmt.Fprintf(&b, "👤 Студент: %s\n", order.Student.Name)
	fmt.Fprintf(&b, "👥 Группа: %s\n", order.Student.GroupName)
	fmt.Fprintf(&b, "📱 Telegram: @%s\n\n", order.Student.Telegram)
	fmt.Fprintf(&b, "📚 Предмет: %s\n", order.Subject.Name)
	fmt.Fprintf(&b, "📄 Описание: %s\n", truncate(order.Description, 200))
	fmt.Fprintf(&b, "⏰ Дедлайн: %s\n", order.Deadline)
	fmt.Fprintf(&b, "💰 Сумма: %.0f ₽", price)
	appendExtras(&b, order)
	b.WriteString("\n\n⚠️ Проверьте поступление средств и обновите статус заказа!")
	fmt.Fprintf(&b, "\n\nУведомление: %s", now.Format("02.01.2006 15:04"))
	return b.String()
}

// PaymentReceivedText renders the user confirmation for a payment claim.
func PaymentReceivedText(order models.OrderDetail) string {
	price := order.ActualPrice
	if price == 0 {
		price = order.Subject.Price
	}

	var b strings.Builder
	b.WriteString("💳 <b>Заявка на оплату получена</b>\n\n")
	fmt.Fprintf(&b, "📝 <b>Заказ #%s:</b> %s\n", shortID(order.ID), order.Title)
	fmt.Fprintf(&b, "📚 <b>Предмет:</b> %s\n", order.Subject.Name)
	fmt.Fprintf(&b, "💰 <b>Сумма:</b> %.0f ₽\n\n", price)
	b.WriteString("💬 <b>Сообщение:</b>\nВаша заявка на оплату получена и проверяется администратором. После подтверждения оплаты статус заказа будет обновлен.\n\n")
	b.WriteString("Обычно проверка занимает от 15 минут до нескольких часов.")
	return b.String()
}

// RevisionRequestedText renders the admin notice for a revision request.
func RevisionRequestedText(order models.OrderDetail, comment string, grade *string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔄 Запрошены исправления для заказа #%s\n\n", shortID(order.ID))
	fmt.Fprintf(&b, "📝 Заказ: %s\n", order.Title)
	fmt.Fprintf(&b, "👤 Студент: %s\n", order.Student.Name)
	fmt.Fprintf(&b, "👥 Группа: %s\n", order.Student.GroupName)
	fmt.Fprintf(&b, "📱 Telegram: @%s\n", order.Student.Telegram)
	fmt.Fprintf(&b, "📚 Предмет: %s\n", order.Subject.Name)
	fmt.Fprintf(&b, "⏰ Дедлайн: %s\n\n", order.Deadline)
	fmt.Fprintf(&b, "💬 Комментарий к исправлениям:\n%s", truncate(comment, 500))
	if grade != nil && *grade != "" {
		fmt.Fprintf(&b, "\n\n⭐ Оценка из Moodle: %s", *grade)
	}
	fmt.Fprintf(&b, "\n\nЗапрос отправлен: %s", now.Format("02.01.2006 15:04"))
	return b.String()
}

// FilesDeliveryText renders the heads-up message preceding document pushes.
func FilesDeliveryText(order models.OrderDetail, count int) string {
	var b strings.Builder
	b.WriteString("📤 <b>Отправляем файлы вашего заказа</b>\n\n")
	fmt.Fprintf(&b, "📝 <b>Заказ #%s:</b> %s\n", shortID(order.ID), order.Title)
	fmt.Fprintf(&b, "📚 <b>Предмет:</b> %s\n", order.Subject.Name)
	fmt.Fprintf(&b, "📎 <b>Файлов:</b> %d", count)
	return b.String()
}

// TestText renders the diagnostic notification used by the test endpoint.
func TestText(now time.Time) string {
	var b strings.Builder
	b.WriteString("🧪 Тестовое уведомление\n\n")
	fmt.Fprintf(&b, "📅 Время: %s\n", now.Format("02.01.2006 15:04:05"))
	b.WriteString("🚀 Backend работает корректно\n")
	b.WriteString("📱 Telegram уведомления настроены")
	return b.String()
}

func appendExtras(b *strings.Builder, order models.OrderDetail) {
	if order.VariantInfo != "" {
		fmt.Fprintf(b, "\n\n🔢 Информация о варианте:\n%s", truncate(order.VariantInfo, 300))
	}
	if order.InputData != "" {
		fmt.Fprintf(b, "\n\n📋 Дополнительные требования:\n%s", truncate(order.InputData, 300))
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
