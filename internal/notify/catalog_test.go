package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bbifather/student-orders-api/internal/models"
)

func sampleOrder() models.OrderDetail {
	return models.OrderDetail{
		Order: models.Order{
			ID:       "0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0",
			Title:    "Лабораторная 3",
			Deadline: "2026-09-15",
		},
		Student: models.OrderStudent{Name: "Иван Петров", GroupName: "ИУ7-34Б", Telegram: "ivan"},
		Subject: models.OrderSubject{Name: "Программирование", Price: 2000},
	}
}

func TestStatusMessageForKnownStatus(t *testing.T) {
	msg := StatusMessageFor(models.StatusCompleted)
	assert.Equal(t, "🎉", msg.Emoji)
	assert.Equal(t, "Работа выполнена", msg.Title)
}

func TestStatusMessageForUnknownStatusFallsBack(t *testing.T) {
	msg := StatusMessageFor("on_hold")
	assert.Equal(t, "📝", msg.Emoji)
	assert.Contains(t, msg.Message, "on_hold")
}

func TestStatusTextMentionsOrderAndSubject(t *testing.T) {
	text := StatusText(sampleOrder(), models.StatusInProgress)
	assert.Contains(t, text, "Заказ #0f1e2d3c")
	assert.Contains(t, text, "Программирование")
	assert.Contains(t, text, "Мы приступили")
}

func TestStatusTextCompletedPointsAtDownloads(t *testing.T) {
	text := StatusText(sampleOrder(), models.StatusCompleted)
	assert.Contains(t, text, "Скачать файлы")
}

func TestStatusTextRevisionIncludesComment(t *testing.T) {
	order := sampleOrder()
	comment := "Поправьте выводы в третьем разделе"
	order.RevisionComment = &comment

	text := StatusText(order, models.StatusNeedsRevision)
	assert.Contains(t, text, comment)
}

func TestOrderCreatedTextIncludesExtras(t *testing.T) {
	order := sampleOrder()
	order.VariantInfo = "Вариант 7"
	order.InputData = "Использовать Python 3.11"

	text := OrderCreatedText(order, time.Date(2026, 9, 1, 12, 30, 0, 0, time.UTC))
	assert.Contains(t, text, "Вариант 7")
	assert.Contains(t, text, "Использовать Python 3.11")
	assert.Contains(t, text, "01.09.2026 12:30")
	assert.Contains(t, text, "@ivan")
}

func TestPaymentClaimedTextUsesCatalogPriceFallback(t *testing.T) {
	order := sampleOrder()
	order.ActualPrice = 0

	text := PaymentClaimedText(order, time.Now())
	assert.Contains(t, text, "2000 ₽")
	assert.Contains(t, text, "Проверьте поступление средств")
}

func TestRevisionRequestedTextIncludesGrade(t *testing.T) {
	grade := "4"
	text := RevisionRequestedText(sampleOrder(), "Исправить оформление", &grade, time.Now())
	assert.Contains(t, text, "Оценка из Moodle: 4")

	text = RevisionRequestedText(sampleOrder(), "Исправить оформление", nil, time.Now())
	assert.NotContains(t, text, "Оценка из Moodle")
}

func TestTruncateRespectsRuneBoundaries(t *testing.T) {
	long := strings.Repeat("я", 310)
	got := truncate(long, 300)
	assert.Equal(t, 303, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))

	short := "короткий текст"
	assert.Equal(t, short, truncate(short, 300))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0f1e2d3c", shortID("0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0"))
	assert.Equal(t, "short", shortID("short"))
}
