package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bbifather/student-orders-api/pkg/response"
)

type testNotifier interface {
	Test()
}

// NotificationHandler exposes the notification diagnostics endpoint.
type NotificationHandler struct {
	dispatcher testNotifier
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(dispatcher testNotifier) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

// Test enqueues a canned message to every admin target so operators can
// verify bot wiring without creating an order.
func (h *NotificationHandler) Test(c *gin.Context) {
	h.dispatcher.Test()
	response.JSON(c, http.StatusOK, gin.H{"status": "test_notification_queued"}, nil)
}
