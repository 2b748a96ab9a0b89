package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bbifather/student-orders-api/internal/dto"
	"github.com/bbifather/student-orders-api/internal/models"
	appErrors "github.com/bbifather/student-orders-api/pkg/errors"
	"github.com/bbifather/student-orders-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context) ([]models.Student, error)
	SaveChatID(ctx context.Context, req dto.SaveChatIDRequest) (*models.Student, error)
}

// StudentHandler exposes the roster and chat-registration endpoints.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(svc studentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// List returns every known student.
func (h *StudentHandler) List(c *gin.Context) {
	students, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// SaveChatID links a chat id to a student, creating a roster stub when the
// handle is unknown.
func (h *StudentHandler) SaveChatID(c *gin.Context) {
	var req dto.SaveChatIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.service.SaveChatID(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
