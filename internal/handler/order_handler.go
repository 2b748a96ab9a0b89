package handler

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bbifather/student-orders-api/internal/dto"
	"github.com/bbifather/student-orders-api/internal/models"
	"github.com/bbifather/student-orders-api/internal/service"
	appErrors "github.com/bbifather/student-orders-api/pkg/errors"
	"github.com/bbifather/student-orders-api/pkg/response"
)

type orderService interface {
	List(ctx context.Context, filter models.OrderFilter) (*dto.OrderListResponse, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.OrderDetail, error)
	Create(ctx context.Context, req dto.CreateOrderRequest) (*models.OrderDetail, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest) (*models.OrderDetail, error)
	UpdatePrice(ctx context.Context, id string, req dto.UpdatePriceRequest) (*models.OrderDetail, error)
	MarkPaid(ctx context.Context, id string) (*models.OrderDetail, error)
	NotifyPayment(ctx context.Context, id string) error
	RequestRevision(ctx context.Context, id string, req dto.RevisionRequest) (*models.OrderDetail, error)
	AttachFiles(ctx context.Context, id string, uploads []service.Upload) (*dto.UploadResult, error)
	SendFilesToTelegram(ctx context.Context, req dto.SendFilesRequest) (*dto.SendFilesResult, error)
	Download(ctx context.Context, id, filename string) (*service.FileDownload, error)
	DownloadAll(ctx context.Context, id string) (*service.ArchiveDownload, error)
}

// OrderHandler exposes the order lifecycle endpoints.
type OrderHandler struct {
	service orderService
	metrics *service.MetricsService
	logger  *zap.Logger
}

// NewOrderHandler constructs an order handler.
func NewOrderHandler(svc orderService, metrics *service.MetricsService, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{service: svc, metrics: metrics, logger: logger}
}

// List returns orders, optionally scoped to one student's telegram handle.
func (h *OrderHandler) List(c *gin.Context) {
	var filter models.OrderFilter
	filter.Telegram = models.NormalizeHandle(strings.TrimSpace(c.Query("telegram")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil {
		filter.Limit = limit
	}

	list, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, pagination)
}

// Get returns one order with its student and subject blocks.
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// Create submits a new order. A repeated identical submission inside the
// dedup window answers with the already created order.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	order, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveOrderCreated()
	}
	response.Created(c, order)
}

// UpdateStatus sets the order status.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	order, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// UpdatePrice sets the actual price.
func (h *OrderHandler) UpdatePrice(c *gin.Context) {
	var req dto.UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	order, err := h.service.UpdatePrice(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// MarkPaid flips the paid flag.
func (h *OrderHandler) MarkPaid(c *gin.Context) {
	order, err := h.service.MarkPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// NotifyPayment relays a student's payment claim to the admins.
func (h *OrderHandler) NotifyPayment(c *gin.Context) {
	if err := h.service.NotifyPayment(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "notification_sent"}, nil)
}

// RequestRevision stores a revision comment and grade.
func (h *OrderHandler) RequestRevision(c *gin.Context) {
	var req dto.RevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	order, err := h.service.RequestRevision(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// AttachFiles accepts multipart uploads under the "files" field. Without
// uploads the order receives placeholder deliverables.
func (h *OrderHandler) AttachFiles(c *gin.Context) {
	id := c.Param("id")

	var uploads []service.Upload
	form, err := c.MultipartForm()
	if err == nil && form != nil {
		for _, header := range form.File["files"] {
			file, openErr := header.Open()
			if openErr != nil {
				h.logger.Sugar().Warnw("failed to open upload", "order_id", id, "filename", header.Filename, "error", openErr)
				continue
			}
			defer file.Close()
			uploads = append(uploads, service.Upload{
				Filename: header.Filename,
				Size:     header.Size,
				Content:  file,
			})
		}
	}

	result, err := h.service.AttachFiles(c.Request.Context(), id, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveUploads(len(result.SavedFiles), len(result.RejectedFiles))
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SendFilesToTelegram pushes an order's stored files to the owner's chat.
func (h *OrderHandler) SendFilesToTelegram(c *gin.Context) {
	var req dto.SendFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.SendFilesToTelegram(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download streams one stored file.
func (h *OrderHandler) Download(c *gin.Context) {
	download, err := h.service.Download(c.Request.Context(), c.Param("id"), c.Param("filename"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	stat, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to stat file"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+download.Filename+`"`)
	c.DataFromReader(http.StatusOK, stat.Size(), download.ContentType, download.File, nil)
}

// DownloadAll streams a zip of every file that still exists on disk.
func (h *OrderHandler) DownloadAll(c *gin.Context) {
	archive, err := h.service.DownloadAll(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer func() {
		if err := os.Remove(archive.Path); err != nil {
			h.logger.Sugar().Warnw("failed to remove temp archive", "path", archive.Path, "error", err)
		}
	}()

	c.Header("Content-Disposition", `attachment; filename="`+archive.Filename+`"`)
	c.Header("Content-Type", "application/zip")
	c.File(archive.Path)
}
