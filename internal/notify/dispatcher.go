package notify

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/bbifather/student-orders-api/internal/models"
	"github.com/bbifather/student-orders-api/pkg/jobs"
)

// Message is one outbound chat notification.
type Message struct {
	ChatID       string
	Text         string
	WithKeyboard bool
	Handle       string
}

// Document is one stored file pushed to a chat.
type Document struct {
	ChatID   string
	Path     string
	Filename string
}

// DeliveryObserver records delivery outcomes, typically Prometheus counters.
type DeliveryObserver interface {
	ObserveNotification(kind string, delivered bool)
}

// DispatcherConfig lists the chat targets and delivery tuning.
type DispatcherConfig struct {
	AdminChatID          string
	ExtraAdminChatIDs    []string
	SpecialSubjectName   string
	SpecialSubjectChatID string
	Workers              int
	BufferSize           int
	MaxRetries           int
	RetryDelay           time.Duration
	SendTimeout          time.Duration
}

// Dispatcher fans notifications out to admin and student chats. Delivery is
// asynchronous and best-effort: the workflow only enqueues, failures are
// logged and retried by the queue, never surfaced to the caller.
type Dispatcher struct {
	sender  Sender
	queue   *jobs.Queue
	logger  *zap.Logger
	metrics DeliveryObserver
	cfg     DispatcherConfig
}

// NewDispatcher builds a dispatcher with its delivery queue.
func NewDispatcher(sender Sender, cfg DispatcherConfig, metrics DeliveryObserver, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	d := &Dispatcher{sender: sender, logger: logger, metrics: metrics, cfg: cfg}
	d.queue = jobs.NewQueue("notifications", d.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return d
}

// Start launches the delivery workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *Dispatcher) Stop() {
	d.queue.Stop()
}

// OrderCreated notifies admins about a new order and the student about the
// initial status.
func (d *Dispatcher) OrderCreated(order models.OrderDetail) {
	d.notifyAdmins(OrderCreatedText(order, time.Now()), order.Subject.Name)
	d.notifyStudent(order, StatusText(order, models.StatusNew))
}

// StatusChanged notifies the student about a status transition.
func (d *Dispatcher) StatusChanged(order models.OrderDetail, status string) {
	d.notifyStudent(order, StatusText(order, status))
}

// PaymentClaimed notifies admins that a student marked payment and confirms
// receipt to the student.
func (d *Dispatcher) PaymentClaimed(order models.OrderDetail) {
	d.notifyAdmins(PaymentClaimedText(order, time.Now()), order.Subject.Name)
	d.notifyStudent(order, PaymentReceivedText(order))
}

// RevisionRequested notifies admins and the student about a revision request.
func (d *Dispatcher) RevisionRequested(order models.OrderDetail, comment string, grade *string) {
	d.notifyAdmins(RevisionRequestedText(order, comment, grade, time.Now()), order.Subject.Name)
	d.notifyStudent(order, StatusText(order, models.StatusNeedsRevision))
}

// Test sends the diagnostic notification to the admin targets.
func (d *Dispatcher) Test() {
	d.notifyAdmins(TestText(time.Now()), "")
}

// OrderFiles pushes the order's stored deliverables to the student chat as
// documents, preceded by a short heads-up message. The caller guarantees the
// chat id is present.
func (d *Dispatcher) OrderFiles(order models.OrderDetail, paths []string) {
	if order.Student.ChatID == nil || *order.Student.ChatID == "" {
		d.logger.Sugar().Infow("student has no chat id, skipping file delivery",
			"order_id", order.ID, "telegram", order.Student.Telegram)
		return
	}
	d.notifyStudent(order, FilesDeliveryText(order, len(paths)))
	for _, path := range paths {
		d.enqueuePayload(Document{
			ChatID:   *order.Student.ChatID,
			Path:     path,
			Filename: filepath.Base(path),
		})
	}
}

// notifyAdmins fans one message out to every configured admin target,
// de-duplicated. Orders for the special subject route to its dedicated chat
// as well.
func (d *Dispatcher) notifyAdmins(text, subjectName string) {
	targets := make([]string, 0, 2+len(d.cfg.ExtraAdminChatIDs))
	if d.cfg.AdminChatID != "" {
		targets = append(targets, d.cfg.AdminChatID)
	}
	targets = append(targets, d.cfg.ExtraAdminChatIDs...)
	if d.cfg.SpecialSubjectName != "" && subjectName == d.cfg.SpecialSubjectName && d.cfg.SpecialSubjectChatID != "" {
		targets = append(targets, d.cfg.SpecialSubjectChatID)
	}

	seen := make(map[string]struct{}, len(targets))
	for _, chatID := range targets {
		if _, dup := seen[chatID]; dup {
			continue
		}
		seen[chatID] = struct{}{}
		d.enqueue(Message{ChatID: chatID, Text: text})
	}
	if len(targets) == 0 {
		d.logger.Sugar().Warnw("no admin chat configured, notification dropped", "text_len", len(text))
	}
}

// notifyStudent enqueues a user-bound message when the student has a
// registered chat id; silently skips otherwise.
func (d *Dispatcher) notifyStudent(order models.OrderDetail, text string) {
	if order.Student.ChatID == nil || *order.Student.ChatID == "" {
		d.logger.Sugar().Infow("student has no chat id, skipping notification",
			"order_id", order.ID, "telegram", order.Student.Telegram)
		return
	}
	d.enqueue(Message{
		ChatID:       *order.Student.ChatID,
		Text:         text,
		WithKeyboard: true,
		Handle:       order.Student.Telegram,
	})
}

func (d *Dispatcher) enqueue(msg Message) {
	d.enqueuePayload(msg)
}

func (d *Dispatcher) enqueuePayload(payload interface{}) {
	if err := d.queue.Enqueue(jobs.Job{Type: "notification", Payload: payload}); err != nil {
		d.logger.Sugar().Warnw("failed to enqueue notification", "error", err)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, job jobs.Job) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	var (
		err    error
		kind   string
		chatID string
	)
	switch payload := job.Payload.(type) {
	case Message:
		err = d.sender.Send(sendCtx, payload)
		kind = "admin"
		if payload.WithKeyboard {
			kind = "user"
		}
		chatID = payload.ChatID
	case Document:
		err = d.sender.SendDocument(sendCtx, payload)
		kind = "document"
		chatID = payload.ChatID
	default:
		d.logger.Sugar().Errorw("unexpected notification payload", "type", job.Type)
		return nil
	}

	if d.metrics != nil {
		d.metrics.ObserveNotification(kind, err == nil)
	}
	if err != nil {
		d.logger.Sugar().Warnw("notification delivery failed", "chat_id", chatID, "error", err)
		return err
	}
	return nil
}
