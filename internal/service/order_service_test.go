package service

import (
	"context"
	"database/sql"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbifather/student-orders-api/internal/dto"
	"github.com/bbifather/student-orders-api/internal/models"
	appErrors "github.com/bbifather/student-orders-api/pkg/errors"
)

type orderRepoStub struct {
	orders      map[string]*models.OrderDetail
	duplicate   *models.OrderDetail
	suppressNew bool
	createCalls int
}

func newOrderRepoStub() *orderRepoStub {
	return &orderRepoStub{orders: make(map[string]*models.OrderDetail)}
}

func (s *orderRepoStub) List(ctx context.Context, filter models.OrderFilter) ([]models.OrderDetail, int, error) {
	out := make([]models.OrderDetail, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (s *orderRepoStub) FindByID(ctx context.Context, id string) (*models.OrderDetail, error) {
	if o, ok := s.orders[id]; ok {
		detail := *o
		return &detail, nil
	}
	return nil, sql.ErrNoRows
}

func (s *orderRepoStub) CreateIfAbsent(ctx context.Context, order *models.Order, window time.Duration) (bool, error) {
	s.createCalls++
	if s.suppressNew {
		return false, nil
	}
	if order.ID == "" {
		order.ID = "order-new"
	}
	s.orders[order.ID] = &models.OrderDetail{
		Order:   *order,
		Student: models.OrderStudent{ID: order.StudentID, Name: "Иван Петров", Telegram: "ivan"},
		Subject: models.OrderSubject{ID: order.SubjectID, Name: "Программирование"},
	}
	return true, nil
}

func (s *orderRepoStub) FindDuplicate(ctx context.Context, studentID, subjectID, title, deadline string, window time.Duration) (*models.OrderDetail, error) {
	if s.duplicate != nil {
		return s.duplicate, nil
	}
	return nil, sql.ErrNoRows
}

func (s *orderRepoStub) UpdateStatus(ctx context.Context, id, status string) error {
	s.orders[id].Status = status
	return nil
}

func (s *orderRepoStub) UpdatePrice(ctx context.Context, id string, price float64, status string) error {
	s.orders[id].ActualPrice = price
	if status != "" {
		s.orders[id].Status = status
	}
	return nil
}

func (s *orderRepoStub) MarkPaid(ctx context.Context, id string) error {
	s.orders[id].IsPaid = true
	return nil
}

func (s *orderRepoStub) SetFiles(ctx context.Context, id string, files models.FileList, status string) error {
	s.orders[id].Files = files
	if status != "" {
		s.orders[id].Status = status
	}
	return nil
}

func (s *orderRepoStub) SetRevision(ctx context.Context, id, comment string, grade *string) error {
	s.orders[id].Status = models.StatusNeedsRevision
	s.orders[id].RevisionComment = &comment
	s.orders[id].RevisionGrade = grade
	return nil
}

type studentStub struct {
	byTelegram     map[string]*models.Student
	created        []models.Student
	profileUpdates int
}

func newStudentStub() *studentStub {
	return &studentStub{byTelegram: make(map[string]*models.Student)}
}

func (s *studentStub) FindByTelegram(ctx context.Context, telegram string) (*models.Student, error) {
	if st, ok := s.byTelegram[telegram]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

func (s *studentStub) Create(ctx context.Context, student *models.Student) error {
	student.ID = "student-1"
	s.byTelegram[student.Telegram] = student
	s.created = append(s.created, *student)
	return nil
}

func (s *studentStub) UpdateProfile(ctx context.Context, id, name, groupName string) error {
	s.profileUpdates++
	return nil
}

type subjectStub struct {
	byID    map[string]*models.Subject
	byName  map[string]*models.Subject
	created []models.Subject
}

func newSubjectStub() *subjectStub {
	return &subjectStub{byID: make(map[string]*models.Subject), byName: make(map[string]*models.Subject)}
}

func (s *subjectStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if sub, ok := s.byID[id]; ok {
		return sub, nil
	}
	return nil, sql.ErrNoRows
}

func (s *subjectStub) FindByName(ctx context.Context, name string) (*models.Subject, error) {
	if sub, ok := s.byName[name]; ok {
		return sub, nil
	}
	return nil, sql.ErrNoRows
}

func (s *subjectStub) Create(ctx context.Context, subject *models.Subject) error {
	subject.ID = "subject-custom"
	s.byID[subject.ID] = subject
	s.byName[subject.Name] = subject
	s.created = append(s.created, *subject)
	return nil
}

type notifierStub struct {
	created   int
	statuses  []string
	payments  int
	revisions int
	filePaths [][]string
}

func (n *notifierStub) OrderCreated(order models.OrderDetail) { n.created++ }
func (n *notifierStub) StatusChanged(order models.OrderDetail, status string) {
	n.statuses = append(n.statuses, status)
}
func (n *notifierStub) PaymentClaimed(order models.OrderDetail) { n.payments++ }
func (n *notifierStub) RevisionRequested(order models.OrderDetail, comment string, grade *string) {
	n.revisions++
}
func (n *notifierStub) OrderFiles(order models.OrderDetail, paths []string) {
	n.filePaths = append(n.filePaths, paths)
}

type storeStub struct {
	saved    []string
	existing map[string]bool
	zipPath  string
}

func newStoreStub() *storeStub {
	return &storeStub{existing: make(map[string]bool)}
}

func (s *storeStub) Save(orderID, filename string, r io.Reader) (string, error) {
	s.saved = append(s.saved, filename)
	s.existing[filename] = true
	return filename, nil
}

func (s *storeStub) SaveBytes(orderID, filename string, data []byte) (string, error) {
	s.saved = append(s.saved, filename)
	s.existing[filename] = true
	return filename, nil
}

func (s *storeStub) Exists(orderID, filename string) bool {
	return s.existing[filename]
}

func (s *storeStub) Open(orderID, filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (s *storeStub) Path(orderID, filename string) string {
	return "/uploads/order_" + orderID + "/" + filename
}

func (s *storeStub) ZipToTemp(orderID string, files []string) (string, []string, error) {
	included := make([]string, 0, len(files))
	for _, f := range files {
		if s.existing[f] {
			included = append(included, f)
		}
	}
	return s.zipPath, included, nil
}

type generatorStub struct{}

func (generatorStub) DemoPDF(orderID string) ([]byte, error)  { return []byte("%PDF"), nil }
func (generatorStub) DemoDocx(orderID string) ([]byte, error) { return []byte("PK"), nil }

type orderServiceFixture struct {
	svc      *OrderService
	orders   *orderRepoStub
	students *studentStub
	subjects *subjectStub
	notifier *notifierStub
	store    *storeStub
}

func newOrderServiceFixture(t *testing.T, cfg OrderServiceConfig) orderServiceFixture {
	t.Helper()
	orders := newOrderRepoStub()
	students := newStudentStub()
	subjects := newSubjectStub()
	notifier := &notifierStub{}
	store := newStoreStub()
	svc := NewOrderService(orders, students, subjects, notifier, store, generatorStub{}, nil, nil, cfg)
	return orderServiceFixture{svc: svc, orders: orders, students: students, subjects: subjects, notifier: notifier, store: store}
}

func validCreateRequest() dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		Student:   dto.StudentBlock{Name: "Иван Петров", GroupName: "ИУ7-34Б", Telegram: "@ivan"},
		SubjectID: "subject-1",
		Title:     "Лабораторная 3",
		Deadline:  "2026-09-15",
	}
}

func TestOrderServiceCreateRegistersStudentAndNotifies(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.subjects.byID["subject-1"] = &models.Subject{ID: "subject-1", Name: "Программирование"}

	order, err := f.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, order.Status)
	assert.Equal(t, 1, f.notifier.created)

	// The handle is stored without the @ prefix.
	require.Len(t, f.students.created, 1)
	assert.Equal(t, "ivan", f.students.created[0].Telegram)
}

func TestOrderServiceCreateUpdatesExistingStudent(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.subjects.byID["subject-1"] = &models.Subject{ID: "subject-1"}
	f.students.byTelegram["ivan"] = &models.Student{ID: "student-1", Telegram: "ivan"}

	_, err := f.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Empty(t, f.students.created)
	assert.Equal(t, 1, f.students.profileUpdates)
}

func TestOrderServiceCreateDuplicateReturnsExisting(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.subjects.byID["subject-1"] = &models.Subject{ID: "subject-1"}
	f.orders.suppressNew = true
	f.orders.duplicate = &models.OrderDetail{Order: models.Order{ID: "order-existing", Status: models.StatusNew}}

	order, err := f.svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "order-existing", order.ID)
	assert.Zero(t, f.notifier.created)
}

func TestOrderServiceCreateUnknownSubject(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})

	_, err := f.svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestOrderServiceCreateProvisionsCustomSubject(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{CustomSubjectName: "Другой предмет"})

	req := validCreateRequest()
	req.SubjectID = ""
	_, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, f.subjects.created, 1)
	assert.Equal(t, "Другой предмет", f.subjects.created[0].Name)
	assert.False(t, f.subjects.created[0].IsActive)

	// A second custom order reuses the placeholder.
	f.orders.suppressNew = true
	f.orders.duplicate = &models.OrderDetail{Order: models.Order{ID: "order-new"}}
	_, err = f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, f.subjects.created, 1)
}

func TestOrderServiceUpdateStatusNotifiesOnlyOnChange(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1", Status: models.StatusNew}}

	_, err := f.svc.UpdateStatus(context.Background(), "order-1", dto.UpdateStatusRequest{Status: models.StatusNew})
	require.NoError(t, err)
	assert.Empty(t, f.notifier.statuses)

	updated, err := f.svc.UpdateStatus(context.Background(), "order-1", dto.UpdateStatusRequest{Status: models.StatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, []string{models.StatusInProgress}, f.notifier.statuses)
}

func TestOrderServiceUpdateStatusAcceptsUnknownValue(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1", Status: models.StatusNew}}

	updated, err := f.svc.UpdateStatus(context.Background(), "order-1", dto.UpdateStatusRequest{Status: "on_hold"})
	require.NoError(t, err)
	assert.Equal(t, "on_hold", updated.Status)
}

func TestOrderServiceUpdatePriceTransitionsUnpaidNew(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1", Status: models.StatusNew}}

	updated, err := f.svc.UpdatePrice(context.Background(), "order-1", dto.UpdatePriceRequest{Price: 1800})
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaitingPayment, updated.Status)
	assert.Equal(t, 1800.0, updated.ActualPrice)
	assert.Equal(t, []string{models.StatusWaitingPayment}, f.notifier.statuses)
}

func TestOrderServiceUpdatePriceNoRepeatNotification(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1", Status: models.StatusWaitingPayment}}

	updated, err := f.svc.UpdatePrice(context.Background(), "order-1", dto.UpdatePriceRequest{Price: 2000})
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaitingPayment, updated.Status)
	assert.Empty(t, f.notifier.statuses)
}

func TestOrderServiceUpdatePriceLeavesPaidOrderAlone(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1", Status: models.StatusInProgress, IsPaid: true}}

	updated, err := f.svc.UpdatePrice(context.Background(), "order-1", dto.UpdatePriceRequest{Price: 2500})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Empty(t, f.notifier.statuses)
}

func TestOrderServiceUpdatePriceRejectsNegative(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})

	_, err := f.svc.UpdatePrice(context.Background(), "order-1", dto.UpdatePriceRequest{Price: -5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestOrderServiceMarkPaidKeepsStatusSilently(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1", Status: models.StatusWaitingPayment}}

	updated, err := f.svc.MarkPaid(context.Background(), "order-1")
	require.NoError(t, err)
	assert.True(t, updated.IsPaid)
	assert.Equal(t, models.StatusWaitingPayment, updated.Status)
	assert.Empty(t, f.notifier.statuses)
}

func TestOrderServiceAttachFilesGeneratesDemoDeliverables(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1", Status: models.StatusInProgress}}

	result, err := f.svc.AttachFiles(context.Background(), "order-1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"completed_work.docx", "report.pdf"}, result.SavedFiles)
	assert.Equal(t, models.StatusCompleted, result.Order.Status)
	assert.Equal(t, []string{models.StatusCompleted}, f.notifier.statuses)
}

func TestOrderServiceAttachFilesValidatesUploads(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{MaxFileSizeBytes: 1024})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1", Status: models.StatusInProgress}}

	uploads := []Upload{
		{Filename: "work.pdf", Size: 100, Content: strings.NewReader("data")},
		{Filename: "malware.exe", Size: 100, Content: strings.NewReader("data")},
		{Filename: "huge.zip", Size: 4096, Content: strings.NewReader("data")},
	}
	result, err := f.svc.AttachFiles(context.Background(), "order-1", uploads)
	require.NoError(t, err)
	assert.Equal(t, []string{"work.pdf"}, result.SavedFiles)
	require.Len(t, result.RejectedFiles, 2)
	assert.Equal(t, "malware.exe", result.RejectedFiles[0].Filename)
	assert.Equal(t, "huge.zip", result.RejectedFiles[1].Filename)
	assert.Equal(t, models.StatusCompleted, result.Order.Status)
}

func TestOrderServiceAttachFilesAllRejectedChangesNothing(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1", Status: models.StatusInProgress}}

	uploads := []Upload{{Filename: "malware.exe", Size: 100, Content: strings.NewReader("data")}}
	result, err := f.svc.AttachFiles(context.Background(), "order-1", uploads)
	require.NoError(t, err)
	assert.Empty(t, result.SavedFiles)
	assert.Equal(t, models.StatusInProgress, result.Order.Status)
	assert.Empty(t, f.notifier.statuses)
}

func TestOrderServiceAttachFilesAppends(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{
		ID: "order-1", Status: models.StatusInProgress, Files: models.FileList{"old.pdf"},
	}}

	uploads := []Upload{{Filename: "new.docx", Size: 100, Content: strings.NewReader("data")}}
	result, err := f.svc.AttachFiles(context.Background(), "order-1", uploads)
	require.NoError(t, err)
	assert.Equal(t, models.FileList{"old.pdf", "new.docx"}, result.Order.Files)
}

func TestOrderServiceAttachFilesRecompleteDisabled(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	// RecompleteOnAttach stays false: topping up a completed order keeps the
	// status and stays silent.
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{
		ID: "order-1", Status: models.StatusCompleted, Files: models.FileList{"old.pdf"},
	}}

	uploads := []Upload{{Filename: "extra.pdf", Size: 100, Content: strings.NewReader("data")}}
	result, err := f.svc.AttachFiles(context.Background(), "order-1", uploads)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, result.Order.Status)
	assert.Empty(t, f.notifier.statuses)
}

func TestOrderServiceAttachFilesRecompleteEnabled(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{RecompleteOnAttach: true})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{
		ID: "order-1", Status: models.StatusCompleted, Files: models.FileList{"old.pdf"},
	}}

	uploads := []Upload{{Filename: "extra.pdf", Size: 100, Content: strings.NewReader("data")}}
	_, err := f.svc.AttachFiles(context.Background(), "order-1", uploads)
	require.NoError(t, err)
	assert.Equal(t, []string{models.StatusCompleted}, f.notifier.statuses)
}

func TestOrderServiceRequestRevision(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1", Status: models.StatusCompleted}}

	grade := "4"
	updated, err := f.svc.RequestRevision(context.Background(), "order-1", dto.RevisionRequest{Comment: "Исправить титульный лист", Grade: &grade})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNeedsRevision, updated.Status)
	require.NotNil(t, updated.RevisionComment)
	assert.Equal(t, "Исправить титульный лист", *updated.RevisionComment)
	assert.Equal(t, 1, f.notifier.revisions)
}

func TestOrderServiceNotifyPayment(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1"}}

	require.NoError(t, f.svc.NotifyPayment(context.Background(), "order-1"))
	assert.Equal(t, 1, f.notifier.payments)

	err := f.svc.NotifyPayment(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOrderServiceDownloadRequiresMembership(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1", Files: models.FileList{"work.pdf"}}}
	f.store.existing["work.pdf"] = true

	_, err := f.svc.Download(context.Background(), "order-1", "secret.txt")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOrderServiceDownloadMissingOnDisk(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1", Files: models.FileList{"work.pdf"}}}

	_, err := f.svc.Download(context.Background(), "order-1", "work.pdf")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOrderServiceDownloadAllSkipsMissing(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{
		ID: "order-1", Title: "Лабораторная 3", Files: models.FileList{"a.pdf", "gone.docx"},
	}}
	f.store.existing["a.pdf"] = true
	f.store.zipPath = "/tmp/archive.zip"

	archive, err := f.svc.DownloadAll(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf"}, archive.Included)
	assert.Contains(t, archive.Filename, ".zip")
}

func TestOrderServiceDownloadAllWithoutFiles(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{Order: models.Order{ID: "order-1"}}

	_, err := f.svc.DownloadAll(context.Background(), "order-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOrderServiceSendFilesToTelegram(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	chatID := "777"
	f.orders.orders["order-1"] = &models.OrderDetail{
		Order:   models.Order{ID: "order-1", Title: "Лабораторная 3", Files: models.FileList{"work.pdf", "gone.docx"}},
		Student: models.OrderStudent{ID: "student-1", Telegram: "ivan", ChatID: &chatID},
	}
	f.store.existing["work.pdf"] = true

	result, err := f.svc.SendFilesToTelegram(context.Background(), dto.SendFilesRequest{OrderID: "order-1", Telegram: "@ivan"})
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, 2, result.TotalFiles)

	// Only the file present on disk is queued.
	require.Len(t, f.notifier.filePaths, 1)
	assert.Equal(t, []string{"/uploads/order_order-1/work.pdf"}, f.notifier.filePaths[0])
}

func TestOrderServiceSendFilesRejectsForeignHandle(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	chatID := "777"
	f.orders.orders["order-1"] = &models.OrderDetail{
		Order:   models.Order{ID: "order-1", Files: models.FileList{"work.pdf"}},
		Student: models.OrderStudent{Telegram: "ivan", ChatID: &chatID},
	}

	_, err := f.svc.SendFilesToTelegram(context.Background(), dto.SendFilesRequest{OrderID: "order-1", Telegram: "@petya"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.notifier.filePaths)
}

func TestOrderServiceSendFilesRequiresRegisteredChat(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	f.orders.orders["order-1"] = &models.OrderDetail{
		Order:   models.Order{ID: "order-1", Files: models.FileList{"work.pdf"}},
		Student: models.OrderStudent{Telegram: "ivan"},
	}

	_, err := f.svc.SendFilesToTelegram(context.Background(), dto.SendFilesRequest{OrderID: "order-1", Telegram: "ivan"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestOrderServiceSendFilesMissingOnDisk(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	chatID := "777"
	f.orders.orders["order-1"] = &models.OrderDetail{
		Order:   models.Order{ID: "order-1", Files: models.FileList{"gone.pdf"}},
		Student: models.OrderStudent{Telegram: "ivan", ChatID: &chatID},
	}

	_, err := f.svc.SendFilesToTelegram(context.Background(), dto.SendFilesRequest{OrderID: "order-1", Telegram: "ivan"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOrderServiceSendFilesWithoutFiles(t *testing.T) {
	f := newOrderServiceFixture(t, OrderServiceConfig{})
	chatID := "777"
	f.orders.orders["order-1"] = &models.OrderDetail{
		Order:   models.Order{ID: "order-1", Files: models.FileList{}},
		Student: models.OrderStudent{Telegram: "ivan", ChatID: &chatID},
	}

	_, err := f.svc.SendFilesToTelegram(context.Background(), dto.SendFilesRequest{OrderID: "order-1", Telegram: "ivan"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
