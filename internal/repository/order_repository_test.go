package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbifather/student-orders-api/internal/models"
)

func newOrderRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func orderRowColumns() []string {
	return []string{
		"id", "student_id", "subject_id", "title", "description", "input_data", "variant_info",
		"deadline", "status", "is_paid", "actual_price", "selected_works", "is_full_course", "files",
		"revision_comment", "revision_grade", "created_at", "updated_at",
		"student_name", "student_group", "student_telegram", "student_chat_id",
		"subject_name", "subject_description", "subject_price",
	}
}

func sampleOrderRow(rows *sqlmock.Rows, id string) *sqlmock.Rows {
	now := time.Now().UTC()
	return rows.AddRow(
		id, "student-1", "subject-1", "Лабораторная 3", "описание", "", "Вариант 7",
		"2026-09-15", models.StatusNew, false, 1500.0, nil, false, `["work.pdf"]`,
		nil, nil, now, now,
		"Иван Петров", "ИУ7-34Б", "ivan", "123456",
		"Программирование", "Лабораторные работы и проекты", 2000.0,
	)
}

func TestOrderRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(orderRowColumns()).AddRow(
		"order-1", "student-1", "subject-1", "Лабораторная 3", "описание", "", "Вариант 7",
		"2026-09-15", models.StatusNew, false, 1500.0, `["Лаба 1","Лаба 2"]`, false, `["work.pdf"]`,
		nil, nil, now, now,
		"Иван Петров", "ИУ7-34Б", "ivan", "123456",
		"Программирование", "Лабораторные работы и проекты", 2000.0,
	)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.id = $1")).
		WithArgs("order-1").
		WillReturnRows(rows)

	order, err := repo.FindByID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, "Иван Петров", order.Student.Name)
	assert.Equal(t, "ИУ7-34Б", order.Student.GroupName)
	assert.Equal(t, "Программирование", order.Subject.Name)
	assert.Equal(t, models.FileList{"work.pdf"}, order.Files)
	assert.Equal(t, models.WorksList{"Лаба 1", "Лаба 2"}, order.SelectedWorks)
	require.NotNil(t, order.Student.ChatID)
	assert.Equal(t, "123456", *order.Student.ChatID)
}

func TestOrderRepositoryFindByIDNoRows(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestOrderRepositoryListFiltered(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(orderRowColumns()).AddRow(
		"order-1", "student-1", "subject-1", "Лабораторная 3", "", "", "",
		"2026-09-15", models.StatusCompleted, true, 1500.0, nil, false, `[]`,
		nil, nil, now, now,
		"Иван Петров", "ИУ7-34Б", "ivan", nil,
		"Программирование", "", 2000.0,
	)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.telegram = $1")).
		WithArgs("ivan").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(o.id)")).
		WithArgs("ivan").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	orders, total, err := repo.List(context.Background(), models.OrderFilter{Telegram: "@ivan"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 1, total)
	assert.Nil(t, orders[0].Student.ChatID)
	assert.Empty(t, orders[0].Files)
}

func TestOrderRepositoryCreateIfAbsentInserted(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	order := &models.Order{
		StudentID: "student-1",
		SubjectID: "subject-1",
		Title:     "Лабораторная 3",
		Deadline:  "2026-09-15",
		Status:    models.StatusNew,
	}
	created, err := repo.CreateIfAbsent(context.Background(), order, 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, order.ID)
	assert.False(t, order.CreatedAt.IsZero())
}

func TestOrderRepositoryCreateIfAbsentSuppressed(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	order := &models.Order{
		StudentID: "student-1",
		SubjectID: "subject-1",
		Title:     "Лабораторная 3",
		Deadline:  "2026-09-15",
		Status:    models.StatusNew,
	}
	created, err := repo.CreateIfAbsent(context.Background(), order, 2*time.Minute)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestOrderRepositoryFindDuplicate(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	rows := sampleOrderRow(sqlmock.NewRows(orderRowColumns()), "order-dup")
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY o.created_at DESC LIMIT 1")).
		WithArgs("student-1", "subject-1", "Лабораторная 3", "2026-09-15", sqlmock.AnyArg()).
		WillReturnRows(rows)

	dup, err := repo.FindDuplicate(context.Background(), "student-1", "subject-1", "Лабораторная 3", "2026-09-15", 2*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "order-dup", dup.ID)
}

func TestOrderRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("order-1", models.StatusInProgress, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "order-1", models.StatusInProgress))
}

func TestOrderRepositoryUpdatePriceWithTransition(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET actual_price = $2, status = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("order-1", 1800.0, models.StatusWaitingPayment, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePrice(context.Background(), "order-1", 1800, models.StatusWaitingPayment))
}

func TestOrderRepositoryUpdatePricePlain(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET actual_price = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("order-1", 1800.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePrice(context.Background(), "order-1", 1800, ""))
}

func TestOrderRepositoryMarkPaid(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET is_paid = true, updated_at = $2 WHERE id = $1")).
		WithArgs("order-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkPaid(context.Background(), "order-1"))
}

func TestOrderRepositorySetFilesWithStatus(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET files = $2, status = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("order-1", `["a.pdf","b.docx"]`, models.StatusCompleted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetFiles(context.Background(), "order-1", models.FileList{"a.pdf", "b.docx"}, models.StatusCompleted)
	require.NoError(t, err)
}

func TestOrderRepositorySetRevision(t *testing.T) {
	db, mock, cleanup := newOrderRepoMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	grade := "4"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = $2, revision_comment = $3, revision_grade = $4, updated_at = $5 WHERE id = $1")).
		WithArgs("order-1", models.StatusNeedsRevision, "Исправить оформление", &grade, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetRevision(context.Background(), "order-1", "Исправить оформление", &grade))
}
