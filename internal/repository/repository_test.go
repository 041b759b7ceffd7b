package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"inventory-admin/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestProductRepository_IncrementQuantity(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "products" SET "quantity"=quantity \+ \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT "quantity" FROM "products" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(17))

	quantity, err := repo.IncrementQuantity(context.Background(), id, 5)
	require.NoError(t, err)
	assert.Equal(t, 17, quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_IncrementQuantity_Missing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectExec(`UPDATE "products" SET "quantity"=quantity \+ \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.IncrementQuantity(context.Background(), uuid.New(), 5)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepository_FindByIDForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPurchaseRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "purchases" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "purchase_no", "status"}).
			AddRow(id.String(), "PO-1", model.PurchaseStatusPending))

	purchase, err := repo.FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, purchase.ID)
	assert.Equal(t, model.PurchaseStatusPending, purchase.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepository_Report(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPurchaseRepository(db)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)FROM "?purchase_details"? JOIN products .*LEFT JOIN users .*` +
		`purchases\.status = \$1 AND \(?purchases\.purchase_date >= \$2 AND purchases\.purchase_date < \$3.*` +
		`ORDER BY purchases\.purchase_date ASC`).
		WithArgs(model.PurchaseStatusApproved, from, to).
		WillReturnRows(sqlmock.NewRows([]string{
			"date", "purchase_no", "supplier_name", "product_code", "product_name",
			"quantity", "unit_cost", "total", "created_by",
		}).AddRow(from.Add(9*time.Hour), "PO-1", "Acme", "W-1", "Widget", 3, "2.5000", "7.5000", "alice"))

	rows, err := repo.Report(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PO-1", rows[0].PurchaseNo)
	assert.Equal(t, "W-1", rows[0].ProductCode)
	assert.Equal(t, 3, rows[0].Quantity)
	assert.Equal(t, "2.5", rows[0].UnitCost.String())
	assert.Equal(t, "alice", rows[0].CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_RunInTx(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE products SET quantity = 0`).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err := tm.RunInTx(context.Background(), func(txCtx context.Context) error {
			assert.True(t, InTx(txCtx))
			// nested calls join the open transaction
			return tm.RunInTx(txCtx, func(inner context.Context) error {
				return GetDB(inner, db).Exec("UPDATE products SET quantity = 0").Error
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db)
		boom := errors.New("boom")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := tm.RunInTx(context.Background(), func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	assert.False(t, InTx(context.Background()))
}
