package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kalamandir/kalamandir-backend/pkg/db/models"
	"github.com/kalamandir/kalamandir-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT,
  guest_id TEXT,
  gateway_order_id TEXT UNIQUE,
  gateway_payment_id TEXT,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  order_status TEXT NOT NULL DEFAULT 'created',
  payment_method TEXT NOT NULL DEFAULT 'online',
  currency TEXT NOT NULL DEFAULT 'INR',
  total_amount INTEGER NOT NULL,
  amount_captured INTEGER NOT NULL DEFAULT 0,
  cancellation_reason TEXT,
  paid_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  deleted_at DATETIME,
  deleted_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM orders").Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, mutate func(*models.Order)) *models.Order {
	t.Helper()
	userID := uuid.New()
	gatewayOrderID := "order_" + uuid.NewString()[:8]
	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    "KM-" + uuid.NewString()[:8],
		UserID:         &userID,
		GatewayOrderID: &gatewayOrderID,
		PaymentStatus:  enums.PaymentStatusPending,
		OrderStatus:    enums.OrderStatusCreated,
		PaymentMethod:  enums.PaymentMethodOnline,
		Currency:       "INR",
		TotalAmount:    50000,
		CreatedAt:      time.Now().UTC(),
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, nil)
	now := time.Now().UTC()

	affected, err := repo.MarkPaid(ctx, order.ID, "pay_1", 50000, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	// Replay matches zero rows because the guard no longer holds.
	affected, err = repo.MarkPaid(ctx, order.ID, "pay_1", 50000, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, stored.OrderStatus)
	require.NotNil(t, stored.GatewayPaymentID)
	assert.Equal(t, "pay_1", *stored.GatewayPaymentID)
	assert.Equal(t, int64(50000), stored.AmountCaptured)
	require.NotNil(t, stored.PaidAt)
}

func TestMarkAdvancePaidRecordsPartialCapture(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, func(o *models.Order) {
		o.PaymentMethod = enums.PaymentMethodCOD
	})

	affected, err := repo.MarkAdvancePaid(ctx, order.ID, "pay_adv", 12500, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPartiallyPaid, stored.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, stored.OrderStatus)
	assert.Equal(t, int64(12500), stored.AmountCaptured)
}

func TestMarkFailedOnlyHitsPendingOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	pending := seedOrder(t, db, nil)
	affected, err := repo.MarkFailed(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// The payment id is recorded only on a successful capture.
	stored, err := repo.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, stored.PaymentStatus)
	assert.Nil(t, stored.GatewayPaymentID)

	paid := seedOrder(t, db, nil)
	_, err = repo.MarkPaid(ctx, paid.ID, "pay_ok", 50000, time.Now().UTC())
	require.NoError(t, err)

	// A late failure event never demotes a settled order.
	affected, err = repo.MarkFailed(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	stored, err = repo.FindByID(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
}

func TestMarkPaidAfterFailedAttemptRecordsRetry(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, nil)

	affected, err := repo.MarkFailed(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	// A retried attempt on the same gateway order settles normally.
	affected, err = repo.MarkPaid(ctx, order.ID, "pay_retry", 50000, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
	require.NotNil(t, stored.GatewayPaymentID)
	assert.Equal(t, "pay_retry", *stored.GatewayPaymentID)
}

func TestMarkPaidSkipsCancelledOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, nil)

	_, err := repo.CancelIfStillPending(ctx, order.ID, "payment timeout", time.Now().UTC())
	require.NoError(t, err)

	affected, err := repo.MarkPaid(ctx, order.ID, "pay_late", 50000, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, stored.OrderStatus)
	assert.Nil(t, stored.GatewayPaymentID)
}

func TestFindStalePendingOrdersOldestFirst(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-30 * time.Minute)

	old := seedOrder(t, db, func(o *models.Order) {
		o.CreatedAt = cutoff.Add(-2 * time.Hour)
	})
	older := seedOrder(t, db, func(o *models.Order) {
		o.CreatedAt = cutoff.Add(-3 * time.Hour)
	})
	seedOrder(t, db, nil) // fresh, must not match
	seedOrder(t, db, func(o *models.Order) {
		o.CreatedAt = cutoff.Add(-time.Hour)
		o.PaymentStatus = enums.PaymentStatusPaid
		o.OrderStatus = enums.OrderStatusConfirmed
	})

	stale, err := repo.FindStalePending(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, older.ID, stale[0].ID)
	assert.Equal(t, old.ID, stale[1].ID)

	limited, err := repo.FindStalePending(ctx, cutoff, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, older.ID, limited[0].ID)
}

func TestCancelIfStillPendingLosesToConcurrentCapture(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	order := seedOrder(t, db, nil)

	// Capture lands between the sweep's read and its write.
	_, err := repo.MarkPaid(ctx, order.ID, "pay_raced", 50000, now)
	require.NoError(t, err)

	affected, err := repo.CancelIfStillPending(ctx, order.ID, "payment timeout", now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
	assert.Nil(t, stored.CancelledAt)
}

func TestCancelIfStillPendingCancels(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, nil)

	affected, err := repo.CancelIfStillPending(ctx, order.ID, "payment timeout", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, stored.OrderStatus)
	require.NotNil(t, stored.CancellationReason)
	assert.Equal(t, "payment timeout", *stored.CancellationReason)
	require.NotNil(t, stored.CancelledAt)
}

func TestUpdateStatusGuardsExpectedState(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, func(o *models.Order) {
		o.OrderStatus = enums.OrderStatusConfirmed
		o.PaymentStatus = enums.PaymentStatusPaid
	})

	affected, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusConfirmed, enums.OrderStatusShipped,
		map[string]any{"shipped_at": time.Now().UTC()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Stale expectation matches nothing.
	affected, err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusConfirmed, enums.OrderStatusShipped, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestSoftDeleteIsOneShot(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, nil)
	admin := uuid.New()

	affected, err := repo.SoftDelete(ctx, order.ID, admin, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.SoftDelete(ctx, order.ID, admin, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsTrashed())
	require.NotNil(t, stored.DeletedBy)
	assert.Equal(t, admin, *stored.DeletedBy)
}

func TestSetGatewayOrderIDWritesOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, func(o *models.Order) {
		o.GatewayOrderID = nil
	})

	require.NoError(t, repo.SetGatewayOrderID(ctx, order.ID, "order_abc"))
	require.NoError(t, repo.SetGatewayOrderID(ctx, order.ID, "order_other"))

	stored, err := repo.FindByGatewayOrderID(ctx, "order_abc")
	require.NoError(t, err)
	assert.Equal(t, order.ID, stored.ID)
}
