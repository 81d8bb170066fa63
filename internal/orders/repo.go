package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kalamandir/kalamandir-backend/pkg/db/models"
	"github.com/kalamandir/kalamandir-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND gateway_order_id IS NULL", id).
		Update("gateway_order_id", gatewayOrderID).Error
}

// MarkPaid settles an online order. The guard matches an order still waiting
// for payment, including one whose previous attempt failed (the gateway lets
// the buyer retry with a new payment id on the same gateway order), so replays
// and racing captures collapse to zero rows.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, gatewayPaymentID string, amount int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status IN ? AND gateway_payment_id IS NULL AND order_status <> ?",
			id, capturablePaymentStatuses, enums.OrderStatusCancelled).
		Updates(map[string]any{
			"payment_status":     enums.PaymentStatusPaid,
			"order_status":       enums.OrderStatusConfirmed,
			"gateway_payment_id": gatewayPaymentID,
			"amount_captured":    amount,
			"paid_at":            at,
		})
	return res.RowsAffected, res.Error
}

// MarkAdvancePaid records a COD advance capture.
func (r *repository) MarkAdvancePaid(ctx context.Context, id uuid.UUID, gatewayPaymentID string, amount int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status IN ? AND gateway_payment_id IS NULL AND order_status <> ?",
			id, capturablePaymentStatuses, enums.OrderStatusCancelled).
		Updates(map[string]any{
			"payment_status":     enums.PaymentStatusPartiallyPaid,
			"order_status":       enums.OrderStatusConfirmed,
			"gateway_payment_id": gatewayPaymentID,
			"amount_captured":    amount,
			"paid_at":            at,
		})
	return res.RowsAffected, res.Error
}

// capturablePaymentStatuses are the states a capture may settle from. A failed
// attempt leaves the order open for a retried payment.
var capturablePaymentStatuses = []enums.PaymentStatus{
	enums.PaymentStatusPending,
	enums.PaymentStatusFailed,
}

// MarkFailed flips a still-pending order to failed. The payment id stays
// unset; it is recorded only on the first successful capture, and a settled
// order never moves back, so a late failure event matches zero rows.
func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPending).
		Update("payment_status", enums.PaymentStatusFailed)
	return res.RowsAffected, res.Error
}

func (r *repository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var stale []models.Order
	err := r.db.WithContext(ctx).
		Where("payment_status = ? AND order_status = ? AND created_at < ? AND deleted_at IS NULL",
			enums.PaymentStatusPending, enums.OrderStatusCreated, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&stale).Error
	if err != nil {
		return nil, err
	}
	return stale, nil
}

// CancelIfStillPending re-checks the stale predicate at write time so a
// capture that lands between the sweep's read and this write wins.
func (r *repository) CancelIfStillPending(ctx context.Context, id uuid.UUID, reason string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ? AND order_status = ? AND cancelled_at IS NULL",
			id, enums.PaymentStatusPending, enums.OrderStatusCreated).
		Updates(map[string]any{
			"order_status":        enums.OrderStatusCancelled,
			"cancellation_reason": reason,
			"cancelled_at":        at,
		})
	return res.RowsAffected, res.Error
}

// UpdateStatus applies an admin transition guarded by the expected current
// status.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (int64, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["order_status"] = to
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status = ? AND deleted_at IS NULL", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]any{
			"deleted_at": at,
			"deleted_by": deletedBy,
		})
	return res.RowsAffected, res.Error
}
