package orphans

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kalamandir/kalamandir-backend/pkg/db"
	"github.com/kalamandir/kalamandir-backend/pkg/db/models"
	"github.com/kalamandir/kalamandir-backend/pkg/pagination"
)

// Repository defines persistence operations for quarantined payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, orphan *models.OrphanPayment) (*models.OrphanPayment, bool, error)
	FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.OrphanPayment, error)
	ListUnprocessedOldest(ctx context.Context, limit, maxRetries int) ([]models.OrphanPayment, error)
	IncrementRetry(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params pagination.Params) (*List, error)
}

// List is a cursor page of orphans for admin inspection.
type List struct {
	Items      []models.OrphanPayment `json:"items"`
	NextCursor *string                `json:"next_cursor,omitempty"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orphans repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create quarantines a payment. Duplicate deliveries collapse onto the
// existing row via the unique gateway payment id; the bool reports whether a
// new row was written.
func (r *repository) Create(ctx context.Context, orphan *models.OrphanPayment) (*models.OrphanPayment, bool, error) {
	err := r.db.WithContext(ctx).Create(orphan).Error
	if err == nil {
		return orphan, true, nil
	}
	if !db.IsUniqueViolation(err, "") {
		return nil, false, err
	}
	existing, findErr := r.FindByGatewayPaymentID(ctx, orphan.GatewayPaymentID)
	if findErr != nil {
		return nil, false, findErr
	}
	return existing, false, nil
}

func (r *repository) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.OrphanPayment, error) {
	var orphan models.OrphanPayment
	err := r.db.WithContext(ctx).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		First(&orphan).Error
	if err != nil {
		return nil, err
	}
	return &orphan, nil
}

// ListUnprocessedOldest returns sweep candidates oldest first. Rows at or
// past maxRetries are left for manual review.
func (r *repository) ListUnprocessedOldest(ctx context.Context, limit, maxRetries int) ([]models.OrphanPayment, error) {
	var orphans []models.OrphanPayment
	err := r.db.WithContext(ctx).
		Where("processed = ? AND retry_count < ?", false, maxRetries).
		Order("created_at ASC").
		Limit(limit).
		Find(&orphans).Error
	if err != nil {
		return nil, err
	}
	return orphans, nil
}

func (r *repository) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OrphanPayment{}).
		Where("id = ?", id).
		Update("retry_count", gorm.Expr("retry_count + 1")).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.OrphanPayment{}).Error
}

func (r *repository) List(ctx context.Context, params pagination.Params) (*List, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.OrphanPayment{}).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.OrphanPayment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &List{Items: rows}
	if len(rows) > limit {
		list.Items = rows[:limit]
		last := list.Items[len(list.Items)-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &next
	}
	return list, nil
}
