package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kalamandir/kalamandir-backend/pkg/db/models"
	"github.com/kalamandir/kalamandir-backend/pkg/enums"
	"github.com/kalamandir/kalamandir-backend/pkg/razorpay"
)

// Repository defines persistence operations for the orders table. Payment
// mutations are conditional updates that report how many rows matched, so
// callers can distinguish a won race from a lost one without locking.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error
	MarkPaid(ctx context.Context, id uuid.UUID, gatewayPaymentID string, amount int64, at time.Time) (int64, error)
	MarkAdvancePaid(ctx context.Context, id uuid.UUID, gatewayPaymentID string, amount int64, at time.Time) (int64, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (int64, error)
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	CancelIfStillPending(ctx context.Context, id uuid.UUID, reason string, at time.Time) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (int64, error)
	SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID, at time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gatewayClient interface {
	CreateOrder(ctx context.Context, params razorpay.OrderParams) (*razorpay.Order, error)
	KeyID() string
}

type sequenceCounter interface {
	Next(ctx context.Context, name string) (int64, error)
}
