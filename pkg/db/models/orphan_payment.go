package models

import (
	"time"

	"github.com/google/uuid"
)

// OrphanPayment quarantines a capture event that arrived before its order
// was visible. Rows are deleted once reconciled; rows whose retry count
// reached the configured ceiling are kept for manual review and skipped by
// subsequent sweeps. GatewayPaymentID is unique so duplicate webhook
// deliveries collapse into a single orphan.
type OrphanPayment struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GatewayOrderID   string    `gorm:"column:gateway_order_id;not null;index"`
	GatewayPaymentID string    `gorm:"column:gateway_payment_id;not null;uniqueIndex"`
	Amount           int64     `gorm:"column:amount;not null"`
	Currency         string    `gorm:"column:currency;type:text;not null;default:'INR'"`
	EventType        string    `gorm:"column:event_type;not null"`
	Processed        bool      `gorm:"column:processed;not null;default:false"`
	RetryCount       int       `gorm:"column:retry_count;not null;default:0"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
