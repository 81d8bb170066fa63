package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kalamandir/kalamandir-backend/pkg/enums"
)

// Order is the aggregate the payment reconciler mutates. Exactly one of
// UserID/GuestID is set (enforced by a table CHECK). GatewayOrderID is
// assigned once when payment is initiated; GatewayPaymentID is written
// exactly once by the first successful capture.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber        string              `gorm:"column:order_number;not null;uniqueIndex"`
	UserID             *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	GuestID            *uuid.UUID          `gorm:"column:guest_id;type:uuid"`
	GatewayOrderID     *string             `gorm:"column:gateway_order_id;uniqueIndex"`
	GatewayPaymentID   *string             `gorm:"column:gateway_payment_id"`
	PaymentStatus      enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	OrderStatus        enums.OrderStatus   `gorm:"column:order_status;type:text;not null;default:'created'"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'online'"`
	Currency           string              `gorm:"column:currency;type:text;not null;default:'INR'"`
	TotalAmount        int64               `gorm:"column:total_amount;not null"`
	AmountCaptured     int64               `gorm:"column:amount_captured;not null;default:0"`
	CancellationReason *string             `gorm:"column:cancellation_reason"`
	PaidAt             *time.Time          `gorm:"column:paid_at"`
	ShippedAt          *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt        *time.Time          `gorm:"column:delivered_at"`
	CancelledAt        *time.Time          `gorm:"column:cancelled_at"`
	DeletedAt          *time.Time          `gorm:"column:deleted_at"`
	DeletedBy          *uuid.UUID          `gorm:"column:deleted_by;type:uuid"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsTrashed reports whether the order sits in the administrative trash.
func (o Order) IsTrashed() bool {
	return o.DeletedAt != nil
}
