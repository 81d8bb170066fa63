package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/kalamandir/kalamandir-backend/pkg/db/models"
	"github.com/kalamandir/kalamandir-backend/pkg/enums"
)

// CheckoutInput captures what a buyer submits to start an order. Exactly one
// of UserID/GuestID must be set.
type CheckoutInput struct {
	UserID        *uuid.UUID
	GuestID       *uuid.UUID
	AmountMinor   int64
	Currency      string
	PaymentMethod enums.PaymentMethod
}

// CheckoutResult is returned to the client so it can open the gateway
// checkout. AmountDueMinor is the amount the gateway collects now: the full
// total for online orders, the configured advance for COD.
type CheckoutResult struct {
	OrderID        uuid.UUID           `json:"order_id"`
	OrderNumber    string              `json:"order_number"`
	GatewayOrderID string              `json:"gateway_order_id"`
	GatewayKeyID   string              `json:"gateway_key_id"`
	AmountDueMinor int64               `json:"amount_due"`
	Currency       string              `json:"currency"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
}

// OrderView is the buyer-facing projection of an order.
type OrderView struct {
	OrderID        uuid.UUID           `json:"order_id"`
	OrderNumber    string              `json:"order_number"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	OrderStatus    enums.OrderStatus   `json:"order_status"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	Currency       string              `json:"currency"`
	TotalAmount    int64               `json:"total_amount"`
	AmountCaptured int64               `json:"amount_captured"`
	PaidAt         *time.Time          `json:"paid_at,omitempty"`
	ShippedAt      *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// StatusUpdateInput carries an admin-driven order status transition.
type StatusUpdateInput struct {
	OrderID uuid.UUID
	Status  enums.OrderStatus
	Reason  *string
	ActorID uuid.UUID
}

func viewFromModel(order *models.Order) *OrderView {
	return &OrderView{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		PaymentStatus:  order.PaymentStatus,
		OrderStatus:    order.OrderStatus,
		PaymentMethod:  order.PaymentMethod,
		Currency:       order.Currency,
		TotalAmount:    order.TotalAmount,
		AmountCaptured: order.AmountCaptured,
		PaidAt:         order.PaidAt,
		ShippedAt:      order.ShippedAt,
		DeliveredAt:    order.DeliveredAt,
		CancelledAt:    order.CancelledAt,
		CreatedAt:      order.CreatedAt,
	}
}
