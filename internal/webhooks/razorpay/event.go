package razorpaywebhook

import (
	"fmt"

	"github.com/kalamandir/kalamandir-backend/internal/reconcile"
)

// Event names delivered by the gateway that this system consumes. Anything
// else is acknowledged and ignored.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// WebhookEvent is the gateway's delivery envelope, decoded only after the
// body signature has been verified.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

// PaymentEntity is the payment record nested inside the envelope.
type PaymentEntity struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Method      string `json:"method"`
}

// DedupeKey identifies a delivery for idempotency purposes. The gateway can
// redeliver the same event, and distinct events can share a payment id.
func (e *WebhookEvent) DedupeKey() string {
	return fmt.Sprintf("%s:%s", e.Payload.Payment.Entity.ID, e.Event)
}

// CaptureEvent converts the envelope into the reconciler's input.
func (e *WebhookEvent) CaptureEvent() reconcile.CaptureEvent {
	entity := e.Payload.Payment.Entity
	return reconcile.CaptureEvent{
		GatewayOrderID:   entity.OrderID,
		GatewayPaymentID: entity.ID,
		AmountMinor:      entity.AmountMinor,
		Currency:         entity.Currency,
		EventType:        e.Event,
	}
}

// FailureEvent converts the envelope into the reconciler's input.
func (e *WebhookEvent) FailureEvent() reconcile.FailureEvent {
	entity := e.Payload.Payment.Entity
	return reconcile.FailureEvent{
		GatewayOrderID:   entity.OrderID,
		GatewayPaymentID: entity.ID,
	}
}
