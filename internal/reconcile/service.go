package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kalamandir/kalamandir-backend/pkg/db/models"
	"github.com/kalamandir/kalamandir-backend/pkg/enums"
	pkgerrors "github.com/kalamandir/kalamandir-backend/pkg/errors"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
)

// Outcome classifies what a payment event did to the order state. Every
// outcome after webhook signature verification is acknowledged to the
// gateway; the outcome is for logs, metrics, and the sweep.
type Outcome string

const (
	OutcomeApplied           Outcome = "APPLIED"
	OutcomeAlreadyProcessed  Outcome = "ALREADY_PROCESSED"
	OutcomeOrderNotFound     Outcome = "ORDER_NOT_FOUND"
	OutcomePaymentIDMismatch Outcome = "PAYMENT_ID_MISMATCH"
	OutcomeAmountMismatch    Outcome = "AMOUNT_MISMATCH"
	OutcomeSignatureInvalid  Outcome = "SIGNATURE_INVALID"
	OutcomeInternalError     Outcome = "INTERNAL_ERROR"
)

// CaptureEvent is a normalized payment.captured delivery.
type CaptureEvent struct {
	GatewayOrderID   string
	GatewayPaymentID string
	AmountMinor      int64
	Currency         string
	EventType        string
}

// FailureEvent is a normalized payment.failed delivery.
type FailureEvent struct {
	GatewayOrderID   string
	GatewayPaymentID string
}

// Result reports the transition applied (or refused) for an event.
type Result struct {
	Outcome       Outcome              `json:"outcome"`
	Orphaned      bool                 `json:"orphaned,omitempty"`
	OrderID       *uuid.UUID           `json:"order_id,omitempty"`
	OrderNumber   string               `json:"order_number,omitempty"`
	PaymentStatus *enums.PaymentStatus `json:"payment_status,omitempty"`
}

type orderStore interface {
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, gatewayPaymentID string, amount int64, at time.Time) (int64, error)
	MarkAdvancePaid(ctx context.Context, id uuid.UUID, gatewayPaymentID string, amount int64, at time.Time) (int64, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (int64, error)
}

type orphanStore interface {
	Create(ctx context.Context, orphan *models.OrphanPayment) (*models.OrphanPayment, bool, error)
}

// Service applies payment events to orders. Every transition is a
// conditional update, so replays and races collapse into explicit outcomes
// instead of corrupting state.
type Service struct {
	orders  orderStore
	orphans orphanStore
	logger  *logger.Logger
	now     func() time.Time
}

// NewService builds the reconciler with the required dependencies.
func NewService(orders orderStore, orphans orphanStore, logg *logger.Logger) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if orphans == nil {
		return nil, fmt.Errorf("orphan store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		orders:  orders,
		orphans: orphans,
		logger:  logg,
		now:     time.Now,
	}, nil
}

// HandleCapture applies a successful capture. A missing order is quarantined
// rather than rejected: the capture may have raced order creation, and the
// money is already taken.
func (s *Service) HandleCapture(ctx context.Context, event CaptureEvent) (Result, error) {
	if event.GatewayOrderID == "" || event.GatewayPaymentID == "" {
		return Result{Outcome: OutcomeInternalError},
			pkgerrors.New(pkgerrors.CodeValidation, "capture event missing gateway ids")
	}
	ctx = s.logger.WithGatewayOrderID(ctx, event.GatewayOrderID)

	order, err := s.orders.FindByGatewayOrderID(ctx, event.GatewayOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.quarantine(ctx, event)
		}
		return Result{Outcome: OutcomeInternalError},
			pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order for capture")
	}

	ctx = s.logger.WithOrderID(ctx, order.ID.String())

	if outcome, done := checkExistingPayment(order, event.GatewayPaymentID); done {
		s.logger.Info(ctx, fmt.Sprintf("capture resolved without write: %s", outcome))
		return resultFor(order, outcome), nil
	}

	// Full online payments must match the order total exactly. COD advances
	// carry whatever the gateway collected.
	if order.PaymentMethod == enums.PaymentMethodOnline && event.AmountMinor != order.TotalAmount {
		s.logger.Warn(ctx, fmt.Sprintf("capture amount %d does not match order total %d",
			event.AmountMinor, order.TotalAmount))
		return resultFor(order, OutcomeAmountMismatch), nil
	}

	var affected int64
	if order.PaymentMethod == enums.PaymentMethodCOD {
		affected, err = s.orders.MarkAdvancePaid(ctx, order.ID, event.GatewayPaymentID, event.AmountMinor, s.now().UTC())
	} else {
		affected, err = s.orders.MarkPaid(ctx, order.ID, event.GatewayPaymentID, event.AmountMinor, s.now().UTC())
	}
	if err != nil {
		return Result{Outcome: OutcomeInternalError},
			pkgerrors.Wrap(pkgerrors.CodeInternal, err, "applying capture")
	}
	if affected == 0 {
		return s.resolveLostCapture(ctx, event)
	}

	s.logger.Info(ctx, "capture applied")
	status := enums.PaymentStatusPaid
	if order.PaymentMethod == enums.PaymentMethodCOD {
		status = enums.PaymentStatusPartiallyPaid
	}
	return Result{
		Outcome:       OutcomeApplied,
		OrderID:       &order.ID,
		OrderNumber:   order.OrderNumber,
		PaymentStatus: &status,
	}, nil
}

// HandleFailure marks a still-pending order as failed. The gateway payment id
// is left unset so a retried attempt can still capture; a failure that loses
// to a capture is a no-op; a failure for an unknown order is dropped, since
// no money moved.
func (s *Service) HandleFailure(ctx context.Context, event FailureEvent) (Result, error) {
	if event.GatewayOrderID == "" {
		return Result{Outcome: OutcomeInternalError},
			pkgerrors.New(pkgerrors.CodeValidation, "failure event missing gateway order id")
	}
	ctx = s.logger.WithGatewayOrderID(ctx, event.GatewayOrderID)

	order, err := s.orders.FindByGatewayOrderID(ctx, event.GatewayOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn(ctx, "failure event for unknown order dropped")
			return Result{Outcome: OutcomeOrderNotFound}, nil
		}
		return Result{Outcome: OutcomeInternalError},
			pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order for failure")
	}

	ctx = s.logger.WithOrderID(ctx, order.ID.String())

	affected, err := s.orders.MarkFailed(ctx, order.ID)
	if err != nil {
		return Result{Outcome: OutcomeInternalError},
			pkgerrors.Wrap(pkgerrors.CodeInternal, err, "applying failure")
	}
	if affected == 0 {
		// The order already settled or failed; the stored state wins.
		s.logger.Info(ctx, "failure event ignored, order no longer pending")
		return resultFor(order, OutcomeAlreadyProcessed), nil
	}

	s.logger.Info(ctx, "payment failure recorded")
	status := enums.PaymentStatusFailed
	return Result{
		Outcome:       OutcomeApplied,
		OrderID:       &order.ID,
		OrderNumber:   order.OrderNumber,
		PaymentStatus: &status,
	}, nil
}

func (s *Service) quarantine(ctx context.Context, event CaptureEvent) (Result, error) {
	currency := event.Currency
	if currency == "" {
		currency = "INR"
	}
	eventType := event.EventType
	if eventType == "" {
		eventType = "payment.captured"
	}
	_, fresh, err := s.orphans.Create(ctx, &models.OrphanPayment{
		ID:               uuid.New(),
		GatewayOrderID:   event.GatewayOrderID,
		GatewayPaymentID: event.GatewayPaymentID,
		Amount:           event.AmountMinor,
		Currency:         currency,
		EventType:        eventType,
	})
	if err != nil {
		return Result{Outcome: OutcomeInternalError},
			pkgerrors.Wrap(pkgerrors.CodeInternal, err, "quarantining orphan payment")
	}
	if fresh {
		s.logger.Warn(ctx, "capture for unknown order quarantined")
	} else {
		s.logger.Info(ctx, "duplicate orphan capture ignored")
	}
	return Result{Outcome: OutcomeOrderNotFound, Orphaned: true}, nil
}

// resolveLostCapture re-reads after a zero-row conditional update to name
// the winner.
func (s *Service) resolveLostCapture(ctx context.Context, event CaptureEvent) (Result, error) {
	order, err := s.orders.FindByGatewayOrderID(ctx, event.GatewayOrderID)
	if err != nil {
		return Result{Outcome: OutcomeInternalError},
			pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-reading order after lost capture")
	}
	if outcome, done := checkExistingPayment(order, event.GatewayPaymentID); done {
		return resultFor(order, outcome), nil
	}
	// No payment recorded yet the capture guard failed: the order was
	// cancelled or mutated outside the reconciler.
	return resultFor(order, OutcomeInternalError), nil
}

func checkExistingPayment(order *models.Order, gatewayPaymentID string) (Outcome, bool) {
	if order.GatewayPaymentID == nil {
		return "", false
	}
	if *order.GatewayPaymentID == gatewayPaymentID {
		return OutcomeAlreadyProcessed, true
	}
	return OutcomePaymentIDMismatch, true
}

func resultFor(order *models.Order, outcome Outcome) Result {
	status := order.PaymentStatus
	return Result{
		Outcome:       outcome,
		OrderID:       &order.ID,
		OrderNumber:   order.OrderNumber,
		PaymentStatus: &status,
	}
}
