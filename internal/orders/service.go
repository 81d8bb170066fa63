package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kalamandir/kalamandir-backend/internal/sequence"
	"github.com/kalamandir/kalamandir-backend/pkg/config"
	"github.com/kalamandir/kalamandir-backend/pkg/db/models"
	"github.com/kalamandir/kalamandir-backend/pkg/enums"
	pkgerrors "github.com/kalamandir/kalamandir-backend/pkg/errors"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
	"github.com/kalamandir/kalamandir-backend/pkg/money"
	"github.com/kalamandir/kalamandir-backend/pkg/razorpay"
)

// Service exposes buyer and admin order operations.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderView, error)
	UpdateStatus(ctx context.Context, input StatusUpdateInput) (*OrderView, error)
	Trash(ctx context.Context, orderID, actorID uuid.UUID) error
}

type service struct {
	repo    Repository
	tx      txRunner
	counter sequenceCounter
	gateway gatewayClient
	cfg     config.OrdersConfig
	logger  *logger.Logger
	now     func() time.Time
}

// NewService builds the orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, counter sequenceCounter, gateway gatewayClient, cfg config.OrdersConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if counter == nil {
		return nil, fmt.Errorf("sequence counter required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		counter: counter,
		gateway: gateway,
		cfg:     cfg,
		logger:  logg,
		now:     time.Now,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if err := validateCheckout(input); err != nil {
		return nil, err
	}
	currency := input.Currency
	if currency == "" {
		currency = "INR"
	}

	// Counter increments are not transactional with the insert; a failed
	// checkout burns a number, which is acceptable.
	seq, err := s.counter.Next(ctx, sequence.OrderNumbers)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting order number")
	}
	number := sequence.FormatOrderNumber(s.cfg.NumberPrefix, s.cfg.NumberPad, seq)

	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		UserID:        input.UserID,
		GuestID:       input.GuestID,
		PaymentStatus: enums.PaymentStatusPending,
		OrderStatus:   enums.OrderStatusCreated,
		PaymentMethod: input.PaymentMethod,
		Currency:      currency,
		TotalAmount:   input.AmountMinor,
	}

	amountDue := input.AmountMinor
	if input.PaymentMethod == enums.PaymentMethodCOD {
		amountDue = money.AdvanceMinorUnits(input.AmountMinor, s.cfg.CODAdvancePercent)
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).Create(ctx, order)
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
	}

	ctx = s.logger.WithOrderID(ctx, order.ID.String())
	gatewayOrder, err := s.gateway.CreateOrder(ctx, razorpay.OrderParams{
		AmountMinor: amountDue,
		Currency:    currency,
		Receipt:     number,
		Notes: map[string]string{
			"order_id":     order.ID.String(),
			"order_number": number,
		},
	})
	if err != nil {
		// Order stays gateway-less and pending; the timeout sweep will
		// cancel it if the client never retries.
		s.logger.Error(ctx, "gateway order creation failed", err)
		return nil, err
	}

	if err := s.repo.SetGatewayOrderID(ctx, order.ID, gatewayOrder.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing gateway order id")
	}

	ctx = s.logger.WithGatewayOrderID(ctx, gatewayOrder.ID)
	s.logger.Info(ctx, "checkout created")

	return &CheckoutResult{
		OrderID:        order.ID,
		OrderNumber:    number,
		GatewayOrderID: gatewayOrder.ID,
		GatewayKeyID:   s.gateway.KeyID(),
		AmountDueMinor: amountDue,
		Currency:       currency,
		PaymentMethod:  input.PaymentMethod,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.findVisible(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return viewFromModel(order), nil
}

func (s *service) UpdateStatus(ctx context.Context, input StatusUpdateInput) (*OrderView, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Status))
	}
	order, err := s.findVisible(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.OrderStatus.CanTransitionTo(input.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.OrderStatus, input.Status))
	}

	now := s.now().UTC()
	updates := map[string]any{}
	switch input.Status {
	case enums.OrderStatusShipped:
		updates["shipped_at"] = now
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
		if input.Reason != nil {
			updates["cancellation_reason"] = *input.Reason
		}
	}

	affected, err := s.repo.UpdateStatus(ctx, input.OrderID, order.OrderStatus, input.Status, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}
	if affected == 0 {
		// Lost a race with another transition.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}

	updated, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading order")
	}
	return viewFromModel(updated), nil
}

func (s *service) Trash(ctx context.Context, orderID, actorID uuid.UUID) error {
	affected, err := s.repo.SoftDelete(ctx, orderID, actorID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "trashing order")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

func (s *service) findVisible(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order.IsTrashed() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func validateCheckout(input CheckoutInput) error {
	if (input.UserID == nil) == (input.GuestID == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of user_id and guest_id is required")
	}
	if input.AmountMinor <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	return nil
}
