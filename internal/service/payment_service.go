package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vicraft/backend/internal/config"
	"github.com/vicraft/backend/internal/models"
	"github.com/vicraft/backend/internal/payment"
	"github.com/vicraft/backend/internal/paypal"
	"github.com/vicraft/backend/internal/repository"
)

// ErrUnresolvablePayment means a captured payment matched neither its
// correlation token nor any catalog price. Nothing was credited; the order
// stays pending for manual review.
var ErrUnresolvablePayment = errors.New("captured payment could not be resolved")

// PaymentService runs the checkout flow: create a provider order carrying the
// purchase intent, then capture it and apply the grant exactly once.
type PaymentService struct {
	orders  *repository.OrderRepository
	users   *repository.UserRepository
	catalog *repository.CatalogRepository
	paypal  *paypal.Client
	baseURL string
	log     *slog.Logger
}

func NewPaymentService(
	orders *repository.OrderRepository,
	users *repository.UserRepository,
	catalog *repository.CatalogRepository,
	paypalClient *paypal.Client,
	cfg config.Config,
	log *slog.Logger,
) *PaymentService {
	return &PaymentService{
		orders:  orders,
		users:   users,
		catalog: catalog,
		paypal:  paypalClient,
		baseURL: cfg.AppBaseURL,
		log:     log,
	}
}

// CheckoutResult is what the frontend needs to send the buyer to PayPal.
type CheckoutResult struct {
	OrderID       int64
	PayPalOrderID string
	ApproveURL    string
}

// CreateTopUpOrder starts checkout for a coin package.
func (s *PaymentService) CreateTopUpOrder(ctx context.Context, userID, packageID string) (*CheckoutResult, error) {
	pkg, err := s.catalog.FindCoinPackage(ctx, packageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("unknown coin package %q", packageID)
	}
	if err != nil {
		return nil, err
	}

	intent := payment.Intent{Kind: payment.KindTopUp, PackageID: pkg.PackageID, Coins: pkg.TotalCoins()}
	order := &models.Order{
		UserID: userID,
		Type:   models.OrderTypeInApp,
		Amount: pkg.Price,
		Coins:  pkg.TotalCoins(),
	}
	description := fmt.Sprintf("%d coins", pkg.TotalCoins())
	return s.checkout(ctx, order, intent, pkg.Price, description)
}

// CreateSubscriptionOrder starts checkout for a subscription plan variant.
func (s *PaymentService) CreateSubscriptionOrder(ctx context.Context, userID, planID, billingCycle string) (*CheckoutResult, error) {
	pkg, err := s.catalog.FindSubscriptionPackage(ctx, planID, billingCycle)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("unknown subscription plan %q/%q", planID, billingCycle)
	}
	if err != nil {
		return nil, err
	}

	intent := payment.Intent{
		Kind:  payment.KindSubscription,
		Tier:  pkg.PlanID,
		Cycle: pkg.BillingCycle,
		Coins: pkg.Coins,
	}
	order := &models.Order{
		UserID:           userID,
		Type:             models.OrderTypeSubscription,
		Amount:           pkg.Price,
		Coins:            pkg.Coins,
		SubscriptionTier: pkg.PlanID,
	}
	description := fmt.Sprintf("%s subscription, per %s", pkg.PlanID, pkg.BillingCycle)
	return s.checkout(ctx, order, intent, pkg.Price, description)
}

func (s *PaymentService) checkout(ctx context.Context, order *models.Order, intent payment.Intent, amount float64, description string) (*CheckoutResult, error) {
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	created, err := s.paypal.CreateOrder(ctx, paypal.CreateOrderInput{
		Amount:      amount,
		Description: description,
		CustomID:    intent.CustomID(),
		ReturnURL:   s.baseURL + "/payment/success",
		CancelURL:   s.baseURL + "/payment/cancel",
		BrandName:   "ViCraft",
	})
	if err != nil {
		return nil, err
	}

	if err := s.orders.SetPayPalOrderID(ctx, order.ID, created.ID); err != nil {
		return nil, err
	}

	s.log.Info("checkout started",
		"user_id", order.UserID, "order_id", order.ID,
		"paypal_order_id", created.ID, "type", order.Type, "amount", amount)
	return &CheckoutResult{
		OrderID:       order.ID,
		PayPalOrderID: created.ID,
		ApproveURL:    created.ApproveURL,
	}, nil
}

// CaptureOrder captures an approved PayPal order and applies its grant. The
// pending-to-completed transition on the local order row is the idempotency
// gate: a repeated capture call returns the completed order without crediting
// anything twice. An unresolvable capture leaves every row untouched.
func (s *PaymentService) CaptureOrder(ctx context.Context, userID, paypalOrderID string) (*models.Order, error) {
	order, err := s.orders.FindByPayPalOrderID(ctx, paypalOrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrNotFound
	}
	if order.Status == models.OrderCompleted {
		return order, nil
	}
	if order.Status == models.OrderFailed {
		return nil, fmt.Errorf("order %d already failed", order.ID)
	}

	capture, err := s.paypal.CaptureOrder(ctx, paypalOrderID)
	if err != nil {
		return nil, err
	}
	if !capture.Completed() {
		if _, err := s.orders.MarkFailed(ctx, paypalOrderID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("payment not completed: status %s", capture.Status)
	}

	intent, err := s.resolveIntent(ctx, capture)
	if err != nil {
		return nil, err
	}

	won, err := s.orders.MarkCompleted(ctx, paypalOrderID)
	if err != nil {
		return nil, err
	}
	if !won {
		// Another capture call got here first; its grant stands.
		return s.orders.FindByPayPalOrderID(ctx, paypalOrderID)
	}

	switch intent.Kind {
	case payment.KindTopUp:
		if err := s.users.AddInAppCoins(ctx, order.UserID, intent.Coins); err != nil {
			s.logGrantFailure(order, paypalOrderID, intent, err)
			return nil, fmt.Errorf("apply top-up for order %d: %w", order.ID, err)
		}
	case payment.KindSubscription:
		expiresAt := intent.ExpiresAt(time.Now())
		if err := s.users.ApplySubscription(ctx, order.UserID, intent.Tier, intent.Cycle, intent.Coins, expiresAt); err != nil {
			s.logGrantFailure(order, paypalOrderID, intent, err)
			return nil, fmt.Errorf("apply subscription for order %d: %w", order.ID, err)
		}
	default:
		return nil, fmt.Errorf("unexpected intent kind %q", intent.Kind)
	}

	s.log.Info("payment captured",
		"user_id", order.UserID, "paypal_order_id", paypalOrderID,
		"kind", intent.Kind, "coins", intent.Coins, "amount", capture.Amount)
	return s.orders.FindByPayPalOrderID(ctx, paypalOrderID)
}

// logGrantFailure records enough detail to reconcile by hand: the order won
// the completed transition but the user was not credited.
func (s *PaymentService) logGrantFailure(order *models.Order, paypalOrderID string, intent payment.Intent, err error) {
	s.log.Error("order completed but grant failed",
		"order_id", order.ID,
		"paypal_order_id", paypalOrderID,
		"user_id", order.UserID,
		"kind", intent.Kind,
		"tier", intent.Tier,
		"coins", intent.Coins,
		"err", err)
}

func (s *PaymentService) resolveIntent(ctx context.Context, capture *paypal.Capture) (payment.Intent, error) {
	coinPackages, err := s.catalog.ListCoinPackages(ctx)
	if err != nil {
		return payment.Intent{}, err
	}
	subscriptionPackages, err := s.catalog.ListSubscriptionPackages(ctx)
	if err != nil {
		return payment.Intent{}, err
	}

	intent, err := payment.Resolve(capture.CustomID, capture.Amount, coinPackages, subscriptionPackages)
	if errors.Is(err, payment.ErrUnresolvable) {
		s.log.Error("unresolvable capture",
			"paypal_order_id", capture.OrderID, "custom_id", capture.CustomID, "amount", capture.Amount)
		return payment.Intent{}, fmt.Errorf("%w: order %s", ErrUnresolvablePayment, capture.OrderID)
	}
	if err != nil {
		return payment.Intent{}, err
	}
	return intent, nil
}

// Orders lists the user's recent payment attempts.
func (s *PaymentService) Orders(ctx context.Context, userID string, limit int) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID, limit)
}
