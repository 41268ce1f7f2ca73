package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// OrderWebhookServiceConfig contains the collaborators of OrderWebhookService
type OrderWebhookServiceConfig struct {
	Hub         integration.CommerceHub
	Stores      *integration.StoreRegistry
	Coordinator *StockCoordinator
	// Deliveries de-duplicates webhook deliveries; nil disables de-duplication
	Deliveries  integration.IdempotencyStore
	Idempotency integration.IdempotencyConfig
	Events      integration.SyncEventPublisher
	Logger      *zap.Logger
}

// OrderWebhookService decrements Storefront stock for Commerce Hub orders.
// Each order is applied all-or-nothing: the first failing line item stops the
// remaining ones and is reported with the number already applied.
type OrderWebhookService struct {
	hub         integration.CommerceHub
	stores      *integration.StoreRegistry
	coordinator *StockCoordinator
	deliveries  integration.IdempotencyStore
	idempotency integration.IdempotencyConfig
	events      integration.SyncEventPublisher
	logger      *zap.Logger
}

// NewOrderWebhookService creates a new OrderWebhookService
func NewOrderWebhookService(cfg OrderWebhookServiceConfig) *OrderWebhookService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Idempotency.TTL <= 0 {
		cfg.Idempotency.TTL = integration.DefaultIdempotencyConfig().TTL
	}
	return &OrderWebhookService{
		hub:         cfg.Hub,
		stores:      cfg.Stores,
		coordinator: cfg.Coordinator,
		deliveries:  cfg.Deliveries,
		idempotency: cfg.Idempotency,
		events:      cfg.Events,
		logger:      cfg.Logger.Named("orders"),
	}
}

// ReconcileOrder applies an order to Storefront stock. deliveryID identifies
// the webhook delivery; when empty the order id is used. A repeated delivery
// returns a result with Duplicate set and touches nothing.
func (s *OrderWebhookService) ReconcileOrder(ctx context.Context, deliveryID string, order integration.OrderWebhook) (*integration.OrderResult, error) {
	log := s.logger.With(zap.Int64("order_id", order.ID), zap.String("order_name", order.Name))
	log.Info("Order received", zap.Int("line_items", len(order.LineItems)))

	if len(order.LineItems) == 0 {
		log.Warn("No products found in the order")
		return nil, &integration.OrderReconcileError{
			Kind: integration.ErrorKindMalformedData,
			Err:  integration.ErrEmptyOrder,
		}
	}

	if deliveryID == "" {
		deliveryID = order.DeliveryKey()
	}
	if s.dedupEnabled() {
		first, err := s.deliveries.MarkProcessed(ctx, deliveryID, s.idempotency.TTL)
		switch {
		case err != nil:
			log.Warn("Delivery store unavailable, processing without de-duplication",
				zap.String("delivery_id", deliveryID), zap.Error(err))
		case !first:
			log.Info("Duplicate delivery ignored", zap.String("delivery_id", deliveryID))
			return &integration.OrderResult{OrderID: order.ID, Duplicate: true}, nil
		}
	}

	result, err := s.reconcile(ctx, order, log)
	if err != nil {
		s.releaseDelivery(ctx, deliveryID, err, log)
		return nil, err
	}
	log.Info("Stock updated for all products in the order", zap.Int("applied", result.AppliedCount))
	return result, nil
}

func (s *OrderWebhookService) reconcile(ctx context.Context, order integration.OrderWebhook, log *zap.Logger) (*integration.OrderResult, error) {
	resolved := make([]integration.ResolvedLineItem, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		item, err := s.resolve(ctx, li)
		if err != nil {
			log.Error("Failed to resolve line item", zap.Int64("line_item_id", li.ID), zap.Error(err))
			return nil, &integration.OrderReconcileError{
				Kind:       integration.KindOf(err),
				LineItemID: li.ID,
				Err:        err,
			}
		}
		resolved = append(resolved, item)
	}

	applied := 0
	for _, item := range resolved {
		store, _ := s.stores.Get(item.StoreID)
		if err := s.coordinator.AdjustStorefront(ctx, store, item.Adjustment); err != nil {
			log.Error("Failed to update stock",
				zap.Int64("line_item_id", item.LineItemID),
				zap.String("store_id", item.StoreID),
				zap.String("product_id", item.Adjustment.ProductID),
				zap.String("variant_id", item.Adjustment.VariantID),
				zap.Error(err),
			)
			return nil, &integration.OrderReconcileError{
				Kind:         integration.KindOf(err),
				LineItemID:   item.LineItemID,
				AppliedCount: applied,
				Err:          err,
			}
		}
		applied++
		log.Info("Stock updated",
			zap.String("store_id", item.StoreID),
			zap.String("product_id", item.Adjustment.ProductID),
			zap.String("variant_id", item.Adjustment.VariantID),
			zap.Int("delta", item.Adjustment.Delta),
		)
		publishEvent(ctx, s.events, integration.SyncEvent{
			Type:       integration.EventStockAdjusted,
			StoreID:    item.StoreID,
			Handle:     item.Adjustment.ProductID,
			SKU:        item.Adjustment.VariantID,
			Quantity:   item.Adjustment.Delta,
			OccurredAt: time.Now(),
		}, s.logger)
	}
	return &integration.OrderResult{OrderID: order.ID, AppliedCount: applied}, nil
}

// resolve maps a line item back to the Storefront product and variant ids
func (s *OrderWebhookService) resolve(ctx context.Context, li integration.OrderLineItem) (integration.ResolvedLineItem, error) {
	if err := li.Validate(); err != nil {
		return integration.ResolvedLineItem{}, err
	}
	if _, err := s.stores.Get(li.Vendor); err != nil {
		return integration.ResolvedLineItem{}, fmt.Errorf("%w: line item %d: %v", integration.ErrMalformedData, li.ID, err)
	}

	product, err := s.hub.GetProduct(ctx, li.ProductID)
	if err != nil {
		return integration.ResolvedLineItem{}, err
	}
	variant, err := s.hub.GetVariant(ctx, li.VariantID)
	if err != nil {
		return integration.ResolvedLineItem{}, err
	}
	if product.Handle == "" || variant.SKU == "" {
		return integration.ResolvedLineItem{}, fmt.Errorf("%w: line item %d is not a synced product", integration.ErrMalformedData, li.ID)
	}

	return integration.ResolvedLineItem{
		LineItemID: li.ID,
		StoreID:    li.Vendor,
		Adjustment: integration.StockAdjustment{
			ProductID: product.Handle,
			VariantID: variant.SKU,
			Delta:     -li.Quantity,
		},
	}, nil
}

// releaseDelivery forgets a failed delivery so a redelivery can retry it.
// Partially applied orders stay marked: a retry would decrement the applied
// items twice.
func (s *OrderWebhookService) releaseDelivery(ctx context.Context, deliveryID string, err error, log *zap.Logger) {
	if !s.dedupEnabled() {
		return
	}
	var rerr *integration.OrderReconcileError
	if errors.As(err, &rerr) && rerr.AppliedCount > 0 {
		log.Error("Order partially applied, redeliveries will be ignored",
			zap.String("delivery_id", deliveryID),
			zap.Int("applied", rerr.AppliedCount),
		)
		return
	}
	if uerr := s.deliveries.Unmark(context.WithoutCancel(ctx), deliveryID); uerr != nil {
		log.Warn("Failed to release delivery", zap.String("delivery_id", deliveryID), zap.Error(uerr))
	}
}

func (s *OrderWebhookService) dedupEnabled() bool {
	return s.deliveries != nil && s.idempotency.Enabled
}
