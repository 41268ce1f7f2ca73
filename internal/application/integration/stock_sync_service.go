package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// DefaultStockWindow is how far back the stock job looks for variant changes
const DefaultStockWindow = 15 * time.Minute

// StockSyncServiceConfig contains the collaborators of StockSyncService
type StockSyncServiceConfig struct {
	Storefront  integration.Storefront
	Hub         integration.CommerceHub
	Stores      *integration.StoreRegistry
	Coordinator *StockCoordinator
	Events      integration.SyncEventPublisher
	Observer    ReportObserver
	Window      time.Duration
	Logger      *zap.Logger
}

// StockSyncService pushes recent Storefront stock changes to the Commerce Hub.
// It only touches inventory levels.
type StockSyncService struct {
	storefront  integration.Storefront
	hub         integration.CommerceHub
	stores      *integration.StoreRegistry
	coordinator *StockCoordinator
	events      integration.SyncEventPublisher
	observer    ReportObserver
	window      time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewStockSyncService creates a new StockSyncService
func NewStockSyncService(cfg StockSyncServiceConfig) *StockSyncService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultStockWindow
	}
	if cfg.Coordinator == nil {
		cfg.Coordinator = NewStockCoordinator(cfg.Hub, cfg.Storefront)
	}
	return &StockSyncService{
		storefront:  cfg.Storefront,
		hub:         cfg.Hub,
		stores:      cfg.Stores,
		coordinator: cfg.Coordinator,
		events:      cfg.Events,
		observer:    cfg.Observer,
		window:      cfg.Window,
		now:         time.Now,
		logger:      cfg.Logger.Named("stock"),
	}
}

// Run syncs the stock of variants updated within the window
func (s *StockSyncService) Run(ctx context.Context) (report *integration.SyncReport, err error) {
	report = integration.NewSyncReport(integration.SyncKindStock)
	since := s.now().Add(-s.window)
	log := s.logger.With(zap.String("run_id", report.RunID.String()), zap.Time("since", since))
	log.Info("Synchronizing stock")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stock sync panicked: %v", r)
			log.Error("Stock sync aborted", zap.Any("panic", r))
			report.Abort(err)
		}
		finishRun(ctx, report, s.events, s.observer, log)
	}()

	for _, store := range s.stores.All() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Abort(ctxErr)
			return report, ctxErr
		}
		s.syncStore(ctx, store, since, report, log.With(zap.String("store_id", store.ID)))
	}
	return report, nil
}

func (s *StockSyncService) syncStore(ctx context.Context, store integration.StoreConfig, since time.Time, report *integration.SyncReport, log *zap.Logger) {
	products, err := s.storefront.ListProducts(ctx, store, integration.ProductQuery{
		PublishedOnly: true,
		MinStock:      1,
		UpdatedAtMin:  &since,
		Fields:        []string{"id", "variants"},
	})
	if err != nil {
		log.Error("Failed to fetch updated products", zap.Error(err))
		report.RecordFailure(store.ID, "", err)
		return
	}

	variants := RecentVariants(products, since)
	report.RecordFetched(store.ID, len(variants))
	log.Info("Fetched updated variants", zap.Int("products", len(products)), zap.Int("variants", len(variants)))

	location := store.EffectiveLocation(s.hub.DefaultLocationID())
	for _, v := range variants {
		if ctx.Err() != nil {
			return
		}
		if err := s.syncVariant(ctx, store, location, v, report, log); err != nil {
			log.Error("Failed to sync variant stock",
				zap.String("product_id", v.ProductID),
				zap.String("variant_id", v.ID),
				zap.Error(err),
			)
			report.RecordFailure(store.ID, v.ID, err)
		}
	}
}

func (s *StockSyncService) syncVariant(ctx context.Context, store integration.StoreConfig, location int64, v integration.SourceVariant, report *integration.SyncReport, log *zap.Logger) error {
	product, err := integration.FindDestinationProduct(ctx, s.hub, v.ProductID)
	switch {
	case err == nil:
	case errors.Is(err, integration.ErrAmbiguousMatch):
		log.Warn("Several destination products share a handle, using the lowest id", zap.Error(err))
	case errors.Is(err, integration.ErrProductNotFound):
		log.Debug("Product not yet in the Commerce Hub", zap.String("handle", v.ProductID))
		return nil
	default:
		return err
	}

	sku := integration.SkuFor(v)
	dv, ok := integration.BuildVariantSkuMap(product)[sku]
	if !ok {
		log.Debug("Variant not yet in the Commerce Hub", zap.String("sku", sku))
		return nil
	}
	quantity := v.Quantity()
	if dv.InventoryQuantity == quantity {
		return nil
	}

	level := integration.InventoryLevel{
		LocationID:      location,
		InventoryItemID: dv.InventoryItemID,
		Available:       quantity,
	}
	if err := s.coordinator.SetInventory(ctx, store.ID, sku, level); err != nil {
		return err
	}
	report.RecordInventoryPush(store.ID)
	log.Info("Stock updated", zap.String("sku", sku), zap.Int("from", dv.InventoryQuantity), zap.Int("to", quantity))
	publishEvent(ctx, s.events, integration.SyncEvent{
		Type:       integration.EventStockAdjusted,
		RunID:      report.RunID.String(),
		StoreID:    store.ID,
		Handle:     v.ProductID,
		SKU:        sku,
		Quantity:   quantity,
		OccurredAt: s.now(),
	}, s.logger)
	return nil
}

// RecentVariants flattens the variants of products updated at or after since.
// Variants without a timestamp are kept.
func RecentVariants(products []integration.SourceProduct, since time.Time) []integration.SourceVariant {
	var out []integration.SourceVariant
	for _, p := range products {
		for _, v := range p.Variants {
			if !v.UpdatedAt.IsZero() && v.UpdatedAt.Before(since) {
				continue
			}
			if v.ProductID == "" {
				v.ProductID = p.ID
			}
			out = append(out, v)
		}
	}
	return out
}
