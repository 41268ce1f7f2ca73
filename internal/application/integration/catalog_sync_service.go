package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// Image upload modes
const (
	ImageModeSrc        = "src"
	ImageModeAttachment = "attachment"
)

// DefaultImageConcurrency bounds the per-product image upload pool
const DefaultImageConcurrency = 2

// AttachmentSource prepares an image for upload as a base64 attachment
type AttachmentSource interface {
	Attachment(ctx context.Context, src string) (string, error)
}

// ReportObserver receives finished sync reports (metrics)
type ReportObserver interface {
	ObserveReport(report *integration.SyncReport)
}

// CatalogSyncOptions tunes a catalog run
type CatalogSyncOptions struct {
	ImageConcurrency int
	ImageMode        string
	// SortBy is passed to the Storefront listing
	SortBy string
}

// CatalogSyncServiceConfig contains the collaborators of CatalogSyncService
type CatalogSyncServiceConfig struct {
	Storefront  integration.Storefront
	Hub         integration.CommerceHub
	Stores      *integration.StoreRegistry
	Builder     *PayloadBuilder
	Coordinator *StockCoordinator
	Images      AttachmentSource
	Events      integration.SyncEventPublisher
	Observer    ReportObserver
	Options     CatalogSyncOptions
	Logger      *zap.Logger
}

// CatalogSyncService upserts every Storefront product into the Commerce Hub
type CatalogSyncService struct {
	storefront  integration.Storefront
	hub         integration.CommerceHub
	stores      *integration.StoreRegistry
	builder     *PayloadBuilder
	coordinator *StockCoordinator
	images      AttachmentSource
	events      integration.SyncEventPublisher
	observer    ReportObserver
	options     CatalogSyncOptions
	logger      *zap.Logger
}

// NewCatalogSyncService creates a new CatalogSyncService
func NewCatalogSyncService(cfg CatalogSyncServiceConfig) *CatalogSyncService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Builder == nil {
		cfg.Builder = NewPayloadBuilder(nil, cfg.Logger)
	}
	if cfg.Coordinator == nil {
		cfg.Coordinator = NewStockCoordinator(cfg.Hub, cfg.Storefront)
	}
	if cfg.Options.ImageConcurrency <= 0 {
		cfg.Options.ImageConcurrency = DefaultImageConcurrency
	}
	if cfg.Options.ImageMode == "" {
		cfg.Options.ImageMode = ImageModeSrc
	}
	return &CatalogSyncService{
		storefront:  cfg.Storefront,
		hub:         cfg.Hub,
		stores:      cfg.Stores,
		builder:     cfg.Builder,
		coordinator: cfg.Coordinator,
		images:      cfg.Images,
		events:      cfg.Events,
		observer:    cfg.Observer,
		options:     cfg.Options,
		logger:      cfg.Logger.Named("catalog"),
	}
}

// Run reconciles the catalog of every configured store. Per-product failures
// are recorded in the report; a panic ends the run and is returned as an error.
func (s *CatalogSyncService) Run(ctx context.Context) (report *integration.SyncReport, err error) {
	report = integration.NewSyncReport(integration.SyncKindCatalog)
	log := s.logger.With(zap.String("run_id", report.RunID.String()))
	log.Info("Synchronizing products", zap.Int("stores", s.stores.Len()))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("catalog sync panicked: %v", r)
			log.Error("Catalog sync aborted", zap.Any("panic", r))
			report.Abort(err)
		}
		finishRun(ctx, report, s.events, s.observer, log)
	}()

	for _, store := range s.stores.All() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Abort(ctxErr)
			return report, ctxErr
		}
		s.syncStore(ctx, store, report, log.With(zap.String("store_id", store.ID)))
	}
	return report, nil
}

func (s *CatalogSyncService) syncStore(ctx context.Context, store integration.StoreConfig, report *integration.SyncReport, log *zap.Logger) {
	query := integration.ProductQuery{
		PublishedOnly: true,
		MinStock:      1,
		SortBy:        s.options.SortBy,
	}
	if store.HasProductLimit() {
		query.Limit = store.ProductLimit
	}

	products, err := s.storefront.ListProducts(ctx, store, query)
	if err != nil {
		log.Error("Failed to fetch products", zap.Error(err))
		report.RecordFailure(store.ID, "", err)
		return
	}
	report.RecordFetched(store.ID, len(products))
	log.Info("Fetched products", zap.Int("count", len(products)))

	for _, p := range products {
		if ctx.Err() != nil {
			return
		}
		outcome, err := s.syncProduct(ctx, store, p, report, log.With(zap.String("product_id", p.ID)))
		if err != nil {
			log.Error("Failed to sync product",
				zap.String("product_id", p.ID),
				zap.String("error_kind", string(integration.KindOf(err))),
				zap.Error(err),
			)
			report.RecordFailure(store.ID, p.ID, err)
		}
		report.RecordOutcome(store.ID, outcome)
		s.publish(ctx, integration.SyncEvent{
			Type:       integration.EventProductReconciled,
			RunID:      report.RunID.String(),
			StoreID:    store.ID,
			Handle:     integration.HandleFor(p),
			Outcome:    string(outcome),
			OccurredAt: time.Now(),
		})
	}

	if store.HasProductLimit() {
		s.prune(ctx, store, products, report, log)
	}
}

// syncProduct runs the upsert, inventory and image steps for one product
func (s *CatalogSyncService) syncProduct(ctx context.Context, store integration.StoreConfig, p integration.SourceProduct, report *integration.SyncReport, log *zap.Logger) (integration.ProductOutcome, error) {
	handle := integration.HandleFor(p)

	existing, err := integration.FindDestinationProduct(ctx, s.hub, handle)
	switch {
	case err == nil:
	case errors.Is(err, integration.ErrProductNotFound):
		existing = nil
	case errors.Is(err, integration.ErrAmbiguousMatch):
		log.Warn("Several destination products share a handle, using the lowest id", zap.Error(err))
		report.RecordFailure(store.ID, p.ID, err)
	default:
		return integration.OutcomeFailed, err
	}

	built := s.builder.Build(store, p, existing)

	var (
		product *integration.DestinationProduct
		outcome integration.ProductOutcome
	)
	switch {
	case existing == nil:
		product, err = s.hub.CreateProduct(ctx, built.Payload)
		if err != nil {
			return integration.OutcomeFailed, err
		}
		outcome = integration.OutcomeCreated
		log.Info("Product created", zap.Int64("destination_id", product.ID))
	case PayloadUnchanged(existing, built.Payload):
		product = existing
		outcome = integration.OutcomeSkipped
		log.Debug("Product up to date")
	default:
		product, err = s.hub.UpdateProduct(ctx, existing.ID, built.Payload)
		if err != nil {
			return integration.OutcomeFailed, err
		}
		outcome = integration.OutcomeUpdated
		log.Info("Product updated", zap.Int64("destination_id", product.ID))
	}

	s.syncInventory(ctx, store, product, built, report, log)
	s.syncImages(ctx, store, p, product, built, report, log)
	return outcome, nil
}

// syncInventory pushes stock for every variant whose quantity or location is off
func (s *CatalogSyncService) syncInventory(ctx context.Context, store integration.StoreConfig, product *integration.DestinationProduct, built BuiltProduct, report *integration.SyncReport, log *zap.Logger) {
	defaultLocation := s.hub.DefaultLocationID()
	location := store.EffectiveLocation(defaultLocation)

	for sku, dv := range integration.BuildVariantSkuMap(product) {
		quantity, ok := built.Quantities[sku]
		if !ok {
			continue
		}
		if dv.InventoryQuantity == quantity && location == defaultLocation {
			continue
		}

		levels := []integration.InventoryLevel{{
			LocationID:      location,
			InventoryItemID: dv.InventoryItemID,
			Available:       quantity,
		}}
		if location != defaultLocation {
			levels = append(levels, integration.InventoryLevel{
				LocationID:      defaultLocation,
				InventoryItemID: dv.InventoryItemID,
				Available:       0,
			})
		}
		if err := s.coordinator.SetInventory(ctx, store.ID, sku, levels...); err != nil {
			log.Error("Failed to set inventory", zap.String("sku", sku), zap.Error(err))
			report.RecordFailure(store.ID, sku, err)
			continue
		}
		report.RecordInventoryPush(store.ID)
	}
}

// syncImages uploads source images whose id is not yet an alt on the product.
// Uploads run in a bounded pool joined before returning.
func (s *CatalogSyncService) syncImages(ctx context.Context, store integration.StoreConfig, p integration.SourceProduct, product *integration.DestinationProduct, built BuiltProduct, report *integration.SyncReport, log *zap.Logger) {
	present := integration.BuildImageAltSet(product)
	skuMap := integration.BuildVariantSkuMap(product)

	variantsByImage := make(map[string][]int64)
	for sku, imageID := range built.VariantImages {
		if dv, ok := skuMap[sku]; ok {
			variantsByImage[imageID] = append(variantsByImage[imageID], dv.ID)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.ImageConcurrency)
	for _, img := range p.Images {
		if _, ok := present[img.ID]; ok {
			continue
		}
		g.Go(func() error {
			payload := integration.ImagePayload{
				Alt:        img.ID,
				Position:   img.Position,
				VariantIDs: variantsByImage[img.ID],
			}
			if err := s.prepareImage(gctx, &payload, img); err != nil {
				log.Error("Failed to prepare image", zap.String("image_id", img.ID), zap.Error(err))
				report.RecordImage(store.ID, false)
				return nil
			}
			if _, err := s.hub.CreateImage(gctx, product.ID, payload); err != nil {
				log.Error("Failed to upload image", zap.String("image_id", img.ID), zap.Error(err))
				report.RecordImage(store.ID, false)
				return nil
			}
			report.RecordImage(store.ID, true)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *CatalogSyncService) prepareImage(ctx context.Context, payload *integration.ImagePayload, img integration.SourceImage) error {
	if s.options.ImageMode != ImageModeAttachment || s.images == nil {
		payload.Src = img.Src
		return nil
	}
	attachment, err := s.images.Attachment(ctx, img.Src)
	if err != nil {
		return err
	}
	payload.Attachment = attachment
	return nil
}

// prune drafts the store's destination products that fell out of the capped
// source set. Products already in draft are left alone.
func (s *CatalogSyncService) prune(ctx context.Context, store integration.StoreConfig, fetched []integration.SourceProduct, report *integration.SyncReport, log *zap.Logger) {
	keep := make(map[string]struct{}, len(fetched))
	for _, p := range fetched {
		keep[integration.HandleFor(p)] = struct{}{}
	}

	refs, err := s.hub.ListVendorProducts(ctx, store.ID)
	if err != nil {
		log.Error("Failed to list vendor products for pruning", zap.Error(err))
		report.RecordFailure(store.ID, "", err)
		return
	}

	for _, ref := range refs {
		if _, ok := keep[ref.Handle]; ok {
			continue
		}
		if ref.Status == integration.ProductStatusDraft {
			continue
		}
		if err := s.hub.SetProductStatus(ctx, ref.ID, integration.ProductStatusDraft); err != nil {
			log.Error("Failed to deactivate product", zap.String("handle", ref.Handle), zap.Error(err))
			report.RecordFailure(store.ID, ref.Handle, err)
			continue
		}
		log.Info("Product deactivated", zap.String("handle", ref.Handle))
		report.RecordOutcome(store.ID, integration.OutcomeDeactivated)
	}
}

func (s *CatalogSyncService) publish(ctx context.Context, event integration.SyncEvent) {
	publishEvent(ctx, s.events, event, s.logger)
}

// ---------------------------------------------------------------------------
// Shared run helpers
// ---------------------------------------------------------------------------

// publishEvent sends an event, logging failures
func publishEvent(ctx context.Context, events integration.SyncEventPublisher, event integration.SyncEvent, logger *zap.Logger) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish sync event",
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}
}

// finishRun closes a report, logs its summary and notifies observers
func finishRun(ctx context.Context, report *integration.SyncReport, events integration.SyncEventPublisher, observer ReportObserver, log *zap.Logger) {
	report.Finish()
	totals := report.Totals()
	log.Info("Synchronization finished",
		zap.String("kind", string(report.Kind)),
		zap.String("status", report.Status.String()),
		zap.Duration("duration", report.Duration()),
		zap.Int("fetched", totals.Fetched),
		zap.Int("created", totals.Outcomes[integration.OutcomeCreated]),
		zap.Int("updated", totals.Outcomes[integration.OutcomeUpdated]),
		zap.Int("skipped", totals.Outcomes[integration.OutcomeSkipped]),
		zap.Int("failed", totals.Outcomes[integration.OutcomeFailed]),
		zap.Int("inventory_pushes", totals.InventoryPushes),
		zap.Int("images_uploaded", totals.ImagesUploaded),
		zap.Int("failures", len(report.FailureSnapshot())),
	)
	if observer != nil {
		observer.ObserveReport(report)
	}
	publishEvent(context.WithoutCancel(ctx), events, integration.SyncEvent{
		Type:       integration.EventRunFinished,
		RunID:      report.RunID.String(),
		Outcome:    report.Status.String(),
		OccurredAt: time.Now(),
	}, log)
}
