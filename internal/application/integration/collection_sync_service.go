package integration

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
	"github.com/santi-junco/sync-tiendanube/internal/domain/taxonomy"
)

// CollectionSyncServiceConfig contains the collaborators of CollectionSyncService
type CollectionSyncServiceConfig struct {
	Storefront integration.Storefront
	Hub        integration.CommerceHub
	Stores     *integration.StoreRegistry
	Events     integration.SyncEventPublisher
	Observer   ReportObserver
	Logger     *zap.Logger
}

// CollectionSyncService mirrors Storefront category trees as tag-rule smart
// collections
type CollectionSyncService struct {
	storefront integration.Storefront
	hub        integration.CommerceHub
	stores     *integration.StoreRegistry
	events     integration.SyncEventPublisher
	observer   ReportObserver
	logger     *zap.Logger
}

// NewCollectionSyncService creates a new CollectionSyncService
func NewCollectionSyncService(cfg CollectionSyncServiceConfig) *CollectionSyncService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &CollectionSyncService{
		storefront: cfg.Storefront,
		hub:        cfg.Hub,
		stores:     cfg.Stores,
		events:     cfg.Events,
		observer:   cfg.Observer,
		logger:     cfg.Logger.Named("collections"),
	}
}

// Run creates the smart collections that do not exist yet
func (s *CollectionSyncService) Run(ctx context.Context) (report *integration.SyncReport, err error) {
	report = integration.NewSyncReport(integration.SyncKindCollections)
	log := s.logger.With(zap.String("run_id", report.RunID.String()))
	log.Info("Creating smart collections")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collection sync panicked: %v", r)
			log.Error("Collection sync aborted", zap.Any("panic", r))
			report.Abort(err)
		}
		finishRun(ctx, report, s.events, s.observer, log)
	}()

	handles, err := s.hub.ListSmartCollectionHandles(ctx)
	if err != nil {
		log.Error("Failed to list smart collections", zap.Error(err))
		report.Abort(err)
		return report, err
	}
	existing := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		existing[h] = struct{}{}
	}

	for _, store := range s.stores.All() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Abort(ctxErr)
			return report, ctxErr
		}
		s.syncStore(ctx, store, existing, report, log.With(zap.String("store_id", store.ID)))
	}
	return report, nil
}

func (s *CollectionSyncService) syncStore(ctx context.Context, store integration.StoreConfig, existing map[string]struct{}, report *integration.SyncReport, log *zap.Logger) {
	categories, err := s.storefront.ListCategories(ctx, store)
	if err != nil {
		log.Error("Failed to fetch categories", zap.Error(err))
		report.RecordFailure(store.ID, "", err)
		return
	}
	report.RecordFetched(store.ID, len(categories))

	for _, collection := range BuildSmartCollections(store, categories) {
		if _, ok := existing[collection.Handle]; ok {
			log.Debug("Collection already exists", zap.String("handle", collection.Handle))
			report.RecordOutcome(store.ID, integration.OutcomeSkipped)
			continue
		}
		if err := s.hub.CreateSmartCollection(ctx, collection); err != nil {
			log.Error("Failed to create collection", zap.String("handle", collection.Handle), zap.Error(err))
			report.RecordFailure(store.ID, collection.Handle, err)
			report.RecordOutcome(store.ID, integration.OutcomeFailed)
			continue
		}
		existing[collection.Handle] = struct{}{}
		log.Info("Collection created", zap.String("handle", collection.Handle))
		report.RecordOutcome(store.ID, integration.OutcomeCreated)
	}
}

// BuildSmartCollections returns one collection per category. Its handle is the
// normalized path [store category, root, ..., leaf] joined with "-" and its
// rules require every path part as a tag.
func BuildSmartCollections(store integration.StoreConfig, categories []integration.SourceCategory) []integration.SmartCollection {
	byID := make(map[string]integration.SourceCategory, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	out := make([]integration.SmartCollection, 0, len(categories))
	seen := make(map[string]struct{})
	for _, c := range categories {
		parts := CategoryPath(store.Category, c, byID)
		if len(parts) == 0 {
			continue
		}
		handle := strings.Join(parts, "-")
		if _, dup := seen[handle]; dup {
			continue
		}
		seen[handle] = struct{}{}

		rules := make([]integration.CollectionRule, 0, len(parts))
		for _, part := range parts {
			rules = append(rules, integration.CollectionRule{
				Column:    "tag",
				Relation:  "equals",
				Condition: part,
			})
		}
		out = append(out, integration.SmartCollection{
			Handle:    handle,
			Title:     c.Name,
			Published: true,
			Rules:     rules,
		})
	}
	return out
}

// CategoryPath walks from c up to its root and returns the normalized handle
// parts prefixed with the store category. Parent cycles stop the walk.
func CategoryPath(storeCategory string, c integration.SourceCategory, byID map[string]integration.SourceCategory) []string {
	var chain []string
	visited := make(map[string]struct{})
	current, ok := c, true
	for ok {
		if _, loop := visited[current.ID]; loop {
			break
		}
		visited[current.ID] = struct{}{}
		chain = append(chain, current.Handle)
		if current.ParentID == "" {
			break
		}
		current, ok = byID[current.ParentID]
	}

	parts := make([]string, 0, len(chain)+1)
	if p := slug(storeCategory); p != "" {
		parts = append(parts, p)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if p := slug(chain[i]); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// slug normalizes a handle part and joins its words with "-"
func slug(s string) string {
	return strings.ReplaceAll(taxonomy.Normalize(s), " ", "-")
}
