package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

func TestRecentVariants(t *testing.T) {
	since := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	products := []integration.SourceProduct{
		{ID: "1", Variants: []integration.SourceVariant{
			{ID: "11", UpdatedAt: since.Add(-time.Minute)},
			{ID: "12", UpdatedAt: since},
			{ID: "13", UpdatedAt: since.Add(time.Minute)},
		}},
		{ID: "2", Variants: []integration.SourceVariant{{ID: "21"}}},
	}

	got := RecentVariants(products, since)
	ids := make([]string, 0, len(got))
	for _, v := range got {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"12", "13", "21"}, ids)
	assert.Equal(t, "2", got[2].ProductID, "product id is filled from the parent")
}

func TestStockSync_PushesOnlyDifferences(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := testStore("123456")

	sf := new(MockStorefront)
	sf.On("ListProducts", mock.Anything, store, mock.MatchedBy(func(q integration.ProductQuery) bool {
		return q.PublishedOnly && q.MinStock == 1 && q.UpdatedAtMin != nil &&
			q.UpdatedAtMin.Equal(now.Add(-15*time.Minute)) &&
			assert.ObjectsAreEqual([]string{"id", "variants"}, q.Fields)
	})).Return([]integration.SourceProduct{
		{ID: "5001", Variants: []integration.SourceVariant{
			{ID: "7001", ProductID: "5001", Stock: intPtr(4), UpdatedAt: now.Add(-time.Minute)},
			{ID: "7002", ProductID: "5001", Stock: nil, UpdatedAt: now.Add(-time.Minute)},
			{ID: "7003", ProductID: "5001", Stock: intPtr(1), UpdatedAt: now.Add(-time.Hour)},
		}},
		{ID: "5999", Variants: []integration.SourceVariant{
			{ID: "7999", ProductID: "5999", Stock: intPtr(2), UpdatedAt: now},
		}},
	}, nil)

	hub := newFakeHub()
	hub.seed(integration.DestinationProduct{
		ID:     55,
		Handle: "5001",
		Variants: []integration.DestinationVariant{
			{ID: 551, SKU: "7001", InventoryItemID: 661, InventoryQuantity: 4},
			{ID: 552, SKU: "7002", InventoryItemID: 662, InventoryQuantity: 10},
			{ID: 553, SKU: "7003", InventoryItemID: 663, InventoryQuantity: 0},
		},
	})
	events := &recordingEvents{}

	svc := NewStockSyncService(StockSyncServiceConfig{
		Storefront: sf,
		Hub:        hub,
		Stores:     testRegistry(store),
		Events:     events,
	})
	svc.now = func() time.Time { return now }

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, integration.SyncStatusSuccess, report.Status)

	require.Len(t, hub.inventory, 1)
	assert.Equal(t, integration.InventoryLevel{LocationID: testDefaultLocation, InventoryItemID: 662, Available: 999}, hub.inventory[0])
	assert.Equal(t, 3, report.Totals().Fetched)
	assert.Equal(t, 1, report.Totals().InventoryPushes)

	adjusted := events.ofType(integration.EventStockAdjusted)
	require.Len(t, adjusted, 1)
	assert.Equal(t, "7002", adjusted[0].SKU)
	assert.Equal(t, "123456:5001", adjusted[0].Key())
}

func TestStockSync_UsesStoreLocation(t *testing.T) {
	store := testStore("123456")
	store.LocationID = 777

	sf := new(MockStorefront)
	sf.On("ListProducts", mock.Anything, mock.Anything, mock.Anything).Return([]integration.SourceProduct{
		{ID: "5001", Variants: []integration.SourceVariant{{ID: "7001", ProductID: "5001", Stock: intPtr(3)}}},
	}, nil)
	hub := newFakeHub()
	hub.seed(integration.DestinationProduct{
		ID:       55,
		Handle:   "5001",
		Variants: []integration.DestinationVariant{{ID: 551, SKU: "7001", InventoryItemID: 661, InventoryQuantity: 8}},
	})

	svc := NewStockSyncService(StockSyncServiceConfig{Storefront: sf, Hub: hub, Stores: testRegistry(store), Window: time.Hour})
	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, hub.inventory, 1)
	assert.Equal(t, int64(777), hub.inventory[0].LocationID)
}

func TestStockSync_InventoryFailureIsRecorded(t *testing.T) {
	sf := new(MockStorefront)
	sf.On("ListProducts", mock.Anything, mock.Anything, mock.Anything).Return([]integration.SourceProduct{
		{ID: "5001", Variants: []integration.SourceVariant{{ID: "7001", ProductID: "5001", Stock: intPtr(3)}}},
	}, nil)
	hub := newFakeHub()
	hub.invErr = &integration.RemoteAPIError{Platform: integration.PlatformCodeShopify, StatusCode: 422}
	hub.seed(integration.DestinationProduct{
		ID:       55,
		Handle:   "5001",
		Variants: []integration.DestinationVariant{{ID: 551, SKU: "7001", InventoryItemID: 661, InventoryQuantity: 8}},
	})

	svc := NewStockSyncService(StockSyncServiceConfig{Storefront: sf, Hub: hub, Stores: testRegistry(testStore("123456"))})
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	failures := report.FailureSnapshot()
	require.Len(t, failures, 1)
	assert.Equal(t, "7001", failures[0].ItemID)
	assert.Equal(t, integration.ErrorKindRemoteAPI, failures[0].Kind)
}
