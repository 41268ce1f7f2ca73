package integration

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Sync report DTOs
// ---------------------------------------------------------------------------

// SyncReportResponse represents a finished sync run in API responses and CLI output
type SyncReportResponse struct {
	RunID      uuid.UUID              `json:"run_id"`
	Kind       integration.SyncKind   `json:"kind"`
	Status     integration.SyncStatus `json:"status"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	DurationMS int64                  `json:"duration_ms"`
	Error      string                 `json:"error,omitempty"`
	Stores     []StoreReportResponse  `json:"stores"`
	Failures   []SyncFailureResponse  `json:"failures,omitempty"`
}

// StoreReportResponse represents the counters of one store
type StoreReportResponse struct {
	StoreID         string         `json:"store_id"`
	Fetched         int            `json:"fetched"`
	Outcomes        map[string]int `json:"outcomes"`
	InventoryPushes int            `json:"inventory_pushes"`
	ImagesUploaded  int            `json:"images_uploaded"`
	ImagesFailed    int            `json:"images_failed"`
}

// SyncFailureResponse represents a failed item
type SyncFailureResponse struct {
	StoreID string                `json:"store_id"`
	ItemID  string                `json:"item_id,omitempty"`
	Kind    integration.ErrorKind `json:"kind"`
	Message string                `json:"message"`
}

// ToSyncReportResponse converts a report to its response form. Stores are
// listed in id order.
func ToSyncReportResponse(report *integration.SyncReport) SyncReportResponse {
	resp := SyncReportResponse{
		RunID:      report.RunID,
		Kind:       report.Kind,
		Status:     report.Status,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		DurationMS: report.Duration().Milliseconds(),
		Error:      report.Error,
	}

	snapshot := report.StoreSnapshot()
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s := snapshot[id]
		outcomes := make(map[string]int, len(s.Outcomes))
		for k, v := range s.Outcomes {
			outcomes[string(k)] = v
		}
		resp.Stores = append(resp.Stores, StoreReportResponse{
			StoreID:         id,
			Fetched:         s.Fetched,
			Outcomes:        outcomes,
			InventoryPushes: s.InventoryPushes,
			ImagesUploaded:  s.ImagesUploaded,
			ImagesFailed:    s.ImagesFailed,
		})
	}
	for _, f := range report.FailureSnapshot() {
		resp.Failures = append(resp.Failures, SyncFailureResponse{
			StoreID: f.StoreID,
			ItemID:  f.ItemID,
			Kind:    f.Kind,
			Message: f.Message,
		})
	}
	return resp
}

// ---------------------------------------------------------------------------
// Order webhook DTOs
// ---------------------------------------------------------------------------

// OrderWebhookRequest is the bound body of an order webhook
type OrderWebhookRequest struct {
	ID        int64                  `json:"id"`
	Name      string                 `json:"name"`
	LineItems []OrderLineItemRequest `json:"line_items" binding:"dive"`
}

// OrderLineItemRequest is one bound line item
type OrderLineItemRequest struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID int64  `json:"variant_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Vendor    string `json:"vendor" binding:"required"`
	SKU       string `json:"sku"`
}

// ToDomain converts the request to the domain order
func (r OrderWebhookRequest) ToDomain() integration.OrderWebhook {
	order := integration.OrderWebhook{
		ID:        r.ID,
		Name:      r.Name,
		LineItems: make([]integration.OrderLineItem, 0, len(r.LineItems)),
	}
	for _, li := range r.LineItems {
		order.LineItems = append(order.LineItems, integration.OrderLineItem{
			ID:        li.ID,
			ProductID: li.ProductID,
			VariantID: li.VariantID,
			Quantity:  li.Quantity,
			Vendor:    li.Vendor,
			SKU:       li.SKU,
		})
	}
	return order
}

// OrderWebhookResponse is the success body of the order webhook
type OrderWebhookResponse struct {
	Message      string `json:"message"`
	OrderID      int64  `json:"order_id,omitempty"`
	AppliedCount int    `json:"applied_count"`
}
