package integration

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Order webhook payload
// ---------------------------------------------------------------------------

// OrderWebhook is the subset of a Commerce Hub order notification used to
// decrement Storefront stock
type OrderWebhook struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	LineItems []OrderLineItem `json:"line_items"`
}

// OrderLineItem is one purchased variant. Vendor carries the Storefront store id.
type OrderLineItem struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Vendor    string `json:"vendor"`
	SKU       string `json:"sku"`
}

// Validate checks the fields required to resolve a line item
func (li OrderLineItem) Validate() error {
	if li.ProductID == 0 {
		return fmt.Errorf("%w: line item %d has no product_id", ErrMalformedData, li.ID)
	}
	if li.VariantID == 0 {
		return fmt.Errorf("%w: line item %d has no variant_id", ErrMalformedData, li.ID)
	}
	if li.Quantity <= 0 {
		return fmt.Errorf("%w: line item %d has quantity %d", ErrMalformedData, li.ID, li.Quantity)
	}
	if li.Vendor == "" {
		return fmt.Errorf("%w: line item %d has no vendor", ErrMalformedData, li.ID)
	}
	return nil
}

// DeliveryKey returns the key used to de-duplicate deliveries of this order
func (o OrderWebhook) DeliveryKey() string {
	return "order:" + strconv.FormatInt(o.ID, 10)
}

// ResolvedLineItem is a line item mapped back to Storefront identifiers
type ResolvedLineItem struct {
	LineItemID int64
	StoreID    string
	Adjustment StockAdjustment
}

// OrderResult is the outcome of reconciling one order
type OrderResult struct {
	OrderID      int64
	AppliedCount int
	Duplicate    bool
}

// OrderReconcileError is returned when an order could not be fully applied.
// Items before the failing one were applied; the rest were not attempted.
type OrderReconcileError struct {
	Kind         ErrorKind
	LineItemID   int64
	AppliedCount int
	Err          error
}

// Error implements error
func (e *OrderReconcileError) Error() string {
	return fmt.Sprintf("order reconcile failed at line item %d after %d applied: %v",
		e.LineItemID, e.AppliedCount, e.Err)
}

// Unwrap returns the underlying cause
func (e *OrderReconcileError) Unwrap() error {
	return e.Err
}
