package integration

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncStatus represents the synchronization status
// ---------------------------------------------------------------------------

// SyncStatus represents the synchronization status
type SyncStatus string

const (
	// SyncStatusInProgress indicates sync is in progress
	SyncStatusInProgress SyncStatus = "IN_PROGRESS"
	// SyncStatusSuccess indicates sync was successful
	SyncStatusSuccess SyncStatus = "SUCCESS"
	// SyncStatusPartial indicates partial sync success
	SyncStatusPartial SyncStatus = "PARTIAL"
	// SyncStatusFailed indicates sync failed
	SyncStatusFailed SyncStatus = "FAILED"
)

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// SyncKind names the reconciliation routine that produced a report
type SyncKind string

const (
	SyncKindCatalog     SyncKind = "catalog"
	SyncKindStock       SyncKind = "stock"
	SyncKindCollections SyncKind = "collections"
)

// ProductOutcome is the terminal state of one product in a catalog run
type ProductOutcome string

const (
	OutcomeCreated     ProductOutcome = "created"
	OutcomeUpdated     ProductOutcome = "updated"
	OutcomeSkipped     ProductOutcome = "skipped"
	OutcomeFailed      ProductOutcome = "failed"
	OutcomeDeactivated ProductOutcome = "deactivated"
)

// SyncFailure represents a failed sync item
type SyncFailure struct {
	StoreID string
	ItemID  string
	Kind    ErrorKind
	Message string
}

// StoreReport holds the counters of one store within a run
type StoreReport struct {
	StoreID         string
	Fetched         int
	Outcomes        map[ProductOutcome]int
	InventoryPushes int
	ImagesUploaded  int
	ImagesFailed    int
}

// SyncReport is the result of one reconciliation run.
// Safe for concurrent use so image workers can record into it.
type SyncReport struct {
	RunID      uuid.UUID
	Kind       SyncKind
	Status     SyncStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Stores     map[string]*StoreReport
	Failures   []SyncFailure
	// Error is set when the run ended early on a run-level error
	Error string

	mu sync.Mutex
}

// NewSyncReport starts a report for a run
func NewSyncReport(kind SyncKind) *SyncReport {
	return &SyncReport{
		RunID:     uuid.New(),
		Kind:      kind,
		Status:    SyncStatusInProgress,
		StartedAt: time.Now(),
		Stores:    make(map[string]*StoreReport),
	}
}

func (r *SyncReport) store(storeID string) *StoreReport {
	s, ok := r.Stores[storeID]
	if !ok {
		s = &StoreReport{StoreID: storeID, Outcomes: make(map[ProductOutcome]int)}
		r.Stores[storeID] = s
	}
	return s
}

// RecordFetched records how many source items a store returned
func (r *SyncReport) RecordFetched(storeID string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store(storeID).Fetched += n
}

// RecordOutcome counts a product outcome
func (r *SyncReport) RecordOutcome(storeID string, outcome ProductOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store(storeID).Outcomes[outcome]++
}

// RecordInventoryPush counts an inventory-level write
func (r *SyncReport) RecordInventoryPush(storeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store(storeID).InventoryPushes++
}

// RecordImage counts an image upload attempt
func (r *SyncReport) RecordImage(storeID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.store(storeID).ImagesUploaded++
	} else {
		r.store(storeID).ImagesFailed++
	}
}

// RecordFailure appends a per-item failure
func (r *SyncReport) RecordFailure(storeID, itemID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, SyncFailure{
		StoreID: storeID,
		ItemID:  itemID,
		Kind:    KindOf(err),
		Message: err.Error(),
	})
}

// Abort marks the run as ended early
func (r *SyncReport) Abort(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Error = err.Error()
}

// Finish computes the final status
func (r *SyncReport) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now()

	switch {
	case r.Error == "" && len(r.Failures) == 0:
		r.Status = SyncStatusSuccess
	case r.successCountLocked() == 0:
		r.Status = SyncStatusFailed
	default:
		r.Status = SyncStatusPartial
	}
}

func (r *SyncReport) successCountLocked() int {
	n := 0
	for _, s := range r.Stores {
		for outcome, c := range s.Outcomes {
			if outcome != OutcomeFailed {
				n += c
			}
		}
		n += s.InventoryPushes + s.ImagesUploaded
	}
	return n
}

// Duration returns how long the run took
func (r *SyncReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Totals sums counters across stores
func (r *SyncReport) Totals() StoreReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := StoreReport{Outcomes: make(map[ProductOutcome]int)}
	for _, s := range r.Stores {
		total.Fetched += s.Fetched
		total.InventoryPushes += s.InventoryPushes
		total.ImagesUploaded += s.ImagesUploaded
		total.ImagesFailed += s.ImagesFailed
		for k, v := range s.Outcomes {
			total.Outcomes[k] += v
		}
	}
	return total
}

// StoreSnapshot returns a copy of the per-store counters
func (r *SyncReport) StoreSnapshot() map[string]StoreReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]StoreReport, len(r.Stores))
	for id, s := range r.Stores {
		c := *s
		c.Outcomes = make(map[ProductOutcome]int, len(s.Outcomes))
		for k, v := range s.Outcomes {
			c.Outcomes[k] = v
		}
		out[id] = c
	}
	return out
}

// FailureSnapshot returns a copy of the recorded failures
func (r *SyncReport) FailureSnapshot() []SyncFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SyncFailure, len(r.Failures))
	copy(out, r.Failures)
	return out
}

// ---------------------------------------------------------------------------
// Sync events
// ---------------------------------------------------------------------------

// SyncEventType names a published event
type SyncEventType string

const (
	EventProductReconciled SyncEventType = "product.reconciled"
	EventStockAdjusted     SyncEventType = "stock.adjusted"
	EventRunFinished       SyncEventType = "run.finished"
)

// SyncEvent is a reconciliation fact emitted for downstream consumers
type SyncEvent struct {
	Type       SyncEventType `json:"type"`
	RunID      string        `json:"run_id,omitempty"`
	StoreID    string        `json:"store_id,omitempty"`
	Handle     string        `json:"handle,omitempty"`
	SKU        string        `json:"sku,omitempty"`
	Outcome    string        `json:"outcome,omitempty"`
	Quantity   int           `json:"quantity,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Key returns the partitioning key of the event
func (e SyncEvent) Key() string {
	if e.Handle != "" {
		return e.StoreID + ":" + e.Handle
	}
	return e.StoreID
}
