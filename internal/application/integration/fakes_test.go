package integration

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

const testDefaultLocation int64 = 104501772590

// MockStorefront is a mock implementation of integration.Storefront
type MockStorefront struct {
	mock.Mock
}

func (m *MockStorefront) ListProducts(ctx context.Context, store integration.StoreConfig, query integration.ProductQuery) ([]integration.SourceProduct, error) {
	args := m.Called(ctx, store, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.SourceProduct), args.Error(1)
}

func (m *MockStorefront) ListCategories(ctx context.Context, store integration.StoreConfig) ([]integration.SourceCategory, error) {
	args := m.Called(ctx, store)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.SourceCategory), args.Error(1)
}

func (m *MockStorefront) AdjustStock(ctx context.Context, store integration.StoreConfig, adj integration.StockAdjustment) error {
	args := m.Called(ctx, store, adj)
	return args.Error(0)
}

// fakeHub is an in-memory Commerce Hub that records every write
type fakeHub struct {
	mu sync.Mutex

	nextID   int64
	products map[int64]*integration.DestinationProduct

	creates     int
	updates     []integration.ProductPayload
	inventory   []integration.InventoryLevel
	images      []integration.ImagePayload
	statuses    map[int64]integration.ProductStatus
	collections []integration.SmartCollection
	handles     []string
	levels      map[int64]map[int64]int // item -> location -> available

	createErr map[string]error // by handle
	imageErr  map[string]error // by alt
	invErr    error
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		nextID:    1000,
		products:  make(map[int64]*integration.DestinationProduct),
		statuses:  make(map[int64]integration.ProductStatus),
		levels:    make(map[int64]map[int64]int),
		createErr: make(map[string]error),
		imageErr:  make(map[string]error),
	}
}

func (h *fakeHub) id() int64 {
	h.nextID++
	return h.nextID
}

// seed stores a product as if it had been created earlier
func (h *fakeHub) seed(p integration.DestinationProduct) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := p
	h.products[p.ID] = &cp
}

func (h *fakeHub) product(handle string) *integration.DestinationProduct {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range h.products {
		if p.Handle == handle {
			cp := clone(p)
			return &cp
		}
	}
	return nil
}

func (h *fakeHub) counts() (creates, updates, inventory, images int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.creates, len(h.updates), len(h.inventory), len(h.images)
}

func clone(p *integration.DestinationProduct) integration.DestinationProduct {
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Options = append([]integration.ProductOption(nil), p.Options...)
	cp.Variants = append([]integration.DestinationVariant(nil), p.Variants...)
	cp.Images = append([]integration.DestinationImage(nil), p.Images...)
	return cp
}

func (h *fakeHub) FindProductsByHandle(_ context.Context, handle string) ([]integration.DestinationProduct, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []integration.DestinationProduct
	for _, p := range h.products {
		if p.Handle == handle {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (h *fakeHub) GetProduct(_ context.Context, productID int64) (*integration.DestinationProduct, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.products[productID]
	if !ok {
		return nil, integration.ErrProductNotFound
	}
	cp := clone(p)
	return &cp, nil
}

func (h *fakeHub) GetVariant(_ context.Context, variantID int64) (*integration.DestinationVariant, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range h.products {
		for _, v := range p.Variants {
			if v.ID == variantID {
				cp := v
				return &cp, nil
			}
		}
	}
	return nil, integration.ErrVariantNotFound
}

func (h *fakeHub) CreateProduct(_ context.Context, payload integration.ProductPayload) (*integration.DestinationProduct, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.createErr[payload.Handle]; err != nil {
		return nil, err
	}
	h.creates++
	p := &integration.DestinationProduct{ID: h.id()}
	h.apply(p, payload)
	h.products[p.ID] = p
	cp := clone(p)
	return &cp, nil
}

func (h *fakeHub) UpdateProduct(_ context.Context, productID int64, payload integration.ProductPayload) (*integration.DestinationProduct, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.products[productID]
	if !ok {
		return nil, integration.ErrProductNotFound
	}
	h.updates = append(h.updates, payload)
	h.apply(p, payload)
	cp := clone(p)
	return &cp, nil
}

// apply writes payload fields onto p. Existing variants keep their inventory.
func (h *fakeHub) apply(p *integration.DestinationProduct, payload integration.ProductPayload) {
	p.Handle = payload.Handle
	p.Title = payload.Title
	p.BodyHTML = payload.BodyHTML
	p.Vendor = payload.Vendor
	p.ProductType = payload.ProductType
	p.Tags = append([]string(nil), payload.Tags...)
	if payload.Status != "" {
		p.Status = payload.Status
	}
	if payload.Options != nil {
		p.Options = append([]integration.ProductOption(nil), payload.Options...)
	}

	existing := make(map[int64]integration.DestinationVariant)
	for _, v := range p.Variants {
		existing[v.ID] = v
	}
	variants := make([]integration.DestinationVariant, 0, len(payload.Variants))
	for _, vp := range payload.Variants {
		v, ok := existing[vp.ID]
		if !ok || vp.ID == 0 {
			v = integration.DestinationVariant{
				ID:                h.id(),
				InventoryItemID:   h.id(),
				InventoryQuantity: vp.InventoryQuantity,
			}
		}
		v.ProductID = p.ID
		v.SKU = vp.SKU
		v.Price = vp.Price
		v.CompareAtPrice = vp.CompareAtPrice
		v.Barcode = vp.Barcode
		v.Option1, v.Option2, v.Option3 = vp.Option1, vp.Option2, vp.Option3
		if v.Option1 == "" {
			v.Option1 = integration.DefaultOptionValue
		}
		v.Position = vp.Position
		variants = append(variants, v)
	}
	p.Variants = variants
}

func (h *fakeHub) SetProductStatus(_ context.Context, productID int64, status integration.ProductStatus) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses[productID] = status
	if p, ok := h.products[productID]; ok {
		p.Status = status
	}
	return nil
}

func (h *fakeHub) ListVendorProducts(_ context.Context, vendor string) ([]integration.ProductRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []integration.ProductRef
	for _, p := range h.products {
		if p.Vendor == vendor {
			out = append(out, integration.ProductRef{ID: p.ID, Handle: p.Handle, Status: p.Status})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (h *fakeHub) SetInventoryLevel(_ context.Context, level integration.InventoryLevel) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.invErr != nil {
		return h.invErr
	}
	h.inventory = append(h.inventory, level)
	for _, p := range h.products {
		for i, v := range p.Variants {
			if v.InventoryItemID != level.InventoryItemID {
				continue
			}
			// inventory_quantity is the sum over locations
			levels, ok := h.levels[v.InventoryItemID]
			if !ok {
				levels = map[int64]int{testDefaultLocation: v.InventoryQuantity}
				h.levels[v.InventoryItemID] = levels
			}
			levels[level.LocationID] = level.Available
			total := 0
			for _, q := range levels {
				total += q
			}
			p.Variants[i].InventoryQuantity = total
		}
	}
	return nil
}

func (h *fakeHub) CreateImage(_ context.Context, productID int64, image integration.ImagePayload) (*integration.DestinationImage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.imageErr[image.Alt]; err != nil {
		return nil, err
	}
	p, ok := h.products[productID]
	if !ok {
		return nil, integration.ErrProductNotFound
	}
	h.images = append(h.images, image)
	img := integration.DestinationImage{ID: h.id(), Alt: image.Alt, Position: image.Position, VariantIDs: image.VariantIDs}
	p.Images = append(p.Images, img)
	return &img, nil
}

func (h *fakeHub) ListSmartCollectionHandles(context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.handles...), nil
}

func (h *fakeHub) CreateSmartCollection(_ context.Context, collection integration.SmartCollection) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if collection.Handle == "" {
		return errors.New("handle required")
	}
	h.collections = append(h.collections, collection)
	h.handles = append(h.handles, collection.Handle)
	return nil
}

func (h *fakeHub) DefaultLocationID() int64 {
	return testDefaultLocation
}

var (
	_ integration.Storefront  = (*MockStorefront)(nil)
	_ integration.CommerceHub = (*fakeHub)(nil)
)

// recordingEvents collects published events
type recordingEvents struct {
	mu     sync.Mutex
	events []integration.SyncEvent
}

func (r *recordingEvents) Publish(_ context.Context, e integration.SyncEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEvents) ofType(t integration.SyncEventType) []integration.SyncEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.SyncEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func intPtr(v int) *int { return &v }

func testStore(id string) integration.StoreConfig {
	return integration.StoreConfig{
		ID:          id,
		APIURL:      "https://api.tiendanube.com/v1/" + id,
		AccessToken: "token",
		Category:    "indumentaria",
	}
}

func testRegistry(stores ...integration.StoreConfig) *integration.StoreRegistry {
	r, err := integration.NewStoreRegistry(stores)
	if err != nil {
		panic(err)
	}
	return r
}

// remera is a two-variant product with two images, one linked to a variant
func remera() integration.SourceProduct {
	return integration.SourceProduct{
		ID:          "5001",
		StoreID:     "123456",
		Name:        "Remera Azul",
		Description: "<p>Remera de <b>algodón</b> &amp; lino</p>",
		Published:   true,
		Tags:        []string{"remeras", " verano "},
		Attributes:  []string{"Talle"},
		Categories:  []integration.SourceCategory{{ID: "1", Name: "Remeras", Handle: "remeras"}},
		Variants: []integration.SourceVariant{
			{ID: "7001", ProductID: "5001", Price: "1000", Stock: intPtr(5), Values: []string{"M"}, Position: 1, ImageID: "9001"},
			{ID: "7002", ProductID: "5001", Price: "1000", PromotionalPrice: "0.00", Stock: nil, Values: []string{"L"}, Position: 2},
		},
		Images: []integration.SourceImage{
			{ID: "9001", Src: "https://cdn.example.com/9001.jpg", Position: 1},
			{ID: "9002", Src: "https://cdn.example.com/9002.jpg", Position: 2},
		},
	}
}
