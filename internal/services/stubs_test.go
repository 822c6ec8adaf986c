package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	domain "github.com/stylocore/catalog-api/internal/domain"
	pstorage "github.com/stylocore/catalog-api/internal/platform/storage"
	"github.com/stylocore/catalog-api/internal/repositories"
)

type stubRepoError struct {
	kind string
}

func (e *stubRepoError) Error() string       { return "repo: " + e.kind }
func (e *stubRepoError) IsNotFound() bool    { return e.kind == "not_found" }
func (e *stubRepoError) IsConflict() bool    { return e.kind == "conflict" }
func (e *stubRepoError) IsUnavailable() bool { return e.kind == "unavailable" }

var (
	errRepoNotFound    = &stubRepoError{kind: "not_found"}
	errRepoConflict    = &stubRepoError{kind: "conflict"}
	errRepoUnavailable = &stubRepoError{kind: "unavailable"}
)

// memoryProductRepo keeps products in memory and bumps the version on every write.
type memoryProductRepo struct {
	mu       sync.Mutex
	products map[string]domain.Product
	seq      int
	tick     time.Time
	inserts  int
	replaces int

	insertErr error
}

func newMemoryProductRepo() *memoryProductRepo {
	return &memoryProductRepo{
		products: map[string]domain.Product{},
		tick:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *memoryProductRepo) nextVersion() time.Time {
	r.tick = r.tick.Add(time.Second)
	return r.tick
}

func (r *memoryProductRepo) Insert(_ context.Context, product domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return domain.Product{}, r.insertErr
	}
	r.seq++
	r.inserts++
	stored := product.Clone()
	stored.ID = fmt.Sprintf("prod_%d", r.seq)
	stored.Version = r.nextVersion()
	r.products[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *memoryProductRepo) Replace(_ context.Context, product domain.Product, expected time.Time) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.products[product.ID]
	if !ok {
		return domain.Product{}, errRepoNotFound
	}
	if !expected.IsZero() && !expected.Equal(current.Version) {
		return domain.Product{}, errRepoConflict
	}
	r.replaces++
	stored := product.Clone()
	stored.Version = r.nextVersion()
	r.products[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *memoryProductRepo) Delete(_ context.Context, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[productID]; !ok {
		return errRepoNotFound
	}
	delete(r.products, productID)
	return nil
}

func (r *memoryProductRepo) FindByID(_ context.Context, productID string) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, ok := r.products[productID]
	if !ok {
		return domain.Product{}, errRepoNotFound
	}
	return product.Clone(), nil
}

func (r *memoryProductRepo) List(_ context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Product
	for _, product := range r.products {
		if filter.Tag != "" && !containsString(product.Tags, filter.Tag) {
			continue
		}
		out = append(out, product.Clone())
	}
	return out, nil
}

// touch simulates a concurrent writer.
func (r *memoryProductRepo) touch(productID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product := r.products[productID]
	product.Version = r.nextVersion()
	r.products[productID] = product
}

type memoryOrderRepo struct {
	mu            sync.Mutex
	orders        map[string]domain.Order
	statusUpdates int
}

func newMemoryOrderRepo(orders ...domain.Order) *memoryOrderRepo {
	repo := &memoryOrderRepo{orders: map[string]domain.Order{}}
	for _, order := range orders {
		repo.orders[order.ID] = order
	}
	return repo
}

func (r *memoryOrderRepo) Insert(_ context.Context, order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == "" {
		order.ID = fmt.Sprintf("order_%d", len(r.orders)+1)
	}
	r.orders[order.ID] = cloneOrder(order)
	return order, nil
}

func (r *memoryOrderRepo) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, errRepoNotFound
	}
	return cloneOrder(order), nil
}

func (r *memoryOrderRepo) List(_ context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		out = append(out, cloneOrder(order))
	}
	return out, nil
}

func (r *memoryOrderRepo) UpdateDeliveryStatus(_ context.Context, orderID string, status domain.DeliveryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return errRepoNotFound
	}
	r.statusUpdates++
	order.DeliveryStatus = status
	r.orders[orderID] = order
	return nil
}

func cloneOrder(order domain.Order) domain.Order {
	out := order
	out.Items = make([]domain.OrderItem, len(order.Items))
	for i, item := range order.Items {
		out.Items[i] = item.Clone()
	}
	return out
}

type stubCategoryRepo struct {
	list    domain.CategoryList
	loadErr error
	writes  int
}

func (r *stubCategoryRepo) Load(context.Context) (domain.CategoryList, error) {
	if r.loadErr != nil {
		return domain.CategoryList{}, r.loadErr
	}
	return domain.CategoryList{ID: r.list.ID, Names: append([]string{}, r.list.Names...)}, nil
}

func (r *stubCategoryRepo) Mutate(_ context.Context, fn func([]string) ([]string, error)) (domain.CategoryList, error) {
	id := r.list.ID
	if id == "" {
		id = "cat_1"
	}
	next, err := fn(append([]string{}, r.list.Names...))
	if err != nil {
		return domain.CategoryList{}, fmt.Errorf("firestore transaction: %w", err)
	}
	r.writes++
	r.list = domain.CategoryList{ID: id, Names: append([]string{}, next...)}
	return r.list, nil
}

type stubCouponRepo struct {
	coupons   map[string]domain.Coupon
	insertErr error
}

func (r *stubCouponRepo) Insert(_ context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	if r.insertErr != nil {
		return domain.Coupon{}, r.insertErr
	}
	if r.coupons == nil {
		r.coupons = map[string]domain.Coupon{}
	}
	coupon.ID = fmt.Sprintf("coupon_%d", len(r.coupons)+1)
	r.coupons[coupon.ID] = coupon
	return coupon, nil
}

func (r *stubCouponRepo) Delete(_ context.Context, couponID string) error {
	if _, ok := r.coupons[couponID]; !ok {
		return errRepoNotFound
	}
	delete(r.coupons, couponID)
	return nil
}

func (r *stubCouponRepo) List(context.Context) ([]domain.Coupon, error) {
	out := make([]domain.Coupon, 0, len(r.coupons))
	for _, coupon := range r.coupons {
		out = append(out, coupon)
	}
	return out, nil
}

type stubBookingRepo struct {
	listFn   func(context.Context) ([]domain.Booking, error)
	deleteFn func(context.Context, string) error
}

func (s *stubBookingRepo) List(ctx context.Context) ([]domain.Booking, error) {
	return s.listFn(ctx)
}

func (s *stubBookingRepo) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

// memoryAssetStore records writes and refuses duplicate keys.
type memoryAssetStore struct {
	mu      sync.Mutex
	objects map[string]pstorage.Object
	failOn  string
	putFn   func(ctx context.Context, key string) error
}

func newMemoryAssetStore() *memoryAssetStore {
	return &memoryAssetStore{objects: map[string]pstorage.Object{}}
}

func (s *memoryAssetStore) Put(ctx context.Context, key, contentType string, body io.Reader) (pstorage.Object, error) {
	if s.putFn != nil {
		if err := s.putFn(ctx, key); err != nil {
			return pstorage.Object{}, err
		}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return pstorage.Object{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && strings.Contains(key, s.failOn) {
		return pstorage.Object{}, fmt.Errorf("storage: write %s: boom", key)
	}
	if _, ok := s.objects[key]; ok {
		return pstorage.Object{}, fmt.Errorf("storage: write %s: %w", key, pstorage.ErrObjectExists)
	}
	object := pstorage.Object{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		URL:         "https://files.test/" + key,
	}
	s.objects[key] = object
	return object, nil
}

func (s *memoryAssetStore) List(_ context.Context, prefix string) ([]pstorage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []pstorage.Object
	for key, object := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, object)
		}
	}
	return out, nil
}

func (s *memoryAssetStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []CatalogEvent
	err    error
}

func (p *recordingPublisher) PublishCatalogEvent(_ context.Context, event CatalogEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return fmt.Sprintf("msg-%d", len(p.events)), nil
}

type recordedLog struct {
	event  string
	fields map[string]any
}

type logRecorder struct {
	mu      sync.Mutex
	entries []recordedLog
}

func (l *logRecorder) log(_ context.Context, event string, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, recordedLog{event: event, fields: fields})
}

func (l *logRecorder) events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.entries))
	for _, entry := range l.entries {
		out = append(out, entry.event)
	}
	return out
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
}
