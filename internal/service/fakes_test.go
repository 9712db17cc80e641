package service

import (
	"context"
	"sync"

	domain "github.com/RoyceAzure/lab/storefront/internal/domain/model"
	evt_model "github.com/RoyceAzure/lab/storefront/internal/domain/model/event"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	dbmodel "github.com/RoyceAzure/lab/storefront/internal/infra/repository/db/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_repo"
)

// 測試用的協作者替身
// 語意跟正式實作一致：stock repo 對應 redis 庫存、cart repo 對應 (user_id, variant_id)
// 唯一鍵的遠端購物車，都支援錯誤注入

type fakeStockRepo struct {
	mu      sync.Mutex
	stocks  map[string]int
	failErr error
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{stocks: make(map[string]int)}
}

func (f *fakeStockRepo) setStock(variantID string, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stocks[variantID] = stock
}

func (f *fakeStockRepo) CreateVariantStock(ctx context.Context, variantID string, stock uint) error {
	f.setStock(variantID, int(stock))
	return nil
}

func (f *fakeStockRepo) GetVariantStock(ctx context.Context, variantID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return 0, f.failErr
	}
	stock, ok := f.stocks[variantID]
	if !ok {
		return 0, redis_repo.ErrVariantNotFound
	}
	return stock, nil
}

func (f *fakeStockRepo) GetVariantStockBatch(ctx context.Context, variantIDs []string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	out := make(map[string]int, len(variantIDs))
	for _, id := range variantIDs {
		if stock, ok := f.stocks[id]; ok {
			out[id] = stock
		}
	}
	return out, nil
}

func (f *fakeStockRepo) AddVariantStock(ctx context.Context, variantID string, quantity uint) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stocks[variantID] += int(quantity)
	return f.stocks[variantID], nil
}

func (f *fakeStockRepo) UpdateVariantStock(ctx context.Context, variantID string, quantity uint) error {
	f.setStock(variantID, int(quantity))
	return nil
}

func (f *fakeStockRepo) DeleteVariantStock(ctx context.Context, variantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stocks, variantID)
	return nil
}

func (f *fakeStockRepo) DeductVariantStock(ctx context.Context, variantID string, quantity uint) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stock, ok := f.stocks[variantID]
	if !ok {
		return 0, redis_repo.ErrVariantNotFound
	}
	if stock < int(quantity) {
		return 0, redis_repo.ErrStockNotEnough
	}
	f.stocks[variantID] = stock - int(quantity)
	return f.stocks[variantID], nil
}

var _ redis_repo.IStockRedisRepository = (*fakeStockRepo)(nil)

type fakeCartItemRepo struct {
	mu      sync.Mutex
	carts   map[string][]domain.CartLine
	failErr error
}

func newFakeCartItemRepo() *fakeCartItemRepo {
	return &fakeCartItemRepo{carts: make(map[string][]domain.CartLine)}
}

func (f *fakeCartItemRepo) ListLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	return domain.CloneLines(f.carts[userID]), nil
}

func (f *fakeCartItemRepo) UpsertLine(ctx context.Context, userID, variantID string, quantity int, increment bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	lines := f.carts[userID]
	if i := domain.FindLine(lines, variantID); i >= 0 {
		if increment {
			lines[i].Quantity += quantity
		} else {
			lines[i].Quantity = quantity
		}
	} else {
		lines = append(lines, domain.CartLine{VariantID: variantID, Quantity: quantity})
	}
	f.carts[userID] = lines
	return nil
}

func (f *fakeCartItemRepo) DeleteLine(ctx context.Context, userID, variantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	lines := f.carts[userID]
	if i := domain.FindLine(lines, variantID); i >= 0 {
		f.carts[userID] = append(lines[:i], lines[i+1:]...)
	}
	return nil
}

func (f *fakeCartItemRepo) DeleteAllLines(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	delete(f.carts, userID)
	return nil
}

var _ db.ICartItemRepository = (*fakeCartItemRepo)(nil)

type fakeCatalogRepo struct {
	mu      sync.Mutex
	details map[string]domain.VariantDetail
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{details: make(map[string]domain.VariantDetail)}
}

func (f *fakeCatalogRepo) setDetail(d domain.VariantDetail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details[d.VariantID] = d
}

func (f *fakeCatalogRepo) GetVariantDetails(ctx context.Context, variantIDs []string) (map[string]domain.VariantDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]domain.VariantDetail, len(variantIDs))
	for _, id := range variantIDs {
		if d, ok := f.details[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) CreateProduct(ctx context.Context, product *dbmodel.Product) error {
	return nil
}

func (f *fakeCatalogRepo) UpdateVariantStock(ctx context.Context, variantID string, stock uint) error {
	return nil
}

var _ db.ICatalogRepository = (*fakeCatalogRepo)(nil)

type recordingProducer struct {
	mu     sync.Mutex
	events []evt_model.Event
}

func (p *recordingProducer) Produce(ctx context.Context, evt evt_model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func (p *recordingProducer) countByType(t evt_model.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type() == t {
			n++
		}
	}
	return n
}
