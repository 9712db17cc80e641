package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_repo"
)

// StockCheck 一次庫存驗證的結果
type StockCheck struct {
	Allowed   bool
	Available int
	Current   int
}

// IStockService 庫存驗證
// 只讀外部庫存來源，自己不持有狀態
type IStockService interface {
	// GetAvailableStock 查變體目前可售數量
	// 查詢失敗回傳 ErrStockQuery，呼叫端必須當作「無法確認」而非「沒庫存」
	GetAvailableStock(ctx context.Context, variantID string) (int, error)

	// GetAvailableStockBatch 批次查可售數量，查不到的變體視為 0
	GetAvailableStockBatch(ctx context.Context, variantIDs []string) (map[string]int, error)

	// GetCurrentQuantity 加總 guest / user 兩邊購物車中該變體的數量
	// 正常情況只有一邊有值，合併進行中的短暫窗口兩邊都算
	GetCurrentQuantity(variantID string, guestLines, userLines []model.CartLine) int

	// ValidateIncrease 驗證數量增加是否放行
	// allowed = (current + delta) <= available
	ValidateIncrease(ctx context.Context, variantID string, delta int, guestLines, userLines []model.CartLine) (StockCheck, error)
}

type StockService struct {
	stockRepo redis_repo.IStockRedisRepository
}

func NewStockService(stockRepo redis_repo.IStockRedisRepository) *StockService {
	if stockRepo == nil {
		panic("StockService dependency stockRepo is nil")
	}
	return &StockService{stockRepo: stockRepo}
}

// 取得變體可售數量
// 變體不存在視為 0（商品可能已下架），查詢失敗才回錯
// 錯誤:
//   - ErrStockQuery: 庫存來源連不上或回傳壞資料
func (s *StockService) GetAvailableStock(ctx context.Context, variantID string) (int, error) {
	stock, err := s.stockRepo.GetVariantStock(ctx, variantID)
	if errors.Is(err, redis_repo.ErrVariantNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStockQuery, err)
	}
	return stock, nil
}

func (s *StockService) GetAvailableStockBatch(ctx context.Context, variantIDs []string) (map[string]int, error) {
	stocks, err := s.stockRepo.GetVariantStockBatch(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStockQuery, err)
	}
	return stocks, nil
}

func (s *StockService) GetCurrentQuantity(variantID string, guestLines, userLines []model.CartLine) int {
	total := 0
	if i := model.FindLine(guestLines, variantID); i >= 0 {
		total += guestLines[i].Quantity
	}
	if i := model.FindLine(userLines, variantID); i >= 0 {
		total += userLines[i].Quantity
	}
	return total
}

// 驗證數量增加
// 除了一次庫存查詢外是純函數
// 錯誤:
//   - ErrStockQuery: 無法確認庫存，沒有任何狀態被改動
func (s *StockService) ValidateIncrease(ctx context.Context, variantID string, delta int, guestLines, userLines []model.CartLine) (StockCheck, error) {
	current := s.GetCurrentQuantity(variantID, guestLines, userLines)

	available, err := s.GetAvailableStock(ctx, variantID)
	if err != nil {
		return StockCheck{}, err
	}

	return StockCheck{
		Allowed:   current+delta <= available,
		Available: available,
		Current:   current,
	}, nil
}

// 確保 StockService 實現了 IStockService 介面
var _ IStockService = (*StockService)(nil)
