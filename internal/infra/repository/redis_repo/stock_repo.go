package redis_repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// IStockRedisRepository 定義 Redis 庫存操作的介面
type IStockRedisRepository interface {
	// CreateVariantStock 建立變體庫存
	CreateVariantStock(ctx context.Context, variantID string, stock uint) error

	// GetVariantStock 取得變體可售數量
	GetVariantStock(ctx context.Context, variantID string) (int, error)

	// GetVariantStockBatch 批次取得多個變體可售數量
	GetVariantStockBatch(ctx context.Context, variantIDs []string) (map[string]int, error)

	// AddVariantStock 增加變體庫存數量
	AddVariantStock(ctx context.Context, variantID string, quantity uint) (int, error)

	// UpdateVariantStock 修改變體庫存數量
	UpdateVariantStock(ctx context.Context, variantID string, quantity uint) error

	// DeleteVariantStock 刪除變體庫存
	DeleteVariantStock(ctx context.Context, variantID string) error

	// DeductVariantStock 原子性扣減庫存
	DeductVariantStock(ctx context.Context, variantID string, quantity uint) (int, error)
}

type StockRepoError error

var (
	ErrVariantNotFound    StockRepoError = errors.New("variant not found")
	ErrStockNotEnough     StockRepoError = errors.New("variant stock not enough")
	ErrUnexpectedStockVal StockRepoError = errors.New("unexpected stock value")
)

/*	redis 專注變體庫存
	結構:
	variant:{variantID}:stock -> hash { stock: 100 }*/

type StockRedisRepo struct {
	stockCache *redis.Client
}

func NewStockRepo(stockCache *redis.Client) *StockRedisRepo {
	return &StockRedisRepo{stockCache: stockCache}
}

func generateVariantStockKey(variantID string) string {
	return fmt.Sprintf("variant:%s:stock", variantID)
}

func (s *StockRedisRepo) CreateVariantStock(ctx context.Context, variantID string, stock uint) error {
	redisKey := generateVariantStockKey(variantID)
	err := s.stockCache.HSet(ctx, redisKey, "stock", stock).Err()
	if err != nil {
		return err
	}
	return nil
}

// 取得變體可售數量
// 錯誤:
//   - ErrVariantNotFound: 變體不存在
//   - err: 其他錯誤
func (s *StockRedisRepo) GetVariantStock(ctx context.Context, variantID string) (int, error) {
	redisKey := generateVariantStockKey(variantID)
	stock, err := s.stockCache.HGet(ctx, redisKey, "stock").Result()
	if err == redis.Nil {
		return 0, fmt.Errorf("%w: %s", ErrVariantNotFound, variantID)
	}
	if err != nil {
		return 0, err
	}

	stockInt, err := strconv.ParseInt(stock, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnexpectedStockVal, stock)
	}

	return int(stockInt), nil
}

// 批次取得變體可售數量
// 查不到的 variantID 不會出現在結果中，不視為錯誤
func (s *StockRedisRepo) GetVariantStockBatch(ctx context.Context, variantIDs []string) (map[string]int, error) {
	if len(variantIDs) == 0 {
		return map[string]int{}, nil
	}

	pipe := s.stockCache.Pipeline()
	cmds := make(map[string]*redis.StringCmd, len(variantIDs))
	for _, id := range variantIDs {
		cmds[id] = pipe.HGet(ctx, generateVariantStockKey(id), "stock")
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	result := make(map[string]int, len(variantIDs))
	for id, cmd := range cmds {
		stock, err := cmd.Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		stockInt, err := strconv.ParseInt(stock, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnexpectedStockVal, stock)
		}
		result[id] = int(stockInt)
	}
	return result, nil
}

// 增加變體庫存數量
func (s *StockRedisRepo) AddVariantStock(ctx context.Context, variantID string, quantity uint) (int, error) {
	redisKey := generateVariantStockKey(variantID)
	// HIncrBy 會返回增加後的值
	result := s.stockCache.HIncrBy(ctx, redisKey, "stock", int64(quantity))
	if err := result.Err(); err != nil {
		return 0, err
	}
	return int(result.Val()), nil
}

// 修改變體庫存數量
func (s *StockRedisRepo) UpdateVariantStock(ctx context.Context, variantID string, quantity uint) error {
	redisKey := generateVariantStockKey(variantID)
	err := s.stockCache.HSet(ctx, redisKey, "stock", quantity).Err()
	if err != nil {
		return err
	}
	return nil
}

// DeleteVariantStock 直接刪除變體庫存資料
func (s *StockRedisRepo) DeleteVariantStock(ctx context.Context, variantID string) error {
	redisKey := generateVariantStockKey(variantID)
	err := s.stockCache.Del(ctx, redisKey).Err()
	if err != nil {
		return err
	}
	return nil
}

// 原子性扣減庫存
/*
	返回值:
		- 扣減後的庫存數量
		- 錯誤:
			- ErrVariantNotFound: 變體不存在
			- ErrStockNotEnough: 庫存不足
			- err: 其他錯誤
*/
func (s *StockRedisRepo) DeductVariantStock(ctx context.Context, variantID string, quantity uint) (int, error) {
	redisKey := generateVariantStockKey(variantID)

	const stockDeductionScript = `
	local key = KEYS[1]
	local quantity = tonumber(ARGV[1])
	local field = ARGV[2]

	if redis.call('EXISTS', key) == 0 then
		return -1
	end

	local current_stock = redis.call('HGET', key, field)
	if not current_stock then
		return -1
	end

	current_stock = tonumber(current_stock)

	if current_stock < quantity then
		return -2  -- 表示庫存不足
	end

	local new_stock = redis.call('HINCRBY', key, field, -quantity)
	return new_stock
	`

	result, err := s.stockCache.Eval(ctx, stockDeductionScript, []string{redisKey}, quantity, "stock").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to deduct stock: %w", err)
	}

	resultInt, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type: %T", result)
	}

	switch {
	case resultInt == -1:
		return 0, fmt.Errorf("%w: variant with id %s not found", ErrVariantNotFound, variantID)
	case resultInt == -2:
		return 0, fmt.Errorf("%w: variant with id %s stock not enough", ErrStockNotEnough, variantID)
	default:
		return int(resultInt), nil
	}
}

// 確保 StockRedisRepo 實現了 IStockRedisRepository 介面
var _ IStockRedisRepository = (*StockRedisRepo)(nil)
