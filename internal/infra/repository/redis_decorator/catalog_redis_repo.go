package redis_decorator

import (
	"context"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_repo"
	"github.com/rs/zerolog/log"
)

/*
redis 專注變體庫存，所以只有跟庫存有關的型錄寫入，才需要連動redis
讀取不經過這層，庫存驗證直接讀 redis
*/
type CacheAsideCatalogRepo struct {
	db.ICatalogRepository
	redis redis_repo.IStockRedisRepository
}

func NewCacheAsideCatalogRepo(dbRepo db.ICatalogRepository, redis redis_repo.IStockRedisRepository) db.ICatalogRepository {
	return &CacheAsideCatalogRepo{ICatalogRepository: dbRepo, redis: redis}
}

func (p *CacheAsideCatalogRepo) CreateProduct(ctx context.Context, product *model.Product) error {
	err := p.ICatalogRepository.CreateProduct(ctx, product)
	if err != nil {
		return err
	}
	for _, v := range product.Variants {
		err = p.redis.CreateVariantStock(ctx, v.VariantID, v.StockQuantity)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *CacheAsideCatalogRepo) UpdateVariantStock(ctx context.Context, variantID string, stock uint) error {
	err := p.ICatalogRepository.UpdateVariantStock(ctx, variantID, stock)
	if err != nil {
		return err
	}

	err = p.redis.UpdateVariantStock(ctx, variantID, stock)
	if err != nil {
		log.Warn().Err(err).Str("variant_id", variantID).Msg("stock cache update failed, retrying once")
		go func() {
			time.Sleep(500 * time.Millisecond)
			if rerr := p.redis.UpdateVariantStock(context.Background(), variantID, stock); rerr != nil {
				log.Error().Err(rerr).Str("variant_id", variantID).Msg("stock cache retry failed")
			}
		}()
		return err
	}
	return nil
}
