package db

import (
	"context"
	"errors"

	domain "github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db/model"
	"gorm.io/gorm"
)

// ICatalogRepository 型錄讀寫
// 讀取結果一律轉成 domain 的正規化形狀，外部 schema 的欄位差異只在這層處理
type ICatalogRepository interface {
	// GetVariantDetails 批次查詢變體的展示資料與庫存
	// 查不到的 variantID 不會出現在結果 map 中，不視為錯誤
	GetVariantDetails(ctx context.Context, variantIDs []string) (map[string]domain.VariantDetail, error)

	// CreateProduct 建立商品與其變體
	CreateProduct(ctx context.Context, product *model.Product) error

	// UpdateVariantStock 修改變體庫存記錄
	UpdateVariantStock(ctx context.Context, variantID string, stock uint) error
}

type CatalogRepoError error

var ErrVariantNotFound CatalogRepoError = errors.New("product variant not found")

type CatalogRepo struct {
	db *DbDao
}

func NewCatalogRepo(db *DbDao) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) GetVariantDetails(ctx context.Context, variantIDs []string) (map[string]domain.VariantDetail, error) {
	if len(variantIDs) == 0 {
		return map[string]domain.VariantDetail{}, nil
	}

	var variants []model.ProductVariant
	err := r.db.WithContext(ctx).
		Where("variant_id IN ?", variantIDs).
		Find(&variants).Error
	if err != nil {
		return nil, err
	}

	productIDs := make([]uint, 0, len(variants))
	for _, v := range variants {
		productIDs = append(productIDs, v.ProductID)
	}

	var products []model.Product
	if len(productIDs) > 0 {
		if err := r.db.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&products).Error; err != nil {
			return nil, err
		}
	}
	productByID := make(map[uint]model.Product, len(products))
	for _, p := range products {
		productByID[p.ProductID] = p
	}

	// 正規化：不論來源欄位怎麼命名，出了這層只有 VariantDetail 一種形狀
	details := make(map[string]domain.VariantDetail, len(variants))
	for _, v := range variants {
		p := productByID[v.ProductID]
		details[v.VariantID] = domain.VariantDetail{
			VariantID: v.VariantID,
			Enrichment: domain.Enrichment{
				ProductName: p.Name,
				Size:        v.Size,
				Color:       v.Color,
				UnitPrice:   p.Price,
				ImageURL:    p.ImageURL,
			},
			Stock: domain.StockLevel{
				VariantID:      v.VariantID,
				AvailableUnits: int(v.StockQuantity),
			},
		}
	}
	return details, nil
}

func (r *CatalogRepo) CreateProduct(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *CatalogRepo) UpdateVariantStock(ctx context.Context, variantID string, stock uint) error {
	result := r.db.WithContext(ctx).Model(&model.ProductVariant{}).
		Where("variant_id = ?", variantID).
		Update("stock_quantity", stock)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// 確保 CatalogRepo 實現了 ICatalogRepository 介面
var _ ICatalogRepository = (*CatalogRepo)(nil)
