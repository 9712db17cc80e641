package db

import (
	"context"
	"errors"

	domain "github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ICartItemRepository 已登入使用者購物車的持久層操作
// 所有操作以 (user_id, variant_id) 唯一鍵為準
type ICartItemRepository interface {
	// ListLines 取出使用者購物車全部品項
	ListLines(ctx context.Context, userID string) ([]domain.CartLine, error)

	// UpsertLine 寫入品項
	// increment 為 true 時數量累加到既有品項，false 時直接覆寫
	UpsertLine(ctx context.Context, userID, variantID string, quantity int, increment bool) error

	// DeleteLine 刪除單一品項，品項不存在視為成功
	DeleteLine(ctx context.Context, userID, variantID string) error

	// DeleteAllLines 清空使用者購物車
	DeleteAllLines(ctx context.Context, userID string) error
}

type CartItemRepoError error

var ErrInvalidQuantity CartItemRepoError = errors.New("cart item quantity must be positive")

type CartItemRepo struct {
	db *DbDao
}

func NewCartItemRepo(db *DbDao) *CartItemRepo {
	return &CartItemRepo{db: db}
}

func (r *CartItemRepo) ListLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	var items []model.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		lines = append(lines, domain.CartLine{
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}

// UpsertLine 原子性 insert-or-update
// increment 模式下衝突時 quantity 累加，對應「加入購物車」
// 覆寫模式對應「直接設定數量」，跨裝置同時覆寫為 last-write-wins
func (r *CartItemRepo) UpsertLine(ctx context.Context, userID, variantID string, quantity int, increment bool) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	assignments := clause.Assignments(map[string]interface{}{"quantity": quantity})
	if increment {
		assignments = clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("cart_items.quantity + excluded.quantity"),
		})
	}

	item := model.CartItem{
		UserID:    userID,
		VariantID: variantID,
		Quantity:  quantity,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "variant_id"}},
		DoUpdates: assignments,
	}).Create(&item).Error
}

func (r *CartItemRepo) DeleteLine(ctx context.Context, userID, variantID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND variant_id = ?", userID, variantID).
		Delete(&model.CartItem{}).Error
}

func (r *CartItemRepo) DeleteAllLines(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.CartItem{}).Error
}

// 確保 CartItemRepo 實現了 ICartItemRepository 介面
var _ ICartItemRepository = (*CartItemRepo)(nil)
