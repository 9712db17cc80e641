package service

import (
	"context"
	"errors"
	"testing"

	domain "github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/stretchr/testify/assert"
)

func TestGetAvailableStock(t *testing.T) {
	ctx := context.Background()
	repo := newFakeStockRepo()
	repo.setStock("sku-1", 5)
	svc := NewStockService(repo)

	stock, err := svc.GetAvailableStock(ctx, "sku-1")
	assert.NoError(t, err)
	assert.Equal(t, 5, stock)

	// 不存在的變體視為 0，不是錯誤
	stock, err = svc.GetAvailableStock(ctx, "missing")
	assert.NoError(t, err)
	assert.Equal(t, 0, stock)

	// 查詢失敗回 ErrStockQuery
	repo.failErr = errors.New("connection refused")
	_, err = svc.GetAvailableStock(ctx, "sku-1")
	assert.ErrorIs(t, err, ErrStockQuery)
}

func TestGetCurrentQuantity(t *testing.T) {
	svc := NewStockService(newFakeStockRepo())

	guest := []domain.CartLine{{VariantID: "sku-1", Quantity: 2}}
	user := []domain.CartLine{{VariantID: "sku-1", Quantity: 3}, {VariantID: "sku-2", Quantity: 1}}

	// 合併窗口兩邊都算
	assert.Equal(t, 5, svc.GetCurrentQuantity("sku-1", guest, user))
	assert.Equal(t, 1, svc.GetCurrentQuantity("sku-2", guest, user))
	assert.Equal(t, 0, svc.GetCurrentQuantity("sku-3", guest, user))
}

func TestValidateIncrease(t *testing.T) {
	ctx := context.Background()
	repo := newFakeStockRepo()
	repo.setStock("sku-1", 5)
	svc := NewStockService(repo)

	guest := []domain.CartLine{{VariantID: "sku-1", Quantity: 2}}

	// current + delta == available 剛好放行
	check, err := svc.ValidateIncrease(ctx, "sku-1", 3, guest, nil)
	assert.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.Equal(t, 5, check.Available)
	assert.Equal(t, 2, check.Current)

	// 超過一件就擋
	check, err = svc.ValidateIncrease(ctx, "sku-1", 4, guest, nil)
	assert.NoError(t, err)
	assert.False(t, check.Allowed)

	// 查詢失敗不是「沒庫存」
	repo.failErr = errors.New("timeout")
	_, err = svc.ValidateIncrease(ctx, "sku-1", 1, guest, nil)
	assert.ErrorIs(t, err, ErrStockQuery)
}
