package service

import (
	"errors"
	"fmt"
)

type CartServiceError error

var (
	// ErrStockQuery 庫存來源查不到或回傳壞資料
	// 代表「無法確認庫存」，不能當成庫存為零
	ErrStockQuery CartServiceError = errors.New("stock query failed")

	// ErrPersistence 購物車持久層寫入失敗
	// 記憶體狀態維持原樣，不做樂觀更新
	ErrPersistence CartServiceError = errors.New("cart persistence failed")
)

// InsufficientStockError 需求數量超過可售庫存
// 帶具體數字讓 UI 能提示「改加 N 件」
type InsufficientStockError struct {
	VariantID     string
	Available     int
	AlreadyInCart int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s: available %d, already in cart %d",
		e.VariantID, e.Available, e.AlreadyInCart)
}

// MergeLineError 合併時單一品項失敗
// 不會中斷其他品項的合併
type MergeLineError struct {
	VariantID string
	Err       error
}

func (e *MergeLineError) Error() string {
	return fmt.Sprintf("failed to merge variant %s: %v", e.VariantID, e.Err)
}

func (e *MergeLineError) Unwrap() error {
	return e.Err
}

// MergeError 合併結束後的彙總結果
// 失敗的品項留在 guest store，重試只補失敗的部分
type MergeError struct {
	LineErrors []*MergeLineError
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("guest cart merge completed with %d failed lines", len(e.LineErrors))
}
