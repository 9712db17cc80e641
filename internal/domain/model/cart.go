package model

import (
	"github.com/shopspring/decimal"
)

// CartLine 購物車中的一個品項
// 同一個購物車內 VariantID 唯一，Quantity 必定 >= 1
// 數量歸零的品項直接刪除，不會留下 quantity = 0 的紀錄
type CartLine struct {
	VariantID  string      `json:"product_variant_id"`
	Quantity   int         `json:"quantity"`
	Enrichment *Enrichment `json:"enrichment,omitempty"`
}

// Enrichment 品項的展示用快取資料
// 只供顯示與金額加總使用，可能過期，不可作為庫存判斷依據
type Enrichment struct {
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ImageURL    string          `json:"image_url"`
}

// StockLevel 某個變體目前可售數量
// 外部資料，本核心只讀不寫
type StockLevel struct {
	VariantID      string `json:"variant_id"`
	AvailableUnits int    `json:"available_units"`
}

// VariantDetail 從型錄層查回來的正規化結果
// 外部 schema 的欄位差異（stock_quantity / stock...）在 repository 邊界統一轉成這個形狀
type VariantDetail struct {
	VariantID  string
	Enrichment Enrichment
	Stock      StockLevel
}

// FindLine 依 variantID 找出品項，回傳 index，找不到回 -1
func FindLine(lines []CartLine, variantID string) int {
	for i := range lines {
		if lines[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// SumQuantity 加總所有品項數量
func SumQuantity(lines []CartLine) int {
	total := 0
	for i := range lines {
		total += lines[i].Quantity
	}
	return total
}

// SumPrice 以 enrichment 單價加總金額
// 缺少 enrichment 的品項以 0 計算，屬顯示層議題不是錯誤
func SumPrice(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		if lines[i].Enrichment == nil {
			continue
		}
		total = total.Add(lines[i].Enrichment.UnitPrice.Mul(decimal.NewFromInt(int64(lines[i].Quantity))))
	}
	return total
}

// CloneLines 複製品項切片，避免外部改到引擎內部狀態
func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return nil
	}
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}
