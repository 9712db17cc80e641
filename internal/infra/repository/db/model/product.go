package model

import (
	"github.com/shopspring/decimal"
)

type Product struct {
	ProductID   uint             `gorm:"primaryKey"`
	Name        string           `gorm:"not null;type:varchar(100)"`
	Price       decimal.Decimal  `gorm:"not null;type:decimal(10,2)"`
	ImageURL    string           `gorm:"type:varchar(500)"`
	Category    string           `gorm:"not null;type:varchar(50)"`
	Description string           `gorm:"type:text"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"` // 一對多，級聯刪除
	BaseModel
}

// ProductVariant 可購買的商品變體（尺寸 x 顏色）
// StockQuantity 為庫存的記錄來源，redis 快取由 redis_decorator 同步
type ProductVariant struct {
	VariantID     string `gorm:"primaryKey;type:varchar(36)"`
	ProductID     uint   `gorm:"not null;index"`
	Size          string `gorm:"type:varchar(20)"`
	Color         string `gorm:"type:varchar(30)"`
	StockQuantity uint   `gorm:"not null;type:int"`
	BaseModel
}
