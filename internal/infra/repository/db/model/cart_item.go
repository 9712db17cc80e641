package model

// CartItem 已登入使用者的購物車品項
// (user_id, variant_id) 唯一，upsert 都以這組 key 為準
type CartItem struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"not null;type:varchar(36);uniqueIndex:idx_cart_user_variant"`
	VariantID string `gorm:"not null;type:varchar(36);uniqueIndex:idx_cart_user_variant"`
	Quantity  int    `gorm:"not null;type:int"`
	BaseModel
}
