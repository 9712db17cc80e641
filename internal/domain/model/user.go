package model

// User 已登入的使用者身份
// UserID 為身份提供者發的 uuid 字串
type User struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
