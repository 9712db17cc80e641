package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/rs/zerolog"
)

// 匿名購物車的儲存 key，對應前端 localStorage 的 guest_cart
const GuestCartKey = "guest_cart"

// GuestCartRepo 匿名購物車持久層
// 內容以 JSON 存在本地 KVStore，一筆 key 放整個購物車
// 壞掉的 payload 一律當空購物車處理並記 log，不往上拋
type GuestCartRepo struct {
	kv     KVStore
	key    string
	logger zerolog.Logger
}

func NewGuestCartRepo(kv KVStore, logger zerolog.Logger) *GuestCartRepo {
	if kv == nil {
		panic("GuestCartRepo dependency kv is nil")
	}
	return &GuestCartRepo{
		kv:     kv,
		key:    GuestCartKey,
		logger: logger,
	}
}

// 持久化格式，只存 variantID 與數量
// enrichment 是讀取時才補的展示資料，不落地
type storedLine struct {
	VariantID string `json:"product_variant_id"`
	Quantity  int    `json:"quantity"`
}

// Load 讀出匿名購物車
// key 不存在或內容毀損都回傳空切片
func (r *GuestCartRepo) Load(ctx context.Context) ([]domain.CartLine, error) {
	raw, ok, err := r.kv.Get(r.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}
	if !ok {
		return []domain.CartLine{}, nil
	}

	var stored []storedLine
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		r.logger.Warn().Err(err).Msg("guest cart payload malformed, treating as empty")
		return []domain.CartLine{}, nil
	}

	lines := make([]domain.CartLine, 0, len(stored))
	for _, s := range stored {
		if s.Quantity <= 0 || s.VariantID == "" {
			continue
		}
		lines = append(lines, domain.CartLine{
			VariantID: s.VariantID,
			Quantity:  s.Quantity,
		})
	}
	return lines, nil
}

// Save 覆寫匿名購物車
func (r *GuestCartRepo) Save(ctx context.Context, lines []domain.CartLine) error {
	stored := make([]storedLine, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		stored = append(stored, storedLine{
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
		})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal guest cart: %w", err)
	}
	if err := r.kv.Set(r.key, string(data)); err != nil {
		return fmt.Errorf("failed to save guest cart: %w", err)
	}
	return nil
}

// Clear 整個移除持久化內容
// 與存入空購物車不同，之後 Exists 會回 false
func (r *GuestCartRepo) Clear(ctx context.Context) error {
	if err := r.kv.Remove(r.key); err != nil {
		return fmt.Errorf("failed to clear guest cart: %w", err)
	}
	return nil
}

// Exists 持久化內容是否存在，讓呼叫端分得出「沒用過」跟「清成空的」
func (r *GuestCartRepo) Exists(ctx context.Context) (bool, error) {
	_, ok, err := r.kv.Get(r.key)
	if err != nil {
		return false, err
	}
	return ok, nil
}
