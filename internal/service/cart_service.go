package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	evt_model "github.com/RoyceAzure/lab/storefront/internal/domain/model/event"
	"github.com/RoyceAzure/lab/storefront/internal/infra/producer"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/localstore"
	"github.com/RoyceAzure/lab/storefront/internal/pkg/util"
	"github.com/RoyceAzure/lab/storefront/internal/service/identity"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CartService 購物車狀態機，所有購物車異動唯一的入口
// 匿名時 guest cart 是權威來源，登入後換成遠端 user cart
// 匿名轉登入的瞬間觸發 guest -> user 合併
//
// 所有異動走同一把鎖序列化，避免兩個「先讀數量再寫新數量」互相蓋寫
// 異動提交後一律從權威來源重讀，不信任樂觀更新的本地結果
//
// 由組裝層建一份、以引用傳給使用端，生命週期跟應用 session 一樣長
type CartService struct {
	mu sync.Mutex

	guestRepo *localstore.GuestCartRepo
	cartRepo  db.ICartItemRepository
	catalog   db.ICatalogRepository
	stock     IStockService
	idp       identity.Provider
	producer  producer.ICartEventProducer
	logger    zerolog.Logger

	guestLines []model.CartLine
	userLines  []model.CartLine

	unsubscribe func()
}

func NewCartService(
	guestRepo *localstore.GuestCartRepo,
	cartRepo db.ICartItemRepository,
	catalog db.ICatalogRepository,
	stock IStockService,
	idp identity.Provider,
	notifier identity.Notifier,
	eventProducer producer.ICartEventProducer,
	logger zerolog.Logger,
) *CartService {
	if guestRepo == nil {
		panic("CartService dependency guestRepo is nil")
	}
	if !util.HasImplementation(cartRepo) {
		panic("CartService dependency cartRepo is nil")
	}
	if !util.HasImplementation(catalog) {
		panic("CartService dependency catalog is nil")
	}
	if !util.HasImplementation(stock) {
		panic("CartService dependency stock is nil")
	}
	if !util.HasImplementation(idp) {
		panic("CartService dependency idp is nil")
	}
	if !util.HasImplementation(eventProducer) {
		panic("CartService dependency eventProducer is nil")
	}

	s := &CartService{
		guestRepo: guestRepo,
		cartRepo:  cartRepo,
		catalog:   catalog,
		stock:     stock,
		idp:       idp,
		producer:  eventProducer,
		logger:    logger,
	}
	if util.HasImplementation(notifier) {
		s.unsubscribe = notifier.OnIdentityChange(s.handleIdentityChange)
	}
	return s
}

// Bootstrap 載入初始狀態
// 匿名狀態讀 guest store，已登入則讀遠端購物車並把殘留的 guest cart 合併進去
func (s *CartService) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadGuestLocked(ctx); err != nil {
		return err
	}

	user, err := s.idp.Current(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	if err := s.refreshUserLocked(ctx, user.UserID); err != nil {
		return err
	}
	return s.mergeLocked(ctx, user.UserID)
}

// Close 取消身份訂閱
func (s *CartService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// 登入登出的狀態轉換
// 登入: 重讀遠端購物車後觸發合併，合併失敗不能擋住使用者繼續購物，只記 log
// 登出: 遠端購物車保持原樣，重新啟用本地 guest cart
func (s *CartService) handleIdentityChange(user *model.User) {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()

	if user == nil {
		s.userLines = nil
		if err := s.reloadGuestLocked(ctx); err != nil {
			s.logger.Error().Err(err).Msg("failed to reload guest cart after sign-out")
		}
		return
	}

	if err := s.refreshUserLocked(ctx, user.UserID); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("failed to load user cart after sign-in")
		return
	}
	if err := s.mergeLocked(ctx, user.UserID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.UserID).Msg("some guest items could not be moved")
	}
}

// AddItem 加入品項
// 數量非正數一律當 1（這是明確的 fallback 策略，真正的負數請求由上游 UI 擋）
// 錯誤:
//   - ErrStockQuery: 無法確認庫存，購物車不變
//   - *InsufficientStockError: 庫存不足，購物車不變
//   - ErrPersistence: 寫入失敗，記憶體狀態不變
func (s *CartService) AddItem(ctx context.Context, variantID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity < 1 {
		quantity = 1
	}

	check, err := s.stock.ValidateIncrease(ctx, variantID, quantity, s.guestLines, s.userLines)
	if err != nil {
		return err
	}
	if !check.Allowed {
		return &InsufficientStockError{
			VariantID:     variantID,
			Available:     check.Available,
			AlreadyInCart: check.Current,
		}
	}

	user, err := s.idp.Current(ctx)
	if err != nil {
		return err
	}

	if user == nil {
		// upsert: 已存在就累加，否則附加到尾端
		lines, err := s.guestRepo.Load(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if i := model.FindLine(lines, variantID); i >= 0 {
			lines[i].Quantity += quantity
		} else {
			lines = append(lines, model.CartLine{VariantID: variantID, Quantity: quantity})
		}
		if err := s.guestRepo.Save(ctx, lines); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if err := s.reloadGuestLocked(ctx); err != nil {
			return err
		}
	} else {
		if err := s.cartRepo.UpsertLine(ctx, user.UserID, variantID, quantity, true); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if err := s.refreshUserLocked(ctx, user.UserID); err != nil {
			return err
		}
	}

	go s.produceEvent(evt_model.NewCartLineAddedEvent(s.aggregateID(user), s.userID(user), variantID, quantity))
	return nil
}

// UpdateQuantity 直接設定品項數量（set 不是 increment）
// quantity <= 0 等同移除品項
// 數量增加的部分要重新驗庫存，減少不用
func (s *CartService) UpdateQuantity(ctx context.Context, variantID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, variantID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.stock.GetCurrentQuantity(variantID, s.guestLines, s.userLines)
	if delta := quantity - current; delta > 0 {
		check, err := s.stock.ValidateIncrease(ctx, variantID, delta, s.guestLines, s.userLines)
		if err != nil {
			return err
		}
		if !check.Allowed {
			return &InsufficientStockError{
				VariantID:     variantID,
				Available:     check.Available,
				AlreadyInCart: check.Current,
			}
		}
	}

	user, err := s.idp.Current(ctx)
	if err != nil {
		return err
	}

	if user == nil {
		lines, err := s.guestRepo.Load(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if i := model.FindLine(lines, variantID); i >= 0 {
			lines[i].Quantity = quantity
		} else {
			lines = append(lines, model.CartLine{VariantID: variantID, Quantity: quantity})
		}
		if err := s.guestRepo.Save(ctx, lines); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if err := s.reloadGuestLocked(ctx); err != nil {
			return err
		}
	} else {
		if err := s.cartRepo.UpsertLine(ctx, user.UserID, variantID, quantity, false); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if err := s.refreshUserLocked(ctx, user.UserID); err != nil {
			return err
		}
	}

	go s.produceEvent(evt_model.NewCartUpdatedEvent(s.aggregateID(user), s.userID(user), variantID, quantity))
	return nil
}

// RemoveItem 移除品項，品項不存在是 no-op 不是錯誤
func (s *CartService) RemoveItem(ctx context.Context, variantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.idp.Current(ctx)
	if err != nil {
		return err
	}

	if user == nil {
		lines, err := s.guestRepo.Load(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		i := model.FindLine(lines, variantID)
		if i < 0 {
			return nil
		}
		lines = append(lines[:i], lines[i+1:]...)
		if err := s.guestRepo.Save(ctx, lines); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if err := s.reloadGuestLocked(ctx); err != nil {
			return err
		}
	} else {
		if err := s.cartRepo.DeleteLine(ctx, user.UserID, variantID); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if err := s.refreshUserLocked(ctx, user.UserID); err != nil {
			return err
		}
	}

	go s.produceEvent(evt_model.NewCartUpdatedEvent(s.aggregateID(user), s.userID(user), variantID, 0))
	return nil
}

// Clear 清空目前作用中的購物車
// 已登入時本地 guest store 保持原樣，清掉買完的 user cart 不該讓下次匿名
// 瀏覽又冒出舊的 guest cart；購買完成要連 guest 一起清請走 CompletePurchase
func (s *CartService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.idp.Current(ctx)
	if err != nil {
		return err
	}

	if user == nil {
		if err := s.guestRepo.Clear(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		s.guestLines = nil
	} else {
		if err := s.cartRepo.DeleteAllLines(ctx, user.UserID); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		s.userLines = nil
	}

	go s.produceEvent(evt_model.NewCartClearedEvent(s.aggregateID(user), s.userID(user)))
	return nil
}

// CompletePurchase 付款完成後的清空
// user cart 與本地 guest store 一起清
func (s *CartService) CompletePurchase(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.idp.Current(ctx)
	if err != nil {
		return err
	}

	if user != nil {
		if err := s.cartRepo.DeleteAllLines(ctx, user.UserID); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		s.userLines = nil
	}

	if err := s.guestRepo.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.guestLines = nil

	go s.produceEvent(evt_model.NewCartClearedEvent(s.aggregateID(user), s.userID(user)))
	return nil
}

// MergeGuestIntoUser 把 guest cart 併入目前登入者的 user cart
// 登入轉換時自動觸發，重複呼叫安全：guest store 清掉之後再呼叫是 no-op
// 匿名狀態下呼叫也是 no-op
func (s *CartService) MergeGuestIntoUser(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.idp.Current(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	return s.mergeLocked(ctx, user.UserID)
}

// 合併演算法
// 每個品項獨立處理：驗庫存（user cart 既有數量 + guest 數量）、add-or-increment upsert
// 一個品項失敗不擋其他品項；成功的品項立刻從 guest store 移除，
// 失敗的留著，重試只補失敗的部分且會收斂
func (s *CartService) mergeLocked(ctx context.Context, userID string) error {
	lines, err := s.guestRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if len(lines) == 0 {
		s.guestLines = nil
		return nil
	}

	var (
		moved    []model.CartLine
		failed   []model.CartLine
		lineErrs []*MergeLineError
	)
	for _, line := range lines {
		// 搬移中的品項本身就是 delta，guest 既有數量不再算進 current
		check, err := s.stock.ValidateIncrease(ctx, line.VariantID, line.Quantity, nil, s.userLines)
		if err != nil {
			failed = append(failed, line)
			lineErrs = append(lineErrs, &MergeLineError{VariantID: line.VariantID, Err: err})
			continue
		}
		if !check.Allowed {
			failed = append(failed, line)
			lineErrs = append(lineErrs, &MergeLineError{VariantID: line.VariantID, Err: &InsufficientStockError{
				VariantID:     line.VariantID,
				Available:     check.Available,
				AlreadyInCart: check.Current,
			}})
			continue
		}

		if err := s.cartRepo.UpsertLine(ctx, userID, line.VariantID, line.Quantity, true); err != nil {
			failed = append(failed, line)
			lineErrs = append(lineErrs, &MergeLineError{VariantID: line.VariantID, Err: fmt.Errorf("%w: %v", ErrPersistence, err)})
			continue
		}
		moved = append(moved, line)
	}

	// 全部成功才移除持久化內容，否則只留失敗的品項
	if len(failed) == 0 {
		if err := s.guestRepo.Clear(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	} else {
		if err := s.guestRepo.Save(ctx, failed); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	if err := s.reloadGuestLocked(ctx); err != nil {
		return err
	}
	if err := s.refreshUserLocked(ctx, userID); err != nil {
		return err
	}

	if len(moved) > 0 {
		go s.produceEvent(evt_model.NewGuestCartMergedEvent(userID, userID, moved))
	}
	if len(lineErrs) > 0 {
		return &MergeError{LineErrors: lineErrs}
	}
	return nil
}

// Refresh 從權威來源重讀目前狀態
func (s *CartService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadGuestLocked(ctx); err != nil {
		return err
	}
	user, err := s.idp.Current(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		s.userLines = nil
		return nil
	}
	return s.refreshUserLocked(ctx, user.UserID)
}

// TotalItems 品項數量加總
// 合併完成前的窗口 guest / user 兩邊都算，避免少算
func (s *CartService) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.SumQuantity(s.guestLines) + model.SumQuantity(s.userLines)
}

// TotalPrice 以 enrichment 單價加總金額，缺 enrichment 的品項以 0 計
func (s *CartService) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.SumPrice(s.guestLines).Add(model.SumPrice(s.userLines))
}

// CurrentQuantity 該變體目前在購物車中的數量
func (s *CartService) CurrentQuantity(variantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock.GetCurrentQuantity(variantID, s.guestLines, s.userLines)
}

// Lines 目前購物車內容的快照
// 合併窗口中 user 在前 guest 在後
func (s *CartService) Lines() []model.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := model.CloneLines(s.userLines)
	return append(out, model.CloneLines(s.guestLines)...)
}

func (s *CartService) reloadGuestLocked(ctx context.Context) error {
	lines, err := s.guestRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.guestLines = s.enrichLines(ctx, lines)
	return nil
}

func (s *CartService) refreshUserLocked(ctx context.Context, userID string) error {
	lines, err := s.cartRepo.ListLines(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.userLines = s.enrichLines(ctx, lines)
	return nil
}

// 展示資料補齊
// 型錄查詢失敗只記 log，品項照樣回傳，金額加總時缺 enrichment 以 0 計
func (s *CartService) enrichLines(ctx context.Context, lines []model.CartLine) []model.CartLine {
	if len(lines) == 0 {
		return lines
	}

	details, err := s.catalog.GetVariantDetails(ctx, util.VariantIDs(lines))
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to enrich cart lines")
		return lines
	}
	for i := range lines {
		if d, ok := details[lines[i].VariantID]; ok {
			enrichment := d.Enrichment
			lines[i].Enrichment = &enrichment
		}
	}
	return lines
}

// 次要事件發布，失敗只記 log 不影響主流程
// 用 background context：呼叫端放棄等待不代表異動沒發生
func (s *CartService) produceEvent(evt evt_model.Event) {
	if err := s.producer.Produce(context.Background(), evt); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(evt.Type())).Msg("failed to produce cart event")
	}
}

func (s *CartService) aggregateID(user *model.User) string {
	if user == nil {
		return localstore.GuestCartKey
	}
	return user.UserID
}

func (s *CartService) userID(user *model.User) string {
	if user == nil {
		return ""
	}
	return user.UserID
}
