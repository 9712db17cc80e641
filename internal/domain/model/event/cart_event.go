package event

import (
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/shopspring/decimal"
)

// 購物車領域事件
// aggregateID 為 userID，匿名操作則為 guest store 的識別 key
// 事件為次要輸出，發布失敗不影響購物車本身的異動結果

type CartLineAddedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

func NewCartLineAddedEvent(aggregateID, userID, variantID string, quantity int) *CartLineAddedEvent {
	return &CartLineAddedEvent{
		BaseEvent: *NewBaseEvent(aggregateID, CartLineAddedEventName),
		UserID:    userID,
		VariantID: variantID,
		Quantity:  quantity,
	}
}

func (e *CartLineAddedEvent) Type() EventType {
	return CartLineAddedEventName
}

type CartUpdatedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

func NewCartUpdatedEvent(aggregateID, userID, variantID string, quantity int) *CartUpdatedEvent {
	return &CartUpdatedEvent{
		BaseEvent: *NewBaseEvent(aggregateID, CartUpdatedEventName),
		UserID:    userID,
		VariantID: variantID,
		Quantity:  quantity,
	}
}

func (e *CartUpdatedEvent) Type() EventType {
	return CartUpdatedEventName
}

type CartClearedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
}

func NewCartClearedEvent(aggregateID, userID string) *CartClearedEvent {
	return &CartClearedEvent{
		BaseEvent: *NewBaseEvent(aggregateID, CartClearedEventName),
		UserID:    userID,
	}
}

func (e *CartClearedEvent) Type() EventType {
	return CartClearedEventName
}

type GuestCartMergedEvent struct {
	BaseEvent
	UserID string           `json:"user_id"`
	Lines  []model.CartLine `json:"lines"`
}

func NewGuestCartMergedEvent(aggregateID, userID string, lines []model.CartLine) *GuestCartMergedEvent {
	return &GuestCartMergedEvent{
		BaseEvent: *NewBaseEvent(aggregateID, GuestCartMergedEventName),
		UserID:    userID,
		Lines:     lines,
	}
}

func (e *GuestCartMergedEvent) Type() EventType {
	return GuestCartMergedEventName
}

type CheckoutCompletedEvent struct {
	BaseEvent
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func NewCheckoutCompletedEvent(aggregateID, userID, sessionID string, amount decimal.Decimal) *CheckoutCompletedEvent {
	return &CheckoutCompletedEvent{
		BaseEvent: *NewBaseEvent(aggregateID, CheckoutCompletedEventName),
		UserID:    userID,
		SessionID: sessionID,
		Amount:    amount,
	}
}

func (e *CheckoutCompletedEvent) Type() EventType {
	return CheckoutCompletedEventName
}
