package service

import (
	"context"
	"errors"

	evt_model "github.com/RoyceAzure/lab/storefront/internal/domain/model/event"
	"github.com/RoyceAzure/lab/storefront/internal/infra/payment"
	"github.com/RoyceAzure/lab/storefront/internal/infra/producer"
	"github.com/RoyceAzure/lab/storefront/internal/pkg/util"
	"github.com/RoyceAzure/lab/storefront/internal/service/identity"
	"github.com/rs/zerolog"
)

type CheckoutServiceError error

var ErrEmptyCart CheckoutServiceError = errors.New("cart is empty")

// CheckoutService 結帳流程
// 對金流供應商只有兩個不透明呼叫：開 session、查付款狀態
// 對購物車核心唯一的義務是付款確認後呼叫 CompletePurchase
type CheckoutService struct {
	cart     *CartService
	stock    IStockService
	payment  payment.IPaymentClient
	producer producer.ICartEventProducer
	idp      identity.Provider
	logger   zerolog.Logger
}

func NewCheckoutService(
	cart *CartService,
	stock IStockService,
	paymentClient payment.IPaymentClient,
	eventProducer producer.ICartEventProducer,
	idp identity.Provider,
	logger zerolog.Logger,
) *CheckoutService {
	if cart == nil {
		panic("CheckoutService dependency cart is nil")
	}
	if !util.HasImplementation(stock) {
		panic("CheckoutService dependency stock is nil")
	}
	if !util.HasImplementation(paymentClient) {
		panic("CheckoutService dependency paymentClient is nil")
	}
	if !util.HasImplementation(eventProducer) {
		panic("CheckoutService dependency eventProducer is nil")
	}
	if !util.HasImplementation(idp) {
		panic("CheckoutService dependency idp is nil")
	}

	return &CheckoutService{
		cart:     cart,
		stock:    stock,
		payment:  paymentClient,
		producer: eventProducer,
		idp:      idp,
		logger:   logger,
	}
}

// BeginCheckout 用目前購物車內容開金流 session
// 開 session 前批次再驗一次庫存，避免帶著過期的購物車進金流
// 錯誤:
//   - ErrEmptyCart: 購物車是空的
//   - ErrStockQuery: 無法確認庫存
//   - *InsufficientStockError: 有品項超過可售數量
func (s *CheckoutService) BeginCheckout(ctx context.Context) (payment.CheckoutSession, error) {
	lines := s.cart.Lines()
	if len(lines) == 0 {
		return payment.CheckoutSession{}, ErrEmptyCart
	}

	stocks, err := s.stock.GetAvailableStockBatch(ctx, util.VariantIDs(lines))
	if err != nil {
		return payment.CheckoutSession{}, err
	}
	for _, line := range lines {
		available := stocks[line.VariantID]
		if line.Quantity > available {
			return payment.CheckoutSession{}, &InsufficientStockError{
				VariantID:     line.VariantID,
				Available:     available,
				AlreadyInCart: line.Quantity,
			}
		}
	}

	return s.payment.CreateCheckoutSession(ctx, lines)
}

// ConfirmPayment 查 session 付款狀態
// 已付款才清購物車（user cart 與本地 guest store 一起清）
// 回傳值第一位表示是否已付款；清購物車失敗時付款狀態照樣回 true
func (s *CheckoutService) ConfirmPayment(ctx context.Context, sessionID string) (bool, error) {
	paid, err := s.payment.VerifyPayment(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !paid {
		return false, nil
	}

	amount := s.cart.TotalPrice()
	user, err := s.idp.Current(ctx)
	if err != nil {
		return true, err
	}
	userID := ""
	aggregateID := sessionID
	if user != nil {
		userID = user.UserID
		aggregateID = user.UserID
	}

	if err := s.cart.CompletePurchase(ctx); err != nil {
		return true, err
	}

	evt := evt_model.NewCheckoutCompletedEvent(aggregateID, userID, sessionID, amount)
	go func() {
		if perr := s.producer.Produce(context.Background(), evt); perr != nil {
			s.logger.Warn().Err(perr).Str("session_id", sessionID).Msg("failed to produce checkout completed event")
		}
	}()
	return true, nil
}
