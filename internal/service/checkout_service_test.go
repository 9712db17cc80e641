package service

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/RoyceAzure/lab/storefront/internal/domain/model"
	evt_model "github.com/RoyceAzure/lab/storefront/internal/domain/model/event"
	"github.com/RoyceAzure/lab/storefront/internal/infra/payment"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/localstore"
	"github.com/RoyceAzure/lab/storefront/internal/service/identity"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type fakePaymentClient struct {
	session    payment.CheckoutSession
	createErr  error
	paid       bool
	verifyErr  error
	created    [][]domain.CartLine
	verifiedID string
}

func (f *fakePaymentClient) CreateCheckoutSession(ctx context.Context, lines []domain.CartLine) (payment.CheckoutSession, error) {
	if f.createErr != nil {
		return payment.CheckoutSession{}, f.createErr
	}
	f.created = append(f.created, domain.CloneLines(lines))
	return f.session, nil
}

func (f *fakePaymentClient) VerifyPayment(ctx context.Context, sessionID string) (bool, error) {
	if f.verifyErr != nil {
		return false, f.verifyErr
	}
	f.verifiedID = sessionID
	return f.paid, nil
}

var _ payment.IPaymentClient = (*fakePaymentClient)(nil)

type CheckoutServiceTestSuite struct {
	suite.Suite
	guestRepo *localstore.GuestCartRepo
	cartRepo  *fakeCartItemRepo
	stockRepo *fakeStockRepo
	idp       *identity.Manager
	producer  *recordingProducer
	payment   *fakePaymentClient
	cart      *CartService
	svc       *CheckoutService
}

func (suite *CheckoutServiceTestSuite) SetupTest() {
	suite.guestRepo = localstore.NewGuestCartRepo(localstore.NewMemStore(), zerolog.Nop())
	suite.cartRepo = newFakeCartItemRepo()
	suite.stockRepo = newFakeStockRepo()
	suite.idp = identity.NewManager()
	suite.producer = &recordingProducer{}
	suite.payment = &fakePaymentClient{
		session: payment.CheckoutSession{SessionID: "cs_test_1", RedirectURL: "https://pay.example/cs_test_1"},
	}

	stockService := NewStockService(suite.stockRepo)
	suite.cart = NewCartService(
		suite.guestRepo,
		suite.cartRepo,
		newFakeCatalogRepo(),
		stockService,
		suite.idp,
		suite.idp,
		suite.producer,
		zerolog.Nop(),
	)
	suite.svc = NewCheckoutService(suite.cart, stockService, suite.payment, suite.producer, suite.idp, zerolog.Nop())
}

func (suite *CheckoutServiceTestSuite) TearDownTest() {
	suite.cart.Close()
}

func TestCheckoutServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CheckoutServiceTestSuite))
}

// 空購物車不開 session
func (suite *CheckoutServiceTestSuite) TestBeginCheckoutEmptyCart() {
	_, err := suite.svc.BeginCheckout(context.Background())
	assert.ErrorIs(suite.T(), err, ErrEmptyCart)
	assert.Empty(suite.T(), suite.payment.created)
}

func (suite *CheckoutServiceTestSuite) TestBeginCheckoutCreatesSession() {
	ctx := context.Background()
	suite.stockRepo.setStock("sku-1", 5)
	assert.NoError(suite.T(), suite.cart.AddItem(ctx, "sku-1", 2))

	session, err := suite.svc.BeginCheckout(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "cs_test_1", session.SessionID)
	assert.Len(suite.T(), suite.payment.created, 1)
	assert.Equal(suite.T(), 2, suite.payment.created[0][0].Quantity)
}

// 開 session 前再驗一次庫存，過期的購物車不能進金流
func (suite *CheckoutServiceTestSuite) TestBeginCheckoutRevalidatesStock() {
	ctx := context.Background()
	suite.stockRepo.setStock("sku-1", 5)
	assert.NoError(suite.T(), suite.cart.AddItem(ctx, "sku-1", 3))

	// 加入購物車之後庫存被別人買走
	suite.stockRepo.setStock("sku-1", 1)

	_, err := suite.svc.BeginCheckout(ctx)
	var insufficient *InsufficientStockError
	assert.ErrorAs(suite.T(), err, &insufficient)
	assert.Equal(suite.T(), 1, insufficient.Available)
	assert.Equal(suite.T(), 3, insufficient.AlreadyInCart)
	assert.Empty(suite.T(), suite.payment.created)
}

// 庫存裡消失的變體視為 0
func (suite *CheckoutServiceTestSuite) TestBeginCheckoutMissingVariantTreatedAsZero() {
	ctx := context.Background()
	suite.stockRepo.setStock("sku-1", 5)
	assert.NoError(suite.T(), suite.cart.AddItem(ctx, "sku-1", 1))

	assert.NoError(suite.T(), suite.stockRepo.DeleteVariantStock(ctx, "sku-1"))

	_, err := suite.svc.BeginCheckout(ctx)
	var insufficient *InsufficientStockError
	assert.ErrorAs(suite.T(), err, &insufficient)
	assert.Equal(suite.T(), 0, insufficient.Available)
}

func (suite *CheckoutServiceTestSuite) TestBeginCheckoutStockQueryError() {
	ctx := context.Background()
	suite.stockRepo.setStock("sku-1", 5)
	assert.NoError(suite.T(), suite.cart.AddItem(ctx, "sku-1", 1))

	suite.stockRepo.failErr = errors.New("connection refused")
	_, err := suite.svc.BeginCheckout(ctx)
	assert.ErrorIs(suite.T(), err, ErrStockQuery)
}

// 未付款不清購物車
func (suite *CheckoutServiceTestSuite) TestConfirmPaymentUnpaid() {
	ctx := context.Background()
	suite.stockRepo.setStock("sku-1", 5)
	assert.NoError(suite.T(), suite.cart.AddItem(ctx, "sku-1", 2))

	suite.payment.paid = false
	paid, err := suite.svc.ConfirmPayment(ctx, "cs_test_1")
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), paid)
	assert.Equal(suite.T(), 2, suite.cart.TotalItems())
}

func (suite *CheckoutServiceTestSuite) TestConfirmPaymentQueryError() {
	suite.payment.verifyErr = payment.ErrSessionQueryFailed

	paid, err := suite.svc.ConfirmPayment(context.Background(), "cs_test_1")
	assert.ErrorIs(suite.T(), err, payment.ErrSessionQueryFailed)
	assert.False(suite.T(), paid)
}

// 已付款: 清 user cart 與本地 guest store，發 CheckoutCompleted 事件
func (suite *CheckoutServiceTestSuite) TestConfirmPaymentPaidClearsCart() {
	ctx := context.Background()
	suite.stockRepo.setStock("sku-1", 5)
	suite.idp.SignIn(domain.User{UserID: "user-1"})
	assert.NoError(suite.T(), suite.cart.AddItem(ctx, "sku-1", 2))

	suite.payment.paid = true
	paid, err := suite.svc.ConfirmPayment(ctx, "cs_test_1")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), paid)
	assert.Equal(suite.T(), "cs_test_1", suite.payment.verifiedID)

	assert.Equal(suite.T(), 0, suite.cart.TotalItems())
	userLines, _ := suite.cartRepo.ListLines(ctx, "user-1")
	assert.Empty(suite.T(), userLines)

	assert.Eventually(suite.T(), func() bool {
		return suite.producer.countByType(evt_model.CheckoutCompletedEventName) == 1
	}, time.Second, 10*time.Millisecond)
}

// 匿名結帳也能付款，清的是 guest store
func (suite *CheckoutServiceTestSuite) TestConfirmPaymentPaidAnonymous() {
	ctx := context.Background()
	suite.stockRepo.setStock("sku-1", 5)
	assert.NoError(suite.T(), suite.cart.AddItem(ctx, "sku-1", 1))

	suite.payment.paid = true
	paid, err := suite.svc.ConfirmPayment(ctx, "cs_test_1")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), paid)

	assert.Equal(suite.T(), 0, suite.cart.TotalItems())
	exists, _ := suite.guestRepo.Exists(ctx)
	assert.False(suite.T(), exists)
}
