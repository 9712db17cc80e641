package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/RoyceAzure/lab/storefront/config"
	"github.com/RoyceAzure/lab/storefront/internal/infra/payment"
	"github.com/RoyceAzure/lab/storefront/internal/infra/producer"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/localstore"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_decorator"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/redis_repo"
	"github.com/RoyceAzure/lab/storefront/internal/service"
	"github.com/RoyceAzure/lab/storefront/internal/service/identity"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// 組裝層
// 購物車引擎在這裡建一份，以引用傳給使用端，不放全域
func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "storefront").Logger()

	cf, err := config.LoadConfig(".env")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cf.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.GetDbConn(cf.DbName, cf.DbHost, cf.DbPort, cf.DbUser, cf.DbPas)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	dao := db.NewDbDao(conn)
	if err := dao.InitMigrate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate schema")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cf.RedisAddr,
		Password: cf.RedisPassword,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	stockRepo := redis_repo.NewStockRepo(rdb)
	catalogRepo := redis_decorator.NewCacheAsideCatalogRepo(db.NewCatalogRepo(dao), stockRepo)
	cartItemRepo := db.NewCartItemRepo(dao)

	kv, err := localstore.NewFileStore(cf.GuestCartDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open guest cart store")
	}
	guestRepo := localstore.NewGuestCartRepo(kv, logger)

	eventProducer := producer.NewCartEventProducer(strings.Split(cf.KafkaBrokers, ","), cf.KafkaTopic)
	defer eventProducer.Close()

	idp := identity.NewManager()
	stockService := service.NewStockService(stockRepo)
	cartService := service.NewCartService(guestRepo, cartItemRepo, catalogRepo, stockService, idp, idp, eventProducer, logger)
	defer cartService.Close()

	paymentClient := payment.NewClient(cf.PaymentURL)
	_ = service.NewCheckoutService(cartService, stockService, paymentClient, eventProducer, idp, logger)

	if err := cartService.Bootstrap(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to bootstrap cart state")
	}

	logger.Info().Int("total_items", cartService.TotalItems()).Msg("storefront cart core ready")

	<-ctx.Done()
	logger.Info().Msg("shutting down")
}
