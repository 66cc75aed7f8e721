package main

// GET  /health - liveness
// GET  /products/list?q= - sellable catalog
// GET  /terminals/{terminal}/cart - terminal cart
// POST /terminals/{terminal}/cart/{add,quantity,adjust,price,remove,clear}
// POST /terminals/{terminal}/checkout/quote - live change / shortfall
// POST /terminals/{terminal}/checkout - submit the sale
// GET  /terminals/{terminal}/receipts - sales accepted for this terminal
// GET  /drawer, POST /drawer/{open,close,withdrawals}, GET /drawer/history
// GET  /sales, GET /sales/{id}
// GET  /credits, POST /credits/{id}/payments

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"licoreria-pos/config"
	"licoreria-pos/events"
	"licoreria-pos/handler"
	"licoreria-pos/latch"
	"licoreria-pos/middleware"
	"licoreria-pos/service"
	"licoreria-pos/store"
	"licoreria-pos/upstream"
)

func newLogger(format string) (*zap.Logger, error) {
	if format == "console" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg := config.Load()

	log, err := newLogger(cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	// the Sales API reads amounts as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	st, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connection failed", zap.Error(err))
	}
	defer st.Close()

	if err := store.Migrate(st.DB); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}
	log.Info("database migrations applied")

	// --- Sales API ---
	api, err := upstream.New(upstream.Options{
		BaseURL:         cfg.SalesAPIURL,
		Token:           cfg.SalesAPIToken,
		Timeout:         cfg.UpstreamTimeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerCooldown: cfg.BreakerCooldown,
		Logger:          log,
	})
	if err != nil {
		log.Fatal("sales api client", zap.Error(err))
	}

	// --- Latch ---
	var l latch.Latch = latch.NewLocal()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		l = latch.NewRedis(rdb, cfg.LatchTTL, log)
		log.Info("using redis latch", zap.String("addr", cfg.RedisAddr))
	}

	// --- Service ---
	svc := service.NewService(st, api, l, log)
	var serviceInterface service.ServiceInterface = svc

	// --- Push cues ---
	dispatcher := events.NewDispatcher(log)
	dispatcher.Register(svc.HandleEvent,
		events.SaleCreated,
		events.PurchaseCreated,
		events.CreditPaymentRecorded,
		events.DrawerWithdrawal,
		events.DrawerOpened,
		events.DrawerClosed,
	)
	if cfg.RabbitMQURL != "" {
		sub, err := events.Dial(cfg.RabbitMQURL, cfg.EventsExchange, dispatcher, log)
		if err != nil {
			log.Fatal("rabbitmq dial", zap.Error(err))
		}
		defer sub.Close()
		if err := sub.Start(ctx); err != nil {
			log.Fatal("rabbitmq subscribe", zap.Error(err))
		}
		log.Info("listening for push cues", zap.String("exchange", cfg.EventsExchange))
	}

	// --- Handlers ---
	h := handler.NewHandler(serviceInterface, log)

	// --- Router ---
	r := mux.NewRouter()
	h.RegisterRoutes(r)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.Wrap(log, r),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", zap.Error(err))
	}
}
