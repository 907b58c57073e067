package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	apphttp "labrand.store/app/internal/http"
	"labrand.store/app/internal/modules/catalog"
	"labrand.store/app/internal/modules/checkout"
	"labrand.store/app/internal/modules/notify"
	"labrand.store/app/internal/modules/orders"
	"labrand.store/app/internal/modules/pricing"
	"labrand.store/app/internal/modules/projection"
	"labrand.store/app/internal/modules/promo"
	"labrand.store/app/internal/shared/auth"
	"labrand.store/app/internal/shared/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outbox := notify.NewOutbox(db)
	proj := projection.NewSync(projection.NewRedisWriter(cfg.RedisAddr, "labrand"), logger, cfg.DBTimeout)
	promoValidator := promo.NewValidator(promo.NewRepo(db))
	allocator := checkout.NewAllocator(checkout.NewGormStockStore(db), logger)

	ordersSvc := orders.NewService(
		orders.NewRepo(db),
		pricing.NewCalculator(catalog.NewRepo(db)),
		promoValidator,
		allocator,
		proj,
		outbox,
		logger,
		cfg.DBTimeout,
	)

	// Background workers, stopped on SIGINT/SIGTERM.
	dispatcher := notify.NewDispatcher(outbox, notify.LogSender{Log: logger}, logger, cfg.OutboxInterval)
	go dispatcher.Run(ctx)

	reconciler := orders.NewReconciler(orders.NewRepo(db), promoValidator, logger, cfg.ReconcileAfter, cfg.ReconcileAfter/2)
	go reconciler.Run(ctx)

	r := apphttp.NewRouter(logger, apphttp.Deps{
		Auth:   auth.NewStaticTokens(os.Getenv("AUTH_TOKENS")),
		Orders: ordersSvc,
	})
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatal(err)
	}
}
