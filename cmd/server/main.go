package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"storefront/internal/config"
	httpctl "storefront/internal/controllers/http"
	"storefront/internal/infra/cache"
	mmysql "storefront/internal/infra/mysql"
	"storefront/internal/infra/rabbitmq"
	"storefront/internal/infra/storage"
	"storefront/internal/logger"
	mysqlrepo "storefront/internal/repository/mysql"
	"storefront/internal/services"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	db, err := mmysql.NewMySQL(cfg.MySQL)
	if err != nil {
		lg.Fatal("db: connect", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		lg.Fatal("db: handle", zap.Error(err))
	}

	images, closeImages := openImageStore(cfg, lg)

	var publisher rabbitmq.PublisherInterface = rabbitmq.NopPublisher{}
	var amqpPublisher *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		amqpPublisher, err = rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			lg.Fatal("failed to init publisher", zap.Error(err))
		}
		publisher = amqpPublisher
	} else {
		lg.Info("RABBITMQ_URL not set, events are not published")
	}

	orderService := services.NewOrderService(mysqlrepo.NewOrderRepository(db, lg), publisher, lg)
	productService := services.NewProductService(mysqlrepo.NewProductRepository(db), images, publisher, lg)

	var productCache *cache.Cache
	if cfg.RedisAddr != "" {
		productCache = cache.New(cache.NewClient(cfg.RedisAddr), "storefront:", cfg.CacheTTL)
		orderService.SetCache(productCache)
		productService.SetCache(productCache)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := productService.WarmupCache(ctx); err != nil {
				lg.Warn("failed to warm up cache", zap.Error(err))
				return
			}
			lg.Info("cache warmed up")
		}()
	}

	handler := httpctl.NewHandler(orderService, productService, images, lg, cfg.MaxUploadSize)
	handler.AddHealthCheck("mysql", sqlDB.PingContext)
	if productCache != nil {
		handler.AddHealthCheck("redis", productCache.Ping)
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpctl.RequestLogger(lg))
	r.MaxMultipartMemory = cfg.MaxUploadSize
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("starting storefront", zap.String("port", cfg.Port), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server run", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			// Order matters: requests, then queued events, then backends.
			"storefront": func(ctx context.Context) error {
				err := srv.Shutdown(ctx)
				orderService.Drain()
				productService.Drain()
				if amqpPublisher != nil {
					err = errors.Join(err, amqpPublisher.Close())
				}
				if productCache != nil {
					lg.Info("product cache stats", zap.Any("stats", productCache.Stats()))
					err = errors.Join(err, productCache.Close())
				}
				return errors.Join(err, closeImages(), sqlDB.Close())
			},
		},
	)

	exitCode := <-wait
	lg.Info("storefront exited", zap.Int("code", exitCode))
	os.Exit(exitCode)
}

func openImageStore(cfg config.Server, lg *zap.Logger) (storage.ImageStore, func() error) {
	switch cfg.StorageBackend {
	case config.StorageObjectStore:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := storage.NewObjectStore(ctx, cfg.NatsURL, cfg.NatsBucket)
		if err != nil {
			lg.Fatal("image store: nats", zap.Error(err))
		}
		return store, store.Close
	default:
		store, err := storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			lg.Fatal("image store: local", zap.Error(err))
		}
		return store, func() error { return nil }
	}
}
