package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/config"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/db"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/handlers"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/lock"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/logger"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/middleware"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/notify"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/realtime"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/repository"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/storage"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store/memstore"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Debug)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStore(cfg, log)

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	var locks lock.Locker
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, falling back to in-process locks and local-only realtime", zap.Error(err))
		_ = rdb.Close()
		rdb = nil
		locks = lock.NewLocal(cfg.Policy.LockWait)
	} else {
		log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
		locks = lock.NewRedis(rdb, cfg.Policy.LockTTL, cfg.Policy.LockWait, log)
	}

	hub := realtime.NewHub(rdb, log)
	go hub.Run(ctx)

	notifiers := notify.Multi{hub}
	if cfg.AMQPURL != "" {
		pub, err := notify.NewAMQPPublisher(cfg.AMQPURL, log)
		if err != nil {
			log.Fatal("connect rabbitmq", zap.Error(err))
		}
		defer pub.Close()
		notifiers = append(notifiers, pub)
	}

	files, local := openStorage(ctx, cfg, log)

	svc := workflow.NewService(workflow.Deps{
		Store:    st,
		Files:    files,
		Locks:    locks,
		Notifier: notifiers,
		Policy:   cfg.Policy,
		Log:      log,
	})

	p := cfg.Policy
	bodyLimit := int(p.CompletionFileMaxBytes)*p.MaxCompletionFiles + int(p.QRMaxBytes) + 1<<20

	app := fiber.New(fiber.Config{
		BodyLimit:    bodyLimit,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(middleware.Metrics())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if local != nil {
		fileH := &handlers.FileHandler{Local: local, Log: log}
		app.Get("/files/:token", fileH.Serve)
	}

	rt := &handlers.RealtimeHandler{Hub: hub, JWTSecret: cfg.JWTSecret, Log: log}
	app.Get("/ws/events", rt.Upgrade, websocket.New(rt.Events))

	handlers.Register(app, svc, cfg.JWTSecret, log)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	log.Info("listening", zap.String("port", cfg.AppPort), zap.String("store", cfg.StoreDriver), zap.String("storage", cfg.StorageDriver))
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func openStore(cfg config.Config, log *zap.Logger) store.Store {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using the in-memory store, data is lost on restart")
		return memstore.New()
	case "postgres":
		gdb, err := db.Connect(cfg.DBDSN, cfg.Debug, log)
		if err != nil {
			log.Fatal("connect postgres", zap.Error(err))
		}
		if err := db.Migrate(gdb); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		return repository.NewGormStore(gdb)
	}
	log.Fatal("unknown STORE_DRIVER", zap.String("driver", cfg.StoreDriver))
	return nil
}

// openStorage returns the configured backend and, for the local driver,
// the concrete *storage.Local that serves /files/:token.
func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (storage.Storage, *storage.Local) {
	switch cfg.StorageDriver {
	case "gcs":
		g, err := storage.NewGCS(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal("gcs storage", zap.Error(err))
		}
		return g, nil
	case "local":
		l, err := storage.NewLocal(cfg.UploadDir, cfg.AppBaseURL, cfg.FileTokenKey)
		if err != nil {
			log.Fatal("local storage", zap.Error(err))
		}
		return l, l
	}
	log.Fatal("unknown STORAGE_DRIVER", zap.String("driver", cfg.StorageDriver))
	return nil, nil
}
