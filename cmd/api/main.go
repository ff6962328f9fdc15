package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/config"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/db"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/handlers"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/mailer"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/realtime"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/account"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/catalog"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/chat"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/earnings"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/orders"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	log.SetLevel(logLevel(cfg.LogLevel))

	gdb, err := db.Connect(cfg.DBDSN, db.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		LogSQL:          cfg.LogLevel == "debug",
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warnf("redis unavailable, notifications stay in-process: %v", err)
		rdb = nil
	} else {
		log.Info("redis connected")
	}
	cancel()

	hub := realtime.NewHub()
	go hub.Run()
	notifier := realtime.NewNotifier(hub, rdb)

	store, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatal(err)
	}

	var mail mailer.Mailer = mailer.Log{}
	if cfg.SMTPAddr != "" {
		mail = &mailer.SMTP{
			Addr:     cfg.SMTPAddr,
			Host:     cfg.SMTPHost,
			From:     cfg.SMTPFrom,
			Password: cfg.SMTPPassword,
		}
	}

	accounts := account.NewService(gdb, models.CompletenessRules(cfg.Profile), store)
	ledger := earnings.NewService(gdb)
	orderSvc := orders.NewService(gdb, ledger, notifier, store)
	catalogSvc := catalog.NewService(gdb, store)
	chatSvc := chat.NewService(gdb, notifier, store)

	session := handlers.Session{
		JWTSecret:    cfg.JWTSecret,
		ExpiresMin:   cfg.JWTExpiresMin,
		CookieSecure: cfg.CookieSecure,
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    64 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	if cfg.Storage.Driver == "local" {
		app.Static(cfg.Storage.PublicBaseURL, cfg.Storage.UploadDir)
	}
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "message": "ok"})
	})

	auth := middleware.Auth(cfg.JWTSecret)
	optional := middleware.OptionalJWT(cfg.JWTSecret)

	api := app.Group("/api")

	(&handlers.AuthHandler{
		Accounts:        accounts,
		Mailer:          mail,
		Storage:         store,
		Session:         session,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}).Routes(api, auth)
	(&handlers.GoogleOAuthHandler{
		Accounts:        accounts,
		Session:         session,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}).Routes(api)
	(&handlers.SellerProfileHandler{
		Accounts: accounts,
		Orders:   orderSvc,
		Notifier: notifier,
		Session:  session,
	}).Routes(api, auth)

	handlers.NewCategoryHandler(catalogSvc).Routes(api, auth, middleware.RequireStaff(accounts))
	handlers.NewGigHandler(catalogSvc).Routes(api, auth, optional)
	handlers.NewOrderHandler(orderSvc).Routes(api, auth)
	handlers.NewSellerDashboardHandler(ledger).Routes(api, auth, middleware.RequireRoles(string(models.RoleSeller)))

	chatH := handlers.NewChatHandler(chatSvc, hub)
	chatH.Routes(api, auth)
	chatH.WebSocketRoutes(app, auth)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	log.Infof("listening on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal(err)
	}
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	if cfg.Driver == "s3" {
		return storage.NewS3(ctx, cfg.S3Bucket)
	}
	return storage.NewLocal(cfg.UploadDir, cfg.PublicBaseURL), nil
}

func logLevel(s string) log.Level {
	switch strings.ToLower(s) {
	case "trace":
		return log.LevelTrace
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	}
	return log.LevelInfo
}
