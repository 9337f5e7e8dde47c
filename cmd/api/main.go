package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/medprod-fiscal/internal/application/consolidation"
	"github.com/jhoicas/medprod-fiscal/internal/infrastructure/broker"
	"github.com/jhoicas/medprod-fiscal/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/medprod-fiscal/internal/interfaces/http"
	"github.com/jhoicas/medprod-fiscal/pkg/config"
	"github.com/jhoicas/medprod-fiscal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("pro_labore_rate", cfg.Fiscal.ProLaboreRate.String()).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET requerido")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.ApplyMigrations(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	// Publicación de eventos opcional: sin AMQP_URI no se publica nada.
	var publisher consolidation.EventPublisher = consolidation.NopPublisher{}
	if cfg.AMQP.URI != "" {
		pub, err := broker.NewPublisher(cfg.AMQP.URI, cfg.AMQP.Queue)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a RabbitMQ")
		}
		defer pub.Close()
		publisher = pub
		log.Info().Str("queue", cfg.AMQP.Queue).Msg("publicando eventos de consolidación")
	}

	catalogRepo := postgres.NewCatalogRepository(pool)
	svc := consolidation.NewService(consolidation.Deps{
		Catalog:   catalogRepo,
		Earnings:  postgres.NewEarningsRepository(pool),
		Tables:    postgres.NewFiscalTableRepository(pool),
		Links:     postgres.NewExternalLinkRepository(pool),
		Results:   postgres.NewConsolidationRepository(pool),
		Locker:    postgres.NewAdvisoryLocker(pool),
		Publisher: publisher,
	}, consolidation.Config{
		ProLaboreRate: cfg.Fiscal.ProLaboreRate,
		Retry: consolidation.RetryPolicy{
			MaxRetries: cfg.Commit.MaxRetries,
			BaseDelay:  cfg.Commit.BaseDelay,
		},
	}, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "MedProd Fiscal API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Consolidation: svc,
		Catalog:       catalogRepo,
		Logger:        log,
		JWTSecret:     cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
