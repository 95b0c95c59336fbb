package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"

	"streampay-audit-backend/config"
	_ "streampay-audit-backend/docs"
	"streampay-audit-backend/internal/audit"
	"streampay-audit-backend/internal/controller"
	"streampay-audit-backend/internal/kafka"
	"streampay-audit-backend/internal/metrics"
	"streampay-audit-backend/internal/postgres"
	"streampay-audit-backend/internal/redact"
	"streampay-audit-backend/internal/scheduler"
	"streampay-audit-backend/internal/service"
	"streampay-audit-backend/internal/spill"
)

// @title           StreamPay Audit Log API
// @version         1.0
// @description     Structured audit logging for the StreamPay payroll-streaming backend: event ingestion, redaction, batched persistence, and compliance retrieval.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @schemes   http

// @tag.name         audit
// @tag.description  Audit log ingestion, query, export, and statistics

func main() {
	var wg sync.WaitGroup

	app := fx.New(
		// Core Dependencies
		fx.Provide(
			NewConfig,
		),
		// Infrastructure Dependencies
		fx.Provide(
			NewGinEngine,
			metrics.NewPipelineMetrics,
			NewRedactor,
			NewAuditQueue,
			NewSpillManager,
			postgres.ProvideAuditStore,
			postgres.NewAuditQueryRepository,
			kafka.ProvideAuditMirror,
			kafka.NewAuditEventConsumer,
			audit.NewPersister,
			audit.NewLogger,
			service.NewAuditQueryService,
			service.NewAuditExportService,
			service.NewAuditStatsService,
			service.NewEventConsumerService,
			controller.NewAuditController,
			controller.NewStatsController,
		),
		fx.Invoke(
			RegisterAPIRoutes,
			RegisterPersister,
			RegisterStatsReporter,
			func(lc fx.Lifecycle, consumerService service.EventConsumerService) {
				startEventConsumer(lc, &wg, consumerService)
			},
		),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	log.Info().Msg("Shutting down application...")
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}

	log.Info().Msg("Waiting for background goroutines to finish...")
	wg.Wait()
	log.Info().Msg("All background processes finished. Exiting.")
}

func NewConfig() (*config.Config, error) {
	return config.NewConfig()
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// --- Factory Functions ---

func NewRedactor(cfg *config.Config) *redact.Redactor {
	return redact.NewRedactor(cfg.Audit.Redaction)
}

func NewAuditQueue(cfg *config.Config, m *metrics.PipelineMetrics) *audit.Queue {
	return audit.NewQueue(&cfg.Audit, m)
}

func NewSpillManager(cfg *config.Config) spill.Manager {
	return spill.NewManager(cfg.Audit.SpillFilePath)
}

// --- Invoker Functions ---

func RegisterAPIRoutes(
	lifecycle fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	auditController *controller.AuditController,
	statsController *controller.StatsController,
) {
	if auditController != nil {
		controller.RegisterAuditRoutes(router, auditController)
	} else {
		log.Warn().Msg("AuditController not provided, skipping audit API routes.")
	}
	if statsController != nil {
		controller.RegisterStatsRoutes(router, statsController)
	} else {
		log.Warn().Msg("StatsController not provided")
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Starting HTTP server on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server ListenAndServe error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}

// RegisterPersister ties the flush worker to the application lifecycle:
// it starts after the store is provided and stops (with its final flush)
// before the store's pool closes.
func RegisterPersister(lc fx.Lifecycle, persister *audit.Persister) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			persister.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return persister.Stop(ctx)
		},
	})
}

func RegisterStatsReporter(lc fx.Lifecycle, cfg *config.Config, queue *audit.Queue, m *metrics.PipelineMetrics) {
	scheduler.NewStatsReporter(lc, cfg, queue, m)
}

// startEventConsumer runs the Kafka ingestion bridge in a goroutine
// managed by the fx lifecycle.
func startEventConsumer(lc fx.Lifecycle, wg *sync.WaitGroup, consumerService service.EventConsumerService) {
	wg.Add(1)
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info().Msg("Starting audit event consumer goroutine")
			go consumerService.Run(ctx, wg)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info().Msg("Signaling audit event consumer goroutine to stop...")
			cancel()
			return nil
		},
	})
}
