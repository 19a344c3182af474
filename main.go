package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"chat-sync-service/internal/chat"
	"chat-sync-service/internal/config"
	"chat-sync-service/internal/db"
	"chat-sync-service/internal/handlers"
	"chat-sync-service/internal/middleware"
	"chat-sync-service/internal/observability"
	"chat-sync-service/internal/rabbitmq"
	"chat-sync-service/internal/repositories"
	"chat-sync-service/internal/telemetry"
	"chat-sync-service/internal/ws"
)

const serviceName = "chat-sync-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	shutdownTracing, err := observability.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}
	defer shutdownTracing(ctx)

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer auditPublisher.Close()
	logger.Info("audit publisher ready",
		zap.String("mode", rabbitmq.PublisherMode(auditPublisher)),
		zap.String("noop_reason", rabbitmq.PublisherNoopReason(auditPublisher)))
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, "audit.chat_sync", serviceName, cfg.Environment, logger)

	if eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		logger.Warn("event publisher disabled", zap.Error(err))
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	store := repositories.NewSQLStore(database)
	hub := ws.NewHub(logger)
	service := chat.NewService(store, hub, logger)

	chatHandler := handlers.NewChatHandler(service)
	presenceWS := ws.NewPresenceWebSocketHandler(hub, service, cfg.JWTSecret, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	authorized := router.Group("/", middleware.AuthMiddleware(cfg.JWTSecret))
	chatHandler.RegisterRoutes(authorized)

	router.GET("/ws", presenceWS.Handle)

	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.Debug)

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
