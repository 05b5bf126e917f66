package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/config"
	"messaging-service/internal/db"
	"messaging-service/internal/directory"
	"messaging-service/internal/handlers"
	"messaging-service/internal/inbox"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

const serviceName = "messaging-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracing(context.Background(), cfg.OTLPEndpoint, serviceName, cfg.Environment)
		if err != nil {
			log.Fatalf("failed to init tracing: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Printf("tracer shutdown: %v", err)
			}
		}()
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	userDirectory := directory.NewClient(cfg.UserDirectoryURL)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.Environment)
	events := telemetry.NewEventEmitter(publisher, serviceName)

	directMessageRepo := repositories.NewDirectMessageRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	groupMessageRepo := repositories.NewGroupMessageRepo(database)

	aggregator := inbox.NewAggregator(userDirectory, directMessageRepo, groupRepo, groupMessageRepo)

	messageHandler := handlers.NewMessageHandler(directMessageRepo, userDirectory, events, audit)
	groupHandler := handlers.NewGroupHandler(groupRepo, groupMessageRepo, userDirectory, events, audit)
	inboxHandler := handlers.NewInboxHandler(aggregator)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(userDirectory)

	router.GET("/dm/:peer_id/messages", authMiddleware, messageHandler.GetConversation)
	router.POST("/dm/:peer_id/messages", authMiddleware, messageHandler.SendMessage)

	router.POST("/groups", authMiddleware, groupHandler.CreateGroup)
	router.GET("/groups", authMiddleware, groupHandler.ListGroups)
	router.GET("/groups/:group_id/members", authMiddleware, groupHandler.GetMembers)
	router.POST("/groups/:group_id/members", authMiddleware, groupHandler.AddMember)
	router.DELETE("/groups/:group_id/members/:user_id", authMiddleware, groupHandler.RemoveMember)
	router.POST("/groups/:group_id/leave", authMiddleware, groupHandler.LeaveGroup)
	router.GET("/groups/:group_id/messages", authMiddleware, groupHandler.GetGroupMessages)
	router.GET("/groups/:group_id/unread-count", authMiddleware, groupHandler.GetGroupUnreadCount)
	router.POST("/groups/:group_id/messages", authMiddleware, groupHandler.PostGroupMessage)

	router.GET("/inbox", authMiddleware, inboxHandler.GetInbox)
	router.GET("/messages/unread-count", authMiddleware, inboxHandler.GetUnreadBadge)

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
