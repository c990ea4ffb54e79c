package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/queueline/queueline-backend/internal/audit"
	"github.com/queueline/queueline-backend/internal/config"
	"github.com/queueline/queueline-backend/internal/handler"
	appmw "github.com/queueline/queueline-backend/internal/middleware"
	"github.com/queueline/queueline-backend/internal/realtime"
	"github.com/queueline/queueline-backend/internal/repository"
	"github.com/queueline/queueline-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	e      *echo.Echo
	hub    *realtime.Hub
	bridge *realtime.Bridge
}

// New wires the whole dependency graph explicitly: repositories over the
// injected DB handle, services over repositories, the realtime gateway over
// services, handlers over both.
func New(db *gorm.DB, rdb *redis.Client, cfg *config.Config, log *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))

	entryRepo := repository.NewQueueEntryRepository(db)
	queueRepo := repository.NewQueueRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	notificationSvc := service.NewNotificationService(notificationRepo)
	messageSvc := service.NewMessageService(messageRepo, notificationSvc, log)
	queueSvc := service.NewQueueEntryService(entryRepo, queueRepo, log)

	recorder := audit.NewRecorder(auditRepo, log)

	hub := realtime.NewHub(log)
	var bridge *realtime.Bridge
	if rdb != nil {
		bridge = realtime.NewBridge(rdb, hub, log)
		hub.SetBridge(bridge)
	}
	gateway := realtime.NewGateway(hub, messageSvc, notificationSvc, queueSvc, log)

	queueHandler := handler.NewQueueHandler(queueSvc, gateway)
	messageHandler := handler.NewMessageHandler(messageSvc, gateway)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, gateway)

	authMw := appmw.NewAuthMiddleware(cfg.JWTSecret)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
	})

	e.GET("/ws", func(c echo.Context) error {
		realtime.ServeWS(hub, gateway, recorder, c.Response(), c.Request())
		return nil
	})

	queuePayload := func(c echo.Context) any {
		return map[string]string{"queue_id": c.Param("queueId")}
	}
	counterpartPayload := func(c echo.Context) any {
		return map[string]string{"other_id": c.Param("otherId")}
	}
	idPayload := func(c echo.Context) any {
		return map[string]string{"id": c.Param("id")}
	}

	api := e.Group("/api", authMw.RequireAuth)

	api.POST("/queues/:queueId/join", queueHandler.Join,
		audit.Middleware(recorder, "queue.join", audit.ActorFromUID, queuePayload))
	api.DELETE("/queues/:queueId/leave", queueHandler.Leave,
		audit.Middleware(recorder, "queue.leave", audit.ActorFromUID, queuePayload))

	api.GET("/messages/last", messageHandler.Previews)
	api.GET("/messages/conversation/:otherId", messageHandler.Conversation)
	api.POST("/messages/send", messageHandler.Send,
		audit.Middleware(recorder, "message.send", audit.ActorFromUID, nil))
	api.PUT("/messages/:id/read", messageHandler.MarkRead,
		audit.Middleware(recorder, "message.read", audit.ActorFromUID, idPayload))
	api.POST("/messages/conversation/:otherId/delete", messageHandler.Hide,
		audit.Middleware(recorder, "message.hide", audit.ActorFromUID, counterpartPayload))

	api.GET("/notifications", notificationHandler.List)
	api.PUT("/notifications/:id/read", notificationHandler.MarkRead,
		audit.Middleware(recorder, "notification.read", audit.ActorFromUID, idPayload))
	api.POST("/notifications/source/:sourceKey/delete", notificationHandler.DeleteBySource,
		audit.Middleware(recorder, "notification.delete_source", audit.ActorFromUID, func(c echo.Context) any {
			return map[string]string{"source_key": c.Param("sourceKey")}
		}))

	return &Server{e: e, hub: hub, bridge: bridge}
}

// RunRealtime starts the hub loop and, when Redis is configured, the
// pub/sub bridge. The context bounds the bridge subscription.
func (s *Server) RunRealtime(ctx context.Context) {
	go s.hub.Run()
	if s.bridge != nil {
		go s.bridge.Run(ctx)
	}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}
