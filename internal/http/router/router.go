package router

import (
	"github.com/gin-gonic/gin"

	"github.com/farmlink/farmlink-backend/internal/config"
	"github.com/farmlink/farmlink-backend/internal/http/handlers"
	"github.com/farmlink/farmlink-backend/internal/http/middleware"
	"github.com/farmlink/farmlink-backend/internal/models"
	"github.com/farmlink/farmlink-backend/internal/service"
)

// Handlers собирает все обработчики приложения для маршрутизатора.
type Handlers struct {
	Auth          *handlers.AuthHandler
	ContactReq    *handlers.ContactRequestHandler
	Admin         *handlers.AdminHandler
	Products      *handlers.ProductHandler
	Notifications *handlers.NotificationHandler
	Health        *handlers.HealthHandler
	WS            *handlers.WSHandler
}

// SetupRouter настраивает все маршруты приложения.
func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")

	// Аутентификация с усиленным лимитом на IP.
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
	}

	// Публичные маршруты: каталог и WebSocket (авторизуется токеном в query).
	api.GET("/products", h.Products.List)
	api.GET("/products/:id", middleware.UUIDValidator("id"), h.Products.Get)
	api.GET("/ws", h.WS.Serve)

	// Защищённые маршруты.
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/contact-requests", h.ContactReq.Create)
		protected.GET("/contact-requests/my", h.ContactReq.My)
		protected.GET("/contact-requests/:id", middleware.UUIDValidator("id"), h.ContactReq.Get)
		protected.POST("/contact-requests/:id/accept", middleware.UUIDValidator("id"), h.ContactReq.Accept)
		protected.POST("/contact-requests/:id/reject", middleware.UUIDValidator("id"), h.ContactReq.Reject)
		protected.POST("/contact-requests/:id/confirm", middleware.UUIDValidator("id"), h.ContactReq.ConfirmAsBuyer)
		protected.POST("/contact-requests/:id/farmer-confirm", middleware.UUIDValidator("id"), h.ContactReq.ConfirmAsFarmer)

		protected.GET("/notifications", h.Notifications.List)
		protected.GET("/notifications/unread-count", h.Notifications.UnreadCount)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notifications.MarkRead)
		protected.POST("/notifications/read-all", h.Notifications.MarkAllRead)
	}

	// Админские маршруты: разрешение споров.
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/disputes", h.Admin.ListDisputes)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), h.Admin.ResolveDispute)
	}

	return r
}
