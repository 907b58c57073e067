package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"labrand.store/app/internal/http/handlers"
	"labrand.store/app/internal/http/middleware"
	"labrand.store/app/internal/modules/orders"
	"labrand.store/app/internal/shared/auth"
)

type Deps struct {
	Auth   auth.Provider
	Orders *orders.Service
}

func NewRouter(log *slog.Logger, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.ErrorHandler(log),
		middleware.Recovery(log),
	)

	r.GET("/api/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	oh := handlers.NewOrdersHandler(deps.Orders)

	api := r.Group("/api", middleware.Authenticate(deps.Auth))
	{
		api.GET("/orders", oh.List)
		api.POST("/orders", oh.Create)
		api.GET("/orders/:id", oh.Detail)
		api.PUT("/orders/:id/status",
			middleware.RequireRole(auth.RoleBrandManager, auth.RoleAdmin), oh.UpdateStatus)
		api.POST("/orders/:id/cancel",
			middleware.RequireRole(auth.RoleClient), oh.Cancel)
	}

	return r
}
