package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/handler"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/middleware"
)

// RegisterPublic registers routes that do not require authentication:
// the health check for load balancers and the fare/availability query,
// which guests may browse before logging in to book.
func RegisterPublic(e *echo.Echo, health *handler.HealthHandler, fares *handler.FaresHandler) {
	e.GET("/healthz", health.Check)
	e.GET("/v1/trains/:no/fares", fares.GetFares)
}

// RegisterOrders registers the order lifecycle under /v1, protected by
// the JWT middleware.  Every handler reads the authenticated user from
// the request context; ownership of orders and passengers is enforced
// in the service and repository layers.
func RegisterOrders(e *echo.Echo, o *handler.OrderHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))

	g.POST("/orders", o.Create)
	g.POST("/orders/:id/confirm", o.Confirm)
	g.POST("/orders/:id/pay", o.Pay)
	g.DELETE("/orders/:id", o.Cancel)
	g.GET("/orders/:id", o.Get)
	g.GET("/orders", o.List)
}
