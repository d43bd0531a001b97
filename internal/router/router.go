// Package router registers the HTTP routes of the back office.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/hotel-backoffice/internal/handler"
	"github.com/iliyamo/hotel-backoffice/internal/middleware"
	"github.com/iliyamo/hotel-backoffice/internal/model"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Orders    *handler.OrderHandler
	Rooms     *handler.EntityHandler[*model.Room]
	Customers *handler.EntityHandler[*model.Customer]

	JWTSecret string
	// GuestLimit guards unauthenticated order creation.
	GuestLimit echo.MiddlewareFunc
}

// RegisterRoutes maps every endpoint onto e.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/v1/auth/login", h.Auth.Login)

	guest := e.Group("/v1/guest")
	if h.GuestLimit != nil {
		guest.POST("/orders", h.Orders.Create, h.GuestLimit)
	} else {
		guest.POST("/orders", h.Orders.Create)
	}
	guest.GET("/orders/:id", h.Orders.GuestGet)

	staff := e.Group("/v1")
	staff.Use(middleware.JWTAuth(h.JWTSecret))
	staff.Use(middleware.RequireRole(model.RoleManager, model.RoleStaff))

	staff.GET("/me", h.Auth.Me)

	staff.GET("/orders", h.Orders.List)
	staff.GET("/orders/:id", h.Orders.Get)
	staff.PATCH("/orders/:id", h.Orders.Update)
	staff.POST("/orders/:id/advance", h.Orders.Advance)
	staff.POST("/orders/:id/cancel", h.Orders.Cancel)
	staff.POST("/orders/:id/assign", h.Orders.Assign)

	staff.GET("/departments/:department/orders", h.Orders.Queue)

	staff.GET("/rooms", h.Rooms.List)
	staff.GET("/rooms/:id", h.Rooms.Get)
	staff.GET("/customers", h.Customers.List)
	staff.GET("/customers/:id", h.Customers.Get)
}
