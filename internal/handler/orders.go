package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-backoffice/internal/middleware"
	"github.com/iliyamo/hotel-backoffice/internal/model"
	"github.com/iliyamo/hotel-backoffice/internal/repository"
	"github.com/iliyamo/hotel-backoffice/internal/service"
)

// OrderHandler exposes the guest order lifecycle.
type OrderHandler struct {
	Orders  *service.OrderService
	Timeout time.Duration
	Log     logrus.FieldLogger
}

func NewOrderHandler(orders *service.OrderService, timeout time.Duration, log logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{Orders: orders, Timeout: timeout, Log: log}
}

func (h *OrderHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// Create handles POST /v1/guest/orders.
func (h *OrderHandler) Create(c echo.Context) error {
	var in service.CreateOrderInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	o, err := h.Orders.Create(ctx, in)
	if err != nil {
		return errorJSON(c, h.Log, err)
	}
	return entityJSON(c, http.StatusCreated, o)
}

// GuestGet handles GET /v1/guest/orders/:id?roomNumber=.  A guest only
// sees an order placed for the room they name; any mismatch reads as not
// found so identifiers cannot be enumerated.
func (h *OrderHandler) GuestGet(c echo.Context) error {
	room := strings.TrimSpace(c.QueryParam("roomNumber"))
	if room == "" {
		return errorJSON(c, h.Log, &model.ValidationError{Field: "roomNumber", Reason: "is required"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	o, err := h.Orders.Get(ctx, c.Param("id"))
	if err != nil {
		return errorJSON(c, h.Log, err)
	}
	if !strings.EqualFold(o.RoomNumber, room) {
		return errorJSON(c, h.Log, repository.ErrNotFound)
	}
	return entityJSON(c, http.StatusOK, o)
}

// Get handles GET /v1/orders/:id.
func (h *OrderHandler) Get(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	o, err := h.Orders.Get(ctx, c.Param("id"))
	if err != nil {
		return errorJSON(c, h.Log, err)
	}
	return entityJSON(c, http.StatusOK, o)
}

// List handles GET /v1/orders?status=.
func (h *OrderHandler) List(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	orders, err := h.Orders.List(ctx, c.QueryParam("status"))
	if err != nil {
		return errorJSON(c, h.Log, err)
	}
	return listJSON(c, orders)
}

// Queue handles GET /v1/departments/:department/orders?status=.
func (h *OrderHandler) Queue(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	orders, err := h.Orders.Queue(ctx, c.Param("department"), c.QueryParam("status"))
	if err != nil {
		return errorJSON(c, h.Log, err)
	}
	return listJSON(c, orders)
}

// Update handles PATCH /v1/orders/:id.
func (h *OrderHandler) Update(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	patch, err := service.DecodeOrderPatch(body)
	if err != nil {
		return errorJSON(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	o, err := h.Orders.Update(ctx, c.Param("id"), patch, middleware.ActorID(c))
	if err != nil {
		return errorJSON(c, h.Log, err)
	}
	return entityJSON(c, http.StatusOK, o)
}

// Advance handles POST /v1/orders/:id/advance.
func (h *OrderHandler) Advance(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	o, err := h.Orders.Advance(ctx, c.Param("id"), middleware.ActorID(c))
	if err != nil {
		return errorJSON(c, h.Log, err)
	}
	return entityJSON(c, http.StatusOK, o)
}

// Cancel handles POST /v1/orders/:id/cancel.
func (h *OrderHandler) Cancel(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	o, err := h.Orders.Cancel(ctx, c.Param("id"))
	if err != nil {
		return errorJSON(c, h.Log, err)
	}
	return entityJSON(c, http.StatusOK, o)
}

type assignReq struct {
	AssignedTo json.RawMessage `json:"assignedTo"`
}

// Assign handles POST /v1/orders/:id/assign with {"assignedTo": <staff id>}.
func (h *OrderHandler) Assign(c echo.Context) error {
	var req assignReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	staffRef, err := service.DecodeRef(req.AssignedTo)
	if err != nil || staffRef == "" {
		return errorJSON(c, h.Log, &model.ValidationError{Field: "assignedTo", Reason: "is required"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	o, err := h.Orders.Assign(ctx, c.Param("id"), staffRef)
	if err != nil {
		return errorJSON(c, h.Log, err)
	}
	return entityJSON(c, http.StatusOK, o)
}
