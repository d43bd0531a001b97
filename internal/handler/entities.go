package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-backoffice/internal/repository"
)

// EntityHandler serves read access to a collection without lifecycle
// rules (rooms, customers).
type EntityHandler[T repository.Entity] struct {
	Store   *repository.Store[T]
	Timeout time.Duration
	Log     logrus.FieldLogger
}

func NewEntityHandler[T repository.Entity](store *repository.Store[T], timeout time.Duration, log logrus.FieldLogger) *EntityHandler[T] {
	return &EntityHandler[T]{Store: store, Timeout: timeout, Log: log}
}

func (h *EntityHandler[T]) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	items, err := h.Store.List(ctx)
	if err != nil {
		return errorJSON(c, h.Log, err)
	}
	return listJSON(c, items)
}

func (h *EntityHandler[T]) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	e, err := h.Store.Resolve(ctx, c.Param("id"))
	if err != nil {
		return errorJSON(c, h.Log, err)
	}
	return entityJSON(c, http.StatusOK, e)
}
