package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-backoffice/internal/model"
	"github.com/iliyamo/hotel-backoffice/internal/normalize"
	"github.com/iliyamo/hotel-backoffice/internal/repository"
)

// entityJSON writes v through the response normalizer.
func entityJSON(c echo.Context, status int, v any) error {
	doc, err := normalize.Entity(v)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "encode response failed"})
	}
	return c.JSON(status, doc)
}

// listJSON writes items through the response normalizer as a JSON array.
func listJSON[T any](c echo.Context, items []T) error {
	docs, err := normalize.List(items)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "encode response failed"})
	}
	return c.JSON(http.StatusOK, docs)
}

// errorJSON maps domain errors onto HTTP responses.  Anything unexpected is
// logged and reported as a 500 without detail.
func errorJSON(c echo.Context, log logrus.FieldLogger, err error) error {
	var ve *model.ValidationError
	var te *model.TransitionError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error(), "field": ve.Field})
	case errors.As(err, &te):
		body := echo.Map{"error": te.Error(), "currentStatus": te.From}
		if te.To != "" {
			body["requestedStatus"] = te.To
		}
		return c.JSON(http.StatusConflict, body)
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "identifier already in use"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "request timed out"})
	}
	log.WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).WithError(err).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
