// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradebench/tradebench/internal/apperr"
)

// httpErrorHandler maps the error taxonomy to HTTP responses. Detailed
// causes stay in the server log; clients get the tagged kind's message.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	// Echo's own errors (404, 405, body limit) pass through unchanged.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, map[string]string{"error": msg})
		return
	}

	kind := apperr.KindOf(err)
	switch kind {
	case apperr.Validation, apperr.Authentication, apperr.NotFound:
		slog.Warn("request_failed",
			"kind", kind.String(),
			"path", c.Request().URL.Path,
			"error", err,
		)
	default:
		slog.Error("request_failed",
			"kind", kind.String(),
			"path", c.Request().URL.Path,
			"error", err,
		)
	}

	_ = c.JSON(kind.StatusCode(), map[string]string{"error": apperr.MessageOf(err)})
}
