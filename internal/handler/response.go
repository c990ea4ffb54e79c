package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/queueline/queueline-backend/internal/service"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// serviceError maps the service taxonomy to HTTP once, for every handler.
// Anything outside the taxonomy collapses to an opaque 500. The original
// error is returned so wrapping middleware (audit) sees the failure cause;
// the response is already committed, so echo will not serialize it again.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		_ = c.JSON(http.StatusNotFound, NewErrorResponse("not_found", err.Error()))
	case errors.Is(err, service.ErrConflict):
		_ = c.JSON(http.StatusConflict, NewErrorResponse("conflict", err.Error()))
	case errors.Is(err, service.ErrForbidden):
		_ = c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", err.Error()))
	case errors.Is(err, service.ErrBadInput):
		_ = c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	default:
		_ = c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "unexpected error"))
	}
	return err
}
