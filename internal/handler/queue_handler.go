package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/queueline/queueline-backend/internal/realtime"
	"github.com/queueline/queueline-backend/internal/service"
)

type QueueHandler struct {
	svc service.QueueEntryService
	rt  *realtime.Gateway
}

func NewQueueHandler(svc service.QueueEntryService, rt *realtime.Gateway) *QueueHandler {
	return &QueueHandler{svc: svc, rt: rt}
}

func (h *QueueHandler) Join(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	queueID, err := strconv.ParseUint(c.Param("queueId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid queue id"))
	}
	entry, err := h.svc.Join(c.Request().Context(), queueID, uid)
	if err != nil {
		return serviceError(c, err)
	}
	h.rt.NotifyQueueEntry(entry)
	return c.JSON(http.StatusOK, map[string]any{"entry": entry})
}

func (h *QueueHandler) Leave(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	queueID, err := strconv.ParseUint(c.Param("queueId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid queue id"))
	}
	entry, err := h.svc.Leave(c.Request().Context(), queueID, uid)
	if err != nil {
		return serviceError(c, err)
	}
	h.rt.NotifyQueueEntry(entry)
	return c.JSON(http.StatusOK, map[string]any{"entry": entry})
}
