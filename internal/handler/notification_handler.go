package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/queueline/queueline-backend/internal/realtime"
	"github.com/queueline/queueline-backend/internal/service"
)

type NotificationHandler struct {
	svc service.NotificationService
	rt  *realtime.Gateway
}

func NewNotificationHandler(svc service.NotificationService, rt *realtime.Gateway) *NotificationHandler {
	return &NotificationHandler{svc: svc, rt: rt}
}

func (h *NotificationHandler) List(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	list, count, err := h.svc.List(c.Request().Context(), uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"notifications": list,
		"unreadCount":   count,
	})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid notification id"))
	}
	if err := h.svc.MarkRead(c.Request().Context(), id); err != nil {
		return serviceError(c, err)
	}
	h.rt.RefreshNotifications(c.Request().Context(), uid)
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// DeleteBySource clears every notification for one source, typically when
// the user opens the originating conversation.
func (h *NotificationHandler) DeleteBySource(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	sourceKey := c.Param("sourceKey")
	if sourceKey == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing source key"))
	}
	if err := h.svc.DeleteBySource(c.Request().Context(), uid, sourceKey); err != nil {
		return serviceError(c, err)
	}
	h.rt.RefreshNotifications(c.Request().Context(), uid)
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
