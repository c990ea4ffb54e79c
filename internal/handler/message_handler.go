package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/queueline/queueline-backend/internal/realtime"
	"github.com/queueline/queueline-backend/internal/service"
)

type MessageHandler struct {
	svc service.MessageService
	rt  *realtime.Gateway
}

func NewMessageHandler(svc service.MessageService, rt *realtime.Gateway) *MessageHandler {
	return &MessageHandler{svc: svc, rt: rt}
}

type SendMessageRequest struct {
	ReceiverID    string  `json:"receiverId"`
	Content       string  `json:"content"`
	AttachmentURL *string `json:"attachmentUrl"`
}

// Previews returns the single most recent message of every visible
// conversation.
func (h *MessageHandler) Previews(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	previews, err := h.svc.Previews(c.Request().Context(), uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": previews})
}

func (h *MessageHandler) Conversation(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	otherID := c.Param("otherId")
	if otherID == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing counterpart id"))
	}

	var before *time.Time
	if raw := c.QueryParam("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid before cursor"))
		}
		before = &t
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	msgs, hasMore, err := h.svc.Conversation(c.Request().Context(), uid, otherID, before, limit)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": msgs, "hasMore": hasMore})
}

func (h *MessageHandler) Send(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	msg, err := h.rt.SendMessage(c.Request().Context(), uid, req.ReceiverID, req.Content, req.AttachmentURL)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": msg})
}

func (h *MessageHandler) MarkRead(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	messageID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid message id"))
	}
	msg, err := h.rt.MarkMessageRead(c.Request().Context(), messageID, uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"result": msg})
}

// Hide removes the conversation from the caller's previews until a newer
// message arrives. Nothing is deleted for the counterpart.
func (h *MessageHandler) Hide(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	otherID := c.Param("otherId")
	if otherID == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "missing counterpart id"))
	}
	if err := h.rt.HideChat(c.Request().Context(), uid, otherID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
