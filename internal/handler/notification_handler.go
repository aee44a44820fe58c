package handler

import (
	"Uni_Connect/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) Inbox(c *gin.Context) {
	list, err := h.svc.FetchInbox(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": list})
}

func (h *NotificationHandler) Unread(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"unread": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), currentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"updated": n})
}

func (h *NotificationHandler) Clear(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Clear(c.Request.Context(), currentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *NotificationHandler) ClearAll(c *gin.Context) {
	n, err := h.svc.ClearAll(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"deleted": n})
}
