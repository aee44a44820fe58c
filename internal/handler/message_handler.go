package handler

import (
	"Uni_Connect/internal/service"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	svc *service.MessageService
}

func NewMessageHandler(svc *service.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

type SendMessageReq struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

func (h *MessageHandler) SendGroup(c *gin.Context) {
	gid, valid := uintParam(c, "id")
	if !valid {
		return
	}
	var req SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	msg, err := h.svc.SendGroupMessage(c.Request.Context(), gid, currentUser(c), req.Content, req.ImageURL)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": msg})
}

// ListGroup ?after_id=&limit= 升序
func (h *MessageHandler) ListGroup(c *gin.Context) {
	gid, valid := uintParam(c, "id")
	if !valid {
		return
	}
	after, valid := uintQuery(c, "after_id")
	if !valid {
		return
	}
	list, err := h.svc.ListGroupMessages(c.Request.Context(), gid, currentUser(c), after, intQuery(c, "limit"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": list})
}

func (h *MessageHandler) DeleteGroup(c *gin.Context) {
	gid, valid := uintParam(c, "id")
	if !valid {
		return
	}
	mid, valid := uintParam(c, "mid")
	if !valid {
		return
	}
	if err := h.svc.DeleteGroupMessage(c.Request.Context(), gid, currentUser(c), mid); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *MessageHandler) SendDirect(c *gin.Context) {
	peer, valid := uintParam(c, "peer")
	if !valid {
		return
	}
	var req SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	msg, err := h.svc.SendDirectMessage(c.Request.Context(), currentUser(c), peer, req.Content, req.ImageURL)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": msg})
}

func (h *MessageHandler) ListDirect(c *gin.Context) {
	peer, valid := uintParam(c, "peer")
	if !valid {
		return
	}
	after, valid := uintQuery(c, "after_id")
	if !valid {
		return
	}
	list, err := h.svc.ListDirectMessages(c.Request.Context(), currentUser(c), peer, after, intQuery(c, "limit"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": list})
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	peer, valid := uintParam(c, "peer")
	if !valid {
		return
	}
	n, err := h.svc.MarkConversationRead(c.Request.Context(), currentUser(c), peer)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"updated": n})
}
