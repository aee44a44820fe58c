package handler

import (
	"Uni_Connect/internal/service"

	"github.com/gin-gonic/gin"
)

type FriendHandler struct {
	svc *service.FriendService
}

func NewFriendHandler(svc *service.FriendService) *FriendHandler {
	return &FriendHandler{svc: svc}
}

type FriendRequestReq struct {
	UserID uint64 `json:"user_id" binding:"required"`
}

type RespondReq struct {
	Accept *bool `json:"accept" binding:"required"`
}

func (h *FriendHandler) SendRequest(c *gin.Context) {
	var req FriendRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	fr, err := h.svc.SendRequest(c.Request.Context(), currentUser(c), req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"request": fr})
}

// Respond 只有接收方可以处理
func (h *FriendHandler) Respond(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	var req RespondReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	fr, err := h.svc.Respond(c.Request.Context(), id, currentUser(c), *req.Accept)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"request": fr})
}

func (h *FriendHandler) Incoming(c *gin.Context) {
	list, err := h.svc.ListIncoming(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": list})
}

func (h *FriendHandler) Outgoing(c *gin.Context) {
	list, err := h.svc.ListOutgoing(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": list})
}

func (h *FriendHandler) List(c *gin.Context) {
	list, err := h.svc.ListFriends(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": list})
}

func (h *FriendHandler) Remove(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	if err := h.svc.RemoveFriend(c.Request.Context(), currentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}
