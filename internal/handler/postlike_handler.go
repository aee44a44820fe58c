package handler

import (
	"Uni_Connect/internal/service"

	"github.com/gin-gonic/gin"
)

type PostLikeHandler struct {
	svc *service.PostLikeService
}

func NewPostLikeHandler(svc *service.PostLikeService) *PostLikeHandler {
	return &PostLikeHandler{svc: svc}
}

func (h *PostLikeHandler) Like(c *gin.Context) {
	pid, valid := uintParam(c, "id")
	if !valid {
		return
	}
	changed, err := h.svc.Like(c.Request.Context(), currentUser(c), pid)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"changed": changed})
}

func (h *PostLikeHandler) Unlike(c *gin.Context) {
	pid, valid := uintParam(c, "id")
	if !valid {
		return
	}
	changed, err := h.svc.Unlike(c.Request.Context(), currentUser(c), pid)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"changed": changed})
}

func (h *PostLikeHandler) IsLiked(c *gin.Context) {
	pid, valid := uintParam(c, "id")
	if !valid {
		return
	}
	liked, err := h.svc.IsLiked(c.Request.Context(), currentUser(c), pid)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"liked": liked})
}

func (h *PostLikeHandler) Count(c *gin.Context) {
	pid, valid := uintParam(c, "id")
	if !valid {
		return
	}
	cnt, err := h.svc.Count(c.Request.Context(), pid)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"count": cnt})
}
