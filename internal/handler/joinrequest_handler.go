package handler

import (
	"errors"
	"net/http"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/service"

	"github.com/gin-gonic/gin"
)

type JoinRequestHandler struct {
	svc *service.JoinRequestService
}

func NewJoinRequestHandler(svc *service.JoinRequestService) *JoinRequestHandler {
	return &JoinRequestHandler{svc: svc}
}

type ResolveReq struct {
	Decision model.Decision `json:"decision" binding:"required,oneof=approve reject"`
}

func (h *JoinRequestHandler) Submit(c *gin.Context) {
	gid, valid := uintParam(c, "id")
	if !valid {
		return
	}
	req, err := h.svc.Submit(c.Request.Context(), gid, currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"request": req})
}

func (h *JoinRequestHandler) ListPending(c *gin.Context) {
	gid, valid := uintParam(c, "id")
	if !valid {
		return
	}
	list, err := h.svc.ListPending(c.Request.Context(), gid, currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": list})
}

// Status 当前用户在该群最近一次申请，没有时 request 为 null
func (h *JoinRequestHandler) Status(c *gin.Context) {
	gid, valid := uintParam(c, "id")
	if !valid {
		return
	}
	req, err := h.svc.Status(c.Request.Context(), gid, currentUser(c))
	if errors.Is(err, service.ErrNotFound) {
		ok(c, gin.H{"request": nil})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"request": req})
}

// Resolve 审批；申请人已是成员时审批仍然生效，返回 409 并带上申请
func (h *JoinRequestHandler) Resolve(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	var body ResolveReq
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid params")
		return
	}
	req, err := h.svc.Resolve(c.Request.Context(), id, currentUser(c), body.Decision)
	if errors.Is(err, service.ErrConflict) && req != nil {
		c.JSON(http.StatusConflict, gin.H{"msg": err.Error(), "code": "conflict", "request": req})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"request": req})
}
