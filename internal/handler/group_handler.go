package handler

import (
	"Uni_Connect/internal/service"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	svc *service.GroupService
}

func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

type CreateGroupReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

type UserIDsReq struct {
	UserIDs []uint64 `json:"user_ids"`
}

type TransferReq struct {
	UserID uint64 `json:"user_id" binding:"required"`
}

func (h *GroupHandler) Create(c *gin.Context) {
	var req CreateGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	g, err := h.svc.Create(c.Request.Context(), currentUser(c), req.Name, req.Description, req.ImageURL)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"group": g})
}

// List 全部群组，按页
func (h *GroupHandler) List(c *gin.Context) {
	page, size := intQuery(c, "page"), intQuery(c, "size")
	list, err := h.svc.List(c.Request.Context(), page, size)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": list, "page": page, "size": size})
}

func (h *GroupHandler) Mine(c *gin.Context) {
	list, err := h.svc.ListForUser(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": list})
}

func (h *GroupHandler) Get(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	ctx := c.Request.Context()
	g, err := h.svc.Get(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	cnt, err := h.svc.MemberCount(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"group": g, "member_count": cnt})
}

func (h *GroupHandler) Update(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	var patch service.GroupPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid params")
		return
	}
	g, err := h.svc.Update(c.Request.Context(), id, currentUser(c), patch)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"group": g})
}

func (h *GroupHandler) Delete(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, currentUser(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *GroupHandler) Members(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	list, err := h.svc.ListMembers(c.Request.Context(), id, currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": list})
}

func (h *GroupHandler) AddMembers(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	var req UserIDsReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.UserIDs) == 0 {
		badRequest(c, "invalid params")
		return
	}
	added, err := h.svc.AddMembers(c.Request.Context(), id, currentUser(c), req.UserIDs)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"added": added})
}

func (h *GroupHandler) RemoveMember(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	uid, valid := uintParam(c, "uid")
	if !valid {
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), id, currentUser(c), uid); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *GroupHandler) Leave(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Leave(c.Request.Context(), id, currentUser(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *GroupHandler) Transfer(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	var req TransferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	if err := h.svc.TransferAdmin(c.Request.Context(), id, currentUser(c), req.UserID); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// SecondaryAdmins 整体替换副管理员列表，空列表表示全部撤销
func (h *GroupHandler) SecondaryAdmins(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	var req UserIDsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	if err := h.svc.AssignSecondaryAdmins(c.Request.Context(), id, currentUser(c), req.UserIDs); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *GroupHandler) Membership(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	st, err := h.svc.CheckMembership(c.Request.Context(), id, currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"membership": st})
}
