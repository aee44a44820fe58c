package handler

import (
	"Uni_Connect/internal/service"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	users   *service.UserService
	friends *service.FriendService
}

func NewProfileHandler(users *service.UserService, friends *service.FriendService) *ProfileHandler {
	return &ProfileHandler{users: users, friends: friends}
}

// Me 当前登录用户的完整资料
func (h *ProfileHandler) Me(c *gin.Context) {
	u, err := h.users.Me(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"user": u})
}

func (h *ProfileHandler) Get(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	p, err := h.users.Profile(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"profile": p})
}

func (h *ProfileHandler) Update(c *gin.Context) {
	var patch service.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid params")
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), currentUser(c), patch)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"user": u})
}

// Search ?q=关键字&limit=
func (h *ProfileHandler) Search(c *gin.Context) {
	list, err := h.users.Search(c.Request.Context(), currentUser(c), c.Query("q"), intQuery(c, "limit"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": list})
}

func (h *ProfileHandler) Suggestions(c *gin.Context) {
	list, err := h.friends.Suggestions(c.Request.Context(), currentUser(c), intQuery(c, "limit"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": list})
}
