package handler

import (
	"time"

	"Uni_Connect/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	svc *service.PostService
}

type CreatePostReq struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

func NewPostHandler(svc *service.PostService) *PostHandler {
	return &PostHandler{svc: svc}
}

// CreatePost 创建帖子接口
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req CreatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}

	post, err := h.svc.Create(c.Request.Context(), currentUser(c), req.Content, req.ImageURL)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, gin.H{"post": post})
}

// Feed 游标分页：last_id + last_created_at(RFC3339Nano)，都为空时取第一页
func (h *PostHandler) Feed(c *gin.Context) {
	var cursor service.PostCursor
	lastID, valid := uintQuery(c, "last_id")
	if !valid {
		return
	}
	cursor.LastID = lastID
	if s := c.Query("last_created_at"); s != "" {
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			badRequest(c, "invalid last_created_at")
			return
		}
		cursor.LastCreatedAt = ts
	}

	list, next, err := h.svc.Feed(c.Request.Context(), cursor, intQuery(c, "size"))
	if err != nil {
		fail(c, err)
		return
	}
	body := gin.H{"list": list, "has_more": next != nil}
	if next != nil {
		body["next_last_id"] = next.LastID
		body["next_created_at"] = next.LastCreatedAt.Format(time.RFC3339Nano)
	}
	ok(c, body)
}

// ListByAuthor 某个用户的帖子，按页
func (h *PostHandler) ListByAuthor(c *gin.Context) {
	uid, valid := uintParam(c, "id")
	if !valid {
		return
	}
	page, size := intQuery(c, "page"), intQuery(c, "size")
	list, err := h.svc.ListByAuthor(c.Request.Context(), uid, page, size)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": list, "page": page, "size": size})
}

func (h *PostHandler) Get(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	post, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"post": post})
}

// DeletePost 删除帖子接口
func (h *PostHandler) DeletePost(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}
