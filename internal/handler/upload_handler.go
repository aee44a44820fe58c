package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"Uni_Connect/internal/blob"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 10 << 20

// Uploader 见 blob.Store
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error)
	PublicURL(bucket, path string) string
}

type UploadHandler struct {
	store Uploader
}

func NewUploadHandler(store Uploader) *UploadHandler {
	return &UploadHandler{store: store}
}

// Upload multipart 字段 file，返回 bucket 内路径与公开地址
func (h *UploadHandler) Upload(c *gin.Context) {
	bucket := c.Param("bucket")
	if !blob.ValidBucket(bucket) {
		badRequest(c, "unknown bucket")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "missing file")
		return
	}
	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"msg": "file too large", "code": "too_large"})
		return
	}
	ct, err := blob.ContentType(fh.Filename)
	if errors.Is(err, blob.ErrBadExtension) {
		badRequest(c, err.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "unreadable file")
		return
	}
	defer f.Close()

	p, err := h.store.Upload(c.Request.Context(), bucket, blob.NewKey(currentUser(c), fh.Filename), f, ct)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"msg": "upload failed", "code": "upload_failed"})
		return
	}
	ok(c, gin.H{"path": p, "url": h.store.PublicURL(bucket, p)})
}
