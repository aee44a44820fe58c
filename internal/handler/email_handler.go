package handler

import (
	"Uni_Connect/internal/service"

	"github.com/gin-gonic/gin"
)

type EmailHandler struct {
	svc *service.EmailService
}

type SendCodeReq struct {
	Email string `json:"email" binding:"required,email"`
}

func NewEmailHandler(svc *service.EmailService) *EmailHandler {
	return &EmailHandler{svc: svc}
}

// SendCode scope 取自路径：register 或 reset
func (h *EmailHandler) SendCode(c *gin.Context) {
	var req SendCodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}

	if err := h.svc.SendCode(c.Request.Context(), c.Param("scope"), req.Email); err != nil {
		fail(c, err)
		return
	}

	ok(c, nil)
}
