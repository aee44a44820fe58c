package handler

import (
	"errors"
	"net/http"
	"strconv"

	"Uni_Connect/internal/middleware"
	"Uni_Connect/internal/service"

	"github.com/gin-gonic/gin"
)

type errMapping struct {
	err    error
	status int
	code   string
}

var errTable = []errMapping{
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{service.ErrAlreadyMember, http.StatusConflict, "already_member"},
	{service.ErrDuplicateRequest, http.StatusConflict, "duplicate_request"},
	{service.ErrConflict, http.StatusConflict, "conflict"},
	{service.ErrLimitExceeded, http.StatusUnprocessableEntity, "limit_exceeded"},
	{service.ErrValidation, http.StatusBadRequest, "validation"},
	{service.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
}

// statusOf 将服务层错误映射为 HTTP 状态码与错误码
func statusOf(err error) (int, string) {
	for _, m := range errTable {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// fail 写入错误响应；5xx 挂到 c.Errors 由日志中间件记录，不把内部信息返回给客户端
func fail(c *gin.Context, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"msg": http.StatusText(status), "code": code})
		return
	}
	c.JSON(status, gin.H{"msg": err.Error(), "code": code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"msg": msg, "code": "invalid_params"})
}

func ok(c *gin.Context, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["msg"] = "ok"
	c.JSON(http.StatusOK, body)
}

func currentUser(c *gin.Context) uint64 {
	return c.GetUint64(middleware.ContextUserIDKey)
}

// uintParam 解析路径参数，失败时已写入 400
func uintParam(c *gin.Context, name string) (uint64, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func uintQuery(c *gin.Context, name string) (uint64, bool) {
	s := c.Query(name)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func intQuery(c *gin.Context, name string) int {
	v, _ := strconv.Atoi(c.Query(name))
	return v
}
