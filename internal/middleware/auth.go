package middleware

import (
	"context"
	"net/http"
	"strings"

	"Uni_Connect/internal/pkg"

	"github.com/gin-gonic/gin"
)

const ContextUserIDKey = "user_id"

// TokenChecker 校验 token 是否为该用户当前的登录态
type TokenChecker interface {
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
}

// bearer 优先取 Authorization 头；websocket 握手无法带头时使用 access_token 参数
func bearer(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if t := c.Query("access_token"); t != "" {
			return t, true
		}
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func Auth(jwt *pkg.JWTManager, tokens TokenChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing or invalid authorization", "code": "unauthenticated"})
			return
		}

		claims, err := jwt.ParseAccess(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid or expired token", "code": "unauthenticated"})
			return
		}

		// redis校验是否是当前有效的token
		origin, err := tokens.GetUserToken(c.Request.Context(), claims.UserID)
		if err != nil || origin != tokenStr {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "account has been logged in elsewhere", "code": "unauthenticated"})
			return
		}

		// 校验通过后更新过期时间
		if err := tokens.ExtendUserToken(c.Request.Context(), claims.UserID); err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"msg": "session store unavailable", "code": "store_unavailable"})
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Next()
	}
}
