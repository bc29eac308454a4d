package middleware

import (
	"context"
	"errors"
	"net/http"
	"newsreel_backend/internal/util"
	"strings"

	"github.com/gin-gonic/gin"
)

// AccessChecker 校验 access token，AuthService 实现
type AccessChecker interface {
	CheckAccess(ctx context.Context, token string) (*util.Claims, error)
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return c.Query("token")
}

// authenticate 成功时写入 "user"，失败时已写出响应并返回 false
func authenticate(c *gin.Context, checker AccessChecker, token string) bool {
	claims, err := checker.CheckAccess(c.Request.Context(), token)
	if err != nil {
		var appErr *util.AppError
		if errors.As(err, &appErr) && appErr.Kind == util.KindValidation {
			util.Error(c, http.StatusUnauthorized, appErr.Message)
			return false
		}
		util.HandleError(c, err)
		return false
	}
	c.Set("user", claims)
	return true
}

func AuthMiddleware(checker AccessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			util.Unauthorized(c)
			return
		}
		if !authenticate(c, checker, tokenString) {
			return
		}
		c.Next()
	}
}

// TryAuthMiddleware 游客放行；带了令牌就必须有效
func TryAuthMiddleware(checker AccessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString != "" && !authenticate(c, checker, tokenString) {
			return
		}
		c.Next()
	}
}
