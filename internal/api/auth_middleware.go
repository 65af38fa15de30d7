// internal/api/auth_middleware.go
package api

import (
	"strings"

	"github.com/Corphon/InfraAdvisor/internal/auth"
	"github.com/Corphon/InfraAdvisor/internal/utils"
	"github.com/gin-gonic/gin"
)

// GuestUserID 未携带有效令牌时使用的访客用户
const GuestUserID = "console_user"

// Authenticator 解析 Bearer 令牌并把用户写入上下文
type Authenticator struct {
	tokens *auth.TokenConfig
	logger *utils.Logger
}

// NewAuthenticator 创建认证器
func NewAuthenticator(tokens *auth.TokenConfig) *Authenticator {
	return &Authenticator{tokens: tokens, logger: utils.GetLogger()}
}

// IssueToken 为用户签发令牌
func (a *Authenticator) IssueToken(userID string) (string, *auth.Token, error) {
	return auth.GenerateToken(userID, nil, a.tokens)
}

// Middleware 缺失或无效的令牌降级为访客用户，不拒绝请求
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			setGuest(c)
			c.Next()
			return
		}

		parsedToken, err := auth.ParseToken(token, a.tokens)
		if err != nil {
			a.logger.Warn("invalid token, downgrading to guest", map[string]interface{}{
				"error": err,
				"path":  c.Request.URL.Path,
			})
			setGuest(c)
			c.Set("auth_error", err.Error())
			c.Next()
			return
		}

		c.Set("user_id", parsedToken.UserID)
		c.Set("user_authenticated", true)
		c.Next()
	}
}

func setGuest(c *gin.Context) {
	c.Set("user_id", GuestUserID)
	c.Set("user_authenticated", false)
}

// GetUserFromContext retrieves the user and whether it was authenticated
func GetUserFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", false
	}

	userIDStr, ok := userID.(string)
	if !ok || userIDStr == "" {
		return "", false
	}

	if authenticatedVal, exists := c.Get("user_authenticated"); exists {
		if authenticated, ok := authenticatedVal.(bool); ok {
			return userIDStr, authenticated
		}
	}

	return userIDStr, false
}

// currentUser 返回上下文中的用户，缺省为访客
func currentUser(c *gin.Context) string {
	if userID, _ := GetUserFromContext(c); userID != "" {
		return userID
	}
	return GuestUserID
}
