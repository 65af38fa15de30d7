// internal/api/handlers.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/Corphon/InfraAdvisor/internal/services"
	"github.com/Corphon/InfraAdvisor/internal/utils"
	"github.com/gin-gonic/gin"
)

// Handler 处理API请求
type Handler struct {
	DraftService      *services.DraftService
	AssessmentService *services.AssessmentService
	Auth              *Authenticator
	Events            *DraftEventHub
	Metrics           *utils.APIMetrics
	DebugMode         bool

	rh        *ResponseHelper
	logger    *utils.Logger
	startedAt time.Time
}

// NewHandler 创建API处理器
func NewHandler(
	draftService *services.DraftService,
	assessmentService *services.AssessmentService,
	authenticator *Authenticator,
	events *DraftEventHub,
	metrics *utils.APIMetrics,
	debugMode bool,
) *Handler {
	return &Handler{
		DraftService:      draftService,
		AssessmentService: assessmentService,
		Auth:              authenticator,
		Events:            events,
		Metrics:           metrics,
		DebugMode:         debugMode,
		rh:                NewResponseHelper(),
		logger:            utils.GetLogger(),
		startedAt:         time.Now(),
	}
}

// TokenRequest 令牌签发请求
type TokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// TokenResponse 令牌签发响应
type TokenResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken 签发访问令牌（仅调试模式开放）
func (h *Handler) IssueToken(c *gin.Context) {
	if !h.DebugMode {
		h.rh.Error(c, http.StatusForbidden, ErrorTokenIssueDisabled, "令牌签发仅在调试模式下可用")
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.BadRequest(c, "无效的请求参数", err.Error())
		return
	}
	if err := services.ValidateID("用户ID", strings.TrimSpace(req.UserID)); err != nil {
		h.rh.FromError(c, err)
		return
	}

	raw, token, err := h.Auth.IssueToken(strings.TrimSpace(req.UserID))
	if err != nil {
		h.rh.InternalError(c, "签发令牌失败")
		return
	}

	h.rh.Success(c, TokenResponse{
		Token:     raw,
		UserID:    token.UserID,
		ExpiresAt: time.Unix(token.ExpiresAt, 0).UTC(),
	})
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	h.rh.Success(c, gin.H{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"websocket":      h.Events.GetStatus(),
	})
}

// GetMetrics 返回进程内指标快照
func (h *Handler) GetMetrics(c *gin.Context) {
	h.rh.Success(c, h.Metrics.Collector().GetMetrics())
}
