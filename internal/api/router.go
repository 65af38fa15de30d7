// internal/api/router.go
package api

import (
	"time"

	"github.com/Corphon/InfraAdvisor/internal/config"
	"github.com/Corphon/InfraAdvisor/internal/di"
	"github.com/Corphon/InfraAdvisor/internal/services"
	"github.com/Corphon/InfraAdvisor/internal/utils"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置HTTP路由，服务全部从容器获取
func SetupRouter(container *di.Container) (*gin.Engine, error) {
	cfg, err := di.Resolve[*config.AppConfig](container, di.ServiceConfig)
	if err != nil {
		return nil, err
	}
	draftService, err := di.Resolve[*services.DraftService](container, di.ServiceDrafts)
	if err != nil {
		return nil, err
	}
	assessmentService, err := di.Resolve[*services.AssessmentService](container, di.ServiceAssessments)
	if err != nil {
		return nil, err
	}
	authenticator, err := di.Resolve[*Authenticator](container, di.ServiceAuth)
	if err != nil {
		return nil, err
	}
	events, err := di.Resolve[*DraftEventHub](container, di.ServiceEvents)
	if err != nil {
		return nil, err
	}
	metrics, err := di.Resolve[*utils.APIMetrics](container, di.ServiceMetrics)
	if err != nil {
		return nil, err
	}
	limiter, err := di.Resolve[*RateLimiter](container, di.ServiceRateLimiter)
	if err != nil {
		return nil, err
	}

	handler := NewHandler(draftService, assessmentService, authenticator, events, metrics, cfg.DebugMode)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(utils.GetLogger()))
	r.Use(MetricsMiddleware(metrics))
	r.Use(corsMiddleware(cfg.AllowedOrigins))
	r.Use(authenticator.Middleware())

	// WebSocket 草稿事件
	r.GET("/ws/drafts", events.ServeDrafts)

	api := r.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/metrics", handler.GetMetrics)

		api.POST("/auth/token", handler.IssueToken)

		// ===============================
		// 评估相关路由
		// ===============================
		assessments := api.Group("/assessments")
		assessments.Use(limiter.ByUser(cfg.RateLimitPerMinute, time.Minute))
		{
			// 草稿进度
			progress := assessments.Group("/progress")
			{
				progress.POST("", handler.SaveProgress)
				progress.GET("", handler.ListSaved)
				progress.GET("/:form_id", handler.LoadProgress)
				progress.DELETE("/:form_id", handler.DeleteProgress)
			}

			assessments.POST("", handler.CreateAssessment)
			assessments.GET("", handler.ListAssessments)
			assessments.GET("/:id", handler.GetAssessment)
		}
	}

	return r, nil
}
