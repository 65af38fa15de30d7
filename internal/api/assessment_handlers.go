// internal/api/assessment_handlers.go
package api

import (
	"net/http"

	"github.com/Corphon/InfraAdvisor/internal/models"
	"github.com/gin-gonic/gin"
)

// CreateAssessment 创建评估 POST /api/assessments
func (h *Handler) CreateAssessment(c *gin.Context) {
	var req models.AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rh.Error(c, http.StatusBadRequest, ErrorAssessmentInvalid, "无效的评估请求", err.Error())
		return
	}

	assessment, err := h.AssessmentService.CreateAssessment(currentUser(c), req)
	if err != nil {
		h.rh.FromError(c, err)
		return
	}

	h.rh.Created(c, models.AssessmentCreated{
		AssessmentID: assessment.ID,
		Status:       assessment.Status,
	}, "评估已创建")
}

// GetAssessment 读取评估 GET /api/assessments/:id
func (h *Handler) GetAssessment(c *gin.Context) {
	assessment, err := h.AssessmentService.GetAssessment(currentUser(c), c.Param("id"))
	if err != nil {
		h.rh.FromError(c, err)
		return
	}
	h.rh.Success(c, assessment)
}

// ListAssessments 列出评估 GET /api/assessments
func (h *Handler) ListAssessments(c *gin.Context) {
	assessments, err := h.AssessmentService.ListAssessments(currentUser(c))
	if err != nil {
		h.rh.FromError(c, err)
		return
	}
	h.rh.Success(c, assessments)
}
