// internal/api/progress_handlers.go
package api

import (
	"net/http"

	"github.com/Corphon/InfraAdvisor/internal/models"
	"github.com/gin-gonic/gin"
)

// SaveProgress 保存草稿 POST /api/assessments/progress
func (h *Handler) SaveProgress(c *gin.Context) {
	var draft models.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.rh.Error(c, http.StatusBadRequest, ErrorDraftInvalid, "无效的草稿数据", err.Error())
		return
	}

	saved, err := h.DraftService.SaveProgress(currentUser(c), draft)
	if err != nil {
		h.rh.FromError(c, err)
		return
	}

	h.rh.Success(c, saved, "草稿已保存")
}

// LoadProgress 读取草稿 GET /api/assessments/progress/:form_id
func (h *Handler) LoadProgress(c *gin.Context) {
	draft, err := h.DraftService.LoadProgress(currentUser(c), c.Param("form_id"))
	if err != nil {
		h.rh.FromError(c, err)
		return
	}
	h.rh.Success(c, draft)
}

// DeleteProgress 删除草稿 DELETE /api/assessments/progress/:form_id?assessment_id=
func (h *Handler) DeleteProgress(c *gin.Context) {
	formID := c.Param("form_id")
	assessmentID := c.Query("assessment_id")

	if err := h.DraftService.DeleteProgress(currentUser(c), formID, assessmentID); err != nil {
		h.rh.FromError(c, err)
		return
	}

	h.rh.Success(c, gin.H{"form_id": formID, "deleted": true}, "草稿已删除")
}

// ListSaved 列出草稿 GET /api/assessments/progress
func (h *Handler) ListSaved(c *gin.Context) {
	summaries, err := h.DraftService.ListSaved(currentUser(c))
	if err != nil {
		h.rh.FromError(c, err)
		return
	}
	h.rh.Success(c, summaries)
}
