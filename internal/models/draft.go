// internal/models/draft.go
package models

import (
	"math"
	"time"
)

// Draft 评估向导的草稿快照：表单数据 + 当前步骤
type Draft struct {
	FormID       string                 `json:"form_id"`
	AssessmentID string                 `json:"assessment_id,omitempty"` // 关联服务端评估记录后才有值
	FormData     map[string]interface{} `json:"form_data"`
	CurrentStep  int                    `json:"current_step"`
	TotalSteps   int                    `json:"total_steps,omitempty"`
	SavedAt      time.Time              `json:"saved_at"`
}

// SavedFormSummary 草稿索引条目，用于列出可恢复的会话而不加载完整表单
type SavedFormSummary struct {
	FormID               string                 `json:"form_id"`
	CurrentStep          int                    `json:"current_step"`
	SavedAt              time.Time              `json:"saved_at"`
	CompletionPercentage int                    `json:"completion_percentage"`
	Metadata             map[string]interface{} `json:"metadata,omitempty"`
}

// LocalDraftRecord 本地存储中的草稿载荷，键为 form_<formID>
type LocalDraftRecord struct {
	FormData     map[string]interface{} `json:"formData"`
	CurrentStep  int                    `json:"currentStep"`
	SavedAt      time.Time              `json:"savedAt"`
	AssessmentID string                 `json:"assessmentId,omitempty"`
	TotalSteps   int                    `json:"totalSteps,omitempty"`
}

// 草稿来源
const (
	DraftSourceRemote = "remote"
	DraftSourceLocal  = "local"
)

// Summary 生成草稿的索引投影
func (d *Draft) Summary(source string) SavedFormSummary {
	metadata := map[string]interface{}{
		"source": source,
	}
	if d.AssessmentID != "" {
		metadata["assessment_id"] = d.AssessmentID
	}
	if d.TotalSteps > 0 {
		metadata["total_steps"] = d.TotalSteps
	}
	for _, key := range []string{"company_name", "industry"} {
		if value, ok := d.FormData[key].(string); ok && value != "" {
			metadata[key] = value
		}
	}

	return SavedFormSummary{
		FormID:               d.FormID,
		CurrentStep:          d.CurrentStep,
		SavedAt:              d.SavedAt,
		CompletionPercentage: d.CompletionPercentage(),
		Metadata:             metadata,
	}
}

// CompletionPercentage 完成度：已知总步数时按步骤计算，否则按已填写字段比例估算
func (d *Draft) CompletionPercentage() int {
	if d.TotalSteps > 0 {
		step := d.CurrentStep + 1
		if step > d.TotalSteps {
			step = d.TotalSteps
		}
		if step < 0 {
			step = 0
		}
		return int(math.Round(float64(step) * 100 / float64(d.TotalSteps)))
	}

	if len(d.FormData) == 0 {
		return 0
	}
	filled := 0
	for _, value := range d.FormData {
		if !IsEmptyValue(value) {
			filled++
		}
	}
	return int(math.Round(float64(filled) * 100 / float64(len(d.FormData))))
}

// ToLocalRecord 转换为本地存储格式
func (d *Draft) ToLocalRecord() LocalDraftRecord {
	return LocalDraftRecord{
		FormData:     d.FormData,
		CurrentStep:  d.CurrentStep,
		SavedAt:      d.SavedAt,
		AssessmentID: d.AssessmentID,
		TotalSteps:   d.TotalSteps,
	}
}

// DraftFromLocalRecord 由本地记录还原草稿
func DraftFromLocalRecord(formID string, record LocalDraftRecord) *Draft {
	formData := record.FormData
	if formData == nil {
		formData = map[string]interface{}{}
	}
	return &Draft{
		FormID:       formID,
		AssessmentID: record.AssessmentID,
		FormData:     formData,
		CurrentStep:  record.CurrentStep,
		TotalSteps:   record.TotalSteps,
		SavedAt:      record.SavedAt,
	}
}

// IsEmptyValue 判断表单值是否为空（nil、空字符串、空列表、false）
func IsEmptyValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case bool:
		return !v
	default:
		return false
	}
}
