// internal/wizard/wizard.go
package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/Corphon/InfraAdvisor/internal/errors"
	"github.com/Corphon/InfraAdvisor/internal/models"
	"github.com/Corphon/InfraAdvisor/internal/utils"
)

// AssessmentSubmitter 评估创建端点
type AssessmentSubmitter interface {
	CreateAssessment(ctx context.Context, req models.AssessmentRequest) (*models.AssessmentCreated, error)
}

// Persistence 草稿持久化，由 persistence.Coordinator 实现
type Persistence interface {
	Save(ctx context.Context, formID string, formData map[string]interface{}, currentStep int, assessmentID string) bool
	Delete(ctx context.Context, formID, assessmentID string)
	Seal(formID string)
	SetupAutoSave(formID string, getFormData func() map[string]interface{}, getCurrentStep func() int, getAssessmentID func() string, interval time.Duration) func()
}

// Wizard 多步骤评估向导
type Wizard struct {
	steps     []Step
	store     *Store
	persist   Persistence
	submitter AssessmentSubmitter
	logger    *utils.Logger

	mu               sync.Mutex
	cancelAutoSave   func()
	autoSaveInterval time.Duration
}

// New 创建向导；formID 为空时自动生成
func New(formID string, persist Persistence, submitter AssessmentSubmitter) *Wizard {
	if formID == "" {
		formID = NewFormID(time.Now())
	}
	return &Wizard{
		steps:     AssessmentSteps,
		store:     NewStore(NewState(formID, len(AssessmentSteps))),
		persist:   persist,
		submitter: submitter,
		logger:    utils.GetLogger(),
	}
}

// WithLogger 替换日志器
func (w *Wizard) WithLogger(logger *utils.Logger) *Wizard {
	w.logger = logger
	return w
}

// State 当前状态快照
func (w *Wizard) State() State {
	return w.store.Snapshot()
}

// Steps 所有步骤定义
func (w *Wizard) Steps() []Step {
	return w.steps
}

// ActiveStep 当前步骤定义
func (w *Wizard) ActiveStep() Step {
	return w.steps[w.store.CurrentStep()]
}

// SetField 设置字段值
func (w *Wizard) SetField(name string, value interface{}) State {
	return w.store.Dispatch(SetField{Field: name, Value: value})
}

// Next 校验当前步骤，通过则前进一步；未通过时步骤不变并返回字段错误
func (w *Wizard) Next() apperrors.ValidationErrors {
	state := w.store.Snapshot()
	errs := w.steps[state.CurrentStep].Validate(state.FormData)
	if errs.HasErrors() {
		w.store.Dispatch(SetErrors{Errors: errs})
		return errs
	}
	w.store.Dispatch(Next{})
	return nil
}

// Back 后退一步，不做校验
func (w *Wizard) Back() State {
	return w.store.Dispatch(Back{})
}

// LinkAssessment 关联服务端评估 ID，之后的保存都会带上它
func (w *Wizard) LinkAssessment(assessmentID string) {
	w.store.Dispatch(LinkAssessment{AssessmentID: assessmentID})
}

// Restore 恢复草稿，步骤越界时被收敛到合法范围。自动保存会随新的 form_id 重新启动
func (w *Wizard) Restore(draft *models.Draft) State {
	w.mu.Lock()
	defer w.mu.Unlock()

	running := w.cancelAutoSave != nil
	if running {
		w.stopAutoSaveLocked()
	}
	state := w.store.Dispatch(Restore{Draft: draft})
	if running {
		w.startAutoSaveLocked(w.autoSaveInterval)
	}
	return state
}

// StartAutoSave 启动定时自动保存；已启动时忽略
func (w *Wizard) StartAutoSave(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelAutoSave != nil {
		return
	}
	w.startAutoSaveLocked(interval)
}

func (w *Wizard) startAutoSaveLocked(interval time.Duration) {
	w.autoSaveInterval = interval
	w.cancelAutoSave = w.persist.SetupAutoSave(
		w.store.FormID(),
		w.store.FormData,
		w.store.CurrentStep,
		w.store.AssessmentID,
		interval,
	)
}

// StopAutoSave 停止自动保存并等待进行中的保存完成
func (w *Wizard) StopAutoSave() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopAutoSaveLocked()
}

func (w *Wizard) stopAutoSaveLocked() {
	if w.cancelAutoSave != nil {
		w.cancelAutoSave()
		w.cancelAutoSave = nil
	}
}

// SaveDraft 手动保存
func (w *Wizard) SaveDraft(ctx context.Context) bool {
	state := w.store.Snapshot()
	if state.Submitted {
		return false
	}
	return w.persist.Save(ctx, state.FormID, state.FormData, state.CurrentStep, state.AssessmentID)
}

// Discard 放弃草稿：停止自动保存并删除两端的草稿
func (w *Wizard) Discard(ctx context.Context) {
	state := w.store.Snapshot()
	w.persist.Seal(state.FormID)
	w.StopAutoSave()
	w.persist.Delete(ctx, state.FormID, state.AssessmentID)

	w.logger.Info("draft discarded", map[string]interface{}{"form_id": state.FormID})
}

// Submit 在最后一步提交评估，成功后删除草稿并返回服务端评估 ID。
// 失败时状态保留，可以重试。
func (w *Wizard) Submit(ctx context.Context) (string, error) {
	state := w.store.Snapshot()
	if state.Submitted {
		return "", apperrors.NewConflictError("assessment already submitted", nil)
	}
	if !state.IsLastStep() {
		return "", apperrors.NewValidationError(
			fmt.Sprintf("submit is only allowed from the final step (current %d of %d)", state.CurrentStep+1, state.TotalSteps), nil)
	}

	if errs := w.steps[state.CurrentStep].Validate(state.FormData); errs.HasErrors() {
		w.store.Dispatch(SetErrors{Errors: errs})
		return "", errs
	}

	req := ToAssessmentRequest(state.FormID, state.FormData)
	created, err := w.submitter.CreateAssessment(ctx, req)
	if err != nil {
		w.logger.Warn("assessment submission failed", map[string]interface{}{
			"form_id": state.FormID,
			"error":   err,
		})
		return "", apperrors.NewSubmissionError("failed to submit assessment", err)
	}

	w.persist.Seal(state.FormID)
	w.StopAutoSave()
	w.persist.Delete(ctx, state.FormID, created.AssessmentID)
	w.store.Dispatch(MarkSubmitted{AssessmentID: created.AssessmentID})

	w.logger.Info("assessment submitted", map[string]interface{}{
		"form_id":       state.FormID,
		"assessment_id": created.AssessmentID,
	})
	return created.AssessmentID, nil
}
