// internal/wizard/state.go
package wizard

import (
	"sync"

	apperrors "github.com/Corphon/InfraAdvisor/internal/errors"
	"github.com/Corphon/InfraAdvisor/internal/models"
)

// State 向导状态，只通过 Reduce 产生新值
type State struct {
	FormID       string
	AssessmentID string
	FormData     map[string]interface{}
	CurrentStep  int
	TotalSteps   int
	Errors       apperrors.ValidationErrors
	Submitted    bool
}

// Action 状态变更动作
type Action interface {
	apply(s *State)
}

// SetField 设置字段值；nil 表示清除。字段被修改后其错误提示随之清除
type SetField struct {
	Field string
	Value interface{}
}

// Next 前进一步，不超过最后一步
type Next struct{}

// Back 后退一步，不低于第一步
type Back struct{}

// Restore 用草稿替换当前状态
type Restore struct {
	Draft *models.Draft
}

// LinkAssessment 关联服务端评估
type LinkAssessment struct {
	AssessmentID string
}

// MarkSubmitted 进入已提交终态
type MarkSubmitted struct {
	AssessmentID string
}

// SetErrors 替换当前步骤的错误
type SetErrors struct {
	Errors apperrors.ValidationErrors
}

func (a SetField) apply(s *State) {
	if a.Value == nil {
		delete(s.FormData, a.Field)
	} else {
		s.FormData[a.Field] = cloneValue(a.Value)
	}
	delete(s.Errors, a.Field)
}

func (Next) apply(s *State) {
	if s.CurrentStep < s.TotalSteps-1 {
		s.CurrentStep++
	}
	s.Errors = apperrors.ValidationErrors{}
}

func (Back) apply(s *State) {
	if s.CurrentStep > 0 {
		s.CurrentStep--
	}
	s.Errors = apperrors.ValidationErrors{}
}

func (a Restore) apply(s *State) {
	if a.Draft == nil {
		return
	}
	if a.Draft.FormID != "" {
		s.FormID = a.Draft.FormID
	}
	s.AssessmentID = a.Draft.AssessmentID
	s.FormData = cloneFormData(a.Draft.FormData)
	s.CurrentStep = clampStep(a.Draft.CurrentStep, s.TotalSteps)
	s.Errors = apperrors.ValidationErrors{}
	s.Submitted = false
}

func (a LinkAssessment) apply(s *State) {
	s.AssessmentID = a.AssessmentID
}

func (a MarkSubmitted) apply(s *State) {
	if a.AssessmentID != "" {
		s.AssessmentID = a.AssessmentID
	}
	s.Submitted = true
	s.Errors = apperrors.ValidationErrors{}
}

func (a SetErrors) apply(s *State) {
	s.Errors = apperrors.ValidationErrors{}
	for field, msg := range a.Errors {
		s.Errors[field] = msg
	}
}

// NewState 创建第 0 步的空状态
func NewState(formID string, totalSteps int) State {
	return State{
		FormID:     formID,
		FormData:   map[string]interface{}{},
		TotalSteps: totalSteps,
		Errors:     apperrors.ValidationErrors{},
	}
}

// Reduce 返回应用动作后的新状态，输入不被修改
func Reduce(s State, action Action) State {
	next := s.Clone()
	action.apply(&next)
	return next
}

// Clone 深拷贝
func (s State) Clone() State {
	out := s
	out.FormData = cloneFormData(s.FormData)
	out.Errors = apperrors.ValidationErrors{}
	for field, msg := range s.Errors {
		out.Errors[field] = msg
	}
	return out
}

// IsLastStep 是否处于最后一步
func (s State) IsLastStep() bool {
	return s.CurrentStep == s.TotalSteps-1
}

// Draft 转为草稿
func (s State) Draft() *models.Draft {
	return &models.Draft{
		FormID:       s.FormID,
		AssessmentID: s.AssessmentID,
		FormData:     cloneFormData(s.FormData),
		CurrentStep:  s.CurrentStep,
		TotalSteps:   s.TotalSteps,
	}
}

func clampStep(step, total int) int {
	if step >= total {
		step = total - 1
	}
	if step < 0 {
		step = 0
	}
	return step
}

func cloneFormData(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneFormData(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// Store 并发安全的状态容器，自动保存的访问器从这里读取快照
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore 创建状态容器
func NewStore(initial State) *Store {
	return &Store{state: initial.Clone()}
}

// Dispatch 应用动作并返回新状态的副本
func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, action)
	return s.state.Clone()
}

// Snapshot 当前状态的深拷贝
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *Store) FormID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FormID
}

func (s *Store) FormData() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFormData(s.state.FormData)
}

func (s *Store) CurrentStep() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentStep
}

func (s *Store) AssessmentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AssessmentID
}
