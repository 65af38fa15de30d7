// internal/services/draft_service.go
package services

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	apperrors "github.com/Corphon/InfraAdvisor/internal/errors"
	"github.com/Corphon/InfraAdvisor/internal/models"
	"github.com/Corphon/InfraAdvisor/internal/storage"
	"github.com/Corphon/InfraAdvisor/internal/utils"
)

// 草稿事件类型
const (
	EventDraftSaved        = "draft_saved"
	EventDraftDeleted      = "draft_deleted"
	EventAssessmentCreated = "assessment_created"
)

// DraftEvent 推送给同一用户其它控制台的事件
type DraftEvent struct {
	Type         string    `json:"type"`
	FormID       string    `json:"form_id,omitempty"`
	AssessmentID string    `json:"assessment_id,omitempty"`
	SavedAt      time.Time `json:"saved_at,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventPublisher 事件发布者（由 WebSocket 管理器实现）
type EventPublisher interface {
	PublishToUser(userID string, event DraftEvent)
}

// 标识符只允许字母、数字、下划线和短横线，防止路径穿越
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateID 检查用户/表单/评估标识符
func ValidateID(kind, id string) error {
	if !idPattern.MatchString(id) {
		return apperrors.NewValidationError(fmt.Sprintf("无效的%s: %q", kind, id), nil)
	}
	return nil
}

// DraftService 服务端草稿存储（远程草稿端点的实现）
type DraftService struct {
	storage   *storage.FileStorage
	locks     *LockManager
	publisher EventPublisher
	metrics   *utils.APIMetrics
	logger    *utils.Logger
	now       func() time.Time
}

// NewDraftService 创建草稿服务
func NewDraftService(fs *storage.FileStorage, locks *LockManager, publisher EventPublisher, metrics *utils.APIMetrics) *DraftService {
	return &DraftService{
		storage:   fs,
		locks:     locks,
		publisher: publisher,
		metrics:   metrics,
		logger:    utils.GetLogger(),
		now:       time.Now,
	}
}

func draftDir(userID string) string {
	return "users/" + userID + "/drafts"
}

func draftFile(formID string) string {
	return formID + ".json"
}

func lockKey(userID, formID string) string {
	return userID + ":" + formID
}

// SaveProgress 创建或更新草稿（按 form_id 覆盖，最后写入者生效）
func (s *DraftService) SaveProgress(userID string, draft models.Draft) (*models.Draft, error) {
	if err := ValidateID("用户ID", userID); err != nil {
		return nil, err
	}
	if err := ValidateID("表单ID", draft.FormID); err != nil {
		return nil, err
	}
	if draft.AssessmentID != "" {
		if err := ValidateID("评估ID", draft.AssessmentID); err != nil {
			return nil, err
		}
	}
	if draft.CurrentStep < 0 || (draft.TotalSteps > 0 && draft.CurrentStep >= draft.TotalSteps) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("current_step 超出范围: %d", draft.CurrentStep), nil)
	}
	if draft.FormData == nil {
		draft.FormData = map[string]interface{}{}
	}

	err := s.locks.ExecuteWithLock(lockKey(userID, draft.FormID), func() error {
		// 已关联的评估ID不会被未携带ID的保存覆盖
		if draft.AssessmentID == "" {
			var existing models.Draft
			if err := s.storage.LoadJSONFile(draftDir(userID), draftFile(draft.FormID), &existing); err == nil {
				draft.AssessmentID = existing.AssessmentID
			}
		}
		draft.SavedAt = s.now().UTC()
		return s.storage.SaveJSONFile(draftDir(userID), draftFile(draft.FormID), draft)
	})
	if err != nil {
		return nil, apperrors.NewProcessingError("保存草稿失败", err)
	}

	if s.metrics != nil {
		s.metrics.RecordDraftEvent(EventDraftSaved)
	}
	s.publish(userID, DraftEvent{Type: EventDraftSaved, FormID: draft.FormID,
		AssessmentID: draft.AssessmentID, SavedAt: draft.SavedAt})

	return &draft, nil
}

// LoadProgress 读取草稿
func (s *DraftService) LoadProgress(userID, formID string) (*models.Draft, error) {
	if err := ValidateID("用户ID", userID); err != nil {
		return nil, err
	}
	if err := ValidateID("表单ID", formID); err != nil {
		return nil, err
	}

	var draft models.Draft
	if err := s.storage.LoadJSONFile(draftDir(userID), draftFile(formID), &draft); err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, apperrors.NewNotFoundError("草稿不存在: "+formID, nil)
		}
		return nil, apperrors.NewProcessingError("读取草稿失败", err)
	}
	return &draft, nil
}

// DeleteProgress 删除草稿；assessmentID 非空时要求与草稿关联的评估一致
func (s *DraftService) DeleteProgress(userID, formID, assessmentID string) error {
	if err := ValidateID("用户ID", userID); err != nil {
		return err
	}
	if err := ValidateID("表单ID", formID); err != nil {
		return err
	}

	err := s.locks.ExecuteWithLock(lockKey(userID, formID), func() error {
		if assessmentID != "" {
			var existing models.Draft
			if err := s.storage.LoadJSONFile(draftDir(userID), draftFile(formID), &existing); err == nil &&
				existing.AssessmentID != "" && existing.AssessmentID != assessmentID {
				return apperrors.NewConflictError(
					fmt.Sprintf("草稿 %s 已关联评估 %s", formID, existing.AssessmentID), nil)
			}
		}
		return s.storage.DeleteFile(draftDir(userID), draftFile(formID))
	})
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return apperrors.NewNotFoundError("草稿不存在: "+formID, nil)
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.NewProcessingError("删除草稿失败", err)
	}

	if s.metrics != nil {
		s.metrics.RecordDraftEvent(EventDraftDeleted)
	}
	s.publish(userID, DraftEvent{Type: EventDraftDeleted, FormID: formID, AssessmentID: assessmentID})
	return nil
}

// ListSaved 列出用户的草稿索引，按保存时间倒序
func (s *DraftService) ListSaved(userID string) ([]models.SavedFormSummary, error) {
	if err := ValidateID("用户ID", userID); err != nil {
		return nil, err
	}

	files, err := s.storage.ListFiles(draftDir(userID), ".json")
	if err != nil {
		return nil, apperrors.NewProcessingError("列出草稿失败", err)
	}

	summaries := make([]models.SavedFormSummary, 0, len(files))
	for _, name := range files {
		var draft models.Draft
		if err := s.storage.LoadJSONFile(draftDir(userID), name, &draft); err != nil {
			s.logger.Warn("跳过无法读取的草稿", map[string]interface{}{
				"user_id": userID,
				"file":    name,
				"error":   err,
			})
			continue
		}
		if draft.FormID == "" {
			draft.FormID = strings.TrimSuffix(name, ".json")
		}
		summaries = append(summaries, draft.Summary(models.DraftSourceRemote))
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].SavedAt.After(summaries[j].SavedAt)
	})
	return summaries, nil
}

// LinkAssessment 将草稿关联到已创建的评估；草稿不存在时忽略
func (s *DraftService) LinkAssessment(userID, formID, assessmentID string) error {
	if ValidateID("表单ID", formID) != nil {
		return nil
	}
	return s.locks.ExecuteWithLock(lockKey(userID, formID), func() error {
		var draft models.Draft
		if err := s.storage.LoadJSONFile(draftDir(userID), draftFile(formID), &draft); err != nil {
			if errors.Is(err, storage.ErrFileNotFound) {
				return nil
			}
			return err
		}
		draft.AssessmentID = assessmentID
		return s.storage.SaveJSONFile(draftDir(userID), draftFile(formID), draft)
	})
}

func (s *DraftService) publish(userID string, event DraftEvent) {
	if s.publisher == nil {
		return
	}
	event.Timestamp = s.now().UTC()
	s.publisher.PublishToUser(userID, event)
}
