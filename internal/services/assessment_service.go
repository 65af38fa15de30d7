// internal/services/assessment_service.go
package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	apperrors "github.com/Corphon/InfraAdvisor/internal/errors"
	"github.com/Corphon/InfraAdvisor/internal/models"
	"github.com/Corphon/InfraAdvisor/internal/storage"
	"github.com/Corphon/InfraAdvisor/internal/utils"
	"github.com/google/uuid"
)

// AssessmentService 评估记录的创建与查询
type AssessmentService struct {
	storage   *storage.FileStorage
	drafts    *DraftService
	publisher EventPublisher
	logger    *utils.Logger
	now       func() time.Time
	newID     func() string
}

// NewAssessmentService 创建评估服务
func NewAssessmentService(fs *storage.FileStorage, drafts *DraftService, publisher EventPublisher) *AssessmentService {
	return &AssessmentService{
		storage:   fs,
		drafts:    drafts,
		publisher: publisher,
		logger:    utils.GetLogger(),
		now:       time.Now,
		newID: func() string {
			return "asmt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

func assessmentDir(userID string) string {
	return "users/" + userID + "/assessments"
}

// validateRequest 服务端的最低限度校验，与向导的逐步校验互相独立
func validateRequest(req *models.AssessmentRequest) apperrors.ValidationErrors {
	errs := apperrors.ValidationErrors{}
	if strings.TrimSpace(req.Title) == "" {
		errs.Add("title", "title is required")
	}
	if strings.TrimSpace(req.BusinessRequirements.CompanyName) == "" {
		errs.Add("business_requirements.company_name", "company name is required")
	}
	if strings.TrimSpace(req.BusinessRequirements.Industry) == "" {
		errs.Add("business_requirements.industry", "industry is required")
	}
	if len(req.TechnicalRequirements.CloudProviders) == 0 {
		errs.Add("technical_requirements.cloud_providers", "select at least one cloud provider")
	}
	if req.TechnicalRequirements.ExpectedUsers < 0 {
		errs.Add("technical_requirements.expected_users", "expected users must not be negative")
	}
	return errs
}

// CreateAssessment 创建评估记录；携带 form_id 时把草稿关联到新评估
func (s *AssessmentService) CreateAssessment(userID string, req models.AssessmentRequest) (*models.Assessment, error) {
	if err := ValidateID("用户ID", userID); err != nil {
		return nil, err
	}
	if errs := validateRequest(&req); errs.HasErrors() {
		return nil, apperrors.NewValidationError("评估请求无效", errs)
	}

	now := s.now().UTC()
	assessment := &models.Assessment{
		ID:                    s.newID(),
		UserID:                userID,
		Title:                 req.Title,
		FormID:                req.FormID,
		ContactEmail:          req.ContactEmail,
		Status:                models.AssessmentStatusSubmitted,
		BusinessRequirements:  req.BusinessRequirements,
		TechnicalRequirements: req.TechnicalRequirements,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.storage.SaveJSONFile(assessmentDir(userID), assessment.ID+".json", assessment); err != nil {
		return nil, apperrors.NewProcessingError("保存评估失败", err)
	}

	if req.FormID != "" && s.drafts != nil {
		if err := s.drafts.LinkAssessment(userID, req.FormID, assessment.ID); err != nil {
			// 关联失败不影响评估创建
			s.logger.Warn("草稿关联评估失败", map[string]interface{}{
				"form_id":       req.FormID,
				"assessment_id": assessment.ID,
				"error":         err,
			})
		}
	}

	if s.publisher != nil {
		s.publisher.PublishToUser(userID, DraftEvent{
			Type:         EventAssessmentCreated,
			FormID:       req.FormID,
			AssessmentID: assessment.ID,
			Timestamp:    now,
		})
	}

	s.logger.Info("评估已创建", map[string]interface{}{
		"user_id":       userID,
		"assessment_id": assessment.ID,
		"industry":      req.BusinessRequirements.Industry,
	})
	return assessment, nil
}

// GetAssessment 读取评估
func (s *AssessmentService) GetAssessment(userID, assessmentID string) (*models.Assessment, error) {
	if err := ValidateID("用户ID", userID); err != nil {
		return nil, err
	}
	if err := ValidateID("评估ID", assessmentID); err != nil {
		return nil, err
	}

	var assessment models.Assessment
	if err := s.storage.LoadJSONFile(assessmentDir(userID), assessmentID+".json", &assessment); err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, apperrors.NewNotFoundError("评估不存在: "+assessmentID, nil)
		}
		return nil, apperrors.NewProcessingError("读取评估失败", err)
	}
	return &assessment, nil
}

// ListAssessments 列出用户的评估，按创建时间倒序
func (s *AssessmentService) ListAssessments(userID string) ([]models.Assessment, error) {
	if err := ValidateID("用户ID", userID); err != nil {
		return nil, err
	}

	files, err := s.storage.ListFiles(assessmentDir(userID), ".json")
	if err != nil {
		return nil, apperrors.NewProcessingError("列出评估失败", err)
	}

	assessments := make([]models.Assessment, 0, len(files))
	for _, name := range files {
		var assessment models.Assessment
		if err := s.storage.LoadJSONFile(assessmentDir(userID), name, &assessment); err != nil {
			continue
		}
		assessments = append(assessments, assessment)
	}
	sort.SliceStable(assessments, func(i, j int) bool {
		return assessments[i].CreatedAt.After(assessments[j].CreatedAt)
	})
	return assessments, nil
}
