// internal/models/assessment.go
package models

import "time"

// AssessmentStatus 评估状态
type AssessmentStatus string

const (
	AssessmentStatusDraft     AssessmentStatus = "draft"
	AssessmentStatusSubmitted AssessmentStatus = "submitted"
	AssessmentStatusAnalyzing AssessmentStatus = "analyzing"
	AssessmentStatusCompleted AssessmentStatus = "completed"
)

// BusinessRequirements 业务需求
type BusinessRequirements struct {
	CompanyName            string   `json:"company_name" yaml:"company_name"`
	Industry               string   `json:"industry" yaml:"industry"`
	CompanySize            string   `json:"company_size" yaml:"company_size"`
	BudgetRange            string   `json:"budget_range" yaml:"budget_range"`
	Timeline               string   `json:"timeline" yaml:"timeline"`
	ComplianceRequirements []string `json:"compliance_requirements" yaml:"compliance_requirements"`
	BusinessGoals          []string `json:"business_goals" yaml:"business_goals"`
}

// TechnicalRequirements 技术需求
type TechnicalRequirements struct {
	CurrentInfrastructure string   `json:"current_infrastructure" yaml:"current_infrastructure"`
	CloudProviders        []string `json:"cloud_providers" yaml:"cloud_providers"`
	WorkloadTypes         []string `json:"workload_types" yaml:"workload_types"`
	ExpectedUsers         int      `json:"expected_users" yaml:"expected_users"`
	DataVolume            string   `json:"data_volume" yaml:"data_volume"`
	AvailabilityTarget    string   `json:"availability_target" yaml:"availability_target"`
	SecurityRequirements  []string `json:"security_requirements" yaml:"security_requirements"`
	IntegrationNeeds      []string `json:"integration_needs" yaml:"integration_needs"`
}

// AssessmentRequest 后端评估创建请求
type AssessmentRequest struct {
	Title                 string                `json:"title" binding:"required"`
	FormID                string                `json:"form_id,omitempty"`
	ContactEmail          string                `json:"contact_email,omitempty"`
	BusinessRequirements  BusinessRequirements  `json:"business_requirements"`
	TechnicalRequirements TechnicalRequirements `json:"technical_requirements"`
}

// Assessment 服务端评估记录
type Assessment struct {
	ID                    string                `json:"id"`
	UserID                string                `json:"user_id"`
	Title                 string                `json:"title"`
	FormID                string                `json:"form_id,omitempty"`
	ContactEmail          string                `json:"contact_email,omitempty"`
	Status                AssessmentStatus      `json:"status"`
	BusinessRequirements  BusinessRequirements  `json:"business_requirements"`
	TechnicalRequirements TechnicalRequirements `json:"technical_requirements"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// AssessmentCreated 创建评估的响应
type AssessmentCreated struct {
	AssessmentID string           `json:"assessment_id"`
	Status       AssessmentStatus `json:"status"`
}
