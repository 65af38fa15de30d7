// internal/wizard/transform.go
package wizard

import (
	"fmt"
	"strings"
	"time"

	"github.com/Corphon/InfraAdvisor/internal/models"
	"github.com/google/uuid"
)

// NewFormID 生成表单 ID：form_<毫秒时间戳>_<8位随机十六进制>
func NewFormID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("form_%d_%s", now.UnixMilli(), suffix)
}

// ToAssessmentRequest 将表单字段映射为评估创建请求
func ToAssessmentRequest(formID string, formData map[string]interface{}) models.AssessmentRequest {
	companyName := stringValue(formData, "company_name")
	title := "Infrastructure assessment"
	if companyName != "" {
		title = companyName + " infrastructure assessment"
	}

	expectedUsers, _ := IntValue(formData["expected_users"])

	return models.AssessmentRequest{
		Title:        title,
		FormID:       formID,
		ContactEmail: stringValue(formData, "contact_email"),
		BusinessRequirements: models.BusinessRequirements{
			CompanyName:            companyName,
			Industry:               stringValue(formData, "industry"),
			CompanySize:            stringValue(formData, "company_size"),
			BudgetRange:            stringValue(formData, "budget_range"),
			Timeline:               stringValue(formData, "timeline"),
			ComplianceRequirements: nonNil(StringSlice(formData["compliance_requirements"])),
			BusinessGoals:          nonNil(StringSlice(formData["business_goals"])),
		},
		TechnicalRequirements: models.TechnicalRequirements{
			CurrentInfrastructure: stringValue(formData, "current_infrastructure"),
			CloudProviders:        nonNil(StringSlice(formData["cloud_providers"])),
			WorkloadTypes:         nonNil(StringSlice(formData["workload_types"])),
			ExpectedUsers:         expectedUsers,
			DataVolume:            stringValue(formData, "data_volume"),
			AvailabilityTarget:    stringValue(formData, "availability_target"),
			SecurityRequirements:  nonNil(StringSlice(formData["security_requirements"])),
			IntegrationNeeds:      nonNil(StringSlice(formData["integration_needs"])),
		},
	}
}

func stringValue(formData map[string]interface{}, key string) string {
	s, _ := formData[key].(string)
	return strings.TrimSpace(s)
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return append([]string(nil), items...)
}
