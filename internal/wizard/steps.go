// internal/wizard/steps.go
package wizard

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Corphon/InfraAdvisor/internal/errors"
)

// FieldKind 字段类型，决定校验方式与控制台的输入方式
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldChoice
	FieldMultiChoice
	FieldNumber
	FieldBool
)

// Field 表单字段定义
type Field struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
	Options  []string
	MinLen   int
	MaxLen   int
	Pattern  *regexp.Regexp
	Hint     string
}

// Step 向导的一步
type Step struct {
	ID     string
	Title  string
	Fields []Field
}

var (
	availabilityPattern = regexp.MustCompile(`^\d{2}(\.\d{1,3})?%$`)
	emailPattern        = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// 选项取值
var (
	Industries          = []string{"technology", "finance", "healthcare", "retail", "manufacturing", "education", "government", "other"}
	CompanySizes        = []string{"startup", "small", "medium", "large", "enterprise"}
	BudgetRanges        = []string{"under_10k", "10k_50k", "50k_200k", "200k_1m", "over_1m"}
	Timelines           = []string{"immediate", "3_months", "6_months", "12_months"}
	BusinessGoals       = []string{"cost_reduction", "scalability", "performance", "security", "compliance", "innovation", "disaster_recovery"}
	ComplianceStandards = []string{"gdpr", "hipaa", "pci_dss", "soc2", "iso27001"}
	Infrastructures     = []string{"on_premise", "cloud", "hybrid", "none"}
	CloudProviders      = []string{"aws", "azure", "gcp", "alibaba", "ibm", "oracle", "on_premise"}
	WorkloadTypes       = []string{"web_applications", "databases", "analytics", "machine_learning", "batch_processing", "microservices", "storage"}
	DataVolumes         = []string{"under_1tb", "1tb_10tb", "10tb_100tb", "over_100tb"}
	SecurityControls    = []string{"encryption", "mfa", "network_isolation", "audit_logging", "dlp"}
	Integrations        = []string{"erp", "crm", "identity", "monitoring", "ci_cd"}
)

// AssessmentSteps 基础设施评估向导的 5 个步骤
var AssessmentSteps = []Step{
	{
		ID:    "company",
		Title: "Company",
		Fields: []Field{
			{Name: "company_name", Label: "Company name", Kind: FieldText, Required: true, MinLen: 2, MaxLen: 100},
			{Name: "industry", Label: "Industry", Kind: FieldChoice, Required: true, Options: Industries},
			{Name: "company_size", Label: "Company size", Kind: FieldChoice, Required: true, Options: CompanySizes},
		},
	},
	{
		ID:    "business",
		Title: "Business requirements",
		Fields: []Field{
			{Name: "budget_range", Label: "Budget range", Kind: FieldChoice, Required: true, Options: BudgetRanges},
			{Name: "timeline", Label: "Timeline", Kind: FieldChoice, Required: true, Options: Timelines},
			{Name: "business_goals", Label: "Business goals", Kind: FieldMultiChoice, Required: true, Options: BusinessGoals},
			{Name: "compliance_requirements", Label: "Compliance requirements", Kind: FieldMultiChoice, Options: ComplianceStandards},
		},
	},
	{
		ID:    "technical",
		Title: "Technical requirements",
		Fields: []Field{
			{Name: "current_infrastructure", Label: "Current infrastructure", Kind: FieldChoice, Required: true, Options: Infrastructures},
			{Name: "cloud_providers", Label: "Cloud providers", Kind: FieldMultiChoice, Required: true, Options: CloudProviders},
			{Name: "workload_types", Label: "Workload types", Kind: FieldMultiChoice, Required: true, Options: WorkloadTypes},
			{Name: "integration_needs", Label: "Integration needs", Kind: FieldMultiChoice, Options: Integrations},
		},
	},
	{
		ID:    "scale",
		Title: "Scale and availability",
		Fields: []Field{
			{Name: "expected_users", Label: "Expected users", Kind: FieldNumber, Required: true},
			{Name: "data_volume", Label: "Data volume", Kind: FieldChoice, Required: true, Options: DataVolumes},
			{Name: "availability_target", Label: "Availability target", Kind: FieldText, Required: true, Pattern: availabilityPattern, Hint: "e.g. 99.9%"},
			{Name: "security_requirements", Label: "Security requirements", Kind: FieldMultiChoice, Options: SecurityControls},
		},
	},
	{
		ID:    "review",
		Title: "Review and submit",
		Fields: []Field{
			{Name: "contact_email", Label: "Contact email", Kind: FieldText, Required: true, Pattern: emailPattern, Hint: "name@example.com"},
			{Name: "terms_accepted", Label: "Accept terms", Kind: FieldBool, Required: true},
		},
	},
}

// Validate 校验该步骤的所有字段，返回 field -> message
func (s Step) Validate(formData map[string]interface{}) apperrors.ValidationErrors {
	errs := apperrors.ValidationErrors{}
	for _, field := range s.Fields {
		if msg := field.Validate(formData[field.Name]); msg != "" {
			errs.Add(field.Name, msg)
		}
	}
	return errs
}

// Validate 校验单个字段值，通过时返回空字符串
func (f Field) Validate(value interface{}) string {
	switch f.Kind {
	case FieldText:
		text, _ := value.(string)
		text = strings.TrimSpace(text)
		if text == "" {
			if f.Required {
				return f.Label + " is required"
			}
			return ""
		}
		n := utf8.RuneCountInString(text)
		if f.MinLen > 0 && n < f.MinLen {
			return fmt.Sprintf("%s must be at least %d characters", f.Label, f.MinLen)
		}
		if f.MaxLen > 0 && n > f.MaxLen {
			return fmt.Sprintf("%s must be at most %d characters", f.Label, f.MaxLen)
		}
		if f.Pattern != nil && !f.Pattern.MatchString(text) {
			if f.Hint != "" {
				return fmt.Sprintf("%s is invalid (%s)", f.Label, f.Hint)
			}
			return f.Label + " is invalid"
		}

	case FieldChoice:
		choice, _ := value.(string)
		if choice == "" {
			if f.Required {
				return f.Label + " is required"
			}
			return ""
		}
		if !contains(f.Options, choice) {
			return fmt.Sprintf("%s must be one of %s", f.Label, strings.Join(f.Options, ", "))
		}

	case FieldMultiChoice:
		items := StringSlice(value)
		if len(items) == 0 {
			if f.Required {
				return "select at least one " + strings.ToLower(f.Label)
			}
			return ""
		}
		for _, item := range items {
			if !contains(f.Options, item) {
				return fmt.Sprintf("%s: unknown option %q", f.Label, item)
			}
		}

	case FieldNumber:
		if isBlank(value) {
			if f.Required {
				return f.Label + " is required"
			}
			return ""
		}
		n, ok := IntValue(value)
		if !ok || n <= 0 {
			return f.Label + " must be a positive integer"
		}

	case FieldBool:
		accepted, _ := value.(bool)
		if f.Required && !accepted {
			return f.Label + " must be accepted"
		}
	}
	return ""
}

func isBlank(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func contains(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}

// StringSlice 兼容 []string、[]interface{}（JSON/YAML 解码结果）和逗号分隔字符串
func StringSlice(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

// IntValue 兼容整数、整数值的浮点数（JSON 解码结果）和数字字符串
func IntValue(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
