// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest       = "BAD_REQUEST"
	ErrorValidationFailed = "VALIDATION_ERROR"
	ErrorNotFound         = "NOT_FOUND"
	ErrorInternalError    = "INTERNAL_ERROR"
	ErrorConflict         = "CONFLICT"
	ErrorForbidden        = "FORBIDDEN"
	ErrorUnauthorized     = "UNAUTHORIZED"
	ErrorRateLimited      = "RATE_LIMIT_EXCEEDED"

	// 草稿相关错误
	ErrorDraftNotFound = "DRAFT_NOT_FOUND"
	ErrorDraftInvalid  = "DRAFT_INVALID"

	// 评估相关错误
	ErrorAssessmentNotFound = "ASSESSMENT_NOT_FOUND"
	ErrorAssessmentInvalid  = "ASSESSMENT_INVALID"

	// 认证相关错误
	ErrorTokenIssueDisabled = "TOKEN_ISSUE_DISABLED"
)
