package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorCodes(t *testing.T) {
	err := NewSubmissionError("提交评估失败", fmt.Errorf("status 500"))

	assert.Equal(t, "SUBMISSION_FAILED", err.Code)
	assert.True(t, IsSubmissionError(err))
	assert.False(t, IsTimeoutError(err))
	assert.Equal(t, "提交评估失败: status 500", err.Error())
}

func TestWrapErrorKeepsType(t *testing.T) {
	base := NewTimeoutError("远程请求超时", nil)
	wrapped := WrapError(base, "保存草稿", ErrorTypeError)

	assert.True(t, IsTimeoutError(wrapped))
	assert.Contains(t, wrapped.Error(), "保存草稿: 远程请求超时")
	assert.Nil(t, WrapError(nil, "noop", ErrorTypeError))
}

func TestWrapErrorPlainError(t *testing.T) {
	wrapped := WrapError(errors.New("disk full"), "写入本地草稿", ErrorTypeError)

	var appErr *AppError
	assert.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, ErrorTypeError, appErr.Type)
}

func TestValidationErrors(t *testing.T) {
	v := ValidationErrors{}
	assert.False(t, v.HasErrors())

	v.Add("industry", "industry is required")
	v.Add("industry", "ignored")
	v.Add("cloud_providers", "select at least one cloud provider")

	assert.True(t, v.HasErrors())
	assert.Equal(t, "industry is required", v["industry"])
	assert.Equal(t,
		"validation failed: cloud_providers: select at least one cloud provider; industry: industry is required",
		v.Error())
	assert.True(t, IsValidationError(fmt.Errorf("step 0: %w", v)))
}
