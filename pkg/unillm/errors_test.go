package unillm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ═══════════════════════════════════════════════════════════════════════════
// APIError 测试
// ═══════════════════════════════════════════════════════════════════════════

func TestAPIError_Error(t *testing.T) {
	err := NewAPIError(429, `{"error": "rate limited"}`)

	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, 429, err.StatusCode)
	assert.Equal(t, `{"error": "rate limited"}`, err.Response)
}

func TestAPIError_WithProviderAndRequestID(t *testing.T) {
	err := NewAPIError(500, "oops").
		WithProvider("claude").
		WithRequestID("req-123")

	assert.Equal(t, "claude", err.Provider)
	assert.Equal(t, "req-123", err.RequestID)
	assert.Contains(t, err.Error(), "req-123")
}

func TestAPIError_IsRetryable(t *testing.T) {
	tests := []struct {
		statusCode int
		retryable  bool
	}{
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{400, false},
		{401, false},
		{404, false},
		{505, false},
	}

	for _, tt := range tests {
		err := NewAPIError(tt.statusCode, "")
		assert.Equal(t, tt.retryable, err.IsRetryable(), "status %d", tt.statusCode)
	}
}

func TestIsRetryableError_NonAPIError(t *testing.T) {
	assert.False(t, IsRetryableError(errors.New("plain error")))
	assert.False(t, IsRetryableError(nil))
}

// ═══════════════════════════════════════════════════════════════════════════
// 错误匹配测试
// ═══════════════════════════════════════════════════════════════════════════

func TestErrorMatchers(t *testing.T) {
	assert.True(t, IsConfigError(NewConfigError("bad config", nil)))
	assert.True(t, IsRequestError(NewRequestError("marshal", errors.New("boom"))))
	assert.True(t, IsToolChoiceError(NewToolChoiceError("glm", ToolChoiceNone(), "only auto")))
	assert.True(t, IsHTTPError(NewHTTPError("timeout", nil)))
	assert.True(t, IsAPIError(NewAPIError(400, "")))
	assert.True(t, IsStreamError(NewTruncatedStreamError()))
	assert.True(t, IsDispatchError(NewDispatchError("foo-1", []string{"claude"})))

	// 类型之间互不匹配
	assert.False(t, IsConfigError(NewAPIError(400, "")))
	assert.False(t, IsAPIError(NewConfigError("x", nil)))
}

func TestErrorMatchers_Wrapped(t *testing.T) {
	inner := NewAPIError(503, "unavailable")
	wrapped := fmt.Errorf("call failed: %w", inner)

	assert.True(t, IsAPIError(wrapped))
	assert.True(t, IsRetryableError(wrapped))

	got, ok := GetAPIError(wrapped)
	require.True(t, ok)
	assert.Equal(t, 503, got.StatusCode)
	assert.Equal(t, 503, GetStatusCode(wrapped))
}

func TestGetStatusCode_NonAPIError(t *testing.T) {
	assert.Equal(t, 0, GetStatusCode(errors.New("nope")))
}

// ═══════════════════════════════════════════════════════════════════════════
// 具体错误构造测试
// ═══════════════════════════════════════════════════════════════════════════

func TestNewMissingToolCallIDError(t *testing.T) {
	err := NewMissingToolCallIDError()

	assert.Equal(t, "convert", err.Stage)
	assert.Contains(t, err.Error(), "tool_call_id")
}

func TestNewTruncatedStreamError(t *testing.T) {
	err := NewTruncatedStreamError()

	assert.Contains(t, err.Error(), "terminal event")
}

func TestNewDispatchError(t *testing.T) {
	err := NewDispatchError("mystery-model", []string{"claude", "glm"})

	assert.Equal(t, "mystery-model", err.Model)
	assert.Contains(t, err.Error(), "mystery-model")
	assert.Contains(t, err.Error(), "claude")
	assert.Contains(t, err.Error(), "glm")
}

func TestToolChoice_String(t *testing.T) {
	assert.Equal(t, "auto", ToolChoiceAuto().String())
	assert.Equal(t, "allowed[a,b]", ToolChoiceAllowed("a", "b").String())

	var nilChoice *ToolChoice
	assert.Equal(t, "<nil>", nilChoice.String())
}

func TestBaseError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := NewStreamError("read stream", inner)

	assert.ErrorIs(t, err, inner)
}
