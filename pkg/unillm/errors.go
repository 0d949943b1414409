package unillm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// 错误类型
// ═══════════════════════════════════════════════════════════════════════════

// ErrorType 错误类型
type ErrorType string

const (
	// ErrTypeConfig 配置错误
	ErrTypeConfig ErrorType = "config_error"

	// ErrTypeRequest 请求错误（序列化、消息转换等）
	ErrTypeRequest ErrorType = "request_error"

	// ErrTypeToolChoice 工具选择形态错误（厂商无法表达请求的形态）
	ErrTypeToolChoice ErrorType = "tool_choice_error"

	// ErrTypeHTTP HTTP 层错误（网络、超时等）
	ErrTypeHTTP ErrorType = "http_error"

	// ErrTypeAPI API 业务错误（4xx, 5xx）
	ErrTypeAPI ErrorType = "api_error"

	// ErrTypeStream 流式错误（含静默截断）
	ErrTypeStream ErrorType = "stream_error"

	// ErrTypeDispatch 路由错误（未知模型/客户端类型）
	ErrTypeDispatch ErrorType = "dispatch_error"
)

// ═══════════════════════════════════════════════════════════════════════════
// 基础错误
// ═══════════════════════════════════════════════════════════════════════════

// BaseError 基础错误实现
type BaseError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *BaseError) Unwrap() error {
	return e.Err
}

// ═══════════════════════════════════════════════════════════════════════════
// 配置错误
// ═══════════════════════════════════════════════════════════════════════════

// ConfigError 配置错误
type ConfigError struct {
	*BaseError
}

// NewConfigError 创建配置错误
func NewConfigError(message string, err error) *ConfigError {
	return &ConfigError{
		BaseError: &BaseError{
			Type:    ErrTypeConfig,
			Message: message,
			Err:     err,
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 请求错误
// ═══════════════════════════════════════════════════════════════════════════

// RequestError 请求错误
type RequestError struct {
	*BaseError

	Stage string // "marshal", "build", "convert" 等
}

// NewRequestError 创建请求错误
func NewRequestError(stage string, err error) *RequestError {
	return &RequestError{
		BaseError: &BaseError{
			Type:    ErrTypeRequest,
			Message: fmt.Sprintf("failed to %s request", stage),
			Err:     err,
		},
		Stage: stage,
	}
}

// NewMissingToolCallIDError 创建工具结果缺少关联 ID 的错误
//
// 统一模型无法在缺少 tool_call_id 时路由工具结果，视为调用方输入错误。
func NewMissingToolCallIDError() *RequestError {
	return &RequestError{
		BaseError: &BaseError{
			Type:    ErrTypeRequest,
			Message: "tool_call_id is required for tool result",
		},
		Stage: "convert",
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 工具选择错误
// ═══════════════════════════════════════════════════════════════════════════

// ToolChoiceError 工具选择形态错误
//
// 当厂商协议无法表达请求的 tool_choice 形态时返回
// （例如只支持强制单个工具的厂商收到多个工具名）。
type ToolChoiceError struct {
	*BaseError

	Provider string      // 拒绝该形态的厂商
	Choice   *ToolChoice // 被拒绝的值
}

// NewToolChoiceError 创建工具选择错误
func NewToolChoiceError(provider string, choice *ToolChoice, reason string) *ToolChoiceError {
	return &ToolChoiceError{
		BaseError: &BaseError{
			Type:    ErrTypeToolChoice,
			Message: fmt.Sprintf("%s cannot express tool_choice %v: %s", provider, choice, reason),
		},
		Provider: provider,
		Choice:   choice,
	}
}

func (c *ToolChoice) String() string {
	if c == nil {
		return "<nil>"
	}
	if c.Mode == ToolChoiceModeAllowed {
		return fmt.Sprintf("allowed[%s]", strings.Join(c.Tools, ","))
	}
	return string(c.Mode)
}

// ═══════════════════════════════════════════════════════════════════════════
// HTTP 错误
// ═══════════════════════════════════════════════════════════════════════════

// HTTPError HTTP 层错误
type HTTPError struct {
	*BaseError
}

// NewHTTPError 创建 HTTP 错误
func NewHTTPError(message string, err error) *HTTPError {
	return &HTTPError{
		BaseError: &BaseError{
			Type:    ErrTypeHTTP,
			Message: message,
			Err:     err,
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// API 错误
// ═══════════════════════════════════════════════════════════════════════════

// APIError API 业务错误
type APIError struct {
	*BaseError

	StatusCode int
	Response   string
	Provider   string
	RequestID  string
}

// NewAPIError 创建 API 错误
func NewAPIError(statusCode int, response string) *APIError {
	return &APIError{
		BaseError: &BaseError{
			Type:    ErrTypeAPI,
			Message: fmt.Sprintf("API returned error status %d", statusCode),
		},
		StatusCode: statusCode,
		Response:   response,
	}
}

// WithProvider 设置 Provider 名称
func (e *APIError) WithProvider(provider string) *APIError {
	e.Provider = provider
	return e
}

// WithRequestID 设置请求 ID
func (e *APIError) WithRequestID(requestID string) *APIError {
	e.RequestID = requestID
	return e
}

func (e *APIError) Error() string {
	base := e.BaseError.Error()
	if e.RequestID != "" {
		return fmt.Sprintf("%s (request_id: %s)", base, e.RequestID)
	}
	return base
}

// IsRetryable 检查错误是否可重试
func (e *APIError) IsRetryable() bool {
	// 429 (Rate Limit), 500, 502, 503, 504 可重试
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500 && e.StatusCode <= 504
}

// ═══════════════════════════════════════════════════════════════════════════
// 流式错误
// ═══════════════════════════════════════════════════════════════════════════

// StreamError 流式错误
type StreamError struct {
	*BaseError
}

// NewStreamError 创建流式错误
func NewStreamError(message string, err error) *StreamError {
	return &StreamError{
		BaseError: &BaseError{
			Type:    ErrTypeStream,
			Message: message,
			Err:     err,
		},
	}
}

// NewTruncatedStreamError 创建静默截断错误
//
// 流的最后一个事件既无 usage_metadata 也无 finish_reason，
// 视为服务端中途掐断，显式报错而非当作正常完成返回。
func NewTruncatedStreamError() *StreamError {
	return NewStreamError("stream ended without a terminal event (usage_metadata or finish_reason)", nil)
}

// ═══════════════════════════════════════════════════════════════════════════
// 路由错误
// ═══════════════════════════════════════════════════════════════════════════

// DispatchError 路由错误
//
// 模型名/客户端类型无法匹配任何已注册的适配器。
type DispatchError struct {
	*BaseError

	Model     string
	Supported []string
}

// NewDispatchError 创建路由错误
func NewDispatchError(model string, supported []string) *DispatchError {
	return &DispatchError{
		BaseError: &BaseError{
			Type:    ErrTypeDispatch,
			Message: fmt.Sprintf("model %q is not supported (supported: %s)", model, strings.Join(supported, ", ")),
		},
		Model:     model,
		Supported: supported,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 错误匹配函数（支持 errors.Is/As）
// ═══════════════════════════════════════════════════════════════════════════

// IsConfigError 检查是否为配置错误
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// IsRequestError 检查是否为请求错误
func IsRequestError(err error) bool {
	var e *RequestError
	return errors.As(err, &e)
}

// IsToolChoiceError 检查是否为工具选择错误
func IsToolChoiceError(err error) bool {
	var e *ToolChoiceError
	return errors.As(err, &e)
}

// IsHTTPError 检查是否为 HTTP 错误
func IsHTTPError(err error) bool {
	var e *HTTPError
	return errors.As(err, &e)
}

// IsAPIError 检查是否为 API 错误
func IsAPIError(err error) bool {
	var e *APIError
	return errors.As(err, &e)
}

// IsStreamError 检查是否为流式错误
func IsStreamError(err error) bool {
	var e *StreamError
	return errors.As(err, &e)
}

// IsDispatchError 检查是否为路由错误
func IsDispatchError(err error) bool {
	var e *DispatchError
	return errors.As(err, &e)
}

// IsRetryableError 检查错误是否可重试
func IsRetryableError(err error) bool {
	var e *APIError
	if errors.As(err, &e) {
		return e.IsRetryable()
	}
	return false
}

// GetAPIError 提取 APIError（如果存在）
func GetAPIError(err error) (*APIError, bool) {
	var e *APIError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetStatusCode 提取 HTTP 状态码（如果是 API 错误）
func GetStatusCode(err error) int {
	if e, ok := GetAPIError(err); ok {
		return e.StatusCode
	}
	return 0
}
