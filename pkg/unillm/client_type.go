package unillm

import "strings"

// ClientType LLM 客户端类型（对应四种流式协议方言）
type ClientType string

const (
	// ClientTypeClaude Anthropic Messages API（content-block-delta 协议）
	ClientTypeClaude ClientType = "claude"

	// ClientTypeResponses OpenAI Responses API（离散响应事件协议）
	ClientTypeResponses ClientType = "responses"

	// ClientTypeGLM 智谱 GLM API（chat-completion delta 协议，整体工具调用）
	ClientTypeGLM ClientType = "glm"

	// ClientTypeQwen 阿里通义千问 API（chat-completion delta 协议，分片工具调用）
	ClientTypeQwen ClientType = "qwen"

	// ClientTypeLocalMock 本地 Mock（测试用）
	ClientTypeLocalMock ClientType = "localmock"
)

// String 返回字符串表示
func (t ClientType) String() string {
	return string(t)
}

// IsChatCompletion 判断是否为 chat-completion 风格协议
func (t ClientType) IsChatCompletion() bool {
	return t == ClientTypeGLM || t == ClientTypeQwen
}

// DefaultBaseURL 返回默认 Base URL
func (t ClientType) DefaultBaseURL() string {
	switch t {
	case ClientTypeClaude:
		return "https://api.anthropic.com/v1"
	case ClientTypeResponses:
		return "https://api.openai.com/v1"
	case ClientTypeGLM:
		return "https://open.bigmodel.cn/api/paas/v4"
	case ClientTypeQwen:
		return "https://dashscope.aliyuncs.com/compatible-mode/v1"
	default:
		return ""
	}
}

// DefaultModel 返回默认模型
func (t ClientType) DefaultModel() string {
	switch t {
	case ClientTypeClaude:
		return "claude-sonnet-4-20250514"
	case ClientTypeResponses:
		return "gpt-4o-mini"
	case ClientTypeGLM:
		return "glm-4.5"
	case ClientTypeQwen:
		return "qwen3-coder-plus"
	default:
		return ""
	}
}

// APIKeyEnv 返回读取 API Key 的环境变量名
func (t ClientType) APIKeyEnv() string {
	switch t {
	case ClientTypeClaude:
		return "ANTHROPIC_API_KEY"
	case ClientTypeResponses:
		return "OPENAI_API_KEY"
	case ClientTypeGLM:
		return "GLM_API_KEY"
	case ClientTypeQwen:
		return "DASHSCOPE_API_KEY"
	default:
		return ""
	}
}

// MatchModel 判断模型名是否应路由到该客户端类型
//
// 按模型名前缀做启发式匹配，供自动路由使用。
func (t ClientType) MatchModel(model string) bool {
	m := strings.ToLower(model)
	switch t {
	case ClientTypeClaude:
		return strings.HasPrefix(m, "claude")
	case ClientTypeResponses:
		return strings.HasPrefix(m, "gpt") || strings.HasPrefix(m, "o1") ||
			strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4")
	case ClientTypeGLM:
		return strings.HasPrefix(m, "glm")
	case ClientTypeQwen:
		return strings.HasPrefix(m, "qwen") || strings.HasPrefix(m, "qwq")
	case ClientTypeLocalMock:
		return strings.HasPrefix(m, "localmock")
	default:
		return false
	}
}
