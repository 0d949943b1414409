package unillm

import "context"

// ═══════════════════════════════════════════════════════════════════════════
// Provider 接口
// ═══════════════════════════════════════════════════════════════════════════

// Provider 统一的 LLM 提供者接口
//
// 每个厂商协议实现一次，签名完全一致。Stream 是核心操作；
// Complete 在 Stream 之上聚合实现。
type Provider interface {
	// Stream 流式生成
	//
	// 返回的 channel 在终止事件或错误事件之后关闭。
	// 取消 ctx 会停止后续事件的产出。
	Stream(ctx context.Context, messages []*UniMessage, config *UniConfig) (<-chan *UniEvent, error)

	// Complete 同步生成（流式聚合）
	Complete(ctx context.Context, messages []*UniMessage, config *UniConfig) (*UniMessage, error)

	// Model 返回本客户端绑定的模型名称
	Model() string

	// Close 关闭连接
	Close() error
}

// ═══════════════════════════════════════════════════════════════════════════
// 思考与缓存级别
// ═══════════════════════════════════════════════════════════════════════════

// ThinkingLevel 思考强度级别
type ThinkingLevel string

const (
	ThinkingLevelNone   ThinkingLevel = "none"
	ThinkingLevelLow    ThinkingLevel = "low"
	ThinkingLevelMedium ThinkingLevel = "medium"
	ThinkingLevelHigh   ThinkingLevel = "high"
)

// PromptCaching 提示缓存模式
type PromptCaching string

const (
	PromptCachingDisable PromptCaching = "disable"
	PromptCachingEnable  PromptCaching = "enable"
	PromptCachingEnhance PromptCaching = "enhance" // 延长缓存 TTL（支持的厂商）
)

// ═══════════════════════════════════════════════════════════════════════════
// 工具定义
// ═══════════════════════════════════════════════════════════════════════════

// ToolSchema 工具 Schema
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolChoiceMode 工具选择模式
type ToolChoiceMode string

const (
	ToolChoiceModeAuto     ToolChoiceMode = "auto"
	ToolChoiceModeNone     ToolChoiceMode = "none"
	ToolChoiceModeRequired ToolChoiceMode = "required"
	ToolChoiceModeAllowed  ToolChoiceMode = "allowed" // 限定在 Tools 列出的名称内
)

// ToolChoice 工具选择
//
// Mode 为 allowed 时 Tools 给出允许的工具名列表；
// 并非所有厂商都能表达所有形态，无法表达时适配器返回 ToolChoiceError。
type ToolChoice struct {
	Mode  ToolChoiceMode `json:"mode"`
	Tools []string       `json:"tools,omitempty"`
}

// ToolChoiceAuto 模型自行决定是否调用工具
func ToolChoiceAuto() *ToolChoice { return &ToolChoice{Mode: ToolChoiceModeAuto} }

// ToolChoiceNone 禁止调用工具
func ToolChoiceNone() *ToolChoice { return &ToolChoice{Mode: ToolChoiceModeNone} }

// ToolChoiceRequired 强制调用某个工具
func ToolChoiceRequired() *ToolChoice { return &ToolChoice{Mode: ToolChoiceModeRequired} }

// ToolChoiceAllowed 限定可调用的工具名称
func ToolChoiceAllowed(names ...string) *ToolChoice {
	return &ToolChoice{Mode: ToolChoiceModeAllowed, Tools: names}
}

// ═══════════════════════════════════════════════════════════════════════════
// 统一请求配置
// ═══════════════════════════════════════════════════════════════════════════

// UniConfig 统一请求配置
//
// 每次调用只读；适配器绝不修改它。
type UniConfig struct {
	// MaxTokens 最大输出 token 数（0 = 使用厂商默认）
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature 采样温度（0 = 不下发）
	Temperature float64 `json:"temperature,omitempty"`

	// Tools 可用工具列表
	Tools []ToolSchema `json:"tools,omitempty"`

	// ToolChoice 工具选择（nil = 厂商默认）
	ToolChoice *ToolChoice `json:"tool_choice,omitempty"`

	// ThinkingLevel 思考强度（空 = 最小/关闭）
	ThinkingLevel ThinkingLevel `json:"thinking_level,omitempty"`

	// ThinkingSummary 是否请求思考摘要（支持的厂商）
	ThinkingSummary bool `json:"thinking_summary,omitempty"`

	// SystemPrompt 系统提示
	SystemPrompt string `json:"system_prompt,omitempty"`

	// PromptCaching 提示缓存模式（空 = 厂商默认，支持缓存的厂商默认启用）
	PromptCaching PromptCaching `json:"prompt_caching,omitempty"`

	// TraceID 会话追踪文件标识（如 "agent1/00001"，空 = 不追踪）
	TraceID string `json:"trace_id,omitempty"`
}
