package qwen

import (
	"encoding/json"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// Qwen 协议适配器
// ═══════════════════════════════════════════════════════════════════════════

// Adapter Qwen（chat-completion delta 协议，分片工具调用）适配器
//
// 实现 core.ProtocolAdapter 接口，处理 Qwen API 特有的格式。
//
// 关键协议差异：
//  1. chat-completion 消息结构，系统提示词内联为首条 system 消息
//  2. 思考内容回放时同时写 reasoning_content（vLLM/硅基流动）
//     和 reasoning（OpenRouter）两个字段
//  3. 不支持图片输入
//  4. tool_choice 只支持 auto
//  5. 提示缓存自动进行，不可调 TTL（enhance/disable 均拒绝）
type Adapter struct {
	model string
}

// NewAdapter 创建 Qwen 协议适配器
func NewAdapter(model string) *Adapter {
	return &Adapter{model: model}
}

// ═══════════════════════════════════════════════════════════════════════════
// BuildRequest - 构建 chat-completion 请求体
// ═══════════════════════════════════════════════════════════════════════════

// BuildRequest 将规范消息与配置转换为 Qwen 请求体
func (a *Adapter) BuildRequest(messages []*unillm.UniMessage, cfg *unillm.UniConfig, stream bool) (map[string]any, error) {
	if cfg == nil {
		cfg = &unillm.UniConfig{}
	}

	body := map[string]any{
		"model":  a.model,
		"stream": stream,
	}

	if cfg.MaxTokens > 0 {
		body["max_tokens"] = cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		body["temperature"] = cfg.Temperature
	}

	// 思考配置：开关型
	if cfg.ThinkingLevel != "" {
		body["enable_thinking"] = cfg.ThinkingLevel != unillm.ThinkingLevelNone
	}

	// 缓存自动进行，无可调参数
	if cfg.PromptCaching != "" && cfg.PromptCaching != unillm.PromptCachingEnable {
		return nil, unillm.NewConfigError("prompt_caching must be enable for qwen", nil)
	}

	if len(cfg.Tools) > 0 {
		tools := make([]map[string]any, 0, len(cfg.Tools))
		for _, t := range cfg.Tools {
			tools = append(tools, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  t.Parameters,
				},
			})
		}
		body["tools"] = tools

		// 协议只支持 auto
		if cfg.ToolChoice != nil {
			if cfg.ToolChoice.Mode != unillm.ToolChoiceModeAuto {
				return nil, unillm.NewToolChoiceError("qwen", cfg.ToolChoice,
					"only auto is supported")
			}
			body["tool_choice"] = "auto"
		}
	}

	apiMessages, err := a.convertMessages(messages)
	if err != nil {
		return nil, err
	}

	if cfg.SystemPrompt != "" {
		apiMessages = append([]map[string]any{
			{"role": "system", "content": cfg.SystemPrompt},
		}, apiMessages...)
	}

	body["messages"] = apiMessages
	return body, nil
}

// convertMessages 转换消息列表为 chat-completion 消息格式
func (a *Adapter) convertMessages(messages []*unillm.UniMessage) ([]map[string]any, error) {
	result := make([]map[string]any, 0, len(messages))

	for _, msg := range messages {
		var contentParts []map[string]any
		var toolCalls []map[string]any
		thinking := ""

		for _, item := range msg.ContentItems {
			switch it := item.(type) {
			case *unillm.TextItem:
				contentParts = append(contentParts, map[string]any{
					"type": "text",
					"text": it.Text,
				})

			case *unillm.ImageItem:
				return nil, unillm.NewRequestError("convert",
					unillm.NewConfigError("qwen does not support image input", nil))

			case *unillm.ThinkingItem:
				thinking += it.Thinking

			case *unillm.ToolCallItem:
				args, err := json.Marshal(it.Arguments)
				if err != nil {
					return nil, unillm.NewRequestError("marshal", err)
				}
				toolCalls = append(toolCalls, map[string]any{
					"id":   it.ToolCallID,
					"type": "function",
					"function": map[string]any{
						"name":      it.Name,
						"arguments": string(args),
					},
				})

			case *unillm.ToolResultItem:
				if it.ToolCallID == "" {
					return nil, unillm.NewMissingToolCallIDError()
				}
				result = append(result, map[string]any{
					"role":         "tool",
					"tool_call_id": it.ToolCallID,
					"content":      it.Text,
				})

			case *unillm.PartialToolCallItem:
				// 瞬态片段不进入请求
			}
		}

		if len(contentParts) == 0 && len(toolCalls) == 0 && thinking == "" {
			continue
		}

		m := map[string]any{"role": string(msg.Role)}
		switch {
		case len(contentParts) == 1:
			m["content"] = contentParts[0]["text"]
		case len(contentParts) > 0:
			m["content"] = contentParts
		default:
			m["content"] = ""
		}
		if len(toolCalls) > 0 {
			m["tool_calls"] = toolCalls
		}
		if thinking != "" {
			// 两个字段覆盖不同的兼容实现
			m["reasoning_content"] = thinking
			m["reasoning"] = thinking
		}
		result = append(result, m)
	}

	return result, nil
}

// 确保 Adapter 实现了 ProtocolAdapter 接口
var _ core.ProtocolAdapter = (*Adapter)(nil)
