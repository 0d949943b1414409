package claude

import (
	"fmt"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// Claude 协议适配器
// ═══════════════════════════════════════════════════════════════════════════

// Adapter Claude (Anthropic Messages API) 协议适配器
//
// 实现 core.ProtocolAdapter 接口，处理 content-block 协议特有的格式。
//
// 关键协议差异：
//  1. 内容数组：使用 content 数组承载所有内容块
//  2. 工具参数：直接传递对象（无需序列化为 JSON 字符串）
//  3. 工具结果：内联在 user 消息的 content 数组中
//  4. 系统消息：独立的 system 参数
//  5. 思考配置：thinking {type: enabled, budget_tokens}
//  6. 提示词缓存：cache_control 标记（system 块 + 最后一条 user 消息）
type Adapter struct {
	model string
}

// NewAdapter 创建 Claude 协议适配器
func NewAdapter(model string) *Adapter {
	return &Adapter{model: model}
}

// 思考等级 → budget_tokens 映射
var thinkingBudgets = map[unillm.ThinkingLevel]int{
	unillm.ThinkingLevelLow:    4000,
	unillm.ThinkingLevelMedium: 10000,
	unillm.ThinkingLevelHigh:   16000,
}

// ═══════════════════════════════════════════════════════════════════════════
// BuildRequest - 构建 Messages API 请求体
// ═══════════════════════════════════════════════════════════════════════════

// BuildRequest 将规范消息与配置转换为 Messages API 请求体
//
// 协议要求：
//   - max_tokens 为必填字段（缺省补 4096）
//   - system 独立于 messages；启用缓存时 system 为带 cache_control 的块数组
//   - 缓存标记只附加到最后一条 user 消息的最后一个内容项
func (a *Adapter) BuildRequest(messages []*unillm.UniMessage, cfg *unillm.UniConfig, stream bool) (map[string]any, error) {
	if cfg == nil {
		cfg = &unillm.UniConfig{}
	}

	body := map[string]any{
		"model":  a.model,
		"stream": stream,
	}

	// max_tokens 必填
	if cfg.MaxTokens > 0 {
		body["max_tokens"] = cfg.MaxTokens
	} else {
		body["max_tokens"] = 4096
	}

	if cfg.Temperature > 0 {
		body["temperature"] = cfg.Temperature
	}

	// 系统提示词：启用缓存时转为带 cache_control 的块数组
	if cfg.SystemPrompt != "" {
		if marker := cacheMarker(cfg.PromptCaching); marker != nil {
			body["system"] = []map[string]any{{
				"type":          "text",
				"text":          cfg.SystemPrompt,
				"cache_control": marker,
			}}
		} else {
			body["system"] = cfg.SystemPrompt
		}
	}

	// 思考配置
	if budget, ok := thinkingBudgets[cfg.ThinkingLevel]; ok {
		body["thinking"] = map[string]any{
			"type":          "enabled",
			"budget_tokens": budget,
		}
	}

	// 工具定义
	if len(cfg.Tools) > 0 {
		tools := make([]map[string]any, 0, len(cfg.Tools))
		for _, t := range cfg.Tools {
			tools = append(tools, map[string]any{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": t.Parameters,
			})
		}
		body["tools"] = tools

		if cfg.ToolChoice != nil {
			choice, err := a.convertToolChoice(cfg.ToolChoice)
			if err != nil {
				return nil, err
			}
			body["tool_choice"] = choice
		}
	}

	// 消息转换
	apiMessages, err := a.convertMessages(messages)
	if err != nil {
		return nil, err
	}

	// 缓存标记：只附加到最后一条 user 消息的最后一个内容项
	if marker := cacheMarker(cfg.PromptCaching); marker != nil {
		attachCacheMarker(apiMessages, marker)
	}

	body["messages"] = apiMessages
	return body, nil
}

// convertToolChoice 转换 tool_choice 为 Messages API 格式
//
// 协议只支持强制单个工具；多个允许工具名无法表达，报 ToolChoiceError。
func (a *Adapter) convertToolChoice(choice *unillm.ToolChoice) (map[string]any, error) {
	switch choice.Mode {
	case unillm.ToolChoiceModeAuto:
		return map[string]any{"type": "auto"}, nil
	case unillm.ToolChoiceModeNone:
		return map[string]any{"type": "none"}, nil
	case unillm.ToolChoiceModeRequired:
		return map[string]any{"type": "any"}, nil
	case unillm.ToolChoiceModeAllowed:
		if len(choice.Tools) != 1 {
			return nil, unillm.NewToolChoiceError("claude", choice,
				"only a single forced tool name is supported")
		}
		return map[string]any{"type": "tool", "name": choice.Tools[0]}, nil
	default:
		return nil, unillm.NewToolChoiceError("claude", choice,
			fmt.Sprintf("unknown mode %q", choice.Mode))
	}
}

// convertMessages 转换消息列表为 content 块数组格式
func (a *Adapter) convertMessages(messages []*unillm.UniMessage) ([]map[string]any, error) {
	result := make([]map[string]any, 0, len(messages))

	for _, msg := range messages {
		content := make([]map[string]any, 0, len(msg.ContentItems))

		for _, item := range msg.ContentItems {
			switch it := item.(type) {
			case *unillm.TextItem:
				content = append(content, map[string]any{
					"type": "text",
					"text": it.Text,
				})

			case *unillm.ThinkingItem:
				block := map[string]any{
					"type":     "thinking",
					"thinking": it.Thinking,
				}
				// signature 回放思考块时必需
				if it.Signature != "" {
					block["signature"] = it.Signature
				}
				content = append(content, block)

			case *unillm.ToolCallItem:
				// 参数直接是对象，不是 JSON 字符串
				content = append(content, map[string]any{
					"type":  "tool_use",
					"id":    it.ToolCallID,
					"name":  it.Name,
					"input": it.Arguments,
				})

			case *unillm.ToolResultItem:
				if it.ToolCallID == "" {
					return nil, unillm.NewMissingToolCallIDError()
				}
				// 工具结果内联在 content 数组中
				content = append(content, map[string]any{
					"type":        "tool_result",
					"tool_use_id": it.ToolCallID,
					"content":     it.Text,
				})
				for _, url := range it.Images {
					content = append(content, imageBlock(url))
				}

			case *unillm.ImageItem:
				content = append(content, imageBlock(it.URL))

			case *unillm.PartialToolCallItem:
				// 瞬态片段不进入请求
			}
		}

		// content 必须非空
		if len(content) > 0 {
			result = append(result, map[string]any{
				"role":    string(msg.Role),
				"content": content,
			})
		}
	}

	return result, nil
}

// imageBlock 构建图片内容块
func imageBlock(url string) map[string]any {
	return map[string]any{
		"type":   "image",
		"source": map[string]any{"type": "url", "url": url},
	}
}

// cacheMarker 返回缓存模式对应的 cache_control 标记
//
// 未显式配置时默认启用（5 分钟 TTL）；enhance 使用 1 小时 TTL。
func cacheMarker(mode unillm.PromptCaching) map[string]any {
	switch mode {
	case unillm.PromptCachingDisable:
		return nil
	case unillm.PromptCachingEnhance:
		return map[string]any{"type": "ephemeral", "ttl": "1h"}
	default:
		return map[string]any{"type": "ephemeral"}
	}
}

// attachCacheMarker 将缓存标记附加到最后一条 user 消息的最后一个内容项
//
// 缓存具有前缀局部性，只有末尾标记有意义；更早消息不加标记。
func attachCacheMarker(apiMessages []map[string]any, marker map[string]any) {
	for i := len(apiMessages) - 1; i >= 0; i-- {
		if apiMessages[i]["role"] != string(unillm.RoleUser) {
			continue
		}
		content, _ := apiMessages[i]["content"].([]map[string]any)
		if len(content) > 0 {
			content[len(content)-1]["cache_control"] = marker
		}
		return
	}
}

// 确保 Adapter 实现了 ProtocolAdapter 接口
var _ core.ProtocolAdapter = (*Adapter)(nil)
