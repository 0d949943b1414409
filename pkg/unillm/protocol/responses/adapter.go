package responses

import (
	"encoding/json"
	"fmt"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// Responses 协议适配器
// ═══════════════════════════════════════════════════════════════════════════

// Adapter Responses API（离散响应事件协议）适配器
//
// 实现 core.ProtocolAdapter 接口，处理 Responses API 特有的格式。
//
// 关键协议差异：
//  1. 输入是扁平的 input 项列表：角色消息、function_call、
//     function_call_output 并列存在，不嵌套在消息里
//  2. 工具调用参数必须序列化为 JSON 字符串
//  3. 系统提示词走独立的 instructions 字段
//  4. 工具定义内联（type:function 与 name 同级，无嵌套 function 对象）
//  5. 思考配置：reasoning {effort, summary}
type Adapter struct {
	model string
}

// NewAdapter 创建 Responses 协议适配器
func NewAdapter(model string) *Adapter {
	return &Adapter{model: model}
}

// ═══════════════════════════════════════════════════════════════════════════
// BuildRequest - 构建 Responses API 请求体
// ═══════════════════════════════════════════════════════════════════════════

// BuildRequest 将规范消息与配置转换为 Responses API 请求体
func (a *Adapter) BuildRequest(messages []*unillm.UniMessage, cfg *unillm.UniConfig, stream bool) (map[string]any, error) {
	if cfg == nil {
		cfg = &unillm.UniConfig{}
	}

	body := map[string]any{
		"model":  a.model,
		"stream": stream,
	}

	if cfg.MaxTokens > 0 {
		body["max_output_tokens"] = cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		body["temperature"] = cfg.Temperature
	}
	if cfg.SystemPrompt != "" {
		body["instructions"] = cfg.SystemPrompt
	}

	// 思考配置：effort 枚举
	if cfg.ThinkingLevel != "" && cfg.ThinkingLevel != unillm.ThinkingLevelNone {
		reasoning := map[string]any{"effort": string(cfg.ThinkingLevel)}
		if cfg.ThinkingSummary {
			reasoning["summary"] = "auto"
		}
		body["reasoning"] = reasoning
	}

	// 工具定义：内联格式
	if len(cfg.Tools) > 0 {
		tools := make([]map[string]any, 0, len(cfg.Tools))
		for _, t := range cfg.Tools {
			tools = append(tools, map[string]any{
				"type":        "function",
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
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

	input, err := a.convertMessages(messages)
	if err != nil {
		return nil, err
	}
	body["input"] = input

	return body, nil
}

// convertToolChoice 转换 tool_choice 为 Responses API 格式
//
// 字面量模式直接透传字符串；限定名单只支持单个工具。
func (a *Adapter) convertToolChoice(choice *unillm.ToolChoice) (any, error) {
	switch choice.Mode {
	case unillm.ToolChoiceModeAuto, unillm.ToolChoiceModeNone, unillm.ToolChoiceModeRequired:
		return string(choice.Mode), nil
	case unillm.ToolChoiceModeAllowed:
		if len(choice.Tools) != 1 {
			return nil, unillm.NewToolChoiceError("responses", choice,
				"only a single forced tool name is supported")
		}
		return map[string]any{"type": "function", "name": choice.Tools[0]}, nil
	default:
		return nil, unillm.NewToolChoiceError("responses", choice,
			fmt.Sprintf("unknown mode %q", choice.Mode))
	}
}

// convertMessages 转换消息列表为扁平的 input 项列表
//
// 工具调用与工具结果是独立的顶层 input 项；
// 文本与图片聚合为同一条角色消息的 content。
func (a *Adapter) convertMessages(messages []*unillm.UniMessage) ([]map[string]any, error) {
	input := make([]map[string]any, 0, len(messages))

	for _, msg := range messages {
		var content []map[string]any

		for _, item := range msg.ContentItems {
			switch it := item.(type) {
			case *unillm.TextItem:
				content = append(content, map[string]any{
					"type": "input_text",
					"text": it.Text,
				})

			case *unillm.ImageItem:
				content = append(content, map[string]any{
					"type":      "input_image",
					"image_url": it.URL,
				})

			case *unillm.ToolCallItem:
				// 参数必须序列化为 JSON 字符串
				args, err := json.Marshal(it.Arguments)
				if err != nil {
					return nil, unillm.NewRequestError("marshal", err)
				}
				input = append(input, map[string]any{
					"type":      "function_call",
					"call_id":   it.ToolCallID,
					"name":      it.Name,
					"arguments": string(args),
				})

			case *unillm.ToolResultItem:
				if it.ToolCallID == "" {
					return nil, unillm.NewMissingToolCallIDError()
				}
				input = append(input, map[string]any{
					"type":    "function_call_output",
					"call_id": it.ToolCallID,
					"output":  it.Text,
				})

			case *unillm.ThinkingItem, *unillm.PartialToolCallItem:
				// 思考内容不回放，瞬态片段不进入请求
			}
		}

		if len(content) == 0 {
			continue
		}
		// 单纯文本消息降级为字符串 content
		if len(content) == 1 && content[0]["type"] == "input_text" {
			input = append(input, map[string]any{
				"role":    string(msg.Role),
				"content": content[0]["text"],
			})
		} else {
			input = append(input, map[string]any{
				"role":    string(msg.Role),
				"content": content,
			})
		}
	}

	return input, nil
}

// 确保 Adapter 实现了 ProtocolAdapter 接口
var _ core.ProtocolAdapter = (*Adapter)(nil)
