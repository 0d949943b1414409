package claude

import (
	"fmt"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// Claude SSE 事件处理器
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler Claude SSE 事件处理器
//
// 实现 core.EventHandler 接口，处理 content-block 流式语法。
//
// 流式格式特点：
//   - 有显式事件类型（event: message_start 等）
//   - 内容块按 index 寻址，工具调用片段以块索引为累加键
//   - 无终止信号字符串（message_delta 携带 stop_reason + usage）
//
// 事件类型：
//   - message_start:        消息开始（可携带输入 token 用量）
//   - content_block_start:  内容块开始（文本/思考块外发，工具块入累加器）
//   - content_block_delta:  内容块增量（text_delta / thinking_delta /
//     input_json_delta / signature_delta）
//   - content_block_stop:   内容块结束（冲洗该索引的工具调用）
//   - message_delta:        终止事件（stop_reason + 输出 token 用量）
//   - message_stop:         消息结束（无内容，停止解析）
//   - ping:                 心跳（忽略）
type EventHandler struct{}

// NewEventHandler 创建 Claude 事件处理器
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// blockKey 块索引 → 累加器键
//
// 协议不在增量中携带调用 ID，用块索引关联同一工具调用的片段。
func blockKey(data map[string]any) string {
	return fmt.Sprintf("block-%d", int(core.GetFloat64(data["index"])))
}

// ═══════════════════════════════════════════════════════════════════════════
// HandleEvent - 处理流式事件
// ═══════════════════════════════════════════════════════════════════════════

// HandleEvent 处理 Claude 流式事件
func (h *EventHandler) HandleEvent(eventType string, data map[string]any) core.HandleResult {
	switch eventType {
	case "message_start":
		// 消息开始，提取输入 token 用量
		if usage := extractUsage(core.GetMap(core.GetMap(data["message"])["usage"])); usage != nil {
			return core.HandleResult{Events: []*unillm.UniEvent{{
				Role:  unillm.RoleAssistant,
				Type:  unillm.EventTypeStart,
				Usage: usage,
			}}}
		}
		return core.HandleResult{}

	case "content_block_start":
		block := core.GetMap(data["content_block"])
		switch core.GetString(block["type"]) {
		case "text":
			return core.HandleResult{Events: []*unillm.UniEvent{{
				Role:         unillm.RoleAssistant,
				Type:         unillm.EventTypeStart,
				ContentItems: []unillm.ContentItem{&unillm.TextItem{}},
			}}}
		case "thinking":
			return core.HandleResult{Events: []*unillm.UniEvent{{
				Role:         unillm.RoleAssistant,
				Type:         unillm.EventTypeStart,
				ContentItems: []unillm.ContentItem{&unillm.ThinkingItem{}},
			}}}
		case "tool_use":
			// 工具块进累加器，不外发
			return core.HandleResult{Fragments: []core.ToolCallFragment{{
				Key: blockKey(data),
				Item: &unillm.PartialToolCallItem{
					Name:       core.GetString(block["name"]),
					ToolCallID: core.GetString(block["id"]),
				},
			}}}
		}
		return core.HandleResult{}

	case "content_block_delta":
		delta := core.GetMap(data["delta"])
		switch core.GetString(delta["type"]) {
		case "text_delta":
			if text := core.GetString(delta["text"]); text != "" {
				return core.HandleResult{Events: []*unillm.UniEvent{{
					Role:         unillm.RoleAssistant,
					Type:         unillm.EventTypeDelta,
					ContentItems: []unillm.ContentItem{&unillm.TextItem{Text: text}},
				}}}
			}
		case "thinking_delta":
			if thinking := core.GetString(delta["thinking"]); thinking != "" {
				return core.HandleResult{Events: []*unillm.UniEvent{{
					Role:         unillm.RoleAssistant,
					Type:         unillm.EventTypeDelta,
					ContentItems: []unillm.ContentItem{&unillm.ThinkingItem{Thinking: thinking}},
				}}}
			}
		case "input_json_delta":
			if partial := core.GetString(delta["partial_json"]); partial != "" {
				return core.HandleResult{Fragments: []core.ToolCallFragment{{
					Key:  blockKey(data),
					Item: &unillm.PartialToolCallItem{Arguments: partial},
				}}}
			}
		case "signature_delta":
			// 思考块签名：空内容 + signature，封闭当前思考运行段
			if sig := core.GetString(delta["signature"]); sig != "" {
				return core.HandleResult{Events: []*unillm.UniEvent{{
					Role:         unillm.RoleAssistant,
					Type:         unillm.EventTypeDelta,
					ContentItems: []unillm.ContentItem{&unillm.ThinkingItem{Signature: sig}},
				}}}
			}
		}
		return core.HandleResult{}

	case "content_block_stop":
		// 冲洗该索引的工具调用（文本/思考块的键不在累加器中，无副作用）
		return core.HandleResult{Completed: []string{blockKey(data)}}

	case "message_delta":
		// 终止事件：stop_reason + 输出 token 用量
		ev := &unillm.UniEvent{
			Role: unillm.RoleAssistant,
			Type: unillm.EventTypeStop,
		}
		if delta := core.GetMap(data["delta"]); delta != nil {
			if stopReason := core.GetString(delta["stop_reason"]); stopReason != "" {
				ev.FinishReason = convertStopReason(stopReason)
			}
		}
		ev.Usage = extractUsage(core.GetMap(data["usage"]))
		if ev.FinishReason == "" && ev.Usage == nil {
			return core.HandleResult{}
		}
		return core.HandleResult{FlushAll: true, Events: []*unillm.UniEvent{ev}}

	case "message_stop":
		// 终止事件已由 message_delta 发出，这里只停止解析
		return core.HandleResult{Stop: true}

	default:
		// ping 及未知事件类型：unused，静默忽略
		return core.HandleResult{}
	}
}

// ShouldStopOnData content-block 协议不使用数据字符串终止信号
func (h *EventHandler) ShouldStopOnData(data string) bool {
	return false
}

// ═══════════════════════════════════════════════════════════════════════════
// 辅助函数
// ═══════════════════════════════════════════════════════════════════════════

// extractUsage 解析 usage 块
//
// 字段名：input_tokens / output_tokens / cache_read_input_tokens。
func extractUsage(usage map[string]any) *unillm.UsageMetadata {
	if usage == nil {
		return nil
	}
	return &unillm.UsageMetadata{
		PromptTokens:   core.GetInt64(usage["input_tokens"]),
		ResponseTokens: core.GetInt64(usage["output_tokens"]),
		CachedTokens:   core.GetInt64(usage["cache_read_input_tokens"]),
	}
}

// convertStopReason 转换 stop_reason 为规范 finish_reason
//
// 映射：
//   - end_turn / stop_sequence / tool_use -> stop
//   - max_tokens                          -> length
//   - 其他                                -> unknown
func convertStopReason(stopReason string) unillm.FinishReason {
	switch stopReason {
	case "end_turn", "stop_sequence", "tool_use":
		return unillm.FinishReasonStop
	case "max_tokens":
		return unillm.FinishReasonLength
	default:
		return unillm.FinishReasonUnknown
	}
}

// 确保 EventHandler 实现了 core.EventHandler 接口
var _ core.EventHandler = (*EventHandler)(nil)
