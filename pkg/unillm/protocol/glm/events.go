package glm

import (
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// GLM SSE 事件处理器
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler GLM SSE 事件处理器
//
// 实现 core.EventHandler 接口，处理 chat-completion delta 语法。
//
// 流式格式特点：
//   - 无显式事件类型，总是 "data:" 前缀，[DONE] 终止
//   - 工具调用整体到达：单个 delta 同时携带 id、name 和完整参数 JSON，
//     仍经累加器走喂入+冲洗，与分片厂商共用同一条发射路径
//   - 思考内容在 delta.reasoning_content
//   - usage 在携带 finish_reason 的末尾块（或单独的尾块）上
type EventHandler struct{}

// NewEventHandler 创建 GLM 事件处理器
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// ═══════════════════════════════════════════════════════════════════════════
// HandleEvent - 处理流式事件
// ═══════════════════════════════════════════════════════════════════════════

// HandleEvent 处理 GLM 流式块
func (h *EventHandler) HandleEvent(eventType string, data map[string]any) core.HandleResult {
	var res core.HandleResult

	choices := core.GetSlice(data["choices"])
	if len(choices) > 0 {
		choice := core.GetMap(choices[0])
		delta := core.GetMap(choice["delta"])

		var items []unillm.ContentItem

		// 思考增量
		if thinking := core.GetString(delta["reasoning_content"]); thinking != "" {
			items = append(items, &unillm.ThinkingItem{Thinking: thinking})
		}

		// 文本增量
		if text := core.GetString(delta["content"]); text != "" {
			items = append(items, &unillm.TextItem{Text: text})
		}

		// 一次性完整工具调用：同块喂入并冲洗
		for _, tc := range core.GetSlice(delta["tool_calls"]) {
			call := core.GetMap(tc)
			fn := core.GetMap(call["function"])
			id := core.GetString(call["id"])
			if id == "" || fn == nil {
				continue
			}
			res.Fragments = append(res.Fragments, core.ToolCallFragment{
				Key: id,
				Item: &unillm.PartialToolCallItem{
					Name:       core.GetString(fn["name"]),
					Arguments:  core.GetString(fn["arguments"]),
					ToolCallID: id,
				},
			})
			res.Completed = append(res.Completed, id)
		}

		if len(items) > 0 {
			res.Events = append(res.Events, &unillm.UniEvent{
				Role:         unillm.RoleAssistant,
				Type:         unillm.EventTypeDelta,
				ContentItems: items,
			})
		}

		// 末尾块：finish_reason + usage
		if finish := core.GetString(choice["finish_reason"]); finish != "" {
			res.FlushAll = true
			res.Events = append(res.Events, &unillm.UniEvent{
				Role:         unillm.RoleAssistant,
				Type:         unillm.EventTypeStop,
				FinishReason: convertFinishReason(finish),
				Usage:        extractUsage(core.GetMap(data["usage"])),
			})
			return res
		}
	}

	// usage 单独尾块（choices 为空）
	if usage := extractUsage(core.GetMap(data["usage"])); usage != nil && len(res.Events) == 0 {
		res.Events = append(res.Events, &unillm.UniEvent{
			Role:  unillm.RoleAssistant,
			Type:  unillm.EventTypeStop,
			Usage: usage,
		})
	}

	return res
}

// ShouldStopOnData 检查 [DONE] 终止信号
func (h *EventHandler) ShouldStopOnData(data string) bool {
	return data == "[DONE]"
}

// ═══════════════════════════════════════════════════════════════════════════
// 辅助函数
// ═══════════════════════════════════════════════════════════════════════════

// extractUsage 解析 usage 块
//
// 字段名：prompt_tokens / completion_tokens /
// completion_tokens_details.reasoning_tokens / prompt_tokens_details.cached_tokens。
func extractUsage(usage map[string]any) *unillm.UsageMetadata {
	if usage == nil {
		return nil
	}
	result := &unillm.UsageMetadata{
		PromptTokens:   core.GetInt64(usage["prompt_tokens"]),
		ResponseTokens: core.GetInt64(usage["completion_tokens"]),
	}
	if details := core.GetMap(usage["completion_tokens_details"]); details != nil {
		result.ThoughtsTokens = core.GetInt64(details["reasoning_tokens"])
	}
	if details := core.GetMap(usage["prompt_tokens_details"]); details != nil {
		result.CachedTokens = core.GetInt64(details["cached_tokens"])
	}
	return result
}

// convertFinishReason 转换 finish_reason 为规范值
//
// 映射：
//   - stop / tool_calls / content_filter -> stop
//   - length                             -> length
//   - 其他                               -> unknown
func convertFinishReason(reason string) unillm.FinishReason {
	switch reason {
	case "stop", "tool_calls", "content_filter":
		return unillm.FinishReasonStop
	case "length":
		return unillm.FinishReasonLength
	default:
		return unillm.FinishReasonUnknown
	}
}

// 确保 EventHandler 实现了 core.EventHandler 接口
var _ core.EventHandler = (*EventHandler)(nil)
