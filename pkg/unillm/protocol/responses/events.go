package responses

import (
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// Responses SSE 事件处理器
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler Responses API SSE 事件处理器
//
// 实现 core.EventHandler 接口，处理离散响应事件语法。
//
// 流式格式特点：
//   - 事件类型同时出现在 event: 行和数据体的 type 字段中
//   - 工具调用片段携带 call_id，以此为累加键；name 在 done 事件补齐
//   - response.completed 为终止事件（status + usage）
//
// 事件类型：
//   - response.output_text.delta:              文本增量
//   - response.reasoning_summary_text.delta:   思考摘要增量
//   - response.function_call_arguments.delta:  工具参数片段
//   - response.function_call_arguments.done:   单个工具调用完成（回填 name 并冲洗）
//   - response.completed:                      终止事件
//   - 其余（response.created / response.output_item.added 等）: unused
type EventHandler struct{}

// NewEventHandler 创建 Responses 事件处理器
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// ═══════════════════════════════════════════════════════════════════════════
// HandleEvent - 处理流式事件
// ═══════════════════════════════════════════════════════════════════════════

// HandleEvent 处理 Responses API 流式事件
func (h *EventHandler) HandleEvent(eventType string, data map[string]any) core.HandleResult {
	// event: 行缺失时回退到数据体的 type 字段
	if eventType == "" {
		eventType = core.GetString(data["type"])
	}

	switch eventType {
	case "response.output_text.delta":
		if text := core.GetString(data["delta"]); text != "" {
			return core.HandleResult{Events: []*unillm.UniEvent{{
				Role:         unillm.RoleAssistant,
				Type:         unillm.EventTypeDelta,
				ContentItems: []unillm.ContentItem{&unillm.TextItem{Text: text}},
			}}}
		}
		return core.HandleResult{}

	case "response.reasoning_summary_text.delta":
		if thinking := core.GetString(data["delta"]); thinking != "" {
			return core.HandleResult{Events: []*unillm.UniEvent{{
				Role:         unillm.RoleAssistant,
				Type:         unillm.EventTypeDelta,
				ContentItems: []unillm.ContentItem{&unillm.ThinkingItem{Thinking: thinking}},
			}}}
		}
		return core.HandleResult{}

	case "response.function_call_arguments.delta":
		callID := core.GetString(data["call_id"])
		if callID == "" {
			return core.HandleResult{}
		}
		return core.HandleResult{Fragments: []core.ToolCallFragment{{
			Key: callID,
			Item: &unillm.PartialToolCallItem{
				Name:       core.GetString(data["name"]),
				Arguments:  core.GetString(data["delta"]),
				ToolCallID: callID,
			},
		}}}

	case "response.function_call_arguments.done":
		callID := core.GetString(data["call_id"])
		if callID == "" {
			return core.HandleResult{}
		}
		// done 事件补齐 name，然后冲洗该调用
		return core.HandleResult{
			Fragments: []core.ToolCallFragment{{
				Key: callID,
				Item: &unillm.PartialToolCallItem{
					Name:       core.GetString(data["name"]),
					ToolCallID: callID,
				},
			}},
			Completed: []string{callID},
		}

	case "response.completed":
		resp := core.GetMap(data["response"])
		ev := &unillm.UniEvent{
			Role:         unillm.RoleAssistant,
			Type:         unillm.EventTypeStop,
			FinishReason: convertStatus(core.GetString(resp["status"])),
		}
		if usage := core.GetMap(resp["usage"]); usage != nil {
			ev.Usage = &unillm.UsageMetadata{
				PromptTokens:   core.GetInt64(usage["input_tokens"]),
				ResponseTokens: core.GetInt64(usage["output_tokens"]),
			}
			if details := core.GetMap(usage["output_tokens_details"]); details != nil {
				ev.Usage.ThoughtsTokens = core.GetInt64(details["reasoning_tokens"])
			}
			if details := core.GetMap(usage["input_tokens_details"]); details != nil {
				ev.Usage.CachedTokens = core.GetInt64(details["cached_tokens"])
			}
		}
		// 未经 done 事件的在途调用在终止边界统一冲洗
		return core.HandleResult{
			FlushAll: true,
			Events:   []*unillm.UniEvent{ev},
			Stop:     true,
		}

	default:
		// response.created / response.output_item.added 等：unused
		return core.HandleResult{}
	}
}

// ShouldStopOnData 离散响应事件协议不使用数据字符串终止信号
func (h *EventHandler) ShouldStopOnData(data string) bool {
	return false
}

// ═══════════════════════════════════════════════════════════════════════════
// 辅助函数
// ═══════════════════════════════════════════════════════════════════════════

// convertStatus 转换响应状态为规范 finish_reason
//
// 映射：
//   - completed  -> stop
//   - incomplete -> length
//   - 其他       -> unknown
func convertStatus(status string) unillm.FinishReason {
	switch status {
	case "completed":
		return unillm.FinishReasonStop
	case "incomplete":
		return unillm.FinishReasonLength
	default:
		return unillm.FinishReasonUnknown
	}
}

// 确保 EventHandler 实现了 core.EventHandler 接口
var _ core.EventHandler = (*EventHandler)(nil)
