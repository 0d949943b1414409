package qwen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// Qwen SSE 事件处理器
// ═══════════════════════════════════════════════════════════════════════════

// 工具调用文本标记
//
// 部分 Qwen 部署（vLLM 工具解析器不稳定时）把工具调用当作
// <tool_call>{"name":...,"arguments":{...}}</tool_call> 纯文本发出。
const (
	toolCallOpen  = "<tool_call>"
	toolCallClose = "</tool_call>"
)

// EventHandler Qwen SSE 事件处理器
//
// 实现 core.EventHandler 接口，处理 chat-completion delta 语法的
// 分片工具调用变体。
//
// 流式格式特点：
//   - 无显式事件类型，总是 "data:" 前缀，[DONE] 终止
//   - 工具调用片段不带调用 ID，以 tool_calls 的 index 为累加键，
//     函数名只出现在首个片段上（累加器回填）
//   - <tool_call>/</tool_call> 文本标记协议：标记之间的文本缓冲，
//     闭合标记处解析为一次完整调用
//   - 思考增量在 reasoning_content（vLLM）或 reasoning（OpenRouter）
//   - usage 可能在单独的尾块上
//
// 标记协议的括号状态跨块存在，处理器实现 core.ResettableHandler，
// 每次解析开始时清零。同一处理器不支持并发流。
type EventHandler struct {
	inMarker  bool
	markerBuf strings.Builder
}

// NewEventHandler 创建 Qwen 事件处理器
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// Reset 清零标记协议状态
func (h *EventHandler) Reset() {
	h.inMarker = false
	h.markerBuf.Reset()
}

// ═══════════════════════════════════════════════════════════════════════════
// HandleEvent - 处理流式事件
// ═══════════════════════════════════════════════════════════════════════════

// HandleEvent 处理 Qwen 流式块
func (h *EventHandler) HandleEvent(eventType string, data map[string]any) core.HandleResult {
	var res core.HandleResult

	choices := core.GetSlice(data["choices"])
	if len(choices) > 0 {
		choice := core.GetMap(choices[0])
		delta := core.GetMap(choice["delta"])

		var items []unillm.ContentItem

		// 思考增量：两个兼容字段
		if thinking := core.GetString(delta["reasoning_content"]); thinking != "" {
			items = append(items, &unillm.ThinkingItem{Thinking: thinking})
		} else if thinking := core.GetString(delta["reasoning"]); thinking != "" {
			items = append(items, &unillm.ThinkingItem{Thinking: thinking})
		}

		// 文本增量：先过标记协议
		if content := core.GetString(delta["content"]); content != "" {
			switch {
			case content == toolCallOpen:
				h.inMarker = true
				h.markerBuf.Reset()
			case content == toolCallClose:
				h.inMarker = false
				if frag, key, ok := parseMarkerCall(h.markerBuf.String()); ok {
					res.Fragments = append(res.Fragments, core.ToolCallFragment{Key: key, Item: frag})
					res.Completed = append(res.Completed, key)
				}
				h.markerBuf.Reset()
			case h.inMarker:
				h.markerBuf.WriteString(content)
			default:
				items = append(items, &unillm.TextItem{Text: content})
			}
		}

		// 分片工具调用：index 为累加键，name 只在首片出现
		for _, tc := range core.GetSlice(delta["tool_calls"]) {
			call := core.GetMap(tc)
			fn := core.GetMap(call["function"])
			if fn == nil {
				continue
			}
			name := core.GetString(fn["name"])
			res.Fragments = append(res.Fragments, core.ToolCallFragment{
				Key: fmt.Sprintf("call-%d", core.GetInt64(call["index"])),
				Item: &unillm.PartialToolCallItem{
					Name:       name,
					Arguments:  core.GetString(fn["arguments"]),
					ToolCallID: name, // 协议无调用 ID，用函数名代替
				},
			})
		}

		if len(items) > 0 {
			res.Events = append(res.Events, &unillm.UniEvent{
				Role:         unillm.RoleAssistant,
				Type:         unillm.EventTypeDelta,
				ContentItems: items,
			})
		}

		// 末尾块：finish_reason 冲洗所有在途调用
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

	// usage 单独尾块
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

// parseMarkerCall 解析标记之间缓冲的 {"name","arguments"} JSON
//
// 解析失败时丢弃该次调用（残缺的标记内容无法归属到任何工具）。
func parseMarkerCall(buf string) (*unillm.PartialToolCallItem, string, bool) {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf)), &call); err != nil || call.Name == "" {
		return nil, "", false
	}
	return &unillm.PartialToolCallItem{
		Name:       call.Name,
		Arguments:  string(call.Arguments),
		ToolCallID: call.Name,
	}, call.Name, true
}

// extractUsage 解析 usage 块
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
var (
	_ core.EventHandler      = (*EventHandler)(nil)
	_ core.ResettableHandler = (*EventHandler)(nil)
)
