package unillm

// ═══════════════════════════════════════════════════════════════════════════
// 事件类型 - 统一的流式事件系统
// ═══════════════════════════════════════════════════════════════════════════

// EventType 流式事件类型
type EventType string

const (
	EventTypeStart  EventType = "start"  // 内容块开始
	EventTypeDelta  EventType = "delta"  // 内容增量
	EventTypeStop   EventType = "stop"   // 消息级终止（携带 usage / finish_reason）
	EventTypeUnused EventType = "unused" // 管理性事件，送达调用方前被过滤
)

// FinishReason 标准化完成原因
//
// 封闭集合：所有厂商特有的终止原因（tool_use、content_filter、
// stop_sequence、incomplete 等）都映射到这三个值之一。
type FinishReason string

const (
	FinishReasonStop    FinishReason = "stop"
	FinishReasonLength  FinishReason = "length"
	FinishReasonUnknown FinishReason = "unknown"
)

// ═══════════════════════════════════════════════════════════════════════════
// Token 使用量
// ═══════════════════════════════════════════════════════════════════════════

// UsageMetadata Token 使用量
//
// 各字段独立可缺：厂商在流中不同时点填充不同字段，
// 有的只在终止事件上给出完整数据。整体以 *UsageMetadata 携带，
// nil 表示厂商尚未报告。
type UsageMetadata struct {
	PromptTokens   int64 `json:"prompt_tokens,omitempty"`
	ThoughtsTokens int64 `json:"thoughts_tokens,omitempty"`
	ResponseTokens int64 `json:"response_tokens,omitempty"`
	CachedTokens   int64 `json:"cached_tokens,omitempty"`
}

// ═══════════════════════════════════════════════════════════════════════════
// 统一流式事件
// ═══════════════════════════════════════════════════════════════════════════

// UniEvent 统一流式事件
//
// 每个厂商 chunk 产生一个事件，由调用方和/或 Session 即刻消费。
//
// 使用示例：
//
//	for event := range stream {
//	    if event.Err != nil {
//	        return event.Err
//	    }
//	    for _, item := range event.ContentItems {
//	        if t, ok := item.(*unillm.TextItem); ok {
//	            fmt.Print(t.Text)
//	        }
//	    }
//	}
type UniEvent struct {
	Role         Role           `json:"role"`
	Type         EventType      `json:"event_type"`
	ContentItems []ContentItem  `json:"content_items"`
	Usage        *UsageMetadata `json:"usage_metadata,omitempty"`
	FinishReason FinishReason   `json:"finish_reason,omitempty"`

	// Err 流级错误（不序列化）。携带 Err 的事件是该流的最后一个事件。
	Err error `json:"-"`
}

// Text 拼接事件中所有文本条目
func (e *UniEvent) Text() string {
	var out string
	for _, item := range e.ContentItems {
		if t, ok := item.(*TextItem); ok {
			out += t.Text
		}
	}
	return out
}

// IsTerminal 检查事件是否携带终止信息
func (e *UniEvent) IsTerminal() bool {
	return e.FinishReason != "" || e.Usage != nil
}
