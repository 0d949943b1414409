package unillm

// ═══════════════════════════════════════════════════════════════════════════
// 事件合并：将流式事件序列折叠为单条完整消息
// ═══════════════════════════════════════════════════════════════════════════

// Concat 将一段流式事件合并为一条 UniMessage
//
// 合并规则：
//   - 相邻的文本片段拼接为单个 TextItem，相邻的思考片段拼接为单个 ThinkingItem；
//     携带非空 signature 的片段会封闭当前运行段，其后的同类片段开启新段
//   - 完整的工具调用（ToolCallItem）原样保留，保持到达顺序
//   - 未完成的工具调用片段（PartialToolCallItem）丢弃，不进入最终消息
//   - usage 与 finish_reason 取最后一个携带它们的事件
//   - EventTypeUnused 的事件跳过
//
// 对已合并的结果再次 Concat 不改变内容（幂等）。
func Concat(events []*UniEvent) *UniMessage {
	msg := &UniMessage{
		Role:         RoleAssistant,
		ContentItems: make([]ContentItem, 0, 4),
	}

	for _, ev := range events {
		if ev == nil || ev.Type == EventTypeUnused {
			continue
		}
		for _, item := range ev.ContentItems {
			appendItem(msg, item)
		}
		if ev.Usage != nil {
			msg.Usage = ev.Usage
		}
		if ev.FinishReason != "" {
			msg.FinishReason = ev.FinishReason
		}
	}

	return msg
}

// appendItem 将单个内容项并入消息，相邻同类片段做拼接
func appendItem(msg *UniMessage, item ContentItem) {
	switch it := item.(type) {
	case *TextItem:
		if it.Text == "" && it.Signature == "" {
			return
		}
		// signature 非空的段已封闭，不再接收后续片段
		if last, ok := lastItem[*TextItem](msg); ok && last.Signature == "" {
			last.Text += it.Text
			last.Signature = it.Signature
			return
		}
		msg.ContentItems = append(msg.ContentItems, &TextItem{Text: it.Text, Signature: it.Signature})

	case *ThinkingItem:
		if it.Thinking == "" && it.Signature == "" {
			return
		}
		if last, ok := lastItem[*ThinkingItem](msg); ok && last.Signature == "" {
			last.Thinking += it.Thinking
			last.Signature = it.Signature
			return
		}
		msg.ContentItems = append(msg.ContentItems, &ThinkingItem{Thinking: it.Thinking, Signature: it.Signature})

	case *ToolCallItem:
		msg.ContentItems = append(msg.ContentItems, it)

	case *PartialToolCallItem:
		// 未完成片段不落入最终消息

	default:
		msg.ContentItems = append(msg.ContentItems, item)
	}
}

// lastItem 返回消息尾部的内容项（若类型匹配）
func lastItem[T ContentItem](msg *UniMessage) (T, bool) {
	var zero T
	if len(msg.ContentItems) == 0 {
		return zero, false
	}
	last, ok := msg.ContentItems[len(msg.ContentItems)-1].(T)
	return last, ok
}
