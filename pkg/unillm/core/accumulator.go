package core

import (
	"encoding/json"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 工具调用片段累加器
// ═══════════════════════════════════════════════════════════════════════════

// Accumulator 工具调用片段累加器
//
// 厂商将工具调用参数拆成任意粒度的 JSON 字符串片段（逐字符到整段不等），
// 累加器按键归并这些片段，在完成信号到达时解析为完整的工具调用。
//
// 键的选择由事件处理器决定：
//   - 有调用 ID 的厂商用 tool_call_id
//   - 按块索引分发的厂商用块索引派生键
//   - 只按函数名分片的厂商用函数名
//
// 同一轮内多个在途调用按键独立跟踪；完成调用的发射顺序
// 跟随各自完成信号的到达顺序，而非开始顺序。
//
// 非并发安全：每次 stream 调用持有独立实例，用完即弃。
type Accumulator struct {
	entries map[string]*unillm.PartialToolCallItem
	order   []string
}

// NewAccumulator 创建累加器
func NewAccumulator() *Accumulator {
	return &Accumulator{
		entries: make(map[string]*unillm.PartialToolCallItem),
	}
}

// Feed 按键喂入一个片段
//
// 首次出现的键初始化条目；后续片段将 arguments 追加到缓冲区。
// 片段携带的 name/tool_call_id 若此前未知则回填
// （厂商在不同时机补齐这些字段）。
func (a *Accumulator) Feed(key string, frag *unillm.PartialToolCallItem) {
	entry, ok := a.entries[key]
	if !ok {
		entry = &unillm.PartialToolCallItem{}
		a.entries[key] = entry
		a.order = append(a.order, key)
	}
	if frag == nil {
		return
	}
	entry.Arguments += frag.Arguments
	if entry.Name == "" && frag.Name != "" {
		entry.Name = frag.Name
	}
	if entry.ToolCallID == "" && frag.ToolCallID != "" {
		entry.ToolCallID = frag.ToolCallID
	}
}

// Flush 按键取出完成的工具调用并丢弃缓冲条目
//
// 参数缓冲区解析为 JSON 对象；解析失败时回退为空对象 {}，
// 不报错（流在参数中途被掐断是已知的厂商故障模式，不算调用方缺陷）。
// 键不存在时返回 (nil, false)。
func (a *Accumulator) Flush(key string) (*unillm.ToolCallItem, bool) {
	entry, ok := a.entries[key]
	if !ok {
		return nil, false
	}
	delete(a.entries, key)
	for i, k := range a.order {
		if k == key {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}

	args := map[string]any{}
	if entry.Arguments != "" {
		if err := json.Unmarshal([]byte(entry.Arguments), &args); err != nil {
			args = map[string]any{}
		}
	}
	return &unillm.ToolCallItem{
		Name:       entry.Name,
		Arguments:  args,
		ToolCallID: entry.ToolCallID,
	}, true
}

// FlushAll 取出所有在途工具调用（按喂入顺序）并清空累加器
//
// 用于不发送逐调用完成信号的厂商：终止边界统一冲洗。
func (a *Accumulator) FlushAll() []*unillm.ToolCallItem {
	if len(a.order) == 0 {
		return nil
	}
	keys := make([]string, len(a.order))
	copy(keys, a.order)

	items := make([]*unillm.ToolCallItem, 0, len(keys))
	for _, key := range keys {
		if item, ok := a.Flush(key); ok {
			items = append(items, item)
		}
	}
	return items
}

// Len 返回在途调用数量
func (a *Accumulator) Len() int {
	return len(a.entries)
}
