package core

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
)

// ═══════════════════════════════════════════════════════════════════════════
// SSE 事件处理器接口
// ═══════════════════════════════════════════════════════════════════════════

// ToolCallFragment 工具调用片段及其累加键
type ToolCallFragment struct {
	// Key 累加器键（tool_call_id、块索引派生键或函数名）
	Key string

	// Item 片段内容
	Item *unillm.PartialToolCallItem
}

// HandleResult 单个 SSE 事件的处理结果
//
// 事件处理器保持无状态：片段累加由解析器持有的 [Accumulator] 完成，
// 处理器只声明"发生了什么"。
type HandleResult struct {
	// Events 可直接向外发射的规范事件
	Events []*unillm.UniEvent

	// Fragments 需要喂给累加器的工具调用片段
	Fragments []ToolCallFragment

	// Completed 本事件宣告完成的累加键（触发逐键冲洗）
	Completed []string

	// FlushAll 冲洗所有在途片段（用于不发送逐调用完成信号的厂商）
	FlushAll bool

	// Stop 停止解析
	Stop bool
}

// EventHandler SSE 事件处理器接口
//
// 每个协议实现此接口来处理其特有的 SSE 事件语法。
//
// 设计原则：
//   - 无状态：每个厂商块独立映射，累加状态由解析器持有
//   - 协议差异显式化：不同的事件语法通过独立实现体现
//   - 零假设：不假设事件格式，由实现者定义
//
// 协议差异示例：
//   - chat-completion 风格：无显式事件类型，总是 "data:" 前缀，[DONE] 终止
//   - content-block 风格：有显式事件类型（event:），按类型驱动处理
//   - 离散响应事件风格：事件类型在数据体的 type 字段中
type EventHandler interface {
	// HandleEvent 处理单个 SSE 事件
	//
	// 参数：
	//   - eventType: "event:" 行携带的事件类型（无此机制的协议为空）
	//   - data: 已解析的事件数据 map
	//
	// 实现要点：
	//   - 无法识别的事件类型映射为 EventTypeUnused 事件（会被过滤），不报错
	//   - 工具调用片段放入 Fragments，不放入 Events
	HandleEvent(eventType string, data map[string]any) HandleResult

	// ShouldStopOnData 检查是否应在特定原始数据行时停止
	//
	// chat-completion 风格协议检查 data == "[DONE]"；
	// 其他协议总是返回 false。
	ShouldStopOnData(data string) bool
}

// ResettableHandler 可选接口：携带跨块状态的处理器
// （如文本标记协议的括号状态）在每次解析开始时重置。
type ResettableHandler interface {
	Reset()
}

// ═══════════════════════════════════════════════════════════════════════════
// SSE 解析器
// ═══════════════════════════════════════════════════════════════════════════

// SSEParser SSE (Server-Sent Events) 解析器
//
// 职责：
//   - 解析 SSE 流格式（event:/data: 行）
//   - 委托 EventHandler 做协议特定的事件映射
//   - 持有每次解析独立的 [Accumulator]，编排片段累加与冲洗
//   - 终止完整性守卫：流结束时未见终止事件则报静默截断错误
//
// 发射规则：
//   - 文本/思考增量立即发射
//   - 工具调用仅在完成后作为整体发射，构建它的片段不外发
//   - EventTypeUnused 的事件被过滤，不进入 channel
//   - 冲洗出的工具调用先于同一事件携带的终止事件发射
//
// 使用示例：
//
//	parser := core.NewSSEParser(handler)
//	events := make(chan *unillm.UniEvent, 10)
//	go parser.Parse(resp.RawBody(), events)
type SSEParser struct {
	handler EventHandler
}

// NewSSEParser 创建 SSE 解析器
func NewSSEParser(handler EventHandler) *SSEParser {
	return &SSEParser{handler: handler}
}

// Parse 解析 SSE 流
//
// 行为：
//   - 自动关闭 body 与 events channel
//   - JSON 解析失败的行静默忽略
//   - 流结束时最后未观察到终止事件（usage 或 finish_reason），
//     发射一个携带 StreamError 的事件
//
// 此方法应在 goroutine 中调用；channel 缓冲区建议 10。
func (p *SSEParser) Parse(body io.ReadCloser, events chan<- *unillm.UniEvent) {
	defer func() { _ = body.Close() }()
	defer close(events)

	if r, ok := p.handler.(ResettableHandler); ok {
		r.Reset()
	}

	acc := NewAccumulator()
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var currentEvent string
	lastTerminal := false

	emit := func(ev *unillm.UniEvent) {
		if ev == nil || ev.Type == unillm.EventTypeUnused {
			return
		}
		// 守卫只看最后一个事件：厂商可能在流中途提前携带 usage
		lastTerminal = ev.IsTerminal()
		events <- ev
	}

	for scanner.Scan() {
		line := scanner.Text()

		// 解析事件类型行
		// 格式: event: message_start
		if after, ok := strings.CutPrefix(line, "event: "); ok {
			currentEvent = after
			continue
		}

		// 解析数据行
		// 格式: data: {"key": "value"}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		// 检查终止信号（chat-completion 风格的 [DONE]）
		if p.handler.ShouldStopOnData(data) {
			break
		}

		// 解析 JSON 数据
		var payload map[string]any
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			continue
		}

		res := p.handler.HandleEvent(currentEvent, payload)

		// 1. 片段喂入累加器
		for _, frag := range res.Fragments {
			acc.Feed(frag.Key, frag.Item)
		}

		// 2. 逐键冲洗完成的工具调用
		for _, key := range res.Completed {
			if item, ok := acc.Flush(key); ok {
				emit(&unillm.UniEvent{
					Role:         unillm.RoleAssistant,
					Type:         unillm.EventTypeDelta,
					ContentItems: []unillm.ContentItem{item},
				})
			}
		}

		// 3. 终止边界统一冲洗（先于终止事件本身）
		if res.FlushAll {
			for _, item := range acc.FlushAll() {
				emit(&unillm.UniEvent{
					Role:         unillm.RoleAssistant,
					Type:         unillm.EventTypeDelta,
					ContentItems: []unillm.ContentItem{item},
				})
			}
		}

		// 4. 发射处理器产出的事件
		for _, ev := range res.Events {
			emit(ev)
		}

		if res.Stop {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		events <- &unillm.UniEvent{
			Role: unillm.RoleAssistant,
			Type: unillm.EventTypeStop,
			Err:  unillm.NewStreamError("read stream", err),
		}
		return
	}

	// 终止完整性守卫：静默截断显式报错，不当作正常完成
	if !lastTerminal {
		events <- &unillm.UniEvent{
			Role: unillm.RoleAssistant,
			Type: unillm.EventTypeStop,
			Err:  unillm.NewTruncatedStreamError(),
		}
	}
}
