package qwen

import (
	"io"
	"strings"
	"testing"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseStream(t *testing.T, handler *EventHandler, stream string) []*unillm.UniEvent {
	t.Helper()
	parser := core.NewSSEParser(handler)
	events := make(chan *unillm.UniEvent, 32)
	go parser.Parse(io.NopCloser(strings.NewReader(stream)), events)

	var out []*unillm.UniEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════
// 基础流解析测试
// ═══════════════════════════════════════════════════════════════════════════

func TestEventHandler_TextAndThinking(t *testing.T) {
	stream := `data: {"choices":[{"delta":{"reasoning_content":"think"}}]}
data: {"choices":[{"delta":{"content":"Hello"}}]}
data: {"choices":[{"delta":{"content":" World"}}]}
data: {"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":8}}
data: [DONE]
`

	events := parseStream(t, NewEventHandler(), stream)

	require.Len(t, events, 4)
	assert.Equal(t, "think", events[0].ContentItems[0].(*unillm.ThinkingItem).Thinking)
	assert.Equal(t, "Hello", events[1].Text())
	assert.Equal(t, " World", events[2].Text())
	assert.Equal(t, unillm.FinishReasonStop, events[3].FinishReason)
	require.NotNil(t, events[3].Usage)
	assert.Equal(t, int64(8), events[3].Usage.ResponseTokens)
}

func TestEventHandler_ReasoningFieldFallback(t *testing.T) {
	// OpenRouter 部署把思考放在 reasoning 字段
	stream := `data: {"choices":[{"delta":{"reasoning":"alt field"}}]}
data: {"choices":[{"delta":{},"finish_reason":"stop"}]}
data: [DONE]
`

	events := parseStream(t, NewEventHandler(), stream)

	require.Len(t, events, 2)
	assert.Equal(t, "alt field", events[0].ContentItems[0].(*unillm.ThinkingItem).Thinking)
}

func TestEventHandler_SeparateUsageTail(t *testing.T) {
	// usage 在 finish_reason 之后的独立尾块（choices 为空）
	stream := `data: {"choices":[{"delta":{"content":"hi"}}]}
data: {"choices":[{"delta":{},"finish_reason":"stop"}]}
data: {"choices":[],"usage":{"prompt_tokens":3,"completion_tokens":2}}
data: [DONE]
`

	events := parseStream(t, NewEventHandler(), stream)

	require.Len(t, events, 3)
	last := events[2]
	require.NotNil(t, last.Usage)
	assert.Equal(t, int64(3), last.Usage.PromptTokens)
	assert.NoError(t, last.Err)
}

// ═══════════════════════════════════════════════════════════════════════════
// 分片工具调用测试
// ═══════════════════════════════════════════════════════════════════════════

func TestEventHandler_FragmentedToolCall(t *testing.T) {
	// 函数名只在首片出现，参数逐片到达，finish_reason 边界冲洗
	stream := `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"name":"get_weather","arguments":""}}]}}]}
data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"loc"}}]}}]}
data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"ation\":\"SF\"}"}}]}}]}
data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}],"usage":{"completion_tokens":6}}
data: [DONE]
`

	events := parseStream(t, NewEventHandler(), stream)

	require.Len(t, events, 2)

	call, ok := events[0].ContentItems[0].(*unillm.ToolCallItem)
	require.True(t, ok)
	assert.Equal(t, "get_weather", call.Name)
	assert.Equal(t, "get_weather", call.ToolCallID)
	assert.Equal(t, map[string]any{"location": "SF"}, call.Arguments)

	// tool_calls 终止归一为 stop
	assert.Equal(t, unillm.FinishReasonStop, events[1].FinishReason)
}

func TestEventHandler_MultipleToolCallsByIndex(t *testing.T) {
	stream := `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"name":"tool_a","arguments":"{}"}}]}}]}
data: {"choices":[{"delta":{"tool_calls":[{"index":1,"function":{"name":"tool_b","arguments":"{}"}}]}}]}
data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}
data: [DONE]
`

	events := parseStream(t, NewEventHandler(), stream)

	require.Len(t, events, 3)
	assert.Equal(t, "tool_a", events[0].ContentItems[0].(*unillm.ToolCallItem).Name)
	assert.Equal(t, "tool_b", events[1].ContentItems[0].(*unillm.ToolCallItem).Name)
}

// ═══════════════════════════════════════════════════════════════════════════
// 文本标记协议测试
// ═══════════════════════════════════════════════════════════════════════════

func TestEventHandler_MarkerProtocol(t *testing.T) {
	// <tool_call> 与 </tool_call> 之间的文本缓冲为一次完整调用
	stream := `data: {"choices":[{"delta":{"content":"<tool_call>"}}]}
data: {"choices":[{"delta":{"content":"{\"name\":\"get_weather\","}}]}
data: {"choices":[{"delta":{"content":"\"arguments\":{\"location\":\"SF\"}}"}}]}
data: {"choices":[{"delta":{"content":"</tool_call>"}}]}
data: {"choices":[{"delta":{},"finish_reason":"stop"}]}
data: [DONE]
`

	events := parseStream(t, NewEventHandler(), stream)

	require.Len(t, events, 2)
	call, ok := events[0].ContentItems[0].(*unillm.ToolCallItem)
	require.True(t, ok)
	assert.Equal(t, "get_weather", call.Name)
	assert.Equal(t, map[string]any{"location": "SF"}, call.Arguments)
	assert.Equal(t, unillm.FinishReasonStop, events[1].FinishReason)
}

func TestEventHandler_MarkerTextNotLeaked(t *testing.T) {
	// 标记内的文本绝不作为普通文本外发
	stream := `data: {"choices":[{"delta":{"content":"before "}}]}
data: {"choices":[{"delta":{"content":"<tool_call>"}}]}
data: {"choices":[{"delta":{"content":"{\"name\":\"t\",\"arguments\":{}}"}}]}
data: {"choices":[{"delta":{"content":"</tool_call>"}}]}
data: {"choices":[{"delta":{"content":" after"}}]}
data: {"choices":[{"delta":{},"finish_reason":"stop"}]}
data: [DONE]
`

	events := parseStream(t, NewEventHandler(), stream)

	var text strings.Builder
	for _, ev := range events {
		text.WriteString(ev.Text())
	}
	assert.Equal(t, "before  after", text.String())
}

func TestEventHandler_MalformedMarkerDropped(t *testing.T) {
	// 标记内容解析失败时丢弃该调用，流继续
	stream := `data: {"choices":[{"delta":{"content":"<tool_call>"}}]}
data: {"choices":[{"delta":{"content":"not json"}}]}
data: {"choices":[{"delta":{"content":"</tool_call>"}}]}
data: {"choices":[{"delta":{"content":"ok"}}]}
data: {"choices":[{"delta":{},"finish_reason":"stop"}]}
data: [DONE]
`

	events := parseStream(t, NewEventHandler(), stream)

	require.Len(t, events, 2)
	assert.Equal(t, "ok", events[0].Text())
}

func TestEventHandler_MarkerStateResetBetweenStreams(t *testing.T) {
	// 上一条流在标记内部断掉，下一条流不受污染
	handler := NewEventHandler()

	truncated := `data: {"choices":[{"delta":{"content":"<tool_call>"}}]}
data: {"choices":[{"delta":{"content":"{\"name\":\"hung"}}]}
`
	_ = parseStream(t, handler, truncated)

	clean := `data: {"choices":[{"delta":{"content":"plain text"}}]}
data: {"choices":[{"delta":{},"finish_reason":"stop"}]}
data: [DONE]
`
	events := parseStream(t, handler, clean)

	require.Len(t, events, 2)
	assert.Equal(t, "plain text", events[0].Text())
}

// ═══════════════════════════════════════════════════════════════════════════
// finish_reason 映射测试
// ═══════════════════════════════════════════════════════════════════════════

func TestConvertFinishReason(t *testing.T) {
	assert.Equal(t, unillm.FinishReasonStop, convertFinishReason("stop"))
	assert.Equal(t, unillm.FinishReasonStop, convertFinishReason("tool_calls"))
	assert.Equal(t, unillm.FinishReasonStop, convertFinishReason("content_filter"))
	assert.Equal(t, unillm.FinishReasonLength, convertFinishReason("length"))
	assert.Equal(t, unillm.FinishReasonUnknown, convertFinishReason("insufficient_system_resource"))
}
