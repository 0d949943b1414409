package glm

import (
	"io"
	"strings"
	"testing"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseStream(t *testing.T, stream string) []*unillm.UniEvent {
	t.Helper()
	parser := core.NewSSEParser(NewEventHandler())
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

func TestEventHandler_TextStream(t *testing.T) {
	stream := `data: {"choices":[{"delta":{"role":"assistant","content":"你好"}}]}
data: {"choices":[{"delta":{"content":"，世界"}}]}
data: {"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":4,"completion_tokens":6}}
data: [DONE]
`

	events := parseStream(t, stream)

	require.Len(t, events, 3)
	assert.Equal(t, "你好", events[0].Text())
	assert.Equal(t, "，世界", events[1].Text())
	assert.Equal(t, unillm.FinishReasonStop, events[2].FinishReason)
	require.NotNil(t, events[2].Usage)
	assert.Equal(t, int64(6), events[2].Usage.ResponseTokens)
}

func TestEventHandler_ThinkingDelta(t *testing.T) {
	stream := `data: {"choices":[{"delta":{"reasoning_content":"分析中"}}]}
data: {"choices":[{"delta":{"content":"结论"}}]}
data: {"choices":[{"delta":{},"finish_reason":"stop"}]}
data: [DONE]
`

	events := parseStream(t, stream)

	require.Len(t, events, 3)
	assert.Equal(t, "分析中", events[0].ContentItems[0].(*unillm.ThinkingItem).Thinking)
	assert.Equal(t, "结论", events[1].Text())
}

// ═══════════════════════════════════════════════════════════════════════════
// 一次性工具调用测试
// ═══════════════════════════════════════════════════════════════════════════

func TestEventHandler_OneShotToolCall(t *testing.T) {
	// GLM 在单个 delta 中携带完整调用：同块喂入并冲洗
	stream := `data: {"choices":[{"delta":{"tool_calls":[{"id":"call_abc","function":{"name":"get_weather","arguments":"{\"location\":\"SF\"}"}}]}}]}
data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}],"usage":{"completion_tokens":9}}
data: [DONE]
`

	events := parseStream(t, stream)

	require.Len(t, events, 2)
	call, ok := events[0].ContentItems[0].(*unillm.ToolCallItem)
	require.True(t, ok)
	assert.Equal(t, "get_weather", call.Name)
	assert.Equal(t, "call_abc", call.ToolCallID)
	assert.Equal(t, map[string]any{"location": "SF"}, call.Arguments)
	assert.Equal(t, unillm.FinishReasonStop, events[1].FinishReason)
}

func TestEventHandler_ToolCallWithoutIDSkipped(t *testing.T) {
	stream := `data: {"choices":[{"delta":{"tool_calls":[{"function":{"name":"no_id","arguments":"{}"}}]}}]}
data: {"choices":[{"delta":{},"finish_reason":"stop"}]}
data: [DONE]
`

	events := parseStream(t, stream)

	require.Len(t, events, 1)
	assert.Equal(t, unillm.FinishReasonStop, events[0].FinishReason)
}

// ═══════════════════════════════════════════════════════════════════════════
// usage 尾块测试
// ═══════════════════════════════════════════════════════════════════════════

func TestEventHandler_SeparateUsageTail(t *testing.T) {
	stream := `data: {"choices":[{"delta":{"content":"hi"}}]}
data: {"choices":[{"delta":{},"finish_reason":"stop"}]}
data: {"choices":[],"usage":{"prompt_tokens":2,"completion_tokens":1,"prompt_tokens_details":{"cached_tokens":2}}}
data: [DONE]
`

	events := parseStream(t, stream)

	require.Len(t, events, 3)
	last := events[2]
	require.NotNil(t, last.Usage)
	assert.Equal(t, int64(2), last.Usage.CachedTokens)
	assert.NoError(t, last.Err)
}

func TestEventHandler_TruncatedStream(t *testing.T) {
	stream := `data: {"choices":[{"delta":{"content":"partial"}}]}
`

	events := parseStream(t, stream)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Error(t, last.Err)
	assert.True(t, unillm.IsStreamError(last.Err))
}

// ═══════════════════════════════════════════════════════════════════════════
// finish_reason 映射测试
// ═══════════════════════════════════════════════════════════════════════════

func TestConvertFinishReason(t *testing.T) {
	assert.Equal(t, unillm.FinishReasonStop, convertFinishReason("stop"))
	assert.Equal(t, unillm.FinishReasonStop, convertFinishReason("tool_calls"))
	assert.Equal(t, unillm.FinishReasonStop, convertFinishReason("content_filter"))
	assert.Equal(t, unillm.FinishReasonLength, convertFinishReason("length"))
	assert.Equal(t, unillm.FinishReasonUnknown, convertFinishReason("sensitive"))
}
