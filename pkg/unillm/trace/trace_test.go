package trace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHistory() []*unillm.UniMessage {
	return []*unillm.UniMessage{
		unillm.NewUserMessage("weather in SF?"),
		{
			Role: unillm.RoleAssistant,
			ContentItems: []unillm.ContentItem{
				&unillm.ThinkingItem{Thinking: "need the weather tool"},
				&unillm.TextItem{Text: "let me check"},
				&unillm.ToolCallItem{
					Name:       "get_weather",
					ToolCallID: "call_1",
					Arguments:  map[string]any{"location": "SF"},
				},
			},
			Usage:        &unillm.UsageMetadata{PromptTokens: 12, ResponseTokens: 9},
			FinishReason: unillm.FinishReasonStop,
		},
		unillm.NewToolResultMessage("call_1", "sunny"),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Tracer 测试
// ═══════════════════════════════════════════════════════════════════════════

func TestNewTracer_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traces")

	tracer, err := NewTracer(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, tracer.Dir)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewTracer_EnvFallback(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "from-env")
	t.Setenv("UNILLM_CACHE_DIR", dir)

	tracer, err := NewTracer("")

	require.NoError(t, err)
	assert.Equal(t, dir, tracer.Dir)
}

func TestSaveHistory_WritesJSONAndText(t *testing.T) {
	tracer, err := NewTracer(t.TempDir())
	require.NoError(t, err)

	cfg := &unillm.UniConfig{MaxTokens: 512, TraceID: "trace-1"}
	require.NoError(t, tracer.SaveHistory("glm-4.5", sampleHistory(), "trace-1", cfg))

	// JSON 侧：history / config / timestamp 三段
	data, err := os.ReadFile(filepath.Join(tracer.Dir, "trace-1.json"))
	require.NoError(t, err)

	var doc struct {
		History   []map[string]any `json:"history"`
		Config    map[string]any   `json:"config"`
		Timestamp string           `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.History, 3)
	assert.Equal(t, "glm-4.5", doc.Config["model"])
	assert.Equal(t, float64(512), doc.Config["max_tokens"])
	assert.NotEmpty(t, doc.Timestamp)

	// 接口条目带 type 标签
	items := doc.History[1]["content_items"].([]any)
	require.Len(t, items, 3)
	assert.Equal(t, "thinking", items[0].(map[string]any)["type"])
	assert.Equal(t, "text", items[1].(map[string]any)["type"])
	assert.Equal(t, "tool_call", items[2].(map[string]any)["type"])

	// 文本侧：分节可读格式
	text, err := os.ReadFile(filepath.Join(tracer.Dir, "trace-1.txt"))
	require.NoError(t, err)
	content := string(text)

	assert.Contains(t, content, strings.Repeat("=", 80))
	assert.Contains(t, content, "Conversation History")
	assert.Contains(t, content, "Configuration:")
	assert.Contains(t, content, "model: glm-4.5")
	assert.NotContains(t, content, "trace_id")
	assert.Contains(t, content, "[1] USER:")
	assert.Contains(t, content, "[2] ASSISTANT:")
	assert.Contains(t, content, "Thinking: need the weather tool")
	assert.Contains(t, content, "Text: let me check")
	assert.Contains(t, content, "Tool Call: get_weather")
	assert.Contains(t, content, "Tool Call ID: call_1")
	assert.Contains(t, content, "Tool Result (ID: call_1): sunny")
	assert.Contains(t, content, "Prompt Tokens: 12")
	assert.Contains(t, content, "Response Tokens: 9")
	assert.Contains(t, content, "Finish Reason: stop")
}

func TestSaveHistory_NestedFileID(t *testing.T) {
	tracer, err := NewTracer(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, tracer.SaveHistory("localmock",
		[]*unillm.UniMessage{unillm.NewUserMessage("hi")}, "agent1/00001", nil))

	_, err = os.Stat(filepath.Join(tracer.Dir, "agent1", "00001.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(tracer.Dir, "agent1", "00001.txt"))
	assert.NoError(t, err)
}

func TestSaveHistory_NilConfig(t *testing.T) {
	tracer, err := NewTracer(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, tracer.SaveHistory("localmock",
		[]*unillm.UniMessage{unillm.NewUserMessage("hi")}, "bare", nil))

	data, err := os.ReadFile(filepath.Join(tracer.Dir, "bare.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	cfg := doc["config"].(map[string]any)
	assert.Equal(t, "localmock", cfg["model"])
}

func TestNewFileID(t *testing.T) {
	a := NewFileID()
	b := NewFileID()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
