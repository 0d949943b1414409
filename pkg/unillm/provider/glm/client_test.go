package glm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeChunk 按 chat-completion 流式帧格式写出数据
func writeChunk(w http.ResponseWriter, data string) {
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// ═══════════════════════════════════════════════════════════════════════════
// New 函数测试
// ═══════════════════════════════════════════════════════════════════════════

func TestNew_MissingAPIKey(t *testing.T) {
	t.Setenv("GLM_API_KEY", "")

	client, err := New(&Config{})

	assert.Nil(t, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNew_DefaultValues(t *testing.T) {
	client, err := New(&Config{APIKey: "test-key"})

	require.NoError(t, err)
	assert.Equal(t, unillm.ClientTypeGLM.DefaultModel(), client.Model())
	assert.Contains(t, client.config.BaseURL, "bigmodel.cn")
	assert.NoError(t, client.Close())
}

// ═══════════════════════════════════════════════════════════════════════════
// Stream / Complete 测试
// ═══════════════════════════════════════════════════════════════════════════

func TestClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 验证请求
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var reqBody map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "glm-4.5", reqBody["model"])
		assert.Equal(t, true, reqBody["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		writeChunk(w, `{"choices":[{"delta":{"role":"assistant","content":"你好"}}]}`)
		writeChunk(w, `{"choices":[{"delta":{"content":"！"},"finish_reason":"stop"}],"usage":{"prompt_tokens":8,"completion_tokens":3}}`)
		writeChunk(w, `[DONE]`)
	}))
	defer server.Close()

	client, err := New(&Config{APIKey: "test-key", Model: "glm-4.5", BaseURL: server.URL})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	msg, err := client.Complete(context.Background(),
		[]*unillm.UniMessage{unillm.NewUserMessage("打个招呼")}, nil)

	require.NoError(t, err)
	assert.Equal(t, "你好！", msg.Text())
	assert.Equal(t, unillm.FinishReasonStop, msg.FinishReason)
	require.NotNil(t, msg.Usage)
	assert.Equal(t, int64(8), msg.Usage.PromptTokens)
	assert.Equal(t, int64(3), msg.Usage.ResponseTokens)
}

func TestClient_Complete_OneShotToolCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		// 工具调用整体到达：单个 delta 携带 id、name 和完整参数
		writeChunk(w, `{"choices":[{"delta":{"tool_calls":[{"id":"call_abc","function":{"name":"get_weather","arguments":"{\"city\":\"北京\"}"}}]}}]}`)
		writeChunk(w, `{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`)
		writeChunk(w, `[DONE]`)
	}))
	defer server.Close()

	client, err := New(&Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	msg, err := client.Complete(context.Background(),
		[]*unillm.UniMessage{unillm.NewUserMessage("北京天气？")}, nil)

	require.NoError(t, err)
	calls := msg.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_abc", calls[0].ToolCallID)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.Equal(t, map[string]any{"city": "北京"}, calls[0].Arguments)
	assert.Equal(t, unillm.FinishReasonStop, msg.FinishReason)
}

func TestClient_Complete_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", "req_glm_1")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client, err := New(&Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	msg, err := client.Complete(context.Background(),
		[]*unillm.UniMessage{unillm.NewUserMessage("hi")}, nil)

	assert.Nil(t, msg)
	require.Error(t, err)

	var apiErr *unillm.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "req_glm_1", apiErr.RequestID)
	assert.True(t, apiErr.IsRetryable())
}

func TestClient_Stream_ThinkingDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeChunk(w, `{"choices":[{"delta":{"reasoning_content":"思考中"}}]}`)
		writeChunk(w, `{"choices":[{"delta":{"content":"答案"},"finish_reason":"stop"}]}`)
		writeChunk(w, `[DONE]`)
	}))
	defer server.Close()

	client, err := New(&Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	stream, err := client.Stream(context.Background(),
		[]*unillm.UniMessage{unillm.NewUserMessage("想一想")},
		&unillm.UniConfig{ThinkingLevel: unillm.ThinkingLevelHigh})
	require.NoError(t, err)

	var events []*unillm.UniEvent
	for ev := range stream {
		require.NoError(t, ev.Err)
		events = append(events, ev)
	}

	msg := unillm.Concat(events)
	assert.Equal(t, "思考中", msg.Thinking())
	assert.Equal(t, "答案", msg.Text())
}
