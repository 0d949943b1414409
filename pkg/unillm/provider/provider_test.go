package provider

import (
	"testing"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ═══════════════════════════════════════════════════════════════════════════
// 自动路由测试
// ═══════════════════════════════════════════════════════════════════════════

func TestNew_RoutesByModelName(t *testing.T) {
	cases := []struct {
		model string
	}{
		{"claude-sonnet-4-20250514"},
		{"gpt-5"},
		{"o3-mini"},
		{"glm-4.5"},
		{"qwen3-max"},
		{"qwq-32b"},
		{"localmock"},
	}

	for _, c := range cases {
		p, err := New(&Options{Model: c.model, APIKey: "test-key"})
		require.NoError(t, err, "model %s", c.model)
		assert.Equal(t, c.model, p.Model(), "model %s", c.model)
		_ = p.Close()
	}
}

func TestNew_ClientTypeOverride(t *testing.T) {
	// 显式类型跳过模型名匹配：非 glm 前缀的模型名照样走 GLM 客户端
	p, err := New(&Options{
		ClientType: unillm.ClientTypeGLM,
		Model:      "my-finetune",
		APIKey:     "test-key",
	})

	require.NoError(t, err)
	assert.Equal(t, "my-finetune", p.Model())
}

func TestNew_UnknownModel(t *testing.T) {
	_, err := New(&Options{Model: "llama-3-70b"})

	require.Error(t, err)
	assert.True(t, unillm.IsDispatchError(err))
	assert.Contains(t, err.Error(), "llama-3-70b")
}

func TestNew_UnknownClientType(t *testing.T) {
	_, err := New(&Options{ClientType: unillm.ClientType("nonexistent")})

	require.Error(t, err)
	assert.True(t, unillm.IsDispatchError(err))
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestNew_NilOptions(t *testing.T) {
	_, err := New(nil)

	require.Error(t, err)
	assert.True(t, unillm.IsDispatchError(err))
}

func TestSupportedClientTypes(t *testing.T) {
	types := SupportedClientTypes()

	assert.Len(t, types, 5)
	assert.Contains(t, types, unillm.ClientTypeClaude.String())
	assert.Contains(t, types, unillm.ClientTypeLocalMock.String())
}

// ═══════════════════════════════════════════════════════════════════════════
// Must / LocalMock 测试
// ═══════════════════════════════════════════════════════════════════════════

func TestMust_PanicsOnUnknownModel(t *testing.T) {
	assert.Panics(t, func() {
		Must(&Options{Model: "llama-3-70b"})
	})
}

func TestMust_ReturnsProvider(t *testing.T) {
	p := Must(&Options{Model: "localmock"})
	assert.Equal(t, "localmock", p.Model())
}

func TestLocalMock(t *testing.T) {
	p := LocalMock()

	require.NotNil(t, p)
	assert.Equal(t, "localmock", p.Model())
}
