package unillm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ═══════════════════════════════════════════════════════════════════════════
// MatchModel 测试
// ═══════════════════════════════════════════════════════════════════════════

func TestClientType_MatchModel(t *testing.T) {
	tests := []struct {
		model    string
		expected ClientType
	}{
		{"claude-sonnet-4-20250514", ClientTypeClaude},
		{"Claude-Opus-4", ClientTypeClaude},
		{"gpt-4o-mini", ClientTypeResponses},
		{"o3-mini", ClientTypeResponses},
		{"glm-4.5", ClientTypeGLM},
		{"qwen3-coder-plus", ClientTypeQwen},
		{"QwQ-32B", ClientTypeQwen},
		{"localmock", ClientTypeLocalMock},
	}

	all := []ClientType{
		ClientTypeClaude, ClientTypeResponses, ClientTypeGLM,
		ClientTypeQwen, ClientTypeLocalMock,
	}

	for _, tt := range tests {
		for _, ct := range all {
			matched := ct.MatchModel(tt.model)
			if ct == tt.expected {
				assert.True(t, matched, "%s should match %s", tt.model, ct)
			} else {
				assert.False(t, matched, "%s should not match %s", tt.model, ct)
			}
		}
	}
}

func TestClientType_MatchModel_Unknown(t *testing.T) {
	for _, ct := range []ClientType{
		ClientTypeClaude, ClientTypeResponses, ClientTypeGLM,
		ClientTypeQwen, ClientTypeLocalMock,
	} {
		assert.False(t, ct.MatchModel("mystery-model-9000"))
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 默认值测试
// ═══════════════════════════════════════════════════════════════════════════

func TestClientType_Defaults(t *testing.T) {
	assert.Contains(t, ClientTypeClaude.DefaultBaseURL(), "anthropic.com")
	assert.Contains(t, ClientTypeResponses.DefaultBaseURL(), "openai.com")
	assert.Contains(t, ClientTypeGLM.DefaultBaseURL(), "bigmodel.cn")
	assert.Contains(t, ClientTypeQwen.DefaultBaseURL(), "dashscope.aliyuncs.com")
	assert.Empty(t, ClientTypeLocalMock.DefaultBaseURL())

	assert.NotEmpty(t, ClientTypeClaude.DefaultModel())
	assert.NotEmpty(t, ClientTypeQwen.DefaultModel())

	assert.Equal(t, "ANTHROPIC_API_KEY", ClientTypeClaude.APIKeyEnv())
	assert.Equal(t, "DASHSCOPE_API_KEY", ClientTypeQwen.APIKeyEnv())
}

func TestClientType_IsChatCompletion(t *testing.T) {
	assert.True(t, ClientTypeGLM.IsChatCompletion())
	assert.True(t, ClientTypeQwen.IsChatCompletion())
	assert.False(t, ClientTypeClaude.IsChatCompletion())
	assert.False(t, ClientTypeResponses.IsChatCompletion())
}
