package claude

import (
	"context"
	"maps"
	"os"
	"time"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/core"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/protocol/claude"
)

// ═══════════════════════════════════════════════════════════════════════════
// 配置和客户端
// ═══════════════════════════════════════════════════════════════════════════

// Config 客户端配置
type Config struct {
	// APIKey API 密钥（必需，空时读 ANTHROPIC_API_KEY）
	APIKey string

	// BaseURL API 基础地址，默认 https://api.anthropic.com/v1
	BaseURL string

	// Model 模型名称，默认取 ClientType 的默认模型
	Model string

	// Timeout 请求超时时间，默认 300 秒
	Timeout time.Duration

	// Headers 额外的请求头
	Headers map[string]string

	// AnthropicVersion API 版本，默认 2023-06-01
	AnthropicVersion string
}

// Client Claude（content-block 协议）客户端
//
// 实现 [unillm.Provider] 接口，支持流式和同步完成。
//
// 架构设计：
//   - 嵌入 core.BaseClient 复用 HTTP 通信和 SSE 编排
//   - 协议差异由 protocol/claude 的适配器与事件处理器封装
type Client struct {
	*core.BaseClient

	config *Config
}

// New 创建新的 Claude 客户端
func New(config *Config) (*Client, error) {
	if config == nil {
		config = &Config{}
	}
	finalConfig := *config
	if finalConfig.APIKey == "" {
		finalConfig.APIKey = os.Getenv(unillm.ClientTypeClaude.APIKeyEnv())
	}
	if finalConfig.Model == "" {
		finalConfig.Model = unillm.ClientTypeClaude.DefaultModel()
	}
	if finalConfig.BaseURL == "" {
		finalConfig.BaseURL = unillm.ClientTypeClaude.DefaultBaseURL()
	}
	finalConfig.Timeout = core.GetDefaultTimeout(finalConfig.Timeout)
	if finalConfig.AnthropicVersion == "" {
		finalConfig.AnthropicVersion = "2023-06-01"
	}

	baseClient, err := core.NewBaseClient(
		&finalConfig,
		claude.NewAdapter(finalConfig.Model),
		claude.NewEventHandler(),
	)
	if err != nil {
		return nil, err
	}
	baseClient.SetEndpointBuilder(&endpointBuilder{})

	return &Client{
		BaseClient: baseClient,
		config:     &finalConfig,
	}, nil
}

// endpointBuilder Messages API 端点
type endpointBuilder struct{}

func (b *endpointBuilder) BuildEndpoint() string {
	return "/messages"
}

// ═══════════════════════════════════════════════════════════════════════════
// Provider 接口实现
// ═══════════════════════════════════════════════════════════════════════════

// Stream 流式完成
//
// 实现 [unillm.Provider] 接口。返回一个 channel，逐事件接收响应。
func (c *Client) Stream(ctx context.Context, messages []*unillm.UniMessage, cfg *unillm.UniConfig) (<-chan *unillm.UniEvent, error) {
	return c.BaseClient.Stream(ctx, messages, cfg)
}

// Complete 同步完成
//
// 实现 [unillm.Provider] 接口。内部走流式路径并合并事件。
func (c *Client) Complete(ctx context.Context, messages []*unillm.UniMessage, cfg *unillm.UniConfig) (*unillm.UniMessage, error) {
	return c.BaseClient.Complete(ctx, messages, cfg)
}

// Model 返回模型名称
func (c *Client) Model() string {
	return c.config.Model
}

// Close 关闭客户端（当前实现为空操作）
func (c *Client) Close() error {
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// core.ClientConfig 接口实现
// ═══════════════════════════════════════════════════════════════════════════

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return unillm.NewConfigError("config is required", nil)
	}
	if c.APIKey == "" {
		return core.NewMissingAPIKeyError()
	}
	return nil
}

// GetDefaults 获取默认值
func (c *Config) GetDefaults() (string, string, time.Duration) {
	return c.BaseURL, c.Model, c.Timeout
}

// BuildHeaders 构建请求头
// Messages API 使用 X-Api-Key 而不是 Authorization
func (c *Config) BuildHeaders() map[string]string {
	headers := map[string]string{
		"X-Api-Key":         c.APIKey,
		"anthropic-version": c.AnthropicVersion,
		"Content-Type":      "application/json",
	}
	maps.Copy(headers, c.Headers)
	return headers
}

// ClientName 返回客户端名称
func (c *Config) ClientName() string {
	return unillm.ClientTypeClaude.String()
}

// 确保 Client 实现了 Provider 接口
var _ unillm.Provider = (*Client)(nil)
