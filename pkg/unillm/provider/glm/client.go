package glm

import (
	"context"
	"maps"
	"os"
	"time"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/core"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/protocol/glm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 配置和客户端
// ═══════════════════════════════════════════════════════════════════════════

// Config 客户端配置
type Config struct {
	// APIKey API 密钥（必需，空时读 GLM_API_KEY）
	APIKey string

	// BaseURL API 基础地址，默认 https://open.bigmodel.cn/api/paas/v4
	BaseURL string

	// Model 模型名称，默认取 ClientType 的默认模型
	Model string

	// Timeout 请求超时时间，默认 300 秒
	Timeout time.Duration

	// Headers 额外的请求头
	Headers map[string]string
}

// Client GLM（chat-completion delta 协议）客户端
//
// 实现 [unillm.Provider] 接口，支持流式和同步完成。
// 工具调用整体到达（单个 delta 携带完整参数），思考内容走 reasoning_content。
type Client struct {
	*core.BaseClient

	config *Config
}

// New 创建新的 GLM 客户端
func New(config *Config) (*Client, error) {
	if config == nil {
		config = &Config{}
	}
	finalConfig := *config
	if finalConfig.APIKey == "" {
		finalConfig.APIKey = os.Getenv(unillm.ClientTypeGLM.APIKeyEnv())
	}
	if finalConfig.Model == "" {
		finalConfig.Model = unillm.ClientTypeGLM.DefaultModel()
	}
	if finalConfig.BaseURL == "" {
		finalConfig.BaseURL = unillm.ClientTypeGLM.DefaultBaseURL()
	}
	finalConfig.Timeout = core.GetDefaultTimeout(finalConfig.Timeout)

	baseClient, err := core.NewBaseClient(
		&finalConfig,
		glm.NewAdapter(finalConfig.Model),
		glm.NewEventHandler(),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		BaseClient: baseClient,
		config:     &finalConfig,
	}, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Provider 接口实现
// ═══════════════════════════════════════════════════════════════════════════

// Stream 流式完成
func (c *Client) Stream(ctx context.Context, messages []*unillm.UniMessage, cfg *unillm.UniConfig) (<-chan *unillm.UniEvent, error) {
	return c.BaseClient.Stream(ctx, messages, cfg)
}

// Complete 同步完成
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
func (c *Config) BuildHeaders() map[string]string {
	headers := map[string]string{
		"Authorization": "Bearer " + c.APIKey,
		"Content-Type":  "application/json",
	}
	maps.Copy(headers, c.Headers)
	return headers
}

// ClientName 返回客户端名称
func (c *Config) ClientName() string {
	return unillm.ClientTypeGLM.String()
}

// 确保 Client 实现了 Provider 接口
var _ unillm.Provider = (*Client)(nil)
