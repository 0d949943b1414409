package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 接口定义
// ═══════════════════════════════════════════════════════════════════════════

// ClientConfig 客户端配置接口
//
// 每个客户端实现此接口来定义其特有的配置和默认值。
type ClientConfig interface {
	// Validate 验证配置
	// 返回错误如果配置无效
	Validate() error

	// GetDefaults 获取默认值
	// 返回 baseURL, model, timeout
	GetDefaults() (baseURL, model string, timeout time.Duration)

	// BuildHeaders 构建请求头
	// 返回认证头和其他必要的 HTTP 头
	BuildHeaders() map[string]string

	// ClientName 返回客户端名称
	// 用于错误日志和追踪
	ClientName() string
}

// EndpointBuilder 端点构建器接口
//
// 端点路径与默认值不同的协议（如 Messages API 的 /messages、
// Responses API 的 /responses）实现此接口。
type EndpointBuilder interface {
	// BuildEndpoint 构建请求端点
	BuildEndpoint() string
}

// ═══════════════════════════════════════════════════════════════════════════
// BaseClient 基础客户端
// ═══════════════════════════════════════════════════════════════════════════

// BaseClient 基础客户端
//
// 封装了 HTTP 通信、协议适配、SSE 解析编排等通用逻辑。
// 所有协议客户端嵌入 BaseClient 来复用这些功能。
//
// 架构设计：
//   - 模板方法模式：定义请求流程骨架，具体差异委托给接口
//   - 依赖倒置：依赖抽象的接口（ClientConfig、ProtocolAdapter、EventHandler）
//   - 单一职责：只负责 HTTP 通信和通用流程编排
//
// 使用示例：
//
//	config := &glm.Config{APIKey: "xxx"}
//	baseClient, _ := core.NewBaseClient(config, glm.NewAdapter(config), glm.NewEventHandler())
//
//	client := &glm.Client{BaseClient: baseClient, config: config}
type BaseClient struct {
	config          ClientConfig
	resty           *resty.Client
	adapter         ProtocolAdapter
	sseParser       *SSEParser
	endpointBuilder EndpointBuilder // 可选，用于非默认端点的协议
}

// NewBaseClient 创建基础客户端
//
// 参数：
//   - config: 客户端特定配置，实现 ClientConfig 接口
//   - adapter: 协议适配器，负责规范模型 → 厂商请求体
//   - eventHandler: SSE 事件处理器，负责厂商事件 → 规范事件
//
// 返回：
//   - BaseClient 实例
//   - 错误（如果配置验证失败）
func NewBaseClient(
	config ClientConfig,
	adapter ProtocolAdapter,
	eventHandler EventHandler,
) (*BaseClient, error) {
	// 1. 验证配置
	if err := config.Validate(); err != nil {
		return nil, unillm.NewConfigError("config validation failed", err)
	}

	// 2. 获取默认值
	baseURL, _, timeout := config.GetDefaults()

	// 3. 构建请求头
	headers := config.BuildHeaders()

	// 4. 创建 resty 客户端
	r := resty.New()
	r.SetBaseURL(baseURL)
	r.SetTimeout(timeout)
	for k, v := range headers {
		r.SetHeader(k, v)
	}

	return &BaseClient{
		config:    config,
		resty:     r,
		adapter:   adapter,
		sseParser: NewSSEParser(eventHandler),
	}, nil
}

// SetEndpointBuilder 设置端点构建器
func (c *BaseClient) SetEndpointBuilder(builder EndpointBuilder) {
	c.endpointBuilder = builder
}

// Stream 流式完成（通用实现）
//
// 通用流程：
//  1. 构建厂商请求体（委托给 ProtocolAdapter）
//  2. 序列化请求体
//  3. 发送 HTTP POST 请求（不解析响应）
//  4. 检查 HTTP 状态码
//  5. 启动 SSE 解析（在 goroutine 中）
//  6. 返回事件 channel
//
// 返回的 channel 缓冲区大小为 10，完成或出错后自动关闭。
// 传输/解析期错误通过事件的 Err 字段送达。
func (c *BaseClient) Stream(
	ctx context.Context,
	messages []*unillm.UniMessage,
	cfg *unillm.UniConfig,
) (<-chan *unillm.UniEvent, error) {
	// 1. 构建请求体
	body, err := c.adapter.BuildRequest(messages, cfg, true)
	if err != nil {
		return nil, err
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, unillm.NewRequestError("marshal", err)
	}

	// 2. 发送请求（不解析响应）
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(bodyBytes).
		SetDoNotParseResponse(true).
		Post(c.getEndpoint())
	if err != nil {
		return nil, unillm.NewHTTPError("request failed", err)
	}

	// 3. 检查 HTTP 错误
	if resp.StatusCode() >= 400 {
		apiErr := unillm.NewAPIError(resp.StatusCode(), resp.String())

		// 尝试提取请求 ID（从响应头）
		if requestID := resp.Header().Get("X-Request-ID"); requestID != "" {
			apiErr = apiErr.WithRequestID(requestID)
		}
		apiErr = apiErr.WithProvider(c.config.ClientName())

		_ = resp.RawBody().Close()
		return nil, apiErr
	}

	// 4. 启动 SSE 解析
	chunks := make(chan *unillm.UniEvent, 10)
	go c.sseParser.Parse(resp.RawBody(), chunks)

	return chunks, nil
}

// Complete 同步完成（通用实现）
//
// 走流式路径后用 [unillm.Concat] 把事件序列折叠为单条消息。
// 所有协议共用同一套事件翻译与累加逻辑，同步与流式不会出现行为分叉。
//
// 流中任一事件携带错误（含静默截断守卫）时返回该错误。
func (c *BaseClient) Complete(
	ctx context.Context,
	messages []*unillm.UniMessage,
	cfg *unillm.UniConfig,
) (*unillm.UniMessage, error) {
	chunks, err := c.Stream(ctx, messages, cfg)
	if err != nil {
		return nil, err
	}

	events := make([]*unillm.UniEvent, 0, 16)
	for ev := range chunks {
		if ev.Err != nil {
			return nil, ev.Err
		}
		events = append(events, ev)

		select {
		case <-ctx.Done():
			return nil, unillm.NewStreamError("stream canceled", ctx.Err())
		default:
		}
	}

	return unillm.Concat(events), nil
}

// getEndpoint 获取请求端点
func (c *BaseClient) getEndpoint() string {
	if c.endpointBuilder != nil {
		return c.endpointBuilder.BuildEndpoint()
	}
	return "/chat/completions" // 默认端点
}

// ═══════════════════════════════════════════════════════════════════════════
// 辅助函数
// ═══════════════════════════════════════════════════════════════════════════

// GetDefaultTimeout 获取默认超时时间的辅助函数
//
// 如果 timeout 为 0，返回默认的 300 秒（流式长响应常见）。
func GetDefaultTimeout(timeout time.Duration) time.Duration {
	if timeout == 0 {
		return 300 * time.Second
	}
	return timeout
}

// NewInvalidConfigError 创建无效配置错误
func NewInvalidConfigError(field string) error {
	return unillm.NewConfigError(field+" is required", nil)
}

// NewMissingAPIKeyError 创建缺少 API Key 错误
func NewMissingAPIKeyError() error {
	return unillm.NewConfigError("API key is required", nil)
}
