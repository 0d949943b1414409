package localmock

import (
	"context"
	"sync"
	"time"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
)

// CallRecord 记录一次调用的详情
type CallRecord struct {
	Messages []*unillm.UniMessage
	Config   *unillm.UniConfig
	Time     time.Time
}

// Client 本地 Mock Provider
//
// 不发起任何网络请求，按预设响应或场景脚本回放统一事件流，
// 用于离线测试流式管线、Session 与调用方代码。
type Client struct {
	mu              sync.RWMutex
	configPath      string                    // 配置文件路径
	response        string                    // 默认响应
	responses       []string                  // 响应队列（依次返回）
	respIdx         int                       // 当前响应索引
	respFunc        ResponseFunc              // 动态响应函数
	msgFunc         MessageResponseFunc       // 完整消息响应函数（可包含工具调用）
	delay           time.Duration             // 响应延迟
	err             error                     // 返回错误
	calls           []CallRecord              // 调用记录
	counter         int                       // 调用计数
	scenarios       map[string]*scenarioState // 场景状态（通过 name 索引）
	currentScenario string                    // 当前使用的场景名称
}

// ResponseFunc 动态响应函数类型
// 接收消息列表和调用次数，返回响应文本
type ResponseFunc func(messages []*unillm.UniMessage, callCount int) string

// MessageResponseFunc 完整消息响应函数类型
// 接收消息列表和调用次数，返回完整的 UniMessage（可包含工具调用）
type MessageResponseFunc func(messages []*unillm.UniMessage, callCount int) *unillm.UniMessage

// New 创建 Mock Client
//
// 可选参数:
//   - 无参数: 使用内嵌的示例配置
//   - 一个字符串参数: 使用指定的配置文件路径
//   - Option 类型参数: 使用 Option 函数配置
//
// 使用示例:
//
//	client := localmock.New()                           // 使用内嵌示例配置
//	client := localmock.New("custom/config.yaml")       // 使用指定配置文件
//	client := localmock.New(localmock.WithDelay(100 * time.Millisecond))
func New(args ...any) *Client {
	c := &Client{
		response: "This is a mock response.",
		calls:    make([]CallRecord, 0),
	}

	var configPath string
	var opts []Option

	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			configPath = v
		case Option:
			opts = append(opts, v)
		}
	}

	// 提供配置路径时使用它；否则没有 Option 时退到内嵌示例配置
	if configPath != "" {
		c.configPath = configPath
		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			c.err = err
		} else {
			applyConfig(c, cfg)
		}
	} else if len(opts) == 0 {
		cfg, err := LoadExampleConfig()
		if err != nil {
			c.err = err
		} else {
			applyConfig(c, cfg)
		}
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Option 配置选项函数
type Option func(*Client)

// WithResponse 设置预设响应文本
func WithResponse(text string) Option {
	return func(c *Client) {
		c.response = text
	}
}

// WithResponses 设置响应队列（依次返回，用完后循环）
func WithResponses(texts ...string) Option {
	return func(c *Client) {
		c.responses = texts
	}
}

// WithResponseFunc 设置动态响应函数
func WithResponseFunc(fn ResponseFunc) Option {
	return func(c *Client) {
		c.respFunc = fn
	}
}

// WithMessageFunc 设置完整消息响应函数（支持工具调用）
func WithMessageFunc(fn MessageResponseFunc) Option {
	return func(c *Client) {
		c.msgFunc = fn
	}
}

// WithDelay 设置响应延迟
func WithDelay(d time.Duration) Option {
	return func(c *Client) {
		c.delay = d
	}
}

// WithError 设置返回错误
func WithError(err error) Option {
	return func(c *Client) {
		c.err = err
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 场景管理方法
// ═══════════════════════════════════════════════════════════════════════════

// UseScenario 设置当前使用的场景（通过名称）
//
// 设置后，Stream/Complete 使用该场景的脚本回放响应，
// 每次调用自动推进到下一轮。
func (c *Client) UseScenario(name string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentScenario = name
	return c
}

// ResetScenario 重置指定场景的轮次到起始位置
func (c *Client) ResetScenario(name string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.scenarios[name]; ok {
		s.turnIdx = 0
	}
	return c
}

// ResetAllScenarios 重置所有场景的轮次
func (c *Client) ResetAllScenarios() *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.scenarios {
		s.turnIdx = 0
	}
	return c
}

// GetScenarioNames 获取所有可用的场景名称
func (c *Client) GetScenarioNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.scenarios))
	for name := range c.scenarios {
		names = append(names, name)
	}
	return names
}

// GetCurrentScenario 获取当前场景名称
func (c *Client) GetCurrentScenario() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentScenario
}

// GetScenarioTurnIndex 获取指定场景的当前轮次索引
func (c *Client) GetScenarioTurnIndex(name string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.scenarios[name]; ok {
		return s.turnIdx
	}
	return -1
}

// GetScenarioUserInputs 获取指定场景定义的所有用户输入
// 返回场景中每个轮次的 User 字段值，便于编写测试
func (c *Client) GetScenarioUserInputs(name string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scenarios[name]
	if !ok {
		return nil
	}
	inputs := make([]string, 0, len(s.scenario.Turns))
	for _, turn := range s.scenario.Turns {
		if turn.User != "" {
			inputs = append(inputs, turn.User)
		}
	}
	return inputs
}

// ═══════════════════════════════════════════════════════════════════════════
// 响应构建（内部方法，需要在锁内调用）
// ═══════════════════════════════════════════════════════════════════════════

// nextMessage 计算本次调用要回放的完整消息
//
// 优先级：场景脚本 > MessageResponseFunc > ResponseFunc > 响应队列 > 默认响应
func (c *Client) nextMessage(messages []*unillm.UniMessage) *unillm.UniMessage {
	if c.currentScenario != "" {
		if s, ok := c.scenarios[c.currentScenario]; ok {
			data := createTemplateData(messages)
			msg := s.buildTurnResponse(messages, data)
			s.turnIdx++
			return msg
		}
	}

	if c.msgFunc != nil {
		if msg := c.msgFunc(messages, c.counter); msg != nil {
			msg.Role = unillm.RoleAssistant
			if msg.FinishReason == "" {
				msg.FinishReason = unillm.FinishReasonStop
			}
			return msg
		}
	}

	var text string
	switch {
	case c.respFunc != nil:
		text = c.respFunc(messages, c.counter)
	case len(c.responses) > 0:
		text = c.responses[c.respIdx%len(c.responses)]
		c.respIdx++
	default:
		text = c.response
	}

	return &unillm.UniMessage{
		Role:         unillm.RoleAssistant,
		ContentItems: []unillm.ContentItem{&unillm.TextItem{Text: text}},
		FinishReason: unillm.FinishReasonStop,
	}
}

// mockUsage 估算 token 使用量
func mockUsage(messages []*unillm.UniMessage, msg *unillm.UniMessage) *unillm.UsageMetadata {
	return &unillm.UsageMetadata{
		PromptTokens:   int64(len(messages) * 10),
		ResponseTokens: int64(len(msg.Text())/4 + 1),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Provider 接口实现
// ═══════════════════════════════════════════════════════════════════════════

// Stream 流式回放
//
// 将脚本消息拆解为统一事件流：文本逐字符作为 delta 事件发出，
// 思考与工具调用各占一个 delta 事件，最后发出携带
// usage 与 finish_reason 的 stop 事件。
func (c *Client) Stream(ctx context.Context, messages []*unillm.UniMessage, config *unillm.UniConfig) (<-chan *unillm.UniEvent, error) {
	c.mu.Lock()
	c.counter++
	delay := c.delay
	err := c.err
	c.calls = append(c.calls, CallRecord{
		Messages: messages,
		Config:   config,
		Time:     time.Now(),
	})
	msg := c.nextMessage(messages)
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}

	events := make(chan *unillm.UniEvent, 16)

	go func() {
		defer close(events)

		// 流式首包延迟
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}

		emit := func(ev *unillm.UniEvent) bool {
			select {
			case <-ctx.Done():
				return false
			case events <- ev:
				return true
			}
		}

		for _, item := range msg.ContentItems {
			switch v := item.(type) {
			case *unillm.TextItem:
				for _, ch := range v.Text {
					if !emit(&unillm.UniEvent{
						Role:         unillm.RoleAssistant,
						Type:         unillm.EventTypeDelta,
						ContentItems: []unillm.ContentItem{&unillm.TextItem{Text: string(ch)}},
					}) {
						return
					}
				}
			default:
				if !emit(&unillm.UniEvent{
					Role:         unillm.RoleAssistant,
					Type:         unillm.EventTypeDelta,
					ContentItems: []unillm.ContentItem{item},
				}) {
					return
				}
			}
		}

		emit(&unillm.UniEvent{
			Role:         unillm.RoleAssistant,
			Type:         unillm.EventTypeStop,
			FinishReason: msg.FinishReason,
			Usage:        mockUsage(messages, msg),
		})
	}()

	return events, nil
}

// Complete 同步回放（流式聚合）
func (c *Client) Complete(ctx context.Context, messages []*unillm.UniMessage, config *unillm.UniConfig) (*unillm.UniMessage, error) {
	stream, err := c.Stream(ctx, messages, config)
	if err != nil {
		return nil, err
	}

	collected := make([]*unillm.UniEvent, 0, 16)
	for ev := range stream {
		if ev.Err != nil {
			return nil, ev.Err
		}
		collected = append(collected, ev)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return unillm.Concat(collected), nil
}

// Model 返回模型名称
func (c *Client) Model() string {
	return "localmock"
}

// Close 关闭连接（无操作）
func (c *Client) Close() error {
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 测试辅助方法
// ═══════════════════════════════════════════════════════════════════════════

// SetResponse 动态修改响应（线程安全）
func (c *Client) SetResponse(text string) {
	c.mu.Lock()
	c.response = text
	c.mu.Unlock()
}

// SetError 动态修改错误（线程安全）
func (c *Client) SetError(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Calls 返回所有调用记录
func (c *Client) Calls() []CallRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]CallRecord, len(c.calls))
	copy(result, c.calls)
	return result
}

// CallCount 返回调用次数
func (c *Client) CallCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counter
}

// LastCall 返回最后一次调用记录
func (c *Client) LastCall() *CallRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.calls) == 0 {
		return nil
	}
	call := c.calls[len(c.calls)-1]
	return &call
}

// Reset 重置调用记录和计数器
func (c *Client) Reset() {
	c.mu.Lock()
	c.calls = make([]CallRecord, 0)
	c.counter = 0
	c.respIdx = 0
	c.mu.Unlock()
}

// GetLastInput 获取最后一次调用的用户输入消息内容
func (c *Client) GetLastInput() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.calls) == 0 {
		return ""
	}

	lastCall := c.calls[len(c.calls)-1]
	for i := len(lastCall.Messages) - 1; i >= 0; i-- {
		if lastCall.Messages[i].Role == unillm.RoleUser {
			return getMessageContent(lastCall.Messages[i])
		}
	}
	return ""
}

// GetConfigPath 获取当前使用的配置文件路径
func (c *Client) GetConfigPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configPath
}

// GetAllInputs 获取所有调用的用户输入
func (c *Client) GetAllInputs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var inputs []string
	for _, call := range c.calls {
		for _, msg := range call.Messages {
			if msg.Role == unillm.RoleUser {
				inputs = append(inputs, getMessageContent(msg))
			}
		}
	}
	return inputs
}

// 编译时接口检查
var _ unillm.Provider = (*Client)(nil)
