// Package session 提供有状态的多轮对话管理
//
// Session 持有每个实例独立的对话历史，Turn 在一次流式调用结束后
// 将本轮的用户消息与聚合后的助手消息一并提交进历史。
package session

import (
	"context"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/trace"
)

// Session 有状态对话会话
//
// 历史归实例独占，不同实例之间永不共享底层切片。
// 单个实例不支持并发 Turn，调用方需要并发时应各建一个 Session。
type Session struct {
	provider unillm.Provider
	history  []*unillm.UniMessage
	sink     trace.Sink
}

// Option 配置选项函数
type Option func(*Session)

// WithSink 设置会话落盘 Sink
//
// 配置后，每轮提交历史时若 UniConfig.TraceID 非空则触发落盘，
// 落盘错误被忽略，不影响会话。
func WithSink(sink trace.Sink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithHistory 设置初始历史（复制切片，不持有调用方的底层数组）
func WithHistory(history []*unillm.UniMessage) Option {
	return func(s *Session) {
		s.history = make([]*unillm.UniMessage, len(history))
		copy(s.history, history)
	}
}

// New 创建会话
func New(provider unillm.Provider, opts ...Option) *Session {
	s := &Session{
		provider: provider,
		history:  make([]*unillm.UniMessage, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Turn 执行一轮对话
//
// 以当前历史加本轮用户消息发起流式调用，事件透传给调用方。
// 厂商通道关闭后，若收到至少一个事件且无错误事件，
// 将用户消息与 Concat 聚合的助手消息追加进历史；
// 出错或空流时历史不变，本轮视为未发生。
//
// 返回的 channel 在提交完成后关闭，调用方消费完即可读取 History。
func (s *Session) Turn(ctx context.Context, message *unillm.UniMessage, config *unillm.UniConfig) (<-chan *unillm.UniEvent, error) {
	// 推理用消息列表：历史快照 + 本轮消息，历史在提交前不变
	messages := make([]*unillm.UniMessage, 0, len(s.history)+1)
	messages = append(messages, s.history...)
	messages = append(messages, message)

	stream, err := s.provider.Stream(ctx, messages, config)
	if err != nil {
		return nil, err
	}

	out := make(chan *unillm.UniEvent, 10)

	go func() {
		defer close(out)

		collected := make([]*unillm.UniEvent, 0, 16)
		failed := false

		for ev := range stream {
			if ev.Err != nil {
				failed = true
			}
			collected = append(collected, ev)

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}

		if failed || len(collected) == 0 {
			return
		}

		assistant := unillm.Concat(collected)
		s.history = append(s.history, message, assistant)

		if s.sink != nil && config != nil && config.TraceID != "" {
			// 落盘失败不影响会话
			_ = s.sink.SaveHistory(s.provider.Model(), s.history, config.TraceID, config)
		}
	}()

	return out, nil
}

// Complete 执行一轮对话并返回聚合后的助手消息
func (s *Session) Complete(ctx context.Context, message *unillm.UniMessage, config *unillm.UniConfig) (*unillm.UniMessage, error) {
	stream, err := s.Turn(ctx, message, config)
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

// Clear 清空历史
func (s *Session) Clear() {
	s.history = s.history[:0]
}

// History 返回历史副本
func (s *Session) History() []*unillm.UniMessage {
	out := make([]*unillm.UniMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Len 返回历史消息条数
func (s *Session) Len() int {
	return len(s.history)
}
