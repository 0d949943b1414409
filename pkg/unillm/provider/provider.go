// Package provider 提供按模型名自动路由的客户端工厂
//
// 使用方式：
//
//	// 按模型名自动路由
//	p, err := provider.New(&provider.Options{Model: "claude-sonnet-4-20250514"})
//
//	// 显式指定客户端类型（跳过模型名匹配）
//	p, err := provider.New(&provider.Options{
//	    ClientType: unillm.ClientTypeGLM,
//	    Model:      "glm-4.5",
//	})
//
//	// 本地 Mock（无需配置）
//	p := provider.LocalMock()
package provider

import (
	"time"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/provider/claude"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/provider/glm"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/provider/localmock"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/provider/qwen"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm/provider/responses"
)

// ═══════════════════════════════════════════════════════════════════════════
// 选项
// ═══════════════════════════════════════════════════════════════════════════

// Options 工厂选项
type Options struct {
	// Model 模型名称；ClientType 为空时据此路由
	Model string

	// ClientType 显式客户端类型，设置后跳过模型名匹配
	ClientType unillm.ClientType

	// APIKey API 密钥；空时各客户端回退到自己的环境变量
	APIKey string

	// BaseURL 覆盖默认 Base URL
	BaseURL string

	// Timeout 请求超时时间
	Timeout time.Duration

	// Headers 额外的请求头
	Headers map[string]string
}

// ═══════════════════════════════════════════════════════════════════════════
// 路由表
// ═══════════════════════════════════════════════════════════════════════════

// route 一条路由：谓词命中即用构造器，不再继续匹配
type route struct {
	clientType unillm.ClientType
	match      func(model string) bool
	build      func(opts *Options) (unillm.Provider, error)
}

// routes 有序路由表，构造时解析一次，之后不再按调用重判
var routes = []route{
	{unillm.ClientTypeClaude, unillm.ClientTypeClaude.MatchModel, newClaude},
	{unillm.ClientTypeResponses, unillm.ClientTypeResponses.MatchModel, newResponses},
	{unillm.ClientTypeGLM, unillm.ClientTypeGLM.MatchModel, newGLM},
	{unillm.ClientTypeQwen, unillm.ClientTypeQwen.MatchModel, newQwen},
	{unillm.ClientTypeLocalMock, unillm.ClientTypeLocalMock.MatchModel, newLocalMock},
}

// SupportedClientTypes 返回路由表覆盖的客户端类型
func SupportedClientTypes() []string {
	names := make([]string, 0, len(routes))
	for _, r := range routes {
		names = append(names, r.clientType.String())
	}
	return names
}

// ═══════════════════════════════════════════════════════════════════════════
// 工厂函数
// ═══════════════════════════════════════════════════════════════════════════

// New 创建 Provider
//
// ClientType 显式指定时直接选用对应构造器；否则按模型名顺序匹配路由表，
// 首个命中的路由胜出。无匹配返回 DispatchError（枚举支持的类型）。
//
// 返回的 Provider 就是所选客户端本身，所有公开操作透明直达。
func New(opts *Options) (unillm.Provider, error) {
	if opts == nil {
		opts = &Options{}
	}

	for _, r := range routes {
		if opts.ClientType != "" {
			if r.clientType == opts.ClientType {
				return r.build(opts)
			}
			continue
		}
		if r.match(opts.Model) {
			return r.build(opts)
		}
	}

	attempted := opts.Model
	if opts.ClientType != "" {
		attempted = opts.ClientType.String()
	}
	return nil, unillm.NewDispatchError(attempted, SupportedClientTypes())
}

// Must 创建 Provider，失败时 panic
func Must(opts *Options) unillm.Provider {
	p, err := New(opts)
	if err != nil {
		panic(err)
	}
	return p
}

// LocalMock 创建 LocalMock Provider（用于测试）
func LocalMock() unillm.Provider {
	return localmock.New()
}

// ═══════════════════════════════════════════════════════════════════════════
// 构造器
// ═══════════════════════════════════════════════════════════════════════════

func newClaude(opts *Options) (unillm.Provider, error) {
	return claude.New(&claude.Config{
		APIKey:  opts.APIKey,
		BaseURL: opts.BaseURL,
		Model:   opts.Model,
		Timeout: opts.Timeout,
		Headers: opts.Headers,
	})
}

func newResponses(opts *Options) (unillm.Provider, error) {
	return responses.New(&responses.Config{
		APIKey:  opts.APIKey,
		BaseURL: opts.BaseURL,
		Model:   opts.Model,
		Timeout: opts.Timeout,
		Headers: opts.Headers,
	})
}

func newGLM(opts *Options) (unillm.Provider, error) {
	return glm.New(&glm.Config{
		APIKey:  opts.APIKey,
		BaseURL: opts.BaseURL,
		Model:   opts.Model,
		Timeout: opts.Timeout,
		Headers: opts.Headers,
	})
}

func newQwen(opts *Options) (unillm.Provider, error) {
	return qwen.New(&qwen.Config{
		APIKey:  opts.APIKey,
		BaseURL: opts.BaseURL,
		Model:   opts.Model,
		Timeout: opts.Timeout,
		Headers: opts.Headers,
	})
}

func newLocalMock(opts *Options) (unillm.Provider, error) {
	return localmock.New(), nil
}
