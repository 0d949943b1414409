package core

import (
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 协议适配器接口
// ═══════════════════════════════════════════════════════════════════════════

// ProtocolAdapter 协议适配器接口
//
// 每个客户端实现此接口来定义协议特有的请求构建逻辑。
//
// 设计原则：
//   - 显式差异：协议差异通过独立实现明确体现
//   - 零魔法：所有转换逻辑可追踪，无隐式行为
//   - 单一职责：只负责规范模型 → 厂商请求体的转换
//
// 职责边界：
//   - ✅ 负责：消息格式转换、配置参数映射、tool_choice 形态校验
//   - ❌ 不负责：HTTP 通信、SSE 解析、错误重试
type ProtocolAdapter interface {
	// BuildRequest 将规范消息与配置转换为厂商请求体
	//
	// 职责：
	//   - 角色与内容块映射（文本、思考、工具调用、工具结果、图片）
	//   - 系统提示词放置（独立参数 vs 内联 system 消息 vs instructions 字段）
	//   - 思考等级 → 厂商 reasoning/thinking 参数
	//   - tool_choice 形态映射，厂商无法表达时返回 ToolChoiceError
	//   - 提示词缓存标记（仅最后一条 user 消息的最后一个内容项）
	//
	// 硬约束示例：
	//   - chat-completion 风格：工具参数必须序列化为 JSON 字符串
	//   - content-block 风格：工具参数必须保持为对象
	//   - chat-completion 风格：工具结果必须是独立消息（role=tool）
	//   - content-block 风格：工具结果必须内联在 user 消息中
	//
	// 参数：
	//   - messages: 规范消息列表
	//   - cfg: 规范配置，可为 nil（使用协议默认值）
	//   - stream: 是否为流式请求
	//
	// 返回：
	//   - 厂商 API 格式的请求体 map
	//   - 错误：RequestError、ToolChoiceError
	BuildRequest(messages []*unillm.UniMessage, cfg *unillm.UniConfig, stream bool) (map[string]any, error)
}
