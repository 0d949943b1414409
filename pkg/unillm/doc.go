// Package unillm 提供多厂商 LLM 流式协议的统一归一化层
//
// 本包定义了与不同厂商流式协议交互所需的规范模型，包括：
//   - [Provider]: 统一的 LLM 调用抽象（流式 + 同步）
//   - [UniMessage]: 规范对话消息结构
//   - [UniEvent]: 规范流式事件定义
//   - [UniConfig]: 规范请求配置
//   - [Concat]: 将流式事件序列折叠为完整消息
//
// # 核心类型
//
// [UniMessage] 表示对话中的单条消息，内容为有序的 [ContentItem] 列表
// （文本、思考、工具调用、工具调用片段、图片、工具结果）。
//
// [UniEvent] 用于流式响应，类型为 start/delta/stop/unused 四种；
// 携带 usage 或 finish_reason 的事件视为终止事件。
//
// [UniConfig] 承载请求级配置：采样参数、工具、工具选择、
// 思考等级、系统提示词、提示词缓存等。
//
// # 客户端类型
//
// [ClientType] 枚举四种流式协议方言：
//   - ClientTypeClaude: Anthropic Messages API（content-block-delta）
//   - ClientTypeResponses: OpenAI Responses API（离散响应事件）
//   - ClientTypeGLM: 智谱 GLM（chat-completion delta，整体工具调用）
//   - ClientTypeQwen: 通义千问（chat-completion delta，分片工具调用）
//
// # 协议实现
//
// 具体的客户端实现位于子包：
//   - [pkg/unillm/provider/claude]: Claude 协议客户端
//   - [pkg/unillm/provider/responses]: Responses 协议客户端
//   - [pkg/unillm/provider/glm]: GLM 协议客户端
//   - [pkg/unillm/provider/qwen]: Qwen 协议客户端
//   - [pkg/unillm/provider/localmock]: 本地 Mock 实现（用于测试）
//
// [pkg/unillm/provider] 提供按模型名自动路由的工厂。
//
// # 会话管理
//
// [pkg/unillm/session] 在 Provider 之上提供有状态对话：
// 每轮 Turn 提交一条用户消息和一条合并后的助手消息。
//
// # 包文件组织
//
//   - types.go: Provider 接口、UniConfig、工具相关类型
//   - message.go: UniMessage、ContentItem 族
//   - event.go: UniEvent、EventType、UsageMetadata
//   - concat.go: 事件合并
//   - client_type.go: ClientType 枚举
//   - errors.go: 错误层级
package unillm
