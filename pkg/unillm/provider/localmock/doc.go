// Package localmock 提供本地 Mock Provider 实现
//
// 本包实现了 [unillm.Provider] 接口，用于测试和开发场景，
// 无需真实的厂商 API 即可验证流式管线与业务逻辑。
//
// # 概述
//
// [Client] 是核心类型，提供可预测的回放行为：
//
//   - 支持通过场景名称直接指定响应（推荐方式）
//   - 支持多轮对话场景（含思考条目与工具调用）
//   - 文本响应按字符拆分为 delta 事件回放，末尾发出携带
//     usage 与 finish_reason 的 stop 事件
//   - 支持模板语法（环境变量注入）
//   - 记录所有调用详情，便于测试验证
//
// # 快速开始
//
//	// 创建 client（无参数时使用内嵌示例配置）
//	client := localmock.New()
//	defer client.Close()
//
//	// 指定使用某个场景
//	client.UseScenario("greeting")
//
//	// 调用
//	msg, err := client.Complete(ctx, messages, nil)
//
// # 场景指定模式（推荐）
//
// 通过 [Client.UseScenario] 指定使用哪个场景，每次调用自动推进一轮：
//
//	cfg := &localmock.Config{
//	    Scenarios: []localmock.Scenario{
//	        {
//	            Name: "booking",
//	            Turns: []localmock.Turn{
//	                {User: "订餐", Assistant: "几位？"},
//	                {User: "3位", Assistant: "什么时间？"},
//	                {User: "7点", Assistant: "预订完成！"},
//	            },
//	        },
//	    },
//	}
//
//	client := localmock.New(localmock.WithConfig(cfg))
//	client.UseScenario("booking")
//
// # 工具调用模拟
//
// 场景轮次可携带工具调用，回放时作为 [unillm.ToolCallItem] 条目
// 出现在 delta 事件中：
//
//	Turn{
//	    User:      "查天气",
//	    Assistant: "查询中...",
//	    Tools: []ToolCall{
//	        {Name: "get_weather", Input: map[string]any{"city": "Tokyo"}},
//	    },
//	}
//
// # 模板语法
//
// 响应文本和工具参数支持 Go 模板语法：
//
//   - {{.VAR}}: 直接访问环境变量
//   - {{.LAST_USER_MESSAGE}}: 最近一条用户消息
//   - {{.VAR | default "fallback"}}: 带默认值
//   - {{coalesce .VAR1 .VAR2 "default"}}: 多级回退
//   - {{env "VAR"}}: 显式获取环境变量
//
// # 配置选项
//
//   - [WithResponse]: 设置预设响应文本
//   - [WithResponses]: 设置响应队列（多次调用依次返回）
//   - [WithResponseFunc]: 设置动态响应函数
//   - [WithMessageFunc]: 设置完整消息响应函数（支持工具调用）
//   - [WithDelay]: 设置响应延迟
//   - [WithError]: 设置返回错误
//   - [WithConfigFile]: 从 YAML/JSON 文件加载配置
//   - [WithConfig]: 从配置对象加载设置
//
// # 线程安全
//
// [Client] 是线程安全的，可以并发调用 Complete 和 Stream 方法。
package localmock
