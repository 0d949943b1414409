package unillm

// ═══════════════════════════════════════════════════════════════════════════
// 角色定义
// ═══════════════════════════════════════════════════════════════════════════

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ═══════════════════════════════════════════════════════════════════════════
// 内容条目类型
// ═══════════════════════════════════════════════════════════════════════════

// ContentItem 内容条目接口
//
// 统一消息的内容由若干带类型标签的条目组成。每个条目对应一种
// 厂商无关的内容形态：文本、思考、工具调用、图片、工具结果。
type ContentItem interface {
	ItemType() string
}

// TextItem 文本条目
//
// Signature 为思考签名（部分厂商将签名附着在文本块上）。
// 非空的 Signature 会在 Concat 时封闭当前文本运行。
type TextItem struct {
	Text      string `json:"text"`
	Signature string `json:"signature,omitempty"`
}

// ItemType 实现 ContentItem 接口
func (i *TextItem) ItemType() string { return "text" }

// ThinkingItem 思考/推理条目
//
// Signature 是厂商返回的不透明签名，把思考内容回传给同一厂商时需要原样携带。
type ThinkingItem struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature,omitempty"`
}

// ItemType 实现 ContentItem 接口
func (i *ThinkingItem) ItemType() string { return "thinking" }

// ToolCallItem 已完成的工具调用条目
//
// Arguments 是完整解析后的参数对象。
type ToolCallItem struct {
	Name       string         `json:"name"`
	Arguments  map[string]any `json:"arguments"`
	ToolCallID string         `json:"tool_call_id"`
	Signature  string         `json:"signature,omitempty"`
}

// ItemType 实现 ContentItem 接口
func (i *ToolCallItem) ItemType() string { return "tool_call" }

// PartialToolCallItem 工具调用片段条目
//
// Arguments 是尚未拼接完成的原始 JSON 片段字符串。
// 此条目只存在于流式事件内部，绝不会出现在定稿的 UniMessage 中。
type PartialToolCallItem struct {
	Name       string `json:"name"`
	Arguments  string `json:"arguments"`
	ToolCallID string `json:"tool_call_id"`
}

// ItemType 实现 ContentItem 接口
func (i *PartialToolCallItem) ItemType() string { return "partial_tool_call" }

// ImageItem 图片条目
//
// URL 支持 http(s) 地址与 data: base64 内联形式。
type ImageItem struct {
	URL string `json:"image_url"`
}

// ItemType 实现 ContentItem 接口
func (i *ImageItem) ItemType() string { return "image_url" }

// ToolResultItem 工具执行结果条目
//
// ToolCallID 必需，用于将结果路由回对应的工具调用。
type ToolResultItem struct {
	Text       string   `json:"text"`
	Images     []string `json:"images,omitempty"`
	ToolCallID string   `json:"tool_call_id"`
}

// ItemType 实现 ContentItem 接口
func (i *ToolResultItem) ItemType() string { return "tool_result" }

// ═══════════════════════════════════════════════════════════════════════════
// 统一消息
// ═══════════════════════════════════════════════════════════════════════════

// UniMessage 统一对话消息
//
// 每个对话轮次产生一条，由 Session 独占持有，Concat 定稿后不再修改。
type UniMessage struct {
	Role         Role           `json:"role"`
	ContentItems []ContentItem  `json:"content_items"`
	Usage        *UsageMetadata `json:"usage_metadata,omitempty"`
	FinishReason FinishReason   `json:"finish_reason,omitempty"`
}

// Text 拼接消息中所有文本条目
func (m *UniMessage) Text() string {
	var out string
	for _, item := range m.ContentItems {
		if t, ok := item.(*TextItem); ok {
			out += t.Text
		}
	}
	return out
}

// Thinking 拼接消息中所有思考条目
func (m *UniMessage) Thinking() string {
	var out string
	for _, item := range m.ContentItems {
		if t, ok := item.(*ThinkingItem); ok {
			out += t.Thinking
		}
	}
	return out
}

// ToolCalls 获取消息中已完成的工具调用
func (m *UniMessage) ToolCalls() []*ToolCallItem {
	var calls []*ToolCallItem
	for _, item := range m.ContentItems {
		if tc, ok := item.(*ToolCallItem); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// HasToolCalls 检查消息是否包含工具调用
func (m *UniMessage) HasToolCalls() bool {
	for _, item := range m.ContentItems {
		if _, ok := item.(*ToolCallItem); ok {
			return true
		}
	}
	return false
}

// ═══════════════════════════════════════════════════════════════════════════
// 便捷构造函数
// ═══════════════════════════════════════════════════════════════════════════

// NewUserMessage 创建纯文本用户消息
func NewUserMessage(text string) *UniMessage {
	return &UniMessage{
		Role:         RoleUser,
		ContentItems: []ContentItem{&TextItem{Text: text}},
	}
}

// NewUserImageMessage 创建带图片的用户消息
func NewUserImageMessage(text, imageURL string) *UniMessage {
	return &UniMessage{
		Role: RoleUser,
		ContentItems: []ContentItem{
			&TextItem{Text: text},
			&ImageItem{URL: imageURL},
		},
	}
}

// NewToolResultMessage 创建工具结果用户消息
func NewToolResultMessage(toolCallID, result string) *UniMessage {
	return &UniMessage{
		Role: RoleUser,
		ContentItems: []ContentItem{
			&ToolResultItem{Text: result, ToolCallID: toolCallID},
		},
	}
}
