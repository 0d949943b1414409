// Package trace 提供会话历史的落盘能力
//
// Tracer 将 (model, history, config) 以 JSON 和可读文本两种形式
// 写入缓存目录，文件标识可带子目录（如 "agent1/00001"）。
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
)

// ═══════════════════════════════════════════════════════════════════════════
// Sink 接口
// ═══════════════════════════════════════════════════════════════════════════

// Sink 会话历史落盘接口
//
// Session 在每轮提交后调用 SaveHistory，返回的错误会被忽略，
// 落盘失败不影响会话本身。
type Sink interface {
	SaveHistory(model string, history []*unillm.UniMessage, fileID string, config *unillm.UniConfig) error
}

// ═══════════════════════════════════════════════════════════════════════════
// Tracer 实现
// ═══════════════════════════════════════════════════════════════════════════

// Tracer 基于本地文件系统的 Sink 实现
type Tracer struct {
	// Dir 缓存目录，空时回退到 UNILLM_CACHE_DIR 环境变量，再回退到 "cache"
	Dir string
}

// NewTracer 创建 Tracer 并确保缓存目录存在
func NewTracer(dir string) (*Tracer, error) {
	if dir == "" {
		dir = os.Getenv("UNILLM_CACHE_DIR")
	}
	if dir == "" {
		dir = "cache"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Tracer{Dir: dir}, nil
}

// NewFileID 生成随机文件标识
func NewFileID() string {
	return uuid.NewString()
}

// SaveHistory 将会话历史写入 <fileID>.json 和 <fileID>.txt
//
// fileID 可包含子目录（如 "agent1/00001"），缺失的目录自动创建。
func (t *Tracer) SaveHistory(model string, history []*unillm.UniMessage, fileID string, config *unillm.UniConfig) error {
	base := filepath.Join(t.Dir, filepath.FromSlash(fileID))
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return fmt.Errorf("create trace dir: %w", err)
	}

	cfgMap := configMap(model, config)

	doc := map[string]any{
		"history":   serializeHistory(history),
		"config":    cfgMap,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	if err := os.WriteFile(base+".json", data, 0o644); err != nil {
		return fmt.Errorf("write trace json: %w", err)
	}

	if err := os.WriteFile(base+".txt", []byte(formatHistory(history, cfgMap)), 0o644); err != nil {
		return fmt.Errorf("write trace txt: %w", err)
	}

	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 序列化
// ═══════════════════════════════════════════════════════════════════════════

// configMap 将 UniConfig 展开为 map 并附加模型名
func configMap(model string, config *unillm.UniConfig) map[string]any {
	out := map[string]any{}
	if config != nil {
		if data, err := json.Marshal(config); err == nil {
			_ = json.Unmarshal(data, &out)
		}
	}
	out["model"] = model
	return out
}

// serializeHistory 将历史消息展开为带类型标签的 map 列表
//
// 接口类型的内容条目直接 json.Marshal 会丢失类型标签，
// 这里为每个条目附加 type 字段。
func serializeHistory(history []*unillm.UniMessage) []map[string]any {
	out := make([]map[string]any, 0, len(history))
	for _, msg := range history {
		items := make([]map[string]any, 0, len(msg.ContentItems))
		for _, item := range msg.ContentItems {
			items = append(items, serializeItem(item))
		}
		m := map[string]any{
			"role":          string(msg.Role),
			"content_items": items,
		}
		if msg.Usage != nil {
			m["usage_metadata"] = msg.Usage
		}
		if msg.FinishReason != "" {
			m["finish_reason"] = string(msg.FinishReason)
		}
		out = append(out, m)
	}
	return out
}

// serializeItem 内容条目转 map，附加 type 标签
func serializeItem(item unillm.ContentItem) map[string]any {
	m := map[string]any{"type": item.ItemType()}
	if data, err := json.Marshal(item); err == nil {
		fields := map[string]any{}
		if json.Unmarshal(data, &fields) == nil {
			for k, v := range fields {
				m[k] = v
			}
		}
	}
	return m
}

// ═══════════════════════════════════════════════════════════════════════════
// 可读文本渲染
// ═══════════════════════════════════════════════════════════════════════════

// formatHistory 渲染人类可读的会话文本
func formatHistory(history []*unillm.UniMessage, cfg map[string]any) string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)

	b.WriteString(rule + "\n")
	b.WriteString(fmt.Sprintf("Conversation History - %s\n", time.Now().Format("2006-01-02 15:04:05")))
	b.WriteString(rule + "\n\n")

	b.WriteString("Configuration:\n")
	for key, value := range cfg {
		if key == "trace_id" {
			continue
		}
		if key == "tools" {
			if data, err := json.MarshalIndent(value, "    ", "  "); err == nil {
				b.WriteString(fmt.Sprintf("  %s:\n    %s\n", key, string(data)))
				continue
			}
		}
		b.WriteString(fmt.Sprintf("  %s: %v\n", key, value))
	}
	b.WriteString("\n")

	for i, msg := range history {
		b.WriteString(fmt.Sprintf("[%d] %s:\n", i+1, strings.ToUpper(string(msg.Role))))
		b.WriteString(strings.Repeat("-", 80) + "\n")

		for _, item := range msg.ContentItems {
			switch v := item.(type) {
			case *unillm.TextItem:
				b.WriteString(fmt.Sprintf("Text: %s\n", v.Text))
			case *unillm.ThinkingItem:
				b.WriteString(fmt.Sprintf("Thinking: %s\n", v.Thinking))
			case *unillm.ImageItem:
				b.WriteString(fmt.Sprintf("Image URL: %s\n", v.URL))
			case *unillm.ToolCallItem:
				b.WriteString(fmt.Sprintf("Tool Call: %s\n", v.Name))
				if data, err := json.MarshalIndent(v.Arguments, "  ", "  "); err == nil {
					b.WriteString(fmt.Sprintf("  Arguments: %s\n", string(data)))
				}
				b.WriteString(fmt.Sprintf("  Tool Call ID: %s\n", v.ToolCallID))
			case *unillm.ToolResultItem:
				b.WriteString(fmt.Sprintf("Tool Result (ID: %s): %s\n", v.ToolCallID, v.Text))
				for j, url := range v.Images {
					b.WriteString(fmt.Sprintf("  Image %d: %s\n", j+1, url))
				}
			case *unillm.PartialToolCallItem:
				// 半成品片段不落盘
			}
		}

		if msg.Usage != nil {
			b.WriteString("\nUsage Metadata:\n")
			if msg.Usage.PromptTokens > 0 {
				b.WriteString(fmt.Sprintf("  Prompt Tokens: %d\n", msg.Usage.PromptTokens))
			}
			if msg.Usage.ThoughtsTokens > 0 {
				b.WriteString(fmt.Sprintf("  Thoughts Tokens: %d\n", msg.Usage.ThoughtsTokens))
			}
			if msg.Usage.ResponseTokens > 0 {
				b.WriteString(fmt.Sprintf("  Response Tokens: %d\n", msg.Usage.ResponseTokens))
			}
			if msg.Usage.CachedTokens > 0 {
				b.WriteString(fmt.Sprintf("  Cached Tokens: %d\n", msg.Usage.CachedTokens))
			}
		}

		if msg.FinishReason != "" {
			b.WriteString(fmt.Sprintf("\nFinish Reason: %s\n", msg.FinishReason))
		}

		b.WriteString("\n")
	}

	return b.String()
}

// 编译时接口检查
var _ Sink = (*Tracer)(nil)
