package core

// ═══════════════════════════════════════════════════════════════════════════
// 类型转换辅助函数
// ═══════════════════════════════════════════════════════════════════════════

// GetInt64 将 any 类型安全转换为 int64
//
// 支持 float64（JSON 数字默认类型）、int、int64，其他类型返回 0。
//
// 使用场景：解析 API 响应中的 token 数量、流式事件中的块索引。
func GetInt64(val any) int64 {
	switch v := val.(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

// GetFloat64 将 any 类型安全转换为 float64
//
// 支持 float64、int、int64，其他类型返回 0。
func GetFloat64(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// GetString 将 any 类型安全转换为 string
//
// 非字符串类型返回 ""。
//
// 示例：
//
//	id := GetString(block["id"])
//	name := GetString(block["name"])
func GetString(val any) string {
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// GetMap 将 any 类型安全转换为 map[string]any
//
// 非 map 类型返回 nil。JSON 对象解析后即为此类型。
func GetMap(val any) map[string]any {
	if m, ok := val.(map[string]any); ok {
		return m
	}
	return nil
}

// GetSlice 将 any 类型安全转换为 []any
//
// 非数组类型返回 nil。
func GetSlice(val any) []any {
	if s, ok := val.([]any); ok {
		return s
	}
	return nil
}
