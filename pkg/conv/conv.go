// Package conv 从 YAML/JSON 解析出的 map[string]any 中按类型取值。
//
// yaml.v3 把整数解成 int，JSON 解成 float64，节点构建器统一经这里读取。
package conv

// ToInt64 把数值型的 any 转为 int64，小数部分截断。
func ToInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int64:
		return val, true
	case int32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float64:
		return int64(val), true
	case float32:
		return int64(val), true
	default:
		return 0, false
	}
}

// ConfigGet 按 key 取 T，缺失或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	t, ok := v.(T)
	if !ok {
		return defaultVal
	}
	return t
}

// ConfigGetInt64 按 key 取整数，兼容 int 与 float64。
func ConfigGetInt64(m map[string]any, key string, defaultVal int64) int64 {
	n, ok := ToInt64(m[key])
	if !ok {
		return defaultVal
	}
	return n
}

// ConfigGetMaps 取一个对象列表，非对象元素被跳过；key 缺失或不是列表时 ok 为 false。
func ConfigGetMaps(m map[string]any, key string) (out []map[string]any, ok bool) {
	list, ok := m[key].([]any)
	if !ok {
		return nil, false
	}
	out = make([]map[string]any, 0, len(list))
	for _, v := range list {
		if mv, isMap := v.(map[string]any); isMap {
			out = append(out, mv)
		}
	}
	return out, true
}
