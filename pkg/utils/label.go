package utils

import "strings"

// Label 记录一个物品或请求在链路上经历了什么，例如
// recall_source=mf（来源 recall.mf）、filtered=popularity（来源 filter.popularity）。
// 只用于解释与观测，不参与打分。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

// MergeLabel 合并同名 Label：Value 以 '|' 追加，Source 以 ',' 追加，空值不产生分隔符。
func MergeLabel(existing, incoming Label) Label {
	return Label{
		Value:  joinNonEmpty("|", existing.Value, incoming.Value),
		Source: joinNonEmpty(",", existing.Source, incoming.Source),
	}
}

func joinNonEmpty(sep string, a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return strings.Join([]string{a, b}, sep)
}
