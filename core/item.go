package core

import "github.com/rushteam/movierec/pkg/utils"

// Item 是推荐链路中的统一承载结构：分数、特征、元信息、标签。
// Labels 用于解释与观测；Score 用于排序决策。
//
// 约定的 Features / Meta key：
//   - Features["popularity"]：历史评分次数
//   - Meta["title"]：片名
//   - Meta["genres"]：类型文本
type Item struct {
	ID       int64
	Score    float64
	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label
}

// 常用的 Feature / Meta key
const (
	FeaturePopularity = "popularity"
	MetaTitle         = "title"
	MetaGenres        = "genres"
)

func NewItem(id int64) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Popularity 返回物品的历史评分次数。
func (it *Item) Popularity() int {
	if it.Features == nil {
		return 0
	}
	return int(it.Features[FeaturePopularity])
}

// Title 返回 Meta 中的片名，没有则返回空串。
func (it *Item) Title() string {
	if it.Meta == nil {
		return ""
	}
	s, _ := it.Meta[MetaTitle].(string)
	return s
}
