// Package model 实现协同过滤的矩阵分解模型：
// 稀疏评分矩阵上的随机截断 SVD、打分裁剪、以及模型产物的持久化。
//
// 模型训练一次、离线保存，服务进程启动时加载后只读使用。
package model

import "math"

// 两档容量预设：100 维适合快速迭代，500 维拟合更充分但更容易过拟合。
const (
	RankSmall = 100
	RankLarge = 500
)

// RatingScale 是合法评分区间，所有预测值都会被裁剪到 [Min, Max]。
type RatingScale struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultRatingScale MovieLens 五星制
var DefaultRatingScale = RatingScale{Min: 1, Max: 5}

// Clip 把线性模型的原始分数裁剪到评分区间内。
func (s RatingScale) Clip(v float64) float64 {
	if v < s.Min || math.IsNaN(v) {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// Valid 区间是否合法（Min < Max）。
func (s RatingScale) Valid() bool {
	return s.Min < s.Max
}
