// Package movierec 是一个电影推荐引擎。
//
// 设计要点：
// - 矩阵分解：随机截断 SVD 训练隐因子，已知用户直接打分，新用户由喜欢的物品折叠出伪用户向量
// - Pipeline-first: 每次请求都组装成 Node 链（Recall → Filter → ReRank），可通过配置插入扩展节点
// - 热度兜底：没有可用信号时按评分次数排序，可选从候选池随机采样以刷新结果
// - 语义偏好：自由文本经句向量匹配到目录的类型/关键词，再落到片库
package movierec

import (
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/recommender"
)

// 轻量 facade：便于直接 import "movierec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

type Engine = engine.Engine
type Recommendation = engine.Recommendation
type Service = recommender.Service
type MovieRecommendation = recommender.MovieRecommendation

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindReRank = pipeline.KindReRank
)
