package pipeline

import (
	"context"

	"github.com/rushteam/movierec/core"
)

// Kind 标记 Node 所属阶段，日志与指标按阶段聚合。
type Kind string

const (
	KindRecall Kind = "recall" // 生成候选并打分
	KindFilter Kind = "filter" // 硬过滤：已看、已喜欢、热度门槛、表达式
	KindReRank Kind = "rerank" // 排序、截断、池内采样
)

// Node 把一组物品变换为另一组物品。召回节点通常忽略输入，直接产出候选。
// 实现必须可并发调用。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// NodeBuilder 根据配置构建 Node，config 来自 YAML/JSON 的 config 字段。
type NodeBuilder func(config map[string]any) (Node, error)

// NodeFunc 把普通函数包装成 Node。
type NodeFunc struct {
	NodeName string
	NodeKind Kind
	Fn       func(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error)
}

func (n NodeFunc) Name() string { return n.NodeName }

func (n NodeFunc) Kind() Kind { return n.NodeKind }

func (n NodeFunc) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return n.Fn(ctx, rctx, items)
}
