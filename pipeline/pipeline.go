package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/movierec/core"
)

// NodeStat 是一个 Node 单次执行的观测数据，In/Out 为输入输出物品数。
type NodeStat struct {
	Name     string
	Kind     Kind
	In       int
	Out      int
	Duration time.Duration
	Err      error
}

// Hook 在每个 Node 执行后调用，用于日志与指标，不能修改物品。
type Hook func(ctx context.Context, stat NodeStat)

// Pipeline 把一次推荐拆成可组合的 Node 链，前一个 Node 的输出是后一个的输入。
// 组装后只读；同一个 Pipeline 可以并发 Run。
type Pipeline struct {
	Nodes []Node
	Hooks []Hook
}

// Append 追加 Node（忽略 nil），返回自身以便链式组装。
func (p *Pipeline) Append(nodes ...Node) *Pipeline {
	for _, n := range nodes {
		if n != nil {
			p.Nodes = append(p.Nodes, n)
		}
	}
	return p
}

// Observe 追加 Hook。
func (p *Pipeline) Observe(hooks ...Hook) *Pipeline {
	p.Hooks = append(p.Hooks, hooks...)
	return p
}

// Run 依次执行全部 Node。每个 Node 之前检查 ctx，出错时错误带上阶段与节点名。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		p.emit(ctx, NodeStat{
			Name:     node.Name(),
			Kind:     node.Kind(),
			In:       len(cur),
			Out:      len(next),
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", node.Kind(), node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}

func (p *Pipeline) emit(ctx context.Context, stat NodeStat) {
	for _, h := range p.Hooks {
		h(ctx, stat)
	}
}
