package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/utils"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉。
// 过滤器出错时该物品保留，错误只记录日志，不中断请求。
type FilterNode struct {
	Filters []Filter
	Logger  zerolog.Logger
}

// NewFilterNode 组合多个过滤器，nil 过滤器会被跳过。
func NewFilterNode(filters ...Filter) *FilterNode {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			out = append(out, f)
		}
	}
	return &FilterNode{Filters: out, Logger: zerolog.Nop()}
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	filtered := make(map[string]int)
	errCount := 0

	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				errCount++
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			filtered[reason]++
			item.PutLabel("filtered", utils.Label{Value: "true", Source: reason})
			continue
		}

		out = append(out, item)
	}

	if errCount > 0 {
		n.Logger.Warn().Int("errors", errCount).Msg("filter errors, items kept")
	}
	if e := n.Logger.Debug(); e.Enabled() {
		d := zerolog.Dict()
		for name, c := range filtered {
			d.Int(name, c)
		}
		e.Int("in", len(items)).Int("out", len(out)).Dict("filtered", d).Msg("filter done")
	}
	return out, nil
}
