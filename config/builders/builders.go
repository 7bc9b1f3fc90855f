// Package builders 注册内置的可配置 Node。
package builders

import (
	"fmt"

	"github.com/rushteam/movierec/config"
	"github.com/rushteam/movierec/filter"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/conv"
	"github.com/rushteam/movierec/rerank"
)

func init() {
	config.Register("filter", BuildFilterNode)
	config.Register("filter.expr", BuildExprNode)
	config.Register("filter.popularity", BuildPopularityNode)
	config.Register("rerank.sort", BuildSortNode)
	config.Register("rerank.topn", BuildTopNNode)
}

// BuildFilterNode 组合多个过滤器：
//
//	type: filter
//	config:
//	  filters:
//	    - {type: expr, expr: "item.score >= 3.0"}
//	    - {type: popularity, min: 200}
func BuildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := conv.ConfigGetMaps(cfg, "filters")
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, filterMap := range filtersConfig {
		f, err := buildFilter(conv.ConfigGet(filterMap, "type", ""), filterMap)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filter.NewFilterNode(filters...), nil
}

func buildFilter(filterType string, cfg map[string]any) (filter.Filter, error) {
	switch filterType {
	case "expr":
		return filter.NewExprFilter(conv.ConfigGet(cfg, "expr", ""))
	case "popularity":
		return &filter.PopularityFilter{Min: int(conv.ConfigGetInt64(cfg, "min", 0))}, nil
	case "liked":
		return &filter.LikedFilter{}, nil
	default:
		return nil, fmt.Errorf("unknown filter type: %s", filterType)
	}
}

func BuildExprNode(cfg map[string]any) (pipeline.Node, error) {
	f, err := buildFilter("expr", cfg)
	if err != nil {
		return nil, err
	}
	return filter.NewFilterNode(f), nil
}

func BuildPopularityNode(cfg map[string]any) (pipeline.Node, error) {
	f, err := buildFilter("popularity", cfg)
	if err != nil {
		return nil, err
	}
	return filter.NewFilterNode(f), nil
}

func BuildSortNode(cfg map[string]any) (pipeline.Node, error) {
	by := rerank.SortBy(conv.ConfigGet(cfg, "by", string(rerank.SortByScore)))
	switch by {
	case rerank.SortByScore, rerank.SortByPopularity:
		return &rerank.SortNode{By: by}, nil
	default:
		return nil, fmt.Errorf("unknown sort key: %s", by)
	}
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	n := conv.ConfigGetInt64(cfg, "n", 0)
	if n <= 0 {
		return nil, fmt.Errorf("rerank.topn: n must be positive")
	}
	return &rerank.TopNNode{N: int(n)}, nil
}
