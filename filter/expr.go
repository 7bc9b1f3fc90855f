package filter

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式描述保留条件：表达式为 false 的物品被过滤。
//
// 示例：
//   - `item.score >= 3.5`
//   - `!item.meta.title.contains("(1995)")`
type ExprFilter struct {
	Expr string
	prg  cel.Program
}

// NewExprFilter 编译表达式，语法错误在构建期返回。
func NewExprFilter(expr string) (*ExprFilter, error) {
	if expr == "" {
		return nil, fmt.Errorf("filter.expr: empty expression")
	}
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("filter.expr: %w", err)
	}
	return &ExprFilter{Expr: expr, prg: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	eval := dsl.NewEval(item, rctx)
	var (
		keep bool
		err  error
	)
	if f.prg != nil {
		keep, err = eval.Run(f.prg)
	} else {
		keep, err = eval.Evaluate(f.Expr)
	}
	if err != nil {
		return false, err
	}
	return !keep, nil
}
