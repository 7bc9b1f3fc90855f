package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/movierec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	// programs 缓存编译结果，key 为表达式文本
	programs sync.Map
)

// initCELEnv 初始化 CEL 环境，定义变量和函数
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Compile 编译表达式并缓存，返回的 Program 可在多个 goroutine 中复用。
// 过滤节点在构建期调用一次，把语法错误提前暴露在配置加载阶段。
func Compile(expr string) (cel.Program, error) {
	if v, ok := programs.Load(expr); ok {
		return v.(cel.Program), nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	programs.Store(expr, prg)
	return prg, nil
}

// Eval 是 Label DSL 解释器，使用 CEL (Common Expression Language) 实现。
//
// 表达式语法（CEL 标准语法）：
//   - 数值：item.score >= 3.5 / item.features.popularity > 200.0
//   - 元信息：item.meta.title.contains("Star")
//   - 请求：rctx.user_id == 0 / item.id in rctx.liked_item_ids / rctx.path == "cold_start"
//   - 标签：label.recall_source == "mf"
//
// 访问不存在的 key 会报错，使用 has(item.meta.title) 或 label.key != null 先判断存在性。
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
}

// NewEval 创建一个新的 DSL 解释器。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	return &Eval{
		item: item,
		rctx: rctx,
	}
}

// Evaluate 解析并执行 DSL 表达式，返回布尔结果；空表达式视为 true。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	prg, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return e.Run(prg)
}

// Run 执行已编译的程序。
func (e *Eval) Run(prg cel.Program) (bool, error) {
	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]any {
	labels := make(map[string]any)
	labelAccessor := make(map[string]any)
	item := map[string]any{}
	if e.item != nil {
		for k, v := range e.item.Labels {
			labels[k] = map[string]any{
				"value":  v.Value,
				"source": v.Source,
			}
			// label.recall_source 直接返回 value
			labelAccessor[k] = v.Value
		}
		item = map[string]any{
			"id":       e.item.ID,
			"score":    e.item.Score,
			"features": e.item.Features,
			"meta":     e.item.Meta,
			"labels":   labels,
		}
	}

	rctx := map[string]any{
		"user_id":        int64(0),
		"liked_item_ids": []int64{},
		"params":         map[string]any{},
		"path":           "",
	}
	if e.rctx != nil {
		rctx["user_id"] = e.rctx.UserID
		rctx["path"] = e.rctx.Path()
		if e.rctx.LikedItemIDs != nil {
			rctx["liked_item_ids"] = e.rctx.LikedItemIDs
		}
		if e.rctx.Params != nil {
			rctx["params"] = e.rctx.Params
		}
	}

	return map[string]any{
		"item":  item,
		"label": labelAccessor,
		"rctx":  rctx,
	}
}
