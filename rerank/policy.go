package rerank

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
)

// Mode 排序策略
type Mode int

const (
	// Deterministic 直接取排序后的前 K 个
	Deterministic Mode = iota
	// RandomFromPool 在前 PoolSize 个候选中均匀随机抽取 K 个，重复请求得到不同结果
	RandomFromPool
)

func (m Mode) String() string {
	switch m {
	case Deterministic:
		return "deterministic"
	case RandomFromPool:
		return "random_from_pool"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode 解析配置中的策略名称。
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "deterministic":
		return Deterministic, nil
	case "random_from_pool", "refresh":
		return RandomFromPool, nil
	default:
		return Deterministic, fmt.Errorf("unknown rerank mode %q", s)
	}
}

// Policy 决定排序后的候选如何截取成最终结果。
type Policy struct {
	Mode Mode
	// PoolSize 随机采样的候选池大小，<= 0 表示整个候选集
	PoolSize int
}

// DeterministicPolicy 返回确定性 top-k 策略。
func DeterministicPolicy() Policy {
	return Policy{Mode: Deterministic}
}

// RandomFromPoolPolicy 返回池内随机采样策略。
func RandomFromPoolPolicy(poolSize int) Policy {
	return Policy{Mode: RandomFromPool, PoolSize: poolSize}
}

func (p Policy) String() string {
	if p.Mode == RandomFromPool {
		return fmt.Sprintf("%s(%d)", p.Mode, p.PoolSize)
	}
	return p.Mode.String()
}

// PolicyNode 按 Policy 从已排序的候选中截取 K 个。
//
// RandomFromPool 抽中的物品保持其在排序中的相对顺序。
// Rand 为空时使用 math/rand/v2 的全局随机源（不设种子），测试可注入固定种子的 Rand。
type PolicyNode struct {
	Policy Policy
	K      int
	Rand   *rand.Rand
}

func (n *PolicyNode) Name() string {
	return "rerank.policy"
}

func (n *PolicyNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *PolicyNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.K <= 0 {
		return []*core.Item{}, nil
	}
	if n.Policy.Mode != RandomFromPool {
		if len(items) <= n.K {
			return items, nil
		}
		return items[:n.K], nil
	}

	pool := items
	if n.Policy.PoolSize > 0 && len(pool) > n.Policy.PoolSize {
		pool = pool[:n.Policy.PoolSize]
	}
	if len(pool) <= n.K {
		return pool, nil
	}

	picked := n.sampleIndexes(len(pool), n.K)
	slices.Sort(picked)
	out := make([]*core.Item, 0, len(picked))
	for _, idx := range picked {
		out = append(out, pool[idx])
	}
	return out, nil
}

// sampleIndexes 部分 Fisher-Yates：从 [0, n) 中不放回抽取 k 个下标
func (n *PolicyNode) sampleIndexes(size, k int) []int {
	intN := rand.IntN
	if n.Rand != nil {
		intN = n.Rand.IntN
	}
	idx := make([]int, size)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + intN(size-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
