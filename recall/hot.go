package recall

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/utils"
)

// DefaultHotKey 热度榜在 Store 中的默认 key
const DefaultHotKey = "hot:items"

// Hot 是热度召回源，用于冷启动信号为空或全部无法识别时的兜底。
//   - Store 实现了 KeyValueStore 时，从有序集合 Key 读取候选（按热度降序）
//   - 否则从普通 key 读取 JSON 数组
//   - Store 为空或读取失败时，使用内存中的 IDs
//
// 所有候选的预测分都取 Score（占位评分，调用方负责裁剪到评分区间）。
// Hot 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Hot struct {
	Store core.Store
	Key   string  // 存储 key，例如 "hot:items"
	IDs   []int64 // fallback 内存列表

	Score      float64
	Popularity PopularityLookup
	Titles     TitleLookup
}

func (r *Hot) Name() string        { return "recall.hot" }
func (r *Hot) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Hot) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *Hot) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	ids := r.loadFromStore(ctx)
	if len(ids) == 0 {
		ids = r.IDs
	}

	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		it := newItem(id, r.Score, r.Popularity, r.Titles)
		it.PutLabel("recall_source", utils.Label{Value: "hot", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

func (r *Hot) loadFromStore(ctx context.Context) []int64 {
	if r.Store == nil || r.Key == "" {
		return nil
	}
	if kvStore, ok := r.Store.(core.KeyValueStore); ok {
		members, err := kvStore.ZRange(ctx, r.Key, 0, -1)
		if err != nil || len(members) == 0 {
			return nil
		}
		ids := make([]int64, 0, len(members))
		for _, m := range members {
			if id, err := strconv.ParseInt(m, 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
		return ids
	}

	data, err := r.Store.Get(ctx, r.Key)
	if err != nil {
		return nil
	}
	var parsed []int64
	if json.Unmarshal(data, &parsed) != nil {
		return nil
	}
	return parsed
}

// PublishHot 把物品热度写入 Store，供 Hot 读取。
// KeyValueStore 写有序集合（score = 热度），普通 Store 写按热度降序、id 升序排列的 JSON 数组。
func PublishHot(ctx context.Context, st core.Store, key string, ids []int64, pop PopularityLookup) error {
	if st == nil || key == "" || pop == nil {
		return nil
	}
	if kvStore, ok := st.(core.KeyValueStore); ok {
		for _, id := range ids {
			if err := kvStore.ZAdd(ctx, key, float64(pop.Popularity(id)), strconv.FormatInt(id, 10)); err != nil {
				return fmt.Errorf("publish hot %s: %w", key, err)
			}
		}
		return nil
	}

	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b int64) int {
		if pa, pb := pop.Popularity(a), pop.Popularity(b); pa != pb {
			return pb - pa
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
	data, err := json.Marshal(sorted)
	if err != nil {
		return fmt.Errorf("publish hot %s: %w", key, err)
	}
	if err := st.Set(ctx, key, data); err != nil {
		return fmt.Errorf("publish hot %s: %w", key, err)
	}
	return nil
}
