package filter

import (
	"context"
	"slices"

	"github.com/rushteam/movierec/core"
)

// SeenLookup 判断用户是否评过某物品；dataset.RatingTable 实现了该接口。
type SeenLookup interface {
	HasSeen(userID, itemID int64) bool
}

// SeenFilter 剔除已知用户评过分的物品。rctx.UserID 为 0（冷启动）时不生效。
type SeenFilter struct {
	Seen SeenLookup
}

func (f *SeenFilter) Name() string {
	return "filter.seen"
}

func (f *SeenFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if f.Seen == nil || rctx == nil || rctx.UserID == 0 {
		return false, nil
	}
	return f.Seen.HasSeen(rctx.UserID, item.ID), nil
}

// LikedFilter 剔除请求中声明喜欢的物品，刚喜欢过的不再推荐。
type LikedFilter struct{}

func (f *LikedFilter) Name() string {
	return "filter.liked"
}

func (f *LikedFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil {
		return false, nil
	}
	return slices.Contains(rctx.LikedItemIDs, item.ID), nil
}
