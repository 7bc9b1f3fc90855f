// Package dataset 提供推荐引擎在加载期读取的只读数据表：
// 评分表、内部片库、外部目录、元数据表以及 id 映射表。
//
// 所有表在进程启动时构建一次，之后只读，可被并发请求安全共享。
package dataset

import (
	"math"
	"sort"
)

// Rating 是一条评分观测。
type Rating struct {
	UserID int64   `json:"user_id"`
	ItemID int64   `json:"item_id"`
	Value  float64 `json:"rating"`
}

// RatingTable 是去重后的评分表，附带每个物品的热度（评分次数）与每个用户的已看集合。
type RatingTable struct {
	ratings    []Rating
	popularity map[int64]int
	seen       map[int64]map[int64]struct{}
	dropped    int
}

// NewRatingTable 构建评分表。
//
//   - 同一 (user, item) 出现多次时保留最后一次观测
//   - user/item 为 0 或评分为 NaN/Inf 的行被丢弃（视为缺失键）
//   - 热度在去重后的表上统计
func NewRatingTable(ratings []Rating) *RatingTable {
	type key struct{ u, i int64 }
	pos := make(map[key]int, len(ratings))
	out := make([]Rating, 0, len(ratings))
	dropped := 0
	for _, r := range ratings {
		if r.UserID == 0 || r.ItemID == 0 || math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			dropped++
			continue
		}
		k := key{r.UserID, r.ItemID}
		if idx, ok := pos[k]; ok {
			out[idx] = r
			dropped++
			continue
		}
		pos[k] = len(out)
		out = append(out, r)
	}

	t := &RatingTable{
		ratings:    out,
		popularity: make(map[int64]int),
		seen:       make(map[int64]map[int64]struct{}),
		dropped:    dropped,
	}
	for _, r := range out {
		t.popularity[r.ItemID]++
		s, ok := t.seen[r.UserID]
		if !ok {
			s = make(map[int64]struct{})
			t.seen[r.UserID] = s
		}
		s[r.ItemID] = struct{}{}
	}
	return t
}

// Ratings 返回去重后的评分（调用方不得修改）。
func (t *RatingTable) Ratings() []Rating { return t.ratings }

// Len 去重后的评分条数。
func (t *RatingTable) Len() int { return len(t.ratings) }

// Dropped 构建时被丢弃（缺失键或重复）的行数。
func (t *RatingTable) Dropped() int { return t.dropped }

// Popularity 返回物品的历史评分次数，未出现过返回 0。
func (t *RatingTable) Popularity(itemID int64) int {
	return t.popularity[itemID]
}

// HasSeen 用户是否评过该物品。
func (t *RatingTable) HasSeen(userID, itemID int64) bool {
	_, ok := t.seen[userID][itemID]
	return ok
}

// SeenItems 返回用户评过的物品，按 id 升序。
func (t *RatingTable) SeenItems(userID int64) []int64 {
	s := t.seen[userID]
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Items 返回出现过的全部物品 id，升序。
func (t *RatingTable) Items() []int64 {
	out := make([]int64, 0, len(t.popularity))
	for id := range t.popularity {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Users 返回出现过的全部用户 id，升序。
func (t *RatingTable) Users() []int64 {
	out := make([]int64, 0, len(t.seen))
	for id := range t.seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
