package model

import (
	"sort"

	"github.com/goccy/go-json"
)

// IDEncoder 是原始 id 与稠密下标之间的双射。
// 下标按原始 id 升序分配；训练时没见过的 id 没有编码，查询返回 false，不做猜测。
type IDEncoder struct {
	ids   []int64
	index map[int64]int
}

// NewIDEncoder 对 ids 去重、升序后建立编码。
func NewIDEncoder(ids []int64) *IDEncoder {
	uniq := make(map[int64]struct{}, len(ids))
	sorted := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := uniq[id]; ok {
			continue
		}
		uniq[id] = struct{}{}
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return newEncoderFromSorted(sorted)
}

func newEncoderFromSorted(sorted []int64) *IDEncoder {
	index := make(map[int64]int, len(sorted))
	for i, id := range sorted {
		index[id] = i
	}
	return &IDEncoder{ids: sorted, index: index}
}

// Encode 原始 id → 下标。
func (e *IDEncoder) Encode(id int64) (int, bool) {
	idx, ok := e.index[id]
	return idx, ok
}

// Decode 下标 → 原始 id。
func (e *IDEncoder) Decode(idx int) (int64, bool) {
	if idx < 0 || idx >= len(e.ids) {
		return 0, false
	}
	return e.ids[idx], true
}

// Len 编码的 id 个数。
func (e *IDEncoder) Len() int { return len(e.ids) }

// IDs 按下标顺序返回原始 id（调用方不得修改）。
func (e *IDEncoder) IDs() []int64 { return e.ids }

// MarshalJSON 序列化为按下标排列的 id 数组。
func (e *IDEncoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ids)
}

// UnmarshalJSON 要求 id 严格升序，否则视为损坏。
func (e *IDEncoder) UnmarshalJSON(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			return errUnsortedEncoder
		}
	}
	*e = *newEncoderFromSorted(ids)
	return nil
}
