// Package store 提供 core.Store / core.KeyValueStore 的实现。
//
// 在本系统中用于两类数据：
//   - 语义匹配的查询向量缓存（Get/Set，带 TTL）
//   - 物品热门榜单（ZAdd/ZRange/ZScore，score = 评分次数），见 recall.PublishHot
//
// 示例：
//
//	var cache core.Store = NewMemoryStore()
//	var board core.KeyValueStore = NewBadgerStore(db)
package store
