package dataset

// Link 是一条内部 item id 与外部目录 id 的对应关系。
type Link struct {
	ItemID     int64  `json:"movie_id"`
	ExternalID string `json:"tmdb_id"`
}

// Crosswalk 内部 id 与外部 id 的双向映射。
// 脏数据中可能出现多对一，两个方向各自以第一条为准；查不到返回 false。
type Crosswalk struct {
	toExternal map[int64]string
	toInternal map[string]int64
}

func NewCrosswalk(links []Link) *Crosswalk {
	c := &Crosswalk{
		toExternal: make(map[int64]string, len(links)),
		toInternal: make(map[string]int64, len(links)),
	}
	for _, l := range links {
		if l.ItemID == 0 || l.ExternalID == "" {
			continue
		}
		if _, ok := c.toExternal[l.ItemID]; !ok {
			c.toExternal[l.ItemID] = l.ExternalID
		}
		if _, ok := c.toInternal[l.ExternalID]; !ok {
			c.toInternal[l.ExternalID] = l.ItemID
		}
	}
	return c
}

// ToInternal 外部 id → 内部 id。
func (c *Crosswalk) ToInternal(externalID string) (int64, bool) {
	id, ok := c.toInternal[externalID]
	return id, ok
}

// ToExternal 内部 id → 外部 id。
func (c *Crosswalk) ToExternal(itemID int64) (string, bool) {
	id, ok := c.toExternal[itemID]
	return id, ok
}

// ToInternalAll 批量转换，保持输入顺序，返回未命中的个数。
func (c *Crosswalk) ToInternalAll(externalIDs []string) ([]int64, int) {
	out := make([]int64, 0, len(externalIDs))
	missing := 0
	for _, ext := range externalIDs {
		if id, ok := c.toInternal[ext]; ok {
			out = append(out, id)
			continue
		}
		missing++
	}
	return out, missing
}
