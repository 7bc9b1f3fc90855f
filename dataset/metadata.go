package dataset

// Metadata 是外部目录的展示元数据。
type Metadata struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path,omitempty"`
	Overview    string `json:"overview,omitempty"`
}

// MetadataTable 以外部 id 索引元数据，同一 id 以第一条为准。
type MetadataTable struct {
	byID map[string]Metadata
}

func NewMetadataTable(rows []Metadata) *MetadataTable {
	t := &MetadataTable{byID: make(map[string]Metadata, len(rows))}
	for _, r := range rows {
		if r.ID == "" {
			continue
		}
		if _, ok := t.byID[r.ID]; ok {
			continue
		}
		t.byID[r.ID] = r
	}
	return t
}

// Get 直接查找，缺失返回 false。
func (t *MetadataTable) Get(externalID string) (Metadata, bool) {
	m, ok := t.byID[externalID]
	return m, ok
}

func (t *MetadataTable) Len() int { return len(t.byID) }
