package dataset

// CatalogEntry 是外部目录（TMDB 风格）中的一条记录。
// Genres / Keywords 是逗号分隔的自由文本。
type CatalogEntry struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Genres           string `json:"genres"`
	Keywords         string `json:"keywords"`
	OriginalLanguage string `json:"original_language"`
	ReleaseDate      string `json:"release_date"`
}

// CatalogTable 外部目录，只读，保持加载顺序。
type CatalogTable struct {
	entries []CatalogEntry
}

func NewCatalogTable(entries []CatalogEntry) *CatalogTable {
	return &CatalogTable{entries: entries}
}

// Entries 返回全部记录（调用方不得修改）。
func (t *CatalogTable) Entries() []CatalogEntry { return t.entries }

func (t *CatalogTable) Len() int { return len(t.entries) }
