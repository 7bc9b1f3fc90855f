package dataset

// Movie 是内部片库（评分数据所在 id 空间）中的一条记录。
type Movie struct {
	ID     int64  `json:"movie_id"`
	Title  string `json:"title"`
	Genres string `json:"genres"`
}

// MovieCatalog 内部片库，保持加载顺序；同一 id 以第一条为准。
type MovieCatalog struct {
	movies []Movie
	byID   map[int64]int
}

func NewMovieCatalog(movies []Movie) *MovieCatalog {
	c := &MovieCatalog{
		movies: make([]Movie, 0, len(movies)),
		byID:   make(map[int64]int, len(movies)),
	}
	for _, m := range movies {
		if _, ok := c.byID[m.ID]; ok {
			continue
		}
		c.byID[m.ID] = len(c.movies)
		c.movies = append(c.movies, m)
	}
	return c
}

// Get 按 id 查找。
func (c *MovieCatalog) Get(id int64) (Movie, bool) {
	if c == nil {
		return Movie{}, false
	}
	idx, ok := c.byID[id]
	if !ok {
		return Movie{}, false
	}
	return c.movies[idx], true
}

// Title 返回片名，找不到返回空串。
func (c *MovieCatalog) Title(id int64) string {
	m, _ := c.Get(id)
	return m.Title
}

// Movies 按加载顺序返回全部记录（调用方不得修改）。
func (c *MovieCatalog) Movies() []Movie { return c.movies }

func (c *MovieCatalog) Len() int { return len(c.movies) }
