package dataset

import (
	"sort"
	"strconv"
	"strings"
)

// FilterOptions 是外部目录中可供用户选择的过滤项全集。
type FilterOptions struct {
	Genres    []string `json:"genres"`
	Keywords  []string `json:"keywords"`
	Languages []string `json:"languages"`
	MinYear   int      `json:"min_year"`
	MaxYear   int      `json:"max_year"`
}

// SplitTerms 按逗号切分自由文本并去掉空白项。
func SplitTerms(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ExtractFilterOptions 汇总目录中出现过的类型、关键词、语言（均去重升序）以及上映年份范围。
// 无法解析年份的记录不参与年份统计；一条都没有时 MinYear/MaxYear 为 0。
func ExtractFilterOptions(entries []CatalogEntry) FilterOptions {
	genres := make(map[string]struct{})
	keywords := make(map[string]struct{})
	languages := make(map[string]struct{})
	var opts FilterOptions

	for _, e := range entries {
		for _, g := range SplitTerms(e.Genres) {
			genres[g] = struct{}{}
		}
		for _, k := range SplitTerms(e.Keywords) {
			keywords[k] = struct{}{}
		}
		if lang := strings.TrimSpace(e.OriginalLanguage); lang != "" {
			languages[lang] = struct{}{}
		}
		year, ok := releaseYear(e.ReleaseDate)
		if !ok {
			continue
		}
		if opts.MinYear == 0 || year < opts.MinYear {
			opts.MinYear = year
		}
		if year > opts.MaxYear {
			opts.MaxYear = year
		}
	}

	opts.Genres = sortedKeys(genres)
	opts.Keywords = sortedKeys(keywords)
	opts.Languages = sortedKeys(languages)
	return opts
}

// releaseYear 取 "YYYY-MM-DD" / "YYYY" 的年份部分
func releaseYear(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil || y <= 0 {
		return 0, false
	}
	return y, true
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
