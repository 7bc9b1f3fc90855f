package resolver

import (
	"regexp"
	"strings"
)

var (
	// "Matrix, The (1999)" / "Matrix, The"
	trailingArticle = regexp.MustCompile(`^(.*),\s*The\s*(\(\d{4}\))?$`)
	yearSuffix      = regexp.MustCompile(`\(\d{4}\)`)
)

// NormalizeTitle 把 MovieLens 风格的片名转换为可与外部目录比较的形式：
// "Title, The (Year)" 改写为 "the title"，其余去掉年份括号；结果去空白并小写。
func NormalizeTitle(title string) string {
	if m := trailingArticle.FindStringSubmatch(title); m != nil {
		return strings.ToLower(strings.TrimSpace("The " + strings.TrimSpace(m[1])))
	}
	return strings.ToLower(strings.TrimSpace(yearSuffix.ReplaceAllString(title, "")))
}

// normalizeCatalogTitle 外部目录片名只做去空白与小写
func normalizeCatalogTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
