package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Loader 使用内存 DuckDB 读取 CSV 数据表。
// read_csv_auto 负责类型推断；缺失键在 SQL 中过滤。评分按文件顺序返回，去重交给 NewRatingTable。
type Loader struct {
	db *sql.DB
}

// NewLoader 打开一个内存 DuckDB 连接。
func NewLoader() (*Loader, error) {
	db, err := sql.Open("duckdb", ":memory:?autoinstall_known_extensions=false&autoload_known_extensions=false")
	if err != nil {
		return nil, fmt.Errorf("dataset: open duckdb: %w", err)
	}
	return &Loader{db: db}, nil
}

func (l *Loader) Close() error {
	return l.db.Close()
}

// LoadRatings 读取 userId,movieId,rating。
func (l *Loader) LoadRatings(ctx context.Context, path string) ([]Rating, error) {
	query := fmt.Sprintf(`SELECT CAST(userId AS BIGINT), CAST(movieId AS BIGINT), CAST(rating AS DOUBLE)
		FROM read_csv_auto(%s, header = true)
		WHERE userId IS NOT NULL AND movieId IS NOT NULL AND rating IS NOT NULL`, quoteLiteral(path))
	rows, err := queryAndScan(ctx, l.db, query, func(rows *sql.Rows) (Rating, error) {
		var r Rating
		err := rows.Scan(&r.UserID, &r.ItemID, &r.Value)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: load ratings %s: %w", path, err)
	}
	return rows, nil
}

// LoadMovies 读取 movieId,title,genres。
func (l *Loader) LoadMovies(ctx context.Context, path string) ([]Movie, error) {
	query := fmt.Sprintf(`SELECT CAST(movieId AS BIGINT), COALESCE(CAST(title AS VARCHAR), ''), COALESCE(CAST(genres AS VARCHAR), '')
		FROM read_csv_auto(%s, header = true)
		WHERE movieId IS NOT NULL`, quoteLiteral(path))
	rows, err := queryAndScan(ctx, l.db, query, func(rows *sql.Rows) (Movie, error) {
		var m Movie
		err := rows.Scan(&m.ID, &m.Title, &m.Genres)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: load movies %s: %w", path, err)
	}
	return rows, nil
}

// LoadLinks 读取 movieId,imdbId,tmdbId，外部 id 取 tmdbId。
func (l *Loader) LoadLinks(ctx context.Context, path string) ([]Link, error) {
	query := fmt.Sprintf(`SELECT CAST(movieId AS BIGINT), CAST(CAST(tmdbId AS BIGINT) AS VARCHAR)
		FROM read_csv_auto(%s, header = true)
		WHERE movieId IS NOT NULL AND tmdbId IS NOT NULL`, quoteLiteral(path))
	rows, err := queryAndScan(ctx, l.db, query, func(rows *sql.Rows) (Link, error) {
		var lk Link
		err := rows.Scan(&lk.ItemID, &lk.ExternalID)
		return lk, err
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: load links %s: %w", path, err)
	}
	return rows, nil
}

// LoadMetadata 读取 id,title,release_date,poster_path,overview。id 按字符串处理。
func (l *Loader) LoadMetadata(ctx context.Context, path string) ([]Metadata, error) {
	query := fmt.Sprintf(`SELECT CAST(id AS VARCHAR), COALESCE(CAST(title AS VARCHAR), ''),
			COALESCE(CAST(release_date AS VARCHAR), ''), COALESCE(CAST(poster_path AS VARCHAR), ''),
			COALESCE(CAST(overview AS VARCHAR), '')
		FROM read_csv_auto(%s, header = true, all_varchar = true)
		WHERE id IS NOT NULL`, quoteLiteral(path))
	rows, err := queryAndScan(ctx, l.db, query, func(rows *sql.Rows) (Metadata, error) {
		var m Metadata
		err := rows.Scan(&m.ID, &m.Title, &m.ReleaseDate, &m.PosterPath, &m.Overview)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: load metadata %s: %w", path, err)
	}
	return rows, nil
}

// LoadCatalog 读取外部目录 id,title,genres,keywords,original_language,release_date。
func (l *Loader) LoadCatalog(ctx context.Context, path string) ([]CatalogEntry, error) {
	query := fmt.Sprintf(`SELECT CAST(id AS VARCHAR), COALESCE(title, ''), COALESCE(genres, ''), COALESCE(keywords, ''),
			COALESCE(original_language, ''), COALESCE(release_date, '')
		FROM read_csv_auto(%s, header = true, all_varchar = true)
		WHERE id IS NOT NULL`, quoteLiteral(path))
	rows, err := queryAndScan(ctx, l.db, query, func(rows *sql.Rows) (CatalogEntry, error) {
		var e CatalogEntry
		err := rows.Scan(&e.ID, &e.Title, &e.Genres, &e.Keywords, &e.OriginalLanguage, &e.ReleaseDate)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: load catalog %s: %w", path, err)
	}
	return rows, nil
}

// quoteLiteral 把路径转成 SQL 字符串字面量（table function 参数不支持占位符）
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

type scanFunc[T any] func(*sql.Rows) (T, error)

func queryAndScan[T any](ctx context.Context, db *sql.DB, query string, scan scanFunc[T]) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
