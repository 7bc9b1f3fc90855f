// Package semantic 把自由文本的偏好映射到目录的受控词表（类型、关键词）。
//
// 离线：BuildIndex 把词表逐项编码为单位向量并持久化。
// 在线：Matcher 编码查询文本，与全部词项做余弦相似度，取 top-k 再按阈值过滤。
package semantic

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/movierec/core"
)

// 编码批大小与并发批数
const (
	buildBatchSize   = 64
	buildConcurrency = 4
)

// Index 是词表及其向量，Vectors[i] 对应 Terms[i]，已做 L2 归一化。
// 构建后只读。
type Index struct {
	Model   string      `json:"model"`
	Terms   []string    `json:"terms"`
	Vectors [][]float64 `json:"vectors"`
}

// Len 词项数量。
func (idx *Index) Len() int { return len(idx.Terms) }

// BuildIndex 编码词表。编码失败直接返回错误，不产出部分索引。
func BuildIndex(ctx context.Context, enc core.Encoder, terms []string) (*Index, error) {
	vectors := make([][]float64, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(buildConcurrency)
	for start := 0; start < len(terms); start += buildBatchSize {
		end := min(start+buildBatchSize, len(terms))
		g.Go(func() error {
			vecs, err := enc.Encode(gctx, terms[start:end])
			if err != nil {
				return fmt.Errorf("encode terms [%d:%d]: %w", start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("encode terms [%d:%d]: got %d vectors", start, end, len(vecs))
			}
			for i, v := range vecs {
				vectors[start+i] = normalize(v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := &Index{
		Model:   enc.Name(),
		Terms:   append([]string(nil), terms...),
		Vectors: vectors,
	}
	if err := idx.validate(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Save 以 JSON 写入 path。
func (idx *Index) Save(path string) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("semantic: encode index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("semantic: write index: %w", err)
	}
	return nil
}

// LoadIndex 读取并校验索引；缺失或损坏返回 INVALID_INPUT。
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", invalidIndex("read "+path), err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("%w: %v", invalidIndex("decode "+path), err)
	}
	if err := idx.validate(); err != nil {
		return nil, err
	}
	return &idx, nil
}

func (idx *Index) validate() error {
	if len(idx.Terms) != len(idx.Vectors) {
		return invalidIndex(fmt.Sprintf("%d terms but %d vectors", len(idx.Terms), len(idx.Vectors)))
	}
	for i, v := range idx.Vectors {
		if len(v) == 0 || len(v) != len(idx.Vectors[0]) {
			return invalidIndex(fmt.Sprintf("vector %d has dimension %d", i, len(v)))
		}
	}
	return nil
}

func invalidIndex(msg string) *core.DomainError {
	return core.NewDomainError(core.ModuleSemantic, core.ErrorCodeInvalidInput, "semantic: invalid index: "+msg)
}

// normalize 返回 L2 归一化后的拷贝；零向量原样返回。
func normalize(v []float64) []float64 {
	out := append([]float64(nil), v...)
	n := floats.Norm(out, 2)
	if n == 0 || math.IsNaN(n) {
		return out
	}
	floats.Scale(1/n, out)
	return out
}
