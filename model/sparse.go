package model

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Entry 是稀疏矩阵的一个非零元。
type Entry struct {
	Row, Col int
	Value    float64
}

// CSR 是压缩行存储的只读稀疏矩阵，缺失位置视为 0。
// 只提供随机 SVD 需要的两个乘法：X·B 与 Xᵀ·B。
type CSR struct {
	rows, cols int
	indptr     []int
	indices    []int
	data       []float64
}

// NewCSR 由非零元构建；同一位置出现多次时数值相加。
func NewCSR(rows, cols int, entries []Entry) *CSR {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Col < sorted[j].Col
	})

	m := &CSR{
		rows:    rows,
		cols:    cols,
		indptr:  make([]int, rows+1),
		indices: make([]int, 0, len(sorted)),
		data:    make([]float64, 0, len(sorted)),
	}
	for k, e := range sorted {
		if e.Row < 0 || e.Row >= rows || e.Col < 0 || e.Col >= cols {
			panic(mat.ErrIndexOutOfRange)
		}
		if k > 0 && sorted[k-1].Row == e.Row && sorted[k-1].Col == e.Col {
			m.data[len(m.data)-1] += e.Value
			continue
		}
		m.indices = append(m.indices, e.Col)
		m.data = append(m.data, e.Value)
		m.indptr[e.Row+1]++
	}
	for i := 0; i < rows; i++ {
		m.indptr[i+1] += m.indptr[i]
	}
	return m
}

// Dims 返回 (行数, 列数)。
func (m *CSR) Dims() (int, int) { return m.rows, m.cols }

// NNZ 非零元个数。
func (m *CSR) NNZ() int { return len(m.data) }

// At 读取 (i, j)。
func (m *CSR) At(i, j int) float64 {
	lo, hi := m.indptr[i], m.indptr[i+1]
	k := sort.SearchInts(m.indices[lo:hi], j)
	if k < hi-lo && m.indices[lo+k] == j {
		return m.data[lo+k]
	}
	return 0
}

// MulDense 计算 X·B，B 为 cols×k。
func (m *CSR) MulDense(b *mat.Dense) *mat.Dense {
	br, bc := b.Dims()
	if br != m.cols {
		panic(mat.ErrShape)
	}
	out := mat.NewDense(m.rows, bc, nil)
	for i := 0; i < m.rows; i++ {
		dst := out.RawRowView(i)
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			v := m.data[p]
			src := b.RawRowView(m.indices[p])
			for c := range dst {
				dst[c] += v * src[c]
			}
		}
	}
	return out
}

// TransMulDense 计算 Xᵀ·B，B 为 rows×k。
func (m *CSR) TransMulDense(b *mat.Dense) *mat.Dense {
	br, bc := b.Dims()
	if br != m.rows {
		panic(mat.ErrShape)
	}
	out := mat.NewDense(m.cols, bc, nil)
	for i := 0; i < m.rows; i++ {
		src := b.RawRowView(i)
		for p := m.indptr[i]; p < m.indptr[i+1]; p++ {
			v := m.data[p]
			dst := out.RawRowView(m.indices[p])
			for c := range dst {
				dst[c] += v * src[c]
			}
		}
	}
	return out
}
