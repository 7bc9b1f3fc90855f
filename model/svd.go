package model

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/movierec/core"
)

// SVDConfig 随机截断 SVD 参数。
type SVDConfig struct {
	// Rank 隐因子维度 R，超过 min(用户数, 物品数) 时截断
	Rank int `koanf:"rank" validate:"gte=1"`

	// Oversample 额外采样的列数，提升前 R 个奇异向量的精度
	Oversample int `koanf:"oversample" validate:"gte=0"`

	// PowerIters 幂迭代次数，奇异值衰减慢时需要更多
	PowerIters int `koanf:"power_iters" validate:"gte=0"`

	// Seed 高斯测试矩阵的随机种子，固定后训练结果可复现
	Seed uint64 `koanf:"seed"`
}

// DefaultSVDConfig R=100、过采样 10、5 次幂迭代、种子 42。
func DefaultSVDConfig() SVDConfig {
	return SVDConfig{
		Rank:       RankSmall,
		Oversample: 10,
		PowerIters: 5,
		Seed:       42,
	}
}

// truncatedSVD 是 Halko 等人的随机算法：
//
//	Ω ~ N(0,1)^{n×l}，Q = orth(XΩ)，幂迭代 Q = orth(X·orth(XᵀQ))
//	B = QᵀX = Ũ Σ Vᵀ，U = QŨ
//
// 返回 U (m×r)、奇异值 (r)、V (n×r)，r = min(rank, m, n)。
func truncatedSVD(x *CSR, cfg SVDConfig) (*mat.Dense, []float64, *mat.Dense, error) {
	m, n := x.Dims()
	if m == 0 || n == 0 {
		return nil, nil, nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput, "model: empty rating matrix")
	}
	r := min(cfg.Rank, m, n)
	if r < 1 {
		return nil, nil, nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			fmt.Sprintf("model: invalid rank %d", cfg.Rank))
	}
	l := min(r+max(cfg.Oversample, 0), m, n)

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	omega := mat.NewDense(n, l, nil)
	for i := 0; i < n; i++ {
		row := omega.RawRowView(i)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
	}

	q, err := orthonormalize(x.MulDense(omega))
	if err != nil {
		return nil, nil, nil, err
	}
	for it := 0; it < cfg.PowerIters; it++ {
		z, err := orthonormalize(x.TransMulDense(q))
		if err != nil {
			return nil, nil, nil, err
		}
		if q, err = orthonormalize(x.MulDense(z)); err != nil {
			return nil, nil, nil, err
		}
	}

	// Bᵀ = XᵀQ (n×l)；Bᵀ = P S Wᵀ ⇒ B = W S Pᵀ
	bt := x.TransMulDense(q)
	var svd mat.SVD
	if ok := svd.Factorize(bt, mat.SVDThin); !ok {
		return nil, nil, nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInternalError, "model: svd did not converge")
	}
	var p, w mat.Dense
	svd.UTo(&p)
	svd.VTo(&w)
	values := svd.Values(nil)

	var u mat.Dense
	u.Mul(q, &w)

	uR := mat.DenseCopyOf(u.Slice(0, m, 0, r))
	vR := mat.DenseCopyOf(p.Slice(0, n, 0, r))
	return uR, values[:r], vR, nil
}

// orthonormalize 返回与 a 列空间相同的一组正交基（m×k）。
// 用 thin SVD 而不是 QR：QR.QTo 会生成完整的 m×m 矩阵。
func orthonormalize(a *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThinU); !ok {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInternalError, "model: orthonormalization did not converge")
	}
	var u mat.Dense
	svd.UTo(&u)
	return &u, nil
}
