package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/dataset"
)

// SVDModel 是训练好的矩阵分解模型，加载后只读，可被并发请求共享。
//
//	UserFactors = U_R · Σ_R   (users × R)
//	ItemFactors = V_R         (items × R)
//	score(u, i) = clip(UserFactors[u] · ItemFactors[i])
type SVDModel struct {
	Rank  int
	Scale RatingScale

	UserFactors *mat.Dense
	ItemFactors *mat.Dense
	Users       *IDEncoder
	Items       *IDEncoder

	// Movies 训练时的片库快照，用于展示片名
	Movies *dataset.MovieCatalog
}

// Fit 在评分上训练模型。
//
// 物品编码覆盖评分中出现的物品以及片库中的全部物品；只在片库中出现、没有评分的物品
// 对应全零列，隐向量为零，预测值会被裁剪到评分下限。
func Fit(ratings []dataset.Rating, movies []dataset.Movie, cfg SVDConfig) (*SVDModel, error) {
	table := dataset.NewRatingTable(ratings)
	if table.Len() == 0 {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput, "model: no ratings to fit")
	}

	users := NewIDEncoder(table.Users())
	itemIDs := table.Items()
	for _, m := range movies {
		itemIDs = append(itemIDs, m.ID)
	}
	items := NewIDEncoder(itemIDs)

	entries := make([]Entry, 0, table.Len())
	for _, r := range table.Ratings() {
		u, _ := users.Encode(r.UserID)
		i, _ := items.Encode(r.ItemID)
		entries = append(entries, Entry{Row: u, Col: i, Value: r.Value})
	}
	x := NewCSR(users.Len(), items.Len(), entries)

	u, sigma, v, err := truncatedSVD(x, cfg)
	if err != nil {
		return nil, fmt.Errorf("fit svd: %w", err)
	}
	rank := len(sigma)
	for j := 0; j < rank; j++ {
		col := mat.Col(nil, j, u)
		for i := range col {
			col[i] *= sigma[j]
		}
		u.SetCol(j, col)
	}

	return &SVDModel{
		Rank:        rank,
		Scale:       DefaultRatingScale,
		UserFactors: u,
		ItemFactors: v,
		Users:       users,
		Items:       items,
		Movies:      dataset.NewMovieCatalog(movies),
	}, nil
}

// NumUsers 编码用户数
func (m *SVDModel) NumUsers() int { return m.Users.Len() }

// NumItems 编码物品数
func (m *SVDModel) NumItems() int { return m.Items.Len() }

// Predict 以稠密下标预测评分（已裁剪）。下标越界会 panic，调用方先用编码器校验。
func (m *SVDModel) Predict(userIdx, itemIdx int) float64 {
	return m.Scale.Clip(mat.Dot(m.UserFactors.RowView(userIdx), m.ItemFactors.RowView(itemIdx)))
}

// PredictIDs 以原始 id 预测评分；任一 id 没有编码时返回 UNKNOWN_ENTITY。
func (m *SVDModel) PredictIDs(userID, itemID int64) (float64, error) {
	u, ok := m.Users.Encode(userID)
	if !ok {
		return 0, unknownUser(userID)
	}
	i, ok := m.Items.Encode(itemID)
	if !ok {
		return 0, core.NewDomainError(core.ModuleModel, core.ErrorCodeUnknownEntity, fmt.Sprintf("model: unknown item %d", itemID))
	}
	return m.Predict(u, i), nil
}

// UserVector 返回用户隐向量的拷贝；未知用户返回 UNKNOWN_ENTITY。
func (m *SVDModel) UserVector(userID int64) ([]float64, error) {
	u, ok := m.Users.Encode(userID)
	if !ok {
		return nil, unknownUser(userID)
	}
	return mat.Row(nil, u, m.UserFactors), nil
}

// PseudoUser 以若干物品隐向量的均值构造冷启动用户向量。itemIdx 为空返回 nil。
func (m *SVDModel) PseudoUser(itemIdx []int) []float64 {
	if len(itemIdx) == 0 {
		return nil
	}
	vec := mat.NewVecDense(m.Rank, nil)
	for _, idx := range itemIdx {
		vec.AddVec(vec, m.ItemFactors.RowView(idx))
	}
	vec.ScaleVec(1/float64(len(itemIdx)), vec)
	return vec.RawVector().Data
}

// ScoreAll 对全部物品打分并裁剪，返回值按物品下标排列。
func (m *SVDModel) ScoreAll(userVec []float64) []float64 {
	var out mat.VecDense
	out.MulVec(m.ItemFactors, mat.NewVecDense(len(userVec), userVec))
	scores := make([]float64, m.NumItems())
	for i := range scores {
		scores[i] = m.Scale.Clip(out.AtVec(i))
	}
	return scores
}

func unknownUser(userID int64) error {
	return core.NewDomainError(core.ModuleModel, core.ErrorCodeUnknownEntity, fmt.Sprintf("model: unknown user %d", userID))
}
