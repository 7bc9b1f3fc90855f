// Package eval 做离线留出评估：RMSE 与 precision@k / recall@k / F1。
package eval

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/dataset"
	"github.com/rushteam/movierec/engine"
)

// Config 评估参数
type Config struct {
	// K 每个用户取的推荐数
	K int `koanf:"k" validate:"gt=0"`
	// Threshold 评分 ≥ Threshold 的测试物品视为相关
	Threshold float64 `koanf:"threshold"`
	// SampleUsers 参与排序指标的用户数上限，<= 0 表示全部
	SampleUsers int `koanf:"sample_users"`
	// MinRelevant 相关物品少于该数的用户跳过
	MinRelevant int `koanf:"min_relevant"`
	// TestFraction 留出比例
	TestFraction float64 `koanf:"test_fraction" validate:"gt=0,lt=1"`
	Seed         uint64  `koanf:"seed"`
}

// DefaultConfig 返回默认评估参数
func DefaultConfig() Config {
	return Config{
		K:            10,
		Threshold:    4.0,
		SampleUsers:  100,
		MinRelevant:  2,
		TestFraction: 0.2,
		Seed:         42,
	}
}

// Report 评估结果
type Report struct {
	RMSE      float64 `json:"rmse"`
	Precision float64 `json:"precision_at_k"`
	Recall    float64 `json:"recall_at_k"`
	F1        float64 `json:"f1_at_k"`
	K         int     `json:"k"`

	// RatedPairs 参与 RMSE 的测试评分数（用户与物品都有编码）
	RatedPairs int `json:"rated_pairs"`
	// Users 参与排序指标的用户数
	Users int `json:"users"`
}

// Split 用固定种子打乱后按比例切出测试集。
func Split(ratings []dataset.Rating, testFraction float64, seed uint64) (train, test []dataset.Rating) {
	shuffled := slices.Clone(ratings)
	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	n := int(math.Round(float64(len(shuffled)) * testFraction))
	n = max(0, min(n, len(shuffled)))
	return shuffled[n:], shuffled[:n]
}

// Evaluate 在测试集上评估引擎。引擎应当只用训练集构建，
// 已看排除因此只会剔除训练集中的物品。
func Evaluate(ctx context.Context, eng *engine.Engine, test []dataset.Rating, cfg Config) (Report, error) {
	if eng == nil {
		return Report{}, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "eval: nil engine")
	}
	if cfg.K <= 0 {
		return Report{}, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, fmt.Sprintf("eval: k must be positive, got %d", cfg.K))
	}
	report := Report{K: cfg.K}
	m := eng.Model()

	var sq float64
	for _, r := range test {
		pred, err := m.PredictIDs(r.UserID, r.ItemID)
		if err != nil {
			continue
		}
		d := pred - r.Value
		sq += d * d
		report.RatedPairs++
	}
	if report.RatedPairs > 0 {
		report.RMSE = math.Sqrt(sq / float64(report.RatedPairs))
	}

	relevant := make(map[int64]map[int64]struct{})
	for _, r := range test {
		if r.Value < cfg.Threshold {
			continue
		}
		if _, ok := m.Users.Encode(r.UserID); !ok {
			continue
		}
		if relevant[r.UserID] == nil {
			relevant[r.UserID] = make(map[int64]struct{})
		}
		relevant[r.UserID][r.ItemID] = struct{}{}
	}
	users := make([]int64, 0, len(relevant))
	for u, items := range relevant {
		if len(items) >= max(cfg.MinRelevant, 1) {
			users = append(users, u)
		}
	}
	slices.Sort(users)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	rng.Shuffle(len(users), func(i, j int) { users[i], users[j] = users[j], users[i] })
	if cfg.SampleUsers > 0 && len(users) > cfg.SampleUsers {
		users = users[:cfg.SampleUsers]
	}

	var sumP, sumR, sumF float64
	for _, u := range users {
		recs, err := eng.RecommendForKnownUser(ctx, engine.KnownUserRequest{UserID: u, K: cfg.K, ExcludeSeen: true})
		if err != nil {
			return Report{}, fmt.Errorf("eval user %d: %w", u, err)
		}
		hits := 0
		for _, rec := range recs {
			if _, ok := relevant[u][rec.ItemID]; ok {
				hits++
			}
		}
		p := float64(hits) / float64(cfg.K)
		r := float64(hits) / float64(len(relevant[u]))
		f := 0.0
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}
		sumP += p
		sumR += r
		sumF += f
	}
	if n := len(users); n > 0 {
		report.Users = n
		report.Precision = sumP / float64(n)
		report.Recall = sumR / float64(n)
		report.F1 = sumF / float64(n)
	}
	return report, nil
}
