package model

import (
	"context"
	"fmt"

	"github.com/rushteam/movierec/core"
)

// BERTModel 是句向量编码模型（如 all-MiniLM-L6-v2），通过外部 ML 服务推理。
//
// 使用场景：
//   - 离线：把类型/关键词词表编码成向量索引
//   - 在线：把用户输入的偏好文本编码后与索引做余弦匹配
//
// 服务不可用时返回 UNAVAILABLE，调用方不得把它当作空匹配。
type BERTModel struct {
	// Service ML 服务接口
	Service core.MLService

	// ModelName 服务端注册的模型名，同时作为查询缓存 key 的一部分
	ModelName string

	// ModelVersion 模型版本（可选）
	ModelVersion string

	// Dimension 向量维度（MiniLM 为 384），为 0 时不校验
	Dimension int

	// MaxLength 最大序列长度
	MaxLength int
}

// NewBERTModel 创建编码模型。
func NewBERTModel(service core.MLService, modelName string, dimension int) *BERTModel {
	return &BERTModel{
		Service:   service,
		ModelName: modelName,
		Dimension: dimension,
		MaxLength: 256,
	}
}

// WithModelVersion 设置模型版本。
func (m *BERTModel) WithModelVersion(version string) *BERTModel {
	m.ModelVersion = version
	return m
}

// WithMaxLength 设置最大序列长度。
func (m *BERTModel) WithMaxLength(maxLength int) *BERTModel {
	m.MaxLength = maxLength
	return m
}

// Name 返回模型名称。
func (m *BERTModel) Name() string {
	if m.ModelName == "" {
		return "bert"
	}
	return m.ModelName
}

// Encode 批量编码文本为向量，返回值与 texts 一一对应。
func (m *BERTModel) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	if m.Service == nil {
		return nil, unavailable("ML service is not set")
	}
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	req := &core.MLPredictRequest{
		ModelName:    m.ModelName,
		ModelVersion: m.ModelVersion,
		Params: map[string]any{
			"texts":      texts,
			"max_length": m.MaxLength,
		},
	}
	resp, err := m.Service.Predict(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", unavailable("encoding failed"), err)
	}

	vectors, err := parseVectors(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", unavailable("parse encoder response"), err)
	}
	if len(vectors) != len(texts) {
		return nil, unavailable(fmt.Sprintf("vector count mismatch: expected %d, got %d", len(texts), len(vectors)))
	}
	if m.Dimension > 0 {
		for i, v := range vectors {
			if len(v) != m.Dimension {
				return nil, unavailable(fmt.Sprintf("vector %d has dimension %d, want %d", i, len(v), m.Dimension))
			}
		}
	}
	return vectors, nil
}

var _ core.Encoder = (*BERTModel)(nil)

func unavailable(msg string) *core.DomainError {
	return core.NewDomainError(core.ModuleSemantic, core.ErrorCodeUnavailable, "encoder: "+msg)
}

// parseVectors 解析 ML 服务响应中的向量。
// 支持的格式：
//   - Outputs 为向量数组：[[0.1, 0.2, ...], [0.3, 0.4, ...]]
//   - Outputs 为 map：{"embeddings": [...]} 或 {"vectors": [...]}
func parseVectors(resp *core.MLPredictResponse) ([][]float64, error) {
	if resp == nil || resp.Outputs == nil {
		return nil, fmt.Errorf("empty response")
	}

	var raw any = resp.Outputs
	if obj, ok := raw.(map[string]any); ok {
		switch {
		case obj["embeddings"] != nil:
			raw = obj["embeddings"]
		case obj["vectors"] != nil:
			raw = obj["vectors"]
		default:
			return nil, fmt.Errorf("no embeddings field in response")
		}
	}

	switch v := raw.(type) {
	case [][]float64:
		return v, nil
	case []any:
		vectors := make([][]float64, 0, len(v))
		for i, item := range v {
			vec, ok := parseVector(item)
			if !ok {
				return nil, fmt.Errorf("vector %d is not numeric", i)
			}
			vectors = append(vectors, vec)
		}
		return vectors, nil
	default:
		return nil, fmt.Errorf("unexpected outputs type %T", raw)
	}
}

// parseVector 解析单个向量。
func parseVector(v any) ([]float64, bool) {
	switch val := v.(type) {
	case []float64:
		return val, true
	case []any:
		vector := make([]float64, 0, len(val))
		for _, item := range val {
			switch fv := item.(type) {
			case float64:
				vector = append(vector, fv)
			case float32:
				vector = append(vector, float64(fv))
			case int:
				vector = append(vector, float64(fv))
			case int64:
				vector = append(vector, float64(fv))
			default:
				return nil, false
			}
		}
		return vector, true
	default:
		return nil, false
	}
}
