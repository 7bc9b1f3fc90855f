package core

import "context"

// MLService 是外部模型服务的领域接口。
//
// 在本系统中只用于句向量编码（如 all-MiniLM-L6-v2 部署在 TorchServe 上）：
// 请求通过 Params["texts"] 传入文本，响应的 Outputs 为向量列表。
//
// 实现：
//   - service.TorchServeClient 实现此接口
type MLService interface {
	// Predict 批量预测
	Predict(ctx context.Context, req *MLPredictRequest) (*MLPredictResponse, error)

	// Health 健康检查
	Health(ctx context.Context) error

	// Close 关闭连接
	Close(ctx context.Context) error
}

// MLPredictRequest 预测请求
type MLPredictRequest struct {
	// ModelName 模型名称（服务端注册名）
	ModelName string

	// ModelVersion 模型版本（可选）
	ModelVersion string

	// Params 请求体，编码场景为 {"texts": []string}
	Params map[string]any
}

// MLPredictResponse 预测响应
type MLPredictResponse struct {
	// Outputs 原始输出：[][]float64 或 {"embeddings": [...]}
	Outputs any

	// ModelVersion 模型版本（如果服务返回）
	ModelVersion string
}

// Encoder 把文本编码为定长向量。
// model.BERTModel 基于 MLService 实现；测试中可用确定性的假实现替代。
type Encoder interface {
	// Name 模型名，用于缓存 key
	Name() string

	// Encode 批量编码，返回值与 texts 一一对应
	Encode(ctx context.Context, texts []string) ([][]float64, error)
}
