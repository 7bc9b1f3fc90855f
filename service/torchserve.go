package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/metrics"
)

// TorchServeClient 是 TorchServe REST API 的客户端，用于句向量编码。
//
// REST API 格式：
//   - 推理端点：POST /predictions/{model_name}
//   - 请求体：{"texts": ["...", "..."]}（由模型 Handler 定义）
//   - 响应：[[...], [...]] 或 {"embeddings": [[...], ...]}
//
// 所有推理请求经过熔断器；熔断打开时直接返回 UNAVAILABLE，不再打到后端。
type TorchServeClient struct {
	// Endpoint 服务端点，如 "http://localhost:8080"
	Endpoint string

	// ModelName 模型名称
	ModelName string

	// ModelVersion 模型版本（可选）
	ModelVersion string

	// Timeout 超时时间
	Timeout time.Duration

	// Auth 认证信息
	Auth *AuthConfig

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	breakerCfg BreakerConfig
	logger     zerolog.Logger
}

// NewTorchServeClient 创建一个新的 TorchServe 客户端。
func NewTorchServeClient(endpoint, modelName string, opts ...TorchServeOption) *TorchServeClient {
	client := &TorchServeClient{
		Endpoint:   endpoint,
		ModelName:  modelName,
		Timeout:    30 * time.Second,
		breakerCfg: DefaultBreakerConfig(),
		logger:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: client.Timeout}
	}
	client.breaker = newBreaker("torchserve:"+modelName, client.breakerCfg, client.logger)
	return client
}

// TorchServeOption TorchServe 客户端配置选项
type TorchServeOption func(*TorchServeClient)

// WithTorchServeVersion 设置模型版本
func WithTorchServeVersion(version string) TorchServeOption {
	return func(c *TorchServeClient) {
		c.ModelVersion = version
	}
}

// WithTorchServeTimeout 设置超时时间
func WithTorchServeTimeout(timeout time.Duration) TorchServeOption {
	return func(c *TorchServeClient) {
		c.Timeout = timeout
		if c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithTorchServeAuth 设置认证信息
func WithTorchServeAuth(auth *AuthConfig) TorchServeOption {
	return func(c *TorchServeClient) {
		c.Auth = auth
	}
}

// WithTorchServeHTTPClient 设置自定义 HTTP 客户端
func WithTorchServeHTTPClient(httpClient *http.Client) TorchServeOption {
	return func(c *TorchServeClient) {
		c.httpClient = httpClient
	}
}

// WithTorchServeBreaker 设置熔断参数
func WithTorchServeBreaker(cfg BreakerConfig) TorchServeOption {
	return func(c *TorchServeClient) {
		c.breakerCfg = cfg
	}
}

// WithTorchServeLogger 设置 logger（熔断状态变化会打 warn）
func WithTorchServeLogger(logger zerolog.Logger) TorchServeOption {
	return func(c *TorchServeClient) {
		c.logger = logger.With().Str("component", "torchserve").Logger()
	}
}

// Predict 发送编码请求。请求体取 req.Params。
func (c *TorchServeClient) Predict(ctx context.Context, req *core.MLPredictRequest) (*core.MLPredictResponse, error) {
	if req == nil || len(req.Params) == 0 {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "torchserve: empty request")
	}
	payload, err := json.Marshal(req.Params)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	modelName := c.ModelName
	if req.ModelName != "" {
		modelName = req.ModelName
	}
	version := c.ModelVersion
	if req.ModelVersion != "" {
		version = req.ModelVersion
	}
	endpoint := fmt.Sprintf("%s/predictions/%s", c.Endpoint, url.PathEscape(modelName))
	if version != "" {
		endpoint = endpoint + "/" + url.PathEscape(version)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.post(ctx, endpoint, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.EmbeddingRequests.WithLabelValues("rejected").Inc()
		} else {
			metrics.EmbeddingRequests.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("%w: %v", core.NewDomainError(core.ModuleService, core.ErrorCodeUnavailable, "torchserve: request failed"), err)
	}
	metrics.EmbeddingRequests.WithLabelValues("ok").Inc()

	var outputs any
	if err := json.Unmarshal(body, &outputs); err != nil {
		return nil, fmt.Errorf("unable to parse response: %w", err)
	}
	return &core.MLPredictResponse{
		Outputs:      outputs,
		ModelVersion: version,
	}, nil
}

func (c *TorchServeClient) post(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.addAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("torchserve request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("torchserve error: status=%d, body=%s", resp.StatusCode, string(body))
	}
	return body, nil
}

// addAuth 添加认证信息到 HTTP 请求
func (c *TorchServeClient) addAuth(req *http.Request) {
	if c.Auth == nil {
		return
	}

	switch c.Auth.Type {
	case "basic":
		req.SetBasicAuth(c.Auth.Username, c.Auth.Password)
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+c.Auth.Token)
	case "api_key":
		req.Header.Set("X-API-Key", c.Auth.APIKey)
	}
}

// Health 健康检查（/ping），不经过熔断器。
func (c *TorchServeClient) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"/ping", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.addAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed: status=%d, body=%s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// BreakerState 熔断器当前状态（closed / half-open / open）。
func (c *TorchServeClient) BreakerState() string {
	return c.breaker.State().String()
}

// Close 关闭空闲连接
func (c *TorchServeClient) Close(ctx context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var _ core.MLService = (*TorchServeClient)(nil)
