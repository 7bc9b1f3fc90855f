package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/movierec/core"
)

// ServiceType 编码服务后端
type ServiceType string

const (
	ServiceTypeTorchServe ServiceType = "torch_serve"
)

// ServiceConfig 句向量编码服务配置，对应配置文件的 embedding 段。
type ServiceConfig struct {
	Type ServiceType `koanf:"type" validate:"oneof=torch_serve"`

	// Endpoint 如 http://localhost:8080
	Endpoint  string `koanf:"endpoint" validate:"required,url"`
	ModelName string `koanf:"model_name" validate:"required"`

	ModelVersion string `koanf:"model_version"`

	// Dimension 期望的向量维度（MiniLM 为 384），0 表示不校验
	Dimension int `koanf:"dimension" validate:"gte=0"`

	// Timeout 单次请求超时，0 时为 30s
	Timeout time.Duration `koanf:"timeout"`

	Auth    *AuthConfig   `koanf:"auth"`
	Breaker BreakerConfig `koanf:"breaker"`
}

// AuthConfig 认证：basic 用 Username/Password，bearer 用 Token，api_key 用 APIKey。
type AuthConfig struct {
	Type     string `koanf:"type" validate:"omitempty,oneof=basic bearer api_key"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Token    string `koanf:"token"`
	APIKey   string `koanf:"api_key"`
}

func (c *ServiceConfig) check() error {
	switch {
	case c == nil:
		return invalidConfig("embedding config is required")
	case c.Endpoint == "":
		return invalidConfig("embedding endpoint is required")
	case c.ModelName == "":
		return invalidConfig("embedding model name is required")
	}
	return nil
}

// NewMLService 按配置创建编码服务客户端。
func NewMLService(cfg *ServiceConfig, logger zerolog.Logger) (core.MLService, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	switch cfg.Type {
	case ServiceTypeTorchServe, "":
		opts := []TorchServeOption{
			WithTorchServeTimeout(timeout),
			WithTorchServeLogger(logger),
		}
		if cfg.ModelVersion != "" {
			opts = append(opts, WithTorchServeVersion(cfg.ModelVersion))
		}
		if cfg.Auth != nil {
			opts = append(opts, WithTorchServeAuth(cfg.Auth))
		}
		if cfg.Breaker.FailureThreshold > 0 {
			opts = append(opts, WithTorchServeBreaker(cfg.Breaker))
		}
		return NewTorchServeClient(cfg.Endpoint, cfg.ModelName, opts...), nil
	default:
		return nil, invalidConfig(fmt.Sprintf("unsupported embedding service type %q", cfg.Type))
	}
}

// TestConnection 健康检查，失败返回 UNAVAILABLE。离线建索引前调用，避免编码到一半才失败。
func TestConnection(ctx context.Context, svc core.MLService) error {
	if svc == nil {
		return invalidConfig("embedding service is nil")
	}
	if err := svc.Health(ctx); err != nil {
		return fmt.Errorf("%w: %v", core.NewDomainError(core.ModuleService, core.ErrorCodeUnavailable, "embedding backend unavailable"), err)
	}
	return nil
}

func invalidConfig(msg string) error {
	return core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, msg)
}
