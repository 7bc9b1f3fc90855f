package config

import (
	"fmt"

	"github.com/rushteam/movierec/pipeline"
)

// 内置节点在 config/builders 的 init 中注册，入口处需要
// import _ "github.com/rushteam/movierec/config/builders"。

// NodeBuilder 即 pipeline.NodeBuilder。
type NodeBuilder = pipeline.NodeBuilder

var registry = pipeline.NewNodeFactory()

// Register 注册一种可配置节点，通常在 init 中调用。
func Register(typeName string, builder NodeBuilder) {
	registry.Register(typeName, builder)
}

// SupportedTypes 已注册的节点类型，升序。
func SupportedTypes() []string {
	return registry.Types()
}

// DefaultFactory 返回全局注册表。
func DefaultFactory() *pipeline.NodeFactory {
	return registry
}

// ValidatePipelineConfig 在构建前检查所有节点类型都已注册。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	for i, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			return fmt.Errorf("node #%d has no type (supported: %v)", i, SupportedTypes())
		}
		if !registry.Has(nc.Type) {
			return fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, SupportedTypes())
		}
	}
	return nil
}

// LoadPipelineNodes 读取扩展节点配置并构建；path 为空返回 nil。
func LoadPipelineNodes(path string) ([]pipeline.Node, error) {
	if path == "" {
		return nil, nil
	}
	cfg, err := pipeline.Load(path)
	if err != nil {
		return nil, err
	}
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", path, err)
	}
	p, err := cfg.BuildPipeline(registry)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", path, err)
	}
	return p.Nodes, nil
}
