package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Config 是扩展节点配置文件（YAML 或 JSON）。
//
// 引擎内置的召回、过滤、排序节点总是存在；这里声明的节点插在内置过滤之后、排序之前，
// 用于补充业务规则，例如 CEL 表达式过滤：
//
//	pipeline:
//	  name: house-rules
//	  nodes:
//	    - type: filter.expr
//	      config: {expr: "item.features.popularity >= 50.0"}
type Config struct {
	Pipeline struct {
		Name  string       `yaml:"name" json:"name"`
		Nodes []NodeConfig `yaml:"nodes" json:"nodes"`
	} `yaml:"pipeline" json:"pipeline"`
}

// NodeConfig 单个节点：Type 为注册名，Config 原样交给 NodeBuilder。
type NodeConfig struct {
	Type   string         `yaml:"type" json:"type"`
	Config map[string]any `yaml:"config" json:"config"`
}

// Load 读取配置；.json 按 JSON 解析，其余按 YAML。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}

	format, decode := "yaml", yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format, decode = "json", json.Unmarshal
	}
	var cfg Config
	if err := decode(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse pipeline %s: %w", format, err)
	}
	return &cfg, nil
}

// BuildPipeline 按声明顺序构建全部节点。
func (c *Config) BuildPipeline(factory *NodeFactory) (*Pipeline, error) {
	p := &Pipeline{Nodes: make([]Node, 0, len(c.Pipeline.Nodes))}
	for i, nc := range c.Pipeline.Nodes {
		node, err := factory.Build(nc.Type, nc.Config)
		if err != nil {
			return nil, fmt.Errorf("node #%d (%s): %w", i, nc.Type, err)
		}
		p.Append(node)
	}
	return p, nil
}

// NodeFactory 按类型名构建 Node，可并发使用。
type NodeFactory struct {
	mu       sync.RWMutex
	builders map[string]NodeBuilder
}

func NewNodeFactory() *NodeFactory {
	return &NodeFactory{builders: make(map[string]NodeBuilder)}
}

// Register 注册构建器，同名覆盖；空名或 nil 构建器被忽略。
func (f *NodeFactory) Register(nodeType string, builder NodeBuilder) {
	if nodeType == "" || builder == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[nodeType] = builder
}

// Has 是否注册了 nodeType。
func (f *NodeFactory) Has(nodeType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.builders[nodeType]
	return ok
}

// Types 已注册的类型名，升序。
func (f *NodeFactory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build 构建一个节点；config 为 nil 时传入空 map。
func (f *NodeFactory) Build(nodeType string, config map[string]any) (Node, error) {
	f.mu.RLock()
	builder, ok := f.builders[nodeType]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown node type %q (supported: %v)", nodeType, f.Types())
	}
	if config == nil {
		config = map[string]any{}
	}
	return builder(config)
}
