package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Model 错误：UNKNOWN_ENTITY（用户/物品不在训练编码中）
//   - Semantic 错误：UNAVAILABLE（向量编码服务不可用）
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
//   - Artifact 错误：INVALID_INPUT（持久化模型缺失或损坏）
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "UNKNOWN_ENTITY"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "model", "semantic"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is 按 Module + Code 比较，使 errors.Is 可以匹配预定义的哨兵错误。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError（支持 %w 包装链），如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	for err != nil {
		if domainErr, ok := err.(*DomainError); ok {
			return domainErr
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
	ErrorCodeUnknownEntity = "UNKNOWN_ENTITY" // 用户/物品没有训练编码
)

// 模块名称常量
const (
	ModuleStore       = "store"       // 存储模块
	ModuleDataset     = "dataset"     // 数据表模块
	ModuleModel       = "model"       // 矩阵分解模块
	ModuleSemantic    = "semantic"    // 语义匹配模块
	ModuleResolver    = "resolver"    // 偏好解析模块
	ModuleService     = "service"     // 外部服务模块
	ModuleEngine      = "engine"      // 推荐引擎模块
	ModuleRecommender = "recommender" // 编排模块
	ModuleConfig      = "config"      // 配置模块
)

// 通用错误检查函数

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

// IsUnknownEntity 检查错误是否为 UNKNOWN_ENTITY
func IsUnknownEntity(err error) bool {
	return hasCode(err, ErrorCodeUnknownEntity)
}
