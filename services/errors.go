package services

import (
	"errors"
	"fmt"
)

// LLM错误的机器可读原因码
const (
	LLMCodeRateLimit       = "RATE_LIMIT"
	LLMCodeAuthFailed      = "AUTH_FAILED"
	LLMCodeTimeout         = "TIMEOUT"
	LLMCodeInvalidResponse = "INVALID_RESPONSE"
	LLMCodeUnexpected      = "UNEXPECTED_ERROR"
)

// LLMError LLM调用失败，永远可以回退到确定性排序路径
type LLMError struct {
	Code    string
	Message string
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("LLM调用失败[%s]: %s", e.Code, e.Message)
}

// NewLLMError 构造带原因码的LLM错误
func NewLLMError(code, format string, args ...any) *LLMError {
	return &LLMError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ProviderError 单个搜索源的网络/HTTP/限流错误，隔离处理，不影响其他源
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("搜索源 %s 调用失败 (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("搜索源 %s 调用失败: %s", e.Provider, e.Message)
}

var (
	// ErrRewriteUnavailable 长需求改写不可用，属于硬停止：
	// 对长文档做低精度的关键词搜索比明确告知"无法可靠搜索"更糟糕
	ErrRewriteUnavailable = errors.New("长需求改写不可用，无法进行高精度搜索")

	// ErrParse LLM返回文本中无法提取出合法JSON
	ErrParse = errors.New("无法从LLM返回内容中提取JSON")

	// ErrLLMNotConfigured 未配置LLM客户端
	ErrLLMNotConfigured = errors.New("未配置LLM服务")
)
