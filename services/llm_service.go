package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"solution_recommender/config"
	"solution_recommender/logger"
	"solution_recommender/utils"
)

// ChatMessage 对话消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMClient 语言模型客户端。只负责传输，提示词构建和JSON校验由调用方完成。
type LLMClient interface {
	Chat(ctx context.Context, messages []ChatMessage, temperature float64, maxTokens int) (string, error)
}

// OpenAI兼容接口的请求和响应结构
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type httpLLMClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewLLMClient 根据配置创建LLM客户端，未配置API Key时返回nil（引擎走确定性路径）
func NewLLMClient(cfg *config.Config) LLMClient {
	apiKey := cfg.LLM.APIKey
	// 如果配置中的API Key是环境变量引用，则从环境变量中获取
	if strings.HasPrefix(apiKey, "${") && strings.HasSuffix(apiKey, "}") {
		apiKey = os.Getenv(apiKey[2 : len(apiKey)-1])
	}
	if apiKey == "" || cfg.LLM.Model == "" {
		return nil
	}
	return &httpLLMClient{
		apiKey:  apiKey,
		model:   cfg.LLM.Model,
		baseURL: cfg.LLM.BaseURL,
		client:  &http.Client{Timeout: time.Duration(cfg.LLM.TimeoutSec) * time.Second},
	}
}

// Chat 调用 /v1/chat/completions，返回模型原始文本
func (c *httpLLMClient) Chat(ctx context.Context, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", NewLLMError(LLMCodeUnexpected, "序列化请求体失败: %v", err)
	}

	promptTokens := 0
	for _, m := range messages {
		promptTokens += utils.CalculateTokens(m.Content)
	}
	logger.Debug("LLM请求发送", "model", c.model, "estimated_tokens", promptTokens)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewBuffer(reqJSON))
	if err != nil {
		return "", NewLLMError(LLMCodeUnexpected, "创建HTTP请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	startTime := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return "", NewLLMError(LLMCodeTimeout, "请求超时: %v", err)
		}
		return "", NewLLMError(LLMCodeUnexpected, "发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewLLMError(LLMCodeUnexpected, "读取响应失败: %v", err)
	}

	logger.Info("LLM请求完成",
		"model", c.model,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(startTime).Milliseconds(),
		"response_size", len(body))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", NewLLMError(LLMCodeRateLimit, "触发限流: %s", preview(string(body), 200))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", NewLLMError(LLMCodeAuthFailed, "认证失败 (HTTP %d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", NewLLMError(LLMCodeUnexpected, "API请求失败: %d - %s", resp.StatusCode, preview(string(body), 200))
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", NewLLMError(LLMCodeInvalidResponse, "解析响应失败: %v", err)
	}
	if len(cr.Choices) == 0 {
		return "", NewLLMError(LLMCodeInvalidResponse, "API响应中没有内容")
	}

	logger.Debug("LLM token用量",
		"tokens_prompt", cr.Usage.PromptTokens,
		"tokens_completion", cr.Usage.CompletionTokens,
		"finish_reason", cr.Choices[0].FinishReason)

	return cr.Choices[0].Message.Content, nil
}

// ExtractJSON 从模型文本中提取JSON。
// 两阶段：先尝试整体解码；失败后做有界的括号配对提取最外层{...}，
// 再尝试```json代码块。都失败时返回 ErrParse，不返回残缺结构。
func ExtractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	// 括号配对提取最外层对象
	if obj := matchOutermostObject(trimmed); obj != "" && json.Valid([]byte(obj)) {
		return obj, nil
	}

	// ```json 代码块
	if start := strings.Index(trimmed, "```json"); start >= 0 {
		rest := trimmed[start+len("```json"):]
		if end := strings.Index(rest, "```"); end > 0 {
			block := strings.TrimSpace(rest[:end])
			if json.Valid([]byte(block)) {
				return block, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %s", ErrParse, preview(text, 120))
}

// matchOutermostObject 深度计数找出第一个配平的{...}，跳过字符串字面量
func matchOutermostObject(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// preview 截断长文本，避免日志和错误信息过长
func preview(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
