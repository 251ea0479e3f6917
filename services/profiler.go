package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"solution_recommender/logger"
	"solution_recommender/models"
	"solution_recommender/utils"
)

// Profiler 需求画像构建器。LLM可用时生成结构化画像，否则退化为截断原文。
type Profiler struct {
	llm             LLMClient // 可以为nil
	rewriteMinChars int
}

// NewProfiler 创建画像构建器，rewriteMinChars为触发长需求改写的字符数阈值
func NewProfiler(llm LLMClient, rewriteMinChars int) *Profiler {
	if rewriteMinChars <= 0 {
		rewriteMinChars = 100
	}
	return &Profiler{llm: llm, rewriteMinChars: rewriteMinChars}
}

// NeedsRewrite 判断输入是否属于需要改写的长需求
func (p *Profiler) NeedsRewrite(query, requirement string) bool {
	return len([]rune(query))+len([]rune(requirement)) > p.rewriteMinChars
}

// BuildProfile 构建需求画像。LLM失败时退化为截断原文，失败原因通过warnings返回。
func (p *Profiler) BuildProfile(ctx context.Context, query, requirement string) (*models.QueryProfile, []string) {
	var warnings []string

	if p.llm != nil {
		profile, err := p.buildWithLLM(ctx, query, requirement)
		if err == nil {
			return profile, nil
		}
		logger.Warn("LLM画像构建失败，回退到确定性画像", "error", err)
		if le, ok := err.(*LLMError); ok {
			warnings = append(warnings, fmt.Sprintf("需求画像降级[%s]：%s", le.Code, le.Message))
		} else {
			warnings = append(warnings, "需求画像降级："+err.Error())
		}
	}

	return p.fallbackProfile(query, requirement), warnings
}

func (p *Profiler) buildWithLLM(ctx context.Context, query, requirement string) (*models.QueryProfile, error) {
	text, err := p.llm.Chat(ctx, []ChatMessage{
		{Role: "user", Content: buildProfilePrompt(query, requirement)},
	}, 0.2, 1024)
	if err != nil {
		return nil, err
	}

	jsonText, err := ExtractJSON(text)
	if err != nil {
		return nil, NewLLMError(LLMCodeInvalidResponse, "画像JSON解析失败: %v", err)
	}

	var profile models.QueryProfile
	if err := json.Unmarshal([]byte(jsonText), &profile); err != nil {
		return nil, NewLLMError(LLMCodeInvalidResponse, "画像JSON反序列化失败: %v", err)
	}
	if profile.SearchQuery == "" {
		profile.SearchQuery = utils.TruncateRunes(query, 60)
	}
	return &profile, nil
}

// fallbackProfile 确定性回退：search_query取截断后的原始查询或需求摘录
func (p *Profiler) fallbackProfile(query, requirement string) *models.QueryProfile {
	searchQuery := strings.TrimSpace(query)
	if searchQuery == "" {
		searchQuery = strings.TrimSpace(requirement)
	}
	return &models.QueryProfile{
		SearchQuery: utils.TruncateRunes(searchQuery, 60),
	}
}

// RewriteSearchPhrases 从长需求中提炼3-5条技术性搜索短语。
// 改写必须但不可行时返回 ErrRewriteUnavailable —— 调用方应硬停止而不是降级为低精度搜索。
func (p *Profiler) RewriteSearchPhrases(ctx context.Context, query, requirement string) ([]string, error) {
	if p.llm == nil {
		return nil, fmt.Errorf("%w: %v", ErrRewriteUnavailable, ErrLLMNotConfigured)
	}

	combined := strings.TrimSpace(query + "\n" + requirement)
	text, err := p.llm.Chat(ctx, []ChatMessage{
		{Role: "user", Content: buildRewritePrompt(combined)},
	}, 0.1, 512)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRewriteUnavailable, err)
	}

	jsonText, err := ExtractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRewriteUnavailable, err)
	}

	var parsed struct {
		Phrases []string `json:"phrases"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRewriteUnavailable, err)
	}

	phrases := utils.DeduplicateSlice(parsed.Phrases)
	if len(phrases) < 3 {
		return nil, fmt.Errorf("%w: 可用短语不足（%d条）", ErrRewriteUnavailable, len(phrases))
	}
	if len(phrases) > 5 {
		phrases = phrases[:5]
	}

	logger.Info("长需求改写完成", "phrases", phrases)
	return phrases, nil
}
