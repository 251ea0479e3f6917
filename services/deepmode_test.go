package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solution_recommender/models"
)

// fakeFetcher 按FullName返回预设文档，未命中的返回错误
type fakeFetcher struct {
	docs map[string]string
}

func (f *fakeFetcher) Fetch(ctx context.Context, c *models.Candidate) (*FetchedDoc, error) {
	if content, ok := f.docs[c.FullName]; ok {
		return &FetchedDoc{Content: content, FetchSource: "raw"}, nil
	}
	return nil, &ProviderError{Provider: c.Source, Message: "readme not found"}
}

func testResults() []models.RecommendationResult {
	return []models.RecommendationResult{
		{Candidate: mkCandidate("github", "a/colly", "elegant crawler framework", 24000), MatchScore: 92,
			MatchReasons: []string{"原生支持并发抓取"}},
		{Candidate: mkCandidate("github", "b/gerapy", "分布式爬虫管理", 3500), MatchScore: 80},
	}
}

func TestDeepModeLLMSummary(t *testing.T) {
	llm := &fakeLLM{reply: `{"summary":"首选colly，轻量且并发友好。","insights":[
		{"rank":1,"candidate":"a/colly","point":"回调式API直接覆盖抓取需求"}
	]}`}
	d := NewDeepModeOrchestrator(llm, &fakeFetcher{docs: map[string]string{"a/colly": "colly readme"}}, 2, 2, 2)

	out := d.Run(context.Background(), "爬虫框架", testResults(), nil)

	assert.Empty(t, out.Warnings)
	assert.Equal(t, "首选colly，轻量且并发友好。", out.Summary)
	require.Len(t, out.Insights, 1)
	assert.Equal(t, "a/colly", out.Insights[0].Candidate)
}

func TestDeepModeRuleBasedFallback(t *testing.T) {
	llm := &fakeLLM{err: NewLLMError(LLMCodeTimeout, "deadline")}
	d := NewDeepModeOrchestrator(llm, &fakeFetcher{}, 2, 2, 2)

	out := d.Run(context.Background(), "爬虫框架", testResults(), nil)

	assert.NotEmpty(t, out.Summary, "LLM失败时综述由规则合成")
	assert.NotEmpty(t, out.Insights)
	require.NotEmpty(t, out.Warnings)
	assert.Contains(t, out.Warnings[0], LLMCodeTimeout)
	assert.Equal(t, "原生支持并发抓取", out.Insights[0].Point, "洞察点优先取命中理由")
}

func TestDeepModeFetchFailureIsMissingNotError(t *testing.T) {
	// 文档全部抓取失败，深度模式仍产出叙述
	d := NewDeepModeOrchestrator(nil, &fakeFetcher{}, 2, 2, 1)

	out := d.Run(context.Background(), "爬虫框架", testResults(), nil)

	assert.NotEmpty(t, out.Summary)
	assert.Empty(t, out.Warnings, "单个文档缺失不产生请求级警告")
}

func TestDeepModeEmptyResults(t *testing.T) {
	d := NewDeepModeOrchestrator(nil, nil, 3, 2, 2)

	out := d.Run(context.Background(), "没有结果的需求", nil, nil)

	assert.NotEmpty(t, out.Summary)
	assert.Empty(t, out.Insights)
}
