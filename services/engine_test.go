package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solution_recommender/config"
	"solution_recommender/models"
)

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Recommend.MinResults = 10
	cfg.Recommend.MaxResults = 20
	cfg.Recommend.RewriteMinChars = 100
	cfg.Recommend.ConfirmMinChars = 100
	cfg.Recommend.MaxQueryVariants = 2
	cfg.Recommend.FederationWorkers = 4
	cfg.Recommend.DocFetchWorkers = 2
	cfg.Recommend.DocFetchTimeout = 2
	cfg.Recommend.DeepFetchTopN = 2
	return cfg
}

func relevantPool(n int) []models.Candidate {
	pool := make([]models.Candidate, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, mkCandidate("github",
			fmt.Sprintf("acme/crawler-%02d", i),
			"分布式爬虫框架 distributed crawler spider framework", 100+i, "crawler"))
	}
	return pool
}

func TestRecommendMinResultsWithSmallLimit(t *testing.T) {
	p := &fakeProvider{name: "github", items: relevantPool(25)}
	engine := NewEngine(newTestConfig(), nil, []SearchProvider{p}, nil, nil, nil)

	resp := engine.Recommend(context.Background(), models.RecommendRequest{
		Query: "分布式爬虫框架", Limit: 1,
	})

	// limit=1 但候选池足够时仍返回下限数量的结果
	assert.Len(t, resp.Recommendations, 10)
}

func TestRecommendRespectsMaxResults(t *testing.T) {
	p := &fakeProvider{name: "github", items: relevantPool(40)}
	engine := NewEngine(newTestConfig(), nil, []SearchProvider{p}, nil, nil, nil)

	resp := engine.Recommend(context.Background(), models.RecommendRequest{
		Query: "分布式爬虫框架", Limit: 50,
	})

	assert.LessOrEqual(t, len(resp.Recommendations), 20)
}

func TestRecommendHardStopOnLongInputWithoutRewrite(t *testing.T) {
	p := &fakeProvider{name: "github", items: relevantPool(5)}
	engine := NewEngine(newTestConfig(), nil, []SearchProvider{p}, nil, nil, nil)

	resp := engine.Recommend(context.Background(), models.RecommendRequest{
		Query:       "爬虫",
		Requirement: strings.Repeat("这是一份很长的需求文档，描述了复杂的业务流程。", 10),
	})

	// 长需求且改写不可用：明确失败，绝不降级为低精度搜索
	assert.Empty(t, resp.Recommendations)
	require.NotEmpty(t, resp.Warnings)
	found := false
	for _, w := range resp.Warnings {
		if strings.Contains(w, "已停止搜索") {
			found = true
		}
	}
	assert.True(t, found, "必须有硬停止警告")
	assert.Empty(t, p.queries, "硬停止发生在联邦检索之前")
}

func TestRecommendStructurallyValidOnEmptyPool(t *testing.T) {
	engine := NewEngine(newTestConfig(), nil, nil, nil, nil, nil)

	resp := engine.Recommend(context.Background(), models.RecommendRequest{Query: "数据库中间件"})

	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, models.ModeQuick, resp.Mode)
	assert.NotNil(t, resp.Warnings)
	assert.NotNil(t, resp.Recommendations)
	assert.NotEmpty(t, resp.TraceSteps)
}

func TestRecommendGuardrailEmptyOverIrrelevant(t *testing.T) {
	offTopic := []models.Candidate{
		mkCandidate("github", "torvalds/linux", "kernel source tree", 120000),
		mkCandidate("github", "microsoft/vscode", "code editor", 150000),
	}
	p := &fakeProvider{name: "github", items: offTopic}
	engine := NewEngine(newTestConfig(), nil, []SearchProvider{p}, nil, nil, nil)

	resp := engine.Recommend(context.Background(), models.RecommendRequest{Query: "微信公众号爬虫"})

	assert.Empty(t, resp.Recommendations, "核心意图未覆盖时返回空结果")
	require.NotEmpty(t, resp.Warnings)
}

func TestRecommendFallbackNoticeOnRerankFailure(t *testing.T) {
	p := &fakeProvider{name: "github", items: relevantPool(12)}
	llm := &fakeLLM{err: NewLLMError(LLMCodeRateLimit, "busy")}
	engine := NewEngine(newTestConfig(), llm, []SearchProvider{p}, nil, nil, nil)

	resp := engine.Recommend(context.Background(), models.RecommendRequest{Query: "分布式爬虫框架"})

	assert.NotEmpty(t, resp.Recommendations, "LLM失败不影响确定性结果")
	found := false
	for _, w := range resp.Warnings {
		if strings.Contains(w, FallbackNotice) {
			found = true
		}
	}
	assert.True(t, found, "重排失败必须带降级提示")
}

func TestRecommendTemplateSupplement(t *testing.T) {
	p := &fakeProvider{name: "github", items: []models.Candidate{
		mkCandidate("github", "a/answer", "问答社区论坛 forum community", 14000, "community"),
	}}
	engine := NewEngine(newTestConfig(), nil, []SearchProvider{p}, nil, nil, nil)

	resp := engine.Recommend(context.Background(), models.RecommendRequest{Query: "开源社区论坛"})

	assert.Contains(t, resp.Sources, "template", "候选池不足时模板兜底补足")
	hasTemplate := false
	for _, r := range resp.Recommendations {
		if r.Source == "template" {
			hasTemplate = true
		}
	}
	assert.True(t, hasTemplate)
}

func TestRecommendMergesCatalogResults(t *testing.T) {
	store := &fakeStore{cases: []models.CatalogCase{
		{ID: 1, Name: "爬虫托管方案", ProductType: models.ProductOpenSource,
			Description: "分布式爬虫 crawler spider 托管与调度"},
	}}
	registry := DefaultSemanticRegistry()
	catalog := NewCatalogService(store, NewRanker(registry, NewTermExtractor(registry)))
	p := &fakeProvider{name: "github", items: relevantPool(8)}
	engine := NewEngine(newTestConfig(), nil, []SearchProvider{p}, catalog, nil, nil)

	resp := engine.Recommend(context.Background(), models.RecommendRequest{Query: "分布式爬虫框架"})

	assert.Contains(t, resp.Sources, "catalog")
	hasCatalog := false
	for _, r := range resp.Recommendations {
		if r.Source == "catalog" {
			hasCatalog = true
		}
	}
	assert.True(t, hasCatalog, "案例结果参与统一排序")
	assert.NotEmpty(t, store.evaluations, "评分写入审计记录")
}

func TestRecommendCitationsMatchResults(t *testing.T) {
	p := &fakeProvider{name: "github", items: relevantPool(12)}
	engine := NewEngine(newTestConfig(), nil, []SearchProvider{p}, nil, nil, nil)

	resp := engine.Recommend(context.Background(), models.RecommendRequest{Query: "分布式爬虫框架"})

	require.Equal(t, len(resp.Recommendations), len(resp.Citations))
	for i, c := range resp.Citations {
		assert.Equal(t, i+1, c.ID, "引用id是1-based顺位")
		assert.Equal(t, resp.Recommendations[i].FullName, c.Title)
	}
}

func TestRecommendDeepModeRuleBasedSummary(t *testing.T) {
	p := &fakeProvider{name: "github", items: relevantPool(12)}
	engine := NewEngine(newTestConfig(), nil, []SearchProvider{p}, nil, nil, nil)

	resp := engine.Recommend(context.Background(), models.RecommendRequest{
		Query: "分布式爬虫框架", Mode: models.ModeDeep,
	})

	require.NotEmpty(t, resp.Recommendations)
	assert.NotEmpty(t, resp.DeepSummary, "LLM不可用时深度模式仍有规则式综述")
	assert.NotEmpty(t, resp.InsightPoints)
}
