package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solution_recommender/models"
)

func TestComputeFinalScore(t *testing.T) {
	b := &models.ScoreBreakdown{Relevance: 80, Popularity: 60, CostBonus: 90, CapabilityMatch: 70}

	got := ComputeFinalScore(b)

	// 80*0.4 + 60*0.2 + 90*0.15 + 70*0.25 = 75
	assert.Equal(t, 75, got)
	assert.Equal(t, 75, b.FinalScore)
}

func TestComputeFinalScoreBounds(t *testing.T) {
	assert.Equal(t, 0, ComputeFinalScore(&models.ScoreBreakdown{}))
	assert.Equal(t, 100, ComputeFinalScore(&models.ScoreBreakdown{
		Relevance: 100, Popularity: 100, CostBonus: 100, CapabilityMatch: 100,
	}))
}

func TestCaseCostBonusTiers(t *testing.T) {
	assert.Equal(t, 95, caseCostBonus(&models.CatalogCase{ProductType: models.ProductOpenSource}))
	assert.Equal(t, 60, caseCostBonus(&models.CatalogCase{ProductType: models.ProductPrivateSolution}))
	assert.Equal(t, 85, caseCostBonus(&models.CatalogCase{ProductType: models.ProductCommercial, MonthlyCost: 99}))
	assert.Equal(t, 70, caseCostBonus(&models.CatalogCase{ProductType: models.ProductCommercial, MonthlyCost: 500}))
	assert.Equal(t, 55, caseCostBonus(&models.CatalogCase{ProductType: models.ProductCommercial, MonthlyCost: 2000}))

	override := 40
	assert.Equal(t, 40, caseCostBonus(&models.CatalogCase{
		ProductType: models.ProductOpenSource, CostBonusOverride: &override,
	}), "显式覆盖值优先于类型查表")
}

func TestCapabilityMatch(t *testing.T) {
	cc := &models.CatalogCase{Capabilities: []models.Capability{
		{Code: "crawl"}, {Code: "dedup"},
	}}

	assert.Equal(t, neutralCapabilityScore, capabilityMatch(nil, cc), "未请求能力取中性值")
	assert.Equal(t, 50, capabilityMatch([]string{"crawl", "push"}, cc))
	assert.Equal(t, 100, capabilityMatch([]string{"CRAWL", "DEDUP"}, cc), "能力码不区分大小写")
	assert.Equal(t, 0, capabilityMatch([]string{"billing"}, cc))
}

func TestScoreCasesPersistsEvaluations(t *testing.T) {
	store := &fakeStore{cases: []models.CatalogCase{
		{ID: 1, Name: "内容采集方案", ProductType: models.ProductOpenSource,
			Description: "微信公众号爬虫 wechat crawler 采集汇总"},
		{ID: 2, Name: "商业监控SaaS", ProductType: models.ProductCommercial, MonthlyCost: 500,
			Description: "网站可用性监控与告警"},
	}}
	ranker := newTestRanker()
	svc := NewCatalogService(store, ranker)
	rc := ranker.BuildContext("微信公众号爬虫", nil)

	scored := svc.ScoreCases(rc, nil)

	require.Len(t, scored, 2)
	assert.Equal(t, "内容采集方案", scored[0].Case.Name, "相关案例排在前面")
	assert.Greater(t, scored[0].Breakdown.FinalScore, scored[1].Breakdown.FinalScore)

	// 每个案例落一条评估审计
	require.Len(t, store.evaluations, 2)
	for _, ev := range store.evaluations {
		assert.Equal(t, "微信公众号爬虫", ev.Query)
		assert.Equal(t, ev.Breakdown.FinalScore, ComputeFinalScore(&ev.Breakdown))
		assert.False(t, ev.GeneratedAt.IsZero())
	}
}

func TestScoreCasesDeterministic(t *testing.T) {
	store := &fakeStore{cases: []models.CatalogCase{
		{ID: 1, Name: "方案A", ProductType: models.ProductOpenSource, Description: "crawler 爬虫"},
		{ID: 2, Name: "方案B", ProductType: models.ProductOpenSource, Description: "crawler 爬虫"},
	}}
	ranker := newTestRanker()
	svc := NewCatalogService(store, ranker)
	rc := ranker.BuildContext("爬虫", nil)

	first := svc.ScoreCases(rc, nil)
	second := svc.ScoreCases(rc, nil)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Case.ID, second[i].Case.ID)
		assert.Equal(t, first[i].Breakdown, second[i].Breakdown)
	}
}

func TestRefreshUpdatesCache(t *testing.T) {
	store := &fakeStore{cases: []models.CatalogCase{{ID: 1, Name: "初版"}}}
	svc := NewCatalogService(store, newTestRanker())

	require.NoError(t, svc.Refresh())
	require.Len(t, svc.Cases(), 1)

	store.cases = append(store.cases, models.CatalogCase{ID: 2, Name: "新增"})
	require.NoError(t, svc.Refresh())
	assert.Len(t, svc.Cases(), 2)
}

func TestToResultsShape(t *testing.T) {
	svc := NewCatalogService(&fakeStore{}, newTestRanker())
	scored := []ScoredCase{{
		Case: models.CatalogCase{Name: "内部方案", ProductType: models.ProductPrivateSolution,
			ActionType: "self_host", URL: "https://internal.example.com"},
		Breakdown: models.ScoreBreakdown{FinalScore: 68},
	}}

	results := svc.ToResults(scored)

	require.Len(t, results, 1)
	assert.Equal(t, "catalog", results[0].Source)
	assert.Equal(t, 68, results[0].MatchScore)
	assert.Contains(t, results[0].MatchTags, models.ProductPrivateSolution)
}
