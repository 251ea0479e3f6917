package services

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solution_recommender/models"
)

func TestFederationIsolatesProviderFailure(t *testing.T) {
	good := &fakeProvider{name: "github", items: []models.Candidate{
		mkCandidate("github", "a/colly", "crawler framework", 24000),
	}}
	bad := &fakeProvider{name: "gitee", err: &ProviderError{Provider: "gitee", StatusCode: 503, Message: "unavailable"}}

	f := NewFederation([]SearchProvider{good, bad}, 15, 4)
	out := f.Search(context.Background(), []string{"crawler", "spider"})

	require.Len(t, out.Candidates, 1, "失败的源不影响其他源的结果")
	assert.Equal(t, "a/colly", out.Candidates[0].FullName)
	// 同一个源跨变体失败两次，警告只记一次
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "gitee")
	assert.Equal(t, []string{"github"}, out.Sources)
}

func TestFederationDeduplicatesAcrossVariants(t *testing.T) {
	p := &fakeProvider{name: "github", items: []models.Candidate{
		mkCandidate("github", "a/colly", "crawler framework", 24000),
		mkCandidate("github", "b/gerapy", "spider manager", 3500),
	}}

	f := NewFederation([]SearchProvider{p}, 15, 4)
	out := f.Search(context.Background(), []string{"crawler", "web spider"})

	assert.Len(t, p.queries, 2)
	assert.Len(t, out.Candidates, 2, "跨变体重复的候选只保留一份")
}

func TestFederationFillsSummary(t *testing.T) {
	c := models.Candidate{Source: "github", FullName: "A/Colly", Name: "Colly", Description: "Crawler Framework"}
	p := &fakeProvider{name: "github", items: []models.Candidate{c}}

	f := NewFederation([]SearchProvider{p}, 15, 4)
	out := f.Search(context.Background(), []string{"crawler"})

	require.Len(t, out.Candidates, 1)
	assert.Contains(t, out.Candidates[0].Summary, "crawler framework", "归一化文本为小写")
}

func TestTrimQueryToBudgetWordBoundary(t *testing.T) {
	query := "distributed crawler framework with scheduling"
	budget := len(url.QueryEscape("distributed crawler framework"))

	got := TrimQueryToBudget(query, budget)

	assert.Equal(t, "distributed crawler framework", got, "从尾部整词丢弃")
	assert.LessOrEqual(t, len(url.QueryEscape(got)), budget)
}

func TestTrimQueryToBudgetSingleLongToken(t *testing.T) {
	// 单个超长中文token按字符截断，编码后每个汉字9字节
	query := strings.Repeat("爬", 100)
	got := TrimQueryToBudget(query, 45)

	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(url.QueryEscape(got)), 45)
}

func TestTrimQueryToBudgetNoTrimNeeded(t *testing.T) {
	assert.Equal(t, "redis cache", TrimQueryToBudget("  redis cache  ", 256))
	assert.Equal(t, "redis", TrimQueryToBudget("redis", 0), "无预算限制时原样返回")
}
