package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solution_recommender/models"
)

func TestRerankFallbackOnLLMError(t *testing.T) {
	r := newTestRanker()
	rc := r.BuildContext("分布式爬虫", nil)
	ranked := r.Rank(rc, []models.Candidate{
		mkCandidate("github", "a/colly", "elegant crawler framework", 24000, "crawler"),
		mkCandidate("github", "b/gerapy", "分布式爬虫管理 spider", 3500, "crawler"),
	})
	before := make([]string, len(ranked))
	for i, rk := range ranked {
		before[i] = rk.Candidate.FullName
	}

	rr := NewReranker(&fakeLLM{err: NewLLMError(LLMCodeRateLimit, "too many requests")})
	after, warnings := rr.Rerank(context.Background(), rc, nil, ranked, 2)

	// 顺序保持确定性结果，警告带原因码
	require.Len(t, after, len(before))
	for i := range after {
		assert.Equal(t, before[i], after[i].Candidate.FullName)
	}
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], FallbackNotice)
	assert.Contains(t, warnings[0], LLMCodeRateLimit)
}

func TestRerankFallbackOnInvalidJSON(t *testing.T) {
	r := newTestRanker()
	rc := r.BuildContext("缓存中间件", nil)
	ranked := r.Rank(rc, []models.Candidate{
		mkCandidate("github", "a/redis", "in-memory cache", 60000, "cache"),
	})

	rr := NewReranker(&fakeLLM{reply: "抱歉，我无法完成这个任务。"})
	_, warnings := rr.Rerank(context.Background(), rc, nil, ranked, 1)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], LLMCodeInvalidResponse)
}

func TestRerankBlendsModelScore(t *testing.T) {
	rc := &RankContext{Query: "test"}
	ranked := []RankedCandidate{
		{Candidate: models.Candidate{FullName: "a/first"}, Score: 50, Precision: 0.5, ModelScore: -1},
		{Candidate: models.Candidate{FullName: "b/second"}, Score: 45, Precision: 0.4, ModelScore: -1},
	}

	rr := NewReranker(&fakeLLM{reply: `{"results":[
		{"id":1,"score":0,"reasons":["几乎不相关"]},
		{"id":2,"score":100,"reasons":["完全匹配需求"],"tags":["crawler"]}
	]}`})
	after, warnings := rr.Rerank(context.Background(), rc, nil, ranked, 2)

	assert.Empty(t, warnings)
	require.Len(t, after, 2)
	// 模型高分把第二名抬到第一，但混合权重下词面分仍占大头
	assert.Equal(t, "b/second", after[0].Candidate.FullName)
	assert.Equal(t, []string{"完全匹配需求"}, after[0].Reasons)
	assert.Equal(t, 62, after[0].Score)
	assert.Equal(t, 44, after[1].Score)
}

func TestRerankIgnoresOutOfRangeIDs(t *testing.T) {
	rc := &RankContext{Query: "test"}
	ranked := []RankedCandidate{
		{Candidate: models.Candidate{FullName: "a/only"}, Score: 40, ModelScore: -1},
	}

	rr := NewReranker(&fakeLLM{reply: `{"results":[{"id":9,"score":99},{"id":0,"score":88},{"id":1,"score":50}]}`})
	after, warnings := rr.Rerank(context.Background(), rc, nil, ranked, 1)

	assert.Empty(t, warnings)
	require.Len(t, after, 1)
	assert.Equal(t, 50, after[0].ModelScore, "越界id被忽略，合法id生效")
}

func TestRerankNilLLMNoop(t *testing.T) {
	rr := NewReranker(nil)
	ranked := []RankedCandidate{{Score: 10}}

	after, warnings := rr.Rerank(context.Background(), &RankContext{}, nil, ranked, 1)

	assert.Equal(t, ranked, after)
	assert.Empty(t, warnings)
}
