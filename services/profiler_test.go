package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProfileFallbackWithoutLLM(t *testing.T) {
	p := NewProfiler(nil, 100)

	profile, warnings := p.BuildProfile(context.Background(), "微信公众号爬虫", "")

	require.NotNil(t, profile)
	assert.Equal(t, "微信公众号爬虫", profile.SearchQuery)
	assert.Empty(t, profile.Summary, "降级画像没有LLM摘要")
	assert.Empty(t, warnings, "未配置LLM不算降级")
}

func TestBuildProfileFallbackOnLLMError(t *testing.T) {
	p := NewProfiler(&fakeLLM{err: NewLLMError(LLMCodeAuthFailed, "bad key")}, 100)

	profile, warnings := p.BuildProfile(context.Background(), "搭建知识库问答", "")

	require.NotNil(t, profile)
	assert.Equal(t, "搭建知识库问答", profile.SearchQuery)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], LLMCodeAuthFailed)
}

func TestBuildProfileParsesLLMReply(t *testing.T) {
	reply := `根据分析，结果如下：
{"summary":"微信公众号文章采集与汇总","search_query":"wechat article crawler","keywords":["wechat","crawler"],"must_have":["公众号抓取"]}`
	p := NewProfiler(&fakeLLM{reply: reply}, 100)

	profile, warnings := p.BuildProfile(context.Background(), "微信公众号采集", "")

	assert.Empty(t, warnings)
	require.NotNil(t, profile)
	assert.Equal(t, "wechat article crawler", profile.SearchQuery)
	assert.Equal(t, "微信公众号文章采集与汇总", profile.Summary)
	assert.Contains(t, profile.MustHave, "公众号抓取")
}

func TestNeedsRewriteThreshold(t *testing.T) {
	p := NewProfiler(nil, 100)

	assert.False(t, p.NeedsRewrite("短查询", ""))
	assert.True(t, p.NeedsRewrite("", strings.Repeat("需", 101)))
	assert.False(t, p.NeedsRewrite("", strings.Repeat("需", 100)), "等于阈值不触发")
}

func TestRewriteUnavailableWithoutLLM(t *testing.T) {
	p := NewProfiler(nil, 100)

	_, err := p.RewriteSearchPhrases(context.Background(), "q", strings.Repeat("长", 200))

	assert.True(t, errors.Is(err, ErrRewriteUnavailable))
}

func TestRewriteRequiresThreePhrases(t *testing.T) {
	p := NewProfiler(&fakeLLM{reply: `{"phrases":["wechat crawler","rss aggregator"]}`}, 100)

	_, err := p.RewriteSearchPhrases(context.Background(), "q", "长需求")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRewriteUnavailable), "短语不足时不能降级为低精度搜索")
}

func TestRewriteCapsAtFivePhrases(t *testing.T) {
	p := NewProfiler(&fakeLLM{reply: `{"phrases":["a1","b2","c3","d4","e5","f6","g7"]}`}, 100)

	phrases, err := p.RewriteSearchPhrases(context.Background(), "q", "长需求")

	require.NoError(t, err)
	assert.Len(t, phrases, 5)
}

func TestRewriteWrapsLLMFailure(t *testing.T) {
	p := NewProfiler(&fakeLLM{err: NewLLMError(LLMCodeTimeout, "deadline")}, 100)

	_, err := p.RewriteSearchPhrases(context.Background(), "q", "长需求")

	assert.True(t, errors.Is(err, ErrRewriteUnavailable))
	assert.Contains(t, err.Error(), LLMCodeTimeout)
}
