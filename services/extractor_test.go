package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *TermExtractor {
	return NewTermExtractor(DefaultSemanticRegistry())
}

func TestExtractDeterministic(t *testing.T) {
	e := newTestExtractor()
	text := "微信公众号情报爬取汇总 redis cache"

	first := e.Extract(text)
	second := e.Extract(text)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second, "相同输入必须产生相同词表")
}

func TestExtractCJKNGrams(t *testing.T) {
	e := newTestExtractor()

	terms := e.Extract("微信公众号")

	assert.Contains(t, terms, "微信公众号")
	assert.Contains(t, terms, "微信", "2字n-gram")
	assert.Contains(t, terms, "公众号", "3字n-gram")
}

func TestExtractSynonymExpansion(t *testing.T) {
	e := newTestExtractor()

	terms := e.Extract("分布式爬虫管理")

	// 命中crawler词簇后整簇别名都应出现
	assert.Contains(t, terms, "爬虫")
	assert.Contains(t, terms, "crawler")
	assert.Contains(t, terms, "spider")
}

func TestExtractFiltersNoise(t *testing.T) {
	e := newTestExtractor()

	terms := e.Extract("keyword123 2024 the system 关键词7 redis")

	assert.NotContains(t, terms, "keyword123")
	assert.NotContains(t, terms, "2024")
	assert.NotContains(t, terms, "the")
	assert.NotContains(t, terms, "system")
	assert.NotContains(t, terms, "关键词7")
	assert.Contains(t, terms, "redis")
}

func TestExtractCapsTermCount(t *testing.T) {
	e := newTestExtractor()

	long := "微信公众号情报资讯监测爬虫采集汇总聚合推荐搜索数据库缓存认证监控存储视频音乐电商博客社区支付自动化"
	terms := e.Extract(long)

	assert.LessOrEqual(t, len(terms), maxExtractTerms)
}

func TestGroupsInWordExactASCII(t *testing.T) {
	r := DefaultSemanticRegistry()

	// spider只能按整词命中，spiderman不触发crawler
	assert.NotContains(t, r.GroupsIn("spiderman movie review"), "crawler")
	assert.Contains(t, r.GroupsIn("a spider based data pipeline"), "crawler")
}

func TestGroupsInCJKSubstring(t *testing.T) {
	r := DefaultSemanticRegistry()

	groups := r.GroupsIn("做一个微信机器人自动回复")
	assert.Contains(t, groups, "wechat")
}

func TestHardGroupsIn(t *testing.T) {
	r := DefaultSemanticRegistry()

	hard := r.HardGroupsIn("微信公众号内容爬取和推荐")
	assert.ElementsMatch(t, []string{"wechat", "crawler"}, hard)
	assert.True(t, r.IsHard("payment"))
	assert.False(t, r.IsHard("recommendation"))
}
