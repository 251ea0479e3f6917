package services

import (
	"strings"

	"solution_recommender/models"
	"solution_recommender/utils"
)

// SemanticRegistry 语义词簇注册表。构造后只读，可被多个请求并发访问。
type SemanticRegistry struct {
	groups  []models.SemanticGroup
	byAlias map[string]string // 别名(小写) -> 词簇名
	byName  map[string]*models.SemanticGroup
}

// NewSemanticRegistry 用给定词簇构建注册表
func NewSemanticRegistry(groups []models.SemanticGroup) *SemanticRegistry {
	r := &SemanticRegistry{
		groups:  groups,
		byAlias: make(map[string]string),
		byName:  make(map[string]*models.SemanticGroup),
	}
	for i := range groups {
		g := &groups[i]
		r.byName[g.Name] = g
		for _, a := range g.Aliases {
			r.byAlias[strings.ToLower(a)] = g.Name
		}
	}
	return r
}

// DefaultSemanticRegistry 内置词簇表，覆盖常见的中英跨语言技术意图
func DefaultSemanticRegistry() *SemanticRegistry {
	return NewSemanticRegistry([]models.SemanticGroup{
		{Name: "wechat", Hard: true, Aliases: []string{"微信", "wechat", "weixin", "公众号", "official-account", "服务号", "小程序"}},
		{Name: "crawler", Hard: true, Aliases: []string{"爬虫", "crawler", "spider", "scrape", "scraping", "爬取", "抓取", "采集"}},
		{Name: "payment", Hard: true, Aliases: []string{"支付", "payment", "收款", "billing", "计费"}},
		{Name: "intel", Aliases: []string{"情报", "intelligence", "资讯", "监测", "intel"}},
		{Name: "aggregate", Aliases: []string{"汇总", "aggregate", "aggregator", "聚合", "collection", "收集"}},
		{Name: "community", Aliases: []string{"社区", "community", "forum", "论坛", "bbs", "贴吧"}},
		{Name: "database", Aliases: []string{"数据库", "database", "mysql", "postgres", "sqlite"}},
		{Name: "cache", Aliases: []string{"缓存", "cache", "redis", "memcached"}},
		{Name: "search", Aliases: []string{"搜索", "search", "elasticsearch", "检索", "全文检索"}},
		{Name: "recommendation", Aliases: []string{"推荐", "recommend", "recommendation", "推荐系统"}},
		{Name: "im", Aliases: []string{"聊天", "chat", "im", "即时通讯", "messaging", "消息推送"}},
		{Name: "blog", Aliases: []string{"博客", "blog", "建站"}},
		{Name: "cms", Aliases: []string{"cms", "内容管理", "后台管理"}},
		{Name: "ecommerce", Aliases: []string{"电商", "ecommerce", "商城", "shop", "订单"}},
		{Name: "monitor", Aliases: []string{"监控", "monitor", "monitoring", "告警", "alert", "运维"}},
		{Name: "auth", Aliases: []string{"认证", "auth", "oauth", "sso", "登录", "权限"}},
		{Name: "llm", Aliases: []string{"大模型", "llm", "gpt", "chatgpt", "ai助手", "agent"}},
		{Name: "rag", Aliases: []string{"rag", "知识库", "knowledge-base", "向量检索", "embedding"}},
		{Name: "automation", Aliases: []string{"自动化", "automation", "workflow", "工作流", "定时任务"}},
		{Name: "storage", Aliases: []string{"存储", "storage", "网盘", "oss", "对象存储"}},
		{Name: "music", Aliases: []string{"音乐", "music", "播放器", "player"}},
		{Name: "video", Aliases: []string{"视频", "video", "直播", "streaming", "弹幕"}},
	})
}

// Groups 返回全部词簇，只读
func (r *SemanticRegistry) Groups() []models.SemanticGroup {
	return r.groups
}

// GroupOfAlias 返回别名所属的词簇名，不存在时返回空串
func (r *SemanticRegistry) GroupOfAlias(alias string) string {
	return r.byAlias[strings.ToLower(alias)]
}

// AliasesOf 返回词簇的全部别名
func (r *SemanticRegistry) AliasesOf(name string) []string {
	if g, ok := r.byName[name]; ok {
		return g.Aliases
	}
	return nil
}

// IsHard 词簇是否属于核心意图
func (r *SemanticRegistry) IsHard(name string) bool {
	if g, ok := r.byName[name]; ok {
		return g.Hard
	}
	return false
}

// GroupsIn 返回文本中出现的词簇名。
// 中文别名用子串匹配，英文别名按分词后的整词匹配，避免 pay 误中 player 这类情况。
func (r *SemanticRegistry) GroupsIn(text string) []string {
	lower := strings.ToLower(text)
	words := make(map[string]bool)
	for _, w := range asciiTokenRe.FindAllString(lower, -1) {
		words[w] = true
	}

	var hit []string
	for i := range r.groups {
		g := &r.groups[i]
		for _, a := range g.Aliases {
			alias := strings.ToLower(a)
			matched := false
			if containsCJK(alias) {
				matched = strings.Contains(lower, alias)
			} else {
				matched = words[alias]
			}
			if matched {
				hit = append(hit, g.Name)
				break
			}
		}
	}
	return hit
}

// HardGroupsIn 返回文本中触发的核心意图词簇
func (r *SemanticRegistry) HardGroupsIn(text string) []string {
	var hard []string
	for _, name := range r.GroupsIn(text) {
		if r.IsHard(name) {
			hard = append(hard, name)
		}
	}
	return hard
}

func containsCJK(s string) bool {
	for _, r := range s {
		if utils.IsCJKRune(r) {
			return true
		}
	}
	return false
}
