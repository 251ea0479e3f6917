package services

import (
	"strings"

	"solution_recommender/models"
)

// TemplateProvider 内置模板/案例兜底源。
// 联邦检索结果过少时用它补足候选池；带独立的来源标识，
// 保证模板项不会只靠热度压过真实搜索结果。
type TemplateProvider struct {
	registry *SemanticRegistry
	entries  []models.Candidate
}

// NewTemplateProvider 创建模板兜底源
func NewTemplateProvider(registry *SemanticRegistry) *TemplateProvider {
	return &TemplateProvider{registry: registry, entries: builtinTemplates()}
}

// Supplement 按查询词簇挑选模板候选，最多返回need条。
// 优先返回与查询词簇有交集的模板，不足时用通用模板补齐。
func (p *TemplateProvider) Supplement(queryText string, need int) []models.Candidate {
	if need <= 0 {
		return nil
	}
	queryGroups := make(map[string]bool)
	for _, g := range p.registry.GroupsIn(queryText) {
		queryGroups[g] = true
	}

	var matched, rest []models.Candidate
	for _, e := range p.entries {
		hit := false
		for _, g := range p.registry.GroupsIn(e.Summary) {
			if queryGroups[g] {
				hit = true
				break
			}
		}
		if hit {
			matched = append(matched, e)
		} else {
			rest = append(rest, e)
		}
	}

	picked := matched
	if len(picked) < need {
		picked = append(picked, rest[:min(need-len(picked), len(rest))]...)
	}
	if len(picked) > need {
		picked = picked[:need]
	}
	return picked
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// builtinTemplates 精选模板清单。Summary是归一化后的打分文本。
func builtinTemplates() []models.Candidate {
	mk := func(fullName, desc string, topics []string, lang string, stars int) models.Candidate {
		name := fullName
		if i := strings.LastIndex(fullName, "/"); i >= 0 {
			name = fullName[i+1:]
		}
		c := models.Candidate{
			Source:      "template",
			FullName:    fullName,
			Name:        name,
			URL:         "https://github.com/" + fullName,
			Description: desc,
			Language:    lang,
			Topics:      topics,
			Stars:       stars,
		}
		c.Summary = strings.ToLower(fullName + " " + desc + " " + strings.Join(topics, " "))
		return c
	}

	return []models.Candidate{
		mk("wechaty/wechaty", "Conversational RPA SDK，微信聊天机器人框架", []string{"wechat", "bot", "chatbot"}, "TypeScript", 21000),
		mk("Gerapy/Gerapy", "分布式爬虫管理框架，基于Scrapy和Django", []string{"crawler", "spider", "scrapy"}, "Python", 3500),
		mk("gocolly/colly", "Elegant scraper and crawler framework for Go", []string{"crawler", "scraper", "spider"}, "Go", 24000),
		mk("langgenius/dify", "LLM应用开发平台，支持RAG和Agent工作流", []string{"llm", "rag", "agent", "knowledge-base"}, "Python", 110000),
		mk("infiniflow/ragflow", "基于深度文档理解的RAG引擎，知识库问答", []string{"rag", "llm", "knowledge-base"}, "Python", 60000),
		mk("grafana/grafana", "可观测性与数据可视化平台，监控告警", []string{"monitor", "monitoring", "alert", "observability"}, "TypeScript", 67000),
		mk("answerdev/answer", "开源问答社区论坛软件", []string{"community", "forum", "q-and-a"}, "Go", 14000),
		mk("halo-dev/halo", "强大易用的开源建站工具，博客CMS", []string{"blog", "cms", "halo"}, "Java", 35000),
		mk("macrozheng/mall", "电商系统，包括前台商城和后台管理系统", []string{"ecommerce", "mall", "springboot"}, "Java", 80000),
		mk("meilisearch/meilisearch", "轻量极速的全文搜索引擎", []string{"search", "full-text-search"}, "Rust", 50000),
		mk("casdoor/casdoor", "面向UI的身份认证平台，支持OAuth/SSO", []string{"auth", "oauth", "sso", "iam"}, "Go", 11000),
		mk("n8n-io/n8n", "工作流自动化平台，支持自定义节点", []string{"automation", "workflow"}, "TypeScript", 120000),
	}
}
