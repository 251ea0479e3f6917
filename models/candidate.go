package models

import (
	"fmt"
	"strings"
	"time"
)

// Candidate 归一化后的候选仓库/方案，来源可以是外部搜索或内置模板
type Candidate struct {
	Source      string    `json:"source"` // github / gitee / gitcode / template / catalog
	FullName    string    `json:"full_name"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Language    string    `json:"language,omitempty"`
	Topics      []string  `json:"topics,omitempty"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	OpenIssues  int       `json:"open_issues"`
	License     string    `json:"license,omitempty"`
	Archived    bool      `json:"archived"`
	PushedAt    time.Time `json:"pushed_at,omitempty"`
	Summary     string    `json:"-"` // 仅用于打分的归一化文本，不输出
}

// Identity 候选的去重标识，跨供应商、跨查询变体唯一
func (c *Candidate) Identity() string {
	return fmt.Sprintf("%s:%s", c.Source, strings.ToLower(c.FullName))
}

// HealthCard 候选的健康度信息
type HealthCard struct {
	Archived      bool   `json:"archived"`
	LastPushDays  int    `json:"last_push_days"`
	OpenIssues    int    `json:"open_issues"`
	MaintainLevel string `json:"maintain_level"` // active / slow / stale
}

// BuildHealthCard 根据候选的元数据生成健康卡片
func BuildHealthCard(c *Candidate, now time.Time) HealthCard {
	days := -1
	if !c.PushedAt.IsZero() {
		days = int(now.Sub(c.PushedAt).Hours() / 24)
	}
	level := "active"
	switch {
	case c.Archived:
		level = "stale"
	case days > 365:
		level = "stale"
	case days > 120:
		level = "slow"
	}
	return HealthCard{
		Archived:      c.Archived,
		LastPushDays:  days,
		OpenIssues:    c.OpenIssues,
		MaintainLevel: level,
	}
}

// RecommendationResult 最终输出的单条推荐，按请求生成，不做持久化
type RecommendationResult struct {
	Candidate
	MatchScore   int        `json:"match_score"` // 0-100
	MatchReasons []string   `json:"match_reasons,omitempty"`
	MatchTags    []string   `json:"match_tags,omitempty"`
	RiskNotes    []string   `json:"risk_notes,omitempty"`
	Health       HealthCard `json:"health"`
}

// Citation 用于前端展示和可解释性的引用条目，每次请求重建
type Citation struct {
	ID      int    `json:"id"`
	Source  string `json:"source"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Score   int    `json:"score"`
	Reason  string `json:"reason,omitempty"`
}
