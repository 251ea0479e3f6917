package models

import "time"

// 推荐模式
const (
	ModeQuick = "quick"
	ModeDeep  = "deep"
)

// RecommendRequest 推荐请求入参
type RecommendRequest struct {
	Query       string `json:"query" example:"微信公众号爬虫"`
	Requirement string `json:"requirement,omitempty"` // 长需求描述，可为空
	Mode        string `json:"mode,omitempty" example:"quick"`
	Limit       int    `json:"limit,omitempty" example:"10"`
}

// InsightPoint 深度模式下的洞察点，把候选和具体需求点关联起来
type InsightPoint struct {
	Rank      int    `json:"rank"`
	Candidate string `json:"candidate"`
	Point     string `json:"point"`
}

// RecommendResponse 推荐响应，任何失败都体现在 warnings 中，结构始终完整
type RecommendResponse struct {
	RequestID          string                 `json:"request_id"`
	Query              string                 `json:"query"`
	Mode               string                 `json:"mode"`
	GeneratedAt        time.Time              `json:"generated_at"`
	RequirementExcerpt string                 `json:"requirement_excerpt,omitempty"`
	SearchQuery        string                 `json:"search_query"`
	Profile            *QueryProfile          `json:"profile,omitempty"`
	Warnings           []string               `json:"warnings"`
	Sources            []string               `json:"sources"`
	DeepSummary        string                 `json:"deep_summary,omitempty"`
	InsightPoints      []InsightPoint         `json:"insight_points,omitempty"`
	TraceSteps         []string               `json:"trace_steps,omitempty"`
	Citations          []Citation             `json:"citations,omitempty"`
	Recommendations    []RecommendationResult `json:"recommendations"`
}
