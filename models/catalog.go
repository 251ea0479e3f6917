package models

import "time"

// 产品类型
const (
	ProductOpenSource      = "open_source"
	ProductCommercial      = "commercial"
	ProductPrivateSolution = "private_solution"
)

// Capability 能力标签，由存储层维护，本服务只读
type Capability struct {
	Code   string  `db:"code" json:"code"`
	Name   string  `db:"name" json:"name"`
	Weight float64 `db:"weight" json:"weight"`
}

// CatalogCase 内部精选案例
type CatalogCase struct {
	ID                int64        `db:"id" json:"id"`
	Name              string       `db:"name" json:"name"`
	ProductType       string       `db:"product_type" json:"product_type"`
	ActionType        string       `db:"action_type" json:"action_type"`
	Description       string       `db:"description" json:"description"`
	Vendor            string       `db:"vendor" json:"vendor,omitempty"`
	URL               string       `db:"url" json:"url,omitempty"`
	MonthlyCost       float64      `db:"monthly_cost" json:"monthly_cost,omitempty"`
	CostBonusOverride *int         `db:"cost_bonus_override" json:"cost_bonus_override,omitempty"`
	Capabilities      []Capability `json:"capabilities,omitempty"`
	Tags              string       `db:"tags" json:"tags,omitempty"` // JSON 字符串
}

// ScoreBreakdown 案例评分明细，各项均为 0-100 的整数
// FinalScore = round(relevance*0.4 + popularity*0.2 + cost_bonus*0.15 + capability_match*0.25)
type ScoreBreakdown struct {
	Relevance       int `json:"relevance"`
	Popularity      int `json:"popularity"`
	CostBonus       int `json:"cost_bonus"`
	CapabilityMatch int `json:"capability_match"`
	FinalScore      int `json:"final_score"`
}

// Evaluation 评估审计记录，由存储层持久化
type Evaluation struct {
	ID          int64          `db:"id" json:"id"`
	CaseID      int64          `db:"case_id" json:"case_id"`
	Query       string         `db:"query" json:"query"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
	GeneratedAt time.Time      `db:"generated_at" json:"generated_at"`
}
