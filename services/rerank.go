package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"solution_recommender/logger"
	"solution_recommender/models"
	"solution_recommender/utils"
)

// 混合打分权重：词面相关性始终占最大单项权重，
// LLM无法推翻明显的主题不匹配。
const (
	blendLexical   = 0.54
	blendPrecision = 0.14
	blendMustHave  = 0.10
	blendModel     = 0.22

	// 提交重排的候选数 = limit * rerankFanout
	rerankFanout = 3
)

// FallbackNotice LLM不可用时加入warnings的提示
const FallbackNotice = "AI服务繁忙，已切换至快速模式"

// Reranker LLM重排器。任何失败都透明回退到纯确定性排序并记录警告，不会让请求失败。
type Reranker struct {
	llm LLMClient
}

// NewReranker 创建重排器
func NewReranker(llm LLMClient) *Reranker {
	return &Reranker{llm: llm}
}

type rerankResponse struct {
	Results []struct {
		ID      int      `json:"id"`
		Score   int      `json:"score"`
		Reasons []string `json:"reasons"`
		Tags    []string `json:"tags"`
		Risks   []string `json:"risks"`
	} `json:"results"`
}

// Rerank 把确定性排序的前 limit×3 个候选交给LLM重排，
// 模型分与确定性信号按固定权重混合后重新排序。
// 失败时原样返回输入并附带降级警告。
func (r *Reranker) Rerank(ctx context.Context, rc *RankContext, profile *models.QueryProfile, ranked []RankedCandidate, limit int) ([]RankedCandidate, []string) {
	if r.llm == nil || len(ranked) == 0 {
		return ranked, nil
	}

	n := utils.Min(len(ranked), utils.Max(limit, 1)*rerankFanout)
	head := ranked[:n]

	text, err := r.llm.Chat(ctx, []ChatMessage{
		{Role: "user", Content: buildRerankPrompt(profile, rc.Query, head)},
	}, 0.2, 2048)
	if err != nil {
		return ranked, r.fallbackWarnings(err)
	}

	jsonText, err := ExtractJSON(text)
	if err != nil {
		return ranked, r.fallbackWarnings(NewLLMError(LLMCodeInvalidResponse, "%v", err))
	}
	var parsed rerankResponse
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return ranked, r.fallbackWarnings(NewLLMError(LLMCodeInvalidResponse, "重排JSON反序列化失败: %v", err))
	}
	if len(parsed.Results) == 0 {
		return ranked, r.fallbackWarnings(NewLLMError(LLMCodeInvalidResponse, "重排结果为空"))
	}

	// id是1-based下标，越界的条目直接忽略
	for _, res := range parsed.Results {
		idx := res.ID - 1
		if idx < 0 || idx >= n {
			continue
		}
		head[idx].ModelScore = utils.Clamp(res.Score, 0, 100)
		head[idx].Reasons = res.Reasons
		head[idx].Tags = res.Tags
		head[idx].Risks = res.Risks
	}

	mustTotal := len(rc.MustGroups)
	for i := range head {
		if head[i].ModelScore < 0 {
			continue // 模型没有给分的候选保持确定性分
		}
		mustCov := 1.0
		if mustTotal > 0 {
			mustCov = float64(mustTotal-len(head[i].MissingMust)) / float64(mustTotal)
		}
		blended := blendLexical*float64(head[i].Score) +
			blendPrecision*head[i].Precision*100 +
			blendMustHave*mustCov*100 +
			blendModel*float64(head[i].ModelScore)
		head[i].Score = utils.Clamp(int(math.Round(blended)), 0, 100)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Candidate.FullName < ranked[j].Candidate.FullName
	})

	logger.Info("LLM重排完成", "submitted", n, "scored", len(parsed.Results))
	return ranked, nil
}

func (r *Reranker) fallbackWarnings(err error) []string {
	logger.Warn("LLM重排失败，回退到确定性排序", "error", err)
	if le, ok := err.(*LLMError); ok {
		return []string{fmt.Sprintf("%s（原因码：%s）", FallbackNotice, le.Code)}
	}
	return []string{FallbackNotice}
}
