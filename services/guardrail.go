package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"solution_recommender/logger"
)

// 守卫放行后保底的幸存者数量
const defaultMinSurvivors = 3

// Guardrail 排序后的语义守卫。
// 查询触发硬性意图时，候选必须覆盖全部硬性词簇才能幸存；
// 宁可返回空结果加警告，也不用不相关的高热度项目顶替。
type Guardrail struct {
	registry     *SemanticRegistry
	minSurvivors int
}

// NewGuardrail 创建守卫过滤器
func NewGuardrail(registry *SemanticRegistry) *Guardrail {
	return &Guardrail{registry: registry, minSurvivors: defaultMinSurvivors}
}

// GuardrailOutcome 守卫过滤结果
type GuardrailOutcome struct {
	Kept     []RankedCandidate
	Warnings []string
	Relaxed  bool // 是否走了社区类查询的放宽路径
}

// Apply 执行守卫过滤。
// hardGroups 是已确认的硬性意图（静态别名匹配触发，长文档需LLM画像确认后由调用方传入）。
func (g *Guardrail) Apply(rc *RankContext, hardGroups []string, ranked []RankedCandidate) *GuardrailOutcome {
	out := &GuardrailOutcome{}
	if len(hardGroups) == 0 {
		out.Kept = ranked
		return out
	}

	// 必须覆盖全部硬性词簇，且整体词簇命中数达到必备词簇数的一半（向上取整）
	threshold := int(math.Ceil(float64(len(rc.MustGroups)) * 0.5))

	var kept, dropped []RankedCandidate
	for _, r := range ranked {
		hitSet := make(map[string]bool, len(r.GroupsHit))
		for _, h := range r.GroupsHit {
			hitSet[h] = true
		}
		hardOK := true
		for _, h := range hardGroups {
			if !hitSet[h] {
				hardOK = false
				break
			}
		}
		if hardOK && overlapCount(rc.ActiveGroups, r.GroupsHit) >= threshold {
			kept = append(kept, r)
		} else {
			dropped = append(dropped, r)
		}
	}

	if len(kept) == 0 {
		// 社区类查询先放宽到关键词别名匹配再宣告失败
		if containsGroup(rc.ActiveGroups, "community") {
			kept = g.relaxByAlias(rc, ranked)
			if len(kept) > 0 {
				out.Kept = kept
				out.Relaxed = true
				out.Warnings = append(out.Warnings, "核心意图未完全覆盖，已放宽为关键词匹配")
				logger.Info("守卫放宽为关键词匹配", "kept", len(kept))
				return out
			}
		}
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("没有候选覆盖核心意图：%s", strings.Join(hardGroups, "、")))
		logger.Warn("守卫过滤后无幸存者", "hard_groups", hardGroups)
		return out
	}

	// 幸存者不足时按词面分从被过滤池回填，绝不按热度回填
	if len(kept) < g.minSurvivors && len(dropped) > 0 {
		sort.SliceStable(dropped, func(i, j int) bool {
			if dropped[i].Lexical != dropped[j].Lexical {
				return dropped[i].Lexical > dropped[j].Lexical
			}
			return dropped[i].Candidate.FullName < dropped[j].Candidate.FullName
		})
		need := g.minSurvivors - len(kept)
		for i := 0; i < need && i < len(dropped); i++ {
			kept = append(kept, dropped[i])
		}
	}

	out.Kept = kept
	return out
}

// relaxByAlias 放宽条件：候选文本命中任意激活词簇的任意别名即可
func (g *Guardrail) relaxByAlias(rc *RankContext, ranked []RankedCandidate) []RankedCandidate {
	var kept []RankedCandidate
	for _, r := range ranked {
		if len(r.GroupsHit) > 0 && overlapCount(rc.ActiveGroups, r.GroupsHit) > 0 {
			kept = append(kept, r)
		}
	}
	return kept
}

func containsGroup(groups []string, name string) bool {
	for _, g := range groups {
		if g == name {
			return true
		}
	}
	return false
}
