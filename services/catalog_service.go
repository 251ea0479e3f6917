package services

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"solution_recommender/logger"
	"solution_recommender/models"
	"solution_recommender/utils"
)

// 案例评分权重，与ScoreBreakdown的声明公式一致
const (
	caseRelevanceWeight  = 0.40
	casePopularityWeight = 0.20
	caseCostWeight       = 0.15
	caseCapabilityWeight = 0.25

	// 未请求任何能力码时的中性能力分
	neutralCapabilityScore = 35
)

// ComputeFinalScore 计算案例的加权总分并回填FinalScore。
// final = round(relevance*0.4 + popularity*0.2 + cost_bonus*0.15 + capability_match*0.25)
func ComputeFinalScore(b *models.ScoreBreakdown) int {
	sum := float64(b.Relevance)*caseRelevanceWeight +
		float64(b.Popularity)*casePopularityWeight +
		float64(b.CostBonus)*caseCostWeight +
		float64(b.CapabilityMatch)*caseCapabilityWeight
	b.FinalScore = utils.Clamp(int(math.Round(sum)), 0, 100)
	return b.FinalScore
}

// CatalogService 内部精选案例的决策评分器。
// 案例列表由存储协作方维护，本服务只读；评分结果作为审计记录持久化。
type CatalogService struct {
	store  CatalogStore
	ranker *Ranker

	mu           sync.RWMutex
	cases        []models.CatalogCase
	capabilities []models.Capability
	refreshedAt  time.Time
}

// NewCatalogService 创建案例评分器
func NewCatalogService(store CatalogStore, ranker *Ranker) *CatalogService {
	return &CatalogService{store: store, ranker: ranker}
}

// Refresh 重新加载案例缓存，由调度器定期调用
func (s *CatalogService) Refresh() error {
	cases, err := s.store.ListActiveCases()
	if err != nil {
		return err
	}
	caps, err := s.store.ListCapabilities()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cases = cases
	s.capabilities = caps
	s.refreshedAt = time.Now()
	s.mu.Unlock()

	logger.Info("案例缓存刷新完成", "cases", len(cases), "capabilities", len(caps))
	return nil
}

// Cases 返回缓存的案例快照，缓存为空时直接查存储
func (s *CatalogService) Cases() []models.CatalogCase {
	s.mu.RLock()
	cached := s.cases
	s.mu.RUnlock()
	if cached != nil {
		return cached
	}

	cases, err := s.store.ListActiveCases()
	if err != nil {
		logger.Error("加载案例失败", "error", err)
		return nil
	}
	s.mu.Lock()
	s.cases = cases
	s.mu.Unlock()
	return cases
}

// ScoredCase 案例及其评分明细
type ScoredCase struct {
	Case      models.CatalogCase
	Breakdown models.ScoreBreakdown
}

// ScoreCases 按需求给全部案例打分，降序返回，并为每个案例写一条评估审计记录
func (s *CatalogService) ScoreCases(rc *RankContext, requestedCaps []string) []ScoredCase {
	cases := s.Cases()
	scored := make([]ScoredCase, 0, len(cases))

	for _, cc := range cases {
		breakdown := models.ScoreBreakdown{
			Relevance:       s.caseRelevance(rc, &cc),
			Popularity:      casePopularity(&cc),
			CostBonus:       caseCostBonus(&cc),
			CapabilityMatch: capabilityMatch(requestedCaps, &cc),
		}
		ComputeFinalScore(&breakdown)
		scored = append(scored, ScoredCase{Case: cc, Breakdown: breakdown})

		// 审计记录由存储协作方落库，失败不影响评分结果
		ev := &models.Evaluation{
			CaseID:      cc.ID,
			Query:       rc.Query,
			Breakdown:   breakdown,
			GeneratedAt: time.Now(),
		}
		if err := s.store.CreateEvaluation(ev); err != nil {
			logger.Error("评估记录写入失败", "case_id", cc.ID, "error", err)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Breakdown.FinalScore != scored[j].Breakdown.FinalScore {
			return scored[i].Breakdown.FinalScore > scored[j].Breakdown.FinalScore
		}
		return scored[i].Case.Name < scored[j].Case.Name
	})
	return scored
}

// caseRelevance 复用确定性排序器的相似度公式，意图守卫的封顶同样生效
func (s *CatalogService) caseRelevance(rc *RankContext, cc *models.CatalogCase) int {
	capNames := make([]string, 0, len(cc.Capabilities))
	for _, c := range cc.Capabilities {
		capNames = append(capNames, c.Code, c.Name)
	}
	pseudo := models.Candidate{
		Source:      "catalog",
		FullName:    cc.Name,
		Name:        cc.Name,
		Description: cc.Description,
	}
	pseudo.Summary = strings.ToLower(strings.Join([]string{
		cc.Name, cc.Description, cc.Tags, strings.Join(capNames, " "),
	}, " "))

	ranked := s.ranker.scoreOne(rc, pseudo)
	return utils.Clamp(int(math.Round(ranked.Similarity*100)), 0, 100)
}

// casePopularity 按产品类型给出热度基准分
func casePopularity(cc *models.CatalogCase) int {
	switch cc.ProductType {
	case models.ProductOpenSource:
		return 75
	case models.ProductCommercial:
		return 70
	default:
		return 60
	}
}

// caseCostBonus 成本加分：显式覆盖值优先，否则按产品类型/成本档位查表
func caseCostBonus(cc *models.CatalogCase) int {
	if cc.CostBonusOverride != nil {
		return utils.Clamp(*cc.CostBonusOverride, 0, 100)
	}
	switch cc.ProductType {
	case models.ProductOpenSource:
		return 95
	case models.ProductPrivateSolution:
		return 60
	case models.ProductCommercial:
		switch {
		case cc.MonthlyCost < 100:
			return 85
		case cc.MonthlyCost < 1000:
			return 70
		default:
			return 55
		}
	default:
		return 50
	}
}

// capabilityMatch 请求的能力码在案例上的覆盖比例；未请求能力时取中性值35
func capabilityMatch(requested []string, cc *models.CatalogCase) int {
	if len(requested) == 0 {
		return neutralCapabilityScore
	}
	have := make(map[string]bool, len(cc.Capabilities))
	for _, c := range cc.Capabilities {
		have[strings.ToLower(c.Code)] = true
	}
	hits := 0
	for _, code := range requested {
		if have[strings.ToLower(code)] {
			hits++
		}
	}
	return int(math.Round(float64(hits) / float64(len(requested)) * 100))
}

// ToResults 把评分后的案例转为推荐结果形态，供与外部候选合并
func (s *CatalogService) ToResults(scored []ScoredCase) []models.RecommendationResult {
	now := time.Now()
	results := make([]models.RecommendationResult, 0, len(scored))
	for _, sc := range scored {
		c := models.Candidate{
			Source:      "catalog",
			FullName:    sc.Case.Name,
			Name:        sc.Case.Name,
			URL:         sc.Case.URL,
			Description: sc.Case.Description,
		}
		results = append(results, models.RecommendationResult{
			Candidate:  c,
			MatchScore: sc.Breakdown.FinalScore,
			MatchTags:  []string{sc.Case.ProductType, sc.Case.ActionType},
			Health:     models.BuildHealthCard(&c, now),
		})
	}
	return results
}
