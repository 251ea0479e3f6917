package services

import (
	"math"
	"sort"
	"strings"

	"solution_recommender/models"
	"solution_recommender/utils"
)

// 打分权重与上限。排序以词面和语义优先：热度永远不能压过主题相关性。
const (
	lexicalWeight  = 0.62
	semanticWeight = 0.38
	phraseBonus    = 0.08

	nameTopicWeight = 1.35
	descWeight      = 0.65

	// 语义词簇命中不足时的相似度上限
	capManyGroupsOneHit = 0.34 // ≥3簇激活但≤1命中
	capTwoGroupsOneHit  = 0.46 // ≥2簇激活但≤1命中

	// 缺失必备词簇的乘性上限
	capMissOneMust   = 0.62
	capMissTwoMust   = 0.35
	capMissThreeMust = 0.22

	maxStarBonus           = 7
	templateLowOverlap     = 0.15
	templateOverlapPenalty = 12
)

// RankedCandidate 候选及其打分明细
type RankedCandidate struct {
	Candidate   models.Candidate
	Lexical     float64 // 查询词在候选文本中的词面覆盖率
	Semantic    float64 // 查询激活的语义词簇中候选命中的比例
	Precision   float64 // 名称/topics命中加权 vs 描述命中加权
	Similarity  float64
	Score       int // 确定性兜底分 0-100
	GroupsHit   []string
	MissingMust []string
	ModelScore  int // LLM重排分，未重排时为-1
	Reasons     []string
	Tags        []string
	Risks       []string
}

// RankContext 一次请求的打分上下文，构建后只读
type RankContext struct {
	Query        string
	NormQuery    string
	Terms        []string
	ActiveGroups []string // 查询激活的语义词簇
	MustGroups   []string // 必备词簇（硬性意图 + 画像must_have映射）
}

// Ranker 确定性排序器。始终可用：既是无LLM时的兜底排序，
// 也是LLM重排时的主要修正项。
type Ranker struct {
	registry  *SemanticRegistry
	extractor *TermExtractor
}

// NewRanker 创建排序器
func NewRanker(registry *SemanticRegistry, extractor *TermExtractor) *Ranker {
	return &Ranker{registry: registry, extractor: extractor}
}

// BuildContext 从查询和画像构建打分上下文
func (r *Ranker) BuildContext(query string, profile *models.QueryProfile) *RankContext {
	text := query
	if profile != nil {
		text += " " + strings.Join(profile.Keywords, " ")
	}

	active := r.registry.GroupsIn(text)

	// 必备词簇 = 查询触发的硬性意图 + 画像must_have能映射到的词簇
	mustSet := make(map[string]bool)
	for _, g := range active {
		if r.registry.IsHard(g) {
			mustSet[g] = true
		}
	}
	if profile != nil {
		for _, m := range profile.MustHave {
			for _, g := range r.registry.GroupsIn(m) {
				mustSet[g] = true
			}
		}
	}
	must := make([]string, 0, len(mustSet))
	for _, g := range active { // 保持确定性顺序
		if mustSet[g] {
			must = append(must, g)
			delete(mustSet, g)
		}
	}
	// 画像must_have映射出的词簇即使没被查询直接触发也算必备
	for i := range r.registry.groups {
		name := r.registry.groups[i].Name
		if mustSet[name] {
			must = append(must, name)
			active = append(active, name)
		}
	}

	return &RankContext{
		Query:        query,
		NormQuery:    strings.ToLower(strings.TrimSpace(query)),
		Terms:        r.extractor.Extract(text),
		ActiveGroups: active,
		MustGroups:   must,
	}
}

// Rank 对候选池打分并降序排列。纯确定性：相同输入必然产生相同顺序。
func (r *Ranker) Rank(rc *RankContext, pool []models.Candidate) []RankedCandidate {
	ranked := make([]RankedCandidate, 0, len(pool))
	for i := range pool {
		ranked = append(ranked, r.scoreOne(rc, pool[i]))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Candidate.Stars != ranked[j].Candidate.Stars {
			return ranked[i].Candidate.Stars > ranked[j].Candidate.Stars
		}
		return ranked[i].Candidate.FullName < ranked[j].Candidate.FullName
	})
	return ranked
}

func (r *Ranker) scoreOne(rc *RankContext, c models.Candidate) RankedCandidate {
	summary := c.Summary
	if summary == "" {
		summary = NormalizeCandidateText(&c)
	}

	lexical := lexicalCoverage(rc.Terms, summary)
	hit := r.registry.GroupsIn(summary)
	semantic := groupCoverage(rc.ActiveGroups, hit)
	precision := r.precisionScore(rc.Terms, &c)

	similarity := lexical*lexicalWeight + semantic*semanticWeight
	if rc.NormQuery != "" && strings.Contains(summary, rc.NormQuery) {
		similarity += phraseBonus
	}

	// 语义命中不足时封顶
	hitCount := overlapCount(rc.ActiveGroups, hit)
	switch {
	case len(rc.ActiveGroups) >= 3 && hitCount <= 1:
		similarity = math.Min(similarity, capManyGroupsOneHit)
	case len(rc.ActiveGroups) >= 2 && hitCount <= 1:
		similarity = math.Min(similarity, capTwoGroupsOneHit)
	}

	// 缺失必备词簇的额外封顶
	missing := missingGroups(rc.MustGroups, hit)
	switch {
	case len(missing) >= 3:
		similarity = math.Min(similarity, capMissThreeMust)
	case len(missing) == 2:
		similarity = math.Min(similarity, capMissTwoMust)
	case len(missing) == 1:
		similarity = math.Min(similarity, capMissOneMust)
	}
	if similarity > 1 {
		similarity = 1
	}

	score := int(math.Round(similarity * 100))
	score += starBonus(c.Stars)
	score += int(math.Round(precision * 10))
	if c.Source == "template" && lexical < templateLowOverlap {
		score -= templateOverlapPenalty
	}

	return RankedCandidate{
		Candidate:   c,
		Lexical:     lexical,
		Semantic:    semantic,
		Precision:   precision,
		Similarity:  similarity,
		Score:       utils.Clamp(score, 0, 100),
		GroupsHit:   hit,
		MissingMust: missing,
		ModelScore:  -1,
	}
}

// lexicalCoverage 查询词在候选归一化文本中的字面命中比例
func lexicalCoverage(terms []string, summary string) float64 {
	if len(terms) == 0 {
		return 0
	}
	hits := 0
	for _, t := range terms {
		if strings.Contains(summary, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// precisionScore 名称/topics内的命中权重1.35，描述内0.65，按词数归一
func (r *Ranker) precisionScore(terms []string, c *models.Candidate) float64 {
	if len(terms) == 0 {
		return 0
	}
	nameText := strings.ToLower(c.FullName + " " + strings.Join(c.Topics, " "))
	descText := strings.ToLower(c.Description)

	var sum float64
	for _, t := range terms {
		switch {
		case strings.Contains(nameText, t):
			sum += nameTopicWeight
		case strings.Contains(descText, t):
			sum += descWeight
		}
	}
	return sum / (nameTopicWeight * float64(len(terms)))
}

// starBonus star数的对数贡献，上限很低：热度只是很小的修正项
func starBonus(stars int) int {
	if stars <= 0 {
		return 0
	}
	return utils.Min(maxStarBonus, int(math.Log10(float64(stars+1))*1.5))
}

func groupCoverage(active, hit []string) float64 {
	if len(active) == 0 {
		return 0
	}
	return float64(overlapCount(active, hit)) / float64(len(active))
}

func overlapCount(a, b []string) int {
	set := make(map[string]bool, len(b))
	for _, x := range b {
		set[x] = true
	}
	n := 0
	for _, x := range a {
		if set[x] {
			n++
		}
	}
	return n
}

func missingGroups(must, hit []string) []string {
	set := make(map[string]bool, len(hit))
	for _, x := range hit {
		set[x] = true
	}
	var missing []string
	for _, g := range must {
		if !set[g] {
			missing = append(missing, g)
		}
	}
	return missing
}
