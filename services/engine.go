package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"solution_recommender/config"
	"solution_recommender/logger"
	"solution_recommender/models"
	"solution_recommender/utils"
)

// Engine 混合推荐引擎。
// 确定性的关键词/语义排序永远可用，LLM只在可用时细化顺序和生成叙述；
// 任何阶段的失败都进入warnings，公共入口永远返回结构完整的响应。
type Engine struct {
	cfg        *config.Config
	llm        LLMClient // 可以为nil
	profiler   *Profiler
	federation *Federation
	template   *TemplateProvider
	registry   *SemanticRegistry
	extractor  *TermExtractor
	ranker     *Ranker
	reranker   *Reranker
	guardrail  *Guardrail
	catalog    *CatalogService // 可以为nil
	deep       *DeepModeOrchestrator
	progress   ProgressFunc // 可以为nil
}

// NewEngine 组装推荐引擎
func NewEngine(cfg *config.Config, llm LLMClient, providers []SearchProvider, catalog *CatalogService, fetcher DocumentFetcher, progress ProgressFunc) *Engine {
	registry := DefaultSemanticRegistry()
	extractor := NewTermExtractor(registry)
	ranker := NewRanker(registry, extractor)

	perPage := 15
	return &Engine{
		cfg:        cfg,
		llm:        llm,
		profiler:   NewProfiler(llm, cfg.Recommend.RewriteMinChars),
		federation: NewFederation(providers, perPage, cfg.Recommend.FederationWorkers),
		template:   NewTemplateProvider(registry),
		registry:   registry,
		extractor:  extractor,
		ranker:     ranker,
		reranker:   NewReranker(llm),
		guardrail:  NewGuardrail(registry),
		catalog:    catalog,
		deep: NewDeepModeOrchestrator(llm, fetcher,
			cfg.Recommend.DeepFetchTopN, cfg.Recommend.DocFetchWorkers, cfg.Recommend.DocFetchTimeout),
		progress: progress,
	}
}

// Recommend 推荐入口。任何失败都体现在warnings中，不向调用方抛错。
func (e *Engine) Recommend(ctx context.Context, req models.RecommendRequest) *models.RecommendResponse {
	mode := req.Mode
	if mode != models.ModeDeep {
		mode = models.ModeQuick
	}

	resp := &models.RecommendResponse{
		RequestID:          uuid.NewString(),
		Query:              req.Query,
		Mode:               mode,
		GeneratedAt:        time.Now(),
		RequirementExcerpt: utils.TruncateRunes(strings.TrimSpace(req.Requirement), 200),
		Warnings:           []string{},
		Sources:            []string{},
		Recommendations:    []models.RecommendationResult{},
	}

	trace := func(step string) {
		resp.TraceSteps = append(resp.TraceSteps, step)
		if e.progress != nil {
			e.progress(step)
		}
		logger.Info("推荐流程", "request_id", resp.RequestID, "step", step)
	}

	trace("开始解析需求")

	// 需求画像
	profile, warns := e.profiler.BuildProfile(ctx, req.Query, req.Requirement)
	resp.Warnings = append(resp.Warnings, warns...)
	resp.Profile = profile
	resp.SearchQuery = profile.SearchQuery

	// 查询变体：长需求或深度模式先做技术短语改写
	isLong := e.profiler.NeedsRewrite(req.Query, req.Requirement)
	variants := []string{profile.SearchQuery}
	if q := strings.TrimSpace(req.Query); q != "" && q != profile.SearchQuery {
		variants = append(variants, q)
	}
	if isLong || mode == models.ModeDeep {
		phrases, err := e.profiler.RewriteSearchPhrases(ctx, req.Query, req.Requirement)
		if err != nil {
			if isLong {
				// 硬停止：对长文档做低精度搜索比明确失败更糟糕
				trace("长需求改写失败，停止搜索")
				resp.Warnings = append(resp.Warnings,
					"无法从长需求中提炼可靠的搜索短语，已停止搜索："+err.Error())
				return resp
			}
			resp.Warnings = append(resp.Warnings, "查询改写降级："+err.Error())
		} else {
			variants = phrases
			resp.SearchQuery = strings.Join(phrases, " | ")
		}
	}
	if len(variants) > e.cfg.Recommend.MaxQueryVariants {
		variants = variants[:e.cfg.Recommend.MaxQueryVariants]
	}

	// 打分上下文
	rc := e.ranker.BuildContext(req.Query, profile)
	if strings.TrimSpace(req.Query) == "" {
		rc = e.ranker.BuildContext(resp.RequirementExcerpt, profile)
	}

	// 联邦检索
	trace(fmt.Sprintf("开始联邦检索（%d个查询变体）", len(variants)))
	fed := e.federation.Search(ctx, variants)
	resp.Warnings = append(resp.Warnings, fed.Warnings...)
	resp.Sources = append(resp.Sources, fed.Sources...)
	pool := fed.Candidates

	// 候选池不足时用模板兜底补足
	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.Recommend.MinResults
	}
	minPool := utils.Max(6, limit*2)
	if len(pool) < minPool {
		supplement := e.template.Supplement(req.Query+" "+req.Requirement, minPool-len(pool))
		if len(supplement) > 0 {
			seen := make(map[string]bool, len(pool))
			for i := range pool {
				seen[pool[i].Identity()] = true
			}
			added := 0
			for _, c := range supplement {
				if !seen[c.Identity()] {
					pool = append(pool, c)
					added++
				}
			}
			if added > 0 {
				resp.Sources = append(resp.Sources, "template")
				trace(fmt.Sprintf("候选池不足，已补充%d个模板项", added))
			}
		}
	}

	// 确定性排序
	trace(fmt.Sprintf("确定性排序（%d个候选）", len(pool)))
	ranked := e.ranker.Rank(rc, pool)

	// LLM重排（可选，失败时透明回退）
	if e.llm != nil && len(ranked) > 0 {
		trace("LLM重排")
		var rerankWarns []string
		ranked, rerankWarns = e.reranker.Rerank(ctx, rc, profile, ranked, limit)
		resp.Warnings = append(resp.Warnings, rerankWarns...)
	}

	// 语义守卫：硬性意图必须全覆盖
	hard := e.confirmedHardGroups(rc, req, profile)
	outcome := e.guardrail.Apply(rc, hard, ranked)
	resp.Warnings = append(resp.Warnings, outcome.Warnings...)
	if len(hard) > 0 && len(outcome.Kept) == 0 {
		trace("守卫过滤后无候选，返回空结果")
		return resp
	}

	// 外部结果 + 案例结果合并
	external := e.toResults(outcome.Kept)
	merged := external
	if e.catalog != nil {
		scored := e.catalog.ScoreCases(rc, nil)
		merged = mergeResults(external, e.catalog.ToResults(scored))
		if len(scored) > 0 {
			resp.Sources = append(resp.Sources, "catalog")
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].MatchScore != merged[j].MatchScore {
			return merged[i].MatchScore > merged[j].MatchScore
		}
		return merged[i].FullName < merged[j].FullName
	})

	// 数量约束：池子足够时至少MinResults条，上限MaxResults条
	want := utils.Clamp(utils.Max(limit, e.cfg.Recommend.MinResults),
		e.cfg.Recommend.MinResults, e.cfg.Recommend.MaxResults)
	if len(merged) > want {
		merged = merged[:want]
	}
	resp.Recommendations = merged
	resp.Sources = utils.DeduplicateSlice(resp.Sources)

	// 深度模式：文档增强 + 叙述综述
	if mode == models.ModeDeep && len(merged) > 0 {
		trace("深度模式文档增强")
		deep := e.deep.Run(ctx, req.Query, merged, e.progress)
		resp.DeepSummary = deep.Summary
		resp.InsightPoints = deep.Insights
		resp.Warnings = append(resp.Warnings, deep.Warnings...)
	}

	resp.Citations = buildCitations(merged)
	trace(fmt.Sprintf("推荐完成（%d条结果）", len(merged)))
	return resp
}

// BuildRankContext 为独立的案例评估接口构造打分上下文
func (e *Engine) BuildRankContext(query string) *RankContext {
	return e.ranker.BuildContext(query, nil)
}

// confirmedHardGroups 返回已确认的硬性意图。
// 短查询靠静态别名匹配即可确认；超过confirm_min_chars的长文档
// 需要LLM画像佐证（画像降级时不启用硬性守卫，避免误杀）。
func (e *Engine) confirmedHardGroups(rc *RankContext, req models.RecommendRequest, profile *models.QueryProfile) []string {
	hard := make([]string, 0)
	for _, g := range rc.ActiveGroups {
		if e.registry.IsHard(g) {
			hard = append(hard, g)
		}
	}
	if len(hard) == 0 {
		return nil
	}

	combined := len([]rune(req.Query)) + len([]rune(req.Requirement))
	if combined > e.cfg.Recommend.ConfirmMinChars && (profile == nil || profile.Summary == "") {
		logger.Info("长文档硬性意图未经LLM画像确认，跳过硬性守卫", "hard", hard)
		return nil
	}
	return hard
}

// toResults 把守卫幸存者转为输出形态
func (e *Engine) toResults(kept []RankedCandidate) []models.RecommendationResult {
	now := time.Now()
	results := make([]models.RecommendationResult, 0, len(kept))
	for _, r := range kept {
		rec := models.RecommendationResult{
			Candidate:    r.Candidate,
			MatchScore:   utils.Clamp(r.Score, 0, 100),
			MatchReasons: r.Reasons,
			MatchTags:    r.Tags,
			RiskNotes:    r.Risks,
			Health:       models.BuildHealthCard(&r.Candidate, now),
		}
		if len(rec.MatchTags) == 0 && len(r.GroupsHit) > 0 {
			rec.MatchTags = r.GroupsHit
		}
		if rec.Health.MaintainLevel == "stale" {
			rec.RiskNotes = append(rec.RiskNotes, "项目长期未更新或已归档")
		}
		results = append(results, rec)
	}
	return results
}

// mergeResults 合并外部与案例结果，按(source, url/标识)去重
func mergeResults(external, catalog []models.RecommendationResult) []models.RecommendationResult {
	seen := make(map[string]bool)
	key := func(r *models.RecommendationResult) string {
		if r.URL != "" {
			return r.Source + ":" + strings.ToLower(r.URL)
		}
		return r.Identity()
	}

	merged := make([]models.RecommendationResult, 0, len(external)+len(catalog))
	for _, list := range [][]models.RecommendationResult{external, catalog} {
		for _, r := range list {
			k := key(&r)
			if seen[k] {
				continue
			}
			seen[k] = true
			merged = append(merged, r)
		}
	}
	return merged
}

// buildCitations 从排序结果重建引用条目，每次请求重建
func buildCitations(results []models.RecommendationResult) []models.Citation {
	citations := make([]models.Citation, 0, len(results))
	for i, r := range results {
		reason := ""
		if len(r.MatchReasons) > 0 {
			reason = r.MatchReasons[0]
		}
		citations = append(citations, models.Citation{
			ID:      i + 1,
			Source:  r.Source,
			Title:   r.FullName,
			URL:     r.URL,
			Snippet: utils.TruncateRunes(r.Description, 120),
			Score:   r.MatchScore,
			Reason:  reason,
		})
	}
	return citations
}
