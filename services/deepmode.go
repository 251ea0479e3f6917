package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"solution_recommender/logger"
	"solution_recommender/models"
	"solution_recommender/utils"
)

// DeepModeOrchestrator 深度模式编排器：
// 抓取头部候选的文档，调LLM产出综述和洞察点；
// LLM不可用时合成等价的规则式综述，深度模式永远不返回空叙述。
type DeepModeOrchestrator struct {
	llm          LLMClient // 可以为nil
	fetcher      DocumentFetcher
	fetchTopN    int
	fetchWorkers int
	fetchTimeout time.Duration
}

// NewDeepModeOrchestrator 创建深度模式编排器
func NewDeepModeOrchestrator(llm LLMClient, fetcher DocumentFetcher, fetchTopN, fetchWorkers, fetchTimeoutSec int) *DeepModeOrchestrator {
	if fetchTopN <= 0 {
		fetchTopN = 3
	}
	if fetchWorkers <= 0 || fetchWorkers > 4 {
		fetchWorkers = 4
	}
	if fetchTimeoutSec <= 0 {
		fetchTimeoutSec = 8
	}
	return &DeepModeOrchestrator{
		llm:          llm,
		fetcher:      fetcher,
		fetchTopN:    fetchTopN,
		fetchWorkers: fetchWorkers,
		fetchTimeout: time.Duration(fetchTimeoutSec) * time.Second,
	}
}

// DeepResult 深度模式产出
type DeepResult struct {
	Summary  string
	Insights []models.InsightPoint
	Warnings []string
}

// Run 执行深度模式：文档增强 + 叙述综述
func (d *DeepModeOrchestrator) Run(ctx context.Context, query string, results []models.RecommendationResult, progress ProgressFunc) *DeepResult {
	out := &DeepResult{}

	docs := d.fetchDocs(ctx, results, out)

	if progress != nil {
		progress("文档增强完成，开始生成综述")
	}

	if d.llm != nil {
		if summary, insights, err := d.summarizeWithLLM(ctx, query, results, docs); err == nil {
			out.Summary = summary
			out.Insights = insights
			return out
		} else {
			logger.Warn("LLM综述失败，使用规则式综述", "error", err)
			if le, ok := err.(*LLMError); ok {
				out.Warnings = append(out.Warnings, fmt.Sprintf("深度综述降级[%s]", le.Code))
			} else {
				out.Warnings = append(out.Warnings, "深度综述降级："+err.Error())
			}
		}
	}

	out.Summary, out.Insights = ruleBasedSummary(query, results)
	return out
}

// fetchDocs 并发抓取头部候选的文档，单个超时按缺失处理而不是错误
func (d *DeepModeOrchestrator) fetchDocs(ctx context.Context, results []models.RecommendationResult, out *DeepResult) map[string]string {
	n := utils.Min(d.fetchTopN, len(results))
	docs := make(map[string]string, n)
	if n == 0 || d.fetcher == nil {
		return docs
	}

	slotDocs := make([]*FetchedDoc, n)
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, d.fetchWorkers)

	for idx := 0; idx < n; idx++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			fetchCtx, cancel := context.WithTimeout(ctx, d.fetchTimeout)
			defer cancel()

			doc, err := d.fetcher.Fetch(fetchCtx, &results[i].Candidate)
			if err != nil {
				// 超时或失败的文档视为缺失，不中断其他抓取
				logger.Debug("文档抓取失败", "candidate", results[i].FullName, "error", err)
				return
			}
			slotDocs[i] = doc
		}(idx)
	}
	wg.Wait()

	for i, doc := range slotDocs {
		if doc != nil && doc.Content != "" {
			docs[results[i].Identity()] = doc.Content
		}
	}
	logger.Info("文档增强完成", "requested", n, "fetched", len(docs))
	return docs
}

func (d *DeepModeOrchestrator) summarizeWithLLM(ctx context.Context, query string, results []models.RecommendationResult, docs map[string]string) (string, []models.InsightPoint, error) {
	text, err := d.llm.Chat(ctx, []ChatMessage{
		{Role: "user", Content: buildDeepSummaryPrompt(query, results, docs)},
	}, 0.3, 1536)
	if err != nil {
		return "", nil, err
	}

	jsonText, err := ExtractJSON(text)
	if err != nil {
		return "", nil, NewLLMError(LLMCodeInvalidResponse, "%v", err)
	}

	var parsed struct {
		Summary  string `json:"summary"`
		Insights []struct {
			Rank      int    `json:"rank"`
			Candidate string `json:"candidate"`
			Point     string `json:"point"`
		} `json:"insights"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return "", nil, NewLLMError(LLMCodeInvalidResponse, "综述JSON反序列化失败: %v", err)
	}
	if parsed.Summary == "" {
		return "", nil, NewLLMError(LLMCodeInvalidResponse, "综述为空")
	}

	insights := make([]models.InsightPoint, 0, len(parsed.Insights))
	for _, p := range parsed.Insights {
		insights = append(insights, models.InsightPoint{Rank: p.Rank, Candidate: p.Candidate, Point: p.Point})
	}
	return parsed.Summary, insights, nil
}

// ruleBasedSummary 从排序数据合成规则式综述，保证深度模式有叙述可用
func ruleBasedSummary(query string, results []models.RecommendationResult) (string, []models.InsightPoint) {
	if len(results) == 0 {
		return fmt.Sprintf("针对需求\"%s\"未找到满足核心意图的候选方案。", query), nil
	}

	top := results[0]
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("针对需求\"%s\"共筛选出%d个候选方案，首选 %s（匹配度%d）。",
		query, len(results), top.FullName, top.MatchScore))
	if top.Description != "" {
		sb.WriteString(fmt.Sprintf("该项目：%s。", utils.TruncateRunes(top.Description, 80)))
	}

	n := utils.Min(3, len(results))
	insights := make([]models.InsightPoint, 0, n)
	for i := 0; i < n; i++ {
		r := results[i]
		point := fmt.Sprintf("匹配度%d", r.MatchScore)
		if len(r.MatchReasons) > 0 {
			point = r.MatchReasons[0]
		} else if len(r.MatchTags) > 0 {
			point = "覆盖能力：" + strings.Join(r.MatchTags, "、")
		}
		insights = append(insights, models.InsightPoint{
			Rank:      i + 1,
			Candidate: r.FullName,
			Point:     point,
		})
	}
	return sb.String(), insights
}
