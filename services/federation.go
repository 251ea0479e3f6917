package services

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"solution_recommender/logger"
	"solution_recommender/models"
	"solution_recommender/utils"
)

// federationPoolCap 联邦检索worker数上限
const federationPoolCap = 12

// Federation 多源并发检索。每个(查询变体, 搜索源)组合是一个任务，
// 结果写入各自的槽位，全部任务结束后统一合并，任务之间没有共享可变状态。
type Federation struct {
	providers []SearchProvider
	perPage   int
	workers   int
}

// NewFederation 创建联邦检索器
func NewFederation(providers []SearchProvider, perPage, workers int) *Federation {
	if perPage <= 0 {
		perPage = 15
	}
	if workers <= 0 || workers > federationPoolCap {
		workers = federationPoolCap
	}
	return &Federation{providers: providers, perPage: perPage, workers: workers}
}

// FederationResult 联邦检索汇总结果
type FederationResult struct {
	Candidates []models.Candidate
	Warnings   []string
	Sources    []string
}

// Search 并发执行所有(变体, 源)任务。单源失败只记一次警告，不中断其他任务。
func (f *Federation) Search(ctx context.Context, variants []string) *FederationResult {
	type task struct {
		provider SearchProvider
		query    string
	}

	var tasks []task
	for _, v := range variants {
		for _, p := range f.providers {
			q := TrimQueryToBudget(v, p.MaxQueryLen())
			if q == "" {
				continue
			}
			tasks = append(tasks, task{provider: p, query: q})
		}
	}

	result := &FederationResult{}
	if len(tasks) == 0 {
		return result
	}

	workers := utils.Min(f.workers, len(tasks))
	logger.Info("开始联邦检索", "tasks", len(tasks), "workers", workers)

	// 每个任务写自己的槽位，join后合并
	slotCandidates := make([][]models.Candidate, len(tasks))
	slotErrs := make([]error, len(tasks))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)
	started := time.Now()

	for idx, t := range tasks {
		wg.Add(1)
		go func(i int, t task) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			items, err := t.provider.Search(ctx, t.query, f.perPage, 1)
			if err != nil {
				slotErrs[i] = err
				return
			}
			slotCandidates[i] = items
		}(idx, t)
	}
	wg.Wait()

	logger.Info("联邦检索完成", "duration_ms", time.Since(started).Milliseconds())

	// 合并：按标识去重（跨源、跨变体）；同源失败只记一次警告
	seen := make(map[string]bool)
	warned := make(map[string]bool)
	sources := make(map[string]bool)
	for i := range tasks {
		if err := slotErrs[i]; err != nil {
			name := tasks[i].provider.Name()
			if !warned[name] {
				warned[name] = true
				result.Warnings = append(result.Warnings, err.Error())
				logger.Warn("搜索源任务失败", "provider", name, "error", err)
			}
			continue
		}
		for _, c := range slotCandidates[i] {
			id := c.Identity()
			if seen[id] {
				continue
			}
			seen[id] = true
			if c.Summary == "" {
				c.Summary = NormalizeCandidateText(&c)
			}
			result.Candidates = append(result.Candidates, c)
			sources[c.Source] = true
		}
	}
	for s := range sources {
		result.Sources = append(result.Sources, s)
	}

	logger.Info("候选池合并完成", "candidates", len(result.Candidates), "warnings", len(result.Warnings))
	return result
}

// TrimQueryToBudget 把查询串裁剪到编码后长度预算内。
// 优先从尾部整词丢弃低价值词，避免从token中间截断；单个超长token按字符截断。
func TrimQueryToBudget(query string, maxEncodedLen int) string {
	query = strings.TrimSpace(query)
	if maxEncodedLen <= 0 || len(url.QueryEscape(query)) <= maxEncodedLen {
		return query
	}

	terms := strings.Fields(query)
	for len(terms) > 1 {
		terms = terms[:len(terms)-1]
		candidate := strings.Join(terms, " ")
		if len(url.QueryEscape(candidate)) <= maxEncodedLen {
			return candidate
		}
	}

	// 只剩单个token仍超预算，按字符截断
	runes := []rune(terms[0])
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		if len(url.QueryEscape(string(runes))) <= maxEncodedLen {
			return string(runes)
		}
	}
	return ""
}

// NormalizeCandidateText 生成候选的归一化打分文本
func NormalizeCandidateText(c *models.Candidate) string {
	parts := []string{c.FullName, c.Name, c.Description, strings.Join(c.Topics, " "), c.Language}
	return strings.ToLower(strings.Join(parts, " "))
}
