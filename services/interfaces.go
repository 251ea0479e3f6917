package services

import (
	"context"

	"solution_recommender/models"
)

// SearchProvider 外部搜索源。联邦检索遍历的是类型化的实例列表。
type SearchProvider interface {
	// 搜索源名，同时用作候选的来源标识
	Name() string

	// 按查询串搜索仓库，失败时返回 *ProviderError
	Search(ctx context.Context, query string, perPage, page int) ([]models.Candidate, error)

	// 该源接受的编码后查询串长度预算
	MaxQueryLen() int
}

// FetchedDoc 文档抓取结果
type FetchedDoc struct {
	Content     string
	URL         string
	FetchSource string // raw / html
	Warnings    []string
}

// DocumentFetcher 深度模式的README/文档抓取器
type DocumentFetcher interface {
	Fetch(ctx context.Context, c *models.Candidate) (*FetchedDoc, error)
}

// CatalogStore 内部案例库的存储协作方，持久化由外部负责
type CatalogStore interface {
	ListActiveCases() ([]models.CatalogCase, error)
	ListCapabilities() ([]models.Capability, error)
	CreateEvaluation(ev *models.Evaluation) error
}

// ProgressFunc 进度回调，只用于UI流式展示，不参与控制流
type ProgressFunc func(step string)
