package services

import (
	"context"
	"fmt"
	"sync"

	"solution_recommender/models"
)

// fakeLLM 固定返回预设文本或错误的测试客户端
type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (f *fakeLLM) Chat(ctx context.Context, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// fakeProvider 固定返回候选列表或错误的测试搜索源
type fakeProvider struct {
	name    string
	items   []models.Candidate
	err     error
	mu      sync.Mutex
	queries []string
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) MaxQueryLen() int { return 256 }

func (f *fakeProvider) Search(ctx context.Context, query string, perPage, page int) ([]models.Candidate, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

// fakeStore 内存版案例存储，记录写入的评估
type fakeStore struct {
	cases       []models.CatalogCase
	caps        []models.Capability
	evaluations []models.Evaluation
	listErr     error
}

func (s *fakeStore) ListActiveCases() ([]models.CatalogCase, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.cases, nil
}

func (s *fakeStore) ListCapabilities() ([]models.Capability, error) {
	return s.caps, nil
}

func (s *fakeStore) CreateEvaluation(ev *models.Evaluation) error {
	ev.ID = int64(len(s.evaluations) + 1)
	s.evaluations = append(s.evaluations, *ev)
	return nil
}

// mkCandidate 构造带归一化文本的测试候选
func mkCandidate(source, fullName, desc string, stars int, topics ...string) models.Candidate {
	c := models.Candidate{
		Source:      source,
		FullName:    fullName,
		Name:        fullName,
		URL:         fmt.Sprintf("https://example.com/%s", fullName),
		Description: desc,
		Stars:       stars,
		Topics:      topics,
	}
	c.Summary = NormalizeCandidateText(&c)
	return c
}
