package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"solution_recommender/config"
	"solution_recommender/logger"
	"solution_recommender/models"
)

// GitCodeProvider GitCode仓库搜索客户端，接口形态与Gitee接近
type GitCodeProvider struct {
	baseURL     string
	token       string
	maxQueryLen int
	client      *http.Client
}

type gitcodeRepo struct {
	PathWithNamespace string `json:"path_with_namespace"`
	Name              string `json:"name"`
	WebURL            string `json:"web_url"`
	Description       string `json:"description"`
	Language          string `json:"language"`
	StarCount         int    `json:"star_count"`
	ForksCount        int    `json:"forks_count"`
	OpenIssuesCount   int    `json:"open_issues_count"`
	LastActivityAt    string `json:"last_activity_at"`
}

// NewGitCodeProvider 创建GitCode搜索源
func NewGitCodeProvider(pc config.ProviderConfig) *GitCodeProvider {
	baseURL := pc.BaseURL
	if baseURL == "" {
		baseURL = "https://gitcode.com/api/v5"
	}
	timeout := time.Duration(pc.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GitCodeProvider{
		baseURL:     baseURL,
		token:       pc.Token,
		maxQueryLen: pc.MaxQueryLen,
		client:      &http.Client{Timeout: timeout},
	}
}

func (p *GitCodeProvider) Name() string { return "gitcode" }

func (p *GitCodeProvider) MaxQueryLen() int { return p.maxQueryLen }

// Search 调用GitCode搜索API
func (p *GitCodeProvider) Search(ctx context.Context, query string, perPage, page int) ([]models.Candidate, error) {
	endpoint := fmt.Sprintf("%s/search/repositories?q=%s&per_page=%d&page=%d",
		p.baseURL, url.QueryEscape(query), perPage, page)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: preview(string(body), 200)}
	}

	var repos []gitcodeRepo
	if err := json.Unmarshal(body, &repos); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: "解析响应失败: " + err.Error()}
	}

	candidates := make([]models.Candidate, 0, len(repos))
	for _, r := range repos {
		c := models.Candidate{
			Source:      p.Name(),
			FullName:    r.PathWithNamespace,
			Name:        r.Name,
			URL:         r.WebURL,
			Description: r.Description,
			Language:    r.Language,
			Stars:       r.StarCount,
			Forks:       r.ForksCount,
			OpenIssues:  r.OpenIssuesCount,
		}
		if t, err := time.Parse(time.RFC3339, r.LastActivityAt); err == nil {
			c.PushedAt = t
		}
		candidates = append(candidates, c)
	}

	logger.Debug("GitCode搜索完成", "query", query, "returned", len(candidates))
	return candidates, nil
}
