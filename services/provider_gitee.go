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

// GiteeProvider Gitee仓库搜索客户端，作为主源之外的镜像源
type GiteeProvider struct {
	baseURL     string
	token       string
	maxQueryLen int
	client      *http.Client
}

// giteeRepo Gitee /api/v5/search/repositories 返回的是扁平数组
type giteeRepo struct {
	FullName        string `json:"full_name"`
	Path            string `json:"path"`
	HumanName       string `json:"human_name"`
	HTMLURL         string `json:"html_url"`
	Description     string `json:"description"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	OpenIssuesCount int    `json:"open_issues_count"`
	License         string `json:"license"`
	PushedAt        string `json:"pushed_at"`
}

// NewGiteeProvider 创建Gitee搜索源
func NewGiteeProvider(pc config.ProviderConfig) *GiteeProvider {
	baseURL := pc.BaseURL
	if baseURL == "" {
		baseURL = "https://gitee.com/api/v5"
	}
	timeout := time.Duration(pc.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GiteeProvider{
		baseURL:     baseURL,
		token:       pc.Token,
		maxQueryLen: pc.MaxQueryLen,
		client:      &http.Client{Timeout: timeout},
	}
}

func (p *GiteeProvider) Name() string { return "gitee" }

func (p *GiteeProvider) MaxQueryLen() int { return p.maxQueryLen }

// Search 调用Gitee搜索API
func (p *GiteeProvider) Search(ctx context.Context, query string, perPage, page int) ([]models.Candidate, error) {
	endpoint := fmt.Sprintf("%s/search/repositories?q=%s&sort=stars_count&order=desc&per_page=%d&page=%d",
		p.baseURL, url.QueryEscape(query), perPage, page)
	if p.token != "" {
		endpoint += "&access_token=" + url.QueryEscape(p.token)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

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

	var repos []giteeRepo
	if err := json.Unmarshal(body, &repos); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: "解析响应失败: " + err.Error()}
	}

	candidates := make([]models.Candidate, 0, len(repos))
	for _, r := range repos {
		c := models.Candidate{
			Source:      p.Name(),
			FullName:    r.FullName,
			Name:        r.Path,
			URL:         r.HTMLURL,
			Description: r.Description,
			Language:    r.Language,
			Stars:       r.StargazersCount,
			Forks:       r.ForksCount,
			OpenIssues:  r.OpenIssuesCount,
			License:     r.License,
		}
		if c.Name == "" {
			c.Name = r.HumanName
		}
		if t, err := time.Parse(time.RFC3339, r.PushedAt); err == nil {
			c.PushedAt = t
		}
		candidates = append(candidates, c)
	}

	logger.Debug("Gitee搜索完成", "query", query, "returned", len(candidates))
	return candidates, nil
}
