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

// GitHubProvider GitHub仓库搜索客户端
type GitHubProvider struct {
	baseURL     string
	token       string
	maxQueryLen int
	client      *http.Client
}

// githubSearchResponse GitHub /search/repositories 响应
type githubSearchResponse struct {
	TotalCount int  `json:"total_count"`
	Incomplete bool `json:"incomplete_results"`
	Items      []struct {
		FullName        string   `json:"full_name"`
		Name            string   `json:"name"`
		HTMLURL         string   `json:"html_url"`
		Description     string   `json:"description"`
		Language        string   `json:"language"`
		Topics          []string `json:"topics"`
		StargazersCount int      `json:"stargazers_count"`
		ForksCount      int      `json:"forks_count"`
		OpenIssuesCount int      `json:"open_issues_count"`
		Archived        bool     `json:"archived"`
		PushedAt        string   `json:"pushed_at"`
		License         *struct {
			SpdxID string `json:"spdx_id"`
		} `json:"license"`
	} `json:"items"`
}

// NewGitHubProvider 创建GitHub搜索源
func NewGitHubProvider(pc config.ProviderConfig) *GitHubProvider {
	baseURL := pc.BaseURL
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	timeout := time.Duration(pc.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GitHubProvider{
		baseURL:     baseURL,
		token:       pc.Token,
		maxQueryLen: pc.MaxQueryLen,
		client:      &http.Client{Timeout: timeout},
	}
}

func (p *GitHubProvider) Name() string { return "github" }

func (p *GitHubProvider) MaxQueryLen() int { return p.maxQueryLen }

// Search 调用GitHub搜索API，按star数降序
func (p *GitHubProvider) Search(ctx context.Context, query string, perPage, page int) ([]models.Candidate, error) {
	endpoint := fmt.Sprintf("%s/search/repositories?q=%s&sort=stars&order=desc&per_page=%d&page=%d",
		p.baseURL, url.QueryEscape(query), perPage, page)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: err.Error()}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
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

	var sr githubSearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Message: "解析响应失败: " + err.Error()}
	}

	candidates := make([]models.Candidate, 0, len(sr.Items))
	for _, item := range sr.Items {
		c := models.Candidate{
			Source:      p.Name(),
			FullName:    item.FullName,
			Name:        item.Name,
			URL:         item.HTMLURL,
			Description: item.Description,
			Language:    item.Language,
			Topics:      item.Topics,
			Stars:       item.StargazersCount,
			Forks:       item.ForksCount,
			OpenIssues:  item.OpenIssuesCount,
			Archived:    item.Archived,
		}
		if item.License != nil {
			c.License = item.License.SpdxID
		}
		if t, err := time.Parse(time.RFC3339, item.PushedAt); err == nil {
			c.PushedAt = t
		}
		candidates = append(candidates, c)
	}

	logger.Debug("GitHub搜索完成", "query", query, "total", sr.TotalCount, "returned", len(candidates))
	return candidates, nil
}
