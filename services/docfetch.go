package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"solution_recommender/config"
	"solution_recommender/logger"
	"solution_recommender/models"
	"solution_recommender/utils"
)

var (
	htmlTagRe    = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlStripRe  = regexp.MustCompile(`<[^>]+>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// 文档摘录的最大长度
const maxDocExcerpt = 4000

// HTTPDocumentFetcher 多策略文档抓取器：
// 先尝试各源的原生raw内容地址，失败后抓项目主页并转纯文本。
// 支持配置HTTP代理。
type HTTPDocumentFetcher struct {
	client *http.Client
}

// NewDocumentFetcher 创建文档抓取器
func NewDocumentFetcher(cfg *config.Config) *HTTPDocumentFetcher {
	transport := &http.Transport{}
	if cfg.Recommend.HTTPProxy != "" {
		if proxyURL, err := url.Parse(cfg.Recommend.HTTPProxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.Info("文档抓取启用代理", "proxy", cfg.Recommend.HTTPProxy)
		}
	}
	timeout := time.Duration(cfg.Recommend.DocFetchTimeout) * time.Second
	return &HTTPDocumentFetcher{
		client: &http.Client{Timeout: timeout, Transport: transport},
	}
}

// Fetch 抓取候选的README/文档摘录
func (f *HTTPDocumentFetcher) Fetch(ctx context.Context, c *models.Candidate) (*FetchedDoc, error) {
	doc := &FetchedDoc{}

	// 策略一：源原生raw内容地址
	for _, rawURL := range rawReadmeURLs(c) {
		content, err := f.get(ctx, rawURL)
		if err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("raw抓取失败 %s: %v", rawURL, err))
			continue
		}
		doc.Content = utils.TruncateRunes(content, maxDocExcerpt)
		doc.URL = rawURL
		doc.FetchSource = "raw"
		return doc, nil
	}

	// 策略二：抓项目主页HTML并转纯文本
	if c.URL != "" {
		content, err := f.get(ctx, c.URL)
		if err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("主页抓取失败: %v", err))
			return doc, fmt.Errorf("文档抓取失败: %s", c.FullName)
		}
		doc.Content = utils.TruncateRunes(htmlToText(content), maxDocExcerpt)
		doc.URL = c.URL
		doc.FetchSource = "html"
		return doc, nil
	}

	return doc, fmt.Errorf("候选没有可抓取的地址: %s", c.FullName)
}

func (f *HTTPDocumentFetcher) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "solution-recommender/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// rawReadmeURLs 各源的README原始内容地址
func rawReadmeURLs(c *models.Candidate) []string {
	switch c.Source {
	case "github":
		return []string{
			fmt.Sprintf("https://raw.githubusercontent.com/%s/HEAD/README.md", c.FullName),
			fmt.Sprintf("https://raw.githubusercontent.com/%s/HEAD/README_CN.md", c.FullName),
		}
	case "gitee":
		return []string{
			fmt.Sprintf("https://gitee.com/%s/raw/master/README.md", c.FullName),
		}
	case "gitcode":
		return []string{
			fmt.Sprintf("https://gitcode.com/%s/raw/main/README.md", c.FullName),
		}
	default:
		return nil
	}
}

// htmlToText 去掉script/style和标签，压缩空行
func htmlToText(html string) string {
	text := htmlTagRe.ReplaceAllString(html, " ")
	text = htmlStripRe.ReplaceAllString(text, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
