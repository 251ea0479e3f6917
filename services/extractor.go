package services

import (
	"regexp"
	"strings"

	"solution_recommender/utils"
)

var (
	asciiTokenRe  = regexp.MustCompile(`[a-z][a-z0-9_\-.]+`)
	placeholderRe = regexp.MustCompile(`^(keyword|关键词)\d+$`)
	pureNumberRe  = regexp.MustCompile(`^\d+$`)
)

// 提取词的上限，超出部分按出现顺序丢弃
const maxExtractTerms = 32

// 中英文通用停用词，纯噪声词不参与打分
var defaultStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "into": true, "are": true, "can": true,
	"use": true, "using": true, "used": true, "need": true, "want": true,
	"based": true, "support": true, "system": true, "platform": true,
	"project": true, "tool": true, "app": true, "application": true,
	"我们": true, "需要": true, "使用": true, "一个": true, "基于": true,
	"系统": true, "平台": true, "支持": true, "实现": true, "功能": true,
	"可以": true, "进行": true, "相关": true, "或者": true, "以及": true,
}

// TermExtractor 中英混合文本的关键词提取器。
// 纯函数式：相同输入必然产生相同输出，无副作用，画像和排序阶段共用同一实例。
type TermExtractor struct {
	registry  *SemanticRegistry
	stopWords map[string]bool
}

// NewTermExtractor 创建提取器，词簇注册表用于同义词扩展
func NewTermExtractor(registry *SemanticRegistry) *TermExtractor {
	return &TermExtractor{registry: registry, stopWords: defaultStopWords}
}

// Extract 把任意UTF-8文本切分为有序去重的小写词表。
// ASCII部分取标识符风格的token，中文部分取连续汉字串并展开2-3字n-gram，
// 命中词簇别名的词会追加该词簇的全部别名。
func (e *TermExtractor) Extract(text string) []string {
	lower := strings.ToLower(text)

	var terms []string

	// ASCII token
	for _, tok := range asciiTokenRe.FindAllString(lower, -1) {
		if e.isNoise(tok) {
			continue
		}
		terms = append(terms, tok)
	}

	// 连续汉字串 + n-gram 展开：长词组也能命中候选侧更短的token
	for _, run := range cjkRuns(lower) {
		if e.isNoise(run) {
			continue
		}
		terms = append(terms, run)
		terms = append(terms, cjkNGrams(run)...)
	}

	// 同义词扩展：命中词簇别名的词追加整簇别名
	expanded := make([]string, 0, len(terms))
	for _, t := range terms {
		expanded = append(expanded, t)
		if group := e.registry.GroupOfAlias(t); group != "" {
			for _, alias := range e.registry.AliasesOf(group) {
				expanded = append(expanded, strings.ToLower(alias))
			}
		}
	}

	deduped := utils.DeduplicateSlice(expanded)
	if len(deduped) > maxExtractTerms {
		deduped = deduped[:maxExtractTerms]
	}
	return deduped
}

// isNoise 过滤纯数字和占位符模式（keyword123 / 关键词12）
func (e *TermExtractor) isNoise(term string) bool {
	if e.stopWords[term] {
		return true
	}
	if pureNumberRe.MatchString(term) {
		return true
	}
	return placeholderRe.MatchString(term)
}

// cjkRuns 提取文本中≥2个连续汉字的串
func cjkRuns(text string) []string {
	var runs []string
	var cur []rune
	flush := func() {
		if len(cur) >= 2 {
			runs = append(runs, string(cur))
		}
		cur = cur[:0]
	}
	for _, r := range text {
		if utils.IsCJKRune(r) {
			cur = append(cur, r)
		} else {
			flush()
		}
	}
	flush()
	return runs
}

// cjkNGrams 对≥3字的汉字串生成2字和3字滑窗n-gram
func cjkNGrams(run string) []string {
	runes := []rune(run)
	if len(runes) < 3 {
		return nil
	}
	var grams []string
	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+n]))
		}
	}
	return grams
}
