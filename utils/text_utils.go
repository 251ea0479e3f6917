package utils

import (
	"strings"
)

// DeduplicateSlice 去重字符串切片，保持原有顺序
func DeduplicateSlice(input []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0)

	for _, val := range input {
		val = strings.TrimSpace(val)
		if val != "" && !seen[val] {
			result = append(result, val)
			seen[val] = true
		}
	}

	return result
}

// IsCJKRune 判断是否为中日韩统一表意文字
func IsCJKRune(r rune) bool {
	return r >= '一' && r <= '鿿'
}

// CalculateTokens 估算文本的token数量：中文字符2token，英文单词1token
func CalculateTokens(text string) int {
	chinese := 0
	for _, r := range text {
		if IsCJKRune(r) {
			chinese++
		}
	}

	english := len(strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z')
	}))

	return chinese*2 + english
}

// TruncateRunes 按字符数截断文本，超出部分加省略号
func TruncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// Min 返回两个整数中的较小值
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Max 返回两个整数中的较大值
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Clamp 把整数限制在[lo, hi]区间内
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
