package ats

import (
	"math"
	"strings"
)

// MatchResult 一次评分调用的结果。
// Matched 与 Missing 恰好划分输入中非空的关键词：每个关键词以原始大小写、
// 原始输入顺序出现在且仅出现在其中一个列表里。空白关键词被静默丢弃。
type MatchResult struct {
	Score   float64  `json:"score"`   // 0-100，保留一位小数
	Matched []string `json:"matched"` // 命中的关键词（原始写法）
	Missing []string `json:"missing"` // 未命中的关键词（原始写法）
}

// ScoreKeywords 对简历文本评估一组岗位关键词，返回得分和命中/缺失划分。
// 纯函数：分词一次、建索引一次，逐个关键词匹配；
// score = round(100 * |matched| / total, 1)，total 为丢弃空白后的关键词数，
// 列表为空时 total 取 1 以避免除零（此时得分为 0.0，两个列表都为空）。
func (m *Matcher) ScoreKeywords(jobKeywords []string, resumeText string) MatchResult {
	return m.ScoreTokens(jobKeywords, Tokenize(resumeText))
}

// ScoreTokens 与 ScoreKeywords 相同，但接受已分词的简历词元。
// 重评分等已经持有词元/解析文本的调用方可以跳过重复分词。
func (m *Matcher) ScoreTokens(jobKeywords []string, resumeTokens []string) MatchResult {
	ts := NewTokenSet(resumeTokens)

	matched := make([]string, 0, len(jobKeywords))
	missing := make([]string, 0, len(jobKeywords))
	total := 0

	for _, kw := range jobKeywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		total++
		if m.Match(kw, ts) {
			matched = append(matched, kw)
		} else {
			missing = append(missing, kw)
		}
	}

	if total == 0 {
		total = 1
	}
	score := math.Round(1000.0*float64(len(matched))/float64(total)) / 10

	return MatchResult{
		Score:   score,
		Matched: matched,
		Missing: missing,
	}
}
