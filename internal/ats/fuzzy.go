package ats

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// FuzzyWuzzyScorer 基于 go-fuzzywuzzy 的默认模糊匹配实现，
// PartialRatio 语义与引擎最初使用的 rapidfuzz partial_ratio 一致：
// 在较长文本上滑动对齐较短串，返回最优局部相似度（0-100）。
type FuzzyWuzzyScorer struct{}

// 确保 FuzzyWuzzyScorer 实现了 FuzzyScorer 接口
var _ FuzzyScorer = (*FuzzyWuzzyScorer)(nil)

// NewFuzzyWuzzyScorer 创建默认的模糊匹配策略
func NewFuzzyWuzzyScorer() *FuzzyWuzzyScorer {
	return &FuzzyWuzzyScorer{}
}

// PartialRatio 计算关键词与文本的局部相似度
func (s *FuzzyWuzzyScorer) PartialRatio(keyword, text string) int {
	if keyword == "" || text == "" {
		return 0
	}
	return fuzzy.PartialRatio(keyword, text)
}
