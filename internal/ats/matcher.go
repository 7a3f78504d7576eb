package ats

import (
	"strings"
)

// DefaultFuzzyThreshold 模糊匹配的默认相似度阈值（0-100）
const DefaultFuzzyThreshold = 80

// FuzzyScorer 模糊匹配策略接口。
// PartialRatio 返回关键词与文本之间的局部相似度（0-100）。
// 该能力在构造 Matcher 时注入；未注入时第三级匹配整体跳过，
// 能力缺失是一次性的装配决策，而不是运行时探测。
type FuzzyScorer interface {
	PartialRatio(keyword, text string) int
}

// TokenSet 对一份简历的词元序列做一次性预索引：
// 集合用于精确匹配，空格拼接文本用于子串和模糊匹配。
type TokenSet struct {
	set    map[string]struct{}
	joined string
}

// NewTokenSet 由词元序列构建索引。同一份简历对多个关键词评估时只构建一次。
func NewTokenSet(tokens []string) TokenSet {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return TokenSet{
		set:    set,
		joined: strings.Join(tokens, " "),
	}
}

// Contains 判断词元是否存在（精确匹配层使用）
func (ts TokenSet) Contains(token string) bool {
	_, ok := ts.set[token]
	return ok
}

// JoinedText 返回空格拼接后的词元文本
func (ts TokenSet) JoinedText() string {
	return ts.joined
}

// Matcher 关键词匹配器：按 精确 -> 子串 -> 模糊 三级短路判定。
// 便宜且精确的检查放在昂贵且近似的检查之前。
type Matcher struct {
	fuzzy     FuzzyScorer
	threshold int
}

// MatcherOption Matcher 的配置选项函数
type MatcherOption func(*Matcher)

// WithFuzzyScorer 注入模糊匹配策略；传 nil 表示禁用第三级匹配
func WithFuzzyScorer(scorer FuzzyScorer) MatcherOption {
	return func(m *Matcher) {
		m.fuzzy = scorer
	}
}

// WithFuzzyThreshold 设置模糊匹配阈值，非法值（<=0 或 >100）回落到默认值
func WithFuzzyThreshold(threshold int) MatcherOption {
	return func(m *Matcher) {
		if threshold > 0 && threshold <= 100 {
			m.threshold = threshold
		} else {
			m.threshold = DefaultFuzzyThreshold
		}
	}
}

// NewMatcher 创建匹配器。默认不带模糊匹配能力，阈值为 80。
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{
		threshold: DefaultFuzzyThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match 判定单个关键词是否命中简历词元，三级逐级短路：
//  1. 精确：去空格小写后的关键词在词元集合中；
//  2. 子串：关键词是拼接文本的子串；
//  3. 模糊：PartialRatio(关键词, 拼接文本) >= 阈值（未注入策略时跳过）。
//
// 去空格后为空的关键词不参与任何一级判定，直接返回 false。
func (m *Matcher) Match(keyword string, ts TokenSet) bool {
	k := strings.ToLower(strings.TrimSpace(keyword))
	if k == "" {
		return false
	}

	// 1. 精确词元匹配
	if ts.Contains(k) {
		return true
	}

	// 2. 子串匹配
	if strings.Contains(ts.joined, k) {
		return true
	}

	// 3. 模糊局部匹配（可选能力）
	if m.fuzzy != nil && ts.joined != "" {
		if m.fuzzy.PartialRatio(k, ts.joined) >= m.threshold {
			return true
		}
	}

	return false
}
