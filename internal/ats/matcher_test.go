package ats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubFuzzyScorer 测试用的可控模糊匹配策略
type stubFuzzyScorer struct {
	ratio int
	calls int
}

func (s *stubFuzzyScorer) PartialRatio(keyword, text string) int {
	s.calls++
	return s.ratio
}

// TestMatcherExactTier 验证第一级精确词元匹配
func TestMatcherExactTier(t *testing.T) {
	// 1. 构造不带模糊能力的匹配器，确认精确命中不依赖第三级
	m := NewMatcher()
	ts := NewTokenSet(Tokenize("Experienced SQL developer with strong python skills"))

	assert.True(t, m.Match("sql", ts), "词元精确存在时必须命中，即使模糊匹配被禁用")
	assert.True(t, m.Match("Python", ts), "关键词匹配前应统一小写")
	assert.True(t, m.Match("  SQL  ", ts), "关键词应先去除首尾空白")
	assert.False(t, m.Match("kubernetes", ts), "不存在的关键词不应命中")
}

// TestMatcherSubstringTier 验证第二级子串匹配
func TestMatcherSubstringTier(t *testing.T) {
	m := NewMatcher()
	// "javascript" 是词元，"java" 不是独立词元
	ts := NewTokenSet(Tokenize("Senior javascript engineer"))

	// 1. "java" 不在词元集合中，但它是拼接文本 "senior javascript engineer" 的子串
	assert.False(t, ts.Contains("java"), "前置条件：java 不应是独立词元")
	assert.True(t, m.Match("java", ts), "java 应通过子串层命中 javascript")
}

// TestMatcherFuzzyTier 验证第三级模糊匹配及其短路行为
func TestMatcherFuzzyTier(t *testing.T) {
	// 1. 未注入策略时第三级整体跳过
	plain := NewMatcher()
	ts := NewTokenSet(Tokenize("experienced python developer"))
	assert.False(t, plain.Match("pythn", ts), "无模糊能力时近似关键词不应命中")

	// 2. 注入返回高分的策略后命中
	high := &stubFuzzyScorer{ratio: 95}
	withFuzzy := NewMatcher(WithFuzzyScorer(high))
	assert.True(t, withFuzzy.Match("pythn", ts), "相似度高于阈值时应命中")
	assert.Equal(t, 1, high.calls, "模糊策略应只被调用一次")

	// 3. 阈值是闭区间下界：恰好等于阈值即命中
	exact := &stubFuzzyScorer{ratio: DefaultFuzzyThreshold}
	assert.True(t, NewMatcher(WithFuzzyScorer(exact)).Match("pythn", ts), "相似度等于阈值时应命中")

	// 4. 低于阈值不命中
	low := &stubFuzzyScorer{ratio: DefaultFuzzyThreshold - 1}
	assert.False(t, NewMatcher(WithFuzzyScorer(low)).Match("pythn", ts), "相似度低于阈值时不应命中")

	// 5. 自定义阈值生效
	custom := NewMatcher(WithFuzzyScorer(&stubFuzzyScorer{ratio: 60}), WithFuzzyThreshold(50))
	assert.True(t, custom.Match("pythn", ts), "自定义阈值 50 下相似度 60 应命中")
}

// TestMatcherTierShortCircuit 验证前两级命中时不会触发模糊计算
func TestMatcherTierShortCircuit(t *testing.T) {
	scorer := &stubFuzzyScorer{ratio: 100}
	m := NewMatcher(WithFuzzyScorer(scorer))
	ts := NewTokenSet(Tokenize("golang javascript"))

	// 1. 精确命中短路
	assert.True(t, m.Match("golang", ts))
	assert.Zero(t, scorer.calls, "精确命中后不应调用模糊策略")

	// 2. 子串命中短路
	assert.True(t, m.Match("java", ts))
	assert.Zero(t, scorer.calls, "子串命中后不应调用模糊策略")
}

// TestMatcherBlankKeyword 验证空白关键词不参与任何一级判定
func TestMatcherBlankKeyword(t *testing.T) {
	scorer := &stubFuzzyScorer{ratio: 100}
	m := NewMatcher(WithFuzzyScorer(scorer))
	ts := NewTokenSet(Tokenize("anything at all"))

	assert.False(t, m.Match("", ts), "空关键词不应命中")
	assert.False(t, m.Match("   ", ts), "纯空白关键词不应命中")
	assert.Zero(t, scorer.calls, "空白关键词不应触达模糊层")
}

// TestMatcherEmptyResume 验证空简历文本下的行为
func TestMatcherEmptyResume(t *testing.T) {
	scorer := &stubFuzzyScorer{ratio: 100}
	m := NewMatcher(WithFuzzyScorer(scorer))
	ts := NewTokenSet(nil)

	assert.False(t, m.Match("python", ts), "空简历不应命中任何关键词")
	assert.Zero(t, scorer.calls, "拼接文本为空时不应调用模糊策略")
}

// TestFuzzyWuzzyScorer 验证默认模糊策略的真实判定
func TestFuzzyWuzzyScorer(t *testing.T) {
	s := NewFuzzyWuzzyScorer()

	// 1. 完全一致的串相似度为 100
	assert.Equal(t, 100, s.PartialRatio("django", "django"), "完全一致的串应得满分")

	// 2. 空输入直接返回 0
	assert.Zero(t, s.PartialRatio("", "anything"), "空关键词相似度应为 0")
	assert.Zero(t, s.PartialRatio("anything", ""), "空文本相似度应为 0")

	// 3. 近似写法穿过阈值：react.js 对 reactjs
	m := NewMatcher(WithFuzzyScorer(s))
	ts := NewTokenSet(Tokenize("Built UI with reactjs and redux"))
	assert.True(t, m.Match("react.js", ts), "react.js 应通过模糊层命中 reactjs")

	// 4. 无关关键词仍然不命中
	assert.False(t, m.Match("aws", ts), "无关关键词不应被模糊层误判命中")
}
