package ats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScoreKeywordsEndToEnd 验证完整的评分场景
func TestScoreKeywordsEndToEnd(t *testing.T) {
	keywords := []string{"Python", "Django", "AWS"}
	resumeText := "Experienced Python developer. Built REST APIs with Django."

	// 1. 不带模糊能力评分
	plain := NewMatcher().ScoreKeywords(keywords, resumeText)
	assert.Equal(t, 66.7, plain.Score, "得分应为 66.7")
	assert.Equal(t, []string{"Python", "Django"}, plain.Matched, "命中列表应保留原始大小写和顺序")
	assert.Equal(t, []string{"AWS"}, plain.Missing, "缺失列表应只含 AWS")

	// 2. 带真实模糊能力时结果不变（AWS 的相似度不足以过阈值）
	withFuzzy := NewMatcher(WithFuzzyScorer(NewFuzzyWuzzyScorer())).ScoreKeywords(keywords, resumeText)
	assert.Equal(t, plain, withFuzzy, "该场景下是否启用模糊匹配不应影响结果")
}

// TestScoreKeywordsPartition 验证命中与缺失恰好划分非空关键词
func TestScoreKeywordsPartition(t *testing.T) {
	m := NewMatcher()
	testCases := []struct {
		name     string
		keywords []string
		text     string
	}{
		{"全部命中", []string{"go", "redis"}, "go and redis services"},
		{"全部缺失", []string{"scala", "spark"}, "plain web development"},
		{"部分命中", []string{"Python", "Rust", "SQL"}, "python and sql daily"},
		{"含空白关键词", []string{"", "Python", "  ", "SQL"}, "python only"},
		{"空简历", []string{"a", "b"}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := m.ScoreKeywords(tc.keywords, tc.text)

			// 1. 统计非空关键词
			nonEmpty := 0
			for _, kw := range tc.keywords {
				if strings.TrimSpace(kw) != "" {
					nonEmpty++
				}
			}

			// 2. 两个列表合起来等于非空关键词集合，且互不相交
			assert.Equal(t, nonEmpty, len(result.Matched)+len(result.Missing), "命中+缺失应覆盖全部非空关键词")
			seen := make(map[string]bool)
			for _, kw := range result.Matched {
				seen[kw] = true
			}
			for _, kw := range result.Missing {
				assert.False(t, seen[kw], "关键词 %q 不应同时出现在两个列表", kw)
			}

			// 3. 得分始终在 [0, 100] 区间
			assert.GreaterOrEqual(t, result.Score, 0.0, "得分不应为负")
			assert.LessOrEqual(t, result.Score, 100.0, "得分不应超过 100")
		})
	}
}

// TestScoreKeywordsBlankDropped 验证空白关键词被静默丢弃且不参与分母
func TestScoreKeywordsBlankDropped(t *testing.T) {
	m := NewMatcher()
	result := m.ScoreKeywords([]string{"", "Python", "   "}, "python developer")

	// 只有 Python 参与评估：1/1 = 100.0
	assert.Equal(t, 100.0, result.Score, "空白关键词不应计入分母")
	assert.Equal(t, []string{"Python"}, result.Matched)
	assert.Empty(t, result.Missing, "空白关键词不应出现在缺失列表")
}

// TestScoreKeywordsDegenerate 验证空关键词列表的退化场景
func TestScoreKeywordsDegenerate(t *testing.T) {
	m := NewMatcher()

	// 1. 空列表
	empty := m.ScoreKeywords(nil, "any resume text")
	assert.Equal(t, 0.0, empty.Score, "空关键词列表得分应为 0.0")
	assert.Empty(t, empty.Matched)
	assert.Empty(t, empty.Missing)

	// 2. 全空白列表与空列表等价
	blank := m.ScoreKeywords([]string{"", "  ", "\t"}, "any resume text")
	assert.Equal(t, 0.0, blank.Score, "全空白关键词列表得分应为 0.0")
	assert.Empty(t, blank.Matched)
	assert.Empty(t, blank.Missing)
}

// TestScoreKeywordsEmptyResume 验证空简历文本：全部缺失、得分为 0
func TestScoreKeywordsEmptyResume(t *testing.T) {
	m := NewMatcher(WithFuzzyScorer(NewFuzzyWuzzyScorer()))
	keywords := []string{"Python", "Django", "AWS"}

	result := m.ScoreKeywords(keywords, "")
	assert.Equal(t, 0.0, result.Score, "空文本得分应为 0.0")
	assert.Empty(t, result.Matched, "空文本不应命中任何关键词")
	assert.Equal(t, keywords, result.Missing, "全部关键词应落入缺失列表")
}

// TestScoreKeywordsIdempotent 验证同一输入重复评分结果完全一致
func TestScoreKeywordsIdempotent(t *testing.T) {
	m := NewMatcher(WithFuzzyScorer(NewFuzzyWuzzyScorer()))
	keywords := []string{"Go", "Kafka", "gRPC", "Terraform"}
	text := "Go services speaking gRPC, events on Kafka."

	first := m.ScoreKeywords(keywords, text)
	second := m.ScoreKeywords(keywords, text)
	require.Equal(t, first, second, "相同输入的两次评分必须一致")
}

// TestScoreKeywordsRounding 验证得分保留一位小数
func TestScoreKeywordsRounding(t *testing.T) {
	m := NewMatcher()

	// 1/3 -> 33.333... -> 33.3
	oneOfThree := m.ScoreKeywords([]string{"go", "scala", "spark"}, "go developer")
	assert.Equal(t, 33.3, oneOfThree.Score)

	// 2/3 -> 66.666... -> 66.7
	twoOfThree := m.ScoreKeywords([]string{"go", "redis", "spark"}, "go and redis")
	assert.Equal(t, 66.7, twoOfThree.Score)

	// 5/6 -> 83.333... -> 83.3
	fiveOfSix := m.ScoreKeywords([]string{"a1", "b2", "c3", "d4", "e5", "zz"}, "a1 b2 c3 d4 e5")
	assert.Equal(t, 83.3, fiveOfSix.Score)

	// 3/3 -> 100.0
	full := m.ScoreKeywords([]string{"go", "redis", "kafka"}, "go redis kafka")
	assert.Equal(t, 100.0, full.Score)
}

// TestScoreTokens 验证对预分词输入的评分与对原文评分一致
func TestScoreTokens(t *testing.T) {
	m := NewMatcher()
	keywords := []string{"Python", "AWS"}
	text := "Python services on aws lambda"

	fromText := m.ScoreKeywords(keywords, text)
	fromTokens := m.ScoreTokens(keywords, Tokenize(text))
	assert.Equal(t, fromText, fromTokens, "预分词路径应与原文路径结果一致")
}
