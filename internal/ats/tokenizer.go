// Package ats 实现关键词匹配引擎的核心：分词、三级匹配和得分聚合。
// 该包是纯计算包，不做任何 I/O，也不持有跨调用状态。
package ats

import (
	"regexp"
	"sort"
	"strings"
)

// tokenPattern 匹配由单词边界包围的 {字母, 数字, +, #, ., -} 最大连续串。
// 注意 +、#、.、- 不是单词字符，因此 "c++" 只保留 "c"、".net" 只保留 "net"，
// 而 "django-2.0" 会完整保留（内部符号两侧都是单词字符）。
var tokenPattern = regexp.MustCompile(`\b[a-zA-Z0-9+#.\-]+\b`)

// Tokenize 将文本小写后切分为规范化词元序列。
// 空输入返回空序列；类外的标点和空白直接跳过。
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// DefaultDerivedKeywordLimit 从岗位描述派生关键词时的默认数量上限
const DefaultDerivedKeywordLimit = 40

// defaultMinDerivedTokenLen 派生关键词时保留的词元最小长度（不含），即只保留长度大于 2 的词元
const defaultMinDerivedTokenLen = 2

// DeriveKeywords 当岗位没有显式技能列表时，从岗位描述派生关键词：
// 分词后只保留长度大于 minLen 的词元，去重、按字典序排序、截断到 limit 个。
// minLen <= 0 时取默认值 2，limit <= 0 时取默认值 40。
func DeriveKeywords(description string, minLen, limit int) []string {
	if minLen <= 0 {
		minLen = defaultMinDerivedTokenLen
	}
	if limit <= 0 {
		limit = DefaultDerivedKeywordLimit
	}

	seen := make(map[string]struct{})
	for _, tok := range Tokenize(description) {
		if len(tok) <= minLen {
			continue
		}
		seen[tok] = struct{}{}
	}

	keywords := make([]string, 0, len(seen))
	for tok := range seen {
		keywords = append(keywords, tok)
	}
	sort.Strings(keywords)

	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return keywords
}
