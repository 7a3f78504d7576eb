package processor

import (
	"context"
	"io"

	"ats-match-go/internal/ats"
	"ats-match-go/internal/extractor"
)

// ResumeExtractor 上传简历的文本提取接口
type ResumeExtractor interface {
	// ExtractUpload 按文件扩展名分派提取策略。
	// 失败时返回带原因分类的空文本结果，而不是错误，评分流程据此降级。
	ExtractUpload(ctx context.Context, r io.Reader, filename string) extractor.Result
}

// KeywordMatcher 关键词匹配评分接口，由 *ats.Matcher 实现
type KeywordMatcher interface {
	// ScoreKeywords 对简历全文做分词后逐个匹配关键词
	ScoreKeywords(jobKeywords []string, resumeText string) ats.MatchResult

	// ScoreTokens 对已分词的简历文本逐个匹配关键词
	ScoreTokens(jobKeywords []string, resumeTokens []string) ats.MatchResult
}

// KeywordProvider 职位生效关键词的解析接口
type KeywordProvider interface {
	// KeywordsForJob 返回职位的生效关键词列表。
	// derived 为 true 表示职位未配置关键词，列表由职位描述推导而来。
	KeywordsForJob(ctx context.Context, jobID string) (keywords []string, derived bool, err error)
}
