package processor

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"ats-match-go/internal/ats"
	"ats-match-go/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtractor 固定返回预设提取结果
type fakeExtractor struct {
	result extractor.Result
	called bool
}

func (f *fakeExtractor) ExtractUpload(ctx context.Context, r io.Reader, filename string) extractor.Result {
	f.called = true
	// 模拟真实提取器消费reader
	_, _ = io.Copy(io.Discard, r)
	return f.result
}

// fakeProvider 固定返回预设关键词
type fakeProvider struct {
	keywords []string
	derived  bool
	err      error
}

func (f *fakeProvider) KeywordsForJob(ctx context.Context, jobID string) ([]string, bool, error) {
	return f.keywords, f.derived, f.err
}

// panicMatcher 评分时panic，用于验证评分边界的兜底
type panicMatcher struct{}

func (p *panicMatcher) ScoreKeywords(jobKeywords []string, resumeText string) ats.MatchResult {
	panic("matcher exploded")
}

func (p *panicMatcher) ScoreTokens(jobKeywords []string, resumeTokens []string) ats.MatchResult {
	panic("matcher exploded")
}

func newTestProcessor(t *testing.T, ext ResumeExtractor, matcher KeywordMatcher, provider KeywordProvider) *ApplicationProcessor {
	t.Helper()
	return NewApplicationProcessor(&Components{
		Extractor: ext,
		Matcher:   matcher,
		Keywords:  provider,
	}, &Settings{})
}

func TestScorePreviewUpload(t *testing.T) {
	ext := &fakeExtractor{result: extractor.Result{Text: "senior golang developer with docker and kubernetes"}}
	provider := &fakeProvider{keywords: []string{"golang", "docker", "terraform"}}
	ap := newTestProcessor(t, ext, ats.NewMatcher(), provider)

	outcome, err := ap.ScorePreview(context.Background(), "job-1", ResumeSource{
		Upload: &UploadSource{Filename: "resume.pdf", Reader: strings.NewReader("%PDF")},
	})
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.True(t, ext.called, "上传通道应调用提取器")
	assert.Equal(t, extractor.FailureNone, outcome.ExtractionFailure)
	assert.InDelta(t, 66.7, outcome.Result.Score, 0.0001, "3个关键词命中2个应得66.7分")
	assert.Equal(t, []string{"golang", "docker"}, outcome.Result.Matched)
	assert.Equal(t, []string{"terraform"}, outcome.Result.Missing)
}

func TestScorePreviewExtractionDegrades(t *testing.T) {
	// 提取失败不应让预览失败：按空文本评分，全部关键词缺失
	ext := &fakeExtractor{result: extractor.Result{
		Reason: extractor.FailureParse,
		Err:    errors.New("corrupted pdf"),
	}}
	provider := &fakeProvider{keywords: []string{"golang", "docker"}}
	ap := newTestProcessor(t, ext, ats.NewMatcher(), provider)

	outcome, err := ap.ScorePreview(context.Background(), "job-1", ResumeSource{
		Upload: &UploadSource{Filename: "broken.pdf", Reader: strings.NewReader("xx")},
	})
	require.NoError(t, err, "提取失败应降级而不是报错")

	assert.Equal(t, extractor.FailureParse, outcome.ExtractionFailure)
	assert.Equal(t, 0.0, outcome.Result.Score)
	assert.Empty(t, outcome.Result.Matched)
	assert.Equal(t, []string{"golang", "docker"}, outcome.Result.Missing)
}

func TestScorePreviewDerivedKeywordsFlag(t *testing.T) {
	ext := &fakeExtractor{result: extractor.Result{Text: "python"}}
	provider := &fakeProvider{keywords: []string{"python"}, derived: true}
	ap := newTestProcessor(t, ext, ats.NewMatcher(), provider)

	outcome, err := ap.ScorePreview(context.Background(), "job-1", ResumeSource{
		Upload: &UploadSource{Filename: "r.pdf", Reader: strings.NewReader("x")},
	})
	require.NoError(t, err)
	assert.True(t, outcome.DerivedKeywords, "推导关键词标志应透传到结果")
	assert.Equal(t, 100.0, outcome.Result.Score)
}

func TestScorePreviewKeywordResolutionFails(t *testing.T) {
	provider := &fakeProvider{err: errors.New("job not found")}
	ap := newTestProcessor(t, &fakeExtractor{}, ats.NewMatcher(), provider)

	_, err := ap.ScorePreview(context.Background(), "missing-job", ResumeSource{
		Upload: &UploadSource{Filename: "r.pdf", Reader: strings.NewReader("x")},
	})
	assert.Error(t, err, "职位关键词解析失败应透传给调用方")
}

func TestScorePreviewMissingSource(t *testing.T) {
	ap := newTestProcessor(t, &fakeExtractor{}, ats.NewMatcher(), &fakeProvider{keywords: []string{"go"}})

	_, err := ap.ScorePreview(context.Background(), "job-1", ResumeSource{})
	require.Error(t, err)

	var procErr *ProcessError
	require.ErrorAs(t, err, &procErr)
	assert.True(t, errors.Is(err, ErrResumeSourceInvalid))
}

func TestScorePreviewMatcherPanicDegrades(t *testing.T) {
	// 评分边界应兜住panic：退化为零分，全部关键词缺失
	ext := &fakeExtractor{result: extractor.Result{Text: "golang"}}
	provider := &fakeProvider{keywords: []string{"golang", "docker"}}
	ap := newTestProcessor(t, ext, &panicMatcher{}, provider)

	outcome, err := ap.ScorePreview(context.Background(), "job-1", ResumeSource{
		Upload: &UploadSource{Filename: "r.pdf", Reader: strings.NewReader("x")},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, outcome.Result.Score)
	assert.Equal(t, []string{"golang", "docker"}, outcome.Result.Missing)
}

func TestConfirmApplicationRequiresMySQL(t *testing.T) {
	ap := newTestProcessor(t, &fakeExtractor{}, ats.NewMatcher(), &fakeProvider{})

	_, err := ap.ConfirmApplication(context.Background(), ConfirmRequest{
		JobID:          "job-1",
		CandidateEmail: "a@b.c",
		Upload:         &UploadSource{Filename: "r.pdf", Reader: strings.NewReader("x")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistFailed))
}

func TestCreateProcessorRequiresMatcher(t *testing.T) {
	_, err := CreateProcessor(context.Background(), nil, nil)
	assert.Error(t, err, "缺少匹配组件应拒绝构造")
}

func TestCreateProcessorWithComponents(t *testing.T) {
	ap, err := CreateProcessor(context.Background(),
		[]ComponentOpt{
			WithcompExtractor(&fakeExtractor{}),
			WithcompMatcher(ats.NewMatcher()),
			WithcompKeywords(&fakeProvider{}),
		},
		[]SettingOpt{WithsetDebug(true)},
	)
	require.NoError(t, err)
	assert.True(t, ap.Config.Debug)
	assert.NotNil(t, ap.Config.Logger, "默认日志记录器应自动补齐")
	assert.NotNil(t, ap.Config.TimeLocation)
}
