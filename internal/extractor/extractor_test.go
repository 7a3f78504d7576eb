package extractor

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStrategy 测试用的可控提取策略，记录收到的临时文件路径和内容
type stubStrategy struct {
	text    string
	err     error
	calls   int
	gotPath string
	gotData []byte
}

func (s *stubStrategy) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	s.calls++
	s.gotPath = filePath
	if data, err := os.ReadFile(filePath); err == nil {
		s.gotData = data
	}
	return s.text, s.err
}

// TestExtractUploadDispatch 验证按扩展名分发到对应策略
func TestExtractUploadDispatch(t *testing.T) {
	pdfStub := &stubStrategy{text: "pdf text"}
	docxStub := &stubStrategy{text: "docx text"}
	ue := NewUploadExtractor(WithPDFStrategy(pdfStub), WithDOCXStrategy(docxStub))

	// 1. .pdf 走 PDF 策略
	res := ue.ExtractUpload(context.Background(), strings.NewReader("%PDF-fake"), "resume.pdf")
	require.True(t, res.OK(), "PDF 提取应成功")
	assert.Equal(t, "pdf text", res.Text)
	assert.Equal(t, 1, pdfStub.calls, "应只调用 PDF 策略一次")
	assert.Zero(t, docxStub.calls, "不应触达 DOCX 策略")

	// 2. 扩展名大小写不敏感
	res = ue.ExtractUpload(context.Background(), strings.NewReader("PK-fake"), "Resume.DOCX")
	require.True(t, res.OK(), "DOCX 提取应成功")
	assert.Equal(t, "docx text", res.Text)
	assert.Equal(t, 1, docxStub.calls)

	// 3. 上传内容原样落到临时文件
	assert.Equal(t, []byte("PK-fake"), docxStub.gotData, "策略收到的临时文件内容应与上传一致")
}

// TestExtractUploadUnsupportedFormat 验证未知扩展名被显式拒绝而不是按 DOCX 硬解
func TestExtractUploadUnsupportedFormat(t *testing.T) {
	pdfStub := &stubStrategy{text: "pdf text"}
	docxStub := &stubStrategy{text: "docx text"}
	ue := NewUploadExtractor(WithPDFStrategy(pdfStub), WithDOCXStrategy(docxStub))

	for _, filename := range []string{"resume.txt", "resume", "resume.doc", "resume.pdf.exe"} {
		res := ue.ExtractUpload(context.Background(), strings.NewReader("content"), filename)

		assert.False(t, res.OK(), "文件 %s 应被拒绝", filename)
		assert.Equal(t, FailureUnsupportedFormat, res.Reason, "失败原因应为不支持的格式")
		assert.Empty(t, res.Text, "失败时文本应为空")
		assert.ErrorIs(t, res.Err, ErrUnsupportedFormat, "底层错误应可用 errors.Is 识别")
	}

	assert.Zero(t, pdfStub.calls, "未知格式不应触达任何策略")
	assert.Zero(t, docxStub.calls, "未知格式不应触达任何策略")
}

// TestExtractUploadParseFailure 验证解析失败退化为空文本而不是报错中断
func TestExtractUploadParseFailure(t *testing.T) {
	// 1. 策略报错（等价于损坏的 PDF 字节）
	broken := &stubStrategy{err: errors.New("bad xref table")}
	ue := NewUploadExtractor(WithPDFStrategy(broken))

	res := ue.ExtractUpload(context.Background(), strings.NewReader("not really a pdf"), "corrupt.pdf")
	assert.False(t, res.OK())
	assert.Equal(t, FailureParse, res.Reason, "解析失败应标记为 PARSE_ERROR")
	assert.Empty(t, res.Text, "解析失败时文本必须为空串")
	assert.ErrorIs(t, res.Err, ErrParseFailed)

	// 2. 未装配策略的已知格式也是解析类失败
	res = ue.ExtractUpload(context.Background(), strings.NewReader("PK"), "resume.docx")
	assert.Equal(t, FailureParse, res.Reason)
	assert.ErrorIs(t, res.Err, ErrExtractorUnavailable, "缺失提取器应可被识别")
}

// TestExtractUploadTempFileCleanup 验证临时文件在成功与失败路径上都被删除
func TestExtractUploadTempFileCleanup(t *testing.T) {
	// 1. 成功路径
	ok := &stubStrategy{text: "fine"}
	ue := NewUploadExtractor(WithPDFStrategy(ok))
	res := ue.ExtractUpload(context.Background(), strings.NewReader("data"), "a.pdf")
	require.True(t, res.OK())
	require.NotEmpty(t, ok.gotPath, "策略应收到临时文件路径")
	_, err := os.Stat(ok.gotPath)
	assert.True(t, os.IsNotExist(err), "成功路径上的临时文件应已删除")
	assert.True(t, strings.HasSuffix(ok.gotPath, ".pdf"), "临时文件应带同名后缀")

	// 2. 失败路径
	bad := &stubStrategy{err: errors.New("boom")}
	ue = NewUploadExtractor(WithDOCXStrategy(bad))
	res = ue.ExtractUpload(context.Background(), strings.NewReader("data"), "b.docx")
	require.False(t, res.OK())
	require.NotEmpty(t, bad.gotPath)
	_, err = os.Stat(bad.gotPath)
	assert.True(t, os.IsNotExist(err), "失败路径上的临时文件也应已删除")
}

// TestExtractUploadRewindsSeeker 验证可回绕输入在提取后回到流起点
func TestExtractUploadRewindsSeeker(t *testing.T) {
	const payload = "original upload bytes"

	testCases := []struct {
		name     string
		strategy *stubStrategy
		filename string
	}{
		{"成功路径", &stubStrategy{text: "ok"}, "r.pdf"},
		{"解析失败路径", &stubStrategy{err: errors.New("boom")}, "r.pdf"},
		{"不支持格式路径", nil, "r.xyz"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var opts []UploadOption
			if tc.strategy != nil {
				opts = append(opts, WithPDFStrategy(tc.strategy))
			}
			ue := NewUploadExtractor(opts...)

			reader := strings.NewReader(payload)
			_ = ue.ExtractUpload(context.Background(), reader, tc.filename)

			// 提取之后调用方必须还能从头读到完整的原始内容
			rest, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Equal(t, payload, string(rest), "流应已回绕到起点")
		})
	}
}

// TestExtractUploadNonSeekerTolerated 验证不可回绕的输入不会导致报错
func TestExtractUploadNonSeekerTolerated(t *testing.T) {
	stub := &stubStrategy{text: "ok"}
	ue := NewUploadExtractor(WithPDFStrategy(stub))

	// io.LimitReader 包装后不再实现 io.Seeker
	reader := io.LimitReader(strings.NewReader("data"), 4)
	res := ue.ExtractUpload(context.Background(), reader, "x.pdf")
	assert.True(t, res.OK(), "非 Seeker 输入应正常提取")
	assert.Equal(t, "ok", res.Text)
}
