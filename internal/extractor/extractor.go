// Package extractor 把简历来源（结构化记录、上传的 PDF/DOCX）统一转换为纯文本。
// 提取失败不会中断申请流程：调用方拿到空文本和可检视的失败原因，评分自然退化。
package extractor

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FailureReason 提取失败的分类，成功时为零值 FailureNone
type FailureReason string

const (
	// FailureNone 提取成功
	FailureNone FailureReason = ""
	// FailureUnsupportedFormat 文件扩展名不在支持范围内
	FailureUnsupportedFormat FailureReason = "UNSUPPORTED_FORMAT"
	// FailureParse 解析库报错或提取器缺失
	FailureParse FailureReason = "PARSE_ERROR"
	// FailureRead 读取上传流失败
	FailureRead FailureReason = "READ_ERROR"
	// FailureTempFile 临时文件创建或写入失败
	FailureTempFile FailureReason = "TEMP_FILE_ERROR"
	// FailureEmptyRecord 结构化记录合法但没有任何内容
	FailureEmptyRecord FailureReason = "EMPTY_RECORD"
)

// Result 一次提取的类型化结果。
// 失败时 Text 恒为空串、Reason 标明原因、Err 保留底层错误供日志使用；
// 对外可观察的行为与"失败即空文本"保持一致，但失败原因不再被吞掉。
type Result struct {
	Text   string
	Reason FailureReason
	Err    error
}

// OK 提取是否成功
func (r Result) OK() bool {
	return r.Reason == FailureNone
}

func success(text string) Result {
	return Result{Text: text}
}

func failure(reason FailureReason, err error) Result {
	return Result{Reason: reason, Err: err}
}

// TextExtractor 具体格式的文本提取策略。
// 实现约定：任何解析失败都通过 error 返回，绝不 panic。
type TextExtractor interface {
	// ExtractFromFile 从本地文件提取纯文本
	ExtractFromFile(ctx context.Context, filePath string) (string, error)
}

// DefaultExtractTimeout 二进制简历解析的默认超时。
// 第三方解析库在畸形输入上可能长时间不返回，必须有上限。
const DefaultExtractTimeout = 30 * time.Second

// UploadExtractor 按文件扩展名分发到具体策略的上传提取器。
// 策略在构造时注入：哪种格式可用是装配期决策，不做运行时探测。
type UploadExtractor struct {
	pdf     TextExtractor
	docx    TextExtractor
	timeout time.Duration
	logger  *log.Logger
}

// UploadOption UploadExtractor 的配置选项
type UploadOption func(*UploadExtractor)

// WithPDFStrategy 注入 PDF 提取策略
func WithPDFStrategy(e TextExtractor) UploadOption {
	return func(ue *UploadExtractor) {
		ue.pdf = e
	}
}

// WithDOCXStrategy 注入 DOCX 提取策略
func WithDOCXStrategy(e TextExtractor) UploadOption {
	return func(ue *UploadExtractor) {
		ue.docx = e
	}
}

// WithExtractTimeout 设置单次二进制解析的超时上限
func WithExtractTimeout(d time.Duration) UploadOption {
	return func(ue *UploadExtractor) {
		if d > 0 {
			ue.timeout = d
		}
	}
}

// WithUploadLogger 配置自定义日志记录器
func WithUploadLogger(logger *log.Logger) UploadOption {
	return func(ue *UploadExtractor) {
		if logger != nil {
			ue.logger = logger
		}
	}
}

// NewUploadExtractor 创建上传提取器
func NewUploadExtractor(opts ...UploadOption) *UploadExtractor {
	ue := &UploadExtractor{
		timeout: DefaultExtractTimeout,
		logger:  log.New(os.Stderr, "[上传提取] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(ue)
	}
	return ue
}

// ExtractUpload 从上传流提取纯文本。
//
// 扩展名（小写）为 .pdf/.docx 时走对应策略，其余一律返回 UNSUPPORTED_FORMAT，
// 不会把未知格式当 DOCX 硬解。上传内容先落到带同名后缀的临时文件，
// 临时文件在所有出口路径上删除；若输入实现了 io.Seeker，
// 返回前会把流拨回起点，调用方随后仍可完整持久化原始上传。
func (ue *UploadExtractor) ExtractUpload(ctx context.Context, r io.Reader, filename string) Result {
	// 无论成功失败，都把可回绕的输入流拨回起点
	defer rewind(r)

	ext := strings.ToLower(filepath.Ext(filename))

	var strategy TextExtractor
	switch ext {
	case ".pdf":
		strategy = ue.pdf
	case ".docx":
		strategy = ue.docx
	default:
		ue.logger.Printf("拒绝不支持的上传格式: %q (文件 %s)", ext, filename)
		return failure(FailureUnsupportedFormat,
			NewExtractError(filename, "dispatch", ErrUnsupportedFormat, fmt.Sprintf("扩展名 %q", ext)))
	}

	if strategy == nil {
		ue.logger.Printf("格式 %q 未装配提取器 (文件 %s)", ext, filename)
		return failure(FailureParse,
			NewExtractError(filename, "dispatch", ErrExtractorUnavailable, fmt.Sprintf("格式 %q", ext)))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return failure(FailureRead, NewExtractError(filename, "read", ErrReadUploadFailed, err.Error()))
	}

	// 写入带同名后缀的临时文件，解析库按路径读取
	tmp, err := os.CreateTemp("", "ats-upload-*"+ext)
	if err != nil {
		return failure(FailureTempFile, NewExtractError(filename, "tempfile", ErrTempFileFailed, err.Error()))
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return failure(FailureTempFile, NewExtractError(filename, "tempfile", ErrTempFileFailed, err.Error()))
	}
	if err := tmp.Close(); err != nil {
		return failure(FailureTempFile, NewExtractError(filename, "tempfile", ErrTempFileFailed, err.Error()))
	}

	extractCtx, cancel := context.WithTimeout(ctx, ue.timeout)
	defer cancel()

	text, err := strategy.ExtractFromFile(extractCtx, tmpName)
	if err != nil {
		ue.logger.Printf("提取失败 (文件 %s): %v", filename, err)
		return failure(FailureParse, NewExtractError(filename, "parse", ErrParseFailed, err.Error()))
	}

	return success(text)
}

// rewind 把实现了 io.Seeker 的流拨回起点；其余输入原样放过
func rewind(r io.Reader) {
	if seeker, ok := r.(io.Seeker); ok {
		_, _ = seeker.Seek(0, io.SeekStart)
	}
}
