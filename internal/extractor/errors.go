package extractor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrUnsupportedFormat    = errors.New("不支持的简历文件格式")
	ErrReadUploadFailed     = errors.New("读取上传内容失败")
	ErrTempFileFailed       = errors.New("写入临时文件失败")
	ErrParseFailed          = errors.New("解析简历文件失败")
	ErrExtractorUnavailable = errors.New("未装配对应格式的提取器")
	ErrEmptyRecord          = errors.New("结构化简历内容为空")
)

// ExtractError 包含详细上下文的提取错误
type ExtractError struct {
	Filename string
	Op       string
	BaseErr  error
	Detail   string
}

func (e *ExtractError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 文件:%s): %s", e.BaseErr, e.Op, e.Filename, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 文件:%s)", e.BaseErr, e.Op, e.Filename)
}

func (e *ExtractError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ExtractError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// NewExtractError 构造带上下文的提取错误
func NewExtractError(filename, op string, base error, detail string) error {
	return &ExtractError{
		Filename: filename,
		Op:       op,
		BaseErr:  base,
		Detail:   detail,
	}
}
