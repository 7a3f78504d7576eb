package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrJobKeywordsFailed   = errors.New("解析职位关键词失败")
	ErrResumeSourceInvalid = errors.New("简历来源无效")
	ErrResumeLoadFailed    = errors.New("加载结构化简历失败")
	ErrStoreFileFailed     = errors.New("归档简历文件失败")
	ErrPersistFailed       = errors.New("保存申请记录失败")
	ErrRescoreFailed       = errors.New("重评申请失败")
)

// ProcessError 包含详细错误信息的自定义错误
type ProcessError struct {
	ApplicationID string
	Op            string
	BaseErr       error
	Detail        string
}

func (e *ProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 申请:%s): %s", e.BaseErr, e.Op, e.ApplicationID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 申请:%s)", e.BaseErr, e.Op, e.ApplicationID)
}

func (e *ProcessError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewKeywordError(applicationID, detail string) error {
	return &ProcessError{
		ApplicationID: applicationID,
		Op:            "keywords",
		BaseErr:       ErrJobKeywordsFailed,
		Detail:        detail,
	}
}

func NewSourceError(applicationID, detail string) error {
	return &ProcessError{
		ApplicationID: applicationID,
		Op:            "source",
		BaseErr:       ErrResumeSourceInvalid,
		Detail:        detail,
	}
}

func NewResumeLoadError(applicationID, detail string) error {
	return &ProcessError{
		ApplicationID: applicationID,
		Op:            "resume",
		BaseErr:       ErrResumeLoadFailed,
		Detail:        detail,
	}
}

func NewStoreError(applicationID, detail string) error {
	return &ProcessError{
		ApplicationID: applicationID,
		Op:            "store",
		BaseErr:       ErrStoreFileFailed,
		Detail:        detail,
	}
}

func NewPersistError(applicationID, detail string) error {
	return &ProcessError{
		ApplicationID: applicationID,
		Op:            "persist",
		BaseErr:       ErrPersistFailed,
		Detail:        detail,
	}
}

func NewRescoreError(applicationID, detail string) error {
	return &ProcessError{
		ApplicationID: applicationID,
		Op:            "rescore",
		BaseErr:       ErrRescoreFailed,
		Detail:        detail,
	}
}
