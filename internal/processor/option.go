package processor

import (
	"fmt"
	"io"
	"log"
	"time"

	"ats-match-go/internal/storage"
)

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// ----- 组件选项 -----

// WithcompExtractor 设置上传文本提取组件
func WithcompExtractor(extractor ResumeExtractor) ComponentOpt {
	return func(c *Components) {
		c.Extractor = extractor
	}
}

// WithcompMatcher 设置关键词匹配组件
func WithcompMatcher(matcher KeywordMatcher) ComponentOpt {
	return func(c *Components) {
		c.Matcher = matcher
	}
}

// WithcompKeywords 设置职位关键词解析组件
func WithcompKeywords(provider KeywordProvider) ComponentOpt {
	return func(c *Components) {
		c.Keywords = provider
	}
}

// WithcompStorage 设置存储组件
func WithcompStorage(storage *storage.Storage) ComponentOpt {
	return func(c *Components) {
		c.Storage = storage
	}
}

// ----- 设置选项 -----

// WithsetDebug 设置调试模式
func WithsetDebug(debug bool) SettingOpt {
	return func(s *Settings) {
		s.Debug = debug
	}
}

// WithsetLogger 设置日志记录器
func WithsetLogger(logger *log.Logger) SettingOpt {
	return func(s *Settings) {
		if logger != nil {
			s.Logger = logger
		} else {
			// 提供一个 discard logger 以防万一
			s.Logger = log.New(io.Discard, "[NilLoggerFallback] ", log.LstdFlags)
		}
	}
}

// WithsetTimelocation 设置时区
func WithsetTimelocation(loc *time.Location) SettingOpt {
	return func(s *Settings) {
		if loc != nil {
			s.TimeLocation = loc
		} else {
			s.TimeLocation = time.Local
		}
	}
}

// ----- 统一的日志包装方法 -----

// logDebug 记录调试级别日志
func (ap *ApplicationProcessor) logDebug(format string, args ...interface{}) {
	if ap.Config.Debug && ap.Config.Logger != nil {
		ap.Config.Logger.Printf(format, args...)
	}
}

// logInfo 记录信息级别日志
func (ap *ApplicationProcessor) logInfo(format string, args ...interface{}) {
	if ap.Config.Logger != nil {
		ap.Config.Logger.Printf(format, args...)
	}
}

// logWarn 记录警告级别日志
func (ap *ApplicationProcessor) logWarn(format string, args ...interface{}) {
	if ap.Config.Logger != nil {
		ap.Config.Logger.Printf("[WARN] "+format, args...)
	}
}

// logError 记录错误级别日志
func (ap *ApplicationProcessor) logError(err error, format string, args ...interface{}) {
	if ap.Config.Logger != nil {
		// 如果提供了错误对象，先添加错误信息
		if err != nil {
			format = fmt.Sprintf("ERROR: %v - %s", err, format)
		} else {
			format = "ERROR: " + format
		}
		ap.Config.Logger.Printf(format, args...)
	}
}
