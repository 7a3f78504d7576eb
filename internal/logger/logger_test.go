package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// InitWithWriter 把全局Logger切到指定输出，并按配置过滤级别
func TestInitWithWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(Config{Level: "warn"}, &buf)

	Logger.Info().Msg("应被过滤的信息日志")
	Logger.Warn().Msg("应保留的警告日志")

	out := buf.String()
	assert.NotContains(t, out, "应被过滤的信息日志")
	assert.Contains(t, out, "应保留的警告日志")
	assert.Contains(t, out, `"level":"warn"`)
}

// 非法级别回退到info而不是报错
func TestInitWithWriterBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(Config{Level: "loud"}, &buf)

	Logger.Debug().Msg("调试日志不应出现")
	Logger.Info().Msg("信息日志应出现")

	out := buf.String()
	assert.NotContains(t, out, "调试日志不应出现")
	assert.Contains(t, out, "信息日志应出现")
}
