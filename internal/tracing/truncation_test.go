package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// 含敏感关键字的属性名必须打码，普通属性只做截断
func TestSafeAttributeValue(t *testing.T) {
	masked := SafeAttributeValue("candidate_email", "myemail@example.com", DefaultMaxLength)
	assert.Equal(t, "my***************om", masked)
	assert.NotContains(t, masked, "@example.com")

	plain := SafeAttributeValue("job_title", "后端工程师", DefaultMaxLength)
	assert.Equal(t, "后端工程师", plain)

	long := strings.Repeat("x", 300)
	truncated := SafeAttributeValue("job_title", long, DefaultMaxLength)
	assert.LessOrEqual(t, len([]rune(truncated)), DefaultMaxLength)
	assert.Contains(t, truncated, "...")
}

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "张*", MaskPII("张三"))
	assert.Equal(t, "王*明", MaskPII("王小明"))
	assert.Equal(t, "13*******78", MaskPII("13812345678"))
}

// 截断保留首尾、中间省略，且按rune处理避免截断多字节字符
func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))

	long := strings.Repeat("简", 600)
	out := TruncateString(long, MaxSQLLength)
	assert.LessOrEqual(t, len([]rune(out)), MaxSQLLength)
	assert.Contains(t, out, "...")

	assert.Equal(t, "abc", TruncateString("abcdef", 3))
}

func TestSafeSQLTruncatesLongStatements(t *testing.T) {
	sql := "SELECT * FROM applications WHERE job_id IN (" + strings.Repeat("'x',", 200) + "'x')"
	out := SafeSQL(sql)
	assert.LessOrEqual(t, len([]rune(out)), MaxSQLLength)
	assert.True(t, strings.HasPrefix(out, "SELECT"))
}
