package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 游标编码/解析往返，保证分页位置无损
func TestApplicationCursorRoundTrip(t *testing.T) {
	cursor := encodeApplicationCursor(66.7, "0198c0de-0000-7000-8000-000000000001")
	assert.Equal(t, "66.7|0198c0de-0000-7000-8000-000000000001", cursor)

	score, id, ok := parseApplicationCursor(cursor)
	require.True(t, ok)
	assert.InDelta(t, 66.7, score, 0.001)
	assert.Equal(t, "0198c0de-0000-7000-8000-000000000001", id)
}

func TestApplicationCursorZeroScore(t *testing.T) {
	cursor := encodeApplicationCursor(0, "app-1")
	score, id, ok := parseApplicationCursor(cursor)
	require.True(t, ok)
	assert.Equal(t, 0.0, score)
	assert.Equal(t, "app-1", id)
}

// 非法游标一律拒绝，而不是静默从头翻页
func TestApplicationCursorRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"66.7",
		"|app-1",
		"66.7|",
		"abc|app-1",
		"app-1|66.7|extra", // 分数位不是数字
	}
	for _, c := range cases {
		_, _, ok := parseApplicationCursor(c)
		assert.False(t, ok, "游标 %q 应当解析失败", c)
	}
}
