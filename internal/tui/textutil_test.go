package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncateEnd("hello", 5))
	assert.Equal(t, "hel…", truncateEnd("hello", 4))
	assert.Equal(t, "树洞…", truncateEnd("树洞树洞", 3))
	assert.Equal(t, "", truncateEnd("x", 0))

	assert.Equal(t, "ab…yz", truncateMiddle("abcdefwxyz", 5))
	assert.Equal(t, "short", truncateMiddle("short", 10))
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n b\t\tc "))
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "刚刚"},
		{time.Minute, "刚刚"},
		{5 * time.Minute, "5分钟"},
		{time.Hour, "60分钟"},
		{3 * time.Hour, "3小时"},
		{day, "24小时"},
		{2*day + time.Hour, "2天"},
		{2 * day, "2天"},
		{week, "7天"},
		{10 * day, "1周"},
		{45 * day, "1月"},
		{400 * day, "1年"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, timeAgo(now.Add(-tt.ago), now), tt.ago.String())
	}
	assert.Equal(t, "unknown", timeAgo(time.Time{}, now))
}
