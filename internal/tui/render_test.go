package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/treehole/internal/api"
)

func TestWrapWidth(t *testing.T) {
	assert.Equal(t, 72, wrapWidth(80))
	assert.Equal(t, 120, wrapWidth(300))
	assert.Equal(t, 54, wrapWidth(60))
	assert.Equal(t, 26, wrapWidth(30))
	assert.Equal(t, 20, wrapWidth(10))
}

func TestPostMarkdown(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := api.Post{
		PostID:          "p1",
		Author:          "alice",
		Content:         `hi <img src="https://img.example.com/a.png"> there`,
		IPLocation:      "北京",
		VotePositive:    4,
		VoteNegative:    1,
		SubCommentCount: 2,
	}
	p.DateGMT.Time = now.Add(-3 * time.Hour)

	md := postMarkdown(p, now)
	assert.True(t, strings.HasPrefix(md, "## alice\n"))
	assert.Contains(t, md, "*3小时 · 北京*")
	assert.Contains(t, md, "hi  there")
	assert.Contains(t, md, "![image 1](https://img.example.com/a.png)")
	assert.Contains(t, md, "👍 4  👎 1  💬 2")
}

func TestPostMarkdownAnonymous(t *testing.T) {
	now := time.Now()
	p := api.Post{ID: 9, Content: "x"}
	p.CreatedAt.Time = now.Add(-2 * time.Minute)

	md := postMarkdown(p, now)
	assert.Contains(t, md, "## 匿名")
	assert.Contains(t, md, "2分钟")
}

func TestRendererCachesByWidth(t *testing.T) {
	r := newPostRenderer()
	p := api.Post{PostID: "p1", Author: "alice", Content: "body"}
	now := time.Now()

	first, err := r.Render(p, 80, now)
	require.NoError(t, err)
	assert.Equal(t, 1, r.cache.Len())

	second, err := r.Render(p, 80, now)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, r.cache.Len())

	_, err = r.Render(p, 200, now)
	require.NoError(t, err)
	assert.Equal(t, 2, r.cache.Len())

	r.Purge()
	assert.Equal(t, 0, r.cache.Len())
}
