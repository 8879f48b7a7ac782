package search

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/treehole/internal/api"
	"github.com/pders01/treehole/internal/storage"
)

type fakeSource struct {
	records []*storage.PostRecord
	err     error
}

func (f *fakeSource) GetPosts(author string, limit int) ([]*storage.PostRecord, error) {
	return f.records, f.err
}

func record(key, author, content string, posted time.Time) *storage.PostRecord {
	return &storage.PostRecord{Post: api.Post{
		PostID:  key,
		Author:  author,
		Content: content,
		DateGMT: api.Timestamp{Time: posted},
	}}
}

func TestSearchMinLength(t *testing.T) {
	engine := NewEngine(&fakeSource{})

	for _, q := range []string{"", "a", "   ", "!!"} {
		results, err := engine.Search(q, 10)
		assert.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results, "query %q should return nothing", q)
	}
}

func TestSearchRanksContentAndAuthor(t *testing.T) {
	old := time.Now().Add(-30 * 24 * time.Hour)
	src := &fakeSource{records: []*storage.PostRecord{
		record("p1", "anon", "the canteen noodles were cold today", old),
		record("p2", "noodlesfan", "nothing to see", old),
		record("p3", "anon", "unrelated post about exams", old),
		record("p4", "anon", "noodles noodles noodles everywhere", old),
	}}
	engine := NewEngine(src)

	results, err := engine.Search("noodles", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	keys := []string{results[0].Post.Key(), results[1].Post.Key(), results[2].Post.Key()}
	assert.NotContains(t, keys, "p3")
	assert.Less(t, indexOf(keys, "p4"), indexOf(keys, "p1"), "repeated term should rank higher")
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	results, err = engine.Search("noodles", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchCJKSubstring(t *testing.T) {
	src := &fakeSource{records: []*storage.PostRecord{
		record("p1", "匿名", "今天食堂的面条很好吃", time.Time{}),
		record("p2", "匿名", "图书馆人太多了", time.Time{}),
	}}
	engine := NewEngine(src)

	results, err := engine.Search("食堂", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].Post.Key())
	assert.Equal(t, "content", results[0].Matches[0].Field)
}

func TestSearchRecencyBoost(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{records: []*storage.PostRecord{
		record("old", "anon", "exam schedule posted", now.Add(-60*24*time.Hour)),
		record("new", "anon", "exam schedule posted", now.Add(-time.Hour)),
	}}
	engine := NewEngine(src)
	engine.now = func() time.Time { return now }

	results, err := engine.Search("exam", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "new", results[0].Post.Key())
}

func TestSearchSourceError(t *testing.T) {
	engine := NewEngine(&fakeSource{err: errors.New("db closed")})
	_, err := engine.Search("anything", 10)
	assert.Error(t, err)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"a b cd", []string{"cd"}},
		{"深夜 食堂", []string{"深夜", "食堂"}},
		{"go1.24 release", []string{"go1", "24", "release"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tokenize(tt.in), tt.in)
	}
}

func TestFindBestSnippet(t *testing.T) {
	text := strings.Repeat("filler ", 50) + "the keyword lives here " + strings.Repeat("more ", 50)
	snippet := findBestSnippet(text, []string{"keyword"}, 60)

	assert.Contains(t, snippet, "keyword")
	assert.True(t, strings.HasPrefix(snippet, "…"))
	assert.LessOrEqual(t, len([]rune(snippet)), 62)

	assert.Equal(t, "short", findBestSnippet("short", []string{"x"}, 60))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel…", truncate("hello", 4))
	assert.Equal(t, "深夜…", truncate("深夜食堂", 3))
}

func TestRecencyBoost(t *testing.T) {
	now := time.Now()
	assert.Zero(t, recencyBoost(time.Time{}, now))
	assert.Zero(t, recencyBoost(now.Add(-8*24*time.Hour), now))
	assert.InDelta(t, 0.1, recencyBoost(now, now), 0.001)
	assert.Zero(t, recencyBoost(now.Add(time.Hour), now))
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
