package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pders01/treehole/internal/api"
	"github.com/pders01/treehole/internal/media"
)

const renderCacheSize = 128

type renderKey struct {
	post  string
	width int
}

// postRenderer turns posts into terminal markdown. Output is cached per post
// and wrap width since glamour is the slowest step of opening a post.
type postRenderer struct {
	mu    sync.Mutex
	tr    *glamour.TermRenderer
	width int
	cache *lru.Cache[renderKey, string]
}

func newPostRenderer() *postRenderer {
	cache, _ := lru.New[renderKey, string](renderCacheSize)
	return &postRenderer{cache: cache}
}

func wrapWidth(termWidth int) int {
	w := (termWidth * 9) / 10
	if w > 120 {
		w = 120
	}
	if w < 40 {
		w = 40
	}
	if termWidth < 50 {
		w = termWidth - 4
		if w < 20 {
			w = 20
		}
	}
	return w
}

func (r *postRenderer) Render(p api.Post, termWidth int, now time.Time) (string, error) {
	width := wrapWidth(termWidth)
	key := renderKey{post: p.Key(), width: width}
	if out, ok := r.cache.Get(key); ok {
		return out, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tr == nil || r.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		r.tr = tr
		r.width = width
	}

	out, err := r.tr.Render(postMarkdown(p, now))
	if err != nil {
		return "", err
	}
	r.cache.Add(key, out)
	return out, nil
}

func (r *postRenderer) Purge() {
	r.cache.Purge()
}

func postMarkdown(p api.Post, now time.Time) string {
	var b strings.Builder

	author := strings.TrimSpace(p.Author)
	if author == "" {
		author = "匿名"
	}
	fmt.Fprintf(&b, "## %s\n\n", author)

	meta := []string{timeAgo(postTime(p), now)}
	if p.IPLocation != "" {
		meta = append(meta, p.IPLocation)
	}
	fmt.Fprintf(&b, "*%s*\n\n", strings.Join(meta, " · "))

	if body := media.StripImages(p.Content); body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	if imgs := media.ImageURLs(p.Content); len(imgs) > 0 {
		for i, u := range imgs {
			fmt.Fprintf(&b, "![image %d](%s)\n", i+1, u)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "👍 %d  👎 %d  💬 %d\n", p.VotePositive, p.VoteNegative, p.SubCommentCount)
	return b.String()
}

// postTime prefers the forum's GMT date and falls back to the record time.
func postTime(p api.Post) time.Time {
	if !p.DateGMT.IsZero() {
		return p.DateGMT.Time
	}
	return p.CreatedAt.Time
}
