package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Post is one treehole entry.
type Post struct {
	ID              int64     `json:"id"`
	Author          string    `json:"author"`
	Content         string    `json:"content"`
	PostID          string    `json:"post_id"`
	VotePositive    int       `json:"vote_positive"`
	VoteNegative    int       `json:"vote_negative"`
	SubCommentCount int       `json:"sub_comment_count"`
	DateGMT         Timestamp `json:"date_gmt"`
	CreatedAt       Timestamp `json:"createdAt"`
	UpdatedAt       Timestamp `json:"updatedAt"`
	IPLocation      string    `json:"ip_location"`
	Images          *string   `json:"images"`
	AuthorType      int       `json:"author_type"`
	UserID          int64     `json:"user_id"`
}

// Key is the stable identifier used for local storage and indexing.
func (p Post) Key() string {
	if p.PostID != "" {
		return p.PostID
	}
	return strconv.FormatInt(p.ID, 10)
}

// Stat is one author's row on the statistics dashboard.
type Stat struct {
	Author           string `json:"author"`
	ArticlesPosted   int    `json:"articles_posted"`
	CommentsReceived int    `json:"comments_received"`
	TotalLikes       int    `json:"total_likes"`
	TotalDislikes    int    `json:"total_dislikes"`
}

// AishPost is a thread from the external forum listing.
type AishPost struct {
	Title         string    `json:"title"`
	ArticleURL    string    `json:"articleUrl"`
	ArticleID     string    `json:"articleId"`
	Area          string    `json:"area"`
	IsNewUserPost bool      `json:"isNewUserPost"`
	Author        string    `json:"author"`
	ReplyCount    int       `json:"replyCount"`
	ReadCount     int       `json:"readCount"`
	LastReplier   string    `json:"lastReplier"`
	LastReplyTime Timestamp `json:"lastReplyTime"`
}

// Page is one page of list results plus the server-side total.
type Page[T any] struct {
	Items []T
	Total int
}

// PostPage is what the feed controller consumes.
type PostPage = Page[Post]

type loginData struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

// Timestamp accepts the handful of layouts the server has been seen to
// emit. Anything else decodes to the zero time instead of failing the page.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	// Epoch milliseconds.
	if data[0] != '"' {
		if ms, err := strconv.ParseInt(string(data), 10, 64); err == nil {
			t.Time = time.UnixMilli(ms).UTC()
		} else {
			t.Time = time.Time{}
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = ParseTime(s)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// ParseTime tries each known layout and returns the zero time on failure.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}
