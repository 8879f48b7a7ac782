package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pders01/treehole/internal/query"
	"github.com/pders01/treehole/internal/session"
)

const (
	pathPosts      = "/api/treehole"
	pathSearch     = "/api/treehole/search"
	pathAuthor     = "/api/treehole/author/"
	pathStatistics = "/api/treehole/static"
	pathAish       = "/api/aish/posts"
	pathLogin      = "/api/auth/login"
	pathLogout     = "/api/auth/logout"
)

// ListPosts fetches one page of the main feed.
func (c *Client) ListPosts(ctx context.Context, q query.State) (*PostPage, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	page, err := getList[Post](ctx, c, request{path: pathPosts, query: q.Values(c.wire)})
	if err != nil {
		return nil, fmt.Errorf("fetching posts: %w", err)
	}
	return page, nil
}

func (c *Client) SearchPosts(ctx context.Context, keyword string) (*PostPage, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return &PostPage{Items: []Post{}}, nil
	}
	page, err := getList[Post](ctx, c, request{path: pathSearch, query: url.Values{"q": {keyword}}})
	if err != nil {
		return nil, fmt.Errorf("searching posts: %w", err)
	}
	return page, nil
}

func (c *Client) PostsByAuthor(ctx context.Context, author string) (*PostPage, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		return nil, fmt.Errorf("author is required")
	}
	page, err := getList[Post](ctx, c, request{
		path:    pathAuthor + author,
		rawPath: pathAuthor + url.PathEscape(author),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching posts by %s: %w", author, err)
	}
	return page, nil
}

func (c *Client) Statistics(ctx context.Context) ([]Stat, error) {
	page, err := getList[Stat](ctx, c, request{path: pathStatistics})
	if err != nil {
		return nil, fmt.Errorf("fetching statistics: %w", err)
	}
	return page.Items, nil
}

func (c *Client) AishPosts(ctx context.Context) ([]AishPost, error) {
	page, err := getList[AishPost](ctx, c, request{path: pathAish})
	if err != nil {
		return nil, fmt.Errorf("fetching aish posts: %w", err)
	}
	return page.Items, nil
}

// Login authenticates and stores the returned credential in the session.
func (c *Client) Login(ctx context.Context, username, password string) (session.Credential, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return session.Credential{}, fmt.Errorf("username and password are required")
	}

	raw, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   pathLogin,
		body:   map[string]string{"username": username, "password": password},
	})
	if err != nil {
		return session.Credential{}, fmt.Errorf("logging in: %w", err)
	}
	data, err := decodeEnvelope[loginData](raw)
	if err != nil {
		return session.Credential{}, fmt.Errorf("logging in: %w", err)
	}

	cred := session.Credential{
		Token:    data.Token,
		Username: data.Username,
		UserID:   data.ID,
		Email:    data.Email,
	}
	if cred.Username == "" {
		cred.Username = username
	}
	if err := c.session.Set(cred); err != nil {
		return cred, err
	}
	return cred, nil
}

// Logout tells the server and always clears the local session, even when
// the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	_, serverErr := c.do(ctx, request{method: http.MethodPost, path: pathLogout})

	if c.jar != nil {
		c.jar.Reset()
	}
	if err := c.session.Clear(); err != nil {
		return err
	}
	if serverErr != nil && !errors.Is(serverErr, ErrUnauthorized) {
		return fmt.Errorf("logging out: %w", serverErr)
	}
	return nil
}

// PostAgent sends body to an agent endpoint and returns the payload. When
// the reply is wrapped in the usual envelope the data member is returned,
// otherwise the whole body.
func (c *Client) PostAgent(ctx context.Context, path string, body any) (json.RawMessage, error) {
	raw, err := c.do(ctx, request{method: http.MethodPost, path: path, body: body})
	if err != nil {
		return nil, err
	}

	var head struct {
		Code *int            `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decoding agent response: %w", err)
	}
	if head.Code == nil {
		return raw, nil
	}
	if *head.Code != http.StatusOK {
		return nil, &APIError{Code: *head.Code, Msg: head.Msg}
	}
	if len(head.Data) == 0 {
		return raw, nil
	}
	return head.Data, nil
}
