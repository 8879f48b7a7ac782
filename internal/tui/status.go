package tui

import (
	"fmt"
	"strings"
)

// Canonical short status messages used across the app.
const (
	MsgLoading     = "Loading…"
	MsgRefreshing  = "Refreshing…"
	MsgSearching   = "Searching…"
	MsgLoggingIn   = "Logging in…"
	MsgLoggedOut   = "Logged out"
	MsgNoResults   = "No results"
	MsgLoginNeeded = "Session expired, please log in"
	MsgNoImage     = "This post has no image"
	MsgOffline     = "offline results from local archive"
)

func MsgLoggedIn(username string) string {
	return fmt.Sprintf("Logged in as %s", strings.TrimSpace(username))
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgPageSummary(page, totalPages, total int) string {
	if totalPages == 0 {
		return "0 posts"
	}
	return fmt.Sprintf("page %d/%d • %d posts", page+1, totalPages, total)
}
