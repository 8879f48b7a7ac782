package tui

import (
	"strconv"
	"strings"
	"time"
)

// truncateEnd shortens s to at most limit characters, appending an ellipsis
// if truncation occurs.
func truncateEnd(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}

// truncateMiddle keeps both ends of s around a single ellipsis. Useful for
// URLs where the host and the file name both matter.
func truncateMiddle(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	n := len(r)
	if n <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	keep := limit - 1
	left := keep / 2
	right := keep - left
	if left <= 0 {
		return "…" + string(r[n-right:])
	}
	return string(r[:left]) + "…" + string(r[n-right:])
}

// oneLine collapses whitespace so post bodies fit a list row.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

// timeAgo renders the elapsed time the way the forum does: the largest unit
// strictly exceeded, floored, or 刚刚 under a minute.
func timeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := now.Sub(t)
	switch {
	case d > year:
		return strconv.Itoa(int(d/year)) + "年"
	case d > month:
		return strconv.Itoa(int(d/month)) + "月"
	case d > week:
		return strconv.Itoa(int(d/week)) + "周"
	case d > day:
		return strconv.Itoa(int(d/day)) + "天"
	case d > time.Hour:
		return strconv.Itoa(int(d/time.Hour)) + "小时"
	case d > time.Minute:
		return strconv.Itoa(int(d/time.Minute)) + "分钟"
	default:
		return "刚刚"
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
