package query

import "sort"

// WindowPolicy controls which page indices the pager shows around the
// current page.
type WindowPolicy struct {
	// Offset bounds the run around the current page: up to Offset-1 pages
	// on each side.
	Offset int
	// Edges forces the first and last page into the window.
	Edges bool
}

// DefaultWindowPolicy shows two neighbours on each side plus shortcuts to
// the first and last page.
func DefaultWindowPolicy() WindowPolicy {
	return WindowPolicy{Offset: 3, Edges: true}
}

// Window returns the ascending, de-duplicated page indices to render for
// the pager. It returns nil when there are no pages. A current page outside
// [0, totalPages-1] is clamped into range before the window is built.
func Window(current, totalPages int, policy WindowPolicy) []int {
	if totalPages <= 0 {
		return nil
	}
	if current < 0 {
		current = 0
	}
	if current > totalPages-1 {
		current = totalPages - 1
	}
	offset := policy.Offset
	if offset < 1 {
		offset = 1
	}

	seen := map[int]bool{current: true}
	pages := []int{current}
	add := func(p int) {
		if p < 0 || p >= totalPages || seen[p] {
			return
		}
		seen[p] = true
		pages = append(pages, p)
	}

	for p := current + 1; p < min(current+offset, totalPages); p++ {
		add(p)
	}
	for p := current - 1; p > current-offset; p-- {
		add(p)
	}
	if policy.Edges {
		add(0)
		add(totalPages - 1)
	}

	sort.Ints(pages)
	return pages
}
