package tui

type View int

const (
	ViewFeed View = iota
	ViewReader
	ViewSearch
	ViewAuthor
	ViewStats
	ViewAish
	ViewLogin
)

func (v View) String() string {
	switch v {
	case ViewFeed:
		return "feed"
	case ViewReader:
		return "reader"
	case ViewSearch:
		return "search"
	case ViewAuthor:
		return "author"
	case ViewStats:
		return "stats"
	case ViewAish:
		return "aish"
	case ViewLogin:
		return "login"
	default:
		return "unknown"
	}
}
