package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SortField selects the column the server orders posts by.
type SortField int

const (
	FieldDate SortField = iota
	FieldLike
	FieldDislike
	FieldComment
)

var sortFieldNames = []string{"date", "like", "dislike", "comment"}

func (f SortField) String() string {
	if int(f) < 0 || int(f) >= len(sortFieldNames) {
		return "unknown"
	}
	return sortFieldNames[f]
}

// Valid reports whether f is one of the known fields.
func (f SortField) Valid() bool {
	return f >= FieldDate && f <= FieldComment
}

// Next cycles through the fields in declaration order.
func (f SortField) Next() SortField {
	return SortField((int(f) + 1) % len(sortFieldNames))
}

// ParseSortField accepts the display names ("date", "like", ...).
func ParseSortField(s string) (SortField, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range sortFieldNames {
		if name == s {
			return SortField(i), nil
		}
	}
	return FieldDate, fmt.Errorf("unknown sort field %q", s)
}

// Direction is the sort order.
type Direction int

const (
	Desc Direction = iota
	Asc
)

func (d Direction) String() string {
	switch d {
	case Asc:
		return "ASC"
	case Desc:
		return "DESC"
	default:
		return "UNKNOWN"
	}
}

func (d Direction) Valid() bool {
	return d == Asc || d == Desc
}

// Toggle flips ASC and DESC.
func (d Direction) Toggle() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ASC":
		return Asc, nil
	case "DESC":
		return Desc, nil
	default:
		return Desc, fmt.Errorf("unknown sort direction %q", s)
	}
}

// LikeRange buckets posts by approval count. The string value is what the
// server expects on the wire.
type LikeRange string

const (
	RangeNoLimit  LikeRange = "0-∞"
	Range0To25    LikeRange = "0-25"
	Range26To50   LikeRange = "26-50"
	Range51To100  LikeRange = "51-100"
	Range101To200 LikeRange = "101-200"
	Range201To400 LikeRange = "201-400"
	Range401Up    LikeRange = "401-∞"
)

// LikeRanges lists the buckets in picker order.
var LikeRanges = []LikeRange{
	RangeNoLimit,
	Range0To25,
	Range26To50,
	Range51To100,
	Range101To200,
	Range201To400,
	Range401Up,
}

func (r LikeRange) Valid() bool {
	for _, known := range LikeRanges {
		if r == known {
			return true
		}
	}
	return false
}

// Next cycles through LikeRanges, wrapping back to RangeNoLimit.
func (r LikeRange) Next() LikeRange {
	for i, known := range LikeRanges {
		if r == known {
			return LikeRanges[(i+1)%len(LikeRanges)]
		}
	}
	return RangeNoLimit
}

// Label is the human form; "any" for the unbounded bucket.
func (r LikeRange) Label() string {
	if r == RangeNoLimit || r == "" {
		return "any"
	}
	return string(r)
}

// ParseLikeRange accepts the wire values plus "any"/"none" and an ASCII
// "inf" spelling for the open-ended buckets.
func ParseLikeRange(s string) (LikeRange, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "any", "none", "nolimit":
		return RangeNoLimit, nil
	}
	s = strings.ReplaceAll(strings.ToLower(s), "inf", "∞")
	r := LikeRange(s)
	if !r.Valid() {
		return RangeNoLimit, fmt.Errorf("unknown like range %q", s)
	}
	return r, nil
}

// PageSizes is the full set of sizes any screen may offer.
var PageSizes = []int{10, 20, 25, 50, 100, 200, 400}

const DefaultPageSize = 20

// State is the tuple of pagination, sort and filter parameters that fully
// determines one list request. It is a value type; the With* methods return
// a modified copy.
type State struct {
	Page      int
	PageSize  int
	Field     SortField
	Direction Direction
	LikeRange LikeRange
}

// Default is the home feed's initial query: newest first, no filter.
func Default() State {
	return State{
		Page:      0,
		PageSize:  DefaultPageSize,
		Field:     FieldDate,
		Direction: Desc,
		LikeRange: RangeNoLimit,
	}
}

func (s State) Validate() error {
	if s.Page < 0 {
		return fmt.Errorf("page must be >= 0, got %d", s.Page)
	}
	if !isAllowedSize(s.PageSize, PageSizes) {
		return fmt.Errorf("unsupported page size %d", s.PageSize)
	}
	if !s.Field.Valid() {
		return fmt.Errorf("unsupported sort field %d", s.Field)
	}
	if !s.Direction.Valid() {
		return fmt.Errorf("unsupported sort direction %d", s.Direction)
	}
	if !s.LikeRange.Valid() {
		return fmt.Errorf("unsupported like range %q", s.LikeRange)
	}
	return nil
}

// WithPage is the only mutation that keeps the other fields' page context.
func (s State) WithPage(page int) (State, error) {
	if page < 0 {
		return s, fmt.Errorf("page must be >= 0, got %d", page)
	}
	s.Page = page
	return s, nil
}

func (s State) WithPageSize(size int) (State, error) {
	return s.WithPageSizeFrom(size, PageSizes)
}

// WithPageSizeFrom validates size against a screen-specific subset.
func (s State) WithPageSizeFrom(size int, allowed []int) (State, error) {
	if !isAllowedSize(size, allowed) {
		return s, fmt.Errorf("unsupported page size %d", size)
	}
	s.PageSize = size
	s.Page = 0
	return s, nil
}

func (s State) WithSortField(f SortField) (State, error) {
	if !f.Valid() {
		return s, fmt.Errorf("unsupported sort field %d", f)
	}
	s.Field = f
	s.Page = 0
	return s, nil
}

func (s State) WithDirection(d Direction) (State, error) {
	if !d.Valid() {
		return s, fmt.Errorf("unsupported sort direction %d", d)
	}
	s.Direction = d
	s.Page = 0
	return s, nil
}

func (s State) WithLikeRange(r LikeRange) (State, error) {
	if !r.Valid() {
		return s, fmt.Errorf("unsupported like range %q", r)
	}
	s.LikeRange = r
	s.Page = 0
	return s, nil
}

// NextPageSize returns the allowed size after the current one, wrapping.
func (s State) NextPageSize(allowed []int) int {
	if len(allowed) == 0 {
		allowed = PageSizes
	}
	for i, size := range allowed {
		if size == s.PageSize {
			return allowed[(i+1)%len(allowed)]
		}
	}
	return allowed[0]
}

// Summary is a compact one-line description for status bars and logs.
func (s State) Summary() string {
	return fmt.Sprintf("page %d • %d/page • %s %s • likes %s",
		s.Page+1, s.PageSize, s.Field, strings.ToLower(s.Direction.String()), s.LikeRange.Label())
}

// WireKeys maps the query onto the server's parameter names and sort-field
// values. The backend's exact naming has varied between deployments, so it
// lives in configuration.
type WireKeys struct {
	Page      string
	Size      string
	Field     string
	Sort      string
	LikeRange string
	Fields    map[SortField]string
}

// DefaultWireKeys matches the tree-hole backend the client was written for.
func DefaultWireKeys() WireKeys {
	return WireKeys{
		Page:      "page",
		Size:      "size",
		Field:     "field",
		Sort:      "sort",
		LikeRange: "likeRange",
		Fields: map[SortField]string{
			FieldDate:    "date_gmt",
			FieldLike:    "vote_positive",
			FieldDislike: "vote_negative",
			FieldComment: "sub_comment_count",
		},
	}
}

// Values encodes s as query parameters. The like range is omitted entirely
// when unbounded.
func (s State) Values(keys WireKeys) url.Values {
	v := url.Values{}
	v.Set(keys.Page, strconv.Itoa(s.Page))
	v.Set(keys.Size, strconv.Itoa(s.PageSize))
	field, ok := keys.Fields[s.Field]
	if !ok {
		field = s.Field.String()
	}
	v.Set(keys.Field, field)
	v.Set(keys.Sort, s.Direction.String())
	if s.LikeRange != RangeNoLimit && s.LikeRange != "" {
		v.Set(keys.LikeRange, string(s.LikeRange))
	}
	return v
}

// TotalPages is ceil(total/pageSize), zero for an empty result.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

func isAllowedSize(size int, allowed []int) bool {
	for _, a := range allowed {
		if a == size {
			return true
		}
	}
	return false
}
