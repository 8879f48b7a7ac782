package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, 0, s.Page)
	assert.Equal(t, 20, s.PageSize)
	assert.Equal(t, FieldDate, s.Field)
	assert.Equal(t, Desc, s.Direction)
	assert.Equal(t, RangeNoLimit, s.LikeRange)
	require.NoError(t, s.Validate())
}

func TestMutationsResetPage(t *testing.T) {
	start := Default()
	start.Page = 7

	tests := []struct {
		name   string
		mutate func(State) (State, error)
	}{
		{"page size", func(s State) (State, error) { return s.WithPageSize(50) }},
		{"same page size", func(s State) (State, error) { return s.WithPageSize(20) }},
		{"sort field", func(s State) (State, error) { return s.WithSortField(FieldLike) }},
		{"direction", func(s State) (State, error) { return s.WithDirection(Asc) }},
		{"like range", func(s State) (State, error) { return s.WithLikeRange(Range51To100) }},
		{"same like range", func(s State) (State, error) { return s.WithLikeRange(RangeNoLimit) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := tt.mutate(start)
			require.NoError(t, err)
			assert.Equal(t, 0, next.Page)
			assert.Equal(t, 7, start.Page, "receiver must not be modified")
		})
	}
}

func TestWithPageKeepsOtherFields(t *testing.T) {
	s, err := Default().WithLikeRange(Range0To25)
	require.NoError(t, err)

	next, err := s.WithPage(3)
	require.NoError(t, err)
	assert.Equal(t, 3, next.Page)
	assert.Equal(t, Range0To25, next.LikeRange)

	_, err = s.WithPage(-1)
	assert.Error(t, err)
}

func TestInvalidMutationsLeaveStateUntouched(t *testing.T) {
	s := Default()
	s.Page = 2

	next, err := s.WithPageSize(33)
	assert.Error(t, err)
	assert.Equal(t, s, next)

	next, err = s.WithLikeRange("9-10")
	assert.Error(t, err)
	assert.Equal(t, s, next)

	next, err = s.WithSortField(SortField(42))
	assert.Error(t, err)
	assert.Equal(t, s, next)

	next, err = s.WithPageSizeFrom(400, []int{10, 20})
	assert.Error(t, err)
	assert.Equal(t, s, next)
}

func TestValuesOmitsUnboundedLikeRange(t *testing.T) {
	v := Default().Values(DefaultWireKeys())

	assert.Equal(t, "0", v.Get("page"))
	assert.Equal(t, "20", v.Get("size"))
	assert.Equal(t, "date_gmt", v.Get("field"))
	assert.Equal(t, "DESC", v.Get("sort"))
	_, present := v["likeRange"]
	assert.False(t, present)
}

func TestValuesWithCustomWireKeys(t *testing.T) {
	keys := DefaultWireKeys()
	keys.Field = "orderBy"
	keys.Fields[FieldLike] = "like"

	s, err := Default().WithSortField(FieldLike)
	require.NoError(t, err)
	s, err = s.WithLikeRange(Range401Up)
	require.NoError(t, err)

	v := s.Values(keys)
	assert.Equal(t, "like", v.Get("orderBy"))
	assert.Equal(t, "401-∞", v.Get("likeRange"))
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 20, 0},
		{45, 20, 3},
		{40, 20, 2},
		{1, 20, 1},
		{137, 20, 7},
		{10, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.size), "total=%d size=%d", tt.total, tt.size)
	}
}

func TestParsers(t *testing.T) {
	f, err := ParseSortField("Comment")
	require.NoError(t, err)
	assert.Equal(t, FieldComment, f)
	_, err = ParseSortField("views")
	assert.Error(t, err)

	d, err := ParseDirection("asc")
	require.NoError(t, err)
	assert.Equal(t, Asc, d)

	r, err := ParseLikeRange("401-inf")
	require.NoError(t, err)
	assert.Equal(t, Range401Up, r)
	r, err = ParseLikeRange("any")
	require.NoError(t, err)
	assert.Equal(t, RangeNoLimit, r)
	_, err = ParseLikeRange("5-6")
	assert.Error(t, err)
}

func TestCycling(t *testing.T) {
	assert.Equal(t, FieldLike, FieldDate.Next())
	assert.Equal(t, FieldDate, FieldComment.Next())
	assert.Equal(t, Asc, Desc.Toggle())
	assert.Equal(t, Range0To25, RangeNoLimit.Next())
	assert.Equal(t, RangeNoLimit, Range401Up.Next())

	s := Default()
	assert.Equal(t, 25, s.NextPageSize(nil))
	s.PageSize = 400
	assert.Equal(t, 10, s.NextPageSize(nil))
}
