package pagination

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/errors"
)

func TestCount(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 10, 10},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Count(tt.total, tt.size), "Count(%d, %d)", tt.total, tt.size)
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	assert.Equal(t, []int{1, 2, 3}, Page(items, 1, 3))
	assert.Equal(t, []int{4, 5, 6}, Page(items, 2, 3))
	assert.Equal(t, []int{7}, Page(items, 3, 3))
	assert.Empty(t, Page(items, 4, 3))
	assert.Empty(t, Page(items, 0, 3))
	assert.Empty(t, Page([]int(nil), 1, 3))
}

func TestWindowInitial(t *testing.T) {
	w := NewWindow(95, 10, 5)
	assert.Equal(t, 10, w.Count)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, w.Pages())
	assert.Equal(t, 1, w.Now)

	small := NewWindow(25, 10, 5)
	assert.Equal(t, []int{1, 2, 3}, small.Pages())
}

func TestWindowMoves(t *testing.T) {
	w := NewWindow(95, 10, 5)

	require.NoError(t, w.Set(MovePrev))
	assert.Equal(t, 1, w.Now, "prev stops at the first page")

	require.NoError(t, w.Set("7"))
	assert.Equal(t, 7, w.Now)
	assert.Equal(t, []int{3, 4, 5, 6, 7}, w.Pages())

	require.NoError(t, w.Set(MoveEnd))
	assert.Equal(t, []int{6, 7, 8, 9, 10}, w.Pages())

	require.NoError(t, w.Set(MoveNext))
	assert.Equal(t, 10, w.Now, "next stops at the last page")

	require.NoError(t, w.Set("4"))
	assert.Equal(t, []int{4, 5, 6, 7, 8}, w.Pages())

	require.NoError(t, w.Set(MoveInit))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, w.Pages())
}

func TestWindowRejectsBadPage(t *testing.T) {
	w := NewWindow(30, 10, 5)
	for _, move := range []string{"0", "4", "abc", ""} {
		err := w.Set(move)
		require.Error(t, err, move)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	}
	assert.Equal(t, 1, w.Now)
}

func TestWindowEmpty(t *testing.T) {
	w := NewWindow(0, 10, 5)
	assert.NoError(t, w.Set("3"))
	assert.Nil(t, w.Pages())
	assert.Equal(t, Window{}, *w)
}
