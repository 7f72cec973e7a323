// Package pagination splits a result list into fixed-size pages and keeps a
// bounded bar of visible page numbers around the current page.
package pagination

import (
	"net/http"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/errors"
)

// Moves accepted by Window.Set besides a page number.
const (
	MoveInit = "init"
	MovePrev = "prev"
	MoveNext = "next"
	MoveEnd  = "end"
)

// Count is the number of pages needed for total items, rounding up.
func Count(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Page returns the 1-based page of items. Pages outside the list are empty.
func Page[T any](items []T, page, size int) []T {
	if page < 1 || size <= 0 {
		return items[:0]
	}
	lo := (page - 1) * size
	if lo >= len(items) {
		return items[:0]
	}
	return items[lo:min(lo+size, len(items))]
}

// Window is the visible page bar. First and End bound the visible page
// numbers and Now is the current page, all 1-based. Every field is 0 when
// there are no pages.
type Window struct {
	Count int `json:"count"`
	First int `json:"first"`
	Now   int `json:"now"`
	End   int `json:"end"`

	span int
}

// NewWindow positions a window on page 1 for total items.
func NewWindow(total, size, maxRange int) *Window {
	w := &Window{Count: Count(total, size)}
	if w.Count == 0 {
		return w
	}
	w.span = min(maxRange, w.Count)
	w.First, w.Now, w.End = 1, 1, w.span
	return w
}

// Set applies a move or jumps to a page number and slides the bar so the
// current page stays visible.
func (w *Window) Set(move string) error {
	if w.Count == 0 {
		return nil
	}
	switch move {
	case MoveInit:
		w.Now = 1
	case MovePrev:
		if w.Now > 1 {
			w.Now--
		}
	case MoveNext:
		if w.Now < w.Count {
			w.Now++
		}
	case MoveEnd:
		w.Now = w.Count
	default:
		n, err := strconv.Atoi(move)
		if err != nil || n < 1 || n > w.Count {
			return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "page %q is not between 1 and %d", move, w.Count)
		}
		w.Now = n
	}
	w.slide()
	return nil
}

func (w *Window) slide() {
	switch {
	case w.Now < w.First:
		w.First = w.Now
		w.End = w.First + w.span - 1
	case w.Now > w.End:
		w.End = w.Now
		w.First = w.End - w.span + 1
	}
}

// Pages lists the visible page numbers.
func (w *Window) Pages() []int {
	if w.Count == 0 {
		return nil
	}
	out := make([]int, 0, w.End-w.First+1)
	for p := w.First; p <= w.End; p++ {
		out = append(out, p)
	}
	return out
}
