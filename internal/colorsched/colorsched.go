// Package colorsched assigns palette indexes to calendar intervals so that
// jobs shown side by side never share a color unless the palette runs out.
//
// Intervals are half-open: [start, end). A job that ends exactly when
// another starts does not overlap it and may reuse its color.
package colorsched

import (
	"container/heap"
	"slices"
	"time"
)

// Interval is anything with a time span. Callers keep their own fields
// (title, address, ...) and only expose the bounds.
//
// end < start is accepted and treated as a degenerate interval that is
// already expired by the time any later (or equal) start is swept.
type Interval interface {
	Span() (start, end time.Time)
}

// Assignment is the color chosen for a single input item.
type Assignment[T Interval] struct {
	Item T
	// Index is the position of Item in the slice passed to AssignColors.
	Index int
	// Color is the palette index in [0, paletteSize).
	Color int
	// Fallback is set when every color was taken and Color was forced to 0.
	Fallback bool
}

// AssignColors sweeps items in ascending start order (stable on ties) and
// gives each the lowest palette index not held by an interval that is still
// open. When all paletteSize indexes are held, the item falls back to 0.
//
// The result is ordered by start, not by input position; use InputOrder to
// restore the caller's order. items is never modified. A paletteSize below 1
// is treated as 1.
func AssignColors[T Interval](items []T, paletteSize int) []Assignment[T] {
	if paletteSize < 1 {
		paletteSize = 1
	}

	out := make([]Assignment[T], len(items))
	spans := make([]span, len(items))
	for i, it := range items {
		start, end := it.Span()
		spans[i] = span{start: start, end: end, index: i}
	}
	slices.SortStableFunc(spans, func(a, b span) int {
		return a.start.Compare(b.start)
	})

	var active activeSet
	// used is a set: expiring any holder clears its index, even when the
	// fallback left another open interval on the same index.
	used := make([]bool, paletteSize)

	for pos, s := range spans {
		// Expire everything that ended at or before this start.
		for active.Len() > 0 && !active[0].end.After(s.start) {
			done := heap.Pop(&active).(span)
			used[done.color] = false
		}

		color, fallback := allocate(used)
		used[color] = true
		s.color = color
		heap.Push(&active, s)

		out[pos] = Assignment[T]{
			Item:     items[s.index],
			Index:    s.index,
			Color:    color,
			Fallback: fallback,
		}
	}

	return out
}

// allocate probes from index 0 upward, at most len(used) times.
func allocate(used []bool) (int, bool) {
	idx := 0
	for probes := 0; probes < len(used); probes++ {
		if !used[idx] {
			return idx, false
		}
		idx = (idx + 1) % len(used)
	}
	return 0, true
}

// InputOrder returns a copy of assignments ordered by their original input
// position.
func InputOrder[T Interval](assignments []Assignment[T]) []Assignment[T] {
	out := make([]Assignment[T], len(assignments))
	copy(out, assignments)
	slices.SortFunc(out, func(a, b Assignment[T]) int {
		return a.Index - b.Index
	})
	return out
}

// Overlaps reports whether a and b share any instant under half-open
// semantics.
func Overlaps(a, b Interval) bool {
	as, ae := a.Span()
	bs, be := b.Span()
	return as.Before(be) && bs.Before(ae)
}

// MaxConcurrent returns the largest number of intervals open at the same
// instant. If it exceeds the palette size, AssignColors had to fall back.
func MaxConcurrent[T Interval](items []T) int {
	type edge struct {
		at    time.Time
		delta int
	}
	edges := make([]edge, 0, 2*len(items))
	for _, it := range items {
		start, end := it.Span()
		if !end.After(start) {
			continue
		}
		edges = append(edges, edge{start, 1}, edge{end, -1})
	}
	// Ends sort before starts at the same instant.
	slices.SortFunc(edges, func(a, b edge) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return a.delta - b.delta
	})

	cur, peak := 0, 0
	for _, e := range edges {
		cur += e.delta
		peak = max(peak, cur)
	}
	return peak
}

type span struct {
	start time.Time
	end   time.Time
	index int
	color int
}

// activeSet is a min-heap of open intervals keyed on end time.
type activeSet []span

func (h activeSet) Len() int           { return len(h) }
func (h activeSet) Less(i, j int) bool { return h[i].end.Before(h[j].end) }
func (h activeSet) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *activeSet) Push(x any) {
	*h = append(*h, x.(span))
}

func (h *activeSet) Pop() any {
	old := *h
	last := old[len(old)-1]
	*h = old[:len(old)-1]
	return last
}
