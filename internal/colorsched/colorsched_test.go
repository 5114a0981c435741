package colorsched

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type job struct {
	name       string
	start, end int // minutes after epoch
}

func (j job) Span() (time.Time, time.Time) {
	return epoch.Add(time.Duration(j.start) * time.Minute), epoch.Add(time.Duration(j.end) * time.Minute)
}

func colorsByName(as []Assignment[job]) map[string]int {
	out := make(map[string]int, len(as))
	for _, a := range as {
		out[a.Item.name] = a.Color
	}
	return out
}

func TestAssignColors_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		jobs        []job
		paletteSize int
		want        map[string]int
	}{
		{
			name:        "touching intervals share a single color",
			jobs:        []job{{"a", 0, 10}, {"b", 10, 20}},
			paletteSize: 1,
			want:        map[string]int{"a": 0, "b": 0},
		},
		{
			name:        "disjoint jobs reuse color 0",
			jobs:        []job{{"a", 0, 5}, {"b", 10, 15}, {"c", 20, 25}},
			paletteSize: 3,
			want:        map[string]int{"a": 0, "b": 0, "c": 0},
		},
		{
			name:        "three overlapping with two colors falls back to 0",
			jobs:        []job{{"a", 0, 10}, {"b", 2, 12}, {"c", 4, 14}},
			paletteSize: 2,
			want:        map[string]int{"a": 0, "b": 1, "c": 0},
		},
		{
			name:        "freed color is reused by the lowest probe",
			jobs:        []job{{"a", 0, 10}, {"b", 2, 30}, {"c", 10, 20}},
			paletteSize: 7,
			want:        map[string]int{"a": 0, "b": 1, "c": 0},
		},
		{
			name:        "unsorted input is swept by start",
			jobs:        []job{{"late", 5, 15}, {"early", 0, 10}},
			paletteSize: 7,
			want:        map[string]int{"early": 0, "late": 1},
		},
		{
			name:        "palette size of one puts overlaps on 0",
			jobs:        []job{{"a", 0, 10}, {"b", 1, 10}},
			paletteSize: 1,
			want:        map[string]int{"a": 0, "b": 0},
		},
		{
			name:        "non-positive palette size behaves like one",
			jobs:        []job{{"a", 0, 10}, {"b", 1, 10}},
			paletteSize: 0,
			want:        map[string]int{"a": 0, "b": 0},
		},
		{
			name:        "expiry after fallback frees the shared color",
			jobs:        []job{{"a", 0, 10}, {"b", 0, 10}, {"long", 0, 50}, {"d", 20, 30}},
			paletteSize: 2,
			want:        map[string]int{"a": 0, "b": 1, "long": 0, "d": 0},
		},
		{
			name:        "inverted interval does not hold its color",
			jobs:        []job{{"bad", 10, 3}, {"next", 10, 20}},
			paletteSize: 7,
			want:        map[string]int{"bad": 0, "next": 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssignColors(tt.jobs, tt.paletteSize)
			require.Len(t, got, len(tt.jobs))
			if diff := cmp.Diff(tt.want, colorsByName(got)); diff != "" {
				t.Errorf("AssignColors() colors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAssignColors_Empty(t *testing.T) {
	got := AssignColors([]job{}, 7)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = AssignColors[job](nil, 7)
	assert.Empty(t, got)
}

func TestAssignColors_OverflowIsFlagged(t *testing.T) {
	jobs := []job{{"a", 0, 10}, {"b", 2, 12}, {"c", 4, 14}}
	got := AssignColors(jobs, 2)

	var fallbacks []string
	for _, a := range got {
		if a.Fallback {
			fallbacks = append(fallbacks, a.Item.name)
		}
	}
	assert.Equal(t, []string{"c"}, fallbacks)

	// Exactly one colliding pair, attributable to overflow.
	var pairs int
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			if got[i].Color == got[j].Color && Overlaps(got[i].Item, got[j].Item) {
				pairs++
			}
		}
	}
	assert.Equal(t, 1, pairs)
	assert.Greater(t, MaxConcurrent(jobs), 2)
}

func TestAssignColors_StableTies(t *testing.T) {
	jobs := []job{{"first", 0, 10}, {"second", 0, 10}, {"third", 0, 10}}
	got := AssignColors(jobs, 7)

	names := make([]string, 0, len(got))
	for _, a := range got {
		names = append(names, a.Item.name)
	}
	assert.Equal(t, []string{"first", "second", "third"}, names)
	assert.Equal(t, map[string]int{"first": 0, "second": 1, "third": 2}, colorsByName(got))
}

func TestAssignColors_DoesNotMutateInput(t *testing.T) {
	jobs := []job{{"b", 5, 15}, {"a", 0, 10}}
	before := append([]job(nil), jobs...)

	_ = AssignColors(jobs, 3)

	assert.Equal(t, before, jobs)
}

func TestAssignColors_ExpiredHolderFreesSharedColor(t *testing.T) {
	// "long" shares 0 with "a" through the fallback. When "a" ends, 0 is
	// cleared even though "long" is still open, so "d" takes it.
	jobs := []job{{"a", 0, 10}, {"b", 0, 10}, {"long", 0, 50}, {"d", 20, 30}}
	got := AssignColors(jobs, 2)

	assert.Equal(t, map[string]int{"a": 0, "b": 1, "long": 0, "d": 0}, colorsByName(got))
	for _, a := range got {
		assert.Equal(t, a.Item.name == "long", a.Fallback, a.Item.name)
	}
}

func TestInputOrder(t *testing.T) {
	jobs := []job{{"c", 20, 30}, {"a", 0, 10}, {"b", 5, 15}}
	got := AssignColors(jobs, 3)

	assert.Equal(t, []int{1, 2, 0}, indexes(got))

	restored := InputOrder(got)
	assert.Equal(t, []int{0, 1, 2}, indexes(restored))
	assert.Equal(t, "c", restored[0].Item.name)
	// The original slice keeps its sorted order.
	assert.Equal(t, []int{1, 2, 0}, indexes(got))
}

func indexes(as []Assignment[job]) []int {
	out := make([]int, len(as))
	for i, a := range as {
		out[i] = a.Index
	}
	return out
}

func TestMaxConcurrent(t *testing.T) {
	tests := []struct {
		name string
		jobs []job
		want int
	}{
		{name: "empty", want: 0},
		{name: "touching", jobs: []job{{"a", 0, 10}, {"b", 10, 20}}, want: 1},
		{name: "nested", jobs: []job{{"a", 0, 100}, {"b", 10, 20}, {"c", 15, 30}}, want: 3},
		{name: "degenerate ignored", jobs: []job{{"a", 0, 10}, {"b", 5, 5}, {"c", 8, 2}}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxConcurrent(tt.jobs))
		})
	}
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(job{"a", 0, 10}, job{"b", 9, 20}))
	assert.False(t, Overlaps(job{"a", 0, 10}, job{"b", 10, 20}))
	assert.False(t, Overlaps(job{"a", 10, 20}, job{"b", 0, 10}))
}

func randomJobs(rnd *rand.Rand, n int) []job {
	jobs := make([]job, n)
	for i := range jobs {
		start := rnd.Intn(500)
		jobs[i] = job{name: fmt.Sprintf("job-%d", i), start: start, end: start + 1 + rnd.Intn(120)}
	}
	return jobs
}

func TestAssignColors_Properties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		jobs := randomJobs(rnd, 1+rnd.Intn(40))
		paletteSize := 1 + rnd.Intn(7)

		got := AssignColors(jobs, paletteSize)
		require.Len(t, got, len(jobs))

		overflow := MaxConcurrent(jobs) > paletteSize
		anyFallback := false
		for i, a := range got {
			require.GreaterOrEqual(t, a.Color, 0)
			require.Less(t, a.Color, paletteSize)
			anyFallback = anyFallback || a.Fallback

			for _, b := range got[i+1:] {
				if a.Color == b.Color && Overlaps(a.Item, b.Item) {
					require.True(t, overflow, "collision without overflow: %+v %+v", a.Item, b.Item)
				}
			}
		}
		assert.Equal(t, overflow, anyFallback, "round %d", round)

		// Deterministic for the same input.
		again := AssignColors(jobs, paletteSize)
		require.Equal(t, got, again)

		// Re-running on the sorted output yields the same colors.
		sorted := make([]job, len(got))
		for i, a := range got {
			sorted[i] = a.Item
		}
		resorted := AssignColors(sorted, paletteSize)
		for i := range got {
			require.Equal(t, got[i].Color, resorted[i].Color)
			require.Equal(t, got[i].Item, resorted[i].Item)
		}
	}
}
