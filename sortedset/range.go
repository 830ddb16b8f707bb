package sortedset

import (
	"sort"

	"github.com/unkn0wn-root/nearcache/value"
)

// item is an Entry plus whether it is a marker. Markers carry a generated, unique
// member and exist only to pin a proven score boundary.
type item struct {
	Entry
	marker bool
}

func less(a, b item) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Member.String() < b.Member.String()
}

// scoreRange is a run of items ordered by score. Whatever the remote set holds with a
// score in [start, end] is exactly the real items of the run.
type scoreRange struct {
	items []item
}

func newRange(items []item) *scoreRange {
	r := &scoreRange{items: items}
	r.normalize()
	return r
}

func (r *scoreRange) start() float64 { return r.items[0].Score }
func (r *scoreRange) end() float64   { return r.items[len(r.items)-1].Score }

func (r *scoreRange) contains(score float64) bool {
	return len(r.items) > 0 && r.start() <= score && score <= r.end()
}

func (r *scoreRange) overlaps(lo, hi float64) bool {
	return len(r.items) > 0 && r.start() <= hi && r.end() >= lo
}

// normalize sorts, keeps the last occurrence of a duplicated member and drops markers
// that no longer sit at either edge: surrounded by real data they prove nothing.
func (r *scoreRange) normalize() {
	seen := make(map[value.Value]int, len(r.items))
	dedup := r.items[:0]
	for _, it := range r.items {
		if i, ok := seen[it.Member]; ok {
			dedup[i] = it
			continue
		}
		seen[it.Member] = len(dedup)
		dedup = append(dedup, it)
	}
	sort.SliceStable(dedup, func(i, j int) bool { return less(dedup[i], dedup[j]) })

	out := dedup[:0]
	last := len(dedup) - 1
	for i, it := range dedup {
		if it.marker && i != 0 && i != last {
			continue
		}
		out = append(out, it)
	}
	r.items = out
}

func (r *scoreRange) indexOf(m value.Value) int {
	for i, it := range r.items {
		if it.Member == m {
			return i
		}
	}
	return -1
}

func (r *scoreRange) removeAt(i int) {
	r.items = append(r.items[:i], r.items[i+1:]...)
}

// insert places a real item keeping score order. The caller ensures the member is not present.
func (r *scoreRange) insert(it item) {
	i := sort.Search(len(r.items), func(i int) bool { return less(it, r.items[i]) })
	r.items = append(r.items, item{})
	copy(r.items[i+1:], r.items[i:])
	r.items[i] = it
}

// markersOnly reports whether nothing but markers is left (or nothing at all).
func (r *scoreRange) markersOnly() bool {
	for _, it := range r.items {
		if !it.marker {
			return false
		}
	}
	return true
}

// window returns the real entries within [lo, hi] honoring exclude, ascending.
func (r *scoreRange) window(lo, hi float64, ex Exclude) []Entry {
	var out []Entry
	for _, it := range r.items {
		if it.marker || !ex.includes(it.Score, lo, hi) {
			continue
		}
		out = append(out, it.Entry)
	}
	return out
}
