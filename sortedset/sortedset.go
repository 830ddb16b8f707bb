// Package sortedset caches contiguous, provably complete score ranges of one remote
// sorted set.
//
// A Set holds disjoint ranges. Each range asserts that the remote set's members with a
// score inside the range's bounds are exactly the cached ones, so a range query that
// falls inside one range can be answered locally without risking a short answer.
// Bounds proven by the remote (the min/max of a range query) but holding no member are
// pinned with marker entries, which are never returned to callers.
package sortedset

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/nearcache/value"
)

// Entry is one member of a sorted set with its score.
type Entry struct {
	Member value.Value
	Score  float64
}

// Exclude marks which window bounds are exclusive. Values match the flag carried in
// zremrangebyscore events.
type Exclude uint8

const (
	ExcludeNone  Exclude = 0
	ExcludeStart Exclude = 1
	ExcludeStop  Exclude = 2
	ExcludeBoth  Exclude = ExcludeStart | ExcludeStop
)

func (e Exclude) Valid() bool { return e <= ExcludeBoth }

func (e Exclude) includes(score, lo, hi float64) bool {
	if e&ExcludeStart != 0 {
		if score <= lo {
			return false
		}
	} else if score < lo {
		return false
	}
	if e&ExcludeStop != 0 {
		return score < hi
	}
	return score <= hi
}

type Order uint8

const (
	Ascending Order = iota
	Descending
)

// Query is a score window read. Start <= Stop regardless of Order.
// Take <= 0 means no limit.
type Query struct {
	Start, Stop float64
	Exclude     Exclude
	Order       Order
	Skip        int64
	Take        int64
}

// Bounds describes one cached range, markers included in Size.
type Bounds struct {
	Start, End float64
	Size       int
}

type Set struct {
	mu     sync.Mutex
	ranges []*scoreRange // ordered by start, pairwise disjoint

	newMarker func() value.Value
}

func New() *Set {
	return &Set{newMarker: func() value.Value { return value.String(uuid.NewString()) }}
}

func (s *Set) marker(score float64) item {
	return item{Entry: Entry{Member: s.newMarker(), Score: score}, marker: true}
}

func (s *Set) sortRangesLocked() {
	sort.Slice(s.ranges, func(i, j int) bool { return s.ranges[i].start() < s.ranges[j].start() })
}

// Count is the number of cached entries across ranges, markers included.
func (s *Set) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.ranges {
		n += len(r.items)
	}
	return n
}

// Ranges snapshots the bounds of every cached range in score order.
func (s *Set) Ranges() []Bounds {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Bounds, 0, len(s.ranges))
	for _, r := range s.ranges {
		out = append(out, Bounds{Start: r.start(), End: r.end(), Size: len(r.items)})
	}
	return out
}

// Add records entries as one contiguous run, as returned by a single remote range query.
// knownMin/knownMax, when beyond the first/last score, extend the proven bounds with markers.
// Every range the new run overlaps is folded into one consolidated range; members of the
// run are first removed from wherever they were cached before.
func (s *Set) Add(entries []Entry, knownMin, knownMax *float64) {
	if len(entries) == 0 {
		return
	}
	run := make([]item, 0, len(entries)+2)
	for _, e := range entries {
		run = append(run, item{Entry: e})
	}
	sort.SliceStable(run, func(i, j int) bool { return run[i].Score < run[j].Score })

	s.mu.Lock()
	defer s.mu.Unlock()

	lo, hi := run[0].Score, run[len(run)-1].Score
	if knownMin != nil && *knownMin < lo {
		lo = *knownMin
		run = append([]item{s.marker(lo)}, run...)
	}
	if knownMax != nil && *knownMax > hi {
		hi = *knownMax
		run = append(run, s.marker(hi))
	}

	var merge []*scoreRange
	for _, r := range s.ranges {
		if r.overlaps(lo, hi) {
			merge = append(merge, r)
		}
	}

	members := make([]value.Value, len(entries))
	for i, e := range entries {
		members[i] = e.Member
	}
	s.removeLocked(members)

	if len(merge) > 0 {
		keep := s.ranges[:0]
		for _, r := range s.ranges {
			if !containsRange(merge, r) {
				keep = append(keep, r)
			}
		}
		s.ranges = keep
		for _, r := range merge {
			run = append(run, r.items...)
		}
	}
	s.ranges = append(s.ranges, newRange(run))
	s.sortRangesLocked()
}

func containsRange(rs []*scoreRange, r *scoreRange) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}

// Insert mirrors members written locally. A member is cached only when an existing range
// already covers its score; the range stays complete because the remote holds it there too.
// Any previous position of the member is dropped. Returns the number of entries placed.
func (s *Set) Insert(entries []Entry) int {
	if len(entries) == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]value.Value, len(entries))
	for i, e := range entries {
		members[i] = e.Member
	}
	s.removeLocked(members)

	placed := 0
	for _, e := range entries {
		for _, r := range s.ranges {
			if r.contains(e.Score) {
				r.insert(item{Entry: e})
				r.normalize()
				placed++
				break
			}
		}
	}
	return placed
}

// JoinRanges takes a run of members asserted to be contiguous in the remote set. If the
// cached entries, read in score order, contain exactly that run, every range the run
// touches is merged into one. Anything else leaves the set unchanged.
//
// Markers are skipped when they sit at a range edge, including the edges met in the
// middle of the run: those are exactly the gaps the caller vouches for. A marker inside
// a range never survives normalize, so it cannot break a run.
func (s *Set) JoinRanges(values []value.Value) {
	if len(values) <= 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var touched []*scoreRange
	idx := 0
scan:
	for _, r := range s.ranges {
		last := len(r.items) - 1
		for i, it := range r.items {
			if idx == len(values) {
				break scan
			}
			if it.marker {
				if idx > 0 && i != 0 && i != last {
					return
				}
				continue
			}
			if it.Member == values[idx] {
				if len(touched) == 0 || touched[len(touched)-1] != r {
					touched = append(touched, r)
				}
				idx++
				continue
			}
			if idx > 0 {
				return
			}
		}
	}
	if idx < len(values) || len(touched) < 2 {
		return
	}

	var items []item
	keep := s.ranges[:0]
	for _, r := range s.ranges {
		if containsRange(touched, r) {
			items = append(items, r.items...)
			continue
		}
		keep = append(keep, r)
	}
	s.ranges = append(keep, newRange(items))
	s.sortRangesLocked()
}

// Remove deletes members from every range and returns how many were found.
// A range left empty, or holding only markers, is discarded.
func (s *Set) Remove(values ...value.Value) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(values)
}

func (s *Set) removeLocked(values []value.Value) int {
	if len(values) == 0 || len(s.ranges) == 0 {
		return 0
	}
	pending := make(map[value.Value]struct{}, len(values))
	for _, v := range values {
		pending[v] = struct{}{}
	}
	removed := 0
	for _, r := range s.ranges {
		for i := len(r.items) - 1; i >= 0; i-- {
			it := r.items[i]
			if it.marker {
				continue
			}
			if _, ok := pending[it.Member]; ok {
				r.removeAt(i)
				delete(pending, it.Member)
				removed++
			}
		}
		if len(pending) == 0 {
			break
		}
	}
	s.dropHollowLocked()
	return removed
}

// RemoveByScore deletes real entries inside the window from every range it intersects.
// Ranges left without real entries are discarded, same as Remove.
func (s *Set) RemoveByScore(start, stop float64, ex Exclude) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, r := range s.ranges {
		if !r.overlaps(start, stop) {
			continue
		}
		kept := r.items[:0]
		for _, it := range r.items {
			if !it.marker && ex.includes(it.Score, start, stop) {
				removed++
				continue
			}
			kept = append(kept, it)
		}
		r.items = kept
	}
	s.dropHollowLocked()
	return removed
}

func (s *Set) dropHollowLocked() {
	keep := s.ranges[:0]
	for _, r := range s.ranges {
		if r.markersOnly() {
			continue
		}
		keep = append(keep, r)
	}
	for i := len(keep); i < len(s.ranges); i++ {
		s.ranges[i] = nil
	}
	s.ranges = keep
}

// RetrieveByScore answers q from cache. complete is false when the cache cannot prove the
// answer (ask the remote), which is distinct from a complete, empty answer.
//
// The range holding the query's leading bound (Start ascending, Stop descending) is used.
// The answer is complete when that range also holds the trailing bound, or when the range
// stops short of it but Take entries were already found.
func (s *Set) RetrieveByScore(q Query) (entries []Entry, complete bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, trail := q.Start, q.Stop
	if q.Order == Descending {
		lead, trail = q.Stop, q.Start
	}
	var r *scoreRange
	for _, x := range s.ranges {
		if x.contains(lead) {
			r = x
			break
		}
	}
	if r == nil {
		return nil, false
	}

	res := order(r.window(q.Start, q.Stop, q.Exclude), q)

	switch {
	case r.contains(trail):
		return res, true
	case q.Take > 0 && int64(len(res)) == q.Take:
		return res, true
	default:
		return nil, false
	}
}

// RetrieveEntry finds a cached member.
func (s *Set) RetrieveEntry(m value.Value) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.ranges {
		if i := r.indexOf(m); i >= 0 && !r.items[i].marker {
			return r.items[i].Entry, true
		}
	}
	return Entry{}, false
}

// RetrieveScoreByValue returns the cached score of a member.
func (s *Set) RetrieveScoreByValue(m value.Value) (float64, bool) {
	e, ok := s.RetrieveEntry(m)
	return e.Score, ok
}

// RetrieveEntryByHash finds the member whose value.StableHash equals h. Keyspace events
// for sorted sets carry this hash rather than the member.
func (s *Set) RetrieveEntryByHash(h uint64) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byHashLocked(h)
}

func (s *Set) byHashLocked(h uint64) (Entry, bool) {
	for _, r := range s.ranges {
		for _, it := range r.items {
			if !it.marker && value.StableHash(it.Member) == h {
				return it.Entry, true
			}
		}
	}
	return Entry{}, false
}

// RemoveByHash removes the member whose stable hash equals h, in one locked step.
func (s *Set) RemoveByHash(h uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byHashLocked(h)
	if !ok {
		return false
	}
	return s.removeLocked([]value.Value{e.Member}) == 1
}

// Select applies q's window, order, skip and take to entries sorted ascending by score.
// It is what RetrieveByScore does inside one range, for callers holding a fetched run.
func Select(asc []Entry, q Query) []Entry {
	var res []Entry
	for _, e := range asc {
		if q.Exclude.includes(e.Score, q.Start, q.Stop) {
			res = append(res, e)
		}
	}
	return order(res, q)
}

// order reverses for Descending, then applies Skip and Take. res is owned by the caller.
func order(res []Entry, q Query) []Entry {
	if q.Order == Descending {
		for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
			res[i], res[j] = res[j], res[i]
		}
	}
	if q.Skip > 0 {
		if q.Skip >= int64(len(res)) {
			res = res[:0]
		} else {
			res = res[q.Skip:]
		}
	}
	if q.Take > 0 && int64(len(res)) > q.Take {
		res = res[:q.Take]
	}
	return res
}
