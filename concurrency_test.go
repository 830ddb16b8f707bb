package nearcache

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/unkn0wn-root/nearcache/sortedset"
	"github.com/unkn0wn-root/nearcache/store"
	"github.com/unkn0wn-root/nearcache/value"
)

// Views and notification handlers touch the same store, field maps and sorted sets
// from different goroutines. Run with -race.
func TestViewsInterleaveWithInvalidation(t *testing.T) {
	db, sub := newTestDB(t, nil)
	ctx := context.Background()

	strFetch := func(_ context.Context, keys []string) ([]value.Value, error) {
		out := make([]value.Value, len(keys))
		for i, k := range keys {
			out[i] = value.String("remote-" + k)
		}
		return out, nil
	}
	rangeFetch := func(_ context.Context, _ string, start, stop float64, _ sortedset.Exclude) (RangeResult, error) {
		var es []sortedset.Entry
		for i := 0; i < 10; i++ {
			es = append(es, sortedset.Entry{Member: value.String("m" + strconv.Itoa(i)), Score: float64(i)})
		}
		return RangeResult{Entries: es, KnownMin: &start, KnownMax: &stop}, nil
	}

	const (
		workers = 8
		iters   = 300
	)
	keys := []string{"k0", "k1", "k2", "k3"}
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				k := keys[(w+i)%len(keys)]
				switch (w + i) % 8 {
				case 0:
					if _, err := db.Strings().GetMulti(ctx, keys, strFetch); err != nil {
						errs <- err
						return
					}
				case 1:
					db.Strings().Append(k, "x")
				case 2:
					if _, err := db.SortedSets().RangeByScore(ctx, "z", sortedset.Query{Start: 0, Stop: 9}, rangeFetch); err != nil {
						errs <- err
						return
					}
				case 3:
					db.Hashes().Set("h", map[string]value.Value{"f" + strconv.Itoa(i%3): value.Int(int64(i))}, store.Always)
				case 4:
					sub.emit(detailedCh+k, "other:set")
				case 5:
					sub.emit(detailedCh+k, "other:rename_key:"+keys[(w+i+1)%len(keys)])
				case 6:
					sub.emit(detailedCh+"z", "other:zremrangebyscore:2-5-0")
					sub.emit(detailedCh+"h", "other:hset:f"+strconv.Itoa(i%3))
				case 7:
					sub.emit(basicCh+k, "expired")
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("view call failed: %v", err)
	}

	// every cached range is still one disjoint, ordered run
	zs, ok := db.SortedSets().lookup("z")
	if !ok {
		return
	}
	rs := zs.Ranges()
	for i := 1; i < len(rs); i++ {
		if rs[i-1].End >= rs[i].Start {
			t.Fatalf("ranges overlap after concurrent use: %+v", rs)
		}
	}
}
