package benchmarks

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/randalmurphal/eventlink/pkg/eventlink/correlation"
)

// BenchmarkStore_RegisterResolveAwait measures one full request lifecycle
// with the response arriving before the wait starts.
func BenchmarkStore_RegisterResolveAwait(b *testing.B) {
	store := correlation.NewStore(correlation.WithLogger(quietLogger()))
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := "user_" + strconv.Itoa(i)
		_ = store.Register(id, correlation.KindUser)
		store.Resolve(id, i)
		_ = correlation.Await(ctx, store, id, time.Second, -1)
	}
}

// BenchmarkStore_Parallel runs independent request lifecycles concurrently.
func BenchmarkStore_Parallel(b *testing.B) {
	store := correlation.NewStore(correlation.WithLogger(quietLogger()))
	ctx := context.Background()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			id := correlation.NewRequestID("comment")
			_ = store.Register(id, correlation.KindComment)
			store.Resolve(id, true)
			_ = correlation.Await(ctx, store, id, time.Second, false)
		}
	})
}

// BenchmarkStore_RegisterWithBacklog measures Register while 1000 entries
// are outstanding, which includes the lazy sweep scan.
func BenchmarkStore_RegisterWithBacklog(b *testing.B) {
	store := correlation.NewStore(correlation.WithLogger(quietLogger()))
	for i := 0; i < 1000; i++ {
		_ = store.Register("backlog_"+strconv.Itoa(i), correlation.KindInteraction)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := "req_" + strconv.Itoa(i)
		_ = store.Register(id, correlation.KindUser)
		store.Cancel(id)
	}
}
