package alloc

import (
	"hash/fnv"
	"math/rand"
	"sync"
)

// indexPool hands out status-list indices from a uniformly shuffled
// permutation of [1, ListSize] instead of strict counter order, for
// high-contention deployments where sequential allocation would create
// a hot final few indices every concurrent allocator races toward as a
// list nears capacity. Grounded in
// 48963270_EbonyLouis-ssi-service's randomUniqueNum/
// GetNextStatusListRandomIndex Fisher-Yates sampler: build the
// permutation once per status credential, consume front-to-back
// thereafter — here "consuming position N" is simply reading
// permutation[counter], since the counter itself (persisted in Config,
// guarded by the transaction) is still what prevents two allocations
// from ever landing on the same position.
//
// This is purely a sharding/collision-avoidance strategy per spec §5,
// not a semantic change: Config's counter remains the sole source of
// truth for how many positions in a list are committed, this type only
// decides which physical bit a given counter value maps to. It is
// in-process and lazily rebuilt per process, which is fine — the
// permutation is a pure function of scid, so every process derives the
// same mapping independently.
type indexPool struct {
	mu    sync.Mutex
	perms map[string][]int
}

func newIndexPool() *indexPool {
	return &indexPool{perms: make(map[string][]int)}
}

// indexForCounter returns which [1, ListSize] position counter (1-based,
// the post-incremented LatestCredentialsIssuedCounter value) maps to.
func (p *indexPool) indexForCounter(scid string, counter int) int {
	p.mu.Lock()
	perm, ok := p.perms[scid]
	if !ok {
		perm = shuffledRange(ListSize, seedFor(scid))
		p.perms[scid] = perm
	}
	p.mu.Unlock()
	return perm[counter-1]
}

func seedFor(scid string) int64 {
	h := fnv.New64a()
	h.Write([]byte(scid))
	return int64(h.Sum64())
}

// shuffledRange returns a Fisher-Yates shuffle of [1, n].
func shuffledRange(n int, seed int64) []int {
	values := make([]int, n)
	for i := range values {
		values[i] = i + 1
	}
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(n, func(i, j int) { values[i], values[j] = values[j], values[i] })
	return values
}
