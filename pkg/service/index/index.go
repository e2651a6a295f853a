// Package index implements the similarity index over catalog embeddings.
//
// The index performs an exact brute-force scan: cosine similarity is the plain
// inner product of unit vectors, so every stored vector and every query must
// already be normalized. Results are ordered by decreasing score, and equal
// scores are ordered by insertion position so ranking is deterministic.
//
// An Index is not safe for concurrent mutation. Concurrent Query calls on an
// index that is no longer mutated are safe, which is how the catalog uses it:
// mutations happen on a Clone that is published only when complete.
package index

import (
	"container/heap"
	"context"
	"runtime"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelThreshold is the catalog size from which Query splits the
// scan across goroutines
const DefaultParallelThreshold = 16384

// Hit is one query result
type Hit struct {
	ID    model.BottleID
	Score float64
}

// Index is an exact top-k cosine similarity index
type Index struct {
	dim  int
	ids  []model.BottleID
	vecs [][]float32
	pos  map[model.BottleID]int

	parallelThreshold int
	workers           int
}

// Option is a functional option for Index configuration
type Option func(*Index)

// WithParallelThreshold sets the number of entries from which a query scan
// runs in parallel. Zero or negative disables parallel scans.
func WithParallelThreshold(n int) Option {
	return func(x *Index) {
		x.parallelThreshold = n
	}
}

// WithWorkers sets the number of goroutines used by a parallel scan
func WithWorkers(n int) Option {
	return func(x *Index) {
		if n > 0 {
			x.workers = n
		}
	}
}

// New creates an empty index for vectors of dimension dim
func New(dim int, opts ...Option) *Index {
	x := &Index{
		dim:               dim,
		pos:               make(map[model.BottleID]int),
		parallelThreshold: DefaultParallelThreshold,
		workers:           runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Dimension returns the vector dimension of the index
func (x *Index) Dimension() int {
	return x.dim
}

// Len returns the number of indexed vectors
func (x *Index) Len() int {
	return len(x.ids)
}

// Contains reports whether id is indexed
func (x *Index) Contains(id model.BottleID) bool {
	_, ok := x.pos[id]
	return ok
}

// Vector returns the stored vector for id. The returned slice must not be modified.
func (x *Index) Vector(id model.BottleID) ([]float32, bool) {
	p, ok := x.pos[id]
	if !ok {
		return nil, false
	}
	return x.vecs[p], true
}

// Rebuild discards all entries and indexes ids and vectors from scratch.
// Insertion order follows the order of ids. Duplicate ids are rejected.
func (x *Index) Rebuild(ids []model.BottleID, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return goerr.New("ids and vectors length mismatch",
			goerr.V("ids", len(ids)),
			goerr.V("vectors", len(vectors)),
		)
	}

	pos := make(map[model.BottleID]int, len(ids))
	for i, id := range ids {
		if len(vectors[i]) != x.dim {
			return goerr.Wrap(model.ErrInvalidEmbedding, "vector dimension mismatch",
				goerr.V(model.BottleIDKey, id),
				goerr.V(model.DimensionKey, len(vectors[i])),
				goerr.V(model.ExpectedKey, x.dim),
			)
		}
		if _, dup := pos[id]; dup {
			return goerr.New("duplicate id in rebuild", goerr.V(model.BottleIDKey, id))
		}
		pos[id] = i
	}

	x.ids = append([]model.BottleID(nil), ids...)
	x.vecs = append([][]float32(nil), vectors...)
	x.pos = pos
	return nil
}

// Add indexes vector under id. An existing entry for id is replaced and keeps
// its original insertion position.
func (x *Index) Add(id model.BottleID, vector []float32) error {
	if len(vector) != x.dim {
		return goerr.Wrap(model.ErrInvalidEmbedding, "vector dimension mismatch",
			goerr.V(model.BottleIDKey, id),
			goerr.V(model.DimensionKey, len(vector)),
			goerr.V(model.ExpectedKey, x.dim),
		)
	}

	if p, ok := x.pos[id]; ok {
		x.vecs[p] = vector
		return nil
	}

	x.pos[id] = len(x.ids)
	x.ids = append(x.ids, id)
	x.vecs = append(x.vecs, vector)
	return nil
}

// Remove drops id from the index and reports whether it was present. Later
// entries keep their relative order.
func (x *Index) Remove(id model.BottleID) bool {
	p, ok := x.pos[id]
	if !ok {
		return false
	}

	x.ids = append(x.ids[:p:p], x.ids[p+1:]...)
	x.vecs = append(x.vecs[:p:p], x.vecs[p+1:]...)
	delete(x.pos, id)
	for i := p; i < len(x.ids); i++ {
		x.pos[x.ids[i]] = i
	}
	return true
}

// Clone returns an index that can be mutated without affecting x. Vectors are
// shared because they are never modified after insertion.
func (x *Index) Clone() *Index {
	pos := make(map[model.BottleID]int, len(x.pos))
	for id, p := range x.pos {
		pos[id] = p
	}
	return &Index{
		dim:               x.dim,
		ids:               append([]model.BottleID(nil), x.ids...),
		vecs:              append([][]float32(nil), x.vecs...),
		pos:               pos,
		parallelThreshold: x.parallelThreshold,
		workers:           x.workers,
	}
}

// Query returns up to k hits ordered by decreasing score, ties broken by
// insertion order. The query must be unit-normalized. An empty index returns
// an empty result.
func (x *Index) Query(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidQuery, "k must be positive", goerr.V(model.TopKKey, k))
	}
	if len(query) != x.dim {
		return nil, goerr.Wrap(model.ErrInvalidEmbedding, "query dimension mismatch",
			goerr.V(model.DimensionKey, len(query)),
			goerr.V(model.ExpectedKey, x.dim),
		)
	}
	if len(x.ids) == 0 {
		return []Hit{}, nil
	}

	scores, err := x.scan(ctx, query)
	if err != nil {
		return nil, err
	}

	top := selectTop(scores, k)
	hits := make([]Hit, len(top))
	for i, p := range top {
		hits[i] = Hit{ID: x.ids[p], Score: scores[p]}
	}
	return hits, nil
}

func (x *Index) scan(ctx context.Context, query []float32) ([]float64, error) {
	scores := make([]float64, len(x.vecs))

	if x.parallelThreshold <= 0 || len(x.vecs) < x.parallelThreshold || x.workers < 2 {
		for i, v := range x.vecs {
			scores[i] = dot(query, v)
		}
		return scores, nil
	}

	chunk := (len(x.vecs) + x.workers - 1) / x.workers
	eg, ctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(x.vecs); lo += chunk {
		hi := min(lo+chunk, len(x.vecs))
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				if (i-lo)%4096 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				scores[i] = dot(query, x.vecs[i])
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, goerr.Wrap(err, "similarity scan aborted")
	}
	return scores, nil
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// selectTop returns the positions of the k best scores, best first
func selectTop(scores []float64, k int) []int {
	k = min(k, len(scores))
	h := &worstFirst{scores: scores, pos: make([]int, 0, k)}
	for p := range scores {
		if h.Len() < k {
			heap.Push(h, p)
			continue
		}
		if better(scores, p, h.pos[0]) {
			h.pos[0] = p
			heap.Fix(h, 0)
		}
	}

	out := make([]int, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(int)
	}
	return out
}

// better orders by score descending, then insertion position ascending
func better(scores []float64, a, b int) bool {
	if scores[a] != scores[b] {
		return scores[a] > scores[b]
	}
	return a < b
}

// worstFirst is a heap of positions whose root is the worst kept hit
type worstFirst struct {
	scores []float64
	pos    []int
}

func (h *worstFirst) Len() int           { return len(h.pos) }
func (h *worstFirst) Less(i, j int) bool { return better(h.scores, h.pos[j], h.pos[i]) }
func (h *worstFirst) Swap(i, j int)      { h.pos[i], h.pos[j] = h.pos[j], h.pos[i] }
func (h *worstFirst) Push(v any)         { h.pos = append(h.pos, v.(int)) }
func (h *worstFirst) Pop() any {
	last := h.pos[len(h.pos)-1]
	h.pos = h.pos[:len(h.pos)-1]
	return last
}
