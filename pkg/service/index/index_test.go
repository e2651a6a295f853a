package index_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/service/index"
)

func unit(t *testing.T, v ...float32) []float32 {
	t.Helper()
	out, err := model.NormalizeEmbedding(v, len(v))
	gt.NoError(t, err).Required()
	return out
}

func TestQueryOrdersByScore(t *testing.T) {
	ctx := context.Background()
	x := index.New(2)
	gt.NoError(t, x.Add("a", unit(t, 1, 0))).Required()
	gt.NoError(t, x.Add("b", unit(t, 0, 1))).Required()
	gt.NoError(t, x.Add("c", unit(t, 1, 1))).Required()

	hits, err := x.Query(ctx, unit(t, 1, 0), 3)
	gt.NoError(t, err).Required()
	gt.Array(t, hits).Length(3).Required()
	gt.Value(t, hits[0].ID).Equal(model.BottleID("a"))
	gt.Value(t, hits[1].ID).Equal(model.BottleID("c"))
	gt.Value(t, hits[2].ID).Equal(model.BottleID("b"))
	gt.Value(t, hits[0].Score).Equal(1.0)
	gt.Value(t, hits[2].Score).Equal(0.0)
}

func TestQueryLimitsToK(t *testing.T) {
	x := index.New(2)
	gt.NoError(t, x.Add("a", unit(t, 1, 0))).Required()
	gt.NoError(t, x.Add("b", unit(t, 0, 1))).Required()

	hits, err := x.Query(context.Background(), unit(t, 0, 1), 1)
	gt.NoError(t, err).Required()
	gt.Array(t, hits).Length(1).Required()
	gt.Value(t, hits[0].ID).Equal(model.BottleID("b"))

	hits, err = x.Query(context.Background(), unit(t, 0, 1), 10)
	gt.NoError(t, err).Required()
	gt.Array(t, hits).Length(2)
}

func TestQueryTieBreakByInsertionOrder(t *testing.T) {
	x := index.New(2)
	v := unit(t, 1, 1)
	for _, id := range []model.BottleID{"first", "second", "third"} {
		gt.NoError(t, x.Add(id, v)).Required()
	}

	for i := 0; i < 5; i++ {
		hits, err := x.Query(context.Background(), v, 3)
		gt.NoError(t, err).Required()
		gt.Value(t, hits[0].ID).Equal(model.BottleID("first"))
		gt.Value(t, hits[1].ID).Equal(model.BottleID("second"))
		gt.Value(t, hits[2].ID).Equal(model.BottleID("third"))
	}

	hits, err := x.Query(context.Background(), v, 2)
	gt.NoError(t, err).Required()
	gt.Value(t, hits[0].ID).Equal(model.BottleID("first"))
	gt.Value(t, hits[1].ID).Equal(model.BottleID("second"))
}

func TestQueryErrors(t *testing.T) {
	x := index.New(2)
	gt.NoError(t, x.Add("a", unit(t, 1, 0))).Required()

	t.Run("non-positive k", func(t *testing.T) {
		for _, k := range []int{0, -1} {
			_, err := x.Query(context.Background(), unit(t, 1, 0), k)
			gt.Bool(t, errors.Is(err, model.ErrInvalidQuery)).True()
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := x.Query(context.Background(), unit(t, 1, 0, 0), 1)
		gt.Bool(t, errors.Is(err, model.ErrInvalidEmbedding)).True()
	})
}

func TestQueryEmptyIndex(t *testing.T) {
	hits, err := index.New(2).Query(context.Background(), unit(t, 1, 0), 3)
	gt.NoError(t, err).Required()
	gt.Bool(t, hits != nil).True()
	gt.Array(t, hits).Length(0)

	_, err = index.New(2).Query(context.Background(), unit(t, 1, 0), 0)
	gt.Bool(t, errors.Is(err, model.ErrInvalidQuery)).True()
}

func TestAddOverwriteKeepsPosition(t *testing.T) {
	x := index.New(2)
	gt.NoError(t, x.Add("x", unit(t, 1, 0))).Required()
	gt.NoError(t, x.Add("y", unit(t, 1, 0))).Required()
	gt.NoError(t, x.Add("x", unit(t, 0, 1))).Required()
	gt.Value(t, x.Len()).Equal(2)

	hits, err := x.Query(context.Background(), unit(t, 0, 1), 1)
	gt.NoError(t, err).Required()
	gt.Value(t, hits[0].ID).Equal(model.BottleID("x"))
	gt.Value(t, hits[0].Score).Equal(1.0)

	// overwritten vector no longer matches the old direction
	hits, err = x.Query(context.Background(), unit(t, 1, 0), 2)
	gt.NoError(t, err).Required()
	gt.Value(t, hits[0].ID).Equal(model.BottleID("y"))

	// ties still rank x first because it kept its slot
	gt.NoError(t, x.Add("y", unit(t, 0, 1))).Required()
	hits, err = x.Query(context.Background(), unit(t, 0, 1), 2)
	gt.NoError(t, err).Required()
	gt.Value(t, hits[0].ID).Equal(model.BottleID("x"))
	gt.Value(t, hits[1].ID).Equal(model.BottleID("y"))
}

func TestAddRejectsWrongDimension(t *testing.T) {
	x := index.New(3)
	err := x.Add("a", []float32{1, 0})
	gt.Bool(t, errors.Is(err, model.ErrInvalidEmbedding)).True()
	gt.Value(t, x.Len()).Equal(0)
}

func TestRemove(t *testing.T) {
	x := index.New(2)
	gt.NoError(t, x.Add("a", unit(t, 1, 1))).Required()
	gt.NoError(t, x.Add("b", unit(t, 1, 1))).Required()
	gt.NoError(t, x.Add("c", unit(t, 1, 1))).Required()

	gt.Bool(t, x.Remove("b")).True()
	gt.Bool(t, x.Remove("b")).False()
	gt.Bool(t, x.Contains("b")).False()

	hits, err := x.Query(context.Background(), unit(t, 1, 1), 3)
	gt.NoError(t, err).Required()
	gt.Array(t, hits).Length(2).Required()
	gt.Value(t, hits[0].ID).Equal(model.BottleID("a"))
	gt.Value(t, hits[1].ID).Equal(model.BottleID("c"))

	v, ok := x.Vector("c")
	gt.Bool(t, ok).True()
	gt.Array(t, v).Length(2)
}

func TestRebuild(t *testing.T) {
	x := index.New(2)
	gt.NoError(t, x.Add("stale", unit(t, 1, 0))).Required()

	err := x.Rebuild(
		[]model.BottleID{"a", "b"},
		[][]float32{unit(t, 1, 0), unit(t, 0, 1)},
	)
	gt.NoError(t, err).Required()
	gt.Value(t, x.Len()).Equal(2)
	gt.Bool(t, x.Contains("stale")).False()

	t.Run("rejects duplicates", func(t *testing.T) {
		err := index.New(2).Rebuild(
			[]model.BottleID{"a", "a"},
			[][]float32{unit(t, 1, 0), unit(t, 0, 1)},
		)
		gt.Value(t, err).NotNil()
	})

	t.Run("rejects length mismatch", func(t *testing.T) {
		err := index.New(2).Rebuild([]model.BottleID{"a"}, nil)
		gt.Value(t, err).NotNil()
	})

	t.Run("rejects inconsistent dimension", func(t *testing.T) {
		err := index.New(2).Rebuild([]model.BottleID{"a"}, [][]float32{{1, 0, 0}})
		gt.Bool(t, errors.Is(err, model.ErrInvalidEmbedding)).True()
	})
}

func TestCloneIsIndependent(t *testing.T) {
	x := index.New(2)
	gt.NoError(t, x.Add("a", unit(t, 1, 0))).Required()
	gt.NoError(t, x.Add("b", unit(t, 0, 1))).Required()

	c := x.Clone()
	gt.NoError(t, c.Add("c", unit(t, 1, 1))).Required()
	gt.NoError(t, c.Add("a", unit(t, 0, 1))).Required()
	gt.Bool(t, c.Remove("b")).True()

	gt.Value(t, x.Len()).Equal(2)
	gt.Bool(t, x.Contains("b")).True()
	hits, err := x.Query(context.Background(), unit(t, 1, 0), 1)
	gt.NoError(t, err).Required()
	gt.Value(t, hits[0].ID).Equal(model.BottleID("a"))
	gt.Value(t, hits[0].Score).Equal(1.0)
}

func TestParallelScanMatchesSequential(t *testing.T) {
	const (
		dim = 16
		n   = 500
	)
	rng := rand.New(rand.NewPCG(7, 11))
	randomUnit := func() []float32 {
		v := make([]float32, dim)
		for i := range v {
			v[i] = float32(rng.NormFloat64())
		}
		return unit(t, v...)
	}

	seq := index.New(dim, index.WithParallelThreshold(0))
	par := index.New(dim, index.WithParallelThreshold(10), index.WithWorkers(4))
	for i := 0; i < n; i++ {
		v := randomUnit()
		id := model.BottleID(fmt.Sprintf("bottle-%03d", i))
		gt.NoError(t, seq.Add(id, v)).Required()
		gt.NoError(t, par.Add(id, v)).Required()
	}

	for q := 0; q < 10; q++ {
		query := randomUnit()
		want, err := seq.Query(context.Background(), query, 7)
		gt.NoError(t, err).Required()
		got, err := par.Query(context.Background(), query, 7)
		gt.NoError(t, err).Required()
		gt.Value(t, got).Equal(want)

		for i := 1; i < len(got); i++ {
			gt.Bool(t, got[i-1].Score >= got[i].Score).True()
		}
	}
}
