package pod

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/utils"
)

func identityBasis(n int) *mat.Dense {
	V := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		V.Set(i, i, 1)
	}
	return V
}

func checkPartition(t *testing.T, rb *ReducedBasis) {
	var (
		seen = make(map[int]int)
	)
	for _, j := range rb.Coarse() {
		seen[j]++
		assert.True(t, rb.IsCoarse(j))
	}
	for _, j := range rb.Fine() {
		seen[j]++
		assert.False(t, rb.IsCoarse(j))
	}
	assert.Equal(t, rb.Size(), len(seen))
	for j := 0; j < rb.Size(); j++ {
		assert.Equal(t, 1, seen[j], "column %d", j)
	}
}

func TestNewReducedBasis(t *testing.T) {
	{
		rb, err := NewReducedBasis(identityBasis(5), utils.Index{3, 0})
		require.NoError(t, err)
		assert.Equal(t, utils.Index{3, 0}, rb.Coarse())
		assert.Equal(t, utils.Index{1, 2, 4}, rb.Fine())
		assert.Equal(t, 5, rb.Size())
		assert.Equal(t, 5, rb.FullDimension())
		checkPartition(t, rb)
	}
	{
		_, err := NewReducedBasis(identityBasis(3), utils.Index{0, 0})
		assert.True(t, errors.Is(err, ErrInvalidMutation))
		_, err = NewReducedBasis(identityBasis(3), utils.Index{3})
		assert.True(t, errors.Is(err, ErrInvalidMutation))
		_, err = NewReducedBasis(nil, nil)
		assert.True(t, errors.Is(err, ErrInvalidMutation))
	}
}

func TestPromote(t *testing.T) {
	// Promotion preserves identity and order
	{
		rb, err := NewReducedBasis(identityBasis(4), utils.Index{})
		require.NoError(t, err)
		require.NoError(t, rb.Promote(utils.Index{2, 0}))
		assert.Equal(t, utils.Index{2, 0}, rb.Coarse())
		assert.Equal(t, utils.Index{1, 3}, rb.Fine())
		// Promoted columns stay coarse for the rest of the run
		require.NoError(t, rb.Promote(utils.Index{3}))
		assert.True(t, rb.IsCoarse(2))
		assert.True(t, rb.IsCoarse(0))
		require.NoError(t, rb.Promote(utils.Index{}))
		assert.Equal(t, utils.Index{2, 0, 3}, rb.Coarse())
	}
	// Atomic rejection: nothing moves when any entry is bad
	{
		bad := []utils.Index{
			{1, 99},   // out of range
			{1, -1},   // negative
			{1, 3, 1}, // duplicate
			{1, 0},    // already coarse
		}
		for _, I := range bad {
			rb, err := NewReducedBasis(identityBasis(4), utils.Index{0})
			require.NoError(t, err)
			err = rb.Promote(I)
			assert.True(t, errors.Is(err, ErrInvalidMutation), "request %v", I)
			assert.Equal(t, utils.Index{0}, rb.Coarse())
			assert.Equal(t, utils.Index{1, 2, 3}, rb.Fine())
		}
	}
	// Random promotion sequences keep the partition disjoint and covering
	{
		var (
			rng = rand.New(rand.NewSource(1))
			N   = 12
		)
		for trial := 0; trial < 50; trial++ {
			rb, err := NewReducedBasis(identityBasis(N), utils.Index{rng.Intn(N)})
			require.NoError(t, err)
			for step := 0; step < 10; step++ {
				var I utils.Index
				for k := rng.Intn(4); k >= 0; k-- {
					I = append(I, rng.Intn(N+2)-1)
				}
				before := rb.Coarse()
				if err = rb.Promote(I); err != nil {
					assert.Equal(t, before, rb.Coarse())
				}
				checkPartition(t, rb)
			}
		}
	}
}

func TestProjection(t *testing.T) {
	// Two orthonormal columns in R^3
	s := 1. / math.Sqrt(2)
	V := mat.NewDense(3, 2, []float64{
		s, 0,
		s, 0,
		0, 1,
	})
	rb, err := NewReducedBasis(V, utils.Index{0})
	require.NoError(t, err)
	x := mat.NewVecDense(3, []float64{1, 3, 5})
	{
		a := rb.Project(rb.Fine(), x)
		assert.InDeltaSlice(t, []float64{5}, a.RawVector().Data, 1.e-14)
		a = rb.Project(utils.Index{0, 1}, x)
		assert.InDeltaSlice(t, []float64{4 * s, 5}, a.RawVector().Data, 1.e-14)
		assert.Equal(t, 0, rb.Project(utils.Index{}, x).Len())
	}
	{
		y := rb.Expand(utils.Index{0, 1}, mat.NewVecDense(2, []float64{2 * s, 5}))
		assert.InDeltaSlice(t, []float64{1, 1, 5}, y.RawVector().Data, 1.e-14)
	}
	{
		A := mat.NewDense(3, 3, []float64{
			1, 2, 0,
			0, 3, 0,
			0, 0, 7,
		})
		Ar := rb.ReduceOperator(utils.Index{1, 0}, A)
		// [v1 v0]^T A [v1 v0]
		assert.InDeltaSlice(t, []float64{7, 0, 0, 3}, Ar.RawMatrix().Data, 1.e-14)
	}
	assert.Panics(t, func() { rb.Project(utils.Index{0}, mat.NewVecDense(2, nil)) })
}

func TestNewFromSnapshots(t *testing.T) {
	// Rank two snapshot set in R^4
	S := mat.NewDense(4, 3, []float64{
		1, 2, 3,
		1, 2, 3,
		0, 1, 1,
		0, 1, 1,
	})
	rb, err := NewFromSnapshots(S, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, rb.FullDimension())
	assert.Equal(t, 2, rb.Size())
	assert.Equal(t, utils.Index{0}, rb.Coarse())
	assert.Equal(t, utils.Index{1}, rb.Fine())
	require.Len(t, rb.SingularValues, 2)
	assert.True(t, rb.SingularValues[0] >= rb.SingularValues[1])
	// Columns are orthonormal
	var G mat.Dense
	G.Mul(rb.V.T(), rb.V)
	assert.InDelta(t, 1., G.At(0, 0), 1.e-12)
	assert.InDelta(t, 1., G.At(1, 1), 1.e-12)
	assert.InDelta(t, 0., G.At(0, 1), 1.e-12)
	// Every snapshot is reproduced by the two modes
	all := utils.Index{0, 1}
	for j := 0; j < 3; j++ {
		col := S.ColView(j)
		rec := rb.Expand(all, rb.Project(all, col))
		assert.InDeltaSlice(t, utils.VecGetF64(col), rec.RawVector().Data, 1.e-12)
	}

	_, err = NewFromSnapshots(S, 4, 1)
	assert.Error(t, err)
	_, err = NewFromSnapshots(S, 2, 3)
	assert.Error(t, err)

	var buf bytes.Buffer
	rb.Print(&buf)
	assert.Contains(t, buf.String(), "POD basis: 4 x 2")

	// Partition dumps are ascending whatever the promotion order
	rb, err = NewReducedBasis(identityBasis(5), utils.Index{3, 0})
	require.NoError(t, err)
	require.NoError(t, rb.Promote(utils.Index{4, 1}))
	assert.Equal(t, utils.Index{3, 0, 4, 1}, rb.Coarse())
	buf.Reset()
	rb.Print(&buf)
	assert.Contains(t, buf.String(), "coarse = [0 1 3 4], fine = [2]")
}
