package coastline

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/gridtrack/raster"
)

func mustMask(t testing.TB, rows [][]bool) *raster.Mask {
	t.Helper()
	m, err := raster.NewMask(rows)
	require.NoError(t, err)
	return m
}

func TestBuildSingleOceanCorner(t *testing.T) {
	// Ocean at (0, 0), land elsewhere
	mask := mustMask(t, [][]bool{
		{false, true, true},
		{true, true, true},
		{true, true, true},
	})

	b := &Builder{}
	grid, err := b.Build(context.Background(), mask)
	require.NoError(t, err)

	want := map[[2]int]float64{
		{0, 0}: 0,
		{1, 0}: 0,
		{0, 1}: 0,
		{1, 1}: 1,
		{2, 0}: 1,
		{0, 2}: 1,
		{2, 1}: math.Sqrt2,
		{1, 2}: math.Sqrt2,
		{2, 2}: math.Sqrt(5),
	}
	for xy, d := range want {
		assert.InDelta(t, d, grid.At(xy[0], xy[1]), 1e-12, "pixel %v", xy)
	}
}

func TestBuildReportsProgress(t *testing.T) {
	mask := mustMask(t, [][]bool{
		{false, false, true, true},
		{false, false, true, true},
	})

	var calls [][2]int
	b := &Builder{Progress: func(done, total int) {
		calls = append(calls, [2]int{done, total})
	}}
	_, err := b.Build(context.Background(), mask)
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{1, 4}, {2, 4}, {3, 4}, {4, 4}}, calls)
}

func TestBuildFallsBackToBreadthFirst(t *testing.T) {
	mask := mustMask(t, [][]bool{{true, false, false, false, false}})

	var buf bytes.Buffer
	b := &Builder{MaxRadius: 1, Logger: log.New(&buf, "", 0)}
	grid, err := b.Build(context.Background(), mask)
	require.NoError(t, err)

	assert.Equal(t, 0.0, grid.At(0, 0))
	assert.Equal(t, 0.0, grid.At(1, 0))
	assert.Equal(t, 1.0, grid.At(2, 0))
	assert.Equal(t, 2.0, grid.At(3, 0))
	assert.Equal(t, 3.0, grid.At(4, 0))
	assert.Contains(t, buf.String(), "breadth-first")
}

func TestBuildWithoutCoast(t *testing.T) {
	mask := mustMask(t, [][]bool{{true, true}, {true, true}})

	_, err := (&Builder{}).Build(context.Background(), mask)
	assert.True(t, errors.Is(err, ErrNoCoastline))
}

func TestBuildCancelled(t *testing.T) {
	mask := mustMask(t, [][]bool{{true, false}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Builder{}).Build(ctx, mask)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLayerBounds(t *testing.T) {
	mask := mustMask(t, [][]bool{
		{false, true, true},
		{true, true, true},
		{true, true, true},
	})
	grid, err := (&Builder{}).Build(context.Background(), mask)
	require.NoError(t, err)

	l, err := Layer("coast", 3, grid)
	require.NoError(t, err)
	assert.Equal(t, 0.0, l.Bounds().Min)
	assert.InDelta(t, math.Sqrt(5), l.Bounds().Max, 1e-12)

	b, ok := l.BucketAt(2, 2).Get()
	require.True(t, ok)
	assert.Equal(t, 2, b)
}

func island(size int) [][]bool {
	rows := make([][]bool, size)
	centre := float64(size) / 2
	for y := range rows {
		rows[y] = make([]bool, size)
		for x := range rows[y] {
			dx, dy := float64(x)-centre, float64(y)-centre
			rows[y][x] = math.Hypot(dx, dy) < centre/2
		}
	}
	return rows
}

func BenchmarkBuild(b *testing.B) {
	mask := mustMask(b, island(200))
	builder := &Builder{}

	for i := 0; i < b.N; i++ {
		if _, err := builder.Build(context.Background(), mask); err != nil {
			b.Fatal(err)
		}
	}
}
