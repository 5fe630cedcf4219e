package episode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/gridtrack/environment/gridworld"
	"github.com/samuelfneumann/gridtrack/fixes"
	"github.com/samuelfneumann/gridtrack/pixel"
	"github.com/samuelfneumann/gridtrack/projection"
	"github.com/samuelfneumann/gridtrack/raster"
	"github.com/samuelfneumann/gridtrack/timestep"
	"github.com/samuelfneumann/gridtrack/trajectory"
)

func newProjection(t testing.TB) *projection.Projection {
	t.Helper()
	p, err := projection.New(projection.DefaultCalibration())
	require.NoError(t, err)
	return p
}

func newEncoder(t testing.TB, region gridworld.Region, tb trajectory.TieBreak,
	layers ...*raster.Layer) (*Encoder, *bytes.Buffer) {
	t.Helper()
	m, err := gridworld.New(region, layers...)
	require.NoError(t, err)

	var buf bytes.Buffer
	e, err := New(m, newProjection(t), tb, log.New(&buf, "", 0))
	require.NoError(t, err)
	return e, &buf
}

// track returns the fixes at the centres of the given pixels
func track(p *projection.Projection, animal string, xy ...int) fixes.Track {
	tr := fixes.Track{Animal: animal}
	for i := 0; i < len(xy); i += 2 {
		lat, lon := p.Unproject(pixel.New(xy[i], xy[i+1]))
		tr.Fixes = append(tr.Fixes, fixes.Fix{Animal: animal, Lat: lat,
			Lon: lon})
	}
	return tr
}

// pixels pairs up xy into a pixel path
func pixels(xy ...int) []pixel.Coord {
	path := make([]pixel.Coord, 0, len(xy)/2)
	for i := 0; i < len(xy); i += 2 {
		path = append(path, pixel.New(xy[i], xy[i+1]))
	}
	return path
}

func checkInvariants(t *testing.T, ep timestep.Episode, numStates int) {
	t.Helper()
	require.NoError(t, ep.Validate())
	for i, step := range ep {
		assert.GreaterOrEqual(t, step.CurState, 0, "step %d", i)
		assert.Less(t, step.CurState, numStates, "step %d", i)
		assert.GreaterOrEqual(t, step.NextState, 0, "step %d", i)
		assert.Less(t, step.NextState, numStates, "step %d", i)
	}
}

func TestEncodeDiagonalInSquare(t *testing.T) {
	region := gridworld.Region{XStart: 0, XEnd: 1, YStart: 0, YEnd: 1}
	e, _ := newEncoder(t, region, trajectory.XFirst)

	ep, ok := e.EncodePixels(trajectory.Interpolate(
		pixels(0, 0, 1, 1), trajectory.XFirst))
	require.True(t, ok)

	want := timestep.Episode{
		{CurState: 0, Action: timestep.Right, NextState: 2},
		{CurState: 2, Action: timestep.Down, NextState: 3, Done: true},
	}
	if diff := cmp.Diff(want, ep); diff != "" {
		t.Errorf("x-first (-want +got):\n%v", diff)
	}

	e, _ = newEncoder(t, region, trajectory.YFirst)
	ep, ok = e.EncodePixels(trajectory.Interpolate(
		pixels(0, 0, 1, 1), trajectory.YFirst))
	require.True(t, ok)

	want = timestep.Episode{
		{CurState: 0, Action: timestep.Down, NextState: 1},
		{CurState: 1, Action: timestep.Right, NextState: 3, Done: true},
	}
	if diff := cmp.Diff(want, ep); diff != "" {
		t.Errorf("y-first (-want +got):\n%v", diff)
	}
}

func TestEncodeFromFixes(t *testing.T) {
	region := gridworld.Region{XStart: 500, XEnd: 501, YStart: 300, YEnd: 301}
	e, _ := newEncoder(t, region, nil)

	tr := track(e.proj, "a", 500, 300, 501, 301)
	ep, ok := e.Encode(tr.Fixes)
	require.True(t, ok)
	assert.Equal(t, 2, ep.Len())
	assert.Equal(t, 3, ep.Terminal())
	checkInvariants(t, ep, 4)
}

func TestEncodeEnterThenLeave(t *testing.T) {
	region := gridworld.Region{XStart: 0, XEnd: 1, YStart: 0, YEnd: 1}
	e, _ := newEncoder(t, region, nil)

	path := trajectory.Interpolate(pixels(-3, 0, 4, 0), nil)
	ep, ok := e.EncodePixels(path)
	require.True(t, ok)

	want := timestep.Episode{
		{CurState: 0, Action: timestep.Right, NextState: 2, Done: true},
	}
	if diff := cmp.Diff(want, ep); diff != "" {
		t.Errorf("(-want +got):\n%v", diff)
	}
	checkInvariants(t, ep, 4)
}

func TestEncodeNoEpisode(t *testing.T) {
	region := gridworld.Region{XStart: 0, XEnd: 1, YStart: 0, YEnd: 1}
	e, _ := newEncoder(t, region, nil)

	_, ok := e.EncodePixels(pixels(5, 5, 5, 6, 5, 7))
	assert.False(t, ok)

	_, ok = e.EncodePixels(pixels(1, 1))
	assert.False(t, ok)

	ep, ok := e.EncodePixels(nil)
	assert.False(t, ok)
	assert.Nil(t, ep)
}

func TestEncodeStay(t *testing.T) {
	region := gridworld.Region{XStart: 0, XEnd: 1, YStart: 0, YEnd: 1}
	e, _ := newEncoder(t, region, nil)

	ep, ok := e.EncodePixels(pixels(1, 0, 1, 0, 0, 0))
	require.True(t, ok)
	assert.Equal(t, timestep.Stay, ep[0].Action)
	assert.Equal(t, timestep.Left, ep[1].Action)
	checkInvariants(t, ep, 4)
}

func TestEncodeUnknownFeatureLeavesRegion(t *testing.T) {
	g, err := raster.GridFromRows([][]float64{
		{0, 1, 0},
		{1, 1, raster.Unknown},
		{0, 0, 0},
	})
	require.NoError(t, err)
	water, err := raster.NewLayer("water", 2, g)
	require.NoError(t, err)

	region := gridworld.Region{XStart: 0, XEnd: 2, YStart: 0, YEnd: 2}
	e, _ := newEncoder(t, region, nil, water)

	// Enters at (0, 1) and reaches the unknown pixel (2, 1)
	ep, ok := e.EncodePixels(pixels(0, 1, 1, 1, 2, 1, 2, 2))
	require.True(t, ok)
	assert.Equal(t, 1, ep.Len())
	assert.Equal(t, 4, ep.Terminal())
	checkInvariants(t, ep, 9)

	// Starting on the unknown pixel skips it
	ep, ok = e.EncodePixels(pixels(2, 1, 2, 2, 1, 2))
	require.True(t, ok)
	assert.Equal(t, 1, ep.Len())
	assert.Equal(t, 8, ep[0].CurState)
}

func TestEncodeContractViolation(t *testing.T) {
	region := gridworld.Region{XStart: 0, XEnd: 2, YStart: 0, YEnd: 2}
	e, buf := newEncoder(t, region, nil)

	ep, ok := e.EncodePixels(pixels(0, 0, 1, 0, 2, 1, 2, 2))
	require.True(t, ok)

	want := timestep.Episode{
		{CurState: 0, Action: timestep.Right, NextState: 3, Done: true},
	}
	if diff := cmp.Diff(want, ep); diff != "" {
		t.Errorf("(-want +got):\n%v", diff)
	}
	assert.EqualValues(t, 1, e.Violations())
	assert.Contains(t, buf.String(), ErrContractViolation.Error())

	// Before any step is emitted the walk restarts at the far pixel
	ep, ok = e.EncodePixels(pixels(0, 0, 2, 2, 2, 1))
	require.True(t, ok)
	assert.Equal(t, timestep.Episode{
		{CurState: 8, Action: timestep.Up, NextState: 7, Done: true},
	}, ep)
	assert.EqualValues(t, 2, e.Violations())
}

func TestEncodeAll(t *testing.T) {
	region := gridworld.Region{XStart: 100, XEnd: 109, YStart: 200, YEnd: 207}
	e, _ := newEncoder(t, region, trajectory.NewRandom(11))

	tracks := []fixes.Track{
		track(e.proj, "inside", 100, 200, 105, 204, 109, 207),
		track(e.proj, "outside", 10, 10, 12, 14),
		track(e.proj, "crossing", 95, 203, 120, 203),
		track(e.proj, "wander", 108, 200, 101, 206, 104, 201, 104, 201),
	}

	serial, err := e.EncodeAll(context.Background(), tracks, 1)
	require.NoError(t, err)
	require.Len(t, serial, 3)
	for i, ep := range serial {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			checkInvariants(t, ep, 80)
		})
	}

	// Order and tie-breaks do not depend on the number of workers
	parallel, err := e.EncodeAll(context.Background(), tracks, 4)
	require.NoError(t, err)
	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Errorf("serial vs parallel (-serial +parallel):\n%v", diff)
	}

	m := e.model.(*gridworld.Model)
	assert.Equal(t, m.IndexOf(100, 200), serial[0][0].CurState)
	assert.Equal(t, m.IndexOf(109, 207), serial[0].Terminal())
	assert.Equal(t, m.IndexOf(109, 203), serial[1].Terminal())
	assert.Equal(t, m.IndexOf(104, 201), serial[2].Terminal())
}

func TestEncodeAllErrors(t *testing.T) {
	region := gridworld.Region{XStart: 0, XEnd: 1, YStart: 0, YEnd: 1}
	e, _ := newEncoder(t, region, nil)

	bad := []fixes.Track{{Animal: "polar", Fixes: []fixes.Fix{
		{Lat: 40, Lon: -100},
		{Lat: 90, Lon: -100},
	}}}
	_, err := e.EncodeAll(context.Background(), bad, 2)
	assert.True(t, errors.Is(err, projection.ErrOutOfDomain))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tracks := []fixes.Track{track(e.proj, "a", 0, 0, 1, 1)}
	_, err = e.EncodeAll(ctx, tracks, 1)
	assert.True(t, errors.Is(err, context.Canceled))
}

func BenchmarkEncodeAll(b *testing.B) {
	region := gridworld.Region{XStart: 0, XEnd: 499, YStart: 0, YEnd: 499}
	e, _ := newEncoder(b, region, nil)

	tracks := make([]fixes.Track, 64)
	for i := range tracks {
		tracks[i] = track(e.proj, fmt.Sprint(i), i, 0, 499-i, 499, i, 250)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.EncodeAll(context.Background(), tracks, 0); err != nil {
			b.Fatal(err)
		}
	}
}
