package population

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/gridtrack/pixel"
	"github.com/samuelfneumann/gridtrack/projection"
)

func TestReadCities(t *testing.T) {
	proj, err := projection.New(projection.DefaultCalibration())
	require.NoError(t, err)

	table := `city,lat,lng,country,population
Calgary,51.05,-114.07,Canada,1239220
Nowhere,40.0,-100.0,USA,
Broken,abc,-100.0,USA,10
Denver,39.74,-104.99,USA,2932415
`
	cities, err := ReadCities(strings.NewReader(table), proj)
	require.NoError(t, err)
	require.Len(t, cities, 2)

	assert.Equal(t, proj.Project(51.05, -114.07), cities[0].Pixel)
	assert.Equal(t, 1239220.0, cities[0].Population)
	assert.Equal(t, 2932415.0, cities[1].Population)
}

func TestReadCitiesMissingColumn(t *testing.T) {
	proj, err := projection.New(projection.DefaultCalibration())
	require.NoError(t, err)

	_, err = ReadCities(strings.NewReader("lat,lng\n1,2\n"), proj)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestReadCitiesPole(t *testing.T) {
	proj, err := projection.New(projection.DefaultCalibration())
	require.NoError(t, err)

	_, err = ReadCities(strings.NewReader("lat,lng,population\n90,0,5\n"),
		proj)
	assert.True(t, errors.Is(err, projection.ErrOutOfDomain))
}

func TestBuild(t *testing.T) {
	cities := []City{
		{Pixel: pixel.New(2, 2), Population: 100},
		{Pixel: pixel.New(0, 0), Population: 10},
	}
	grid, err := Build(5, 5, cities, Kernel{Radius: 1, Sigma: 1})
	require.NoError(t, err)

	// City centres carry their full population
	assert.InDelta(t, 100, grid.At(2, 2), 1e-9)

	// Kernel is separable and symmetric
	assert.InDelta(t, grid.At(1, 2), grid.At(3, 2), 1e-9)
	assert.InDelta(t, grid.At(2, 1), grid.At(3, 2), 1e-9)
	assert.Less(t, grid.At(1, 1), grid.At(1, 2))

	// Outside the footprint of either city
	assert.Equal(t, 0.0, grid.At(4, 4))
	assert.Equal(t, 0.0, grid.At(4, 0))

	// Footprints add up and are clipped at the border
	assert.InDelta(t, 10, grid.At(0, 0), 1e-9)
	assert.Greater(t, grid.At(1, 1), 100*0.6*0.6)
}

func TestBuildRejectsBadKernel(t *testing.T) {
	_, err := Build(2, 2, nil, Kernel{Radius: 1, Sigma: 0})
	assert.Error(t, err)

	_, err = Build(2, 2, nil, Kernel{Radius: -1, Sigma: 1})
	assert.Error(t, err)

	_, err = Build(0, 2, nil, DefaultKernel())
	assert.Error(t, err)
}
