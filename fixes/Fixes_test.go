package fixes

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/gridtrack/projection"
)

const table = `event-id,visible,timestamp,location-long,location-lat,individual-local-identifier
1,true,2012-03-01 12:00:00.000,-110.5,45.1,Irma
2,true,2012-03-01 11:00:00.000,-110.6,45.0,Irma
3,false,2012-03-01 12:00:00.000,-100.0,30.0,Leo
4,true,2012-03-01 13:00:00.000,,30.1,Leo
5,true,2012-03-01 14:00:00.000,-100.2,30.2,Leo
6,true,2012-03-01 15:00:00.000,-90.0,20.0,Solo
7,true,2012-03-01 15:00:00.000,-90.0,NaN,Solo
`

func TestReadCSV(t *testing.T) {
	fixes, err := ReadCSV(strings.NewReader(table))
	require.NoError(t, err)
	require.Len(t, fixes, 5)

	assert.Equal(t, "Irma", fixes[0].Animal)
	assert.Equal(t, 45.1, fixes[0].Lat)
	assert.Equal(t, -110.5, fixes[0].Lon)
	assert.Equal(t, time.Date(2012, 3, 1, 12, 0, 0, 0, time.UTC),
		fixes[0].Time)
	assert.False(t, fixes[2].Visible)

	assert.Len(t, VisibleOnly(fixes), 4)
}

func TestReadCSVWithoutOptionalColumns(t *testing.T) {
	in := "location-lat,location-long,individual-local-identifier\n" +
		"10,20,a\n11,21,a\n"
	fixes, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, fixes, 2)
	assert.True(t, fixes[1].Time.IsZero())
	assert.True(t, fixes[1].Visible)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("location-lat,location-long\n1,2\n"))
	assert.True(t, errors.Is(err, ErrMissingColumn))

	pole := "location-lat,location-long,individual-local-identifier\n" +
		"-90,20,a\n"
	_, err = ReadCSV(strings.NewReader(pole))
	assert.True(t, errors.Is(err, projection.ErrOutOfDomain))

	badTime := "location-lat,location-long,individual-local-identifier," +
		"timestamp\n10,20,a,yesterday\n"
	_, err = ReadCSV(strings.NewReader(badTime))
	assert.Error(t, err)
}

func TestByAnimal(t *testing.T) {
	fixes, err := ReadCSV(strings.NewReader(table))
	require.NoError(t, err)

	tracks := ByAnimal(fixes)
	require.Len(t, tracks, 2)

	assert.Equal(t, "Irma", tracks[0].Animal)
	assert.Equal(t, "Leo", tracks[1].Animal)

	// Sorted by time
	assert.Equal(t, 45.0, tracks[0].Fixes[0].Lat)
	assert.Equal(t, 45.1, tracks[0].Fixes[1].Lat)
}

func TestByAnimalKeepsOrderWithoutTimes(t *testing.T) {
	fixes := []Fix{
		{Animal: "b", Lat: 3},
		{Animal: "a", Lat: 1},
		{Animal: "b", Lat: 2},
		{Animal: "a", Lat: 0},
	}
	tracks := ByAnimal(fixes)
	require.Len(t, tracks, 2)
	assert.Equal(t, "b", tracks[0].Animal)
	assert.Equal(t, []float64{3, 2},
		[]float64{tracks[0].Fixes[0].Lat, tracks[0].Fixes[1].Lat})
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixes.csv")
	require.NoError(t, os.WriteFile(path, []byte(table), 0o644))

	fixes, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, fixes, 5)

	_, err = ReadFile(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
