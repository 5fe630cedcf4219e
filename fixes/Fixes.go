// Package fixes reads GPS fixes of tracked animals from Movebank-style
// CSV tables
package fixes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samuelfneumann/gridtrack/projection"
	"github.com/samuelfneumann/gridtrack/utils/floatutils"
)

// Column names of a fix table
const (
	LatColumn     = "location-lat"
	LonColumn     = "location-long"
	AnimalColumn  = "individual-local-identifier"
	TimeColumn    = "timestamp"
	VisibleColumn = "visible"
)

// ErrMissingColumn is returned when a fix table lacks a required column
var ErrMissingColumn = errors.New("missing column")

var timeLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// Fix is a single GPS fix of an animal. Time is the zero time if the
// table has no timestamp.
type Fix struct {
	Animal  string
	Lat     float64
	Lon     float64
	Time    time.Time
	Visible bool
}

func (f Fix) String() string {
	return fmt.Sprintf("Fix | %v  |  (%.5f, %.5f)  |  %v", f.Animal, f.Lat,
		f.Lon, f.Time.Format(time.RFC3339))
}

// ReadFile reads the fix table at path
func ReadFile(path string) ([]Fix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("readFile: %w", err)
	}
	defer file.Close()

	return ReadCSV(file)
}

// ReadCSV reads a fix table with a header row. The latitude, longitude and
// animal identifier columns are required; timestamp and visible are
// optional, and fixes are visible when the visible column is absent.
// Rows with empty or non-finite coordinates are skipped. A latitude at or
// beyond a pole is an error wrapping projection.ErrOutOfDomain.
func ReadCSV(r io.Reader) ([]Fix, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("readCSV: header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{LatColumn, LonColumn, AnimalColumn} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("readCSV: %v: %w", name, ErrMissingColumn)
		}
	}
	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var fixes []Fix
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("readCSV: line %d: %w", line, err)
		}

		lat, ok := parseCoordinate(field(record, LatColumn))
		if !ok {
			continue
		}
		lon, ok := parseCoordinate(field(record, LonColumn))
		if !ok {
			continue
		}
		if err := projection.Validate(lat, lon); err != nil {
			return nil, fmt.Errorf("readCSV: line %d: %w", line, err)
		}

		fix := Fix{
			Animal:  field(record, AnimalColumn),
			Lat:     lat,
			Lon:     lon,
			Visible: true,
		}
		if ts := field(record, TimeColumn); ts != "" {
			if fix.Time, err = parseTime(ts); err != nil {
				return nil, fmt.Errorf("readCSV: line %d: %w", line, err)
			}
		}
		if v := field(record, VisibleColumn); v != "" {
			if fix.Visible, err = strconv.ParseBool(v); err != nil {
				return nil, fmt.Errorf("readCSV: line %d: visible: %w", line,
					err)
			}
		}
		fixes = append(fixes, fix)
	}
	return fixes, nil
}

func parseCoordinate(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !floatutils.IsFinite(v) {
		return 0, false
	}
	return v, true
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// VisibleOnly returns the visible fixes
func VisibleOnly(fixes []Fix) []Fix {
	var visible []Fix
	for _, f := range fixes {
		if f.Visible {
			visible = append(visible, f)
		}
	}
	return visible
}

// Track is the time ordered sequence of fixes of one animal
type Track struct {
	Animal string
	Fixes  []Fix
}

// Len returns the number of fixes on the track
func (t Track) Len() int {
	return len(t.Fixes)
}

func (t Track) String() string {
	return fmt.Sprintf("Track | %v  |  Fixes: %d", t.Animal, len(t.Fixes))
}

// ByAnimal groups fixes into one track per animal, in the order animals
// first appear. Fixes keep their table order within a track, except that
// a track whose fixes all carry timestamps is sorted by time. Animals
// with fewer than two fixes have no trajectory and are dropped.
func ByAnimal(fixes []Fix) []Track {
	index := make(map[string]int)
	var tracks []Track
	for _, f := range fixes {
		i, ok := index[f.Animal]
		if !ok {
			i = len(tracks)
			index[f.Animal] = i
			tracks = append(tracks, Track{Animal: f.Animal})
		}
		tracks[i].Fixes = append(tracks[i].Fixes, f)
	}

	kept := tracks[:0]
	for _, t := range tracks {
		if t.Len() < 2 {
			continue
		}
		if timed(t.Fixes) {
			sort.SliceStable(t.Fixes, func(i, j int) bool {
				return t.Fixes[i].Time.Before(t.Fixes[j].Time)
			})
		}
		kept = append(kept, t)
	}
	return kept
}

func timed(fixes []Fix) bool {
	for _, f := range fixes {
		if f.Time.IsZero() {
			return false
		}
	}
	return true
}
