package progressbar

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	var out bytes.Buffer
	bar := New(&out, 10, 4)

	bar.Set(2)
	assert.Equal(t, 5, strings.Count(bar.String(), "█"))
	assert.Contains(t, bar.String(), "[50.00%")

	bar.Set(100)
	assert.Equal(t, 10, strings.Count(bar.String(), "█"))
	assert.Contains(t, bar.String(), "[100.00%")
}

func TestIncrementAndClose(t *testing.T) {
	var out bytes.Buffer
	bar := New(&out, 4, 4)
	bar.Increment()
	assert.Contains(t, bar.String(), "[25.00%")

	bar.Close()
	written := out.Len()
	bar.Increment()
	assert.Equal(t, written, out.Len())
	assert.True(t, strings.HasSuffix(out.String(), "\n"))
}

func TestCallback(t *testing.T) {
	var out bytes.Buffer
	bar := New(&out, 8, 1)
	progress := bar.Callback()

	progress(1, 8)
	assert.Equal(t, 1, strings.Count(bar.String(), "█"))
	progress(8, 8)
	assert.Contains(t, bar.String(), "[100.00%")
}
