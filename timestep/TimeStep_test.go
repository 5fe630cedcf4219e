package timestep

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		dx, dy int
		want   Action
		ok     bool
	}{
		{0, 0, Stay, true},
		{1, 0, Right, true},
		{-1, 0, Left, true},
		{0, 1, Down, true},
		{0, -1, Up, true},
		{1, 1, Stay, false},
		{-1, 1, Stay, false},
		{2, 0, Stay, false},
		{0, -3, Stay, false},
	}
	for _, c := range cases {
		got, ok := Classify(c.dx, c.dy)
		assert.Equal(t, c.ok, ok, "(%d, %d)", c.dx, c.dy)
		if c.ok {
			assert.Equal(t, c.want, got, "(%d, %d)", c.dx, c.dy)
		}
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "Down", Down.String())
	assert.Equal(t, "Action(9)", Action(9).String())
}

func TestEpisodeValidate(t *testing.T) {
	good := Episode{
		New(0, Right, 2, 0),
		{CurState: 2, Action: Down, NextState: 3, Done: true},
	}
	assert.NoError(t, good.Validate())
	assert.Equal(t, 3, good.Terminal())
	assert.Equal(t, 2, good.Len())

	bad := []Episode{
		nil,
		{New(0, Right, 2, 0)},
		{
			{CurState: 0, Action: Right, NextState: 2, Done: true},
			{CurState: 2, Action: Down, NextState: 3, Done: true},
		},
		{
			New(0, Right, 2, 0),
			{CurState: 1, Action: Down, NextState: 3, Done: true},
		},
	}
	for i, e := range bad {
		assert.True(t, errors.Is(e.Validate(), ErrBadEpisode), "case %d", i)
	}
}

func TestTerminalPanicsOnEmpty(t *testing.T) {
	assert.Panics(t, func() { Episode{}.Terminal() })
}
